// Package bybitadapter adapts the Bybit USDT-perpetual connector to
// engine.PerpetualGateway, giving the funding-rate arbitrage core a second,
// genuinely distinct venue to pair against Binance. Thin by the same
// standard as internal/gateway/binanceadapter: it forwards straight
// through to the connector and adds only the quantization/readiness
// bookkeeping the strategy core depends on.
package bybitadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/mExOms/tradecore/pkg/types"
	"github.com/mExOms/tradecore/services/bybit"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// FuturesGateway adapts a *bybit.BybitFutures connector to
// engine.PerpetualGateway.
type FuturesGateway struct {
	conn   *bybit.BybitFutures
	logger *logrus.Entry

	mu          sync.Mutex
	readyOnce   bool
	symbolCache map[string]types.SymbolInfo
}

// NewFuturesGateway constructs a Bybit perpetual gateway.
func NewFuturesGateway(apiKey, apiSecret string, testnet bool) *FuturesGateway {
	return &FuturesGateway{
		conn:        bybit.NewBybitFutures(apiKey, apiSecret, testnet),
		logger:      logrus.WithField("gateway", "bybit-futures"),
		symbolCache: make(map[string]types.SymbolInfo),
	}
}

// Ready initializes the connector (symbol cache, position mode,
// connectivity check) and cancels every resting order left over from a
// previous session, once.
func (g *FuturesGateway) Ready(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readyOnce {
		return true, nil
	}

	if err := g.conn.Initialize(ctx); err != nil {
		return false, fmt.Errorf("bybitadapter: initialize: %w", err)
	}

	orders, err := g.conn.GetOpenOrders(ctx, "")
	if err != nil {
		return false, fmt.Errorf("bybitadapter: list open orders: %w", err)
	}
	for _, o := range orders {
		if err := g.conn.CancelOrder(ctx, o.Symbol, o.ExchangeOrderID); err != nil {
			g.logger.WithError(err).WithField("symbol", o.Symbol).Warn("failed to cancel restored order")
		}
	}

	g.readyOnce = true
	g.logger.WithField("cancelled", len(orders)).Info("restored orders cleared, gateway ready")
	return true, nil
}

// LiveOrders returns every resting order across every perpetual market.
func (g *FuturesGateway) LiveOrders(ctx context.Context) ([]engine.LiveOrder, error) {
	orders, err := g.conn.GetOpenOrders(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("bybitadapter: list open orders: %w", err)
	}
	out := make([]engine.LiveOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, engine.LiveOrder{
			Market:        engine.Market(toMarket(o.Symbol)),
			ClientOrderID: o.ExchangeOrderID,
			Price:         o.Price,
			Quantity:      o.Quantity,
			IsBuy:         o.Side == types.OrderSideBuy,
			CreationTime:  o.CreatedAt,
		})
	}
	return out, nil
}

// Price returns the best ask when isBuy, else the best bid.
func (g *FuturesGateway) Price(ctx context.Context, market engine.Market, isBuy bool) (decimal.Decimal, bool, error) {
	symbol := toSymbol(market)
	data, err := g.conn.GetMarketData(ctx, []string{symbol})
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("bybitadapter: market data: %w", err)
	}
	md, ok := data[symbol]
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	price := md.Bid
	if isBuy {
		price = md.Ask
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, false, nil
	}
	return price, true, nil
}

// MidPrice returns the arithmetic mean of best bid and best ask.
func (g *FuturesGateway) MidPrice(ctx context.Context, market engine.Market) (decimal.Decimal, bool, error) {
	symbol := toSymbol(market)
	data, err := g.conn.GetMarketData(ctx, []string{symbol})
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("bybitadapter: market data: %w", err)
	}
	md, ok := data[symbol]
	if !ok || !md.Bid.IsPositive() || !md.Ask.IsPositive() {
		return decimal.Decimal{}, false, nil
	}
	return md.Bid.Add(md.Ask).Div(decimal.NewFromInt(2)), true, nil
}

// AllBalances returns every margin asset's available balance.
func (g *FuturesGateway) AllBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	balances, err := g.conn.GetBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybitadapter: get balances: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(balances))
	for _, b := range balances {
		out[b.Asset] = b.Free
	}
	return out, nil
}

// AvailableBalance returns a single margin asset's available balance.
func (g *FuturesGateway) AvailableBalance(ctx context.Context, token string) (decimal.Decimal, error) {
	balances, err := g.AllBalances(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return balances[token], nil
}

// EstimateFee returns Bybit USDT perpetual's standard taker fee. The
// connector exposes no per-order fee quote endpoint.
func (g *FuturesGateway) EstimateFee(ctx context.Context, market engine.Market, side engine.Side, orderType engine.OrderType) (engine.Fee, error) {
	return engine.Fee{Percent: decimal.NewFromFloat(0.00055)}, nil
}

// QuantizePrice rounds price down to the market's tick size.
func (g *FuturesGateway) QuantizePrice(market engine.Market, price decimal.Decimal) decimal.Decimal {
	return quantizeDown(price, g.filtersFor(market).TickSize)
}

// QuantizeAmount rounds amount down to the market's lot size.
func (g *FuturesGateway) QuantizeAmount(market engine.Market, amount decimal.Decimal) decimal.Decimal {
	return quantizeDown(amount, g.filtersFor(market).StepSize)
}

// MakerOrderType returns the non-crossing order type Bybit perpetuals use.
func (g *FuturesGateway) MakerOrderType() engine.OrderType {
	return engine.OrderTypeLimit
}

// Place submits an order and returns its exchange order id.
func (g *FuturesGateway) Place(ctx context.Context, market engine.Market, side engine.Side, size, price decimal.Decimal, orderType engine.OrderType) (string, error) {
	order := &types.Order{
		ClientOrderID: fmt.Sprintf("tradecore_%s", uuid.New().String()),
		Symbol:        toSymbol(market),
		Side:          side,
		Type:          orderType,
		Price:         price,
		Quantity:      size,
	}
	placed, err := g.conn.PlaceOrder(ctx, order)
	if err != nil {
		return "", fmt.Errorf("bybitadapter: place order: %w", err)
	}
	return placed.ExchangeOrderID, nil
}

// Cancel cancels a resting order by its exchange order id.
func (g *FuturesGateway) Cancel(ctx context.Context, market engine.Market, clientOrderID string) error {
	if err := g.conn.CancelOrder(ctx, toSymbol(market), clientOrderID); err != nil {
		return fmt.Errorf("bybitadapter: cancel order: %w", err)
	}
	return nil
}

// SetPositionMode is a no-op: Bybit's one-way vs. hedge mode is configured
// per-symbol on first order rather than account-wide, and the connector
// defaults to one-way ("MergedSingle").
func (g *FuturesGateway) SetPositionMode(ctx context.Context, hedgeMode bool) error {
	return nil
}

// SetLeverage sets the leverage used for new positions on market.
func (g *FuturesGateway) SetLeverage(ctx context.Context, market engine.Market, leverage int) error {
	if err := g.conn.SetLeverage(ctx, toSymbol(market), leverage); err != nil {
		return fmt.Errorf("bybitadapter: set leverage: %w", err)
	}
	return nil
}

// GetFundingInfo returns the current funding rate snapshot.
func (g *FuturesGateway) GetFundingInfo(ctx context.Context, market engine.Market) (engine.FundingInfo, error) {
	fr, err := g.conn.GetFundingRate(ctx, toSymbol(market))
	if err != nil {
		return engine.FundingInfo{}, fmt.Errorf("bybitadapter: funding rate: %w", err)
	}
	return engine.FundingInfo{
		Rate:         fr.Rate,
		NextFunding:  fr.NextFunding,
		IntervalSecs: 8 * 60 * 60,
	}, nil
}

func (g *FuturesGateway) filtersFor(market engine.Market) types.SymbolInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	symbol := toSymbol(market)
	if f, ok := g.symbolCache[symbol]; ok {
		return f
	}
	info, err := g.conn.GetSymbolInfo(context.Background(), symbol)
	if err != nil {
		g.logger.WithError(err).WithField("market", market).Warn("symbol info lookup failed, using unquantized values")
		return types.SymbolInfo{}
	}
	g.symbolCache[symbol] = *info
	return *info
}

func toSymbol(market engine.Market) string {
	return market.Base() + market.Quote()
}

var knownQuoteAssets = []string{"USDT", "USDC", "BTC", "ETH"}

func toMarket(symbol string) string {
	for _, quote := range knownQuoteAssets {
		if len(symbol) > len(quote) && symbol[len(symbol)-len(quote):] == quote {
			return symbol[:len(symbol)-len(quote)] + "-" + quote
		}
	}
	return symbol
}

func quantizeDown(value, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return value
	}
	return value.Div(step).Floor().Mul(step)
}
