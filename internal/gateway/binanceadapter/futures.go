package binanceadapter

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/mExOms/tradecore/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// FuturesGateway adapts a Binance USDT-M perpetual futures REST client to
// engine.PerpetualGateway.
type FuturesGateway struct {
	client      *futures.Client
	rateLimiter *cache.RateLimiter
	logger      *logrus.Entry

	mu          sync.Mutex
	readyOnce   bool
	symbolCache map[string]filters
}

// NewFuturesGateway constructs a futures gateway. testnet switches the
// package-level futures.UseTestnet flag, matching go-binance's API.
func NewFuturesGateway(apiKey, apiSecret string, testnet bool) *FuturesGateway {
	if testnet {
		futures.UseTestnet = true
	}
	return &FuturesGateway{
		client:      futures.NewClient(apiKey, apiSecret),
		rateLimiter: cache.NewRateLimiter(2400, time.Minute),
		logger:      logrus.WithField("gateway", "binance-futures"),
		symbolCache: make(map[string]filters),
	}
}

// Ready cancels every resting order left over from a previous session on
// first call, then reports true on every subsequent call.
func (g *FuturesGateway) Ready(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readyOnce {
		return true, nil
	}

	if !g.rateLimiter.Allow("open_orders") {
		return false, fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	orders, err := g.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("binanceadapter: list open orders: %w", err)
	}

	for _, o := range orders {
		if !g.rateLimiter.Allow("cancel_order") {
			return false, fmt.Errorf("binanceadapter: rate limit exceeded")
		}
		if _, err := g.client.NewCancelOrderService().Symbol(o.Symbol).OrderID(o.OrderID).Do(ctx); err != nil {
			g.logger.WithError(err).WithField("symbol", o.Symbol).Warn("failed to cancel restored order")
		}
	}

	g.readyOnce = true
	g.logger.WithField("cancelled", len(orders)).Info("restored orders cleared, gateway ready")
	return true, nil
}

// LiveOrders returns every resting order across every perpetual market.
func (g *FuturesGateway) LiveOrders(ctx context.Context) ([]engine.LiveOrder, error) {
	if !g.rateLimiter.Allow("open_orders") {
		return nil, fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	orders, err := g.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binanceadapter: list open orders: %w", err)
	}

	out := make([]engine.LiveOrder, 0, len(orders))
	for _, o := range orders {
		price, _ := decimal.NewFromString(o.Price)
		qty, _ := decimal.NewFromString(o.OrigQuantity)
		out = append(out, engine.LiveOrder{
			Market:        engine.Market(toMarket(o.Symbol)),
			ClientOrderID: strconv.FormatInt(o.OrderID, 10),
			Price:         price,
			Quantity:      qty,
			IsBuy:         o.Side == futures.SideTypeBuy,
			CreationTime:  time.UnixMilli(o.Time),
		})
	}
	return out, nil
}

// Price returns the best ask when isBuy, else the best bid.
func (g *FuturesGateway) Price(ctx context.Context, market engine.Market, isBuy bool) (decimal.Decimal, bool, error) {
	if !g.rateLimiter.Allow("book_ticker") {
		return decimal.Decimal{}, false, fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	tickers, err := g.client.NewListBookTickersService().Symbol(toSymbol(market)).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("binanceadapter: book ticker: %w", err)
	}
	if len(tickers) == 0 {
		return decimal.Decimal{}, false, nil
	}
	field := tickers[0].BidPrice
	if isBuy {
		field = tickers[0].AskPrice
	}
	price, err := decimal.NewFromString(field)
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, false, nil
	}
	return price, true, nil
}

// MidPrice returns the arithmetic mean of best bid and best ask.
func (g *FuturesGateway) MidPrice(ctx context.Context, market engine.Market) (decimal.Decimal, bool, error) {
	if !g.rateLimiter.Allow("book_ticker") {
		return decimal.Decimal{}, false, fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	tickers, err := g.client.NewListBookTickersService().Symbol(toSymbol(market)).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("binanceadapter: book ticker: %w", err)
	}
	if len(tickers) == 0 {
		return decimal.Decimal{}, false, nil
	}
	bid, errBid := decimal.NewFromString(tickers[0].BidPrice)
	ask, errAsk := decimal.NewFromString(tickers[0].AskPrice)
	if errBid != nil || errAsk != nil || !bid.IsPositive() || !ask.IsPositive() {
		return decimal.Decimal{}, false, nil
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true, nil
}

// AllBalances returns every margin asset's available balance.
func (g *FuturesGateway) AllBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if !g.rateLimiter.Allow("account") {
		return nil, fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binanceadapter: get account: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(account.Assets))
	for _, asset := range account.Assets {
		avail, err := decimal.NewFromString(asset.AvailableBalance)
		if err != nil {
			continue
		}
		out[asset.Asset] = avail
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

// EstimateFee returns Binance USDT-M futures' standard taker/maker fee:
// 0.04% maker, 0.04% taker at the VIP 0 tier (the SDK exposes no per-order
// fee quote endpoint).
func (g *FuturesGateway) EstimateFee(ctx context.Context, market engine.Market, side engine.Side, orderType engine.OrderType) (engine.Fee, error) {
	return engine.Fee{Percent: decimal.NewFromFloat(0.0004)}, nil
}

// QuantizePrice rounds price down to the market's tick size.
func (g *FuturesGateway) QuantizePrice(market engine.Market, price decimal.Decimal) decimal.Decimal {
	return quantizeDown(price, g.filtersFor(market).tickSize)
}

// QuantizeAmount rounds amount down to the market's lot size.
func (g *FuturesGateway) QuantizeAmount(market engine.Market, amount decimal.Decimal) decimal.Decimal {
	return quantizeDown(amount, g.filtersFor(market).stepSize)
}

// MakerOrderType returns the non-crossing order type Binance futures uses.
func (g *FuturesGateway) MakerOrderType() engine.OrderType {
	return engine.OrderTypeLimit
}

// Place submits an order of the given type and returns its exchange order id.
func (g *FuturesGateway) Place(ctx context.Context, market engine.Market, side engine.Side, size, price decimal.Decimal, orderType engine.OrderType) (string, error) {
	if !g.rateLimiter.Allow("create_order") {
		return "", fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	svc := g.client.NewCreateOrderService().
		Symbol(toSymbol(market)).
		Side(toFuturesSideType(side)).
		Type(toFuturesOrderType(orderType)).
		Quantity(size.String())

	if orderType != engine.OrderTypeMarket {
		svc = svc.TimeInForce(futures.TimeInForceTypeGTC).Price(price.String())
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return "", fmt.Errorf("binanceadapter: place order: %w", err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

// Cancel cancels a resting order by its exchange order id.
func (g *FuturesGateway) Cancel(ctx context.Context, market engine.Market, clientOrderID string) error {
	if !g.rateLimiter.Allow("cancel_order") {
		return fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	orderID, err := strconv.ParseInt(clientOrderID, 10, 64)
	if err != nil {
		return fmt.Errorf("binanceadapter: malformed order id %q: %w", clientOrderID, err)
	}
	_, err = g.client.NewCancelOrderService().Symbol(toSymbol(market)).OrderID(orderID).Do(ctx)
	if err != nil {
		return fmt.Errorf("binanceadapter: cancel order: %w", err)
	}
	return nil
}

// SetPositionMode configures hedge vs. one-way mode account-wide.
func (g *FuturesGateway) SetPositionMode(ctx context.Context, hedgeMode bool) error {
	if !g.rateLimiter.Allow("position_mode") {
		return fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	err := g.client.NewChangePositionModeService().DualSide(hedgeMode).Do(ctx)
	if err != nil {
		return fmt.Errorf("binanceadapter: set position mode: %w", err)
	}
	return nil
}

// SetLeverage sets the leverage used for new positions on market.
func (g *FuturesGateway) SetLeverage(ctx context.Context, market engine.Market, leverage int) error {
	if !g.rateLimiter.Allow("set_leverage") {
		return fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	_, err := g.client.NewChangeLeverageService().Symbol(toSymbol(market)).Leverage(leverage).Do(ctx)
	if err != nil {
		return fmt.Errorf("binanceadapter: set leverage: %w", err)
	}
	return nil
}

// GetFundingInfo returns the current funding rate snapshot from Binance's
// premium index endpoint.
func (g *FuturesGateway) GetFundingInfo(ctx context.Context, market engine.Market) (engine.FundingInfo, error) {
	if !g.rateLimiter.Allow("premium_index") {
		return engine.FundingInfo{}, fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	premiums, err := g.client.NewPremiumIndexService().Symbol(toSymbol(market)).Do(ctx)
	if err != nil {
		return engine.FundingInfo{}, fmt.Errorf("binanceadapter: premium index: %w", err)
	}
	if len(premiums) == 0 {
		return engine.FundingInfo{}, fmt.Errorf("binanceadapter: no premium index for %s", market)
	}
	p := premiums[0]
	rate, _ := decimal.NewFromString(p.LastFundingRate)
	return engine.FundingInfo{
		Rate:         rate,
		NextFunding:  time.UnixMilli(p.NextFundingTime),
		IntervalSecs: 8 * 60 * 60,
	}, nil
}

func (g *FuturesGateway) filtersFor(market engine.Market) filters {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.symbolCache[string(market)]; ok {
		return f
	}

	info, err := g.client.NewExchangeInfoService().Do(context.Background())
	if err != nil {
		g.logger.WithError(err).WithField("market", market).Warn("exchange info lookup failed, using unquantized values")
		return filters{}
	}
	symbol := toSymbol(market)
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		tick, _ := decimal.NewFromString(s.PriceFilter().TickSize)
		step, _ := decimal.NewFromString(s.LotSizeFilter().StepSize)
		f := filters{tickSize: tick, stepSize: step}
		g.symbolCache[string(market)] = f
		return f
	}
	return filters{}
}

func toFuturesSideType(side engine.Side) futures.SideType {
	if side == engine.SideSell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func toFuturesOrderType(orderType engine.OrderType) futures.OrderType {
	if orderType == engine.OrderTypeMarket {
		return futures.OrderTypeMarket
	}
	return futures.OrderTypeLimit
}
