// Package binanceadapter implements the strategy-facing engine.Gateway and
// engine.PerpetualGateway contracts over the Binance spot and USDT-M
// futures REST APIs. It is deliberately thin: quantization, balance
// lookups, and order placement pass almost straight through to the SDK,
// since connector-level concerns (WebSocket user streams, multi-account
// key routing, retries) are out of scope here.
package binanceadapter

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/mExOms/tradecore/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SpotGateway adapts a Binance spot REST client to engine.Gateway.
type SpotGateway struct {
	client      *binance.Client
	rateLimiter *cache.RateLimiter
	logger      *logrus.Entry

	mu          sync.Mutex
	readyOnce   bool
	symbolCache map[string]filters
}

// NewSpotGateway constructs a spot gateway. testnet switches the client to
// Binance's spot testnet base URL.
func NewSpotGateway(apiKey, apiSecret string, testnet bool) *SpotGateway {
	client := binance.NewClient(apiKey, apiSecret)
	if testnet {
		client.BaseURL = "https://testnet.binance.vision/api"
	}
	return &SpotGateway{
		client:      client,
		rateLimiter: cache.NewRateLimiter(1200, time.Minute),
		logger:      logrus.WithField("gateway", "binance-spot"),
		symbolCache: make(map[string]filters),
	}
}

// Ready cancels every resting order left over from a previous session on
// first call, then reports true on every subsequent call.
func (g *SpotGateway) Ready(ctx context.Context) (bool, error) {
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

// LiveOrders returns every resting order across every spot market.
func (g *SpotGateway) LiveOrders(ctx context.Context) ([]engine.LiveOrder, error) {
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
			IsBuy:         o.Side == binance.SideTypeBuy,
			CreationTime:  time.UnixMilli(o.Time),
		})
	}
	return out, nil
}

// Price returns the best ask when isBuy, else the best bid.
func (g *SpotGateway) Price(ctx context.Context, market engine.Market, isBuy bool) (decimal.Decimal, bool, error) {
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
	t := tickers[0]
	field := t.BidPrice
	if isBuy {
		field = t.AskPrice
	}
	price, err := decimal.NewFromString(field)
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, false, nil
	}
	return price, true, nil
}

// MidPrice returns the arithmetic mean of best bid and best ask.
func (g *SpotGateway) MidPrice(ctx context.Context, market engine.Market) (decimal.Decimal, bool, error) {
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

// AllBalances returns every known token's free (available) balance.
func (g *SpotGateway) AllBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if !g.rateLimiter.Allow("account") {
		return nil, fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binanceadapter: get account: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			continue
		}
		out[b.Asset] = free
	}
	return out, nil
}

// AvailableBalance returns a single token's free balance.
func (g *SpotGateway) AvailableBalance(ctx context.Context, token string) (decimal.Decimal, error) {
	balances, err := g.AllBalances(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return balances[token], nil
}

// EstimateFee returns Binance's standard spot taker/maker fee. The SDK
// exposes no per-order fee quote endpoint, so this uses the VIP 0 default
// tier: 0.1% regardless of side or order type.
func (g *SpotGateway) EstimateFee(ctx context.Context, market engine.Market, side engine.Side, orderType engine.OrderType) (engine.Fee, error) {
	return engine.Fee{Percent: decimal.NewFromFloat(0.001)}, nil
}

// QuantizePrice rounds price down to the market's tick size.
func (g *SpotGateway) QuantizePrice(market engine.Market, price decimal.Decimal) decimal.Decimal {
	return quantizeDown(price, g.filtersFor(market).tickSize)
}

// QuantizeAmount rounds amount down to the market's lot size.
func (g *SpotGateway) QuantizeAmount(market engine.Market, amount decimal.Decimal) decimal.Decimal {
	return quantizeDown(amount, g.filtersFor(market).stepSize)
}

// MakerOrderType returns the non-crossing order type Binance spot uses.
func (g *SpotGateway) MakerOrderType() engine.OrderType {
	return engine.OrderTypeLimitMaker
}

// Place submits an order of the given type and returns its exchange order id.
func (g *SpotGateway) Place(ctx context.Context, market engine.Market, side engine.Side, size, price decimal.Decimal, orderType engine.OrderType) (string, error) {
	if !g.rateLimiter.Allow("create_order") {
		return "", fmt.Errorf("binanceadapter: rate limit exceeded")
	}
	svc := g.client.NewCreateOrderService().
		Symbol(toSymbol(market)).
		Side(toSideType(side)).
		Type(toOrderType(orderType)).
		Quantity(size.String())

	if orderType != engine.OrderTypeMarket {
		svc = svc.TimeInForce(binance.TimeInForceTypeGTC).Price(price.String())
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return "", fmt.Errorf("binanceadapter: place order: %w", err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

// Cancel cancels a resting order by its exchange order id.
func (g *SpotGateway) Cancel(ctx context.Context, market engine.Market, clientOrderID string) error {
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

func (g *SpotGateway) filtersFor(market engine.Market) filters {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.symbolCache[string(market)]; ok {
		return f
	}

	info, err := g.client.NewExchangeInfoService().Symbol(toSymbol(market)).Do(context.Background())
	if err != nil || len(info.Symbols) == 0 {
		g.logger.WithError(err).WithField("market", market).Warn("exchange info lookup failed, using unquantized values")
		return filters{}
	}
	s := info.Symbols[0]
	tick, _ := decimal.NewFromString(s.PriceFilter().TickSize)
	step, _ := decimal.NewFromString(s.LotSizeFilter().StepSize)
	f := filters{tickSize: tick, stepSize: step}
	g.symbolCache[string(market)] = f
	return f
}

func toSymbol(market engine.Market) string {
	return market.Base() + market.Quote()
}

// knownQuoteAssets is tried longest-first when splitting a bare exchange
// symbol (e.g. "BTCUSDT") back into a hyphenated market identifier, since
// Binance symbols carry no separator between base and quote.
var knownQuoteAssets = []string{"USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}

func toMarket(symbol string) string {
	for _, quote := range knownQuoteAssets {
		if len(symbol) > len(quote) && symbol[len(symbol)-len(quote):] == quote {
			return symbol[:len(symbol)-len(quote)] + "-" + quote
		}
	}
	return symbol
}

func toSideType(side engine.Side) binance.SideType {
	if side == engine.SideSell {
		return binance.SideTypeSell
	}
	return binance.SideTypeBuy
}

func toOrderType(orderType engine.OrderType) binance.OrderType {
	switch orderType {
	case engine.OrderTypeMarket:
		return binance.OrderTypeMarket
	case engine.OrderTypeLimitMaker:
		return binance.OrderTypeLimitMaker
	default:
		return binance.OrderTypeLimit
	}
}
