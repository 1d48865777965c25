package bybit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mExOms/tradecore/pkg/types"
	"github.com/shopspring/decimal"
)

// BybitFutures is a REST connector for Bybit USDT-margined (linear) futures trading
type BybitFutures struct {
	client       *Client
	exchangeType types.ExchangeType
	marketType   types.MarketType
	symbolsCache map[string]*FuturesSymbol
	lastUpdate   time.Time
	positionMode string // "MergedSingle" or "BothSide"
}

// NewBybitFutures creates a new Bybit Futures exchange instance
func NewBybitFutures(apiKey, apiSecret string, testnet bool) *BybitFutures {
	return &BybitFutures{
		client:       NewClient(apiKey, apiSecret, testnet),
		exchangeType: types.ExchangeBybit,
		marketType:   types.MarketTypeFutures,
		symbolsCache: make(map[string]*FuturesSymbol),
		positionMode: "MergedSingle", // Default position mode
	}
}

// GetName returns the exchange name
func (b *BybitFutures) GetName() string {
	return string(b.exchangeType)
}

// GetType returns the exchange type
func (b *BybitFutures) GetType() types.ExchangeType {
	return b.exchangeType
}

// GetMarketType returns the market type
func (b *BybitFutures) GetMarketType() types.MarketType {
	return b.marketType
}

// Initialize initializes the exchange
func (b *BybitFutures) Initialize(ctx context.Context) error {
	// Load symbols
	if err := b.loadSymbols(); err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}

	// Get position mode
	if err := b.getPositionMode(); err != nil {
		return fmt.Errorf("failed to get position mode: %w", err)
	}

	// Test connectivity
	if _, err := b.client.GetServerTime(); err != nil {
		return fmt.Errorf("failed to connect to Bybit: %w", err)
	}

	return nil
}

// GetBalances returns account balances
func (b *BybitFutures) GetBalances(ctx context.Context) ([]types.Balance, error) {
	params := map[string]interface{}{
		"accountType": "CONTRACT", // USDT perpetual
	}

	var result struct {
		List []struct {
			TotalEquity      string `json:"totalEquity"`
			AccountIMRate    string `json:"accountIMRate"`
			AccountMMRate    string `json:"accountMMRate"`
			TotalPerpUPL     string `json:"totalPerpUPL"`
			TotalWalletBalance string `json:"totalWalletBalance"`
			AccountLTV       string `json:"accountLTV"`
			TotalMarginBalance string `json:"totalMarginBalance"`
			Coin             []FuturesBalance `json:"coin"`
		} `json:"list"`
	}

	err := b.client.Request(http.MethodGet, "/account/wallet-balance", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	var balances []types.Balance
	if len(result.List) > 0 && len(result.List[0].Coin) > 0 {
		for _, b := range result.List[0].Coin {
			equity, _ := decimal.NewFromString(b.Equity)
			walletBalance, _ := decimal.NewFromString(b.WalletBalance)
			availableBalance, _ := decimal.NewFromString(b.AvailableBalance)
			unrealizedPnl, _ := decimal.NewFromString(b.UnrealizedPnl)

			balances = append(balances, types.Balance{
				Asset:         b.Coin,
				Free:          availableBalance,
				Locked:        walletBalance.Sub(availableBalance),
				Total:         equity,
				UnrealizedPnL: unrealizedPnl,
			})
		}
	}

	return balances, nil
}

// PlaceOrder places an order
func (b *BybitFutures) PlaceOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	if order == nil {
		return nil, fmt.Errorf("order cannot be nil")
	}

	// Validate order
	if err := b.validateOrder(order); err != nil {
		return nil, err
	}

	// Convert order type
	orderType := b.convertOrderType(order.Type)
	side := b.convertOrderSide(order.Side)

	params := map[string]interface{}{
		"category":    CategoryLinear, // USDT perpetual
		"symbol":      order.Symbol,
		"side":        side,
		"orderType":   orderType,
		"qty":         order.Quantity.String(),
		"timeInForce": TimeInForceGTC,
		"orderLinkId": order.ClientOrderID,
		"reduceOnly":  order.ReduceOnly,
		"closeOnTrigger": false,
	}

	// Add price for limit orders
	if order.Type == types.OrderTypeLimit || order.Type == types.OrderTypeLimitMaker {
		params["price"] = order.Price.String()
	}

	// Add position index for hedge mode
	if b.positionMode == "BothSide" {
		if order.Side == types.OrderSideBuy {
			params["positionIdx"] = 1 // Long position
		} else {
			params["positionIdx"] = 2 // Short position
		}
	} else {
		params["positionIdx"] = 0 // One-way mode
	}

	var result struct {
		OrderId     string `json:"orderId"`
		OrderLinkId string `json:"orderLinkId"`
	}

	err := b.client.Request(http.MethodPost, "/order/create", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	// Update order with exchange ID
	order.ExchangeOrderID = result.OrderId
	order.Status = types.OrderStatusNew
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	return order, nil
}

// CancelOrder cancels an order
func (b *BybitFutures) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]interface{}{
		"category": CategoryLinear,
		"symbol":   symbol,
	}

	// Check if it's a client order ID or exchange order ID
	if len(orderID) > 20 {
		params["orderId"] = orderID
	} else {
		params["orderLinkId"] = orderID
	}

	err := b.client.Request(http.MethodPost, "/order/cancel", params, nil)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	return nil
}

// GetOpenOrders gets all open orders
func (b *BybitFutures) GetOpenOrders(ctx context.Context, symbol string) ([]*types.Order, error) {
	params := map[string]interface{}{
		"category": CategoryLinear,
		"limit":    500,
	}

	if symbol != "" {
		params["symbol"] = symbol
	}

	var result struct {
		List []Order `json:"list"`
	}

	err := b.client.Request(http.MethodGet, "/order/realtime", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}

	orders := make([]*types.Order, len(result.List))
	for i, o := range result.List {
		orders[i] = b.convertOrder(&o)
	}

	return orders, nil
}

// SetLeverage sets leverage for a symbol
func (b *BybitFutures) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage < 1 || leverage > 100 {
		return fmt.Errorf("invalid leverage: %d", leverage)
	}

	params := map[string]interface{}{
		"category":     CategoryLinear,
		"symbol":       symbol,
		"buyLeverage":  strconv.Itoa(leverage),
		"sellLeverage": strconv.Itoa(leverage),
	}

	err := b.client.Request(http.MethodPost, "/position/set-leverage", params, nil)
	if err != nil {
		return fmt.Errorf("failed to set leverage: %w", err)
	}

	return nil
}

// GetFundingRate gets funding rate for a symbol
func (b *BybitFutures) GetFundingRate(ctx context.Context, symbol string) (*types.FundingRate, error) {
	params := map[string]interface{}{
		"category": CategoryLinear,
		"symbol":   symbol,
		"limit":    1,
	}

	var result struct {
		List []struct {
			Symbol               string `json:"symbol"`
			FundingRate          string `json:"fundingRate"`
			FundingRateTimestamp string `json:"fundingRateTimestamp"`
		} `json:"list"`
	}

	err := b.client.PublicRequest(http.MethodGet, "/market/funding/history", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get funding rate: %w", err)
	}

	if len(result.List) == 0 {
		return nil, fmt.Errorf("funding rate not found")
	}

	rate, _ := decimal.NewFromString(result.List[0].FundingRate)
	timestamp, _ := strconv.ParseInt(result.List[0].FundingRateTimestamp, 10, 64)

	return &types.FundingRate{
		Symbol:      symbol,
		Rate:        rate,
		Time:        time.Unix(0, timestamp*int64(time.Millisecond)),
		NextFunding: time.Unix(0, timestamp*int64(time.Millisecond)).Add(8 * time.Hour),
	}, nil
}

func (b *BybitFutures) GetSymbolInfo(ctx context.Context, symbol string) (*types.SymbolInfo, error) {
	// Check cache first
	if sym, ok := b.symbolsCache[symbol]; ok {
		return b.convertFuturesSymbolInfo(sym), nil
	}

	// Reload symbols if not in cache
	if err := b.loadSymbols(); err != nil {
		return nil, err
	}

	sym, ok := b.symbolsCache[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}

	return b.convertFuturesSymbolInfo(sym), nil
}

func (b *BybitFutures) GetMarketData(ctx context.Context, symbols []string) (map[string]*types.MarketData, error) {
	params := map[string]interface{}{
		"category": CategoryLinear,
	}

	var result struct {
		List []Ticker `json:"list"`
	}

	err := b.client.PublicRequest(http.MethodGet, "/market/tickers", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get market data: %w", err)
	}

	// Create symbol set for filtering
	symbolSet := make(map[string]bool)
	if len(symbols) > 0 {
		for _, s := range symbols {
			symbolSet[s] = true
		}
	}

	marketData := make(map[string]*types.MarketData)
	for _, ticker := range result.List {
		// Filter by requested symbols if specified
		if len(symbolSet) > 0 && !symbolSet[ticker.Symbol] {
			continue
		}

		marketData[ticker.Symbol] = b.convertTicker(&ticker)
	}

	return marketData, nil
}

// Helper methods

func (b *BybitFutures) loadSymbols() error {
	params := map[string]interface{}{
		"category": CategoryLinear,
	}

	var result struct {
		List []FuturesSymbol `json:"list"`
	}

	err := b.client.PublicRequest(http.MethodGet, "/market/instruments-info", params, &result)
	if err != nil {
		return fmt.Errorf("failed to get symbols: %w", err)
	}

	// Update cache
	b.symbolsCache = make(map[string]*FuturesSymbol)
	for i := range result.List {
		sym := &result.List[i]
		b.symbolsCache[sym.Symbol] = sym
	}
	b.lastUpdate = time.Now()

	return nil
}

func (b *BybitFutures) getPositionMode() error {
	var result struct {
		IsModified  bool   `json:"isModified"`
		PositionMode string `json:"positionMode"`
	}

	err := b.client.Request(http.MethodGet, "/position/switch-mode", nil, &result)
	if err != nil {
		return err
	}

	b.positionMode = result.PositionMode
	return nil
}

func (b *BybitFutures) validateOrder(order *types.Order) error {
	if order.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if order.Quantity.IsZero() || order.Quantity.IsNegative() {
		return fmt.Errorf("invalid quantity")
	}
	if order.Type == types.OrderTypeLimit && order.Price.IsZero() {
		return fmt.Errorf("price is required for limit orders")
	}
	return nil
}

func (b *BybitFutures) convertOrderType(orderType types.OrderType) string {
	switch orderType {
	case types.OrderTypeMarket:
		return OrderTypeMarket
	case types.OrderTypeLimit:
		return OrderTypeLimit
	case types.OrderTypeLimitMaker:
		return OrderTypeLimitMaker
	default:
		return OrderTypeLimit
	}
}

func (b *BybitFutures) convertOrderSide(side types.OrderSide) string {
	switch side {
	case types.OrderSideBuy:
		return SideBuy
	case types.OrderSideSell:
		return SideSell
	default:
		return SideBuy
	}
}

func (b *BybitFutures) convertOrder(o *Order) *types.Order {
	qty, _ := decimal.NewFromString(o.Qty)
	price, _ := decimal.NewFromString(o.Price)
	executedQty, _ := decimal.NewFromString(o.CumExecQty)
	executedValue, _ := decimal.NewFromString(o.CumExecValue)
	fee, _ := decimal.NewFromString(o.CumExecFee)

	order := &types.Order{
		ClientOrderID:   o.OrderLinkId,
		ExchangeOrderID: o.OrderId,
		Symbol:          o.Symbol,
		Side:            b.parseOrderSide(o.Side),
		Type:            b.parseOrderType(o.OrderType),
		Status:          b.parseOrderStatus(o.OrderStatus),
		Price:           price,
		Quantity:        qty,
		ExecutedQty:     executedQty,
		RemainingQty:    qty.Sub(executedQty),
		Fee:             fee,
		ReduceOnly:      o.ReduceOnly,
	}

	// Calculate average price if executed
	if executedQty.IsPositive() && executedValue.IsPositive() {
		order.AvgPrice = executedValue.Div(executedQty)
	}

	// Parse timestamps
	if createTime, err := strconv.ParseInt(o.CreateTime, 10, 64); err == nil {
		order.CreatedAt = time.Unix(0, createTime*int64(time.Millisecond))
	}
	if updateTime, err := strconv.ParseInt(o.UpdateTime, 10, 64); err == nil {
		order.UpdatedAt = time.Unix(0, updateTime*int64(time.Millisecond))
	}

	return order
}

func (b *BybitFutures) convertFuturesSymbolInfo(s *FuturesSymbol) *types.SymbolInfo {
	minQty, _ := decimal.NewFromString(s.LotSizeFilter.MinOrderQty)
	maxQty, _ := decimal.NewFromString(s.LotSizeFilter.MaxOrderQty)
	qtyStep, _ := decimal.NewFromString(s.LotSizeFilter.QtyStep)
	tickSize, _ := decimal.NewFromString(s.PriceFilter.TickSize)
	minLeverage, _ := strconv.Atoi(s.LeverageFilter.MinLeverage)
	maxLeverage, _ := strconv.Atoi(s.LeverageFilter.MaxLeverage)

	// Calculate min notional (min qty * min price)
	minPrice, _ := decimal.NewFromString(s.PriceFilter.MinPrice)
	minNotional := minQty.Mul(minPrice)

	return &types.SymbolInfo{
		Symbol:              s.Symbol,
		BaseAsset:           s.BaseCoin,
		QuoteAsset:          s.QuoteCoin,
		Status:              s.Status,
		MinQty:              minQty,
		MaxQty:              maxQty,
		StepSize:            qtyStep,
		MinNotional:         minNotional,
		TickSize:            tickSize,
		MinLeverage:         minLeverage,
		MaxLeverage:         maxLeverage,
		ContractType:        s.ContractType,
		IsFuturesTradingAllowed: s.Status == "Trading",
		IsSpotTradingAllowed:    false,
		IsMarginTradingAllowed:  false,
	}
}

func (b *BybitFutures) convertTicker(t *Ticker) *types.MarketData {
	lastPrice, _ := decimal.NewFromString(t.LastPrice)
	highPrice, _ := decimal.NewFromString(t.HighPrice24h)
	lowPrice, _ := decimal.NewFromString(t.LowPrice24h)
	volume, _ := decimal.NewFromString(t.Volume24h)
	quoteVolume, _ := decimal.NewFromString(t.Turnover24h)
	priceChange, _ := decimal.NewFromString(t.Price24hPcnt)

	// Calculate price change percent (Bybit provides it as decimal)
	priceChangePercent := priceChange.Mul(decimal.NewFromInt(100))

	return &types.MarketData{
		Symbol:             t.Symbol,
		Price:              lastPrice,
		Bid:                decimal.Zero, // Not provided in ticker
		Ask:                decimal.Zero, // Not provided in ticker
		High24h:            highPrice,
		Low24h:             lowPrice,
		Volume24h:          volume,
		QuoteVolume24h:     quoteVolume,
		PriceChangePercent: priceChangePercent,
		UpdateTime:         time.Now(),
	}
}

func (b *BybitFutures) parseOrderSide(side string) types.OrderSide {
	switch side {
	case SideBuy:
		return types.OrderSideBuy
	case SideSell:
		return types.OrderSideSell
	default:
		return types.OrderSideBuy
	}
}

func (b *BybitFutures) parseOrderType(orderType string) types.OrderType {
	switch orderType {
	case OrderTypeMarket:
		return types.OrderTypeMarket
	case OrderTypeLimit:
		return types.OrderTypeLimit
	case OrderTypeLimitMaker:
		return types.OrderTypeLimitMaker
	default:
		return types.OrderTypeLimit
	}
}

func (b *BybitFutures) parseOrderStatus(status string) types.OrderStatus {
	switch status {
	case OrderStatusNew:
		return types.OrderStatusNew
	case OrderStatusPartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case OrderStatusFilled:
		return types.OrderStatusFilled
	case OrderStatusCancelled:
		return types.OrderStatusCanceled
	case OrderStatusRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusNew
	}
}