package bybit

// Bybit API Response Structures

// BaseResponse is the common response structure
type BaseResponse struct {
	RetCode    int         `json:"retCode"`
	RetMsg     string      `json:"retMsg"`
	Result     interface{} `json:"result"`
	RetExtInfo interface{} `json:"retExtInfo"`
	Time       int64       `json:"time"`
}

// FuturesBalance represents futures wallet balance
type FuturesBalance struct {
	Coin                  string `json:"coin"`
	Equity                string `json:"equity"`
	WalletBalance         string `json:"walletBalance"`
	PositionMargin        string `json:"positionMargin"`
	AvailableBalance      string `json:"availableBalance"`
	OrderMargin           string `json:"orderMargin"`
	OccClosingFee         string `json:"occClosingFee"`
	OccFundingFee         string `json:"occFundingFee"`
	UnrealizedPnl         string `json:"unrealizedPnl"`
	CumRealizedPnl        string `json:"cumRealizedPnl"`
	GivenCash             string `json:"givenCash"`
	ServiceCash           string `json:"serviceCash"`
}

// FuturesSymbol represents futures contract information
type FuturesSymbol struct {
	Symbol           string `json:"symbol"`
	ContractType     string `json:"contractType"`
	Status           string `json:"status"`
	BaseCoin         string `json:"baseCoin"`
	QuoteCoin        string `json:"quoteCoin"`
	LaunchTime       string `json:"launchTime"`
	DeliveryTime     string `json:"deliveryTime"`
	DeliveryFeeRate  string `json:"deliveryFeeRate"`
	PriceScale       string `json:"priceScale"`
	LeverageFilter   LeverageFilter `json:"leverageFilter"`
	PriceFilter      PriceFilter    `json:"priceFilter"`
	LotSizeFilter    LotSizeFilter  `json:"lotSizeFilter"`
}

// Filter types for futures
type LeverageFilter struct {
	MinLeverage  string `json:"minLeverage"`
	MaxLeverage  string `json:"maxLeverage"`
	LeverageStep string `json:"leverageStep"`
}

type PriceFilter struct {
	MinPrice string `json:"minPrice"`
	MaxPrice string `json:"maxPrice"`
	TickSize string `json:"tickSize"`
}

type LotSizeFilter struct {
	MaxOrderQty         string `json:"maxOrderQty"`
	MinOrderQty         string `json:"minOrderQty"`
	QtyStep             string `json:"qtyStep"`
	PostOnlyMaxOrderQty string `json:"postOnlyMaxOrderQty"`
}

// Order represents an order
type Order struct {
	OrderId            string `json:"orderId"`
	OrderLinkId        string `json:"orderLinkId"`
	Symbol             string `json:"symbol"`
	Price              string `json:"price"`
	Qty                string `json:"qty"`
	Side               string `json:"side"`
	OrderType          string `json:"orderType"`
	TimeInForce        string `json:"timeInForce"`
	OrderStatus        string `json:"orderStatus"`
	CumExecQty         string `json:"cumExecQty"`
	CumExecValue       string `json:"cumExecValue"`
	CumExecFee         string `json:"cumExecFee"`
	StopOrderType      string `json:"stopOrderType"`
	TriggerDirection   string `json:"triggerDirection"`
	TriggerBy          string `json:"triggerBy"`
	TriggerPrice       string `json:"triggerPrice"`
	CreateTime         string `json:"createTime"`
	UpdateTime         string `json:"updateTime"`
	ReduceOnly         bool   `json:"reduceOnly"`
	CloseOnTrigger     bool   `json:"closeOnTrigger"`
	PlaceType          string `json:"placeType"`
}

// Ticker represents market ticker data
type Ticker struct {
	Symbol        string `json:"symbol"`
	LastPrice     string `json:"lastPrice"`
	HighPrice24h  string `json:"highPrice24h"`
	LowPrice24h   string `json:"lowPrice24h"`
	PrevPrice24h  string `json:"prevPrice24h"`
	Volume24h     string `json:"volume24h"`
	Turnover24h   string `json:"turnover24h"`
	Price24hPcnt  string `json:"price24hPcnt"`
	UsdIndexPrice string `json:"usdIndexPrice"`
}

// Constants
const (
	// Order sides
	SideBuy  = "Buy"
	SideSell = "Sell"

	// Order types
	OrderTypeMarket     = "Market"
	OrderTypeLimit      = "Limit"
	OrderTypeLimitMaker = "Limit_maker"

	// Time in force
	TimeInForceGTC = "GTC" // Good Till Cancelled

	// Order status
	OrderStatusNew             = "New"
	OrderStatusPartiallyFilled = "PartiallyFilled"
	OrderStatusFilled          = "Filled"
	OrderStatusCancelled       = "Cancelled"
	OrderStatusRejected        = "Rejected"

	// Category
	CategoryLinear = "linear" // USDT perpetual
)