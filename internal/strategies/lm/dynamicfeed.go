package lm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// DefaultMarketBandURL is the market-band chart endpoint the dynamic
// spread source queries, templated with market_id and a fixed chart
// interval of one day (§6 External data feed).
const DefaultMarketBandURL = "https://api.hummingbot.io/bounty/charts/market_band"

// marketBandPoint is one entry of the feed's data array.
type marketBandPoint struct {
	SpreadAsk decimal.Decimal `json:"spread_ask"`
	SpreadBid decimal.Decimal `json:"spread_bid"`
	Timestamp int64           `json:"timestamp"`
}

type marketBandResponse struct {
	Status string             `json:"status"`
	Data   []marketBandPoint  `json:"data"`
}

// DynamicFeedClient fetches per-market bid/ask spreads from the external
// market-band feed (§4.5 Dynamic, §6). Every call is a plain synchronous
// HTTP GET on the caller's goroutine — deliberately not an unawaited
// coroutine — so it can be invoked inline from within a tick without
// spinning up a nested scheduler (§9 Open Question #1).
type DynamicFeedClient struct {
	http    *resty.Client
	baseURL string
	lookup  map[string]int
}

// NewDynamicFeedClient builds a client against baseURL (DefaultMarketBandURL
// in production) using the given (venue, market) -> market_id lookup table.
func NewDynamicFeedClient(baseURL string, lookup map[string]int) *DynamicFeedClient {
	return &DynamicFeedClient{
		http:    resty.New(),
		baseURL: baseURL,
		lookup:  lookup,
	}
}

func marketBandKey(venue, market string) string {
	return strings.ToLower(venue) + "|" + strings.ToUpper(market)
}

// GetSpread looks up the market_id for (venue, market) and, if found,
// fetches the current spread. ok is false (with a nil error) whenever the
// market has no entry in the lookup table, the response is non-200,
// non-success, or carries an empty data array — all of these are reported
// identically as "no data available" per §6.
func (c *DynamicFeedClient) GetSpread(ctx context.Context, venue, market string) (bid, ask decimal.Decimal, ok bool, err error) {
	id, found := c.lookup[marketBandKey(venue, market)]
	if !found {
		return decimal.Decimal{}, decimal.Decimal{}, false, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("market_id", strconv.Itoa(id)).
		SetQueryParam("chart_interval", "1").
		Get(c.baseURL)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false, fmt.Errorf("market band fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Decimal{}, decimal.Decimal{}, false, nil
	}

	var parsed marketBandResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false, fmt.Errorf("market band decode: %w", err)
	}
	if parsed.Status != "success" || len(parsed.Data) == 0 {
		return decimal.Decimal{}, decimal.Decimal{}, false, nil
	}

	point := parsed.Data[0]
	return point.SpreadBid, point.SpreadAsk, true, nil
}
