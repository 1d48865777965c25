package lm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusReport_RendersNAForUndefinedVolatility(t *testing.T) {
	cfg := baseTestConfig()
	strat := NewStrategy(cfg, newFakeGateway(), nil, testLogger())

	report := strat.StatusReport()

	assert.Contains(t, report, "BTC-USDT")
	assert.Contains(t, report, "n/a")
	assert.Contains(t, report, "no active orders")
}

func TestStatusReport_ShowsLiveOrdersAfterDispatch(t *testing.T) {
	gw := newFakeGateway()
	gw.mids["BTC-USDT"] = decimal.NewFromInt(30000)
	gw.balances["BTC"] = decimal.NewFromInt(1)
	gw.balances["USDT"] = decimal.NewFromInt(30000)

	cfg := baseTestConfig()
	strat := NewStrategy(cfg, gw, nil, testLogger())
	strat.Tick(context.Background(), time.Now())

	report := strat.StatusReport()
	assert.True(t, strings.Contains(report, "buy") || strings.Contains(report, "sell"))
}
