package fra

import (
	"context"
	"testing"
	"time"

	"github.com/mExOms/tradecore/internal/executor"
	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePerpGateway struct {
	mid          decimal.Decimal
	fundingRate  decimal.Decimal
	intervalSecs int64
	fee          decimal.Decimal
}

func (g *fakePerpGateway) Ready(ctx context.Context) (bool, error) { return true, nil }
func (g *fakePerpGateway) LiveOrders(ctx context.Context) ([]engine.LiveOrder, error) {
	return nil, nil
}
func (g *fakePerpGateway) Price(ctx context.Context, market engine.Market, isBuy bool) (decimal.Decimal, bool, error) {
	return g.mid, true, nil
}
func (g *fakePerpGateway) MidPrice(ctx context.Context, market engine.Market) (decimal.Decimal, bool, error) {
	return g.mid, true, nil
}
func (g *fakePerpGateway) AllBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	return nil, nil
}
func (g *fakePerpGateway) AvailableBalance(ctx context.Context, token string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (g *fakePerpGateway) EstimateFee(ctx context.Context, market engine.Market, side engine.Side, orderType engine.OrderType) (engine.Fee, error) {
	return engine.Fee{Percent: g.fee}, nil
}
func (g *fakePerpGateway) QuantizePrice(market engine.Market, price decimal.Decimal) decimal.Decimal {
	return price
}
func (g *fakePerpGateway) QuantizeAmount(market engine.Market, amount decimal.Decimal) decimal.Decimal {
	return amount
}
func (g *fakePerpGateway) MakerOrderType() engine.OrderType { return engine.OrderTypeLimit }
func (g *fakePerpGateway) Place(ctx context.Context, market engine.Market, side engine.Side, size, price decimal.Decimal, orderType engine.OrderType) (string, error) {
	return "order-1", nil
}
func (g *fakePerpGateway) Cancel(ctx context.Context, market engine.Market, clientOrderID string) error {
	return nil
}
func (g *fakePerpGateway) SetPositionMode(ctx context.Context, hedgeMode bool) error { return nil }
func (g *fakePerpGateway) SetLeverage(ctx context.Context, market engine.Market, leverage int) error {
	return nil
}
func (g *fakePerpGateway) GetFundingInfo(ctx context.Context, market engine.Market) (engine.FundingInfo, error) {
	return engine.FundingInfo{Rate: g.fundingRate, IntervalSecs: g.intervalSecs}, nil
}

type fakeCollaborator struct {
	created map[string]executor.Config
	stopped map[string]bool
	reports map[string]decimal.Decimal
	nextErr error
}

func newFakeCollaborator() *fakeCollaborator {
	return &fakeCollaborator{
		created: make(map[string]executor.Config),
		stopped: make(map[string]bool),
		reports: make(map[string]decimal.Decimal),
	}
}

func (c *fakeCollaborator) Create(ctx context.Context, action executor.CreateAction) error {
	if c.nextErr != nil {
		return c.nextErr
	}
	c.created[action.ID] = action.Config
	return nil
}

func (c *fakeCollaborator) Stop(ctx context.Context, action executor.StopAction) error {
	c.stopped[action.ID] = true
	return nil
}

func (c *fakeCollaborator) Report(ctx context.Context, ids []string) ([]executor.LegReport, error) {
	out := make([]executor.LegReport, 0, len(ids))
	for _, id := range ids {
		out = append(out, executor.LegReport{ID: id, Status: executor.StatusOpen, NetPnLQuote: c.reports[id]})
	}
	return out, nil
}

func fraTestLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(l)
}

func TestFRAStrategy_EntersWhenDiffAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectors = []string{"venueA", "venueB"}
	cfg.Tokens = []string{"WIF"}
	cfg.MinFundingRateProfitability = decimal.NewFromFloat(0.001)

	gateways := map[string]engine.PerpetualGateway{
		"venueA": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.Zero, intervalSecs: 28800, fee: decimal.NewFromFloat(0.0004)},
		"venueB": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.NewFromFloat(0.0001), intervalSecs: 3600, fee: decimal.NewFromFloat(0.0004)},
	}
	collab := newFakeCollaborator()
	strat := NewStrategy(cfg, gateways, collab, fraTestLogger())

	strat.Tick(context.Background(), time.Now())

	arb, ok := strat.Active("WIF")
	require.True(t, ok)
	assert.Equal(t, "venueA", arb.ConnectorLong)
	assert.Equal(t, "venueB", arb.ConnectorShort)
	assert.Equal(t, engine.SideBuy, arb.Side)
	assert.Len(t, collab.created, 2)
}

func TestFRAStrategy_EntryGatingRejectsBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectors = []string{"venueA", "venueB"}
	cfg.Tokens = []string{"WIF"}
	cfg.MinFundingRateProfitability = decimal.NewFromFloat(0.01)

	// normalized diff * 86400 = 0.009 < 0.01 threshold
	gateways := map[string]engine.PerpetualGateway{
		"venueA": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.Zero, intervalSecs: 86400},
		"venueB": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.NewFromFloat(0.009), intervalSecs: 86400},
	}
	collab := newFakeCollaborator()
	strat := NewStrategy(cfg, gateways, collab, fraTestLogger())

	strat.Tick(context.Background(), time.Now())

	_, ok := strat.Active("WIF")
	assert.False(t, ok)
	assert.Empty(t, collab.created)
}

func TestFRAStrategy_TakeProfitClosesExecutors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectors = []string{"venueA", "venueB"}
	cfg.Tokens = []string{"WIF"}
	cfg.PositionSizeQuote = decimal.NewFromInt(100)
	cfg.ProfitabilityToTakeProfit = decimal.NewFromFloat(0.01)

	gateways := map[string]engine.PerpetualGateway{
		"venueA": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.Zero, intervalSecs: 28800},
		"venueB": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.Zero, intervalSecs: 28800},
	}
	collab := newFakeCollaborator()
	strat := NewStrategy(cfg, gateways, collab, fraTestLogger())

	strat.active["WIF"] = &ActiveArbitrage{
		Token: "WIF", ConnectorLong: "venueA", ConnectorShort: "venueB", Side: engine.SideBuy,
		ExecutorIDs: []string{"long", "short"},
	}
	strat.phase["WIF"] = PhaseOpen
	collab.reports["long"] = decimal.NewFromFloat(0.51)
	collab.reports["short"] = decimal.NewFromFloat(0.50)
	// combined pnl = 1.01 > threshold (0.01*100=1) -> take profit

	strat.evaluateExit(context.Background(), time.Now(), "WIF")

	_, stillActive := strat.active["WIF"]
	assert.False(t, stillActive)
	assert.True(t, collab.stopped["long"])
	assert.True(t, collab.stopped["short"])
	history := strat.History("WIF")
	require.Len(t, history, 1)
	assert.Equal(t, "take_profit", history[0].Reason)
}

func TestFRAStrategy_BelowTakeProfitThresholdStaysOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectors = []string{"venueA", "venueB"}
	cfg.Tokens = []string{"WIF"}
	cfg.PositionSizeQuote = decimal.NewFromInt(100)
	cfg.ProfitabilityToTakeProfit = decimal.NewFromFloat(0.01)
	cfg.FundingRateDiffStopLoss = decimal.NewFromFloat(-0.001)

	gateways := map[string]engine.PerpetualGateway{
		"venueA": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.Zero, intervalSecs: 28800},
		"venueB": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.Zero, intervalSecs: 28800},
	}
	collab := newFakeCollaborator()
	strat := NewStrategy(cfg, gateways, collab, fraTestLogger())

	strat.active["WIF"] = &ActiveArbitrage{
		Token: "WIF", ConnectorLong: "venueA", ConnectorShort: "venueB", Side: engine.SideBuy,
		ExecutorIDs: []string{"long", "short"},
	}
	strat.phase["WIF"] = PhaseOpen
	collab.reports["long"] = decimal.NewFromFloat(0.49)
	collab.reports["short"] = decimal.NewFromFloat(0.50)
	// combined pnl = 0.99 < threshold (1.00), funding rates equal so no stop-loss

	strat.evaluateExit(context.Background(), time.Now(), "WIF")

	_, stillActive := strat.active["WIF"]
	assert.True(t, stillActive)
}

func TestFRAStrategy_StopLossClosesOnFundingDivergence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectors = []string{"venueA", "venueB"}
	cfg.Tokens = []string{"WIF"}
	cfg.PositionSizeQuote = decimal.NewFromInt(100)
	cfg.ProfitabilityToTakeProfit = decimal.NewFromFloat(0.5)
	cfg.FundingRateDiffStopLoss = decimal.NewFromFloat(-0.001)

	// long=venueA rate 0, short=venueB rate such that (short-long)*86400 = -0.002
	shortRate := decimal.NewFromFloat(-0.002 / 86400 * 28800)
	gateways := map[string]engine.PerpetualGateway{
		"venueA": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: decimal.Zero, intervalSecs: 28800},
		"venueB": &fakePerpGateway{mid: decimal.NewFromInt(1), fundingRate: shortRate, intervalSecs: 28800},
	}
	collab := newFakeCollaborator()
	strat := NewStrategy(cfg, gateways, collab, fraTestLogger())

	strat.active["WIF"] = &ActiveArbitrage{
		Token: "WIF", ConnectorLong: "venueA", ConnectorShort: "venueB", Side: engine.SideBuy,
		ExecutorIDs: []string{"long", "short"},
	}
	strat.phase["WIF"] = PhaseOpen

	strat.evaluateExit(context.Background(), time.Now(), "WIF")

	_, stillActive := strat.active["WIF"]
	assert.False(t, stillActive)
	history := strat.History("WIF")
	require.Len(t, history, 1)
	assert.Equal(t, "stop_loss", history[0].Reason)
}

func TestFRAStrategy_OnFundingPaymentAccumulates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectors = []string{"venueA", "venueB"}
	cfg.Tokens = []string{"WIF"}
	strat := NewStrategy(cfg, map[string]engine.PerpetualGateway{}, newFakeCollaborator(), fraTestLogger())
	strat.active["WIF"] = &ActiveArbitrage{Token: "WIF"}

	strat.OnFundingPayment("WIF", decimal.NewFromFloat(1.5))
	strat.OnFundingPayment("WIF", decimal.NewFromFloat(2.5))

	arb, _ := strat.Active("WIF")
	require.Len(t, arb.FundingPayments, 2)
	sum := sumPayments(arb.FundingPayments)
	assert.True(t, sum.Equal(decimal.NewFromFloat(4)))
}

func TestFRAStrategy_MissingGatewayIsHandledGracefully(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connectors = []string{"venueA", "venueB"}
	cfg.Tokens = []string{"WIF"}
	strat := NewStrategy(cfg, map[string]engine.PerpetualGateway{
		"venueA": &fakePerpGateway{mid: decimal.NewFromInt(1)},
	}, newFakeCollaborator(), fraTestLogger())

	strat.Tick(context.Background(), time.Now())

	_, ok := strat.Active("WIF")
	assert.False(t, ok)
}
