package executor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePerpGateway struct {
	mid   decimal.Decimal
	fee   decimal.Decimal
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
	return "o-1", nil
}
func (g *fakePerpGateway) Cancel(ctx context.Context, market engine.Market, clientOrderID string) error {
	return nil
}
func (g *fakePerpGateway) SetPositionMode(ctx context.Context, hedgeMode bool) error { return nil }
func (g *fakePerpGateway) SetLeverage(ctx context.Context, market engine.Market, leverage int) error {
	return nil
}
func (g *fakePerpGateway) GetFundingInfo(ctx context.Context, market engine.Market) (engine.FundingInfo, error) {
	return engine.FundingInfo{}, nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestGatewayCollaborator_CreateThenReportTracksUnrealizedPnL(t *testing.T) {
	gw := &fakePerpGateway{mid: decimal.NewFromInt(100), fee: decimal.NewFromFloat(0.0004)}
	c := NewGatewayCollaborator(map[string]engine.PerpetualGateway{"binance_perpetual": gw}, testLogger())

	err := c.Create(context.Background(), CreateAction{
		ID: "leg-1",
		Config: Config{
			Connector: "binance_perpetual",
			Market:    "BTC-USDT",
			Side:      engine.SideBuy,
			Amount:    decimal.NewFromInt(1),
			Leverage:  10,
		},
	})
	require.NoError(t, err)

	gw.mid = decimal.NewFromInt(110)
	reports, err := c.Report(context.Background(), []string{"leg-1"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StatusOpen, reports[0].Status)
	assert.True(t, reports[0].NetPnLQuote.Equal(decimal.NewFromInt(10)))
}

func TestGatewayCollaborator_StopClosesAndLocksInPnL(t *testing.T) {
	gw := &fakePerpGateway{mid: decimal.NewFromInt(100)}
	c := NewGatewayCollaborator(map[string]engine.PerpetualGateway{"binance_perpetual": gw}, testLogger())

	require.NoError(t, c.Create(context.Background(), CreateAction{
		ID: "leg-1",
		Config: Config{
			Connector: "binance_perpetual",
			Market:    "BTC-USDT",
			Side:      engine.SideSell,
			Amount:    decimal.NewFromInt(1),
			Leverage:  10,
		},
	}))

	gw.mid = decimal.NewFromInt(90)
	require.NoError(t, c.Stop(context.Background(), StopAction{ID: "leg-1"}))

	reports, err := c.Report(context.Background(), []string{"leg-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, reports[0].Status)
	assert.True(t, reports[0].NetPnLQuote.Equal(decimal.NewFromInt(10)))
}

func TestGatewayCollaborator_TakeProfitBarrierAutoCloses(t *testing.T) {
	gw := &fakePerpGateway{mid: decimal.NewFromInt(100)}
	c := NewGatewayCollaborator(map[string]engine.PerpetualGateway{"binance_perpetual": gw}, testLogger())

	require.NoError(t, c.Create(context.Background(), CreateAction{
		ID: "leg-1",
		Config: Config{
			Connector: "binance_perpetual",
			Market:    "BTC-USDT",
			Side:      engine.SideBuy,
			Amount:    decimal.NewFromInt(1),
			Leverage:  10,
			Barrier:   TripleBarrier{TakeProfitPct: decimal.NewFromFloat(0.05)},
		},
	}))

	gw.mid = decimal.NewFromInt(110)
	reports, err := c.Report(context.Background(), []string{"leg-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, reports[0].Status)
}

func TestGatewayCollaborator_TimeLimitBarrierAutoCloses(t *testing.T) {
	gw := &fakePerpGateway{mid: decimal.NewFromInt(100)}
	c := NewGatewayCollaborator(map[string]engine.PerpetualGateway{"binance_perpetual": gw}, testLogger())

	require.NoError(t, c.Create(context.Background(), CreateAction{
		ID: "leg-1",
		Config: Config{
			Connector: "binance_perpetual",
			Market:    "BTC-USDT",
			Side:      engine.SideBuy,
			Amount:    decimal.NewFromInt(1),
			Leverage:  10,
			Barrier:   TripleBarrier{TimeLimit: time.Nanosecond},
		},
	}))
	time.Sleep(time.Millisecond)

	reports, err := c.Report(context.Background(), []string{"leg-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, reports[0].Status)
}
