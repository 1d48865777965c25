package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// leg tracks one open or closed position opened through GatewayCollaborator.
type leg struct {
	cfg        Config
	status     Status
	openedAt   time.Time
	entryPrice decimal.Decimal
	closedPnL  decimal.Decimal
}

// GatewayCollaborator is the default Collaborator: it opens and closes
// positions directly through the connector's PerpetualGateway with market
// orders, and enforces each leg's triple barrier (stop loss, take profit,
// time limit) whenever Report is polled.
type GatewayCollaborator struct {
	gateways map[string]engine.PerpetualGateway
	logger   *logrus.Entry

	mu   sync.Mutex
	legs map[string]*leg
}

// NewGatewayCollaborator builds a collaborator over one PerpetualGateway
// per connector name.
func NewGatewayCollaborator(gateways map[string]engine.PerpetualGateway, logger *logrus.Entry) *GatewayCollaborator {
	return &GatewayCollaborator{
		gateways: gateways,
		logger:   logger,
		legs:     make(map[string]*leg),
	}
}

// Create opens a new leg at market and sets its leverage beforehand.
func (c *GatewayCollaborator) Create(ctx context.Context, action CreateAction) error {
	gw, ok := c.gateways[action.Config.Connector]
	if !ok {
		return fmt.Errorf("executor: unknown connector %q", action.Config.Connector)
	}

	if err := gw.SetLeverage(ctx, action.Config.Market, action.Config.Leverage); err != nil {
		c.logger.WithError(err).WithField("connector", action.Config.Connector).Warn("set leverage failed, continuing with existing leverage")
	}

	mid, ok2, err := gw.MidPrice(ctx, action.Config.Market)
	if err != nil {
		return fmt.Errorf("executor: mid price for %s: %w", action.Config.Market, err)
	}
	if !ok2 {
		return fmt.Errorf("executor: no valid mid price for %s", action.Config.Market)
	}

	if _, err := gw.Place(ctx, action.Config.Market, action.Config.Side, action.Config.Amount, mid, engine.OrderTypeMarket); err != nil {
		return fmt.Errorf("executor: place entry order: %w", err)
	}

	c.mu.Lock()
	c.legs[action.ID] = &leg{
		cfg:        action.Config,
		status:     StatusOpen,
		openedAt:   time.Now(),
		entryPrice: mid,
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"id": action.ID, "connector": action.Config.Connector, "market": action.Config.Market}).Info("leg opened")
	return nil
}

// Stop closes a leg at market and records its realized PnL.
func (c *GatewayCollaborator) Stop(ctx context.Context, action StopAction) error {
	c.mu.Lock()
	l, ok := c.legs[action.ID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("executor: unknown leg %q", action.ID)
	}
	if l.status != StatusOpen {
		return nil
	}

	gw, ok := c.gateways[l.cfg.Connector]
	if !ok {
		return fmt.Errorf("executor: unknown connector %q", l.cfg.Connector)
	}

	return c.closeLeg(ctx, action.ID, l, gw)
}

func (c *GatewayCollaborator) closeLeg(ctx context.Context, id string, l *leg, gw engine.PerpetualGateway) error {
	mid, ok, err := gw.MidPrice(ctx, l.cfg.Market)
	if err != nil {
		return fmt.Errorf("executor: mid price for %s: %w", l.cfg.Market, err)
	}
	if !ok {
		return fmt.Errorf("executor: no valid mid price for %s", l.cfg.Market)
	}

	closingSide := engine.SideSell
	if l.cfg.Side == engine.SideSell {
		closingSide = engine.SideBuy
	}
	if _, err := gw.Place(ctx, l.cfg.Market, closingSide, l.cfg.Amount, mid, engine.OrderTypeMarket); err != nil {
		return fmt.Errorf("executor: place exit order: %w", err)
	}

	c.mu.Lock()
	l.closedPnL = legPnL(l, mid)
	l.status = StatusClosed
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"id": id, "pnl": l.closedPnL.String()}).Info("leg closed")
	return nil
}

// Report returns the current status and PnL of every requested leg,
// auto-closing any open leg whose triple barrier has been crossed.
func (c *GatewayCollaborator) Report(ctx context.Context, ids []string) ([]LegReport, error) {
	out := make([]LegReport, 0, len(ids))
	for _, id := range ids {
		c.mu.Lock()
		l, ok := c.legs[id]
		c.mu.Unlock()
		if !ok {
			continue
		}

		if l.status == StatusOpen {
			if gw, ok := c.gateways[l.cfg.Connector]; ok {
				c.checkBarrier(ctx, id, l, gw)
			}
		}

		c.mu.Lock()
		status := l.status
		c.mu.Unlock()
		out = append(out, LegReport{ID: id, Status: status, NetPnLQuote: l.currentPnL(ctx, c, id)})
	}
	return out, nil
}

// currentPnL returns the closed PnL if the leg is no longer open, else a
// best-effort unrealized PnL fetched fresh from the gateway.
func (l *leg) currentPnL(ctx context.Context, c *GatewayCollaborator, id string) decimal.Decimal {
	if l.status != StatusOpen {
		return l.closedPnL
	}
	gw, ok := c.gateways[l.cfg.Connector]
	if !ok {
		return decimal.Zero
	}
	mid, ok, err := gw.MidPrice(ctx, l.cfg.Market)
	if err != nil || !ok {
		return decimal.Zero
	}
	return legPnL(l, mid)
}

func legPnL(l *leg, exitPrice decimal.Decimal) decimal.Decimal {
	diff := exitPrice.Sub(l.entryPrice)
	if l.cfg.Side == engine.SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(l.cfg.Amount)
}

// checkBarrier runs on every Report poll of an open leg. The FRA core builds
// executor.Config without a Barrier, so for its legs all three limits are
// zero and this never closes anything; only callers that set a Barrier
// (the direct tests) see it fire.
func (c *GatewayCollaborator) checkBarrier(ctx context.Context, id string, l *leg, gw engine.PerpetualGateway) {
	mid, ok, err := gw.MidPrice(ctx, l.cfg.Market)
	if err != nil || !ok {
		return
	}

	notional := l.entryPrice.Mul(l.cfg.Amount)
	if !notional.IsPositive() {
		return
	}
	pnlPct := legPnL(l, mid).Div(notional)

	barrierHit := false
	switch {
	case l.cfg.Barrier.StopLossPct.IsPositive() && pnlPct.LessThanOrEqual(l.cfg.Barrier.StopLossPct.Neg()):
		barrierHit = true
	case l.cfg.Barrier.TakeProfitPct.IsPositive() && pnlPct.GreaterThanOrEqual(l.cfg.Barrier.TakeProfitPct):
		barrierHit = true
	case l.cfg.Barrier.TimeLimit > 0 && time.Since(l.openedAt) >= l.cfg.Barrier.TimeLimit:
		barrierHit = true
	}
	if !barrierHit {
		return
	}

	if err := c.closeLeg(ctx, id, l, gw); err != nil {
		c.logger.WithError(err).WithField("id", id).Warn("triple barrier close failed")
	}
}
