// Package executor defines the collaborator boundary the FRA strategy core
// uses to open and close leveraged positions. The core itself never talks
// to a venue directly for position management: it only ever issues create
// and stop actions and later queries realized PnL (§4.7/§9 "core issues
// create/stop actions only").
package executor

import (
	"context"
	"time"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
)

// TripleBarrier bounds an open position the way the original bounty
// position executor does: a stop loss, a take profit, and a time limit,
// any of which independently closes the position at market.
type TripleBarrier struct {
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
	TimeLimit     time.Duration
}

// Config describes a single leg of a funding-rate arbitrage position: one
// connector, one market, one side, opened at market with leverage.
type Config struct {
	Connector string
	Market    engine.Market
	Side      engine.Side
	Amount    decimal.Decimal
	Leverage  int
	Barrier   TripleBarrier
}

// CreateAction asks the executor collaborator to open a new leg.
type CreateAction struct {
	ID     string
	Config Config
}

// StopAction asks the executor collaborator to close leg ID at market.
type StopAction struct {
	ID string
}

// Status is the lifecycle state of a single leg as reported by the
// executor collaborator.
type Status string

const (
	StatusPending Status = "pending"
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusFailed  Status = "failed"
)

// LegReport is a point-in-time snapshot of one leg, queried by the core to
// evaluate take-profit and stop-loss conditions.
type LegReport struct {
	ID          string
	Status      Status
	NetPnLQuote decimal.Decimal
}

// Collaborator is the interface the FRA strategy core depends on. A
// concrete implementation drives an actual venue connector (market orders,
// leverage, position mode) and a triple-barrier watchdog; the core never
// needs to know how.
type Collaborator interface {
	// Create opens a new leg per action.Config and returns once the create
	// request has been accepted (not necessarily filled).
	Create(ctx context.Context, action CreateAction) error

	// Stop requests leg action.ID be closed at market.
	Stop(ctx context.Context, action StopAction) error

	// Report returns the current status and realized+unrealized PnL for
	// every leg whose ID is in ids.
	Report(ctx context.Context, ids []string) ([]LegReport, error)
}
