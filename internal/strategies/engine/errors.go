package engine

import "errors"

// Error kinds a tick can surface. None of these propagate out of a tick
// handler: every call site logs a warning and continues, per the
// single-threaded cooperative scheduling model.
var (
	// ErrNotReady means the gateway is not ready, or a market's order book
	// has no valid mid price. The tick is a no-op for the affected market.
	ErrNotReady = errors.New("engine: gateway or market not ready")

	// ErrDataFeedUnavailable means the dynamic spread feed returned no
	// mapping for a market. The caller falls back to the static spread.
	ErrDataFeedUnavailable = errors.New("engine: spread data feed unavailable")

	// ErrBudgetExhausted means a proposal leg was clamped to zero size by
	// the budget constraint. The leg is skipped silently.
	ErrBudgetExhausted = errors.New("engine: budget exhausted for leg")

	// ErrGatewayRejection means a place or cancel call failed at the
	// gateway. The core retries on the next tick.
	ErrGatewayRejection = errors.New("engine: gateway rejected request")

	// ErrInvariantViolation covers conditions such as a market having no
	// valid mid price after readiness was already established.
	ErrInvariantViolation = errors.New("engine: invariant violation")
)
