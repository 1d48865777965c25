package lm

import (
	"github.com/shopspring/decimal"
)

// Volatility is a decimal value that may be undefined (the NaN sentinel of
// §3's Volatility map, when fewer than one full window of history exists
// yet, or a window's minimum price was zero).
type Volatility struct {
	Value   decimal.Decimal
	Defined bool
}

// NaNVolatility is the undefined sentinel.
var NaNVolatility = Volatility{}

// definedVolatility constructs a Volatility carrying a real value.
func definedVolatility(v decimal.Decimal) Volatility {
	return Volatility{Value: v, Defined: true}
}

// VolatilityEstimator tracks a rolling per-market mid-price buffer and
// computes the average range ratio described in §4.2. One estimator is
// created per market; history is bounded to
// volatility_interval * avg_volatility_period samples.
type VolatilityEstimator struct {
	interval     int
	periods      int
	maxLen       int
	history      []decimal.Decimal
}

// NewVolatilityEstimator builds an estimator for the given window length
// (in samples) and number of windows retained.
func NewVolatilityEstimator(interval, periods int) *VolatilityEstimator {
	return &VolatilityEstimator{
		interval: interval,
		periods:  periods,
		maxLen:   interval * periods,
	}
}

// AddSample appends a mid-price observation, dropping the oldest sample if
// the buffer has grown past its maximum retained length.
func (e *VolatilityEstimator) AddSample(mid decimal.Decimal) {
	e.history = append(e.history, mid)
	if over := len(e.history) - e.maxLen; over > 0 {
		e.history = e.history[over:]
	}
}

// Compute returns the average range ratio over as many full windows of
// length interval as are available, walking backward from the newest
// sample, up to periods windows. Returns NaNVolatility if no full window
// exists yet, or if any window's minimum is zero.
func (e *VolatilityEstimator) Compute() Volatility {
	n := len(e.history)
	var ratios []decimal.Decimal

	for w := 0; w < e.periods; w++ {
		end := n - w*e.interval
		start := end - e.interval
		if start < 0 {
			// Last window is shorter than one full interval: stop, do not
			// compute a partial-window ratio.
			break
		}
		window := e.history[start:end]
		mn, mx := window[0], window[0]
		for _, v := range window[1:] {
			if v.LessThan(mn) {
				mn = v
			}
			if v.GreaterThan(mx) {
				mx = v
			}
		}
		if mn.IsZero() {
			return NaNVolatility
		}
		ratios = append(ratios, mx.Sub(mn).Div(mn))
	}

	if len(ratios) == 0 {
		return NaNVolatility
	}

	sum := decimal.Zero
	for _, r := range ratios {
		sum = sum.Add(r)
	}
	return definedVolatility(sum.Div(decimal.NewFromInt(int64(len(ratios)))))
}

// History returns the retained mid-price buffer, oldest first. Exposed for
// status reporting and tests; callers must not mutate the returned slice.
func (e *VolatilityEstimator) History() []decimal.Decimal {
	return e.history
}
