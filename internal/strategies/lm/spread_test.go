package lm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStaticSpreadSource_NoVolatilityUsesConfigured(t *testing.T) {
	s := StaticSpreadSource{Spread: d("0.01"), MaxSpread: d("-1")}
	bid, ask, widened := s.Compute(NaNVolatility)
	assert.True(t, bid.Equal(d("0.01")))
	assert.True(t, ask.Equal(d("0.01")))
	assert.False(t, widened)
}

func TestStaticSpreadSource_VolatilityWidensSpread(t *testing.T) {
	s := StaticSpreadSource{Spread: d("0.01"), MaxSpread: d("-1"), VolatilityToSpreadMultiplier: d("1")}
	bid, ask, widened := s.Compute(definedVolatility(d("0.05")))
	assert.True(t, bid.Equal(d("0.05")))
	assert.True(t, ask.Equal(d("0.05")))
	assert.True(t, widened)
}

func TestStaticSpreadSource_MaxSpreadCaps(t *testing.T) {
	s := StaticSpreadSource{Spread: d("0.01"), MaxSpread: d("0.02"), VolatilityToSpreadMultiplier: d("1")}
	bid, ask, widened := s.Compute(definedVolatility(d("0.5")))
	assert.True(t, bid.Equal(d("0.02")))
	assert.True(t, ask.Equal(d("0.02")))
	assert.True(t, widened)
}

func TestStaticSpreadSource_DisabledCapWhenNonPositive(t *testing.T) {
	s := StaticSpreadSource{Spread: d("0.01"), MaxSpread: d("0"), VolatilityToSpreadMultiplier: d("1")}
	bid, _, _ := s.Compute(definedVolatility(d("0.5")))
	assert.True(t, bid.Equal(d("0.5")))
}
