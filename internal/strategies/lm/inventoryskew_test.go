package lm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestInventorySkew_AtTargetBothRatiosAreOne(t *testing.T) {
	// base_value = sell_budget*mid = 1*100 = 100, quote_value = buy_budget = 100
	// total = 200, r = 0.5 = target -> d = 0
	ratios := CalculateInventorySkew(d("1"), d("100"), d("100"), d("0.5"), d("10"))
	assert.True(t, ratios.BidRatio.Equal(decimal.NewFromInt(1)))
	assert.True(t, ratios.AskRatio.Equal(decimal.NewFromInt(1)))
}

func TestInventorySkew_BoundsAlwaysWithinZeroToTwo(t *testing.T) {
	cases := []struct {
		sell, buy, mid, target, rangeSize string
	}{
		{"100", "1", "100", "0.5", "1"},
		{"0", "1000", "100", "0.9", "1"},
		{"1000", "0", "100", "0.1", "1"},
		{"5", "5", "10", "0.5", "1000"},
	}
	for _, c := range cases {
		ratios := CalculateInventorySkew(d(c.sell), d(c.buy), d(c.mid), d(c.target), d(c.rangeSize))
		assert.True(t, ratios.BidRatio.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, ratios.BidRatio.LessThanOrEqual(decimal.NewFromInt(2)))
		assert.True(t, ratios.AskRatio.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, ratios.AskRatio.LessThanOrEqual(decimal.NewFromInt(2)))
	}
}

func TestInventorySkew_TooMuchBaseSkewsDownBidsUpAsks(t *testing.T) {
	// base_value = 100*100=10000, quote_value=0, total=10000, r=1, d = 1-0.5=0.5 > 0
	ratios := CalculateInventorySkew(d("100"), d("0"), d("100"), d("0.5"), d("1"))
	assert.True(t, ratios.BidRatio.LessThan(decimal.NewFromInt(1)))
	assert.True(t, ratios.AskRatio.GreaterThan(decimal.NewFromInt(1)))
}

func TestInventorySkew_SaturatesOutsideRange(t *testing.T) {
	// Huge imbalance with a tiny range saturates to 0/2.
	ratios := CalculateInventorySkew(d("1000"), d("0"), d("100"), d("0.5"), d("0.001"))
	assert.True(t, ratios.BidRatio.Equal(decimal.Zero))
	assert.True(t, ratios.AskRatio.Equal(decimal.NewFromInt(2)))
}
