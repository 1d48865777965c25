package binanceadapter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQuantizeDown_RoundsToStep(t *testing.T) {
	got := quantizeDown(decimal.NewFromFloat(1.23456), decimal.NewFromFloat(0.001))
	assert.Equal(t, "1.234", got.String())
}

func TestQuantizeDown_ZeroStepLeavesValueUnchanged(t *testing.T) {
	got := quantizeDown(decimal.NewFromFloat(1.23456), decimal.Zero)
	assert.True(t, got.Equal(decimal.NewFromFloat(1.23456)))
}
