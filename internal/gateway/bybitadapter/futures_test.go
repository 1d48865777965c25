package bybitadapter

import (
	"testing"

	"github.com/mExOms/tradecore/internal/strategies/engine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToSymbol_ConcatenatesBaseAndQuote(t *testing.T) {
	assert.Equal(t, "BTCUSDT", toSymbol(engine.Market("BTC-USDT")))
}

func TestToMarket_SplitsOnKnownQuoteSuffix(t *testing.T) {
	assert.Equal(t, "BTC-USDT", toMarket("BTCUSDT"))
	assert.Equal(t, "ETH-USDC", toMarket("ETHUSDC"))
}

func TestQuantizeDown_RoundsToStep(t *testing.T) {
	got := quantizeDown(decimal.NewFromFloat(1.23456), decimal.NewFromFloat(0.01))
	assert.Equal(t, "1.23", got.String())
}
