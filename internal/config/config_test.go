package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadLM_AppliesDefaultsAndValidates(t *testing.T) {
	path := writeTempYAML(t, `
exchange: binance
markets: ["BTC-USDT"]
token: BTC
order_amount: 0.01
spread: 0.5
target_base_pct: 50
`)

	cfg, err := LoadLM(path)
	require.NoError(t, err)

	assert.Equal(t, "binance", cfg.Exchange)
	assert.Equal(t, "BTC", cfg.Token)
	assert.True(t, cfg.InventorySkewEnabled)
	assert.Equal(t, "0.005", cfg.Spread.String())
}

func TestLoadLM_RejectsMissingExchange(t *testing.T) {
	path := writeTempYAML(t, `
markets: ["BTC-USDT"]
token: BTC
order_amount: 0.01
spread: 0.5
`)

	_, err := LoadLM(path)
	assert.Error(t, err)
}

func TestLoadFRA_AppliesDefaultsAndValidates(t *testing.T) {
	path := writeTempYAML(t, `
connectors: ["binance_perpetual", "bybit_perpetual"]
tokens: ["BTC", "ETH"]
`)

	cfg, err := LoadFRA(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Leverage)
	assert.Len(t, cfg.Connectors, 2)
	assert.Equal(t, "100", cfg.PositionSizeQuote.String())
}

func TestLoadFRA_RejectsSingleConnector(t *testing.T) {
	path := writeTempYAML(t, `
connectors: ["binance_perpetual"]
tokens: ["BTC"]
`)

	_, err := LoadFRA(path)
	assert.Error(t, err)
}
