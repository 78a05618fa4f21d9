package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskcore/internal/risk"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullConfig = `{
  "version": 3,
  "moneyScale": 2,
  "registry": {
    "accounts": [
      {"name": "alpha"},
      {"name": "beta", "limits": {"maxPosition": 50, "maxDailyLoss": "-100.50"}}
    ],
    "instruments": [
      {"name": "BTC-PERP", "scale": {"price": 2, "quantity": 0, "notional": 2, "fee": 2}},
      {"name": "ETH-PERP", "scale": {"price": 4, "quantity": 0, "notional": 4, "fee": 4}}
    ]
  },
  "limits": {
    "maxPosition": 2000,
    "maxOrderSize": 200,
    "maxNotional": "5000000.00",
    "maxOpenOrders": 100,
    "maxDailyLoss": "-2500.00"
  },
  "breaker": {
    "maxMove": "50.00",
    "maxFillsPerWindow": 500,
    "windowMs": 1000,
    "overrides": [{"instrument": "ETH-PERP", "maxMove": "5.5"}]
  },
  "margin": {
    "initialMarginBps": 2000,
    "maintenanceMarginBps": 1000,
    "equity": "10000.00"
  },
  "flow": {
    "account": "alpha",
    "instrument": "BTC-PERP",
    "basePrice": "45000.00",
    "qty": 5,
    "seed": 42,
    "driftTicks": 1,
    "jitterTicks": 10
  },
  "features": {"enableFills": false}
}`

func TestLoadFullJSONConfig(t *testing.T) {
	path := writeConfig(t, "risk.json", fullConfig)
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), loaded.Version)
	assert.Equal(t, 2, loaded.Registry.AccountCount())
	assert.Equal(t, 2, loaded.Registry.InstrumentCount())

	assert.Equal(t, risk.Limits{
		MaxPosition:   2000,
		MaxOrderSize:  200,
		MaxNotional:   500_000_000,
		MaxOpenOrders: 100,
		MaxDailyLoss:  -250_000,
	}, loaded.Limits)

	beta := loaded.LimitsFor(2)
	assert.Equal(t, risk.Limits{
		MaxPosition:   50,
		MaxOrderSize:  200,
		MaxNotional:   500_000_000,
		MaxOpenOrders: 100,
		MaxDailyLoss:  -10_050,
	}, beta, "beta overrides overlay the resolved defaults")
	assert.Equal(t, loaded.Limits, loaded.LimitsFor(1), "alpha falls back to defaults")

	assert.Equal(t, risk.BreakerConfig{
		MaxMove:           5_000,
		MaxFillsPerWindow: 500,
		WindowNs:          int64(time.Second),
	}, loaded.Breakers[1], "base maxMove at BTC price scale")
	assert.Equal(t, risk.BreakerConfig{
		MaxMove:           55_000,
		MaxFillsPerWindow: 500,
		WindowNs:          int64(time.Second),
	}, loaded.Breakers[2], "override maxMove at ETH price scale")

	assert.Equal(t, risk.MarginParams{InitialMarginBps: 2000, MaintenanceMarginBps: 1000}, loaded.Margin)
	assert.EqualValues(t, 1_000_000, loaded.Equity)

	require.True(t, loaded.Flow.Enabled())
	assert.EqualValues(t, 1, loaded.Flow.AccountID)
	assert.EqualValues(t, 1, loaded.Flow.InstrumentID)
	assert.EqualValues(t, 4_500_000, loaded.Flow.BasePrice)
	assert.EqualValues(t, 5, loaded.Flow.Qty)
	assert.Equal(t, uint64(42), loaded.Flow.Seed)

	assert.True(t, loaded.Features.EnableOrderFlow)
	assert.False(t, loaded.Features.EnableFills)
	assert.True(t, loaded.Features.EnableMarginWatch)
}

const yamlConfig = `version: 1
registry:
  accounts:
    - name: main
  instruments:
    - name: SOL-PERP
      scale:
        price: 3
        quantity: 0
        notional: 3
        fee: 3
limits:
  maxNotional: "750000"
breaker:
  maxMove: "2.5"
  maxFillsPerWindow: 10
  windowMs: 500
`

func TestLoadYAMLConfig(t *testing.T) {
	path := writeConfig(t, "risk.yaml", yamlConfig)
	loaded, err := Load(path)
	require.NoError(t, err)

	defaults := risk.DefaultLimits()
	defaults.MaxNotional = 750_000
	assert.Equal(t, defaults, loaded.Limits, "absent limit fields keep the defaults")

	assert.Equal(t, risk.BreakerConfig{
		MaxMove:           2_500,
		MaxFillsPerWindow: 10,
		WindowNs:          int64(500 * time.Millisecond),
	}, loaded.Breakers[1])

	assert.Equal(t, risk.DefaultMarginParams(), loaded.Margin)
	assert.EqualValues(t, 0, loaded.Equity)
	assert.False(t, loaded.Flow.Enabled())
	assert.True(t, loaded.Features.EnableOrderFlow)
}

func TestLoadRegistryOnly(t *testing.T) {
	path := writeConfig(t, "risk.yaml", yamlConfig)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	id, ok := reg.InstrumentIDByName("SOL-PERP")
	require.True(t, ok)
	assert.EqualValues(t, 1, id)
}

func TestLoadRejectsExcessPrecision(t *testing.T) {
	cfg := `{
  "registry": {
    "accounts": [{"name": "a"}],
    "instruments": [{"name": "X", "scale": {"price": 2}}]
  },
  "breaker": {"maxMove": "0.001", "windowMs": 100}
}`
	_, err := Load(writeConfig(t, "risk.json", cfg))
	require.Error(t, err)
	assert.ErrorContains(t, err, "precision")
}

func TestLoadRejectsPositiveDailyLoss(t *testing.T) {
	cfg := `{
  "registry": {
    "accounts": [{"name": "a"}],
    "instruments": [{"name": "X", "scale": {"price": 0}}]
  },
  "limits": {"maxDailyLoss": "10"},
  "breaker": {"maxMove": "1", "windowMs": 100}
}`
	_, err := Load(writeConfig(t, "risk.json", cfg))
	require.Error(t, err)
	assert.ErrorContains(t, err, "maxDailyLoss must be <= 0")
}

func TestLoadRejectsMissingBreakerWindow(t *testing.T) {
	cfg := `{
  "registry": {
    "accounts": [{"name": "a"}],
    "instruments": [{"name": "X", "scale": {"price": 0}}]
  },
  "breaker": {"maxMove": "1"}
}`
	_, err := Load(writeConfig(t, "risk.json", cfg))
	require.Error(t, err)
	assert.ErrorContains(t, err, "breaker.windowMs")
}

func TestLoadRejectsInvertedMarginRates(t *testing.T) {
	cfg := `{
  "registry": {
    "accounts": [{"name": "a"}],
    "instruments": [{"name": "X", "scale": {"price": 0}}]
  },
  "breaker": {"maxMove": "1", "windowMs": 100},
  "margin": {"initialMarginBps": 500, "maintenanceMarginBps": 1000}
}`
	_, err := Load(writeConfig(t, "risk.json", cfg))
	require.Error(t, err)
	assert.ErrorContains(t, err, "maintenanceMarginBps exceeds")
}

func TestLoadRejectsUnknownFlowAccount(t *testing.T) {
	cfg := `{
  "registry": {
    "accounts": [{"name": "a"}],
    "instruments": [{"name": "X", "scale": {"price": 0}}]
  },
  "breaker": {"maxMove": "1", "windowMs": 100},
  "flow": {"account": "ghost", "instrument": "X", "basePrice": "100", "qty": 1}
}`
	_, err := Load(writeConfig(t, "risk.json", cfg))
	require.Error(t, err)
	assert.ErrorContains(t, err, "flow account not found: ghost")
}

func TestLoadRejectsDuplicateAccount(t *testing.T) {
	cfg := `{
  "registry": {
    "accounts": [{"name": "a"}, {"name": "a"}],
    "instruments": [{"name": "X", "scale": {"price": 0}}]
  },
  "breaker": {"maxMove": "1", "windowMs": 100}
}`
	_, err := Load(writeConfig(t, "risk.json", cfg))
	require.Error(t, err)
	assert.ErrorContains(t, err, "already exists")
}
