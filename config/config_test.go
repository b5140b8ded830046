package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero balance", func(c *Config) { c.Account.Balance = 0 }},
		{"leverage above max", func(c *Config) { c.Account.Leverage = 200 }},
		{"empty symbol", func(c *Config) { c.Market.Symbol = "" }},
		{"negative maker fee", func(c *Config) { c.Market.MakerFeeRate = -0.1 }},
		{"zero maintenance margin", func(c *Config) { c.Market.MaintenanceMarginRate = 0 }},
		{"zero tick size", func(c *Config) { c.Market.TickSize = 0 }},
		{"zero book depth", func(c *Config) { c.Market.BookDepth = 0 }},
		{"zero base qty", func(c *Config) { c.Market.BaseQty = 0 }},
		{"negative spread", func(c *Config) { c.Market.SpreadBps = -1 }},
		{"bad funding interval", func(c *Config) { c.Funding.Interval = "eight hours" }},
		{"target above trigger", func(c *Config) { c.Liquidation.TargetRatio = 1.5 }},
		{"step fraction above one", func(c *Config) { c.Liquidation.StepFraction = 1.5 }},
		{"zero step cap", func(c *Config) { c.Liquidation.StepCap = 0 }},
		{"escalation below one", func(c *Config) { c.Liquidation.Escalation = 0.5 }},
		{"zero start price", func(c *Config) { c.Feed.StartPrice = 0 }},
		{"bad feed interval", func(c *Config) { c.Feed.Interval = "soon" }},
		{"empty db path", func(c *Config) { c.Journal.DBPath = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Account.Balance = 5_000_000
	cfg.Market.Symbol = "KRW-ETH"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5_000_000.0, loaded.Account.Balance)
	assert.Equal(t, "KRW-ETH", loaded.Market.Symbol)
	assert.Equal(t, cfg.Liquidation.StepCap, loaded.Liquidation.StepCap)
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Account.Leverage = 10
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.Account.Leverage)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not valid: [yaml"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	// Parses but fails validation.
	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  balance: -1\n"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestEngineParamsConversion(t *testing.T) {
	cfg := Default()
	p := cfg.EngineParams()

	assert.Equal(t, "KRW-BTC", p.Symbol)
	assert.True(t, decimal.NewFromFloat(0.0002).Equal(p.MakerFeeRate))
	assert.True(t, decimal.NewFromFloat(0.0005).Equal(p.TakerFeeRate))
	assert.True(t, decimal.NewFromInt(1000).Equal(p.TickSize))
	assert.Equal(t, 15, p.BookDepth)
	assert.Equal(t, 125, p.MaxLeverage)
	assert.Equal(t, 8*time.Hour, p.FundingInterval)
	assert.Equal(t, 10, p.LiqStepCap)

	assert.True(t, decimal.NewFromInt(10_000_000).Equal(cfg.OpeningBalance()))
	assert.Equal(t, 2*time.Second, cfg.FeedInterval())
}
