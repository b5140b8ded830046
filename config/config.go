// Package config loads the simulator configuration from a YAML or
// JSON file. Numeric tunables live here as floats and convert to
// decimals at the engine boundary.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"perpsim/engine"
)

type Config struct {
	Account     AccountConfig     `json:"account" yaml:"account"`
	Market      MarketConfig      `json:"market" yaml:"market"`
	Funding     FundingConfig     `json:"funding" yaml:"funding"`
	Liquidation LiquidationConfig `json:"liquidation" yaml:"liquidation"`
	Feed        FeedConfig        `json:"feed" yaml:"feed"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
}

// AccountConfig seeds the simulated account.
type AccountConfig struct {
	Balance     float64 `json:"balance" yaml:"balance"`
	Leverage    int     `json:"leverage" yaml:"leverage"`
	MaxLeverage int     `json:"max_leverage" yaml:"max_leverage"`
}

// MarketConfig shapes the symbol, fees and the synthesized book.
type MarketConfig struct {
	Symbol                string  `json:"symbol" yaml:"symbol"`
	MakerFeeRate          float64 `json:"maker_fee_rate" yaml:"maker_fee_rate"`
	TakerFeeRate          float64 `json:"taker_fee_rate" yaml:"taker_fee_rate"`
	MaintenanceMarginRate float64 `json:"maintenance_margin_rate" yaml:"maintenance_margin_rate"`
	SpreadBps             float64 `json:"spread_bps" yaml:"spread_bps"`
	TickSize              float64 `json:"tick_size" yaml:"tick_size"`
	BookDepth             int     `json:"book_depth" yaml:"book_depth"`
	BaseQty               float64 `json:"base_qty" yaml:"base_qty"`
}

type FundingConfig struct {
	Rate     float64 `json:"rate" yaml:"rate"`
	Interval string  `json:"interval" yaml:"interval"` // e.g. "8h"
}

// LiquidationConfig carries the risk-policy tunables. They are plain
// configuration, not derived values.
type LiquidationConfig struct {
	TriggerRatio float64 `json:"trigger_ratio" yaml:"trigger_ratio"`
	TargetRatio  float64 `json:"target_ratio" yaml:"target_ratio"`
	StepFraction float64 `json:"step_fraction" yaml:"step_fraction"`
	StepCap      int     `json:"step_cap" yaml:"step_cap"`
	Escalation   float64 `json:"escalation" yaml:"escalation"`
	FeeRate      float64 `json:"fee_rate" yaml:"fee_rate"`
}

// FeedConfig shapes the random-walk price source used by `run`.
type FeedConfig struct {
	StartPrice float64 `json:"start_price" yaml:"start_price"`
	StepBps    float64 `json:"step_bps" yaml:"step_bps"`
	Interval   string  `json:"interval" yaml:"interval"`
	Seed       int64   `json:"seed" yaml:"seed"`
}

type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LoadFromFile loads configuration, trying YAML first and falling
// back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML for .yaml/.yml paths and
// JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Account.MaxLeverage < 1 {
		return fmt.Errorf("account.max_leverage must be at least 1")
	}
	if c.Account.Leverage < 1 || c.Account.Leverage > c.Account.MaxLeverage {
		return fmt.Errorf("account.leverage must be in [1, %d]", c.Account.MaxLeverage)
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if c.Market.MakerFeeRate < 0 || c.Market.TakerFeeRate < 0 {
		return fmt.Errorf("market fee rates must be non-negative")
	}
	if c.Market.MaintenanceMarginRate <= 0 {
		return fmt.Errorf("market.maintenance_margin_rate must be positive")
	}
	if c.Market.TickSize <= 0 {
		return fmt.Errorf("market.tick_size must be positive")
	}
	if c.Market.BookDepth < 1 {
		return fmt.Errorf("market.book_depth must be at least 1")
	}
	if c.Market.BaseQty <= 0 {
		return fmt.Errorf("market.base_qty must be positive")
	}
	if c.Market.SpreadBps < 0 {
		return fmt.Errorf("market.spread_bps must be non-negative")
	}
	if _, err := time.ParseDuration(c.Funding.Interval); err != nil {
		return fmt.Errorf("funding.interval: %w", err)
	}
	if c.Liquidation.TriggerRatio <= 0 {
		return fmt.Errorf("liquidation.trigger_ratio must be positive")
	}
	if c.Liquidation.TargetRatio <= 0 || c.Liquidation.TargetRatio > c.Liquidation.TriggerRatio {
		return fmt.Errorf("liquidation.target_ratio must be in (0, trigger_ratio]")
	}
	if c.Liquidation.StepFraction <= 0 || c.Liquidation.StepFraction > 1 {
		return fmt.Errorf("liquidation.step_fraction must be in (0, 1]")
	}
	if c.Liquidation.StepCap < 1 {
		return fmt.Errorf("liquidation.step_cap must be at least 1")
	}
	if c.Liquidation.Escalation < 1 {
		return fmt.Errorf("liquidation.escalation must be at least 1")
	}
	if c.Liquidation.FeeRate < 0 {
		return fmt.Errorf("liquidation.fee_rate must be non-negative")
	}
	if c.Feed.StartPrice <= 0 {
		return fmt.Errorf("feed.start_price must be positive")
	}
	if _, err := time.ParseDuration(c.Feed.Interval); err != nil {
		return fmt.Errorf("feed.interval: %w", err)
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	return nil
}

// EngineParams converts file configuration into engine tunables.
func (c *Config) EngineParams() engine.Params {
	fundingInterval, _ := time.ParseDuration(c.Funding.Interval)
	return engine.Params{
		Symbol:                c.Market.Symbol,
		MakerFeeRate:          decimal.NewFromFloat(c.Market.MakerFeeRate),
		TakerFeeRate:          decimal.NewFromFloat(c.Market.TakerFeeRate),
		MaintenanceMarginRate: decimal.NewFromFloat(c.Market.MaintenanceMarginRate),
		SpreadBps:             decimal.NewFromFloat(c.Market.SpreadBps),
		TickSize:              decimal.NewFromFloat(c.Market.TickSize),
		BookDepth:             c.Market.BookDepth,
		BaseQty:               decimal.NewFromFloat(c.Market.BaseQty),
		MaxLeverage:           c.Account.MaxLeverage,
		FundingRate:           decimal.NewFromFloat(c.Funding.Rate),
		FundingInterval:       fundingInterval,
		LiqTrigger:            decimal.NewFromFloat(c.Liquidation.TriggerRatio),
		LiqTarget:             decimal.NewFromFloat(c.Liquidation.TargetRatio),
		LiqStepFraction:       decimal.NewFromFloat(c.Liquidation.StepFraction),
		LiqStepCap:            c.Liquidation.StepCap,
		LiqEscalation:         decimal.NewFromFloat(c.Liquidation.Escalation),
		LiqFeeRate:            decimal.NewFromFloat(c.Liquidation.FeeRate),
		TapeSize:              50,
	}
}

// OpeningBalance is the configured balance as a decimal.
func (c *Config) OpeningBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.Account.Balance)
}

// FeedInterval is the parsed feed tick interval.
func (c *Config) FeedInterval() time.Duration {
	d, _ := time.ParseDuration(c.Feed.Interval)
	return d
}

// Default mirrors the original paper-trading app: 10,000,000 KRW,
// 20x leverage on KRW-BTC, 0.05% taker fee.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Balance:     10000000,
			Leverage:    20,
			MaxLeverage: 125,
		},
		Market: MarketConfig{
			Symbol:                "KRW-BTC",
			MakerFeeRate:          0.0002,
			TakerFeeRate:          0.0005,
			MaintenanceMarginRate: 0.005,
			SpreadBps:             2,
			TickSize:              1000,
			BookDepth:             15,
			BaseQty:               0.5,
		},
		Funding: FundingConfig{
			Rate:     0.0001,
			Interval: "8h",
		},
		Liquidation: LiquidationConfig{
			TriggerRatio: 1.0,
			TargetRatio:  0.8,
			StepFraction: 0.2,
			StepCap:      10,
			Escalation:   1.2,
			FeeRate:      0.005,
		},
		Feed: FeedConfig{
			StartPrice: 100000000,
			StepBps:    5,
			Interval:   "2s",
			Seed:       1,
		},
		Journal: JournalConfig{
			DBPath: "./perpsim.db",
		},
	}
}
