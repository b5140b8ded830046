package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarginMode int

const (
	Cross MarginMode = iota + 1
	Isolated
)

func (m MarginMode) String() string {
	switch m {
	case Cross:
		return "CROSS"
	case Isolated:
		return "ISOLATED"
	}
	return "UNKNOWN"
}

// Params are the engine tunables. The liquidation thresholds, step
// fraction and step cap are configuration, not derived values.
type Params struct {
	Symbol string

	MakerFeeRate decimal.Decimal
	TakerFeeRate decimal.Decimal

	MaintenanceMarginRate decimal.Decimal

	// Book synthesis.
	SpreadBps decimal.Decimal
	TickSize  decimal.Decimal
	BookDepth int
	BaseQty   decimal.Decimal

	MaxLeverage int

	FundingRate     decimal.Decimal
	FundingInterval time.Duration

	// Liquidation policy. Partial deleveraging starts at Trigger and
	// steps StepFraction of remaining quantity until the ratio drops
	// below Target or StepCap is reached. Full liquidation fires when
	// the ratio is still at or above Escalation*Trigger, or equity is
	// non-positive.
	LiqTrigger      decimal.Decimal
	LiqTarget       decimal.Decimal
	LiqStepFraction decimal.Decimal
	LiqStepCap      int
	LiqEscalation   decimal.Decimal
	LiqFeeRate      decimal.Decimal

	TapeSize int
}

// DefaultParams mirrors the original KRW-BTC paper-trading setup:
// 0.05% taker fee, 15 book levels at 1,000 KRW spacing, 20x leverage
// cap raised to the exchange-typical 125.
func DefaultParams() Params {
	return Params{
		Symbol:                "KRW-BTC",
		MakerFeeRate:          decimal.NewFromFloat(0.0002),
		TakerFeeRate:          decimal.NewFromFloat(0.0005),
		MaintenanceMarginRate: decimal.NewFromFloat(0.005),
		SpreadBps:             decimal.NewFromInt(2),
		TickSize:              decimal.NewFromInt(1000),
		BookDepth:             15,
		BaseQty:               decimal.NewFromFloat(0.5),
		MaxLeverage:           125,
		FundingRate:           decimal.NewFromFloat(0.0001),
		FundingInterval:       8 * time.Hour,
		LiqTrigger:            decimal.NewFromInt(1),
		LiqTarget:             decimal.NewFromFloat(0.8),
		LiqStepFraction:       decimal.NewFromFloat(0.2),
		LiqStepCap:            10,
		LiqEscalation:         decimal.NewFromFloat(1.2),
		LiqFeeRate:            decimal.NewFromFloat(0.005),
		TapeSize:              50,
	}
}
