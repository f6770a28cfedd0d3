package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const percentage = 100

// DefaultUnderflowTolerance is the fraction of the recorded asset total the wallet must still hold
// before the ladder treats its records as stale.
var DefaultUnderflowTolerance = decimal.RequireFromString("0.9")

// LadderConfig holds the ladder policy parameters.
type LadderConfig struct {
	// InitialRungNative is the size of rung 0 in lamports.
	InitialRungNative uint64
	// MaxRungs caps the number of buys per series, 0 means unbounded.
	MaxRungs                  int
	VolumeMultiplier          decimal.Decimal
	BaseDropPct               decimal.Decimal
	DropMultiplier            decimal.Decimal
	SellProfitPct             decimal.Decimal
	IndicatorPeriod           int
	IndicatorSpreadMultiplier decimal.Decimal
	NoBuyZoneEnabled          bool
	SlippageCapBps            int
	UnderflowTolerance        decimal.Decimal
}

// Validate checks that the parameters describe a usable ladder.
func (c LadderConfig) Validate() error {
	if c.InitialRungNative == 0 {
		return fmt.Errorf("initial rung must be positive")
	}
	if c.MaxRungs < 0 {
		return fmt.Errorf("max rungs must be >= 0, got %d", c.MaxRungs)
	}
	if c.VolumeMultiplier.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("volume multiplier must be positive, got %s", c.VolumeMultiplier)
	}
	if c.BaseDropPct.LessThanOrEqual(decimal.Zero) || c.BaseDropPct.GreaterThanOrEqual(decimal.NewFromInt(percentage)) {
		return fmt.Errorf("base drop pct must be in (0, 100), got %s", c.BaseDropPct)
	}
	if c.DropMultiplier.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("drop multiplier must be positive, got %s", c.DropMultiplier)
	}
	if c.SellProfitPct.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("sell profit pct must be positive, got %s", c.SellProfitPct)
	}
	if c.IndicatorPeriod < 1 {
		return fmt.Errorf("indicator period must be >= 1, got %d", c.IndicatorPeriod)
	}
	if c.IndicatorSpreadMultiplier.IsNegative() {
		return fmt.Errorf("indicator spread multiplier must not be negative, got %s", c.IndicatorSpreadMultiplier)
	}
	if c.SlippageCapBps <= 0 || c.SlippageCapBps > 10000 {
		return fmt.Errorf("slippage cap must be in (0, 10000] bps, got %d", c.SlippageCapBps)
	}
	if c.UnderflowTolerance.LessThanOrEqual(decimal.Zero) || c.UnderflowTolerance.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("underflow tolerance must be in (0, 1], got %s", c.UnderflowTolerance)
	}
	return nil
}

// Bounded reports whether the ladder has a rung cap.
func (c LadderConfig) Bounded() bool {
	return c.MaxRungs > 0
}

// NextRungNative returns the lamports to spend on rung k: floor(initial * volumeMultiplier^k).
func (c LadderConfig) NextRungNative(k int) uint64 {
	size := RawAmountFromUint64(c.InitialRungNative).Decimal().
		Mul(c.VolumeMultiplier.Pow(decimal.NewFromInt(int64(k)))).
		Floor().
		BigInt()
	if size.Sign() < 0 {
		return 0
	}
	if !size.IsUint64() {
		return math.MaxUint64
	}
	return size.Uint64()
}

// NextDropPct returns the required percent drop below the last buy for rung k.
func (c LadderConfig) NextDropPct(k int) decimal.Decimal {
	return c.BaseDropPct.Mul(c.DropMultiplier.Pow(decimal.NewFromInt(int64(k))))
}

// TotalCommitted returns the lamports spent if the first n rungs all fill.
func (c LadderConfig) TotalCommitted(n int) uint64 {
	var total uint64
	for k := 0; k < n; k++ {
		total += c.NextRungNative(k)
	}
	return total
}
