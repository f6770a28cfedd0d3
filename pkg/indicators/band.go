package indicators

import (
	"math"

	"github.com/shopspring/decimal"
)

// Band keeps a fixed-size window of prices and derives mean, population
// standard deviation and a symmetric band around the mean.
// Every accessor recomputes over the full window.
type Band struct {
	period     int
	multiplier decimal.Decimal
	window     []decimal.Decimal
}

// NewBand returns a band over the last period samples with bands at mean ± multiplier*spread.
func NewBand(period int, multiplier decimal.Decimal) *Band {
	if period < 1 {
		period = 1
	}
	return &Band{
		period:     period,
		multiplier: multiplier,
		window:     make([]decimal.Decimal, 0, period),
	}
}

// Observe appends a price, evicting the oldest one once the window is full.
func (b *Band) Observe(price decimal.Decimal) {
	if len(b.window) == b.period {
		copy(b.window, b.window[1:])
		b.window = b.window[:b.period-1]
	}
	b.window = append(b.window, price)
}

// Ready reports whether the window holds exactly period samples.
func (b *Band) Ready() bool {
	return len(b.window) == b.period
}

// Len returns the number of samples currently held.
func (b *Band) Len() int {
	return len(b.window)
}

// Samples returns a copy of the window, oldest first.
func (b *Band) Samples() []decimal.Decimal {
	out := make([]decimal.Decimal, len(b.window))
	copy(out, b.window)
	return out
}

// Mean is the arithmetic mean of the window.
func (b *Band) Mean() (decimal.Decimal, bool) {
	if !b.Ready() {
		return decimal.Zero, false
	}
	return b.mean(), true
}

// Spread is the population standard deviation of the window.
func (b *Band) Spread() (decimal.Decimal, bool) {
	if !b.Ready() {
		return decimal.Zero, false
	}
	return b.spread(b.mean()), true
}

func (b *Band) UpperBand() (decimal.Decimal, bool) {
	if !b.Ready() {
		return decimal.Zero, false
	}
	mean := b.mean()
	return mean.Add(b.multiplier.Mul(b.spread(mean))), true
}

func (b *Band) LowerBand() (decimal.Decimal, bool) {
	if !b.Ready() {
		return decimal.Zero, false
	}
	mean := b.mean()
	return mean.Sub(b.multiplier.Mul(b.spread(mean))), true
}

func (b *Band) mean() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range b.window {
		sum = sum.Add(p)
	}
	return divExact(sum, len(b.window))
}

func (b *Band) spread(mean decimal.Decimal) decimal.Decimal {
	variance := decimal.Zero
	for _, p := range b.window {
		diff := p.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = divExact(variance, len(b.window))
	if variance.IsZero() {
		return decimal.Zero
	}

	v, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(v))
}

// divExact divides by n keeping DivisionPrecision digits beyond the dividend's own scale,
// so prices far below 1e-16 are not rounded away.
func divExact(d decimal.Decimal, n int) decimal.Decimal {
	places := int32(decimal.DivisionPrecision)
	if scale := -d.Exponent(); scale > 0 {
		places += scale
	}
	return d.DivRound(decimal.NewFromInt(int64(n)), places)
}
