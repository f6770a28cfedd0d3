package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// NativeDecimals is the number of decimal places of the native asset (lamports per SOL = 1e9).
	NativeDecimals = 9
	// NativeMint is the wrapped native mint used by swap routers.
	NativeMint = "So11111111111111111111111111111111111111112"

	bigIntTag = "$bigint"
)

// RawAmount is a non-negative integer amount expressed in an asset's smallest unit.
// It serializes to JSON as {"$bigint":"<digits>"} so it can never be confused with a plain number.
type RawAmount struct {
	v *big.Int
}

// NewRawAmount copies v into a RawAmount. Nil is treated as zero.
func NewRawAmount(v *big.Int) RawAmount {
	if v == nil {
		return RawAmount{}
	}
	return RawAmount{v: new(big.Int).Set(v)}
}

// RawAmountFromUint64 builds a RawAmount from a machine integer.
func RawAmountFromUint64(v uint64) RawAmount {
	return RawAmount{v: new(big.Int).SetUint64(v)}
}

// ParseRawAmount parses a base-10 non-negative integer string.
func ParseRawAmount(s string) (RawAmount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return RawAmount{}, errors.Errorf("invalid integer amount %q", s)
	}
	if v.Sign() < 0 {
		return RawAmount{}, errors.Errorf("amount must not be negative, got %s", s)
	}
	return RawAmount{v: v}, nil
}

// Int returns a copy of the underlying integer.
func (a RawAmount) Int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

func (a RawAmount) Add(b RawAmount) RawAmount {
	return RawAmount{v: new(big.Int).Add(a.Int(), b.Int())}
}

// Sub returns a-b floored at zero.
func (a RawAmount) Sub(b RawAmount) RawAmount {
	r := new(big.Int).Sub(a.Int(), b.Int())
	if r.Sign() < 0 {
		r.SetInt64(0)
	}
	return RawAmount{v: r}
}

func (a RawAmount) Cmp(b RawAmount) int {
	return a.Int().Cmp(b.Int())
}

func (a RawAmount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// Uint64 returns the amount as uint64, saturating at math.MaxUint64.
func (a RawAmount) Uint64() uint64 {
	if a.v == nil {
		return 0
	}
	if !a.v.IsUint64() {
		return math.MaxUint64
	}
	return a.v.Uint64()
}

func (a RawAmount) String() string {
	return a.Int().String()
}

// Decimal returns the amount as an integral decimal.
func (a RawAmount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.Int(), 0)
}

// Units converts the raw amount to whole units given the asset's decimals.
func (a RawAmount) Units(decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(a.Int(), -int32(decimals))
}

// MarshalJSON implements json.Marshaler.
func (a RawAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{bigIntTag: a.String()})
}

// UnmarshalJSON implements json.Unmarshaler. Only the tagged object form is accepted.
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = RawAmount{}
		return nil
	}

	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return errors.Wrap(err, "raw amount must be a tagged object")
	}

	digits, ok := tagged[bigIntTag]
	if !ok || len(tagged) != 1 {
		return errors.Errorf("raw amount must be {%q: \"<digits>\"}", bigIntTag)
	}

	parsed, err := ParseRawAmount(digits)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// LamportsToNative converts lamports to whole native units.
func LamportsToNative(lamports uint64) decimal.Decimal {
	return RawAmountFromUint64(lamports).Units(NativeDecimals)
}

// NativeToLamports converts whole native units to lamports, flooring any remainder.
func NativeToLamports(native decimal.Decimal) uint64 {
	if native.Sign() <= 0 {
		return 0
	}
	v := native.Shift(NativeDecimals).Floor().BigInt()
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
