package engine

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - Decimal-backed monetary amount
// =============================================================================

// Money is a decimal monetary amount. Intermediate engine math keeps full
// decimal precision; rounding to 2 places happens only when a value leaves
// the engine (String, Round2, JSON). This avoids compounding rounding error
// across proration segments.
type Money struct {
	Value decimal.Decimal
}

var ZeroMoney = Money{Value: decimal.Zero}

func NewMoney(v float64) Money {
	return Money{Value: decimal.NewFromFloat(v)}
}

func NewMoneyFromInt(v int64) Money {
	return Money{Value: decimal.NewFromInt(v)}
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Value: d}
}

// ParseMoney parses a decimal string like "4935.48".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

// Arithmetic
func (m Money) Add(o Money) Money             { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money             { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money   { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }

// Comparison
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) GreaterThan(o Money) bool      { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool         { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThanOrEqual(o Money) bool { return m.Value.GreaterThanOrEqual(o.Value) }
func (m Money) Equal(o Money) bool            { return m.Value.Equal(o.Value) }

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// FloorZero clamps negative amounts to zero. Remaining-due figures can
// never be negative, no matter how much was overpaid.
func (m Money) FloorZero() Money {
	if m.IsNegative() {
		return ZeroMoney
	}
	return m
}

// coverageEpsilon absorbs rounding noise from payment rows that were
// recorded by systems doing float arithmetic: 1e-5 monetary units.
var coverageEpsilon = decimal.New(1, -5)

// Covers reports whether m settles the given due amount within the
// coverage tolerance.
func (m Money) Covers(due Money) bool {
	return m.Value.GreaterThanOrEqual(due.Value.Sub(coverageEpsilon))
}

// Round2 rounds to 2 decimal places, half away from zero. This is the
// presentation boundary: everything before it stays full-precision.
func (m Money) Round2() Money {
	return Money{Value: m.Value.Round(2)}
}

func (m Money) String() string {
	return m.Value.Round(2).StringFixed(2)
}

// JSON: money crosses the API boundary as a decimal-accurate string,
// never a floating approximation.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*m = ZeroMoney
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	m.Value = d
	return nil
}
