package jsonv

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mcncl/serdegen/parsec"
)

var (
	minInt64  = decimal.NewFromInt(math.MinInt64)
	maxInt64  = decimal.NewFromInt(math.MaxInt64)
	maxUint64 = decimal.RequireFromString(strconv.FormatUint(math.MaxUint64, 10))
)

const (
	// maxIntegerDigits is the number of digits in math.MaxUint64.
	maxIntegerDigits = 20
	// maxPlainExponent bounds the exponents written without exponent
	// notation.
	maxPlainExponent = 64
)

// Number is a JSON number. It keeps the exact decimal value and, when it
// came from text, the literal it was parsed from.
type Number struct {
	d   decimal.Decimal
	lit string
}

func (Number) Kind() Kind { return KindNumber }
func (Number) value()     {}

// ParseNumber parses a JSON number literal. The whole of s must match the
// JSON number grammar.
func ParseNumber(s string) (Number, error) {
	lit, err := parsec.Run(NumberLiteral, s, parsec.Options{}).Get()
	if err != nil {
		return Number{}, err
	}
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return Number{}, err
	}
	return Number{d: d, lit: lit}, nil
}

// NumberFromInt returns the number i.
func NumberFromInt(i int64) Number {
	return Number{d: decimal.NewFromInt(i), lit: strconv.FormatInt(i, 10)}
}

// NumberFromUint returns the number u.
func NumberFromUint(u uint64) Number {
	lit := strconv.FormatUint(u, 10)
	return Number{d: decimal.RequireFromString(lit), lit: lit}
}

// NumberFromFloat returns the number f. It reports false for NaN and the
// infinities, which JSON cannot represent.
func NumberFromFloat(f float64) (Number, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}, false
	}
	return Number{d: decimal.NewFromFloat(f), lit: strconv.FormatFloat(f, 'g', -1, 64)}, true
}

// NumberFromDecimal returns the number d.
func NumberFromDecimal(d decimal.Decimal) Number {
	return Number{d: d}
}

// Decimal returns the exact value.
func (n Number) Decimal() decimal.Decimal { return n.d }

// Literal returns the source literal, or "" for numbers built from a decimal.
func (n Number) Literal() string { return n.lit }

// String returns the number as JSON text.
func (n Number) String() string {
	if n.lit != "" {
		return n.lit
	}
	return formatDecimal(n.d)
}

// formatDecimal writes d in plain notation unless that would expand a large
// exponent into zeros.
func formatDecimal(d decimal.Decimal) string {
	exp := d.Exponent()
	if d.IsZero() {
		return "0"
	}
	if exp >= -maxPlainExponent && exp <= maxPlainExponent {
		return d.String()
	}
	return d.Coefficient().String() + "e" + strconv.Itoa(int(exp))
}

// magnitude returns the number of digits before the decimal point of a
// non-zero d, or a negative count of leading fractional zeros. It never
// expands the exponent.
func magnitude(d decimal.Decimal) int64 {
	c := d.Coefficient()
	return int64(d.Exponent()) + int64(len(c.Abs(c).Text(10)))
}

// IsInteger reports whether n has no fractional part.
func (n Number) IsInteger() bool {
	if n.d.IsZero() || n.d.Exponent() >= 0 {
		return true
	}
	if magnitude(n.d) < 1 {
		return false
	}
	return n.d.IsInteger()
}

// smallInteger reports whether n is an integer with at most
// maxIntegerDigits digits, so range checks stay cheap.
func (n Number) smallInteger() bool {
	return n.IsInteger() && magnitude(n.d) <= maxIntegerDigits
}

// Int64 returns n as an int64 when it is an integer in range.
func (n Number) Int64() (int64, bool) {
	if i, err := strconv.ParseInt(n.lit, 10, 64); err == nil {
		return i, true
	}
	if n.d.IsZero() {
		return 0, true
	}
	if !n.smallInteger() || n.d.LessThan(minInt64) || n.d.GreaterThan(maxInt64) {
		return 0, false
	}
	return n.d.IntPart(), true
}

// Uint64 returns n as a uint64 when it is a non-negative integer in range.
func (n Number) Uint64() (uint64, bool) {
	if u, err := strconv.ParseUint(n.lit, 10, 64); err == nil {
		return u, true
	}
	if n.d.IsZero() {
		return 0, true
	}
	if !n.smallInteger() || n.d.IsNegative() || n.d.GreaterThan(maxUint64) {
		return 0, false
	}
	u, err := strconv.ParseUint(n.d.Truncate(0).String(), 10, 64)
	return u, err == nil
}

// Float64 returns the nearest float64. It reports false when n is outside
// the float64 range.
func (n Number) Float64() (float64, bool) {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Equal reports whether n and m are numerically equal.
func (n Number) Equal(m Number) bool {
	if n.d.IsZero() || m.d.IsZero() {
		return n.d.IsZero() && m.d.IsZero()
	}
	// Values of different sign or magnitude differ; comparing them directly
	// would rescale to the smaller exponent.
	if n.d.Sign() != m.d.Sign() || magnitude(n.d) != magnitude(m.d) {
		return false
	}
	return n.d.Equal(m.d)
}
