package codec

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

// expect runs p as a token. When p fails at the very first character and
// the input holds a well-formed value of another kind, the failure becomes a
// codec failure naming both kinds.
func expect[T any](want jsonv.Kind, p parsec.Parser[T]) parsec.Parser[T] {
	tok := parsec.Token(p)
	return func(c parsec.Cursor) parsec.Result[T] {
		r := tok(c)
		if r.OK() || r.Err.Kind != parsec.KindSyntax || r.Err.Offset != c.Offset() {
			return r
		}
		return parsec.Failed[T](kindMismatch(c, want))
	}
}

func kindMismatch(c parsec.Cursor, want jsonv.Kind) *parsec.Failure {
	got, ok := jsonv.PeekKind(c)
	if !ok {
		return c.Fail("JSON value")
	}
	if r := jsonv.Default.Value()(c); !r.OK() {
		return r.Err
	}
	return c.Failf(parsec.KindCodec, fmt.Sprintf("expected %s, found %s", want, got))
}

var (
	// String handles JSON strings.
	String = New(expect(jsonv.KindString, jsonv.StringLiteral), func(v string, w *jsonv.Writer) {
		w.StringValue(v)
	})

	// Bool handles JSON booleans.
	Bool = New(expect(jsonv.KindBool, jsonv.BoolLiteral), func(v bool, w *jsonv.Writer) {
		w.Bool(v)
	})

	// Int handles integers that fit in an int.
	Int = integer[int](strconv.IntSize, "int")
	// Int8 handles integers that fit in an int8.
	Int8 = integer[int8](8, "int8")
	// Int16 handles integers that fit in an int16.
	Int16 = integer[int16](16, "int16")
	// Int32 handles integers that fit in an int32.
	Int32 = integer[int32](32, "int32")
	// Int64 handles integers that fit in an int64.
	Int64 = integer[int64](64, "int64")

	// Uint handles non-negative integers that fit in a uint.
	Uint = unsignedInteger[uint](strconv.IntSize, "uint")
	// Uint8 handles non-negative integers that fit in a uint8.
	Uint8 = unsignedInteger[uint8](8, "uint8")
	// Uint16 handles non-negative integers that fit in a uint16.
	Uint16 = unsignedInteger[uint16](16, "uint16")
	// Uint32 handles non-negative integers that fit in a uint32.
	Uint32 = unsignedInteger[uint32](32, "uint32")
	// Uint64 handles non-negative integers that fit in a uint64.
	Uint64 = unsignedInteger[uint64](64, "uint64")

	// Float64 handles numbers as float64. Precision beyond float64 is lost;
	// numbers outside its range fail. NaN and the infinities encode as null.
	Float64 = New(number(func(lit string) (float64, error) {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return 0, fmt.Errorf("number %s overflows float64", lit)
		}
		return f, nil
	}), func(v float64, w *jsonv.Writer) {
		w.Float64(v)
	})

	// Float32 is Float64 for float32.
	Float32 = New(number(func(lit string) (float32, error) {
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return 0, fmt.Errorf("number %s overflows float32", lit)
		}
		return float32(f), nil
	}), func(v float32, w *jsonv.Writer) {
		w.Float32(v)
	})

	// Decimal handles numbers exactly.
	Decimal = New(number(func(lit string) (decimal.Decimal, error) {
		return decimal.NewFromString(lit)
	}), func(v decimal.Decimal, w *jsonv.Writer) {
		w.Number(jsonv.NumberFromDecimal(v))
	})

	// Number handles numbers as jsonv.Number, keeping the source literal.
	Number = New(number(jsonv.ParseNumber), func(v jsonv.Number, w *jsonv.Writer) {
		w.Number(v)
	})

	// Value handles any JSON value.
	Value = New(jsonv.Default.Value(), func(v jsonv.Value, w *jsonv.Writer) {
		w.Value(v)
	})

	// Time handles RFC 3339 timestamps held in JSON strings.
	Time = New(expect(jsonv.KindString, parsec.TryMap(jsonv.StringLiteral, parsec.KindCodec, func(s string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid RFC 3339 time %q", s)
		}
		return t, nil
	})), func(v time.Time, w *jsonv.Writer) {
		w.StringValue(v.Format(time.RFC3339Nano))
	})
)

func number[T any](convert func(lit string) (T, error)) parsec.Parser[T] {
	return expect(jsonv.KindNumber, parsec.TryMap(jsonv.NumberLiteral, parsec.KindCodec, convert))
}

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func integer[T signed](bits int, name string) Codec[T] {
	lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
	decode := number(func(lit string) (T, error) {
		if i, err := strconv.ParseInt(lit, 10, bits); err == nil {
			return T(i), nil
		}
		n, err := jsonv.ParseNumber(lit)
		if err != nil {
			return 0, err
		}
		if !n.IsInteger() {
			return 0, fmt.Errorf("number %s is not an integer", lit)
		}
		i, ok := n.Int64()
		if !ok || i < lo || i > hi {
			return 0, fmt.Errorf("number %s does not fit in %s", lit, name)
		}
		return T(i), nil
	})
	return New(decode, func(v T, w *jsonv.Writer) {
		w.Int64(int64(v))
	})
}

func unsignedInteger[T unsigned](bits int, name string) Codec[T] {
	hi := uint64(1)<<(bits-1)<<1 - 1
	decode := number(func(lit string) (T, error) {
		if u, err := strconv.ParseUint(lit, 10, bits); err == nil {
			return T(u), nil
		}
		n, err := jsonv.ParseNumber(lit)
		if err != nil {
			return 0, err
		}
		if !n.IsInteger() {
			return 0, fmt.Errorf("number %s is not an integer", lit)
		}
		u, ok := n.Uint64()
		if !ok || u > hi {
			return 0, fmt.Errorf("number %s does not fit in %s", lit, name)
		}
		return T(u), nil
	})
	return New(decode, func(v T, w *jsonv.Writer) {
		w.Uint64(uint64(v))
	})
}
