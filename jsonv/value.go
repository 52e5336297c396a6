// Package jsonv is the JSON value model: a closed set of value types, a
// grammar built from parsec combinators that parses text into values, and a
// writer that serializes them back.
package jsonv

import (
	"strconv"

	"github.com/mcncl/serdegen/parsec"
)

// Kind enumerates the JSON value kinds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON value. The set of implementations is closed: Null, Bool,
// Number, String, Array and *Object. A nil Value is treated as Null.
type Value interface {
	Kind() Kind
	value()
}

// Null is the JSON null literal.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// String is a JSON string holding decoded text.
type String string

// Array is a JSON array.
type Array []Value

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }

func (Null) value()   {}
func (Bool) value()   {}
func (String) value() {}
func (Array) value()  {}

// KindOf returns the kind of v, treating nil as null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// PeekKind reports which kind of value starts at c, judged by its first
// character only. It does not check that the value is well formed.
func PeekKind(c parsec.Cursor) (Kind, bool) {
	b, ok := c.PeekByte()
	if !ok {
		return 0, false
	}
	switch {
	case b == 'n':
		return KindNull, true
	case b == 't' || b == 'f':
		return KindBool, true
	case b == '"':
		return KindString, true
	case b == '[':
		return KindArray, true
	case b == '{':
		return KindObject, true
	case b == '-' || (b >= '0' && b <= '9'):
		return KindNumber, true
	default:
		return 0, false
	}
}
