// Package codec is the runtime that generated serializers are written
// against. A Codec decodes one Go type from JSON text and encodes it back,
// without reflection. Codecs for composite types hold direct references to
// the codecs of their parts; there is no registry.
package codec

import (
	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
	"github.com/mcncl/serdegen/result"
)

// Codec decodes and encodes values of type T.
//
// Decode starts at the first character of a value (leading whitespace has
// already been skipped) and returns the cursor after the value and any
// whitespace that follows it. Encode appends exactly one value to w.
//
// Implementations hold no mutable state and are safe for concurrent use.
type Codec[T any] interface {
	Decode(c parsec.Cursor) parsec.Result[T]
	Encode(v T, w *jsonv.Writer)
}

type funcCodec[T any] struct {
	decode parsec.Parser[T]
	encode func(T, *jsonv.Writer)
}

func (f funcCodec[T]) Decode(c parsec.Cursor) parsec.Result[T] { return f.decode(c) }
func (f funcCodec[T]) Encode(v T, w *jsonv.Writer)              { f.encode(v, w) }

// New builds a codec from a decoding parser and an encoding function.
func New[T any](decode parsec.Parser[T], encode func(T, *jsonv.Writer)) Codec[T] {
	return funcCodec[T]{decode: decode, encode: encode}
}

// Parser adapts c for use with parsec combinators.
func Parser[T any](c Codec[T]) parsec.Parser[T] {
	return c.Decode
}

// Decode decodes data, which must hold exactly one value.
func Decode[T any](c Codec[T], data []byte) result.Result[T] {
	return DecodeString(c, string(data))
}

// DecodeString decodes text, which must hold exactly one value.
func DecodeString[T any](c Codec[T], text string) result.Result[T] {
	return DecodeWith(c, text, parsec.Options{})
}

// DecodeWith decodes text with explicit parser options.
func DecodeWith[T any](c Codec[T], text string, opts parsec.Options) result.Result[T] {
	return parsec.Run(Parser(c), text, opts)
}

// Encode encodes v compactly.
func Encode[T any](c Codec[T], v T) []byte {
	w := jsonv.NewWriter()
	c.Encode(v, w)
	return w.Bytes()
}

// EncodeString is Encode returning a string.
func EncodeString[T any](c Codec[T], v T) string {
	w := jsonv.NewWriter()
	c.Encode(v, w)
	return w.String()
}

// EncodeIndent encodes v with one element per line.
func EncodeIndent[T any](c Codec[T], v T, indent string) []byte {
	w := jsonv.NewIndentWriter(indent)
	c.Encode(v, w)
	return w.Bytes()
}

// MustDecodeDefault decodes a default value literal. Generated code uses it
// for defaults that were checked at generation time, so a failure is a bug
// and panics.
func MustDecodeDefault[T any](c Codec[T], literal string) T {
	v, err := DecodeString(c, literal).Get()
	if err != nil {
		panic("codec: invalid default " + literal + ": " + err.Error())
	}
	return v
}
