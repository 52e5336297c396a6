package codec

import (
	"strconv"

	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

var (
	openBrace    = parsec.Token(parsec.Char('{'))
	closeBrace   = parsec.Token(parsec.Char('}'))
	openBracket  = parsec.Token(parsec.Char('['))
	closeBracket = parsec.Token(parsec.Char(']'))
	colon        = parsec.Token(parsec.Char(':'))
	objectKey    = parsec.Label(parsec.Token(jsonv.StringLiteral), "object key")
	nullToken    = parsec.Token(jsonv.NullLiteral)

	afterMember = parsec.Label(parsec.Choice(
		parsec.Map(parsec.Token(parsec.Char(',')), func(rune) bool { return true }),
		parsec.Map(closeBrace, func(rune) bool { return false }),
	), "',' or '}'")

	afterElement = parsec.Label(parsec.Choice(
		parsec.Map(parsec.Token(parsec.Char(',')), func(rune) bool { return true }),
		parsec.Map(closeBracket, func(rune) bool { return false }),
	), "',' or ']'")
)

// FieldDecoder decodes the value of the object member named key. at is
// positioned at the first character of the value; the returned cursor is
// positioned after it.
type FieldDecoder func(key string, at parsec.Cursor) (parsec.Cursor, *parsec.Failure)

// DecodeObject walks the members of the object at c, calling field once per
// member in document order. A key that appears twice is passed to field
// twice. The result holds the cursor after the closing brace.
func DecodeObject(c parsec.Cursor, field FieldDecoder) parsec.Result[struct{}] {
	return parsec.Nested(func(c parsec.Cursor) parsec.Result[struct{}] {
		return decodeObject(c, field)
	})(c)
}

func decodeObject(c parsec.Cursor, field FieldDecoder) parsec.Result[struct{}] {
	open := openBrace(c)
	if !open.OK() {
		return parsec.Failed[struct{}](kindMismatch(c, jsonv.KindObject))
	}
	cur := open.Next
	if end := closeBrace(cur); end.OK() {
		return parsec.Success(struct{}{}, end.Next)
	}
	for {
		key := objectKey(cur)
		if !key.OK() {
			return parsec.Coerce[struct{}](key)
		}
		sep := colon(key.Next)
		if !sep.OK() {
			return parsec.Coerce[struct{}](sep)
		}
		next, f := field(key.Value, sep.Next)
		if f != nil {
			return parsec.Failed[struct{}](f)
		}
		more := afterMember(next)
		if !more.OK() {
			return parsec.Coerce[struct{}](more)
		}
		cur = more.Next
		if !more.Value {
			return parsec.Success(struct{}{}, cur)
		}
	}
}

// ElementDecoder decodes array element i starting at at.
type ElementDecoder func(i int, at parsec.Cursor) (parsec.Cursor, *parsec.Failure)

// DecodeArray walks the elements of the array at c, calling elem once per
// element in order.
func DecodeArray(c parsec.Cursor, elem ElementDecoder) parsec.Result[struct{}] {
	return parsec.Nested(func(c parsec.Cursor) parsec.Result[struct{}] {
		return decodeArray(c, elem)
	})(c)
}

func decodeArray(c parsec.Cursor, elem ElementDecoder) parsec.Result[struct{}] {
	open := openBracket(c)
	if !open.OK() {
		return parsec.Failed[struct{}](kindMismatch(c, jsonv.KindArray))
	}
	cur := open.Next
	if end := closeBracket(cur); end.OK() {
		return parsec.Success(struct{}{}, end.Next)
	}
	for i := 0; ; i++ {
		next, f := elem(i, cur)
		if f != nil {
			return parsec.Failed[struct{}](f)
		}
		more := afterElement(next)
		if !more.OK() {
			return parsec.Coerce[struct{}](more)
		}
		cur = more.Next
		if !more.Value {
			return parsec.Success(struct{}{}, cur)
		}
	}
}

// Field decodes the value at at with c into dst. Failures are annotated with
// key.
func Field[T any](at parsec.Cursor, key string, c Codec[T], dst *T) (parsec.Cursor, *parsec.Failure) {
	r := c.Decode(at)
	if !r.OK() {
		return at, AtField(r.Err, key)
	}
	*dst = r.Value
	return r.Next, nil
}

// SkipValue consumes the value at at without keeping it. The value must
// still be well formed.
func SkipValue(at parsec.Cursor) (parsec.Cursor, *parsec.Failure) {
	r := jsonv.Default.Value()(at)
	if !r.OK() {
		return at, r.Err
	}
	return r.Next, nil
}

// RejectUnknown fails on a member that the target type does not declare.
func RejectUnknown(at parsec.Cursor, key string) (parsec.Cursor, *parsec.Failure) {
	return at, at.Failf(parsec.KindCodec, "unknown field: "+key).WithPath(key)
}

// MissingField reports a required member that is absent from the object
// starting at c.
func MissingField(c parsec.Cursor, key string) *parsec.Failure {
	return c.Failf(parsec.KindCodec, "missing field: "+key).WithPath(key)
}

// AtField prefixes the path of f with an object key.
func AtField(f *parsec.Failure, key string) *parsec.Failure {
	return f.WithPath(key)
}

// AtIndex prefixes the path of f with an array index.
func AtIndex(f *parsec.Failure, i int) *parsec.Failure {
	return f.WithPath(strconv.Itoa(i))
}
