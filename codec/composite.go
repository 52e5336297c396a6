package codec

import (
	"maps"
	"slices"

	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

// Slice returns a codec for JSON arrays of elem. JSON null decodes to a nil
// slice and a nil slice encodes as null.
func Slice[T any](elem Codec[T]) Codec[[]T] {
	return sliceCodec[T]{elem: elem}
}

type sliceCodec[T any] struct {
	elem Codec[T]
}

func (s sliceCodec[T]) Decode(c parsec.Cursor) parsec.Result[[]T] {
	if null := nullToken(c); null.OK() {
		return parsec.Success[[]T](nil, null.Next)
	}
	out := []T{}
	r := DecodeArray(c, func(i int, at parsec.Cursor) (parsec.Cursor, *parsec.Failure) {
		e := s.elem.Decode(at)
		if !e.OK() {
			return at, AtIndex(e.Err, i)
		}
		out = append(out, e.Value)
		return e.Next, nil
	})
	if !r.OK() {
		return parsec.Coerce[[]T](r)
	}
	return parsec.Success(out, r.Next)
}

func (s sliceCodec[T]) Encode(v []T, w *jsonv.Writer) {
	if v == nil {
		w.Null()
		return
	}
	w.BeginArray()
	for _, e := range v {
		s.elem.Encode(e, w)
	}
	w.EndArray()
}

// Map returns a codec for JSON objects whose values are handled by elem.
// Repeated keys keep the last value. Keys are encoded in sorted order. JSON
// null decodes to a nil map and a nil map encodes as null.
func Map[V any](elem Codec[V]) Codec[map[string]V] {
	return mapCodec[V]{elem: elem}
}

type mapCodec[V any] struct {
	elem Codec[V]
}

func (m mapCodec[V]) Decode(c parsec.Cursor) parsec.Result[map[string]V] {
	if null := nullToken(c); null.OK() {
		return parsec.Success[map[string]V](nil, null.Next)
	}
	out := map[string]V{}
	r := DecodeObject(c, func(key string, at parsec.Cursor) (parsec.Cursor, *parsec.Failure) {
		var v V
		next, f := Field(at, key, m.elem, &v)
		if f != nil {
			return at, f
		}
		out[key] = v
		return next, nil
	})
	if !r.OK() {
		return parsec.Coerce[map[string]V](r)
	}
	return parsec.Success(out, r.Next)
}

func (m mapCodec[V]) Encode(v map[string]V, w *jsonv.Writer) {
	if v == nil {
		w.Null()
		return
	}
	w.BeginObject()
	for _, k := range slices.Sorted(maps.Keys(v)) {
		w.Key(k)
		m.elem.Encode(v[k], w)
	}
	w.EndObject()
}

// Pointer returns a codec for optional values: JSON null decodes to nil and
// nil encodes as null.
func Pointer[T any](elem Codec[T]) Codec[*T] {
	return pointerCodec[T]{elem: elem}
}

type pointerCodec[T any] struct {
	elem Codec[T]
}

func (p pointerCodec[T]) Decode(c parsec.Cursor) parsec.Result[*T] {
	if null := nullToken(c); null.OK() {
		return parsec.Success[*T](nil, null.Next)
	}
	r := p.elem.Decode(c)
	if !r.OK() {
		return parsec.Coerce[*T](r)
	}
	v := r.Value
	return parsec.Success(&v, r.Next)
}

func (p pointerCodec[T]) Encode(v *T, w *jsonv.Writer) {
	if v == nil {
		w.Null()
		return
	}
	p.elem.Encode(*v, w)
}
