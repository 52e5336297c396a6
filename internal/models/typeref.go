package models

import (
	"fmt"
	"unicode"

	"github.com/mcncl/serdegen/parsec"
)

// Kind classifies a type reference.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindDecimal
	KindNumber
	KindAny
	KindTime
	KindStruct
	KindSlice
	KindMap
	KindPointer
)

var scalars = map[string]Kind{
	"string":  KindString,
	"bool":    KindBool,
	"int":     KindInt,
	"int8":    KindInt8,
	"int16":   KindInt16,
	"int32":   KindInt32,
	"int64":   KindInt64,
	"uint":    KindUint,
	"uint8":   KindUint8,
	"uint16":  KindUint16,
	"uint32":  KindUint32,
	"uint64":  KindUint64,
	"float32": KindFloat32,
	"float64": KindFloat64,
	"decimal": KindDecimal,
	"number":  KindNumber,
	"any":     KindAny,
	"time":    KindTime,
}

type scalarInfo struct {
	goType string
	codec  string
	pkg    string
}

var scalarTable = map[Kind]scalarInfo{
	KindString:  {"string", "codec.String", ""},
	KindBool:    {"bool", "codec.Bool", ""},
	KindInt:     {"int", "codec.Int", ""},
	KindInt8:    {"int8", "codec.Int8", ""},
	KindInt16:   {"int16", "codec.Int16", ""},
	KindInt32:   {"int32", "codec.Int32", ""},
	KindInt64:   {"int64", "codec.Int64", ""},
	KindUint:    {"uint", "codec.Uint", ""},
	KindUint8:   {"uint8", "codec.Uint8", ""},
	KindUint16:  {"uint16", "codec.Uint16", ""},
	KindUint32:  {"uint32", "codec.Uint32", ""},
	KindUint64:  {"uint64", "codec.Uint64", ""},
	KindFloat32: {"float32", "codec.Float32", ""},
	KindFloat64: {"float64", "codec.Float64", ""},
	KindDecimal: {"decimal.Decimal", "codec.Decimal", "github.com/shopspring/decimal"},
	KindNumber:  {"jsonv.Number", "codec.Number", "github.com/mcncl/serdegen/jsonv"},
	KindAny:     {"jsonv.Value", "codec.Value", "github.com/mcncl/serdegen/jsonv"},
	KindTime:    {"time.Time", "codec.Time", "time"},
}

// TypeRef is a field type as written in descriptors: a scalar name, the name
// of another described type, or []T, map[string]T and *T built from those.
type TypeRef struct {
	Kind Kind
	Name string   // scalar or struct name
	Elem *TypeRef // element of slices, maps and pointers
}

// Scalar returns the reference for a scalar kind.
func Scalar(k Kind) TypeRef {
	for name, kind := range scalars {
		if kind == k {
			return TypeRef{Kind: k, Name: name}
		}
	}
	panic(fmt.Sprintf("models: %d is not a scalar kind", k))
}

// Struct refers to a described type.
func Struct(name string) TypeRef { return TypeRef{Kind: KindStruct, Name: name} }

// SliceOf returns []elem.
func SliceOf(elem TypeRef) TypeRef { return TypeRef{Kind: KindSlice, Elem: &elem} }

// MapOf returns map[string]elem.
func MapOf(elem TypeRef) TypeRef { return TypeRef{Kind: KindMap, Elem: &elem} }

// PointerTo returns *elem.
func PointerTo(elem TypeRef) TypeRef { return TypeRef{Kind: KindPointer, Elem: &elem} }

// String renders the reference in descriptor syntax.
func (t TypeRef) String() string {
	switch t.Kind {
	case KindSlice:
		return "[]" + t.Elem.String()
	case KindMap:
		return "map[string]" + t.Elem.String()
	case KindPointer:
		return "*" + t.Elem.String()
	default:
		return t.Name
	}
}

// GoType renders the reference as a Go type expression.
func (t TypeRef) GoType() string {
	switch t.Kind {
	case KindSlice:
		return "[]" + t.Elem.GoType()
	case KindMap:
		return "map[string]" + t.Elem.GoType()
	case KindPointer:
		return "*" + t.Elem.GoType()
	case KindStruct:
		return t.Name
	default:
		return scalarTable[t.Kind].goType
	}
}

// CodecExpr renders the Go expression of the codec for the reference.
func (t TypeRef) CodecExpr() string {
	switch t.Kind {
	case KindSlice:
		return "codec.Slice(" + t.Elem.CodecExpr() + ")"
	case KindMap:
		return "codec.Map(" + t.Elem.CodecExpr() + ")"
	case KindPointer:
		return "codec.Pointer(" + t.Elem.CodecExpr() + ")"
	case KindStruct:
		return t.Name + "Codec"
	default:
		return scalarTable[t.Kind].codec
	}
}

// Imports returns the packages the Go type of the reference needs.
func (t TypeRef) Imports() []string {
	var out []string
	t.Walk(func(r TypeRef) {
		if pkg := scalarTable[r.Kind].pkg; pkg != "" {
			out = append(out, pkg)
		}
	})
	return out
}

// Walk calls fn for t and every element type below it.
func (t TypeRef) Walk(fn func(TypeRef)) {
	fn(t)
	if t.Elem != nil {
		t.Elem.Walk(fn)
	}
}

// Composite reports whether the reference is a slice, map or pointer.
func (t TypeRef) Composite() bool {
	return t.Kind == KindSlice || t.Kind == KindMap || t.Kind == KindPointer
}

// Nilable reports whether values of the Go type can be nil.
func (t TypeRef) Nilable() bool {
	return t.Composite() || t.Kind == KindAny
}

// Equal reports whether two references name the same type.
func (t TypeRef) Equal(u TypeRef) bool {
	return t.String() == u.String()
}

// ParseTypeRef parses descriptor type syntax such as "[]*Item" or
// "map[string]decimal".
func ParseTypeRef(s string) (TypeRef, error) {
	return parsec.Run(typeRefGrammar, s, parsec.Options{}).Get()
}

var typeRefGrammar = typeRefParser()

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func typeRefParser() parsec.Parser[TypeRef] {
	named := parsec.TryMap(parsec.TakeWhile1("type name", isIdentRune), parsec.KindSyntax, func(name string) (TypeRef, error) {
		if k, ok := scalars[name]; ok {
			return TypeRef{Kind: k, Name: name}, nil
		}
		first := []rune(name)[0]
		if !unicode.IsUpper(first) {
			return TypeRef{}, fmt.Errorf("unknown type %q", name)
		}
		return Struct(name), nil
	})

	var ref parsec.Parser[TypeRef]
	ref = parsec.Lazy(func() parsec.Parser[TypeRef] {
		return parsec.Label(parsec.Choice(
			named,
			parsec.Right(parsec.Literal("[]"), parsec.Map(ref, SliceOf)),
			parsec.Right(parsec.Literal("map[string]"), parsec.Map(ref, MapOf)),
			parsec.Right(parsec.Char('*'), parsec.Map(ref, PointerTo)),
		), "type")
	})
	return ref
}
