package schema

import (
	"github.com/mcncl/serdegen/codec"
	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

// Codec reads and writes JSON Schema documents. Boolean schemas decode as
// the empty schema.
var Codec codec.Codec[*Schema] = schemaCodec{}

var (
	schemaSliceCodec = codec.Slice[*Schema](schemaCodec{})
	stringSliceCodec = codec.Slice(codec.String)
	valueSliceCodec  = codec.Slice(codec.Value)
)

type schemaCodec struct{}

func (schemaCodec) Decode(c parsec.Cursor) parsec.Result[*Schema] {
	if kind, ok := jsonv.PeekKind(c); ok && kind == jsonv.KindBool {
		r := codec.Bool.Decode(c)
		if !r.OK() {
			return parsec.Failed[*Schema](r.Err)
		}
		return parsec.Success(&Schema{}, r.Next)
	}

	s := &Schema{}
	r := codec.DecodeObject(c, func(key string, at parsec.Cursor) (parsec.Cursor, *parsec.Failure) {
		switch key {
		case "$ref":
			return codec.Field(at, key, codec.String, &s.Ref)
		case "title":
			return codec.Field(at, key, codec.String, &s.Title)
		case "description":
			return codec.Field(at, key, codec.String, &s.Description)
		case "format":
			return codec.Field(at, key, codec.String, &s.Format)
		case "type":
			return codec.Field(at, key, typeCodec{}, &s.Type)
		case "properties":
			return codec.Field(at, key, propertiesCodec{}, &s.Properties)
		case "required":
			return codec.Field(at, key, stringSliceCodec, &s.Required)
		case "additionalProperties":
			return codec.Field(at, key, additionalCodec{}, &s.AdditionalProperties)
		case "items":
			return codec.Field(at, key, schemaCodec{}, &s.Items)
		case "enum":
			return codec.Field(at, key, valueSliceCodec, &s.Enum)
		case "nullable":
			return codec.Field(at, key, codec.Bool, &s.Nullable)
		case "allOf":
			return codec.Field(at, key, schemaSliceCodec, &s.AllOf)
		case "anyOf":
			return codec.Field(at, key, schemaSliceCodec, &s.AnyOf)
		case "oneOf":
			return codec.Field(at, key, schemaSliceCodec, &s.OneOf)
		case "definitions", "$defs":
			var defs []Property
			next, f := codec.Field(at, key, propertiesCodec{}, &defs)
			for _, d := range defs {
				s.Definitions = setProperty(s.Definitions, d)
			}
			return next, f
		case "default":
			return codec.Field(at, key, codec.Value, &s.Default)
		default:
			return codec.SkipValue(at)
		}
	})
	if !r.OK() {
		return parsec.Failed[*Schema](r.Err)
	}
	return parsec.Success(s, r.Next)
}

func (schemaCodec) Encode(s *Schema, w *jsonv.Writer) {
	if s == nil {
		w.Null()
		return
	}
	w.BeginObject()
	str := func(key, v string) {
		if v != "" {
			w.Key(key)
			w.StringValue(v)
		}
	}
	schemas := func(key string, v []*Schema) {
		if len(v) > 0 {
			w.Key(key)
			schemaSliceCodec.Encode(v, w)
		}
	}

	str("$ref", s.Ref)
	str("title", s.Title)
	str("description", s.Description)
	if len(s.Type.Types) > 0 {
		w.Key("type")
		typeCodec{}.Encode(s.Type, w)
	}
	str("format", s.Format)
	if s.Nullable {
		w.Key("nullable")
		w.Bool(true)
	}
	if len(s.Enum) > 0 {
		w.Key("enum")
		valueSliceCodec.Encode(s.Enum, w)
	}
	if s.Default != nil {
		w.Key("default")
		w.Value(s.Default)
	}
	if len(s.Properties) > 0 {
		w.Key("properties")
		propertiesCodec{}.Encode(s.Properties, w)
	}
	if len(s.Required) > 0 {
		w.Key("required")
		stringSliceCodec.Encode(s.Required, w)
	}
	if s.AdditionalProperties != nil {
		w.Key("additionalProperties")
		additionalCodec{}.Encode(s.AdditionalProperties, w)
	}
	if s.Items != nil {
		w.Key("items")
		schemaCodec{}.Encode(s.Items, w)
	}
	schemas("allOf", s.AllOf)
	schemas("anyOf", s.AnyOf)
	schemas("oneOf", s.OneOf)
	if len(s.Definitions) > 0 {
		w.Key("$defs")
		propertiesCodec{}.Encode(s.Definitions, w)
	}
	w.EndObject()
}

// typeCodec accepts "string" or ["string", "null"].
type typeCodec struct{}

func (typeCodec) Decode(c parsec.Cursor) parsec.Result[SchemaType] {
	if kind, ok := jsonv.PeekKind(c); ok && kind == jsonv.KindArray {
		r := stringSliceCodec.Decode(c)
		if !r.OK() {
			return parsec.Failed[SchemaType](r.Err)
		}
		return parsec.Success(SchemaType{Types: r.Value}, r.Next)
	}
	r := codec.String.Decode(c)
	if !r.OK() {
		return parsec.Failed[SchemaType](r.Err)
	}
	return parsec.Success(SchemaType{Types: []string{r.Value}}, r.Next)
}

func (typeCodec) Encode(t SchemaType, w *jsonv.Writer) {
	if len(t.Types) == 1 {
		w.StringValue(t.Types[0])
		return
	}
	stringSliceCodec.Encode(t.Types, w)
}

// additionalCodec accepts a boolean or a schema.
type additionalCodec struct{}

func (additionalCodec) Decode(c parsec.Cursor) parsec.Result[*AdditionalProperties] {
	if kind, ok := jsonv.PeekKind(c); ok && kind == jsonv.KindBool {
		r := codec.Bool.Decode(c)
		if !r.OK() {
			return parsec.Failed[*AdditionalProperties](r.Err)
		}
		return parsec.Success(&AdditionalProperties{Allowed: r.Value}, r.Next)
	}
	r := schemaCodec{}.Decode(c)
	if !r.OK() {
		return parsec.Failed[*AdditionalProperties](r.Err)
	}
	return parsec.Success(&AdditionalProperties{Allowed: true, Schema: r.Value}, r.Next)
}

func (additionalCodec) Encode(ap *AdditionalProperties, w *jsonv.Writer) {
	if ap.Schema != nil {
		schemaCodec{}.Encode(ap.Schema, w)
		return
	}
	w.Bool(ap.Allowed)
}

// propertiesCodec keeps members in document order. A repeated name replaces
// the earlier subschema in place.
type propertiesCodec struct{}

func (propertiesCodec) Decode(c parsec.Cursor) parsec.Result[[]Property] {
	var props []Property
	r := codec.DecodeObject(c, func(key string, at parsec.Cursor) (parsec.Cursor, *parsec.Failure) {
		var s *Schema
		next, f := codec.Field(at, key, schemaCodec{}, &s)
		if f == nil {
			props = setProperty(props, Property{Name: key, Schema: s})
		}
		return next, f
	})
	if !r.OK() {
		return parsec.Failed[[]Property](r.Err)
	}
	return parsec.Success(props, r.Next)
}

func (propertiesCodec) Encode(props []Property, w *jsonv.Writer) {
	w.BeginObject()
	for _, p := range props {
		w.Key(p.Name)
		schemaCodec{}.Encode(p.Schema, w)
	}
	w.EndObject()
}
