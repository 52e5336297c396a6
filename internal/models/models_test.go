package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeRef(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		goType  string
		codec   string
		imports []string
	}{
		{"string", "string", "string", "codec.String", nil},
		{"decimal", "decimal", "decimal.Decimal", "codec.Decimal", []string{"github.com/shopspring/decimal"}},
		{"[]Item", "[]Item", "[]Item", "codec.Slice(ItemCodec)", nil},
		{"map[string]*time", "map[string]*time", "map[string]*time.Time", "codec.Map(codec.Pointer(codec.Time))", []string{"time"}},
		{"*[]any", "*[]any", "*[]jsonv.Value", "codec.Pointer(codec.Slice(codec.Value))", []string{"github.com/mcncl/serdegen/jsonv"}},
		{" []int64 ", "[]int64", "[]int64", "codec.Slice(codec.Int64)", nil},
		{"*int16", "*int16", "*int16", "codec.Pointer(codec.Int16)", nil},
		{"map[string]uint8", "map[string]uint8", "map[string]uint8", "codec.Map(codec.Uint8)", nil},
		{"uint", "uint", "uint", "codec.Uint", nil},
		{"mapping", "", "", "", nil},
		{"Mapping", "Mapping", "Mapping", "MappingCodec", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := ParseTypeRef(tt.input)
			if tt.want == "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), `unknown type "mapping"`)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.String())
			assert.Equal(t, tt.goType, ref.GoType())
			assert.Equal(t, tt.codec, ref.CodecExpr())
			assert.Equal(t, tt.imports, ref.Imports())
		})
	}
}

func TestParseTypeRef_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "syntax error at offset 0: expected type"},
		{"[]", "syntax error at offset 2: expected type"},
		{"map[int]string", `syntax error at offset 0: unknown type "map"`},
		{"[]Item x", "syntax error at offset 7: expected end of input"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseTypeRef(tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestTypeRef_Predicates(t *testing.T) {
	assert.True(t, SliceOf(Scalar(KindString)).Nilable())
	assert.True(t, Scalar(KindAny).Nilable())
	assert.False(t, Scalar(KindAny).Composite())
	assert.False(t, Struct("Item").Nilable())
	assert.True(t, PointerTo(Struct("Item")).Equal(PointerTo(Struct("Item"))))
	assert.False(t, SliceOf(Scalar(KindInt)).Equal(SliceOf(Scalar(KindInt64))))
}

func TestDescriptorSet_Lookup(t *testing.T) {
	set := DescriptorSet{Types: []TypeDescriptor{
		{Name: "Item", Fields: []FieldDescriptor{{Name: "ID", Key: "id", Type: Scalar(KindInt64), Required: true}}},
		{Name: "Order"},
	}}

	td, ok := set.Lookup("Item")
	require.True(t, ok)
	f, ok := td.Field("id")
	require.True(t, ok)
	assert.Equal(t, "ID", f.Name)
	assert.False(t, f.HasDefault())

	_, ok = td.Field("name")
	assert.False(t, ok)
	_, ok = set.Lookup("Missing")
	assert.False(t, ok)
}

func TestPolicies(t *testing.T) {
	assert.True(t, AbsentOmit.Valid())
	assert.True(t, AbsentNull.Valid())
	assert.False(t, AbsentPolicy("drop").Valid())
	assert.True(t, UnknownReject.Valid())
	assert.False(t, UnknownPolicy("").Valid())
}
