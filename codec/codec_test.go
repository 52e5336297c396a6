package codec

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/mcncl/serdegen/jsonv"
	"github.com/mcncl/serdegen/parsec"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// user and userCodec mirror the shape of generated code.
type user struct {
	ID    int64
	Name  *string
	Tags  []string
	Admin bool
}

var (
	userNameCodec = Pointer(String)
	userTagsCodec = Slice(String)
)

type userCodec struct {
	absentAsNull  bool
	rejectUnknown bool
}

func (u userCodec) Decode(c parsec.Cursor) parsec.Result[user] {
	var v user
	var seen [4]bool
	r := DecodeObject(c, func(key string, at parsec.Cursor) (parsec.Cursor, *parsec.Failure) {
		switch key {
		case "id":
			seen[0] = true
			return Field(at, key, Int64, &v.ID)
		case "name":
			seen[1] = true
			return Field(at, key, userNameCodec, &v.Name)
		case "tags":
			seen[2] = true
			return Field(at, key, userTagsCodec, &v.Tags)
		case "admin":
			seen[3] = true
			return Field(at, key, Bool, &v.Admin)
		}
		if u.rejectUnknown {
			return RejectUnknown(at, key)
		}
		return SkipValue(at)
	})
	if !r.OK() {
		return parsec.Coerce[user](r)
	}
	if !seen[0] {
		return parsec.Failed[user](MissingField(c, "id"))
	}
	if !seen[2] {
		v.Tags = MustDecodeDefault(userTagsCodec, `["guest"]`)
	}
	return parsec.Success(v, r.Next)
}

func (u userCodec) Encode(v user, w *jsonv.Writer) {
	w.BeginObject()
	w.Key("id")
	Int64.Encode(v.ID, w)
	if v.Name != nil || u.absentAsNull {
		w.Key("name")
		userNameCodec.Encode(v.Name, w)
	}
	if v.Tags != nil || u.absentAsNull {
		w.Key("tags")
		userTagsCodec.Encode(v.Tags, w)
	}
	w.Key("admin")
	Bool.Encode(v.Admin, w)
	w.EndObject()
}

func failureOf(t *testing.T, err error) *parsec.Failure {
	t.Helper()
	var f *parsec.Failure
	require.ErrorAs(t, err, &f)
	return f
}

func TestRecord_MissingRequiredField(t *testing.T) {
	_, err := DecodeString[user](userCodec{}, "{}").Get()
	f := failureOf(t, err)

	assert.Equal(t, parsec.KindCodec, f.Kind)
	assert.Equal(t, "missing field: id", f.Message)
	assert.Equal(t, "/id", f.Pointer())
	assert.Equal(t, 0, f.Offset)
}

func TestRecord_Defaults(t *testing.T) {
	v, err := DecodeString[user](userCodec{}, `{"id": 7}`).Get()
	require.NoError(t, err)
	assert.Equal(t, user{ID: 7, Tags: []string{"guest"}}, v)

	other, err := DecodeString[user](userCodec{}, `{"id": 8}`).Get()
	require.NoError(t, err)
	other.Tags[0] = "changed"
	assert.Equal(t, []string{"guest"}, v.Tags, "defaults are not shared between decodes")
}

func TestRecord_EndToEnd(t *testing.T) {
	v, err := Decode[user](userCodec{}, []byte(`{"id": 7, "name": "a\"b"}`)).Get()
	require.NoError(t, err)
	require.NotNil(t, v.Name)
	assert.Equal(t, int64(7), v.ID)
	assert.Equal(t, `a"b`, *v.Name)

	out := EncodeString[user](userCodec{}, v)
	assert.Equal(t, `{"id":7,"name":"a\"b","tags":["guest"],"admin":false}`, out)

	again, err := DecodeString[user](userCodec{}, out).Get()
	require.NoError(t, err)
	assert.Equal(t, v, again)
}

func TestRecord_AbsentPolicy(t *testing.T) {
	v := user{ID: 1}

	assert.Equal(t, `{"id":1,"admin":false}`, EncodeString[user](userCodec{}, v))
	assert.Equal(t, `{"id":1,"name":null,"tags":null,"admin":false}`, EncodeString[user](userCodec{absentAsNull: true}, v))
}

func TestRecord_UnknownFields(t *testing.T) {
	input := `{"id": 1, "extra": {"deep": [1, 2, {"x": null}]}}`

	v, err := DecodeString[user](userCodec{}, input).Get()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.ID)

	_, err = DecodeString[user](userCodec{rejectUnknown: true}, input).Get()
	f := failureOf(t, err)
	assert.Equal(t, parsec.KindCodec, f.Kind)
	assert.Equal(t, "unknown field: extra", f.Message)
	assert.Equal(t, "/extra", f.Pointer())

	_, err = DecodeString[user](userCodec{}, `{"id": 1, "extra": [1,}`).Get()
	f = failureOf(t, err)
	assert.Equal(t, parsec.KindSyntax, f.Kind, "skipped values must still be well formed")
}

func TestRecord_Failures(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantKind    parsec.Kind
		wantOffset  int
		wantPointer string
		wantDesc    string
	}{
		{
			name:        "string where number expected",
			input:       `{"id": "7"}`,
			wantKind:    parsec.KindCodec,
			wantOffset:  7,
			wantPointer: "/id",
			wantDesc:    "expected number, found string",
		},
		{
			name:        "nested element",
			input:       `{"id": 1, "tags": ["a", 2]}`,
			wantKind:    parsec.KindCodec,
			wantOffset:  24,
			wantPointer: "/tags/1",
			wantDesc:    "expected string, found number",
		},
		{
			name:        "fraction for integer",
			input:       `{"id": 1.5}`,
			wantKind:    parsec.KindCodec,
			wantOffset:  7,
			wantPointer: "/id",
			wantDesc:    "number 1.5 is not an integer",
		},
		{
			name:       "array instead of object",
			input:      `[1]`,
			wantKind:   parsec.KindCodec,
			wantOffset: 0,
			wantDesc:   "expected object, found array",
		},
		{
			name:       "trailing comma",
			input:      `{"id": 1,}`,
			wantKind:   parsec.KindSyntax,
			wantOffset: 9,
			wantDesc:   "expected object key",
		},
		{
			name:       "missing separator",
			input:      `{"id": 1 "admin": true}`,
			wantKind:   parsec.KindSyntax,
			wantOffset: 9,
			wantDesc:   "expected ',' or '}'",
		},
		{
			name:        "malformed value inside field",
			input:       `{"id": 1, "name": "abc}`,
			wantKind:    parsec.KindSyntax,
			wantOffset:  23,
			wantPointer: "/name",
		},
		{
			name:       "trailing content",
			input:      `{"id": 1} {}`,
			wantKind:   parsec.KindSyntax,
			wantOffset: 10,
			wantDesc:   "expected end of input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeString[user](userCodec{}, tt.input).Get()
			f := failureOf(t, err)
			assert.Equal(t, tt.wantKind, f.Kind, f.Error())
			assert.Equal(t, tt.wantOffset, f.Offset, f.Error())
			assert.Equal(t, tt.wantPointer, f.Pointer())
			if tt.wantDesc != "" {
				assert.Equal(t, tt.wantDesc, f.Description())
			}
		})
	}
}

func TestRecord_DuplicateKeysLastWins(t *testing.T) {
	v, err := DecodeString[user](userCodec{}, `{"id": 1, "id": 2}`).Get()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ID)
}

func TestPrimitives(t *testing.T) {
	t.Run("integers", func(t *testing.T) {
		assert.Equal(t, int64(100), DecodeString(Int64, "1e2").MustGet())
		assert.Equal(t, int64(-9223372036854775808), DecodeString(Int64, "-9223372036854775808").MustGet())
		assert.Equal(t, int32(-5), DecodeString(Int32, " -5 ").MustGet())
		assert.Equal(t, 42, DecodeString(Int, "42").MustGet())
		assert.Equal(t, uint64(18446744073709551615), DecodeString(Uint64, "18446744073709551615").MustGet())
		assert.Equal(t, int8(-128), DecodeString(Int8, "-128").MustGet())
		assert.Equal(t, int16(32767), DecodeString(Int16, "32767").MustGet())
		assert.Equal(t, uint8(255), DecodeString(Uint8, "2.55e2").MustGet())
		assert.Equal(t, uint16(65535), DecodeString(Uint16, "65535").MustGet())
		assert.Equal(t, uint32(4294967295), DecodeString(Uint32, "4294967295").MustGet())
		assert.Equal(t, uint(7), DecodeString(Uint, "7").MustGet())
		assert.Equal(t, "255", EncodeString(Uint8, 255))
		assert.Equal(t, "-128", EncodeString(Int8, -128))

		for _, tc := range []struct {
			err  error
			want string
		}{
			{DecodeString(Int32, "2147483648").Error(), "number 2147483648 does not fit in int32"},
			{DecodeString(Int64, "9223372036854775808").Error(), "number 9223372036854775808 does not fit in int64"},
			{DecodeString(Uint64, "-1").Error(), "number -1 does not fit in uint64"},
			{DecodeString(Int, "0.5").Error(), "number 0.5 is not an integer"},
			{DecodeString(Int8, "128").Error(), "number 128 does not fit in int8"},
			{DecodeString(Int16, "-32769").Error(), "number -32769 does not fit in int16"},
			{DecodeString(Uint8, "256").Error(), "number 256 does not fit in uint8"},
			{DecodeString(Uint16, "65536").Error(), "number 65536 does not fit in uint16"},
			{DecodeString(Uint32, "4294967296").Error(), "number 4294967296 does not fit in uint32"},
			{DecodeString(Uint, "-3").Error(), "number -3 does not fit in uint"},
			{DecodeString(Uint8, "2.5").Error(), "number 2.5 is not an integer"},
		} {
			f := failureOf(t, tc.err)
			assert.Equal(t, parsec.KindCodec, f.Kind)
			assert.Equal(t, tc.want, f.Message)
		}
	})

	t.Run("large exponents fail fast", func(t *testing.T) {
		for _, lit := range []string{"1e99999999", "-1e99999999", "1e-99999999", "0e-99999999"} {
			start := time.Now()
			errs := []error{
				DecodeString(Int, lit).Error(),
				DecodeString(Int64, lit).Error(),
				DecodeString(Uint64, lit).Error(),
				DecodeString(Uint8, lit).Error(),
			}
			assert.Less(t, time.Since(start), time.Second, lit)

			for _, err := range errs {
				if lit == "0e-99999999" {
					assert.NoError(t, err)
					continue
				}
				f := failureOf(t, err)
				assert.Equal(t, parsec.KindCodec, f.Kind, lit)
			}
		}

		d := DecodeString(Decimal, "1e99999999").MustGet()
		assert.Equal(t, "1e99999999", EncodeString(Decimal, d))
	})

	t.Run("floats", func(t *testing.T) {
		assert.Equal(t, 0.1, DecodeString(Float64, "0.1").MustGet())
		assert.Equal(t, float32(2.5), DecodeString(Float32, "2.5").MustGet())

		f := failureOf(t, DecodeString(Float64, "1e400").Error())
		assert.Equal(t, parsec.KindCodec, f.Kind)

		assert.Equal(t, "null", EncodeString(Float64, math.NaN()))
		assert.Equal(t, "1e+21", EncodeString(Float64, 1e21))
	})

	t.Run("decimal and number keep precision", func(t *testing.T) {
		d := DecodeString(Decimal, "0.10000000000000000001").MustGet()
		assert.True(t, d.Equal(decimal.RequireFromString("0.10000000000000000001")))

		n := DecodeString(Number, "1.50").MustGet()
		assert.Equal(t, "1.50", EncodeString(Number, n))
	})

	t.Run("strings and booleans", func(t *testing.T) {
		assert.Equal(t, "é\n", DecodeString(String, `"é\n"`).MustGet())
		assert.Equal(t, `"tab\there"`, EncodeString(String, "tab\there"))
		assert.True(t, DecodeString(Bool, "true").MustGet())

		f := failureOf(t, DecodeString(Bool, "null").Error())
		assert.Equal(t, "expected boolean, found null", f.Message)
	})

	t.Run("time", func(t *testing.T) {
		ts := DecodeString(Time, `"2024-03-01T10:20:30.5+02:00"`).MustGet()
		assert.True(t, ts.Equal(time.Date(2024, 3, 1, 8, 20, 30, 500000000, time.UTC)))
		assert.Equal(t, `"2024-03-01T10:20:30.5+02:00"`, EncodeString(Time, ts))

		f := failureOf(t, DecodeString(Time, `"yesterday"`).Error())
		assert.Equal(t, parsec.KindCodec, f.Kind)
		assert.Equal(t, `invalid RFC 3339 time "yesterday"`, f.Message)
	})

	t.Run("value", func(t *testing.T) {
		v := DecodeString(Value, `{"b": [1, "x"], "a": null}`).MustGet()
		assert.Equal(t, `{"b":[1,"x"],"a":null}`, EncodeString(Value, v))
	})
}

func TestComposites(t *testing.T) {
	t.Run("slice", func(t *testing.T) {
		ints := Slice(Int)
		assert.Equal(t, []int{1, 2, 3}, DecodeString(ints, "[1, 2, 3]").MustGet())

		empty := DecodeString(ints, "[]").MustGet()
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		assert.Nil(t, DecodeString(ints, "null").MustGet())
		assert.Equal(t, "null", EncodeString(ints, nil))
		assert.Equal(t, "[]", EncodeString(ints, []int{}))

		f := failureOf(t, DecodeString(ints, "[1,]").Error())
		assert.Equal(t, parsec.KindSyntax, f.Kind)
		assert.Equal(t, 3, f.Offset)
	})

	t.Run("map", func(t *testing.T) {
		m := Map(Int)
		got := DecodeString(m, `{"b": 1, "a": 2, "b": 3}`).MustGet()
		assert.Equal(t, map[string]int{"a": 2, "b": 3}, got)
		assert.Equal(t, `{"a":2,"b":3}`, EncodeString(m, got))
		assert.Nil(t, DecodeString(m, "null").MustGet())

		f := failureOf(t, DecodeString(m, `{"a": "x"}`).Error())
		assert.Equal(t, "/a", f.Pointer())
	})

	t.Run("pointer", func(t *testing.T) {
		p := Pointer(Int)
		assert.Nil(t, DecodeString(p, "null").MustGet())
		got := DecodeString(p, "5").MustGet()
		require.NotNil(t, got)
		assert.Equal(t, 5, *got)
		assert.Equal(t, "5", EncodeString(p, got))
		assert.Equal(t, "null", EncodeString(p, nil))
	})

	t.Run("nested", func(t *testing.T) {
		grid := Map(Slice(Pointer(String)))
		input := `{"row":["a",null]}`
		got := DecodeString(grid, input).MustGet()
		require.Len(t, got["row"], 2)
		assert.Nil(t, got["row"][1])
		assert.Equal(t, input, EncodeString(grid, got))

		f := failureOf(t, DecodeString(grid, `{"row": ["a", 1]}`).Error())
		assert.Equal(t, "/row/1", f.Pointer())
	})

	t.Run("depth limit", func(t *testing.T) {
		nested := Slice(Slice(Int))
		_, err := DecodeWith(nested, "[[1]]", parsec.Options{MaxDepth: 1}).Get()
		f := failureOf(t, err)
		assert.Equal(t, parsec.KindResource, f.Kind)
		assert.Equal(t, 1, f.Offset)
	})
}

func TestNew(t *testing.T) {
	upper := New(
		parsec.Map(Parser(String), func(s string) string { return s + "!" }),
		func(v string, w *jsonv.Writer) { String.Encode(v+"?", w) },
	)

	assert.Equal(t, "hi!", DecodeString(upper, `"hi"`).MustGet())
	assert.Equal(t, `"hi?"`, string(Encode(upper, "hi")))
	assert.Equal(t, "[\n  \"a?\"\n]", string(EncodeIndent(Slice(upper), []string{"a"}, "  ")))
}

func TestMustDecodeDefault(t *testing.T) {
	assert.Equal(t, []string{"x"}, MustDecodeDefault(Slice(String), `["x"]`))
	assert.Panics(t, func() { MustDecodeDefault(Int, `"x"`) })
}

func TestCodecs_ConcurrentUse(t *testing.T) {
	inputs := []string{
		`{"id": 1, "name": "one", "tags": ["a", "b"]}`,
		`{"id": 2, "admin": true}`,
		`{"name": "missing id"}`,
	}

	var g errgroup.Group
	for worker := 0; worker < 8; worker++ {
		g.Go(func() error {
			for i, in := range inputs {
				v, err := DecodeString[user](userCodec{}, in).Get()
				if i == 2 {
					if err == nil {
						return fmt.Errorf("input %q: expected failure", in)
					}
					continue
				}
				if err != nil {
					return err
				}
				if v.ID != int64(i+1) {
					return fmt.Errorf("input %q: got id %d", in, v.ID)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
