package jsonv

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/mcncl/serdegen/parsec"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustParse(t *testing.T, text string) Value {
	t.Helper()
	v, err := Parse(text).Get()
	require.NoError(t, err)
	return v
}

func failureOf(t *testing.T, err error) *parsec.Failure {
	t.Helper()
	var f *parsec.Failure
	require.ErrorAs(t, err, &f)
	return f
}

func num(s string) Number {
	n, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

func TestParse_Values(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{name: "null", input: "null", want: Null{}},
		{name: "true", input: "true", want: Bool(true)},
		{name: "false", input: " false ", want: Bool(false)},
		{name: "zero", input: "0", want: num("0")},
		{name: "negative fraction", input: "-12.50", want: num("-12.5")},
		{name: "exponent", input: "1E+3", want: num("1000")},
		{name: "empty string", input: `""`, want: String("")},
		{name: "escapes", input: `"a\"b\\c\/d\b\f\n\r\t"`, want: String("a\"b\\c/d\b\f\n\r\t")},
		{name: "unicode escape", input: `"caf\u00e9"`, want: String("café")},
		{name: "surrogate pair", input: `"\ud83d\ude00"`, want: String("😀")},
		{name: "lone high surrogate", input: `"\ud83dx"`, want: String("\uFFFDx")},
		{name: "lone low surrogate", input: `"\ude00"`, want: String("\uFFFD")},
		{name: "high surrogate then escape", input: `"\ud83d\u0041"`, want: String("\uFFFDA")},
		{name: "raw utf8", input: `"日本"`, want: String("日本")},
		{name: "raw replacement character", input: "\"a\uFFFDb\"", want: String("a\uFFFDb")},
		{name: "empty array", input: "[ ]", want: Array{}},
		{name: "nested array", input: "[1, [true, null], []]", want: Array{num("1"), Array{Bool(true), Null{}}, Array{}}},
		{name: "empty object", input: "{}", want: NewObject()},
		{
			name:  "object",
			input: "{\n  \"a\": 1,\n  \"b\": {\"c\": [\"d\"]}\n}",
			want: NewObject(
				Member{Key: "a", Value: num("1")},
				Member{Key: "b", Value: NewObject(Member{Key: "c", Value: Array{String("d")}})},
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.input)
			assert.True(t, Equal(tt.want, got), "got %s, want %s", Write(got), Write(tt.want))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantOffset int
		wantDesc   string
	}{
		{name: "empty input", input: "", wantOffset: 0, wantDesc: "expected JSON value"},
		{name: "bare word", input: "nope", wantOffset: 0, wantDesc: "expected JSON value"},
		{name: "trailing content", input: `{"a": 1} x`, wantOffset: 9, wantDesc: "expected end of input"},
		{name: "two values", input: "1 2", wantOffset: 2},
		{name: "invalid escape", input: `"\q"`, wantOffset: 2, wantDesc: "expected escape character"},
		{name: "trailing comma in array", input: "[1,]", wantOffset: 3, wantDesc: "expected JSON value"},
		{name: "trailing comma in object", input: `{"a":1,}`, wantOffset: 7, wantDesc: "expected object key"},
		{name: "missing colon", input: `{"a" 1}`, wantOffset: 5, wantDesc: "expected ':'"},
		{name: "unterminated array", input: "[1, 2", wantOffset: 5},
		{name: "unterminated string", input: `"abc`, wantOffset: 4},
		{name: "raw newline in string", input: "\"a\nb\"", wantOffset: 2},
		{name: "leading zero", input: "01", wantOffset: 1},
		{name: "missing fraction digits", input: "1.", wantOffset: 2, wantDesc: "expected digit"},
		{name: "missing exponent digits", input: "[1e]", wantOffset: 3, wantDesc: "expected sign or digit"},
		{name: "lone minus", input: "-", wantOffset: 1, wantDesc: "expected digit"},
		{name: "short unicode escape", input: `"\u12"`, wantOffset: 5, wantDesc: "expected hex digit"},
		{name: "single quotes", input: "['a']", wantOffset: 1, wantDesc: "expected JSON value or ']'"},
		{name: "invalid utf8 in string", input: "\"a\xffb\"", wantOffset: 2},
		{name: "truncated utf8 in key", input: "{\"\xe6\x97\": 1}", wantOffset: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input).Get()
			require.Error(t, err)
			f := failureOf(t, err)
			assert.Equal(t, parsec.KindSyntax, f.Kind)
			assert.Equal(t, tt.wantOffset, f.Offset, f.Error())
			if tt.wantDesc != "" {
				assert.Equal(t, tt.wantDesc, f.Description())
			}
		})
	}
}

func TestParse_DuplicateKeys(t *testing.T) {
	input := `{"a": 1, "b": 2, "a": 3}`

	t.Run("last wins by default", func(t *testing.T) {
		obj := mustParse(t, input).(*Object)
		assert.Equal(t, []string{"a", "b"}, obj.Keys())
		a, _ := obj.Get("a")
		assert.True(t, Equal(num("3"), a))
	})

	t.Run("first wins", func(t *testing.T) {
		obj, err := NewGrammar(Options{Duplicates: FirstWins}).Parse(input).Get()
		require.NoError(t, err)
		a, _ := obj.(*Object).Get("a")
		assert.True(t, Equal(num("1"), a))
		assert.Equal(t, 2, obj.(*Object).Len())
	})

	t.Run("reject", func(t *testing.T) {
		_, err := NewGrammar(Options{Duplicates: Reject}).Parse(input).Get()
		f := failureOf(t, err)
		assert.Equal(t, 17, f.Offset)
		assert.Equal(t, `duplicate key "a"`, f.Message)
	})

	t.Run("nested duplicates", func(t *testing.T) {
		_, err := NewGrammar(Options{Duplicates: Reject}).Parse(`[{"x": {"k": 1, "k": 2}}]`).Get()
		f := failureOf(t, err)
		assert.Equal(t, 16, f.Offset)
	})
}

func TestParseDuplicatePolicy(t *testing.T) {
	for _, p := range []DuplicatePolicy{LastWins, FirstWins, Reject} {
		got, err := ParseDuplicatePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseDuplicatePolicy("sometimes")
	assert.Error(t, err)
}

func TestParse_DepthLimit(t *testing.T) {
	deep := strings.Repeat("[", 10) + strings.Repeat("]", 10)

	_, err := NewGrammar(Options{MaxDepth: 10}).Parse(deep).Get()
	require.NoError(t, err)

	_, err = NewGrammar(Options{MaxDepth: 9}).Parse(deep).Get()
	f := failureOf(t, err)
	assert.Equal(t, parsec.KindResource, f.Kind)
	assert.Equal(t, 9, f.Offset)

	hostile := strings.Repeat(`{"a":`, 100000)
	_, err = Parse(hostile).Get()
	f = failureOf(t, err)
	assert.Equal(t, parsec.KindResource, f.Kind)

	_, err = NewGrammar(Options{MaxDepth: 10000000}).Parse(hostile).Get()
	f = failureOf(t, err)
	assert.Equal(t, parsec.KindResource, f.Kind)
	assert.Contains(t, f.Error(), fmt.Sprintf("maximum nesting depth %d exceeded", parsec.MaxDepthLimit))
}

func TestNumber(t *testing.T) {
	n := num("1.50")
	assert.Equal(t, "1.50", n.String())
	assert.True(t, n.Equal(num("15e-1")))
	assert.True(t, n.Decimal().Equal(decimal.RequireFromString("1.5")))

	_, ok := n.Int64()
	assert.False(t, ok)

	i, ok := num("1e2").Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(100), i)

	_, ok = num("9223372036854775808").Int64()
	assert.False(t, ok)

	u, ok := num("18446744073709551615").Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), u)

	_, ok = num("-1").Uint64()
	assert.False(t, ok)

	f, ok := num("0.1").Float64()
	assert.True(t, ok)
	assert.Equal(t, 0.1, f)

	_, ok = num("1e400").Float64()
	assert.False(t, ok)

	big := mustParse(t, "123456789012345678901234567890.123456789")
	assert.Equal(t, "123456789012345678901234567890.123456789", Write(big))

	_, ok = NumberFromFloat(0)
	assert.True(t, ok)

	assert.True(t, num("1200e-2").IsInteger())
	assert.False(t, num("1e-99999999").IsInteger())
	assert.True(t, num("0e-99999999").IsInteger())

	_, err := ParseNumber("1.")
	assert.Error(t, err)
	_, err = ParseNumber("+1")
	assert.Error(t, err)
}

func TestNumber_LargeExponents(t *testing.T) {
	start := time.Now()

	huge := num("1e99999999")
	_, ok := huge.Int64()
	assert.False(t, ok)
	_, ok = huge.Uint64()
	assert.False(t, ok)
	_, ok = num("-1e99999999").Int64()
	assert.False(t, ok)
	i, ok := num("0e99999999").Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(0), i)

	assert.False(t, huge.Equal(num("1")))
	assert.False(t, huge.Equal(num("1e-99999999")))
	assert.True(t, huge.Equal(num("10e99999998")))
	assert.True(t, num("0e99999999").Equal(num("0e-99999999")))

	assert.Equal(t, "1e99999999", NumberFromDecimal(huge.Decimal()).String())
	assert.Equal(t, "-25e-99999999", NumberFromDecimal(num("-2.5e-99999998").Decimal()).String())
	assert.Equal(t, "0", NumberFromDecimal(num("0e99999999").Decimal()).String())

	assert.Less(t, time.Since(start), time.Second)
}

func TestWrite(t *testing.T) {
	v := NewObject(
		Member{Key: "a", Value: Array{NumberFromInt(1), NumberFromInt(2)}},
		Member{Key: "b", Value: NewObject()},
		Member{Key: "s", Value: String("line\nbreak \"quoted\" \x01")},
		Member{Key: "n", Value: nil},
	)

	assert.Equal(t, `{"a":[1,2],"b":{},"s":"line\nbreak \"quoted\" \u0001","n":null}`, Write(v))
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ],\n  \"b\": {},\n  \"s\": \"line\\nbreak \\\"quoted\\\" \\u0001\",\n  \"n\": null\n}", WriteIndent(v, "  "))
}

func TestWriter_Primitives(t *testing.T) {
	w := NewWriter()
	w.BeginArray()
	w.Int64(-3)
	w.Uint64(7)
	w.Float64(1.5)
	w.Float32(0.25)
	w.Bool(false)
	w.Null()
	w.StringValue("x")
	w.Raw(`{"pre":"encoded"}`)
	w.EndArray()

	assert.Equal(t, `[-3,7,1.5,0.25,false,null,"x",{"pre":"encoded"}]`, w.String())

	w.Reset()
	w.StringValue("bad \xff byte")
	assert.Equal(t, "\"bad \ufffd byte\"", w.String())
	assert.Equal(t, `"tab\t"`, Quote("tab\t"))
}

func TestEqual(t *testing.T) {
	a := NewObject(Member{Key: "x", Value: num("1")}, Member{Key: "y", Value: Null{}})
	b := NewObject(Member{Key: "y", Value: nil}, Member{Key: "x", Value: num("1.0")})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, NewObject(Member{Key: "x", Value: num("1")})))
	assert.False(t, Equal(Array{String("1")}, Array{num("1")}))
	assert.False(t, Equal(Bool(true), Bool(false)))
}

func TestPeekKind(t *testing.T) {
	tests := map[string]Kind{
		"null": KindNull, "true": KindBool, "false": KindBool, `"s"`: KindString,
		"[]": KindArray, "{}": KindObject, "-1": KindNumber, "7": KindNumber,
	}
	for input, want := range tests {
		got, ok := PeekKind(parsec.NewCursor(input))
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := PeekKind(parsec.NewCursor("x"))
	assert.False(t, ok)
}

// randomValue builds a value tree with at most depth levels of nesting.
func randomValue(r *rand.Rand, depth int) Value {
	kind := r.IntN(6)
	if depth == 0 {
		kind = r.IntN(4)
	}
	switch kind {
	case 0:
		return Null{}
	case 1:
		return Bool(r.IntN(2) == 0)
	case 2:
		if r.IntN(2) == 0 {
			return NumberFromInt(r.Int64() - r.Int64())
		}
		n, _ := NumberFromFloat(r.NormFloat64() * 1e6)
		return n
	case 3:
		return String(randomString(r))
	case 4:
		arr := make(Array, r.IntN(4))
		for i := range arr {
			arr[i] = randomValue(r, depth-1)
		}
		return arr
	default:
		obj := NewObject()
		for i := r.IntN(4); i > 0; i-- {
			obj.Set(randomString(r), randomValue(r, depth-1))
		}
		return obj
	}
}

func randomString(r *rand.Rand) string {
	alphabet := []rune("ab \"\\/\n\t\x00\x1féß日😀\u2028\uFFFD")
	var b strings.Builder
	for i := r.IntN(8); i > 0; i-- {
		b.WriteRune(alphabet[r.IntN(len(alphabet))])
	}
	return b.String()
}

func TestRoundTrip_ParsedStrings(t *testing.T) {
	for _, input := range []string{`"\ud83dx"`, "\"a\uFFFDb\"", `"\u0000\u001f"`, `"日本\u00e9"`} {
		v := mustParse(t, input)
		again, err := Parse(Write(v)).Get()
		require.NoError(t, err, input)
		assert.True(t, Equal(v, again), "round trip of %s", input)
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		v := randomValue(r, 4)

		compact, err := Parse(Write(v)).Get()
		require.NoError(t, err, Write(v))
		assert.True(t, Equal(v, compact), "compact round trip of %s", Write(v))

		indented, err := Parse(WriteIndent(v, "\t")).Get()
		require.NoError(t, err)
		assert.True(t, Equal(v, indented), "indented round trip of %s", Write(v))
	}
}

func TestGrammar_ConcurrentUse(t *testing.T) {
	inputs := []string{
		`{"a": [1, 2, {"b": null}], "c": "d"}`,
		`[true, false, -0.5e10]`,
		`{"broken": [1,}`,
	}
	want := make([]string, len(inputs))
	for i, in := range inputs {
		v, err := Parse(in).Get()
		if err != nil {
			want[i] = err.Error()
			continue
		}
		want[i] = Write(v)
	}

	var g errgroup.Group
	for worker := 0; worker < 8; worker++ {
		g.Go(func() error {
			for i, in := range inputs {
				var got string
				v, err := Parse(in).Get()
				if err != nil {
					got = err.Error()
				} else {
					got = Write(v)
				}
				if got != want[i] {
					return fmt.Errorf("input %q: got %s, want %s", in, got, want[i])
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
