package jsonv

import (
	"math"
	"strconv"
	"unicode/utf8"
)

type frame struct {
	count    int
	afterKey bool
}

// Writer builds JSON text. Calls describe the document structure in order;
// the writer inserts separators and, when an indent is set, line breaks.
// Writer methods never fail. Callers are expected to balance Begin and End
// calls and to call Key before each object member.
type Writer struct {
	buf    []byte
	indent string
	stack  []frame
}

// NewWriter returns a writer producing compact output.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// NewIndentWriter returns a writer that puts each element on its own line,
// indented by indent per level.
func NewIndentWriter(indent string) *Writer {
	w := NewWriter()
	w.indent = indent
	return w
}

// Bytes returns the text written so far. The slice aliases the writer's
// buffer until the next write.
func (w *Writer) Bytes() []byte { return w.buf }

// String returns the text written so far.
func (w *Writer) String() string { return string(w.buf) }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards everything written.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.stack = w.stack[:0]
}

func (w *Writer) newline() {
	if w.indent == "" {
		return
	}
	w.buf = append(w.buf, '\n')
	for range w.stack {
		w.buf = append(w.buf, w.indent...)
	}
}

// beforeValue writes the separator that precedes a value.
func (w *Writer) beforeValue() {
	if len(w.stack) == 0 {
		return
	}
	top := &w.stack[len(w.stack)-1]
	if top.afterKey {
		top.afterKey = false
		return
	}
	if top.count > 0 {
		w.buf = append(w.buf, ',')
	}
	top.count++
	w.newline()
}

// Key starts an object member.
func (w *Writer) Key(k string) {
	if len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		if top.count > 0 {
			w.buf = append(w.buf, ',')
		}
		top.count++
		w.newline()
		top.afterKey = true
	}
	w.buf = appendQuoted(w.buf, k)
	w.buf = append(w.buf, ':')
	if w.indent != "" {
		w.buf = append(w.buf, ' ')
	}
}

// BeginObject opens an object.
func (w *Writer) BeginObject() { w.open('{') }

// EndObject closes the innermost object.
func (w *Writer) EndObject() { w.close('}') }

// BeginArray opens an array.
func (w *Writer) BeginArray() { w.open('[') }

// EndArray closes the innermost array.
func (w *Writer) EndArray() { w.close(']') }

func (w *Writer) open(b byte) {
	w.beforeValue()
	w.buf = append(w.buf, b)
	w.stack = append(w.stack, frame{})
}

func (w *Writer) close(b byte) {
	if len(w.stack) == 0 {
		w.buf = append(w.buf, b)
		return
	}
	n := w.stack[len(w.stack)-1].count
	w.stack = w.stack[:len(w.stack)-1]
	if n > 0 {
		w.newline()
	}
	w.buf = append(w.buf, b)
}

// Null writes null.
func (w *Writer) Null() {
	w.beforeValue()
	w.buf = append(w.buf, "null"...)
}

// Bool writes a boolean.
func (w *Writer) Bool(b bool) {
	w.beforeValue()
	w.buf = strconv.AppendBool(w.buf, b)
}

// StringValue writes a quoted, escaped string.
func (w *Writer) StringValue(s string) {
	w.beforeValue()
	w.buf = appendQuoted(w.buf, s)
}

// Int64 writes an integer.
func (w *Writer) Int64(i int64) {
	w.beforeValue()
	w.buf = strconv.AppendInt(w.buf, i, 10)
}

// Uint64 writes an unsigned integer.
func (w *Writer) Uint64(u uint64) {
	w.beforeValue()
	w.buf = strconv.AppendUint(w.buf, u, 10)
}

// Float64 writes a float with the shortest representation that reads back
// to the same value. NaN and the infinities are written as null.
func (w *Writer) Float64(f float64) {
	w.float(f, 64)
}

// Float32 is Float64 for float32 precision.
func (w *Writer) Float32(f float32) {
	w.float(float64(f), 32)
}

func (w *Writer) float(f float64, bits int) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		w.Null()
		return
	}
	w.beforeValue()
	w.buf = strconv.AppendFloat(w.buf, f, 'g', -1, bits)
}

// Number writes a number.
func (w *Writer) Number(n Number) {
	w.beforeValue()
	w.buf = append(w.buf, n.String()...)
}

// Raw writes pre-encoded JSON text as one value. The text is not checked.
func (w *Writer) Raw(text string) {
	w.beforeValue()
	w.buf = append(w.buf, text...)
}

// Value writes v.
func (w *Writer) Value(v Value) {
	switch v := v.(type) {
	case nil, Null:
		w.Null()
	case Bool:
		w.Bool(bool(v))
	case Number:
		w.Number(v)
	case String:
		w.StringValue(string(v))
	case Array:
		w.BeginArray()
		for _, e := range v {
			w.Value(e)
		}
		w.EndArray()
	case *Object:
		w.BeginObject()
		for _, m := range v.Members() {
			w.Key(m.Key)
			w.Value(m.Value)
		}
		w.EndObject()
	default:
		panic("jsonv: unknown value type")
	}
}

// Write serializes v compactly.
func Write(v Value) string {
	w := NewWriter()
	w.Value(v)
	return w.String()
}

// WriteIndent serializes v with one element per line.
func WriteIndent(v Value, indent string) string {
	w := NewIndentWriter(indent)
	w.Value(v)
	return w.String()
}

const hexDigits = "0123456789abcdef"

// Quote returns s as a JSON string literal.
func Quote(s string) string {
	return string(appendQuoted(make([]byte, 0, len(s)+2), s))
}

func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' && c < utf8.RuneSelf {
			i++
			continue
		}
		if c < utf8.RuneSelf {
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\b':
				dst = append(dst, '\\', 'b')
			case '\f':
				dst = append(dst, '\\', 'f')
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, "\ufffd"...)
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
