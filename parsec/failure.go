package parsec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind classifies a Failure.
type Kind int

const (
	// KindSyntax means the input does not match the grammar.
	KindSyntax Kind = iota
	// KindCodec means the input is well formed but does not fit the shape a
	// codec expects: a missing field, a string where a number belongs, an
	// integer that overflows.
	KindCodec
	// KindResource means a configured limit was exceeded.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindCodec:
		return "codec"
	case KindResource:
		return "resource"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Failure describes why a parse or decode did not succeed.
//
// Codec and resource failures are committed: combinators that would otherwise
// backtrack (Choice, Many, Optional) pass them straight through.
type Failure struct {
	Kind     Kind
	Offset   int
	Expected string
	Message  string
	// Path holds the field path of a codec failure, outermost segment first.
	Path []string

	input string
}

// Error implements error.
func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	b.WriteString(" error")
	if len(f.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(f.Pointer())
		fmt.Fprintf(&b, " (offset %d)", f.Offset)
	} else {
		fmt.Fprintf(&b, " at offset %d", f.Offset)
	}
	b.WriteString(": ")
	b.WriteString(f.Description())
	return b.String()
}

// Description returns the message, or "expected ..." when there is none.
func (f *Failure) Description() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Expected != "" {
		return "expected " + f.Expected
	}
	return "parse failed"
}

// Input returns the text the failure was produced from.
func (f *Failure) Input() string { return f.input }

// Pointer renders Path as an RFC 6901 JSON Pointer ("" for the root).
func (f *Failure) Pointer() string {
	if len(f.Path) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range f.Path {
		b.WriteByte('/')
		seg = strings.ReplaceAll(seg, "~", "~0")
		seg = strings.ReplaceAll(seg, "/", "~1")
		b.WriteString(seg)
	}
	return b.String()
}

// WithPath returns a copy of f with seg prepended to its path.
func (f *Failure) WithPath(seg string) *Failure {
	cp := *f
	cp.Path = make([]string, 0, len(f.Path)+1)
	cp.Path = append(cp.Path, seg)
	cp.Path = append(cp.Path, f.Path...)
	return &cp
}

// Position returns the 1-based line and column (in runes) of the offset.
func (f *Failure) Position() (line, column int) {
	start := lineStart(f.input, f.Offset)
	line = strings.Count(f.input[:start], "\n") + 1
	column = utf8.RuneCountInString(f.input[start:clampOffset(f.input, f.Offset)]) + 1
	return line, column
}

// Pretty renders the failure with the offending input line and a caret under
// the failing column:
//
//	line 1, column 6: expected ']':
//	[1, 2
//	     ^
func (f *Failure) Pretty() string {
	off := clampOffset(f.input, f.Offset)
	start := lineStart(f.input, off)
	end := strings.IndexByte(f.input[off:], '\n')
	if end < 0 {
		end = len(f.input)
	} else {
		end += off
	}
	line, column := f.Position()

	var b strings.Builder
	fmt.Fprintf(&b, "line %d, column %d: %s", line, column, f.Description())
	if len(f.Path) > 0 {
		fmt.Fprintf(&b, " (at %s)", f.Pointer())
	}
	b.WriteString(":\n")
	b.WriteString(strings.TrimRight(f.input[start:end], "\r"))
	b.WriteByte('\n')
	for _, r := range f.input[start:off] {
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString("^\n")
	return b.String()
}

func clampOffset(s string, off int) int {
	if off < 0 {
		return 0
	}
	if off > len(s) {
		return len(s)
	}
	return off
}

func lineStart(s string, off int) int {
	off = clampOffset(s, off)
	return strings.LastIndexByte(s[:off], '\n') + 1
}

func (f *Failure) committed() bool {
	return f.Kind != KindSyntax
}

// merge picks the more specific of two failures: the one with the larger
// offset. Equal offsets combine their expectations when both are plain
// syntax failures; otherwise b is kept.
func merge(a, b *Failure) *Failure {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Offset > b.Offset:
		return a
	case b.Offset > a.Offset:
		return b
	}
	if a.Kind != KindSyntax || b.Kind != KindSyntax || a.Message != "" || b.Message != "" {
		return b
	}
	if a.Expected == "" || hasAlternative(a.Expected, b.Expected) {
		return b.withExpected(a.Expected, b.Expected)
	}
	return b.withExpected(a.Expected + " or " + b.Expected)
}

func hasAlternative(list, want string) bool {
	for _, alt := range strings.Split(list, " or ") {
		if alt == want {
			return true
		}
	}
	return false
}

func (f *Failure) withExpected(expected ...string) *Failure {
	cp := *f
	for _, e := range expected {
		if e != "" {
			cp.Expected = e
			break
		}
	}
	return &cp
}
