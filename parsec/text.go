package parsec

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Literal consumes exactly s. Its failure expects s itself.
func Literal(s string) Parser[string] {
	return func(c Cursor) Result[string] {
		if !c.HasPrefix(s) {
			return Failed[string](c.Fail(s))
		}
		return Success(s, c.Advance(len(s)))
	}
}

// Char consumes the rune r.
func Char(r rune) Parser[rune] {
	expected := strconv.QuoteRune(r)
	return func(c Cursor) Result[rune] {
		got, size := c.Peek()
		if size == 0 || got != r {
			return Failed[rune](c.Fail(expected))
		}
		return Success(r, c.Advance(size))
	}
}

// CharClass consumes one rune satisfying pred. desc names the class in
// failures.
func CharClass(desc string, pred func(rune) bool) Parser[rune] {
	return func(c Cursor) Result[rune] {
		got, size := c.Peek()
		if size == 0 || !pred(got) {
			return Failed[rune](c.Fail(desc))
		}
		return Success(got, c.Advance(size))
	}
}

// AnyRune consumes one rune.
var AnyRune = CharClass("any character", func(rune) bool { return true })

// TakeWhile consumes the longest run of runes satisfying pred. It never
// fails; the run may be empty.
func TakeWhile(pred func(rune) bool) Parser[string] {
	return func(c Cursor) Result[string] {
		n := scan(c.Rest(), pred)
		next := c.Advance(n)
		return Success(c.Slice(next), next)
	}
}

// TakeWhile1 is TakeWhile but requires at least one rune.
func TakeWhile1(desc string, pred func(rune) bool) Parser[string] {
	return func(c Cursor) Result[string] {
		n := scan(c.Rest(), pred)
		if n == 0 {
			return Failed[string](c.Fail(desc))
		}
		next := c.Advance(n)
		return Success(c.Slice(next), next)
	}
}

func scan(s string, pred func(rune) bool) int {
	i := 0
	for i < len(s) {
		var r rune
		size := 1
		if b := s[i]; b < utf8.RuneSelf {
			r = rune(b)
		} else {
			r, size = utf8.DecodeRuneInString(s[i:])
		}
		if !pred(r) {
			break
		}
		i += size
	}
	return i
}

// IsSpace reports whether r is JSON insignificant whitespace.
func IsSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// SkipWhitespace consumes any run of space, tab, newline and carriage return.
var SkipWhitespace Parser[struct{}] = func(c Cursor) Result[struct{}] {
	rest := c.Rest()
	trimmed := strings.TrimLeft(rest, " \t\n\r")
	return Success(struct{}{}, c.Advance(len(rest)-len(trimmed)))
}

// Token runs p and then skips trailing whitespace.
func Token[T any](p Parser[T]) Parser[T] {
	return Left(p, SkipWhitespace)
}

// EOF succeeds only at the end of input.
var EOF Parser[struct{}] = func(c Cursor) Result[struct{}] {
	if !c.AtEnd() {
		return Failed[struct{}](c.Fail("end of input"))
	}
	return Success(struct{}{}, c)
}
