// Package parsec is a small parser-combinator engine.
//
// A Parser is a pure function from an immutable Cursor to a Result. Parsers
// hold no mutable state, so a single parser value can be shared by any number
// of goroutines. Primitives (Literal, Char, CharClass, TakeWhile) consume
// input; combinators (Seq, Choice, Many, Optional, Between, SepBy, ...) build
// larger parsers from smaller ones.
//
// Failures carry a byte offset and a description of what was expected. When
// several failures compete, the one that got furthest into the input wins,
// which keeps error messages pointed at the real problem rather than at the
// start of the enclosing construct.
package parsec

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxDepth bounds how deeply Nested parsers may recurse.
	DefaultMaxDepth = 512
	// MaxDepthLimit is the largest MaxDepth a cursor accepts. Deeper
	// recursion risks exhausting the goroutine stack.
	MaxDepthLimit = 10000
)

// Options configures a Cursor.
type Options struct {
	// MaxDepth is the deepest level of Nested parsers allowed before parsing
	// fails with a resource failure. Zero means DefaultMaxDepth; values above
	// MaxDepthLimit are clamped to it.
	MaxDepth int
}

type source struct {
	text     string
	maxDepth int
}

// Cursor is an immutable position in an input text. Advancing a cursor
// returns a new cursor; the receiver is never modified.
type Cursor struct {
	src   *source
	off   int
	depth int
}

// NewCursor returns a cursor at the start of text with default options.
func NewCursor(text string) Cursor {
	return NewCursorWithOptions(text, Options{})
}

// NewCursorWithOptions returns a cursor at the start of text.
func NewCursorWithOptions(text string, opts Options) Cursor {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	maxDepth = min(maxDepth, MaxDepthLimit)
	return Cursor{src: &source{text: text, maxDepth: maxDepth}}
}

func (c Cursor) text() string {
	if c.src == nil {
		return ""
	}
	return c.src.text
}

// Input returns the whole input text.
func (c Cursor) Input() string { return c.text() }

// Offset returns the byte offset of the cursor.
func (c Cursor) Offset() int { return c.off }

// Depth returns the current nesting depth.
func (c Cursor) Depth() int { return c.depth }

// MaxDepth returns the nesting limit the cursor was created with.
func (c Cursor) MaxDepth() int {
	if c.src == nil {
		return DefaultMaxDepth
	}
	return c.src.maxDepth
}

// Rest returns the unconsumed input.
func (c Cursor) Rest() string { return c.text()[c.off:] }

// AtEnd reports whether all input has been consumed.
func (c Cursor) AtEnd() bool { return c.off >= len(c.text()) }

// Peek decodes the rune at the cursor. size is 0 at the end of input.
func (c Cursor) Peek() (r rune, size int) {
	if c.AtEnd() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(c.text()[c.off:])
}

// PeekByte returns the byte at the cursor.
func (c Cursor) PeekByte() (byte, bool) {
	if c.AtEnd() {
		return 0, false
	}
	return c.text()[c.off], true
}

// HasPrefix reports whether the unconsumed input starts with s.
func (c Cursor) HasPrefix(s string) bool {
	return strings.HasPrefix(c.Rest(), s)
}

// Advance returns a cursor n bytes further on, clamped to the end of input.
func (c Cursor) Advance(n int) Cursor {
	next := c
	next.off += n
	if end := len(c.text()); next.off > end {
		next.off = end
	}
	return next
}

// At returns a cursor over the same input positioned at offset. It is meant
// for reporting failures at an earlier position; parsing never moves back.
func (c Cursor) At(offset int) Cursor {
	next := c
	switch {
	case offset < 0:
		next.off = 0
	case offset > len(c.text()):
		next.off = len(c.text())
	default:
		next.off = offset
	}
	return next
}

// Slice returns the input between c and a later cursor.
func (c Cursor) Slice(to Cursor) string {
	if to.off < c.off {
		return ""
	}
	return c.text()[c.off:to.off]
}

// Fail returns a syntax failure at the cursor expecting the given thing.
func (c Cursor) Fail(expected string) *Failure {
	return &Failure{Kind: KindSyntax, Offset: c.off, Expected: expected, input: c.text()}
}

// Failf returns a failure of the given kind at the cursor with a message.
func (c Cursor) Failf(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Offset: c.off, Message: message, input: c.text()}
}
