package parsec

import "github.com/mcncl/serdegen/result"

// Parser consumes input from a Cursor. Parsers must be pure: the same cursor
// always produces the same result and nothing outside the result is changed.
type Parser[T any] func(Cursor) Result[T]

// Result is the outcome of running a Parser: a value plus the cursor after it,
// or a Failure.
type Result[T any] struct {
	Value T
	Next  Cursor
	Err   *Failure

	// hint is the furthest failure a sub-parser hit without failing the
	// whole parse. It only ever replaces a later, less specific failure.
	hint *Failure
}

// Success returns a successful result.
func Success[T any](v T, next Cursor) Result[T] {
	return Result[T]{Value: v, Next: next}
}

// Failed returns a failed result.
func Failed[T any](f *Failure) Result[T] {
	return Result[T]{Err: f}
}

// Coerce re-types a failed result. It panics when r succeeded.
func Coerce[U, T any](r Result[T]) Result[U] {
	if r.Err == nil {
		panic("parsec: Coerce on successful result")
	}
	return Result[U]{Err: r.Err}
}

// OK reports whether the parse succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Failure returns the failure of a failed result, or nil.
func (r Result[T]) Failure() *Failure { return r.Err }

// Hint returns the furthest non-fatal failure recorded by a successful
// result, or nil.
func (r Result[T]) Hint() *Failure { return r.hint }

// WithHint folds h into r. A failed result keeps whichever failure is
// furthest; a successful result records h when it could still explain a
// later failure.
func (r Result[T]) WithHint(h *Failure) Result[T] {
	if h == nil {
		return r
	}
	if r.Err != nil {
		if !r.Err.committed() {
			r.Err = merge(h, r.Err)
		}
		return r
	}
	r.hint = merge(r.hint, h)
	if r.hint.Offset < r.Next.off {
		r.hint = nil
	}
	return r
}

// ToResult converts r into a result.Result whose error is the *Failure.
func (r Result[T]) ToResult() result.Result[T] {
	if r.Err != nil {
		return result.Err[T](r.Err)
	}
	return result.Ok(r.Value)
}

// Parse runs p at c.
func (p Parser[T]) Parse(c Cursor) Result[T] { return p(c) }

// Complete wraps p so that it skips leading whitespace, runs p, skips
// trailing whitespace and then requires the end of input.
func Complete[T any](p Parser[T]) Parser[T] {
	return Left(Right(SkipWhitespace, p), Right(SkipWhitespace, EOF))
}

// Run parses the whole of text with p.
func Run[T any](p Parser[T], text string, opts Options) result.Result[T] {
	return Complete(p)(NewCursorWithOptions(text, opts)).ToResult()
}
