package parsec

import (
	"fmt"
	"sync"
)

// Option is the value of an Optional parser.
type Option[T any] struct {
	Value   T
	Present bool
}

// Succeed consumes nothing and yields v.
func Succeed[T any](v T) Parser[T] {
	return func(c Cursor) Result[T] {
		return Success(v, c)
	}
}

// Fail consumes nothing and fails expecting the given thing.
func Fail[T any](expected string) Parser[T] {
	return func(c Cursor) Result[T] {
		return Failed[T](c.Fail(expected))
	}
}

// Failf consumes nothing and fails with a formatted message.
func Failf[T any](kind Kind, format string, args ...any) Parser[T] {
	return func(c Cursor) Result[T] {
		return Failed[T](c.Failf(kind, fmt.Sprintf(format, args...)))
	}
}

// Position yields the current offset without consuming anything.
var Position Parser[int] = func(c Cursor) Result[int] {
	return Success(c.off, c)
}

// Map transforms the value of a successful parse.
func Map[T, U any](p Parser[T], f func(T) U) Parser[U] {
	return func(c Cursor) Result[U] {
		r := p(c)
		if r.Err != nil {
			return Coerce[U](r)
		}
		return Result[U]{Value: f(r.Value), Next: r.Next, hint: r.hint}
	}
}

// TryMap transforms the value of a successful parse with a fallible step.
// When f fails, the parse fails with kind at the offset where p started.
func TryMap[T, U any](p Parser[T], kind Kind, f func(T) (U, error)) Parser[U] {
	return func(c Cursor) Result[U] {
		r := p(c)
		if r.Err != nil {
			return Coerce[U](r)
		}
		v, err := f(r.Value)
		if err != nil {
			return Failed[U](c.Failf(kind, err.Error()))
		}
		return Result[U]{Value: v, Next: r.Next, hint: r.hint}
	}
}

// Discard runs p and drops its value.
func Discard[T any](p Parser[T]) Parser[struct{}] {
	return Map(p, func(T) struct{} { return struct{}{} })
}

// Bind runs p and then the parser f builds from its value.
func Bind[T, U any](p Parser[T], f func(T) Parser[U]) Parser[U] {
	return func(c Cursor) Result[U] {
		r := p(c)
		if r.Err != nil {
			return Coerce[U](r)
		}
		return f(r.Value)(r.Next).WithHint(r.hint)
	}
}

// Seq runs the parsers in order and collects their values.
func Seq[T any](ps ...Parser[T]) Parser[[]T] {
	return func(c Cursor) Result[[]T] {
		out := make([]T, 0, len(ps))
		cur := c
		var hint *Failure
		for _, p := range ps {
			r := p(cur).WithHint(hint)
			if r.Err != nil {
				return Coerce[[]T](r)
			}
			out = append(out, r.Value)
			hint = r.hint
			cur = r.Next
		}
		return Success(out, cur).WithHint(hint)
	}
}

// Seq2 runs two parsers in order and combines their values.
func Seq2[A, B, R any](pa Parser[A], pb Parser[B], combine func(A, B) R) Parser[R] {
	return func(c Cursor) Result[R] {
		ra := pa(c)
		if ra.Err != nil {
			return Coerce[R](ra)
		}
		rb := pb(ra.Next).WithHint(ra.hint)
		if rb.Err != nil {
			return Coerce[R](rb)
		}
		return Success(combine(ra.Value, rb.Value), rb.Next).WithHint(rb.hint)
	}
}

// Seq3 runs three parsers in order and combines their values.
func Seq3[A, B, C, R any](pa Parser[A], pb Parser[B], pc Parser[C], combine func(A, B, C) R) Parser[R] {
	type ab struct {
		a A
		b B
	}
	first := Seq2(pa, pb, func(a A, b B) ab { return ab{a, b} })
	return Seq2(first, pc, func(x ab, v C) R { return combine(x.a, x.b, v) })
}

// Seq4 runs four parsers in order and combines their values.
func Seq4[A, B, C, D, R any](pa Parser[A], pb Parser[B], pc Parser[C], pd Parser[D], combine func(A, B, C, D) R) Parser[R] {
	type abc struct {
		a A
		b B
		c C
	}
	first := Seq3(pa, pb, pc, func(a A, b B, v C) abc { return abc{a, b, v} })
	return Seq2(first, pd, func(x abc, d D) R { return combine(x.a, x.b, x.c, d) })
}

// Left runs pa then pb and keeps the value of pa.
func Left[A, B any](pa Parser[A], pb Parser[B]) Parser[A] {
	return Seq2(pa, pb, func(a A, _ B) A { return a })
}

// Right runs pa then pb and keeps the value of pb.
func Right[A, B any](pa Parser[A], pb Parser[B]) Parser[B] {
	return Seq2(pa, pb, func(_ A, b B) B { return b })
}

// Between parses open, p, close and keeps the value of p.
func Between[O, T, C any](open Parser[O], p Parser[T], close Parser[C]) Parser[T] {
	return Left(Right(open, p), close)
}

// Choice tries each alternative from the same cursor and returns the first
// success. When every alternative fails, the failure that got furthest is
// returned; on a tie the earliest alternative's failure wins. A failed
// alternative never influences the cursor or hints of a later success.
func Choice[T any](ps ...Parser[T]) Parser[T] {
	return func(c Cursor) Result[T] {
		var best *Failure
		for _, p := range ps {
			r := p(c)
			if r.Err == nil {
				return r
			}
			if r.Err.committed() {
				return r
			}
			if best == nil || r.Err.Offset > best.Offset {
				best = r.Err
			}
		}
		if best == nil {
			return Failed[T](c.Fail("one of no alternatives"))
		}
		return Failed[T](best)
	}
}

// Many applies p until it fails and collects the values. It never fails on
// a syntax failure of p; the failure is kept as a hint. An iteration that
// succeeds without consuming input ends the loop.
func Many[T any](p Parser[T]) Parser[[]T] {
	return func(c Cursor) Result[[]T] {
		return many(p, c, nil)
	}
}

// Many1 is Many but requires at least one success.
func Many1[T any](p Parser[T]) Parser[[]T] {
	return func(c Cursor) Result[[]T] {
		first := p(c)
		if first.Err != nil {
			return Coerce[[]T](first)
		}
		if first.Next.off == c.off {
			return Success([]T{first.Value}, first.Next).WithHint(first.hint)
		}
		return many(p, first.Next, []T{first.Value}).WithHint(first.hint)
	}
}

func many[T any](p Parser[T], c Cursor, out []T) Result[[]T] {
	cur := c
	var hint *Failure
	for {
		r := p(cur)
		if r.Err != nil {
			if r.Err.committed() {
				return Coerce[[]T](r)
			}
			hint = merge(hint, r.Err)
			break
		}
		out = append(out, r.Value)
		progressed := r.Next.off > cur.off
		cur = r.Next
		hint = merge(hint, r.hint)
		if !progressed {
			break
		}
	}
	if out == nil {
		out = []T{}
	}
	return Success(out, cur).WithHint(hint)
}

// Optional runs p and reports whether it matched. A syntax failure of p is
// discarded (kept only as a hint) and the cursor is left where it was.
func Optional[T any](p Parser[T]) Parser[Option[T]] {
	return func(c Cursor) Result[Option[T]] {
		r := p(c)
		if r.Err != nil {
			if r.Err.committed() {
				return Coerce[Option[T]](r)
			}
			return Success(Option[T]{}, c).WithHint(r.Err)
		}
		return Result[Option[T]]{Value: Option[T]{Value: r.Value, Present: true}, Next: r.Next, hint: r.hint}
	}
}

// SepBy parses zero or more p separated by sep. A separator that is not
// followed by p fails the parse at the position of the missing item.
func SepBy[T, S any](p Parser[T], sep Parser[S]) Parser[[]T] {
	more := SepBy1(p, sep)
	return func(c Cursor) Result[[]T] {
		r := more(c)
		if r.Err == nil || r.Err.committed() || r.Err.Offset > c.off {
			return r
		}
		return Success([]T{}, c).WithHint(r.Err)
	}
}

// SepBy1 parses one or more p separated by sep.
func SepBy1[T, S any](p Parser[T], sep Parser[S]) Parser[[]T] {
	return func(c Cursor) Result[[]T] {
		first := p(c)
		if first.Err != nil {
			return Coerce[[]T](first)
		}
		out := []T{first.Value}
		cur := first.Next
		hint := first.hint
		for {
			s := sep(cur)
			if s.Err != nil {
				if s.Err.committed() {
					return Coerce[[]T](s)
				}
				hint = merge(hint, s.Err)
				break
			}
			item := p(s.Next).WithHint(merge(hint, s.hint))
			if item.Err != nil {
				return Coerce[[]T](item)
			}
			out = append(out, item.Value)
			hint = item.hint
			cur = item.Next
		}
		return Success(out, cur).WithHint(hint)
	}
}

// Lazy defers building a parser until it is first used, which allows
// recursive grammars. The parser is built once.
func Lazy[T any](build func() Parser[T]) Parser[T] {
	var (
		once sync.Once
		p    Parser[T]
	)
	return func(c Cursor) Result[T] {
		once.Do(func() { p = build() })
		return p(c)
	}
}

// Label replaces the expectation of a syntax failure that happened before p
// consumed anything.
func Label[T any](p Parser[T], expected string) Parser[T] {
	return func(c Cursor) Result[T] {
		r := p(c)
		if r.Err == nil || r.Err.Offset != c.off || r.Err.Kind != KindSyntax || r.Err.Message != "" {
			return r
		}
		f := *r.Err
		f.Expected = expected
		return Failed[T](&f)
	}
}

// Span runs p and yields the input it consumed.
func Span[T any](p Parser[T]) Parser[string] {
	return func(c Cursor) Result[string] {
		r := p(c)
		if r.Err != nil {
			return Coerce[string](r)
		}
		return Result[string]{Value: c.Slice(r.Next), Next: r.Next, hint: r.hint}
	}
}

// Nested runs p one nesting level deeper and fails with a resource failure
// when that would exceed the cursor's depth limit.
func Nested[T any](p Parser[T]) Parser[T] {
	return func(c Cursor) Result[T] {
		if c.depth >= c.MaxDepth() {
			return Failed[T](c.Failf(KindResource, fmt.Sprintf("maximum nesting depth %d exceeded", c.MaxDepth())))
		}
		inner := c
		inner.depth++
		r := p(inner)
		if r.Err == nil {
			r.Next.depth = c.depth
		}
		return r
	}
}
