// Package result provides a two-variant container used as the return type of
// fallible parse and decode entry points.
package result

// Result holds either a value (Ok) or an error (Err). The zero value is an Err
// with a nil error and should not be used; construct with Ok or Err.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok returns a successful Result holding v.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Err returns a failed Result holding err.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether r holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether r holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Value returns the held value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Error returns the held error, or nil for an Ok result.
func (r Result[T]) Error() error {
	if r.ok {
		return nil
	}
	return r.err
}

// Get converts r into Go's usual (value, error) pair.
func (r Result[T]) Get() (T, error) {
	if r.ok {
		return r.value, nil
	}
	var zero T
	return zero, r.err
}

// OrElse returns the held value, or def when r is an Err.
func (r Result[T]) OrElse(def T) T {
	if r.ok {
		return r.value
	}
	return def
}

// MustGet returns the held value and panics when r is an Err.
func (r Result[T]) MustGet() T {
	if !r.ok {
		panic("result: MustGet on error result: " + errString(r.err))
	}
	return r.value
}

// Map transforms the value of an Ok result; errors pass through unchanged.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Err[U](r.err)
	}
	return Ok(fn(r.value))
}

// FlatMap chains a fallible step onto an Ok result.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if !r.ok {
		return Err[U](r.err)
	}
	return fn(r.value)
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
