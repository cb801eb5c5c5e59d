// Package stream lifts plain functions into iterator-based streams.
// A Stream yields (value, nil) pairs and ends either when the source is exhausted
// or after yielding a single (zero, err) pair.
package stream

import (
	"iter"
	"sync"
)

// Stream is a pull-based sequence of elements where a non-nil error terminates it.
type Stream[T any] = iter.Seq2[T, error]

// Just yields the given values and completes.
func Just[T any](values ...T) Stream[T] {
	return FromSlice(values)
}

// FromSlice yields each element of values in order.
func FromSlice[T any](values []T) Stream[T] {
	return func(yield func(T, error) bool) {
		for _, v := range values {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Fail yields a single terminal error.
func Fail[T any](err error) Stream[T] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Empty completes without yielding.
func Empty[T any]() Stream[T] {
	return func(func(T, error) bool) {}
}

// Map applies fn to every element. Upstream errors pass through unchanged.
func Map[T, U any](src Stream[T], fn func(T) U) Stream[U] {
	return TryMap(src, func(v T) (U, error) { return fn(v), nil })
}

// TryMap applies fn to every element; the first failure terminates the stream with that error.
func TryMap[T, U any](src Stream[T], fn func(T) (U, error)) Stream[U] {
	return func(yield func(U, error) bool) {
		var zero U
		for v, err := range src {
			if err != nil {
				yield(zero, err)
				return
			}
			out, err := fn(v)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Filter forwards elements for which keep returns true.
func Filter[T any](src Stream[T], keep func(T) bool) Stream[T] {
	return func(yield func(T, error) bool) {
		for v, err := range src {
			if err != nil {
				yield(v, err)
				return
			}
			if !keep(v) {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Do calls fn for every element before forwarding it.
func Do[T any](src Stream[T], fn func(T)) Stream[T] {
	return func(yield func(T, error) bool) {
		for v, err := range src {
			if err == nil {
				fn(v)
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Catch replaces a terminal upstream error with the element returned by recoverFn.
// The stream completes after the replacement element.
func Catch[T any](src Stream[T], recoverFn func(error) T) Stream[T] {
	return func(yield func(T, error) bool) {
		for v, err := range src {
			if err != nil {
				yield(recoverFn(err), nil)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Collect drains src, returning every element seen before the first error.
func Collect[T any](src Stream[T]) ([]T, error) {
	var out []T
	for v, err := range src {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

type sharedItem[T any] struct {
	v   T
	err error
}

// Share returns a stream that pulls src at most once. Every consumer sees the same
// elements; a consumer arriving later replays what was already pulled and then
// continues pulling from where src was left.
// The source stays suspended while no consumer has drained it to the end.
func Share[T any](src Stream[T]) Stream[T] {
	var (
		mu   sync.Mutex
		seen []sharedItem[T]
		next func() (T, error, bool)
		stop func()
		done bool
	)
	return func(yield func(T, error) bool) {
		for i := 0; ; i++ {
			mu.Lock()
			if i == len(seen) && !done {
				if next == nil {
					next, stop = iter.Pull2(src)
				}
				v, err, ok := next()
				if ok {
					seen = append(seen, sharedItem[T]{v: v, err: err})
				}
				if !ok || err != nil {
					done = true
					stop()
				}
			}
			if i >= len(seen) {
				mu.Unlock()
				return
			}
			item := seen[i]
			mu.Unlock()

			if !yield(item.v, item.err) || item.err != nil {
				return
			}
		}
	}
}
