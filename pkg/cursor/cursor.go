// Package cursor provides a single-pass, pull-based record stream and the
// decorators the query layer stacks on top of backend results.
package cursor

import (
	"errors"
	"iter"
)

// ErrExhausted is returned by Next when the cursor has no more elements.
var ErrExhausted = errors.New("cursor: no more elements")

// ErrClosed is returned by HasNext and Next after Close.
var ErrClosed = errors.New("cursor: closed")

// Cursor is a forward-only stream. Callers close it exactly once; Close on a
// decorator closes the cursor it wraps, and repeated calls are no-ops.
type Cursor[T any] interface {
	HasNext() (bool, error)
	Next() (T, error)
	Close() error
}

// closer makes Close idempotent and forwards it to an inner resource.
type closer struct {
	closed bool
	inner  func() error
}

func (c *closer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.inner == nil {
		return nil
	}
	return c.inner()
}

type sliceCursor[T any] struct {
	closer
	items []T
	pos   int
}

// FromSlice streams items in order.
func FromSlice[T any](items []T) Cursor[T] {
	return &sliceCursor[T]{items: items}
}

// Empty returns a cursor with no elements.
func Empty[T any]() Cursor[T] {
	return FromSlice[T](nil)
}

func (c *sliceCursor[T]) HasNext() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	return c.pos < len(c.items), nil
}

func (c *sliceCursor[T]) Next() (T, error) {
	var zero T
	ok, err := c.HasNext()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrExhausted
	}
	v := c.items[c.pos]
	c.pos++
	return v, nil
}

// Collect drains c into a slice and closes it.
func Collect[T any](c Cursor[T]) (out []T, err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	for {
		ok, err := c.HasNext()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		v, err := c.Next()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// All adapts c to a range-over-func sequence. The cursor is closed when the
// loop ends, whether it ran to completion or stopped early.
func All[T any](c Cursor[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer c.Close()
		for {
			ok, err := c.HasNext()
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			v, err := c.Next()
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}
