package cursor

import "iter"

type funcCursor[T any] struct {
	closer
	next    func() (T, bool, error)
	pending bool
	done    bool
	item    T
}

// FromFunc builds a cursor over a pull function such as a result set
// scanner. next reports false once the source is exhausted. release runs on
// the first Close, whether or not next was ever called.
func FromFunc[T any](next func() (T, bool, error), release func() error) Cursor[T] {
	c := &funcCursor[T]{next: next}
	c.inner = release
	return c
}

// FromSeq2 pulls from an iterator such as a paginated API client. Close
// stops the iterator, which releases whatever it holds open.
func FromSeq2[T any](seq iter.Seq2[T, error]) Cursor[T] {
	next, stop := iter.Pull2(seq)
	return FromFunc(
		func() (T, bool, error) {
			item, err, ok := next()
			return item, ok, err
		},
		func() error {
			stop()
			return nil
		},
	)
}

func (c *funcCursor[T]) HasNext() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	if c.pending {
		return true, nil
	}
	if c.done {
		return false, nil
	}
	item, ok, err := c.next()
	if err != nil {
		c.done = true
		return false, err
	}
	if !ok {
		c.done = true
		return false, nil
	}
	c.item, c.pending = item, true
	return true, nil
}

func (c *funcCursor[T]) Next() (T, error) {
	var zero T
	ok, err := c.HasNext()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrExhausted
	}
	c.pending = false
	item := c.item
	c.item = zero
	return item, nil
}
