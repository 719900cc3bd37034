package cursor

// Predicate reports whether a record passes a filter.
type Predicate[T any] func(T) (bool, error)

type filterCursor[T any] struct {
	closer
	src     Cursor[T]
	pred    Predicate[T]
	onError func(T, error)
	pending bool
	item    T
}

// Filter yields only the records of src that pass pred. A predicate error
// counts as a non-match and is reported to onError when it is not nil;
// errors from src itself are returned.
func Filter[T any](src Cursor[T], pred Predicate[T], onError func(T, error)) Cursor[T] {
	c := &filterCursor[T]{src: src, pred: pred, onError: onError}
	c.inner = src.Close
	return c
}

func (c *filterCursor[T]) HasNext() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	for !c.pending {
		ok, err := c.src.HasNext()
		if err != nil || !ok {
			return false, err
		}
		item, err := c.src.Next()
		if err != nil {
			return false, err
		}
		match, err := c.pred(item)
		if err != nil {
			if c.onError != nil {
				c.onError(item, err)
			}
			continue
		}
		if match {
			c.item, c.pending = item, true
		}
	}
	return true, nil
}

func (c *filterCursor[T]) Next() (T, error) {
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

type skipCursor[T any] struct {
	closer
	src Cursor[T]
	// skip counts the records still to discard.
	skip uint64
}

// Skip discards the first n records of src. The records are read lazily on
// the first call to HasNext or Next.
func Skip[T any](src Cursor[T], n uint64) Cursor[T] {
	c := &skipCursor[T]{src: src, skip: n}
	c.inner = src.Close
	return c
}

func (c *skipCursor[T]) HasNext() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	for c.skip > 0 {
		ok, err := c.src.HasNext()
		if err != nil || !ok {
			return false, err
		}
		if _, err := c.src.Next(); err != nil {
			return false, err
		}
		c.skip--
	}
	return c.src.HasNext()
}

func (c *skipCursor[T]) Next() (T, error) {
	if _, err := c.HasNext(); err != nil {
		var zero T
		return zero, err
	}
	return c.src.Next()
}

type limitCursor[T any] struct {
	closer
	src   Cursor[T]
	limit uint64
	count uint64
}

// Limit stops after n records. Closing still reaches src.
func Limit[T any](src Cursor[T], n uint64) Cursor[T] {
	c := &limitCursor[T]{src: src, limit: n}
	c.inner = src.Close
	return c
}

func (c *limitCursor[T]) HasNext() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	if c.count >= c.limit {
		return false, nil
	}
	return c.src.HasNext()
}

func (c *limitCursor[T]) Next() (T, error) {
	var zero T
	ok, err := c.HasNext()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrExhausted
	}
	v, err := c.src.Next()
	if err != nil {
		return zero, err
	}
	c.count++
	return v, nil
}

type mapCursor[T, U any] struct {
	closer
	src Cursor[T]
	fn  func(T) (U, error)
}

// Map transforms each record of src with fn.
func Map[T, U any](src Cursor[T], fn func(T) (U, error)) Cursor[U] {
	c := &mapCursor[T, U]{src: src, fn: fn}
	c.inner = src.Close
	return c
}

func (c *mapCursor[T, U]) HasNext() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	return c.src.HasNext()
}

func (c *mapCursor[T, U]) Next() (U, error) {
	var zero U
	if c.closed {
		return zero, ErrClosed
	}
	v, err := c.src.Next()
	if err != nil {
		return zero, err
	}
	return c.fn(v)
}
