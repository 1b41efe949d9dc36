// Package mempool provides size-bucketed slice pools for scratch buffers on
// the per-image hot paths.
package mempool

import (
	"sync"
)

// Pool hands out reusable []T buffers grouped by size class. The zero value
// is ready to use and safe for concurrent use.
type Pool[T any] struct {
	classes sync.Map // key: size class (int), value: *sync.Pool
}

// Int64 backs the integral images used by adaptive thresholding.
var Int64 Pool[int64]

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func (p *Pool[T]) class(cls int) *sync.Pool {
	pAny, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return pAny.(*sync.Pool) //nolint:forcetypeassert // only *sync.Pool is stored
}

// Get returns a buffer of length n. Its contents are unspecified; callers
// that need zeroes must clear it. Return it with Put when done.
func (p *Pool[T]) Get(n int) []T {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	bufPtr, _ := p.class(cls).Get().(*[]T)
	if bufPtr == nil || cap(*bufPtr) < cls {
		buf := make([]T, cls)
		return buf[:n]
	}
	return (*bufPtr)[:n]
}

// GetZeroed is Get followed by clearing the returned elements.
func (p *Pool[T]) GetZeroed(n int) []T {
	buf := p.Get(n)
	clear(buf)
	return buf
}

// Put returns a buffer to the pool. It is safe to pass a nil slice. Buffers
// whose capacity is not a size class, such as slices of a larger buffer, are
// filed under the largest class they can satisfy.
func (p *Pool[T]) Put(buf []T) {
	if cap(buf) < 1024 {
		return
	}
	cls := cap(buf) / 1024 * 1024
	buf = buf[:cls]
	p.class(cls).Put(&buf)
}
