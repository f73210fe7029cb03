// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"sync"
)

// An Allocator provides the memory for the byte buffers of decoded values
// (OCTET STRING, BIT STRING, character strings and raw open types). An
// Allocator must be safe for concurrent use if it is shared between concurrent
// decode calls.
type Allocator interface {
	// Allocate returns a buffer of length n.
	Allocate(n int) ([]byte, error)
	// Reallocate returns a buffer of length n holding the contents of buf. buf
	// must not be used afterward.
	Reallocate(buf []byte, n int) ([]byte, error)
	// Release returns buf to the allocator.
	Release(buf []byte)
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct{}

// Allocate implements [Allocator].
func (HeapAllocator) Allocate(n int) ([]byte, error) {
	return make([]byte, n), nil
}

// Reallocate implements [Allocator].
func (HeapAllocator) Reallocate(buf []byte, n int) ([]byte, error) {
	if n <= cap(buf) {
		return buf[:n], nil
	}
	b := make([]byte, n, max(n, 2*cap(buf)))
	copy(b, buf)
	return b, nil
}

// Release implements [Allocator].
func (HeapAllocator) Release([]byte) {}

// LimitAllocator is a heap allocator that fails once more than a fixed number
// of bytes are in use.
type LimitAllocator struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewLimitAllocator creates an allocator that provides at most limit bytes at
// a time.
func NewLimitAllocator(limit int) *LimitAllocator {
	return &LimitAllocator{limit: limit}
}

// InUse returns the number of bytes currently allocated.
func (a *LimitAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Allocate implements [Allocator].
func (a *LimitAllocator) Allocate(n int) ([]byte, error) {
	if err := a.reserve(n); err != nil {
		return nil, err
	}
	return make([]byte, n), nil
}

// Reallocate implements [Allocator].
func (a *LimitAllocator) Reallocate(buf []byte, n int) ([]byte, error) {
	if err := a.reserve(n - cap(buf)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, buf)
	return b, nil
}

// Release implements [Allocator].
func (a *LimitAllocator) Release(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used = max(0, a.used-cap(buf))
}

func (a *LimitAllocator) reserve(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if a.used+n > a.limit {
		return Errorf(ErrAllocation, "%d bytes requested, %d of %d in use", n, a.used, a.limit)
	}
	a.used += n
	return nil
}

// An Arena records the buffers allocated during a single decode call. If the
// call fails, all buffers are released at once. On success ownership of the
// buffers passes to the caller with the decoded value.
type Arena struct {
	alloc Allocator
	bufs  [][]byte
}

// NewArena creates an arena on top of a. If a is nil the heap is used.
func NewArena(a Allocator) *Arena {
	if a == nil {
		a = HeapAllocator{}
	}
	return &Arena{alloc: a}
}

// Alloc returns a buffer of length n.
func (a *Arena) Alloc(n int) ([]byte, error) {
	b, err := a.alloc.Allocate(n)
	if err != nil {
		return nil, asAllocError(err)
	}
	a.bufs = append(a.bufs, b)
	return b, nil
}

// Copy returns a copy of b allocated in the arena.
func (a *Arena) Copy(b []byte) ([]byte, error) {
	c, err := a.Alloc(len(b))
	if err != nil {
		return nil, err
	}
	copy(c, b)
	return c, nil
}

// Append appends data to buf, which must have been allocated by a, growing it
// as necessary.
func (a *Arena) Append(buf []byte, data []byte) ([]byte, error) {
	n := len(buf) + len(data)
	if n > cap(buf) {
		i := a.index(buf)
		b, err := a.alloc.Reallocate(buf, n)
		if err != nil {
			return nil, asAllocError(err)
		}
		if i >= 0 {
			a.bufs[i] = b
		} else {
			a.bufs = append(a.bufs, b)
		}
		buf = b[:len(buf)]
	}
	return append(buf, data...), nil
}

func (a *Arena) index(buf []byte) int {
	if cap(buf) == 0 {
		return -1
	}
	p := &buf[:cap(buf)][cap(buf)-1]
	for i, b := range a.bufs {
		if cap(b) > 0 && &b[:cap(b)][cap(b)-1] == p {
			return i
		}
	}
	return -1
}

// Release returns all buffers to the underlying allocator.
func (a *Arena) Release() {
	for _, b := range a.bufs {
		a.alloc.Release(b)
	}
	a.bufs = nil
}

func asAllocError(err error) error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return Errorf(ErrAllocation, "%s", err.Error())
}
