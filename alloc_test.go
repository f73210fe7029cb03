// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"errors"
	"testing"
)

func TestLimitAllocator(t *testing.T) {
	a := NewLimitAllocator(10)
	b, err := a.Allocate(6)
	if err != nil {
		t.Fatalf("Allocate(6) error = %v", err)
	}
	if a.InUse() != 6 {
		t.Errorf("InUse() = %d, want 6", a.InUse())
	}
	if _, err = a.Allocate(5); !errors.Is(err, ErrAllocation) {
		t.Errorf("Allocate(5) error = %v, want %v", err, ErrAllocation)
	}
	a.Release(b)
	if a.InUse() != 0 {
		t.Errorf("InUse() = %d after Release, want 0", a.InUse())
	}
}

func TestArena(t *testing.T) {
	limit := NewLimitAllocator(16)
	a := NewArena(limit)
	b, err := a.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc(4) error = %v", err)
	}
	b, err = a.Append(b[:0], []byte("hello world"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if string(b) != "hello world" {
		t.Errorf("Append() = %q, want %q", b, "hello world")
	}
	if limit.InUse() != 11 {
		t.Errorf("InUse() = %d, want 11", limit.InUse())
	}
	if _, err = a.Copy(make([]byte, 6)); !errors.Is(err, ErrAllocation) {
		t.Errorf("Copy() error = %v, want %v", err, ErrAllocation)
	}
	a.Release()
	if limit.InUse() != 0 {
		t.Errorf("InUse() = %d after Release, want 0", limit.InUse())
	}
}

func TestArena_Heap(t *testing.T) {
	a := NewArena(nil)
	b, err := a.Copy([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if len(b) != 3 || b[2] != 3 {
		t.Errorf("Copy() = %v, want [1 2 3]", b)
	}
	a.Release()
}
