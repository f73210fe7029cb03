// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt_test

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/asn1test"
	"codello.dev/asn1rt/internal/codec"
	"codello.dev/asn1rt/random"
)

func TestRoundTrip(t *testing.T) {
	fixed := map[string]struct {
		d *asn1rt.Descriptor
		v asn1rt.Value
	}{
		"Everything": {asn1test.Everything, asn1test.EverythingValue()},
		"Minimal":    {asn1test.Everything, asn1test.MinimalValue()},
		"X":          {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}},
	}
	for _, r := range codec.All() {
		t.Run(r.Name, func(t *testing.T) {
			for name, tt := range fixed {
				if _, err := r.RoundTrip(tt.d, tt.v); err != nil {
					t.Errorf("%s: %v", name, err)
				}
			}
		})
	}
}

func TestRoundTrip_Random(t *testing.T) {
	types := map[string]*asn1rt.Descriptor{
		"Everything": asn1test.Everything,
		"Node":       asn1test.Node,
		"Message":    asn1test.Message,
		"Versioned":  asn1test.V2,
		"Bag":        asn1test.Bag,
		"Shape":      asn1test.Shape,
		"Color":      asn1test.Color,
	}
	for name, d := range types {
		t.Run(name, func(t *testing.T) {
			for seed := range uint64(25) {
				v, err := random.New(seed).Generate(d)
				if err != nil {
					t.Fatalf("Generate(seed %d) error = %v", seed, err)
				}
				for _, r := range codec.All() {
					if b, err := r.RoundTrip(d, v); err != nil {
						t.Errorf("seed %d: %v\n%s", seed, err, printable(r, b))
					}
				}
			}
		})
	}
}

func printable(r codec.Rule, b []byte) string {
	if r.Text {
		return string(b)
	}
	return hex.EncodeToString(b)
}

// TestTranscode decodes a BER encoding and passes the value through every
// rule.
func TestTranscode(t *testing.T) {
	der, _ := codec.Lookup("der")
	v, n, err := der.Decode(asn1test.X, []byte{0x30, 0x03, 0x02, 0x01, 0x05}, nil)
	if err != nil || n != 5 {
		t.Fatalf("Decode() = %v, %d, %v", v, n, err)
	}
	want := asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}
	if !asn1rt.Equal(v, want) {
		t.Fatalf("Decode() = %v, want %v", v, want)
	}
	for _, r := range codec.All() {
		b, err := r.Encode(asn1test.X, v)
		if err != nil {
			t.Errorf("%s: Encode() error = %v", r.Name, err)
			continue
		}
		got, _, err := r.Decode(asn1test.X, b, nil)
		if err != nil || !asn1rt.Equal(got, want) {
			t.Errorf("%s: Decode(%s) = %v, %v, want %v", r.Name, printable(r, b), got, err, want)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, name := range codec.Names() {
		if r, ok := codec.Lookup(name); !ok || r.Name != name {
			t.Errorf("Lookup(%q) = %q, %v", name, r.Name, ok)
		}
	}
	if _, ok := codec.Lookup("cer"); ok {
		t.Errorf("Lookup(%q) succeeded", "cer")
	}
}

func TestDecode_Concurrent(t *testing.T) {
	v := asn1test.EverythingValue()
	a := asn1rt.NewLimitAllocator(1 << 20)
	for _, r := range codec.All() {
		b, err := r.Encode(asn1test.Everything, v)
		if err != nil {
			t.Fatalf("%s: Encode() error = %v", r.Name, err)
		}
		var g errgroup.Group
		for i := range 16 {
			g.Go(func() error {
				got, _, err := r.Decode(asn1test.Everything, b, a)
				if err != nil {
					return fmt.Errorf("%s: worker %d: %w", r.Name, i, err)
				}
				if !r.Canonical && !asn1rt.Equal(got, v) {
					return fmt.Errorf("%s: worker %d: decoded value differs", r.Name, i)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Error(err)
		}
	}
}

func TestDecode_AllocationLimit(t *testing.T) {
	for _, r := range codec.All() {
		t.Run(r.Name, func(t *testing.T) {
			b, err := r.Encode(asn1test.Everything, asn1test.EverythingValue())
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			a := asn1rt.NewLimitAllocator(4)
			if _, _, err = r.Decode(asn1test.Everything, b, a); !errors.Is(err, asn1rt.ErrAllocation) {
				t.Errorf("Decode() error = %v, want %v", err, asn1rt.ErrAllocation)
			}
			if a.InUse() != 0 {
				t.Errorf("InUse() = %d after failed decode, want 0", a.InUse())
			}
		})
	}
}
