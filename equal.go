// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"bytes"
	"math"
	"slices"
)

// Equal reports whether a and b are structurally equal. Int and BigInt values
// are compared numerically, NaN equals NaN and REAL zeros are distinguished by
// sign. Bit strings are compared on their significant bits only. Open values
// compare their resolved values if both are resolved and their raw encodings
// otherwise.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Int, BigInt:
		x, ok := IntegerOf(a)
		if !ok {
			return false
		}
		y, ok := IntegerOf(b)
		return ok && x.Cmp(y) == 0
	case Enumerated:
		b, ok := b.(Enumerated)
		return ok && a == b
	case Null:
		_, ok := b.(Null)
		return ok
	case Real:
		b, ok := b.(Real)
		if !ok {
			return false
		}
		x, y := float64(a), float64(b)
		if math.IsNaN(x) || math.IsNaN(y) {
			return math.IsNaN(x) && math.IsNaN(y)
		}
		return x == y && math.Signbit(x) == math.Signbit(y)
	case OctetString:
		b, ok := b.(OctetString)
		return ok && bytes.Equal(a, b)
	case BitString:
		b, ok := b.(BitString)
		if !ok || a.BitLength != b.BitLength || !a.IsValid() || !b.IsValid() {
			return false
		}
		return bytes.Equal(a.Masked(), b.Masked())
	case CharString:
		b, ok := b.(CharString)
		return ok && a == b
	case ObjectIdentifier:
		b, ok := b.(ObjectIdentifier)
		return ok && a.Equal(b)
	case RelativeOID:
		b, ok := b.(RelativeOID)
		return ok && a.Equal(b)
	case Record:
		b, ok := b.(Record)
		return ok && slices.EqualFunc(a.Fields, b.Fields, Equal)
	case List:
		b, ok := b.(List)
		return ok && slices.EqualFunc(a, b, Equal)
	case Choice:
		b, ok := b.(Choice)
		return ok && a.Index == b.Index && Equal(a.Value, b.Value)
	case Open:
		b, ok := b.(Open)
		if !ok {
			return false
		}
		if a.Value != nil && b.Value != nil {
			return a.Type == b.Type && Equal(a.Value, b.Value)
		}
		return a.Value == nil && b.Value == nil && bytes.Equal(a.Raw, b.Raw)
	}
	return false
}
