// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oer

import (
	"math"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/content"
	"codello.dev/asn1rt/internal/vlq"
)

// integerForm returns the encoding of values of the INTEGER type d. A
// non-zero width selects a fixed-size encoding without length determinant.
// unsigned reports whether the value is encoded without a sign.
func integerForm(d *asn1rt.Descriptor) (width int, unsigned bool) {
	if d.Extensible() {
		return 0, false
	}
	b := asn1rt.BoundsOf(d)
	nonNeg := b.HasLower && b.Lower >= 0 || !b.HasLower && d.BigLower != nil && d.BigLower.Sign() >= 0
	if !b.HasLower || !b.HasUpper {
		return 0, nonNeg
	}
	if b.Lower >= 0 {
		switch {
		case b.Upper <= math.MaxUint8:
			return 1, true
		case b.Upper <= math.MaxUint16:
			return 2, true
		case b.Upper <= math.MaxUint32:
			return 4, true
		}
		return 8, true
	}
	switch {
	case b.Lower >= math.MinInt8 && b.Upper <= math.MaxInt8:
		return 1, false
	case b.Lower >= math.MinInt16 && b.Upper <= math.MaxInt16:
		return 2, false
	case b.Lower >= math.MinInt32 && b.Upper <= math.MaxInt32:
		return 4, false
	}
	return 8, false
}

// appendLength appends a length determinant for n to b.
func appendLength(b []byte, n int) []byte {
	if n < 0x80 {
		return append(b, byte(n))
	}
	l := content.AppendUint(nil, uint64(n))
	b = append(b, 0x80|byte(len(l)))
	return append(b, l...)
}

// appendTag appends the tag of a CHOICE alternative to b. The class occupies
// the two most significant bits of the first octet.
func appendTag(b []byte, t asn1rt.Tag) []byte {
	first := byte(t.Class) << 6
	if t.Number < 0x3F {
		return append(b, first|byte(t.Number))
	}
	b = append(b, first|0x3F)
	return vlq.Append(b, t.Number)
}
