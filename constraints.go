// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"math"
	"math/big"
	"unicode/utf8"
)

// Bounds are the effective int64 bounds of a descriptor.
type Bounds struct {
	Lower, Upper       int64
	HasLower, HasUpper bool
}

// Fixed reports whether b admits exactly one value.
func (b Bounds) Fixed() bool {
	return b.HasLower && b.HasUpper && b.Lower == b.Upper
}

// Contains reports whether v lies within b.
func (b Bounds) Contains(v int64) bool {
	return (!b.HasLower || v >= b.Lower) && (!b.HasUpper || v <= b.Upper)
}

// Range returns Upper-Lower as an unsigned number. It is only meaningful if
// both bounds are set.
func (b Bounds) Range() uint64 {
	return uint64(b.Upper) - uint64(b.Lower)
}

// BoundsOf returns the bounds of d. Arbitrary precision bounds are used if
// they fit into an int64.
func BoundsOf(d *Descriptor) Bounds {
	var b Bounds
	switch {
	case d.Flags&FlagHasLower != 0:
		b.Lower, b.HasLower = d.Lower, true
	case d.BigLower != nil && d.BigLower.IsInt64():
		b.Lower, b.HasLower = d.BigLower.Int64(), true
	}
	switch {
	case d.Flags&FlagHasUpper != 0:
		b.Upper, b.HasUpper = d.Upper, true
	case d.BigUpper != nil && d.BigUpper.IsInt64():
		b.Upper, b.HasUpper = d.BigUpper.Int64(), true
	}
	return b
}

// InRoot reports whether the INTEGER value v satisfies the root value
// constraint of d, taking arbitrary precision bounds into account.
func InRoot(d *Descriptor, v Value) bool {
	x, ok := IntegerOf(v)
	if !ok {
		return false
	}
	if d.Flags&FlagHasLower != 0 {
		if x.Cmp(big.NewInt(d.Lower)) < 0 {
			return false
		}
	} else if d.BigLower != nil && x.Cmp(d.BigLower) < 0 {
		return false
	}
	if d.Flags&FlagHasUpper != 0 {
		if x.Cmp(big.NewInt(d.Upper)) > 0 {
			return false
		}
	} else if d.BigUpper != nil && x.Cmp(d.BigUpper) > 0 {
		return false
	}
	return true
}

// CheckInteger verifies that v is an INTEGER value permitted by d. Values
// outside the root constraint are permitted if the constraint is extensible.
func CheckInteger(d *Descriptor, v Value) error {
	x, ok := IntegerOf(v)
	if !ok {
		return Errorf(ErrConstraint, "%s: expected INTEGER value, got %T", d.Label(), v)
	}
	if !d.Extensible() && !InRoot(d, v) {
		return Errorf(ErrConstraint, "%s: value %s out of range", d.Label(), x)
	}
	return nil
}

// CheckSize verifies that a string or list of size n is permitted by d.
func CheckSize(d *Descriptor, n int) error {
	if d.Extensible() {
		return nil
	}
	b := BoundsOf(d)
	if !b.Contains(int64(n)) {
		return Errorf(ErrConstraint, "%s: size %d out of range", d.Label(), n)
	}
	return nil
}

// CheckString verifies the alphabet and size of a character string value.
func CheckString(d *Descriptor, s string) error {
	if !d.Alphabet.Valid(s) {
		return Errorf(ErrConstraint, "%s: invalid %s character", d.Label(), d.Alphabet)
	}
	return CheckSize(d, utf8.RuneCountInString(s))
}

// CheckEnumerated verifies that v is a known ENUMERATED value of d. Unknown
// values are permitted for extensible enumerations.
func CheckEnumerated(d *Descriptor, v Enumerated) error {
	if _, ok := d.ItemByValue(int64(v)); ok || d.Extensible() {
		return nil
	}
	return Errorf(ErrUnknownSelector, "%s: unknown enumeration value %d", d.Label(), v)
}

// IntegerValue creates the value of an INTEGER of type d.
func IntegerValue(d *Descriptor, x *big.Int) Value {
	if d.Flags&FlagLargeInteger != 0 {
		return BigInt{x}
	}
	return Int(x.Int64())
}

var (
	bigMinInt64 = big.NewInt(math.MinInt64)
	bigMaxInt64 = big.NewInt(math.MaxInt64)
)

// Int64Of returns v as an int64 if it is within range.
func Int64Of(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case BigInt:
		if v.Int == nil || v.Cmp(bigMinInt64) < 0 || v.Cmp(bigMaxInt64) > 0 {
			return 0, false
		}
		return v.Int64(), true
	}
	return 0, false
}
