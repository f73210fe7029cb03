// Package content implements the contents octets of primitive BER encodings.
// The same octets are embedded by OER and PER for REAL, OBJECT IDENTIFIER and
// length-prefixed INTEGER values.
package content

import (
	"encoding/binary"
	"math/big"
	"math/bits"

	"codello.dev/asn1rt"
)

var bigOne = big.NewInt(1)

// AppendInt appends the minimal two's complement representation of v to b.
func AppendInt(b []byte, v int64) []byte {
	u := uint64(v)
	var l int
	if v >= 0 {
		l = bits.Len64(u)/8 + 1
	} else {
		l = bits.Len64(^u)/8 + 1
	}
	var bs [8]byte
	binary.BigEndian.PutUint64(bs[:], u)
	return append(b, bs[8-min(l, 8):]...)
}

// AppendUint appends the minimal unsigned representation of u to b. Zero is
// represented by a single zero byte.
func AppendUint(b []byte, u uint64) []byte {
	l := max(1, (bits.Len64(u)+7)/8)
	var bs [8]byte
	binary.BigEndian.PutUint64(bs[:], u)
	return append(b, bs[8-l:]...)
}

// AppendBigInt appends the minimal two's complement representation of v to b.
func AppendBigInt(b []byte, v *big.Int) []byte {
	switch v.Sign() {
	case 0:
		return append(b, 0)
	case -1:
		// A negative number has to be converted to two's-complement
		// form. So we'll invert and subtract 1. If the
		// most-significant-bit isn't set then we'll need to pad the
		// beginning with 0xff in order to keep the number negative.
		nMinus1 := new(big.Int).Neg(v)
		nMinus1.Sub(nMinus1, bigOne)
		bs := nMinus1.Bytes()
		for i := range bs {
			bs[i] ^= 0xff
		}
		if len(bs) == 0 || bs[0]&0x80 == 0 {
			b = append(b, 0xff)
		}
		return append(b, bs...)
	default:
		bs := v.Bytes()
		if bs[0]&0x80 != 0 {
			// We'll have to pad this with 0x00 in order to stop it
			// looking like a negative number.
			b = append(b, 0)
		}
		return append(b, bs...)
	}
}

// AppendUnsignedBig appends the minimal unsigned representation of the
// non-negative v to b.
func AppendUnsignedBig(b []byte, v *big.Int) []byte {
	if v.Sign() == 0 {
		return append(b, 0)
	}
	return append(b, v.Bytes()...)
}

// AppendInteger appends the minimal two's complement representation of an Int
// or BigInt value.
func AppendInteger(b []byte, v asn1rt.Value) []byte {
	if i, ok := v.(asn1rt.Int); ok {
		return AppendInt(b, int64(i))
	}
	x, _ := asn1rt.IntegerOf(v)
	return AppendBigInt(b, x)
}

// Minimal reports whether bs is a minimal two's complement encoding.
func Minimal(bs []byte) bool {
	if len(bs) == 0 {
		return false
	}
	return len(bs) == 1 || !(bs[0] == 0x00 && bs[1]&0x80 == 0 || bs[0] == 0xFF && bs[1]&0x80 != 0)
}

// ParseBigInt parses a two's complement integer of arbitrary size.
func ParseBigInt(bs []byte) (*big.Int, error) {
	if len(bs) == 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "empty integer")
	}
	i := new(big.Int)
	if bs[0]&0x80 != 0 {
		// negative integer, calculate 2s complement
		inv := make([]byte, len(bs))
		for j := range bs {
			inv[j] = ^bs[j]
		}
		i.SetBytes(inv)
		i.Add(i, bigOne)
		i.Neg(i)
	} else {
		i.SetBytes(bs)
	}
	return i, nil
}

// ParseInteger parses a minimally encoded two's complement integer into a
// value of the INTEGER type d. Values that do not fit into an Int are only
// accepted if d has FlagLargeInteger.
func ParseInteger(d *asn1rt.Descriptor, bs []byte) (asn1rt.Value, error) {
	if !Minimal(bs) {
		if len(bs) == 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "empty integer")
		}
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "integer not minimally-encoded")
	}
	if d.Flags&asn1rt.FlagLargeInteger != 0 {
		x, err := ParseBigInt(bs)
		if err != nil {
			return nil, err
		}
		return asn1rt.BigInt{Int: x}, nil
	}
	v, err := ParseInt(bs)
	if err != nil {
		return nil, err
	}
	return asn1rt.Int(v), nil
}

// ParseInt parses a two's complement integer of at most 8 bytes.
func ParseInt(bs []byte) (int64, error) {
	if len(bs) == 0 {
		return 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "empty integer")
	}
	if len(bs) > 8 {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "integer too large")
	}
	var val uint64
	for _, c := range bs {
		val = val<<8 | uint64(c)
	}
	// Shift up and down in order to sign extend the result.
	i := int64(val << (64 - 8*len(bs)))
	return i >> (64 - 8*len(bs)), nil
}

// ParseUint parses an unsigned integer of at most 8 bytes.
func ParseUint(bs []byte) (uint64, error) {
	if len(bs) == 0 {
		return 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "empty integer")
	}
	if len(bs) > 8 {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "integer too large")
	}
	var val uint64
	for _, c := range bs {
		val = val<<8 | uint64(c)
	}
	return val, nil
}
