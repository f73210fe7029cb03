// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"math/big"
	"slices"
	"strconv"
	"strings"
)

// Value is an ASN.1 value. The concrete type of a Value is determined by the
// Kind of the [Descriptor] it belongs to:
//
//	KindBoolean           Bool
//	KindInteger           Int or BigInt
//	KindEnumerated        Enumerated
//	KindNull              Null
//	KindReal              Real
//	KindOctetString       OctetString
//	KindBitString         BitString
//	KindCharacterString   CharString
//	KindObjectIdentifier  ObjectIdentifier
//	KindRelativeOID       RelativeOID
//	KindSequence, KindSet Record
//	KindSequenceOf, ...   List
//	KindChoice            Choice
//	KindAny               Open
//
// Tagged types are transparent and use the value of their inner type.
type Value interface {
	value()
}

//region [UNIVERSAL 1] BOOLEAN

// Bool is a BOOLEAN value.
type Bool bool

func (Bool) value() {}

//endregion

//region [UNIVERSAL 2] INTEGER

// Int is an INTEGER value that fits into 64 bits.
type Int int64

func (Int) value() {}

// BigInt is an INTEGER value of arbitrary size. Decoders produce BigInt values
// for descriptors with FlagLargeInteger.
type BigInt struct {
	*big.Int
}

func (BigInt) value() {}

// IntegerOf returns the numeric value of an Int or BigInt value.
func IntegerOf(v Value) (*big.Int, bool) {
	switch v := v.(type) {
	case Int:
		return big.NewInt(int64(v)), true
	case BigInt:
		if v.Int == nil {
			return nil, false
		}
		return v.Int, true
	}
	return nil, false
}

//endregion

//region [UNIVERSAL 3] BIT STRING

// BitString implements the ASN.1 BIT STRING type. A bit string is padded up to
// the nearest byte in memory and the number of valid bits is recorded. Padding
// bits will be encoded and decoded as zero bits.
//
// See also section 22 of Rec. ITU-T X.680.
type BitString struct {
	Bytes     []byte // bits packed into bytes.
	BitLength int    // length in bits.
}

func (BitString) value() {}

// IsValid reports whether there are enough bytes in s for the indicated
// BitLength.
func (s BitString) IsValid() bool {
	return s.BitLength >= 0 && len(s.Bytes) >= (s.BitLength+8-1)/8
}

// Len returns the number of bits in s.
func (s BitString) Len() int {
	return s.BitLength
}

// At returns the bit at the given index. If the index is out of range At panics.
func (s BitString) At(i int) int {
	if i < 0 || i >= s.BitLength {
		panic("index out of range")
	}
	x := i / 8
	y := 7 - uint(i%8)
	return int(s.Bytes[x]>>y) & 1
}

// Masked returns the significant bytes of s with all padding bits cleared. The
// result does not share memory with s.
func (s BitString) Masked() []byte {
	n := (s.BitLength + 7) / 8
	b := make([]byte, n)
	copy(b, s.Bytes[:n])
	if r := s.BitLength % 8; r != 0 {
		b[n-1] &= 0xFF << (8 - r)
	}
	return b
}

// ParseBits converts a string of '0' and '1' characters into a BitString.
func ParseBits(s string) (BitString, bool) {
	b := BitString{Bytes: make([]byte, (len(s)+7)/8), BitLength: len(s)}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			b.Bytes[i/8] |= 0x80 >> (i % 8)
		case '0':
		default:
			return BitString{}, false
		}
	}
	return b, true
}

// String formats s as a sequence of '0' and '1' characters.
func (s BitString) String() string {
	var sb strings.Builder
	sb.Grow(s.BitLength)
	for i := 0; i < s.BitLength; i++ {
		sb.WriteByte('0' + byte(s.At(i)))
	}
	return sb.String()
}

//endregion

//region [UNIVERSAL 4] OCTET STRING

// OctetString is an OCTET STRING value.
type OctetString []byte

func (OctetString) value() {}

//endregion

//region [UNIVERSAL 5] NULL

// Null is the NULL value.
type Null struct{}

func (Null) value() {}

//endregion

//region [UNIVERSAL 6] OBJECT IDENTIFIER

// An ObjectIdentifier represents an ASN.1 OBJECT IDENTIFIER. The semantics of an
// object identifier are specified in [Rec. ITU-T X.660].
//
// See also section 32 of Rec. ITU-T X.680.
//
// [Rec. ITU-T X.660]: https://www.itu.int/rec/T-REC-X.660
type ObjectIdentifier []uint

func (ObjectIdentifier) value() {}

// Equal reports whether oid and other represent the same identifier.
func (oid ObjectIdentifier) Equal(other ObjectIdentifier) bool {
	return slices.Equal(oid, other)
}

// IsValid reports whether oid can be encoded. The first arc must be 0, 1 or 2
// and the second arc must be less than 40 unless the first arc is 2.
func (oid ObjectIdentifier) IsValid() bool {
	if len(oid) < 2 || oid[0] > 2 {
		return false
	}
	return oid[0] == 2 || oid[1] < 40
}

// String returns the dot-separated notation of oid.
func (oid ObjectIdentifier) String() string {
	return formatArcs(oid)
}

//endregion

//region [UNIVERSAL 9] REAL

// Real is a REAL value. Special values are represented by the corresponding
// float64 values (infinities, NaN and negative zero).
type Real float64

func (Real) value() {}

//endregion

//region [UNIVERSAL 10] ENUMERATED

// Enumerated is the numeric value of an ENUMERATED item.
type Enumerated int64

func (Enumerated) value() {}

//endregion

//region [UNIVERSAL 13] RELATIVE-OID

// RelativeOID represents the ASN.1 RELATIVE OID type. This is similar to the
// [ObjectIdentifier] type, but a RelativeOID is only a suffix of an OID.
//
// See also section 32 of Rec. ITU-T X.680.
type RelativeOID []uint

func (RelativeOID) value() {}

// Equal reports whether oid and other represent the same identifier.
func (oid RelativeOID) Equal(other RelativeOID) bool {
	return slices.Equal(oid, other)
}

// String returns the dot-separated notation of oid.
func (oid RelativeOID) String() string {
	return formatArcs(oid)
}

func formatArcs(arcs []uint) string {
	var s strings.Builder
	s.Grow(32)

	buf := make([]byte, 0, 20)
	for i, v := range arcs {
		if i > 0 {
			s.WriteByte('.')
		}
		s.Write(strconv.AppendUint(buf, uint64(v), 10))
	}
	return s.String()
}

// ParseArcs parses the dot-separated notation of an identifier.
func ParseArcs(s string) ([]uint, bool) {
	if s == "" {
		return nil, false
	}
	parts := strings.Split(s, ".")
	arcs := make([]uint, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, strconv.IntSize)
		if err != nil {
			return nil, false
		}
		arcs[i] = uint(n)
	}
	return arcs, true
}

//endregion

//region [UNIVERSAL 12, 18, 19, 22, 26, 28, 30] character strings

// CharString is the value of a restricted character string type. Values are
// held as UTF-8 regardless of the alphabet of the type.
type CharString string

func (CharString) value() {}

//endregion

//region [UNIVERSAL 16, 17] SEQUENCE and SET

// Record is the value of a SEQUENCE or SET type. Fields holds one entry per
// field of the descriptor, in declaration order. Absent fields are nil.
type Record struct {
	Fields []Value
}

func (Record) value() {}

// List is the value of a SEQUENCE OF or SET OF type.
type List []Value

func (List) value() {}

//endregion

// Choice is the value of a CHOICE type. Index selects the alternative.
type Choice struct {
	Index int
	Value Value
}

func (Choice) value() {}

// Open is the value of an ANY type. If the concrete type could be resolved,
// Type and Value are set. Otherwise Raw holds the complete encoding of the
// value in the encoding rules it was decoded from.
type Open struct {
	Type  *Descriptor
	Value Value
	Raw   []byte
}

func (Open) value() {}
