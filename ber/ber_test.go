// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"errors"
	"math/big"
	"slices"
	"testing"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/asn1test"
)

// extOptional is SEQUENCE { a INTEGER, b BOOLEAN OPTIONAL, ... }.
var extOptional = &asn1rt.Descriptor{
	Kind:  asn1rt.KindSequence,
	Flags: asn1rt.FlagExtensible,
	Fields: []asn1rt.Field{
		{Name: "a", Type: asn1test.Int},
		{Name: "b", Type: asn1test.Bool, Presence: asn1rt.PresenceOptional},
	},
}

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		d     *asn1rt.Descriptor
		data  []byte
		want  asn1rt.Value
		wantN int
	}{
		"Sequence":            {asn1test.X, []byte{0x30, 0x03, 0x02, 0x01, 0x05}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, 5},
		"TrailingData":        {asn1test.X, []byte{0x30, 0x03, 0x02, 0x01, 0x05, 0xFF}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, 5},
		"IndefiniteLength":    {asn1test.X, []byte{0x30, 0x80, 0x02, 0x01, 0x05, 0x00, 0x00}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, 7},
		"ConstructedOctets":   {asn1test.Octets, []byte{0x24, 0x80, 0x04, 0x02, 0x01, 0x02, 0x04, 0x01, 0x03, 0x00, 0x00}, asn1rt.OctetString{1, 2, 3}, 11},
		"NestedSegments":      {asn1test.Octets, []byte{0x24, 0x0A, 0x24, 0x80, 0x04, 0x01, 0x01, 0x00, 0x00, 0x04, 0x01, 0x02}, asn1rt.OctetString{1, 2}, 12},
		"ConstructedBits":     {asn1test.Bits, []byte{0x23, 0x80, 0x03, 0x02, 0x00, 0xAA, 0x03, 0x02, 0x07, 0x80, 0x00, 0x00}, asn1rt.BitString{Bytes: []byte{0xAA, 0x80}, BitLength: 9}, 12},
		"PaddingBitsMasked":   {asn1test.Bits, []byte{0x03, 0x02, 0x04, 0xFF}, asn1rt.BitString{Bytes: []byte{0xF0}, BitLength: 4}, 4},
		"ConstructedString":   {asn1test.IA5, []byte{0x36, 0x08, 0x04, 0x02, 'h', 'e', 0x04, 0x02, 'l', 'o'}, asn1rt.CharString("helo"), 10},
		"BooleanNonZero":      {asn1test.Bool, []byte{0x01, 0x01, 0x05}, asn1rt.Bool(true), 3},
		"ByteLowerBound":      {asn1test.Byte, []byte{0x02, 0x01, 0x00}, asn1rt.Int(0), 3},
		"ByteUpperBound":      {asn1test.Byte, []byte{0x02, 0x02, 0x00, 0xFF}, asn1rt.Int(255), 4},
		"SemiConstrained":     {asn1test.Unsigned, []byte{0x02, 0x02, 0x01, 0x00}, asn1rt.Int(256), 4},
		"ChoiceByTag":         {asn1test.Shape, []byte{0x80, 0x01, 0xFF}, asn1rt.Choice{Index: 2, Value: asn1rt.Bool(true)}, 3},
		"SetAnyOrder":         {asn1test.Bag, []byte{0x31, 0x06, 0x81, 0x01, 0x00, 0x80, 0x01, 0x01}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), asn1rt.Bool(false)}}, 8},
		"Recursive":           {asn1test.Node, []byte{0x30, 0x08, 0x02, 0x01, 0x01, 0xA0, 0x03, 0x02, 0x01, 0x02}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(2), nil}}}}, 10},
		"UnknownExtension":    {asn1test.V1, []byte{0x30, 0x0C, 0x02, 0x01, 0x01, 0x81, 0x01, 0xFF, 0x82, 0x01, 0x05, 0x83, 0x01, 'x'}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1)}}, 14},
		"KnownExtension":      {asn1test.V2, []byte{0x30, 0x0C, 0x02, 0x01, 0x01, 0x81, 0x01, 0xFF, 0x82, 0x01, 0x05, 0x83, 0x01, 'x'}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Bool(true), asn1rt.Int(5), asn1rt.CharString("x")}}, 14},
		"ResolvedOpenType":    {asn1test.Message, []byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x05}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Open{Type: asn1test.Int, Value: asn1rt.Int(5)}}}, 8},
		"UnresolvedOpenType":  {asn1test.Message, []byte{0x30, 0x06, 0x02, 0x01, 0x03, 0x02, 0x01, 0x05}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Raw: []byte{0x02, 0x01, 0x05}}}}, 8},
		"ExplicitTag":         {&asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: asn1rt.Tag{Class: asn1rt.ClassContextSpecific, Number: 1}, Flags: asn1rt.FlagExplicitTag}, []byte{0xA1, 0x03, 0x02, 0x01, 0x07}, asn1rt.Int(7), 5},
		"ImplicitTag":         {&asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: asn1rt.Tag{Class: asn1rt.ClassApplication, Number: 5}}, []byte{0x45, 0x01, 0x07}, asn1rt.Int(7), 3},
		"TaggedChoice":        {&asn1rt.Descriptor{Kind: asn1rt.KindTagged, Tag: asn1rt.Tag{Class: asn1rt.ClassContextSpecific, Number: 2}, Elem: asn1test.Shape}, []byte{0xA2, 0x03, 0x02, 0x01, 0x07}, asn1rt.Choice{Index: 0, Value: asn1rt.Int(7)}, 5},
		"LargeInteger":        {asn1test.Large, []byte{0x02, 0x09, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, asn1rt.BigInt{Int: bigPow2(64)}, 11},
		"ObjectIdentifier":    {asn1test.OID, []byte{0x06, 0x06, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D}, asn1rt.ObjectIdentifier{1, 2, 840, 113549}, 8},
		"EnumeratedExtension": {asn1test.Color, []byte{0x0A, 0x01, 0x63}, asn1rt.Enumerated(99), 3},

		"UnknownAfterOptional": {extOptional, []byte{0x30, 0x06, 0x02, 0x01, 0x05, 0x81, 0x01, 0xFF}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5), nil}}, 8},

		// Known edge case: an absent mandatory extension addition is decoded
		// as if it were optional.
		"AbsentMandatoryAddition": {asn1test.V2, []byte{0x30, 0x03, 0x02, 0x01, 0x01}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), nil, nil, nil}}, 5},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, n, err := Decode(tt.d, tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if n != tt.wantN {
				t.Errorf("Decode() consumed %d bytes, want %d", n, tt.wantN)
			}
			if !asn1rt.Equal(got, tt.want) {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeError(t *testing.T) {
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		data    []byte
		wantErr error
	}{
		"Empty":                {asn1test.X, []byte{}, asn1rt.ErrTruncated},
		"Truncated":            {asn1test.X, []byte{0x30, 0x03, 0x02, 0x01}, asn1rt.ErrTruncated},
		"WrongTag":             {asn1test.X, []byte{0x31, 0x03, 0x02, 0x01, 0x05}, asn1rt.ErrConstraint},
		"MissingField":         {asn1test.X, []byte{0x30, 0x00}, asn1rt.ErrConstraint},
		"UnexpectedField":      {asn1test.X, []byte{0x30, 0x06, 0x02, 0x01, 0x05, 0x02, 0x01, 0x06}, asn1rt.ErrConstraint},
		"ByteTooLarge":         {asn1test.Byte, []byte{0x02, 0x02, 0x01, 0x00}, asn1rt.ErrConstraint},
		"ByteNegative":         {asn1test.Byte, []byte{0x02, 0x01, 0xFF}, asn1rt.ErrConstraint},
		"IntegerNotMinimal":    {asn1test.Int, []byte{0x02, 0x02, 0x00, 0x01}, asn1rt.ErrConstraint},
		"IntegerTooLarge":      {asn1test.Int, []byte{0x02, 0x09, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, asn1rt.ErrConstraint},
		"BooleanLength":        {asn1test.Bool, []byte{0x01, 0x02, 0x00, 0x00}, asn1rt.ErrMalformedLength},
		"NullLength":           {asn1test.Null, []byte{0x05, 0x01, 0x00}, asn1rt.ErrMalformedLength},
		"UnusedBitsNotFinal":   {asn1test.Bits, []byte{0x23, 0x08, 0x03, 0x02, 0x01, 0xAA, 0x03, 0x02, 0x00, 0x80}, asn1rt.ErrConstraint},
		"SegmentTag":           {asn1test.Octets, []byte{0x24, 0x03, 0x02, 0x01, 0x00}, asn1rt.ErrConstraint},
		"UnknownAlternative":   {asn1test.Shape, []byte{0x04, 0x00}, asn1rt.ErrUnknownSelector},
		"UnknownEnumeration":   {&asn1rt.Descriptor{Kind: asn1rt.KindEnumerated, Items: []asn1rt.EnumItem{{Name: "a"}}}, []byte{0x0A, 0x01, 0x01}, asn1rt.ErrUnknownSelector},
		"DuplicateSetField":    {asn1test.Bag, []byte{0x31, 0x06, 0x80, 0x01, 0x01, 0x80, 0x01, 0x02}, asn1rt.ErrConstraint},
		"PrimitiveExplicitTag": {&asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: asn1rt.Tag{Class: asn1rt.ClassContextSpecific, Number: 1}, Flags: asn1rt.FlagExplicitTag}, []byte{0x81, 0x01, 0x07}, asn1rt.ErrMalformedTag},
		"InvalidCharacter":     {asn1test.IA5, []byte{0x16, 0x01, 0x80}, asn1rt.ErrConstraint},
		"ChildExceedsParent":   {asn1test.X, []byte{0x30, 0x02, 0x02, 0x01, 0x05}, asn1rt.ErrMalformedLength},
		"ElementBeforeRoot":    {extOptional, []byte{0x30, 0x06, 0x01, 0x01, 0xFF, 0x02, 0x01, 0x05}, asn1rt.ErrConstraint},
		"RepeatedRootField":    {extOptional, []byte{0x30, 0x09, 0x02, 0x01, 0x05, 0x01, 0x01, 0xFF, 0x02, 0x01, 0x06}, asn1rt.ErrConstraint},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(tt.d, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			var e *asn1rt.Error
			if !errors.As(err, &e) {
				t.Fatalf("Decode() error %T is not an *asn1rt.Error", err)
			}
		})
	}
}

func TestDecodeErrorOffset(t *testing.T) {
	_, _, err := Decode(asn1test.Bag, []byte{0x31, 0x06, 0x80, 0x01, 0x01, 0x80, 0x01, 0x02})
	var e *asn1rt.Error
	if !errors.As(err, &e) {
		t.Fatalf("Decode() error = %v, want *asn1rt.Error", err)
	}
	if e.Offset != 5 {
		t.Errorf("Decode() error offset = %d, want 5", e.Offset)
	}
}

func TestEncode(t *testing.T) {
	tests := map[string]struct {
		d    *asn1rt.Descriptor
		v    asn1rt.Value
		want []byte
	}{
		"Sequence":         {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, []byte{0x30, 0x03, 0x02, 0x01, 0x05}},
		"DefaultOmitted":   {asn1test.Bag, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), asn1rt.Bool(false)}}, []byte{0x31, 0x06, 0x80, 0x01, 0x01, 0x81, 0x01, 0x00}},
		"DeclarationOrder": {asn1test.Bag, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(9), asn1rt.Int(1), asn1rt.Bool(false)}}, []byte{0x31, 0x09, 0x82, 0x01, 0x09, 0x80, 0x01, 0x01, 0x81, 0x01, 0x00}},
		"Boolean":          {asn1test.Bool, asn1rt.Bool(true), []byte{0x01, 0x01, 0xFF}},
		"Null":             {asn1test.Null, asn1rt.Null{}, []byte{0x05, 0x00}},
		"BitString":        {asn1test.Bits, asn1rt.BitString{Bytes: []byte{0xAA, 0xFF}, BitLength: 9}, []byte{0x03, 0x03, 0x07, 0xAA, 0x80}},
		"EmptyBits":        {asn1test.Bits, asn1rt.BitString{}, []byte{0x03, 0x01, 0x00}},
		"BMPString":        {asn1test.String(asn1rt.AlphabetBMP), asn1rt.CharString("ü"), []byte{0x1E, 0x02, 0x00, 0xFC}},
		"ExplicitTag":      {&asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: asn1rt.Tag{Class: asn1rt.ClassContextSpecific, Number: 1}, Flags: asn1rt.FlagExplicitTag}, asn1rt.Int(7), []byte{0xA1, 0x03, 0x02, 0x01, 0x07}},
		"TaggedChoice":     {&asn1rt.Descriptor{Kind: asn1rt.KindTagged, Tag: asn1rt.Tag{Class: asn1rt.ClassContextSpecific, Number: 2}, Elem: asn1test.Shape}, asn1rt.Choice{Index: 0, Value: asn1rt.Int(7)}, []byte{0xA2, 0x03, 0x02, 0x01, 0x07}},
		"OpenType":         {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Open{Value: asn1rt.Int(5)}}}, []byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x05}},
		"RawOpenType":      {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Raw: []byte{0x05, 0x00}}}}, []byte{0x30, 0x05, 0x02, 0x01, 0x03, 0x05, 0x00}},
		"Extensions":       {asn1test.V2, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Bool(true), asn1rt.Int(5), asn1rt.CharString("x")}}, []byte{0x30, 0x0C, 0x02, 0x01, 0x01, 0x81, 0x01, 0xFF, 0x82, 0x01, 0x05, 0x83, 0x01, 'x'}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Encode(tt.d, tt.v)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEncodeError(t *testing.T) {
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		v       asn1rt.Value
		wantErr error
	}{
		"ByteTooLarge":    {asn1test.Byte, asn1rt.Int(256), asn1rt.ErrConstraint},
		"ByteNegative":    {asn1test.Byte, asn1rt.Int(-1), asn1rt.ErrConstraint},
		"WrongValue":      {asn1test.Bool, asn1rt.Int(1), asn1rt.ErrConstraint},
		"MissingField":    {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{nil}}, asn1rt.ErrConstraint},
		"FieldCount":      {asn1test.X, asn1rt.Record{}, asn1rt.ErrConstraint},
		"BadAlternative":  {asn1test.Shape, asn1rt.Choice{Index: 3, Value: asn1rt.Int(1)}, asn1rt.ErrUnknownSelector},
		"Unresolvable":    {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Value: asn1rt.Int(5)}}}, asn1rt.ErrUnknownSelector},
		"InvalidRaw":      {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Raw: []byte{0x05, 0x00, 0x00}}}}, asn1rt.ErrMalformedLength},
		"SizeConstraint":  {asn1test.Sized(asn1rt.KindOctetString, 1, 2), asn1rt.OctetString{}, asn1rt.ErrConstraint},
		"InvalidOID":      {asn1test.OID, asn1rt.ObjectIdentifier{3, 1}, asn1rt.ErrConstraint},
		"InvalidAlphabet": {asn1test.IA5, asn1rt.CharString("ü"), asn1rt.ErrConstraint},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Encode(tt.d, tt.v)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Encode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDER(t *testing.T) {
	t.Run("SetFieldOrder", func(t *testing.T) {
		v := asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(9), asn1rt.Int(1), asn1rt.Bool(false)}}
		want := []byte{0x31, 0x09, 0x80, 0x01, 0x01, 0x81, 0x01, 0x00, 0x82, 0x01, 0x09}
		got, err := EncodeDER(asn1test.Bag, v)
		if err != nil {
			t.Fatalf("EncodeDER() error = %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("EncodeDER() = % X, want % X", got, want)
		}
	})
	t.Run("SetOfOrder", func(t *testing.T) {
		d := &asn1rt.Descriptor{Kind: asn1rt.KindSetOf, Elem: asn1test.Int}
		want := []byte{0x31, 0x09, 0x02, 0x01, 0x02, 0x02, 0x01, 0x03, 0x02, 0x01, 0xFF}
		perms := [][]int64{{3, -1, 2}, {-1, 2, 3}, {2, 3, -1}, {3, 2, -1}}
		for _, p := range perms {
			var l asn1rt.List
			for _, x := range p {
				l = append(l, asn1rt.Int(x))
			}
			got, err := EncodeDER(d, l)
			if err != nil {
				t.Fatalf("EncodeDER(%v) error = %v", p, err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("EncodeDER(%v) = % X, want % X", p, got, want)
			}
		}
	})
}

func TestRoundTrip(t *testing.T) {
	tests := map[string]asn1rt.Value{
		"Everything": asn1test.EverythingValue(),
		"Minimal":    asn1test.MinimalValue(),
	}
	for name, v := range tests {
		for rule, der := range map[string]bool{"BER": false, "DER": true} {
			t.Run(name+"/"+rule, func(t *testing.T) {
				e := &encoder{der: der}
				b, err := e.encode(asn1test.Everything, v, nil)
				if err != nil {
					t.Fatalf("encode() error = %v", err)
				}
				got, n, err := Decode(asn1test.Everything, b)
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if n != len(b) {
					t.Errorf("Decode() consumed %d of %d bytes", n, len(b))
				}
				if !asn1rt.Equal(got, v) {
					t.Errorf("Decode(encode(v)) = %v, want %v", got, v)
				}
			})
		}
	}
}

func TestDecodeWithAllocator(t *testing.T) {
	data := append([]byte{0x04, 0x10}, slices.Repeat([]byte{0x42}, 16)...)

	a := asn1rt.NewLimitAllocator(8)
	_, _, err := DecodeWithAllocator(asn1test.Octets, data, a)
	if !errors.Is(err, asn1rt.ErrAllocation) {
		t.Fatalf("DecodeWithAllocator() error = %v, want %v", err, asn1rt.ErrAllocation)
	}
	if a.InUse() != 0 {
		t.Errorf("InUse() = %d after failed decode, want 0", a.InUse())
	}

	a = asn1rt.NewLimitAllocator(16)
	v, _, err := DecodeWithAllocator(asn1test.Octets, data, a)
	if err != nil {
		t.Fatalf("DecodeWithAllocator() error = %v", err)
	}
	if !asn1rt.Equal(v, asn1rt.OctetString(data[2:])) {
		t.Errorf("DecodeWithAllocator() = %v, want %v", v, data[2:])
	}
	if a.InUse() != 16 {
		t.Errorf("InUse() = %d, want 16", a.InUse())
	}
}

func bigPow2(n uint) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), n)
}
