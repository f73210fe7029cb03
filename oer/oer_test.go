// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oer

import (
	"bytes"
	"errors"
	"testing"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/asn1test"
)

var (
	bigTag = &asn1rt.Descriptor{Kind: asn1rt.KindChoice, Fields: []asn1rt.Field{
		{Name: "n", Type: &asn1rt.Descriptor{Kind: asn1rt.KindNull, Tag: asn1rt.Tag{Class: asn1rt.ClassApplication, Number: 100}}},
	}}
	ints = &asn1rt.Descriptor{Kind: asn1rt.KindSequenceOf, Elem: asn1test.Int}
)

func TestCodec(t *testing.T) {
	tests := map[string]struct {
		d    *asn1rt.Descriptor
		v    asn1rt.Value
		want []byte
	}{
		"Sequence":           {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, []byte{0x01, 0x05}},
		"BitString":          {asn1test.Bits, asn1rt.BitString{Bytes: []byte{0xAA, 0x80}, BitLength: 9}, []byte{0x03, 0x07, 0xAA, 0x80}},
		"FixedBitString":     {asn1test.Sized(asn1rt.KindBitString, 12, 12), asn1rt.BitString{Bytes: []byte{0xF0, 0xF0}, BitLength: 12}, []byte{0xF0, 0xF0}},
		"ByteLowerBound":     {asn1test.Byte, asn1rt.Int(0), []byte{0x00}},
		"ByteUpperBound":     {asn1test.Byte, asn1rt.Int(255), []byte{0xFF}},
		"SemiConstrained":    {asn1test.Unsigned, asn1rt.Int(256), []byte{0x02, 0x01, 0x00}},
		"Unconstrained":      {asn1test.Int, asn1rt.Int(-1), []byte{0x01, 0xFF}},
		"SignedFixed":        {asn1test.Integer(-5, 1000), asn1rt.Int(-5), []byte{0xFF, 0xFB}},
		"UnsignedFixed":      {asn1test.Integer(0, 70000), asn1rt.Int(70000), []byte{0x00, 0x01, 0x11, 0x70}},
		"ExtensibleInteger":  {&asn1rt.Descriptor{Kind: asn1rt.KindInteger, Flags: asn1rt.FlagExtensible | asn1rt.FlagHasLower | asn1rt.FlagHasUpper, Upper: 255}, asn1rt.Int(300), []byte{0x02, 0x01, 0x2C}},
		"Enumerated":         {asn1test.Color, asn1rt.Enumerated(5), []byte{0x05}},
		"EnumeratedNegative": {asn1test.Color, asn1rt.Enumerated(-1), []byte{0x81, 0xFF}},
		"EnumeratedLong":     {asn1test.Color, asn1rt.Enumerated(200), []byte{0x82, 0x00, 0xC8}},
		"FixedOctets":        {asn1test.Sized(asn1rt.KindOctetString, 2, 2), asn1rt.OctetString{1, 2}, []byte{0x01, 0x02}},
		"Octets":             {asn1test.Octets, asn1rt.OctetString{1, 2}, []byte{0x02, 0x01, 0x02}},
		"FixedString":        {&asn1rt.Descriptor{Kind: asn1rt.KindCharacterString, Alphabet: asn1rt.AlphabetBMP, Flags: asn1rt.FlagHasLower | asn1rt.FlagHasUpper, Lower: 1, Upper: 1}, asn1rt.CharString("ü"), []byte{0x00, 0xFC}},
		"FixedUTF8String":    {&asn1rt.Descriptor{Kind: asn1rt.KindCharacterString, Flags: asn1rt.FlagHasLower | asn1rt.FlagHasUpper, Lower: 1, Upper: 1}, asn1rt.CharString("ü"), []byte{0x02, 0xC3, 0xBC}},
		"Boolean":            {asn1test.Bool, asn1rt.Bool(true), []byte{0xFF}},
		"Null":               {asn1test.Null, asn1rt.Null{}, []byte{}},
		"Real":               {asn1test.Real, asn1rt.Real(1), []byte{0x03, 0x80, 0x00, 0x01}},
		"ObjectIdentifier":   {asn1test.OID, asn1rt.ObjectIdentifier{1, 2, 840, 113549}, []byte{0x06, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D}},
		"Extensions":         {asn1test.V2, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Bool(true), asn1rt.Int(5), nil}}, []byte{0x80, 0x01, 0x01, 0x02, 0x06, 0xC0, 0x01, 0xFF, 0x03, 0x00, 0x01, 0x05}},
		"NoExtensions":       {asn1test.V2, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), nil, nil, nil}}, []byte{0x00, 0x01, 0x01}},
		"Choice":             {asn1test.Shape, asn1rt.Choice{Index: 0, Value: asn1rt.Int(7)}, []byte{0x02, 0x01, 0x07}},
		"ContextChoice":      {asn1test.Shape, asn1rt.Choice{Index: 2, Value: asn1rt.Bool(true)}, []byte{0x80, 0xFF}},
		"LongTag":            {bigTag, asn1rt.Choice{Index: 0, Value: asn1rt.Null{}}, []byte{0x7F, 0x64}},
		"SetCanonicalOrder":  {asn1test.Bag, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(9), asn1rt.Int(1), asn1rt.Bool(false)}}, []byte{0xC0, 0x01, 0x01, 0x00, 0x01, 0x09}},
		"SequenceOf":         {ints, asn1rt.List{asn1rt.Int(1), asn1rt.Int(2)}, []byte{0x01, 0x02, 0x01, 0x01, 0x01, 0x02}},
		"EmptySequenceOf":    {ints, asn1rt.List{}, []byte{0x01, 0x00}},
		"OpenType":           {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Open{Type: asn1test.Int, Value: asn1rt.Int(5)}}}, []byte{0x01, 0x01, 0x02, 0x01, 0x05}},
		"RawOpenType":        {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Raw: []byte{0x01, 0x05}}}}, []byte{0x01, 0x03, 0x02, 0x01, 0x05}},
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
			v, n, err := Decode(tt.d, tt.want)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("Decode() consumed %d bytes, want %d", n, len(tt.want))
			}
			if !asn1rt.Equal(v, tt.v) {
				t.Errorf("Decode() = %v, want %v", v, tt.v)
			}
		})
	}
}

// TestDecodeVersions decodes encodings of one version of an extensible
// SEQUENCE with the descriptor of another version.
func TestDecodeVersions(t *testing.T) {
	tests := map[string]struct {
		d    *asn1rt.Descriptor
		data []byte
		want asn1rt.Value
	}{
		"UnknownAdditions": {asn1test.V1, []byte{0x80, 0x01, 0x01, 0x02, 0x06, 0xC0, 0x01, 0xFF, 0x03, 0x00, 0x01, 0x05}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1)}}},

		// Known edge case: an absent mandatory extension addition is decoded
		// as if it were optional.
		"AbsentMandatoryAddition": {asn1test.V2, []byte{0x00, 0x01, 0x01}, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), nil, nil, nil}}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v, n, err := Decode(tt.d, tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if n != len(tt.data) {
				t.Errorf("Decode() consumed %d bytes, want %d", n, len(tt.data))
			}
			if !asn1rt.Equal(v, tt.want) {
				t.Errorf("Decode() = %v, want %v", v, tt.want)
			}
			if r := v.(asn1rt.Record); len(r.Fields) > 1 && r.Fields[1] != nil {
				t.Errorf("Decode() b = %v, want absent", r.Fields[1])
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
		"Empty":             {asn1test.X, []byte{}, asn1rt.ErrTruncated},
		"Truncated":         {asn1test.X, []byte{0x01}, asn1rt.ErrTruncated},
		"ReservedLength":    {asn1test.Octets, []byte{0x80}, asn1rt.ErrMalformedLength},
		"LongLength":        {asn1test.Octets, []byte{0x85, 0x00, 0x00, 0x00, 0x00, 0x01}, asn1rt.ErrMalformedLength},
		"OutOfRange":        {asn1test.Integer(0, 200), []byte{0xC9}, asn1rt.ErrConstraint},
		"NotMinimal":        {asn1test.Int, []byte{0x02, 0x00, 0x01}, asn1rt.ErrConstraint},
		"UnknownTag":        {asn1test.Shape, []byte{0x85, 0x00}, asn1rt.ErrUnknownSelector},
		"UnknownEnumerated": {&asn1rt.Descriptor{Kind: asn1rt.KindEnumerated, Items: []asn1rt.EnumItem{{Name: "a"}}}, []byte{0x01}, asn1rt.ErrUnknownSelector},
		"AdditionTruncated": {asn1test.V1, []byte{0x80, 0x01, 0x01, 0x02, 0x06, 0xC0, 0x05, 0xFF}, asn1rt.ErrTruncated},
		"AdditionTrailing":  {asn1test.V2, []byte{0x80, 0x01, 0x01, 0x02, 0x07, 0x80, 0x02, 0xFF, 0x00}, asn1rt.ErrMalformedLength},
		"BitmapPadding":     {asn1test.V2, []byte{0x80, 0x01, 0x01, 0x01, 0x01}, asn1rt.ErrMalformedLength},
		"Quantity":          {ints, []byte{0x01, 0x05, 0x01, 0x01}, asn1rt.ErrTruncated},
		"SizeConstraint":    {asn1test.Sized(asn1rt.KindOctetString, 0, 1), []byte{0x02, 0x01, 0x02}, asn1rt.ErrConstraint},
		"TagNumber":         {bigTag, []byte{0x7F, 0x3E}, asn1rt.ErrMalformedTag},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(tt.d, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
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
		"ByteTooLarge":   {asn1test.Byte, asn1rt.Int(256), asn1rt.ErrConstraint},
		"ByteNegative":   {asn1test.Byte, asn1rt.Int(-1), asn1rt.ErrConstraint},
		"MissingField":   {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{nil}}, asn1rt.ErrConstraint},
		"MissingInGroup": {asn1test.V2, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), nil, nil, asn1rt.CharString("x")}}, asn1rt.ErrConstraint},
		"FixedSize":      {asn1test.Sized(asn1rt.KindOctetString, 2, 2), asn1rt.OctetString{1}, asn1rt.ErrConstraint},
		"Unresolvable":   {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Value: asn1rt.Int(5)}}}, asn1rt.ErrUnknownSelector},
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

func TestRoundTrip(t *testing.T) {
	tests := map[string]asn1rt.Value{
		"Everything": asn1test.EverythingValue(),
		"Minimal":    asn1test.MinimalValue(),
	}
	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := Encode(asn1test.Everything, v)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, n, err := Decode(asn1test.Everything, b)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if n != len(b) {
				t.Errorf("Decode() consumed %d of %d bytes", n, len(b))
			}
			if !asn1rt.Equal(got, v) {
				t.Errorf("Decode(Encode(v)) = %v, want %v", got, v)
			}
		})
	}
}

func TestDecodeWithAllocator(t *testing.T) {
	data := append([]byte{0x10}, bytes.Repeat([]byte{0x42}, 16)...)
	a := asn1rt.NewLimitAllocator(8)
	if _, _, err := DecodeWithAllocator(asn1test.Octets, data, a); !errors.Is(err, asn1rt.ErrAllocation) {
		t.Fatalf("DecodeWithAllocator() error = %v, want %v", err, asn1rt.ErrAllocation)
	}
	if a.InUse() != 0 {
		t.Errorf("InUse() = %d after failed decode, want 0", a.InUse())
	}
}
