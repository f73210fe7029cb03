// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gser

import (
	"errors"
	"math"
	"testing"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/asn1test"
)

var ints = &asn1rt.Descriptor{Kind: asn1rt.KindSequenceOf, Elem: asn1test.Int}

func TestCodec(t *testing.T) {
	tests := map[string]struct {
		d    *asn1rt.Descriptor
		v    asn1rt.Value
		want string
	}{
		"Sequence":        {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, "{ x 5 }"},
		"Boolean":         {asn1test.Bool, asn1rt.Bool(true), "TRUE"},
		"Null":            {asn1test.Null, asn1rt.Null{}, "NULL"},
		"Enumerated":      {asn1test.Color, asn1rt.Enumerated(5), "blue"},
		"UnknownEnum":     {asn1test.Color, asn1rt.Enumerated(12), "12"},
		"NegativeInteger": {asn1test.Int, asn1rt.Int(-42), "-42"},
		"Choice":          {asn1test.Shape, asn1rt.Choice{Index: 1, Value: asn1rt.CharString("circle")}, `label:"circle"`},
		"OctetString":     {asn1test.Octets, asn1rt.OctetString{0xDE, 0xAD, 0xBE, 0xEF}, "'DEADBEEF'H"},
		"BitString":       {asn1test.Bits, asn1rt.BitString{Bytes: []byte{0xAA, 0x80}, BitLength: 9}, "'101010101'B"},
		"EmptyBitString":  {asn1test.Bits, asn1rt.BitString{}, "''B"},
		"OID":             {asn1test.OID, asn1rt.ObjectIdentifier{1, 2, 840, 113549}, "{ 1 2 840 113549 }"},
		"RelativeOID":     {asn1test.RelOID, asn1rt.RelativeOID{8571, 3, 2}, "{ 8571 3 2 }"},
		"EmptyRelOID":     {asn1test.RelOID, asn1rt.RelativeOID{}, "{ }"},
		"Real":            {asn1test.Real, asn1rt.Real(-2.5), "-2.5E0"},
		"SmallReal":       {asn1test.Real, asn1rt.Real(0.001), "1E-3"},
		"Zero":            {asn1test.Real, asn1rt.Real(0), "0"},
		"NegativeZero":    {asn1test.Real, asn1rt.Real(math.Copysign(0, -1)), "-0"},
		"Infinity":        {asn1test.Real, asn1rt.Real(math.Inf(-1)), "MINUS-INFINITY"},
		"NaN":             {asn1test.Real, asn1rt.Real(math.NaN()), "NOT-A-NUMBER"},
		"Quotes":          {asn1test.UTF8, asn1rt.CharString(`say "hi"`), `"say ""hi"""`},
		"EmptyString":     {asn1test.UTF8, asn1rt.CharString(""), `""`},
		"SequenceOf":      {ints, asn1rt.List{asn1rt.Int(1), asn1rt.Int(2)}, "{ 1, 2 }"},
		"EmptySequenceOf": {ints, asn1rt.List{}, "{ }"},
		"Set":             {asn1test.Bag, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(9), asn1rt.Int(1), asn1rt.Bool(false)}}, "{ r 9, p 1, q FALSE }"},
		"DefaultValue":    {asn1test.Bag, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), nil}}, "{ p 1 }"},
		"OpenType":        {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Open{Type: asn1test.Int, Value: asn1rt.Int(5)}}}, "{ id 1, body 5 }"},
		"RawOpenType":     {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Raw: []byte("{ a 1, b x:{ 2 } }")}}}, "{ id 3, body { a 1, b x:{ 2 } } }"},
		"Recursive":       {
			asn1test.Node,
			asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(2), nil}}}},
			"{ value 1, next { value 2 } }",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Encode(tt.d, tt.v)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
			v, n, err := Decode(tt.d, []byte(tt.want))
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

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		d    *asn1rt.Descriptor
		data string
		want asn1rt.Value
		n    int
	}{
		"AnyOrder":       {asn1test.Bag, "{\n  q TRUE,\n  p 1\n}", asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), asn1rt.Bool(true)}}, -1},
		"Compact":        {asn1test.Bag, "{p 1,q FALSE}", asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), asn1rt.Bool(false)}}, -1},
		"HexBits":        {asn1test.Bits, "'AA8'H", asn1rt.BitString{Bytes: []byte{0xAA, 0x80}, BitLength: 12}, -1},
		"LowerHex":       {asn1test.Octets, "'beef'H", asn1rt.OctetString{0xBE, 0xEF}, -1},
		"QuotedOID":      {asn1test.OID, `"1.2.840"`, asn1rt.ObjectIdentifier{1, 2, 840}, -1},
		"DottedOID":      {asn1test.OID, "1.2.840", asn1rt.ObjectIdentifier{1, 2, 840}, -1},
		"DottedRelOID":   {asn1test.RelOID, "8571.3", asn1rt.RelativeOID{8571, 3}, -1},
		"Exponent":       {asn1test.Real, "-25E-1", asn1rt.Real(-2.5), -1},
		"Decimal":        {asn1test.Real, "1.5", asn1rt.Real(1.5), -1},
		"IntegralReal":   {asn1test.Real, "100", asn1rt.Real(100), -1},
		"UnknownSkipped": {asn1test.V1, "{ a 1, b TRUE, c x:{ 1, { 2 } } }", asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1)}}, -1},
		"TrailingData":   {asn1test.X, "{ x 5 } tail", asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, 7},
		"LeadingSpace":   {asn1test.Int, "\n\t 7", asn1rt.Int(7), -1},
		"Newline":        {asn1test.UTF8, "\"a\nb\"", asn1rt.CharString("a\nb"), -1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v, n, err := Decode(tt.d, []byte(tt.data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			want := tt.n
			if want < 0 {
				want = len(tt.data)
			}
			if n != want {
				t.Errorf("Decode() consumed %d bytes, want %d", n, want)
			}
			if !asn1rt.Equal(v, tt.want) {
				t.Errorf("Decode() = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestDecodeError(t *testing.T) {
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		data    string
		wantErr error
	}{
		"Empty":              {asn1test.X, "", asn1rt.ErrTruncated},
		"MissingField":       {asn1test.X, "{ }", asn1rt.ErrConstraint},
		"Duplicate":          {asn1test.X, "{ x 1, x 2 }", asn1rt.ErrConstraint},
		"UnknownField":       {asn1test.X, "{ y 1 }", asn1rt.ErrConstraint},
		"MissingSeparator":   {asn1test.X, "{ x 1 y 2 }", asn1rt.ErrMalformedTag},
		"Truncated":          {asn1test.X, "{ x 5", asn1rt.ErrTruncated},
		"TrailingComma":      {asn1test.X, "{ x 5,", asn1rt.ErrTruncated},
		"UnknownAlt":         {asn1test.Shape, "nope:1", asn1rt.ErrUnknownSelector},
		"MissingColon":       {asn1test.Shape, `label "x"`, asn1rt.ErrMalformedTag},
		"UnterminatedString": {asn1test.UTF8, `"abc`, asn1rt.ErrTruncated},
		"UnterminatedQuote":  {asn1test.Bits, "'0101", asn1rt.ErrTruncated},
		"QuoteSuffix":        {asn1test.Bits, "'01'X", asn1rt.ErrMalformedTag},
		"BadCharacter":       {asn1test.Int, "@", asn1rt.ErrMalformedTag},
		"BadInteger":         {asn1test.Int, "1.5", asn1rt.ErrConstraint},
		"OutOfRange":         {asn1test.Byte, "256", asn1rt.ErrConstraint},
		"BadBoolean":         {asn1test.Bool, "yes", asn1rt.ErrConstraint},
		"QuotedBoolean":      {asn1test.Bool, `"TRUE"`, asn1rt.ErrConstraint},
		"UnknownItem":        {asn1test.Color, "pink", asn1rt.ErrUnknownSelector},
		"OddOctets":          {asn1test.Octets, "'ABC'H", asn1rt.ErrConstraint},
		"BadBits":            {asn1test.Bits, "'012'B", asn1rt.ErrConstraint},
		"BadOID":             {asn1test.OID, "{ 3 1 }", asn1rt.ErrConstraint},
		"OIDIdentifier":      {asn1test.OID, "{ iso 2 }", asn1rt.ErrMalformedTag},
		"Alphabet":           {asn1test.IA5, `"ü"`, asn1rt.ErrConstraint},
		"SizeConstraint":     {asn1test.Sized(asn1rt.KindOctetString, 0, 1), "'0102'H", asn1rt.ErrConstraint},
		"StructureAsValue":   {asn1test.Int, "}", asn1rt.ErrMalformedTag},
		"UnbalancedSkip":     {asn1test.V1, "{ a 1, b { c { } }", asn1rt.ErrTruncated},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(tt.d, []byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeErrorLine(t *testing.T) {
	data := "{\n  a 1,\n  b\n    300\n}"
	d := &asn1rt.Descriptor{
		Kind:   asn1rt.KindSequence,
		Fields: []asn1rt.Field{{Name: "a", Type: asn1test.Int}, {Name: "b", Type: asn1test.Byte}},
	}
	_, _, err := Decode(d, []byte(data))
	var e *asn1rt.Error
	if !errors.As(err, &e) {
		t.Fatalf("Decode() error = %v, want *asn1rt.Error", err)
	}
	if !errors.Is(err, asn1rt.ErrConstraint) {
		t.Errorf("Decode() error = %v, want %v", err, asn1rt.ErrConstraint)
	}
	if e.Line != 4 {
		t.Errorf("Decode() error line = %d, want 4", e.Line)
	}
}

func TestEncodeError(t *testing.T) {
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		v       asn1rt.Value
		wantErr error
	}{
		"MissingField": {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{nil}}, asn1rt.ErrConstraint},
		"OutOfRange":   {asn1test.Byte, asn1rt.Int(-1), asn1rt.ErrConstraint},
		"Alphabet":     {asn1test.IA5, asn1rt.CharString("ü"), asn1rt.ErrConstraint},
		"Choice":       {asn1test.Shape, asn1rt.Choice{Index: 3, Value: asn1rt.Null{}}, asn1rt.ErrUnknownSelector},
		"WrongType":    {asn1test.Bool, asn1rt.Int(1), asn1rt.ErrConstraint},
		"InvalidOID":   {asn1test.OID, asn1rt.ObjectIdentifier{1}, asn1rt.ErrConstraint},
		"Unresolvable": {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Value: asn1rt.Int(5)}}}, asn1rt.ErrUnknownSelector},
		"EmptyRaw":     {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{}}}, asn1rt.ErrConstraint},
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
	values := map[string]asn1rt.Value{
		"Everything": asn1test.EverythingValue(),
		"Minimal":    asn1test.MinimalValue(),
	}
	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			b, err := Encode(asn1test.Everything, v)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, n, err := Decode(asn1test.Everything, b)
			if err != nil {
				t.Fatalf("Decode() error = %v\n%s", err, b)
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
	data := []byte("'000102030405060708090A0B0C0D0E0F'H")
	a := asn1rt.NewLimitAllocator(8)
	if _, _, err := DecodeWithAllocator(asn1test.Octets, data, a); !errors.Is(err, asn1rt.ErrAllocation) {
		t.Fatalf("DecodeWithAllocator() error = %v, want %v", err, asn1rt.ErrAllocation)
	}
	if a.InUse() != 0 {
		t.Errorf("InUse() = %d after failed decode, want 0", a.InUse())
	}
}
