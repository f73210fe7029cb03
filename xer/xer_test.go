// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xer

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
		"Sequence":     {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, "<X><x>5</x></X>"},
		"Boolean":      {asn1test.Bool, asn1rt.Bool(true), "<BOOLEAN><true/></BOOLEAN>"},
		"Enumerated":   {asn1test.Color, asn1rt.Enumerated(5), "<Color><blue/></Color>"},
		"UnknownEnum":  {asn1test.Color, asn1rt.Enumerated(12), "<Color>12</Color>"},
		"Null":         {asn1test.Null, asn1rt.Null{}, "<NULL/>"},
		"Choice":       {asn1test.Shape, asn1rt.Choice{Index: 1, Value: asn1rt.CharString("circle")}, "<Shape><label>circle</label></Shape>"},
		"OctetString":  {asn1test.Octets, asn1rt.OctetString{0xDE, 0xAD, 0xBE, 0xEF}, "<OCTET_STRING>DEADBEEF</OCTET_STRING>"},
		"BitString":    {asn1test.Bits, asn1rt.BitString{Bytes: []byte{0xAA, 0x80}, BitLength: 9}, "<BIT_STRING>101010101</BIT_STRING>"},
		"OID":          {asn1test.OID, asn1rt.ObjectIdentifier{1, 2, 840, 113549}, "<OBJECT_IDENTIFIER>1.2.840.113549</OBJECT_IDENTIFIER>"},
		"RelativeOID":  {asn1test.RelOID, asn1rt.RelativeOID{8571, 3, 2}, "<RELATIVE_OID>8571.3.2</RELATIVE_OID>"},
		"Real":         {asn1test.Real, asn1rt.Real(-2.5), "<REAL>-2.5</REAL>"},
		"Infinity":     {asn1test.Real, asn1rt.Real(math.Inf(1)), "<REAL><PLUS-INFINITY/></REAL>"},
		"Escaped":      {asn1test.UTF8, asn1rt.CharString("a<b&c>"), "<UTF8String>a&lt;b&amp;c&gt;</UTF8String>"},
		"ControlChar":  {asn1test.UTF8, asn1rt.CharString("a\x01"), "<UTF8String>a&#x1;</UTF8String>"},
		"SequenceOf":   {ints, asn1rt.List{asn1rt.Int(1), asn1rt.Int(2)}, "<SEQUENCE_OF><INTEGER>1</INTEGER><INTEGER>2</INTEGER></SEQUENCE_OF>"},
		"Set":          {asn1test.Bag, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(9), asn1rt.Int(1), asn1rt.Bool(false)}}, "<Bag><r>9</r><p>1</p><q><false/></q></Bag>"},
		"DefaultValue": {asn1test.Bag, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), nil}}, "<Bag><p>1</p></Bag>"},
		"OpenType":     {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Open{Type: asn1test.Int, Value: asn1rt.Int(5)}}}, "<Message><id>1</id><body>5</body></Message>"},
		"RawOpenType":  {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Raw: []byte("<x>1</x>")}}}, "<Message><id>3</id><body><x>1</x></body></Message>"},
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

func TestEncodeIndent(t *testing.T) {
	v := asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Bool(true), asn1rt.Int(5), nil}}
	want := "<Versioned>\n  <a>1</a>\n  <b><true/></b>\n  <c>5</c>\n</Versioned>"
	got, err := Options{Indent: "  "}.Encode(asn1test.V2, v)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		d    *asn1rt.Descriptor
		data string
		want asn1rt.Value
		n    int
	}{
		"AnyOrder": {
			asn1test.Bag,
			"<?xml version=\"1.0\"?>\n<!-- bag -->\n<Bag>\n  <q>true</q>\n  <p>1</p>\n</Bag>",
			asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), asn1rt.Bool(true)}},
			-1,
		},
		"Attributes":     {asn1test.X, `<X xmlns:asn1="urn:oid:2.1.5.2.0.1"><x> 5 </x></X>`, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, -1},
		"EmptyBoolean":   {asn1test.Bool, "<BOOLEAN><false></false></BOOLEAN>", asn1rt.Bool(false), -1},
		"TextBoolean":    {asn1test.Bool, "<BOOLEAN>true</BOOLEAN>", asn1rt.Bool(true), -1},
		"EnumIdentifier": {asn1test.Color, "<Color>red</Color>", asn1rt.Enumerated(0), -1},
		"EnumNumber":     {asn1test.Color, "<Color>9</Color>", asn1rt.Enumerated(9), -1},
		"References":     {asn1test.UTF8, "<UTF8String>&#x41;&#66;&lt;&quot;&apos;</UTF8String>", asn1rt.CharString("AB<\"'"), -1},
		"CDATA":          {asn1test.UTF8, "<UTF8String>x<![CDATA[<a>]]>y</UTF8String>", asn1rt.CharString("x<a>y"), -1},
		"Comment":        {asn1test.UTF8, "<UTF8String>a<!-- b -->c</UTF8String>", asn1rt.CharString("ac"), -1},
		"EmptyString":    {asn1test.UTF8, "<UTF8String/>", asn1rt.CharString(""), -1},
		"SpacedOctets":   {asn1test.Octets, "<OCTET_STRING>DE AD\n be ef</OCTET_STRING>", asn1rt.OctetString{0xDE, 0xAD, 0xBE, 0xEF}, -1},
		"Exponent":       {asn1test.Real, "<REAL>-25E-1</REAL>", asn1rt.Real(-2.5), -1},
		"UnknownSkipped": {asn1test.V1, "<Versioned><a>1</a><b><true/></b></Versioned>", asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1)}}, -1},
		"TrailingData":   {asn1test.X, "<X><x>5</x></X>  junk", asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(5)}}, 15},
		"Recursive":      {
			asn1test.Node,
			"<Node><value>1</value><next><value>2</value></next></Node>",
			asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(1), asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(2), nil}}}},
			-1,
		},
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
		"Empty":          {asn1test.X, "", asn1rt.ErrTruncated},
		"MissingField":   {asn1test.X, "<X></X>", asn1rt.ErrConstraint},
		"Duplicate":      {asn1test.X, "<X><x>1</x><x>2</x></X>", asn1rt.ErrConstraint},
		"UnknownField":   {asn1test.X, "<X><x>1</x><y>2</y></X>", asn1rt.ErrConstraint},
		"UnknownAlt":     {asn1test.Shape, "<Shape><nope>1</nope></Shape>", asn1rt.ErrUnknownSelector},
		"WrongName":      {asn1test.X, "<Y/>", asn1rt.ErrUnknownSelector},
		"Truncated":      {asn1test.X, "<X><x>5</x>", asn1rt.ErrTruncated},
		"Mismatched":     {asn1test.X, "<X><x>5</y></X>", asn1rt.ErrMalformedTag},
		"BadName":        {asn1test.X, "<1X/>", asn1rt.ErrMalformedTag},
		"BadInteger":     {asn1test.Int, "<INTEGER>abc</INTEGER>", asn1rt.ErrConstraint},
		"OutOfRange":     {asn1test.Byte, "<INTEGER>256</INTEGER>", asn1rt.ErrConstraint},
		"UnknownItem":    {asn1test.Color, "<Color><pink/></Color>", asn1rt.ErrUnknownSelector},
		"BadBoolean":     {asn1test.Bool, "<BOOLEAN>yes</BOOLEAN>", asn1rt.ErrConstraint},
		"UnknownEntity":  {asn1test.UTF8, "<UTF8String>&foo;</UTF8String>", asn1rt.ErrConstraint},
		"OpenComment":    {asn1test.X, "<!-- x", asn1rt.ErrTruncated},
		"Alphabet":       {asn1test.IA5, "<IA5String>ü</IA5String>", asn1rt.ErrConstraint},
		"BadBits":        {asn1test.Bits, "<BIT_STRING>102</BIT_STRING>", asn1rt.ErrConstraint},
		"BadHex":         {asn1test.Octets, "<OCTET_STRING>ABC</OCTET_STRING>", asn1rt.ErrConstraint},
		"BadOID":         {asn1test.OID, "<OBJECT_IDENTIFIER>3.1</OBJECT_IDENTIFIER>", asn1rt.ErrConstraint},
		"TextInSequence": {asn1test.X, "<X>5</X>", asn1rt.ErrConstraint},
		"SizeConstraint": {asn1test.Sized(asn1rt.KindOctetString, 0, 1), "<OCTET_STRING>0102</OCTET_STRING>", asn1rt.ErrConstraint},
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
	data := "<X>\n<x>\nabc</x>\n</X>"
	_, _, err := Decode(asn1test.X, []byte(data))
	var e *asn1rt.Error
	if !errors.As(err, &e) {
		t.Fatalf("Decode() error = %v, want *asn1rt.Error", err)
	}
	if e.Line != 2 {
		t.Errorf("Decode() error line = %d, want 2", e.Line)
	}
}

func TestEncodeError(t *testing.T) {
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		v       asn1rt.Value
		wantErr error
	}{
		"MissingField": {asn1test.X, asn1rt.Record{Fields: []asn1rt.Value{nil}}, asn1rt.ErrConstraint},
		"OutOfRange":   {asn1test.Byte, asn1rt.Int(256), asn1rt.ErrConstraint},
		"Alphabet":     {asn1test.IA5, asn1rt.CharString("ü"), asn1rt.ErrConstraint},
		"Choice":       {asn1test.Shape, asn1rt.Choice{Index: 3, Value: asn1rt.Null{}}, asn1rt.ErrUnknownSelector},
		"WrongType":    {asn1test.Null, asn1rt.Bool(true), asn1rt.ErrConstraint},
		"Unresolvable": {asn1test.Message, asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(3), asn1rt.Open{Value: asn1rt.Int(5)}}}, asn1rt.ErrUnknownSelector},
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
	variants := map[string]Options{
		"Compact":  {},
		"Indented": {Indent: "\t"},
	}
	for name, v := range values {
		for variant, opts := range variants {
			t.Run(name+"/"+variant, func(t *testing.T) {
				b, err := opts.Encode(asn1test.Everything, v)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				got, n, err := opts.Decode(asn1test.Everything, b)
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
}

func TestDecodeWithAllocator(t *testing.T) {
	data := []byte("<OCTET_STRING>000102030405060708090A0B0C0D0E0F</OCTET_STRING>")
	a := asn1rt.NewLimitAllocator(8)
	if _, _, err := DecodeWithAllocator(asn1test.Octets, data, a); !errors.Is(err, asn1rt.ErrAllocation) {
		t.Fatalf("DecodeWithAllocator() error = %v, want %v", err, asn1rt.ErrAllocation)
	}
	if a.InUse() != 0 {
		t.Errorf("InUse() = %d after failed decode, want 0", a.InUse())
	}
}
