// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xer implements the Basic XML Encoding Rules (BASIC-XER) as defined
// in [Rec. ITU-T X.693].
//
// A value is encoded as an XML element named after its type. Components of
// SEQUENCE and SET values and alternatives of CHOICE values are child elements
// named after the component. Elements of SEQUENCE OF and SET OF values are
// named after the element type. BOOLEAN and ENUMERATED values and special REAL
// values are represented as empty elements such as <true/>.
//
// The decoder accepts components of SEQUENCE types in any order. Errors report
// the line number of the element that could not be decoded. An ANY value whose
// type cannot be resolved keeps the XML text of its contents in [asn1rt.Open].
//
// [Rec. ITU-T X.693]: https://www.itu.int/rec/T-REC-X.693
package xer

import (
	"codello.dev/asn1rt"
)

// Options configure the XER encoder and decoder.
type Options struct {
	// Indent is written once per nesting level before each child element. If
	// empty, no white space is written.
	Indent string
	// Allocator provides the buffers of decoded string values. If nil the Go
	// heap is used.
	Allocator asn1rt.Allocator
}

// Encode returns the XML encoding of v as a value of type d.
func (o Options) Encode(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	e := &encoder{indent: o.Indent}
	if err := e.element(typeName(d), d, v, nil); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Decode decodes the first element of data as a value of type d. It returns
// the value and the offset after the end tag of the element.
func (o Options) Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	dec := &decoder{t: newTokenizer(data), arena: asn1rt.NewArena(o.Allocator)}
	v, n, err := dec.document(d)
	if err != nil {
		dec.arena.Release()
		return nil, 0, err
	}
	return v, n, nil
}

// Encode returns the XML encoding of v without indentation.
func Encode(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	return Options{}.Encode(d, v)
}

// Decode decodes a value of type d from its XML encoding.
func Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	return Options{}.Decode(d, data)
}

// DecodeWithAllocator works like [Decode] but allocates string buffers from a.
func DecodeWithAllocator(d *asn1rt.Descriptor, data []byte, a asn1rt.Allocator) (asn1rt.Value, int, error) {
	return Options{Allocator: a}.Decode(d, data)
}

// typeName returns the element name of a value of type d.
func typeName(d *asn1rt.Descriptor) string {
	for d.Name == "" && d.Kind == asn1rt.KindTagged {
		d = d.Elem
	}
	if d.Name != "" {
		return d.Name
	}
	switch d.Kind {
	case asn1rt.KindSequence:
		return "SEQUENCE"
	case asn1rt.KindSet:
		return "SET"
	case asn1rt.KindSequenceOf:
		return "SEQUENCE_OF"
	case asn1rt.KindSetOf:
		return "SET_OF"
	case asn1rt.KindChoice:
		return "CHOICE"
	case asn1rt.KindEnumerated:
		return "ENUMERATED"
	case asn1rt.KindBoolean:
		return "BOOLEAN"
	case asn1rt.KindInteger:
		return "INTEGER"
	case asn1rt.KindNull:
		return "NULL"
	case asn1rt.KindOctetString:
		return "OCTET_STRING"
	case asn1rt.KindBitString:
		return "BIT_STRING"
	case asn1rt.KindObjectIdentifier:
		return "OBJECT_IDENTIFIER"
	case asn1rt.KindRelativeOID:
		return "RELATIVE_OID"
	case asn1rt.KindReal:
		return "REAL"
	case asn1rt.KindCharacterString:
		return d.Alphabet.String() + "String"
	}
	return "ANY"
}
