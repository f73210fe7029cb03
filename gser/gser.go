// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gser implements the Generic String Encoding Rules (GSER) as defined
// in [RFC 3641].
//
// GSER represents values in a notation close to the ASN.1 value notation:
//
//	{ id 1, name "Alice", flags '101'B, shape label:"circle" }
//
// Components of SEQUENCE and SET values are written as identifier and value
// pairs, CHOICE values as the identifier of the alternative followed by a
// colon and the value. OBJECT IDENTIFIER values are written as a list of
// arcs. The decoder additionally accepts the dotted notation, quoted or
// unquoted, and BIT STRING values in hexadecimal form.
//
// Errors report the line number of the value that could not be decoded. An
// ANY value whose type cannot be resolved keeps its GSER text in
// [asn1rt.Open].
//
// [RFC 3641]: https://www.rfc-editor.org/rfc/rfc3641
package gser

import (
	"codello.dev/asn1rt"
)

// Options configure the GSER decoder.
type Options struct {
	// Allocator provides the buffers of decoded string values. If nil the Go
	// heap is used.
	Allocator asn1rt.Allocator
}

// Decode decodes a value of type d from the beginning of data. It returns
// the value and the offset after its last token.
func (o Options) Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	dec := &decoder{t: newTokenizer(data), arena: asn1rt.NewArena(o.Allocator)}
	v, err := dec.decode(d, nil)
	if err != nil {
		dec.arena.Release()
		return nil, 0, err
	}
	return v, dec.t.last, nil
}

// Decode decodes a value of type d from its GSER encoding.
func Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	return Options{}.Decode(d, data)
}

// DecodeWithAllocator works like [Decode] but allocates string buffers from a.
func DecodeWithAllocator(d *asn1rt.Descriptor, data []byte, a asn1rt.Allocator) (asn1rt.Value, int, error) {
	return Options{Allocator: a}.Decode(d, data)
}

// Encode returns the GSER encoding of v as a value of type d.
func Encode(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	e := &encoder{}
	if err := e.encode(d, v, nil); err != nil {
		return nil, err
	}
	return e.buf, nil
}
