// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oer implements the basic Octet Encoding Rules (OER) as defined in
// [Rec. ITU-T X.696].
//
// OER encodes values without tags wherever the type is known from the
// descriptor. Constraints with an extension marker are not visible to OER:
// an extensible INTEGER is encoded like an unconstrained one and strings with
// an extensible size constraint always carry a length determinant.
//
// The following limitations apply:
//
//   - Length determinants are limited to four octets.
//   - REAL values always use the length-prefixed BER contents octets. The
//     fixed-size IEEE 754 forms are not produced.
//   - Unknown CHOICE alternatives cannot be represented and are reported as
//     [asn1rt.ErrUnknownSelector]. Unknown SEQUENCE extension additions are
//     skipped.
//
// [Rec. ITU-T X.696]: https://www.itu.int/rec/T-REC-X.696
package oer

import (
	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/cursor"
)

// DecodeOptions configure a decode call. The zero value uses the Go heap.
type DecodeOptions struct {
	// Allocator provides the buffers of decoded string values.
	Allocator asn1rt.Allocator
}

// Decode decodes a single value of type d from the start of data. It returns
// the value and the number of bytes consumed.
func Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	return DecodeOptions{}.Decode(d, data)
}

// DecodeWithAllocator works like [Decode] but allocates string buffers from a.
func DecodeWithAllocator(d *asn1rt.Descriptor, data []byte, a asn1rt.Allocator) (asn1rt.Value, int, error) {
	return DecodeOptions{Allocator: a}.Decode(d, data)
}

// Decode decodes a single value of type d using the options in o. If decoding
// fails, all buffers allocated during the call are released.
func (o DecodeOptions) Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	dec := &decoder{arena: asn1rt.NewArena(o.Allocator)}
	c := cursor.New(data)
	v, err := dec.decode(d, c, nil)
	if err != nil {
		dec.arena.Release()
		return nil, 0, err
	}
	return v, c.Pos(), nil
}

// Encode returns the OER encoding of v as a value of type d.
func Encode(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	var e encoder
	return e.encode(nil, d, v, nil)
}
