// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ber implements the ASN.1 Basic Encoding Rules (BER) and the
// Distinguished Encoding Rules (DER). Both sets of encoding rules are defined
// in [Rec. ITU-T X.690].
// See also “[A Layman's Guide to a Subset of ASN.1, BER, and DER]”.
//
// Values are described by an [asn1rt.Descriptor]. The decoder accepts all BER
// encodings including constructed strings and indefinite lengths. The
// following limitations apply:
//
//   - Tag numbers are limited to four base-128 octets. Longer tag numbers are
//     decoded as [asn1rt.TagNumberTooLarge] and never match a descriptor.
//   - Lengths are limited to four significant octets.
//   - INTEGER values of descriptors without [asn1rt.FlagLargeInteger] are
//     limited to 64 bits.
//   - REAL values are decoded into float64. Mantissas exceeding 64 bits are
//     rejected.
//
// [Encode] produces definite-length encodings with primitive strings. It omits
// fields whose value equals their DEFAULT. [EncodeDER] additionally sorts the
// components of SET types by tag and the elements of SET OF types by their
// encodings.
//
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
// [A Layman's Guide to a Subset of ASN.1, BER, and DER]: http://luca.ntop.org/Teaching/Appunti/asn1.html
package ber

import (
	"codello.dev/asn1rt"
	"codello.dev/asn1rt/tlv"
)

// DecodeOptions configure a decode call. The zero value uses the Go heap.
type DecodeOptions struct {
	// Allocator provides the buffers of decoded string values.
	Allocator asn1rt.Allocator
}

// Decode decodes a single value of type d from the start of data. It returns
// the value and the number of bytes consumed. Data after the first element is
// ignored.
func Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	return DecodeOptions{}.Decode(d, data)
}

// DecodeWithAllocator works like [Decode] but allocates string buffers from a.
func DecodeWithAllocator(d *asn1rt.Descriptor, data []byte, a asn1rt.Allocator) (asn1rt.Value, int, error) {
	return DecodeOptions{Allocator: a}.Decode(d, data)
}

// Decode decodes a single value of type d from the start of data using the
// options in o. If decoding fails, all buffers allocated during the call are
// released.
func (o DecodeOptions) Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	dec := &decoder{data: data, arena: asn1rt.NewArena(o.Allocator)}
	el, err := tlv.Parse(data, 0, len(data))
	if err != nil {
		return nil, 0, err
	}
	v, err := dec.decode(d, el, nil)
	if err != nil {
		dec.arena.Release()
		return nil, 0, err
	}
	return v, el.Next, nil
}

// Encode returns the BER encoding of v as a value of type d.
func Encode(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	e := &encoder{}
	return e.encode(d, v, nil)
}

// EncodeDER returns the DER encoding of v as a value of type d.
func EncodeDER(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	e := &encoder{der: true}
	return e.encode(d, v, nil)
}
