// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package per implements the basic Packed Encoding Rules (PER) in the aligned
// and unaligned variants as defined in [Rec. ITU-T X.691].
//
// Values are packed into a bit stream. The aligned variant inserts padding
// bits before some fields so that they start on an octet boundary. Use
// [Options] to select the variant; [Encode] and [Decode] use the unaligned
// variant.
//
// The following limitations apply:
//
//   - Bounds of INTEGER types that do not fit into an int64 are treated as
//     absent.
//   - Permitted alphabet constraints are not supported. Character strings use
//     the full alphabet of their type.
//   - Unknown CHOICE alternatives and unknown ENUMERATED extension values
//     cannot be represented and are reported as [asn1rt.ErrUnknownSelector].
//     Unknown SEQUENCE extension additions are skipped.
//
// [Rec. ITU-T X.691]: https://www.itu.int/rec/T-REC-X.691
package per

import (
	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/bitbuf"
)

// Options configure the PER variant and the allocation of decoded values.
type Options struct {
	// Aligned selects the aligned variant.
	Aligned bool
	// Allocator provides the buffers of decoded string values. If nil the Go
	// heap is used.
	Allocator asn1rt.Allocator
}

// Encode returns the encoding of v as a value of type d. The result is padded
// to a whole number of octets and contains at least one octet.
func (o Options) Encode(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	e := &encoder{aligned: o.Aligned}
	if err := e.encode(d, v, nil); err != nil {
		return nil, err
	}
	b := e.w.Bytes()
	if len(b) == 0 {
		return []byte{0}, nil
	}
	return b, nil
}

// Decode decodes a single value of type d from the start of data. It returns
// the value and the number of octets consumed. If decoding fails, all buffers
// allocated during the call are released.
func (o Options) Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	if len(data) == 0 {
		return nil, 0, asn1rt.Errorf(asn1rt.ErrTruncated, "empty input").At(0)
	}
	dec := &decoder{r: bitbuf.NewReader(data), aligned: o.Aligned, arena: asn1rt.NewArena(o.Allocator)}
	v, err := dec.decode(d, nil)
	if err != nil {
		dec.arena.Release()
		return nil, 0, err
	}
	return v, max(1, (dec.r.Pos()+7)/8), nil
}

// Encode returns the unaligned PER encoding of v as a value of type d.
func Encode(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	return Options{}.Encode(d, v)
}

// Decode decodes a value of type d from its unaligned PER encoding.
func Decode(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	return Options{}.Decode(d, data)
}

// EncodeAligned returns the aligned PER encoding of v as a value of type d.
func EncodeAligned(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	return Options{Aligned: true}.Encode(d, v)
}

// DecodeAligned decodes a value of type d from its aligned PER encoding.
func DecodeAligned(d *asn1rt.Descriptor, data []byte) (asn1rt.Value, int, error) {
	return Options{Aligned: true}.Decode(d, data)
}

// DecodeWithAllocator works like [Decode] but allocates string buffers from a.
func DecodeWithAllocator(d *asn1rt.Descriptor, data []byte, a asn1rt.Allocator) (asn1rt.Value, int, error) {
	return Options{Allocator: a}.Decode(d, data)
}
