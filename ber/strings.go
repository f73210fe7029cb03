// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"codello.dev/asn1rt"
	"codello.dev/asn1rt/tlv"
)

// maxSegmentDepth bounds the nesting of constructed string segments.
const maxSegmentDepth = 64

// collect returns the concatenated contents of the possibly constructed
// string element el. If bits is true, el is a BIT STRING and collect also
// returns the number of unused bits in the final octet. The returned buffer is
// allocated in the arena.
func (dec *decoder) collect(el tlv.Element, bits bool) ([]byte, int, error) {
	buf, err := dec.arena.Alloc(0)
	if err != nil {
		return nil, 0, asn1rt.At(err, asn1rt.ErrAllocation, el.Offset)
	}
	unused := -1
	if err = dec.segment(el, el.Tag, bits, &buf, &unused, 0); err != nil {
		return nil, 0, err
	}
	if unused < 0 {
		unused = 0
	}
	return buf, unused, nil
}

// segment appends the contents of el to buf. unused holds the number of unused
// bits of the last BIT STRING segment seen so far or -1 if there was none.
func (dec *decoder) segment(el tlv.Element, outer asn1rt.Tag, bits bool, buf *[]byte, unused *int, depth int) error {
	if !el.Constructed {
		bs := el.Contents(dec.data)
		if bits {
			if *unused > 0 {
				return asn1rt.Errorf(asn1rt.ErrConstraint, "unused bits in non-final BIT STRING segment").At(el.Offset)
			}
			if len(bs) == 0 {
				return asn1rt.Errorf(asn1rt.ErrMalformedLength, "empty BIT STRING segment").At(el.Offset)
			}
			if bs[0] > 7 || len(bs) == 1 && bs[0] != 0 {
				return asn1rt.Errorf(asn1rt.ErrConstraint, "invalid padding bits in BIT STRING").At(el.Offset)
			}
			*unused = int(bs[0])
			bs = bs[1:]
		}
		b, err := dec.arena.Append(*buf, bs)
		if err != nil {
			return asn1rt.At(err, asn1rt.ErrAllocation, el.Offset)
		}
		*buf = b
		return nil
	}
	if depth >= maxSegmentDepth {
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "constructed string nested too deeply").At(el.Offset)
	}
	want := asn1rt.Tag{Class: asn1rt.ClassUniversal, Number: asn1rt.TagOctetString}
	if bits {
		want.Number = asn1rt.TagBitString
	}
	return el.Children(dec.data, func(c tlv.Element) error {
		if c.Tag != want && c.Tag != outer {
			return asn1rt.Errorf(asn1rt.ErrConstraint, "unexpected tag %s in constructed string", c.Tag).At(c.Offset)
		}
		return dec.segment(c, outer, bits, buf, unused, depth+1)
	})
}
