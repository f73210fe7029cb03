// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package per

import (
	"errors"
	"io"
	"math/bits"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/bitbuf"
)

// Length determinant limits.
const (
	fragment    = 16 << 10 // items per fragment unit
	maxFragment = 4        // fragment units per length octet
	k64         = 64 << 10
)

// maxEmptyItems bounds the number of items of a length determinant that may
// encode without consuming input.
const maxEmptyItems = 1 << 16

// octetsFor returns the number of octets needed for the unsigned value v.
func octetsFor(v uint64) int {
	return max(1, (bits.Len64(v)+7)/8)
}

//region Encoding

type encoder struct {
	w       bitbuf.Writer
	aligned bool
}

func (e *encoder) align() {
	if e.aligned {
		e.w.Align()
	}
}

// constrained writes the offset v of a constrained whole number with the
// given range ub-lb.
func (e *encoder) constrained(v, rng uint64) {
	if rng == 0 {
		return
	}
	if !e.aligned {
		e.w.PutBits(v, bits.Len64(rng))
		return
	}
	switch {
	case rng <= 254:
		e.w.PutBits(v, bits.Len64(rng))
	case rng == 255:
		e.w.Align()
		e.w.PutBits(v, 8)
	case rng < k64:
		e.w.Align()
		e.w.PutBits(v, 16)
	default:
		n := octetsFor(v)
		e.constrained(uint64(n-1), uint64(octetsFor(rng)-1))
		e.w.Align()
		e.w.PutBits(v, 8*n)
	}
}

// normallySmall writes a normally small non-negative whole number.
func (e *encoder) normallySmall(n uint64) {
	if n < 64 {
		e.w.PutBit(false)
		e.w.PutBits(n, 6)
		return
	}
	e.w.PutBit(true)
	var bs [8]byte
	l := octetsFor(n)
	for i := range l {
		bs[i] = byte(n >> (8 * (l - 1 - i)))
	}
	e.octets(bs[:l])
}

// smallLength writes a normally small length n >= 1.
func (e *encoder) smallLength(n int) {
	if n <= 64 {
		e.w.PutBit(false)
		e.w.PutBits(uint64(n-1), 6)
		return
	}
	e.w.PutBit(true)
	e.fragmented(n, func(int, int) error { return nil })
}

// length writes an unconstrained length determinant for n < 16K.
func (e *encoder) length(n int) {
	e.align()
	if n < 0x80 {
		e.w.PutBits(uint64(n), 8)
	} else {
		e.w.PutBits(0x8000|uint64(n), 16)
	}
}

// fragmented writes n items preceded by unconstrained length determinants.
// Lengths of 16K items or more are split into fragments of up to 64K items,
// terminated by a final length determinant that may be zero. put writes the
// items in the range [from, to).
func (e *encoder) fragmented(n int, put func(from, to int) error) error {
	pos := 0
	for n-pos >= fragment {
		m := min((n-pos)/fragment, maxFragment)
		e.align()
		e.w.PutBits(0xC0|uint64(m), 8)
		if err := put(pos, pos+m*fragment); err != nil {
			return err
		}
		pos += m * fragment
	}
	e.length(n - pos)
	return put(pos, n)
}

// octets writes bs preceded by an unconstrained length determinant.
func (e *encoder) octets(bs []byte) {
	_ = e.fragmented(len(bs), func(from, to int) error {
		e.w.PutBytes(bs[from:to])
		return nil
	})
}

// packed reports whether the items of a value with bounds b are added without
// octet alignment. Strings of a fixed size up to 16 bits are packed. With a
// length determinant only character strings below 16 bits are packed.
func packed(b asn1rt.Bounds, itemBits int, chars bool) bool {
	switch {
	case b.Fixed() && b.Upper < k64:
		return b.Upper*int64(itemBits) <= 16
	case chars && b.HasUpper && b.Upper < k64:
		return b.Upper*int64(itemBits) < 16
	}
	return false
}

// sized writes n items of a string or SEQUENCE OF type d preceded by the
// length determinant that the size constraint of d requires. Each item
// occupies itemBits bits; 0 indicates items of varying size that are never
// octet-aligned. chars selects the alignment of known-multiplier character
// strings.
func (e *encoder) sized(d *asn1rt.Descriptor, n int, itemBits int, chars bool, put func(from, to int) error) error {
	b := asn1rt.BoundsOf(d)
	inRoot := b.Contains(int64(n))
	if d.Extensible() {
		e.w.PutBit(!inRoot)
	} else if !inRoot {
		return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: size %d out of range", d.Label(), n)
	}
	aligned := func(from, to int) error {
		if to > from && itemBits > 0 {
			e.align()
		}
		return put(from, to)
	}
	switch {
	case !inRoot:
		return e.fragmented(n, aligned)
	case b.Fixed() && b.Upper < k64:
		if packed(b, itemBits, chars) {
			return put(0, n)
		}
		return aligned(0, n)
	case b.HasUpper && b.Upper < k64:
		lb := max(0, b.Lower)
		e.constrained(uint64(int64(n)-lb), uint64(b.Upper-lb))
		if packed(b, itemBits, chars) {
			return put(0, n)
		}
		return aligned(0, n)
	}
	return e.fragmented(n, aligned)
}

//endregion

//region Decoding

type decoder struct {
	r       *bitbuf.Reader
	aligned bool
	arena   *asn1rt.Arena
	base    int // octet offset of r within the complete encoding
}

// sub returns a decoder for the contents of an open type that started at the
// octet offset start.
func (dec *decoder) sub(bs []byte, start int) *decoder {
	return &decoder{r: bitbuf.NewReader(bs), aligned: dec.aligned, arena: dec.arena, base: start}
}

// offset returns the octet offset of the current position.
func (dec *decoder) offset() int {
	return dec.base + dec.r.Pos()/8
}

func (dec *decoder) wrap(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return asn1rt.Errorf(asn1rt.ErrTruncated, "unexpected end of input").At(dec.offset())
	}
	return err
}

func (dec *decoder) bits(n int) (uint64, error) {
	v, err := dec.r.GetBits(n)
	return v, dec.wrap(err)
}

func (dec *decoder) bit() (bool, error) {
	v, err := dec.r.GetBit()
	return v, dec.wrap(err)
}

func (dec *decoder) align() error {
	if dec.aligned {
		return dec.wrap(dec.r.Align())
	}
	return nil
}

// require checks that at least n bits remain.
func (dec *decoder) require(n int) error {
	if n < 0 || n > dec.r.Remaining() {
		return asn1rt.Errorf(asn1rt.ErrTruncated, "need %d bits, have %d", n, dec.r.Remaining()).At(dec.offset())
	}
	return nil
}

// constrained reads the offset of a constrained whole number with the given
// range ub-lb.
func (dec *decoder) constrained(rng uint64) (uint64, error) {
	if rng == 0 {
		return 0, nil
	}
	var v uint64
	var err error
	switch {
	case !dec.aligned || rng <= 254:
		v, err = dec.bits(bits.Len64(rng))
	case rng == 255:
		if err = dec.align(); err == nil {
			v, err = dec.bits(8)
		}
	case rng < k64:
		if err = dec.align(); err == nil {
			v, err = dec.bits(16)
		}
	default:
		var n uint64
		if n, err = dec.constrained(uint64(octetsFor(rng) - 1)); err != nil {
			return 0, err
		}
		if err = dec.align(); err != nil {
			return 0, err
		}
		start := dec.offset()
		if v, err = dec.bits(8 * int(n+1)); err != nil {
			return 0, err
		}
		if n > 0 && v>>(8*n) == 0 {
			return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "constrained whole number not minimally-encoded").At(start)
		}
	}
	if err != nil {
		return 0, err
	}
	if v > rng {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "value %d exceeds range %d", v, rng).At(dec.offset())
	}
	return v, nil
}

// normallySmall reads a normally small non-negative whole number.
func (dec *decoder) normallySmall() (uint64, error) {
	large, err := dec.bit()
	if err != nil {
		return 0, err
	}
	if !large {
		return dec.bits(6)
	}
	start := dec.offset()
	bs, err := dec.scratch()
	if err != nil {
		return 0, err
	}
	if len(bs) == 0 || len(bs) > 8 || len(bs) > 1 && bs[0] == 0 {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid normally small number").At(start)
	}
	var n uint64
	for _, c := range bs {
		n = n<<8 | uint64(c)
	}
	return n, nil
}

// smallLength reads a normally small length.
func (dec *decoder) smallLength() (int, error) {
	large, err := dec.bit()
	if err != nil {
		return 0, err
	}
	if !large {
		n, err := dec.bits(6)
		return int(n) + 1, err
	}
	return dec.fragmented(func(int) error { return nil })
}

// length reads an unconstrained length determinant. If more reports true,
// the length is a fragment and further length determinants follow.
func (dec *decoder) length() (n int, more bool, err error) {
	if err = dec.align(); err != nil {
		return 0, false, err
	}
	start := dec.offset()
	b, err := dec.bits(8)
	if err != nil {
		return 0, false, err
	}
	switch {
	case b&0x80 == 0:
		return int(b), false, nil
	case b&0xC0 == 0x80:
		lo, err := dec.bits(8)
		if err != nil {
			return 0, false, err
		}
		return int(b&0x3F)<<8 | int(lo), false, nil
	}
	m := int(b & 0x3F)
	if m < 1 || m > maxFragment {
		return 0, false, asn1rt.Errorf(asn1rt.ErrMalformedLength, "invalid fragment size %d", m).At(start)
	}
	return m * fragment, true, nil
}

// fragmented reads length determinants and calls get for the items announced
// by each of them. It returns the total number of items.
func (dec *decoder) fragmented(get func(n int) error) (int, error) {
	total := 0
	for {
		n, more, err := dec.length()
		if err != nil {
			return 0, err
		}
		if err = get(n); err != nil {
			return 0, err
		}
		total += n
		if !more {
			return total, nil
		}
	}
}

// octets reads octets preceded by an unconstrained length determinant into
// the arena.
func (dec *decoder) octets() ([]byte, error) {
	buf, err := dec.arena.Alloc(0)
	if err != nil {
		return nil, err
	}
	_, err = dec.fragmented(func(n int) error {
		if err := dec.require(8 * n); err != nil {
			return err
		}
		start := len(buf)
		var err error
		if buf, err = dec.arena.Append(buf, make([]byte, n)); err != nil {
			return err
		}
		return dec.wrap(dec.r.GetBytes(buf[start:]))
	})
	return buf, err
}

// scratch works like octets but reads into a heap buffer. It is used for the
// contents of numbers and open types that are not part of the decoded value.
func (dec *decoder) scratch() ([]byte, error) {
	var buf []byte
	_, err := dec.fragmented(func(n int) error {
		if err := dec.require(8 * n); err != nil {
			return err
		}
		start := len(buf)
		buf = append(buf, make([]byte, n)...)
		return dec.wrap(dec.r.GetBytes(buf[start:]))
	})
	return buf, err
}

// sized reads the length determinant of a string or SEQUENCE OF type d and
// calls get for the announced items. It mirrors [encoder.sized]. Root sizes
// outside of the bounds of d are rejected.
func (dec *decoder) sized(d *asn1rt.Descriptor, itemBits int, chars bool, get func(n int) error) (int, error) {
	b := asn1rt.BoundsOf(d)
	ext := false
	if d.Extensible() {
		var err error
		if ext, err = dec.bit(); err != nil {
			return 0, err
		}
	}
	aligned := func(n int) error {
		if n > 0 && itemBits > 0 {
			if err := dec.align(); err != nil {
				return err
			}
		}
		return get(n)
	}
	switch {
	case ext:
		return dec.fragmented(aligned)
	case b.Fixed() && b.Upper < k64:
		n := int(b.Upper)
		if packed(b, itemBits, chars) {
			return n, get(n)
		}
		return n, aligned(n)
	case b.HasUpper && b.Upper < k64:
		lb := max(0, b.Lower)
		v, err := dec.constrained(uint64(b.Upper - lb))
		if err != nil {
			return 0, err
		}
		n := int(lb + int64(v))
		if packed(b, itemBits, chars) {
			return n, get(n)
		}
		return n, aligned(n)
	}
	start := dec.offset()
	n, err := dec.fragmented(aligned)
	if err != nil {
		return 0, err
	}
	if !b.Contains(int64(n)) {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: size %d out of range", d.Label(), n).At(start)
	}
	return n, nil
}

//endregion
