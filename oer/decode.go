// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oer

import (
	"encoding/binary"
	"math"
	"math/big"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/bitbuf"
	"codello.dev/asn1rt/internal/content"
	"codello.dev/asn1rt/internal/cursor"
	"codello.dev/asn1rt/internal/fields"
	"codello.dev/asn1rt/internal/vlq"
)

type decoder struct {
	arena *asn1rt.Arena
}

// maxEmptyElements bounds the quantity of SEQUENCE OF values whose elements
// may have an empty encoding.
const maxEmptyElements = 1 << 16

// decode reads a value of type d from c.
func (dec *decoder) decode(d *asn1rt.Descriptor, c *cursor.Cursor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	d = d.Underlying()
	start := c.Pos()
	v, err := dec.value(d, c, stack)
	if err != nil {
		return nil, asn1rt.At(err, asn1rt.ErrConstraint, start)
	}
	return v, nil
}

func (dec *decoder) value(d *asn1rt.Descriptor, c *cursor.Cursor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		return dec.record(d, c, stack)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		return dec.list(d, c, stack)
	case asn1rt.KindChoice:
		t, err := readTag(c)
		if err != nil {
			return nil, err
		}
		return dec.choice(d, t, c, stack)
	case asn1rt.KindAny:
		return dec.open(d, c, stack)
	case asn1rt.KindBoolean:
		x, err := c.Byte()
		if err != nil {
			return nil, err
		}
		return asn1rt.Bool(x != 0), nil
	case asn1rt.KindInteger:
		v, err := readInteger(d, c)
		if err != nil {
			return nil, err
		}
		if err = asn1rt.CheckInteger(d, v); err != nil {
			return nil, err
		}
		return v, nil
	case asn1rt.KindEnumerated:
		x, err := c.Byte()
		if err != nil {
			return nil, err
		}
		v := asn1rt.Enumerated(x)
		if x&0x80 != 0 {
			n := int(x & 0x7F)
			if n == 0 || n > 8 {
				return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: enumeration of %d octets", d.Label(), n)
			}
			bs, err := c.Next(n)
			if err != nil {
				return nil, err
			}
			i, err := content.ParseInt(bs)
			if err != nil {
				return nil, err
			}
			v = asn1rt.Enumerated(i)
		}
		if err = asn1rt.CheckEnumerated(d, v); err != nil {
			return nil, err
		}
		return v, nil
	case asn1rt.KindNull:
		return asn1rt.Null{}, nil
	case asn1rt.KindReal:
		bs, err := readPrefixed(c)
		if err != nil {
			return nil, err
		}
		f, err := content.ParseReal(bs)
		if err != nil {
			return nil, err
		}
		return asn1rt.Real(f), nil
	case asn1rt.KindObjectIdentifier:
		bs, err := readPrefixed(c)
		if err != nil {
			return nil, err
		}
		return content.ParseOID(bs)
	case asn1rt.KindRelativeOID:
		bs, err := readPrefixed(c)
		if err != nil {
			return nil, err
		}
		return content.ParseRelativeOID(bs)
	case asn1rt.KindOctetString:
		var bs []byte
		var err error
		if n, fixed := d.FixedSize(); fixed {
			bs, err = dec.fixed(c, n)
		} else {
			bs, err = dec.prefixed(c)
		}
		if err != nil {
			return nil, err
		}
		if err = asn1rt.CheckSize(d, len(bs)); err != nil {
			return nil, err
		}
		return asn1rt.OctetString(bs), nil
	case asn1rt.KindBitString:
		return dec.bits(d, c)
	case asn1rt.KindCharacterString:
		var bs []byte
		var err error
		if n, fixed := d.FixedSize(); fixed && d.Alphabet.Width() > 0 {
			bs, err = dec.fixed(c, n*d.Alphabet.Width())
		} else {
			bs, err = dec.prefixed(c)
		}
		if err != nil {
			return nil, err
		}
		s, err := content.ParseChars(d.Alphabet, bs)
		if err != nil {
			return nil, err
		}
		if err = asn1rt.CheckString(d, s); err != nil {
			return nil, err
		}
		return asn1rt.CharString(s), nil
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot decode %s", d.Label(), d.Kind)
}

// readLength reads a length determinant.
func readLength(c *cursor.Cursor) (int, error) {
	start := c.Pos()
	x, err := c.Byte()
	if err != nil {
		return 0, err
	}
	if x&0x80 == 0 {
		return int(x), nil
	}
	n := int(x & 0x7F)
	if n == 0 || n > 4 {
		return 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "length determinant of %d octets", n).At(start)
	}
	bs, err := c.Next(n)
	if err != nil {
		return 0, err
	}
	l, _ := content.ParseUint(bs)
	if l > math.MaxInt32 {
		return 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "length %d too large", l).At(start)
	}
	return int(l), nil
}

// readPrefixed reads a length determinant and the octets it announces. The
// result aliases the input.
func readPrefixed(c *cursor.Cursor) ([]byte, error) {
	n, err := readLength(c)
	if err != nil {
		return nil, err
	}
	return c.Next(n)
}

// prefixed works like readPrefixed but copies the octets into the arena.
func (dec *decoder) prefixed(c *cursor.Cursor) ([]byte, error) {
	bs, err := readPrefixed(c)
	if err != nil {
		return nil, err
	}
	return dec.arena.Copy(bs)
}

// fixed copies the next n octets into the arena.
func (dec *decoder) fixed(c *cursor.Cursor, n int) ([]byte, error) {
	bs, err := c.Next(n)
	if err != nil {
		return nil, err
	}
	return dec.arena.Copy(bs)
}

func (dec *decoder) bits(d *asn1rt.Descriptor, c *cursor.Cursor) (asn1rt.Value, error) {
	if n, fixed := d.FixedSize(); fixed {
		buf, err := dec.fixed(c, (n+7)/8)
		if err != nil {
			return nil, err
		}
		s := asn1rt.BitString{Bytes: buf, BitLength: n}
		if r := n % 8; r != 0 {
			buf[len(buf)-1] &= 0xFF << (8 - r)
		}
		return s, nil
	}
	bs, err := readPrefixed(c)
	if err != nil {
		return nil, err
	}
	if len(bs) == 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: empty BIT STRING", d.Label())
	}
	unused := int(bs[0])
	if unused > 7 || len(bs) == 1 && unused != 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid padding bits", d.Label())
	}
	buf, err := dec.arena.Copy(bs[1:])
	if err != nil {
		return nil, err
	}
	if unused > 0 {
		buf[len(buf)-1] &= 0xFF << unused
	}
	s := asn1rt.BitString{Bytes: buf, BitLength: 8*len(buf) - unused}
	if err = asn1rt.CheckSize(d, s.BitLength); err != nil {
		return nil, err
	}
	return s, nil
}

// readInteger reads an INTEGER value of type d without checking its
// constraints.
func readInteger(d *asn1rt.Descriptor, c *cursor.Cursor) (asn1rt.Value, error) {
	width, unsigned := integerForm(d)
	if width > 0 {
		bs, err := c.Next(width)
		if err != nil {
			return nil, err
		}
		var buf [8]byte
		copy(buf[8-width:], bs)
		u := binary.BigEndian.Uint64(buf[:])
		if unsigned {
			if u > math.MaxInt64 {
				return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: value %d out of range", d.Label(), u)
			}
			return asn1rt.IntegerValue(d, big.NewInt(int64(u))), nil
		}
		shift := 64 - 8*width
		return asn1rt.IntegerValue(d, big.NewInt(int64(u<<shift)>>shift)), nil
	}
	bs, err := readPrefixed(c)
	if err != nil {
		return nil, err
	}
	if !unsigned {
		return content.ParseInteger(d, bs)
	}
	if len(bs) == 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: empty integer", d.Label())
	}
	if len(bs) > 1 && bs[0] == 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: integer not minimally-encoded", d.Label())
	}
	x := new(big.Int).SetBytes(bs)
	if d.Flags&asn1rt.FlagLargeInteger == 0 && !x.IsInt64() {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: integer too large", d.Label())
	}
	return asn1rt.IntegerValue(d, x), nil
}

// readTag reads the tag of a CHOICE alternative.
func readTag(c *cursor.Cursor) (asn1rt.Tag, error) {
	start := c.Pos()
	x, err := c.Byte()
	if err != nil {
		return asn1rt.Tag{}, err
	}
	t := asn1rt.Tag{Class: asn1rt.Class(x >> 6), Number: uint(x & 0x3F)}
	if t.Number < 0x3F {
		return t, nil
	}
	n, l, err := vlq.ParseMinimal[uint](c.Peek())
	if err == vlq.ErrTruncated {
		return asn1rt.Tag{}, asn1rt.Errorf(asn1rt.ErrTruncated, "truncated tag number").At(start)
	}
	if err != nil || n < 0x3F {
		return asn1rt.Tag{}, asn1rt.Errorf(asn1rt.ErrMalformedTag, "invalid tag number").At(start)
	}
	t.Number = n
	return t, c.Skip(l)
}

// record reads a SEQUENCE or SET value. Absent DEFAULT fields are filled in.
// Unknown extension additions are skipped.
func (dec *decoder) record(d *asn1rt.Descriptor, c *cursor.Cursor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	rec := asn1rt.Record{Fields: make([]asn1rt.Value, len(d.Fields))}
	frame := stack.Push(d, rec)
	order := fields.RootOrder(d)

	nbits := 0
	if d.Extensible() {
		nbits++
	}
	for _, i := range order {
		if d.Fields[i].Optional() {
			nbits++
		}
	}
	pre, err := c.Next((nbits + 7) / 8)
	if err != nil {
		return nil, err
	}
	r := bitbuf.NewReader(pre)
	extended := false
	if d.Extensible() {
		extended, _ = r.GetBit()
	}
	for _, i := range order {
		if d.Fields[i].Optional() {
			if ok, _ := r.GetBit(); !ok {
				continue
			}
		}
		if rec.Fields[i], err = dec.decode(d.Fields[i].Type, c, frame); err != nil {
			return nil, err
		}
	}

	if extended {
		if err = dec.extensions(d, rec, c, frame); err != nil {
			return nil, err
		}
	}
	for i := range d.Fields {
		if rec.Fields[i] == nil && d.Fields[i].Presence == asn1rt.PresenceDefault {
			rec.Fields[i] = d.Fields[i].Default
		}
	}
	return rec, nil
}

// extensions reads the extension presence bitmap and the extension additions
// of a SEQUENCE or SET.
func (dec *decoder) extensions(d *asn1rt.Descriptor, rec asn1rt.Record, c *cursor.Cursor, frame *asn1rt.ValueStack) error {
	start := c.Pos()
	bm, err := readPrefixed(c)
	if err != nil {
		return err
	}
	if len(bm) == 0 || bm[0] > 7 || len(bm) == 1 && bm[0] != 0 {
		return asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: invalid extension presence bitmap", d.Label()).At(start)
	}
	n := 8*(len(bm)-1) - int(bm[0])
	r := bitbuf.NewReader(bm[1:])
	adds := d.Additions()
	for k := range n {
		if ok, _ := r.GetBit(); !ok {
			continue
		}
		l, err := readLength(c)
		if err != nil {
			return err
		}
		sub, err := c.Limit(l)
		if err != nil {
			return err
		}
		if k >= len(adds) {
			continue
		}
		add := adds[k]
		if d.Fields[add[0]].Group == 0 {
			if rec.Fields[add[0]], err = dec.decode(d.Fields[add[0]].Type, sub, frame); err != nil {
				return err
			}
		} else if err = dec.group(d, rec, add, sub, frame); err != nil {
			return err
		}
		if sub.Len() != 0 {
			return asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: %d trailing bytes in extension addition", d.Label(), sub.Len()).At(sub.Pos())
		}
	}
	return nil
}

// group reads the members of an extension addition group.
func (dec *decoder) group(d *asn1rt.Descriptor, rec asn1rt.Record, add []int, c *cursor.Cursor, frame *asn1rt.ValueStack) error {
	nbits := 0
	for _, i := range add {
		if d.Fields[i].Optional() {
			nbits++
		}
	}
	pre, err := c.Next((nbits + 7) / 8)
	if err != nil {
		return err
	}
	r := bitbuf.NewReader(pre)
	for _, i := range add {
		if d.Fields[i].Optional() {
			if ok, _ := r.GetBit(); !ok {
				continue
			}
		}
		if rec.Fields[i], err = dec.decode(d.Fields[i].Type, c, frame); err != nil {
			return err
		}
	}
	return nil
}

// list reads a SEQUENCE OF or SET OF value.
func (dec *decoder) list(d *asn1rt.Descriptor, c *cursor.Cursor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	start := c.Pos()
	q, err := readPrefixed(c)
	if err != nil {
		return nil, err
	}
	if len(q) == 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: empty quantity field", d.Label()).At(start)
	}
	count, err := content.ParseUint(q)
	if err != nil {
		return nil, err
	}
	if count > uint64(c.Len()) && (count > maxEmptyElements || !mayBeEmpty(d.Elem, 0)) {
		return nil, asn1rt.Errorf(asn1rt.ErrTruncated, "%s: quantity %d exceeds input", d.Label(), count).At(start)
	}
	l := asn1rt.List{}
	for range count {
		v, err := dec.decode(d.Elem, c, stack)
		if err != nil {
			return nil, err
		}
		l = append(l, v)
	}
	if err = asn1rt.CheckSize(d, len(l)); err != nil {
		return nil, err
	}
	return l, nil
}

// mayBeEmpty reports whether values of d can have an empty encoding.
func mayBeEmpty(d *asn1rt.Descriptor, depth int) bool {
	d = d.Underlying()
	switch d.Kind {
	case asn1rt.KindNull:
		return true
	case asn1rt.KindOctetString, asn1rt.KindBitString, asn1rt.KindCharacterString:
		n, fixed := d.FixedSize()
		return fixed && n == 0 && (d.Kind != asn1rt.KindCharacterString || d.Alphabet.Width() > 0)
	case asn1rt.KindSequence, asn1rt.KindSet:
		if d.Extensible() || depth > 8 {
			return false
		}
		for i := range d.Fields {
			if d.Fields[i].Optional() || !mayBeEmpty(d.Fields[i].Type, depth+1) {
				return false
			}
		}
		return true
	}
	return false
}

// choice reads the value of the CHOICE alternative identified by the tag t.
func (dec *decoder) choice(d *asn1rt.Descriptor, t asn1rt.Tag, c *cursor.Cursor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	i := asn1rt.Alternative(d, t)
	if i < 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: no alternative for tag %s", d.Label(), t)
	}
	f := &d.Fields[i]
	if _, ok := asn1rt.OuterTag(f.Type); !ok {
		base := f.Type.Underlying()
		if base.Kind != asn1rt.KindChoice || f.Extension {
			return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: alternative %q has no tag", d.Label(), f.Name)
		}
		v, err := dec.choice(base, t, c, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Choice{Index: i, Value: v}, nil
	}
	if !f.Extension {
		v, err := dec.decode(f.Type, c, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Choice{Index: i, Value: v}, nil
	}
	l, err := readLength(c)
	if err != nil {
		return nil, err
	}
	sub, err := c.Limit(l)
	if err != nil {
		return nil, err
	}
	v, err := dec.decode(f.Type, sub, stack)
	if err != nil {
		return nil, err
	}
	if sub.Len() != 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: %d trailing bytes in alternative %q", d.Label(), sub.Len(), f.Name).At(sub.Pos())
	}
	return asn1rt.Choice{Index: i, Value: v}, nil
}

// open reads an open type value. If the type cannot be resolved, the encoding
// is kept as raw bytes.
func (dec *decoder) open(d *asn1rt.Descriptor, c *cursor.Cursor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	l, err := readLength(c)
	if err != nil {
		return nil, err
	}
	sub, err := c.Limit(l)
	if err != nil {
		return nil, err
	}
	t, ok := asn1rt.Resolve(d, stack)
	if !ok {
		raw, err := dec.arena.Copy(sub.Rest())
		if err != nil {
			return nil, err
		}
		return asn1rt.Open{Raw: raw}, nil
	}
	v, err := dec.decode(t, sub, stack)
	if err != nil {
		return nil, err
	}
	if sub.Len() != 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: %d trailing bytes in open type", d.Label(), sub.Len()).At(sub.Pos())
	}
	return asn1rt.Open{Type: t, Value: v}, nil
}
