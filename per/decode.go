// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package per

import (
	"math/big"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/content"
	"codello.dev/asn1rt/internal/fields"
)

// decode reads a value of type d.
func (dec *decoder) decode(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	d = d.Underlying()
	start := dec.offset()
	v, err := dec.value(d, stack)
	if err != nil {
		return nil, asn1rt.At(err, asn1rt.ErrConstraint, start)
	}
	return v, nil
}

func (dec *decoder) value(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		return dec.record(d, stack)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		return dec.list(d, stack)
	case asn1rt.KindChoice:
		return dec.choice(d, stack)
	case asn1rt.KindAny:
		return dec.open(d, stack)
	case asn1rt.KindBoolean:
		b, err := dec.bit()
		if err != nil {
			return nil, err
		}
		return asn1rt.Bool(b), nil
	case asn1rt.KindInteger:
		return dec.integer(d)
	case asn1rt.KindEnumerated:
		return dec.enumerated(d)
	case asn1rt.KindNull:
		return asn1rt.Null{}, nil
	case asn1rt.KindReal:
		bs, err := dec.scratch()
		if err != nil {
			return nil, err
		}
		f, err := content.ParseReal(bs)
		if err != nil {
			return nil, err
		}
		return asn1rt.Real(f), nil
	case asn1rt.KindObjectIdentifier:
		bs, err := dec.scratch()
		if err != nil {
			return nil, err
		}
		return content.ParseOID(bs)
	case asn1rt.KindRelativeOID:
		bs, err := dec.scratch()
		if err != nil {
			return nil, err
		}
		return content.ParseRelativeOID(bs)
	case asn1rt.KindOctetString:
		buf, err := dec.arena.Alloc(0)
		if err != nil {
			return nil, err
		}
		_, err = dec.sized(d, 8, false, func(n int) error {
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
		if err != nil {
			return nil, err
		}
		return asn1rt.OctetString(buf), nil
	case asn1rt.KindBitString:
		buf, err := dec.arena.Alloc(0)
		if err != nil {
			return nil, err
		}
		total := 0
		_, err = dec.sized(d, 1, false, func(n int) error {
			if err := dec.require(n); err != nil {
				return err
			}
			// Only the final fragment may end within an octet.
			start := len(buf)
			var err error
			if buf, err = dec.arena.Append(buf, make([]byte, (n+7)/8)); err != nil {
				return err
			}
			total += n
			return dec.wrap(dec.r.GetBitString(buf[start:], n))
		})
		if err != nil {
			return nil, err
		}
		return asn1rt.BitString{Bytes: buf, BitLength: total}, nil
	case asn1rt.KindCharacterString:
		return dec.chars(d)
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot decode %s", d.Label(), d.Kind)
}

func (dec *decoder) integer(d *asn1rt.Descriptor) (asn1rt.Value, error) {
	if d.Extensible() {
		ext, err := dec.bit()
		if err != nil {
			return nil, err
		}
		if ext {
			bs, err := dec.scratch()
			if err != nil {
				return nil, err
			}
			return content.ParseInteger(d, bs)
		}
	}
	b := asn1rt.BoundsOf(d)
	switch {
	case b.HasLower && b.HasUpper:
		v, err := dec.constrained(b.Range())
		if err != nil {
			return nil, err
		}
		x := int64(uint64(b.Lower) + v)
		if d.Flags&asn1rt.FlagLargeInteger != 0 {
			return asn1rt.BigInt{Int: big.NewInt(x)}, nil
		}
		return asn1rt.Int(x), nil
	case b.HasLower:
		bs, err := dec.scratch()
		if err != nil {
			return nil, err
		}
		if len(bs) == 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "empty integer")
		}
		if len(bs) > 1 && bs[0] == 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: integer not minimally-encoded", d.Label())
		}
		x := new(big.Int).SetBytes(bs)
		x.Add(x, big.NewInt(b.Lower))
		if d.Flags&asn1rt.FlagLargeInteger == 0 && !x.IsInt64() {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: value %s out of range", d.Label(), x)
		}
		return asn1rt.IntegerValue(d, x), nil
	}
	bs, err := dec.scratch()
	if err != nil {
		return nil, err
	}
	v, err := content.ParseInteger(d, bs)
	if err != nil {
		return nil, err
	}
	if !d.Extensible() && !asn1rt.InRoot(d, v) {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: value out of range", d.Label())
	}
	return v, nil
}

func (dec *decoder) enumerated(d *asn1rt.Descriptor) (asn1rt.Value, error) {
	root, ext := enumIndex(d)
	if d.Extensible() {
		isExt, err := dec.bit()
		if err != nil {
			return nil, err
		}
		if isExt {
			i, err := dec.normallySmall()
			if err != nil {
				return nil, err
			}
			if i >= uint64(len(ext)) {
				return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown enumeration extension %d", d.Label(), i)
			}
			return asn1rt.Enumerated(ext[i].Value), nil
		}
	}
	if len(root) == 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: ENUMERATED without root items", d.Label())
	}
	i, err := dec.constrained(uint64(len(root) - 1))
	if err != nil {
		return nil, err
	}
	return asn1rt.Enumerated(root[i].Value), nil
}

func (dec *decoder) chars(d *asn1rt.Descriptor) (asn1rt.Value, error) {
	w := charBits(d.Alphabet, dec.aligned)
	if w == 0 {
		bs, err := dec.octets()
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
	var rs []rune
	_, err := dec.sized(d, w, true, func(n int) error {
		if err := dec.require(n * w); err != nil {
			return err
		}
		for range n {
			v, err := dec.bits(w)
			if err != nil {
				return err
			}
			r := rune(v)
			if d.Alphabet == asn1rt.AlphabetNumeric {
				switch {
				case v == 0:
					r = ' '
				case v <= 10:
					r = '0' + rune(v-1)
				default:
					return asn1rt.Errorf(asn1rt.ErrConstraint, "invalid NumericString character index %d", v)
				}
			}
			rs = append(rs, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s := string(rs)
	if !d.Alphabet.Valid(s) {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid %s character", d.Label(), d.Alphabet)
	}
	return asn1rt.CharString(s), nil
}

// record reads a SEQUENCE or SET value. Absent DEFAULT fields are set to their
// default value. Unknown extension additions are skipped.
func (dec *decoder) record(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	rec := asn1rt.Record{Fields: make([]asn1rt.Value, len(d.Fields))}
	frame := stack.Push(d, rec)
	extended := false
	if d.Extensible() {
		var err error
		if extended, err = dec.bit(); err != nil {
			return nil, err
		}
	}
	if err := dec.fields(d, rec, fields.RootOrder(d), frame); err != nil {
		return nil, err
	}
	if extended {
		if err := dec.extensions(d, rec, frame); err != nil {
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

// fields reads the presence bitmap of the optional fields in order followed
// by the present values into rec.
func (dec *decoder) fields(d *asn1rt.Descriptor, rec asn1rt.Record, order []int, frame *asn1rt.ValueStack) error {
	present := make([]bool, len(order))
	for k, i := range order {
		present[k] = true
		if d.Fields[i].Optional() {
			var err error
			if present[k], err = dec.bit(); err != nil {
				return err
			}
		}
	}
	for k, i := range order {
		if !present[k] {
			continue
		}
		v, err := dec.decode(d.Fields[i].Type, frame)
		if err != nil {
			return err
		}
		rec.Fields[i] = v
	}
	return nil
}

func (dec *decoder) extensions(d *asn1rt.Descriptor, rec asn1rt.Record, frame *asn1rt.ValueStack) error {
	n, err := dec.smallLength()
	if err != nil {
		return err
	}
	if err = dec.require(n); err != nil {
		return err
	}
	added := make([]bool, n)
	for i := range added {
		if added[i], err = dec.bit(); err != nil {
			return err
		}
	}
	adds := d.Additions()
	for i, ok := range added {
		if !ok {
			continue
		}
		start := dec.offset()
		bs, err := dec.scratch()
		if err != nil {
			return err
		}
		if i >= len(adds) {
			continue
		}
		sub := dec.sub(bs, start)
		add := adds[i]
		if d.Fields[add[0]].Group != 0 {
			if err = sub.fields(d, rec, add, frame); err != nil {
				return err
			}
			continue
		}
		if rec.Fields[add[0]], err = sub.decode(d.Fields[add[0]].Type, frame); err != nil {
			return err
		}
	}
	return nil
}

// list reads a SEQUENCE OF or SET OF value.
func (dec *decoder) list(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	l := asn1rt.List{}
	_, err := dec.sized(d, 0, false, func(n int) error {
		if n > dec.r.Remaining() && len(l)+n > maxEmptyItems {
			return asn1rt.Errorf(asn1rt.ErrTruncated, "%s: %d elements announced", d.Label(), n).At(dec.offset())
		}
		for range n {
			v, err := dec.decode(d.Elem, stack)
			if err != nil {
				return err
			}
			l = append(l, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// choice reads the index of the chosen alternative in canonical order and
// its value.
func (dec *decoder) choice(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	order := asn1rt.CanonicalOrder(d)
	root := d.RootFields()
	ext := false
	if d.Extensible() {
		var err error
		if ext, err = dec.bit(); err != nil {
			return nil, err
		}
	}
	if !ext {
		if root == 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: CHOICE without root alternatives", d.Label())
		}
		p, err := dec.constrained(uint64(root - 1))
		if err != nil {
			return nil, err
		}
		i := order[p]
		v, err := dec.decode(d.Fields[i].Type, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Choice{Index: i, Value: v}, nil
	}
	p, err := dec.normallySmall()
	if err != nil {
		return nil, err
	}
	start := dec.offset()
	bs, err := dec.scratch()
	if err != nil {
		return nil, err
	}
	if p >= uint64(len(d.Fields)-root) {
		return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown extension alternative %d", d.Label(), p)
	}
	i := order[root+int(p)]
	v, err := dec.sub(bs, start).decode(d.Fields[i].Type, stack)
	if err != nil {
		return nil, err
	}
	return asn1rt.Choice{Index: i, Value: v}, nil
}

// open reads an ANY value. If the table constraint resolves the type, the
// value is decoded. Otherwise the contents of the open type are retained.
func (dec *decoder) open(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	t, ok := asn1rt.Resolve(d, stack)
	if !ok {
		bs, err := dec.octets()
		if err != nil {
			return nil, err
		}
		return asn1rt.Open{Raw: bs}, nil
	}
	start := dec.offset()
	bs, err := dec.scratch()
	if err != nil {
		return nil, err
	}
	v, err := dec.sub(bs, start).decode(t, stack)
	if err != nil {
		return nil, err
	}
	return asn1rt.Open{Type: t, Value: v}, nil
}
