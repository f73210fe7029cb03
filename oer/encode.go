// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oer

import (
	"encoding/binary"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/bitbuf"
	"codello.dev/asn1rt/internal/content"
	"codello.dev/asn1rt/internal/fields"
)

type encoder struct{}

func typeError(d *asn1rt.Descriptor, v asn1rt.Value) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: cannot encode %T as %s", d.Label(), v, d.Kind)
}

// encode appends the encoding of v as a value of type d to b.
func (e *encoder) encode(b []byte, d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	d = d.Underlying()
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		return e.record(b, d, v, stack)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		return e.list(b, d, v, stack)
	case asn1rt.KindChoice:
		return e.choice(b, d, v, stack)
	case asn1rt.KindAny:
		return e.open(b, d, v, stack)
	case asn1rt.KindBoolean:
		x, ok := v.(asn1rt.Bool)
		if !ok {
			return nil, typeError(d, v)
		}
		if x {
			return append(b, 0xFF), nil
		}
		return append(b, 0x00), nil
	case asn1rt.KindInteger:
		if err := asn1rt.CheckInteger(d, v); err != nil {
			return nil, err
		}
		return appendInteger(b, d, v), nil
	case asn1rt.KindEnumerated:
		x, ok := v.(asn1rt.Enumerated)
		if !ok {
			return nil, typeError(d, v)
		}
		if err := asn1rt.CheckEnumerated(d, x); err != nil {
			return nil, err
		}
		if 0 <= x && x <= 0x7F {
			return append(b, byte(x)), nil
		}
		bs := content.AppendInt(nil, int64(x))
		b = append(b, 0x80|byte(len(bs)))
		return append(b, bs...), nil
	case asn1rt.KindNull:
		if _, ok := v.(asn1rt.Null); !ok {
			return nil, typeError(d, v)
		}
		return b, nil
	case asn1rt.KindReal:
		x, ok := v.(asn1rt.Real)
		if !ok {
			return nil, typeError(d, v)
		}
		bs := content.AppendReal(nil, float64(x))
		return append(appendLength(b, len(bs)), bs...), nil
	case asn1rt.KindObjectIdentifier:
		x, ok := v.(asn1rt.ObjectIdentifier)
		if !ok {
			return nil, typeError(d, v)
		}
		bs, err := content.AppendOID(nil, x)
		if err != nil {
			return nil, err
		}
		return append(appendLength(b, len(bs)), bs...), nil
	case asn1rt.KindRelativeOID:
		x, ok := v.(asn1rt.RelativeOID)
		if !ok {
			return nil, typeError(d, v)
		}
		bs := content.AppendRelativeOID(nil, x)
		return append(appendLength(b, len(bs)), bs...), nil
	case asn1rt.KindOctetString:
		x, ok := v.(asn1rt.OctetString)
		if !ok {
			return nil, typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, len(x)); err != nil {
			return nil, err
		}
		if _, fixed := d.FixedSize(); !fixed {
			b = appendLength(b, len(x))
		}
		return append(b, x...), nil
	case asn1rt.KindBitString:
		x, ok := v.(asn1rt.BitString)
		if !ok {
			return nil, typeError(d, v)
		}
		if !x.IsValid() {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid BIT STRING value", d.Label())
		}
		if err := asn1rt.CheckSize(d, x.BitLength); err != nil {
			return nil, err
		}
		bs := x.Masked()
		if _, fixed := d.FixedSize(); !fixed {
			b = appendLength(b, 1+len(bs))
			b = append(b, byte((8-x.BitLength%8)%8))
		}
		return append(b, bs...), nil
	case asn1rt.KindCharacterString:
		x, ok := v.(asn1rt.CharString)
		if !ok {
			return nil, typeError(d, v)
		}
		if err := asn1rt.CheckString(d, string(x)); err != nil {
			return nil, err
		}
		bs := content.AppendChars(nil, d.Alphabet, string(x))
		if _, fixed := d.FixedSize(); !fixed || d.Alphabet.Width() == 0 {
			b = appendLength(b, len(bs))
		}
		return append(b, bs...), nil
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot encode %s", d.Label(), d.Kind)
}

// appendInteger appends an INTEGER value that satisfies the constraints of d.
func appendInteger(b []byte, d *asn1rt.Descriptor, v asn1rt.Value) []byte {
	width, unsigned := integerForm(d)
	if width > 0 {
		x, _ := asn1rt.Int64Of(v)
		var bs [8]byte
		binary.BigEndian.PutUint64(bs[:], uint64(x))
		return append(b, bs[8-width:]...)
	}
	var bs []byte
	switch x := v.(type) {
	case asn1rt.Int:
		if unsigned {
			bs = content.AppendUint(nil, uint64(x))
		} else {
			bs = content.AppendInt(nil, int64(x))
		}
	default:
		y, _ := asn1rt.IntegerOf(v)
		if unsigned {
			bs = content.AppendUnsignedBig(nil, y)
		} else {
			bs = content.AppendBigInt(nil, y)
		}
	}
	return append(appendLength(b, len(bs)), bs...)
}

// record appends a SEQUENCE or SET value: the preamble, the root fields and
// the extension additions.
func (e *encoder) record(b []byte, d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	rec, ok := v.(asn1rt.Record)
	if !ok {
		return nil, typeError(d, v)
	}
	if len(rec.Fields) != len(d.Fields) {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: %d field values for %d fields", d.Label(), len(rec.Fields), len(d.Fields))
	}
	frame := stack.Push(d, rec)
	order := fields.RootOrder(d)
	adds := d.Additions()
	added := make([]bool, len(adds))
	extended := false
	for i, add := range adds {
		for _, j := range add {
			if fields.Present(d, rec, j) {
				added[i] = true
				extended = true
			}
		}
	}

	var w bitbuf.Writer
	if d.Extensible() {
		w.PutBit(extended)
	}
	for _, i := range order {
		if d.Fields[i].Optional() {
			w.PutBit(fields.Present(d, rec, i))
		} else if rec.Fields[i] == nil {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing field %q", d.Label(), d.Fields[i].Name)
		}
	}
	b = append(b, w.Bytes()...)
	var err error
	for _, i := range order {
		if !fields.Present(d, rec, i) {
			continue
		}
		if b, err = e.encode(b, d.Fields[i].Type, rec.Fields[i], frame); err != nil {
			return nil, err
		}
	}
	if !extended {
		return b, nil
	}

	var bm bitbuf.Writer
	for _, a := range added {
		bm.PutBit(a)
	}
	b = appendLength(b, 1+len(bm.Bytes()))
	b = append(b, byte((8-len(adds)%8)%8))
	b = append(b, bm.Bytes()...)
	for i, add := range adds {
		if !added[i] {
			continue
		}
		var enc []byte
		if d.Fields[add[0]].Group == 0 {
			enc, err = e.encode(nil, d.Fields[add[0]].Type, rec.Fields[add[0]], frame)
		} else {
			enc, err = e.group(d, rec, add, frame)
		}
		if err != nil {
			return nil, err
		}
		b = append(appendLength(b, len(enc)), enc...)
	}
	return b, nil
}

// group encodes the members of an extension addition group like the fields of
// a SEQUENCE without extension marker.
func (e *encoder) group(d *asn1rt.Descriptor, rec asn1rt.Record, add []int, frame *asn1rt.ValueStack) ([]byte, error) {
	var w bitbuf.Writer
	for _, i := range add {
		if d.Fields[i].Optional() {
			w.PutBit(fields.Present(d, rec, i))
		} else if rec.Fields[i] == nil {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing field %q", d.Label(), d.Fields[i].Name)
		}
	}
	b := append([]byte(nil), w.Bytes()...)
	var err error
	for _, i := range add {
		if !fields.Present(d, rec, i) {
			continue
		}
		if b, err = e.encode(b, d.Fields[i].Type, rec.Fields[i], frame); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// list appends a SEQUENCE OF or SET OF value preceded by its quantity field.
func (e *encoder) list(b []byte, d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	l, ok := v.(asn1rt.List)
	if !ok {
		return nil, typeError(d, v)
	}
	if err := asn1rt.CheckSize(d, len(l)); err != nil {
		return nil, err
	}
	n := content.AppendUint(nil, uint64(len(l)))
	b = append(appendLength(b, len(n)), n...)
	var err error
	for _, x := range l {
		if b, err = e.encode(b, d.Elem, x, stack); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// choice appends the tag of the chosen alternative followed by its value.
// Extension alternatives are encoded as open types.
func (e *encoder) choice(b []byte, d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	c, ok := v.(asn1rt.Choice)
	if !ok {
		return nil, typeError(d, v)
	}
	if c.Index < 0 || c.Index >= len(d.Fields) {
		return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: alternative %d out of range", d.Label(), c.Index)
	}
	f := &d.Fields[c.Index]
	t, ok := asn1rt.OuterTag(f.Type)
	if !ok {
		// An untagged CHOICE alternative is identified by the tag of its own
		// alternative.
		if base := f.Type.Underlying(); base.Kind == asn1rt.KindChoice && !f.Extension {
			return e.choice(b, base, c.Value, stack)
		}
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: alternative %q has no tag", d.Label(), f.Name)
	}
	b = appendTag(b, t)
	if !f.Extension {
		return e.encode(b, f.Type, c.Value, stack)
	}
	enc, err := e.encode(nil, f.Type, c.Value, stack)
	if err != nil {
		return nil, err
	}
	return append(appendLength(b, len(enc)), enc...), nil
}

// open appends an open type value preceded by its length.
func (e *encoder) open(b []byte, d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	o, ok := v.(asn1rt.Open)
	if !ok {
		return nil, typeError(d, v)
	}
	if o.Value == nil {
		return append(appendLength(b, len(o.Raw)), o.Raw...), nil
	}
	t := o.Type
	if t == nil {
		if t, ok = asn1rt.Resolve(d, stack); !ok {
			return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: cannot resolve open type", d.Label())
		}
	}
	enc, err := e.encode(nil, t, o.Value, stack)
	if err != nil {
		return nil, err
	}
	return append(appendLength(b, len(enc)), enc...), nil
}
