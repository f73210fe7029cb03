// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package per

import (
	"math/big"
	"slices"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/content"
	"codello.dev/asn1rt/internal/fields"
)

func typeError(d *asn1rt.Descriptor, v asn1rt.Value) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: cannot encode %T as %s", d.Label(), v, d.Kind)
}

// encode writes v as a value of type d.
func (e *encoder) encode(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	d = d.Underlying()
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		return e.record(d, v, stack)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		return e.list(d, v, stack)
	case asn1rt.KindChoice:
		return e.choice(d, v, stack)
	case asn1rt.KindAny:
		return e.open(d, v, stack)
	case asn1rt.KindBoolean:
		x, ok := v.(asn1rt.Bool)
		if !ok {
			return typeError(d, v)
		}
		e.w.PutBit(bool(x))
		return nil
	case asn1rt.KindInteger:
		return e.integer(d, v)
	case asn1rt.KindEnumerated:
		return e.enumerated(d, v)
	case asn1rt.KindNull:
		if _, ok := v.(asn1rt.Null); !ok {
			return typeError(d, v)
		}
		return nil
	case asn1rt.KindReal:
		x, ok := v.(asn1rt.Real)
		if !ok {
			return typeError(d, v)
		}
		e.octets(content.AppendReal(nil, float64(x)))
		return nil
	case asn1rt.KindObjectIdentifier:
		x, ok := v.(asn1rt.ObjectIdentifier)
		if !ok {
			return typeError(d, v)
		}
		bs, err := content.AppendOID(nil, x)
		if err != nil {
			return err
		}
		e.octets(bs)
		return nil
	case asn1rt.KindRelativeOID:
		x, ok := v.(asn1rt.RelativeOID)
		if !ok {
			return typeError(d, v)
		}
		e.octets(content.AppendRelativeOID(nil, x))
		return nil
	case asn1rt.KindOctetString:
		x, ok := v.(asn1rt.OctetString)
		if !ok {
			return typeError(d, v)
		}
		return e.sized(d, len(x), 8, false, func(from, to int) error {
			e.w.PutBytes(x[from:to])
			return nil
		})
	case asn1rt.KindBitString:
		x, ok := v.(asn1rt.BitString)
		if !ok {
			return typeError(d, v)
		}
		if !x.IsValid() {
			return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid BIT STRING value", d.Label())
		}
		bs := x.Masked()
		return e.sized(d, x.BitLength, 1, false, func(from, to int) error {
			// Fragments always end on an octet boundary of the value.
			e.w.PutBitString(bs[from/8:], to-from)
			return nil
		})
	case asn1rt.KindCharacterString:
		x, ok := v.(asn1rt.CharString)
		if !ok {
			return typeError(d, v)
		}
		return e.chars(d, string(x))
	}
	return asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot encode %s", d.Label(), d.Kind)
}

// integer writes an INTEGER value. Values outside of the root of an extensible
// constraint are encoded as unconstrained whole numbers.
func (e *encoder) integer(d *asn1rt.Descriptor, v asn1rt.Value) error {
	x, ok := asn1rt.IntegerOf(v)
	if !ok {
		return typeError(d, v)
	}
	root := asn1rt.InRoot(d, v)
	if d.Extensible() {
		e.w.PutBit(!root)
		if !root {
			e.octets(content.AppendBigInt(nil, x))
			return nil
		}
	} else if !root {
		return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: value %s out of range", d.Label(), x)
	}
	b := asn1rt.BoundsOf(d)
	switch {
	case b.HasLower && b.HasUpper:
		i, _ := asn1rt.Int64Of(v)
		e.constrained(uint64(i)-uint64(b.Lower), b.Range())
	case b.HasLower:
		off := new(big.Int).Sub(x, big.NewInt(b.Lower))
		e.octets(content.AppendUnsignedBig(nil, off))
	default:
		e.octets(content.AppendInteger(nil, v))
	}
	return nil
}

// enumIndex returns the sorted root items and the extension items of the
// ENUMERATED type d.
func enumIndex(d *asn1rt.Descriptor) (root, ext []asn1rt.EnumItem) {
	for _, it := range d.Items {
		if it.Extension {
			ext = append(ext, it)
		} else {
			root = append(root, it)
		}
	}
	slices.SortFunc(root, func(a, b asn1rt.EnumItem) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	})
	return root, ext
}

func (e *encoder) enumerated(d *asn1rt.Descriptor, v asn1rt.Value) error {
	x, ok := v.(asn1rt.Enumerated)
	if !ok {
		return typeError(d, v)
	}
	root, ext := enumIndex(d)
	for i, it := range root {
		if it.Value == int64(x) {
			if d.Extensible() {
				e.w.PutBit(false)
			}
			e.constrained(uint64(i), uint64(len(root)-1))
			return nil
		}
	}
	for i, it := range ext {
		if it.Value == int64(x) && d.Extensible() {
			e.w.PutBit(true)
			e.normallySmall(uint64(i))
			return nil
		}
	}
	return asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown enumeration value %d", d.Label(), x)
}

// charBits returns the number of bits per character of a known-multiplier
// character string type. UTF8String reports 0.
func charBits(a asn1rt.Alphabet, aligned bool) int {
	switch a {
	case asn1rt.AlphabetNumeric:
		return 4
	case asn1rt.AlphabetIA5, asn1rt.AlphabetPrintable, asn1rt.AlphabetVisible:
		if aligned {
			return 8
		}
		return 7
	case asn1rt.AlphabetBMP:
		return 16
	case asn1rt.AlphabetUniversal:
		return 32
	}
	return 0
}

// numericIndex maps the characters of NumericString to their index in the
// alphabet: space is 0, the digits follow.
func numericIndex(r rune) uint64 {
	if r == ' ' {
		return 0
	}
	return uint64(r-'0') + 1
}

func (e *encoder) chars(d *asn1rt.Descriptor, s string) error {
	w := charBits(d.Alphabet, e.aligned)
	if w == 0 {
		if err := asn1rt.CheckString(d, s); err != nil {
			return err
		}
		e.octets([]byte(s))
		return nil
	}
	if !d.Alphabet.Valid(s) {
		return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid %s character", d.Label(), d.Alphabet)
	}
	rs := []rune(s)
	return e.sized(d, len(rs), w, true, func(from, to int) error {
		for _, r := range rs[from:to] {
			if d.Alphabet == asn1rt.AlphabetNumeric {
				e.w.PutBits(numericIndex(r), w)
			} else {
				e.w.PutBits(uint64(r), w)
			}
		}
		return nil
	})
}

// record writes a SEQUENCE or SET value.
func (e *encoder) record(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	rec, ok := v.(asn1rt.Record)
	if !ok {
		return typeError(d, v)
	}
	if len(rec.Fields) != len(d.Fields) {
		return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: %d field values for %d fields", d.Label(), len(rec.Fields), len(d.Fields))
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
	if extended && !d.Extensible() {
		return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: extension fields in a type without extension marker", d.Label())
	}

	if d.Extensible() {
		e.w.PutBit(extended)
	}
	if err := e.fields(d, rec, order, frame); err != nil {
		return err
	}
	if !extended {
		return nil
	}
	e.smallLength(len(adds))
	for _, a := range added {
		e.w.PutBit(a)
	}
	for i, add := range adds {
		if !added[i] {
			continue
		}
		err := e.wrap(func(sub *encoder) error {
			if d.Fields[add[0]].Group == 0 {
				return sub.encode(d.Fields[add[0]].Type, rec.Fields[add[0]], frame)
			}
			return sub.fields(d, rec, add, frame)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// fields writes the presence bitmap of the optional fields in order followed
// by the present values.
func (e *encoder) fields(d *asn1rt.Descriptor, rec asn1rt.Record, order []int, frame *asn1rt.ValueStack) error {
	for _, i := range order {
		if d.Fields[i].Optional() {
			e.w.PutBit(fields.Present(d, rec, i))
		} else if rec.Fields[i] == nil {
			return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing field %q", d.Label(), d.Fields[i].Name)
		}
	}
	for _, i := range order {
		if !fields.Present(d, rec, i) {
			continue
		}
		if err := e.encode(d.Fields[i].Type, rec.Fields[i], frame); err != nil {
			return err
		}
	}
	return nil
}

// list writes a SEQUENCE OF or SET OF value.
func (e *encoder) list(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	l, ok := v.(asn1rt.List)
	if !ok {
		return typeError(d, v)
	}
	return e.sized(d, len(l), 0, false, func(from, to int) error {
		for _, x := range l[from:to] {
			if err := e.encode(d.Elem, x, stack); err != nil {
				return err
			}
		}
		return nil
	})
}

// choice writes the index of the chosen alternative in canonical order
// followed by its value. Extension alternatives are wrapped in an open type.
func (e *encoder) choice(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	c, ok := v.(asn1rt.Choice)
	if !ok {
		return typeError(d, v)
	}
	if c.Index < 0 || c.Index >= len(d.Fields) {
		return asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: alternative %d out of range", d.Label(), c.Index)
	}
	root := d.RootFields()
	p := slices.Index(asn1rt.CanonicalOrder(d), c.Index)
	alt := d.Fields[c.Index].Type
	if p < root {
		if d.Extensible() {
			e.w.PutBit(false)
		}
		e.constrained(uint64(p), uint64(root-1))
		return e.encode(alt, c.Value, stack)
	}
	if !d.Extensible() {
		return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: extension alternative in a type without extension marker", d.Label())
	}
	e.w.PutBit(true)
	e.normallySmall(uint64(p - root))
	return e.wrap(func(sub *encoder) error {
		return sub.encode(alt, c.Value, stack)
	})
}

// wrap writes the encoding produced by f as an open type: padded to whole
// octets and preceded by a length determinant.
func (e *encoder) wrap(f func(sub *encoder) error) error {
	sub := &encoder{aligned: e.aligned}
	if err := f(sub); err != nil {
		return err
	}
	bs := sub.w.Bytes()
	if len(bs) == 0 {
		bs = []byte{0}
	}
	e.octets(bs)
	return nil
}

// open writes an ANY value as an open type. Unresolved values are written from
// their raw octets.
func (e *encoder) open(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	o, ok := v.(asn1rt.Open)
	if !ok {
		return typeError(d, v)
	}
	if o.Value == nil {
		if len(o.Raw) == 0 {
			return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: empty open type", d.Label())
		}
		e.octets(o.Raw)
		return nil
	}
	t := o.Type
	if t == nil {
		if t, ok = asn1rt.Resolve(d, stack); !ok {
			return asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: cannot resolve open type", d.Label())
		}
	}
	return e.wrap(func(sub *encoder) error {
		return sub.encode(t, o.Value, stack)
	})
}
