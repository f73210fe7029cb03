// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"slices"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/content"
	"codello.dev/asn1rt/tlv"
)

// encoder holds the configuration of a single encode call.
type encoder struct {
	der bool
}

// encode returns the complete encoding of v as a value of type d, including
// all explicit tags.
func (e *encoder) encode(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	p := asn1rt.PlanTags(d)
	var b []byte
	if p.Tagged {
		bs, constructed, err := e.contents(p.Base, v, stack)
		if err != nil {
			return nil, err
		}
		b = tlv.Append(nil, p.Tag, constructed, bs)
	} else {
		var err error
		if b, err = e.encodeUntagged(p.Base, v, stack); err != nil {
			return nil, err
		}
	}
	for i := len(p.Explicit) - 1; i >= 0; i-- {
		b = tlv.Append(nil, p.Explicit[i], true, b)
	}
	return b, nil
}

func (e *encoder) encodeUntagged(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	switch d.Kind {
	case asn1rt.KindChoice:
		c, ok := v.(asn1rt.Choice)
		if !ok {
			return nil, typeError(d, v)
		}
		if c.Index < 0 || c.Index >= len(d.Fields) {
			return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: alternative %d out of range", d.Label(), c.Index)
		}
		return e.encode(d.Fields[c.Index].Type, c.Value, stack)
	case asn1rt.KindAny:
		o, ok := v.(asn1rt.Open)
		if !ok {
			return nil, typeError(d, v)
		}
		if o.Value == nil {
			el, err := tlv.Parse(o.Raw, 0, len(o.Raw))
			if err != nil {
				return nil, err
			}
			if el.Next != len(o.Raw) {
				return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: trailing data after open type value", d.Label()).At(el.Next)
			}
			return slices.Clone(o.Raw), nil
		}
		t := o.Type
		if t == nil {
			if t, ok = asn1rt.Resolve(d, stack); !ok {
				return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: cannot resolve open type", d.Label())
			}
		}
		return e.encode(t, o.Value, stack)
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: untagged %s", d.Label(), d.Kind)
}

func typeError(d *asn1rt.Descriptor, v asn1rt.Value) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: cannot encode %T as %s", d.Label(), v, d.Kind)
}

// contents returns the contents octets of v and whether they use the
// constructed encoding.
func (e *encoder) contents(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, bool, error) {
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		b, err := e.record(d, v, stack)
		return b, true, err
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		b, err := e.list(d, v, stack)
		return b, true, err
	}

	var b []byte
	switch d.Kind {
	case asn1rt.KindBoolean:
		x, ok := v.(asn1rt.Bool)
		if !ok {
			return nil, false, typeError(d, v)
		}
		if x {
			b = []byte{0xFF}
		} else {
			b = []byte{0x00}
		}
	case asn1rt.KindInteger:
		if err := asn1rt.CheckInteger(d, v); err != nil {
			return nil, false, err
		}
		b = content.AppendInteger(nil, v)
	case asn1rt.KindEnumerated:
		x, ok := v.(asn1rt.Enumerated)
		if !ok {
			return nil, false, typeError(d, v)
		}
		if err := asn1rt.CheckEnumerated(d, x); err != nil {
			return nil, false, err
		}
		b = content.AppendInt(nil, int64(x))
	case asn1rt.KindNull:
		if _, ok := v.(asn1rt.Null); !ok {
			return nil, false, typeError(d, v)
		}
	case asn1rt.KindReal:
		x, ok := v.(asn1rt.Real)
		if !ok {
			return nil, false, typeError(d, v)
		}
		b = content.AppendReal(nil, float64(x))
	case asn1rt.KindObjectIdentifier:
		x, ok := v.(asn1rt.ObjectIdentifier)
		if !ok {
			return nil, false, typeError(d, v)
		}
		var err error
		if b, err = content.AppendOID(nil, x); err != nil {
			return nil, false, err
		}
	case asn1rt.KindRelativeOID:
		x, ok := v.(asn1rt.RelativeOID)
		if !ok {
			return nil, false, typeError(d, v)
		}
		b = content.AppendRelativeOID(nil, x)
	case asn1rt.KindOctetString:
		x, ok := v.(asn1rt.OctetString)
		if !ok {
			return nil, false, typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, len(x)); err != nil {
			return nil, false, err
		}
		b = slices.Clone([]byte(x))
	case asn1rt.KindBitString:
		x, ok := v.(asn1rt.BitString)
		if !ok {
			return nil, false, typeError(d, v)
		}
		if !x.IsValid() {
			return nil, false, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid BIT STRING value", d.Label())
		}
		if err := asn1rt.CheckSize(d, x.BitLength); err != nil {
			return nil, false, err
		}
		b = append([]byte{byte((8 - x.BitLength%8) % 8)}, x.Masked()...)
	case asn1rt.KindCharacterString:
		x, ok := v.(asn1rt.CharString)
		if !ok {
			return nil, false, typeError(d, v)
		}
		if err := asn1rt.CheckString(d, string(x)); err != nil {
			return nil, false, err
		}
		b = content.AppendChars(nil, d.Alphabet, string(x))
	default:
		return nil, false, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot encode %s", d.Label(), d.Kind)
	}
	return b, false, nil
}

// record encodes the components of a SEQUENCE or SET. Components equal to
// their DEFAULT value are omitted. In DER mode the components of a SET are
// sorted by tag.
func (e *encoder) record(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	rec, ok := v.(asn1rt.Record)
	if !ok {
		return nil, typeError(d, v)
	}
	if len(rec.Fields) != len(d.Fields) {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: %d field values for %d fields", d.Label(), len(rec.Fields), len(d.Fields))
	}
	frame := stack.Push(d, rec)
	var parts [][]byte
	for i := range d.Fields {
		f := &d.Fields[i]
		fv := rec.Fields[i]
		if fv == nil {
			if !f.Optional() && !f.Extension {
				return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing field %q", d.Label(), f.Name)
			}
			continue
		}
		if f.Presence == asn1rt.PresenceDefault && asn1rt.Equal(fv, f.Default) {
			continue
		}
		b, err := e.encode(f.Type, fv, frame)
		if err != nil {
			return nil, err
		}
		parts = append(parts, b)
	}
	if e.der && d.Kind == asn1rt.KindSet {
		slices.SortStableFunc(parts, func(a, b []byte) int {
			ha, _, _ := tlv.ParseHeader(a, 0)
			hb, _, _ := tlv.ParseHeader(b, 0)
			switch {
			case ha.Tag.Less(hb.Tag):
				return -1
			case hb.Tag.Less(ha.Tag):
				return 1
			}
			return 0
		})
	}
	return bytes.Join(parts, nil), nil
}

// list encodes the elements of a SEQUENCE OF or SET OF. In DER mode the
// elements of a SET OF are sorted by their encodings.
func (e *encoder) list(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) ([]byte, error) {
	l, ok := v.(asn1rt.List)
	if !ok {
		return nil, typeError(d, v)
	}
	if err := asn1rt.CheckSize(d, len(l)); err != nil {
		return nil, err
	}
	parts := make([][]byte, len(l))
	for i, x := range l {
		b, err := e.encode(d.Elem, x, stack)
		if err != nil {
			return nil, err
		}
		parts[i] = b
	}
	if e.der && d.Kind == asn1rt.KindSetOf {
		slices.SortFunc(parts, bytes.Compare)
	}
	return bytes.Join(parts, nil), nil
}
