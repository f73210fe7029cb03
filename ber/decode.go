// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/content"
	"codello.dev/asn1rt/tlv"
)

// decoder holds the state of a single decode call.
type decoder struct {
	data  []byte
	arena *asn1rt.Arena
}

// decode decodes the element el as a value of type d. el is the outermost
// element of the encoding, including explicit tags.
func (dec *decoder) decode(d *asn1rt.Descriptor, el tlv.Element, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	p := asn1rt.PlanTags(d)
	for _, t := range p.Explicit {
		if el.Tag != t {
			return nil, unexpectedTag(d, el, t)
		}
		if !el.Constructed {
			return nil, asn1rt.Errorf(asn1rt.ErrMalformedTag, "%s: explicit tag %s uses primitive encoding", d.Label(), t).At(el.Offset)
		}
		inner, err := tlv.Parse(dec.data, el.Start, el.End)
		if err != nil {
			return nil, err
		}
		if inner.Next != el.End {
			return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: trailing data after explicitly tagged element", d.Label()).At(inner.Next)
		}
		el = inner
	}
	if !p.Tagged {
		return dec.decodeUntagged(p.Base, el, stack)
	}
	if el.Tag != p.Tag {
		return nil, unexpectedTag(d, el, p.Tag)
	}
	v, err := dec.contents(p.Base, el, stack)
	if err != nil {
		return nil, asn1rt.At(err, asn1rt.ErrConstraint, el.Offset)
	}
	return v, nil
}

func unexpectedTag(d *asn1rt.Descriptor, el tlv.Element, want asn1rt.Tag) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: unexpected tag %s, want %s", d.Label(), el.Tag, want).At(el.Offset)
}

// decodeUntagged decodes the untagged CHOICE or ANY type d. The alternative of
// a CHOICE is selected by the tag of el.
func (dec *decoder) decodeUntagged(d *asn1rt.Descriptor, el tlv.Element, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	switch d.Kind {
	case asn1rt.KindChoice:
		i := asn1rt.Alternative(d, el.Tag)
		if i < 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: no alternative for tag %s", d.Label(), el.Tag).At(el.Offset)
		}
		v, err := dec.decode(d.Fields[i].Type, el, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Choice{Index: i, Value: v}, nil
	case asn1rt.KindAny:
		if t, ok := asn1rt.Resolve(d, stack); ok {
			v, err := dec.decode(t, el, stack)
			if err != nil {
				return nil, err
			}
			return asn1rt.Open{Type: t, Value: v}, nil
		}
		raw, err := dec.arena.Copy(el.Raw(dec.data))
		if err != nil {
			return nil, asn1rt.At(err, asn1rt.ErrAllocation, el.Offset)
		}
		return asn1rt.Open{Raw: raw}, nil
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: untagged %s", d.Label(), d.Kind).At(el.Offset)
}

// contents decodes the contents of el according to d. The tag of el has
// already been checked.
func (dec *decoder) contents(d *asn1rt.Descriptor, el tlv.Element, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		if !el.Constructed {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: primitive encoding of %s", d.Label(), d.Kind)
		}
		return dec.record(d, el, stack)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		if !el.Constructed {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: primitive encoding of %s", d.Label(), d.Kind)
		}
		return dec.list(d, el, stack)
	case asn1rt.KindOctetString:
		b, _, err := dec.collect(el, false)
		if err != nil {
			return nil, err
		}
		if err = asn1rt.CheckSize(d, len(b)); err != nil {
			return nil, err
		}
		return asn1rt.OctetString(b), nil
	case asn1rt.KindBitString:
		b, unused, err := dec.collect(el, true)
		if err != nil {
			return nil, err
		}
		s := asn1rt.BitString{Bytes: b, BitLength: 8*len(b) - unused}
		if unused > 0 {
			b[len(b)-1] &= 0xFF << unused
		}
		if err = asn1rt.CheckSize(d, s.BitLength); err != nil {
			return nil, err
		}
		return s, nil
	case asn1rt.KindCharacterString:
		b, _, err := dec.collect(el, false)
		if err != nil {
			return nil, err
		}
		s, err := content.ParseChars(d.Alphabet, b)
		if err != nil {
			return nil, err
		}
		if err = asn1rt.CheckString(d, s); err != nil {
			return nil, err
		}
		return asn1rt.CharString(s), nil
	}

	if el.Constructed {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: constructed encoding of %s", d.Label(), d.Kind)
	}
	bs := el.Contents(dec.data)
	switch d.Kind {
	case asn1rt.KindBoolean:
		if len(bs) != 1 {
			return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: BOOLEAN of length %d", d.Label(), len(bs))
		}
		return asn1rt.Bool(bs[0] != 0), nil
	case asn1rt.KindInteger:
		v, err := content.ParseInteger(d, bs)
		if err != nil {
			return nil, err
		}
		if err = asn1rt.CheckInteger(d, v); err != nil {
			return nil, err
		}
		return v, nil
	case asn1rt.KindEnumerated:
		if !content.Minimal(bs) {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: enumeration not minimally-encoded", d.Label())
		}
		i, err := content.ParseInt(bs)
		if err != nil {
			return nil, err
		}
		if err = asn1rt.CheckEnumerated(d, asn1rt.Enumerated(i)); err != nil {
			return nil, err
		}
		return asn1rt.Enumerated(i), nil
	case asn1rt.KindNull:
		if len(bs) != 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s: NULL of length %d", d.Label(), len(bs))
		}
		return asn1rt.Null{}, nil
	case asn1rt.KindReal:
		f, err := content.ParseReal(bs)
		if err != nil {
			return nil, err
		}
		return asn1rt.Real(f), nil
	case asn1rt.KindObjectIdentifier:
		oid, err := content.ParseOID(bs)
		if err != nil {
			return nil, err
		}
		return oid, nil
	case asn1rt.KindRelativeOID:
		oid, err := content.ParseRelativeOID(bs)
		if err != nil {
			return nil, err
		}
		return oid, nil
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot decode %s", d.Label(), d.Kind)
}

// record decodes the components of a SEQUENCE or SET. SEQUENCE components are
// searched among the next field and the fields reachable by skipping optional
// fields. SET components may appear in any order. Unknown elements are skipped
// in extensible types.
func (dec *decoder) record(d *asn1rt.Descriptor, el tlv.Element, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	fields := d.Fields
	rec := asn1rt.Record{Fields: make([]asn1rt.Value, len(fields))}
	frame := stack.Push(d, rec)
	next := 0
	err := el.Children(dec.data, func(c tlv.Element) error {
		idx := -1
		if d.Kind == asn1rt.KindSet {
			for i := range fields {
				if asn1rt.Matches(fields[i].Type, c.Tag) {
					idx = i
					break
				}
			}
			if idx >= 0 && rec.Fields[idx] != nil {
				return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: duplicate field %q", d.Label(), fields[idx].Name).At(c.Offset)
			}
		} else {
			for i := next; i < len(fields); i++ {
				if asn1rt.Matches(fields[i].Type, c.Tag) {
					idx = i
					break
				}
				if !fields[i].Optional() && !fields[i].Extension {
					break
				}
			}
		}
		if idx < 0 {
			if d.Extensible() && (d.Kind == asn1rt.KindSet || unknownAddition(d, c.Tag, next)) {
				return nil
			}
			return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: unexpected element %s", d.Label(), c.Tag).At(c.Offset)
		}
		v, err := dec.decode(fields[idx].Type, c, frame)
		if err != nil {
			return err
		}
		rec.Fields[idx] = v
		next = idx + 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range fields {
		f := &fields[i]
		if rec.Fields[i] != nil {
			continue
		}
		switch {
		case f.Presence == asn1rt.PresenceDefault:
			rec.Fields[i] = f.Default
		case f.Presence == asn1rt.PresenceOptional:
		case f.Extension:
			// Absent mandatory extension additions are accepted as if they
			// were optional. Encodings of earlier versions of the type omit
			// them, so this stays lenient even though the addition is not
			// OPTIONAL.
		default:
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing field %q", d.Label(), f.Name).At(el.Offset)
		}
	}
	return rec, nil
}

// unknownAddition reports whether an element with the given tag that follows
// the field before next in an extensible SEQUENCE is an unknown extension
// addition. This requires that no root field matches the tag and that all
// root fields from next on are optional.
func unknownAddition(d *asn1rt.Descriptor, tag asn1rt.Tag, next int) bool {
	for i := range d.RootFields() {
		f := &d.Fields[i]
		if asn1rt.Matches(f.Type, tag) || i >= next && !f.Optional() {
			return false
		}
	}
	return true
}

// list decodes the elements of a SEQUENCE OF or SET OF.
func (dec *decoder) list(d *asn1rt.Descriptor, el tlv.Element, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	var l asn1rt.List
	err := el.Children(dec.data, func(c tlv.Element) error {
		v, err := dec.decode(d.Elem, c, stack)
		if err != nil {
			return err
		}
		l = append(l, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = asn1rt.List{}
	}
	if err = asn1rt.CheckSize(d, len(l)); err != nil {
		return nil, err
	}
	return l, nil
}
