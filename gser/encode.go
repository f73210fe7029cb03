// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gser

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/fields"
)

type encoder struct {
	buf []byte
}

func typeError(d *asn1rt.Descriptor, v asn1rt.Value) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: cannot encode %T as %s", d.Label(), v, d.Kind)
}

// separator writes the delimiter before the i-th element of a braced list.
func (e *encoder) separator(i int) {
	if i > 0 {
		e.buf = append(e.buf, ',')
	}
	e.buf = append(e.buf, ' ')
}

func (e *encoder) encode(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	d = d.Underlying()
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		rec, ok := v.(asn1rt.Record)
		if !ok || len(rec.Fields) != len(d.Fields) {
			return typeError(d, v)
		}
		frame := stack.Push(d, rec)
		e.buf = append(e.buf, '{')
		n := 0
		for i := range d.Fields {
			f := &d.Fields[i]
			if !fields.Present(d, rec, i) {
				if rec.Fields[i] == nil && f.Presence == asn1rt.PresenceMandatory && !f.Extension {
					return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing field %q", d.Label(), f.Name)
				}
				continue
			}
			e.separator(n)
			e.buf = append(e.buf, f.Name...)
			e.buf = append(e.buf, ' ')
			if err := e.encode(f.Type, rec.Fields[i], frame); err != nil {
				return err
			}
			n++
		}
		e.buf = append(e.buf, " }"...)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		l, ok := v.(asn1rt.List)
		if !ok {
			return typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, len(l)); err != nil {
			return err
		}
		e.buf = append(e.buf, '{')
		for i, x := range l {
			e.separator(i)
			if err := e.encode(d.Elem, x, stack); err != nil {
				return err
			}
		}
		e.buf = append(e.buf, " }"...)
	case asn1rt.KindChoice:
		c, ok := v.(asn1rt.Choice)
		if !ok {
			return typeError(d, v)
		}
		if c.Index < 0 || c.Index >= len(d.Fields) {
			return asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: alternative %d out of range", d.Label(), c.Index)
		}
		f := &d.Fields[c.Index]
		e.buf = append(e.buf, f.Name...)
		e.buf = append(e.buf, ':')
		return e.encode(f.Type, c.Value, stack)
	case asn1rt.KindAny:
		o, ok := v.(asn1rt.Open)
		if !ok {
			return typeError(d, v)
		}
		if o.Value == nil {
			if len(o.Raw) == 0 {
				return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: empty open type value", d.Label())
			}
			e.buf = append(e.buf, o.Raw...)
			return nil
		}
		t := o.Type
		if t == nil {
			if t, ok = asn1rt.Resolve(d, stack); !ok {
				return asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: cannot resolve open type", d.Label())
			}
		}
		return e.encode(t, o.Value, stack)
	case asn1rt.KindBoolean:
		b, ok := v.(asn1rt.Bool)
		if !ok {
			return typeError(d, v)
		}
		if b {
			e.buf = append(e.buf, "TRUE"...)
		} else {
			e.buf = append(e.buf, "FALSE"...)
		}
	case asn1rt.KindInteger:
		if err := asn1rt.CheckInteger(d, v); err != nil {
			return err
		}
		x, _ := asn1rt.IntegerOf(v)
		e.buf = x.Append(e.buf, 10)
	case asn1rt.KindEnumerated:
		x, ok := v.(asn1rt.Enumerated)
		if !ok {
			return typeError(d, v)
		}
		if err := asn1rt.CheckEnumerated(d, x); err != nil {
			return err
		}
		if it, ok := d.ItemByValue(int64(x)); ok {
			e.buf = append(e.buf, it.Name...)
		} else {
			e.buf = strconv.AppendInt(e.buf, int64(x), 10)
		}
	case asn1rt.KindNull:
		if _, ok := v.(asn1rt.Null); !ok {
			return typeError(d, v)
		}
		e.buf = append(e.buf, "NULL"...)
	case asn1rt.KindReal:
		x, ok := v.(asn1rt.Real)
		if !ok {
			return typeError(d, v)
		}
		e.buf = appendReal(e.buf, float64(x))
	case asn1rt.KindBitString:
		b, ok := v.(asn1rt.BitString)
		if !ok || !b.IsValid() {
			return typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, b.BitLength); err != nil {
			return err
		}
		e.buf = append(e.buf, '\'')
		e.buf = append(e.buf, b.String()...)
		e.buf = append(e.buf, "'B"...)
	case asn1rt.KindOctetString:
		b, ok := v.(asn1rt.OctetString)
		if !ok {
			return typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, len(b)); err != nil {
			return err
		}
		e.buf = append(e.buf, '\'')
		e.buf = append(e.buf, strings.ToUpper(hex.EncodeToString(b))...)
		e.buf = append(e.buf, "'H"...)
	case asn1rt.KindObjectIdentifier:
		oid, ok := v.(asn1rt.ObjectIdentifier)
		if !ok || !oid.IsValid() {
			return typeError(d, v)
		}
		e.arcs(oid)
	case asn1rt.KindRelativeOID:
		oid, ok := v.(asn1rt.RelativeOID)
		if !ok {
			return typeError(d, v)
		}
		e.arcs(oid)
	case asn1rt.KindCharacterString:
		s, ok := v.(asn1rt.CharString)
		if !ok {
			return typeError(d, v)
		}
		if err := asn1rt.CheckString(d, string(s)); err != nil {
			return err
		}
		e.buf = append(e.buf, '"')
		e.buf = append(e.buf, strings.ReplaceAll(string(s), `"`, `""`)...)
		e.buf = append(e.buf, '"')
	default:
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot encode %s", d.Label(), d.Kind)
	}
	return nil
}

func (e *encoder) arcs(arcs []uint) {
	e.buf = append(e.buf, '{')
	for _, a := range arcs {
		e.buf = append(e.buf, ' ')
		e.buf = strconv.AppendUint(e.buf, uint64(a), 10)
	}
	e.buf = append(e.buf, " }"...)
}

// appendReal appends f in the form mantissa E exponent, such as -2.5E0.
// Zeros are written as 0 and -0.
func appendReal(b []byte, f float64) []byte {
	switch {
	case math.IsInf(f, 1):
		return append(b, "PLUS-INFINITY"...)
	case math.IsInf(f, -1):
		return append(b, "MINUS-INFINITY"...)
	case math.IsNaN(f):
		return append(b, "NOT-A-NUMBER"...)
	case f == 0 && math.Signbit(f):
		return append(b, "-0"...)
	case f == 0:
		return append(b, '0')
	}
	s := strconv.FormatFloat(f, 'E', -1, 64)
	i := strings.IndexByte(s, 'E')
	exp, _ := strconv.Atoi(s[i+1:])
	b = append(b, s[:i+1]...)
	return strconv.AppendInt(b, int64(exp), 10)
}
