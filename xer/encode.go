// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xer

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/fields"
)

type encoder struct {
	buf    []byte
	indent string
	depth  int
}

func typeError(d *asn1rt.Descriptor, v asn1rt.Value) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: cannot encode %T as %s", d.Label(), v, d.Kind)
}

// newline starts a new line at the current depth if indentation is enabled.
func (e *encoder) newline() {
	if e.indent == "" {
		return
	}
	e.buf = append(e.buf, '\n')
	for range e.depth {
		e.buf = append(e.buf, e.indent...)
	}
}

func (e *encoder) empty(name string) {
	e.buf = append(e.buf, '<')
	e.buf = append(e.buf, name...)
	e.buf = append(e.buf, "/>"...)
}

// element writes v as an element with the given name.
func (e *encoder) element(name string, d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	if d.Underlying().Kind == asn1rt.KindNull {
		if _, ok := v.(asn1rt.Null); !ok {
			return typeError(d, v)
		}
		e.empty(name)
		return nil
	}
	e.buf = append(e.buf, '<')
	e.buf = append(e.buf, name...)
	e.buf = append(e.buf, '>')
	if err := e.content(d.Underlying(), v, stack); err != nil {
		return err
	}
	e.buf = append(e.buf, "</"...)
	e.buf = append(e.buf, name...)
	e.buf = append(e.buf, '>')
	return nil
}

// children writes the child elements produced by f on separate lines.
func (e *encoder) children(f func() (int, error)) error {
	e.depth++
	n, err := f()
	e.depth--
	if err == nil && n > 0 {
		e.newline()
	}
	return err
}

// content writes the contents of an element of type d.
func (e *encoder) content(d *asn1rt.Descriptor, v asn1rt.Value, stack *asn1rt.ValueStack) error {
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		rec, ok := v.(asn1rt.Record)
		if !ok || len(rec.Fields) != len(d.Fields) {
			return typeError(d, v)
		}
		frame := stack.Push(d, rec)
		return e.children(func() (int, error) {
			n := 0
			for i := range d.Fields {
				f := &d.Fields[i]
				if !fields.Present(d, rec, i) {
					if rec.Fields[i] == nil && f.Presence == asn1rt.PresenceMandatory && !f.Extension {
						return n, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing field %q", d.Label(), f.Name)
					}
					continue
				}
				e.newline()
				if err := e.element(f.Name, f.Type, rec.Fields[i], frame); err != nil {
					return n, err
				}
				n++
			}
			return n, nil
		})
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		l, ok := v.(asn1rt.List)
		if !ok {
			return typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, len(l)); err != nil {
			return err
		}
		name := typeName(d.Elem)
		return e.children(func() (int, error) {
			for _, x := range l {
				e.newline()
				if err := e.element(name, d.Elem, x, stack); err != nil {
					return 0, err
				}
			}
			return len(l), nil
		})
	case asn1rt.KindChoice:
		c, ok := v.(asn1rt.Choice)
		if !ok {
			return typeError(d, v)
		}
		if c.Index < 0 || c.Index >= len(d.Fields) {
			return asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: alternative %d out of range", d.Label(), c.Index)
		}
		return e.children(func() (int, error) {
			e.newline()
			f := &d.Fields[c.Index]
			return 1, e.element(f.Name, f.Type, c.Value, stack)
		})
	case asn1rt.KindAny:
		o, ok := v.(asn1rt.Open)
		if !ok {
			return typeError(d, v)
		}
		if o.Value == nil {
			e.buf = append(e.buf, o.Raw...)
			return nil
		}
		t := o.Type
		if t == nil {
			if t, ok = asn1rt.Resolve(d, stack); !ok {
				return asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: cannot resolve open type", d.Label())
			}
		}
		return e.content(t.Underlying(), o.Value, stack)
	case asn1rt.KindBoolean:
		b, ok := v.(asn1rt.Bool)
		if !ok {
			return typeError(d, v)
		}
		e.empty(strconv.FormatBool(bool(b)))
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
			e.empty(it.Name)
		} else {
			e.buf = strconv.AppendInt(e.buf, int64(x), 10)
		}
	case asn1rt.KindNull:
		if _, ok := v.(asn1rt.Null); !ok {
			return typeError(d, v)
		}
	case asn1rt.KindReal:
		x, ok := v.(asn1rt.Real)
		if !ok {
			return typeError(d, v)
		}
		switch f := float64(x); {
		case math.IsInf(f, 1):
			e.empty("PLUS-INFINITY")
		case math.IsInf(f, -1):
			e.empty("MINUS-INFINITY")
		case math.IsNaN(f):
			e.empty("NOT-A-NUMBER")
		default:
			e.buf = strconv.AppendFloat(e.buf, f, 'G', -1, 64)
		}
	case asn1rt.KindBitString:
		b, ok := v.(asn1rt.BitString)
		if !ok || !b.IsValid() {
			return typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, b.BitLength); err != nil {
			return err
		}
		e.buf = append(e.buf, b.String()...)
	case asn1rt.KindOctetString:
		b, ok := v.(asn1rt.OctetString)
		if !ok {
			return typeError(d, v)
		}
		if err := asn1rt.CheckSize(d, len(b)); err != nil {
			return err
		}
		e.buf = append(e.buf, strings.ToUpper(hex.EncodeToString(b))...)
	case asn1rt.KindObjectIdentifier:
		oid, ok := v.(asn1rt.ObjectIdentifier)
		if !ok || !oid.IsValid() {
			return typeError(d, v)
		}
		e.buf = append(e.buf, oid.String()...)
	case asn1rt.KindRelativeOID:
		oid, ok := v.(asn1rt.RelativeOID)
		if !ok {
			return typeError(d, v)
		}
		e.buf = append(e.buf, oid.String()...)
	case asn1rt.KindCharacterString:
		s, ok := v.(asn1rt.CharString)
		if !ok {
			return typeError(d, v)
		}
		if err := asn1rt.CheckString(d, string(s)); err != nil {
			return err
		}
		e.buf = appendEscaped(e.buf, string(s))
	default:
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot encode %s", d.Label(), d.Kind)
	}
	return nil
}

// appendEscaped appends s to b with markup characters and control characters
// replaced by references.
func appendEscaped(b []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == '<':
			b = append(b, "&lt;"...)
		case r == '>':
			b = append(b, "&gt;"...)
		case r == '&':
			b = append(b, "&amp;"...)
		case r < 0x20 && r != '\t' && r != '\n':
			b = append(b, "&#x"...)
			b = strconv.AppendUint(b, uint64(r), 16)
			b = append(b, ';')
		default:
			b = utf8.AppendRune(b, r)
		}
	}
	return b
}
