// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xer

import (
	"encoding/hex"
	"math"
	"math/big"
	"strconv"
	"strings"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/scan"
)

// maxDepth bounds the nesting of skipped and captured elements.
const maxDepth = 1 << 10

type decoder struct {
	t     *tokenizer
	arena *asn1rt.Arena
}

// document reads the top-level element of type d.
func (dec *decoder) document(d *asn1rt.Descriptor) (asn1rt.Value, int, error) {
	tok, ok, err := dec.child()
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		tok, _ = dec.t.peek()
		return nil, 0, dec.unexpected(tok, "<"+typeName(d)+">")
	}
	if name := typeName(d); tok.name != name {
		return nil, 0, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "expected <%s>, found <%s>", name, tok.name).AtLine(tok.line)
	}
	v, err := dec.element(d, tok, nil)
	if err != nil {
		return nil, 0, err
	}
	return v, dec.t.s.Pos(), nil
}

// element reads the contents and the end tag of the element started by
// start as a value of type d.
func (dec *decoder) element(d *asn1rt.Descriptor, start token, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	v, err := dec.content(d.Underlying(), start, stack)
	if err == nil {
		err = dec.end(start)
	}
	if err != nil {
		return nil, asn1rt.AtLine(err, asn1rt.ErrConstraint, start.line)
	}
	return v, nil
}

// child skips white space and consumes the next start tag. It reports false
// if the next token is not a start tag.
func (dec *decoder) child() (token, bool, error) {
	for {
		tok, err := dec.t.peek()
		if err != nil {
			return token{}, false, err
		}
		switch {
		case tok.kind == tokenText && strings.TrimLeft(tok.text, " \t\r\n") == "":
			_, _ = dec.t.next()
		case tok.kind == tokenText:
			return token{}, false, asn1rt.Errorf(asn1rt.ErrConstraint, "unexpected character data %q", tok.text).AtLine(tok.line)
		case tok.kind == tokenStart:
			_, _ = dec.t.next()
			return tok, true, nil
		default:
			return token{}, false, nil
		}
	}
}

// end skips white space and consumes the end tag matching start.
func (dec *decoder) end(start token) error {
	for {
		tok, err := dec.t.next()
		if err != nil {
			return err
		}
		if tok.kind == tokenText && strings.TrimLeft(tok.text, " \t\r\n") == "" {
			continue
		}
		if tok.kind != tokenEnd || tok.name != start.name {
			return dec.unexpected(tok, "</"+start.name+">")
		}
		return nil
	}
}

func (dec *decoder) unexpected(tok token, want string) error {
	switch tok.kind {
	case tokenEOF:
		return asn1rt.Errorf(asn1rt.ErrTruncated, "expected %s", want).AtLine(tok.line)
	case tokenStart:
		return asn1rt.Errorf(asn1rt.ErrMalformedTag, "expected %s, found <%s>", want, tok.name).AtLine(tok.line)
	case tokenEnd:
		return asn1rt.Errorf(asn1rt.ErrMalformedTag, "expected %s, found </%s>", want, tok.name).AtLine(tok.line)
	}
	return asn1rt.Errorf(asn1rt.ErrConstraint, "expected %s, found character data", want).AtLine(tok.line)
}

// skip consumes the contents of the element started by start up to, but not
// including, its end tag. It returns the input offsets of the contents.
func (dec *decoder) skip(start token) (from, to int, err error) {
	from = start.end
	depth := 0
	for {
		tok, err := dec.t.peek()
		if err != nil {
			return 0, 0, err
		}
		switch tok.kind {
		case tokenEOF:
			return 0, 0, dec.unexpected(tok, "</"+start.name+">")
		case tokenStart:
			if depth++; depth > maxDepth {
				return 0, 0, asn1rt.Errorf(asn1rt.ErrUnsupported, "elements nested too deeply").AtLine(tok.line)
			}
		case tokenEnd:
			if depth == 0 {
				return from, tok.pos, nil
			}
			depth--
		}
		_, _ = dec.t.next()
	}
}

// leaf reads the contents of a primitive element: character data or a single
// empty element such as <true/>.
func (dec *decoder) leaf() (text, ident string, err error) {
	var sb strings.Builder
	for {
		tok, err := dec.t.peek()
		if err != nil {
			return "", "", err
		}
		switch tok.kind {
		case tokenText:
			_, _ = dec.t.next()
			sb.WriteString(tok.text)
			continue
		case tokenStart:
			if ident != "" || strings.TrimSpace(sb.String()) != "" {
				return "", "", asn1rt.Errorf(asn1rt.ErrConstraint, "unexpected element <%s>", tok.name).AtLine(tok.line)
			}
			_, _ = dec.t.next()
			end, err := dec.t.next()
			if err != nil {
				return "", "", err
			}
			if end.kind != tokenEnd || end.name != tok.name {
				return "", "", asn1rt.Errorf(asn1rt.ErrConstraint, "element <%s> must be empty", tok.name).AtLine(tok.line)
			}
			ident = tok.name
			continue
		}
		break
	}
	text = sb.String()
	if ident != "" && strings.TrimSpace(text) != "" {
		return "", "", dec.t.s.Errorf(asn1rt.ErrConstraint, "unexpected character data after <%s/>", ident)
	}
	return text, ident, nil
}

// word reads the contents of an element holding either an empty element or
// a single word of character data.
func (dec *decoder) word() (string, error) {
	text, ident, err := dec.leaf()
	if err != nil || ident != "" {
		return ident, err
	}
	return strings.TrimSpace(text), nil
}

// content reads the contents of an element of type d.
func (dec *decoder) content(d *asn1rt.Descriptor, start token, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		return dec.record(d, stack)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		return dec.list(d, stack)
	case asn1rt.KindChoice:
		return dec.choice(d, stack)
	case asn1rt.KindAny:
		return dec.open(d, start, stack)
	case asn1rt.KindCharacterString:
		text, ident, err := dec.leaf()
		if err != nil {
			return nil, err
		}
		if ident != "" {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "unexpected element <%s>", ident)
		}
		if err = asn1rt.CheckString(d, text); err != nil {
			return nil, err
		}
		return asn1rt.CharString(text), nil
	}

	w, err := dec.word()
	if err != nil {
		return nil, err
	}
	switch d.Kind {
	case asn1rt.KindBoolean:
		switch w {
		case "true", "1":
			return asn1rt.Bool(true), nil
		case "false", "0":
			return asn1rt.Bool(false), nil
		}
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid BOOLEAN value %q", w)
	case asn1rt.KindInteger:
		x, ok := new(big.Int).SetString(w, 10)
		if !ok {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid INTEGER value %q", w)
		}
		if d.Flags&asn1rt.FlagLargeInteger == 0 && !x.IsInt64() {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: value %s out of range", d.Label(), x)
		}
		v := asn1rt.IntegerValue(d, x)
		if err = asn1rt.CheckInteger(d, v); err != nil {
			return nil, err
		}
		return v, nil
	case asn1rt.KindEnumerated:
		if it, ok := d.ItemByName(w); ok {
			return asn1rt.Enumerated(it.Value), nil
		}
		n, err := strconv.ParseInt(w, 10, 64)
		if err != nil {
			return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown enumeration item %q", d.Label(), w)
		}
		if err = asn1rt.CheckEnumerated(d, asn1rt.Enumerated(n)); err != nil {
			return nil, err
		}
		return asn1rt.Enumerated(n), nil
	case asn1rt.KindNull:
		if w != "" {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "NULL element must be empty")
		}
		return asn1rt.Null{}, nil
	case asn1rt.KindReal:
		return parseReal(w)
	case asn1rt.KindBitString:
		s := removeSpace(w)
		b, ok := asn1rt.ParseBits(s)
		if !ok {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid BIT STRING value")
		}
		if err = asn1rt.CheckSize(d, b.BitLength); err != nil {
			return nil, err
		}
		if b.Bytes, err = dec.arena.Copy(b.Bytes); err != nil {
			return nil, err
		}
		return b, nil
	case asn1rt.KindOctetString:
		bs, err := hex.DecodeString(removeSpace(w))
		if err != nil {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid OCTET STRING value")
		}
		if err = asn1rt.CheckSize(d, len(bs)); err != nil {
			return nil, err
		}
		if bs, err = dec.arena.Copy(bs); err != nil {
			return nil, err
		}
		return asn1rt.OctetString(bs), nil
	case asn1rt.KindObjectIdentifier:
		arcs, ok := asn1rt.ParseArcs(w)
		if !ok || !asn1rt.ObjectIdentifier(arcs).IsValid() {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid OBJECT IDENTIFIER value %q", w)
		}
		return asn1rt.ObjectIdentifier(arcs), nil
	case asn1rt.KindRelativeOID:
		if w == "" {
			return asn1rt.RelativeOID{}, nil
		}
		arcs, ok := asn1rt.ParseArcs(w)
		if !ok {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid RELATIVE-OID value %q", w)
		}
		return asn1rt.RelativeOID(arcs), nil
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot decode %s", d.Label(), d.Kind)
}

// parseReal parses the XML notation of a REAL value.
func parseReal(w string) (asn1rt.Value, error) {
	switch w {
	case "PLUS-INFINITY", "INF":
		return asn1rt.Real(math.Inf(1)), nil
	case "MINUS-INFINITY", "-INF":
		return asn1rt.Real(math.Inf(-1)), nil
	case "NOT-A-NUMBER", "NaN":
		return asn1rt.Real(math.NaN()), nil
	}
	if w == "" || strings.ContainsAny(w, "iInNxXpP_") {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid REAL value %q", w)
	}
	f, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid REAL value %q", w)
	}
	return asn1rt.Real(f), nil
}

func removeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 && scan.IsSpace(byte(r)) {
			return -1
		}
		return r
	}, s)
}

// record reads the components of a SEQUENCE or SET value. Components may
// appear in any order. Unknown components are skipped if d is extensible.
func (dec *decoder) record(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	rec := asn1rt.Record{Fields: make([]asn1rt.Value, len(d.Fields))}
	frame := stack.Push(d, rec)
	for {
		tok, ok, err := dec.child()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		i := d.FieldIndex(tok.name)
		if i < 0 {
			if !d.Extensible() {
				return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: unknown component <%s>", d.Label(), tok.name).AtLine(tok.line)
			}
			if _, _, err = dec.skip(tok); err != nil {
				return nil, err
			}
			if err = dec.end(tok); err != nil {
				return nil, err
			}
			continue
		}
		if rec.Fields[i] != nil {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: duplicate component <%s>", d.Label(), tok.name).AtLine(tok.line)
		}
		if rec.Fields[i], err = dec.element(d.Fields[i].Type, tok, frame); err != nil {
			return nil, err
		}
	}
	for i := range d.Fields {
		f := &d.Fields[i]
		if rec.Fields[i] != nil {
			continue
		}
		switch {
		case f.Presence == asn1rt.PresenceDefault:
			rec.Fields[i] = f.Default
		case f.Presence == asn1rt.PresenceMandatory && !f.Extension:
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: missing component %q", d.Label(), f.Name)
		}
	}
	return rec, nil
}

// list reads the elements of a SEQUENCE OF or SET OF value. The names of the
// element tags are not checked.
func (dec *decoder) list(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	l := asn1rt.List{}
	for {
		tok, ok, err := dec.child()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, err := dec.element(d.Elem, tok, stack)
		if err != nil {
			return nil, err
		}
		l = append(l, v)
	}
	if err := asn1rt.CheckSize(d, len(l)); err != nil {
		return nil, err
	}
	return l, nil
}

// choice reads the element of the chosen alternative.
func (dec *decoder) choice(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	tok, ok, err := dec.child()
	if err != nil {
		return nil, err
	}
	if !ok {
		tok, _ = dec.t.peek()
		return nil, dec.unexpected(tok, "alternative of "+d.Label())
	}
	i := d.FieldIndex(tok.name)
	if i < 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown alternative <%s>", d.Label(), tok.name).AtLine(tok.line)
	}
	v, err := dec.element(d.Fields[i].Type, tok, stack)
	if err != nil {
		return nil, err
	}
	return asn1rt.Choice{Index: i, Value: v}, nil
}

// open reads an ANY value. Values of unresolved types retain the text of the
// element contents.
func (dec *decoder) open(d *asn1rt.Descriptor, start token, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	if t, ok := asn1rt.Resolve(d, stack); ok {
		v, err := dec.content(t.Underlying(), start, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Open{Type: t, Value: v}, nil
	}
	from, to, err := dec.skip(start)
	if err != nil {
		return nil, err
	}
	raw, err := dec.arena.Copy(dec.t.s.Slice(from, to))
	if err != nil {
		return nil, err
	}
	return asn1rt.Open{Raw: raw}, nil
}
