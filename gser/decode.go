// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gser

import (
	"encoding/hex"
	"math"
	"math/big"
	"strconv"

	"codello.dev/asn1rt"
)

// maxDepth bounds the nesting of skipped values.
const maxDepth = 1 << 10

type decoder struct {
	t     *tokenizer
	arena *asn1rt.Arena
}

// decode reads a value of type d. Errors are annotated with the line of the
// first token of the value.
func (dec *decoder) decode(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	tok, err := dec.t.peek()
	if err != nil {
		return nil, err
	}
	v, err := dec.value(d.Underlying(), stack)
	if err != nil {
		return nil, asn1rt.AtLine(err, asn1rt.ErrConstraint, tok.line)
	}
	return v, nil
}

// expect consumes the next token, which must be of kind k.
func (dec *decoder) expect(k tokenKind) (token, error) {
	tok, err := dec.t.next()
	if err != nil {
		return token{}, err
	}
	if tok.kind != k {
		return token{}, dec.unexpected(tok, k.String())
	}
	return tok, nil
}

func (dec *decoder) unexpected(tok token, want string) error {
	if tok.kind == tokenEOF {
		return asn1rt.Errorf(asn1rt.ErrTruncated, "expected %s", want).AtLine(tok.line)
	}
	return asn1rt.Errorf(asn1rt.ErrMalformedTag, "expected %s, found %s", want, tok.kind).AtLine(tok.line)
}

func invalid(d *asn1rt.Descriptor, tok token) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid %s value %s %q", d.Label(), d.Kind, tok.kind, tok.text).AtLine(tok.line)
}

// separator consumes the ',' or '}' after an element of a braced list. It
// reports true if the list is complete.
func (dec *decoder) separator() (bool, error) {
	tok, err := dec.t.next()
	if err != nil {
		return false, err
	}
	switch tok.kind {
	case tokenComma:
		return false, nil
	case tokenClose:
		return true, nil
	}
	return false, dec.unexpected(tok, "',' or '}'")
}

// open consumes '{' and reports true if it is immediately followed by '}'.
func (dec *decoder) open() (bool, error) {
	if _, err := dec.expect(tokenOpen); err != nil {
		return false, err
	}
	tok, err := dec.t.peek()
	if err != nil || tok.kind != tokenClose {
		return false, err
	}
	_, err = dec.t.next()
	return true, err
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
		return dec.any(d, stack)
	case asn1rt.KindObjectIdentifier:
		arcs, err := dec.arcs(d)
		if err != nil {
			return nil, err
		}
		if !asn1rt.ObjectIdentifier(arcs).IsValid() {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid OBJECT IDENTIFIER %v", d.Label(), arcs)
		}
		return asn1rt.ObjectIdentifier(arcs), nil
	case asn1rt.KindRelativeOID:
		arcs, err := dec.arcs(d)
		if err != nil {
			return nil, err
		}
		return asn1rt.RelativeOID(arcs), nil
	}
	tok, err := dec.t.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenOpen, tokenClose, tokenComma, tokenColon, tokenEOF:
		return nil, dec.unexpected(tok, d.Kind.String()+" value")
	}
	return dec.primitive(d, tok)
}

// primitive converts the literal tok into a value of type d.
func (dec *decoder) primitive(d *asn1rt.Descriptor, tok token) (asn1rt.Value, error) {
	switch d.Kind {
	case asn1rt.KindBoolean:
		if tok.kind == tokenIdent {
			switch tok.text {
			case "TRUE":
				return asn1rt.Bool(true), nil
			case "FALSE":
				return asn1rt.Bool(false), nil
			}
		}
	case asn1rt.KindNull:
		if tok.kind == tokenIdent && tok.text == "NULL" {
			return asn1rt.Null{}, nil
		}
	case asn1rt.KindInteger:
		if tok.kind != tokenNumber {
			break
		}
		x, ok := new(big.Int).SetString(tok.text, 10)
		if !ok {
			break
		}
		if d.Flags&asn1rt.FlagLargeInteger == 0 && !x.IsInt64() {
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: value %s out of range", d.Label(), x)
		}
		v := asn1rt.IntegerValue(d, x)
		if err := asn1rt.CheckInteger(d, v); err != nil {
			return nil, err
		}
		return v, nil
	case asn1rt.KindEnumerated:
		switch tok.kind {
		case tokenIdent:
			it, ok := d.ItemByName(tok.text)
			if !ok {
				return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown enumeration item %q", d.Label(), tok.text)
			}
			return asn1rt.Enumerated(it.Value), nil
		case tokenNumber:
			n, err := strconv.ParseInt(tok.text, 10, 64)
			if err != nil {
				break
			}
			if err = asn1rt.CheckEnumerated(d, asn1rt.Enumerated(n)); err != nil {
				return nil, err
			}
			return asn1rt.Enumerated(n), nil
		}
	case asn1rt.KindReal:
		switch tok.kind {
		case tokenIdent:
			switch tok.text {
			case "PLUS-INFINITY":
				return asn1rt.Real(math.Inf(1)), nil
			case "MINUS-INFINITY":
				return asn1rt.Real(math.Inf(-1)), nil
			case "NOT-A-NUMBER":
				return asn1rt.Real(math.NaN()), nil
			}
		case tokenNumber:
			f, err := strconv.ParseFloat(tok.text, 64)
			if err == nil {
				return asn1rt.Real(f), nil
			}
		}
	case asn1rt.KindBitString:
		var b asn1rt.BitString
		switch tok.kind {
		case tokenBits:
			var ok bool
			if b, ok = asn1rt.ParseBits(tok.text); !ok {
				return nil, invalid(d, tok)
			}
		case tokenHex:
			bs, ok := parseHex(tok.text)
			if !ok {
				return nil, invalid(d, tok)
			}
			b = asn1rt.BitString{Bytes: bs, BitLength: 4 * len(tok.text)}
		default:
			return nil, invalid(d, tok)
		}
		if err := asn1rt.CheckSize(d, b.BitLength); err != nil {
			return nil, err
		}
		var err error
		if b.Bytes, err = dec.arena.Copy(b.Bytes); err != nil {
			return nil, err
		}
		return b, nil
	case asn1rt.KindOctetString:
		if tok.kind != tokenHex || len(tok.text)%2 != 0 {
			break
		}
		bs, ok := parseHex(tok.text)
		if !ok {
			break
		}
		if err := asn1rt.CheckSize(d, len(bs)); err != nil {
			return nil, err
		}
		bs, err := dec.arena.Copy(bs)
		if err != nil {
			return nil, err
		}
		return asn1rt.OctetString(bs), nil
	case asn1rt.KindCharacterString:
		if tok.kind != tokenString {
			break
		}
		if err := asn1rt.CheckString(d, tok.text); err != nil {
			return nil, err
		}
		return asn1rt.CharString(tok.text), nil
	default:
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot decode %s", d.Label(), d.Kind)
	}
	return nil, invalid(d, tok)
}

// parseHex decodes hexadecimal digits. An odd number of digits is padded with
// a zero nibble.
func parseHex(s string) ([]byte, bool) {
	if len(s)%2 != 0 {
		s += "0"
	}
	b, err := hex.DecodeString(s)
	return b, err == nil
}

// arcs reads the arcs of an OBJECT IDENTIFIER or RELATIVE-OID value, either
// braced as in { 1 2 840 } or in dotted notation.
func (dec *decoder) arcs(d *asn1rt.Descriptor) ([]uint, error) {
	tok, err := dec.t.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenOpen {
		if tok, err = dec.t.next(); err != nil {
			return nil, err
		}
		if tok.kind == tokenString && tok.text == "" && d.Kind == asn1rt.KindRelativeOID {
			return []uint{}, nil
		}
		if tok.kind != tokenString && tok.kind != tokenNumber {
			return nil, invalid(d, tok)
		}
		arcs, ok := asn1rt.ParseArcs(tok.text)
		if !ok {
			return nil, invalid(d, tok)
		}
		return arcs, nil
	}
	_, _ = dec.t.next()
	arcs := []uint{}
	for {
		tok, err := dec.t.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenClose:
			return arcs, nil
		case tokenNumber:
			n, err := strconv.ParseUint(tok.text, 10, strconv.IntSize)
			if err != nil {
				return nil, invalid(d, tok)
			}
			arcs = append(arcs, uint(n))
		default:
			return nil, dec.unexpected(tok, "arc or '}'")
		}
	}
}

// record reads the components of a SEQUENCE or SET value. Components may
// appear in any order. Unknown components are skipped if d is extensible.
func (dec *decoder) record(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	rec := asn1rt.Record{Fields: make([]asn1rt.Value, len(d.Fields))}
	frame := stack.Push(d, rec)
	done, err := dec.open()
	for !done && err == nil {
		var name token
		if name, err = dec.expect(tokenIdent); err != nil {
			break
		}
		i := d.FieldIndex(name.text)
		switch {
		case i < 0 && !d.Extensible():
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: unknown component %q", d.Label(), name.text).AtLine(name.line)
		case i < 0:
			_, _, err = dec.skip()
		case rec.Fields[i] != nil:
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: duplicate component %q", d.Label(), name.text).AtLine(name.line)
		default:
			rec.Fields[i], err = dec.decode(d.Fields[i].Type, frame)
		}
		if err == nil {
			done, err = dec.separator()
		}
	}
	if err != nil {
		return nil, err
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

// list reads the elements of a SEQUENCE OF or SET OF value.
func (dec *decoder) list(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	l := asn1rt.List{}
	done, err := dec.open()
	for !done && err == nil {
		var v asn1rt.Value
		if v, err = dec.decode(d.Elem, stack); err == nil {
			l = append(l, v)
			done, err = dec.separator()
		}
	}
	if err != nil {
		return nil, err
	}
	if err = asn1rt.CheckSize(d, len(l)); err != nil {
		return nil, err
	}
	return l, nil
}

// choice reads a value of the form identifier:value.
func (dec *decoder) choice(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	name, err := dec.expect(tokenIdent)
	if err != nil {
		return nil, err
	}
	i := d.FieldIndex(name.text)
	if i < 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown alternative %q", d.Label(), name.text).AtLine(name.line)
	}
	if _, err = dec.expect(tokenColon); err != nil {
		return nil, err
	}
	v, err := dec.decode(d.Fields[i].Type, stack)
	if err != nil {
		return nil, err
	}
	return asn1rt.Choice{Index: i, Value: v}, nil
}

// any reads an ANY value. Values of unresolved types retain their text.
func (dec *decoder) any(d *asn1rt.Descriptor, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	if t, ok := asn1rt.Resolve(d, stack); ok {
		v, err := dec.decode(t, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Open{Type: t, Value: v}, nil
	}
	from, to, err := dec.skip()
	if err != nil {
		return nil, err
	}
	raw, err := dec.arena.Copy(dec.t.s.Slice(from, to))
	if err != nil {
		return nil, err
	}
	return asn1rt.Open{Raw: raw}, nil
}

// skip consumes a value of any type and returns its input offsets.
func (dec *decoder) skip() (from, to int, err error) {
	tok, err := dec.t.next()
	if err != nil {
		return 0, 0, err
	}
	from, to = tok.pos, tok.end
	switch tok.kind {
	case tokenOpen:
		for depth := 1; depth > 0; {
			if tok, err = dec.t.next(); err != nil {
				return 0, 0, err
			}
			switch tok.kind {
			case tokenEOF:
				return 0, 0, dec.unexpected(tok, "'}'")
			case tokenOpen:
				if depth++; depth > maxDepth {
					return 0, 0, asn1rt.Errorf(asn1rt.ErrUnsupported, "values nested too deeply").AtLine(tok.line)
				}
			case tokenClose:
				depth--
			}
		}
		to = tok.end
	case tokenIdent:
		next, err := dec.t.peek()
		if err != nil {
			return 0, 0, err
		}
		if next.kind == tokenColon {
			_, _ = dec.t.next()
			if _, to, err = dec.skip(); err != nil {
				return 0, 0, err
			}
		}
	case tokenClose, tokenComma, tokenColon, tokenEOF:
		return 0, 0, dec.unexpected(tok, "value")
	}
	return from, to, nil
}
