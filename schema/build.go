// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"codello.dev/asn1rt"
)

// builtins maps the names of builtin types to their kind and alphabet.
var builtins = map[string]struct {
	kind     asn1rt.Kind
	alphabet asn1rt.Alphabet
}{
	"BOOLEAN":           {kind: asn1rt.KindBoolean},
	"INTEGER":           {kind: asn1rt.KindInteger},
	"NULL":              {kind: asn1rt.KindNull},
	"REAL":              {kind: asn1rt.KindReal},
	"ENUMERATED":        {kind: asn1rt.KindEnumerated},
	"OCTET STRING":      {kind: asn1rt.KindOctetString},
	"BIT STRING":        {kind: asn1rt.KindBitString},
	"OBJECT IDENTIFIER": {kind: asn1rt.KindObjectIdentifier},
	"RELATIVE-OID":      {kind: asn1rt.KindRelativeOID},
	"ANY":               {kind: asn1rt.KindAny},
	"UTF8String":        {kind: asn1rt.KindCharacterString, alphabet: asn1rt.AlphabetUTF8},
	"IA5String":         {kind: asn1rt.KindCharacterString, alphabet: asn1rt.AlphabetIA5},
	"PrintableString":   {kind: asn1rt.KindCharacterString, alphabet: asn1rt.AlphabetPrintable},
	"NumericString":     {kind: asn1rt.KindCharacterString, alphabet: asn1rt.AlphabetNumeric},
	"VisibleString":     {kind: asn1rt.KindCharacterString, alphabet: asn1rt.AlphabetVisible},
	"BMPString":         {kind: asn1rt.KindCharacterString, alphabet: asn1rt.AlphabetBMP},
	"UniversalString":   {kind: asn1rt.KindCharacterString, alphabet: asn1rt.AlphabetUniversal},
}

// structured maps the kinds that are only valid in type definitions.
var structured = map[string]asn1rt.Kind{
	"SEQUENCE":    asn1rt.KindSequence,
	"SET":         asn1rt.KindSet,
	"SEQUENCE OF": asn1rt.KindSequenceOf,
	"SET OF":      asn1rt.KindSetOf,
	"CHOICE":      asn1rt.KindChoice,
	"TAGGED":      asn1rt.KindTagged,
}

type builder struct {
	schema *Schema
	meta   toml.MetaData
	// open holds the unconverted table entries of ANY types. Keys are
	// converted once the selector types are known.
	open map[*asn1rt.Descriptor][]entryConfig
	// defaults are converted after all types are defined.
	defaults []pendingDefault
}

type pendingDefault struct {
	owner string
	field *asn1rt.Field
	value any
}

// resolve returns the named type. Builtin types are created on first use.
func (b *builder) resolve(name string) (*asn1rt.Descriptor, error) {
	if name == "" {
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "missing type name")
	}
	if d, ok := b.schema.types[name]; ok {
		return d, nil
	}
	bt, ok := builtins[name]
	if !ok {
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "undefined type %q", name)
	}
	d := &asn1rt.Descriptor{Kind: bt.kind, Alphabet: bt.alphabet}
	b.schema.types[name] = d
	return d, nil
}

// define fills the descriptor allocated for name from its configuration.
func (b *builder) define(name string, cfg typeConfig) error {
	d := b.schema.types[name]
	if bt, ok := builtins[cfg.Kind]; ok {
		d.Kind, d.Alphabet = bt.kind, bt.alphabet
	} else if k, ok := structured[cfg.Kind]; ok {
		d.Kind = k
	} else {
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "unknown kind %q", cfg.Kind)
	}
	if cfg.Tag != "" {
		t, err := ParseTag(cfg.Tag)
		if err != nil {
			return err
		}
		d.Tag = t
	}
	if cfg.Explicit {
		d.Flags |= asn1rt.FlagExplicitTag
	}
	if cfg.Extensible {
		d.Flags |= asn1rt.FlagExtensible
	}
	if cfg.Large {
		d.Flags |= asn1rt.FlagLargeInteger
	}
	if b.meta.IsDefined("types", name, "lower") {
		d.Lower = cfg.Lower
		d.Flags |= asn1rt.FlagHasLower
	}
	if b.meta.IsDefined("types", name, "upper") {
		d.Upper = cfg.Upper
		d.Flags |= asn1rt.FlagHasUpper
	}
	var err error
	if d.BigLower, err = parseBig("big_lower", cfg.BigLower); err != nil {
		return err
	}
	if d.BigUpper, err = parseBig("big_upper", cfg.BigUpper); err != nil {
		return err
	}

	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet, asn1rt.KindChoice:
		d.Fields = make([]asn1rt.Field, len(cfg.Fields))
		for i, fc := range cfg.Fields {
			if err = b.field(name, &d.Fields[i], fc); err != nil {
				return fmt.Errorf("field %s: %w", fc.Name, err)
			}
		}
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf, asn1rt.KindTagged:
		if d.Elem, err = b.resolve(cfg.Elem); err != nil {
			return fmt.Errorf("elem: %w", err)
		}
	case asn1rt.KindEnumerated:
		next := int64(0)
		d.Items = make([]asn1rt.EnumItem, len(cfg.Items))
		for i, it := range cfg.Items {
			if it.Name == "" {
				return asn1rt.Errorf(asn1rt.ErrUnsupported, "item %d has no name", i)
			}
			if it.Value != nil {
				next = *it.Value
			}
			d.Items[i] = asn1rt.EnumItem{Name: it.Name, Value: next, Extension: it.Extension}
			next++
		}
	case asn1rt.KindAny:
		if cfg.Open != nil {
			d.Open = &asn1rt.OpenType{Selector: cfg.Open.Selector, Table: make([]asn1rt.OpenTypeEntry, len(cfg.Open.Table))}
			for i, e := range cfg.Open.Table {
				if d.Open.Table[i].Type, err = b.resolve(e.Type); err != nil {
					return fmt.Errorf("open type table: %w", err)
				}
			}
			b.open[d] = cfg.Open.Table
		}
	}
	if len(cfg.Fields) > 0 && d.Fields == nil {
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "%s cannot have fields", cfg.Kind)
	}
	if len(cfg.Items) > 0 && d.Items == nil {
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "%s cannot have items", cfg.Kind)
	}
	if cfg.Open != nil && d.Open == nil {
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "%s cannot have a table constraint", cfg.Kind)
	}
	return nil
}

func (b *builder) field(owner string, f *asn1rt.Field, cfg fieldConfig) error {
	if cfg.Name == "" {
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "missing field name")
	}
	t, err := b.resolve(cfg.Type)
	if err != nil {
		return err
	}
	if cfg.Tag != "" {
		tag, err := ParseTag(cfg.Tag)
		if err != nil {
			return err
		}
		t = &asn1rt.Descriptor{Kind: asn1rt.KindTagged, Tag: tag, Elem: t}
		if cfg.Explicit {
			t.Flags |= asn1rt.FlagExplicitTag
		}
	} else if cfg.Explicit {
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "explicit without tag")
	}
	*f = asn1rt.Field{Name: cfg.Name, Type: t, Extension: cfg.Extension, Group: cfg.Group}
	switch {
	case cfg.Default != nil && cfg.Optional:
		return asn1rt.Errorf(asn1rt.ErrUnsupported, "field is both OPTIONAL and DEFAULT")
	case cfg.Default != nil:
		f.Presence = asn1rt.PresenceDefault
		b.defaults = append(b.defaults, pendingDefault{owner: owner, field: f, value: cfg.Default})
	case cfg.Optional:
		f.Presence = asn1rt.PresenceOptional
	}
	return nil
}

// finish converts the literal values of all types.
func (b *builder) finish() error {
	for _, p := range b.defaults {
		v, err := Value(p.field.Type, p.value)
		if err != nil {
			return fmt.Errorf("type %s: field %s: default: %w", p.owner, p.field.Name, err)
		}
		p.field.Default = v
	}
	// Table keys take the type of the selector component in the enclosing
	// record.
	for _, name := range b.schema.Names() {
		d := b.schema.types[name]
		if d.Kind != asn1rt.KindSequence && d.Kind != asn1rt.KindSet {
			continue
		}
		for _, f := range d.Fields {
			t := f.Type.Underlying()
			entries, ok := b.open[t]
			if !ok {
				continue
			}
			i := d.FieldIndex(t.Open.Selector)
			if i < 0 {
				continue
			}
			if err := b.keys(t, d.Fields[i].Type, entries); err != nil {
				return fmt.Errorf("type %s: field %s: %w", name, f.Name, err)
			}
			delete(b.open, t)
		}
	}
	for t, entries := range b.open {
		if err := b.keys(t, nil, entries); err != nil {
			return fmt.Errorf("type %s: %w", t.Label(), err)
		}
	}
	return nil
}

// keys converts the keys of an open type table. If sel is nil, integers are
// used as INTEGER values and strings as OBJECT IDENTIFIER values.
func (b *builder) keys(t *asn1rt.Descriptor, sel *asn1rt.Descriptor, entries []entryConfig) error {
	for i, e := range entries {
		var err error
		var v asn1rt.Value
		switch {
		case sel != nil:
			v, err = Value(sel, e.Key)
		default:
			v, err = Value(genericKey(e.Key), e.Key)
		}
		if err != nil {
			return fmt.Errorf("open type table key %v: %w", e.Key, err)
		}
		t.Open.Table[i].Key = v
	}
	return nil
}

var (
	integerKey = &asn1rt.Descriptor{Kind: asn1rt.KindInteger}
	oidKey     = &asn1rt.Descriptor{Kind: asn1rt.KindObjectIdentifier}
)

func genericKey(x any) *asn1rt.Descriptor {
	if _, ok := x.(string); ok {
		return oidKey
	}
	return integerKey
}

func parseBig(key, s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "invalid %s %q", key, s)
	}
	return x, nil
}

// ParseTag parses a tag in ASN.1 notation. Tags without a class are
// context-specific. The UNIVERSAL class is accepted as well.
func ParseTag(s string) (asn1rt.Tag, error) {
	inner, ok1 := strings.CutPrefix(strings.TrimSpace(s), "[")
	inner, ok2 := strings.CutSuffix(inner, "]")
	if !ok1 || !ok2 {
		return asn1rt.Tag{}, asn1rt.Errorf(asn1rt.ErrUnsupported, "invalid tag %q", s)
	}
	t := asn1rt.Tag{Class: asn1rt.ClassContextSpecific}
	parts := strings.Fields(inner)
	switch len(parts) {
	case 1:
	case 2:
		switch parts[0] {
		case "UNIVERSAL":
			t.Class = asn1rt.ClassUniversal
		case "APPLICATION":
			t.Class = asn1rt.ClassApplication
		case "PRIVATE":
			t.Class = asn1rt.ClassPrivate
		default:
			return asn1rt.Tag{}, asn1rt.Errorf(asn1rt.ErrUnsupported, "invalid tag class in %q", s)
		}
		parts = parts[1:]
	default:
		return asn1rt.Tag{}, asn1rt.Errorf(asn1rt.ErrUnsupported, "invalid tag %q", s)
	}
	n, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return asn1rt.Tag{}, asn1rt.Errorf(asn1rt.ErrUnsupported, "invalid tag number in %q", s)
	}
	t.Number = uint(n)
	return t, nil
}
