// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"fmt"
	"math/big"
)

// Kind identifies the ASN.1 type described by a [Descriptor].
//
//go:generate stringer -type=Kind -trimprefix=Kind
type Kind uint8

// Supported descriptor kinds.
const (
	KindInvalid Kind = iota
	KindSequence
	KindSet
	KindSequenceOf
	KindSetOf
	KindChoice
	KindEnumerated
	KindBoolean
	KindInteger
	KindNull
	KindOctetString
	KindBitString
	KindTagged
	KindObjectIdentifier
	KindRelativeOID
	KindReal
	KindCharacterString
	KindAny
)

// Flags modify the interpretation of a [Descriptor].
type Flags uint16

const (
	// FlagExtensible marks a SEQUENCE, SET, CHOICE or ENUMERATED type as
	// carrying an extension marker. On INTEGER, string and SEQUENCE OF types it
	// marks the value or size constraint as extensible.
	FlagExtensible Flags = 1 << iota
	// FlagLargeInteger indicates that decoders produce [BigInt] values.
	FlagLargeInteger
	// FlagExplicitTag selects EXPLICIT tagging for the Tag of the descriptor.
	FlagExplicitTag
	// FlagHasLower indicates that Lower is a valid bound.
	FlagHasLower
	// FlagHasUpper indicates that Upper is a valid bound.
	FlagHasUpper
)

// Presence of a component within a SEQUENCE or SET.
//
//go:generate stringer -type=Presence -trimprefix=Presence
type Presence uint8

const (
	PresenceMandatory Presence = iota
	PresenceOptional
	PresenceDefault
)

// Alphabet selects the restricted character string type of a
// [KindCharacterString] descriptor.
//
//go:generate stringer -type=Alphabet -trimprefix=Alphabet
type Alphabet uint8

const (
	AlphabetUTF8 Alphabet = iota
	AlphabetIA5
	AlphabetPrintable
	AlphabetNumeric
	AlphabetVisible
	AlphabetBMP
	AlphabetUniversal
)

// A Descriptor describes an ASN.1 type. Descriptors form a tree (or a graph for
// recursive types) that is read-only for the codecs in this module.
type Descriptor struct {
	// Name of the type. Used as the element name in XER and as a diagnostic
	// label in errors.
	Name string
	Kind Kind
	// Tag is the tag applied to the type. The zero Tag indicates that the type
	// uses its intrinsic tag. The tag is IMPLICIT unless FlagExplicitTag is set.
	// Tags on CHOICE and ANY types are always EXPLICIT.
	Tag   Tag
	Flags Flags

	// Lower and Upper are the value bounds of an INTEGER type and the size
	// bounds of string and SEQUENCE OF types. They are only valid if the
	// corresponding flag is set.
	Lower, Upper int64
	// BigLower and BigUpper are value bounds of INTEGER types that do not fit
	// into an int64. They are consulted when the corresponding flag is unset.
	BigLower, BigUpper *big.Int

	Alphabet Alphabet
	// Fields are the components of a SEQUENCE or SET or the alternatives of a
	// CHOICE, in declaration order.
	Fields []Field
	// Items are the named values of an ENUMERATED type.
	Items []EnumItem
	// Elem is the element type of a SEQUENCE OF or SET OF type and the inner
	// type of a Tagged type.
	Elem *Descriptor
	// Open defines how the concrete type of an ANY value is selected.
	Open *OpenType
}

// A Field is a component of a SEQUENCE or SET or an alternative of a CHOICE.
type Field struct {
	Name     string
	Type     *Descriptor
	Presence Presence
	// Default is the value of a field with PresenceDefault.
	Default Value
	// Extension indicates that the field was declared after the extension
	// marker.
	Extension bool
	// Group is non-zero for members of an extension addition group. Members of
	// a group share the same number.
	Group int
}

// Optional reports whether f may be absent from an encoding.
func (f *Field) Optional() bool {
	return f.Presence != PresenceMandatory
}

// An EnumItem is a named value of an ENUMERATED type.
type EnumItem struct {
	Name      string
	Value     int64
	Extension bool
}

// OpenType describes a table constraint. The concrete type of an ANY value is
// selected by the value of the component named Selector in an enclosing
// SEQUENCE or SET.
type OpenType struct {
	Selector string
	Table    []OpenTypeEntry
}

// OpenTypeEntry maps a selector value to a type.
type OpenTypeEntry struct {
	Key  Value
	Type *Descriptor
}

// Extensible reports whether the extension marker or extensible constraint
// flag is set on d.
func (d *Descriptor) Extensible() bool {
	return d.Flags&FlagExtensible != 0
}

// Underlying strips Tagged wrappers from d. Encoding rules that do not encode
// tags use the resulting descriptor.
func (d *Descriptor) Underlying() *Descriptor {
	for d.Kind == KindTagged {
		d = d.Elem
	}
	return d
}

// Label returns a name for d suitable for error messages.
func (d *Descriptor) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Kind.String()
}

// RootFields returns the number of fields that precede the extension marker.
func (d *Descriptor) RootFields() int {
	for i := range d.Fields {
		if d.Fields[i].Extension {
			return i
		}
	}
	return len(d.Fields)
}

// Additions groups the extension fields of d into extension additions. Each
// entry holds the indexes of the fields forming one addition: a single field
// or all members of an extension addition group.
func (d *Descriptor) Additions() [][]int {
	var adds [][]int
	for i := d.RootFields(); i < len(d.Fields); i++ {
		g := d.Fields[i].Group
		if g != 0 && len(adds) > 0 {
			last := adds[len(adds)-1]
			if d.Fields[last[0]].Group == g {
				adds[len(adds)-1] = append(last, i)
				continue
			}
		}
		adds = append(adds, []int{i})
	}
	return adds
}

// FixedSize returns the size of a string or SEQUENCE OF type whose size
// constraint admits a single value and has no extension marker.
func (d *Descriptor) FixedSize() (int, bool) {
	b := BoundsOf(d)
	if d.Extensible() || !b.Fixed() {
		return 0, false
	}
	return int(b.Lower), true
}

// Validate checks the structural invariants of d and all descriptors reachable
// from it. Extension fields must follow all root fields, members of an
// extension addition group must be contiguous and every reference must be
// non-nil.
func (d *Descriptor) Validate() error {
	return d.validate(make(map[*Descriptor]bool))
}

func (d *Descriptor) validate(seen map[*Descriptor]bool) error {
	if d == nil {
		return Errorf(ErrUnsupported, "nil descriptor")
	}
	if seen[d] {
		return nil
	}
	seen[d] = true
	switch d.Kind {
	case KindSequence, KindSet, KindChoice:
		ext := false
		groups := make(map[int]bool)
		last := 0
		for i := range d.Fields {
			f := &d.Fields[i]
			if f.Type == nil {
				return Errorf(ErrUnsupported, "%s: field %q has no type", d.Label(), f.Name)
			}
			if f.Extension {
				ext = true
			} else if ext {
				return Errorf(ErrUnsupported, "%s: root field %q follows extension fields", d.Label(), f.Name)
			}
			if f.Group != 0 {
				if !f.Extension {
					return Errorf(ErrUnsupported, "%s: group member %q is not an extension", d.Label(), f.Name)
				}
				if d.Kind == KindChoice {
					return Errorf(ErrUnsupported, "%s: alternative %q in extension group", d.Label(), f.Name)
				}
				if f.Group != last && groups[f.Group] {
					return Errorf(ErrUnsupported, "%s: extension group %d is not contiguous", d.Label(), f.Group)
				}
				groups[f.Group] = true
			}
			last = f.Group
			if f.Presence == PresenceDefault && f.Default == nil {
				return Errorf(ErrUnsupported, "%s: field %q has no default value", d.Label(), f.Name)
			}
			if d.Kind == KindChoice && f.Presence != PresenceMandatory {
				return Errorf(ErrUnsupported, "%s: alternative %q is optional", d.Label(), f.Name)
			}
			if err := f.Type.validate(seen); err != nil {
				return err
			}
		}
		if ext && !d.Extensible() {
			return Errorf(ErrUnsupported, "%s: extension fields without extension marker", d.Label())
		}
		if d.Kind == KindChoice && len(d.Fields) == 0 {
			return Errorf(ErrUnsupported, "%s: choice without alternatives", d.Label())
		}
	case KindSequenceOf, KindSetOf:
		if d.Elem == nil {
			return Errorf(ErrUnsupported, "%s: missing element type", d.Label())
		}
		return d.Elem.validate(seen)
	case KindTagged:
		if d.Tag.IsZero() {
			return Errorf(ErrUnsupported, "%s: tagged type without tag", d.Label())
		}
		if d.Elem == nil {
			return Errorf(ErrUnsupported, "%s: missing inner type", d.Label())
		}
		return d.Elem.validate(seen)
	case KindEnumerated:
		if len(d.Items) == 0 {
			return Errorf(ErrUnsupported, "%s: enumeration without items", d.Label())
		}
		ext := false
		for _, it := range d.Items {
			if it.Extension {
				ext = true
			} else if ext {
				return Errorf(ErrUnsupported, "%s: root item %q follows extension items", d.Label(), it.Name)
			}
		}
	case KindAny:
		if d.Open != nil {
			for _, e := range d.Open.Table {
				if e.Type == nil || e.Key == nil {
					return Errorf(ErrUnsupported, "%s: incomplete open type entry", d.Label())
				}
				if err := e.Type.validate(seen); err != nil {
					return err
				}
			}
		}
	case KindInvalid:
		return Errorf(ErrUnsupported, "%s: invalid kind", d.Label())
	case KindBoolean, KindInteger, KindNull, KindOctetString, KindBitString,
		KindObjectIdentifier, KindRelativeOID, KindReal, KindCharacterString:
	default:
		return Errorf(ErrUnsupported, "%s: unknown kind %d", d.Label(), d.Kind)
	}
	if d.Flags&FlagHasLower != 0 && d.Flags&FlagHasUpper != 0 && d.Lower > d.Upper {
		return Errorf(ErrUnsupported, "%s: lower bound %d exceeds upper bound %d", d.Label(), d.Lower, d.Upper)
	}
	return nil
}

// FieldIndex returns the index of the field with the given name or -1.
func (d *Descriptor) FieldIndex(name string) int {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// ItemByName returns the enumeration item with the given name.
func (d *Descriptor) ItemByName(name string) (EnumItem, bool) {
	for _, it := range d.Items {
		if it.Name == name {
			return it, true
		}
	}
	return EnumItem{}, false
}

// ItemByValue returns the enumeration item with the given value.
func (d *Descriptor) ItemByValue(v int64) (EnumItem, bool) {
	for _, it := range d.Items {
		if it.Value == v {
			return it, true
		}
	}
	return EnumItem{}, false
}

// String returns a short description of d.
func (d *Descriptor) String() string {
	if d.Name == "" {
		return d.Kind.String()
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Kind)
}
