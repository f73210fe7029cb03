// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"slices"
)

// UniversalTag returns the intrinsic tag of a descriptor kind. CHOICE, ANY and
// Tagged types have no intrinsic tag.
func UniversalTag(d *Descriptor) (Tag, bool) {
	switch d.Kind {
	case KindBoolean:
		return universal(TagBoolean), true
	case KindInteger:
		return universal(TagInteger), true
	case KindBitString:
		return universal(TagBitString), true
	case KindOctetString:
		return universal(TagOctetString), true
	case KindNull:
		return universal(TagNull), true
	case KindObjectIdentifier:
		return universal(TagOID), true
	case KindReal:
		return universal(TagReal), true
	case KindEnumerated:
		return universal(TagEnumerated), true
	case KindRelativeOID:
		return universal(TagRelativeOID), true
	case KindSequence, KindSequenceOf:
		return universal(TagSequence), true
	case KindSet, KindSetOf:
		return universal(TagSet), true
	case KindCharacterString:
		switch d.Alphabet {
		case AlphabetIA5:
			return universal(TagIA5String), true
		case AlphabetPrintable:
			return universal(TagPrintableString), true
		case AlphabetNumeric:
			return universal(TagNumericString), true
		case AlphabetVisible:
			return universal(TagVisibleString), true
		case AlphabetBMP:
			return universal(TagBMPString), true
		case AlphabetUniversal:
			return universal(TagUniversalString), true
		default:
			return universal(TagUTF8String), true
		}
	}
	return Tag{}, false
}

// A TagPlan describes the tags that appear on the wire for a type in
// tag-based encoding rules.
type TagPlan struct {
	// Explicit holds the tags of constructed wrappers, outermost first.
	Explicit []Tag
	// Tag is the tag of the element holding the contents of Base. It is only
	// valid if Tagged is true. Untagged CHOICE and ANY types have no tag of
	// their own.
	Tag    Tag
	Tagged bool
	// Base is d with all Tagged layers removed.
	Base *Descriptor
}

// Outer returns the first tag that appears on the wire for the plan.
func (p TagPlan) Outer() (Tag, bool) {
	if len(p.Explicit) > 0 {
		return p.Explicit[0], true
	}
	return p.Tag, p.Tagged
}

// PlanTags resolves the tagging of d. An IMPLICIT tag replaces the next tag
// that would appear on the wire. Tags on CHOICE and ANY types are EXPLICIT
// regardless of FlagExplicitTag.
func PlanTags(d *Descriptor) TagPlan {
	var p TagPlan
	var pending Tag
	for {
		if !d.Tag.IsZero() {
			cur := d.Tag
			if !pending.IsZero() {
				cur = pending
			}
			explicit := d.Flags&FlagExplicitTag != 0 || d.Kind == KindChoice || d.Kind == KindAny
			if d.Kind == KindTagged && untaggedOpen(d.Elem) {
				explicit = true
			}
			if explicit {
				p.Explicit = append(p.Explicit, cur)
				pending = Tag{}
			} else {
				pending = cur
			}
		}
		if d.Kind != KindTagged {
			break
		}
		d = d.Elem
	}
	p.Base = d
	switch {
	case !pending.IsZero():
		p.Tag, p.Tagged = pending, true
	default:
		p.Tag, p.Tagged = UniversalTag(d)
	}
	return p
}

// untaggedOpen reports whether the first element of d on the wire is
// determined by its value rather than its type.
func untaggedOpen(d *Descriptor) bool {
	for d.Tag.IsZero() {
		switch d.Kind {
		case KindChoice, KindAny:
			return true
		case KindTagged:
			d = d.Elem
		default:
			return false
		}
	}
	return false
}

// Matches reports whether an element with the given tag can be the encoding
// of a value of type d. Untagged CHOICE types match the tags of their
// alternatives; untagged ANY types match every tag.
func Matches(d *Descriptor, tag Tag) bool {
	return matches(d, tag, 0)
}

func matches(d *Descriptor, tag Tag, depth int) bool {
	if tag.Number == TagNumberTooLarge || depth > maxTagSearch {
		return false
	}
	p := PlanTags(d)
	if t, ok := p.Outer(); ok {
		return t == tag
	}
	if p.Base.Kind == KindAny {
		return true
	}
	for i := range p.Base.Fields {
		if matches(p.Base.Fields[i].Type, tag, depth+1) {
			return true
		}
	}
	return false
}

// maxTagSearch bounds the recursion through directly nested untagged CHOICE
// types.
const maxTagSearch = 64

// Alternative returns the index of the first alternative of the CHOICE type d
// whose encoding may start with tag, or -1.
func Alternative(d *Descriptor, tag Tag) int {
	for i := range d.Fields {
		if Matches(d.Fields[i].Type, tag) {
			return i
		}
	}
	return -1
}

// OuterTag returns the first tag of the encoding of type d. If d is an untagged
// CHOICE, the tag depends on the chosen alternative and OuterTag reports false.
func OuterTag(d *Descriptor) (Tag, bool) {
	return PlanTags(d).Outer()
}

// CanonicalOrder returns the indexes of the root fields of d sorted by their
// outer tag, followed by the extension fields in declaration order. Untagged
// CHOICE fields sort by the smallest tag of their alternatives.
func CanonicalOrder(d *Descriptor) []int {
	root := d.RootFields()
	order := make([]int, len(d.Fields))
	keys := make([]Tag, len(d.Fields))
	for i := range order {
		order[i] = i
		if i < root {
			keys[i] = smallestTag(d.Fields[i].Type, 0)
		}
	}
	slices.SortStableFunc(order[:root], func(a, b int) int {
		switch {
		case keys[a].Less(keys[b]):
			return -1
		case keys[b].Less(keys[a]):
			return 1
		}
		return 0
	})
	return order
}

func smallestTag(d *Descriptor, depth int) Tag {
	if t, ok := OuterTag(d); ok || depth > maxTagSearch {
		return t
	}
	base := d.Underlying()
	var min Tag
	found := false
	for i := range base.Fields {
		t := smallestTag(base.Fields[i].Type, depth+1)
		if !found || t.Less(min) {
			min, found = t, true
		}
	}
	return min
}
