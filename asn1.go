// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asn1rt implements a schema-driven runtime for ASN.1 values as defined
// in [Rec. ITU-T X.680]. Instead of mapping ASN.1 types onto Go types, the
// structure of a value is described by an immutable [Descriptor] tree that is
// produced elsewhere, for example by an ASN.1 compiler or by the schema
// package in this module. Values are represented by the [Value] sum type.
//
// Encoding and decoding using different encoding rules is implemented in
// subpackages of this package:
//
//   - ber implements the Basic and Distinguished Encoding Rules (X.690).
//   - oer implements the Octet Encoding Rules (X.696).
//   - per implements the aligned and unaligned Packed Encoding Rules (X.691).
//   - xer implements the basic XML Encoding Rules (X.693).
//   - gser implements the Generic String Encoding Rules (RFC 3641).
//
// All encoding rules walk the same descriptor. A value decoded with one set of
// rules can be encoded with any other set of rules.
//
// # Describing ASN.1 Types
//
// Take the following ASN.1 definition:
//
//	Point ::= SEQUENCE {
//		x    INTEGER (0..255),
//		y    INTEGER (0..255) OPTIONAL,
//		...,
//		name [0] UTF8String
//	}
//
// The corresponding descriptor is
//
//	var Point = &asn1rt.Descriptor{
//		Name:  "Point",
//		Kind:  asn1rt.KindSequence,
//		Flags: asn1rt.FlagExtensible,
//		Fields: []asn1rt.Field{
//			{Name: "x", Type: byte},
//			{Name: "y", Type: byte, Presence: asn1rt.PresenceOptional},
//			{Name: "name", Type: name, Extension: true},
//		},
//	}
//
// where byte is an INTEGER descriptor with FlagHasLower and FlagHasUpper set
// and name is a CharacterString descriptor with a context-specific tag.
// Descriptors are never modified by this package and may be shared between
// goroutines.
//
// [Rec. ITU-T X.680]: https://www.itu.int/rec/T-REC-X.680
package asn1rt

import (
	"strconv"
	"strings"
)

// Tag constitutes an ASN.1 tag, consisting of its class and number. For
// details, see Section 8 of Rec. ITU-T X.680. The zero Tag is reserved and is
// used by descriptors to indicate the absence of a tag.
type Tag struct {
	Class  Class
	Number uint
}

// IsZero reports whether t is the reserved zero tag.
func (t Tag) IsZero() bool {
	return t == Tag{}
}

// Less reports whether t sorts before u in the canonical tag order defined in
// Section 8.6 of Rec. ITU-T X.680: universal, application, context-specific,
// private, and by number within each class.
func (t Tag) Less(u Tag) bool {
	if t.Class != u.Class {
		return t.Class < u.Class
	}
	return t.Number < u.Number
}

// Class holds the class part of an ASN.1 tag. The class acts as a namespace for
// the tag number. A Class value is an unsigned 2-bit integer. Class values
// whose value exceeds 2 bits are invalid.
//
//go:generate stringer -type=Class -trimprefix=Class
type Class uint8

// IsValid reports whether c is a valid Class value.
func (c Class) IsValid() bool {
	return c <= 3
}

// Predefined [Class] constants. These are all the possible values that can be
// encoded in the [Class] type.
const (
	ClassUniversal Class = iota
	ClassApplication
	ClassContextSpecific
	ClassPrivate
)

// String returns a string representation t in a format similar to the one used
// in ASN.1 notation. The tag number is enclosed by square brackets and prefixed
// with the class used. To avoid ambiguity the UNIVERSAL word is used for
// universal tags, although this is not valid ASN.1 syntax.
func (t Tag) String() string {
	if t.Number == TagNumberTooLarge {
		return "[" + strings.ToUpper(t.Class.String()) + " too large]"
	}
	if t.Class == ClassContextSpecific {
		return "[" + strconv.FormatUint(uint64(t.Number), 10) + "]"
	}
	return "[" + strings.ToUpper(t.Class.String()) + " " + strconv.FormatUint(uint64(t.Number), 10) + "]"
}

// TagNumberTooLarge is the tag number reported by decoders for tags whose
// number does not fit into four base-128 continuation octets. Such a tag never
// matches a descriptor.
const TagNumberTooLarge = ^uint(0)

// These are the ASN.1 tag numbers in the [ClassUniversal] namespace used by
// this package. These assignments are defined in Rec. ITU-T X.680, Section 8,
// Table 1.
const (
	TagBoolean         uint = 1
	TagInteger         uint = 2
	TagBitString       uint = 3
	TagOctetString     uint = 4
	TagNull            uint = 5
	TagOID             uint = 6
	TagReal            uint = 9
	TagEnumerated      uint = 10
	TagUTF8String      uint = 12
	TagRelativeOID     uint = 13
	TagSequence        uint = 16
	TagSet             uint = 17
	TagNumericString   uint = 18
	TagPrintableString uint = 19
	TagIA5String       uint = 22
	TagVisibleString   uint = 26
	TagUniversalString uint = 28
	TagBMPString       uint = 30
)

// universal returns the universal tag with number n.
func universal(n uint) Tag {
	return Tag{ClassUniversal, n}
}
