// Package asn1test provides descriptors and values shared by the tests of the
// encoding rule packages.
package asn1test

import (
	"math/big"

	"codello.dev/asn1rt"
)

func ctx(n uint) asn1rt.Tag {
	return asn1rt.Tag{Class: asn1rt.ClassContextSpecific, Number: n}
}

// Integer returns an INTEGER descriptor with the given bounds.
func Integer(lower, upper int64) *asn1rt.Descriptor {
	return &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Flags: asn1rt.FlagHasLower | asn1rt.FlagHasUpper, Lower: lower, Upper: upper}
}

// Sized returns a descriptor of kind k with a size constraint.
func Sized(k asn1rt.Kind, lower, upper int64) *asn1rt.Descriptor {
	return &asn1rt.Descriptor{Kind: k, Flags: asn1rt.FlagHasLower | asn1rt.FlagHasUpper, Lower: lower, Upper: upper}
}

// String returns a character string descriptor with the alphabet a.
func String(a asn1rt.Alphabet) *asn1rt.Descriptor {
	return &asn1rt.Descriptor{Kind: asn1rt.KindCharacterString, Alphabet: a}
}

var (
	Bool     = &asn1rt.Descriptor{Kind: asn1rt.KindBoolean}
	Int      = &asn1rt.Descriptor{Kind: asn1rt.KindInteger}
	Unsigned = &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Flags: asn1rt.FlagHasLower}
	Byte     = Integer(0, 255)
	Null     = &asn1rt.Descriptor{Kind: asn1rt.KindNull}
	Real     = &asn1rt.Descriptor{Kind: asn1rt.KindReal}
	Octets   = &asn1rt.Descriptor{Kind: asn1rt.KindOctetString}
	Bits     = &asn1rt.Descriptor{Kind: asn1rt.KindBitString}
	OID      = &asn1rt.Descriptor{Kind: asn1rt.KindObjectIdentifier}
	RelOID   = &asn1rt.Descriptor{Kind: asn1rt.KindRelativeOID}
	UTF8     = String(asn1rt.AlphabetUTF8)
	IA5      = String(asn1rt.AlphabetIA5)
	// Large is an INTEGER whose values are decoded as BigInt.
	Large = &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Flags: asn1rt.FlagLargeInteger}
)

// X is SEQUENCE { x INTEGER }.
var X = &asn1rt.Descriptor{
	Name:   "X",
	Kind:   asn1rt.KindSequence,
	Fields: []asn1rt.Field{{Name: "x", Type: Int}},
}

// Color is ENUMERATED { red(0), green(1), blue(5), ..., violet(9) }.
var Color = &asn1rt.Descriptor{
	Name:  "Color",
	Kind:  asn1rt.KindEnumerated,
	Flags: asn1rt.FlagExtensible,
	Items: []asn1rt.EnumItem{
		{Name: "red", Value: 0},
		{Name: "green", Value: 1},
		{Name: "blue", Value: 5},
		{Name: "violet", Value: 9, Extension: true},
	},
}

// Shape is CHOICE { count INTEGER, label UTF8String, flag [0] BOOLEAN }.
var Shape = &asn1rt.Descriptor{
	Name: "Shape",
	Kind: asn1rt.KindChoice,
	Fields: []asn1rt.Field{
		{Name: "count", Type: Int},
		{Name: "label", Type: UTF8},
		{Name: "flag", Type: &asn1rt.Descriptor{Kind: asn1rt.KindBoolean, Tag: ctx(0)}},
	},
}

// V1 is SEQUENCE { a INTEGER, ... }.
var V1 = &asn1rt.Descriptor{
	Name:   "Versioned",
	Kind:   asn1rt.KindSequence,
	Flags:  asn1rt.FlagExtensible,
	Fields: []asn1rt.Field{{Name: "a", Type: Int}},
}

// V2 is SEQUENCE { a INTEGER, ..., b [1] BOOLEAN, [[ c [2] INTEGER, d [3] IA5String OPTIONAL ]] }.
var V2 = &asn1rt.Descriptor{
	Name:  "Versioned",
	Kind:  asn1rt.KindSequence,
	Flags: asn1rt.FlagExtensible,
	Fields: []asn1rt.Field{
		{Name: "a", Type: Int},
		{Name: "b", Type: &asn1rt.Descriptor{Kind: asn1rt.KindBoolean, Tag: ctx(1)}, Extension: true},
		{Name: "c", Type: &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: ctx(2)}, Extension: true, Group: 1},
		{Name: "d", Type: &asn1rt.Descriptor{Kind: asn1rt.KindCharacterString, Alphabet: asn1rt.AlphabetIA5, Tag: ctx(3)}, Presence: asn1rt.PresenceOptional, Extension: true, Group: 1},
	},
}

// Message is SEQUENCE { id INTEGER, body ANY DEFINED BY id } with the table
// 1: INTEGER, 2: UTF8String.
var Message = &asn1rt.Descriptor{
	Name: "Message",
	Kind: asn1rt.KindSequence,
	Fields: []asn1rt.Field{
		{Name: "id", Type: Int},
		{Name: "body", Type: &asn1rt.Descriptor{Kind: asn1rt.KindAny, Open: &asn1rt.OpenType{
			Selector: "id",
			Table: []asn1rt.OpenTypeEntry{
				{Key: asn1rt.Int(1), Type: Int},
				{Key: asn1rt.Int(2), Type: UTF8},
			},
		}}},
	},
}

// Node is the recursive type SEQUENCE { value INTEGER, next Node OPTIONAL }.
var Node = &asn1rt.Descriptor{Name: "Node", Kind: asn1rt.KindSequence}

func init() {
	Node.Fields = []asn1rt.Field{
		{Name: "value", Type: Int},
		{Name: "next", Type: &asn1rt.Descriptor{Kind: asn1rt.KindTagged, Tag: ctx(0), Elem: Node}, Presence: asn1rt.PresenceOptional},
	}
}

// Bag is SET { p [0] INTEGER, q [1] BOOLEAN OPTIONAL, r [2] INTEGER DEFAULT 7 }.
var Bag = &asn1rt.Descriptor{
	Name: "Bag",
	Kind: asn1rt.KindSet,
	Fields: []asn1rt.Field{
		{Name: "r", Type: &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: ctx(2)}, Presence: asn1rt.PresenceDefault, Default: asn1rt.Int(7)},
		{Name: "p", Type: &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: ctx(0)}},
		{Name: "q", Type: &asn1rt.Descriptor{Kind: asn1rt.KindBoolean, Tag: ctx(1)}, Presence: asn1rt.PresenceOptional},
	},
}

// Everything is a SEQUENCE with a component of every supported kind.
var Everything = &asn1rt.Descriptor{
	Name:  "Everything",
	Kind:  asn1rt.KindSequence,
	Flags: asn1rt.FlagExtensible,
	Fields: []asn1rt.Field{
		{Name: "flag", Type: Bool},
		{Name: "small", Type: Integer(-5, 1000)},
		{Name: "count", Type: Unsigned},
		{Name: "huge", Type: Large},
		{Name: "color", Type: Color},
		{Name: "nothing", Type: Null},
		{Name: "ratio", Type: Real},
		{Name: "data", Type: Sized(asn1rt.KindOctetString, 0, 8)},
		{Name: "bits", Type: Bits},
		{Name: "fixed", Type: Sized(asn1rt.KindBitString, 12, 12)},
		{Name: "oid", Type: OID},
		{Name: "rel", Type: RelOID},
		{Name: "ascii", Type: IA5},
		{Name: "digits", Type: &asn1rt.Descriptor{Kind: asn1rt.KindCharacterString, Alphabet: asn1rt.AlphabetNumeric, Flags: asn1rt.FlagHasLower | asn1rt.FlagHasUpper, Lower: 1, Upper: 10}},
		{Name: "printable", Type: String(asn1rt.AlphabetPrintable)},
		{Name: "bmp", Type: String(asn1rt.AlphabetBMP)},
		{Name: "universal", Type: String(asn1rt.AlphabetUniversal)},
		{Name: "text", Type: UTF8},
		{Name: "list", Type: &asn1rt.Descriptor{Kind: asn1rt.KindSequenceOf, Elem: Byte, Flags: asn1rt.FlagHasLower | asn1rt.FlagHasUpper, Upper: 4}},
		{Name: "set", Type: &asn1rt.Descriptor{Kind: asn1rt.KindSetOf, Elem: Int}},
		{Name: "shape", Type: Shape},
		{Name: "bag", Type: Bag},
		{Name: "opt", Type: &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: ctx(3), Flags: asn1rt.FlagExplicitTag}, Presence: asn1rt.PresenceOptional},
		{Name: "def", Type: &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: ctx(4)}, Presence: asn1rt.PresenceDefault, Default: asn1rt.Int(7)},
		{Name: "more", Type: &asn1rt.Descriptor{Kind: asn1rt.KindBoolean, Tag: ctx(5)}, Extension: true},
		{Name: "g1", Type: &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Tag: ctx(6)}, Extension: true, Group: 1},
		{Name: "g2", Type: &asn1rt.Descriptor{Kind: asn1rt.KindBoolean, Tag: ctx(7)}, Presence: asn1rt.PresenceOptional, Extension: true, Group: 1},
	},
}

// EverythingValue returns a value of Everything with all fields present.
func EverythingValue() asn1rt.Value {
	huge, _ := new(big.Int).SetString("-123456789012345678901234567890", 10)
	return asn1rt.Record{Fields: []asn1rt.Value{
		asn1rt.Bool(true),
		asn1rt.Int(-5),
		asn1rt.Int(1 << 40),
		asn1rt.BigInt{Int: huge},
		asn1rt.Enumerated(5),
		asn1rt.Null{},
		asn1rt.Real(-2.5),
		asn1rt.OctetString{0xDE, 0xAD, 0xBE, 0xEF},
		asn1rt.BitString{Bytes: []byte{0xAA, 0x80}, BitLength: 9},
		asn1rt.BitString{Bytes: []byte{0xF0, 0xF0}, BitLength: 12},
		asn1rt.ObjectIdentifier{1, 2, 840, 113549},
		asn1rt.RelativeOID{8571, 3, 2},
		asn1rt.CharString("hello"),
		asn1rt.CharString("12 34"),
		asn1rt.CharString("Hello World"),
		asn1rt.CharString("Grüße"),
		asn1rt.CharString("𝄞 clef"),
		asn1rt.CharString("日本語"),
		asn1rt.List{asn1rt.Int(0), asn1rt.Int(255)},
		asn1rt.List{asn1rt.Int(3), asn1rt.Int(-1), asn1rt.Int(2)},
		asn1rt.Choice{Index: 1, Value: asn1rt.CharString("circle")},
		asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(9), asn1rt.Int(1), asn1rt.Bool(false)}},
		asn1rt.Int(42),
		asn1rt.Int(8),
		asn1rt.Bool(true),
		asn1rt.Int(-300),
		asn1rt.Bool(false),
	}}
}

// MinimalValue returns a value of Everything with all optional fields absent
// and all DEFAULT fields set to their default.
func MinimalValue() asn1rt.Value {
	v := EverythingValue().(asn1rt.Record)
	v.Fields[21] = asn1rt.Record{Fields: []asn1rt.Value{asn1rt.Int(7), asn1rt.Int(1), nil}}
	v.Fields[22] = nil
	v.Fields[23] = asn1rt.Int(7)
	v.Fields[24] = nil
	v.Fields[25] = nil
	v.Fields[26] = nil
	return v
}
