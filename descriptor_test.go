// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt_test

import (
	"errors"
	"math/big"
	"slices"
	"testing"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/asn1test"
)

func TestDescriptor_Validate(t *testing.T) {
	ext := func(fields ...asn1rt.Field) *asn1rt.Descriptor {
		return &asn1rt.Descriptor{Kind: asn1rt.KindSequence, Flags: asn1rt.FlagExtensible, Fields: fields}
	}
	i := asn1test.Int
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		wantErr bool
	}{
		"Everything":       {asn1test.Everything, false},
		"Recursive":        {asn1test.Node, false},
		"OpenType":         {asn1test.Message, false},
		"Groups":           {asn1test.V2, false},
		"RootAfterExt":     {ext(asn1rt.Field{Name: "a", Type: i, Extension: true}, asn1rt.Field{Name: "b", Type: i}), true},
		"GroupInRoot":      {ext(asn1rt.Field{Name: "a", Type: i, Group: 1}), true},
		"SplitGroup":       {ext(asn1rt.Field{Name: "a", Type: i, Extension: true, Group: 1}, asn1rt.Field{Name: "b", Type: i, Extension: true, Group: 2}, asn1rt.Field{Name: "c", Type: i, Extension: true, Group: 1}), true},
		"MissingDefault":   {ext(asn1rt.Field{Name: "a", Type: i, Presence: asn1rt.PresenceDefault}), true},
		"MissingType":      {ext(asn1rt.Field{Name: "a"}), true},
		"NoMarker":         {&asn1rt.Descriptor{Kind: asn1rt.KindSequence, Fields: []asn1rt.Field{{Name: "a", Type: i, Extension: true}}}, true},
		"EmptyChoice":      {&asn1rt.Descriptor{Kind: asn1rt.KindChoice}, true},
		"OptionalAlt":      {&asn1rt.Descriptor{Kind: asn1rt.KindChoice, Fields: []asn1rt.Field{{Name: "a", Type: i, Presence: asn1rt.PresenceOptional}}}, true},
		"MissingElem":      {&asn1rt.Descriptor{Kind: asn1rt.KindSequenceOf}, true},
		"UntaggedTagged":   {&asn1rt.Descriptor{Kind: asn1rt.KindTagged, Elem: i}, true},
		"EmptyEnumerated":  {&asn1rt.Descriptor{Kind: asn1rt.KindEnumerated}, true},
		"RootAfterExtItem": {&asn1rt.Descriptor{Kind: asn1rt.KindEnumerated, Flags: asn1rt.FlagExtensible, Items: []asn1rt.EnumItem{{Name: "a", Extension: true}, {Name: "b", Value: 1}}}, true},
		"InvertedBounds":   {asn1test.Integer(5, 4), true},
		"InvalidKind":      {&asn1rt.Descriptor{}, true},
		"IncompleteTable":  {&asn1rt.Descriptor{Kind: asn1rt.KindAny, Open: &asn1rt.OpenType{Selector: "id", Table: []asn1rt.OpenTypeEntry{{Key: asn1rt.Int(1)}}}}, true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.d.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, asn1rt.ErrUnsupported) {
				t.Errorf("Validate() error = %v, want %v", err, asn1rt.ErrUnsupported)
			}
		})
	}
}

func TestDescriptor_Additions(t *testing.T) {
	if got := asn1test.V2.RootFields(); got != 1 {
		t.Errorf("RootFields() = %d, want 1", got)
	}
	want := [][]int{{1}, {2, 3}}
	got := asn1test.V2.Additions()
	if !slices.EqualFunc(got, want, slices.Equal[[]int]) {
		t.Errorf("Additions() = %v, want %v", got, want)
	}
	if got := asn1test.X.Additions(); len(got) != 0 {
		t.Errorf("Additions() = %v for a type without extensions", got)
	}
}

func TestDescriptor_FixedSize(t *testing.T) {
	tests := map[string]struct {
		d      *asn1rt.Descriptor
		want   int
		wantOk bool
	}{
		"Fixed":      {asn1test.Sized(asn1rt.KindOctetString, 4, 4), 4, true},
		"Range":      {asn1test.Sized(asn1rt.KindOctetString, 0, 8), 0, false},
		"Unbounded":  {asn1test.Octets, 0, false},
		"Extensible": {&asn1rt.Descriptor{Kind: asn1rt.KindBitString, Flags: asn1rt.FlagHasLower | asn1rt.FlagHasUpper | asn1rt.FlagExtensible, Lower: 3, Upper: 3}, 0, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := tt.d.FixedSize()
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("FixedSize() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestCheckInteger(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	above := &asn1rt.Descriptor{Kind: asn1rt.KindInteger, Flags: asn1rt.FlagLargeInteger, BigLower: huge}
	extensible := asn1test.Integer(0, 255)
	extensible.Flags |= asn1rt.FlagExtensible
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		v       asn1rt.Value
		wantErr bool
	}{
		"Lower":          {asn1test.Byte, asn1rt.Int(0), false},
		"Upper":          {asn1test.Byte, asn1rt.Int(255), false},
		"AboveUpper":     {asn1test.Byte, asn1rt.Int(256), true},
		"BelowLower":     {asn1test.Byte, asn1rt.Int(-1), true},
		"SemiConstraint": {asn1test.Unsigned, asn1rt.Int(1 << 40), false},
		"SemiNegative":   {asn1test.Unsigned, asn1rt.Int(-1), true},
		"Extensible":     {extensible, asn1rt.Int(256), false},
		"BigBound":       {above, asn1rt.BigInt{Int: huge}, false},
		"BelowBigBound":  {above, asn1rt.Int(5), true},
		"WrongType":      {asn1test.Int, asn1rt.Bool(true), true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := asn1rt.CheckInteger(tt.d, tt.v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckInteger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, asn1rt.ErrConstraint) {
				t.Errorf("CheckInteger() error = %v, want %v", err, asn1rt.ErrConstraint)
			}
		})
	}
}

func TestCheckString(t *testing.T) {
	tests := map[string]struct {
		d       *asn1rt.Descriptor
		s       string
		wantErr bool
	}{
		"IA5":             {asn1test.IA5, "hello\n", false},
		"IA5Umlaut":       {asn1test.IA5, "grüße", true},
		"Numeric":         {asn1test.String(asn1rt.AlphabetNumeric), "12 34", false},
		"NumericLetter":   {asn1test.String(asn1rt.AlphabetNumeric), "12a", true},
		"Printable":       {asn1test.String(asn1rt.AlphabetPrintable), "Hello (World)?", false},
		"PrintableStar":   {asn1test.String(asn1rt.AlphabetPrintable), "a*b", true},
		"Visible":         {asn1test.String(asn1rt.AlphabetVisible), "a*b~", false},
		"VisibleControl":  {asn1test.String(asn1rt.AlphabetVisible), "a\tb", true},
		"BMP":             {asn1test.String(asn1rt.AlphabetBMP), "日本語", false},
		"BMPSupplemental": {asn1test.String(asn1rt.AlphabetBMP), "𝄞", true},
		"Universal":       {asn1test.String(asn1rt.AlphabetUniversal), "𝄞", false},
		"InvalidUTF8":     {asn1test.UTF8, "\xff", true},
		"SizeInRunes":     {&asn1rt.Descriptor{Kind: asn1rt.KindCharacterString, Flags: asn1rt.FlagHasUpper, Upper: 3}, "äöü", false},
		"TooLong":         {&asn1rt.Descriptor{Kind: asn1rt.KindCharacterString, Flags: asn1rt.FlagHasUpper, Upper: 3}, "abcd", true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := asn1rt.CheckString(tt.d, tt.s)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckString(%q) error = %v, wantErr %v", tt.s, err, tt.wantErr)
			}
		})
	}
}
