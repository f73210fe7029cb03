// Package codec collects the encoding rules of this module behind a common
// interface for the command line tools and the cross-rule tests.
package codec

import (
	"bytes"
	"fmt"
	"slices"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/ber"
	"codello.dev/asn1rt/gser"
	"codello.dev/asn1rt/oer"
	"codello.dev/asn1rt/per"
	"codello.dev/asn1rt/xer"
)

// A Rule is a set of encoding rules.
type Rule struct {
	Name   string
	Encode func(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error)
	Decode func(d *asn1rt.Descriptor, data []byte, a asn1rt.Allocator) (asn1rt.Value, int, error)
	// Text is set for rules producing human-readable output.
	Text bool
	// Canonical is set for rules whose encoder reorders SET OF elements.
	// Decoded values of such rules are compared by their encodings.
	Canonical bool
}

var rules = []Rule{
	{Name: "ber", Encode: ber.Encode, Decode: ber.DecodeWithAllocator},
	{Name: "der", Encode: ber.EncodeDER, Decode: ber.DecodeWithAllocator, Canonical: true},
	{Name: "oer", Encode: oer.Encode, Decode: oer.DecodeWithAllocator},
	{Name: "uper", Encode: per.Encode, Decode: per.DecodeWithAllocator},
	{Name: "aper", Encode: per.EncodeAligned, Decode: func(d *asn1rt.Descriptor, data []byte, a asn1rt.Allocator) (asn1rt.Value, int, error) {
		return per.Options{Aligned: true, Allocator: a}.Decode(d, data)
	}},
	{Name: "xer", Encode: xer.Encode, Decode: xer.DecodeWithAllocator, Text: true},
	{Name: "gser", Encode: gser.Encode, Decode: gser.DecodeWithAllocator, Text: true},
}

// All returns all rules.
func All() []Rule {
	return slices.Clone(rules)
}

// Names returns the names of all rules.
func Names() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// Lookup returns the rule with the given name.
func Lookup(name string) (Rule, bool) {
	i := slices.IndexFunc(rules, func(r Rule) bool { return r.Name == name })
	if i < 0 {
		return Rule{}, false
	}
	return rules[i], true
}

// RoundTrip encodes v, decodes the encoding and verifies that the result
// equals v. It returns the encoding.
func (r Rule) RoundTrip(d *asn1rt.Descriptor, v asn1rt.Value) ([]byte, error) {
	b, err := r.Encode(d, v)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", r.Name, err)
	}
	got, n, err := r.Decode(d, b, nil)
	if err != nil {
		return b, fmt.Errorf("%s: decode: %w", r.Name, err)
	}
	if n != len(b) {
		return b, fmt.Errorf("%s: decoded %d of %d bytes", r.Name, n, len(b))
	}
	if !r.Canonical {
		if !asn1rt.Equal(got, v) {
			return b, fmt.Errorf("%s: decoded value differs", r.Name)
		}
		return b, nil
	}
	c, err := r.Encode(d, got)
	if err != nil {
		return b, fmt.Errorf("%s: re-encode: %w", r.Name, err)
	}
	if !bytes.Equal(b, c) {
		return b, fmt.Errorf("%s: re-encoding differs", r.Name)
	}
	return b, nil
}
