// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schema loads descriptor tables from TOML documents.
//
// A document defines named types in the types table. Types reference each
// other by name, so recursive types need no special syntax:
//
//	root = "Node"
//
//	[types.Node]
//	kind = "SEQUENCE"
//	fields = [
//	  { name = "value", type = "INTEGER" },
//	  { name = "next", type = "Node", tag = "[0]", optional = true },
//	]
//
// The following keys are recognized for a type:
//
//	kind        ASN.1 type name such as "SEQUENCE OF" or "IA5String"
//	tag         tag in ASN.1 notation: "[0]", "[APPLICATION 3]"
//	explicit    use EXPLICIT tagging
//	extensible  extension marker or extensible constraint
//	large       decode INTEGER values as arbitrary precision integers
//	lower       lower value or size bound
//	upper       upper value or size bound
//	big_lower   lower INTEGER bound in decimal notation
//	big_upper   upper INTEGER bound in decimal notation
//	fields      components of SEQUENCE, SET and CHOICE types
//	items       named values of ENUMERATED types
//	elem        element type of SEQUENCE OF and SET OF, inner type of TAGGED
//	open        table constraint of ANY types: selector and table
//
// A field is a table with the keys name, type, tag, explicit, optional,
// default, extension and group. A tag on a field wraps the referenced type.
// An item has the keys name, value and extension. Items without a value are
// numbered consecutively. Entries of an open type table have the keys key and
// type.
//
// The kinds of builtin types can also be used as type names. Every reference
// to a builtin name resolves to the same descriptor within a [Schema].
package schema

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"codello.dev/asn1rt"
)

// A Schema is a set of named descriptors.
type Schema struct {
	// Root is the name of the default type of the schema. It may be empty.
	Root  string
	types map[string]*asn1rt.Descriptor
}

// Lookup returns the type with the given name. Builtin type names are
// resolved as well.
func (s *Schema) Lookup(name string) (*asn1rt.Descriptor, bool) {
	d, ok := s.types[name]
	return d, ok
}

// Names returns the names of the types defined in the schema in sorted
// order. Builtin types are only included if they are referenced.
func (s *Schema) Names() []string {
	return slices.Sorted(maps.Keys(s.types))
}

// RootType returns the type named by Root.
func (s *Schema) RootType() (*asn1rt.Descriptor, error) {
	if s.Root == "" {
		return nil, fmt.Errorf("schema: no root type")
	}
	d, ok := s.Lookup(s.Root)
	if !ok {
		return nil, fmt.Errorf("schema: undefined root type %q", s.Root)
	}
	return d, nil
}

// document is the structure of a schema file.
type document struct {
	Root  string                `toml:"root"`
	Types map[string]typeConfig `toml:"types"`
}

type typeConfig struct {
	Kind       string        `toml:"kind"`
	Tag        string        `toml:"tag"`
	Explicit   bool          `toml:"explicit"`
	Extensible bool          `toml:"extensible"`
	Large      bool          `toml:"large"`
	Lower      int64         `toml:"lower"`
	Upper      int64         `toml:"upper"`
	BigLower   string        `toml:"big_lower"`
	BigUpper   string        `toml:"big_upper"`
	Fields     []fieldConfig `toml:"fields"`
	Items      []itemConfig  `toml:"items"`
	Elem       string        `toml:"elem"`
	Open       *openConfig   `toml:"open"`
}

type fieldConfig struct {
	Name      string `toml:"name"`
	Type      string `toml:"type"`
	Tag       string `toml:"tag"`
	Explicit  bool   `toml:"explicit"`
	Optional  bool   `toml:"optional"`
	Default   any    `toml:"default"`
	Extension bool   `toml:"extension"`
	Group     int    `toml:"group"`
}

type itemConfig struct {
	Name      string `toml:"name"`
	Value     *int64 `toml:"value"`
	Extension bool   `toml:"extension"`
}

type openConfig struct {
	Selector string        `toml:"selector"`
	Table    []entryConfig `toml:"table"`
}

type entryConfig struct {
	Key  any    `toml:"key"`
	Type string `toml:"type"`
}

// Load reads a schema from r.
func Load(r io.Reader) (*Schema, error) {
	var doc document
	meta, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return build(doc, meta)
}

// LoadFile reads a schema from the file at path.
func LoadFile(path string) (*Schema, error) {
	var doc document
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return build(doc, meta)
}

// Parse reads a schema from a string.
func Parse(data string) (*Schema, error) {
	var doc document
	meta, err := toml.Decode(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return build(doc, meta)
}

func build(doc document, meta toml.MetaData) (*Schema, error) {
	if keys := meta.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return nil, fmt.Errorf("schema: unknown keys %s", strings.Join(names, ", "))
	}
	b := &builder{
		schema: &Schema{Root: doc.Root, types: make(map[string]*asn1rt.Descriptor, len(doc.Types))},
		meta:   meta,
		open:   make(map[*asn1rt.Descriptor][]entryConfig),
	}
	// Allocate all named descriptors first so that references can be resolved
	// regardless of declaration order.
	names := slices.Sorted(maps.Keys(doc.Types))
	for _, name := range names {
		if _, ok := builtins[name]; ok {
			return nil, fmt.Errorf("schema: type %s: redefines a builtin type", name)
		}
		b.schema.types[name] = &asn1rt.Descriptor{Name: name}
	}
	for _, name := range names {
		if err := b.define(name, doc.Types[name]); err != nil {
			return nil, fmt.Errorf("schema: type %s: %w", name, err)
		}
	}
	if err := b.finish(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	for _, name := range b.schema.Names() {
		if err := b.schema.types[name].Validate(); err != nil {
			return nil, fmt.Errorf("schema: type %s: %w", name, err)
		}
	}
	if doc.Root != "" {
		if _, err := b.schema.RootType(); err != nil {
			return nil, err
		}
	}
	return b.schema, nil
}
