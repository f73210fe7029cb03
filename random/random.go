// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package random generates values permitted by a descriptor. Generated values
// honour value and size constraints, alphabets and table constraints, so they
// can be encoded by every encoding rule and decoded back into an equal value.
package random

import (
	"math"
	"math/big"
	"math/rand/v2"

	"codello.dev/asn1rt"
)

const (
	// DefaultMaxDepth is the nesting depth after which optional components
	// are omitted and lists have their minimum size.
	DefaultMaxDepth = 6
	// DefaultMaxSize bounds the size of strings and lists without an upper
	// size bound.
	DefaultMaxSize = 8
)

// A Generator produces random values. The zero value is not usable; Rand must
// be set.
type Generator struct {
	Rand     *rand.Rand
	MaxDepth int // DefaultMaxDepth if zero
	MaxSize  int // DefaultMaxSize if zero
}

// New creates a generator with a deterministic source seeded by seed.
func New(seed uint64) *Generator {
	return &Generator{Rand: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

// Generate returns a random value of type d using r.
func Generate(d *asn1rt.Descriptor, r *rand.Rand) (asn1rt.Value, error) {
	g := &Generator{Rand: r}
	return g.Generate(d)
}

// Generate returns a random value of type d. It fails with
// [asn1rt.ErrUnsupported] if d is recursive without an optional branch or if
// an open type cannot be resolved.
func (g *Generator) Generate(d *asn1rt.Descriptor) (asn1rt.Value, error) {
	return g.value(d, 0, nil)
}

func (g *Generator) maxDepth() int {
	if g.MaxDepth > 0 {
		return g.MaxDepth
	}
	return DefaultMaxDepth
}

func (g *Generator) maxSize() int {
	if g.MaxSize > 0 {
		return g.MaxSize
	}
	return DefaultMaxSize
}

// deep reports whether depth exceeds the configured nesting depth.
func (g *Generator) deep(depth int) bool {
	return depth >= g.maxDepth()
}

func (g *Generator) value(d *asn1rt.Descriptor, depth int, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	if depth > 4*g.maxDepth() {
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: recursion does not terminate", d.Label())
	}
	d = d.Underlying()
	r := g.Rand
	switch d.Kind {
	case asn1rt.KindSequence, asn1rt.KindSet:
		return g.record(d, depth, stack)
	case asn1rt.KindSequenceOf, asn1rt.KindSetOf:
		n := g.size(d, depth)
		l := make(asn1rt.List, n)
		for i := range l {
			v, err := g.value(d.Elem, depth+1, stack)
			if err != nil {
				return nil, err
			}
			l[i] = v
		}
		return l, nil
	case asn1rt.KindChoice:
		n := len(d.Fields)
		if !d.Extensible() {
			n = d.RootFields()
		}
		if n == 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: no alternatives", d.Label())
		}
		i := r.IntN(n)
		v, err := g.value(d.Fields[i].Type, depth+1, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Choice{Index: i, Value: v}, nil
	case asn1rt.KindAny:
		t, ok := asn1rt.Resolve(d, stack)
		if !ok {
			return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot resolve open type", d.Label())
		}
		v, err := g.value(t, depth+1, stack)
		if err != nil {
			return nil, err
		}
		return asn1rt.Open{Type: t, Value: v}, nil
	case asn1rt.KindBoolean:
		return asn1rt.Bool(r.IntN(2) == 1), nil
	case asn1rt.KindNull:
		return asn1rt.Null{}, nil
	case asn1rt.KindInteger:
		return g.integer(d), nil
	case asn1rt.KindEnumerated:
		if len(d.Items) == 0 {
			return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: no enumeration items", d.Label())
		}
		return asn1rt.Enumerated(d.Items[r.IntN(len(d.Items))].Value), nil
	case asn1rt.KindReal:
		return g.real(), nil
	case asn1rt.KindOctetString:
		b := make(asn1rt.OctetString, g.size(d, depth))
		g.fill(b)
		return b, nil
	case asn1rt.KindBitString:
		n := g.size(d, depth)
		b := asn1rt.BitString{Bytes: make([]byte, (n+7)/8), BitLength: n}
		g.fill(b.Bytes)
		return asn1rt.BitString{Bytes: b.Masked(), BitLength: n}, nil
	case asn1rt.KindCharacterString:
		return g.chars(d, depth), nil
	case asn1rt.KindObjectIdentifier:
		first := uint(r.IntN(3))
		second := uint(r.IntN(40))
		if first == 2 {
			second = uint(r.IntN(1000))
		}
		return asn1rt.ObjectIdentifier(append([]uint{first, second}, g.arcs()...)), nil
	case asn1rt.KindRelativeOID:
		return asn1rt.RelativeOID(g.arcs()), nil
	}
	return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: cannot generate %s", d.Label(), d.Kind)
}

// record generates the components of a SEQUENCE or SET value. Open types are
// generated last so that selector components can be set to a table key.
func (g *Generator) record(d *asn1rt.Descriptor, depth int, stack *asn1rt.ValueStack) (asn1rt.Value, error) {
	r := g.Rand
	rec := asn1rt.Record{Fields: make([]asn1rt.Value, len(d.Fields))}
	frame := stack.Push(d, rec)
	present := make([]bool, len(d.Fields))
	for i := range d.RootFields() {
		present[i] = !d.Fields[i].Optional() || !g.deep(depth) && r.IntN(2) == 1
	}
	if d.Extensible() && !g.deep(depth) {
		for _, add := range d.Additions() {
			if r.IntN(2) == 0 {
				continue
			}
			for _, i := range add {
				present[i] = !d.Fields[i].Optional() || r.IntN(2) == 1
			}
		}
	}
	for i := range d.Fields {
		if d.Fields[i].Presence == asn1rt.PresenceDefault {
			present[i] = true
		}
	}
	var open []int
	for i := range d.Fields {
		if !present[i] {
			continue
		}
		if t := d.Fields[i].Type.Underlying(); t.Kind == asn1rt.KindAny {
			open = append(open, i)
			continue
		}
		v, err := g.value(d.Fields[i].Type, depth+1, frame)
		if err != nil {
			return nil, err
		}
		rec.Fields[i] = v
	}
	for _, i := range open {
		t := d.Fields[i].Type.Underlying()
		if t.Open != nil && len(t.Open.Table) > 0 {
			if j := d.FieldIndex(t.Open.Selector); j >= 0 {
				rec.Fields[j] = t.Open.Table[r.IntN(len(t.Open.Table))].Key
			}
		}
		v, err := g.value(d.Fields[i].Type, depth+1, frame)
		if err != nil {
			return nil, err
		}
		rec.Fields[i] = v
	}
	return rec, nil
}

// size returns a random size permitted by the size constraint of d.
func (g *Generator) size(d *asn1rt.Descriptor, depth int) int {
	b := asn1rt.BoundsOf(d)
	lo := int64(0)
	if b.HasLower && b.Lower > 0 {
		lo = b.Lower
	}
	hi := lo + int64(g.maxSize())
	if b.HasUpper && b.Upper < hi {
		hi = b.Upper
	}
	if g.deep(depth) || hi <= lo {
		return int(lo)
	}
	return int(lo + g.Rand.Int64N(hi-lo+1))
}

func (g *Generator) fill(b []byte) {
	for i := range b {
		b[i] = byte(g.Rand.UintN(256))
	}
}

func (g *Generator) arcs() []uint {
	arcs := make([]uint, g.Rand.IntN(4))
	for i := range arcs {
		arcs[i] = uint(g.Rand.UintN(1 << 20))
	}
	return arcs
}

// integer returns a random INTEGER value within the root constraint of d.
func (g *Generator) integer(d *asn1rt.Descriptor) asn1rt.Value {
	r := g.Rand
	b := asn1rt.BoundsOf(d)
	switch {
	case b.HasLower && b.HasUpper:
		n := b.Range()
		var off uint64
		if n == math.MaxUint64 {
			off = r.Uint64()
		} else {
			off = r.Uint64N(n + 1)
		}
		return asn1rt.IntegerValue(d, big.NewInt(int64(uint64(b.Lower)+off)))
	case b.HasLower:
		off := r.Int64N(1 << 20)
		if b.Lower > math.MaxInt64-off {
			off = math.MaxInt64 - b.Lower
		}
		return asn1rt.IntegerValue(d, big.NewInt(b.Lower+off))
	case b.HasUpper:
		off := r.Int64N(1 << 20)
		if b.Upper < math.MinInt64+off {
			off = b.Upper - math.MinInt64
		}
		return asn1rt.IntegerValue(d, big.NewInt(b.Upper-off))
	case d.Flags&asn1rt.FlagLargeInteger != 0:
		buf := make([]byte, 1+r.IntN(16))
		g.fill(buf)
		x := new(big.Int).SetBytes(buf)
		if r.IntN(2) == 0 {
			x.Neg(x)
		}
		return asn1rt.BigInt{Int: x}
	}
	// Favor the boundaries of the encodings of unconstrained values.
	switch r.IntN(8) {
	case 0:
		return asn1rt.Int(math.MinInt64)
	case 1:
		return asn1rt.Int(math.MaxInt64)
	}
	return asn1rt.Int(r.Int64N(1<<32) - 1<<31)
}

// real returns a random REAL value. Special values are included.
func (g *Generator) real() asn1rt.Value {
	r := g.Rand
	switch r.IntN(10) {
	case 0:
		return asn1rt.Real(math.Inf(1))
	case 1:
		return asn1rt.Real(math.Inf(-1))
	case 2:
		return asn1rt.Real(math.NaN())
	case 3:
		return asn1rt.Real(math.Copysign(0, -1))
	case 4:
		return asn1rt.Real(0)
	}
	m := float64(r.Int64N(1<<24) - 1<<23)
	return asn1rt.Real(math.Ldexp(m, r.IntN(64)-32))
}

// Character pools per alphabet. Every character of a pool is permitted by
// the alphabet.
var (
	numericChars   = []rune("0123456789 ")
	printableChars = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 '()+,-./:=?")
	visibleChars   = []rune("ABCXYZabcxyz0189 !\"#&'<>@[\\]^_`{|}~")
	bmpChars       = []rune("Aa0 äöüßéñ€αβγДжЖ日本語한")
	universalChars = []rune("Aa0 äß€日本😀𝄞🂡")
)

func (g *Generator) chars(d *asn1rt.Descriptor, depth int) asn1rt.CharString {
	var pool []rune
	switch d.Alphabet {
	case asn1rt.AlphabetNumeric:
		pool = numericChars
	case asn1rt.AlphabetPrintable:
		pool = printableChars
	case asn1rt.AlphabetIA5, asn1rt.AlphabetVisible:
		pool = visibleChars
	case asn1rt.AlphabetBMP:
		pool = bmpChars
	default:
		pool = universalChars
	}
	s := make([]rune, g.size(d, depth))
	for i := range s {
		s[i] = pool[g.Rand.IntN(len(pool))]
	}
	return asn1rt.CharString(s)
}
