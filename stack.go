// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

// A ValueStack is the chain of enclosing values of the value currently being
// encoded or decoded. The innermost frame is the receiver; Parent links to the
// enclosing frame. The zero frame is represented by a nil *ValueStack.
type ValueStack struct {
	Type   *Descriptor
	Value  Value
	Parent *ValueStack
}

// Push returns a new frame for the value v of type d enclosed by s.
func (s *ValueStack) Push(d *Descriptor, v Value) *ValueStack {
	return &ValueStack{Type: d, Value: v, Parent: s}
}

// Depth returns the number of frames in s.
func (s *ValueStack) Depth() int {
	n := 0
	for ; s != nil; s = s.Parent {
		n++
	}
	return n
}

// Lookup returns the value of the nearest enclosing SEQUENCE or SET component
// with the given name. Absent components are skipped.
func (s *ValueStack) Lookup(name string) (Value, bool) {
	for ; s != nil; s = s.Parent {
		rec, ok := s.Value.(Record)
		if !ok || s.Type == nil {
			continue
		}
		base := s.Type.Underlying()
		i := base.FieldIndex(name)
		if i < 0 || i >= len(rec.Fields) || rec.Fields[i] == nil {
			continue
		}
		return rec.Fields[i], true
	}
	return nil, false
}

// Resolve returns the concrete type of an ANY value of type d enclosed by s.
// It reports false if d has no table constraint, if the selector component
// is absent or if no table entry matches.
func Resolve(d *Descriptor, s *ValueStack) (*Descriptor, bool) {
	if d.Open == nil {
		return nil, false
	}
	key, ok := s.Lookup(d.Open.Selector)
	if !ok {
		return nil, false
	}
	if c, ok := key.(Choice); ok {
		key = c.Value
	}
	for _, e := range d.Open.Table {
		if Equal(e.Key, key) {
			return e.Type, true
		}
	}
	return nil, false
}
