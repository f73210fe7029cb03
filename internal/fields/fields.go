// Package fields implements the component selection shared by the encoding
// rules that write SEQUENCE and SET values with a presence bitmap.
package fields

import "codello.dev/asn1rt"

// RootOrder returns the encoding order of the root fields of d. The root
// fields of a SET are encoded in the canonical order of their tags.
func RootOrder(d *asn1rt.Descriptor) []int {
	root := d.RootFields()
	if d.Kind == asn1rt.KindSet {
		return asn1rt.CanonicalOrder(d)[:root]
	}
	order := make([]int, root)
	for i := range order {
		order[i] = i
	}
	return order
}

// Present reports whether the value of field i of d is encoded. Values equal
// to the DEFAULT of their field are omitted.
func Present(d *asn1rt.Descriptor, rec asn1rt.Record, i int) bool {
	f := &d.Fields[i]
	v := rec.Fields[i]
	return v != nil && !(f.Presence == asn1rt.PresenceDefault && asn1rt.Equal(v, f.Default))
}
