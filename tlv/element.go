package tlv

import (
	"codello.dev/asn1rt"
)

// An Element locates a complete TLV encoding within its input.
type Element struct {
	Header
	Offset int // start of the identifier octets
	Start  int // start of the contents octets
	End    int // end of the contents octets, excluding an end-of-contents marker
	Next   int // offset of the octet following the element
}

// Contents returns the contents octets of e within data.
func (e Element) Contents(data []byte) []byte {
	return data[e.Start:e.End]
}

// Raw returns the complete encoding of e within data.
func (e Element) Raw(data []byte) []byte {
	return data[e.Offset:e.Next]
}

// maxNesting bounds the depth of nested indefinite-length encodings.
const maxNesting = 1024

// Parse locates the element starting at data[off]. The element must end at or
// before limit. Running past the end of data is reported as
// [asn1rt.ErrTruncated], running past a smaller limit as
// [asn1rt.ErrMalformedLength].
//
// For indefinite-length elements Parse scans the nested elements to find the
// end-of-contents marker.
func Parse(data []byte, off, limit int) (Element, error) {
	return parse(data, off, limit, 0)
}

func parse(data []byte, off, limit, depth int) (Element, error) {
	if off >= limit {
		if limit < len(data) {
			return Element{}, asn1rt.Errorf(asn1rt.ErrMalformedLength, "element exceeds enclosing element").At(off)
		}
		return Element{}, asn1rt.Errorf(asn1rt.ErrTruncated, "missing element").At(off)
	}
	h, n, err := ParseHeader(data[:limit], off)
	if err != nil {
		return Element{}, err
	}
	e := Element{Header: h, Offset: off, Start: off + n}
	if h.Length != LengthIndefinite {
		e.End = e.Start + h.Length
		if e.End > limit {
			if e.End > len(data) {
				return e, asn1rt.Errorf(asn1rt.ErrTruncated, "%s exceeds input", h).At(off)
			}
			return e, asn1rt.Errorf(asn1rt.ErrMalformedLength, "%s exceeds enclosing element", h).At(off)
		}
		e.Next = e.End
		return e, nil
	}
	if depth >= maxNesting {
		return e, asn1rt.Errorf(asn1rt.ErrUnsupported, "indefinite-length nesting too deep").At(off)
	}
	pos := e.Start
	for {
		if pos+2 <= limit && data[pos] == 0 && data[pos+1] == 0 {
			e.End = pos
			e.Next = pos + 2
			return e, nil
		}
		child, err := parse(data, pos, limit, depth+1)
		if err != nil {
			return e, err
		}
		pos = child.Next
	}
}

// Children calls f for each element nested in the constructed element e. It
// stops at the first error returned by f.
func (e Element) Children(data []byte, f func(Element) error) error {
	for pos := e.Start; pos < e.End; {
		child, err := Parse(data, pos, e.End)
		if err != nil {
			return err
		}
		if child.Header == EndOfContents {
			return asn1rt.Errorf(asn1rt.ErrMalformedLength, "unexpected end-of-contents").At(pos)
		}
		if err = f(child); err != nil {
			return err
		}
		pos = child.Next
	}
	return nil
}
