package content

import (
	"slices"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/vlq"
)

// AppendOID appends the contents octets of oid to b. The first two arcs are
// combined into a single subidentifier.
func AppendOID(b []byte, oid asn1rt.ObjectIdentifier) ([]byte, error) {
	if !oid.IsValid() {
		return b, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid object identifier %s", oid)
	}
	first := oid[0]*40 + oid[1]
	if first < oid[1] {
		return b, asn1rt.Errorf(asn1rt.ErrConstraint, "object identifier arc overflow")
	}
	b = vlq.Append(b, first)
	for _, v := range oid[2:] {
		b = vlq.Append(b, v)
	}
	return b, nil
}

// ParseOID parses the contents octets of an OBJECT IDENTIFIER.
func ParseOID(bs []byte) (asn1rt.ObjectIdentifier, error) {
	if len(bs) == 0 {
		return nil, asn1rt.Errorf(asn1rt.ErrMalformedLength, "empty object identifier")
	}
	arcs, err := parseArcs(bs, 1)
	if err != nil {
		return nil, err
	}
	first := arcs[0]
	a0, a1 := first/40, first%40
	if first >= 80 {
		a0, a1 = 2, first-80
	}
	arcs = slices.Insert(arcs, 1, a1)
	arcs[0] = a0
	return asn1rt.ObjectIdentifier(arcs), nil
}

// AppendRelativeOID appends the contents octets of oid to b.
func AppendRelativeOID(b []byte, oid asn1rt.RelativeOID) []byte {
	for _, v := range oid {
		b = vlq.Append(b, v)
	}
	return b
}

// ParseRelativeOID parses the contents octets of a RELATIVE-OID.
func ParseRelativeOID(bs []byte) (asn1rt.RelativeOID, error) {
	arcs, err := parseArcs(bs, 0)
	if err != nil {
		return nil, err
	}
	return asn1rt.RelativeOID(arcs), nil
}

// parseArcs decodes the minimally encoded subidentifiers in bs. extra
// additional slots are reserved in the result.
func parseArcs(bs []byte, extra int) ([]uint, error) {
	arcs := make([]uint, 0, len(bs)+extra)
	for len(bs) > 0 {
		v, n, err := vlq.ParseMinimal[uint](bs)
		switch err {
		case nil:
		case vlq.ErrTruncated:
			return nil, asn1rt.Errorf(asn1rt.ErrTruncated, "truncated subidentifier")
		case vlq.ErrOverflow:
			return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "subidentifier too large")
		default:
			return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%v", err)
		}
		arcs = append(arcs, v)
		bs = bs[n:]
	}
	return arcs, nil
}
