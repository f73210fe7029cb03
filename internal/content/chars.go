package content

import (
	"unicode/utf16"
	"unicode/utf8"

	"codello.dev/asn1rt"
)

// AppendChars appends the octets of s in the wire representation of the
// alphabet a: UTF-8 for UTF8String, one octet per character for the ASCII
// based alphabets, big endian UCS-2 for BMPString and UCS-4 for
// UniversalString.
func AppendChars(b []byte, a asn1rt.Alphabet, s string) []byte {
	switch a.Width() {
	case 2:
		for _, r := range s {
			b = append(b, byte(r>>8), byte(r))
		}
	case 4:
		for _, r := range s {
			b = append(b, byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
		}
	default:
		b = append(b, s...)
	}
	return b
}

// CharsLen returns the number of octets AppendChars produces for s.
func CharsLen(a asn1rt.Alphabet, s string) int {
	if w := a.Width(); w > 1 {
		return w * utf8.RuneCountInString(s)
	}
	return len(s)
}

// ParseChars converts the wire representation of a string with alphabet a
// into a Go string. The characters are validated against a.
func ParseChars(a asn1rt.Alphabet, bs []byte) (string, error) {
	var s string
	switch a.Width() {
	case 2:
		if len(bs)%2 != 0 {
			return "", asn1rt.Errorf(asn1rt.ErrConstraint, "odd length BMPString")
		}
		u := make([]uint16, len(bs)/2)
		for i := range u {
			u[i] = uint16(bs[2*i])<<8 | uint16(bs[2*i+1])
		}
		s = string(utf16.Decode(u))
	case 4:
		if len(bs)%4 != 0 {
			return "", asn1rt.Errorf(asn1rt.ErrConstraint, "UniversalString length not a multiple of 4")
		}
		rs := make([]rune, len(bs)/4)
		for i := range rs {
			rs[i] = rune(bs[4*i])<<24 | rune(bs[4*i+1])<<16 | rune(bs[4*i+2])<<8 | rune(bs[4*i+3])
			if !utf8.ValidRune(rs[i]) {
				return "", asn1rt.Errorf(asn1rt.ErrConstraint, "invalid UniversalString character %#x", uint32(rs[i]))
			}
		}
		s = string(rs)
	default:
		s = string(bs)
	}
	if !a.Valid(s) {
		return "", asn1rt.Errorf(asn1rt.ErrConstraint, "invalid %s character", a)
	}
	return s, nil
}
