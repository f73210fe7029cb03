package tlv

import (
	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/vlq"
)

// maxTagOctets is the maximum number of base-128 octets of a tag number. Tags
// with longer numbers are reported with [asn1rt.TagNumberTooLarge].
const maxTagOctets = 4

// maxLengthOctets is the maximum number of significant octets in the long form
// of a length.
const maxLengthOctets = 4

// ParseHeader decodes the identifier and length octets starting at data[off].
// It returns the header and the number of octets it occupies. ParseHeader does
// not check whether the contents fit into data.
func ParseHeader(data []byte, off int) (Header, int, error) {
	pos := off
	if pos >= len(data) {
		return Header{}, 0, asn1rt.Errorf(asn1rt.ErrTruncated, "missing identifier octet").At(pos)
	}
	b := data[pos]
	pos++
	h := Header{
		Tag:         asn1rt.Tag{Class: asn1rt.Class(b >> 6), Number: uint(b & 0x1f)},
		Constructed: b&0x20 == 0x20,
	}

	// If the bottom five bits are set, then the tag number is actually base 128
	// encoded afterward
	if b&0x1f == 0x1f {
		n, err := vlq.Skip(data[pos:])
		if err != nil {
			return h, 0, asn1rt.Errorf(asn1rt.ErrTruncated, "truncated tag number").At(off)
		}
		if data[pos] == 0x80 {
			return h, 0, asn1rt.Errorf(asn1rt.ErrMalformedTag, "tag number not minimally encoded").At(off)
		}
		if n > maxTagOctets {
			h.Tag.Number = asn1rt.TagNumberTooLarge
		} else {
			num, _, _ := vlq.Parse[uint32](data[pos : pos+n])
			if num < 31 {
				return h, 0, asn1rt.Errorf(asn1rt.ErrMalformedTag, "short tag number %d in long form", num).At(off)
			}
			h.Tag.Number = uint(num)
		}
		pos += n
	}

	if pos >= len(data) {
		return h, 0, asn1rt.Errorf(asn1rt.ErrTruncated, "missing length octet").At(pos)
	}
	b = data[pos]
	pos++
	switch {
	case b < 0x80:
		// short form
		h.Length = int(b)
	case b == 0x80:
		if !h.Constructed {
			return h, 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "indefinite length for primitive element").At(off)
		}
		h.Length = LengthIndefinite
	case b == 0xff:
		return h, 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "reserved length octet").At(off)
	default:
		numBytes := int(b & 0x7f)
		if pos+numBytes > len(data) {
			return h, 0, asn1rt.Errorf(asn1rt.ErrTruncated, "truncated length").At(pos)
		}
		l := 0
		significant := 0
		for _, c := range data[pos : pos+numBytes] {
			if significant > 0 || c != 0 {
				significant++
			}
			if significant > maxLengthOctets {
				return h, 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "length too large").At(off)
			}
			l = l<<8 | int(c)
		}
		if l > maxLength {
			return h, 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "length too large").At(off)
		}
		h.Length = l
		pos += numBytes
	}
	return h, pos - off, nil
}

// maxLength is the largest supported length of the contents of an element.
const maxLength = 1<<31 - 1

// HeaderLen returns the number of octets AppendHeader produces for h.
func HeaderLen(h Header) int {
	l := 1 // class, constructed, tag
	if h.Tag.Number >= 31 {
		// tag does not fit
		l += vlq.Length(h.Tag.Number)
	}
	l++ // length
	if h.Length == LengthIndefinite || h.Length < 128 {
		return l
	}
	// multi-byte length
	for hl := h.Length; hl > 0; hl >>= 8 {
		l++
	}
	return l
}

// AppendHeader appends the identifier and length octets of h to b.
func AppendHeader(b []byte, h Header) []byte {
	c := byte(h.Tag.Class) << 6
	if h.Constructed {
		c |= 0x20
	}
	if h.Tag.Number < 31 {
		b = append(b, c|byte(h.Tag.Number))
	} else {
		b = append(b, c|0x1f)
		b = vlq.Append(b, h.Tag.Number)
	}

	switch {
	case h.Length == LengthIndefinite:
		b = append(b, 0x80)
	case h.Length >= 128:
		numBytes := 1
		for l := h.Length; l > 255; l >>= 8 {
			numBytes++
		}
		b = append(b, 0x80|byte(numBytes))
		for ; numBytes > 0; numBytes-- {
			b = append(b, byte(h.Length>>uint((numBytes-1)*8)))
		}
	default:
		b = append(b, byte(h.Length))
	}
	return b
}

// Append appends a complete definite-length element with the given tag and
// contents to b.
func Append(b []byte, tag asn1rt.Tag, constructed bool, contents []byte) []byte {
	b = AppendHeader(b, Header{Tag: tag, Constructed: constructed, Length: len(contents)})
	return append(b, contents...)
}
