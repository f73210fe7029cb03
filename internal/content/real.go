package content

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	"codello.dev/asn1rt"
)

// AppendReal appends the contents octets of the REAL value f to b. Finite
// non-zero values use the binary encoding with base 2 and an odd mantissa as
// required by DER. Positive zero has no contents octets.
func AppendReal(b []byte, f float64) []byte {
	switch {
	case f == 0 && !math.Signbit(f):
		return b
	case f == 0:
		return append(b, 0b01000011)
	case math.IsInf(f, 1):
		return append(b, 0b01000000)
	case math.IsInf(f, -1):
		return append(b, 0b01000001)
	case math.IsNaN(f):
		return append(b, 0b01000010)
	}

	// compute mantissa and exponent such that the mantissa is odd
	bts := math.Float64bits(f)
	m := bts & (1<<52 - 1)
	e := int((bts>>52)&0x7FF) - 1023 - 52
	if (bts>>52)&0x7FF == 0 {
		// subnormal values have no implicit leading bit
		e++
	} else {
		m |= 1 << 52
	}
	shift := bits.TrailingZeros64(m)
	m >>= shift
	e += shift

	// An IEEE754 double has an exponent of 11 bits so this is either 1 or 2 bytes.
	// We are in case a) or b) of Rec. ITU-T X.690, Section 8.5.7.4.
	// In particular, we do not need an extra byte for the number of exponent bytes.
	el := ((bits.Len(uint(max(e, -e-1))) + 1) + 8 - 1) / 8
	ml := (bits.Len64(m) + 8 - 1) / 8 // mantissa is never 0

	s := byte(bts >> 63) // sign (1 bit)
	// First byte is 1s0000bb where s is the sign and bb is an indicator for the
	// number of octets needed for the exponent.
	b = append(b, 0b10000000|(s<<6)|byte(el-1))
	for ; el > 0; el-- {
		b = append(b, byte(e>>(8*(el-1))))
	}
	for ; ml > 0; ml-- {
		b = append(b, byte(m>>(8*(ml-1))))
	}
	return b
}

// ParseReal parses the contents octets of a REAL value. Binary encodings with
// base 2, 8 or 16 and decimal encodings in the NR1, NR2 and NR3 forms of
// ISO 6093 are supported.
func ParseReal(bs []byte) (float64, error) {
	if len(bs) == 0 {
		return 0, nil
	}
	b := bs[0]
	switch {
	case b&0xC0 == 0x40: // b == 0b01xxxxxx, this indicates a special value
		if len(bs) != 1 {
			return 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "special real value with trailing data")
		}
		switch b {
		case 0b01000000:
			return math.Inf(1), nil
		case 0b01000001:
			return math.Inf(-1), nil
		case 0b01000010:
			return math.NaN(), nil
		case 0b01000011:
			return math.Copysign(0, -1), nil
		}
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid special real value")
	case b&0x80 != 0:
		return parseBinary(bs)
	default:
		return parseDecimal(bs)
	}
}

// parseBinary parses a float from the binary REAL representation.
func parseBinary(bs []byte) (float64, error) {
	s, e, rest, err := parseRealExp(bs)
	if err != nil {
		return 0, err
	}
	if len(rest) == 0 {
		return 0, asn1rt.Errorf(asn1rt.ErrMalformedLength, "missing mantissa")
	}
	var m uint64
	for _, c := range rest {
		if m&(0xFF<<56) != 0 {
			if m&0xFF == 0 && e < math.MaxInt32 {
				m >>= 8
				e += 8
			} else {
				return 0, asn1rt.Errorf(asn1rt.ErrUnsupported, "mantissa too large")
			}
		}
		m = m<<8 | uint64(c)
	}
	if m == 0 {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "zero mantissa")
	}
	if e < math.MinInt32 || e > math.MaxInt32 {
		return 0, asn1rt.Errorf(asn1rt.ErrUnsupported, "exponent too large")
	}
	f := math.Ldexp(float64(m), int(e))
	if s != 0 {
		f = -f
	}
	return f, nil
}

// parseRealExp parses the sign and exponent of an ASN.1 REAL value. The raw
// exponent is adjusted to the base (B) and correction factor (F) in the
// encoding.
//
// See Section 8.5 of Rec. ITU-T X.690, in particular Section 8.5.7.
func parseRealExp(bs []byte) (s byte, e int64, rest []byte, err error) {
	b := bs[0]
	bs = bs[1:]
	s = (b & 0x40) >> 6     // bit 7 of b
	base := (b & 0x30) >> 4 // bit 6 and 5 of b
	// we keep the binary code of the base for simpler computations later on
	if base > 2 {
		return s, e, nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid real base")
	}
	f := (b & 0x0C) >> 2       // bit 4 and 3 of b
	es := int(1 + (b & 0x03)) // bit 2 and 1 of b
	if es == 4 {
		if len(bs) == 0 {
			return s, e, nil, asn1rt.Errorf(asn1rt.ErrTruncated, "missing exponent length")
		}
		if bs[0] == 0 {
			return s, e, nil, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid exponent size")
		}
		es = int(bs[0])
		bs = bs[1:]
	}
	if es > 8 {
		return s, e, nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "exponent too large")
	}
	if len(bs) < es {
		return s, e, nil, asn1rt.Errorf(asn1rt.ErrTruncated, "missing exponent")
	}
	for i := 0; i < es; i++ {
		e = e<<8 | int64(bs[i])
		if i == 1 && (e&0xFF80 == 0xFF80 || e&0xFF80 == 0x0000) {
			return s, e, nil, asn1rt.Errorf(asn1rt.ErrConstraint, "non-minimal exponent")
		}
	}
	// Shift up and down in order to sign extend the exponent.
	e <<= 64 - es*8
	e >>= 64 - es*8

	// float64 uses base 2.
	// Scale the exponent for other bases and apply the correction factor.
	e = e<<base + e*int64(base&0b01)
	e += int64(f)
	return s, e, bs[es:], nil
}

// parseDecimal parses a float64 value from the decimal representation of a
// REAL value.
func parseDecimal(bs []byte) (float64, error) {
	nr := bs[0] & 0x3F
	if nr == 0 || nr > 3 {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid decimal number representation")
	}
	s := strings.TrimLeft(string(bs[1:]), " ")
	s = strings.Replace(s, ",", ".", 1)
	// strconv.ParseFloat accepts number that we don't so we do syntax validation
	if !validateDecimalReal(s, nr) {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid decimal number %q", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "%v", err)
	}
	return f, nil
}

// validateDecimalReal validates the syntax of s according to the number
// representation specified. The number representation can be NR1, NR2, or NR3,
// according to [ISO 6093].
//
// [ISO 6093]: https://www.iso.org/standard/12285.html
func validateDecimalReal(s string, nr byte) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	i := 0
	for ; i < len(s); i++ {
		if s[i] < '0' || '9' < s[i] {
			break
		}
	}
	if i == 0 && (nr == 1 || s == "" || s[0] != '.') {
		return false
	}
	s = s[i:]
	// NR1 parses only (signed) integers
	if nr == 1 || s == "" {
		return s == ""
	}
	if s[0] == '.' {
		for i = 1; i < len(s); i++ {
			if s[i] < '0' || '9' < s[i] {
				break
			}
		}
		s = s[i:]
	}
	// NR2 does not have an exponent
	if nr == 2 || s == "" {
		return s == ""
	}
	if s[0] != 'e' && s[0] != 'E' {
		return false
	}
	s = s[1:]
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i = 0; i < len(s); i++ {
		if s[i] < '0' || '9' < s[i] {
			return false
		}
	}
	return true
}
