// Package vlq implements [Variable-length quantity] encoding as used in BER tag
// numbers and object identifier arcs. A VLQ is a base-128 representation of an
// unsigned integer with the eighth bit of every byte but the last marking
// continuation.
//
// [Variable-length quantity]: https://en.wikipedia.org/wiki/Variable-length_quantity
package vlq

import (
	"errors"
	"math/bits"
	"unsafe"
)

// Errors reported by [Parse] and [ParseMinimal].
var (
	ErrNotMinimal = errors.New("vlq is not minimally encoded")
	ErrOverflow   = errors.New("vlq too large for target type")
	ErrTruncated  = errors.New("vlq is truncated")
)

// Unsigned is the set of types a VLQ can be parsed into.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Parse decodes an unsigned VLQ from the start of b and returns the value and
// the number of bytes consumed. The maximum allowed value is limited by the
// size of T. Parse ignores an arbitrary amount of leading zeros (encoded as
// 0x80 bytes). Use [ParseMinimal] to require a minimal encoding.
func Parse[T Unsigned](b []byte) (T, int, error) {
	return parse[T](b, false)
}

// ParseMinimal works like [Parse] but returns ErrNotMinimal if the VLQ starts
// with a 0x80 byte.
func ParseMinimal[T Unsigned](b []byte) (T, int, error) {
	return parse[T](b, true)
}

func parse[T Unsigned](b []byte, minimal bool) (ret T, n int, err error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	if b[0] == 0x80 && minimal {
		return 0, 0, ErrNotMinimal
	}
	numBits := 0
	for ; n < len(b); n++ {
		c := b[n]
		if numBits == 0 {
			numBits = bits.Len8(c & 0x7f)
		} else {
			numBits += 7
		}
		if numBits > int(unsafe.Sizeof(ret)*8) {
			return 0, n, ErrOverflow
		}
		ret = ret<<7 | T(c&0x7f)
		if c&0x80 == 0 {
			return ret, n + 1, nil
		}
	}
	return 0, n, ErrTruncated
}

// Skip returns the length of the VLQ at the start of b without decoding it.
func Skip(b []byte) (int, error) {
	for i, c := range b {
		if c&0x80 == 0 {
			return i + 1, nil
		}
	}
	return len(b), ErrTruncated
}

// Length returns the number of bytes needed to encode n as a VLQ.
func Length[T Unsigned](n T) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(uint64(n)) + 6) / 7
}

// Append appends the VLQ encoding of i to b.
func Append[T Unsigned](b []byte, i T) []byte {
	for j := Length(i) - 1; j >= 0; j-- {
		c := byte(uint64(i)>>(j*7)) & 0x7f
		if j > 0 {
			c |= 0x80
		}
		b = append(b, c)
	}
	return b
}
