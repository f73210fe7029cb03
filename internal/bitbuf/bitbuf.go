// Package bitbuf provides MSB-first bit-level reading and writing as used by
// the Packed Encoding Rules. Bit positions are counted from the start of the
// buffer; the first bit is the most significant bit of the first byte.
package bitbuf

import (
	"errors"
	"io"
)

// ErrWidth is returned for bit widths outside of 0..64.
var ErrWidth = errors.New("bitbuf: invalid bit width")

// A Writer accumulates bits into a byte slice. The zero value is an empty
// writer ready to use.
type Writer struct {
	buf []byte
	n   int // number of bits written
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return w.n
}

// PutBits writes the n least significant bits of v, most significant first.
// n must be between 0 and 64.
func (w *Writer) PutBits(v uint64, n int) {
	if n < 0 || n > 64 {
		panic(ErrWidth)
	}
	for n > 0 {
		off := w.n % 8
		if off == 0 {
			w.buf = append(w.buf, 0)
		}
		free := 8 - off
		take := min(free, n)
		chunk := byte(v>>(n-take)) & (0xFF >> (8 - take))
		w.buf[len(w.buf)-1] |= chunk << (free - take)
		w.n += take
		n -= take
	}
}

// PutBit writes a single bit.
func (w *Writer) PutBit(b bool) {
	if b {
		w.PutBits(1, 1)
	} else {
		w.PutBits(0, 1)
	}
}

// PutBytes writes all bits of b. If the writer is octet-aligned the bytes are
// copied directly.
func (w *Writer) PutBytes(b []byte) {
	if w.n%8 == 0 {
		w.buf = append(w.buf, b...)
		w.n += 8 * len(b)
		return
	}
	for _, c := range b {
		w.PutBits(uint64(c), 8)
	}
}

// PutBitString writes the first n bits of b.
func (w *Writer) PutBitString(b []byte, n int) {
	full := n / 8
	w.PutBytes(b[:full])
	if r := n % 8; r != 0 {
		w.PutBits(uint64(b[full]>>(8-r)), r)
	}
}

// Align pads the writer with zero bits up to the next octet boundary.
func (w *Writer) Align() {
	if off := w.n % 8; off != 0 {
		w.n += 8 - off
	}
}

// Bytes returns the written bits padded with zero bits to a whole number of
// bytes. The result aliases the internal buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// A Reader reads bits from a byte slice.
type Reader struct {
	buf []byte
	pos int // bit position
}

// NewReader creates a reader for b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Pos returns the number of bits read.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of bits left.
func (r *Reader) Remaining() int {
	return 8*len(r.buf) - r.pos
}

// GetBits reads n bits and returns them as the least significant bits of the
// result. If fewer than n bits remain, GetBits returns io.ErrUnexpectedEOF and
// does not advance.
func (r *Reader) GetBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, ErrWidth
	}
	if n > r.Remaining() {
		return 0, io.ErrUnexpectedEOF
	}
	var v uint64
	for n > 0 {
		off := r.pos % 8
		avail := 8 - off
		take := min(avail, n)
		c := r.buf[r.pos/8] >> (avail - take) & (0xFF >> (8 - take))
		v = v<<take | uint64(c)
		r.pos += take
		n -= take
	}
	return v, nil
}

// GetBit reads a single bit.
func (r *Reader) GetBit() (bool, error) {
	v, err := r.GetBits(1)
	return v == 1, err
}

// GetBytes reads n whole bytes into dst, which must have length n.
func (r *Reader) GetBytes(dst []byte) error {
	if 8*len(dst) > r.Remaining() {
		return io.ErrUnexpectedEOF
	}
	if r.pos%8 == 0 {
		copy(dst, r.buf[r.pos/8:])
		r.pos += 8 * len(dst)
		return nil
	}
	for i := range dst {
		v, _ := r.GetBits(8)
		dst[i] = byte(v)
	}
	return nil
}

// GetBitString reads n bits into dst, which must have length (n+7)/8. The
// trailing bits of the last byte are zero.
func (r *Reader) GetBitString(dst []byte, n int) error {
	if n > r.Remaining() {
		return io.ErrUnexpectedEOF
	}
	full := n / 8
	if err := r.GetBytes(dst[:full]); err != nil {
		return err
	}
	if rem := n % 8; rem != 0 {
		v, _ := r.GetBits(rem)
		dst[full] = byte(v) << (8 - rem)
	}
	return nil
}

// Align skips to the next octet boundary. Padding bits are not checked.
func (r *Reader) Align() error {
	if off := r.pos % 8; off != 0 {
		if 8-off > r.Remaining() {
			return io.ErrUnexpectedEOF
		}
		r.pos += 8 - off
	}
	return nil
}
