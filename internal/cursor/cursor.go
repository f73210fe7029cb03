// Package cursor implements bounded reading of byte-oriented encodings. All
// positions are offsets into the original input so that errors can report
// where a failure occurred.
package cursor

import (
	"codello.dev/asn1rt"
)

// A Cursor reads from a window of its input. Reads never go past the end of
// the window.
type Cursor struct {
	data []byte
	pos  int
	end  int
}

// New creates a cursor over all of data.
func New(data []byte) *Cursor {
	return &Cursor{data: data, end: len(data)}
}

// Pos returns the offset of the next byte within the original input.
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the number of bytes left in the window.
func (c *Cursor) Len() int {
	return c.end - c.pos
}

// overrun reports a read of n bytes past the end of the window. If the window
// ends before the input does, the enclosing length was wrong.
func (c *Cursor) overrun(n int) error {
	if c.end < len(c.data) && c.pos+n <= len(c.data) {
		return asn1rt.Errorf(asn1rt.ErrMalformedLength, "%d bytes exceed enclosing length", n).At(c.pos)
	}
	return asn1rt.Errorf(asn1rt.ErrTruncated, "need %d bytes, have %d", n, c.Len()).At(c.pos)
}

// Byte reads a single byte.
func (c *Cursor) Byte() (byte, error) {
	if c.pos >= c.end {
		return 0, c.overrun(1)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// Next returns the next n bytes. The result aliases the input.
func (c *Cursor) Next(n int) ([]byte, error) {
	if n < 0 || n > c.Len() {
		return nil, c.overrun(n)
	}
	b := c.data[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// Rest returns all remaining bytes of the window.
func (c *Cursor) Rest() []byte {
	b := c.data[c.pos:c.end:c.end]
	c.pos = c.end
	return b
}

// Peek returns the remaining bytes of the window without advancing.
func (c *Cursor) Peek() []byte {
	return c.data[c.pos:c.end:c.end]
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.Next(n)
	return err
}

// Limit returns a cursor over the next n bytes and advances c past them.
func (c *Cursor) Limit(n int) (*Cursor, error) {
	if n < 0 || n > c.Len() {
		return nil, c.overrun(n)
	}
	sub := &Cursor{data: c.data, pos: c.pos, end: c.pos + n}
	c.pos += n
	return sub, nil
}
