// Package scan provides the byte scanner underlying the tokenizers of the text
// encoding rules. A Scanner tracks the current offset and line number and
// never reads past its input.
package scan

import (
	"bytes"

	"codello.dev/asn1rt"
)

// A Scanner reads bytes from a fixed input. Lines are counted from 1.
type Scanner struct {
	data []byte
	pos  int
	line int
}

// New creates a scanner for data.
func New(data []byte) *Scanner {
	return &Scanner{data: data, line: 1}
}

// Pos returns the offset of the next byte.
func (s *Scanner) Pos() int { return s.pos }

// Line returns the line of the next byte.
func (s *Scanner) Line() int { return s.line }

// EOF reports whether the input is exhausted.
func (s *Scanner) EOF() bool { return s.pos >= len(s.data) }

// Peek returns the next byte without consuming it. It returns 0 at the end of
// the input.
func (s *Scanner) Peek() byte {
	if s.pos >= len(s.data) {
		return 0
	}
	return s.data[s.pos]
}

// PeekAt returns the byte i positions after the next byte or 0.
func (s *Scanner) PeekAt(i int) byte {
	if s.pos+i >= len(s.data) {
		return 0
	}
	return s.data[s.pos+i]
}

// HasPrefix reports whether the remaining input starts with p.
func (s *Scanner) HasPrefix(p string) bool {
	return bytes.HasPrefix(s.data[s.pos:], []byte(p))
}

// Next consumes and returns the next byte.
func (s *Scanner) Next() byte {
	c := s.data[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
	}
	return c
}

// Skip consumes n bytes.
func (s *Scanner) Skip(n int) {
	for range min(n, len(s.data)-s.pos) {
		s.Next()
	}
}

// SkipUntil consumes bytes up to and including the first occurrence of p. It
// reports false if p does not occur; the input is then exhausted.
func (s *Scanner) SkipUntil(p string) bool {
	i := bytes.Index(s.data[s.pos:], []byte(p))
	if i < 0 {
		s.Skip(len(s.data) - s.pos)
		return false
	}
	s.Skip(i + len(p))
	return true
}

// SkipSpace consumes XML and ASN.1 white space.
func (s *Scanner) SkipSpace() {
	for !s.EOF() && IsSpace(s.Peek()) {
		s.Next()
	}
}

// Slice returns the input between the offsets from and to.
func (s *Scanner) Slice(from, to int) []byte {
	return s.data[from:to]
}

// Errorf creates an error positioned at the current line.
func (s *Scanner) Errorf(kind error, format string, args ...any) *asn1rt.Error {
	return asn1rt.Errorf(kind, format, args...).AtLine(s.line)
}

// IsSpace reports whether c is a white space character.
func IsSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// IsLetter reports whether c is an ASCII letter.
func IsLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// IsDigit reports whether c is an ASCII digit.
func IsDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
