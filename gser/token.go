// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gser

import (
	"strings"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/scan"
)

type tokenKind uint8

const (
	tokenEOF tokenKind = iota
	tokenOpen
	tokenClose
	tokenComma
	tokenColon
	tokenString // "..."
	tokenBits   // '...'B
	tokenHex    // '...'H
	tokenNumber
	tokenIdent
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenOpen:
		return "'{'"
	case tokenClose:
		return "'}'"
	case tokenComma:
		return "','"
	case tokenColon:
		return "':'"
	case tokenString:
		return "string"
	case tokenBits:
		return "bit string"
	case tokenHex:
		return "hex string"
	case tokenNumber:
		return "number"
	}
	return "identifier"
}

// A token is a single lexical element of the value notation.
type token struct {
	kind tokenKind
	text string // contents of literals, without quotes for strings
	line int
	pos  int // offset of the first byte of the token
	end  int // offset after the last byte of the token
}

type state uint8

const (
	stateScan   state = iota // between tokens
	stateToken               // at the first byte of a token
	stateString              // inside "..."
	stateQuoted              // inside '...'
	stateNumber
	stateIdent
	stateReady // token complete
)

// A tokenizer splits GSER text into tokens.
type tokenizer struct {
	s      *scan.Scanner
	peeked *token
	last   int // end of the last consumed token
}

func newTokenizer(data []byte) *tokenizer {
	return &tokenizer{s: scan.New(data)}
}

// peek returns the next token without consuming it.
func (t *tokenizer) peek() (token, error) {
	if t.peeked == nil {
		tok, err := t.read()
		if err != nil {
			return token{}, err
		}
		t.peeked = &tok
	}
	return *t.peeked, nil
}

// next consumes the next token.
func (t *tokenizer) next() (token, error) {
	tok, err := t.peek()
	if err != nil {
		return token{}, err
	}
	t.peeked = nil
	t.last = tok.end
	return tok, nil
}

func (t *tokenizer) read() (token, error) {
	s := t.s
	var tok token
	var text strings.Builder
	for st := stateScan; st != stateReady; {
		switch st {
		case stateScan:
			s.SkipSpace()
			tok.pos, tok.line = s.Pos(), s.Line()
			st = stateToken
		case stateToken:
			c := s.Peek()
			st = stateReady
			switch {
			case s.EOF():
				tok.kind = tokenEOF
			case c == '{':
				s.Next()
				tok.kind = tokenOpen
			case c == '}':
				s.Next()
				tok.kind = tokenClose
			case c == ',':
				s.Next()
				tok.kind = tokenComma
			case c == ':':
				s.Next()
				tok.kind = tokenColon
			case c == '"':
				s.Next()
				tok.kind = tokenString
				st = stateString
			case c == '\'':
				s.Next()
				st = stateQuoted
			case c == '-' || scan.IsDigit(c):
				tok.kind = tokenNumber
				st = stateNumber
			case scan.IsLetter(c):
				tok.kind = tokenIdent
				st = stateIdent
			default:
				return token{}, s.Errorf(asn1rt.ErrMalformedTag, "unexpected character %q", c)
			}
		case stateString:
			for {
				if s.EOF() {
					return token{}, s.Errorf(asn1rt.ErrTruncated, "unterminated string")
				}
				c := s.Next()
				if c == '"' {
					if s.Peek() != '"' {
						break
					}
					s.Next()
				}
				text.WriteByte(c)
			}
			tok.text = text.String()
			st = stateReady
		case stateQuoted:
			from := s.Pos()
			if !s.SkipUntil("'") {
				return token{}, s.Errorf(asn1rt.ErrTruncated, "unterminated quoted string")
			}
			tok.text = string(s.Slice(from, s.Pos()-1))
			switch s.Peek() {
			case 'B':
				tok.kind = tokenBits
			case 'H':
				tok.kind = tokenHex
			default:
				return token{}, s.Errorf(asn1rt.ErrMalformedTag, "expected 'B' or 'H' after quoted string")
			}
			s.Next()
			st = stateReady
		case stateNumber:
			from := s.Pos()
			if s.Peek() == '-' {
				s.Next()
			}
			if !scan.IsDigit(s.Peek()) {
				return token{}, s.Errorf(asn1rt.ErrMalformedTag, "expected digit after '-'")
			}
			t.digits()
			for s.Peek() == '.' {
				s.Next()
				t.digits()
			}
			if c := s.Peek(); c == 'E' || c == 'e' {
				s.Next()
				if c := s.Peek(); c == '-' || c == '+' {
					s.Next()
				}
				if !scan.IsDigit(s.Peek()) {
					return token{}, s.Errorf(asn1rt.ErrMalformedTag, "expected exponent")
				}
				t.digits()
			}
			tok.text = string(s.Slice(from, s.Pos()))
			st = stateReady
		case stateIdent:
			from := s.Pos()
			for c := s.Peek(); scan.IsLetter(c) || scan.IsDigit(c) || c == '-'; c = s.Peek() {
				s.Next()
			}
			tok.text = string(s.Slice(from, s.Pos()))
			st = stateReady
		}
	}
	tok.end = s.Pos()
	return tok, nil
}

func (t *tokenizer) digits() {
	for scan.IsDigit(t.s.Peek()) {
		t.s.Next()
	}
}
