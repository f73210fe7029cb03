// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/scan"
)

type tokenKind uint8

const (
	tokenEOF tokenKind = iota
	tokenStart
	tokenEnd
	tokenText
)

// A token is a start tag, an end tag or a run of character data. Self-closing
// tags are reported as a start tag followed by a synthetic end tag.
type token struct {
	kind tokenKind
	name string // element name of tags
	text string // character data with references resolved
	line int
	pos  int // offset of the first byte of the token
	end  int // offset after the last byte of the token
}

// state is the state of the tokenizer within a single token.
type state uint8

const (
	stateScan    state = iota // between tokens
	stateMarkup               // at '<'
	stateTag                  // inside a start or end tag
	stateContent              // inside character data
	stateReady                // token complete
)

// A tokenizer splits an XML document into tokens. Comments, processing
// instructions and declarations are skipped. Attributes are ignored.
type tokenizer struct {
	s      *scan.Scanner
	peeked *token
	closer *token // synthetic end tag of a self-closing tag
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
	if t.peeked != nil {
		tok := *t.peeked
		t.peeked = nil
		return tok, nil
	}
	return t.read()
}

func (t *tokenizer) read() (token, error) {
	if t.closer != nil {
		tok := *t.closer
		t.closer = nil
		return tok, nil
	}
	s := t.s
	var tok token
	var text strings.Builder
	for st := stateScan; st != stateReady; {
		switch st {
		case stateScan:
			tok.pos, tok.line = s.Pos(), s.Line()
			switch {
			case s.EOF():
				tok.kind = tokenEOF
				st = stateReady
			case s.Peek() == '<':
				st = stateMarkup
			default:
				tok.kind = tokenText
				st = stateContent
			}
		case stateMarkup:
			switch {
			case s.HasPrefix("<!--"):
				if !s.SkipUntil("-->") {
					return token{}, s.Errorf(asn1rt.ErrTruncated, "unterminated comment")
				}
				st = stateScan
			case s.HasPrefix("<![CDATA["):
				s.Skip(len("<![CDATA["))
				from := s.Pos()
				if !s.SkipUntil("]]>") {
					return token{}, s.Errorf(asn1rt.ErrTruncated, "unterminated CDATA section")
				}
				tok.kind = tokenText
				tok.text = string(s.Slice(from, s.Pos()-len("]]>")))
				st = stateReady
			case s.HasPrefix("<?"):
				if !s.SkipUntil("?>") {
					return token{}, s.Errorf(asn1rt.ErrTruncated, "unterminated processing instruction")
				}
				st = stateScan
			case s.HasPrefix("<!"):
				if !s.SkipUntil(">") {
					return token{}, s.Errorf(asn1rt.ErrTruncated, "unterminated declaration")
				}
				st = stateScan
			default:
				st = stateTag
			}
		case stateTag:
			if err := t.tag(&tok); err != nil {
				return token{}, err
			}
			st = stateReady
		case stateContent:
			for !s.EOF() && s.Peek() != '<' {
				if s.Peek() != '&' {
					text.WriteByte(s.Next())
					continue
				}
				r, err := t.reference()
				if err != nil {
					return token{}, err
				}
				text.WriteRune(r)
			}
			tok.text = text.String()
			st = stateReady
		}
	}
	tok.end = t.s.Pos()
	return tok, nil
}

// tag reads a start or end tag into tok.
func (t *tokenizer) tag(tok *token) error {
	s := t.s
	s.Next() // '<'
	tok.kind = tokenStart
	if s.Peek() == '/' {
		s.Next()
		tok.kind = tokenEnd
	}
	if tok.name = t.name(); tok.name == "" {
		return t.unexpected("element name")
	}
	for {
		s.SkipSpace()
		switch c := s.Peek(); {
		case s.EOF():
			return s.Errorf(asn1rt.ErrTruncated, "unterminated tag <%s>", tok.name)
		case c == '>':
			s.Next()
			return nil
		case c == '/' && s.PeekAt(1) == '>' && tok.kind == tokenStart:
			s.Skip(2)
			t.closer = &token{kind: tokenEnd, name: tok.name, line: s.Line(), pos: s.Pos(), end: s.Pos()}
			return nil
		case tok.kind == tokenEnd:
			return t.unexpected("'>'")
		}
		if err := t.attribute(); err != nil {
			return err
		}
	}
}

// attribute skips an attribute of a start tag.
func (t *tokenizer) attribute() error {
	s := t.s
	if t.name() == "" {
		return t.unexpected("attribute name")
	}
	s.SkipSpace()
	if s.Peek() != '=' {
		return t.unexpected("'='")
	}
	s.Next()
	s.SkipSpace()
	q := s.Peek()
	if q != '"' && q != '\'' {
		return t.unexpected("quoted attribute value")
	}
	s.Next()
	if !s.SkipUntil(string(q)) {
		return s.Errorf(asn1rt.ErrTruncated, "unterminated attribute value")
	}
	return nil
}

// name reads an XML name. It returns the empty string if no name starts at
// the current position.
func (t *tokenizer) name() string {
	s := t.s
	from := s.Pos()
	for !s.EOF() {
		c := s.Peek()
		if scan.IsLetter(c) || c == '_' || c == ':' || c >= utf8.RuneSelf ||
			s.Pos() > from && (scan.IsDigit(c) || c == '-' || c == '.') {
			s.Next()
			continue
		}
		break
	}
	return string(s.Slice(from, s.Pos()))
}

// reference reads a character or entity reference.
func (t *tokenizer) reference() (rune, error) {
	s := t.s
	line := s.Line()
	s.Next() // '&'
	from := s.Pos()
	for !s.EOF() && s.Peek() != ';' && s.Pos()-from < 12 {
		s.Next()
	}
	if s.Peek() != ';' {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "unterminated reference").AtLine(line)
	}
	ref := string(s.Slice(from, s.Pos()))
	s.Next()
	switch ref {
	case "lt":
		return '<', nil
	case "gt":
		return '>', nil
	case "amp":
		return '&', nil
	case "quot":
		return '"', nil
	case "apos":
		return '\'', nil
	}
	var n uint64
	var err error
	switch {
	case strings.HasPrefix(ref, "#x"):
		n, err = strconv.ParseUint(ref[2:], 16, 32)
	case strings.HasPrefix(ref, "#"):
		n, err = strconv.ParseUint(ref[1:], 10, 32)
	default:
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "unknown entity &%s;", ref).AtLine(line)
	}
	if err != nil || !utf8.ValidRune(rune(n)) {
		return 0, asn1rt.Errorf(asn1rt.ErrConstraint, "invalid character reference &%s;", ref).AtLine(line)
	}
	return rune(n), nil
}

func (t *tokenizer) unexpected(want string) error {
	if t.s.EOF() {
		return t.s.Errorf(asn1rt.ErrTruncated, "expected %s", want)
	}
	return t.s.Errorf(asn1rt.ErrMalformedTag, "expected %s, found %q", want, t.s.Peek())
}
