// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"unicode/utf8"
)

// Width returns the number of octets per character in the BER encoding of
// strings with the alphabet a. UTF8String has no fixed width and reports 0.
func (a Alphabet) Width() int {
	switch a {
	case AlphabetIA5, AlphabetPrintable, AlphabetNumeric, AlphabetVisible:
		return 1
	case AlphabetBMP:
		return 2
	case AlphabetUniversal:
		return 4
	}
	return 0
}

// Contains reports whether r is a character of the alphabet a.
func (a Alphabet) Contains(r rune) bool {
	switch a {
	case AlphabetIA5:
		return 0 <= r && r < utf8.RuneSelf
	case AlphabetPrintable:
		return r < utf8.RuneSelf && isPrintable(byte(r))
	case AlphabetNumeric:
		return '0' <= r && r <= '9' || r == ' '
	case AlphabetVisible:
		return ' ' <= r && r <= '~'
	case AlphabetBMP:
		return 0 <= r && r <= 0xFFFF && !(0xD800 <= r && r < 0xE000)
	default:
		return utf8.ValidRune(r)
	}
}

// Valid reports whether s is valid UTF-8 and consists of characters of a only.
func (a Alphabet) Valid(s string) bool {
	if a == AlphabetUTF8 || a == AlphabetUniversal {
		return utf8.ValidString(s)
	}
	for i, r := range s {
		if r == utf8.RuneError {
			if _, n := utf8.DecodeRuneInString(s[i:]); n == 1 {
				return false
			}
		}
		if !a.Contains(r) {
			return false
		}
	}
	return true
}

// isPrintable reports whether the given b is in the ASN.1 PrintableString set:
//
//	A-Z	// upper case letters
//	a-z	// lower case letters
//	0-9	// digits
//	 	// space
//	'	// apostrophe
//	()	// Parenthesis
//	+-/	// plus, hyphen, solidus
//	.,:	// fill stop, comma, colon
//	=	// equals sign
//	?	// question mark
func isPrintable(b byte) bool {
	return 'a' <= b && b <= 'z' ||
		'A' <= b && b <= 'Z' ||
		'0' <= b && b <= '9' ||
		'\'' <= b && b <= ')' ||
		'+' <= b && b <= '/' ||
		b == ' ' ||
		b == ':' ||
		b == '=' ||
		b == '?'
}
