// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// These errors classify the failures reported by the codecs in this module.
// Every error returned by an encoder or decoder wraps exactly one of them and
// can be tested using [errors.Is].
var (
	// ErrTruncated indicates that the input ended before a complete value was
	// read.
	ErrTruncated = errors.New("truncated input")
	// ErrMalformedTag indicates an invalid tag encoding.
	ErrMalformedTag = errors.New("malformed tag")
	// ErrMalformedLength indicates an invalid length encoding or a length that
	// exceeds its enclosing element.
	ErrMalformedLength = errors.New("malformed length")
	// ErrConstraint indicates that a value or encoding violates the type
	// described by its descriptor.
	ErrConstraint = errors.New("constraint violation")
	// ErrUnknownSelector indicates that no CHOICE alternative or ENUMERATED
	// item matches a tag, name or index.
	ErrUnknownSelector = errors.New("unknown selector")
	// ErrUnsupported indicates a descriptor feature that the encoding rules
	// cannot process.
	ErrUnsupported = errors.New("unsupported")
	// ErrAllocation indicates that an [Allocator] refused to provide memory.
	ErrAllocation = errors.New("allocation failed")
)

// MaxMessageLen is the maximum length in bytes of [Error.Msg].
const MaxMessageLen = 256

// An Error describes a failure during encoding or decoding. Binary encoding
// rules report the byte offset of the failure, text encoding rules report the
// line number.
type Error struct {
	Err    error  // one of the sentinel errors of this package
	Offset int    // byte offset or -1 if unknown
	Line   int    // line number or 0 if unknown
	Msg    string // details, at most MaxMessageLen bytes
}

// Errorf creates a new error of the given kind. The offset and line of the
// returned error are unknown.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Err: kind, Offset: -1, Msg: truncate(fmt.Sprintf(format, args...))}
}

// At sets the offset of e if it is unknown and returns e.
func (e *Error) At(offset int) *Error {
	if e.Offset < 0 {
		e.Offset = offset
	}
	return e
}

// AtLine sets the line of e if it is unknown and returns e.
func (e *Error) AtLine(line int) *Error {
	if e.Line == 0 {
		e.Line = line
	}
	return e
}

// Error formats the error.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("asn1rt: ")
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	} else {
		sb.WriteString("error")
	}
	if e.Offset >= 0 {
		sb.WriteString(" at offset ")
		sb.WriteString(strconv.Itoa(e.Offset))
	}
	if e.Line > 0 {
		sb.WriteString(" on line ")
		sb.WriteString(strconv.Itoa(e.Line))
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	return sb.String()
}

// Unwrap returns the sentinel error classifying e.
func (e *Error) Unwrap() error {
	return e.Err
}

// At annotates err with a byte offset. If err is not an [*Error] it is
// classified as kind.
func At(err error, kind error, offset int) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.At(offset)
	}
	return Errorf(kind, "%s", err.Error()).At(offset)
}

// AtLine annotates err with a line number. If err is not an [*Error] it is
// classified as kind.
func AtLine(err error, kind error, line int) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.AtLine(line)
	}
	return Errorf(kind, "%s", err.Error()).AtLine(line)
}

// truncate shortens s to at most MaxMessageLen bytes without splitting a
// UTF-8 sequence.
func truncate(s string) string {
	if len(s) <= MaxMessageLen {
		return s
	}
	n := MaxMessageLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
