// Copyright © 2018-2020 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package gambit

import "fmt"

// Kind classifies an error into one of the four propagating error
// families. ClassifierInconsistent is deliberately absent: it never
// becomes a Go error, only a ClassifierResult.Error.
type Kind uint8

const (
	// KindInvalidInput covers bad KmerSpecs, mismatched specs between
	// query and reference signatures, and empty query sets.
	KindInvalidInput Kind = iota + 1
	// KindIncompatibleDatabase covers missing/duplicate DB files and
	// ids that don't resolve to genome records.
	KindIncompatibleDatabase
	// KindFormatError covers wrong format_version, malformed bounds,
	// corrupt containers.
	KindFormatError
	// KindIo covers file-not-found, permission, gzip and short reads.
	KindIo
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindIncompatibleDatabase:
		return "incompatible database"
	case KindFormatError:
		return "format error"
	case KindIo:
		return "I/O error"
	default:
		return "error"
	}
}

// Error is the single error type the core returns. It always carries a
// Kind so the CLI boundary (§7 exit code mapping) can dispatch on it
// without string matching.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// newErr builds a Kind-tagged Error with a formatted message.
func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// wrapErr tags an underlying error (typically from os/io) with a Kind.
func wrapErr(kind Kind, err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
