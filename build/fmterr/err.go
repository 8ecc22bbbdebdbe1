// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fmterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is a kernel creation error of a given kind.
type Error struct {
	kind Kind
	src  string
	err  error
}

// Errorf returns a new error of a given kind.
func Errorf(kind Kind, format string, a ...any) error {
	return &Error{kind: kind, err: errors.Errorf(format, a...)}
}

// Wrap an existing error into an error of a given kind.
// Returns nil if err is nil.
func Wrap(kind Kind, err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: errors.Wrapf(err, format, a...)}
}

// WithSrc attaches the source text (an instruction, a domain, ...) that
// caused the error. Errors without a kind are returned unchanged.
func WithSrc(err error, src string) error {
	var kErr *Error
	if !errors.As(err, &kErr) {
		return err
	}
	if kErr.src != "" {
		return err
	}
	return &Error{kind: kErr.kind, src: src, err: err}
}

// ParseErrorf returns a ParseError.
func ParseErrorf(format string, a ...any) error {
	return Errorf(ParseError, format, a...)
}

// NameErrorf returns a NameError.
func NameErrorf(format string, a ...any) error {
	return Errorf(NameError, format, a...)
}

// BoundErrorf returns a BoundError.
func BoundErrorf(format string, a ...any) error {
	return Errorf(BoundError, format, a...)
}

// ConvexityErrorf returns a ConvexityError.
func ConvexityErrorf(format string, a ...any) error {
	return Errorf(ConvexityError, format, a...)
}

// WriterCountErrorf returns a WriterCountError.
func WriterCountErrorf(format string, a ...any) error {
	return Errorf(WriterCountError, format, a...)
}

// TagErrorf returns a TagError.
func TagErrorf(format string, a ...any) error {
	return Errorf(TagError, format, a...)
}

// Internalf returns an internal error, that is a bug in the compiler.
func Internalf(format string, a ...any) error {
	return &Error{kind: Internal, err: errors.Errorf("internal error. This is a bug. Please report it. Error:\n"+format, a...)}
}

// Kind of the error.
func (err *Error) Kind() Kind {
	return err.kind
}

// Src returns the source text attached to the error, if any.
func (err *Error) Src() string {
	return err.src
}

// Error returns a string description of the error.
func (err *Error) Error() string {
	if err.src == "" {
		return err.kind.String() + ": " + err.err.Error()
	}
	if inner, ok := err.err.(*Error); ok {
		return fmt.Sprintf("%s (in %q)", inner.Error(), err.src)
	}
	return fmt.Sprintf("%s: %s (in %q)", err.kind.String(), err.err.Error(), err.src)
}

// Unwrap the error.
func (err *Error) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
func (err *Error) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

// KindOf returns the kind of the first typed error found in the chain of err.
func KindOf(err error) (Kind, bool) {
	var kErr *Error
	if !errors.As(err, &kErr) {
		return Internal, false
	}
	return kErr.kind, true
}

// Is returns true if err, or an error it wraps or combines, is of the given kind.
func Is(err error, kind Kind) bool {
	for _, e := range All(err) {
		got, ok := KindOf(e)
		if ok && got == kind {
			return true
		}
	}
	return false
}
