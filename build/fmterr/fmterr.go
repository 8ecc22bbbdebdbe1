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

// Package fmterr provides typed errors for kernel creation and helpers
// to accumulate and format them.
package fmterr

import "fmt"

// Kind of a kernel creation error.
type Kind int

// Kinds of errors reported while creating a kernel.
const (
	// Internal is an error that should never be reported to a user.
	Internal Kind = iota
	// ParseError is malformed instruction, domain or argument text.
	ParseError
	// NameError is a duplicate, undeclared or colliding name.
	NameError
	// BoundError is a missing static bound or a multi-valued value
	// in a single-valued context.
	BoundError
	// ConvexityError is a set without a convex representation.
	ConvexityError
	// WriterCountError is a data-dependent loop bound without exactly one writer.
	WriterCountError
	// TagError is an iname tag inconsistent with the use of the iname.
	TagError
)

// String returns a string representation of a kind.
func (k Kind) String() string {
	switch k {
	case ParseError:
		return "parse error"
	case NameError:
		return "name error"
	case BoundError:
		return "bound error"
	case ConvexityError:
		return "convexity error"
	case WriterCountError:
		return "writer count error"
	case TagError:
		return "tag error"
	}
	return "internal error"
}

// PrefixWith returns a function to prefix errors with a formatted string.
func PrefixWith(s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s%w", fmt.Sprintf(s, o...), err)
	}
}
