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

// Package irkind defines the element kinds of kernel variables.
package irkind

import (
	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
)

// Kind of the elements of a variable.
type Kind uint

// DefaultInt is the default kind for integer.
const DefaultInt = Int64

// Element kinds supported by kernels.
const (
	Invalid = Kind(dtype.Invalid)

	Bool     = Kind(dtype.Bool)
	Int32    = Kind(dtype.Int32)
	Int64    = Kind(dtype.Int64)
	Uint32   = Kind(dtype.Uint32)
	Uint64   = Kind(dtype.Uint64)
	Bfloat16 = Kind(dtype.Bfloat16)
	Float32  = Kind(dtype.Float32)
	Float64  = Kind(dtype.Float64)

	// Auto is the kind of a variable whose kind is inferred later in the compilation.
	Auto = Kind(iota + dtype.MaxDataType)
)

// String returns a string representation of a kind.
func (k Kind) String() string {
	switch k {
	case Auto:
		return "auto"
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Bfloat16:
		return "bfloat16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return "invalid"
}

// DType converts a kind into an array data type.
// Auto and invalid kinds return an invalid data type.
func (k Kind) DType() dtype.DataType {
	if k >= dtype.MaxDataType {
		return dtype.Invalid
	}
	return dtype.DataType(k)
}

// IsAuto returns true if the kind still needs to be inferred.
func (k Kind) IsAuto() bool {
	return k == Auto
}

// Size returns the size in bytes of an element of the kind.
// Returns 0 for auto and invalid kinds.
func (k Kind) Size() int {
	dt := k.DType()
	if dt == dtype.Invalid {
		return 0
	}
	return dtype.Sizeof(dt)
}

// KindFromString returns a kind given the name of a type.
// The empty string is the auto kind.
// Common aliases such as "float" or "int" are accepted.
func KindFromString(ident string) (Kind, error) {
	switch ident {
	case "", "auto":
		return Auto, nil
	case "bool":
		return Bool, nil
	case "bfloat16":
		return Bfloat16, nil
	case "float32", "single":
		return Float32, nil
	case "float64", "float", "double":
		return Float64, nil
	case "int32":
		return Int32, nil
	case "int64", "int":
		return Int64, nil
	case "uint32":
		return Uint32, nil
	case "uint64", "uint":
		return Uint64, nil
	}
	return Invalid, errors.Errorf("unknown data type %q", ident)
}

// IsIntegerKind return true if kind is an integer.
func IsIntegerKind(kind Kind) bool {
	switch kind {
	case Int32, Int64, Uint32, Uint64:
		return true
	}
	return false
}
