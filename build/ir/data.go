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

package ir

import (
	"fmt"
	"strings"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir/irkind"
)

type (
	// Datum is an entry of the data given to build a kernel:
	// an argument, a temporary variable, a bare argument name or
	// the InferRest marker.
	Datum interface {
		datum()
	}

	// Argument of a kernel.
	Argument interface {
		Datum
		argument()

		// ArgName returns the name of the argument.
		ArgName() string

		// WithName returns a copy of the argument with a different name.
		WithName(name string) Argument

		String() string
	}

	// ValueArg is a scalar argument passed by value.
	ValueArg struct {
		Name string
		Kind irkind.Kind
	}

	// ArrayArg is an array argument stored in memory.
	ArrayArg struct {
		Name         string
		Kind         irkind.Kind
		AddressSpace AddressSpace
		Shape        Shape
		Strides      Shape
		Order        Order
		Offset       Offset
	}

	// ArgName is one or more comma-separated argument names.
	// The arguments are classified like the arguments inferred with InferRest.
	ArgName string

	inferRest struct{}
)

// InferRest requests that the arguments used by the instructions
// but not declared are inferred.
var InferRest Datum = inferRest{}

var (
	_ Argument = (*ValueArg)(nil)
	_ Argument = (*ArrayArg)(nil)
	_ Datum    = (*TemporaryVariable)(nil)
	_ Datum    = ArgName("")
)

func (*ValueArg) datum()          {}
func (*ArrayArg) datum()          {}
func (*TemporaryVariable) datum() {}
func (ArgName) datum()            {}
func (inferRest) datum()          {}

func (*ValueArg) argument() {}
func (*ArrayArg) argument() {}

// Names returns the names of a comma-separated list.
func (n ArgName) Names() []string {
	return SplitNames(string(n))
}

// SplitNames splits a comma-separated list of names.
// Empty names are ignored.
func SplitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// NewValueArg returns a scalar argument whose kind is inferred later.
func NewValueArg(name string) *ValueArg {
	return &ValueArg{Name: name, Kind: irkind.Auto}
}

// ArgName returns the name of the argument.
func (a *ValueArg) ArgName() string {
	return a.Name
}

// WithName returns a copy of the argument with a different name.
func (a *ValueArg) WithName(name string) Argument {
	c := *a
	c.Name = name
	return &c
}

func (a *ValueArg) String() string {
	return fmt.Sprintf("%s: ValueArg, type: %s", a.Name, a.Kind)
}

// NewGlobalArg returns an array argument in global memory whose shape
// and strides are inferred.
func NewGlobalArg(name string, offset Offset) *ArrayArg {
	return &ArrayArg{
		Name:         name,
		Kind:         irkind.Auto,
		AddressSpace: Global,
		Shape:        AutoShape,
		Strides:      AutoShape,
		Offset:       offset,
	}
}

// ArgName returns the name of the argument.
func (a *ArrayArg) ArgName() string {
	return a.Name
}

// WithName returns a copy of the argument with a different name.
func (a *ArrayArg) WithName(name string) Argument {
	c := *a
	c.Name = name
	return &c
}

// WithShape returns a copy of the argument with a different shape.
func (a *ArrayArg) WithShape(shape Shape) *ArrayArg {
	c := *a
	c.Shape = shape
	return &c
}

// WithStrides returns a copy of the argument with different strides.
func (a *ArrayArg) WithStrides(strides Shape) *ArrayArg {
	c := *a
	c.Strides = strides
	return &c
}

// WithOrder returns a copy of the argument with a different memory order.
func (a *ArrayArg) WithOrder(order Order) *ArrayArg {
	c := *a
	c.Order = order
	return &c
}

// NBytes returns the size in bytes of the elements of the array
// addressed by its shape. Returns false if its kind or its shape is not known yet.
func (a *ArrayArg) NBytes() (int, bool) {
	return nbytes(a.Shape, a.Kind)
}

func (a *ArrayArg) String() string {
	return fmt.Sprintf("%s: %s, type: %s, shape: %s, strides: %s, order: %s, offset: %s",
		a.Name, a.AddressSpace, a.Kind, a.Shape, a.Strides, a.Order, a.Offset)
}

// AddressSpace is the memory in which an array argument is stored.
type AddressSpace int

const (
	// Global memory, readable and writable by all work items.
	Global AddressSpace = iota
	// Constant memory, read-only.
	Constant
	// Local memory, shared by the work items of a group.
	Local
)

func (s AddressSpace) String() string {
	switch s {
	case Constant:
		return "ConstantArg"
	case Local:
		return "LocalArg"
	}
	return "GlobalArg"
}

// Scope is the storage locality of a temporary variable.
type Scope int

const (
	// ScopeAuto is a scope decided later in the compilation.
	ScopeAuto Scope = iota
	// ScopePrivate is a variable private to a work item.
	ScopePrivate
	// ScopeLocal is a variable shared by the work items of a group.
	ScopeLocal
)

// ParseScope returns a scope given its name.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "auto":
		return ScopeAuto, nil
	case "private":
		return ScopePrivate, nil
	case "local":
		return ScopeLocal, nil
	}
	return ScopeAuto, fmterr.ParseErrorf("invalid scope %q", s)
}

func (s Scope) String() string {
	switch s {
	case ScopePrivate:
		return "private"
	case ScopeLocal:
		return "local"
	}
	return "auto"
}

// TemporaryVariable is a variable of the kernel not visible outside the kernel.
type TemporaryVariable struct {
	Name        string
	Kind        irkind.Kind
	Shape       Shape
	BaseIndices Shape
	Scope       Scope
}

// NewTemporary returns a temporary whose shape and base indices are inferred.
func NewTemporary(name string, kind irkind.Kind) *TemporaryVariable {
	return &TemporaryVariable{
		Name:        name,
		Kind:        kind,
		Shape:       AutoShape,
		BaseIndices: AutoShape,
	}
}

// NBytes returns the size in bytes of the temporary.
// Returns false if its kind or its shape is not known yet.
func (tv *TemporaryVariable) NBytes() (int, bool) {
	return nbytes(tv.Shape, tv.Kind)
}

// WithName returns a copy of the temporary with a different name.
func (tv *TemporaryVariable) WithName(name string) *TemporaryVariable {
	c := *tv
	c.Name = name
	return &c
}

// WithShape returns a copy of the temporary with a different shape and base indices.
func (tv *TemporaryVariable) WithShape(shape, baseIndices Shape) *TemporaryVariable {
	c := *tv
	c.Shape = shape
	c.BaseIndices = baseIndices
	return &c
}

func (tv *TemporaryVariable) String() string {
	return fmt.Sprintf("%s: type: %s, shape: %s, base indices: %s, scope: %s",
		tv.Name, tv.Kind, tv.Shape, tv.BaseIndices, tv.Scope)
}
