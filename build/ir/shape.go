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
	"go/token"
	"strings"

	"github.com/gx-org/backend/shape"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/symbolic"
)

// Shape is a list of axis lengths (or strides, or base indices) of a variable.
// The zero value is the shape of a scalar.
type Shape struct {
	auto bool
	Axes []symbolic.Expr
}

// AutoShape is a shape inferred during the build of the kernel.
var AutoShape = Shape{auto: true}

// NewShape returns a shape given the expressions of its axes.
func NewShape(axes ...symbolic.Expr) Shape {
	return Shape{Axes: axes}
}

// IntShape returns a shape with constant axes.
func IntShape(axes ...int64) Shape {
	s := Shape{Axes: make([]symbolic.Expr, len(axes))}
	for i, axis := range axes {
		s.Axes[i] = symbolic.NewInt(axis)
	}
	return s
}

// ParseShape parses a comma-separated list of expressions.
// Surrounding parentheses are optional. The string "auto" is the auto shape.
func ParseShape(src string) (Shape, error) {
	src = strings.TrimSpace(src)
	if src == "auto" {
		return AutoShape, nil
	}
	if strings.HasPrefix(src, "(") && strings.HasSuffix(src, ")") && closingParen(src) == len(src)-1 {
		src = src[1 : len(src)-1]
	}
	var axes []symbolic.Expr
	for _, part := range splitTopLevel(src) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		x, err := symbolic.Parse(part)
		if err != nil {
			return Shape{}, fmterr.Wrap(fmterr.ParseError, err, "invalid shape %q", src)
		}
		axes = append(axes, x)
	}
	return NewShape(axes...), nil
}

func closingParen(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits a string on the commas that are not nested in brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// IsAuto returns true if the shape still needs to be inferred.
func (s Shape) IsAuto() bool {
	return s.auto
}

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return len(s.Axes)
}

// Map returns a shape where f has been applied to every axis.
// An auto shape is returned unchanged.
func (s Shape) Map(f func(symbolic.Expr) symbolic.Expr) Shape {
	if s.auto {
		return s
	}
	r := Shape{Axes: make([]symbolic.Expr, len(s.Axes))}
	for i, axis := range s.Axes {
		r.Axes[i] = f(axis)
	}
	return r
}

// Dependencies returns the names the axes of the shape depend on.
func (s Shape) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, axis := range s.Axes {
		for _, dep := range symbolic.Dependencies(axis) {
			if !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
			}
		}
	}
	return deps
}

// Concrete returns the shape of an array of a given kind if all the axes are constants.
func (s Shape) Concrete(kind irkind.Kind) (*shape.Shape, bool) {
	if s.auto {
		return nil, false
	}
	lengths := make([]int, len(s.Axes))
	for i, axis := range s.Axes {
		cst, ok := symbolic.Fold(axis).(*symbolic.Int)
		if !ok {
			return nil, false
		}
		lengths[i] = int(cst.Value)
	}
	return &shape.Shape{DType: kind.DType(), AxisLengths: lengths}, true
}

// nbytes returns the size in bytes of an array of a given kind
// if all the axes of its shape are constants.
func nbytes(s Shape, kind irkind.Kind) (int, bool) {
	if kind.Size() == 0 {
		return 0, false
	}
	concrete, ok := s.Concrete(kind)
	if !ok {
		return 0, false
	}
	return concrete.ByteSize(), true
}

// Equal returns true if two shapes are structurally identical.
func (s Shape) Equal(o Shape) bool {
	if s.auto != o.auto || len(s.Axes) != len(o.Axes) {
		return false
	}
	for i, axis := range s.Axes {
		if !symbolic.Equal(axis, o.Axes[i]) {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	if s.auto {
		return "auto"
	}
	axes := make([]string, len(s.Axes))
	for i, axis := range s.Axes {
		axes[i] = axis.String()
	}
	return "(" + strings.Join(axes, ", ") + ")"
}

// Order is the memory layout of the elements of an array.
type Order int

const (
	// OrderC is the row-major order: the last axis is contiguous.
	OrderC Order = iota
	// OrderF is the column-major order: the first axis is contiguous.
	OrderF
)

// ParseOrder returns an order given its name ("C" or "F").
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(s) {
	case "", "C":
		return OrderC, nil
	case "F":
		return OrderF, nil
	}
	return OrderC, fmterr.ParseErrorf("invalid memory order %q: must be C or F", s)
}

func (o Order) String() string {
	if o == OrderF {
		return "F"
	}
	return "C"
}

// MakeStrides returns the strides, in number of elements, of an array
// of a given shape stored contiguously in a given order.
func MakeStrides(s Shape, order Order) Shape {
	n := len(s.Axes)
	strides := make([]symbolic.Expr, n)
	var stride symbolic.Expr = symbolic.NewInt(1)
	for k := range n {
		i := k
		if order == OrderC {
			i = n - 1 - k
		}
		strides[i] = stride
		stride = symbolic.Fold(&symbolic.Binary{Op: token.MUL, X: stride, Y: s.Axes[i]})
	}
	return NewShape(strides...)
}

// Offset is the offset of the first element of an array argument.
// The zero value is an offset of 0.
type Offset struct {
	auto bool
	Expr symbolic.Expr
}

// AutoOffset is an offset given at runtime.
var AutoOffset = Offset{auto: true}

// IsAuto returns true if the offset is given at runtime.
func (o Offset) IsAuto() bool {
	return o.auto
}

// ParseOffset parses an offset: "auto" for an offset given at runtime,
// an expression otherwise. An empty string is an offset of 0.
func ParseOffset(src string) (Offset, error) {
	src = strings.TrimSpace(src)
	switch src {
	case "":
		return Offset{}, nil
	case "auto":
		return AutoOffset, nil
	}
	x, err := symbolic.Parse(src)
	if err != nil {
		return Offset{}, fmterr.Wrap(fmterr.ParseError, err, "invalid offset %q", src)
	}
	return Offset{Expr: x}, nil
}

func (o Offset) String() string {
	switch {
	case o.auto:
		return "auto"
	case o.Expr == nil:
		return "0"
	}
	return o.Expr.String()
}
