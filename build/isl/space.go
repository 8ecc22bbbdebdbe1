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

// Package isl is a small integer set library.
//
// It provides the Presburger primitives needed by kernel creation:
// affine functions, basic sets (conjunctions of affine constraints),
// sets (finite unions of basic sets) and piecewise affine functions,
// all defined over a space of parameter and set dimensions.
//
// Objects are aligned by dimension name: when two objects are combined,
// a named dimension of one operand matches the dimension of the other
// operand with the same name, whatever its type. Names missing from one
// operand are added to it as parameters. Unnamed set dimensions are matched
// by position.
//
// Emptiness is decided by Fourier-Motzkin elimination with integer
// tightening of every derived constraint. The test is exact for
// constraints with unit coefficients, which covers loop domains.
// For other sets a set reported as non-empty may only contain rational
// points, so inclusion tests can answer false for sets that are included.
package isl

import (
	"slices"
	"strconv"
	"strings"
)

// DimType is the type of a dimension in a space.
type DimType int

const (
	// Param is a parameter dimension.
	Param DimType = iota
	// SetDim is a set dimension.
	SetDim
)

func (t DimType) String() string {
	if t == Param {
		return "param"
	}
	return "set"
}

// Space defines the dimensions of an object.
// Columns of constraints are ordered: parameters first, then set dimensions.
type Space struct {
	params []string
	set    []string
}

// NewSpace returns a space given the names of its parameters and set dimensions.
// An empty name is an unnamed dimension.
func NewSpace(params, set []string) *Space {
	return &Space{
		params: slices.Clone(params),
		set:    slices.Clone(set),
	}
}

// SetSpace returns a space without parameters.
func SetSpace(set ...string) *Space {
	return NewSpace(nil, set)
}

// Dim returns the number of dimensions of a given type.
func (s *Space) Dim(t DimType) int {
	if t == Param {
		return len(s.params)
	}
	return len(s.set)
}

// DimName returns the name of a dimension.
func (s *Space) DimName(t DimType, pos int) string {
	if t == Param {
		return s.params[pos]
	}
	return s.set[pos]
}

// Names returns the names of all the dimensions of a given type.
func (s *Space) Names(t DimType) []string {
	if t == Param {
		return slices.Clone(s.params)
	}
	return slices.Clone(s.set)
}

// Find returns the type and the position of a named dimension.
func (s *Space) Find(name string) (DimType, int, bool) {
	if name == "" {
		return Param, -1, false
	}
	if i := slices.Index(s.params, name); i >= 0 {
		return Param, i, true
	}
	if i := slices.Index(s.set, name); i >= 0 {
		return SetDim, i, true
	}
	return Param, -1, false
}

// VarDict returns a map from the dimension names of a given type to their positions.
func (s *Space) VarDict(t DimType) map[string]int {
	r := make(map[string]int)
	for i, name := range s.Names(t) {
		if name != "" {
			r[name] = i
		}
	}
	return r
}

// Equal returns true if both spaces have the same dimensions in the same order.
func (s *Space) Equal(o *Space) bool {
	return slices.Equal(s.params, o.params) && slices.Equal(s.set, o.set)
}

// ParamSpace returns the space with the parameters of s and no set dimension.
func (s *Space) ParamSpace() *Space {
	return NewSpace(s.params, nil)
}

// String returns a string representation of the space.
func (s *Space) String() string {
	var b strings.Builder
	if len(s.params) > 0 {
		b.WriteString("[" + strings.Join(s.names(Param), ", ") + "] -> ")
	}
	b.WriteString("{ [" + strings.Join(s.names(SetDim), ", ") + "] }")
	return b.String()
}

func (s *Space) names(t DimType) []string {
	names := s.Names(t)
	for i, name := range names {
		if name == "" {
			names[i] = unnamed(t, i)
		}
	}
	return names
}

func unnamed(t DimType, pos int) string {
	if t == Param {
		return "_p" + strconv.Itoa(pos)
	}
	return "_i" + strconv.Itoa(pos)
}

func (s *Space) ncols() int {
	return len(s.params) + len(s.set)
}

func (s *Space) col(t DimType, pos int) int {
	if t == Param {
		return pos
	}
	return len(s.params) + pos
}

func (s *Space) colName(col int) string {
	if col < len(s.params) {
		return s.params[col]
	}
	return s.set[col-len(s.params)]
}

func (s *Space) colType(col int) (DimType, int) {
	if col < len(s.params) {
		return Param, col
	}
	return SetDim, col - len(s.params)
}

func (s *Space) insert(t DimType, pos int, names []string) *Space {
	r := NewSpace(s.params, s.set)
	if t == Param {
		r.params = slices.Insert(r.params, pos, names...)
	} else {
		r.set = slices.Insert(r.set, pos, names...)
	}
	return r
}

func (s *Space) drop(t DimType, pos, n int) *Space {
	r := NewSpace(s.params, s.set)
	if t == Param {
		r.params = slices.Delete(r.params, pos, pos+n)
	} else {
		r.set = slices.Delete(r.set, pos, pos+n)
	}
	return r
}

func (s *Space) rename(t DimType, pos int, name string) *Space {
	r := NewSpace(s.params, s.set)
	if t == Param {
		r.params[pos] = name
	} else {
		r.set[pos] = name
	}
	return r
}

// merge returns a space containing all the dimensions of s followed by
// the named dimensions of o missing from s. Missing dimensions are added as parameters.
// Unnamed set dimensions of o beyond the set dimensions of s are appended as set dimensions.
func (s *Space) merge(o *Space) *Space {
	r := NewSpace(s.params, s.set)
	for _, name := range o.params {
		if _, _, found := r.Find(name); found || name == "" {
			continue
		}
		r.params = append(r.params, name)
	}
	for i, name := range o.set {
		if name == "" {
			if i >= len(r.set) {
				r.set = append(r.set, "")
			}
			continue
		}
		if _, _, found := r.Find(name); found {
			continue
		}
		r.params = append(r.params, name)
	}
	return r
}

// alignment returns, for each column of from, the column in to.
// Unnamed dimensions are matched by position.
func alignment(from, to *Space) ([]int, bool) {
	cols := make([]int, from.ncols())
	for col := range cols {
		t, pos := from.colType(col)
		name := from.colName(col)
		if name == "" {
			if pos >= to.Dim(t) {
				return nil, false
			}
			cols[col] = to.col(t, pos)
			continue
		}
		tt, tpos, found := to.Find(name)
		if !found {
			return nil, false
		}
		cols[col] = to.col(tt, tpos)
	}
	return cols, true
}

func remap(c []int64, cols []int, n int) []int64 {
	r := make([]int64, n)
	for i, v := range c {
		r[cols[i]] += v
	}
	return r
}

// mustAlign returns the column mapping from one space to another.
// It panics if the spaces cannot be aligned, which is only the case
// for spaces that have not been created with merge.
func mustAlign(from, to *Space) []int {
	cols, ok := alignment(from, to)
	if !ok {
		panic("isl: cannot align " + from.String() + " to " + to.String())
	}
	return cols
}

// move returns the space where n dimensions of srcType starting at srcPos
// are moved to dstPos of dstType, together with the new column of each old column.
func (s *Space) move(dstType DimType, dstPos int, srcType DimType, srcPos, n int) (*Space, []int) {
	type dim struct {
		name string
		col  int
	}
	var params, set []dim
	for i, name := range s.params {
		params = append(params, dim{name: name, col: s.col(Param, i)})
	}
	for i, name := range s.set {
		set = append(set, dim{name: name, col: s.col(SetDim, i)})
	}
	src, dst := &params, &params
	if srcType == SetDim {
		src = &set
	}
	if dstType == SetDim {
		dst = &set
	}
	moved := slices.Clone((*src)[srcPos : srcPos+n])
	*src = slices.Delete(*src, srcPos, srcPos+n)
	*dst = slices.Insert(*dst, dstPos, moved...)
	r := &Space{}
	cols := make([]int, s.ncols())
	for i, d := range params {
		r.params = append(r.params, d.name)
		cols[d.col] = i
	}
	for i, d := range set {
		r.set = append(r.set, d.name)
		cols[d.col] = len(params) + i
	}
	return r, cols
}
