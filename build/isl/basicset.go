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

package isl

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// BasicSet is a conjunction of affine constraints.
type BasicSet struct {
	space      *Space
	rows       []row
	infeasible bool
}

// Universe returns the basic set without constraints.
func Universe(space *Space) *BasicSet {
	return &BasicSet{space: space}
}

// EmptyBasicSet returns an empty basic set.
func EmptyBasicSet(space *Space) *BasicSet {
	return &BasicSet{space: space, infeasible: true}
}

func newBasicSet(space *Space, rows []row) *BasicSet {
	rows, ok := simplifyRows(rows)
	if !ok {
		return EmptyBasicSet(space)
	}
	return &BasicSet{space: space, rows: rows}
}

// Space returns the space of the set.
func (b *BasicSet) Space() *Space {
	return b.space
}

// AddConstraint returns the set with an additional constraint.
// Dimensions of the constraint missing from the set are added as parameters.
func (b *BasicSet) AddConstraint(c *Constraint) *BasicSet {
	space := b.space.merge(c.aff.space)
	aff := c.aff.alignTo(space)
	bs := b.alignTo(space)
	return newBasicSet(space, append(slices.Clone(bs.rows), aff.asRow(c.eq))).orEmpty(bs)
}

func (b *BasicSet) orEmpty(from *BasicSet) *BasicSet {
	if from.infeasible {
		return EmptyBasicSet(b.space)
	}
	return b
}

// Intersect returns the intersection of two basic sets.
func (b *BasicSet) Intersect(o *BasicSet) *BasicSet {
	space := b.space.merge(o.space)
	rb, ro := b.alignTo(space), o.alignTo(space)
	if rb.infeasible || ro.infeasible {
		return EmptyBasicSet(space)
	}
	return newBasicSet(space, append(slices.Clone(rb.rows), ro.rows...))
}

// IsEmpty returns true if the set has no integer point.
// A set for which the search of an integer point is undecided is not empty.
func (b *BasicSet) IsEmpty() bool {
	empty, _ := b.CheckEmpty()
	return empty
}

// CheckEmpty returns true if the set has no integer point and
// whether the answer has been decided. An undecided set is reported as non-empty.
func (b *BasicSet) CheckEmpty() (empty, decided bool) {
	if b.infeasible {
		return true, true
	}
	switch integerFeasibility(b.rows, b.space.ncols()) {
	case noPoint:
		return true, true
	case hasPoint:
		return false, true
	}
	return false, false
}

// ToSet returns a set with a single piece.
func (b *BasicSet) ToSet() *Set {
	return &Set{space: b.space, pieces: []*BasicSet{b}}
}

// IsSubset returns true if b is included in o.
func (b *BasicSet) IsSubset(o *BasicSet) bool {
	return b.ToSet().IsSubset(o.ToSet())
}

// IsEqual returns true if both sets have the same points.
func (b *BasicSet) IsEqual(o *BasicSet) bool {
	return b.ToSet().IsEqual(o.ToSet())
}

// Constraints returns the constraints of the set.
func (b *BasicSet) Constraints() []*Constraint {
	if b.infeasible {
		// 0 >= 1
		return []*Constraint{InequalityFromAff(ZeroOnDomain(b.space).AddConstant(-1))}
	}
	cs := make([]*Constraint, len(b.rows))
	for i, r := range b.rows {
		cs[i] = &Constraint{
			aff: &Aff{space: b.space, c: slices.Clone(r.c), k: r.k},
			eq:  r.eq,
		}
	}
	return cs
}

func (b *BasicSet) alignTo(space *Space) *BasicSet {
	if b.space.Equal(space) {
		return b
	}
	cols := mustAlign(b.space, space)
	return &BasicSet{
		space:      space,
		rows:       remapRows(b.rows, cols, space.ncols()),
		infeasible: b.infeasible,
	}
}

// AlignTo returns the set expressed on a given space.
// All the dimensions of the set, constrained or not, must be found in the space.
func (b *BasicSet) AlignTo(space *Space) (*BasicSet, error) {
	if _, ok := alignment(b.space, space); !ok {
		return nil, errors.Errorf("cannot align %s to %s", b.space, space)
	}
	return b.alignTo(space), nil
}

// SetDimName renames a dimension.
func (b *BasicSet) SetDimName(t DimType, pos int, name string) *BasicSet {
	return &BasicSet{space: b.space.rename(t, pos, name), rows: b.rows, infeasible: b.infeasible}
}

// InsertDims inserts unconstrained dimensions at a position.
func (b *BasicSet) InsertDims(t DimType, pos int, names ...string) *BasicSet {
	return &BasicSet{
		space:      b.space.insert(t, pos, names),
		rows:       insertColumns(b.rows, b.space.col(t, pos), len(names)),
		infeasible: b.infeasible,
	}
}

// MoveDims moves n dimensions of type srcType starting at srcPos
// to dstPos in the dimensions of type dstType.
// dstPos is a position in the space once the dimensions have been removed.
func (b *BasicSet) MoveDims(dstType DimType, dstPos int, srcType DimType, srcPos, n int) *BasicSet {
	space, cols := b.space.move(dstType, dstPos, srcType, srcPos, n)
	return &BasicSet{
		space:      space,
		rows:       remapRows(b.rows, cols, space.ncols()),
		infeasible: b.infeasible,
	}
}

// ProjectOut eliminates n dimensions starting at pos.
// The result can contain integer points which are not the projection
// of an integer point of b when the eliminated dimensions define a stride.
func (b *BasicSet) ProjectOut(t DimType, pos, n int) *BasicSet {
	bs, _ := b.projectOut(t, pos, n)
	return bs
}

// projectOut eliminates n dimensions starting at pos and
// returns whether the projection of integer points is exact.
func (b *BasicSet) projectOut(t DimType, pos, n int) (*BasicSet, bool) {
	space := b.space.drop(t, pos, n)
	if b.infeasible {
		return EmptyBasicSet(space), true
	}
	first := b.space.col(t, pos)
	cols := make([]int, n)
	for i := range cols {
		cols[i] = first + i
	}
	rows, ok, exact := eliminateAll(b.rows, cols)
	if !ok {
		return EmptyBasicSet(space), true
	}
	return newBasicSet(space, dropColumns(rows, first, n)), exact
}

// Gist removes the constraints of b implied by a context and by the other constraints of b.
func (b *BasicSet) Gist(ctx *BasicSet) *BasicSet {
	if b.infeasible {
		return b
	}
	space := b.space.merge(ctx.space)
	rb, rc := b.alignTo(space), ctx.alignTo(space)
	if rc.infeasible {
		return b
	}
	kept := slices.Clone(rb.rows)
	for i := len(kept) - 1; i >= 0; i-- {
		others := append(slices.Clone(rc.rows), kept[:i]...)
		others = append(others, kept[i+1:]...)
		if impliedBy(others, kept[i], space.ncols()) {
			kept = slices.Delete(kept, i, i+1)
		}
	}
	cols := mustAlign(b.space, space)
	return newBasicSet(b.space, pickColumns(kept, cols))
}

// RemoveRedundancies removes the constraints implied by the other constraints.
func (b *BasicSet) RemoveRedundancies() *BasicSet {
	return b.Gist(Universe(b.space))
}

// impliedBy returns true if r holds everywhere on rows.
func impliedBy(rows []row, r row, ncols int) bool {
	for _, half := range r.halves() {
		for _, neg := range half.negate() {
			if feasible(append(slices.Clone(rows), neg), ncols) {
				return false
			}
		}
	}
	return true
}

// pickColumns returns the rows restricted to a list of columns.
func pickColumns(rows []row, cols []int) []row {
	res := make([]row, len(rows))
	for i, r := range rows {
		c := make([]int64, len(cols))
		for j, col := range cols {
			c[j] = r.c[col]
		}
		res[i] = row{c: c, k: r.k, eq: r.eq}
	}
	return res
}

// DimMin returns the minimum of a set dimension as a function of the parameters.
func (b *BasicSet) DimMin(pos int) (*PwAff, error) {
	return b.dimExtremum(pos, true)
}

// DimMax returns the maximum of a set dimension as a function of the parameters.
func (b *BasicSet) DimMax(pos int) (*PwAff, error) {
	return b.dimExtremum(pos, false)
}

func (b *BasicSet) dimExtremum(pos int, isMin bool) (*PwAff, error) {
	params := b.space.ParamSpace()
	if b.infeasible {
		return EmptyPwAff(params), nil
	}
	nparams := b.space.Dim(Param)
	target := b.space.col(SetDim, pos)
	var others []int
	for i := range b.space.Dim(SetDim) {
		if i != pos {
			others = append(others, b.space.col(SetDim, i))
		}
	}
	rows, ok, _ := eliminateAll(b.rows, others)
	if !ok {
		return EmptyPwAff(params), nil
	}
	domRows, ok, _ := eliminateAll(rows, []int{target})
	if !ok {
		return EmptyPwAff(params), nil
	}
	dom := newBasicSet(params, pickColumns(domRows, paramColumns(nparams)))
	var bounds []*Aff
	seen := make(map[string]bool)
	add := func(aff *Aff) {
		key := aff.String()
		if seen[key] {
			return
		}
		seen[key] = true
		bounds = append(bounds, aff)
	}
	for _, r := range rows {
		a := r.c[target]
		if a == 0 {
			continue
		}
		rest := pickColumns([]row{r}, paramColumns(nparams))[0]
		for _, half := range rest.withTarget(a).halves() {
			if aff, ok := boundFromRow(params, half, isMin); ok {
				add(aff)
			}
		}
	}
	if len(bounds) == 0 {
		what := "upper"
		if isMin {
			what = "lower"
		}
		return nil, errors.Errorf("set dimension %q of %s has no %s bound", b.space.DimName(SetDim, pos), b, what)
	}
	return extremumPieces(dom, bounds, isMin), nil
}

// withTarget appends the coefficient of the bounded dimension as the last column.
func (r row) withTarget(a int64) row {
	return row{c: append(slices.Clone(r.c), a), k: r.k, eq: r.eq}
}

// boundFromRow returns the bound of x given the inequality c.p + a*x + k >= 0,
// where a is the last column.
func boundFromRow(params *Space, r row, isMin bool) (*Aff, bool) {
	n := len(r.c) - 1
	a := r.c[n]
	if isMin != (a > 0) {
		return nil, false
	}
	rest := &Aff{space: params, c: slices.Clone(r.c[:n]), k: r.k}
	if abs(a) == 1 {
		// x >= -rest or x <= rest
		if a > 0 {
			return rest.Neg(), true
		}
		return rest, true
	}
	if !rest.IsCst() {
		return nil, false
	}
	if a > 0 {
		return ZeroOnDomain(params).AddConstant(ceilDiv(-r.k, a)), true
	}
	return ZeroOnDomain(params).AddConstant(floorDiv(r.k, -a)), true
}

// extremumPieces returns the piecewise maximum (isMin) or minimum (!isMin) of bounds over a domain.
// Ties are given to the first bound.
func extremumPieces(dom *BasicSet, bounds []*Aff, isMin bool) *PwAff {
	if len(bounds) == 1 {
		return NewPwAff(dom.ToSet(), bounds[0])
	}
	res := EmptyPwAff(dom.space)
	for j, bj := range bounds {
		piece := dom
		for i, bi := range bounds {
			if i == j {
				continue
			}
			// For a lower bound, bj must be the greatest of all lower bounds.
			d := bj.Sub(bi)
			if !isMin {
				d = d.Neg()
			}
			if i < j {
				d = d.AddConstant(-1)
			}
			piece = piece.AddConstraint(InequalityFromAff(d))
		}
		if piece.IsEmpty() {
			continue
		}
		res.pieces = append(res.pieces, Piece{Set: piece.ToSet(), Aff: bj})
	}
	return res
}

func paramColumns(n int) []int {
	cols := make([]int, n)
	for i := range cols {
		cols[i] = i
	}
	return cols
}

// String returns the set in the syntax accepted by ReadSet.
func (b *BasicSet) String() string {
	var s strings.Builder
	s.WriteString(b.header())
	s.WriteString(b.body())
	s.WriteString(" }")
	return s.String()
}

func (b *BasicSet) header() string {
	var s strings.Builder
	if b.space.Dim(Param) > 0 {
		s.WriteString("[" + strings.Join(b.space.names(Param), ", ") + "] -> ")
	}
	s.WriteString("{ [" + strings.Join(b.space.names(SetDim), ", ") + "]")
	return s.String()
}

func (b *BasicSet) body() string {
	if b.infeasible {
		return " : 1 = 0"
	}
	if len(b.rows) == 0 {
		return ""
	}
	cs := make([]string, len(b.rows))
	for i, r := range b.rows {
		cs[i] = formatRow(b.space, r)
	}
	return " : " + strings.Join(cs, " and ")
}
