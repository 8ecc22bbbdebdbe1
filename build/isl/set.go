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

// Set is a finite union of basic sets sharing the same space.
type Set struct {
	space  *Space
	pieces []*BasicSet
}

// EmptySet returns the set without any point.
func EmptySet(space *Space) *Set {
	return &Set{space: space}
}

// UniverseSet returns the set of all the points of a space.
func UniverseSet(space *Space) *Set {
	return Universe(space).ToSet()
}

// Space returns the space of the set.
func (s *Set) Space() *Space {
	return s.space
}

// BasicSets returns the pieces of the set.
func (s *Set) BasicSets() []*BasicSet {
	return slices.Clone(s.pieces)
}

// NBasicSet returns the number of pieces of the set.
func (s *Set) NBasicSet() int {
	return len(s.pieces)
}

func (s *Set) alignTo(space *Space) *Set {
	if s.space.Equal(space) {
		return s
	}
	r := &Set{space: space, pieces: make([]*BasicSet, len(s.pieces))}
	for i, p := range s.pieces {
		r.pieces[i] = p.alignTo(space)
	}
	return r
}

// AlignTo returns the set expressed on a given space.
func (s *Set) AlignTo(space *Space) (*Set, error) {
	if _, ok := alignment(s.space, space); !ok {
		return nil, errors.Errorf("cannot align %s to %s", s.space, space)
	}
	return s.alignTo(space), nil
}

// UniverseLike returns the universe set on the space of s.
func (s *Set) UniverseLike() *Set {
	return UniverseSet(s.space)
}

func (s *Set) mapPieces(space *Space, f func(*BasicSet) *BasicSet) *Set {
	r := &Set{space: space}
	for _, p := range s.pieces {
		p = f(p)
		if p.infeasible {
			continue
		}
		r.pieces = append(r.pieces, p)
	}
	return r
}

// Union returns the points in s or in o.
func (s *Set) Union(o *Set) *Set {
	space := s.space.merge(o.space)
	rs, ro := s.alignTo(space), o.alignTo(space)
	return &Set{space: space, pieces: append(slices.Clone(rs.pieces), ro.pieces...)}
}

// Intersect returns the points both in s and in o.
func (s *Set) Intersect(o *Set) *Set {
	space := s.space.merge(o.space)
	rs, ro := s.alignTo(space), o.alignTo(space)
	r := &Set{space: space}
	for _, a := range rs.pieces {
		for _, b := range ro.pieces {
			p := a.Intersect(b)
			if p.IsEmpty() {
				continue
			}
			r.pieces = append(r.pieces, p)
		}
	}
	return r
}

// IntersectBasicSet intersects each piece of s with a basic set.
func (s *Set) IntersectBasicSet(b *BasicSet) *Set {
	return s.Intersect(b.ToSet())
}

// Subtract returns the points of s not in o.
func (s *Set) Subtract(o *Set) *Set {
	space := s.space.merge(o.space)
	r, ro := s.alignTo(space), o.alignTo(space)
	for _, p := range ro.pieces {
		r = r.subtractBasic(p)
	}
	return r
}

// subtractBasic removes a convex piece from every piece of s.
// The pieces of the result are disjoint for each piece of s.
func (s *Set) subtractBasic(p *BasicSet) *Set {
	if p.infeasible {
		return s
	}
	var ineqs []row
	for _, r := range p.rows {
		ineqs = append(ineqs, r.halves()...)
	}
	r := &Set{space: s.space}
	for _, a := range s.pieces {
		if a.infeasible {
			continue
		}
		prefix := slices.Clone(a.rows)
		for _, ineq := range ineqs {
			for _, neg := range ineq.negate() {
				piece := newBasicSet(s.space, append(slices.Clone(prefix), neg))
				if piece.IsEmpty() {
					continue
				}
				r.pieces = append(r.pieces, piece)
			}
			prefix = append(prefix, ineq)
		}
	}
	return r
}

// Complement returns the points of the space not in s.
func (s *Set) Complement() *Set {
	return s.UniverseLike().Subtract(s)
}

// IsEmpty returns true if the set has no integer point.
func (s *Set) IsEmpty() bool {
	for _, p := range s.pieces {
		if !p.IsEmpty() {
			return false
		}
	}
	return true
}

// IsSubset returns true if all the points of s are in o.
func (s *Set) IsSubset(o *Set) bool {
	return s.Subtract(o).IsEmpty()
}

// IsEqual returns true if s and o have the same points.
func (s *Set) IsEqual(o *Set) bool {
	return s.IsSubset(o) && o.IsSubset(s)
}

// Coalesce returns an equivalent set with fewer pieces.
// Empty pieces and pieces contained in another piece are removed, then
// pairs of pieces are replaced by the set of their mutually valid constraints
// when that set is exactly their union.
func (s *Set) Coalesce() *Set {
	var pieces []*BasicSet
	for _, p := range s.pieces {
		if !p.IsEmpty() {
			pieces = append(pieces, p.RemoveRedundancies())
		}
	}
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(pieces) && !changed; i++ {
			for j := 0; j < len(pieces) && !changed; j++ {
				if i == j {
					continue
				}
				if pieces[i].IsSubset(pieces[j]) {
					pieces = slices.Delete(pieces, i, i+1)
					changed = true
					continue
				}
				if j < i {
					continue
				}
				merged, ok := s.mergePieces(pieces[i], pieces[j])
				if !ok {
					continue
				}
				pieces[i] = merged
				pieces = slices.Delete(pieces, j, j+1)
				changed = true
			}
		}
	}
	return &Set{space: s.space, pieces: pieces}
}

func (s *Set) mergePieces(a, b *BasicSet) (*BasicSet, bool) {
	var rows []row
	ncols := s.space.ncols()
	for _, r := range a.rows {
		for _, half := range r.halves() {
			if impliedBy(b.rows, half, ncols) {
				rows = append(rows, half)
			}
		}
	}
	for _, r := range b.rows {
		for _, half := range r.halves() {
			if impliedBy(a.rows, half, ncols) {
				rows = append(rows, half)
			}
		}
	}
	merged := newBasicSet(s.space, rows)
	union := &Set{space: s.space, pieces: []*BasicSet{a, b}}
	if !merged.ToSet().IsSubset(union) {
		return nil, false
	}
	return merged.RemoveRedundancies(), true
}

// SimpleHull returns a convex over-approximation of the set bounded by
// translates of the constraints of its pieces.
// Constraints whose translate cannot be computed as a constant are dropped.
func (s *Set) SimpleHull() *BasicSet {
	var pieces []*BasicSet
	for _, p := range s.pieces {
		if !p.IsEmpty() {
			pieces = append(pieces, p)
		}
	}
	if len(pieces) == 0 {
		return EmptyBasicSet(s.space)
	}
	var rows []row
	seen := make(map[string]bool)
	for _, p := range pieces {
		for _, r := range p.rows {
			for _, half := range r.halves() {
				key := half.key()
				if seen[key] {
					continue
				}
				seen[key] = true
				lower, ok := minOverPieces(pieces, half.c)
				if !ok {
					continue
				}
				rows = append(rows, row{c: slices.Clone(half.c), k: -lower})
			}
		}
	}
	return newBasicSet(s.space, rows)
}

func minOverPieces(pieces []*BasicSet, c []int64) (int64, bool) {
	var lower int64
	for i, p := range pieces {
		m, ok := minOfForm(p.rows, c)
		if !ok {
			return 0, false
		}
		if i == 0 || m < lower {
			lower = m
		}
	}
	return lower, true
}

// ProjectOut eliminates n dimensions starting at pos.
func (s *Set) ProjectOut(t DimType, pos, n int) *Set {
	return s.mapPieces(s.space.drop(t, pos, n), func(p *BasicSet) *BasicSet {
		return p.ProjectOut(t, pos, n)
	})
}

// MoveDims moves dimensions. See BasicSet.MoveDims.
func (s *Set) MoveDims(dstType DimType, dstPos int, srcType DimType, srcPos, n int) *Set {
	space, _ := s.space.move(dstType, dstPos, srcType, srcPos, n)
	return s.mapPieces(space, func(p *BasicSet) *BasicSet {
		return p.MoveDims(dstType, dstPos, srcType, srcPos, n)
	})
}

// InsertDims inserts unconstrained dimensions.
func (s *Set) InsertDims(t DimType, pos int, names ...string) *Set {
	return s.mapPieces(s.space.insert(t, pos, names), func(p *BasicSet) *BasicSet {
		return p.InsertDims(t, pos, names...)
	})
}

// SetDimName renames a dimension.
func (s *Set) SetDimName(t DimType, pos int, name string) *Set {
	return s.mapPieces(s.space.rename(t, pos, name), func(p *BasicSet) *BasicSet {
		return p.SetDimName(t, pos, name)
	})
}

// Gist simplifies every piece of s given a context.
// Pieces not intersecting the context are removed.
func (s *Set) Gist(ctx *Set) *Set {
	hull := ctx.CommonHull()
	r := &Set{space: s.space}
	for _, p := range s.pieces {
		if p.ToSet().Intersect(ctx).IsEmpty() {
			continue
		}
		r.pieces = append(r.pieces, p.Gist(hull))
	}
	return r
}

// CommonHull returns the constraints of the pieces of s which hold on every piece.
// The result contains s.
func (s *Set) CommonHull() *BasicSet {
	if len(s.pieces) == 1 {
		return s.pieces[0]
	}
	var rows []row
	for _, p := range s.pieces {
		for _, r := range p.rows {
			for _, half := range r.halves() {
				if s.allImply(half) {
					rows = append(rows, half)
				}
			}
		}
	}
	return newBasicSet(s.space, rows)
}

func (s *Set) allImply(r row) bool {
	for _, p := range s.pieces {
		if !p.infeasible && !impliedBy(p.rows, r, s.space.ncols()) {
			return false
		}
	}
	return true
}

// DimMin returns the minimum of a set dimension over all the pieces.
func (s *Set) DimMin(pos int) (*PwAff, error) {
	return s.dimExtremum(pos, (*BasicSet).DimMin, (*PwAff).Min)
}

// DimMax returns the maximum of a set dimension over all the pieces.
func (s *Set) DimMax(pos int) (*PwAff, error) {
	return s.dimExtremum(pos, (*BasicSet).DimMax, (*PwAff).Max)
}

func (s *Set) dimExtremum(pos int, dim func(*BasicSet, int) (*PwAff, error), fold func(*PwAff, *PwAff) *PwAff) (*PwAff, error) {
	res := EmptyPwAff(s.space.ParamSpace())
	for _, p := range s.pieces {
		if p.IsEmpty() {
			continue
		}
		pw, err := dim(p, pos)
		if err != nil {
			return nil, err
		}
		res = fold(res, pw)
	}
	return res, nil
}

// String returns the set in the syntax accepted by ReadSet.
func (s *Set) String() string {
	if len(s.pieces) == 0 {
		return EmptyBasicSet(s.space).String()
	}
	if len(s.pieces) == 1 {
		return s.pieces[0].String()
	}
	var b strings.Builder
	b.WriteString(s.pieces[0].header())
	for i, p := range s.pieces {
		body := strings.TrimPrefix(p.body(), " : ")
		if body == "" {
			// One piece is the universe.
			return s.pieces[0].header() + " }"
		}
		if i == 0 {
			b.WriteString(" : ")
		} else {
			b.WriteString(" or ")
		}
		b.WriteString("(" + body + ")")
	}
	b.WriteString(" }")
	return b.String()
}
