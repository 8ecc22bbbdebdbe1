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

// Piece is an affine function restricted to a set.
type Piece struct {
	Set *Set
	Aff *Aff
}

// PwAff is a piecewise affine function.
// All the pieces are defined on the same space.
type PwAff struct {
	space  *Space
	pieces []Piece
}

// EmptyPwAff returns a function defined nowhere.
func EmptyPwAff(space *Space) *PwAff {
	return &PwAff{space: space}
}

// NewPwAff returns the function equal to aff on dom.
func NewPwAff(dom *Set, aff *Aff) *PwAff {
	space := dom.space.merge(aff.space)
	return &PwAff{
		space:  space,
		pieces: []Piece{{Set: dom.alignTo(space), Aff: aff.alignTo(space)}},
	}
}

// PwAffFromAff returns the function equal to aff on its whole space.
func PwAffFromAff(aff *Aff) *PwAff {
	return NewPwAff(UniverseSet(aff.space), aff)
}

// Space returns the domain space of the function.
func (p *PwAff) Space() *Space {
	return p.space
}

// Pieces returns the pieces of the function.
func (p *PwAff) Pieces() []Piece {
	return slices.Clone(p.pieces)
}

// NPiece returns the number of pieces.
func (p *PwAff) NPiece() int {
	return len(p.pieces)
}

// AggregateDomain returns the union of the domains of all the pieces.
func (p *PwAff) AggregateDomain() *Set {
	dom := EmptySet(p.space)
	for _, pc := range p.pieces {
		dom = dom.Union(pc.Set)
	}
	return dom
}

// IsCst returns true if all the pieces are constant.
func (p *PwAff) IsCst() bool {
	for _, pc := range p.pieces {
		if !pc.Aff.IsCst() {
			return false
		}
	}
	return true
}

func (p *PwAff) alignTo(space *Space) *PwAff {
	if p.space.Equal(space) {
		return p
	}
	r := &PwAff{space: space, pieces: make([]Piece, len(p.pieces))}
	for i, pc := range p.pieces {
		r.pieces[i] = Piece{Set: pc.Set.alignTo(space), Aff: pc.Aff.alignTo(space)}
	}
	return r
}

// AlignTo returns the function expressed on a given space.
func (p *PwAff) AlignTo(space *Space) (*PwAff, error) {
	if _, ok := alignment(p.space, space); !ok {
		return nil, errors.Errorf("cannot align %s to %s", p.space, space)
	}
	return p.alignTo(space), nil
}

func (p *PwAff) mapAffs(f func(*Aff) *Aff) *PwAff {
	r := &PwAff{space: p.space, pieces: make([]Piece, len(p.pieces))}
	for i, pc := range p.pieces {
		r.pieces[i] = Piece{Set: pc.Set, Aff: f(pc.Aff)}
	}
	return r
}

// AddConstant adds v to every piece.
func (p *PwAff) AddConstant(v int64) *PwAff {
	return p.mapAffs(func(a *Aff) *Aff { return a.AddConstant(v) })
}

// Neg returns -p.
func (p *PwAff) Neg() *PwAff {
	return p.mapAffs((*Aff).Neg)
}

// Add returns p+o on the intersection of their domains.
func (p *PwAff) Add(o *PwAff) *PwAff {
	space := p.space.merge(o.space)
	rp, ro := p.alignTo(space), o.alignTo(space)
	r := &PwAff{space: space}
	for _, a := range rp.pieces {
		for _, b := range ro.pieces {
			dom := a.Set.Intersect(b.Set)
			if dom.IsEmpty() {
				continue
			}
			r.pieces = append(r.pieces, Piece{Set: dom, Aff: a.Aff.Add(b.Aff)})
		}
	}
	return r
}

// Sub returns p-o on the intersection of their domains.
func (p *PwAff) Sub(o *PwAff) *PwAff {
	return p.Add(o.Neg())
}

// AddSetDims appends named set dimensions to the domain space.
func (p *PwAff) AddSetDims(names ...string) *PwAff {
	space := p.space.insert(SetDim, p.space.Dim(SetDim), names)
	return p.alignTo(space)
}

// Gist simplifies the domains of the pieces given a context.
// Pieces not intersecting the context are removed.
func (p *PwAff) Gist(ctx *Set) *PwAff {
	space := p.space.merge(ctx.space)
	ctx = ctx.alignTo(space)
	rp := p.alignTo(space)
	r := &PwAff{space: space}
	for _, pc := range rp.pieces {
		dom := pc.Set.Gist(ctx)
		if len(dom.pieces) == 0 {
			continue
		}
		r.pieces = append(r.pieces, Piece{Set: dom, Aff: pc.Aff})
	}
	return r
}

// Coalesce merges the pieces with the same function and coalesces their domains.
func (p *PwAff) Coalesce() *PwAff {
	r := &PwAff{space: p.space}
	for _, pc := range p.pieces {
		found := false
		for i, other := range r.pieces {
			if other.Aff.PlainIsEqual(pc.Aff) {
				r.pieces[i].Set = other.Set.Union(pc.Set)
				found = true
				break
			}
		}
		if !found {
			r.pieces = append(r.pieces, pc)
		}
	}
	var pieces []Piece
	for _, pc := range r.pieces {
		dom := pc.Set.Coalesce()
		if len(dom.pieces) == 0 {
			continue
		}
		pieces = append(pieces, Piece{Set: dom, Aff: pc.Aff})
	}
	r.pieces = pieces
	return r
}

func (p *PwAff) compareSet(aff *Aff, cmp func(a, o *Aff) *BasicSet) *Set {
	space := p.space.merge(aff.space)
	rp := p.alignTo(space)
	aff = aff.alignTo(space)
	r := EmptySet(space)
	for _, pc := range rp.pieces {
		r = r.Union(pc.Set.Intersect(cmp(pc.Aff, aff).ToSet()))
	}
	return r
}

// GeSet returns the set where p is defined and p >= aff.
func (p *PwAff) GeSet(aff *Aff) *Set {
	return p.compareSet(aff, (*Aff).GeSet)
}

// LeSet returns the set where p is defined and p <= aff.
func (p *PwAff) LeSet(aff *Aff) *Set {
	return p.compareSet(aff, (*Aff).LeSet)
}

// EqSet returns the set where p is defined and p = aff.
func (p *PwAff) EqSet(aff *Aff) *Set {
	return p.compareSet(aff, (*Aff).EqSet)
}

// Min returns the minimum of p and o where both are defined,
// and the defined function elsewhere.
func (p *PwAff) Min(o *PwAff) *PwAff {
	return p.union(o, (*Aff).LeSet)
}

// Max returns the maximum of p and o where both are defined,
// and the defined function elsewhere.
func (p *PwAff) Max(o *PwAff) *PwAff {
	return p.union(o, (*Aff).GeSet)
}

// union combines p and o, picking the function of p on the pieces where
// both are defined and pick(p, o) holds.
func (p *PwAff) union(o *PwAff, pick func(a, o *Aff) *BasicSet) *PwAff {
	space := p.space.merge(o.space)
	rp, ro := p.alignTo(space), o.alignTo(space)
	r := &PwAff{space: space}
	add := func(dom *Set, aff *Aff) {
		if dom.IsEmpty() {
			return
		}
		r.pieces = append(r.pieces, Piece{Set: dom, Aff: aff})
	}
	for _, a := range rp.pieces {
		for _, b := range ro.pieces {
			both := a.Set.Intersect(b.Set)
			if both.IsEmpty() {
				continue
			}
			pickA := pick(a.Aff, b.Aff).ToSet()
			add(both.Intersect(pickA), a.Aff)
			add(both.Subtract(pickA), b.Aff)
		}
	}
	domP, domO := rp.AggregateDomain(), ro.AggregateDomain()
	for _, a := range rp.pieces {
		add(a.Set.Subtract(domO), a.Aff)
	}
	for _, b := range ro.pieces {
		add(b.Set.Subtract(domP), b.Aff)
	}
	return r
}

// String returns a string representation of the function.
func (p *PwAff) String() string {
	var s strings.Builder
	if p.space.Dim(Param) > 0 {
		s.WriteString("[" + strings.Join(p.space.names(Param), ", ") + "] -> ")
	}
	s.WriteString("{ ")
	in := "[" + strings.Join(p.space.names(SetDim), ", ") + "]"
	for i, pc := range p.pieces {
		if i > 0 {
			s.WriteString("; ")
		}
		s.WriteString(in + " -> [(" + pc.Aff.String() + ")]")
		dom := pc.Set.String()
		if body, ok := setBody(dom); ok {
			s.WriteString(" : " + body)
		}
	}
	s.WriteString(" }")
	return s.String()
}

func setBody(s string) (string, bool) {
	i := strings.Index(s, "] : ")
	if i < 0 {
		return "", false
	}
	return strings.TrimSuffix(s[i+len("] : "):], " }"), true
}
