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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Aff is an affine function c.x + k of the dimensions of a space.
type Aff struct {
	space *Space
	c     []int64
	k     int64
}

// ZeroOnDomain returns the affine function equal to zero on a space.
func ZeroOnDomain(space *Space) *Aff {
	return &Aff{space: space, c: make([]int64, space.ncols())}
}

// VarOnDomain returns the affine function equal to a dimension of a space.
func VarOnDomain(space *Space, t DimType, pos int) *Aff {
	return ZeroOnDomain(space).AddCoefficient(t, pos, 1)
}

// VarByName returns the affine function equal to a named dimension of a space.
func VarByName(space *Space, name string) (*Aff, error) {
	t, pos, found := space.Find(name)
	if !found {
		return nil, errors.Errorf("dimension %q not found in space %s", name, space)
	}
	return VarOnDomain(space, t, pos), nil
}

// Space returns the domain space of the function.
func (a *Aff) Space() *Space {
	return a.space
}

// Coefficient returns the coefficient of a dimension.
func (a *Aff) Coefficient(t DimType, pos int) int64 {
	return a.c[a.space.col(t, pos)]
}

// CoefficientOf returns the coefficient of a named dimension.
// Returns 0 if the space has no dimension with that name.
func (a *Aff) CoefficientOf(name string) int64 {
	t, pos, found := a.space.Find(name)
	if !found {
		return 0
	}
	return a.Coefficient(t, pos)
}

// Constant returns the constant term of the function.
func (a *Aff) Constant() int64 {
	return a.k
}

func (a *Aff) clone() *Aff {
	return &Aff{space: a.space, c: slices.Clone(a.c), k: a.k}
}

// AddCoefficient adds v to the coefficient of a dimension.
func (a *Aff) AddCoefficient(t DimType, pos int, v int64) *Aff {
	r := a.clone()
	r.c[a.space.col(t, pos)] += v
	return r
}

// AddConstant adds v to the constant term.
func (a *Aff) AddConstant(v int64) *Aff {
	r := a.clone()
	r.k += v
	return r
}

// SetConstant replaces the constant term.
func (a *Aff) SetConstant(v int64) *Aff {
	r := a.clone()
	r.k = v
	return r
}

// Neg returns -a.
func (a *Aff) Neg() *Aff {
	return a.Scale(-1)
}

// Scale returns f*a.
func (a *Aff) Scale(f int64) *Aff {
	r := a.clone()
	for i := range r.c {
		r.c[i] *= f
	}
	r.k *= f
	return r
}

// Add returns a+o. The result is defined on the merge of both spaces.
func (a *Aff) Add(o *Aff) *Aff {
	space := a.space.merge(o.space)
	ra, ro := a.alignTo(space), o.alignTo(space)
	for i, v := range ro.c {
		ra.c[i] += v
	}
	ra.k += ro.k
	return ra
}

// Sub returns a-o. The result is defined on the merge of both spaces.
func (a *Aff) Sub(o *Aff) *Aff {
	return a.Add(o.Neg())
}

// IsCst returns true if the function does not depend on any dimension.
func (a *Aff) IsCst() bool {
	for _, v := range a.c {
		if v != 0 {
			return false
		}
	}
	return true
}

// PlainIsEqual returns true if both functions have the same coefficients
// once aligned by name.
func (a *Aff) PlainIsEqual(o *Aff) bool {
	space := a.space.merge(o.space)
	ra, ro := a.alignTo(space), o.alignTo(space)
	return ra.k == ro.k && slices.Equal(ra.c, ro.c)
}

func (a *Aff) alignTo(space *Space) *Aff {
	if a.space.Equal(space) {
		return a.clone()
	}
	cols := mustAlign(a.space, space)
	return &Aff{space: space, c: remap(a.c, cols, space.ncols()), k: a.k}
}

// AlignTo returns the function expressed on a given space.
// The space must contain all the dimensions used by the function.
func (a *Aff) AlignTo(space *Space) (*Aff, error) {
	r := &Aff{space: space, c: make([]int64, space.ncols()), k: a.k}
	for col, v := range a.c {
		if v == 0 {
			continue
		}
		name := a.space.colName(col)
		t, pos, found := space.Find(name)
		if !found {
			if name != "" {
				return nil, errors.Errorf("cannot align %s to %s: dimension %q missing", a, space, name)
			}
			t, pos = a.space.colType(col)
			if pos >= space.Dim(t) {
				return nil, errors.Errorf("cannot align %s to %s", a, space)
			}
		}
		r.c[space.col(t, pos)] += v
	}
	return r, nil
}

// Gist simplifies the function given the equalities of a context.
func (a *Aff) Gist(ctx *BasicSet) *Aff {
	space := a.space.merge(ctx.space)
	ctx = ctx.alignTo(space)
	r := a.alignTo(space)
	cols := mustAlign(a.space, space)
	own := make([]bool, space.ncols())
	for _, col := range cols {
		own[col] = true
	}
	var eqs []row
	for _, rw := range ctx.rows {
		if rw.eq && onlyColumns(rw.c, own) {
			eqs = append(eqs, rw)
		}
	}
	for range eqs {
		changed := false
		for _, e := range eqs {
			for col, v := range e.c {
				if abs(v) != 1 || r.c[col] == 0 {
					continue
				}
				f := r.c[col] * v
				for i := range r.c {
					r.c[i] -= f * e.c[i]
				}
				r.k -= f * e.k
				changed = true
				break
			}
		}
		if !changed {
			break
		}
	}
	res := &Aff{space: a.space, c: make([]int64, len(cols)), k: r.k}
	for i, col := range cols {
		res.c[i] = r.c[col]
	}
	return res
}

// onlyColumns returns true if all the non-zero coefficients are in selected columns.
func onlyColumns(c []int64, selected []bool) bool {
	for i, v := range c {
		if v != 0 && !selected[i] {
			return false
		}
	}
	return true
}

// GeSet returns the set where a >= o.
func (a *Aff) GeSet(o *Aff) *BasicSet {
	d := a.Sub(o)
	return Universe(d.space).AddConstraint(InequalityFromAff(d))
}

// LeSet returns the set where a <= o.
func (a *Aff) LeSet(o *Aff) *BasicSet {
	return o.GeSet(a)
}

// EqSet returns the set where a = o.
func (a *Aff) EqSet(o *Aff) *BasicSet {
	d := a.Sub(o)
	return Universe(d.space).AddConstraint(EqualityFromAff(d))
}

func (a *Aff) asRow(eq bool) row {
	return row{c: slices.Clone(a.c), k: a.k, eq: eq}
}

// String returns the function as an expression of the dimension names.
func (a *Aff) String() string {
	return formatLinear(a.space, a.c, a.k)
}

func formatLinear(space *Space, c []int64, k int64) string {
	var b strings.Builder
	for col, v := range c {
		if v == 0 {
			continue
		}
		name := space.colName(col)
		if name == "" {
			t, pos := space.colType(col)
			name = unnamed(t, pos)
		}
		writeTerm(&b, v, name)
	}
	if k != 0 || b.Len() == 0 {
		writeTerm(&b, k, "")
	}
	return b.String()
}

func writeTerm(b *strings.Builder, v int64, name string) {
	switch {
	case b.Len() == 0 && v < 0:
		b.WriteString("-")
		v = -v
	case b.Len() > 0 && v < 0:
		b.WriteString(" - ")
		v = -v
	case b.Len() > 0:
		b.WriteString(" + ")
	}
	if name == "" {
		b.WriteString(strconv.FormatInt(v, 10))
		return
	}
	if v != 1 {
		b.WriteString(strconv.FormatInt(v, 10))
		b.WriteString("*")
	}
	b.WriteString(name)
}
