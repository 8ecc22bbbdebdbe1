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

package affine

import (
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/symbolic"
	"github.com/pkg/errors"
)

type (
	// Bound is the start or the stop of a slab.
	Bound interface {
		toAff(space *isl.Space) (*isl.Aff, error)
	}

	intBound   int64
	affBound   struct{ aff *isl.Aff }
	pwAffBound struct{ pw *isl.PwAff }
	exprBound  struct{ expr symbolic.Expr }

	// Dim refers to a dimension of a space by name or by position.
	Dim struct {
		name string
		typ  isl.DimType
		pos  int
	}
)

// IntBound returns a constant bound.
func IntBound(v int64) Bound { return intBound(v) }

// AffBound returns an affine bound.
func AffBound(aff *isl.Aff) Bound { return affBound{aff: aff} }

// PwAffBound returns a bound given by a single-valued piecewise affine function.
func PwAffBound(pw *isl.PwAff) Bound { return pwAffBound{pw: pw} }

// ExprBound returns a bound given by an affine expression.
func ExprBound(x symbolic.Expr) Bound { return exprBound{expr: x} }

func (b intBound) toAff(space *isl.Space) (*isl.Aff, error) {
	return isl.ZeroOnDomain(space).AddConstant(int64(b)), nil
}

func (b affBound) toAff(space *isl.Space) (*isl.Aff, error) {
	return b.aff, nil
}

func (b pwAffBound) toAff(space *isl.Space) (*isl.Aff, error) {
	return PwAffToAff(b.pw)
}

func (b exprBound) toAff(space *isl.Space) (*isl.Aff, error) {
	return AffFromExpr(space, b.expr)
}

// DimByName refers to a dimension by its name.
func DimByName(name string) Dim {
	return Dim{name: name}
}

// DimByPos refers to a dimension by its type and position.
func DimByPos(t isl.DimType, pos int) Dim {
	return Dim{typ: t, pos: pos}
}

func (d Dim) find(space *isl.Space) (isl.DimType, int, error) {
	if d.name == "" {
		if d.pos < 0 || d.pos >= space.Dim(d.typ) {
			return d.typ, d.pos, errors.Errorf("%s dimension %d out of range in %s", d.typ, d.pos, space)
		}
		return d.typ, d.pos, nil
	}
	t, pos, found := space.Find(d.name)
	if !found {
		return t, pos, fmterr.NameErrorf("dimension %q not found in %s", d.name, space)
	}
	return t, pos, nil
}

// MakeSlab returns the set start <= dim < stop.
// The space of the result is extended with the names used by the bounds.
func MakeSlab(space *isl.Space, dim Dim, start, stop Bound) (*isl.BasicSet, error) {
	zero := isl.ZeroOnDomain(space)
	startAff, err := start.toAff(space)
	if err != nil {
		return nil, err
	}
	stopAff, err := stop.toAff(space)
	if err != nil {
		return nil, err
	}
	// Merge the spaces of the bounds.
	zero = zero.Add(startAff.Scale(0)).Add(stopAff.Scale(0))
	space = zero.Space()
	t, pos, err := dim.find(space)
	if err != nil {
		return nil, err
	}
	dimAff := zero.AddCoefficient(t, pos, 1)
	return isl.Universe(space).
		// start <= dim
		AddConstraint(isl.InequalityFromAff(dimAff.Sub(startAff))).
		// dim < stop
		AddConstraint(isl.InequalityFromAff(stopAff.AddConstant(-1).Sub(dimAff))), nil
}

// InameRelAff returns an affine function which is non-negative,
// or zero for ==, if and only if iname rel aff holds.
// The space of aff does not need to match space.
func InameRelAff(space *isl.Space, iname, rel string, aff *isl.Aff) (*isl.Aff, error) {
	t, pos, found := space.Find(iname)
	if !found || t != isl.SetDim {
		return nil, fmterr.NameErrorf("%q is not a set dimension of %s", iname, space)
	}
	aff = isl.ZeroOnDomain(space).Add(aff)
	switch rel {
	case "==", "<=":
		return aff.AddCoefficient(isl.SetDim, pos, -1), nil
	case ">=":
		return aff.Neg().AddCoefficient(isl.SetDim, pos, 1), nil
	case "<":
		return aff.AddConstant(-1).AddCoefficient(isl.SetDim, pos, -1), nil
	case ">":
		return aff.AddConstant(1).Neg().AddCoefficient(isl.SetDim, pos, 1), nil
	}
	return nil, errors.Errorf("unknown relation %q", rel)
}
