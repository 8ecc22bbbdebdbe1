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
	"fmt"
	"go/token"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/symbolic"
	"github.com/pkg/errors"
)

// AffFromExpr converts an affine expression into an affine function on a space.
func AffFromExpr(space *isl.Space, x symbolic.Expr) (*isl.Aff, error) {
	aff, err := affFromExpr(space, symbolic.Fold(x))
	if err != nil {
		return nil, fmterr.Wrap(fmterr.BoundError, err, "cannot convert %s to an affine function", x)
	}
	return aff, nil
}

func affFromExpr(space *isl.Space, x symbolic.Expr) (*isl.Aff, error) {
	switch xT := x.(type) {
	case *symbolic.Int:
		return isl.ZeroOnDomain(space).AddConstant(xT.Value), nil
	case *symbolic.Variable:
		t, pos, found := space.Find(xT.Name)
		if !found {
			return nil, errors.Errorf("unknown name %q in %s", xT.Name, space)
		}
		return isl.VarOnDomain(space, t, pos), nil
	case *symbolic.Unary:
		if xT.Op != token.SUB {
			break
		}
		sub, err := affFromExpr(space, xT.X)
		if err != nil {
			return nil, err
		}
		return sub.Neg(), nil
	case *symbolic.Binary:
		return affFromBinary(space, xT)
	}
	return nil, errors.Errorf("%s is not affine", x)
}

func affFromBinary(space *isl.Space, x *symbolic.Binary) (*isl.Aff, error) {
	lhs, err := affFromExpr(space, x.X)
	if err != nil {
		return nil, err
	}
	rhs, err := affFromExpr(space, x.Y)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case token.ADD:
		return lhs.Add(rhs), nil
	case token.SUB:
		return lhs.Sub(rhs), nil
	case token.MUL:
		switch {
		case lhs.IsCst():
			return rhs.Scale(lhs.Constant()), nil
		case rhs.IsCst():
			return lhs.Scale(rhs.Constant()), nil
		}
	}
	return nil, errors.Errorf("%s is not affine", x)
}

// ExprFromAff converts an affine function into an expression.
func ExprFromAff(aff *isl.Aff) symbolic.Expr {
	var res symbolic.Expr
	addTerm := func(coef int64, v symbolic.Expr) {
		if res == nil {
			switch coef {
			case 1:
				res = v
			case -1:
				res = &symbolic.Unary{Op: token.SUB, X: v}
			default:
				res = &symbolic.Binary{Op: token.MUL, X: symbolic.NewInt(coef), Y: v}
			}
			return
		}
		op := token.ADD
		if coef < 0 {
			op, coef = token.SUB, -coef
		}
		term := v
		if coef != 1 {
			term = &symbolic.Binary{Op: token.MUL, X: symbolic.NewInt(coef), Y: v}
		}
		res = &symbolic.Binary{Op: op, X: res, Y: term}
	}
	space := aff.Space()
	for _, t := range []isl.DimType{isl.Param, isl.SetDim} {
		for pos := range space.Dim(t) {
			coef := aff.Coefficient(t, pos)
			if coef == 0 {
				continue
			}
			addTerm(coef, symbolic.NewVariable(space.DimName(t, pos)))
		}
	}
	k := aff.Constant()
	switch {
	case res == nil:
		return symbolic.NewInt(k)
	case k > 0:
		res = &symbolic.Binary{Op: token.ADD, X: res, Y: symbolic.NewInt(k)}
	case k < 0:
		res = &symbolic.Binary{Op: token.SUB, X: res, Y: symbolic.NewInt(-k)}
	}
	return res
}

// PwAffToExpr converts a single-valued piecewise affine function into an expression.
func PwAffToExpr(pw *isl.PwAff) (symbolic.Expr, error) {
	aff, err := PwAffToAff(pw)
	if err != nil {
		return nil, err
	}
	return ExprFromAff(aff), nil
}

// AccessRangeDim returns the name of the set dimension of an access range
// for a given axis of the accessed array.
func AccessRangeDim(axis int) string {
	return fmt.Sprintf("_ary_idx_%d", axis)
}

// AccessRange returns the set of indices used to access an array with an index
// on a domain. The set dimensions of the domain are projected out and
// the dimensions of the result are named by AccessRangeDim.
func AccessRange(domain *isl.BasicSet, index []symbolic.Expr) (*isl.Set, error) {
	nInames := domain.Space().Dim(isl.SetDim)
	names := make([]string, len(index))
	for i := range names {
		names[i] = AccessRangeDim(i)
	}
	amap := domain.InsertDims(isl.SetDim, nInames, names...)
	space := amap.Space()
	for i, idx := range index {
		aff, err := AffFromExpr(space, idx)
		if err != nil {
			return nil, err
		}
		aff = aff.AddCoefficient(isl.SetDim, nInames+i, -1)
		amap = amap.AddConstraint(isl.EqualityFromAff(aff))
	}
	return amap.ProjectOut(isl.SetDim, 0, nInames).ToSet(), nil
}
