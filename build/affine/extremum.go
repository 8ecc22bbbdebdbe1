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

// Package affine implements the affine analyses used to build kernels
// on top of the integer set library.
package affine

import (
	"slices"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
)

type setMethod func(*isl.PwAff, *isl.Aff) *isl.Set

// StaticMinOfPwAff returns an affine function smaller or equal to pw everywhere pw is defined.
// The function is one of the pieces of pw.
func StaticMinOfPwAff(pw *isl.PwAff, constantsOnly bool, context *isl.Set) (*isl.Aff, error) {
	return staticExtremum(pw, constantsOnly, (*isl.PwAff).GeSet, "minimum", context)
}

// StaticMaxOfPwAff returns an affine function greater or equal to pw everywhere pw is defined.
// The function is one of the pieces of pw.
func StaticMaxOfPwAff(pw *isl.PwAff, constantsOnly bool, context *isl.Set) (*isl.Aff, error) {
	return staticExtremum(pw, constantsOnly, (*isl.PwAff).LeSet, "maximum", context)
}

// StaticValueOfPwAff returns an affine function equal to pw everywhere pw is defined.
func StaticValueOfPwAff(pw *isl.PwAff, constantsOnly bool, context *isl.Set) (*isl.Aff, error) {
	return staticExtremum(pw, constantsOnly, (*isl.PwAff).EqSet, "value", context)
}

func staticExtremum(pw *isl.PwAff, constantsOnly bool, cmp setMethod, what string, context *isl.Set) (*isl.Aff, error) {
	if context != nil {
		pw = pw.Gist(context)
	}
	pieces := pw.Pieces()
	switch len(pieces) {
	case 0:
		return nil, fmterr.BoundErrorf("a static %s was not found for %s: function has no piece", what, pw)
	case 1:
		res := pieces[0].Aff
		if constantsOnly && !res.IsCst() {
			return nil, fmterr.BoundErrorf("a numeric %s was not found for %s", what, pw)
		}
		return res, nil
	}
	// Constant pieces first.
	slices.SortStableFunc(pieces, func(a, b isl.Piece) int {
		return cstRank(a) - cstRank(b)
	})
	reference := pw.AggregateDomain()
	if context != nil {
		reference = reference.Intersect(context)
	}
	for _, piece := range pieces {
		for _, candidate := range candidates(piece) {
			if constantsOnly && !candidate.IsCst() {
				continue
			}
			if reference.IsSubset(cmp(pw, candidate)) {
				return candidate, nil
			}
		}
	}
	return nil, fmterr.BoundErrorf("a static %s was not found for %s", what, pw)
}

func cstRank(p isl.Piece) int {
	if p.Aff.IsCst() {
		return 0
	}
	return 1
}

// candidates returns the function of a piece, then the function simplified by its domain.
func candidates(p isl.Piece) []*isl.Aff {
	res := []*isl.Aff{p.Aff}
	gisted := p.Aff.Gist(p.Set.CommonHull())
	if !gisted.PlainIsEqual(p.Aff) {
		res = append(res, gisted)
	}
	return res
}

// PwAffToAff returns the affine function of a piecewise affine function
// whose pieces are all the same function.
func PwAffToAff(pw *isl.PwAff) (*isl.Aff, error) {
	pieces := pw.Pieces()
	if len(pieces) == 0 {
		return nil, fmterr.BoundErrorf("piecewise affine function %s does not have any piece", pw)
	}
	first := pieces[0].Aff
	for _, other := range pieces[1:] {
		if !first.PlainIsEqual(other.Aff) {
			return nil, fmterr.BoundErrorf("only single-valued piecewise affine expressions are supported here: encountered multi-valued expression %s", pw)
		}
	}
	return first, nil
}
