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
	"slices"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
)

// Convexify returns a basic set equal to a set.
// It tries the pieces of the set, the pieces of the coalesced set and
// finally the simple hull of the set, which must be equal to the set.
func Convexify(set *isl.Set) (*isl.BasicSet, error) {
	if bs, ok := singlePiece(set); ok {
		return bs, nil
	}
	coalesced := set.Coalesce()
	if bs, ok := singlePiece(coalesced); ok {
		return bs, nil
	}
	hull := coalesced.SimpleHull()
	if hull.ToSet().IsEqual(set) {
		return hull, nil
	}
	return nil, fmterr.ConvexityErrorf("could not find a convex representation of set %s", set)
}

func singlePiece(set *isl.Set) (*isl.BasicSet, bool) {
	switch set.NBasicSet() {
	case 0:
		return isl.EmptyBasicSet(set.Space()), true
	case 1:
		return set.BasicSets()[0], true
	}
	return nil, false
}

// Boxify returns the smallest box containing a domain in its box inames.
// Box inames must be the trailing set dimensions of the domain.
// The bounds of the box are functions of the parameters and of the other inames.
func Boxify(cache *Cache, domain *isl.BasicSet, boxInames []string, context *isl.BasicSet) (*isl.BasicSet, error) {
	names := domain.Space().Names(isl.SetDim)
	indices := make([]int, len(boxInames))
	for i, iname := range boxInames {
		indices[i] = slices.Index(names, iname)
		if indices[i] < 0 {
			return nil, fmterr.NameErrorf("iname %q not found in domain %s", iname, domain)
		}
	}
	nNonBox := len(names) - len(boxInames)
	for i, index := range indices {
		if index != nNonBox+i {
			return nil, fmterr.Internalf("box inames %v are not the trailing dimensions of domain %s", boxInames, domain)
		}
	}
	nOldParams := domain.Space().Dim(isl.Param)
	domain = domain.MoveDims(isl.Param, nOldParams, isl.SetDim, 0, nNonBox)
	result := isl.UniverseSet(domain.Space())
	space := result.Space()
	for i := range boxInames {
		inameAff := isl.VarOnDomain(space, isl.SetDim, i)
		inameMin, err := cache.DimMin(domain.ToSet(), i)
		if err != nil {
			return nil, err
		}
		inameMax, err := cache.DimMax(domain.ToSet(), i)
		if err != nil {
			return nil, err
		}
		inameMin = inameMin.AddSetDims(boxInames...).Coalesce()
		inameMax = inameMax.AddSetDims(boxInames...).Coalesce()
		slab := inameMin.LeSet(inameAff).Intersect(inameMax.GeSet(inameAff))
		if context != nil {
			slab = slab.Gist(context.ToSet())
		}
		result = result.Intersect(slab.Coalesce())
	}
	result = result.MoveDims(isl.SetDim, 0, isl.Param, nOldParams, nNonBox)
	return Convexify(result)
}

// DuplicateAxes returns a basic set with new inames constrained like existing inames.
// newInames[i] is a copy of duplicateInames[i]. New inames are appended
// to the set dimensions.
func DuplicateAxes(set *isl.BasicSet, duplicateInames, newInames []string) (*isl.BasicSet, error) {
	if len(duplicateInames) != len(newInames) {
		return nil, fmterr.Internalf("%d inames to duplicate but %d new inames", len(duplicateInames), len(newInames))
	}
	if len(duplicateInames) == 0 {
		return set, nil
	}
	space := set.Space()
	for _, name := range newInames {
		if _, _, found := space.Find(name); found {
			return nil, fmterr.NameErrorf("new iname %q already exists in %s", name, space)
		}
	}
	moreDims := set.InsertDims(isl.SetDim, space.Dim(isl.SetDim), newInames...)
	copied := set
	for i, old := range duplicateInames {
		t, pos, found := copied.Space().Find(old)
		if !found || t != isl.SetDim {
			return nil, fmterr.NameErrorf("iname %q to duplicate not found in %s", old, space)
		}
		copied = copied.SetDimName(isl.SetDim, pos, newInames[i])
	}
	copied, err := copied.AlignTo(moreDims.Space())
	if err != nil {
		return nil, fmterr.Wrap(fmterr.Internal, err, "cannot duplicate inames %v", duplicateInames)
	}
	return moreDims.Intersect(copied), nil
}
