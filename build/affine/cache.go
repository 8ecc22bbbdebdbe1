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
)

type (
	cacheKey struct {
		set string
		pos int
	}

	baseAndLength struct {
		base, length symbolic.Expr
	}

	// Cache memoizes the bounds computed on sets during the build of a kernel.
	// A cache is not safe for concurrent use.
	Cache struct {
		mins  map[cacheKey]*isl.PwAff
		maxs  map[cacheKey]*isl.PwAff
		bases map[cacheKey]baseAndLength

		hits, misses int
	}
)

// NewCache returns a new empty cache.
func NewCache() *Cache {
	return &Cache{
		mins:  make(map[cacheKey]*isl.PwAff),
		maxs:  make(map[cacheKey]*isl.PwAff),
		bases: make(map[cacheKey]baseAndLength),
	}
}

func memo[V any](c *Cache, m map[cacheKey]V, key cacheKey, compute func() (V, error)) (V, error) {
	if v, ok := m[key]; ok {
		c.hits++
		return v, nil
	}
	c.misses++
	v, err := compute()
	if err != nil {
		return v, err
	}
	m[key] = v
	return v, nil
}

// DimMin returns the minimum of a set dimension as a function of the parameters.
func (c *Cache) DimMin(set *isl.Set, pos int) (*isl.PwAff, error) {
	return memo(c, c.mins, cacheKey{set: set.String(), pos: pos}, func() (*isl.PwAff, error) {
		return set.DimMin(pos)
	})
}

// DimMax returns the maximum of a set dimension as a function of the parameters.
func (c *Cache) DimMax(set *isl.Set, pos int) (*isl.PwAff, error) {
	return memo(c, c.maxs, cacheKey{set: set.String(), pos: pos}, func() (*isl.PwAff, error) {
		return set.DimMax(pos)
	})
}

// BaseIndexAndLength returns the static minimum of a set dimension and
// the constant number of values the dimension takes.
func (c *Cache) BaseIndexAndLength(set *isl.Set, pos int) (base, length symbolic.Expr, err error) {
	bl, err := memo(c, c.bases, cacheKey{set: set.String(), pos: pos}, func() (baseAndLength, error) {
		return c.baseIndexAndLength(set, pos)
	})
	return bl.base, bl.length, err
}

func (c *Cache) baseIndexAndLength(set *isl.Set, pos int) (baseAndLength, error) {
	lower, err := c.DimMin(set, pos)
	if err != nil {
		return baseAndLength{}, fmterr.Wrap(fmterr.BoundError, err, "cannot find the lower bound of dimension %d", pos)
	}
	upper, err := c.DimMax(set, pos)
	if err != nil {
		return baseAndLength{}, fmterr.Wrap(fmterr.BoundError, err, "cannot find the upper bound of dimension %d", pos)
	}
	size, err := StaticMaxOfPwAff(upper.Sub(lower).AddConstant(1), true, nil)
	if err != nil {
		return baseAndLength{}, err
	}
	base, err := StaticValueOfPwAff(lower, false, nil)
	if err != nil {
		return baseAndLength{}, err
	}
	return baseAndLength{base: ExprFromAff(base), length: ExprFromAff(size)}, nil
}

// Stats returns the number of cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
