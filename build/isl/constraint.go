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

// Constraint is either aff >= 0 or aff = 0.
type Constraint struct {
	aff *Aff
	eq  bool
}

// InequalityFromAff returns the constraint aff >= 0.
func InequalityFromAff(aff *Aff) *Constraint {
	return &Constraint{aff: aff}
}

// EqualityFromAff returns the constraint aff = 0.
func EqualityFromAff(aff *Aff) *Constraint {
	return &Constraint{aff: aff, eq: true}
}

// IsEquality returns true if the constraint is an equality.
func (c *Constraint) IsEquality() bool {
	return c.eq
}

// Aff returns the affine function of the constraint.
func (c *Constraint) Aff() *Aff {
	return c.aff
}

// Space returns the space of the constraint.
func (c *Constraint) Space() *Space {
	return c.aff.space
}

// String returns the constraint with positive terms on both sides.
func (c *Constraint) String() string {
	return formatRow(c.aff.space, c.aff.asRow(c.eq))
}

func formatRow(space *Space, r row) string {
	pos := make([]int64, len(r.c))
	neg := make([]int64, len(r.c))
	for i, v := range r.c {
		if v > 0 {
			pos[i] = v
		} else {
			neg[i] = -v
		}
	}
	var kpos, kneg int64
	if r.k > 0 {
		kpos = r.k
	} else {
		kneg = -r.k
	}
	op := " >= "
	if r.eq {
		op = " = "
	}
	return formatLinear(space, pos, kpos) + op + formatLinear(space, neg, kneg)
}
