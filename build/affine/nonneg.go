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
	"go/token"

	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/symbolic"
)

// Tristate is the answer to a question that may not be decidable.
type Tristate int

const (
	// Unknown means the answer could not be determined.
	Unknown Tristate = iota
	// True means the answer is yes.
	True
	// False means the answer is no.
	False
)

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "unknown"
}

// IsNonnegative returns True if an expression is non-negative everywhere on a set.
// It returns Unknown if the expression is not affine on the space of the set
// or if the existence of an integer point where it is negative is undecided.
func IsNonnegative(x symbolic.Expr, over *isl.BasicSet) Tristate {
	space := over.Space()
	// x < 0 <=> -x-1 >= 0
	neg := &symbolic.Binary{
		Op: token.SUB,
		X:  &symbolic.Unary{Op: token.SUB, X: x},
		Y:  symbolic.NewInt(1),
	}
	aff, err := AffFromExpr(space, neg)
	if err != nil {
		return Unknown
	}
	negSet := isl.Universe(space).AddConstraint(isl.InequalityFromAff(aff))
	switch empty, decided := over.Intersect(negSet).CheckEmpty(); {
	case empty:
		return True
	case decided:
		return False
	}
	return Unknown
}
