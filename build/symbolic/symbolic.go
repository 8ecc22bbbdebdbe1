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

// Package symbolic defines the expressions used by kernel instructions.
package symbolic

import (
	"go/token"
	"strconv"
	"strings"
)

type (
	// Expr is an expression of the instruction language.
	Expr interface {
		// String returns the canonical form of the expression.
		// Two expressions with the same canonical form are structurally identical.
		String() string
		node()
	}

	// Variable is a reference to a name.
	Variable struct {
		Name string
	}

	// Int is an integer literal.
	Int struct {
		Value int64
	}

	// Float is a floating point literal.
	Float struct {
		Value float64
	}

	// Subscript is an indexed access to an array.
	Subscript struct {
		Aggregate *Variable
		Index     []Expr
	}

	// Call is a function call.
	Call struct {
		Func *Variable
		Args []Expr
	}

	// Binary is a binary operation.
	Binary struct {
		Op   token.Token
		X, Y Expr
	}

	// Unary is a unary operation.
	Unary struct {
		Op token.Token
		X  Expr
	}

	// FloorDiv is Num // Den, the quotient rounded towards negative infinity.
	FloorDiv struct {
		Num, Den Expr
	}

	// Power is Base**Exp.
	Power struct {
		Base, Exp Expr
	}

	// CSE marks a subexpression to compute once into a temporary.
	CSE struct {
		Child Expr
		// Prefix used to name the temporary.
		Prefix string
		// Kind of the temporary. Empty if the kind needs to be inferred.
		Kind string
	}

	// Reduction reduces an expression over a set of inames.
	Reduction struct {
		Op     string
		Inames []string
		Expr   Expr
	}
)

// Precedence of unary operators, power and primary expressions.
// Power binds tighter than unary operators: -x**2 is -(x**2).
const (
	unaryPrec   = token.HighestPrec
	powerPrec   = token.HighestPrec + 1
	primaryPrec = token.HighestPrec + 2
)

func (*Variable) node()  {}
func (*Int) node()       {}
func (*Float) node()     {}
func (*Subscript) node() {}
func (*Call) node()      {}
func (*Binary) node()    {}
func (*Unary) node()     {}
func (*FloorDiv) node()  {}
func (*Power) node()     {}
func (*CSE) node()       {}
func (*Reduction) node() {}

// NewVariable returns a reference to a name.
func NewVariable(name string) *Variable {
	return &Variable{Name: name}
}

// NewInt returns an integer literal.
func NewInt(v int64) *Int {
	return &Int{Value: v}
}

func (v *Variable) String() string { return v.Name }

func (v *Int) String() string { return strconv.FormatInt(v.Value, 10) }

func (v *Float) String() string {
	s := strconv.FormatFloat(v.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func (s *Subscript) String() string {
	return s.Aggregate.Name + "[" + join(s.Index) + "]"
}

func (c *Call) String() string {
	return c.Func.Name + "(" + join(c.Args) + ")"
}

func (b *Binary) String() string {
	prec := b.Op.Precedence()
	// Binary operators are left associative.
	return paren(b.X, prec, false) + " " + b.Op.String() + " " + paren(b.Y, prec, true)
}

func (f *FloorDiv) String() string {
	prec := token.QUO.Precedence()
	return paren(f.Num, prec, false) + " // " + paren(f.Den, prec, true)
}

func (u *Unary) String() string {
	return u.Op.String() + paren(u.X, unaryPrec, true)
}

// String returns the power. Power is right associative.
func (p *Power) String() string {
	return paren(p.Base, powerPrec, true) + "**" + paren(p.Exp, unaryPrec, false)
}

func (c *CSE) String() string {
	args := []string{c.Child.String()}
	if c.Prefix != "" || c.Kind != "" {
		args = append(args, strconv.Quote(c.Prefix))
	}
	if c.Kind != "" {
		args = append(args, strconv.Quote(c.Kind))
	}
	return "cse(" + strings.Join(args, ", ") + ")"
}

func (r *Reduction) String() string {
	return "reduce(" + r.Op + ", " + strconv.Quote(strings.Join(r.Inames, ",")) + ", " + r.Expr.String() + ")"
}

func precedence(x Expr) int {
	switch xT := x.(type) {
	case *Binary:
		return xT.Op.Precedence()
	case *FloorDiv:
		return token.QUO.Precedence()
	case *Unary:
		return unaryPrec
	case *Power:
		return powerPrec
	case *Int:
		if xT.Value < 0 {
			return unaryPrec
		}
	case *Float:
		if xT.Value < 0 {
			return unaryPrec
		}
	}
	return primaryPrec
}

func paren(x Expr, prec int, strict bool) string {
	p := precedence(x)
	if p < prec || (strict && p == prec) {
		return "(" + x.String() + ")"
	}
	return x.String()
}

func join(exprs []Expr) string {
	ss := make([]string, len(exprs))
	for i, x := range exprs {
		ss[i] = x.String()
	}
	return strings.Join(ss, ", ")
}

// Equal returns true if two expressions are structurally identical.
func Equal(x, y Expr) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.String() == y.String()
}
