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

package symbolic

import (
	"go/token"
	"slices"
	"sort"
)

// Walk calls f on every node of an expression in depth-first order.
// Children of a node are not visited if f returns false.
func Walk(x Expr, f func(Expr) bool) {
	if !f(x) {
		return
	}
	for _, child := range children(x) {
		Walk(child, f)
	}
}

func children(x Expr) []Expr {
	switch xT := x.(type) {
	case *Subscript:
		return append([]Expr{xT.Aggregate}, xT.Index...)
	case *Call:
		return xT.Args
	case *Binary:
		return []Expr{xT.X, xT.Y}
	case *FloorDiv:
		return []Expr{xT.Num, xT.Den}
	case *Unary:
		return []Expr{xT.X}
	case *Power:
		return []Expr{xT.Base, xT.Exp}
	case *CSE:
		return []Expr{xT.Child}
	case *Reduction:
		return []Expr{xT.Expr}
	}
	return nil
}

// Transform rebuilds an expression bottom-up:
// f is called on every node once its children have been transformed.
func Transform(x Expr, f func(Expr) Expr) Expr {
	switch xT := x.(type) {
	case *Subscript:
		agg := Transform(xT.Aggregate, f)
		index := transformAll(xT.Index, f)
		if v, ok := agg.(*Variable); ok {
			x = &Subscript{Aggregate: v, Index: index}
		} else {
			x = &Subscript{Aggregate: xT.Aggregate, Index: index}
		}
	case *Call:
		x = &Call{Func: xT.Func, Args: transformAll(xT.Args, f)}
	case *Binary:
		x = &Binary{Op: xT.Op, X: Transform(xT.X, f), Y: Transform(xT.Y, f)}
	case *FloorDiv:
		x = &FloorDiv{Num: Transform(xT.Num, f), Den: Transform(xT.Den, f)}
	case *Unary:
		x = &Unary{Op: xT.Op, X: Transform(xT.X, f)}
	case *Power:
		x = &Power{Base: Transform(xT.Base, f), Exp: Transform(xT.Exp, f)}
	case *CSE:
		x = &CSE{Child: Transform(xT.Child, f), Prefix: xT.Prefix, Kind: xT.Kind}
	case *Reduction:
		x = &Reduction{Op: xT.Op, Inames: slices.Clone(xT.Inames), Expr: Transform(xT.Expr, f)}
	}
	return f(x)
}

func transformAll(xs []Expr, f func(Expr) Expr) []Expr {
	r := make([]Expr, len(xs))
	for i, x := range xs {
		r[i] = Transform(x, f)
	}
	return r
}

// Dependencies returns the sorted names of the variables an expression depends on.
// Function names and inames bound by a reduction are not dependencies.
func Dependencies(x Expr) []string {
	deps := make(map[string]bool)
	collectDeps(x, nil, deps)
	return sortedKeys(deps)
}

func collectDeps(x Expr, bound []string, deps map[string]bool) {
	switch xT := x.(type) {
	case *Variable:
		if !slices.Contains(bound, xT.Name) {
			deps[xT.Name] = true
		}
		return
	case *Reduction:
		collectDeps(xT.Expr, append(slices.Clone(bound), xT.Inames...), deps)
		return
	}
	for _, child := range children(x) {
		collectDeps(child, bound, deps)
	}
}

// ReductionInames returns the sorted inames reduced in an expression.
func ReductionInames(x Expr) []string {
	inames := make(map[string]bool)
	Walk(x, func(x Expr) bool {
		if red, ok := x.(*Reduction); ok {
			for _, name := range red.Inames {
				inames[name] = true
			}
		}
		return true
	})
	return sortedKeys(inames)
}

// IndexRanks returns, for each variable used in an expression,
// the numbers of indices used to access it.
// A variable used without a subscript has rank 0.
func IndexRanks(x Expr) map[string][]int {
	ranks := make(map[string][]int)
	add := func(name string, rank int) {
		if !slices.Contains(ranks[name], rank) {
			ranks[name] = append(ranks[name], rank)
		}
	}
	Walk(x, func(x Expr) bool {
		switch xT := x.(type) {
		case *Variable:
			add(xT.Name, 0)
		case *Subscript:
			add(xT.Aggregate.Name, len(xT.Index))
			for _, idx := range xT.Index {
				for name, rs := range IndexRanks(idx) {
					for _, r := range rs {
						add(name, r)
					}
				}
			}
			return false
		}
		return true
	})
	for _, rs := range ranks {
		sort.Ints(rs)
	}
	return ranks
}

// Substitute replaces variables by expressions.
func Substitute(x Expr, subst map[string]Expr) Expr {
	return Transform(x, func(x Expr) Expr {
		v, ok := x.(*Variable)
		if !ok {
			return x
		}
		if r, ok := subst[v.Name]; ok {
			return r
		}
		return x
	})
}

// Fold evaluates the operations between integer literals.
// Division and remainder of integers round towards negative infinity.
func Fold(x Expr) Expr {
	return Transform(x, func(x Expr) Expr {
		switch xT := x.(type) {
		case *Binary:
			return foldBinary(xT)
		case *FloorDiv:
			return foldFloorDiv(xT)
		case *Unary:
			if i, ok := xT.X.(*Int); ok && xT.Op == token.SUB {
				return &Int{Value: -i.Value}
			}
		case *Power:
			base, okB := xT.Base.(*Int)
			exp, okE := xT.Exp.(*Int)
			if okB && okE && exp.Value >= 0 {
				r := int64(1)
				for range exp.Value {
					r *= base.Value
				}
				return &Int{Value: r}
			}
		}
		return x
	})
}

func foldBinary(b *Binary) Expr {
	x, okX := b.X.(*Int)
	y, okY := b.Y.(*Int)
	if !okX || !okY {
		switch {
		case okX && x.Value == 0 && b.Op == token.ADD:
			return b.Y
		case okY && y.Value == 0 && (b.Op == token.ADD || b.Op == token.SUB):
			return b.X
		case okX && x.Value == 1 && b.Op == token.MUL:
			return b.Y
		case okY && y.Value == 1 && (b.Op == token.MUL || b.Op == token.QUO):
			return b.X
		}
		return b
	}
	switch b.Op {
	case token.ADD:
		return &Int{Value: x.Value + y.Value}
	case token.SUB:
		return &Int{Value: x.Value - y.Value}
	case token.MUL:
		return &Int{Value: x.Value * y.Value}
	case token.QUO:
		if y.Value != 0 {
			return &Int{Value: floorDiv(x.Value, y.Value)}
		}
	case token.REM:
		if y.Value != 0 {
			return &Int{Value: x.Value - y.Value*floorDiv(x.Value, y.Value)}
		}
	}
	return b
}

func foldFloorDiv(f *FloorDiv) Expr {
	den, ok := f.Den.(*Int)
	if !ok || den.Value == 0 {
		return f
	}
	if den.Value == 1 {
		return f.Num
	}
	if num, ok := f.Num.(*Int); ok {
		return &Int{Value: floorDiv(num.Value, den.Value)}
	}
	return f
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
