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
	"fmt"
	"go/scanner"
	"go/token"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// maxDisjuncts bounds the number of pieces of a set read from text.
const maxDisjuncts = 1024

type (
	// linear is sum(coef[name]*name) + k.
	linear struct {
		coef map[string]int64
		k    int64
	}

	// atom is lin >= 0 or lin = 0.
	atom struct {
		lin linear
		eq  bool
	}

	// dnf is a disjunction of conjunctions.
	dnf [][]atom

	tok struct {
		pos token.Pos
		tok token.Token
		lit string
	}

	reader struct {
		src       string
		toks      []tok
		pos       int
		params    []string
		set       []string
		scopes    []map[string]string
		existVars []string
	}
)

// ReadSet reads a set given in the syntax
//
//	[p0, p1] -> { [i0, i1] : constraints }
//
// Constraints are chained comparisons (<, <=, >, >=, =, ==, !=) of affine
// expressions combined with and (&&) and or (||). The syntax
// exists e0, e1 : constraints introduces existentially quantified variables.
// Existential variables defining a stride, as in exists k : i = 2k, are rejected.
// The parameter list can be omitted if the constraints only use set dimensions.
func ReadSet(src string) (*Set, error) {
	r, err := newReader(src)
	if err != nil {
		return nil, err
	}
	s, err := r.readSet()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read set %q", src)
	}
	return s, nil
}

// ReadBasicSet reads a set which must be convex. See ReadSet for the syntax.
func ReadBasicSet(src string) (*BasicSet, error) {
	s, err := ReadSet(src)
	if err != nil {
		return nil, err
	}
	s = s.Coalesce()
	switch len(s.pieces) {
	case 0:
		return EmptyBasicSet(s.space), nil
	case 1:
		return s.pieces[0], nil
	}
	return nil, errors.Errorf("set %q is not convex", src)
}

func newReader(src string) (*reader, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var errs scanner.ErrorList
	var sc scanner.Scanner
	sc.Init(file, []byte(src), func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, 0)
	r := &reader{src: src}
	for {
		pos, t, lit := sc.Scan()
		if t == token.EOF {
			break
		}
		if t == token.SEMICOLON && lit == "\n" {
			continue
		}
		if t == token.IMAG {
			// 2i is the product of 2 and i.
			r.toks = append(r.toks,
				tok{pos: pos, tok: token.INT, lit: strings.TrimSuffix(lit, "i")},
				tok{pos: pos, tok: token.IDENT, lit: "i"},
			)
			continue
		}
		r.toks = append(r.toks, tok{pos: pos, tok: t, lit: lit})
	}
	if err := errs.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot scan set %q", src)
	}
	return r, nil
}

func (r *reader) peek() tok {
	if r.pos >= len(r.toks) {
		return tok{tok: token.EOF}
	}
	return r.toks[r.pos]
}

func (r *reader) next() tok {
	t := r.peek()
	if r.pos < len(r.toks) {
		r.pos++
	}
	return t
}

func (r *reader) isKeyword(word string) bool {
	t := r.peek()
	return t.tok == token.IDENT && t.lit == word
}

func (t tok) String() string {
	if t.lit != "" {
		return t.lit
	}
	return t.tok.String()
}

func (r *reader) expect(want token.Token) error {
	if got := r.next(); got.tok != want {
		return errors.Errorf("expected %s but got %s", want, got)
	}
	return nil
}

func (r *reader) identList(end token.Token) ([]string, error) {
	var names []string
	for r.peek().tok != end {
		t := r.next()
		if t.tok != token.IDENT {
			return nil, errors.Errorf("expected a name but got %s", t)
		}
		names = append(names, t.lit)
		if r.peek().tok == token.COMMA {
			r.next()
		}
	}
	r.next()
	return names, nil
}

func (r *reader) readSet() (*Set, error) {
	if r.peek().tok == token.LBRACK {
		r.next()
		params, err := r.identList(token.RBRACK)
		if err != nil {
			return nil, err
		}
		r.params = params
		if err := r.expect(token.SUB); err != nil {
			return nil, err
		}
		if err := r.expect(token.GTR); err != nil {
			return nil, err
		}
	}
	if err := r.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var disjuncts dnf
	first := true
	for {
		tuple := []string{}
		if r.peek().tok == token.LBRACK {
			r.next()
			var err error
			if tuple, err = r.identList(token.RBRACK); err != nil {
				return nil, err
			}
		}
		if first {
			r.set = tuple
			first = false
		} else if len(tuple) != len(r.set) {
			return nil, errors.Errorf("tuple %v does not match tuple %v", tuple, r.set)
		}
		piece := dnf{nil}
		if r.peek().tok == token.COLON {
			r.next()
			var err error
			if piece, err = r.renamed(tuple, r.disjunction); err != nil {
				return nil, err
			}
		}
		disjuncts = append(disjuncts, piece...)
		if r.peek().tok != token.SEMICOLON {
			break
		}
		r.next()
	}
	if err := r.expect(token.RBRACE); err != nil {
		return nil, err
	}
	if t := r.peek(); t.tok != token.EOF {
		return nil, errors.Errorf("unexpected %s after the end of the set", t)
	}
	return r.build(disjuncts)
}

// renamed parses with the names of a tuple mapped to the names of the first tuple.
func (r *reader) renamed(tuple []string, parse func() (dnf, error)) (dnf, error) {
	scope := make(map[string]string)
	for i, name := range tuple {
		scope[name] = r.set[i]
	}
	r.scopes = append(r.scopes, scope)
	defer func() { r.scopes = r.scopes[:len(r.scopes)-1] }()
	return parse()
}

func (r *reader) disjunction() (dnf, error) {
	res, err := r.conjunction()
	if err != nil {
		return nil, err
	}
	for r.isKeyword("or") || r.peek().tok == token.LOR {
		r.next()
		other, err := r.conjunction()
		if err != nil {
			return nil, err
		}
		res = append(res, other...)
		if len(res) > maxDisjuncts {
			return nil, errors.Errorf("too many disjuncts")
		}
	}
	return res, nil
}

func (r *reader) conjunction() (dnf, error) {
	res, err := r.atom()
	if err != nil {
		return nil, err
	}
	for r.isKeyword("and") || r.peek().tok == token.LAND {
		r.next()
		other, err := r.atom()
		if err != nil {
			return nil, err
		}
		if len(res)*len(other) > maxDisjuncts {
			return nil, errors.Errorf("too many disjuncts")
		}
		var prod dnf
		for _, a := range res {
			for _, b := range other {
				prod = append(prod, append(slices.Clone(a), b...))
			}
		}
		res = prod
	}
	return res, nil
}

func (r *reader) atom() (dnf, error) {
	switch {
	case r.isKeyword("exists"):
		r.next()
		return r.exists()
	case r.isKeyword("true"):
		r.next()
		return dnf{nil}, nil
	case r.isKeyword("false"):
		r.next()
		return dnf{}, nil
	case r.peek().tok == token.LPAREN:
		// Either a parenthesized formula or a comparison starting with a parenthesized expression.
		start := r.pos
		if res, err := r.comparison(); err == nil {
			return res, nil
		}
		r.pos = start
		r.next()
		res, err := r.disjunction()
		if err != nil {
			return nil, err
		}
		if err := r.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return res, nil
	}
	return r.comparison()
}

func (r *reader) exists() (dnf, error) {
	paren := r.peek().tok == token.LPAREN
	if paren {
		r.next()
	}
	scope := make(map[string]string)
	for {
		t := r.next()
		if t.tok != token.IDENT {
			return nil, errors.Errorf("expected an existential variable but got %s", t)
		}
		internal := fmt.Sprintf("%s'%d", t.lit, len(r.existVars))
		scope[t.lit] = internal
		r.existVars = append(r.existVars, internal)
		if r.peek().tok != token.COMMA {
			break
		}
		r.next()
	}
	if err := r.expect(token.COLON); err != nil {
		return nil, err
	}
	r.scopes = append(r.scopes, scope)
	defer func() { r.scopes = r.scopes[:len(r.scopes)-1] }()
	res, err := r.disjunction()
	if err != nil {
		return nil, err
	}
	if paren {
		if err := r.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *reader) comparison() (dnf, error) {
	lhs, err := r.expr()
	if err != nil {
		return nil, err
	}
	res := dnf{nil}
	n := 0
	for {
		op := r.peek().tok
		switch op {
		case token.LSS, token.LEQ, token.GTR, token.GEQ, token.ASSIGN, token.EQL, token.NEQ:
		default:
			if n == 0 {
				return nil, errors.Errorf("expected a comparison but got %s", r.peek())
			}
			return res, nil
		}
		r.next()
		rhs, err := r.expr()
		if err != nil {
			return nil, err
		}
		cmp := compare(lhs, op, rhs)
		var prod dnf
		for _, a := range res {
			for _, b := range cmp {
				prod = append(prod, append(slices.Clone(a), b...))
			}
		}
		res = prod
		lhs = rhs
		n++
	}
}

func compare(lhs linear, op token.Token, rhs linear) dnf {
	switch op {
	case token.LSS:
		return dnf{{{lin: rhs.sub(lhs).add(-1)}}}
	case token.LEQ:
		return dnf{{{lin: rhs.sub(lhs)}}}
	case token.GTR:
		return dnf{{{lin: lhs.sub(rhs).add(-1)}}}
	case token.GEQ:
		return dnf{{{lin: lhs.sub(rhs)}}}
	case token.NEQ:
		return dnf{
			{{lin: rhs.sub(lhs).add(-1)}},
			{{lin: lhs.sub(rhs).add(-1)}},
		}
	}
	return dnf{{{lin: lhs.sub(rhs), eq: true}}}
}

func (r *reader) expr() (linear, error) {
	neg := false
	if r.peek().tok == token.SUB {
		r.next()
		neg = true
	}
	res, err := r.term()
	if err != nil {
		return linear{}, err
	}
	if neg {
		res = res.scale(-1)
	}
	for {
		op := r.peek().tok
		if op != token.ADD && op != token.SUB {
			return res, nil
		}
		r.next()
		t, err := r.term()
		if err != nil {
			return linear{}, err
		}
		if op == token.SUB {
			t = t.scale(-1)
		}
		res = res.plus(t)
	}
}

func (r *reader) term() (linear, error) {
	res, err := r.factor()
	if err != nil {
		return linear{}, err
	}
	for {
		switch t := r.peek(); {
		case t.tok == token.MUL:
			r.next()
		case t.tok == token.IDENT && res.isConst() && !isKeyword(t.lit):
			// 2n is the product of 2 and n.
		case t.tok == token.LPAREN && res.isConst():
		default:
			return res, nil
		}
		f, err := r.factor()
		if err != nil {
			return linear{}, err
		}
		switch {
		case res.isConst():
			res = f.scale(res.k)
		case f.isConst():
			res = res.scale(f.k)
		default:
			return linear{}, errors.Errorf("product of non-constant expressions is not affine")
		}
	}
}

func isKeyword(s string) bool {
	switch s {
	case "and", "or", "exists", "true", "false":
		return true
	}
	return false
}

func (r *reader) factor() (linear, error) {
	t := r.next()
	switch t.tok {
	case token.INT:
		v, err := strconv.ParseInt(t.lit, 0, 64)
		if err != nil {
			return linear{}, errors.Errorf("invalid integer %s", t.lit)
		}
		return linear{k: v}, nil
	case token.IDENT:
		name, err := r.resolve(t.lit)
		if err != nil {
			return linear{}, err
		}
		return linear{coef: map[string]int64{name: 1}}, nil
	case token.SUB:
		f, err := r.factor()
		if err != nil {
			return linear{}, err
		}
		return f.scale(-1), nil
	case token.LPAREN:
		e, err := r.expr()
		if err != nil {
			return linear{}, err
		}
		if err := r.expect(token.RPAREN); err != nil {
			return linear{}, err
		}
		return e, nil
	}
	return linear{}, errors.Errorf("unexpected %s in expression", t)
}

func (r *reader) resolve(name string) (string, error) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if internal, ok := r.scopes[i][name]; ok {
			return internal, nil
		}
	}
	if slices.Contains(r.set, name) || slices.Contains(r.params, name) {
		return name, nil
	}
	return "", errors.Errorf("unknown identifier %q", name)
}

func (r *reader) build(disjuncts dnf) (*Set, error) {
	set := append(slices.Clone(r.set), r.existVars...)
	space := NewSpace(r.params, set)
	res := EmptySet(NewSpace(r.params, r.set))
	for _, conj := range disjuncts {
		rows := make([]row, len(conj))
		for i, a := range conj {
			rw := row{c: make([]int64, space.ncols()), k: a.lin.k, eq: a.eq}
			for name, v := range a.lin.coef {
				t, pos, _ := space.Find(name)
				rw.c[space.col(t, pos)] += v
			}
			rows[i] = rw
		}
		bs := newBasicSet(space, rows)
		if len(r.existVars) > 0 {
			var exact bool
			if bs, exact = bs.projectOut(SetDim, len(r.set), len(r.existVars)); !exact {
				return nil, errors.Errorf("existential variables cannot be eliminated exactly: strides are not supported")
			}
		}
		if bs.IsEmpty() {
			continue
		}
		res.pieces = append(res.pieces, bs)
	}
	return res, nil
}

func (l linear) isConst() bool {
	for _, v := range l.coef {
		if v != 0 {
			return false
		}
	}
	return true
}

func (l linear) scale(f int64) linear {
	r := linear{coef: make(map[string]int64, len(l.coef)), k: l.k * f}
	for name, v := range l.coef {
		r.coef[name] = v * f
	}
	return r
}

func (l linear) plus(o linear) linear {
	r := l.scale(1)
	for name, v := range o.coef {
		r.coef[name] += v
	}
	r.k += o.k
	return r
}

func (l linear) sub(o linear) linear {
	return l.plus(o.scale(-1))
}

func (l linear) add(k int64) linear {
	r := l.scale(1)
	r.k += k
	return r
}
