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
	"fmt"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Reduction operations recognized by reduce(op, inames..., expr).
var reductionOps = map[string]bool{
	"sum":     true,
	"product": true,
	"max":     true,
	"min":     true,
}

// Parse parses an expression.
//
// The syntax is the syntax of Go expressions with the following additions:
//
//	a**b                      power, right associative and binding tighter than unary minus
//	a // b                    floor division
//	cse(expr[, prefix[, kind]]) common subexpression
//	sum(i, [j, ...,] expr)    sum reduction over inames i, j
//	product(i, expr)          product reduction
//	reduce(op, i, expr)       reduction with op in sum, product, max, min
//
// Inames of a reduction can also be given as a single string: sum("i,j", expr).
func Parse(src string) (Expr, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse expression %q", src)
	}
	p := &exprParser{src: src, toks: toks}
	x, err := p.binary(token.LowestPrec + 1)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.tok != token.EOF {
		return nil, p.errorf(t, "unexpected %s", t.lit)
	}
	return x, nil
}

// MustParse parses an expression and panics if an error occurs.
func MustParse(src string) Expr {
	x, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return x
}

type tok struct {
	off int
	tok token.Token
	lit string
}

// Literals of the operators not in Go.
const (
	powerLit    = "**"
	floorDivLit = "//"
)

// scan splits an expression into tokens.
// Go scans // as the start of a comment: scanning restarts after
// the two slashes which are kept as a floor division.
func scan(src string) ([]tok, error) {
	var toks []tok
	for base := 0; base >= 0; {
		var (
			sc      scanner.Scanner
			scanErr error
		)
		fset := token.NewFileSet()
		file := fset.AddFile("", fset.Base(), len(src)-base)
		sc.Init(file, []byte(src[base:]), func(pos token.Position, msg string) {
			if scanErr == nil {
				scanErr = errors.Errorf("%d: %s", base+pos.Offset+1, msg)
			}
		}, scanner.ScanComments)
		restart := -1
		for restart < 0 {
			pos, t, lit := sc.Scan()
			if t == token.EOF {
				break
			}
			off := base + file.Offset(pos)
			switch {
			case t == token.SEMICOLON && lit == "\n":
				continue
			case t == token.COMMENT:
				if !strings.HasPrefix(lit, floorDivLit) {
					return nil, errors.Errorf("%d: unsupported comment", off+1)
				}
				toks = append(toks, tok{off: off, tok: token.QUO, lit: floorDivLit})
				restart = off + len(floorDivLit)
				continue
			case t == token.MUL && len(toks) > 0:
				last := &toks[len(toks)-1]
				if last.tok == token.MUL && last.lit == "*" && last.off == off-1 {
					last.lit = powerLit
					continue
				}
			}
			if lit == "" {
				lit = t.String()
			}
			toks = append(toks, tok{off: off, tok: t, lit: lit})
		}
		if scanErr != nil {
			return nil, scanErr
		}
		base = restart
	}
	return toks, nil
}

func isPower(t tok) bool {
	return t.tok == token.MUL && t.lit == powerLit
}

type exprParser struct {
	src  string
	toks []tok
	pos  int
}

func (p *exprParser) peek() tok {
	if p.pos >= len(p.toks) {
		return tok{off: len(p.src), tok: token.EOF, lit: "end of expression"}
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() tok {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *exprParser) expect(want token.Token) error {
	if t := p.next(); t.tok != want {
		return p.errorf(t, "expected %s, found %s", want, t.lit)
	}
	return nil
}

func (p *exprParser) errorf(t tok, format string, a ...any) error {
	return errors.Errorf("%s:%d: %s", p.src, t.off+1, fmt.Sprintf(format, a...))
}

// binaryPrec returns the precedence of a binary operator token,
// or token.LowestPrec if the token is not a binary operator.
func binaryPrec(t tok) int {
	if isPower(t) {
		return token.LowestPrec
	}
	return t.tok.Precedence()
}

// binary parses a sequence of left associative binary operations
// with a precedence of at least prec1.
func (p *exprParser) binary(prec1 int) (Expr, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec := binaryPrec(t)
		if prec < prec1 {
			return x, nil
		}
		p.next()
		y, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		if t.lit == floorDivLit {
			x = &FloorDiv{Num: x, Den: y}
		} else {
			x = &Binary{Op: t.tok, X: x, Y: y}
		}
	}
}

func (p *exprParser) unary() (Expr, error) {
	t := p.peek()
	switch t.tok {
	case token.ADD, token.SUB, token.NOT, token.XOR:
	default:
		return p.power()
	}
	p.next()
	sub, err := p.unary()
	if err != nil {
		return nil, err
	}
	switch t.tok {
	case token.ADD:
		return sub, nil
	case token.SUB:
		switch subT := sub.(type) {
		case *Int:
			return &Int{Value: -subT.Value}, nil
		case *Float:
			return &Float{Value: -subT.Value}, nil
		}
	}
	return &Unary{Op: t.tok, X: sub}, nil
}

// power parses primary**exponent where the exponent can have a unary operator.
func (p *exprParser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !isPower(p.peek()) {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Power{Base: base, Exp: exp}, nil
}

func (p *exprParser) primary() (Expr, error) {
	t := p.next()
	switch t.tok {
	case token.IDENT:
		switch p.peek().tok {
		case token.LBRACK:
			return p.subscript(t)
		case token.LPAREN:
			return p.call(t)
		}
		return &Variable{Name: t.lit}, nil
	case token.INT, token.FLOAT:
		return p.basicLit(t)
	case token.LPAREN:
		x, err := p.binary(token.LowestPrec + 1)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return x, nil
	}
	return nil, p.errorf(t, "unexpected %s", t.lit)
}

func (p *exprParser) basicLit(t tok) (Expr, error) {
	if t.tok == token.INT {
		v, err := strconv.ParseInt(t.lit, 0, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid integer literal %s", t.lit)
		}
		return &Int{Value: v}, nil
	}
	v, err := strconv.ParseFloat(t.lit, 64)
	if err != nil {
		return nil, p.errorf(t, "invalid float literal %s", t.lit)
	}
	return &Float{Value: v}, nil
}

// arg is an argument of a call or an index of a subscript.
// String literals are only accepted as arguments of some calls.
type arg struct {
	at    tok
	x     Expr
	str   string
	isStr bool
}

// list parses a comma separated list of arguments after an opening token.
func (p *exprParser) list(closing token.Token) ([]arg, error) {
	p.next()
	var args []arg
	if p.peek().tok == closing {
		p.next()
		return args, nil
	}
	for {
		a := arg{at: p.peek()}
		if a.at.tok == token.STRING {
			p.next()
			s, err := strconv.Unquote(a.at.lit)
			if err != nil {
				return nil, p.errorf(a.at, "invalid string literal %s", a.at.lit)
			}
			a.str, a.isStr = s, true
		} else {
			var err error
			if a.x, err = p.binary(token.LowestPrec + 1); err != nil {
				return nil, err
			}
		}
		args = append(args, a)
		switch t := p.next(); t.tok {
		case token.COMMA:
		case closing:
			return args, nil
		default:
			return nil, p.errorf(t, "expected , or %s, found %s", closing, t.lit)
		}
	}
}

func (p *exprParser) exprs(args []arg) ([]Expr, error) {
	r := make([]Expr, len(args))
	for i, a := range args {
		if a.isStr {
			return nil, p.errorf(a.at, "unexpected string %s", a.at.lit)
		}
		r[i] = a.x
	}
	return r, nil
}

func (p *exprParser) subscript(name tok) (Expr, error) {
	open := p.peek()
	args, err := p.list(token.RBRACK)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, p.errorf(open, "empty subscript of %s", name.lit)
	}
	idx, err := p.exprs(args)
	if err != nil {
		return nil, err
	}
	return &Subscript{Aggregate: &Variable{Name: name.lit}, Index: idx}, nil
}

func (p *exprParser) call(name tok) (Expr, error) {
	args, err := p.list(token.RPAREN)
	if err != nil {
		return nil, err
	}
	switch name.lit {
	case "cse":
		return p.cse(name, args)
	case "sum", "product":
		return p.reduction(name, name.lit, args)
	case "reduce":
		if len(args) < 3 {
			return nil, p.errorf(name, "reduce requires an operation, inames and an expression")
		}
		op, ok := args[0].x.(*Variable)
		if !ok || !reductionOps[op.Name] {
			return nil, p.errorf(args[0].at, "unknown reduction operation")
		}
		return p.reduction(name, op.Name, args[1:])
	}
	xs, err := p.exprs(args)
	if err != nil {
		return nil, err
	}
	return &Call{Func: &Variable{Name: name.lit}, Args: xs}, nil
}

func (p *exprParser) cse(name tok, args []arg) (Expr, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, p.errorf(name, "cse requires between 1 and 3 arguments")
	}
	if args[0].isStr {
		return nil, p.errorf(args[0].at, "cse requires an expression")
	}
	c := &CSE{Child: args[0].x}
	if len(args) > 1 {
		if !args[1].isStr {
			return nil, p.errorf(args[1].at, "cse prefix must be a string")
		}
		c.Prefix = args[1].str
	}
	if len(args) > 2 {
		if !args[2].isStr {
			return nil, p.errorf(args[2].at, "cse kind must be a string")
		}
		c.Kind = args[2].str
	}
	return c, nil
}

func (p *exprParser) reduction(name tok, op string, args []arg) (Expr, error) {
	if len(args) < 2 {
		return nil, p.errorf(name, "%s requires inames and an expression", op)
	}
	var inames []string
	for _, a := range args[:len(args)-1] {
		if a.isStr {
			for _, iname := range strings.Split(a.str, ",") {
				if iname = strings.TrimSpace(iname); iname != "" {
					inames = append(inames, iname)
				}
			}
			continue
		}
		v, ok := a.x.(*Variable)
		if !ok {
			return nil, p.errorf(a.at, "reduction iname must be a name")
		}
		inames = append(inames, v.Name)
	}
	body := args[len(args)-1]
	if body.isStr {
		return nil, p.errorf(body.at, "%s requires an expression", op)
	}
	return &Reduction{Op: op, Inames: inames, Expr: body.x}, nil
}
