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

package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/symbolic"
)

type (
	// Statement is a parsed statement: an instruction or a substitution rule.
	Statement interface {
		statement()
		String() string
	}

	// Instruction assigns the value of an expression to a variable.
	Instruction struct {
		// ID of the instruction. Empty until the kernel is assembled
		// if the ID is generated.
		ID string
		// IDPrefix is the prefix used to generate a unique ID.
		// Only used if ID is empty.
		IDPrefix string

		// Assignee is a *symbolic.Variable or a *symbolic.Subscript.
		Assignee   symbolic.Expr
		Expression symbolic.Expr

		// Deps are the IDs, or ID patterns, of the instructions this instruction depends on.
		// Only meaningful if DepsSet is true.
		Deps    []string
		DepsSet bool

		// ForcedInameDeps are inames the instruction depends on
		// even if they are not used by its expressions.
		ForcedInameDeps []string
		// Predicates are the names of the conditions guarding the instruction.
		Predicates []string
		Priority   int

		// TempVarType is the kind of the temporary declared by the instruction.
		// Invalid if the instruction does not declare a temporary.
		TempVarType irkind.Kind
	}

	// SubstitutionRule is a macro inlined wherever it is used.
	// It is not an instruction of the kernel.
	SubstitutionRule struct {
		Name       string
		Arguments  []string
		Expression symbolic.Expr
	}
)

func (*Instruction) statement()      {}
func (*SubstitutionRule) statement() {}

// DeclaresTemporary returns true if the instruction declares its assignee as a temporary.
func (insn *Instruction) DeclaresTemporary() bool {
	return insn.TempVarType != irkind.Invalid
}

// AssigneeName returns the name of the variable written by the instruction.
func (insn *Instruction) AssigneeName() string {
	switch lhs := insn.Assignee.(type) {
	case *symbolic.Variable:
		return lhs.Name
	case *symbolic.Subscript:
		return lhs.Aggregate.Name
	}
	return ""
}

// AssigneeIndex returns the index used to write the assignee.
// Returns nil if the assignee is not subscripted.
func (insn *Instruction) AssigneeIndex() []symbolic.Expr {
	if lhs, ok := insn.Assignee.(*symbolic.Subscript); ok {
		return lhs.Index
	}
	return nil
}

// ReductionInames returns the inames reduced by the expression of the instruction.
func (insn *Instruction) ReductionInames() []string {
	return symbolic.ReductionInames(insn.Expression)
}

// Clone returns a shallow copy of the instruction.
func (insn *Instruction) Clone() *Instruction {
	c := *insn
	c.Deps = slices.Clone(insn.Deps)
	c.ForcedInameDeps = slices.Clone(insn.ForcedInameDeps)
	c.Predicates = slices.Clone(insn.Predicates)
	return &c
}

// WithExpression returns a copy of the instruction with a different expression.
func (insn *Instruction) WithExpression(x symbolic.Expr) *Instruction {
	c := insn.Clone()
	c.Expression = x
	return c
}

// WithDeps returns a copy of the instruction with a set of dependencies.
func (insn *Instruction) WithDeps(deps []string) *Instruction {
	c := insn.Clone()
	c.Deps = deps
	c.DepsSet = true
	return c
}

func (insn *Instruction) String() string {
	var s strings.Builder
	if insn.ID != "" {
		s.WriteString(insn.ID + ": ")
	}
	if insn.DeclaresTemporary() {
		kind := insn.TempVarType.String()
		if insn.TempVarType.IsAuto() {
			kind = ""
		}
		s.WriteString("<" + kind + "> ")
	}
	fmt.Fprintf(&s, "%s = %s", insn.Assignee, insn.Expression)
	var opts []string
	if insn.DepsSet {
		opts = append(opts, "dep="+strings.Join(insn.Deps, ":"))
	}
	if len(insn.ForcedInameDeps) > 0 {
		opts = append(opts, "inames="+strings.Join(insn.ForcedInameDeps, ":"))
	}
	if len(insn.Predicates) > 0 {
		opts = append(opts, "if="+strings.Join(insn.Predicates, ":"))
	}
	if insn.Priority != 0 {
		opts = append(opts, fmt.Sprintf("priority=%d", insn.Priority))
	}
	if len(opts) > 0 {
		s.WriteString(" {" + strings.Join(opts, ", ") + "}")
	}
	return s.String()
}

func (r *SubstitutionRule) String() string {
	lhs := r.Name
	if len(r.Arguments) > 0 {
		lhs += "(" + strings.Join(r.Arguments, ", ") + ")"
	}
	return lhs + " := " + r.Expression.String()
}

// maxSubstitutionDepth bounds the nesting of substitution rules.
const maxSubstitutionDepth = 64

// ExpandSubstitutions inlines the substitution rules used by an expression.
// A rule without arguments is used as a variable, a rule with
// arguments as a function call.
func ExpandSubstitutions(x symbolic.Expr, rules map[string]*SubstitutionRule) (symbolic.Expr, error) {
	if len(rules) == 0 {
		return x, nil
	}
	return expandSubstitutions(x, rules, 0)
}

func expandSubstitutions(x symbolic.Expr, rules map[string]*SubstitutionRule, depth int) (symbolic.Expr, error) {
	if depth > maxSubstitutionDepth {
		return nil, fmterr.ParseErrorf("substitution rules nested more than %d times in %s: recursive rule?", maxSubstitutionDepth, x)
	}
	var err error
	expanded := false
	r := symbolic.Transform(x, func(x symbolic.Expr) symbolic.Expr {
		if err != nil {
			return x
		}
		var rule *SubstitutionRule
		var args []symbolic.Expr
		switch xT := x.(type) {
		case *symbolic.Variable:
			if rl := rules[xT.Name]; rl != nil && len(rl.Arguments) == 0 {
				rule = rl
			}
		case *symbolic.Call:
			rule = rules[xT.Func.Name]
			args = xT.Args
		}
		if rule == nil {
			return x
		}
		if len(args) != len(rule.Arguments) {
			err = fmterr.ParseErrorf("substitution rule %s expects %d arguments but got %d in %s", rule.Name, len(rule.Arguments), len(args), x)
			return x
		}
		subst := make(map[string]symbolic.Expr, len(args))
		for i, name := range rule.Arguments {
			subst[name] = args[i]
		}
		expanded = true
		return symbolic.Substitute(rule.Expression, subst)
	})
	if err != nil {
		return nil, err
	}
	if !expanded {
		return r, nil
	}
	return expandSubstitutions(r, rules, depth+1)
}
