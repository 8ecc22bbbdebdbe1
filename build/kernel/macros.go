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

package kernel

import (
	"fmt"
	"iter"
	"regexp"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/symbolic"
	"gopkg.in/yaml.v3"
)

type (
	// Value of a macro: a single value or a list of values.
	Value struct {
		values []string
		list   bool
	}

	// Defines maps macro names to their values.
	Defines map[string]Value
)

// Single returns a macro value.
func Single(v any) Value {
	return Value{values: []string{fmt.Sprint(v)}}
}

// List returns a list of macro values. Code using a list macro
// is expanded once for every value.
func List[T any](vs ...T) Value {
	val := Value{list: true, values: make([]string, len(vs))}
	for i, v := range vs {
		val.values[i] = fmt.Sprint(v)
	}
	return val
}

// IsList returns true if the macro has a list of values.
func (v Value) IsList() bool {
	return v.list
}

// Values returns the values of the macro.
func (v Value) Values() []string {
	return v.values
}

func (v Value) String() string {
	if !v.list && len(v.values) == 1 {
		return v.values[0]
	}
	return fmt.Sprint(v.values)
}

// UnmarshalYAML decodes a scalar into a single value
// and a sequence into a list.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Single(node.Value)
		return nil
	case yaml.SequenceNode:
		var vals []string
		if err := node.Decode(&vals); err != nil {
			return err
		}
		*v = List(vals...)
		return nil
	}
	return fmterr.ParseErrorf("line %d: macro value must be a scalar or a list of scalars", node.Line)
}

var (
	braceRE = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)
	wordRE  = regexp.MustCompile(`\b([a-zA-Z0-9_]+)\b`)
	macroRE = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}|\b([a-zA-Z0-9_]+)\b`)
)

type macroUse struct {
	name   string
	values []string
}

// ExpandDefines replaces the macros used in a text by their values.
// A macro is used either as ${name} or as a word. The returned sequence
// yields one text for every combination of the values of the list macros,
// varying the last macro used fastest. Macros are ordered by first use,
// braced uses first.
// If singleValued is true, using a list macro is an error.
func ExpandDefines(text string, defines Defines, singleValued bool) (iter.Seq[string], error) {
	var uses []macroUse
	seen := make(map[string]bool)
	for _, re := range []*regexp.Regexp{braceRE, wordRE} {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			name := match[1]
			if seen[name] {
				continue
			}
			seen[name] = true
			val, ok := defines[name]
			if !ok {
				continue
			}
			if val.IsList() && singleValued {
				return nil, fmterr.BoundErrorf("multi-valued macro expansion not allowed in this context (when expanding %q in %q)", name, text)
			}
			uses = append(uses, macroUse{name: name, values: val.Values()})
		}
	}
	return func(yield func(string) bool) {
		for _, use := range uses {
			if len(use.values) == 0 {
				return
			}
		}
		current := make([]int, len(uses))
		for {
			subst := make(map[string]string, len(uses))
			for i, use := range uses {
				subst[use.name] = use.values[current[i]]
			}
			if !yield(replaceMacros(text, subst)) {
				return
			}
			// Next combination.
			i := len(uses) - 1
			for ; i >= 0; i-- {
				current[i]++
				if current[i] < len(uses[i].values) {
					break
				}
				current[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}, nil
}

func replaceMacros(text string, subst map[string]string) string {
	if len(subst) == 0 {
		return text
	}
	return macroRE.ReplaceAllStringFunc(text, func(match string) string {
		sub := macroRE.FindStringSubmatch(match)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if val, ok := subst[name]; ok {
			return val
		}
		return match
	})
}

// ExpandSingle expands the macros of a text in a single-valued context.
func ExpandSingle(text string, defines Defines) (string, error) {
	seq, err := ExpandDefines(text, defines, true)
	if err != nil {
		return "", err
	}
	for s := range seq {
		return s, nil
	}
	return "", fmterr.Internalf("no expansion for %q", text)
}

// ExpandDefinesInExpr replaces the variables of an expression that are macros
// by the parsed values of the macros and folds the constants of the result.
func ExpandDefinesInExpr(x symbolic.Expr, defines Defines) (symbolic.Expr, error) {
	if len(defines) == 0 {
		return x, nil
	}
	subst := make(map[string]symbolic.Expr)
	for _, name := range symbolic.Dependencies(x) {
		val, ok := defines[name]
		if !ok {
			continue
		}
		if val.IsList() {
			return nil, fmterr.BoundErrorf("multi-valued macro %q cannot be used in expression %s", name, x)
		}
		parsed, err := symbolic.Parse(val.Values()[0])
		if err != nil {
			return nil, fmterr.Wrap(fmterr.ParseError, err, "invalid value %q for macro %q", val.Values()[0], name)
		}
		subst[name] = parsed
	}
	if len(subst) == 0 {
		return x, nil
	}
	return symbolic.Fold(symbolic.Substitute(x, subst)), nil
}
