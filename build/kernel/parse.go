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
	"regexp"
	"strconv"
	"strings"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/symbolic"
)

var (
	insnRE = regexp.MustCompile(
		`^\s*(?:<(?P<temp_var_type>.*?)>)?` +
			`\s*(?P<lhs>.*?[^:\s])\s*=\s*(?P<rhs>.+?)` +
			`\s*?(?:\{(?P<options>.+)\}\s*)?$`)
	substRE = regexp.MustCompile(`^\s*(?P<lhs>.+?)\s*:=\s*(?P<rhs>.+?)\s*$`)
)

// insnOptions are the options of an instruction given between braces.
type insnOptions struct {
	id           string
	idPrefix     string
	priority     int
	deps         []string
	depsSet      bool
	forcedInames []string
	predicates   []string
}

func splitColon(s string) []string {
	var r []string
	for _, part := range strings.Split(s, ":") {
		if part = strings.TrimSpace(part); part != "" {
			r = append(r, part)
		}
	}
	return r
}

func parseOptions(src string) (*insnOptions, error) {
	opts := &insnOptions{}
	for _, option := range strings.Split(src, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			return nil, fmterr.ParseErrorf("empty option supplied")
		}
		key, value, hasValue := strings.Cut(option, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !hasValue && key != "dep" {
			return nil, fmterr.ParseErrorf("option %q requires a value", key)
		}
		switch key {
		case "id":
			opts.id = value
		case "id_prefix":
			opts.idPrefix = value
		case "priority":
			priority, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmterr.ParseErrorf("priority %q is not an integer", value)
			}
			opts.priority = priority
		case "dep":
			opts.deps = splitColon(value)
			opts.depsSet = true
		case "inames":
			opts.forcedInames = splitColon(value)
		case "if":
			opts.predicates = splitColon(value)
		default:
			return nil, fmterr.ParseErrorf("unrecognized instruction option %q", key)
		}
	}
	return opts, nil
}

func groups(re *regexp.Regexp, s string) map[string]string {
	match := re.FindStringSubmatch(s)
	if match == nil {
		return nil
	}
	r := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" {
			r[name] = match[i]
		}
	}
	return r
}

func parseSide(side, src string) (symbolic.Expr, error) {
	x, err := symbolic.Parse(src)
	if err != nil {
		return nil, fmterr.Wrap(fmterr.ParseError, err, "cannot parse %s hand side %q", side, src)
	}
	return x, nil
}

// ParseStatement parses an instruction or a substitution rule.
func ParseStatement(line string) (ir.Statement, error) {
	insnMatch := groups(insnRE, line)
	substMatch := groups(substRE, line)
	switch {
	case insnMatch != nil && substMatch != nil:
		return nil, fmterr.WithSrc(fmterr.ParseErrorf("ambiguous statement: both an assignment and a substitution rule"), line)
	case insnMatch != nil:
		insn, err := parseInstruction(line, insnMatch)
		if err != nil {
			return nil, fmterr.WithSrc(err, line)
		}
		return insn, nil
	case substMatch != nil:
		rule, err := parseSubstitution(substMatch)
		if err != nil {
			return nil, fmterr.WithSrc(err, line)
		}
		return rule, nil
	}
	return nil, fmterr.WithSrc(fmterr.ParseErrorf("statement is neither an assignment nor a substitution rule"), line)
}

func parseInstruction(line string, match map[string]string) (*ir.Instruction, error) {
	lhs, err := parseSide("left", match["lhs"])
	if err != nil {
		return nil, err
	}
	rhs, err := parseSide("right", match["rhs"])
	if err != nil {
		return nil, err
	}
	switch lhs.(type) {
	case *symbolic.Variable, *symbolic.Subscript:
	default:
		return nil, fmterr.ParseErrorf("left hand side of assignment %q must be a variable or a subscript", lhs)
	}
	opts := &insnOptions{}
	if match["options"] != "" {
		if opts, err = parseOptions(match["options"]); err != nil {
			return nil, err
		}
	}
	insn := &ir.Instruction{
		ID:              opts.id,
		IDPrefix:        opts.idPrefix,
		Assignee:        lhs,
		Expression:      rhs,
		Deps:            opts.deps,
		DepsSet:         opts.depsSet,
		ForcedInameDeps: opts.forcedInames,
		Predicates:      opts.predicates,
		Priority:        opts.priority,
	}
	if strings.HasPrefix(strings.TrimSpace(line), "<") {
		kind, err := irkind.KindFromString(strings.TrimSpace(match["temp_var_type"]))
		if err != nil {
			return nil, fmterr.Wrap(fmterr.ParseError, err, "invalid temporary type")
		}
		insn.TempVarType = kind
	}
	return insn, nil
}

func parseSubstitution(match map[string]string) (*ir.SubstitutionRule, error) {
	lhs, err := parseSide("left", match["lhs"])
	if err != nil {
		return nil, err
	}
	rhs, err := parseSide("right", match["rhs"])
	if err != nil {
		return nil, err
	}
	switch lhsT := lhs.(type) {
	case *symbolic.Variable:
		return &ir.SubstitutionRule{Name: lhsT.Name, Expression: rhs}, nil
	case *symbolic.Call:
		args := make([]string, len(lhsT.Args))
		for i, arg := range lhsT.Args {
			v, ok := arg.(*symbolic.Variable)
			if !ok {
				return nil, fmterr.ParseErrorf("invalid substitution rule left hand side %s: argument %d is not a variable", lhs, i)
			}
			args[i] = v.Name
		}
		return &ir.SubstitutionRule{Name: lhsT.Func.Name, Arguments: args, Expression: rhs}, nil
	}
	return nil, fmterr.ParseErrorf("invalid substitution rule left hand side %s", lhs)
}

// stripComment removes the comment starting with # from a line.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// ParseStatements parses the statements of a text, one statement per line.
// Comments and blank lines are ignored. Macros are expanded before parsing
// a line: a line using list macros gives one statement for every combination
// of their values. All the errors found in the text are reported.
func ParseStatements(text string, defines Defines) ([]ir.Statement, error) {
	var stmts []ir.Statement
	var errs fmterr.Errors
	for lineNum, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(stripComment(line))
		if line == "" {
			continue
		}
		errs.Push(fmterr.PrefixWith("line %d: ", lineNum+1))
		expanded, err := ExpandDefines(line, defines, false)
		if err != nil {
			errs.Append(err)
			errs.Pop()
			continue
		}
		for sub := range expanded {
			stmt, err := ParseStatement(sub)
			if err != nil {
				errs.Append(err)
				continue
			}
			stmts = append(stmts, stmt)
		}
		errs.Pop()
	}
	if !errs.Empty() {
		return nil, errs.ToError()
	}
	return stmts, nil
}
