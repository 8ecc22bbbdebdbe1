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

package kernel_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/kernel"
)

// insnView is the parsed content of an instruction.
type insnView struct {
	ID, IDPrefix         string
	Assignee, Expression string
	Deps                 []string
	DepsSet              bool
	ForcedInameDeps      []string
	Predicates           []string
	Priority             int
	TempVarType          irkind.Kind
}

func insnFields(insn *ir.Instruction) *insnView {
	return &insnView{
		ID:              insn.ID,
		IDPrefix:        insn.IDPrefix,
		Assignee:        insn.Assignee.String(),
		Expression:      insn.Expression.String(),
		Deps:            insn.Deps,
		DepsSet:         insn.DepsSet,
		ForcedInameDeps: insn.ForcedInameDeps,
		Predicates:      insn.Predicates,
		Priority:        insn.Priority,
		TempVarType:     insn.TempVarType,
	}
}

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		src  string
		want *insnView
	}{
		{
			src: "a[i] = b[i] + 1",
			want: &insnView{
				Assignee:   "a[i]",
				Expression: "b[i] + 1",
			},
		},
		{
			src: "a[i, j] = 2*b[j] {id=init, dep=x*:y, priority=2, inames=i:j, if=p:q}",
			want: &insnView{
				ID:              "init",
				Assignee:        "a[i, j]",
				Expression:      "2 * b[j]",
				Deps:            []string{"x*", "y"},
				DepsSet:         true,
				ForcedInameDeps: []string{"i", "j"},
				Predicates:      []string{"p", "q"},
				Priority:        2,
			},
		},
		{
			src: "<float32> tmp = a[i] {id_prefix=load}",
			want: &insnView{
				IDPrefix:    "load",
				Assignee:    "tmp",
				Expression:  "a[i]",
				TempVarType: irkind.Float32,
			},
		},
		{
			src: "<> acc = 0",
			want: &insnView{
				Assignee:    "acc",
				Expression:  "0",
				TempVarType: irkind.Auto,
			},
		},
		{
			src: "out[i, 0] = a[i, 1]",
			want: &insnView{
				Assignee:   "out[i, 0]",
				Expression: "a[i, 1]",
			},
		},
		{
			src: "out[i] = n // 2 {id=half}",
			want: &insnView{
				ID:         "half",
				Assignee:   "out[i]",
				Expression: "n // 2",
			},
		},
		{
			src: "out[i] = -x[i]**2",
			want: &insnView{
				Assignee:   "out[i]",
				Expression: "-x[i]**2",
			},
		},
		{
			src: "a[i] = b[i] == c {dep=}",
			want: &insnView{
				Assignee:   "a[i]",
				Expression: "b[i] == c",
				DepsSet:    true,
			},
		},
	}
	for _, test := range tests {
		stmt, err := kernel.ParseStatement(test.src)
		if err != nil {
			t.Errorf("cannot parse %q: %+v", test.src, err)
			continue
		}
		insn, ok := stmt.(*ir.Instruction)
		if !ok {
			t.Errorf("%q: got %T but want an instruction", test.src, stmt)
			continue
		}
		got := insnFields(insn)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%q: unexpected instruction (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestParseSubstitution(t *testing.T) {
	tests := []struct {
		src  string
		name string
		args []string
		want string
	}{
		{
			src:  "f(x, y) := x + y",
			name: "f",
			args: []string{"x", "y"},
			want: "f(x, y) := x + y",
		},
		{
			src:  "c := 3",
			name: "c",
			want: "c := 3",
		},
	}
	for _, test := range tests {
		stmt, err := kernel.ParseStatement(test.src)
		if err != nil {
			t.Errorf("cannot parse %q: %+v", test.src, err)
			continue
		}
		rule, ok := stmt.(*ir.SubstitutionRule)
		if !ok {
			t.Errorf("%q: got %T but want a substitution rule", test.src, stmt)
			continue
		}
		if rule.Name != test.name || !cmp.Equal(rule.Arguments, test.args) {
			t.Errorf("%q: got rule %s%v but want %s%v", test.src, rule.Name, rule.Arguments, test.name, test.args)
		}
		if got := rule.String(); got != test.want {
			t.Errorf("%q: got %q but want %q", test.src, got, test.want)
		}
	}
}

func TestParseStatementErrors(t *testing.T) {
	for _, src := range []string{
		"a = b {foo=1}",
		"a = b {priority=high}",
		"a = b {id=x,,}",
		"f(x) = 2",
		"a + b = c",
		"f(2) := x",
		"hello",
		"a[i] = b[",
		"<notatype> t = 1",
		"a[i] = b[i] /* c */",
	} {
		_, err := kernel.ParseStatement(src)
		if !fmterr.Is(err, fmterr.ParseError) {
			t.Errorf("%q: got error %v but want a parse error", src, err)
		}
	}
}

func TestParseStatements(t *testing.T) {
	src := `
# initialization
a[i] = 0  # zero

f(x) := 2*x
out_${A}[i] = f(a[i])
`
	defines := kernel.Defines{"A": kernel.List("x", "y", "z")}
	stmts, err := kernel.ParseStatements(src, defines)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var got []string
	for _, stmt := range stmts {
		got = append(got, stmt.String())
	}
	want := []string{
		"a[i] = 0",
		"f(x) := 2 * x",
		"out_x[i] = f(a[i])",
		"out_y[i] = f(a[i])",
		"out_z[i] = f(a[i])",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected statements (-want +got):\n%s", diff)
	}
}

func TestParseStatementsReportsAllErrors(t *testing.T) {
	src := "a = b {foo=1}\nc = d\nhello\n"
	_, err := kernel.ParseStatements(src, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := len(fmterr.All(err)); got != 2 {
		t.Errorf("got %d errors but want 2: %v", got, err)
	}
	if !fmterr.Is(err, fmterr.ParseError) {
		t.Errorf("got error %v but want a parse error", err)
	}
}
