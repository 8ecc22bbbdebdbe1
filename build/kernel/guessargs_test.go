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
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/kernel"
)

func parseInsns(t *testing.T, src string) ([]*ir.Instruction, map[string]*ir.SubstitutionRule) {
	t.Helper()
	stmts, err := kernel.ParseStatements(src, nil)
	if err != nil {
		t.Fatalf("cannot parse %q:\n%+v", src, err)
	}
	var insns []*ir.Instruction
	substs := make(map[string]*ir.SubstitutionRule)
	for _, stmt := range stmts {
		switch stmtT := stmt.(type) {
		case *ir.Instruction:
			insns = append(insns, stmtT)
		case *ir.SubstitutionRule:
			substs[stmtT.Name] = stmtT
		}
	}
	return insns, substs
}

func parseDomains(t *testing.T, srcs ...string) []*isl.BasicSet {
	t.Helper()
	doms, err := kernel.ParseDomains(texts(srcs...), nil)
	if err != nil {
		t.Fatalf("cannot parse domains %v:\n%+v", srcs, err)
	}
	return doms
}

func TestGuessArgs(t *testing.T) {
	doms := parseDomains(t, "{[i]: 0<=i<n}")
	tests := []struct {
		insns string
		data  []ir.Datum
		want  []string
	}{
		{
			insns: "out[i] = alpha*a[i] + b[i]",
			data:  []ir.Datum{ir.InferRest},
			want: []string{
				"a: GlobalArg",
				"alpha: ValueArg",
				"b: GlobalArg",
				"n: ValueArg",
				"out: GlobalArg",
			},
		},
		{
			insns: "out[i] = alpha*a[i]",
			data:  []ir.Datum{ir.NewValueArg("alpha"), ir.InferRest},
			want: []string{
				"alpha: ValueArg",
				"a: GlobalArg",
				"n: ValueArg",
				"out: GlobalArg",
			},
		},
		{
			insns: "<> t = a[i]\nout[i] = t",
			data:  []ir.Datum{ir.InferRest},
			want: []string{
				"a: GlobalArg",
				"n: ValueArg",
				"out: GlobalArg",
			},
		},
		{
			insns: "out[i] = f(i)\nf(x) := a[x] + s",
			data:  []ir.Datum{ir.InferRest},
			want: []string{
				"a: GlobalArg",
				"n: ValueArg",
				"out: GlobalArg",
				"s: ValueArg",
			},
		},
		{
			insns: "out[i] = a[i]",
			data:  []ir.Datum{ir.ArgName("out, a")},
			want: []string{
				"out: GlobalArg",
				"a: GlobalArg",
			},
		},
		{
			insns: "out[i] = a[i]",
			data:  []ir.Datum{ir.NewTemporary("a", irkind.Auto), ir.InferRest},
			want: []string{
				"n: ValueArg",
				"out: GlobalArg",
			},
		},
	}
	for i, test := range tests {
		insns, substs := parseInsns(t, test.insns)
		args, err := kernel.GuessArgs(doms, insns, substs, test.data, ir.Offset{})
		if err != nil {
			t.Errorf("test %d: %+v", i, err)
			continue
		}
		var got []string
		for _, arg := range args {
			got = append(got, argKind(arg))
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("test %d: unexpected arguments (-want +got):\n%s", i, diff)
		}
	}
}

func argKind(arg ir.Argument) string {
	switch argT := arg.(type) {
	case *ir.ValueArg:
		return argT.Name + ": ValueArg"
	case *ir.ArrayArg:
		return argT.Name + ": " + argT.AddressSpace.String()
	}
	return arg.ArgName() + ": ?"
}

func TestGuessArgsErrors(t *testing.T) {
	doms := parseDomains(t, "{[i]: 0<=i<n}")
	tests := []struct {
		insns string
		data  []ir.Datum
		kind  fmterr.Kind
	}{
		{
			insns: "out[i] = a[i] + a[i, i]",
			data:  []ir.Datum{ir.InferRest},
			kind:  fmterr.BoundError,
		},
		{
			insns: "out[i] = a[i]",
			data:  []ir.Datum{ir.InferRest, ir.InferRest},
			kind:  fmterr.ParseError,
		},
	}
	for i, test := range tests {
		insns, substs := parseInsns(t, test.insns)
		_, err := kernel.GuessArgs(doms, insns, substs, test.data, ir.Offset{})
		if !fmterr.Is(err, test.kind) {
			t.Errorf("test %d: got error %v but want a %s", i, err, test.kind)
		}
	}
}
