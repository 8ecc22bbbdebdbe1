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

package kspec_test

import (
	"context"
	"testing"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/kspec"
	"github.com/stretchr/testify/require"
	"goa.design/clue/log"
)

func TestLoad(t *testing.T) {
	desc, err := kspec.Load("testdata/matmul.yaml")
	require.NoError(t, err)
	require.Equal(t, "matmul", desc.Name)
	require.Len(t, desc.Domains, 2)
	require.Len(t, desc.Args, 3)
	require.True(t, desc.Args[2].IsInferRest())

	k, err := desc.Build(log.Context(context.Background()))
	require.NoError(t, err)
	var names []string
	for _, arg := range k.Args {
		names = append(names, arg.ArgName())
	}
	require.Equal(t, []string{"a", "b", "c", "m", "n"}, names)

	arg, ok := k.Arg("a")
	require.True(t, ok)
	a, ok := arg.(*ir.ArrayArg)
	require.True(t, ok)
	require.Equal(t, irkind.Float32, a.Kind)
	require.Equal(t, "(n, m)", a.Shape.String())
	require.Equal(t, "(m, 1)", a.Strides.String())

	arg, ok = k.Arg("c")
	require.True(t, ok)
	require.Equal(t, "(n, n)", arg.(*ir.ArrayArg).Shape.String())

	require.Equal(t, ir.GroupIndexTag{Axis: 0}, k.InameToTag["i"])
	require.Equal(t, ir.LocalIndexTag{Axis: 0}, k.InameToTag["j"])
	require.Equal(t, ir.ForceSequentialTag{}, k.InameToTag["k"])
	require.NotNil(t, k.Assumptions)
}

func TestParseScalars(t *testing.T) {
	desc, err := kspec.Parse([]byte(`
domains: "{[i]: 0<=i<N}"
instructions: [ "out[i] = ${S}*a[i]" ]
defines:
  N: 8
  S: [2, 3]
silenced_warnings: "a;b"
default_order: F
`))
	require.NoError(t, err)
	require.Equal(t, kspec.Strings{"{[i]: 0<=i<N}"}, desc.Domains)
	require.True(t, desc.Defines["S"].IsList())

	k, err := desc.Build(log.Context(context.Background()))
	require.NoError(t, err)
	require.Equal(t, 2, k.Instructions.Len())
	require.Equal(t, []string{"a", "b"}, k.Options.SilencedWarnings)
	arg, ok := k.Arg("a")
	require.True(t, ok)
	require.Equal(t, "(8)", arg.(*ir.ArrayArg).Shape.String())
	require.Equal(t, ir.OrderF, arg.(*ir.ArrayArg).Order)
}

func TestData(t *testing.T) {
	desc, err := kspec.Parse([]byte(`
domains: "{[i]: 0<=i<n}"
instructions: "out[i] = t[i]"
args:
  - {name: n, kind: value, dtype: int32}
  - {name: out, kind: constant, shape: "n", order: F}
  - {name: t, kind: temp, dtype: float64, shape: "(n)", scope: local}
  - "x, y"
`))
	require.NoError(t, err)
	data, err := desc.Data()
	require.NoError(t, err)
	require.Len(t, data, 4)

	require.Equal(t, &ir.ValueArg{Name: "n", Kind: irkind.Int32}, data[0])

	out, ok := data[1].(*ir.ArrayArg)
	require.True(t, ok)
	require.Equal(t, ir.Constant, out.AddressSpace)
	require.Equal(t, irkind.Auto, out.Kind)
	require.Equal(t, "(n)", out.Shape.String())
	require.Equal(t, "(1)", out.Strides.String())

	tmp, ok := data[2].(*ir.TemporaryVariable)
	require.True(t, ok)
	require.Equal(t, irkind.Float64, tmp.Kind)
	require.Equal(t, ir.ScopeLocal, tmp.Scope)
	require.True(t, tmp.BaseIndices.IsAuto())

	require.Equal(t, ir.ArgName("x, y"), data[3])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		desc string
		src  string
		kind fmterr.Kind
	}{
		{
			desc: "no domain",
			src:  `instructions: "a = 1"`,
			kind: fmterr.ParseError,
		},
		{
			desc: "no instruction",
			src:  `domains: "{[i]: 0<=i<n}"`,
			kind: fmterr.ParseError,
		},
		{
			desc: "unknown field",
			src:  "domains: \"{[i]: 0<=i<n}\"\ninstructions: \"a[i] = 1\"\nshapes: 3",
			kind: fmterr.ParseError,
		},
		{
			desc: "unknown argument field",
			src:  "domains: \"{[i]: 0<=i<n}\"\ninstructions: \"a[i] = 1\"\nargs:\n  - {name: a, size: 3}",
			kind: fmterr.ParseError,
		},
		{
			desc: "argument without a name",
			src:  "domains: \"{[i]: 0<=i<n}\"\ninstructions: \"a[i] = 1\"\nargs:\n  - {kind: global}",
			kind: fmterr.ParseError,
		},
	}
	for _, test := range tests {
		_, err := kspec.Parse([]byte(test.src))
		require.Error(t, err, test.desc)
		require.True(t, fmterr.Is(err, test.kind), "%s: got %v", test.desc, err)
	}
}

func TestOptionsErrors(t *testing.T) {
	tests := []struct {
		desc   string
		kernel kspec.Kernel
		kind   fmterr.Kind
	}{
		{
			desc:   "invalid order",
			kernel: kspec.Kernel{DefaultOrder: "Z"},
			kind:   fmterr.ParseError,
		},
		{
			desc:   "invalid tag",
			kernel: kspec.Kernel{Tags: map[string]string{"i": "g.x"}},
			kind:   fmterr.TagError,
		},
		{
			desc:   "invalid assumptions",
			kernel: kspec.Kernel{Assumptions: "n >="},
			kind:   fmterr.ParseError,
		},
	}
	for _, test := range tests {
		_, err := test.kernel.Options()
		require.True(t, fmterr.Is(err, test.kind), "%s: got %v", test.desc, err)
	}
}

func TestDataReportsAllErrors(t *testing.T) {
	desc := kspec.Kernel{Args: []kspec.Arg{
		{Name: "a", Kind: "global", DType: "float17"},
		{Name: "b", Kind: "pointer"},
		{Name: "c", Kind: "temp", Scope: "global"},
	}}
	_, err := desc.Data()
	require.Len(t, fmterr.All(err), 3)
}
