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
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/kernel"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func names(prefix string, n int) []string {
	r := make([]string, n)
	for i := range r {
		r[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return r
}

func TestMacroProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	properties.Property("list macros expand to the cartesian product", prop.ForAll(
		func(m, n int) bool {
			defines := kernel.Defines{
				"A": kernel.List(names("a", m)...),
				"B": kernel.List(names("b", n)...),
			}
			seq, err := kernel.ExpandDefines("out_${A}_${B}[i] = 0", defines, false)
			if err != nil {
				return false
			}
			got := slices.Collect(seq)
			if len(got) != m*n {
				return false
			}
			slices.Sort(got)
			return len(slices.Compact(got)) == m*n
		},
		gen.IntRange(1, 4), gen.IntRange(1, 4),
	))
	properties.Property("single-valued expansion rejects lists", prop.ForAll(
		func(n int) bool {
			defines := kernel.Defines{"N": kernel.List(names("", n)...)}
			_, err := kernel.ExpandSingle("{[i]: 0<=i<N}", defines)
			return fmterr.Is(err, fmterr.BoundError)
		},
		gen.IntRange(2, 5),
	))
	properties.TestingRun(t)
}

func TestDomainProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	properties.Property("every iname is defined by a single domain", prop.ForAll(
		func(n, dup int) bool {
			var srcs []string
			for _, iname := range names("i", n) {
				srcs = append(srcs, fmt.Sprintf("{[%s]: 0<=%s<n}", iname, iname))
			}
			doms, err := kernel.ParseDomains(texts(srcs...), nil)
			if err != nil || len(doms) != n {
				return false
			}
			srcs = append(srcs, srcs[dup%n])
			_, err = kernel.ParseDomains(texts(srcs...), nil)
			return fmterr.Is(err, fmterr.NameError)
		},
		gen.IntRange(1, 5), gen.IntRange(0, 10),
	))
	properties.TestingRun(t)
}

func TestKernelProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	properties.Property("dependency patterns resolve to sorted ids", prop.ForAll(
		func(n int) bool {
			ids := names("x", n)
			slices.Reverse(ids)
			got := kernel.ResolveDeps([]string{"x*", "y"}, ids)
			want := append(names("x", n), "y")
			if n == 0 {
				// Unmatched patterns are kept.
				want = []string{"x*", "y"}
			}
			return slices.Equal(got, want)
		},
		gen.IntRange(0, 9),
	))
	properties.Property("a loop bound has exactly one writer", prop.ForAll(
		func(writes int) bool {
			var insns []string
			for i := range writes {
				insns = append(insns, fmt.Sprintf("m = %d", i+1))
			}
			insns = append(insns, "out[j] = j")
			data := []ir.Datum{ir.NewTemporary("m", irkind.Int32), ir.InferRest}
			_, err := kernel.MakeKernel(testContext(), texts("{[j]: 0<=j<m}"), insns, data)
			if writes == 1 {
				return err == nil
			}
			return fmterr.Is(err, fmterr.WriterCountError)
		},
		gen.IntRange(0, 3),
	))
	properties.Property("inferred arguments are sorted", prop.ForAll(
		func(n int) bool {
			vars := names("v", n)
			reads := make([]string, n)
			for i, v := range vars {
				reads[n-1-i] = v + "[i]"
			}
			insn := "out[i] = " + strings.Join(reads, " + ")
			k, err := kernel.MakeKernel(testContext(), texts("{[i]: 0<=i<10}"), []string{insn}, nil)
			if err != nil {
				return false
			}
			return slices.Equal(argNames(k), append([]string{"out"}, vars...))
		},
		gen.IntRange(1, 9),
	))
	properties.TestingRun(t)
}
