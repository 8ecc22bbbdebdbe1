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

package symbolic_test

import (
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/loopir/build/symbolic"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: "a[i, j] + 2*b[i]", want: "a[i, j] + 2 * b[i]"},
		{src: "(a + b) * c", want: "(a + b) * c"},
		{src: "a - (b - c)", want: "a - (b - c)"},
		{src: "a - b - c", want: "a - b - c"},
		{src: "x**2", want: "x**2"},
		{src: "-x**2", want: "-x**2"},
		{src: "-(x**2)", want: "-x**2"},
		{src: "(-x)**2", want: "(-x)**2"},
		{src: "a**b**c", want: "a**b**c"},
		{src: "(a**b)**c", want: "(a**b)**c"},
		{src: "2**-k", want: "2**-k"},
		{src: "2*x[i]**2", want: "2 * x[i]**2"},
		{src: "out[i, 0] + a[0, 1]", want: "out[i, 0] + a[0, 1]"},
		{src: "a[2*i + 1, j - 1]", want: "a[2 * i + 1, j - 1]"},
		{src: "n // 2", want: "n // 2"},
		{src: "(n + 1)//2 * 3", want: "(n + 1) // 2 * 3"},
		{src: "n // (2 * m)", want: "n // (2 * m)"},
		{src: `cse(a[i // 2], "a//b")`, want: `cse(a[i // 2], "a//b")`},
		{src: "a * -1", want: "a * -1"},
		{src: "sin(x) / 2.0", want: "sin(x) / 2.0"},
		{src: "sum(k, a[i, k]*b[k, j])", want: `reduce(sum, "k", a[i, k] * b[k, j])`},
		{src: `sum("k,l", c[k, l])`, want: `reduce(sum, "k,l", c[k, l])`},
		{src: "reduce(max, k, a[k])", want: `reduce(max, "k", a[k])`},
		{src: `cse(a[i] + 1, "tmp")`, want: `cse(a[i] + 1, "tmp")`},
		{src: "cse(b)", want: "cse(b)"},
		{src: "i < n && j >= 0", want: "i < n && j >= 0"},
	}
	for _, test := range tests {
		x, err := symbolic.Parse(test.src)
		if err != nil {
			t.Errorf("cannot parse %q: %+v", test.src, err)
			continue
		}
		if diff := cmp.Diff(test.want, x.String()); diff != "" {
			t.Errorf("%s: unexpected string (-want +got):\n%s", test.src, diff)
		}
		again, err := symbolic.Parse(x.String())
		if err != nil {
			t.Errorf("cannot parse back %q: %+v", x.String(), err)
			continue
		}
		if !symbolic.Equal(x, again) {
			t.Errorf("%s: parsed back as %s", x, again)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"a[",
		"a.b",
		"f(x)[0]",
		"sum(a)",
		"sum(a[i], b)",
		"reduce(avg, i, a[i])",
		`cse(a, 3)`,
		"2i",
		"a[]",
		"a * *b",
		"n /* 2 */",
		"f(\"s\")",
		"a[i",
		"a[i, ]",
	}
	for _, src := range tests {
		if x, err := symbolic.Parse(src); err == nil {
			t.Errorf("%s: expected an error but got %s", src, x)
		}
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want symbolic.Expr
	}{
		{
			src: "2*x**2",
			want: &symbolic.Binary{
				Op: token.MUL,
				X:  symbolic.NewInt(2),
				Y:  &symbolic.Power{Base: symbolic.NewVariable("x"), Exp: symbolic.NewInt(2)},
			},
		},
		{
			src: "-x**2",
			want: &symbolic.Unary{
				Op: token.SUB,
				X:  &symbolic.Power{Base: symbolic.NewVariable("x"), Exp: symbolic.NewInt(2)},
			},
		},
		{
			src: "a**b**c",
			want: &symbolic.Power{
				Base: symbolic.NewVariable("a"),
				Exp:  &symbolic.Power{Base: symbolic.NewVariable("b"), Exp: symbolic.NewVariable("c")},
			},
		},
		{
			src: "n // 2 + 1",
			want: &symbolic.Binary{
				Op: token.ADD,
				X:  &symbolic.FloorDiv{Num: symbolic.NewVariable("n"), Den: symbolic.NewInt(2)},
				Y:  symbolic.NewInt(1),
			},
		},
		{
			src: "a[i, 1]",
			want: &symbolic.Subscript{
				Aggregate: symbolic.NewVariable("a"),
				Index:     []symbolic.Expr{symbolic.NewVariable("i"), symbolic.NewInt(1)},
			},
		},
	}
	for _, test := range tests {
		got, err := symbolic.Parse(test.src)
		if err != nil {
			t.Errorf("cannot parse %q: %+v", test.src, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: unexpected expression tree (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestDependencies(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{src: "a[i, j] + f(b)", want: []string{"a", "b", "i", "j"}},
		{src: "sum(k, a[i, k]*b[k])", want: []string{"a", "b", "i"}},
		{src: "3", want: []string{}},
	}
	for _, test := range tests {
		got := symbolic.Dependencies(symbolic.MustParse(test.src))
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: unexpected dependencies (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestIndexRanks(t *testing.T) {
	got := symbolic.IndexRanks(symbolic.MustParse("a[i, b[j]] + c + a[0, 1]"))
	want := map[string][]int{
		"a": {2},
		"b": {1},
		"c": {0},
		"i": {0},
		"j": {0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected ranks (-want +got):\n%s", diff)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: "2 * 3 + 1", want: "7"},
		{src: "-7 / 2", want: "-4"},
		{src: "-7 % 2", want: "1"},
		{src: "n * 1 + 0", want: "n"},
		{src: "2**10", want: "1024"},
		{src: "-2**2", want: "-4"},
		{src: "-7 // 2", want: "-4"},
		{src: "n // 1", want: "n"},
		{src: "2**3**2", want: "512"},
	}
	for _, test := range tests {
		got := symbolic.Fold(symbolic.MustParse(test.src)).String()
		if got != test.want {
			t.Errorf("%s: got %s but want %s", test.src, got, test.want)
		}
	}
}

func TestSubstitute(t *testing.T) {
	x := symbolic.MustParse("a[i] + n")
	got := symbolic.Substitute(x, map[string]symbolic.Expr{
		"n": symbolic.MustParse("m + 1"),
		"a": symbolic.NewVariable("b"),
	})
	if want := "b[i] + (m + 1)"; got.String() != want {
		t.Errorf("got %s but want %s", got, want)
	}
}

func TestReductionInames(t *testing.T) {
	got := symbolic.ReductionInames(symbolic.MustParse("sum(k, a[k]) + product(l, m, b[l, m])"))
	if diff := cmp.Diff([]string{"k", "l", "m"}, got); diff != "" {
		t.Errorf("unexpected inames (-want +got):\n%s", diff)
	}
}
