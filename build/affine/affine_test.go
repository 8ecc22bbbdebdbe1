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

package affine_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/loopir/build/affine"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/symbolic"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func readBasicSet(t *testing.T, src string) *isl.BasicSet {
	t.Helper()
	bs, err := isl.ReadBasicSet(src)
	if err != nil {
		t.Fatalf("cannot read %q: %+v", src, err)
	}
	return bs
}

func readSet(t *testing.T, src string) *isl.Set {
	t.Helper()
	s, err := isl.ReadSet(src)
	if err != nil {
		t.Fatalf("cannot read %q: %+v", src, err)
	}
	return s
}

var nm = isl.NewSpace([]string{"n", "m"}, nil)

func param(name string) *isl.Aff {
	aff, err := isl.VarByName(nm, name)
	if err != nil {
		panic(err)
	}
	return aff
}

func TestStaticExtremumSinglePiece(t *testing.T) {
	aff := param("n").AddConstant(-1)
	pw := isl.PwAffFromAff(aff)
	for _, f := range []func(*isl.PwAff, bool, *isl.Set) (*isl.Aff, error){
		affine.StaticMinOfPwAff,
		affine.StaticMaxOfPwAff,
		affine.StaticValueOfPwAff,
	} {
		got, err := f(pw, false, nil)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if !got.PlainIsEqual(aff) {
			t.Errorf("got %s but want %s", got, aff)
		}
		if _, err := f(pw, true, nil); !fmterr.Is(err, fmterr.BoundError) {
			t.Errorf("got error %v but want a bound error", err)
		}
	}
}

func TestStaticExtremumPieces(t *testing.T) {
	bs := readBasicSet(t, "[n, m] -> { [i] : i >= n and i >= m and i < 100 }")
	lower, err := bs.DimMin(0)
	if err != nil {
		t.Fatal(err)
	}
	if lower.NPiece() != 2 {
		t.Fatalf("got %d pieces but want 2: %s", lower.NPiece(), lower)
	}
	got, err := affine.StaticMinOfPwAff(lower, false, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := "n"; got.String() != want {
		t.Errorf("got static minimum %s but want %s", got, want)
	}
	if _, err := affine.StaticMaxOfPwAff(lower, false, nil); !fmterr.Is(err, fmterr.BoundError) {
		t.Errorf("got error %v but want a bound error", err)
	}
	// With m <= n, the function is n.
	ctx := readSet(t, "[n, m] -> { : m <= n }")
	got, err = affine.StaticValueOfPwAff(lower, false, ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := "n"; got.String() != want {
		t.Errorf("got static value %s but want %s", got, want)
	}
}

func TestStaticExtremumConstantFirst(t *testing.T) {
	five := isl.ZeroOnDomain(nm).AddConstant(5)
	pw := isl.PwAffFromAff(param("n")).Max(isl.PwAffFromAff(five))
	got, err := affine.StaticMinOfPwAff(pw, true, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !got.IsCst() || got.Constant() != 5 {
		t.Errorf("got %s but want 5", got)
	}
}

func TestStaticExtremumDisjointGuards(t *testing.T) {
	// m is 3 on every piece but no piece is convex.
	outer := isl.NewPwAff(readSet(t, "[n, m] -> { : m = 3 and n >= 0 or m = 3 and n <= -5 }"), param("m"))
	inner := isl.NewPwAff(readSet(t, "[n, m] -> { : m = 3 and n = -4 or m = 3 and n = -2 }"), param("m").Scale(2).AddConstant(-3))
	pw := outer.Min(inner)
	if pw.NPiece() < 2 {
		t.Fatalf("got %d pieces but want at least 2: %s", pw.NPiece(), pw)
	}
	got, err := affine.StaticValueOfPwAff(pw, true, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !got.IsCst() || got.Constant() != 3 {
		t.Errorf("got %s but want 3", got)
	}
}

func TestPwAffToAff(t *testing.T) {
	pw := isl.PwAffFromAff(param("n")).Min(isl.PwAffFromAff(param("m")))
	if _, err := affine.PwAffToAff(pw); !fmterr.Is(err, fmterr.BoundError) {
		t.Errorf("got error %v but want a bound error", err)
	}
	aff, err := affine.PwAffToAff(isl.PwAffFromAff(param("m")))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := aff.String(), "m"; got != want {
		t.Errorf("got %s but want %s", got, want)
	}
}

func TestMakeSlab(t *testing.T) {
	space := isl.NewSpace([]string{"n"}, []string{"i"})
	slab, err := affine.MakeSlab(space, affine.DimByName("i"), affine.IntBound(0), affine.ExprBound(symbolic.MustParse("n")))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := readBasicSet(t, "[n] -> { [i] : 0 <= i < n }"); !slab.IsEqual(want) {
		t.Errorf("got %s but want %s", slab, want)
	}
	m := isl.VarOnDomain(isl.NewSpace([]string{"m"}, nil), isl.Param, 0)
	slab, err = affine.MakeSlab(space, affine.DimByPos(isl.SetDim, 0), affine.AffBound(m), affine.PwAffBound(isl.PwAffFromAff(m.AddConstant(4))))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := readBasicSet(t, "[n, m] -> { [i] : m <= i < m + 4 }"); !slab.IsEqual(want) {
		t.Errorf("got %s but want %s", slab, want)
	}
	if _, err := affine.MakeSlab(space, affine.DimByName("k"), affine.IntBound(0), affine.IntBound(1)); !fmterr.Is(err, fmterr.NameError) {
		t.Errorf("got error %v but want a name error", err)
	}
}

func TestInameRelAff(t *testing.T) {
	space := isl.NewSpace([]string{"n"}, []string{"i"})
	n := isl.VarOnDomain(isl.NewSpace([]string{"n"}, nil), isl.Param, 0)
	tests := []struct {
		rel  string
		want string
	}{
		{rel: "==", want: "n - i"},
		{rel: "<=", want: "n - i"},
		{rel: "<", want: "n - i - 1"},
		{rel: ">=", want: "-n + i"},
		{rel: ">", want: "-n + i - 1"},
	}
	for _, test := range tests {
		got, err := affine.InameRelAff(space, "i", test.rel, n)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if got.String() != test.want {
			t.Errorf("i %s n: got %s but want %s", test.rel, got, test.want)
		}
	}
	if _, err := affine.InameRelAff(space, "n", "<", n); err == nil {
		t.Errorf("expected an error for a parameter")
	}
}

func TestConvexify(t *testing.T) {
	got, err := affine.Convexify(readSet(t, "{ [i] : 0 <= i < 5 or 5 <= i < 10 }"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := readBasicSet(t, "{ [i] : 0 <= i < 10 }"); !got.IsEqual(want) {
		t.Errorf("got %s but want %s", got, want)
	}
	_, err = affine.Convexify(readSet(t, "{ [i] : 0 <= i < 3 or 5 <= i < 10 }"))
	if !fmterr.Is(err, fmterr.ConvexityError) {
		t.Errorf("got error %v but want a convexity error", err)
	}
}

func TestBoxify(t *testing.T) {
	tests := []struct {
		domain string
		box    []string
		want   string
	}{
		{
			domain: "[n] -> { [i, j] : 0 <= i < n and 0 <= j <= i }",
			box:    []string{"j"},
			want:   "[n] -> { [i, j] : 0 <= i < n and 0 <= j <= i }",
		},
		{
			domain: "[n] -> { [i, j] : 0 <= i < n and i <= j < i + 4 }",
			box:    []string{"i", "j"},
			want:   "[n] -> { [i, j] : 0 <= i < n and 0 <= j < n + 3 }",
		},
	}
	for _, test := range tests {
		cache := affine.NewCache()
		got, err := affine.Boxify(cache, readBasicSet(t, test.domain), test.box, nil)
		if err != nil {
			t.Fatalf("%s: %+v", test.domain, err)
		}
		if want := readBasicSet(t, test.want); !got.IsEqual(want) {
			t.Errorf("%s: got %s but want %s", test.domain, got, want)
		}
	}
	_, err := affine.Boxify(affine.NewCache(), readBasicSet(t, "{ [i, j] : 0 <= i < 4 and 0 <= j < 4 }"), []string{"i"}, nil)
	if !fmterr.Is(err, fmterr.Internal) {
		t.Errorf("got error %v but want an internal error", err)
	}
}

func TestDuplicateAxes(t *testing.T) {
	set := readBasicSet(t, "[n] -> { [i, j] : 0 <= i < n and 0 <= j < i }")
	got, err := affine.DuplicateAxes(set, []string{"i"}, []string{"i2"})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff([]string{"i", "j", "i2"}, got.Space().Names(isl.SetDim)); diff != "" {
		t.Errorf("unexpected set dimensions (-want +got):\n%s", diff)
	}
	want := readBasicSet(t, "[n] -> { [i, j, i2] : 0 <= i < n and 0 <= j < i and 0 <= i2 < n and j < i2 }")
	if !got.IsEqual(want) {
		t.Errorf("got %s but want %s", got, want)
	}
	if _, err := affine.DuplicateAxes(set, []string{"i"}, []string{"j"}); !fmterr.Is(err, fmterr.NameError) {
		t.Errorf("got error %v but want a name error", err)
	}
}

func TestIsNonnegative(t *testing.T) {
	tests := []struct {
		expr string
		over string
		want affine.Tristate
	}{
		{expr: "i", over: "{ [i] : 0 <= i < 10 }", want: affine.True},
		{expr: "i - 5", over: "{ [i] : 0 <= i < 10 }", want: affine.False},
		{expr: "n - i", over: "[n] -> { [i] : 0 <= i < n }", want: affine.True},
		{expr: "i*i", over: "{ [i] : 0 <= i < 10 }", want: affine.Unknown},
		{expr: "k", over: "{ [i] : 0 <= i < 10 }", want: affine.Unknown},
		{expr: "j - 4", over: "{ [i, j] : j = 2i and 3 <= j <= 4 }", want: affine.True},
		{expr: "j - 4", over: "{ [i, j] : j = 2i and 2 <= j <= 4 }", want: affine.False},
		// Unbounded set where rational elimination is not exact.
		{expr: "-1", over: "{ [i, j] : 5*i - 3*j >= 1 and 8*j - 5*i >= -1 }", want: affine.Unknown},
	}
	for _, test := range tests {
		got := affine.IsNonnegative(symbolic.MustParse(test.expr), readBasicSet(t, test.over))
		if got != test.want {
			t.Errorf("%s >= 0 on %s: got %s but want %s", test.expr, test.over, got, test.want)
		}
	}
}

func TestAccessRange(t *testing.T) {
	domain := readBasicSet(t, "[n] -> { [i, j] : 0 <= i < n and 0 <= j < 4 }")
	got, err := affine.AccessRange(domain, []symbolic.Expr{
		symbolic.MustParse("i + 1"),
		symbolic.MustParse("j + 2"),
	})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := readSet(t, "[n] -> { [_ary_idx_0, _ary_idx_1] : 1 <= _ary_idx_0 <= n and 2 <= _ary_idx_1 <= 5 }")
	if !got.IsEqual(want) {
		t.Errorf("got %s but want %s", got, want)
	}
	if _, err := affine.AccessRange(domain, []symbolic.Expr{symbolic.MustParse("i*j")}); !fmterr.Is(err, fmterr.BoundError) {
		t.Errorf("got error %v but want a bound error", err)
	}
}

func TestExprFromAff(t *testing.T) {
	space := isl.NewSpace([]string{"n"}, []string{"i"})
	tests := []struct {
		aff  *isl.Aff
		want string
	}{
		{aff: isl.ZeroOnDomain(space), want: "0"},
		{aff: isl.ZeroOnDomain(space).AddConstant(-3), want: "-3"},
		{aff: isl.VarOnDomain(space, isl.Param, 0).Scale(2).AddCoefficient(isl.SetDim, 0, -1).AddConstant(-1), want: "2 * n - i - 1"},
		{aff: isl.VarOnDomain(space, isl.Param, 0).Neg().AddConstant(3), want: "-n + 3"},
	}
	for _, test := range tests {
		got := affine.ExprFromAff(test.aff)
		if got.String() != test.want {
			t.Errorf("got %s but want %s", got, test.want)
		}
		back, err := affine.AffFromExpr(space, got)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if !back.PlainIsEqual(test.aff) {
			t.Errorf("%s converted back to %s", test.aff, back)
		}
	}
}

func TestCacheBaseIndexAndLength(t *testing.T) {
	cache := affine.NewCache()
	set := readSet(t, "{ [_ary_idx_0] : 2 <= _ary_idx_0 < 6 }")
	for range 2 {
		base, length, err := cache.BaseIndexAndLength(set, 0)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if got := []string{base.String(), length.String()}; !cmp.Equal(got, []string{"2", "4"}) {
			t.Errorf("got base index and length %v but want [2 4]", got)
		}
	}
	if hits, _ := cache.Stats(); hits == 0 {
		t.Errorf("second lookup did not hit the cache")
	}
	_, _, err := cache.BaseIndexAndLength(readSet(t, "[n] -> { [a] : 0 <= a < n }"), 0)
	if !fmterr.Is(err, fmterr.BoundError) {
		t.Errorf("got error %v but want a bound error", err)
	}
}

func TestStaticExtremumProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a single piece is its own extremum", prop.ForAll(
		func(p, q, k int) bool {
			aff := param("n").Scale(int64(p)).Add(param("m").Scale(int64(q))).AddConstant(int64(k))
			pw := isl.PwAffFromAff(aff)
			for _, f := range []func(*isl.PwAff, bool, *isl.Set) (*isl.Aff, error){
				affine.StaticMinOfPwAff,
				affine.StaticMaxOfPwAff,
				affine.StaticValueOfPwAff,
			} {
				got, err := f(pw, false, nil)
				if err != nil || !got.PlainIsEqual(aff) {
					return false
				}
			}
			return true
		},
		gen.IntRange(-5, 5), gen.IntRange(-5, 5), gen.IntRange(-20, 20),
	))
	properties.Property("equal pieces give the common function", prop.ForAll(
		func(p, k, split int) bool {
			aff := param("n").Scale(int64(p)).AddConstant(int64(k))
			above := isl.UniverseSet(nm).IntersectBasicSet(param("n").GeSet(isl.ZeroOnDomain(nm).AddConstant(int64(split))))
			pw := isl.NewPwAff(above, aff).Min(isl.NewPwAff(above.Complement(), aff))
			if pw.NPiece() != 2 {
				return false
			}
			got, err := affine.StaticValueOfPwAff(pw, false, nil)
			return err == nil && got.PlainIsEqual(aff)
		},
		gen.IntRange(-5, 5), gen.IntRange(-20, 20), gen.IntRange(-10, 10),
	))

	properties.TestingRun(t)
}

func TestConvexifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("convexify is idempotent", prop.ForAll(
		func(a, b, c, d int) bool {
			set, err := isl.ReadSet(fmt.Sprintf("{ [i] : %d <= i < %d or %d <= i < %d }", a, b, c, d))
			if err != nil {
				return false
			}
			once, err := affine.Convexify(set)
			if err != nil {
				return fmterr.Is(err, fmterr.ConvexityError)
			}
			twice, err := affine.Convexify(once.ToSet())
			return err == nil && twice.IsEqual(once) && once.ToSet().IsEqual(set)
		},
		gen.IntRange(-10, 10), gen.IntRange(-10, 10), gen.IntRange(-10, 10), gen.IntRange(-10, 10),
	))
	properties.Property("convexify returns a convex set unchanged", prop.ForAll(
		func(a, b int) bool {
			set, err := isl.ReadSet(fmt.Sprintf("[n] -> { [i, j] : %d <= i < n and %d <= j <= i }", a, b))
			if err != nil {
				return false
			}
			got, err := affine.Convexify(set)
			return err == nil && got.ToSet().IsEqual(set)
		},
		gen.IntRange(-10, 10), gen.IntRange(-10, 10),
	))

	properties.TestingRun(t)
}
