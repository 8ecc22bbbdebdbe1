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

package isl

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"
)

// maxRows bounds the number of constraints created by an elimination.
// Past the bound, the elimination keeps the constraints not involving the
// eliminated column only, which over-approximates the projection.
const maxRows = 4096

// row is the constraint c.x + k >= 0 or, if eq, c.x + k = 0.
type row struct {
	c  []int64
	k  int64
	eq bool
}

func (r row) clone() row {
	return row{c: slices.Clone(r.c), k: r.k, eq: r.eq}
}

func (r row) isConst() bool {
	for _, v := range r.c {
		if v != 0 {
			return false
		}
	}
	return true
}

// negate returns the rows whose union is the complement of r.
func (r row) negate() []row {
	neg := make([]int64, len(r.c))
	for i, v := range r.c {
		neg[i] = -v
	}
	if !r.eq {
		// not(c.x + k >= 0) <=> -c.x - k - 1 >= 0
		return []row{{c: neg, k: -r.k - 1}}
	}
	return []row{
		{c: slices.Clone(r.c), k: r.k - 1},
		{c: neg, k: -r.k - 1},
	}
}

// halves returns the inequalities equivalent to r.
func (r row) halves() []row {
	if !r.eq {
		return []row{r}
	}
	neg := make([]int64, len(r.c))
	for i, v := range r.c {
		neg[i] = -v
	}
	return []row{
		{c: slices.Clone(r.c), k: r.k},
		{c: neg, k: -r.k},
	}
}

func (r row) key() string {
	var b strings.Builder
	for _, v := range r.c {
		fmt.Fprintf(&b, "%d,", v)
	}
	return b.String()
}

func abs[T constraints.Signed](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

func gcd[T constraints.Integer](a, b T) T {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func floorDiv[T constraints.Signed](a, b T) T {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv[T constraints.Signed](a, b T) T {
	return -floorDiv(-a, b)
}

type status int

const (
	statusOk status = iota
	statusTrivial
	statusInfeasible
)

// normalize divides a row by the gcd of its coefficients, tightening the
// constant of inequalities to the next integer.
func normalize(r row) (row, status) {
	var g int64
	for _, v := range r.c {
		g = gcd(g, v)
	}
	if g == 0 {
		switch {
		case r.eq && r.k == 0:
			return r, statusTrivial
		case !r.eq && r.k >= 0:
			return r, statusTrivial
		}
		return r, statusInfeasible
	}
	if r.eq && r.k%g != 0 {
		return r, statusInfeasible
	}
	r = r.clone()
	if g > 1 {
		for i := range r.c {
			r.c[i] /= g
		}
		if r.eq {
			r.k /= g
		} else {
			r.k = floorDiv(r.k, g)
		}
	}
	if r.eq {
		// Equalities have a positive leading coefficient.
		for _, v := range r.c {
			if v == 0 {
				continue
			}
			if v < 0 {
				for i := range r.c {
					r.c[i] = -r.c[i]
				}
				r.k = -r.k
			}
			break
		}
	}
	return r, statusOk
}

// simplifyRows normalizes a list of rows, removes trivial and duplicated rows,
// merges opposite inequalities into equalities and detects trivial infeasibility.
func simplifyRows(rows []row) ([]row, bool) {
	type ineqBound struct {
		idx int
	}
	var out []row
	eqs := make(map[string]int)
	ineqs := make(map[string]ineqBound)
	for _, r := range rows {
		r, st := normalize(r)
		switch st {
		case statusInfeasible:
			return nil, false
		case statusTrivial:
			continue
		}
		key := r.key()
		if r.eq {
			if i, ok := eqs[key]; ok {
				if out[i].k != r.k {
					return nil, false
				}
				continue
			}
			eqs[key] = len(out)
			out = append(out, r)
			continue
		}
		if prev, ok := ineqs[key]; ok {
			if r.k < out[prev.idx].k {
				out[prev.idx].k = r.k
			}
			continue
		}
		ineqs[key] = ineqBound{idx: len(out)}
		out = append(out, r)
	}
	// Opposite inequalities.
	keep := make([]bool, len(out))
	for i := range out {
		keep[i] = true
	}
	var extra []row
	for i, r := range out {
		if r.eq || !keep[i] {
			continue
		}
		neg := make([]int64, len(r.c))
		for j, v := range r.c {
			neg[j] = -v
		}
		opp, ok := ineqs[row{c: neg}.key()]
		if !ok || !keep[opp.idx] || opp.idx == i {
			continue
		}
		sum := r.k + out[opp.idx].k
		if sum < 0 {
			return nil, false
		}
		if sum == 0 {
			keep[i], keep[opp.idx] = false, false
			eq, _ := normalize(row{c: slices.Clone(r.c), k: r.k, eq: true})
			extra = append(extra, eq)
		}
	}
	var res []row
	for i, r := range out {
		if keep[i] {
			res = append(res, r)
		}
	}
	for _, r := range extra {
		if i, ok := eqs[r.key()]; ok {
			if out[i].k != r.k {
				return nil, false
			}
			continue
		}
		res = append(res, r)
	}
	return res, true
}

// eliminate projects out a column from a list of rows.
// The column is kept in the rows with a zero coefficient.
// The projection is exact, that is the integer points of the result are
// projections of integer points of the rows, if the column is eliminated with
// an equality with a unit coefficient or if every pair of lower and upper
// bounds has a unit coefficient.
func eliminate(rows []row, col int) ([]row, bool) {
	// Use an equality if there is one, preferably with a unit coefficient.
	eqIdx := -1
	for i, r := range rows {
		if !r.eq || r.c[col] == 0 {
			continue
		}
		if eqIdx < 0 || abs(r.c[col]) == 1 {
			eqIdx = i
		}
		if abs(r.c[col]) == 1 {
			break
		}
	}
	if eqIdx >= 0 {
		e := rows[eqIdx]
		a := e.c[col]
		var res []row
		for i, r := range rows {
			if i == eqIdx {
				continue
			}
			if r.c[col] == 0 {
				res = append(res, r)
				continue
			}
			res = append(res, combine(r, abs(a), e, -sign(a)*r.c[col]))
		}
		return res, abs(a) == 1
	}
	var pos, neg, res []row
	for _, r := range rows {
		switch {
		case r.c[col] > 0:
			pos = append(pos, r)
		case r.c[col] < 0:
			neg = append(neg, r)
		default:
			res = append(res, r)
		}
	}
	if len(pos)*len(neg)+len(res) > maxRows {
		return res, false
	}
	exact := true
	for _, p := range pos {
		for _, n := range neg {
			if p.c[col] != 1 && n.c[col] != -1 {
				exact = false
			}
			res = append(res, combine(p, -n.c[col], n, p.c[col]))
		}
	}
	return res, exact
}

// combine returns fa*a + fb*b. fa must be positive if a is an inequality,
// fb must be positive if b is an inequality.
func combine(a row, fa int64, b row, fb int64) row {
	r := row{c: make([]int64, len(a.c)), eq: a.eq && b.eq}
	for i := range r.c {
		r.c[i] = fa*a.c[i] + fb*b.c[i]
	}
	r.k = fa*a.k + fb*b.k
	return r
}

func sign(a int64) int64 {
	if a < 0 {
		return -1
	}
	return 1
}

// eliminateAll projects out a list of columns.
// Returns false if the rows are found to be infeasible
// and whether every elimination was exact.
func eliminateAll(rows []row, cols []int) ([]row, bool, bool) {
	rows, ok := simplifyRows(rows)
	if !ok {
		return nil, false, true
	}
	exact := true
	remaining := slices.Clone(cols)
	for len(remaining) > 0 {
		// Pick the column creating the fewest constraints.
		best, bestCost := 0, -1
		for i, col := range remaining {
			cost := eliminationCost(rows, col)
			if bestCost < 0 || cost < bestCost {
				best, bestCost = i, cost
			}
		}
		col := remaining[best]
		remaining = slices.Delete(remaining, best, best+1)
		var colExact bool
		rows, colExact = eliminate(rows, col)
		exact = exact && colExact
		if rows, ok = simplifyRows(rows); !ok {
			return nil, false, true
		}
	}
	return rows, true, exact
}

func eliminationCost(rows []row, col int) int {
	var npos, nneg int
	for _, r := range rows {
		if r.c[col] == 0 {
			continue
		}
		if r.eq {
			return 0
		}
		if r.c[col] > 0 {
			npos++
		} else {
			nneg++
		}
	}
	return npos*nneg - npos - nneg
}

// Bounds of the search for an integer point when the elimination is not exact.
const (
	maxBranchWidth = 64
	maxBranchNodes = 4096
)

// answer is the result of an integer feasibility test.
type answer int

const (
	noPoint answer = iota
	hasPoint
	undecided
)

// feasible returns true if the rows may have an integer solution.
func feasible(rows []row, ncols int) bool {
	return integerFeasibility(rows, ncols) != noPoint
}

// integerFeasibility decides if the rows have an integer solution.
// Rational elimination decides the rows without a rational solution.
// If an elimination was not exact, the search fixes the dimension with
// the narrowest bounds to each of its integer values and tests again.
func integerFeasibility(rows []row, ncols int) answer {
	budget := maxBranchNodes
	return searchPoint(rows, ncols, &budget)
}

func searchPoint(rows []row, ncols int, budget *int) answer {
	*budget--
	_, ok, exact := eliminateAll(rows, allColumns(ncols))
	switch {
	case !ok:
		return noPoint
	case exact:
		return hasPoint
	case *budget <= 0:
		return undecided
	}
	col, lo, hi, found := narrowestColumn(rows, ncols)
	if !found {
		return undecided
	}
	res := noPoint
	for v := lo; v <= hi; v++ {
		switch searchPoint(fixColumn(rows, col, v), ncols, budget) {
		case hasPoint:
			return hasPoint
		case undecided:
			res = undecided
		}
	}
	return res
}

func allColumns(ncols int) []int {
	cols := make([]int, ncols)
	for i := range cols {
		cols[i] = i
	}
	return cols
}

// narrowestColumn returns the column with the fewest integer values
// bounded by the rational projection of the rows on that column.
func narrowestColumn(rows []row, ncols int) (col int, lo, hi int64, found bool) {
	for c := range ncols {
		used := false
		for _, r := range rows {
			if r.c[c] != 0 {
				used = true
				break
			}
		}
		if !used {
			continue
		}
		others := slices.DeleteFunc(allColumns(ncols), func(o int) bool { return o == c })
		proj, ok, _ := eliminateAll(rows, others)
		if !ok {
			return c, 1, 0, true
		}
		clo, chi, bounded := columnBounds(proj, c)
		if !bounded || chi-clo+1 > maxBranchWidth {
			continue
		}
		if !found || chi-clo < hi-lo {
			col, lo, hi, found = c, clo, chi, true
		}
	}
	return
}

// columnBounds returns the integer bounds of a column given rows in which
// only that column has a non-zero coefficient.
func columnBounds(rows []row, col int) (lo, hi int64, bounded bool) {
	hasLo, hasHi := false, false
	for _, r := range rows {
		a := r.c[col]
		if a == 0 {
			continue
		}
		for _, half := range r.halves() {
			a = half.c[col]
			// a*x + k >= 0
			if a > 0 {
				if b := ceilDiv(-half.k, a); !hasLo || b > lo {
					lo, hasLo = b, true
				}
			} else {
				if b := floorDiv(half.k, -a); !hasHi || b < hi {
					hi, hasHi = b, true
				}
			}
		}
	}
	return lo, hi, hasLo && hasHi
}

// fixColumn returns the rows where a column is replaced by a value.
func fixColumn(rows []row, col int, v int64) []row {
	res := make([]row, len(rows))
	for i, r := range rows {
		r = r.clone()
		r.k += r.c[col] * v
		r.c[col] = 0
		res[i] = r
	}
	return res
}

// dropColumns removes columns [pos, pos+n) from rows.
// The coefficients of the removed columns must be zero.
func dropColumns(rows []row, pos, n int) []row {
	res := make([]row, len(rows))
	for i, r := range rows {
		c := slices.Clone(r.c)
		res[i] = row{c: slices.Delete(c, pos, pos+n), k: r.k, eq: r.eq}
	}
	return res
}

// insertColumns inserts n zero columns at pos.
func insertColumns(rows []row, pos, n int) []row {
	res := make([]row, len(rows))
	for i, r := range rows {
		c := slices.Insert(slices.Clone(r.c), pos, make([]int64, n)...)
		res[i] = row{c: c, k: r.k, eq: r.eq}
	}
	return res
}

// remapRows moves the coefficients of rows to a new column layout.
func remapRows(rows []row, cols []int, n int) []row {
	res := make([]row, len(rows))
	for i, r := range rows {
		res[i] = row{c: remap(r.c, cols, n), k: r.k, eq: r.eq}
	}
	return res
}

// minOfForm returns the minimum of c.x over the rows, if it is a constant.
func minOfForm(rows []row, c []int64) (int64, bool) {
	n := len(c)
	// Add a column t = c.x and eliminate everything else.
	ext := insertColumns(rows, n, 1)
	def := row{c: make([]int64, n+1), eq: true}
	for i, v := range c {
		def.c[i] = -v
	}
	def.c[n] = 1
	ext = append(ext, def)
	res, ok, _ := eliminateAll(ext, allColumns(n))
	if !ok {
		return 0, false
	}
	var lower int64
	found := false
	for _, r := range res {
		a := r.c[n]
		if a == 0 {
			continue
		}
		var bound int64
		switch {
		case r.eq:
			if r.k%a != 0 {
				return 0, false
			}
			bound = -r.k / a
		case a > 0:
			bound = ceilDiv(-r.k, a)
		default:
			continue
		}
		if !found || bound > lower {
			lower, found = bound, true
		}
	}
	return lower, found
}
