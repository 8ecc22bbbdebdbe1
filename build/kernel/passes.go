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
	"context"
	"maps"
	"slices"

	"github.com/gobwas/glob"
	"github.com/gx-org/loopir/base/ordered"
	"github.com/gx-org/loopir/base/uname"
	"github.com/gx-org/loopir/build/affine"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/symbolic"
	"goa.design/clue/log"
)

// defaultCSEPrefix is the prefix of the temporaries created for
// common subexpressions without a prefix.
const defaultCSEPrefix = "var"

// tagReductionInames tags the reduction inames without a tag as force-sequential.
func (b *builder) tagReductionInames(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	reduced := ordered.NewSet[string]()
	for insn := range k.Instructions.Values() {
		reduced.AddAll(slices.Values(insn.ReductionInames()))
	}
	tags := maps.Clone(k.InameToTag)
	for iname := range reduced.All() {
		tag, ok := tags[iname]
		if !ok {
			tags[iname] = ir.ForceSequentialTag{}
			continue
		}
		if ir.IsParallel(tag) {
			return nil, fmterr.TagErrorf("reduction iname %q has the parallel tag %s", iname, tag)
		}
	}
	return k.WithInameToTag(tags), nil
}

// createTemporaries creates the temporaries declared by instructions.
func (b *builder) createTemporaries(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	temps := maps.Clone(k.Temporaries)
	insns := k.InstructionList()
	for i, insn := range insns {
		if !insn.DeclaresTemporary() {
			continue
		}
		name := insn.AssigneeName()
		if _, ok := temps[name]; ok {
			return nil, fmterr.NameErrorf("cannot create temporary variable %q: already exists", name)
		}
		if _, ok := k.Arg(name); ok {
			return nil, fmterr.NameErrorf("cannot create temporary variable %q: already exists as argument", name)
		}
		log.Debug(ctx,
			log.KV{K: "msg", V: "creating temporary"},
			log.KV{K: "kernel", V: k.Name},
			log.KV{K: "temporary", V: name})
		temps[name] = ir.NewTemporary(name, insn.TempVarType)
		insn = insn.Clone()
		insn.TempVarType = irkind.Invalid
		insns[i] = insn
	}
	return k.WithInstructions(insns).WithTemporaries(temps), nil
}

// accessRangeFinder computes the range of indices used to access an array.
type accessRangeFinder struct {
	k    *ir.Kernel
	name string
	rank int
	// rng is nil until the array is found subscripted.
	rng *isl.Set
}

func newAccessRangeFinder(k *ir.Kernel, name string) *accessRangeFinder {
	return &accessRangeFinder{k: k, name: name}
}

// visit records the accesses of an expression evaluated over a set of inames.
// Accesses nested in a reduction are evaluated over the reduction inames as well.
func (f *accessRangeFinder) visit(x symbolic.Expr, inames []string) error {
	var err error
	symbolic.Walk(x, func(x symbolic.Expr) bool {
		if err != nil {
			return false
		}
		switch xT := x.(type) {
		case *symbolic.Reduction:
			err = f.visit(xT.Expr, append(slices.Clone(inames), xT.Inames...))
			return false
		case *symbolic.Subscript:
			if xT.Aggregate.Name == f.name {
				err = f.record(xT.Index, inames)
			}
		}
		return true
	})
	return err
}

func (f *accessRangeFinder) record(index []symbolic.Expr, inames []string) error {
	if f.rng != nil && f.rank != len(index) {
		return fmterr.BoundErrorf("%q is accessed with %d and %d indices", f.name, f.rank, len(index))
	}
	dom, err := f.k.CombinedDomain(inames)
	if err != nil {
		return err
	}
	rng, err := affine.AccessRange(dom, index)
	if err != nil {
		return fmterr.Wrap(fmterr.BoundError, err, "cannot find the range of indices of %s%v", f.name, index)
	}
	if f.rng == nil {
		f.rng, f.rank = rng, len(index)
		return nil
	}
	f.rng = f.rng.Union(rng)
	return nil
}

// accessRange returns the coalesced access range. Returns nil if no access has been recorded.
func (f *accessRangeFinder) accessRange() *isl.Set {
	if f.rng == nil {
		return nil
	}
	return f.rng.Coalesce()
}

// determineTempShapes infers the shape and the base indices of the temporaries
// from the indices used to write them.
func (b *builder) determineTempShapes(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	temps := make(map[string]*ir.TemporaryVariable, len(k.Temporaries))
	for _, name := range slices.Sorted(maps.Keys(k.Temporaries)) {
		tv := k.Temporaries[name]
		if !tv.Shape.IsAuto() && !tv.BaseIndices.IsAuto() {
			temps[name] = tv
			continue
		}
		finder := newAccessRangeFinder(k, name)
		for insn := range k.Instructions.Values() {
			if insn.AssigneeName() != name || insn.AssigneeIndex() == nil {
				continue
			}
			inames, err := k.InsnInames(insn)
			if err != nil {
				return nil, err
			}
			if err := finder.visit(insn.Assignee, inames); err != nil {
				return nil, fmterr.WithSrc(err, insn.String())
			}
		}
		shape, base := ir.NewShape(), ir.NewShape()
		if rng := finder.accessRange(); rng != nil {
			for i := range rng.Space().Dim(isl.SetDim) {
				axisBase, axisLen, err := b.cache.BaseIndexAndLength(rng, i)
				if err != nil {
					return nil, fmterr.Wrap(fmterr.BoundError, err, "cannot find the shape of axis %d of temporary %q", i, name)
				}
				base.Axes = append(base.Axes, axisBase)
				shape.Axes = append(shape.Axes, axisLen)
			}
		}
		if !tv.BaseIndices.IsAuto() {
			base = tv.BaseIndices
		}
		if !tv.Shape.IsAuto() {
			shape = tv.Shape
		}
		temps[name] = tv.WithShape(shape, base)
	}
	return k.WithTemporaries(temps), nil
}

// cseExpander hoists common subexpressions into temporaries.
// Its state is shared by all the instructions of a kernel so that
// identical subexpressions are computed once.
type cseExpander struct {
	kernelName string
	varNames   *uname.Unique
	insnIDs    *uname.Unique
	exprToVar  map[string]*symbolic.Variable
	temps      map[string]*ir.TemporaryVariable
	insns      []*ir.Instruction
}

func (e *cseExpander) expand(ctx context.Context, insn *ir.Instruction) error {
	var err error
	x := symbolic.Transform(insn.Expression, func(x symbolic.Expr) symbolic.Expr {
		cse, ok := x.(*symbolic.CSE)
		if !ok || err != nil {
			return x
		}
		key := cse.Child.String()
		if v, ok := e.exprToVar[key]; ok {
			return v
		}
		if v, ok := cse.Child.(*symbolic.Variable); ok {
			return v
		}
		var kind irkind.Kind
		if kind, err = irkind.KindFromString(cse.Kind); err != nil {
			err = fmterr.Wrap(fmterr.ParseError, err, "invalid type of common subexpression %s", cse)
			return x
		}
		prefix := cse.Prefix
		if prefix == "" {
			prefix = defaultCSEPrefix
		}
		v := symbolic.NewVariable(e.varNames.Name(prefix))
		e.temps[v.Name] = ir.NewTemporary(v.Name, kind).WithShape(ir.NewShape(), ir.NewShape())
		e.insns = append(e.insns, &ir.Instruction{
			ID:         e.insnIDs.Name(ir.DefaultInstructionPrefix),
			Assignee:   v,
			Expression: cse.Child,
			Predicates: slices.Clone(insn.Predicates),
		})
		e.exprToVar[key] = v
		log.Debug(ctx,
			log.KV{K: "msg", V: "hoisting common subexpression"},
			log.KV{K: "kernel", V: e.kernelName},
			log.KV{K: "temporary", V: v.Name},
			log.KV{K: "expr", V: key})
		return v
	})
	if err != nil {
		return err
	}
	e.insns = append(e.insns, insn.WithExpression(x))
	return nil
}

// expandCSEs replaces the common subexpressions by temporaries
// assigned before the instruction using them first.
func (b *builder) expandCSEs(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	e := &cseExpander{
		kernelName: k.Name,
		varNames:   k.VarNameGenerator(),
		insnIDs:    k.InstructionIDGenerator(),
		exprToVar:  make(map[string]*symbolic.Variable),
		temps:      maps.Clone(k.Temporaries),
	}
	for insn := range k.Instructions.Values() {
		if err := e.expand(ctx, insn); err != nil {
			return nil, fmterr.WithSrc(err, insn.String())
		}
	}
	return k.WithInstructions(e.insns).WithTemporaries(e.temps), nil
}

// shapeDefines expands the macros used by a shape.
func shapeDefines(s ir.Shape, defines Defines) (ir.Shape, error) {
	var err error
	r := s.Map(func(x symbolic.Expr) symbolic.Expr {
		if err != nil {
			return x
		}
		var expanded symbolic.Expr
		if expanded, err = ExpandDefinesInExpr(x, defines); err != nil {
			return x
		}
		return expanded
	})
	return r, err
}

// expandDefinesInShapes expands the macros used by the shapes of the arrays
// and of the temporaries.
func (b *builder) expandDefinesInShapes(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	if len(b.defines) == 0 {
		return k, nil
	}
	args := slices.Clone(k.Args)
	for i, arg := range args {
		array, ok := arg.(*ir.ArrayArg)
		if !ok {
			continue
		}
		shape, err := shapeDefines(array.Shape, b.defines)
		if err != nil {
			return nil, err
		}
		strides, err := shapeDefines(array.Strides, b.defines)
		if err != nil {
			return nil, err
		}
		array = array.WithShape(shape).WithStrides(strides)
		if off := array.Offset; !off.IsAuto() && off.Expr != nil {
			if off.Expr, err = ExpandDefinesInExpr(off.Expr, b.defines); err != nil {
				return nil, err
			}
			array.Offset = off
		}
		args[i] = array
	}
	temps := make(map[string]*ir.TemporaryVariable, len(k.Temporaries))
	for name, tv := range k.Temporaries {
		shape, err := shapeDefines(tv.Shape, b.defines)
		if err != nil {
			return nil, err
		}
		base, err := shapeDefines(tv.BaseIndices, b.defines)
		if err != nil {
			return nil, err
		}
		temps[name] = tv.WithShape(shape, base)
	}
	return k.WithArgs(args).WithTemporaries(temps), nil
}

// argShape infers the shape of an array argument from the indices used to access it.
func (b *builder) argShape(k *ir.Kernel, name string) (ir.Shape, error) {
	finder := newAccessRangeFinder(k, name)
	for insn := range k.Instructions.Values() {
		inames, err := k.InsnInames(insn)
		if err != nil {
			return ir.Shape{}, err
		}
		for _, x := range []symbolic.Expr{insn.Assignee, insn.Expression} {
			expanded, err := ir.ExpandSubstitutions(x, k.Substitutions)
			if err != nil {
				return ir.Shape{}, err
			}
			if err := finder.visit(expanded, inames); err != nil {
				return ir.Shape{}, fmterr.WithSrc(err, insn.String())
			}
		}
	}
	rng := finder.accessRange()
	if rng == nil {
		// Never subscripted: a scalar.
		return ir.NewShape(), nil
	}
	shape := ir.NewShape()
	for i := range rng.Space().Dim(isl.SetDim) {
		upper, err := b.cache.DimMax(rng, i)
		if err != nil {
			return ir.Shape{}, fmterr.Wrap(fmterr.BoundError, err, "cannot find the upper bound of axis %d", i)
		}
		length, err := affine.StaticMaxOfPwAff(upper.AddConstant(1), false, nil)
		if err != nil {
			return ir.Shape{}, fmterr.Wrap(fmterr.BoundError, err, "cannot find the length of axis %d", i)
		}
		shape.Axes = append(shape.Axes, affine.ExprFromAff(length))
	}
	return shape, nil
}

// guessArgShapes infers the shapes of the array arguments with an auto shape
// and their strides if these are auto too.
func (b *builder) guessArgShapes(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	args := slices.Clone(k.Args)
	for i, arg := range args {
		array, ok := arg.(*ir.ArrayArg)
		if !ok || !array.Shape.IsAuto() {
			continue
		}
		shape, err := b.argShape(k, array.Name)
		if err != nil {
			return nil, fmterr.Wrap(fmterr.BoundError, err, "failed to find the shape of argument %q: specifying the shape explicitly should fix this", array.Name)
		}
		array = array.WithShape(shape)
		if n, ok := array.NBytes(); ok {
			log.Debug(ctx,
				log.KV{K: "msg", V: "argument shape"},
				log.KV{K: "argument", V: array.Name},
				log.KV{K: "bytes", V: n})
		}
		if array.Strides.IsAuto() {
			array = array.WithStrides(ir.MakeStrides(shape, b.order))
		}
		args[i] = array
	}
	return k.WithArgs(args), nil
}

// applyDefaultOrder sets the memory order of all the array arguments.
func (b *builder) applyDefaultOrder(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	args := slices.Clone(k.Args)
	for i, arg := range args {
		if array, ok := arg.(*ir.ArrayArg); ok {
			args[i] = array.WithOrder(b.order)
		}
	}
	return k.WithArgs(args), nil
}

// ResolveDeps replaces the patterns of a list of dependencies by the IDs
// matching them. In a pattern, * matches any sequence of characters,
// ? matches any character and [...] matches a character class.
// A pattern matching no ID, or which is not a valid pattern, is kept as is.
// The result is sorted.
func ResolveDeps(deps []string, ids []string) []string {
	resolved := ordered.NewSet[string]()
	for _, dep := range deps {
		matched := false
		if g, err := glob.Compile(dep); err == nil {
			for _, id := range ids {
				if g.Match(id) {
					resolved.Add(id)
					matched = true
				}
			}
		}
		if !matched {
			resolved.Add(dep)
		}
	}
	return resolved.Slice()
}

// resolveWildcardDeps resolves the dependency patterns of all the instructions.
func (b *builder) resolveWildcardDeps(ctx context.Context, k *ir.Kernel) (*ir.Kernel, error) {
	ids := slices.Collect(k.Instructions.Keys())
	insns := k.InstructionList()
	for i, insn := range insns {
		if !insn.DepsSet {
			continue
		}
		insns[i] = insn.WithDeps(ResolveDeps(insn.Deps, ids))
	}
	return k.WithInstructions(insns), nil
}
