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
	"slices"

	"github.com/gx-org/loopir/base/ordered"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/symbolic"
)

// kernelData is the data of a kernel split by kind.
type kernelData struct {
	// args are the arguments and the argument names, in order.
	args      []ir.Datum
	temps     map[string]*ir.TemporaryVariable
	inferRest bool
}

// separateData splits the data of a kernel into temporaries and arguments.
// A datum whose name is a comma-separated list is replaced by one datum
// per name. Macros used by explicit array shapes are expanded.
func separateData(data []ir.Datum, defines Defines) (*kernelData, error) {
	kd := &kernelData{temps: make(map[string]*ir.TemporaryVariable)}
	for _, datum := range data {
		switch datumT := datum.(type) {
		case *ir.TemporaryVariable:
			for _, name := range ir.SplitNames(datumT.Name) {
				if _, ok := kd.temps[name]; ok {
					return nil, fmterr.NameErrorf("temporary variable %q declared more than once", name)
				}
				kd.temps[name] = datumT.WithName(name)
			}
		case ir.Argument:
			if array, ok := datumT.(*ir.ArrayArg); ok {
				shape, err := shapeDefines(array.Shape, defines)
				if err != nil {
					return nil, err
				}
				datumT = array.WithShape(shape)
			}
			for _, name := range ir.SplitNames(datumT.ArgName()) {
				kd.args = append(kd.args, datumT.WithName(name))
			}
		case ir.ArgName:
			kd.args = append(kd.args, datumT)
		default:
			if datum != ir.InferRest {
				return nil, fmterr.Internalf("kernel data %T not supported", datum)
			}
			if kd.inferRest {
				return nil, fmterr.ParseErrorf("argument inference requested more than once")
			}
			kd.inferRest = true
		}
	}
	return kd, nil
}

// argGuesser classifies the names used by a kernel as arguments.
type argGuesser struct {
	inames  *ordered.Set[string]
	params  *ordered.Set[string]
	written *ordered.Set[string]
	// exprs are the expressions of the instructions with their
	// substitution rules expanded.
	exprs         []symbolic.Expr
	defaultOffset ir.Offset
}

func newArgGuesser(domains []*isl.BasicSet, insns []*ir.Instruction, substs map[string]*ir.SubstitutionRule, defaultOffset ir.Offset) (*argGuesser, error) {
	g := &argGuesser{
		inames:        ordered.NewSet[string](),
		params:        ordered.NewSet[string](),
		written:       ordered.NewSet[string](),
		defaultOffset: defaultOffset,
	}
	for _, dom := range domains {
		g.inames.AddAll(slices.Values(dom.Space().Names(isl.SetDim)))
		g.params.AddAll(slices.Values(dom.Space().Names(isl.Param)))
	}
	g.params = g.params.Difference(g.inames)
	for _, insn := range insns {
		g.written.Add(insn.AssigneeName())
		for _, x := range []symbolic.Expr{insn.Assignee, insn.Expression} {
			expanded, err := ir.ExpandSubstitutions(x, substs)
			if err != nil {
				return nil, err
			}
			g.exprs = append(g.exprs, expanded)
		}
	}
	return g, nil
}

// indexRank returns the number of indices used to access a variable.
// A variable never subscripted has rank 0.
func (g *argGuesser) indexRank(name string) (int, error) {
	rank := 0
	for _, x := range g.exprs {
		for _, r := range symbolic.IndexRanks(x)[name] {
			if r == 0 {
				continue
			}
			if rank != 0 && rank != r {
				return 0, fmterr.BoundErrorf("could not determine the index rank of %q: accessed with %d and %d indices", name, rank, r)
			}
			rank = r
		}
	}
	return rank, nil
}

func (g *argGuesser) makeNewArg(name string) (ir.Argument, error) {
	if g.params.Has(name) {
		return ir.NewValueArg(name), nil
	}
	if g.written.Has(name) {
		// Not a temporary nor a parameter: the only other variable
		// that can be written is an array argument.
		return ir.NewGlobalArg(name, g.defaultOffset), nil
	}
	rank, err := g.indexRank(name)
	if err != nil {
		return nil, err
	}
	if rank == 0 {
		return ir.NewValueArg(name), nil
	}
	return ir.NewGlobalArg(name, g.defaultOffset), nil
}

// GuessArgs returns the arguments of a kernel.
//
// Argument entries of data are kept in order and argument names are replaced
// by arguments classified from the way the instructions use them:
// a domain parameter is a scalar, a written variable is a global array,
// and a read variable is a global array if it is subscripted,
// a scalar otherwise.
//
// If data contains ir.InferRest, the names used by the instructions,
// the domain parameters and the names used by explicit array shapes that are
// neither inames, temporaries nor arguments become new arguments,
// appended in sorted order.
func GuessArgs(domains []*isl.BasicSet, insns []*ir.Instruction, substs map[string]*ir.SubstitutionRule, data []ir.Datum, defaultOffset ir.Offset) ([]ir.Argument, error) {
	kd, err := separateData(data, nil)
	if err != nil {
		return nil, err
	}
	return guessArgs(domains, insns, substs, kd, defaultOffset)
}

func guessArgs(domains []*isl.BasicSet, insns []*ir.Instruction, substs map[string]*ir.SubstitutionRule, kd *kernelData, defaultOffset ir.Offset) ([]ir.Argument, error) {
	g, err := newArgGuesser(domains, insns, substs, defaultOffset)
	if err != nil {
		return nil, err
	}
	existing := ordered.NewSet[string]()
	var args []ir.Argument
	for _, datum := range kd.args {
		switch datumT := datum.(type) {
		case ir.Argument:
			existing.Add(datumT.ArgName())
			args = append(args, datumT)
		case ir.ArgName:
			for _, name := range datumT.Names() {
				existing.Add(name)
				arg, err := g.makeNewArg(name)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
		}
	}
	if !kd.inferRest {
		return args, nil
	}
	notNew := existing.Union(g.inames)
	for name := range kd.temps {
		notNew.Add(name)
	}
	for _, insn := range insns {
		if insn.DeclaresTemporary() {
			notNew.Add(insn.AssigneeName())
		}
	}
	all := ordered.NewSet(g.params.Slice()...)
	for _, x := range g.exprs {
		all.AddAll(slices.Values(symbolic.Dependencies(x)))
	}
	for _, arg := range args {
		if array, ok := arg.(*ir.ArrayArg); ok {
			all.AddAll(slices.Values(array.Shape.Dependencies()))
		}
	}
	for name := range all.Difference(notNew).All() {
		arg, err := g.makeNewArg(name)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}
