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

// Package ir is the intermediate representation of a kernel.
//
// A kernel is an immutable value. Passes building a kernel never modify
// their input: they return a new kernel with some of its fields replaced
// using the With methods.
package ir

import (
	"maps"
	"slices"
	"strings"

	"github.com/gx-org/loopir/base/ordered"
	"github.com/gx-org/loopir/base/uname"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/symbolic"
)

// DefaultInstructionPrefix is the prefix of generated instruction IDs.
const DefaultInstructionPrefix = "insn"

type (
	// Options of a kernel not used to build the kernel,
	// but carried to the next stages of the compilation.
	Options struct {
		Flags            []string
		SilencedWarnings []string
	}

	// Kernel is a computation over loop domains.
	Kernel struct {
		Name    string
		Domains []*isl.BasicSet
		// Instructions by ID, in the order in which they have been given.
		Instructions  *ordered.Map[string, *Instruction]
		Args          []Argument
		Temporaries   map[string]*TemporaryVariable
		Substitutions map[string]*SubstitutionRule
		InameToTag    map[string]InameTag
		// Assumptions are constraints on the parameters of the kernel.
		// Nil if there is no assumption.
		Assumptions *isl.BasicSet
		Options     Options
	}
)

// New returns a kernel given its domains, instructions and arguments.
// Instructions without an ID get a unique ID generated from their ID prefix.
func New(name string, domains []*isl.BasicSet, insns []*Instruction, args []Argument) (*Kernel, error) {
	k := &Kernel{
		Name:          name,
		Domains:       domains,
		Instructions:  ordered.NewMap[string, *Instruction](),
		Args:          args,
		Temporaries:   make(map[string]*TemporaryVariable),
		Substitutions: make(map[string]*SubstitutionRule),
		InameToTag:    make(map[string]InameTag),
	}
	ids := uname.New()
	for _, insn := range insns {
		if insn.ID == "" {
			continue
		}
		if ids.IsUsed(insn.ID) {
			return nil, fmterr.NameErrorf("duplicate instruction id %q", insn.ID)
		}
		ids.Register(insn.ID)
	}
	for _, insn := range insns {
		if insn.ID == "" {
			prefix := insn.IDPrefix
			if prefix == "" {
				prefix = DefaultInstructionPrefix
			}
			insn = insn.Clone()
			insn.ID = ids.Name(prefix)
		}
		k.Instructions.Store(insn.ID, insn)
	}
	return k, nil
}

func (k *Kernel) clone() *Kernel {
	c := *k
	return &c
}

// WithInstructions returns a copy of the kernel with a new list of instructions.
// All the instructions must have a unique ID.
func (k *Kernel) WithInstructions(insns []*Instruction) *Kernel {
	c := k.clone()
	c.Instructions = ordered.NewMap[string, *Instruction]()
	for _, insn := range insns {
		c.Instructions.Store(insn.ID, insn)
	}
	return c
}

// WithDomains returns a copy of the kernel with new domains.
func (k *Kernel) WithDomains(domains []*isl.BasicSet) *Kernel {
	c := k.clone()
	c.Domains = domains
	return c
}

// WithArgs returns a copy of the kernel with new arguments.
func (k *Kernel) WithArgs(args []Argument) *Kernel {
	c := k.clone()
	c.Args = args
	return c
}

// WithTemporaries returns a copy of the kernel with new temporary variables.
func (k *Kernel) WithTemporaries(temps map[string]*TemporaryVariable) *Kernel {
	c := k.clone()
	c.Temporaries = temps
	return c
}

// WithSubstitutions returns a copy of the kernel with new substitution rules.
func (k *Kernel) WithSubstitutions(substs map[string]*SubstitutionRule) *Kernel {
	c := k.clone()
	c.Substitutions = substs
	return c
}

// WithInameToTag returns a copy of the kernel with new iname tags.
func (k *Kernel) WithInameToTag(tags map[string]InameTag) *Kernel {
	c := k.clone()
	c.InameToTag = tags
	return c
}

// WithAssumptions returns a copy of the kernel with new assumptions.
func (k *Kernel) WithAssumptions(assumptions *isl.BasicSet) *Kernel {
	c := k.clone()
	c.Assumptions = assumptions
	return c
}

// WithOptions returns a copy of the kernel with new options.
func (k *Kernel) WithOptions(opts Options) *Kernel {
	c := k.clone()
	c.Options = opts
	return c
}

// InstructionList returns the instructions of the kernel in order.
func (k *Kernel) InstructionList() []*Instruction {
	return k.Instructions.Slice()
}

// AllInames returns the names of the set dimensions of all the domains.
func (k *Kernel) AllInames() *ordered.Set[string] {
	inames := ordered.NewSet[string]()
	for _, dom := range k.Domains {
		inames.AddAll(slices.Values(dom.Space().Names(isl.SetDim)))
	}
	return inames
}

// AllParams returns the names of the parameters of all the domains
// which are not inames.
func (k *Kernel) AllParams() *ordered.Set[string] {
	params := ordered.NewSet[string]()
	for _, dom := range k.Domains {
		params.AddAll(slices.Values(dom.Space().Names(isl.Param)))
	}
	return params.Difference(k.AllInames())
}

// Arg returns an argument given its name.
func (k *Kernel) Arg(name string) (Argument, bool) {
	for _, arg := range k.Args {
		if arg.ArgName() == name {
			return arg, true
		}
	}
	return nil, false
}

// AllVariableNames returns all the names used by the kernel:
// inames, parameters, arguments, temporaries and substitution rules.
func (k *Kernel) AllVariableNames() *ordered.Set[string] {
	names := k.AllInames().Union(k.AllParams())
	for _, arg := range k.Args {
		names.Add(arg.ArgName())
	}
	names.AddAll(maps.Keys(k.Temporaries))
	names.AddAll(maps.Keys(k.Substitutions))
	return names
}

// VarNameGenerator returns a generator of variable names
// not used by the kernel.
func (k *Kernel) VarNameGenerator() *uname.Unique {
	return uname.New(k.AllVariableNames().Slice()...)
}

// InstructionIDGenerator returns a generator of instruction IDs
// not used by the kernel.
func (k *Kernel) InstructionIDGenerator() *uname.Unique {
	return uname.New(slices.Collect(k.Instructions.Keys())...)
}

// WriterMap returns, for each variable, the sorted IDs of the instructions writing it.
func (k *Kernel) WriterMap() map[string][]string {
	wmap := make(map[string][]string)
	for insn := range k.Instructions.Values() {
		name := insn.AssigneeName()
		wmap[name] = append(wmap[name], insn.ID)
	}
	for _, ids := range wmap {
		slices.Sort(ids)
	}
	return wmap
}

// InsnInames returns the sorted inames an instruction is nested in:
// the inames used by its expressions (reduction inames excluded),
// its forced iname dependencies and the inames bounding their domains.
func (k *Kernel) InsnInames(insn *Instruction) ([]string, error) {
	allInames := k.AllInames()
	inames := ordered.NewSet(insn.ForcedInameDeps...)
	for _, x := range []symbolic.Expr{insn.Assignee, insn.Expression} {
		x, err := ExpandSubstitutions(x, k.Substitutions)
		if err != nil {
			return nil, err
		}
		for _, dep := range symbolic.Dependencies(x) {
			if allInames.Has(dep) {
				inames.Add(dep)
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for _, dom := range k.Domains {
			if !slices.ContainsFunc(dom.Space().Names(isl.SetDim), inames.Has) {
				continue
			}
			for _, param := range dom.Space().Names(isl.Param) {
				if allInames.Has(param) && inames.Add(param) {
					changed = true
				}
			}
		}
	}
	return inames.Slice(), nil
}

// domainsOf returns the domains defining a set of inames and, recursively,
// the domains defining the inames used as parameters by these domains.
// The set of inames is extended with all the set dimensions of the returned domains.
func (k *Kernel) domainsOf(inames *ordered.Set[string]) []*isl.BasicSet {
	allInames := k.AllInames()
	used := make([]bool, len(k.Domains))
	var doms []*isl.BasicSet
	for changed := true; changed; {
		changed = false
		for i, dom := range k.Domains {
			names := dom.Space().Names(isl.SetDim)
			if used[i] || !slices.ContainsFunc(names, inames.Has) {
				continue
			}
			used[i], changed = true, true
			doms = append(doms, dom)
			inames.AddAll(slices.Values(names))
			for _, param := range dom.Space().Names(isl.Param) {
				if allInames.Has(param) {
					inames.Add(param)
				}
			}
		}
	}
	return doms
}

// CombinedDomain returns the intersection of the domains defining a list of inames.
// All the inames of the returned set are set dimensions, sorted by name,
// and the other names are parameters.
func (k *Kernel) CombinedDomain(inames []string) (*isl.BasicSet, error) {
	allInames := k.AllInames()
	for _, iname := range inames {
		if !allInames.Has(iname) {
			return nil, fmterr.NameErrorf("iname %q is not defined by any domain", iname)
		}
	}
	setDims := ordered.NewSet(inames...)
	doms := k.domainsOf(setDims)
	params := ordered.NewSet[string]()
	for _, dom := range doms {
		params.AddAll(slices.Values(dom.Space().Names(isl.Param)))
	}
	params = params.Difference(setDims)
	space := isl.NewSpace(params.Slice(), setDims.Slice())
	result := isl.Universe(space)
	for _, dom := range doms {
		aligned, err := dom.AlignTo(space)
		if err != nil {
			return nil, fmterr.Wrap(fmterr.Internal, err, "cannot combine domains")
		}
		result = result.Intersect(aligned)
	}
	return result, nil
}

// Footprint returns the number of bytes of the array arguments and of
// the temporaries with a known kind and shape.
func (k *Kernel) Footprint() (args, temps int) {
	for _, arg := range k.Args {
		if array, ok := arg.(*ArrayArg); ok {
			n, _ := array.NBytes()
			args += n
		}
	}
	for _, tv := range k.Temporaries {
		n, _ := tv.NBytes()
		temps += n
	}
	return args, temps
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// String returns a human readable representation of the kernel.
func (k *Kernel) String() string {
	const sep = "---------------------------------------------------------------------------\n"
	var s strings.Builder
	s.WriteString(sep + "KERNEL: " + k.Name + "\n" + sep)
	s.WriteString("ARGUMENTS:\n")
	for _, arg := range k.Args {
		s.WriteString(arg.String() + "\n")
	}
	s.WriteString(sep + "DOMAINS:\n")
	for _, dom := range k.Domains {
		s.WriteString(dom.String() + "\n")
	}
	if k.Assumptions != nil {
		s.WriteString(sep + "ASSUMPTIONS:\n" + k.Assumptions.String() + "\n")
	}
	if len(k.InameToTag) > 0 {
		s.WriteString(sep + "INAME TAGS:\n")
		for _, iname := range sortedKeys(k.InameToTag) {
			s.WriteString(iname + ": " + k.InameToTag[iname].String() + "\n")
		}
	}
	if len(k.Temporaries) > 0 {
		s.WriteString(sep + "TEMPORARIES:\n")
		for _, name := range sortedKeys(k.Temporaries) {
			s.WriteString(k.Temporaries[name].String() + "\n")
		}
	}
	if len(k.Substitutions) > 0 {
		s.WriteString(sep + "SUBSTITUTION RULES:\n")
		for _, name := range sortedKeys(k.Substitutions) {
			s.WriteString(k.Substitutions[name].String() + "\n")
		}
	}
	s.WriteString(sep + "INSTRUCTIONS:\n")
	for insn := range k.Instructions.Values() {
		inames, err := k.InsnInames(insn)
		if err != nil {
			inames = nil
		}
		s.WriteString("[" + strings.Join(inames, ",") + "] " + insn.String() + "\n")
	}
	s.WriteString(sep)
	return s.String()
}
