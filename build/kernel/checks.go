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
	"strings"

	"github.com/gx-org/loopir/base/ordered"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/isl"
)

// checkForcedInameDeps checks that the inames instructions are forced
// to depend on are defined by a domain.
func checkForcedInameDeps(k *ir.Kernel) error {
	inames := k.AllInames()
	for insn := range k.Instructions.Values() {
		missing := ordered.NewSet(insn.ForcedInameDeps...).Difference(inames)
		if missing.Len() > 0 {
			return fmterr.NameErrorf("in instruction %q: cannot force dependency on inames %s: they do not exist",
				insn.ID, strings.Join(missing.Slice(), ","))
		}
	}
	return nil
}

// checkBoundWriters checks that every temporary used as a domain parameter
// is written by exactly one instruction.
func checkBoundWriters(k *ir.Kernel) error {
	params := ordered.NewSet[string]()
	for _, dom := range k.Domains {
		params.AddAll(slices.Values(dom.Space().Names(isl.Param)))
	}
	wmap := k.WriterMap()
	for param := range params.All() {
		if _, ok := k.Temporaries[param]; !ok {
			continue
		}
		if writers := wmap[param]; len(writers) != 1 {
			return fmterr.WriterCountErrorf("there must be exactly one write to data-dependent domain parameter %q (found %d)", param, len(writers))
		}
	}
	return nil
}

// checkBoundKinds checks that the domain parameters with a known kind
// are integers.
func checkBoundKinds(k *ir.Kernel) error {
	for param := range k.AllParams().All() {
		kind := irkind.Auto
		if tv, ok := k.Temporaries[param]; ok {
			kind = tv.Kind
		} else if arg, ok := k.Arg(param); ok {
			switch argT := arg.(type) {
			case *ir.ValueArg:
				kind = argT.Kind
			case *ir.ArrayArg:
				return fmterr.BoundErrorf("domain parameter %q is an array", param)
			}
		}
		if kind.IsAuto() || kind == irkind.Invalid || irkind.IsIntegerKind(kind) {
			continue
		}
		return fmterr.BoundErrorf("domain parameter %q has kind %s but loop bounds must be integers", param, kind)
	}
	return nil
}

// checkDuplicateNames checks that a name is not used by more than one
// iname, argument, temporary or substitution rule.
func checkDuplicateNames(k *ir.Kernel) error {
	sources := make(map[string]string)
	add := func(name, source string) error {
		if prev, ok := sources[name]; ok {
			return fmterr.NameErrorf("invalid %s name %q: name already used as %s", source, name, prev)
		}
		sources[name] = source
		return nil
	}
	for iname := range k.AllInames().All() {
		if err := add(iname, "iname"); err != nil {
			return err
		}
	}
	for _, arg := range k.Args {
		if err := add(arg.ArgName(), "argument"); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(k.Temporaries) {
		if err := add(name, "temporary"); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(k.Substitutions) {
		if err := add(name, "substitution"); err != nil {
			return err
		}
	}
	return nil
}

// checkWrittenNames checks that instructions only write arguments and temporaries.
func checkWrittenNames(k *ir.Kernel) error {
	for insn := range k.Instructions.Values() {
		name := insn.AssigneeName()
		if _, ok := k.Temporaries[name]; ok {
			continue
		}
		if _, ok := k.Arg(name); ok {
			continue
		}
		return fmterr.WithSrc(fmterr.NameErrorf("variable %q not declared or not allowed for writing", name), insn.String())
	}
	return nil
}
