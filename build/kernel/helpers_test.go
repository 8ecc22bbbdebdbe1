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
	"context"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/kernel"
	"goa.design/clue/log"
)

var cmpEmptySlices = cmpopts.EquateEmpty()

func testContext() context.Context {
	return log.Context(context.Background())
}

func makeKernel(t *testing.T, domains []string, insns []string, data []ir.Datum, opts ...kernel.Option) *ir.Kernel {
	t.Helper()
	k, err := kernel.MakeKernel(testContext(), texts(domains...), insns, data, opts...)
	if err != nil {
		t.Fatalf("cannot make kernel:\n%+v", err)
	}
	return k
}

func argNames(k *ir.Kernel) []string {
	var names []string
	for _, arg := range k.Args {
		names = append(names, arg.ArgName())
	}
	return names
}

func arrayArg(t *testing.T, k *ir.Kernel, name string) *ir.ArrayArg {
	t.Helper()
	arg, ok := k.Arg(name)
	if !ok {
		t.Fatalf("argument %q not found in %v", name, argNames(k))
	}
	array, ok := arg.(*ir.ArrayArg)
	if !ok {
		t.Fatalf("argument %q is a %T but want an array", name, arg)
	}
	return array
}
