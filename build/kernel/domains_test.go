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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
	"github.com/gx-org/loopir/build/kernel"
)

func texts(srcs ...string) []kernel.DomainInput {
	inputs := make([]kernel.DomainInput, len(srcs))
	for i, src := range srcs {
		inputs[i] = kernel.DomainText(src)
	}
	return inputs
}

func TestParseDomains(t *testing.T) {
	tests := []struct {
		srcs    []string
		defines kernel.Defines
		params  [][]string
		inames  [][]string
	}{
		{
			srcs:   []string{"{[i]: 0<=i<n}", "{[j]: 0<=j<i+m}"},
			params: [][]string{{"n"}, {"i", "m"}},
			inames: [][]string{{"i"}, {"j"}},
		},
		{
			srcs:    []string{"{[i, j]: 0<=i<N and 0<=j<i}"},
			defines: kernel.Defines{"N": kernel.Single(16)},
			params:  [][]string{{}},
			inames:  [][]string{{"i", "j"}},
		},
		{
			srcs:   []string{"[n] -> {[i]: 0<=i<n}"},
			params: [][]string{{"n"}},
			inames: [][]string{{"i"}},
		},
		{
			srcs:   []string{"{[i]: exists e: i = e + 1 and 0<=e<n}"},
			params: [][]string{{"n"}},
			inames: [][]string{{"i"}},
		},
	}
	for i, test := range tests {
		doms, err := kernel.ParseDomains(texts(test.srcs...), test.defines)
		if err != nil {
			t.Errorf("test %d: %+v", i, err)
			continue
		}
		var params, inames [][]string
		for _, dom := range doms {
			params = append(params, dom.Space().Names(isl.Param))
			inames = append(inames, dom.Space().Names(isl.SetDim))
		}
		if diff := cmp.Diff(test.params, params, cmpEmptySlices); diff != "" {
			t.Errorf("test %d: unexpected parameters (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff(test.inames, inames, cmpEmptySlices); diff != "" {
			t.Errorf("test %d: unexpected inames (-want +got):\n%s", i, diff)
		}
	}
}

func TestParseDomainsMacros(t *testing.T) {
	doms, err := kernel.ParseDomains(texts("{[i]: 0<=i<N}"), kernel.Defines{"N": kernel.Single(8)})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want, err := isl.ReadBasicSet("{[i]: 0<=i<8}")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !doms[0].IsEqual(want) {
		t.Errorf("got domain %s but want %s", doms[0], want)
	}
}

func TestParseDomainsSet(t *testing.T) {
	set, err := isl.ReadBasicSet("[n] -> {[k]: 0<=k<n}")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	doms, err := kernel.ParseDomains([]kernel.DomainInput{
		kernel.DomainSet(set),
		kernel.DomainText("{[i]: 0<=i<k}"),
	}, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if doms[0] != set {
		t.Errorf("domain given as a set has been replaced by %s", doms[0])
	}
}

func TestParseDomainsErrors(t *testing.T) {
	tests := []struct {
		srcs    []string
		defines kernel.Defines
		kind    fmterr.Kind
	}{
		{
			srcs: []string{"{[i]: 0<=i<n}", "{[i]: 0<=i<m}"},
			kind: fmterr.NameError,
		},
		{
			srcs:    []string{"{[i]: 0<=i<N}"},
			defines: kernel.Defines{"N": kernel.List(1, 2)},
			kind:    fmterr.BoundError,
		},
		{
			srcs: []string{"{[i]: 0<=i<n and"},
			kind: fmterr.ParseError,
		},
		{
			srcs: []string{"{[i]: 0<=i<3 or 5<=i<8}"},
			kind: fmterr.ConvexityError,
		},
		{
			srcs: []string{"{[i]: exists k: i = 2k and 0<=i<10}"},
			kind: fmterr.ParseError,
		},
	}
	for i, test := range tests {
		_, err := kernel.ParseDomains(texts(test.srcs...), test.defines)
		if !fmterr.Is(err, test.kind) {
			t.Errorf("test %d: got error %v but want a %s", i, err, test.kind)
		}
	}
}
