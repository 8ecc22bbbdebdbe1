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
	"regexp"
	"strings"

	"github.com/gx-org/loopir/base/ordered"
	"github.com/gx-org/loopir/build/affine"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/isl"
)

// DomainInput is a domain given either as text or as a set.
type DomainInput struct {
	text string
	set  *isl.BasicSet
}

// DomainText returns a domain given in the set syntax.
func DomainText(text string) DomainInput {
	return DomainInput{text: text}
}

// DomainSet returns a domain already built.
func DomainSet(set *isl.BasicSet) DomainInput {
	return DomainInput{set: set}
}

func (d DomainInput) String() string {
	if d.set != nil {
		return d.set.String()
	}
	return d.text
}

var (
	identRE  = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
	inamesRE = regexp.MustCompile(`^\s*\{\s*\[([a-zA-Z0-9_, ]+)\]\s*:`)
	existsRE = regexp.MustCompile(`exists\s*([a-zA-Z0-9_, ]+)\s*:`)
)

var setKeywords = []string{"and", "or", "exists"}

func splitIdents(s string) []string {
	var r []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			r = append(r, name)
		}
	}
	return r
}

// inferParameters prefixes a domain with its parameter list:
// all the identifiers of the domain which are neither inames,
// existentially quantified variables nor keywords.
func inferParameters(text string) string {
	params := ordered.NewSet(identRE.FindAllString(text, -1)...)
	for _, kw := range setKeywords {
		params.Remove(kw)
	}
	if match := inamesRE.FindStringSubmatch(text); match != nil {
		for _, iname := range splitIdents(match[1]) {
			params.Remove(iname)
		}
	}
	for _, match := range existsRE.FindAllStringSubmatch(text, -1) {
		for _, name := range splitIdents(match[1]) {
			params.Remove(name)
		}
	}
	return "[" + strings.Join(params.Slice(), ",") + "] -> " + text
}

func parseDomain(text string, defines Defines) (*isl.BasicSet, error) {
	text, err := ExpandSingle(text, defines)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.TrimSpace(text), "[") {
		text = inferParameters(text)
	}
	set, err := isl.ReadSet(text)
	if err != nil {
		return nil, fmterr.Wrap(fmterr.ParseError, err, "invalid domain")
	}
	return affine.Convexify(set)
}

// ParseDomains parses a list of domains. Macros used by textual domains
// are expanded and must be single-valued. The parameter list of a textual
// domain can be omitted: the parameters are then the identifiers
// of the domain which are not inames.
//
// Every set dimension of every domain must be named and an iname can only
// be defined by a single domain.
func ParseDomains(inputs []DomainInput, defines Defines) ([]*isl.BasicSet, error) {
	var doms []*isl.BasicSet
	used := make(map[string]bool)
	for _, input := range inputs {
		dom := input.set
		if dom == nil {
			var err error
			if dom, err = parseDomain(input.text, defines); err != nil {
				return nil, fmterr.WithSrc(err, input.text)
			}
		}
		for _, iname := range dom.Space().Names(isl.SetDim) {
			if iname == "" {
				return nil, fmterr.WithSrc(fmterr.NameErrorf("domain %s has an unnamed dimension", dom), input.String())
			}
			if used[iname] {
				return nil, fmterr.WithSrc(fmterr.NameErrorf("iname %q is used in more than one domain", iname), input.String())
			}
			used[iname] = true
		}
		doms = append(doms, dom)
	}
	return doms, nil
}

// ParseAssumptions parses the constraints assumed on the parameters of a kernel.
// The text is either a set without set dimensions or a bare condition
// such as "n >= 1 and m >= n".
func ParseAssumptions(text string, defines Defines) (*isl.BasicSet, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "{") {
		text = "{ : " + trimmed + " }"
	}
	set, err := parseDomain(text, defines)
	if err != nil {
		return nil, fmterr.WithSrc(err, text)
	}
	if set.Space().Dim(isl.SetDim) > 0 {
		return nil, fmterr.WithSrc(fmterr.ParseErrorf("assumptions cannot have set dimensions"), text)
	}
	return set, nil
}
