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

// Package kspec reads kernel descriptions from YAML files.
//
// A kernel description gives the arguments of kernel.MakeKernel:
//
//	name: matmul
//	domains:
//	  - "{[i,j]: 0<=i<n and 0<=j<n}"
//	  - "{[k]: 0<=k<m}"
//	instructions: |
//	  c[i, j] = sum(k, a[i, k]*b[k, j])
//	args:
//	  - {name: a, kind: global, dtype: float32, shape: "(n, m)"}
//	  - ...
//	tags:
//	  i: g.0
package kspec

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/ir/irkind"
	"github.com/gx-org/loopir/build/kernel"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// InferRestMarker is the argument entry requesting the inference
// of the arguments not declared.
const InferRestMarker = "..."

type (
	// Kernel is the description of a kernel.
	Kernel struct {
		Name             string            `yaml:"name"`
		Domains          Strings           `yaml:"domains"`
		Instructions     Strings           `yaml:"instructions"`
		Args             []Arg             `yaml:"args"`
		Defines          kernel.Defines    `yaml:"defines"`
		DefaultOrder     string            `yaml:"default_order"`
		DefaultOffset    string            `yaml:"default_offset"`
		Assumptions      string            `yaml:"assumptions"`
		SilencedWarnings Strings           `yaml:"silenced_warnings"`
		Flags            Strings           `yaml:"flags"`
		Tags             map[string]string `yaml:"tags"`
	}

	// Strings is a list of strings. In YAML, a single scalar is a list of one string.
	Strings []string

	// Arg is an entry of the data of a kernel. In YAML, an entry is either
	// the InferRestMarker, a comma-separated list of names
	// or a mapping with the fields below.
	Arg struct {
		// Name of the entry. Can be a comma-separated list of names.
		Name string `yaml:"name"`
		// Kind is one of value, global, constant, local or temp.
		// An entry without a kind is classified like an inferred argument.
		Kind    string `yaml:"kind"`
		DType   string `yaml:"dtype"`
		Shape   string `yaml:"shape"`
		Strides string `yaml:"strides"`
		Order   string `yaml:"order"`
		Offset  string `yaml:"offset"`
		// BaseIndices and Scope are only used by temporaries.
		BaseIndices string `yaml:"base_indices"`
		Scope       string `yaml:"scope"`

		inferRest bool
	}
)

// UnmarshalYAML decodes a scalar into a list of one string.
func (s *Strings) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Strings{node.Value}
		return nil
	case yaml.SequenceNode:
		var vals []string
		if err := node.Decode(&vals); err != nil {
			return err
		}
		*s = vals
		return nil
	}
	return fmterr.ParseErrorf("line %d: expected a string or a list of strings", node.Line)
}

var argFields = map[string]bool{
	"name":         true,
	"kind":         true,
	"dtype":        true,
	"shape":        true,
	"strides":      true,
	"order":        true,
	"offset":       true,
	"base_indices": true,
	"scope":        true,
}

// UnmarshalYAML decodes an argument entry.
func (a *Arg) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if strings.TrimSpace(node.Value) == InferRestMarker {
			*a = Arg{inferRest: true}
			return nil
		}
		*a = Arg{Name: node.Value}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmterr.ParseErrorf("line %d: an argument must be a name or a mapping", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		if !argFields[key.Value] {
			return fmterr.ParseErrorf("line %d: unknown argument field %q", key.Line, key.Value)
		}
	}
	type plain Arg
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmterr.ParseErrorf("line %d: argument without a name", node.Line)
	}
	*a = Arg(p)
	return nil
}

// IsInferRest returns true if the entry is the InferRestMarker.
func (a *Arg) IsInferRest() bool {
	return a.inferRest
}

// Load reads a kernel description from a file.
func Load(path string) (*Kernel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read kernel description")
	}
	k, err := Parse(data)
	if err != nil {
		return nil, fmterr.PrefixWith("%s: ", path)(err)
	}
	return k, nil
}

// Parse a kernel description. Unknown fields are errors.
func Parse(data []byte) (*Kernel, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	k := &Kernel{}
	if err := dec.Decode(k); err != nil {
		if _, ok := fmterr.KindOf(err); ok {
			return nil, err
		}
		return nil, fmterr.Wrap(fmterr.ParseError, err, "invalid kernel description")
	}
	if len(k.Domains) == 0 {
		return nil, fmterr.ParseErrorf("kernel description without a domain")
	}
	if len(k.Instructions) == 0 {
		return nil, fmterr.ParseErrorf("kernel description without an instruction")
	}
	return k, nil
}

func (k *Kernel) defaultOrder() (ir.Order, error) {
	return ir.ParseOrder(k.DefaultOrder)
}

// Options returns the options of kernel.MakeKernel set by the description.
func (k *Kernel) Options() ([]kernel.Option, error) {
	var opts []kernel.Option
	if k.Name != "" {
		opts = append(opts, kernel.WithName(k.Name))
	}
	if len(k.Defines) > 0 {
		opts = append(opts, kernel.WithDefines(k.Defines))
	}
	order, err := k.defaultOrder()
	if err != nil {
		return nil, err
	}
	opts = append(opts, kernel.WithDefaultOrder(order))
	offset, err := ir.ParseOffset(k.DefaultOffset)
	if err != nil {
		return nil, err
	}
	opts = append(opts, kernel.WithDefaultOffset(offset))
	if k.Assumptions != "" {
		assumptions, err := kernel.ParseAssumptions(k.Assumptions, k.Defines)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kernel.WithAssumptions(assumptions))
	}
	if len(k.SilencedWarnings) > 0 {
		opts = append(opts, kernel.WithSilencedWarnings(k.SilencedWarnings...))
	}
	if len(k.Flags) > 0 {
		opts = append(opts, kernel.WithFlags(k.Flags...))
	}
	if len(k.Tags) > 0 {
		tags := make(map[string]ir.InameTag, len(k.Tags))
		for iname, s := range k.Tags {
			tag, err := ir.ParseTag(s)
			if err != nil {
				return nil, fmterr.PrefixWith("iname %s: ", iname)(err)
			}
			tags[iname] = tag
		}
		opts = append(opts, kernel.WithInameTags(tags))
	}
	return opts, nil
}

// Data returns the kernel data described by the argument entries.
// A description without arguments returns nil, that is all the arguments are inferred.
// All the invalid entries are reported.
func (k *Kernel) Data() ([]ir.Datum, error) {
	if len(k.Args) == 0 {
		return nil, nil
	}
	order, err := k.defaultOrder()
	if err != nil {
		return nil, err
	}
	var errs fmterr.Errors
	data := make([]ir.Datum, 0, len(k.Args))
	for i, arg := range k.Args {
		errs.Push(fmterr.PrefixWith("argument %d: ", i))
		datum, err := arg.datum(order)
		errs.Append(err)
		errs.Pop()
		if err == nil {
			data = append(data, datum)
		}
	}
	if !errs.Empty() {
		return nil, errs.ToError()
	}
	return data, nil
}

func (a *Arg) kind() (irkind.Kind, error) {
	if a.DType == "" {
		return irkind.Auto, nil
	}
	kind, err := irkind.KindFromString(a.DType)
	if err != nil {
		return irkind.Invalid, fmterr.Wrap(fmterr.ParseError, err, "invalid dtype of %s", a.Name)
	}
	return kind, nil
}

func parseShape(src string) (ir.Shape, error) {
	if src == "" {
		return ir.AutoShape, nil
	}
	return ir.ParseShape(src)
}

func (a *Arg) datum(defaultOrder ir.Order) (ir.Datum, error) {
	if a.inferRest {
		return ir.InferRest, nil
	}
	switch a.Kind {
	case "":
		return ir.ArgName(a.Name), nil
	case "value":
		kind, err := a.kind()
		if err != nil {
			return nil, err
		}
		return &ir.ValueArg{Name: a.Name, Kind: kind}, nil
	case "global", "constant", "local":
		return a.arrayArg(defaultOrder)
	case "temp":
		return a.temporary()
	}
	return nil, fmterr.ParseErrorf("unknown kind %q for %s: must be value, global, constant, local or temp", a.Kind, a.Name)
}

func (a *Arg) arrayArg(defaultOrder ir.Order) (*ir.ArrayArg, error) {
	kind, err := a.kind()
	if err != nil {
		return nil, err
	}
	offset, err := ir.ParseOffset(a.Offset)
	if err != nil {
		return nil, err
	}
	order := defaultOrder
	if a.Order != "" {
		if order, err = ir.ParseOrder(a.Order); err != nil {
			return nil, err
		}
	}
	shape, err := parseShape(a.Shape)
	if err != nil {
		return nil, err
	}
	strides, err := parseShape(a.Strides)
	if err != nil {
		return nil, err
	}
	if strides.IsAuto() && !shape.IsAuto() {
		strides = ir.MakeStrides(shape, order)
	}
	arg := ir.NewGlobalArg(a.Name, offset).WithShape(shape).WithStrides(strides).WithOrder(order)
	arg.Kind = kind
	switch a.Kind {
	case "constant":
		arg.AddressSpace = ir.Constant
	case "local":
		arg.AddressSpace = ir.Local
	}
	return arg, nil
}

func (a *Arg) temporary() (*ir.TemporaryVariable, error) {
	kind, err := a.kind()
	if err != nil {
		return nil, err
	}
	shape, err := parseShape(a.Shape)
	if err != nil {
		return nil, err
	}
	base, err := parseShape(a.BaseIndices)
	if err != nil {
		return nil, err
	}
	scope, err := ir.ParseScope(a.Scope)
	if err != nil {
		return nil, err
	}
	tv := ir.NewTemporary(a.Name, kind).WithShape(shape, base)
	tv.Scope = scope
	return tv, nil
}

func (k *Kernel) domains() []kernel.DomainInput {
	doms := make([]kernel.DomainInput, len(k.Domains))
	for i, dom := range k.Domains {
		doms[i] = kernel.DomainText(dom)
	}
	return doms
}

// Build creates the kernel described.
func (k *Kernel) Build(ctx context.Context) (*ir.Kernel, error) {
	opts, err := k.Options()
	if err != nil {
		return nil, err
	}
	data, err := k.Data()
	if err != nil {
		return nil, err
	}
	return kernel.MakeKernel(ctx, k.domains(), k.Instructions, data, opts...)
}
