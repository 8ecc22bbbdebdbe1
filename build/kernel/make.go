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

// Package kernel creates kernels from their textual description.
//
// MakeKernel parses the domains and the instructions of a kernel,
// infers its arguments and the shapes of its variables, and returns
// the kernel once it has been checked.
package kernel

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gx-org/loopir/build/affine"
	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/ir"
	"github.com/gx-org/loopir/build/isl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// DefaultName is the name of a kernel built without a name.
const DefaultName = "loopir_kernel"

const tracerName = "github.com/gx-org/loopir/build/kernel"

type (
	config struct {
		name             string
		defines          Defines
		order            ir.Order
		offset           ir.Offset
		assumptions      *isl.BasicSet
		silencedWarnings []string
		flags            []string
		tags             map[string]ir.InameTag
	}

	// Option configures the creation of a kernel.
	Option func(*config)
)

// WithName sets the name of the kernel.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithDefines sets the macros expanded in the instructions, the domains
// and the shapes of the kernel.
func WithDefines(defines Defines) Option {
	return func(c *config) { c.defines = defines }
}

// WithDefaultOrder sets the memory order of the array arguments.
// Defaults to ir.OrderC.
func WithDefaultOrder(order ir.Order) Option {
	return func(c *config) { c.order = order }
}

// WithDefaultOffset sets the offset of the inferred array arguments.
// Defaults to 0.
func WithDefaultOffset(offset ir.Offset) Option {
	return func(c *config) { c.offset = offset }
}

// WithAssumptions sets the constraints known to hold on the parameters.
func WithAssumptions(assumptions *isl.BasicSet) Option {
	return func(c *config) { c.assumptions = assumptions }
}

// WithSilencedWarnings sets the warnings to silence.
// Every entry can itself be a semicolon-separated list.
func WithSilencedWarnings(warnings ...string) Option {
	return func(c *config) {
		for _, w := range warnings {
			for _, name := range strings.Split(w, ";") {
				if name = strings.TrimSpace(name); name != "" {
					c.silencedWarnings = append(c.silencedWarnings, name)
				}
			}
		}
	}
}

// WithFlags sets flags carried by the kernel to the next compilation stages.
func WithFlags(flags ...string) Option {
	return func(c *config) { c.flags = append(c.flags, flags...) }
}

// WithInameTags tags inames.
func WithInameTags(tags map[string]ir.InameTag) Option {
	return func(c *config) { c.tags = tags }
}

// builder holds the state shared by the passes of a kernel build.
type builder struct {
	config
	buildID string
	cache   *affine.Cache
	tracer  trace.Tracer
}

type pass struct {
	name string
	run  func(context.Context, *ir.Kernel) (*ir.Kernel, error)
}

func (b *builder) passes() []pass {
	return []pass{
		{"tag_reduction_inames", b.tagReductionInames},
		{"create_temporaries", b.createTemporaries},
		{"determine_temporary_shapes", b.determineTempShapes},
		{"expand_cses", b.expandCSEs},
		{"expand_defines_in_shapes", b.expandDefinesInShapes},
		{"guess_arg_shapes", b.guessArgShapes},
		{"apply_default_order", b.applyDefaultOrder},
		{"resolve_wildcard_deps", b.resolveWildcardDeps},
	}
}

func recordError(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

func (b *builder) runPass(ctx context.Context, p pass, k *ir.Kernel) (*ir.Kernel, error) {
	ctx, span := b.tracer.Start(ctx, "kernel."+p.name)
	defer span.End()
	log.Debug(ctx, log.KV{K: "msg", V: "running pass"}, log.KV{K: "pass", V: p.name})
	k, err := p.run(ctx, k)
	if err != nil {
		return nil, recordError(span, err, p.name+" failed")
	}
	return k, nil
}

func splitStatements(texts []string, defines Defines) ([]*ir.Instruction, map[string]*ir.SubstitutionRule, error) {
	var insns []*ir.Instruction
	substs := make(map[string]*ir.SubstitutionRule)
	var errs fmterr.Errors
	for _, text := range texts {
		stmts, err := ParseStatements(text, defines)
		if err != nil {
			errs.Append(err)
			continue
		}
		for _, stmt := range stmts {
			switch stmtT := stmt.(type) {
			case *ir.Instruction:
				insns = append(insns, stmtT)
			case *ir.SubstitutionRule:
				if _, ok := substs[stmtT.Name]; ok {
					errs.Append(fmterr.NameErrorf("substitution rule %q defined more than once", stmtT.Name))
					continue
				}
				substs[stmtT.Name] = stmtT
			}
		}
	}
	return insns, substs, errs.ToError()
}

func checkTags(k *ir.Kernel) error {
	inames := k.AllInames()
	for _, iname := range sortedKeys(k.InameToTag) {
		if !inames.Has(iname) {
			return fmterr.NameErrorf("cannot tag %q: not an iname", iname)
		}
	}
	return nil
}

// MakeKernel creates a kernel given its domains, its instructions and its data.
//
// Every instruction text can contain several statements, one per line.
// Data are the arguments and the temporaries of the kernel. If data contains
// ir.InferRest, the arguments not declared are inferred from the way the
// instructions use them. A nil data infers all the arguments.
func MakeKernel(ctx context.Context, domains []DomainInput, instructions []string, data []ir.Datum, opts ...Option) (*ir.Kernel, error) {
	b := &builder{
		config:  config{name: DefaultName},
		buildID: uuid.NewString(),
		cache:   affine.NewCache(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&b.config)
	}
	if data == nil {
		data = []ir.Datum{ir.InferRest}
	}
	ctx = log.With(ctx, log.KV{K: "kernel", V: b.name}, log.KV{K: "build", V: b.buildID})
	ctx, span := b.tracer.Start(ctx, "kernel.make", trace.WithAttributes(
		attribute.String("kernel.name", b.name),
		attribute.String("kernel.build_id", b.buildID),
	))
	defer span.End()

	k, err := b.assemble(ctx, domains, instructions, data)
	if err != nil {
		return nil, recordError(span, err, "assembling kernel failed")
	}
	for _, p := range b.passes() {
		if k, err = b.runPass(ctx, p, k); err != nil {
			return nil, err
		}
	}
	for _, check := range []func(*ir.Kernel) error{
		checkBoundWriters,
		checkBoundKinds,
		checkDuplicateNames,
		checkWrittenNames,
	} {
		if err := check(k); err != nil {
			return nil, recordError(span, err, "kernel check failed")
		}
	}
	hits, misses := b.cache.Stats()
	argBytes, tempBytes := k.Footprint()
	span.SetAttributes(
		attribute.Int("kernel.argument_bytes", argBytes),
		attribute.Int("kernel.temporary_bytes", tempBytes),
	)
	log.Debug(ctx,
		log.KV{K: "msg", V: "kernel created"},
		log.KV{K: "instructions", V: k.Instructions.Len()},
		log.KV{K: "argument-bytes", V: argBytes},
		log.KV{K: "temporary-bytes", V: tempBytes},
		log.KV{K: "cache-hits", V: hits},
		log.KV{K: "cache-misses", V: misses})
	return k, nil
}

// assemble parses the domains and the instructions of a kernel
// and returns the kernel before any pass is applied.
func (b *builder) assemble(ctx context.Context, domainInputs []DomainInput, instructions []string, data []ir.Datum) (*ir.Kernel, error) {
	kd, err := separateData(data, b.defines)
	if err != nil {
		return nil, err
	}
	insns, substs, err := splitStatements(instructions, b.defines)
	if err != nil {
		return nil, err
	}
	domains, err := ParseDomains(domainInputs, b.defines)
	if err != nil {
		return nil, err
	}
	args, err := guessArgs(domains, insns, substs, kd, b.offset)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx,
		log.KV{K: "msg", V: "kernel parsed"},
		log.KV{K: "domains", V: len(domains)},
		log.KV{K: "statements", V: len(insns) + len(substs)},
		log.KV{K: "args", V: len(args)})
	k, err := ir.New(b.name, domains, insns, args)
	if err != nil {
		return nil, err
	}
	tags := make(map[string]ir.InameTag)
	if b.tags != nil {
		tags = maps.Clone(b.tags)
	}
	k = k.WithTemporaries(kd.temps).
		WithSubstitutions(substs).
		WithInameToTag(tags).
		WithAssumptions(b.assumptions).
		WithOptions(ir.Options{
			Flags:            slices.Clone(b.flags),
			SilencedWarnings: slices.Clone(b.silencedWarnings),
		})
	if err := checkTags(k); err != nil {
		return nil, err
	}
	if err := checkForcedInameDeps(k); err != nil {
		return nil, err
	}
	return k, nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
