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

package ir

import (
	"strconv"
	"strings"

	"github.com/gx-org/loopir/build/fmterr"
)

type (
	// InameTag defines how the loop of an iname is executed.
	InameTag interface {
		tag()
		String() string
	}

	// ParallelTag is a tag mapping an iname to parallel hardware.
	ParallelTag interface {
		InameTag
		parallel()
	}

	// SequentialTag executes the loop of an iname sequentially.
	SequentialTag struct{}

	// ForceSequentialTag executes the loop of an iname sequentially.
	// Later transformations are not allowed to parallelize the loop.
	ForceSequentialTag struct{}

	// UnrollTag unrolls the loop of an iname.
	UnrollTag struct{}

	// ILPTag unrolls the loop of an iname for instruction level parallelism.
	ILPTag struct{}

	// GroupIndexTag maps an iname to an axis of the group index.
	GroupIndexTag struct {
		Axis int
	}

	// LocalIndexTag maps an iname to an axis of the local index within a group.
	LocalIndexTag struct {
		Axis int
	}
)

var (
	_ ParallelTag = GroupIndexTag{}
	_ ParallelTag = LocalIndexTag{}
)

func (SequentialTag) tag()      {}
func (ForceSequentialTag) tag() {}
func (UnrollTag) tag()          {}
func (ILPTag) tag()             {}
func (GroupIndexTag) tag()      {}
func (LocalIndexTag) tag()      {}

func (GroupIndexTag) parallel() {}
func (LocalIndexTag) parallel() {}

func (SequentialTag) String() string      { return "seq" }
func (ForceSequentialTag) String() string { return "forceseq" }
func (UnrollTag) String() string          { return "unr" }
func (ILPTag) String() string             { return "ilp" }
func (t GroupIndexTag) String() string    { return "g." + strconv.Itoa(t.Axis) }
func (t LocalIndexTag) String() string    { return "l." + strconv.Itoa(t.Axis) }

// IsParallel returns true if a tag maps an iname to parallel hardware.
func IsParallel(tag InameTag) bool {
	_, ok := tag.(ParallelTag)
	return ok
}

// ParseTag returns a tag given its string representation.
func ParseTag(s string) (InameTag, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "seq", "for":
		return SequentialTag{}, nil
	case "forceseq":
		return ForceSequentialTag{}, nil
	case "unr":
		return UnrollTag{}, nil
	case "ilp":
		return ILPTag{}, nil
	}
	prefix, axisS, found := strings.Cut(s, ".")
	if !found {
		return nil, fmterr.TagErrorf("unknown iname tag %q", s)
	}
	axis, err := strconv.Atoi(axisS)
	if err != nil || axis < 0 {
		return nil, fmterr.TagErrorf("invalid axis in iname tag %q", s)
	}
	switch prefix {
	case "g":
		return GroupIndexTag{Axis: axis}, nil
	case "l":
		return LocalIndexTag{Axis: axis}, nil
	}
	return nil, fmterr.TagErrorf("unknown iname tag %q", s)
}
