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

// Package uname provides unique names.
package uname

import "fmt"

// Unique generates names that are unique within a set of registered names.
type Unique struct {
	used map[string]bool
	next map[string]int
}

// New name generator. Names in used are never returned.
func New(used ...string) *Unique {
	n := &Unique{
		used: make(map[string]bool),
		next: make(map[string]int),
	}
	for _, name := range used {
		n.Register(name)
	}
	return n
}

// Register marks a name as used.
func (n *Unique) Register(name string) {
	n.used[name] = true
}

// IsUsed returns true if the name has been registered or generated.
func (n *Unique) IsUsed(name string) bool {
	return n.used[name]
}

// Name returns a unique name given a desired base name.
// If the base name is available, it is returned directly.
// Else, a suffix _0, _1, ... is appended until the name is unique.
func (n *Unique) Name(root string) string {
	if !n.used[root] {
		n.used[root] = true
		return root
	}
	for {
		index := n.next[root]
		n.next[root] = index + 1
		name := fmt.Sprintf("%s_%d", root, index)
		if n.used[name] {
			continue
		}
		n.used[name] = true
		return name
	}
}
