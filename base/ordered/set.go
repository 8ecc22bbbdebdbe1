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

package ordered

import (
	"cmp"
	"iter"

	"github.com/google/btree"
)

const setDegree = 8

// Set is a set of keys iterated in ascending order.
type Set[K cmp.Ordered] struct {
	tree *btree.BTreeG[K]
}

// NewSet returns a new sorted set containing the given keys.
func NewSet[K cmp.Ordered](keys ...K) *Set[K] {
	s := &Set[K]{tree: btree.NewG[K](setDegree, cmp.Less[K])}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add a key to the set. Returns true if the key was not already present.
func (s *Set[K]) Add(k K) bool {
	_, found := s.tree.ReplaceOrInsert(k)
	return !found
}

// AddAll adds all the keys of a sequence to the set.
func (s *Set[K]) AddAll(keys iter.Seq[K]) {
	for k := range keys {
		s.tree.ReplaceOrInsert(k)
	}
}

// Remove a key from the set.
func (s *Set[K]) Remove(k K) {
	s.tree.Delete(k)
}

// Has returns true if the key is in the set.
func (s *Set[K]) Has(k K) bool {
	return s.tree.Has(k)
}

// Len returns the number of keys in the set.
func (s *Set[K]) Len() int {
	return s.tree.Len()
}

// All iterates over the keys in ascending order.
func (s *Set[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		s.tree.Ascend(func(k K) bool {
			return yield(k)
		})
	}
}

// Slice returns the keys in ascending order.
func (s *Set[K]) Slice() []K {
	r := make([]K, 0, s.tree.Len())
	for k := range s.All() {
		r = append(r, k)
	}
	return r
}

// Difference returns the keys of s that are not in other.
func (s *Set[K]) Difference(other *Set[K]) *Set[K] {
	r := NewSet[K]()
	for k := range s.All() {
		if !other.Has(k) {
			r.Add(k)
		}
	}
	return r
}

// Union returns a new set with the keys of both sets.
func (s *Set[K]) Union(other *Set[K]) *Set[K] {
	r := NewSet[K]()
	r.AddAll(s.All())
	r.AddAll(other.All())
	return r
}
