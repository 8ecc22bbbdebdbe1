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

package irkind_test

import (
	"testing"

	"github.com/gx-org/loopir/build/ir/irkind"
)

func TestKindFromString(t *testing.T) {
	tests := []struct {
		src  string
		want irkind.Kind
		size int
	}{
		{src: "", want: irkind.Auto},
		{src: "float32", want: irkind.Float32, size: 4},
		{src: "float", want: irkind.Float64, size: 8},
		{src: "int32", want: irkind.Int32, size: 4},
		{src: "int", want: irkind.Int64, size: 8},
	}
	for _, test := range tests {
		got, err := irkind.KindFromString(test.src)
		if err != nil {
			t.Fatalf("%q: %v", test.src, err)
		}
		if got != test.want {
			t.Errorf("%q: got kind %s but want %s", test.src, got, test.want)
		}
		if got.Size() != test.size {
			t.Errorf("%q: got size %d but want %d", test.src, got.Size(), test.size)
		}
	}
	if _, err := irkind.KindFromString("complex"); err == nil {
		t.Errorf("expected an error for an unknown type")
	}
}
