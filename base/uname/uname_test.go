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

package uname_test

import (
	"testing"

	"github.com/gx-org/loopir/base/uname"
)

func TestName(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{
			name: "a",
			want: "a",
		},
		{
			name: "a",
			want: "a_0",
		},
		{
			name: "a",
			want: "a_1",
		},
		{
			name: "b",
			want: "b_0",
		},
		{
			name: "b",
			want: "b_2",
		},
		{
			name: "c",
			want: "c",
		},
	}
	unames := uname.New("b", "b_1")
	for i, test := range tests {
		got := unames.Name(test.name)
		if got != test.want {
			t.Errorf("test %d: for name %s, got %s but want %s", i, test.name, got, test.want)
		}
	}
}

func TestRegister(t *testing.T) {
	unames := uname.New()
	unames.Register("insn")
	if !unames.IsUsed("insn") {
		t.Errorf("registered name is not marked as used")
	}
	if got, want := unames.Name("insn"), "insn_0"; got != want {
		t.Errorf("got %s but want %s", got, want)
	}
	if !unames.IsUsed("insn_0") {
		t.Errorf("generated name is not marked as used")
	}
}
