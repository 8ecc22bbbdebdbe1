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

package fmterr_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gx-org/loopir/build/fmterr"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want fmterr.Kind
	}{
		{
			err:  fmterr.ParseErrorf("unrecognized option %q", "foo"),
			want: fmterr.ParseError,
		},
		{
			err:  fmt.Errorf("while building: %w", fmterr.NameErrorf("duplicate iname %q", "i")),
			want: fmterr.NameError,
		},
		{
			err:  fmterr.WithSrc(fmterr.BoundErrorf("no static maximum"), "a[i] = b[i]"),
			want: fmterr.BoundError,
		},
		{
			err:  fmterr.Wrap(fmterr.ConvexityError, fmt.Errorf("two pieces"), "domain %q", "{[i]: i < 0 or i > 5}"),
			want: fmterr.ConvexityError,
		},
	}
	for i, test := range tests {
		got, ok := fmterr.KindOf(test.err)
		if !ok {
			t.Errorf("test %d: no kind found in error %v", i, test.err)
			continue
		}
		if got != test.want {
			t.Errorf("test %d: got kind %s but want %s", i, got, test.want)
		}
		if !fmterr.Is(test.err, test.want) {
			t.Errorf("test %d: Is(%v, %s) returned false", i, test.err, test.want)
		}
	}
}

func TestWithSrc(t *testing.T) {
	err := fmterr.WithSrc(fmterr.ParseErrorf("empty option"), "a = b {id=x,}")
	got := err.Error()
	for _, want := range []string{"parse error", "empty option", "a = b {id=x,}"} {
		if !strings.Contains(got, want) {
			t.Errorf("error %q does not contain %q", got, want)
		}
	}
	if untyped := fmterr.WithSrc(fmt.Errorf("plain"), "src"); untyped.Error() != "plain" {
		t.Errorf("untyped error modified: %q", untyped.Error())
	}
}

func TestErrors(t *testing.T) {
	var errs fmterr.Errors
	if !errs.Empty() || errs.ToError() != nil {
		t.Fatalf("zero value is not empty")
	}
	errs.Append(fmterr.NameErrorf("first"))
	errs.Push(fmterr.PrefixWith("line %d: ", 3))
	errs.Append(fmterr.ParseErrorf("second"))
	errs.Pop()
	err := errs.ToError()
	all := fmterr.All(err)
	if len(all) != 2 {
		t.Fatalf("got %d errors but want 2: %v", len(all), err)
	}
	if !strings.HasPrefix(all[1].Error(), "line 3: ") {
		t.Errorf("error %q has not been prefixed", all[1].Error())
	}
	if !fmterr.Is(err, fmterr.ParseError) || !fmterr.Is(err, fmterr.NameError) {
		t.Errorf("combined error does not report both kinds: %v", err)
	}
	if fmterr.Is(err, fmterr.BoundError) {
		t.Errorf("combined error reports a kind it does not contain")
	}
}

func TestFormatVerbose(t *testing.T) {
	err := fmterr.ParseErrorf("bad")
	got := fmt.Sprintf("%+v", err)
	if !strings.Contains(got, "Error generated at:") {
		t.Errorf("verbose format does not include a stack trace:\n%s", got)
	}
	if got := fmt.Sprintf("%v", err); got != "parse error: bad" {
		t.Errorf("got %q but want %q", got, "parse error: bad")
	}
}
