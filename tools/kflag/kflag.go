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

// Package kflag provides flag types for kernel tools.
package kflag

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/gx-org/loopir/build/kernel"
)

type stringList struct {
	list *[]string
}

func (sl *stringList) String() string {
	if sl.list == nil {
		return ""
	}
	return strings.Join(*sl.list, ",")
}

func (sl *stringList) Set(values string) error {
	for _, value := range strings.Split(values, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		*sl.list = append(*sl.list, value)
	}
	return nil
}

// StringList returns a flag to pass a list of string from the command line.
func StringList(fs *flag.FlagSet, name, doc string) *[]string {
	var list []string
	fs.Var(&stringList{&list}, name, doc)
	return &list
}

type defines struct {
	defs kernel.Defines
}

func (d *defines) String() string {
	if d.defs == nil {
		return ""
	}
	var s []string
	for name, val := range d.defs {
		s = append(s, name+"="+val.String())
	}
	sort.Strings(s)
	return strings.Join(s, " ")
}

// Set parses name=value. A value with commas is a list macro.
func (d *defines) Set(s string) error {
	name, value, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return fmt.Errorf("invalid macro definition %q: want name=value", s)
	}
	if !strings.Contains(value, ",") {
		d.defs[name] = kernel.Single(strings.TrimSpace(value))
		return nil
	}
	var vals []string
	for _, v := range strings.Split(value, ",") {
		vals = append(vals, strings.TrimSpace(v))
	}
	d.defs[name] = kernel.List(vals...)
	return nil
}

// Defines returns a flag to define macros from the command line.
// The flag can be repeated.
func Defines(fs *flag.FlagSet, name, doc string) kernel.Defines {
	d := &defines{defs: make(kernel.Defines)}
	fs.Var(d, name, doc)
	return d.defs
}
