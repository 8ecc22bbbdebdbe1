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

package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"

	"github.com/gx-org/loopir/build/fmterr"
	"github.com/gx-org/loopir/build/kernel"
	"github.com/gx-org/loopir/build/kspec"
	"goa.design/clue/log"
)

// walker walks across a file system to build kernel descriptions.
type walker struct {
	ctx     context.Context
	out     io.Writer
	defines kernel.Defines
	flags   []string

	built int
	errs  fmterr.Errors
}

func newWalker(ctx context.Context, out io.Writer, defines kernel.Defines, flags []string) *walker {
	return &walker{ctx: ctx, out: out, defines: defines, flags: flags}
}

func isKernelFile(d fs.DirEntry) bool {
	if d.IsDir() {
		return false
	}
	ext := filepath.Ext(d.Name())
	return ext == ".yaml" || ext == ".yml"
}

// visit builds a kernel description file and prints the kernel.
// Build errors are recorded and do not stop the walk.
func (w *walker) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if !isKernelFile(d) {
		return nil
	}
	desc, err := kspec.Load(path)
	if err != nil {
		w.errs.Append(err)
		return nil
	}
	w.errs.Push(fmterr.PrefixWith("%s: ", path))
	defer w.errs.Pop()
	w.override(desc)
	ctx := log.With(w.ctx, log.KV{K: "file", V: path})
	k, err := desc.Build(ctx)
	if err != nil {
		w.errs.Append(err)
		return nil
	}
	w.built++
	argBytes, tempBytes := k.Footprint()
	log.Info(ctx,
		log.KV{K: "msg", V: "kernel built"},
		log.KV{K: "kernel", V: k.Name},
		log.KV{K: "argument-bytes", V: argBytes},
		log.KV{K: "temporary-bytes", V: tempBytes})
	fmt.Fprintf(w.out, "%s:\n%s\nFOOTPRINT: arguments: %d bytes, temporaries: %d bytes\n",
		path, strings.TrimRight(k.String(), "\n"), argBytes, tempBytes)
	return nil
}

// override replaces the macros and adds the flags given on the command line.
func (w *walker) override(desc *kspec.Kernel) {
	if len(w.defines) > 0 {
		if desc.Defines == nil {
			desc.Defines = make(kernel.Defines)
		}
		maps.Copy(desc.Defines, w.defines)
	}
	desc.Flags = append(desc.Flags, w.flags...)
}

// walk builds all the kernel descriptions found in root.
// root can be a file or a folder.
func (w *walker) walk(root string) error {
	if err := filepath.WalkDir(root, w.visit); err != nil {
		return err
	}
	if err := w.errs.ToError(); err != nil {
		return err
	}
	if w.built == 0 {
		return fmt.Errorf("no kernel description found in %s", root)
	}
	return nil
}
