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

// Command kernelc builds kernels from their YAML descriptions
// and prints the resulting kernels.
//
// Usage:
//
//	kernelc -kernel matmul.yaml -D n=16 -debug
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gx-org/loopir/tools/kflag"
	"goa.design/clue/log"
)

var (
	kernelF = flag.String("kernel", "", "kernel description file or folder of kernel descriptions")
	formatF = flag.String("format", "auto", "log format: auto, terminal or json")
	debugF  = flag.Bool("debug", false, "print the debug logs of the kernel passes")
	flagsF  = kflag.StringList(flag.CommandLine, "flags", "comma-separated flags added to all the kernels")
	defines = kflag.Defines(flag.CommandLine, "D", "macro definition name=value (a comma-separated value defines a list); can be repeated")
)

func logContext(format string, debug bool) (context.Context, error) {
	var logFormat log.FormatFunc
	switch format {
	case "auto":
		logFormat = log.FormatJSON
		if log.IsTerminal() {
			logFormat = log.FormatTerminal
		}
	case "terminal":
		logFormat = log.FormatTerminal
	case "json":
		logFormat = log.FormatJSON
	default:
		return nil, fmt.Errorf("invalid log format %q: must be auto, terminal or json", format)
	}
	ctx := log.Context(context.Background(), log.WithFormat(logFormat))
	if debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}
	return ctx, nil
}

func main() {
	flag.Parse()
	ctx, err := logContext(*formatF, *debugF)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *kernelF == "" {
		log.Fatal(ctx, fmt.Errorf("no kernel specified: please use -kernel to specify a kernel description"))
	}
	if err := newWalker(ctx, os.Stdout, defines, *flagsF).walk(*kernelF); err != nil {
		log.Fatal(ctx, err)
	}
}
