// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command swimps is the parent controller: it spawns a target program
// under the sampling agent, waits for it to finish, finalises the
// resulting trace, and reports where the trace file ended up.
package main

import (
	"errors"
	"os"

	"github.com/swimps-project/swimps/finalize"
	"github.com/swimps-project/swimps/internal/swimpserr"
	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/options"
	"github.com/swimps-project/swimps/profile"
	"github.com/swimps-project/swimps/trace"
)

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		swimpslog.Errorf("%v", err)
		os.Exit(exitCodeFor(err))
	}
	if opts.Help {
		printUsage(os.Stdout)
		return
	}

	swimpslog.SetLevel(opts.LogLevel)

	if opts.Load {
		t, err := trace.ReadTraceFile(opts.TargetTraceFile)
		if err != nil {
			swimpslog.Errorf("loading trace file: %v", err)
			os.Exit(1)
		}
		swimpslog.Infof("loaded %d samples, %d backtraces, %d stack frames from %s",
			len(t.Samples), len(t.Backtraces), len(t.StackFrames), opts.TargetTraceFile)
		return
	}

	result, err := profile.Spawn(opts)
	if err != nil {
		swimpslog.Errorf("running target program: %v", err)
		os.Exit(exitCodeFor(err))
	}
	if result.Signaled {
		swimpslog.Infof("target program was killed by signal %v; finalising the trace anyway", result.Signal)
	}

	if err := finalize.Finalise(opts.TargetTraceFile, opts.TargetProgram); err != nil {
		swimpslog.Errorf("finalising trace: %v", err)
		os.Exit(1)
	}

	swimpslog.Infof("trace written to %s", opts.TargetTraceFile)
	os.Exit(result.ExitCode)
}

func exitCodeFor(err error) int {
	var code swimpserr.Code
	if errors.As(err, &code) {
		return int(code) + 1
	}
	return 1
}
