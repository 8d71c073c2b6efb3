// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package options carries the configuration shared between the
// controller and the in-process agent across the exec boundary.
package options

import "github.com/swimps-project/swimps/internal/swimpslog"

// Options mirrors the user-facing configuration surface from the
// command line plus everything the agent constructor needs to learn
// once it is re-exec'd into the target process.
type Options struct {
	Help bool
	TUI  bool
	Load bool

	// Ptrace records whether the controller called PTRACE_TRACEME on
	// the child. The agent has no other way to learn this, so it
	// rides along in the serialised form between Load and LogLevel.
	Ptrace bool

	LogLevel         swimpslog.Level
	SamplesPerSecond float64

	TargetTraceFile   string
	TargetProgram     string
	TargetProgramArgs []string
}

// Default returns the options a bare invocation with no flags would
// produce: no help, TUI on, no load-from-disk, ptrace on, info
// logging, one sample a second, and no target selected yet.
func Default() Options {
	return Options{
		Help:             false,
		TUI:              true,
		Load:             false,
		Ptrace:           true,
		LogLevel:         swimpslog.Info,
		SamplesPerSecond: 1.0,
	}
}
