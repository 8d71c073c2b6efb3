// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "testing"

func TestParseArgsRequiresTargetProgram(t *testing.T) {
	if _, err := parseArgs(nil); err == nil {
		t.Fatalf("expected an error when no target program is given")
	}
}

func TestParseArgsAcceptsHelpWithoutTarget(t *testing.T) {
	opts, err := parseArgs([]string{"--help"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !opts.Help {
		t.Fatalf("expected Help to be true")
	}
}

func TestParseArgsCollectsTargetProgramArgs(t *testing.T) {
	opts, err := parseArgs([]string{"--samples-per-second", "4", "myprogram", "a", "b"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.TargetProgram != "myprogram" {
		t.Fatalf("TargetProgram = %q, want %q", opts.TargetProgram, "myprogram")
	}
	if len(opts.TargetProgramArgs) != 2 || opts.TargetProgramArgs[0] != "a" || opts.TargetProgramArgs[1] != "b" {
		t.Fatalf("TargetProgramArgs = %v, want [a b]", opts.TargetProgramArgs)
	}
	if opts.SamplesPerSecond != 4 {
		t.Fatalf("SamplesPerSecond = %v, want 4", opts.SamplesPerSecond)
	}
}

func TestParseArgsNoTUIOverridesDefault(t *testing.T) {
	opts, err := parseArgs([]string{"--no-tui", "myprogram"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.TUI {
		t.Fatalf("expected TUI to be false after --no-tui")
	}
}

func TestParseArgsRejectsUnknownLogLevel(t *testing.T) {
	if _, err := parseArgs([]string{"--log-level", "verbose", "myprogram"}); err == nil {
		t.Fatalf("expected an error for an unrecognised log level")
	}
}

func TestParseArgsDefaultsTraceFileName(t *testing.T) {
	opts, err := parseArgs([]string{"myprogram"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.TargetTraceFile == "" {
		t.Fatalf("expected a non-empty default trace file name")
	}
}
