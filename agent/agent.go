// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package agent is the in-process sampling agent: it owns the timer
// and the signal-delivery handler once installed inside the profiled
// target, and is loaded by cmd/swimps-preload's cgo
// constructor/destructor pair.
package agent

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/internal/swimpstime"
	"github.com/swimps-project/swimps/options"
	"github.com/swimps-project/swimps/trace"
)

// active is the single process-wide agent instance, mirroring the
// global singletons (flag, timer, file) the original keeps at file
// scope; Start/Stop are its init/teardown pair.
var active *Handler

// Start is the constructor entry point: open the trace file, install
// the native signal handler, create and arm the timer. Every step
// after the handler installs must assume a tick can arrive at any
// point, since the handler runs independently of anything this
// goroutine does from here on.
func Start(opts options.Options) error {
	if opts.TargetTraceFile == "" {
		return fmt.Errorf("agent: no target trace file in options")
	}

	file, err := trace.Create(opts.TargetTraceFile)
	if err != nil {
		return fmt.Errorf("agent: creating trace file: %w", err)
	}

	h, err := newHandler(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("agent: %w", err)
	}

	if err := installSignalHandler(h.wakeFD); err != nil {
		unix.Close(h.wakeFD)
		file.Close()
		return fmt.Errorf("agent: installing signal handler: %w", err)
	}

	go h.run()

	timer, err := swimpstime.NewTimer(unix.CLOCK_MONOTONIC, int32(sampleSignal))
	if err != nil {
		stopHandler(h)
		return fmt.Errorf("agent: creating timer: %w", err)
	}
	h.timer = timer

	if err := timer.Arm(opts.SamplesPerSecond); err != nil {
		stopHandler(h)
		return fmt.Errorf("agent: arming timer: %w", err)
	}

	active = h
	return nil
}

// Stop is the destructor entry point: disarm the timer, restore the
// default SIGUSR1 disposition, wait for any in-flight sample to
// finish, then close the file. This ordering is what guarantees the
// last sample's bytes are flushed before the descriptor closes — the
// happens-before edge spec.md §5 calls for.
func Stop() {
	h := active
	if h == nil {
		return
	}
	active = nil
	stopHandler(h)
}

// stopHandler tears a handler down. It is shared between Stop and
// Start's own failure paths, since a timer can already be armed by
// the time a later setup step fails.
func stopHandler(h *Handler) {
	if h.timer != nil {
		if err := h.timer.Disarm(); err != nil {
			swimpslog.Errorf("agent: disarming timer: %v", err)
		}
	}

	if err := restoreDefaultSignalHandler(); err != nil {
		swimpslog.Errorf("agent: restoring default signal handler: %v", err)
	}

	for samplePending() {
		runtime.Gosched()
	}

	h.stopping.Store(true)
	if err := h.wake(); err != nil {
		swimpslog.Errorf("agent: waking handler goroutine: %v", err)
	}

	if err := h.file.Close(); err != nil {
		swimpslog.Errorf("agent: closing trace file: %v", err)
	}
	unix.Close(h.wakeFD)
}
