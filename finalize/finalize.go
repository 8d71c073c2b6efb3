// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package finalize implements the post-process pass that turns a raw,
// duplicate-laden trace file into the canonical, symbolised form the
// reader consumes.
package finalize

import (
	"fmt"
	"os"
	"strings"

	"github.com/swimps-project/swimps/internal/sysio"
	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/trace"
)

// Finalise rewrites the raw trace file at path in place: it
// deduplicates stack frames and backtraces, symbolises instruction
// pointers against binaryPath, and replaces the original file with
// the canonical form. binaryPath is the target program's own path —
// this is a single-process profiler, so every sampled instruction
// pointer belongs to the one binary the controller spawned.
func Finalise(path, binaryPath string) error {
	raw, err := trace.ReadTraceFile(path)
	if err != nil {
		return fmt.Errorf("finalize: reading raw trace: %w", err)
	}

	samples, backtraces, frames := dedupe(raw)

	if err := symbolize(binaryPath, frames); err != nil {
		swimpslog.Warningf("finalize: symbolising %s: %v", binaryPath, err)
	}

	tmp, err := trace.CreateTemp("swimps_finalize")
	if err != nil {
		return fmt.Errorf("finalize: creating side file: %w", err)
	}
	tmpPath := tmp.Path()

	if err := writeCanonical(tmp, samples, backtraces, frames); err != nil {
		tmp.Close()
		return fmt.Errorf("finalize: writing canonical file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("finalize: closing side file: %w", err)
	}

	if err := sysio.Rename(tmpPath, path); err != nil {
		// rename(2) cannot cross filesystems and the side file lives
		// under /tmp, so fall back to copying it over the original.
		data, readErr := os.ReadFile(tmpPath)
		if readErr != nil {
			return fmt.Errorf("finalize: replacing %s: %w", path, err)
		}
		if writeErr := os.WriteFile(path, data, 0o600); writeErr != nil {
			return fmt.Errorf("finalize: replacing %s: %w", path, writeErr)
		}
		os.Remove(tmpPath)
	}

	logIntervalStats(samples)
	return nil
}

// dedupe implements the algorithm from spec.md §4.6: every raw
// backtrace's StackFrameIDs slot actually holds an instruction
// pointer (§4.4's "only the instruction pointer... is captured"), so
// this is the one place that mapping is resolved into real,
// deduplicated stack-frame and backtrace IDs. Samples keep their
// original order; backtraces and frames are emitted in first-seen
// (insertion) order.
func dedupe(raw *trace.Trace) ([]trace.Sample, []trace.Backtrace, []trace.StackFrame) {
	rawBacktraces := make(map[trace.BacktraceID]trace.Backtrace, len(raw.Backtraces))
	for _, b := range raw.Backtraces {
		rawBacktraces[b.ID] = b
	}

	ipToFrameID := make(map[uint64]trace.StackFrameID)
	var frames []trace.StackFrame
	var nextFrameID trace.StackFrameID

	backtraceKeyToID := make(map[string]trace.BacktraceID)
	var backtraces []trace.Backtrace
	var nextBacktraceID trace.BacktraceID

	samples := make([]trace.Sample, 0, len(raw.Samples))

	for _, s := range raw.Samples {
		rawBT, ok := rawBacktraces[s.BacktraceID]
		if !ok {
			swimpslog.Debugf("finalize: sample references unknown raw backtrace %d, dropping", s.BacktraceID)
			continue
		}

		frameIDs := make([]trace.StackFrameID, len(rawBT.StackFrameIDs))
		for i, slot := range rawBT.StackFrameIDs {
			ip := uint64(slot)
			id, ok := ipToFrameID[ip]
			if !ok {
				nextFrameID++
				id = nextFrameID
				ipToFrameID[ip] = id
				frames = append(frames, trace.StackFrame{ID: id, InstructionPointer: ip})
			}
			frameIDs[i] = id
		}

		key := backtraceKey(frameIDs)
		btID, ok := backtraceKeyToID[key]
		if !ok {
			nextBacktraceID++
			btID = nextBacktraceID
			backtraceKeyToID[key] = btID
			backtraces = append(backtraces, trace.Backtrace{ID: btID, StackFrameIDs: frameIDs})
		}

		samples = append(samples, trace.Sample{BacktraceID: btID, Timestamp: s.Timestamp})
	}

	return samples, backtraces, frames
}

func backtraceKey(ids []trace.StackFrameID) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%d,", id)
	}
	return b.String()
}

func writeCanonical(f *trace.File, samples []trace.Sample, backtraces []trace.Backtrace, frames []trace.StackFrame) error {
	for _, s := range samples {
		if _, err := f.AddSample(s); err != nil {
			return fmt.Errorf("writing sample: %w", err)
		}
	}
	for _, b := range backtraces {
		if _, err := f.AddBacktrace(b); err != nil {
			return fmt.Errorf("writing backtrace %d: %w", b.ID, err)
		}
	}
	for _, fr := range frames {
		if _, err := f.AddStackFrame(fr); err != nil {
			return fmt.Errorf("writing stack frame %d: %w", fr.ID, err)
		}
	}
	return nil
}
