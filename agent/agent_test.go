// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package agent

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/swimps-project/swimps/trace"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	// Leftover state from a test earlier in the file that didn't run
	// to completion would otherwise leak into this one, since the
	// capture buffer in sigcapture.go is a single process-wide slot.
	if samplePending() {
		_, _, _ = takeSample()
		releaseSample()
	}

	path := filepath.Join(t.TempDir(), "trace")
	f, err := trace.Create(path)
	if err != nil {
		t.Fatalf("trace.Create: %v", err)
	}
	t.Cleanup(func() { f.Close() })

	h, err := newHandler(f)
	if err != nil {
		t.Fatalf("newHandler: %v", err)
	}
	t.Cleanup(func() { unix.Close(h.wakeFD) })
	return h
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return info.Size()
}

func raiseSampleSignal(t *testing.T) {
	t.Helper()
	if err := unix.Kill(unix.Getpid(), unix.SIGUSR1); err != nil {
		t.Fatalf("raising SIGUSR1: %v", err)
	}
}

func TestOnTickIsNoopWithoutACapturedSample(t *testing.T) {
	h := newTestHandler(t)
	path := h.file.Path()

	before := fileSize(t, path)
	h.onTick()
	after := fileSize(t, path)

	if before != after {
		t.Fatalf("expected no bytes appended with nothing captured, file grew from %d to %d", before, after)
	}
}

func TestSignalHandlerCapturesNativeStackOnSIGUSR1(t *testing.T) {
	h := newTestHandler(t)
	path := h.file.Path()

	if err := installSignalHandler(h.wakeFD); err != nil {
		t.Fatalf("installSignalHandler: %v", err)
	}
	defer restoreDefaultSignalHandler()

	before := fileSize(t, path)
	raiseSampleSignal(t)

	buf := make([]byte, 8)
	if _, err := unix.Read(h.wakeFD, buf); err != nil {
		t.Fatalf("reading wake eventfd: %v", err)
	}

	h.onTick()

	after := fileSize(t, path)
	if after <= before {
		t.Fatalf("expected a captured sample to be appended, size stayed at %d", before)
	}
}

func TestSamplePendingDropsConcurrentCapture(t *testing.T) {
	h := newTestHandler(t)

	if err := installSignalHandler(h.wakeFD); err != nil {
		t.Fatalf("installSignalHandler: %v", err)
	}
	defer restoreDefaultSignalHandler()

	raiseSampleSignal(t)
	if !samplePending() {
		t.Fatalf("expected a sample to be pending after raising SIGUSR1")
	}

	// A second tick while the first hasn't been consumed must be
	// dropped by the handler itself, not queued.
	raiseSampleSignal(t)

	if _, _, ok := takeSample(); !ok {
		t.Fatalf("expected the first captured sample to still be available")
	}
	releaseSample()

	if samplePending() {
		t.Fatalf("expected the second, concurrent SIGUSR1 to have been dropped")
	}
}

func TestOnTickAssignsDistinctBacktraceIDsPerSample(t *testing.T) {
	h := newTestHandler(t)

	if err := installSignalHandler(h.wakeFD); err != nil {
		t.Fatalf("installSignalHandler: %v", err)
	}
	defer restoreDefaultSignalHandler()

	raiseSampleSignal(t)
	h.onTick()
	first := h.nextBacktraceID

	raiseSampleSignal(t)
	h.onTick()
	second := h.nextBacktraceID

	if first == second {
		t.Fatalf("expected distinct backtrace IDs across samples, got %d twice", first)
	}
}
