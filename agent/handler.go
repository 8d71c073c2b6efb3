// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package agent

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/internal/swimpstime"
	"github.com/swimps-project/swimps/trace"
)

// sampleSignal is the signal the interval timer delivers sample ticks
// on. SIGUSR1 is chosen over SIGPROF specifically so the agent never
// competes with the Go runtime's own SIGPROF-based execution
// profiler running in the same process. Its handler is installed
// directly with sigaction(2) in sigcapture.go rather than through
// os/signal: the timer can deliver to any thread in the profiled
// process, including ones the Go runtime has never scheduled onto,
// and os/signal has no way to reach that thread's own
// siginfo_t/ucontext_t.
const sampleSignal = unix.SIGUSR1

// Handler owns the trace file and the eventfd the native signal
// handler wakes it through. The interrupted thread's stack is walked
// inside the signal handler itself (sigcapture.go), entirely in C, so
// by the time run wakes up the work left is turning an already
// captured instruction-pointer chain into the raw backtrace/sample
// pair and appending it to the file - no unwinding happens here.
type Handler struct {
	file  *trace.File
	timer *swimpstime.Timer

	wakeFD   int
	stopping atomic.Bool

	nextBacktraceID int64
}

func newHandler(file *trace.File) (*Handler, error) {
	fd, err := unix.Eventfd(0, 0)
	if err != nil {
		return nil, fmt.Errorf("creating wake eventfd: %w", err)
	}
	return &Handler{file: file, wakeFD: fd}, nil
}

// run blocks on the wake eventfd until either the signal handler
// reports a capture or Stop asks it to exit. Closing wakeFD out from
// under a blocked reader is a race, so shutdown instead sets stopping
// and performs one last write to the same fd to unblock the read.
func (h *Handler) run() {
	buf := make([]byte, 8)
	for {
		if _, err := unix.Read(h.wakeFD, buf); err != nil {
			return
		}
		if h.stopping.Load() {
			return
		}
		h.onTick()
	}
}

// onTick is the Writing half of the handler's state machine; Entering
// and Capturing already happened inside the signal handler before
// this goroutine was ever woken. It never blocks on a lock. It
// allocates the instruction-pointer copy takeSample returns, the ID
// slice sized from that count, and the encode buffers of the two
// appends.
func (h *Handler) onTick() {
	timestamp, ips, ok := takeSample()
	if !ok {
		return
	}
	defer releaseSample()

	ids := make([]trace.StackFrameID, len(ips))
	for i, ip := range ips {
		// The raw file dual-purposes a backtrace's stack-frame ID
		// slots as the instruction pointers themselves; the finaliser
		// is what assigns real, deduplicated stack-frame IDs.
		ids[i] = trace.StackFrameID(ip)
	}

	backtraceID := trace.BacktraceID(atomic.AddInt64(&h.nextBacktraceID, 1))
	if _, err := h.file.AddBacktrace(trace.Backtrace{ID: backtraceID, StackFrameIDs: ids}); err != nil {
		swimpslog.Debugf("agent: writing raw backtrace: %v", err)
		return
	}

	sample := trace.Sample{BacktraceID: backtraceID, Timestamp: timestamp}
	if _, err := h.file.AddSample(sample); err != nil {
		swimpslog.Debugf("agent: writing sample: %v", err)
	}
}

// wake unblocks a goroutine parked in run, used during shutdown.
func (h *Handler) wake() error {
	buf := make([]byte, 8)
	binary.NativeEndian.PutUint64(buf, 1)
	_, err := unix.Write(h.wakeFD, buf)
	return err
}
