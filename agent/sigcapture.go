// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package agent

/*
#define _GNU_SOURCE
#include <signal.h>
#include <stdatomic.h>
#include <stdint.h>
#include <string.h>
#include <time.h>
#include <ucontext.h>
#include <unistd.h>

// Must track trace.MaxBacktraceDepth.
#define SWIMPS_MAX_BACKTRACE_DEPTH 64

typedef struct {
	int64_t  seconds;
	int64_t  nanoseconds;
	uint64_t pcs[SWIMPS_MAX_BACKTRACE_DEPTH];
	int      count;
} swimps_raw_sample;

static atomic_int       swimps_sample_busy = ATOMIC_VAR_INIT(0);
static swimps_raw_sample swimps_latest_sample;
static int               swimps_wake_fd = -1;

// swimps_walk_frame_pointers unwinds the stack the kernel actually
// interrupted, starting from the PC and frame pointer in the
// ucontext_t the signal delivery handed us, not whatever stack the
// calling goroutine happens to own. It never allocates and never
// calls into libc beyond the reads below, so it is safe to run with
// the signal mask the handler was entered under.
static void swimps_walk_frame_pointers(void *uctxVoid, swimps_raw_sample *out) {
	ucontext_t *ctx = (ucontext_t *)uctxVoid;
	unsigned long pc = 0;
	unsigned long *bp = NULL;

#if defined(__x86_64__)
	pc = (unsigned long)ctx->uc_mcontext.gregs[REG_RIP];
	bp = (unsigned long *)ctx->uc_mcontext.gregs[REG_RBP];
#elif defined(__aarch64__)
	pc = (unsigned long)ctx->uc_mcontext.pc;
	bp = (unsigned long *)ctx->uc_mcontext.regs[29];
#endif

	int n = 0;
	if (pc != 0) {
		out->pcs[n++] = (uint64_t)pc;
	}

	while (bp != NULL && n < SWIMPS_MAX_BACKTRACE_DEPTH) {
		unsigned long *frame = bp;
		unsigned long returnAddress = frame[1];
		unsigned long *nextFrame = (unsigned long *)frame[0];

		if (returnAddress == 0) {
			break;
		}
		out->pcs[n++] = (uint64_t)returnAddress;

		if (nextFrame <= frame) {
			// Frame pointers must climb toward higher addresses;
			// anything else means the chain is corrupt or we've
			// walked off a frame-pointer-omitted callee.
			break;
		}
		bp = nextFrame;
	}

	out->count = n;
}

// swimps_sigusr1_handler is installed with sigaction(2) directly,
// bypassing Go's os/signal entirely: the timer can deliver to any
// thread in the profiled process, including ones the Go runtime has
// never scheduled onto, and only a real SA_SIGINFO handler receives
// that thread's own siginfo_t/ucontext_t. It must never call back
// into Go - doing so from a thread the runtime doesn't control is not
// safe - so it only touches the C globals above and wakes the
// consumer goroutine with a plain write(2).
static void swimps_sigusr1_handler(int sig, siginfo_t *info, void *uctx) {
	(void)sig;
	(void)info;

	int expected = 0;
	if (!atomic_compare_exchange_strong(&swimps_sample_busy, &expected, 1)) {
		// A sample is already captured and not yet consumed, or a
		// concurrent delivery is already writing one. Drop this tick.
		return;
	}

	struct timespec ts;
	clock_gettime(CLOCK_MONOTONIC, &ts);
	swimps_latest_sample.seconds = (int64_t)ts.tv_sec;
	swimps_latest_sample.nanoseconds = (int64_t)ts.tv_nsec;
	swimps_walk_frame_pointers(uctx, &swimps_latest_sample);

	if (swimps_wake_fd != -1) {
		uint64_t one = 1;
		ssize_t ignored = write(swimps_wake_fd, &one, sizeof(one));
		(void)ignored;
	}
}

static int swimps_install_handler(int wakeFD) {
	swimps_wake_fd = wakeFD;

	struct sigaction action;
	memset(&action, 0, sizeof(action));
	action.sa_sigaction = swimps_sigusr1_handler;
	action.sa_flags = SA_SIGINFO | SA_RESTART;
	sigemptyset(&action.sa_mask);

	return sigaction(SIGUSR1, &action, NULL);
}

static int swimps_restore_default_handler(void) {
	struct sigaction action;
	memset(&action, 0, sizeof(action));
	action.sa_handler = SIG_DFL;
	sigemptyset(&action.sa_mask);

	return sigaction(SIGUSR1, &action, NULL);
}

static int swimps_sample_pending(void) {
	return atomic_load(&swimps_sample_busy);
}

static int swimps_take_sample(swimps_raw_sample *out) {
	if (!atomic_load(&swimps_sample_busy)) {
		return 0;
	}
	memcpy(out, &swimps_latest_sample, sizeof(*out));
	return 1;
}

static void swimps_release_sample(void) {
	atomic_store(&swimps_sample_busy, 0);
}
*/
import "C"

import (
	"fmt"

	"github.com/swimps-project/swimps/trace"
)

// installSignalHandler registers the native SIGUSR1 handler above and
// tells it which eventfd to wake once it captures. Only one handler
// is ever installed process-wide, matching the single process-wide
// trace file the agent owns.
func installSignalHandler(wakeFD int) error {
	if ret, errno := C.swimps_install_handler(C.int(wakeFD)); ret != 0 {
		return fmt.Errorf("sigaction(SIGUSR1): %w", errno)
	}
	return nil
}

// restoreDefaultSignalHandler puts SIGUSR1 back to SIG_DFL so that
// code running after Stop is free to use it again.
func restoreDefaultSignalHandler() error {
	if ret, errno := C.swimps_restore_default_handler(); ret != 0 {
		return fmt.Errorf("sigaction(SIGUSR1, SIG_DFL): %w", errno)
	}
	return nil
}

// samplePending reports whether the handler has captured a sample
// that takeSample has not yet consumed.
func samplePending() bool {
	return C.swimps_sample_pending() != 0
}

// takeSample copies out the most recently captured native stack, if
// the handler has one waiting, translating the fixed-size C buffer
// into a plain Go value. The caller must call releaseSample once it
// is done with the result, which is what lets the handler capture the
// next tick; until then, ticks that land while a sample is still
// outstanding are dropped by the handler itself.
func takeSample() (timestamp trace.TimeSpec, instructionPointers []uint64, ok bool) {
	var raw C.swimps_raw_sample
	if C.swimps_take_sample(&raw) == 0 {
		return trace.TimeSpec{}, nil, false
	}

	n := int(raw.count)
	instructionPointers = make([]uint64, n)
	for i := 0; i < n; i++ {
		instructionPointers[i] = uint64(raw.pcs[i])
	}

	return trace.TimeSpec{Seconds: int64(raw.seconds), Nanoseconds: int64(raw.nanoseconds)}, instructionPointers, true
}

// releaseSample lets the handler capture another sample.
func releaseSample() {
	C.swimps_release_sample()
}
