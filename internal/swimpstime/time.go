// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package swimpstime provides the monotonic clock reads and the
// signal-delivering interval timer used to drive the sampling agent.
//
// The read path (Now) must be safe to call from the goroutine that
// stands in for the agent's signal handler: no allocation, no locking,
// one syscall. Timer creation is not held to that bar; only arming
// and disarming are.
package swimpstime

import (
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Spec holds a timestamp the same way the wire format does: two
// independent int64 fields rather than a platform timespec, so a
// trace taken on one machine reads back identically on another.
type Spec struct {
	Seconds     int64
	Nanoseconds int64
}

// Now reads clockID (typically unix.CLOCK_MONOTONIC) with a single
// clock_gettime syscall. It performs no allocation and is safe to call
// from the sampling goroutine.
func Now(clockID int32) (Spec, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(clockID, &ts); err != nil {
		return Spec{}, fmt.Errorf("clock_gettime: %w", err)
	}
	return Spec{Seconds: int64(ts.Sec), Nanoseconds: int64(ts.Nsec)}, nil
}

// itimerspec mirrors struct itimerspec from <time.h>. x/sys/unix does
// not expose timer_create/timer_settime directly (they are POSIX
// timers, not the itimer family covered by unix.Timeval), so the wire
// layout is reproduced here the same way perffile/bufdecoder.go
// hand-rolls on-disk structs it has no generated binding for.
type itimerspec struct {
	Interval unix.Timespec
	Value    unix.Timespec
}

// sigevent mirrors enough of struct sigevent to request
// SIGEV_SIGNAL delivery; the remaining fields are padding on linux/amd64
// and linux/arm64.
type sigevent struct {
	Value  [8]byte
	Signo  int32
	Notify int32
	_      [48]byte
}

const sigevSignal = 0

// Timer is a POSIX interval timer bound to a signal number.
type Timer struct {
	id int32
}

// NewTimer creates (but does not arm) a timer on clockID that
// delivers signum when it fires. Creation is not required to be
// signal-safe.
func NewTimer(clockID int32, signum int32) (*Timer, error) {
	ev := sigevent{Signo: signum, Notify: sigevSignal}
	var id int32
	_, _, errno := unix.Syscall(unix.SYS_TIMER_CREATE,
		uintptr(clockID),
		uintptr(unsafe.Pointer(&ev)),
		uintptr(unsafe.Pointer(&id)))
	if errno != 0 {
		return nil, fmt.Errorf("timer_create: %w", errno)
	}
	return &Timer{id: id}, nil
}

// Arm starts (or restarts) the timer at the given sampling rate.
// 1/rate seconds is split into whole seconds and rounded nanoseconds,
// exactly as spec'd: a rate of 1.0 yields (1, 0); a rate of 2.0 yields
// (0, 500_000_000).
func (t *Timer) Arm(samplesPerSecond float64) error {
	if samplesPerSecond <= 0 {
		return fmt.Errorf("samples per second must be positive, got %v", samplesPerSecond)
	}
	period := 1.0 / samplesPerSecond
	whole, frac := math.Modf(period)
	spec := itimerspec{
		Interval: unix.Timespec{Sec: int64(whole), Nsec: int64(math.Round(frac * 1e9))},
	}
	spec.Value = spec.Interval
	return t.setTime(&spec)
}

// Disarm stops the timer by setting both interval and value to zero,
// per spec.
func (t *Timer) Disarm() error {
	var spec itimerspec
	return t.setTime(&spec)
}

func (t *Timer) setTime(spec *itimerspec) error {
	_, _, errno := unix.Syscall6(unix.SYS_TIMER_SETTIME,
		uintptr(t.id), 0, uintptr(unsafe.Pointer(spec)), 0, 0, 0)
	if errno != 0 {
		return fmt.Errorf("timer_settime: %w", errno)
	}
	return nil
}
