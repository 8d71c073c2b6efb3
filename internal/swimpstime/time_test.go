// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package swimpstime

import (
	"math"
	"testing"

	"golang.org/x/sys/unix"
)

// periodFor replicates the whole/fractional split Arm performs,
// without going through the timer_settime syscall, so it can run
// without a real timer.
func periodFor(samplesPerSecond float64) unix.Timespec {
	period := 1.0 / samplesPerSecond
	whole, frac := math.Modf(period)
	return unix.Timespec{Sec: int64(whole), Nsec: int64(math.Round(frac * 1e9))}
}

func TestArmRateConversion(t *testing.T) {
	cases := []struct {
		rate     float64
		wantSec  int64
		wantNsec int64
	}{
		{1.0, 1, 0},
		{2.0, 0, 500_000_000},
		{4.0, 0, 250_000_000},
	}
	for _, c := range cases {
		got := periodFor(c.rate)
		if got.Sec != c.wantSec || got.Nsec != c.wantNsec {
			t.Errorf("rate %v: got (%d, %d), want (%d, %d)", c.rate, got.Sec, got.Nsec, c.wantSec, c.wantNsec)
		}
	}
}

func TestNowReadsMonotonicClock(t *testing.T) {
	first, err := Now(unix.CLOCK_MONOTONIC)
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	second, err := Now(unix.CLOCK_MONOTONIC)
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if second.Seconds < first.Seconds ||
		(second.Seconds == first.Seconds && second.Nanoseconds < first.Nanoseconds) {
		t.Errorf("monotonic clock went backwards: %+v then %+v", first, second)
	}
}
