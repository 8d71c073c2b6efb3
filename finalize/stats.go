// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finalize

import (
	"github.com/aclements/go-moremath/stats"

	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/trace"
)

// logIntervalStats computes descriptive statistics over the
// inter-sample time deltas and logs them at Info level. spec.md §1's
// drop-policy language ("best effort... overlapping samples are
// dropped") is otherwise unobservable without a reportable jitter
// metric; this is that metric.
func logIntervalStats(samples []trace.Sample) {
	if len(samples) < 2 {
		return
	}

	deltas := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		prev := samples[i-1].Timestamp
		cur := samples[i].Timestamp
		seconds := float64(cur.Seconds-prev.Seconds) + float64(cur.Nanoseconds-prev.Nanoseconds)/1e9
		if seconds < 0 {
			continue // clock or ordering anomaly, not a real interval
		}
		deltas = append(deltas, seconds*1e9)
	}
	if len(deltas) == 0 {
		return
	}

	sample := stats.Sample{Xs: deltas}
	min, max := sample.Bounds()
	swimpslog.Infof(
		"finalize: %d samples, inter-sample interval mean=%.0fns stddev=%.0fns min=%.0fns max=%.0fns",
		len(samples), sample.Mean(), sample.StdDev(), min, max,
	)
}
