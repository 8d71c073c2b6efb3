// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package options

import (
	"fmt"
	"path/filepath"

	"github.com/swimps-project/swimps/internal/swimpstime"
)

// DefaultTraceFileName builds swimps_trace_<program-basename>_<sec>_<nsec>,
// using now as the timestamp pair so repeated runs against the same
// target don't collide.
func DefaultTraceFileName(targetProgram string, now swimpstime.Spec) string {
	base := filepath.Base(targetProgram)
	return fmt.Sprintf("swimps_trace_%s_%d_%d", base, now.Seconds, now.Nanoseconds)
}
