// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command swimps-preload is built with -buildmode=c-shared and loaded
// into a target process via LD_PRELOAD. Its cgo preamble declares the
// constructor/destructor pair the dynamic linker calls automatically,
// one-for-one with the original's swimps_preload_constructor and
// swimps_preload_destructor.
package main

/*
__attribute__((constructor))
static void swimps_preload_constructor(void);

__attribute__((destructor))
static void swimps_preload_destructor(void);

extern void swimpsPreloadStart(void);
extern void swimpsPreloadStop(void);

static void swimps_preload_constructor(void) {
    swimpsPreloadStart();
}

static void swimps_preload_destructor(void) {
    swimpsPreloadStop();
}
*/
import "C"

import (
	"os"

	"github.com/swimps-project/swimps/agent"
	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/options"
)

// swimpsPreloadStart is exported to C and called from the
// constructor. It must never call swimpslog.Fatalf or otherwise exit
// the process: doing so would kill the profiled target, not swimps.
//
//export swimpsPreloadStart
func swimpsPreloadStart() {
	raw := os.Getenv("SWIMPS_OPTIONS")
	if raw == "" {
		swimpslog.Errorf("preload: SWIMPS_OPTIONS not set, agent disabled")
		return
	}

	opts, err := options.Parse(raw)
	if err != nil {
		swimpslog.Errorf("preload: parsing SWIMPS_OPTIONS: %v", err)
		return
	}
	swimpslog.SetLevel(opts.LogLevel)

	if err := agent.Start(opts); err != nil {
		swimpslog.Errorf("preload: starting agent: %v", err)
	}
}

// swimpsPreloadStop is exported to C and called from the destructor.
//
//export swimpsPreloadStop
func swimpsPreloadStop() {
	agent.Stop()
}

func main() {}
