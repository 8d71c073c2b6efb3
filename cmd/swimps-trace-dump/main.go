// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command swimps-trace-dump prints the contents of a swimps trace
// file, raw or finalised, for debugging.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/swimps-project/swimps/trace"
)

func main() {
	flagInput := flag.String("i", "", "input trace `file`")
	flag.Parse()
	if *flagInput == "" || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(1)
	}

	t, err := trace.ReadTraceFile(*flagInput)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("samples: %d\n", len(t.Samples))
	for _, s := range t.Samples {
		fmt.Printf("  backtrace=%d time=%d.%09d\n", s.BacktraceID, s.Timestamp.Seconds, s.Timestamp.Nanoseconds)
	}

	fmt.Printf("backtraces: %d\n", len(t.Backtraces))
	for _, b := range t.Backtraces {
		fmt.Printf("  id=%d frames=%v\n", b.ID, b.StackFrameIDs)
	}

	fmt.Printf("stack frames: %d\n", len(t.StackFrames))
	for _, f := range t.StackFrames {
		fmt.Printf("  %s\n", f.String())
	}
}
