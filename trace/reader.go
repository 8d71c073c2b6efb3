// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"errors"
	"fmt"

	"github.com/swimps-project/swimps/internal/swimpserr"
)

// ReadTrace rewinds f, validates the file marker, then accumulates
// every sample, backtrace, and stack frame until EndOfFile. Any other
// error aborts the read and is returned to the caller; EndOfFile is
// the normal termination condition and is not itself an error in the
// returned value.
func ReadTrace(f *File) (*Trace, error) {
	if err := f.SeekToStart(); err != nil {
		return nil, fmt.Errorf("seeking to start of trace file: %w", err)
	}

	var marker [markerSize]byte
	n, err := f.f.Read(marker[:])
	if err != nil {
		return nil, fmt.Errorf("reading trace file marker: %w", err)
	}
	if n != markerSize || marker != fileMarker {
		return nil, fmt.Errorf("%w: missing swimps trace file marker", swimpserr.InvalidParameter)
	}

	trace := &Trace{}
	for {
		entry, err := f.ReadNextEntry()
		if err != nil {
			if errors.Is(err, swimpserr.EndOfFile) {
				return trace, nil
			}
			return nil, err
		}

		switch entry.Kind {
		case EntrySample:
			trace.Samples = append(trace.Samples, entry.Sample)
		case EntryBacktrace:
			trace.Backtraces = append(trace.Backtraces, entry.Backtrace)
		case EntryStackFrame:
			trace.StackFrames = append(trace.StackFrames, entry.StackFrame)
		default:
			return nil, fmt.Errorf("%w: entry kind %d", swimpserr.UnknownEntryKind, entry.Kind)
		}
	}
}

// ReadTraceFile opens path and reads the whole trace out of it,
// closing the file before returning.
func ReadTraceFile(path string) (*Trace, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrace(f)
}
