// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace implements the swimps v1 trace-file format: the
// append-only sink the sampling agent writes into, and the
// random-access store the finaliser and downstream readers consume.
package trace

import "fmt"

// StackFrameID and BacktraceID are dense, monotonically assigned
// starting at 1. Zero and negative values are sentinels for
// uninitialised data; IDUnset names the zero value explicitly so
// callers don't have to remember that 0 means "none".
type (
	StackFrameID int64
	BacktraceID  int64
)

const IDUnset = 0

// MaxFunctionNameLength bounds StackFrame.FunctionName: names longer
// than this are truncated and FunctionNameLength reflects the
// truncated length.
const MaxFunctionNameLength = 256

// MaxBacktraceDepth bounds how many frames a single backtrace may
// record: a stack deeper than this is truncated at capture time.
const MaxBacktraceDepth = 64

// StackFrame is one return address resolved to symbolic form. Before
// finalisation only ID and InstructionPointer are populated; the
// finaliser fills in the rest.
type StackFrame struct {
	ID                 StackFrameID
	InstructionPointer uint64
	Offset             uint64

	FunctionName       string
	LineNumber         int64
	SourceFilePath     string
}

// Equal implements the equivalence relation from the data model: two
// frames are equivalent iff instruction pointer, offset, and function
// name all match. It deliberately ignores ID, since two frames with
// different IDs but otherwise identical content are the thing
// finalisation is supposed to collapse.
func (f StackFrame) Equal(other StackFrame) bool {
	return f.InstructionPointer == other.InstructionPointer &&
		f.Offset == other.Offset &&
		f.FunctionName == other.FunctionName
}

func (f StackFrame) String() string {
	if f.FunctionName == "" {
		return fmt.Sprintf("0x%x", f.InstructionPointer)
	}
	return fmt.Sprintf("%s+0x%x", f.FunctionName, f.Offset)
}

// Backtrace is an ordered sequence of stack frame IDs, innermost
// first, bounded at MaxBacktraceDepth.
type Backtrace struct {
	ID            BacktraceID
	StackFrameIDs []StackFrameID
}

// Equal implements the equivalence relation from the data model: two
// backtraces are equivalent iff their ID sequences match, regardless
// of their own ID.
func (b Backtrace) Equal(other Backtrace) bool {
	if len(b.StackFrameIDs) != len(other.StackFrameIDs) {
		return false
	}
	for i := range b.StackFrameIDs {
		if b.StackFrameIDs[i] != other.StackFrameIDs[i] {
			return false
		}
	}
	return true
}

// key returns the frame-ID sequence packed into a string, fit for use
// as a map key to look a backtrace up by its frame sequence without an
// O(n) scan. The finaliser does not use it; it builds its own keys
// with finalize.backtraceKey.
func (b Backtrace) key() string {
	buf := make([]byte, 0, len(b.StackFrameIDs)*8)
	for _, id := range b.StackFrameIDs {
		buf = append(buf,
			byte(id), byte(id>>8), byte(id>>16), byte(id>>24),
			byte(id>>32), byte(id>>40), byte(id>>48), byte(id>>56))
	}
	return string(buf)
}

// TimeSpec is a normalised monotonic timestamp, stored as two
// independent int64 fields rather than a platform timespec so the
// file reads back the same way regardless of which machine wrote it.
type TimeSpec struct {
	Seconds     int64
	Nanoseconds int64
}

// Sample is a (backtrace, timestamp) pair: the only entity produced
// on the hot path, and the only kind of entry the sampling agent ever
// writes.
type Sample struct {
	BacktraceID BacktraceID
	Timestamp   TimeSpec
}

// Trace is the in-memory result of reading a finalised file.
type Trace struct {
	Samples     []Sample
	Backtraces  []Backtrace
	StackFrames []StackFrame
}

// EntryKind tags the payload carried by an Entry.
type EntryKind int

const (
	EntryUnknown EntryKind = iota
	EntrySample
	EntryBacktrace
	EntryStackFrame
)

// Entry is a tagged union over the three entry kinds a trace file can
// hold. Callers switch on Kind; they do not type-assert.
type Entry struct {
	Kind       EntryKind
	Sample     Sample
	Backtrace  Backtrace
	StackFrame StackFrame
}
