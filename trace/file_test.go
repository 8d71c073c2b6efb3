// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/swimps-project/swimps/internal/swimpserr"
)

func createTestFile(t *testing.T) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBacktraceRoundTrip(t *testing.T) {
	f := createTestFile(t)

	want := Backtrace{ID: 9, StackFrameIDs: []StackFrameID{0, 1, 2}}
	if _, err := f.AddBacktrace(want); err != nil {
		t.Fatalf("AddBacktrace: %v", err)
	}

	if err := f.SeekToStart(); err != nil {
		t.Fatalf("SeekToStart: %v", err)
	}

	// First call consumes the file marker.
	entry, err := f.ReadNextEntry()
	if err != nil {
		t.Fatalf("ReadNextEntry (backtrace): %v", err)
	}
	if entry.Kind != EntryBacktrace {
		t.Fatalf("got entry kind %v, want EntryBacktrace", entry.Kind)
	}
	if !entry.Backtrace.Equal(want) || entry.Backtrace.ID != want.ID {
		t.Fatalf("got backtrace %+v, want %+v", entry.Backtrace, want)
	}
}

func TestSampleRoundTrip(t *testing.T) {
	f := createTestFile(t)

	samples := []Sample{
		{BacktraceID: 1, Timestamp: TimeSpec{Seconds: 100, Nanoseconds: 250}},
		{BacktraceID: 2, Timestamp: TimeSpec{Seconds: 101, Nanoseconds: 0}},
	}
	for _, s := range samples {
		if _, err := f.AddSample(s); err != nil {
			t.Fatalf("AddSample: %v", err)
		}
	}

	if err := f.SeekToStart(); err != nil {
		t.Fatal(err)
	}

	for i, want := range samples {
		entry, err := f.ReadNextEntry()
		if err != nil {
			t.Fatalf("ReadNextEntry #%d: %v", i, err)
		}
		if entry.Kind != EntrySample || entry.Sample != want {
			t.Fatalf("entry #%d = %+v, want sample %+v", i, entry, want)
		}
	}

	if _, err := f.ReadNextEntry(); !errors.Is(err, swimpserr.EndOfFile) {
		t.Fatalf("expected EndOfFile after last sample, got %v", err)
	}
}

func TestStackFrameRoundTripAndTruncation(t *testing.T) {
	f := createTestFile(t)

	longName := make([]byte, MaxFunctionNameLength+50)
	for i := range longName {
		longName[i] = 'a'
	}

	want := StackFrame{
		ID:                 3,
		InstructionPointer: 0xdeadbeef,
		Offset:             0x10,
		FunctionName:       string(longName),
		LineNumber:         42,
		SourceFilePath:     "main.c",
	}
	if _, err := f.AddStackFrame(want); err != nil {
		t.Fatalf("AddStackFrame: %v", err)
	}

	if err := f.SeekToStart(); err != nil {
		t.Fatal(err)
	}
	entry, err := f.ReadNextEntry()
	if err != nil {
		t.Fatalf("ReadNextEntry: %v", err)
	}
	if entry.Kind != EntryStackFrame {
		t.Fatalf("got kind %v, want EntryStackFrame", entry.Kind)
	}
	if len(entry.StackFrame.FunctionName) != MaxFunctionNameLength {
		t.Fatalf("function name length = %d, want %d", len(entry.StackFrame.FunctionName), MaxFunctionNameLength)
	}
	if entry.StackFrame.InstructionPointer != want.InstructionPointer || entry.StackFrame.SourceFilePath != want.SourceFilePath {
		t.Fatalf("got %+v, want ip/path to match %+v", entry.StackFrame, want)
	}
}

func TestUnknownMarkerStopsParsing(t *testing.T) {
	f := createTestFile(t)

	if _, err := f.f.Write([]byte("zzzzz\n")); err != nil {
		t.Fatalf("writing bogus marker: %v", err)
	}

	if err := f.SeekToStart(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ReadNextEntry(); !errors.Is(err, swimpserr.UnknownEntryKind) {
		t.Fatalf("got %v, want UnknownEntryKind", err)
	}
}

func TestEOFOnFreshlyTruncatedFile(t *testing.T) {
	f := createTestFile(t)

	if err := f.SeekToStart(); err != nil {
		t.Fatal(err)
	}
	// Consumes the file marker, leaving nothing else to read.
	if _, err := f.ReadNextEntry(); !errors.Is(err, swimpserr.EndOfFile) {
		t.Fatalf("got %v, want EndOfFile", err)
	}
}

func TestZeroFrameBacktraceIsCorrupt(t *testing.T) {
	f := createTestFile(t)

	if _, err := f.AddBacktrace(Backtrace{ID: 1}); err == nil {
		t.Fatalf("expected AddBacktrace to reject an empty backtrace")
	}
}
