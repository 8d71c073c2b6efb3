// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"fmt"

	"github.com/swimps-project/swimps/internal/sysio"
	"github.com/swimps-project/swimps/internal/swimpserr"
)

// File is a swimps v1 trace file, usable both as the signal-safe
// append-only sink the sampling agent writes into and as the
// random-access store the finaliser and reader consume.
type File struct {
	f *sysio.File
}

// Create makes a new trace file at path (failing if it already
// exists) and writes the file marker. It is async-signal-safe: it
// performs exactly the open and write syscalls sysio.File already
// guarantees are safe, and nothing else.
func Create(path string) (*File, error) {
	f, err := sysio.CreateExclusive(path)
	if err != nil {
		return nil, err
	}
	tf := &File{f: f}
	if _, err := tf.f.Write(fileMarker[:]); err != nil {
		f.Close()
		f.Unlink()
		return nil, fmt.Errorf("writing trace file marker: %w", err)
	}
	return tf, nil
}

// CreateTemp behaves like Create but picks a unique name under /tmp
// with the given prefix, as the finaliser uses for its side file.
func CreateTemp(prefix string) (*File, error) {
	f, err := sysio.CreateTemp(prefix)
	if err != nil {
		return nil, err
	}
	tf := &File{f: f}
	if _, err := tf.f.Write(fileMarker[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing trace file marker: %w", err)
	}
	return tf, nil
}

// Open opens an existing trace file for reading (and, if the caller
// wants to append more entries, writing). It does not itself consume
// the file marker; the first call to ReadNextEntry does that.
func Open(path string) (*File, error) {
	f, err := sysio.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Path is the filesystem path this trace file was opened or created
// with.
func (t *File) Path() string { return t.f.Path() }

// Close closes the underlying descriptor.
func (t *File) Close() error { return t.f.Close() }

// SeekToStart rewinds to offset 0.
func (t *File) SeekToStart() error { return t.f.SeekAbsolute(0) }

// AddSample appends a sample entry. The sampling agent calls it for
// every captured sample, so it is built entirely out of
// sysio.File.Write plus the free bufEncoder functions: no allocation
// beyond the fixed-size stack buffer below, no locking.
func (t *File) AddSample(s Sample) (int, error) {
	enc := bufEncoder{buf: make([]byte, 0, markerSize+24)}
	enc.bytes(sampleMarker[:])
	enc.i64(int64(s.BacktraceID))
	enc.i64(s.Timestamp.Seconds)
	enc.i64(s.Timestamp.Nanoseconds)
	return t.f.Write(enc.buf)
}

// AddBacktrace appends a backtrace entry. It is called by the
// finaliser and by the sampling agent's consumer goroutine (which
// writes each raw backtrace just before its sample); neither runs in
// signal context, so it is not required to be signal-safe.
func (t *File) AddBacktrace(b Backtrace) (int, error) {
	if len(b.StackFrameIDs) == 0 {
		return 0, fmt.Errorf("backtrace %d has no stack frames", b.ID)
	}
	enc := bufEncoder{buf: make([]byte, 0, markerSize+12+8*len(b.StackFrameIDs))}
	enc.bytes(backtraceMarker[:])
	enc.i64(int64(b.ID))
	enc.i32(int32(len(b.StackFrameIDs)))
	for _, id := range b.StackFrameIDs {
		enc.i64(int64(id))
	}
	return t.f.Write(enc.buf)
}

// AddStackFrame appends a stack frame entry. Only called by the
// finaliser; not required to be signal-safe. Function names longer
// than MaxFunctionNameLength are truncated, and the length field
// written reflects the truncated length.
func (t *File) AddStackFrame(s StackFrame) (int, error) {
	name := []byte(s.FunctionName)
	if len(name) > MaxFunctionNameLength {
		name = name[:MaxFunctionNameLength]
	}
	path := []byte(s.SourceFilePath)

	enc := bufEncoder{buf: make([]byte, 0, markerSize+8+4+len(name)+8+8+8+4+len(path))}
	enc.bytes(stackFrameMarker[:])
	enc.i64(int64(s.ID))
	enc.i32(int32(len(name)))
	enc.bytes(name)
	enc.u64(s.Offset)
	enc.u64(s.InstructionPointer)
	enc.i64(s.LineNumber)
	enc.u32(uint32(len(path)))
	enc.bytes(path)
	return t.f.Write(enc.buf)
}

// ReadNextEntry advances sequentially from the current offset and
// returns the next entry. If the marker read is the file marker
// (which only appears at offset 0, but is tolerated anywhere for
// robustness, matching the reference reader), it is skipped and the
// next entry is returned instead — this is what makes "the first
// call after opening an existing file consumes the file marker" true
// without Open having to special-case it.
func (t *File) ReadNextEntry() (Entry, error) {
	var marker [markerSize]byte
	n, err := t.f.Read(marker[:])
	if err != nil {
		return Entry{}, err
	}
	if n == 0 {
		return Entry{}, swimpserr.EndOfFile
	}
	if n != markerSize {
		return Entry{}, swimpserr.UnknownEntryKind
	}
	if marker == fileMarker {
		return t.ReadNextEntry()
	}

	switch markerKind(marker) {
	case EntrySample:
		s, err := t.readSample()
		if err != nil {
			return Entry{}, swimpserr.ReadSampleFailed
		}
		return Entry{Kind: EntrySample, Sample: s}, nil
	case EntryBacktrace:
		b, err := t.readBacktrace()
		if err != nil {
			return Entry{}, swimpserr.ReadBacktraceFailed
		}
		return Entry{Kind: EntryBacktrace, Backtrace: b}, nil
	case EntryStackFrame:
		f, err := t.readStackFrame()
		if err != nil {
			return Entry{}, swimpserr.ReadStackFrameFailed
		}
		return Entry{Kind: EntryStackFrame, StackFrame: f}, nil
	default:
		return Entry{}, swimpserr.UnknownEntryKind
	}
}

func (t *File) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := t.f.Read(buf)
	if err != nil {
		return nil, err
	}
	if read != n {
		return nil, fmt.Errorf("short read: got %d bytes, wanted %d", read, n)
	}
	return buf, nil
}

func (t *File) readSample() (Sample, error) {
	buf, err := t.readFull(24)
	if err != nil {
		return Sample{}, err
	}
	d := bufDecoder{buf: buf}
	return Sample{
		BacktraceID: BacktraceID(d.i64()),
		Timestamp: TimeSpec{
			Seconds:     d.i64(),
			Nanoseconds: d.i64(),
		},
	}, nil
}

func (t *File) readBacktrace() (Backtrace, error) {
	head, err := t.readFull(12)
	if err != nil {
		return Backtrace{}, err
	}
	d := bufDecoder{buf: head}
	id := d.i64()
	count := d.i32()
	if count <= 0 {
		return Backtrace{}, fmt.Errorf("backtrace %d has non-positive frame count %d", id, count)
	}

	idBuf, err := t.readFull(int(count) * 8)
	if err != nil {
		return Backtrace{}, err
	}
	d = bufDecoder{buf: idBuf}
	ids := make([]StackFrameID, count)
	for i := range ids {
		ids[i] = StackFrameID(d.i64())
	}

	return Backtrace{ID: BacktraceID(id), StackFrameIDs: ids}, nil
}

func (t *File) readStackFrame() (StackFrame, error) {
	head, err := t.readFull(12)
	if err != nil {
		return StackFrame{}, err
	}
	d := bufDecoder{buf: head}
	id := d.i64()
	nameLen := int(d.i32())

	nameBytes, err := t.readFull(nameLen)
	if err != nil {
		return StackFrame{}, err
	}

	tail, err := t.readFull(8 + 8 + 8 + 4)
	if err != nil {
		return StackFrame{}, err
	}
	d = bufDecoder{buf: tail}
	offset := d.u64()
	ip := d.u64()
	line := d.i64()
	pathLen := int(d.u32())

	pathBytes, err := t.readFull(pathLen)
	if err != nil {
		return StackFrame{}, err
	}

	return StackFrame{
		ID:                 StackFrameID(id),
		InstructionPointer: ip,
		Offset:             offset,
		FunctionName:       string(nameBytes),
		LineNumber:         line,
		SourceFilePath:     string(pathBytes),
	}, nil
}
