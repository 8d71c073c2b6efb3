// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import "encoding/binary"

const markerSize = 6

// The six-byte markers are five printable/control characters plus a
// trailing NUL, exactly as the C string literals "s_v1\n" etc. lay
// out when stored in a fixed six-byte array.
var (
	fileMarker       = [markerSize]byte{'s', '_', 'v', '1', '\n', 0}
	sampleMarker     = [markerSize]byte{'\n', 's', 'p', '!', '\n', 0}
	backtraceMarker  = [markerSize]byte{'\n', 's', 'b', '!', '\n', 0}
	stackFrameMarker = [markerSize]byte{'\n', 's', 'f', '!', '\n', 0}
)

func markerKind(m [markerSize]byte) EntryKind {
	switch m {
	case sampleMarker:
		return EntrySample
	case backtraceMarker:
		return EntryBacktrace
	case stackFrameMarker:
		return EntryStackFrame
	default:
		return EntryUnknown
	}
}

// order is native-endian per spec: the format is not portable across
// machines with different byte orders, so there is no byte-swapping
// to do — only a single, explicit choice of which native order this
// process uses. encoding/binary.NativeEndian (Go 1.21+) is exactly
// that choice made explicit rather than left to an implicit memcpy,
// as the original's raw struct writes effectively did.
var order = binary.NativeEndian

// bufEncoder appends fixed-width scalars to a byte slice. Scalar
// encode/decode are free functions over a buffer, not File
// methods, so the signal-safe append path (AddSample) can be audited
// without chasing method receivers, per the "signal-safety contract"
// design note: everything AddSample calls is listed here and in
// internal/sysio.
type bufEncoder struct {
	buf []byte
}

func (e *bufEncoder) i32(v int32) {
	var b [4]byte
	order.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *bufEncoder) u32(v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *bufEncoder) i64(v int64) {
	var b [8]byte
	order.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *bufEncoder) u64(v uint64) {
	var b [8]byte
	order.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *bufEncoder) bytes(p []byte) {
	e.buf = append(e.buf, p...)
}

type bufDecoder struct {
	buf []byte
}

func (d *bufDecoder) i32() int32 {
	v := int32(order.Uint32(d.buf))
	d.buf = d.buf[4:]
	return v
}

func (d *bufDecoder) u32() uint32 {
	v := order.Uint32(d.buf)
	d.buf = d.buf[4:]
	return v
}

func (d *bufDecoder) i64() int64 {
	v := int64(order.Uint64(d.buf))
	d.buf = d.buf[8:]
	return v
}

func (d *bufDecoder) u64() uint64 {
	v := order.Uint64(d.buf)
	d.buf = d.buf[8:]
	return v
}

func (d *bufDecoder) bytes(n int) []byte {
	v := d.buf[:n]
	d.buf = d.buf[n:]
	return v
}
