// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sysio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateExclusiveRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace")

	f, err := CreateExclusive(path)
	if err != nil {
		t.Fatalf("CreateExclusive: %v", err)
	}
	defer f.Close()

	if _, err := CreateExclusive(path); err == nil {
		t.Fatalf("expected second CreateExclusive of the same path to fail")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace")

	f, err := CreateExclusive(path)
	if err != nil {
		t.Fatalf("CreateExclusive: %v", err)
	}

	want := []byte("s_v1\n\nsp!\nsome raw bytes")
	if n, err := f.Write(want); err != nil || n != len(want) {
		t.Fatalf("Write = %d, %v; want %d, nil", n, err, len(want))
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f2.Close()

	got := make([]byte, len(want))
	if n, err := f2.Read(got); err != nil || n != len(got) {
		t.Fatalf("Read = %d, %v; want %d, nil", n, err, len(got))
	}
	if string(got) != string(want) {
		t.Fatalf("Read back %q, want %q", got, want)
	}

	// A freshly truncated file reads back as EOF immediately.
	if err := os.Truncate(path, 0); err != nil {
		t.Fatal(err)
	}
	if err := f2.SeekAbsolute(0); err != nil {
		t.Fatal(err)
	}
	n, err := f2.Read(make([]byte, 6))
	if err != nil || n != 0 {
		t.Fatalf("Read on truncated file = %d, %v; want 0, nil", n, err)
	}
}

func TestCreateTempIsUnique(t *testing.T) {
	f1, err := CreateTemp("swimps_test")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer func() {
		f1.Unlink()
		f1.Close()
	}()

	f2, err := CreateTemp("swimps_test")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer func() {
		f2.Unlink()
		f2.Close()
	}()

	if f1.Path() == f2.Path() {
		t.Fatalf("CreateTemp produced the same path twice: %s", f1.Path())
	}
}

func TestMoveTransfersOwnership(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace")

	f, err := CreateExclusive(path)
	if err != nil {
		t.Fatalf("CreateExclusive: %v", err)
	}

	moved := f.Move()
	defer moved.Close()

	if f.Fd() != -1 {
		t.Errorf("original File still holds fd %d after Move", f.Fd())
	}
	if moved.Fd() == -1 {
		t.Errorf("moved File has no fd")
	}
	if _, err := moved.Write([]byte("ok")); err != nil {
		t.Errorf("write through moved File failed: %v", err)
	}
}

func TestUnlinkRemovesPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace")

	f, err := CreateExclusive(path)
	if err != nil {
		t.Fatalf("CreateExclusive: %v", err)
	}
	defer f.Close()

	if err := f.Unlink(); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("path still exists after Unlink: %v", err)
	}
}
