// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package swimpserr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeIsComparable(t *testing.T) {
	err := fmt.Errorf("read failed: %w", EndOfFile)
	if !errors.Is(err, EndOfFile) {
		t.Fatalf("wrapped EndOfFile did not match via errors.Is")
	}
	if errors.Is(err, UnknownEntryKind) {
		t.Fatalf("wrapped EndOfFile incorrectly matched UnknownEntryKind")
	}
}

func TestCodeError(t *testing.T) {
	for c := None; c <= EndOfFile; c++ {
		if c.Error() == "unknown swimps error" {
			t.Errorf("Code %d has no name", c)
		}
	}
	if Code(1000).Error() != "unknown swimps error" {
		t.Errorf("out-of-range Code should report unknown")
	}
}
