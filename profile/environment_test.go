// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"strings"
	"testing"

	"github.com/swimps-project/swimps/options"
)

func TestJoinPreloadPrependsWithSeparator(t *testing.T) {
	got := joinPreload("/agent.so", "/already/loaded.so")
	want := "/agent.so:/already/loaded.so"
	if got != want {
		t.Fatalf("joinPreload = %q, want %q", got, want)
	}
}

func TestJoinPreloadHandlesEmptyExisting(t *testing.T) {
	if got := joinPreload("/agent.so", ""); got != "/agent.so" {
		t.Fatalf("joinPreload with no existing value = %q, want just the agent path", got)
	}
}

func TestBuildEnvSetsSwimpsOptions(t *testing.T) {
	opts := options.Default()
	opts.TargetProgram = "sleep"

	env, err := buildEnv(opts)
	if err != nil {
		t.Fatalf("buildEnv: %v", err)
	}

	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "SWIMPS_OPTIONS=") {
			found = true
			if !strings.Contains(kv, "target-program=sleep") {
				t.Errorf("SWIMPS_OPTIONS entry missing target-program: %q", kv)
			}
		}
	}
	if !found {
		t.Fatalf("expected an SWIMPS_OPTIONS entry in the built environment")
	}
}

func TestBuildEnvAlwaysSetsLDPreload(t *testing.T) {
	env, err := buildEnv(options.Default())
	if err != nil {
		t.Fatalf("buildEnv: %v", err)
	}
	for _, kv := range env {
		if strings.HasPrefix(kv, "LD_PRELOAD=") {
			return
		}
	}
	t.Fatalf("expected an LD_PRELOAD entry in the built environment")
}
