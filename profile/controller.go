// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package profile is the parent controller: it spawns the target
// program, optionally under ptrace, with the sampling agent injected
// via LD_PRELOAD, and drives its lifetime to completion.
package profile

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/swimps-project/swimps/internal/swimpserr"
	"github.com/swimps-project/swimps/internal/swimpslog"
	"github.com/swimps-project/swimps/options"
)

// Result is what the controller learned about the child once it
// finished running. Signaled and Signal are only meaningful when the
// child was killed by a signal rather than exiting normally; ExitCode
// still carries a usable value in that case (128+signal, the
// conventional shell encoding) so callers that only care about a
// process exit status don't need to branch on Signaled.
type Result struct {
	ExitCode int
	Signaled bool
	Signal   syscall.Signal
}

// Spawn forks and execs the target program with the preload
// environment set up, optionally under ptrace, and blocks until it
// exits. It uses os/exec with SysProcAttr{Ptrace: ...} rather than a
// raw fork+PTRACE_TRACEME because os/exec already serialises the
// fork/exec race correctly against Go's multi-threaded runtime — a
// bare fork() from a goroutine risks forking with other OS threads
// mid-syscall.
func Spawn(opts options.Options) (Result, error) {
	if opts.TargetProgram == "" {
		return Result{}, fmt.Errorf("%w: no target program", swimpserr.InvalidParameter)
	}

	path, err := exec.LookPath(opts.TargetProgram)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", swimpserr.ExecveFailed, err)
	}

	env, err := buildEnv(opts)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.Command(path, opts.TargetProgramArgs...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: opts.Ptrace}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", swimpserr.ForkFailed, err)
	}

	if !opts.Ptrace {
		if err := cmd.Wait(); err != nil {
			return resultFromWaitError(err), nil
		}
		return Result{ExitCode: 0}, nil
	}

	return waitLoop(cmd.Process.Pid)
}

// waitLoop implements spec.md §4.5's parent-side wait loop: SIGTRAP
// stops (ptrace artifacts, including the post-execve trap os/exec's
// Ptrace:true leaves pending) are swallowed; any other stop signal is
// forwarded to the child with PTRACE_CONT so the child's own signal
// semantics are preserved. Per spec.md §4.5, both WIFEXITED and
// WIFSIGNALED are success from the controller's point of view - the
// controller's job was to observe the child to completion, not to
// judge its outcome - so neither case returns an error; ChildProcess*
// codes are used for logging only.
func waitLoop(pid int) (Result, error) {
	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &status, 0, nil)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", swimpserr.PtraceFailed, err)
		}

		switch {
		case status.Exited():
			return resultFromExitCode(status.ExitStatus()), nil
		case status.Signaled():
			return resultFromSignal(status.Signal()), nil
		case status.Stopped():
			sig := status.StopSignal()
			forward := sig
			if sig == unix.SIGTRAP {
				forward = 0
			}
			if err := unix.PtraceCont(pid, int(forward)); err != nil {
				return Result{}, fmt.Errorf("%w: %v", swimpserr.PtraceFailed, err)
			}
		}
	}
}

func resultFromExitCode(code int) Result {
	if code != 0 {
		swimpslog.Warningf("profile: %v: child exited with code %d", swimpserr.ChildProcessHasNonZeroExitCode, code)
	}
	return Result{ExitCode: code}
}

func resultFromSignal(sig syscall.Signal) Result {
	swimpslog.Warningf("profile: %v: %v", swimpserr.ChildProcessExitedDueToSignal, sig)
	return Result{Signaled: true, Signal: sig, ExitCode: 128 + int(sig)}
}

func resultFromWaitError(err error) Result {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return Result{ExitCode: -1}
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return resultFromSignal(ws.Signal())
	}
	return resultFromExitCode(exitErr.ExitCode())
}
