// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package swimpslog provides the levelled logging used throughout
// swimps: five severities, a process-wide filter level, and a
// "SWIMPS: XXX - " line prefix, mirroring the original swimps-log
// component.
package swimpslog

import (
	"fmt"
	"log"
	"os"
)

// Level is one of the five swimps log severities, in decreasing
// order of severity.
type Level int8

const (
	Fatal Level = iota
	Error
	Warning
	Info
	Debug
)

var names = [...]string{
	Fatal:   "FTL",
	Error:   "ERR",
	Warning: "WRN",
	Info:    "INF",
	Debug:   "DBG",
}

func (l Level) String() string {
	if int(l) < 0 || int(l) >= len(names) {
		return "???"
	}
	return names[l]
}

// ParseLevel converts one of the --log-level flag values (the same
// words the log-level field of SWIMPS_OPTIONS carries) into a Level.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "debug":
		return Debug, true
	case "info":
		return Info, true
	case "warning":
		return Warning, true
	case "error":
		return Error, true
	case "fatal":
		return Fatal, true
	}
	return Info, false
}

var filter = Info

// SetLevel sets the process-wide filter; messages more verbose than
// it are dropped.
func SetLevel(l Level) {
	filter = l
}

var out = log.New(os.Stderr, "", log.LstdFlags)

func write(l Level, msg string) {
	if l > filter {
		return
	}
	out.Printf("SWIMPS: %s - %s", l, msg)
}

func Debugf(format string, args ...interface{})   { write(Debug, fmt.Sprintf(format, args...)) }
func Infof(format string, args ...interface{})    { write(Info, fmt.Sprintf(format, args...)) }
func Warningf(format string, args ...interface{}) { write(Warning, fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...interface{})   { write(Error, fmt.Sprintf(format, args...)) }

// Fatalf logs at Fatal level and terminates the process. It must
// never be called from code that runs inside the profiled target
// (the agent package) since that would kill the target rather than
// just swimps.
func Fatalf(format string, args ...interface{}) {
	write(Fatal, fmt.Sprintf(format, args...))
	os.Exit(1)
}
