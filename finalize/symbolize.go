// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package finalize

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"sort"

	"github.com/ianlancetaylor/demangle"

	"github.com/swimps-project/swimps/trace"
)

// elfSymbol is the subset of an ELF symbol table entry symbolize
// needs: an address and a name, sorted so the nearest preceding entry
// can be found with a binary search.
type elfSymbol struct {
	value uint64
	name  string
}

// symbolize resolves each frame's instruction pointer against
// binaryPath's symbol tables, filling in FunctionName and Offset, and
// opportunistically a source file/line from DWARF if present. It is
// the seam full DWARF line-table decoding (a Non-goal) plugs into —
// this only reads enough of .debug_info to find the compile unit
// enclosing an address, then seeks that unit's line table to the one
// address; it never decodes a whole line-number program up front.
func symbolize(binaryPath string, frames []trace.StackFrame) error {
	if len(frames) == 0 {
		return nil
	}

	f, err := elf.Open(binaryPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", binaryPath, err)
	}
	defer f.Close()

	symbols, err := sortedSymbols(f)
	if err != nil {
		return fmt.Errorf("reading symbol tables: %w", err)
	}

	dwarfData, err := f.DWARF()
	if err != nil {
		dwarfData = nil // best effort: line info is optional
	}

	for i := range frames {
		ip := frames[i].InstructionPointer
		if sym, ok := nearestSymbol(symbols, ip); ok {
			frames[i].FunctionName = demangle.Filter(sym.name)
			frames[i].Offset = ip - sym.value
		}
		if dwarfData != nil {
			if file, line, ok := lookupDeclLine(dwarfData, ip); ok {
				frames[i].SourceFilePath = file
				frames[i].LineNumber = line
			}
		}
	}
	return nil
}

func sortedSymbols(f *elf.File) ([]elfSymbol, error) {
	var out []elfSymbol

	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if s.Value == 0 || elf.ST_TYPE(s.Info) != elf.STT_FUNC {
				continue
			}
			out = append(out, elfSymbol{value: s.Value, name: s.Name})
		}
	}

	if syms, err := f.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := f.DynamicSymbols(); err == nil {
		add(syms)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out, nil
}

// nearestSymbol finds the closest symbol at or before ip, giving the
// function the address falls inside and the byte offset from its
// start.
func nearestSymbol(symbols []elfSymbol, ip uint64) (elfSymbol, bool) {
	i := sort.Search(len(symbols), func(i int) bool { return symbols[i].value > ip })
	if i == 0 {
		return elfSymbol{}, false
	}
	return symbols[i-1], true
}

// lookupDeclLine walks compile units only as far as their low/high PC
// range and, for the unit enclosing ip, seeks its line table with
// LineReader.SeekPC to report the source file and line of ip itself.
// Subprogram DIEs and their DW_AT_decl_file/DW_AT_decl_line are not
// read, and units described by DW_AT_ranges rather than low/high PC
// are skipped.
func lookupDeclLine(data *dwarf.Data, ip uint64) (string, int64, bool) {
	reader := data.Reader()
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			return "", 0, false
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}

		low, lowOK := entry.Val(dwarf.AttrLowpc).(uint64)
		high, highOK := highPC(entry, low)
		if !lowOK || !highOK || ip < low || ip >= high {
			reader.SkipChildren()
			continue
		}

		lineReader, err := data.LineReader(entry)
		fileName := ""
		if err == nil && lineReader != nil {
			var lineEntry dwarf.LineEntry
			if err := lineReader.SeekPC(ip, &lineEntry); err == nil {
				fileName = lineEntry.File.Name
				return fileName, int64(lineEntry.Line), true
			}
		}
		return fileName, 0, fileName != ""
	}
}

func highPC(entry *dwarf.Entry, low uint64) (uint64, bool) {
	v := entry.Val(dwarf.AttrHighpc)
	switch val := v.(type) {
	case uint64:
		return val, true
	case int64:
		return low + uint64(val), true
	default:
		return 0, false
	}
}
