// Copyright (c) 2024 The vc Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package regalloc defines the register-allocation contract the back end
// consumes (spec.md section 3: "Register allocation result") and a
// simplified linear-scan allocator that produces it, adapted from falcon's
// compile/codegen/lsra.go and lsra_interval.go. The back end in
// compile/codegen treats an Allocation as read-only input; it never knows
// or cares whether the Allocation it was handed came from this package or
// from an external collaborator (spec.md section 1 lists "register
// allocation" among the driving inputs, not as something the back end
// computes).
package regalloc

import "vc/utils"

// Location is where a value lives after allocation: a non-negative index
// into the general-purpose register file, or a negative spill-slot number
// (spec.md section 3).
type Location int

// NumGPRegs is the size of the allocatable general-purpose register file:
// positions 0-5 correspond to A, B, C, D, SI, DI (spec.md section 3).
const NumGPRegs = 6

// Scratch0 and Scratch1 are the reserved scratch register positions. The
// emitter uses them for transient staging within a single instruction
// (spec.md sections 4.4-4.8); the allocator must never keep a live value
// pinned there across such an emit.
const (
	Scratch0 = 0
	Scratch1 = 1
)

// IsReg reports whether l names a register rather than a spill slot.
func (l Location) IsReg() bool { return l >= 0 }

// RegIndex returns the register-file position; valid only when IsReg.
func (l Location) RegIndex() int { return int(l) }

// SlotIndex returns the 1-based spill-slot number; valid only when !IsReg.
func (l Location) SlotIndex() int { return -int(l) }

// Allocation is the register-allocator's output: one Location per value ID.
// loc[0] is unused; value ID 0 means "no operand" (spec.md section 3).
type Allocation struct {
	Loc []Location
}

// NewAllocation reserves space for numValues value IDs (IDs 1..numValues-1
// are meaningful, per the Func.NumValues convention in package ir).
func NewAllocation(numValues int) *Allocation {
	loc := make([]Location, numValues)
	for i := range loc {
		loc[i] = Location(Scratch0) // overwritten by the allocator; harmless default
	}
	return &Allocation{Loc: loc}
}

// Get returns the location of value v. v == 0 (ir.NoValue) is invalid to
// query; callers must check for the "no operand" sentinel first.
func (a *Allocation) Get(v int) Location {
	utils.Assert(v > 0 && v < len(a.Loc), "value id %d out of range", v)
	return a.Loc[v]
}

// Set records the location chosen for value v.
func (a *Allocation) Set(v int, loc Location) {
	utils.Assert(v > 0 && v < len(a.Loc), "value id %d out of range", v)
	a.Loc[v] = loc
}

// FrameSlots returns the number of distinct spill slots in use, so the
// driver can size the stack frame (frame offset = slot * pointer_size,
// spec.md section 3).
func (a *Allocation) FrameSlots() int {
	max := 0
	for _, loc := range a.Loc {
		if !loc.IsReg() && loc.SlotIndex() > max {
			max = loc.SlotIndex()
		}
	}
	return max
}
