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

package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vc/compile/ir"
)

func TestLocationRegVsSlot(t *testing.T) {
	reg := Location(3)
	require.True(t, reg.IsReg())
	require.Equal(t, 3, reg.RegIndex())

	slot := Location(-2)
	require.False(t, slot.IsReg())
	require.Equal(t, 2, slot.SlotIndex())
}

func TestAllocationGetSet(t *testing.T) {
	a := NewAllocation(4)
	a.Set(1, Location(2))
	a.Set(2, Location(-1))
	require.Equal(t, Location(2), a.Get(1))
	require.Equal(t, Location(-1), a.Get(2))
	require.Equal(t, 1, a.FrameSlots())
}

// buildLinear constructs v1 = CONST 1; v2 = CONST 2; v3 = ADD v1, v2; RET v3,
// a straight-line function with no overlapping lifetimes worth spilling.
func buildLinear() *ir.Func {
	b := ir.NewBuilder("f")
	v1 := b.NewValue()
	v2 := b.NewValue()
	v3 := b.NewValue()
	b.Instr(ir.OpConst, v1, ir.NoValue, ir.NoValue, 1, "", ir.TInt)
	b.Instr(ir.OpConst, v2, ir.NoValue, ir.NoValue, 2, "", ir.TInt)
	b.Instr(ir.OpAdd, v3, v1, v2, 0, "", ir.TInt)
	b.Instr(ir.OpRet, ir.NoValue, v3, ir.NoValue, 0, "", ir.TInt)
	return b.Finish()
}

func TestAllocateAssignsDistinctRegistersWhenLive(t *testing.T) {
	fn := buildLinear()
	alloc := Allocate(fn)

	// v1 and v2 are both live across the ADD that consumes them, so they
	// must not share a location.
	require.NotEqual(t, alloc.Get(1), alloc.Get(2))
	// None of the allocator's choices may land on a reserved scratch slot.
	for v := 1; v < fn.NumValues; v++ {
		loc := alloc.Get(v)
		if loc.IsReg() {
			require.NotEqual(t, Scratch0, loc.RegIndex())
			require.NotEqual(t, Scratch1, loc.RegIndex())
		}
	}
}

// buildManyLive constructs more simultaneously-live values than there are
// allocatable registers, forcing at least one spill.
func buildManyLive() *ir.Func {
	b := ir.NewBuilder("f")
	vals := make([]ir.Value, 6)
	for i := range vals {
		vals[i] = b.NewValue()
		b.Instr(ir.OpConst, vals[i], ir.NoValue, ir.NoValue, int64(i), "", ir.TInt)
	}
	sum := b.NewValue()
	cur := vals[0]
	for i := 1; i < len(vals); i++ {
		next := sum
		if i < len(vals)-1 {
			next = b.NewValue()
		}
		b.Instr(ir.OpAdd, next, cur, vals[i], 0, "", ir.TInt)
		cur = next
	}
	b.Instr(ir.OpRet, ir.NoValue, cur, ir.NoValue, 0, "", ir.TInt)
	return b.Finish()
}

func TestAllocateSpillsWhenOutOfRegisters(t *testing.T) {
	fn := buildManyLive()
	alloc := Allocate(fn)

	spilled := 0
	for v := 1; v < fn.NumValues; v++ {
		if !alloc.Get(v).IsReg() {
			spilled++
		}
	}
	require.Greater(t, spilled, 0, "expected at least one spill with 6 simultaneously live values")
	require.Greater(t, alloc.FrameSlots(), 0)
}

func TestSuccessorsFollowsControlFlow(t *testing.T) {
	b := ir.NewBuilder("f")
	b.Label("L0")
	cond := b.NewValue()
	b.Instr(ir.OpConst, cond, ir.NoValue, ir.NoValue, 1, "", ir.TInt)
	b.BCond(cond, "L0")
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	fn := b.Finish()

	instrs := fn.Slice()
	labelPos := map[string]int{"L0": 0}
	succ := successors(instrs, 2, labelPos) // the BCOND instruction
	require.ElementsMatch(t, []int{0, 3}, succ)

	require.Nil(t, successors(instrs, 3, labelPos)) // RET has no successors
}
