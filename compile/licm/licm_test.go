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

package licm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vc/compile/ir"
)

// buildHoistableLoop constructs the flat `LABEL L; BCOND ...; ...; BR L`
// shape:
//
//	v1, v2 = CONST 1, CONST 2      (outside the loop)
//	LABEL L0
//	v3 = ADD v1, v2                (invariant: both operands defined before L0)
//	v4 = CMPLT v3, v1
//	BCOND v4, "OUT"                (early exit, not the back-edge)
//	BR L0                          (unconditional back-edge closing the pattern)
//	LABEL OUT
//	RET
func buildHoistableLoop() (*ir.Func, ir.Value /*add dest*/) {
	b := ir.NewBuilder("f")
	outer1 := b.NewValue()
	outer2 := b.NewValue()
	b.Instr(ir.OpConst, outer1, ir.NoValue, ir.NoValue, 1, "", ir.TInt)
	b.Instr(ir.OpConst, outer2, ir.NoValue, ir.NoValue, 2, "", ir.TInt)

	b.Label("L0")
	sum := b.NewValue()
	b.Instr(ir.OpAdd, sum, outer1, outer2, 0, "", ir.TInt)
	cond := b.NewValue()
	b.Instr(ir.OpCmpLT, cond, sum, outer1, 0, "", ir.TInt)
	b.BCond(cond, "OUT")
	b.Br("L0")
	b.Label("OUT")
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	return b.Finish(), sum
}

func TestHoistsPureAddAboveHeader(t *testing.T) {
	fn, sumValue := buildHoistableLoop()
	Run(fn)

	ops := fn.Slice()
	labelIdx, addIdx := -1, -1
	for i, in := range ops {
		if in.Op == ir.OpLabel && in.Name == "L0" && labelIdx == -1 {
			labelIdx = i
		}
		if in.Op == ir.OpAdd && in.Dest == sumValue {
			addIdx = i
		}
	}
	require.NotEqual(t, -1, labelIdx)
	require.NotEqual(t, -1, addIdx)
	require.Less(t, addIdx, labelIdx, "the ADD should have been hoisted above LABEL L0")
}

// buildNonHoistableLoop constructs a loop where the ADD reads a value
// ("acc") defined earlier in the same body, so it must stay put.
func buildNonHoistableLoop() *ir.Func {
	// The accumulator lives in a stack slot; each iteration's LOAD is
	// impure (so it can never itself be hoisted) and its result feeds the
	// ADD, which is therefore permanently body-local - unlike a pure CONST
	// feeding an ADD, which would itself hoist and drag the ADD out with it.
	b := ir.NewBuilder("f")
	bound := b.NewValue()
	b.Instr(ir.OpConst, bound, ir.NoValue, ir.NoValue, 10, "", ir.TInt)

	b.Label("L0")
	acc := b.NewValue()
	b.Instr(ir.OpLoad, acc, ir.NoValue, ir.NoValue, 0, ir.StackName(0), ir.TInt)
	next := b.NewValue()
	b.Instr(ir.OpAdd, next, acc, bound, 0, "", ir.TInt)
	b.Instr(ir.OpStore, ir.NoValue, next, ir.NoValue, 0, ir.StackName(0), ir.TInt)
	cond := b.NewValue()
	b.Instr(ir.OpCmpLT, cond, next, bound, 0, "", ir.TInt)
	b.BCond(cond, "OUT")
	b.Br("L0")
	b.Label("OUT")
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	return b.Finish()
}

func TestDoesNotHoistWhenOperandDefinedInBody(t *testing.T) {
	fn := buildNonHoistableLoop()
	before := len(fn.Slice())
	Run(fn)
	after := fn.Slice()

	require.Equal(t, before, len(after), "pass must not add or drop instructions")

	labelIdx, addIdx := -1, -1
	for i, in := range after {
		if in.Op == ir.OpLabel && in.Name == "L0" && labelIdx == -1 {
			labelIdx = i
		}
		if in.Op == ir.OpAdd {
			addIdx = i
		}
	}
	require.Greater(t, addIdx, labelIdx, "the ADD reads a body-local value and must stay inside the loop")
}

func TestNoLoopShapeIsANoOp(t *testing.T) {
	b := ir.NewBuilder("f")
	v1 := b.NewValue()
	v2 := b.NewValue()
	v3 := b.NewValue()
	b.Instr(ir.OpConst, v1, ir.NoValue, ir.NoValue, 1, "", ir.TInt)
	b.Instr(ir.OpConst, v2, ir.NoValue, ir.NoValue, 2, "", ir.TInt)
	b.Instr(ir.OpAdd, v3, v1, v2, 0, "", ir.TInt)
	b.Instr(ir.OpRet, ir.NoValue, v3, ir.NoValue, 0, "", ir.TInt)
	fn := b.Finish()

	before := fn.Slice()
	Run(fn)
	after := fn.Slice()

	require.Equal(t, len(before), len(after))
	for i := range before {
		require.Equal(t, before[i], after[i])
	}
}

func TestNestedLabelPreventsHoisting(t *testing.T) {
	// LABEL L0; LABEL L1; ADD (invariant-looking); BCOND ...; BR L0; ...
	// The intervening LABEL L1 means this isn't the simple flat shape (no
	// BR closes L0 before another LABEL appears), so the pass must leave
	// the whole thing untouched.
	b := ir.NewBuilder("f")
	outer1 := b.NewValue()
	outer2 := b.NewValue()
	b.Instr(ir.OpConst, outer1, ir.NoValue, ir.NoValue, 1, "", ir.TInt)
	b.Instr(ir.OpConst, outer2, ir.NoValue, ir.NoValue, 2, "", ir.TInt)

	b.Label("L0")
	b.Label("L1")
	sum := b.NewValue()
	b.Instr(ir.OpAdd, sum, outer1, outer2, 0, "", ir.TInt)
	cond := b.NewValue()
	b.Instr(ir.OpCmpLT, cond, outer1, sum, 0, "", ir.TInt)
	b.BCond(cond, "OUT")
	b.Br("L0")
	b.Label("OUT")
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	fn := b.Finish()

	before := fn.Slice()
	Run(fn)
	after := fn.Slice()
	require.Equal(t, len(before), len(after))
	for i := range before {
		require.Equal(t, before[i].Op, after[i].Op)
	}
}
