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

package scenarios

import (
	"vc/compile/ir"
	"vc/compile/regalloc"
)

// Demo builds a small, self-contained IR function with a mix of loads,
// arithmetic and a loop, for `vc emit` to lower end to end without needing
// a real front end (spec.md section 1 scopes parsing/semantic analysis out
// of this repo).
//
// Sketch: add the first parameter to an accumulator once per iteration of a
// loop that counts the second parameter down to zero, then return the
// accumulator.
func Demo() *ir.Func {
	b := ir.NewBuilder("demo")
	b.Instr(ir.OpFuncBegin, ir.NoValue, ir.NoValue, ir.NoValue, 0, "demo", ir.TInt)

	a := b.NewValue()
	c := b.NewValue()
	b.Instr(ir.OpLoadParam, a, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	b.Instr(ir.OpLoadParam, c, ir.NoValue, ir.NoValue, 1, "", ir.TInt)

	sum := b.NewValue()
	zero := b.NewValue()
	b.Instr(ir.OpConst, zero, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	b.Instr(ir.OpConst, sum, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	b.Instr(ir.OpStore, ir.NoValue, sum, ir.NoValue, 0, ir.StackName(0), ir.TInt)
	b.Instr(ir.OpStore, ir.NoValue, c, ir.NoValue, 0, ir.StackName(1), ir.TInt)

	b.Label("LOOP")
	curSum := b.NewValue()
	curCount := b.NewValue()
	b.Instr(ir.OpLoad, curSum, ir.NoValue, ir.NoValue, 0, ir.StackName(0), ir.TInt)
	b.Instr(ir.OpLoad, curCount, ir.NoValue, ir.NoValue, 0, ir.StackName(1), ir.TInt)

	nextSum := b.NewValue()
	b.Instr(ir.OpAdd, nextSum, curSum, a, 0, "", ir.TInt)
	b.Instr(ir.OpStore, ir.NoValue, nextSum, ir.NoValue, 0, ir.StackName(0), ir.TInt)

	one := b.NewValue()
	b.Instr(ir.OpConst, one, ir.NoValue, ir.NoValue, 1, "", ir.TInt)
	nextCount := b.NewValue()
	b.Instr(ir.OpSub, nextCount, curCount, one, 0, "", ir.TInt)
	b.Instr(ir.OpStore, ir.NoValue, nextCount, ir.NoValue, 0, ir.StackName(1), ir.TInt)

	done := b.NewValue()
	b.Instr(ir.OpCmpEQ, done, nextCount, zero, 0, "", ir.TInt)
	b.BCond(done, "DONE")
	b.Br("LOOP")

	b.Label("DONE")
	result := b.NewValue()
	b.Instr(ir.OpLoad, result, ir.NoValue, ir.NoValue, 0, ir.StackName(0), ir.TInt)
	b.Instr(ir.OpRet, ir.NoValue, result, ir.NoValue, 0, "", ir.TInt)

	return b.Finish()
}

// DemoAllocation runs the linear-scan allocator over Demo's function.
func DemoAllocation(fn *ir.Func) *regalloc.Allocation {
	return regalloc.Allocate(fn)
}
