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

// Control-flow emitters: LABEL, BR, BCOND. FUNC_BEGIN/FUNC_END are handled
// by the driver (dispatch.go), which owns the prologue/epilogue, not by a
// per-opcode emitter here.
package codegen

import (
	"vc/compile/ir"
	"vc/compile/regalloc"
)

func (asm *Assembler) emitLabelInstr(in *ir.Instr) {
	asm.emitLabel(in.Name)
}

func (asm *Assembler) emitBr(in *ir.Instr) {
	asm.jmp(asm.labelName(in.Name))
}

// emitBCond implements BCOND(src1, name): branch to name when src1 is
// non-zero, fall through otherwise. The IR carries no separate condition
// code the way CMPxx does for setcc - BCOND tests a value already produced
// by a prior comparison (or any other boolean-valued instruction).
func (asm *Assembler) emitBCond(in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	if sz == 0 {
		sz = wordBytes(x64)
	}
	val := asm.valueOperand(in.Src1, sz, regalloc.Scratch0)
	asm.emit2("test", sz, val, val)
	asm.jcc(ir.OpCmpNE, asm.labelName(in.Name))
}
