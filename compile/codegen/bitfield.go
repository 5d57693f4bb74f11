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

// Bit-field emitters: BFLOAD, BFSTORE (spec.md section 4.6).
package codegen

import (
	"vc/compile/ir"
	"vc/compile/regalloc"
)

// bfTempPos is the secondary temp register BFSTORE uses to build the
// shifted/masked field before merging it into the destination word (spec.md
// section 4.6: "the secondary temp register, position C"). It is position
// 2, distinct from the general Scratch0/Scratch1 positions, per the spec's
// own wording.
const bfTempPos = 2

func sizeMaskBits(sz int) uint64 {
	if sz >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(sz*8)) - 1
}

// emitBFLoad implements BFLOAD(name -> dest): load the whole word, shift
// right by shift if non-zero, mask.
func (asm *Assembler) emitBFLoad(in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	bf := ir.DecodeBitField(in.Imm)
	mem := asm.stackOperand(in.Name)

	destLoc := asm.alloc.Get(int(in.Dest))
	var work string
	if destLoc.IsReg() {
		work = asm.reg(regName(destLoc.RegIndex(), sz))
	} else {
		work = asm.reg(scratchName(regalloc.Scratch0, sz))
	}
	asm.mov(sz, mem, work)
	if bf.Shift != 0 {
		asm.shr(sz, asm.imm(int64(bf.Shift)), work)
	}
	asm.and(sz, asm.imm(int64(bf.Mask())), work)
	if !destLoc.IsReg() {
		asm.mov(sz, work, asm.location(in.Dest, sz))
	}
}

// emitBFStore implements BFSTORE(src1 -> name): clear the target bits in
// the destination word, shift/mask the source into a temp, OR them
// together and write the word back.
func (asm *Assembler) emitBFStore(in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	bf := ir.DecodeBitField(in.Imm)
	mem := asm.stackOperand(in.Name)

	clear := (^(bf.Mask() << bf.Shift)) & sizeMaskBits(sz)

	destWord := asm.reg(scratchName(regalloc.Scratch0, sz))
	asm.mov(sz, mem, destWord)
	asm.and(sz, asm.imm(int64(clear)), destWord)

	temp := asm.reg(scratchName(bfTempPos, sz))
	asm.mov(sz, asm.location(in.Src1, sz), temp)
	asm.and(sz, asm.imm(int64(bf.Mask())), temp)
	if bf.Shift != 0 {
		asm.sal(sz, asm.imm(int64(bf.Shift)), temp)
	}

	asm.or(sz, temp, destWord)
	asm.mov(sz, destWord, mem)
}
