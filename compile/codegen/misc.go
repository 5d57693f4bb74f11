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

// Misc memory emitters: CONST, ADDR, LOAD_PARAM, STORE_PARAM, GLOB_STRING,
// GLOB_WSTRING (spec.md section 4.7).
package codegen

import (
	"strings"

	"vc/compile/ir"
	"vc/compile/regalloc"
)

// storeComputed calls emit with dest's register as the target, or, if dest
// has no register, with scratch 0 and then spills scratch 0 to dest's slot.
// Shared by CONST, ADDR and the global-string emitters, which all produce
// their value via a single instruction (movX/leaX) rather than a memory read.
func (asm *Assembler) storeComputed(dest ir.Value, sz int, emit func(dst string)) {
	destLoc := asm.alloc.Get(int(dest))
	if destLoc.IsReg() {
		emit(asm.reg(regName(destLoc.RegIndex(), sz)))
		return
	}
	scratch := asm.reg(scratchName(regalloc.Scratch0, sz))
	emit(scratch)
	asm.mov(sz, scratch, asm.location(dest, sz))
}

// emitConst implements CONST: move imm into dest.
func (asm *Assembler) emitConst(in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	src := asm.imm(in.Imm)
	asm.storeComputed(in.Dest, sz, func(dst string) { asm.mov(sz, src, dst) })
}

// emitAddr implements ADDR(name -> dest): a stack-relative name gets a lea
// of its frame operand; any other name is a bare symbol address loaded as
// an immediate.
func (asm *Assembler) emitAddr(in *ir.Instr) {
	ptrBytes := pointerSize(asm.bits)
	if strings.HasPrefix(in.Name, ir.StackNamePrefix) {
		src := asm.stackOperand(in.Name)
		asm.storeComputed(in.Dest, ptrBytes, func(dst string) { asm.lea(ptrBytes, src, dst) })
		return
	}
	src := asm.immText(in.Name)
	asm.storeComputed(in.Dest, ptrBytes, func(dst string) { asm.mov(ptrBytes, src, dst) })
}

// loadSymbolAddr is the shared body of GLOB_STRING/GLOB_WSTRING: take the
// address of a rodata symbol into dest.
func (asm *Assembler) loadSymbolAddr(in *ir.Instr) {
	ptrBytes := pointerSize(asm.bits)
	asm.storeComputed(in.Dest, ptrBytes, func(dst string) { asm.lea(ptrBytes, in.Name, dst) })
}

func (asm *Assembler) emitGlobString(in *ir.Instr)  { asm.loadSymbolAddr(in) }
func (asm *Assembler) emitGlobWString(in *ir.Instr) { asm.loadSymbolAddr(in) }

// paramOffset is the frame offset of parameter index idx: bp + 8 +
// idx*word_size (spec.md section 4.7).
func paramOffset(bits, idx int) int {
	return 8 + idx*pointerSize(bits)
}

// emitLoadParam implements LOAD_PARAM(imm=index -> dest).
func (asm *Assembler) emitLoadParam(in *ir.Instr) {
	mem := asm.frame(paramOffset(asm.bits, int(in.Imm)))
	asm.loadInto(in.Dest, in.Type, mem)
}

// emitStoreParam implements STORE_PARAM(src1, imm=index).
func (asm *Assembler) emitStoreParam(in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	src := asm.valueOperand(in.Src1, sz, regalloc.Scratch0)
	dst := asm.frame(paramOffset(asm.bits, int(in.Imm)))
	asm.mov(sz, src, dst)
}
