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

// Load/store emitters: LOAD, STORE, LOAD_PTR, STORE_PTR, LOAD_IDX, STORE_IDX
// (spec.md sections 4.4 and 4.5). This is the largest single component by
// the original share table, so it gets its own file, mirroring how falcon
// keeps the bulk of its per-opcode emit logic in asm_x86.go.
package codegen

import (
	"vc/compile/ir"
	"vc/compile/regalloc"
)

func wordBytes(x64 bool) int {
	if x64 {
		return 8
	}
	return 4
}

// valueOperand returns a printable operand for value v at the given size:
// its register directly if the allocator placed it in one, otherwise the
// spilled value loaded through scratchPos first (spec.md section 4.5: "x86
// forbids memory-to-memory mov").
func (asm *Assembler) valueOperand(v ir.Value, bytes int, scratchPos int) string {
	loc := asm.alloc.Get(int(v))
	if loc.IsReg() {
		return asm.reg(regName(loc.RegIndex(), bytes))
	}
	scratch := asm.reg(scratchName(scratchPos, bytes))
	asm.mov(bytes, asm.location(v, bytes), scratch)
	return scratch
}

// regOperandBare is valueOperand without syntax decoration, for composing
// into deref()/indexed() which add their own decoration.
func (asm *Assembler) regOperandBare(v ir.Value, bytes int, scratchPos int) string {
	loc := asm.alloc.Get(int(v))
	if loc.IsReg() {
		return regName(loc.RegIndex(), bytes)
	}
	bare := scratchName(scratchPos, bytes)
	asm.mov(bytes, asm.location(v, bytes), asm.reg(bare))
	return bare
}

// loadInto writes the value read from memory operand mem into dest,
// applying the sign/zero-extension rule for sub-word types (spec.md
// section 4.2) and spilling through scratch 0 when dest has no register.
// Shared by LOAD, LOAD_PTR and LOAD_IDX, which differ only in how mem is
// composed.
func (asm *Assembler) loadInto(dest ir.Value, t ir.Type, mem string) {
	x64 := asm.bits == 64
	sz := t.Size(x64)
	destLoc := asm.alloc.Get(int(dest))

	if t.SubWord() {
		wb := wordBytes(x64)
		mnem := extMnemonic(t, x64)
		if destLoc.IsReg() {
			asm.ext(mnem, mem, asm.reg(regName(destLoc.RegIndex(), wb)))
		} else {
			scratch := asm.reg(scratchName(regalloc.Scratch0, wb))
			asm.ext(mnem, mem, scratch)
			asm.mov(wb, scratch, asm.location(dest, wb))
		}
		return
	}

	if destLoc.IsReg() {
		asm.mov(sz, mem, asm.reg(regName(destLoc.RegIndex(), sz)))
	} else {
		scratch := asm.reg(scratchName(regalloc.Scratch0, sz))
		asm.mov(sz, mem, scratch)
		asm.mov(sz, scratch, asm.location(dest, sz))
	}
}

// emitLoad implements spec.md section 4.4's LOAD(name -> dest, type t).
func (asm *Assembler) emitLoad(in *ir.Instr) {
	mem := asm.stackOperand(in.Name)
	asm.loadInto(in.Dest, in.Type, mem)
}

// emitLoadPtr implements LOAD_PTR(src1 -> dest, type t).
func (asm *Assembler) emitLoadPtr(in *ir.Instr) {
	ptrBytes := pointerSize(asm.bits)
	addr := asm.regOperandBare(in.Src1, ptrBytes, regalloc.Scratch0)
	asm.loadInto(in.Dest, in.Type, asm.deref(addr))
}

// emitLoadIdx implements LOAD_IDX(base=name, src1=index -> dest, type t),
// including the index-scale selection of spec.md section 4.3.
func (asm *Assembler) emitLoadIdx(in *ir.Instr) {
	x64 := asm.bits == 64
	ptrBytes := pointerSize(asm.bits)
	sc, manual := scale(in.Imm, in.Type, x64)

	idx := asm.regOperandBare(in.Src1, ptrBytes, regalloc.Scratch0)
	if manual {
		asm.imul(ptrBytes, asm.imm(int64(sc)), asm.reg(idx))
		sc = 1
	}
	base := asm.stackOperand(in.Name)
	mem := asm.indexed(base, idx, sc)
	asm.loadInto(in.Dest, in.Type, mem)
}

// emitStore implements STORE(src1, name, type t).
func (asm *Assembler) emitStore(in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	src := asm.valueOperand(in.Src1, sz, regalloc.Scratch0)
	dst := asm.stackOperand(in.Name)
	asm.mov(sz, src, dst)
}

// emitStorePtr implements STORE_PTR(src1=addr, src2=val, type t), using
// scratch 0 for the address and scratch 1 for the value only when both
// operands need staging (spec.md section 4.5).
func (asm *Assembler) emitStorePtr(in *ir.Instr) {
	x64 := asm.bits == 64
	ptrBytes := pointerSize(asm.bits)
	sz := in.Type.Size(x64)

	addrLoc := asm.alloc.Get(int(in.Src1))
	addrSpilled := !addrLoc.IsReg()
	addr := asm.regOperandBare(in.Src1, ptrBytes, regalloc.Scratch0)

	valScratch := regalloc.Scratch0
	if addrSpilled {
		valScratch = regalloc.Scratch1
	}
	val := asm.valueOperand(in.Src2, sz, valScratch)

	asm.mov(sz, val, asm.deref(addr))
}

// emitStoreIdx implements STORE_IDX(name=base, src1=index, src2=val, type
// t), sharing the scale/manual-multiply rule with LOAD_IDX and the
// disjoint-scratch rule with STORE_PTR.
func (asm *Assembler) emitStoreIdx(in *ir.Instr) {
	x64 := asm.bits == 64
	ptrBytes := pointerSize(asm.bits)
	sz := in.Type.Size(x64)
	sc, manual := scale(in.Imm, in.Type, x64)

	idxLoc := asm.alloc.Get(int(in.Src1))
	idxSpilled := !idxLoc.IsReg()
	idx := asm.regOperandBare(in.Src1, ptrBytes, regalloc.Scratch0)
	if manual {
		asm.imul(ptrBytes, asm.imm(int64(sc)), asm.reg(idx))
		sc = 1
	}
	base := asm.stackOperand(in.Name)
	mem := asm.indexed(base, idx, sc)

	valScratch := regalloc.Scratch0
	if idxSpilled {
		valScratch = regalloc.Scratch1
	}
	val := asm.valueOperand(in.Src2, sz, valScratch)

	asm.mov(sz, val, mem)
}
