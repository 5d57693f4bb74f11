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

// Argument emitter (spec.md section 4.8) and CALL/RET lowering. The
// original falcon back end tracks per-call state (arg_stack_bytes,
// arg_reg_idx, float_reg_idx) as assembler-global counters; here they are
// threaded explicitly through an ArgContext value instead, per the spec's
// own design note that re-implementations should avoid process-wide
// variables for this state.
package codegen

import (
	"fmt"

	"vc/compile/ir"
	"vc/compile/regalloc"
)

// ArgContext carries the running state of one call's argument marshalling:
// how many integer and XMM argument registers have been consumed, and how
// many bytes have been pushed on the stack so the caller can restore it
// after the call (spec.md section 4.8).
type ArgContext struct {
	IntRegIdx   int
	FloatRegIdx int
	StackBytes  int
}

// Reset clears the context for a fresh call sequence.
func (c *ArgContext) Reset() { c.IntRegIdx, c.FloatRegIdx, c.StackBytes = 0, 0, 0 }

// emitArg implements ARG(src1, type) per spec.md section 4.8's six-way
// classification.
func (asm *Assembler) emitArg(in *ir.Instr, ctx *ArgContext) {
	x64 := asm.bits == 64
	t := in.Type
	sz := t.Size(x64)
	sp := asm.reg(stackPointerName(asm.bits))
	ptrBytes := pointerSize(asm.bits)

	if x64 && !t.IsFloatFamily() {
		if ctx.IntRegIdx < len(sysVIntArgRegs) {
			dst := asm.reg(sysVIntArgRegs[ctx.IntRegIdx][sizeIndex(ptrBytes)])
			src := asm.valueOperand(in.Src1, ptrBytes, regalloc.Scratch0)
			asm.mov(ptrBytes, src, dst)
			ctx.IntRegIdx++
			return
		}
	} else if x64 && (t == ir.TFloat || t == ir.TDouble) {
		if ctx.FloatRegIdx < xmmArgCount {
			mnem := "movd"
			if t == ir.TDouble {
				mnem = "movq"
			}
			xmm := asm.reg(fmt.Sprintf("xmm%d", ctx.FloatRegIdx))
			src := asm.valueOperand(in.Src1, sz, regalloc.Scratch0)
			asm.emit2(mnem, 0, src, xmm)
			ctx.FloatRegIdx++
			return
		}
	}

	switch t {
	case ir.TFloat:
		asm.sub(ptrBytes, asm.imm(4), sp)
		src := asm.valueOperand(in.Src1, 4, regalloc.Scratch0)
		asm.emit2("movd", 0, src, asm.reg("xmm0"))
		asm.emit2("movss", 0, asm.reg("xmm0"), asm.deref(stackPointerName(asm.bits)))
		ctx.StackBytes += 4
	case ir.TDouble:
		asm.sub(ptrBytes, asm.imm(8), sp)
		src := asm.valueOperand(in.Src1, 8, regalloc.Scratch0)
		asm.emit2("movq", 0, src, asm.reg("xmm0"))
		asm.emit2("movsd", 0, asm.reg("xmm0"), asm.deref(stackPointerName(asm.bits)))
		ctx.StackBytes += 8
	case ir.TLDouble:
		ldSize := t.Size(x64)
		asm.sub(ptrBytes, asm.imm(int64(ldSize)), sp)
		src := asm.location(in.Src1, sz)
		asm.emit1("fldt", 0, src)
		asm.emit1("fstpt", 0, asm.deref(stackPointerName(asm.bits)))
		ctx.StackBytes += ldSize
	default:
		src := asm.valueOperand(in.Src1, sz, regalloc.Scratch0)
		asm.push(sz, src)
		ctx.StackBytes += ptrBytes
	}
}

// emitCall implements CALL: invoke the target, restore the stack by the
// bytes ARG pushed, move the return value (conventionally register
// position 0 - A) into dest if present, and reset ctx for the next call
// sequence.
func (asm *Assembler) emitCall(in *ir.Instr, ctx *ArgContext) {
	asm.raw("  call %s\n", in.Name)
	if ctx.StackBytes > 0 {
		asm.add(pointerSize(asm.bits), asm.imm(int64(ctx.StackBytes)), asm.reg(stackPointerName(asm.bits)))
	}
	if in.Dest != ir.NoValue {
		x64 := asm.bits == 64
		sz := in.Type.Size(x64)
		destLoc := asm.alloc.Get(int(in.Dest))
		retReg := asm.reg(regName(regalloc.Scratch0, sz))
		if !destLoc.IsReg() {
			asm.mov(sz, retReg, asm.location(in.Dest, sz))
		} else if destLoc.RegIndex() != regalloc.Scratch0 {
			asm.mov(sz, retReg, asm.reg(regName(destLoc.RegIndex(), sz)))
		}
	}
	ctx.Reset()
}

// emitRet implements RET: move src1 (if any) into the return register,
// then run the epilogue.
func (asm *Assembler) emitRet(in *ir.Instr) {
	if in.Src1 != ir.NoValue {
		x64 := asm.bits == 64
		sz := in.Type.Size(x64)
		asm.mov(sz, asm.location(in.Src1, sz), asm.reg(regName(regalloc.Scratch0, sz)))
	}
	asm.emitEpilogue()
}
