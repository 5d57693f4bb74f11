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

// Opcode dispatch and the function driver (spec.md section 4.9). A switch
// over the closed ir.Op set, rather than falcon's function-pointer table
// (compile/codegen/asm_x86.go's CodeGen array), so a missing arm is a
// compile error instead of a nil-pointer crash at emit time.
package codegen

import (
	"log"
	"os"

	"vc/compile/ir"
	"vc/compile/regalloc"
	"vc/utils"
)

// Logger receives driver-level progress messages ("func emitted", "frame
// size patched"). Tests may redirect it to capture or silence output.
var Logger = log.New(os.Stderr, "codegen: ", log.LstdFlags)

// dispatch routes one instruction to its emitter. ctx threads the
// in-progress call's argument-marshalling state across consecutive ARG
// instructions and resets on CALL.
func (asm *Assembler) dispatch(in *ir.Instr, ctx *ArgContext) {
	utils.Assert(in.Op.Valid(), "invalid opcode %d reached dispatch", int(in.Op))

	switch in.Op {
	case ir.OpConst:
		asm.emitConst(in)
	case ir.OpLoad:
		asm.emitLoad(in)
	case ir.OpStore:
		asm.emitStore(in)
	case ir.OpLoadParam:
		asm.emitLoadParam(in)
	case ir.OpStoreParam:
		asm.emitStoreParam(in)
	case ir.OpAddr:
		asm.emitAddr(in)
	case ir.OpLoadPtr:
		asm.emitLoadPtr(in)
	case ir.OpStorePtr:
		asm.emitStorePtr(in)
	case ir.OpLoadIdx:
		asm.emitLoadIdx(in)
	case ir.OpStoreIdx:
		asm.emitStoreIdx(in)
	case ir.OpBFLoad:
		asm.emitBFLoad(in)
	case ir.OpBFStore:
		asm.emitBFStore(in)
	case ir.OpArg:
		asm.emitArg(in, ctx)
	case ir.OpGlobString:
		asm.emitGlobString(in)
	case ir.OpGlobWString:
		asm.emitGlobWString(in)

	case ir.OpAdd:
		asm.emitAdd(in)
	case ir.OpSub:
		asm.emitSub(in)
	case ir.OpMul:
		asm.emitMul(in)
	case ir.OpDiv:
		asm.emitDiv(in)
	case ir.OpMod:
		asm.emitMod(in)
	case ir.OpShl:
		asm.emitShl(in)
	case ir.OpShr:
		asm.emitShr(in)
	case ir.OpAnd:
		asm.emitAnd(in)
	case ir.OpOr:
		asm.emitOr(in)
	case ir.OpXor:
		asm.emitXor(in)

	case ir.OpFAdd:
		asm.emitFAdd(in)
	case ir.OpFSub:
		asm.emitFSub(in)
	case ir.OpFMul:
		asm.emitFMul(in)
	case ir.OpFDiv:
		asm.emitFDiv(in)
	case ir.OpLFAdd:
		asm.emitLFAdd(in)
	case ir.OpLFSub:
		asm.emitLFSub(in)
	case ir.OpLFMul:
		asm.emitLFMul(in)
	case ir.OpLFDiv:
		asm.emitLFDiv(in)

	case ir.OpPtrAdd:
		asm.emitPtrAdd(in)
	case ir.OpPtrDiff:
		asm.emitPtrDiff(in)

	case ir.OpCmpEQ:
		asm.emitCmpEQ(in)
	case ir.OpCmpNE:
		asm.emitCmpNE(in)
	case ir.OpCmpLT:
		asm.emitCmpLT(in)
	case ir.OpCmpLE:
		asm.emitCmpLE(in)
	case ir.OpCmpGT:
		asm.emitCmpGT(in)
	case ir.OpCmpGE:
		asm.emitCmpGE(in)

	case ir.OpLogAnd:
		asm.emitLogAnd(in)
	case ir.OpLogOr:
		asm.emitLogOr(in)

	case ir.OpLabel:
		asm.emitLabelInstr(in)
	case ir.OpBr:
		asm.emitBr(in)
	case ir.OpBCond:
		asm.emitBCond(in)
	case ir.OpCall:
		asm.emitCall(in, ctx)
	case ir.OpRet:
		asm.emitRet(in)

	case ir.OpFuncBegin:
		asm.emitPrologue(asm.currentFuncName)
	case ir.OpFuncEnd:
		// The epilogue is emitted per RET, not here; FUNC_END is a plain
		// end-of-body marker.

	case ir.OpGlobVar, ir.OpGlobArray, ir.OpGlobStruct, ir.OpGlobUnion, ir.OpGlobAddr:
		// Data-section-only opcodes: skipped by the code emitter, handled by
		// a data-section emitter that lives outside this package (spec.md
		// section 4.9).

	default:
		utils.Unimplement()
	}
}

// Emit lowers one function's IR body into assembly text at the given
// bitness and syntax. alloc must already hold a location for every value ID
// the function uses (spec.md section 5's end-to-end pipeline: allocate,
// then emit).
func Emit(fn *ir.Func, alloc *regalloc.Allocation, bits int, syntax Syntax) string {
	asm := NewAssembler(bits, syntax)
	asm.alloc = alloc
	asm.currentFuncName = fn.Name

	ctx := &ArgContext{}
	fn.Each(func(in *ir.Instr) {
		asm.dispatch(in, ctx)
	})

	frameBytes := utils.Align16(alloc.FrameSlots() * pointerSize(bits))
	asm.patchFrameSize(frameBytes)
	fn.FrameSize = frameBytes
	Logger.Printf("frame size patched: func=%s bytes=%d", fn.Name, frameBytes)
	Logger.Printf("func emitted: %s", fn.Name)
	return asm.String()
}
