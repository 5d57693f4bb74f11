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

package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vc/compile/ir"
	"vc/compile/regalloc"
)

func newTestAsm(bits int, syntax Syntax, numValues int) *Assembler {
	asm := NewAssembler(bits, syntax)
	asm.alloc = regalloc.NewAllocation(numValues)
	asm.currentFuncName = "f"
	return asm
}

func TestRegDecoration(t *testing.T) {
	att := newTestAsm(64, ATT, 1)
	require.Equal(t, "%rax", att.reg("rax"))

	intel := newTestAsm(64, Intel, 1)
	require.Equal(t, "rax", intel.reg("rax"))
}

func TestImmDecoration(t *testing.T) {
	att := newTestAsm(64, ATT, 1)
	require.Equal(t, "$5", att.imm(5))

	intel := newTestAsm(64, Intel, 1)
	require.Equal(t, "5", intel.imm(5))
}

func TestFrameOperand(t *testing.T) {
	att := newTestAsm(64, ATT, 1)
	require.Equal(t, "-16(%rbp)", att.frame(-16))

	intel := newTestAsm(64, Intel, 1)
	require.Equal(t, "[rbp-16]", intel.frame(-16))
	require.Equal(t, "[rbp+8]", intel.frame(8))
}

func TestIndexedOperand(t *testing.T) {
	att := newTestAsm(64, ATT, 1)
	base := att.frame(-8)
	require.Equal(t, "-8(%rbp,%rax,4)", att.indexed(base, "rax", 4))

	intel := newTestAsm(64, Intel, 1)
	ibase := intel.frame(-8)
	require.Equal(t, "[rbp-8+rax*4]", intel.indexed(ibase, "rax", 4))
}

func TestLocationRegVsSpill(t *testing.T) {
	asm := newTestAsm(64, ATT, 3)
	asm.alloc.Set(1, regalloc.Location(4)) // SI
	asm.alloc.Set(2, regalloc.Location(-2))

	require.Equal(t, "%esi", asm.location(ir.Value(1), 4))
	require.Equal(t, "-16(%rbp)", asm.location(ir.Value(2), 8))
}

func TestStackOperandRewritesStackPrefix(t *testing.T) {
	asm := newTestAsm(64, ATT, 1)
	require.Equal(t, "-24(%rbp)", asm.stackOperand(ir.StackName(24)))
	require.Equal(t, "my_symbol", asm.stackOperand("my_symbol"))
}

func TestExtMnemonic(t *testing.T) {
	require.Equal(t, "movsbl", extMnemonic(ir.TChar, false))
	require.Equal(t, "movsbq", extMnemonic(ir.TChar, true))
	require.Equal(t, "movzbl", extMnemonic(ir.TUChar, false))
	require.Equal(t, "movzwq", extMnemonic(ir.TUShort, true))
}

func TestScaleSelection(t *testing.T) {
	n, manual := scale(0, ir.TInt, true)
	require.Equal(t, 4, n)
	require.False(t, manual)

	n, manual = scale(0, ir.TDouble, true)
	require.Equal(t, 8, n)
	require.False(t, manual)

	n, manual = scale(3, ir.TInt, true)
	require.Equal(t, 3, n)
	require.True(t, manual)

	n, manual = scale(0, ir.TLDoubleComplex, true)
	require.Equal(t, 20, n)
	require.True(t, manual)
}

// buildLoadStore constructs: FUNC_BEGIN f; v1 = LOAD "x" (INT); STORE v1 -> "y".
func buildLoadStore() *ir.Func {
	b := ir.NewBuilder("f")
	v1 := b.NewValue()
	b.Instr(ir.OpFuncBegin, ir.NoValue, ir.NoValue, ir.NoValue, 0, "f", ir.TInt)
	b.Instr(ir.OpLoad, v1, ir.NoValue, ir.NoValue, 0, "x", ir.TInt)
	b.Instr(ir.OpStore, ir.NoValue, v1, ir.NoValue, 0, "y", ir.TInt)
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	return b.Finish()
}

func TestEmitLoadStoreRoundTrip(t *testing.T) {
	fn := buildLoadStore()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 64, ATT)

	require.Contains(t, out, "movl x, ")
	require.Contains(t, out, "movl %")
	require.Contains(t, out, ", y")
	require.Contains(t, out, ".globl f")
	require.NotContains(t, out, frameSizePlaceholder)
}

// buildUCharLoadIdx constructs an unsigned-char indexed load: dest = base[i]
// with UCHAR element type, exercising the sub-word extension path through
// LOAD_IDX.
func buildUCharLoadIdx() *ir.Func {
	b := ir.NewBuilder("f")
	idx := b.NewValue()
	dest := b.NewValue()
	b.Instr(ir.OpConst, idx, ir.NoValue, ir.NoValue, 2, "", ir.TInt)
	b.Instr(ir.OpLoadIdx, dest, idx, ir.NoValue, 0, "arr", ir.TUChar)
	b.Instr(ir.OpRet, ir.NoValue, dest, ir.NoValue, 0, "", ir.TUChar)
	return b.Finish()
}

func TestEmitLoadIdxUnsignedCharExtends(t *testing.T) {
	fn := buildUCharLoadIdx()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 64, ATT)
	require.Contains(t, out, "movzbq")
}

// buildBFLoad constructs a bit-field load: width 5, shift 3, out of "bf".
func buildBFLoad() *ir.Func {
	b := ir.NewBuilder("f")
	dest := b.NewValue()
	imm := ir.EncodeBitField(3, 5)
	b.Instr(ir.OpBFLoad, dest, ir.NoValue, ir.NoValue, imm, ir.StackName(-8), ir.TUInt)
	b.Instr(ir.OpRet, ir.NoValue, dest, ir.NoValue, 0, "", ir.TUInt)
	return b.Finish()
}

func TestEmitBFLoadShiftsAndMasks(t *testing.T) {
	fn := buildBFLoad()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 64, ATT)
	require.Contains(t, out, "shr")
	require.Contains(t, out, "$31") // (1<<5)-1 == 31
}

// buildBFStore constructs a bit-field store into "bf" at shift 3, width 5.
func buildBFStore() *ir.Func {
	b := ir.NewBuilder("f")
	src := b.NewValue()
	b.Instr(ir.OpConst, src, ir.NoValue, ir.NoValue, 7, "", ir.TUInt)
	imm := ir.EncodeBitField(3, 5)
	b.Instr(ir.OpBFStore, ir.NoValue, src, ir.NoValue, imm, ir.StackName(-8), ir.TUInt)
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TUInt)
	return b.Finish()
}

func TestEmitBFStoreClearsAndMerges(t *testing.T) {
	fn := buildBFStore()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 64, ATT)
	require.Contains(t, out, "and")
	require.Contains(t, out, "orl ")
	require.Contains(t, out, "sal")
}

// buildArgSequence constructs a call with two integer args, both of which
// fit in System-V argument registers; an ARG beyond the register count is
// not attempted here. This exercises the common register-passed path end
// to end.
func buildArgSequence() *ir.Func {
	b := ir.NewBuilder("f")
	a := b.NewValue()
	c := b.NewValue()
	ret := b.NewValue()
	b.Instr(ir.OpConst, a, ir.NoValue, ir.NoValue, 1, "", ir.TInt)
	b.Instr(ir.OpConst, c, ir.NoValue, ir.NoValue, 2, "", ir.TInt)
	b.Instr(ir.OpArg, ir.NoValue, a, ir.NoValue, 0, "", ir.TInt)
	b.Instr(ir.OpArg, ir.NoValue, c, ir.NoValue, 0, "", ir.TInt)
	b.Instr(ir.OpCall, ret, ir.NoValue, ir.NoValue, 0, "callee", ir.TInt)
	b.Instr(ir.OpRet, ir.NoValue, ret, ir.NoValue, 0, "", ir.TInt)
	return b.Finish()
}

func TestEmitArgSequenceUsesSysVRegisters(t *testing.T) {
	fn := buildArgSequence()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 64, ATT)

	require.Contains(t, out, "%rdi")
	require.Contains(t, out, "%rsi")
	require.Contains(t, out, "call callee")
	require.NotContains(t, out, "push") // both args fit in registers, no stack spill
}

// buildSpilledConstant forces a CONST value to live across enough pressure
// that the allocator spills it, then stores it, exercising the
// spill-through-scratch0 path of emitConst/emitStore.
func buildSpilledConstant() *ir.Func {
	b := ir.NewBuilder("f")
	vals := make([]ir.Value, 6)
	for i := range vals {
		vals[i] = b.NewValue()
		b.Instr(ir.OpConst, vals[i], ir.NoValue, ir.NoValue, int64(i+1), "", ir.TInt)
	}
	for i, v := range vals {
		b.Instr(ir.OpStore, ir.NoValue, v, ir.NoValue, 0, "slot"+string(rune('a'+i)), ir.TInt)
	}
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	return b.Finish()
}

func TestEmitSpilledConstantRoundTripsThroughScratch(t *testing.T) {
	fn := buildSpilledConstant()
	alloc := regalloc.Allocate(fn)
	require.Greater(t, alloc.FrameSlots(), 0)
	out := Emit(fn, alloc, 64, ATT)
	require.True(t, strings.Contains(out, "movl $1") || strings.Contains(out, "movl $2"))
}

func TestEmitIntelSyntaxOperandOrder(t *testing.T) {
	fn := buildLoadStore()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 64, Intel)
	require.Contains(t, out, "mov ")
	require.NotContains(t, out, "%")
	require.NotContains(t, out, "$")
}

func TestEmit32BitUsesEbpEsp(t *testing.T) {
	fn := buildLoadStore()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 32, ATT)
	require.Contains(t, out, "%ebp")
	require.Contains(t, out, "%esp")
	require.NotContains(t, out, "%rbp")
}

// buildLoopWithCmpAndBr constructs a tiny counted loop:
//
//	v1 = CONST 0
//	LABEL L0
//	v2 = CMPLT v1, bound
//	BCOND v2, L0
//	RET
//
// exercising CMPLT's setcc/zero-extend path and BCOND's test/jcc path.
func buildLoopWithCmpAndBr() *ir.Func {
	b := ir.NewBuilder("f")
	v1 := b.NewValue()
	bound := b.NewValue()
	cond := b.NewValue()
	b.Instr(ir.OpConst, v1, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	b.Instr(ir.OpConst, bound, ir.NoValue, ir.NoValue, 10, "", ir.TInt)
	b.Label("L0")
	b.Instr(ir.OpCmpLT, cond, v1, bound, 0, "", ir.TInt)
	b.BCond(cond, "L0")
	b.Instr(ir.OpRet, ir.NoValue, ir.NoValue, ir.NoValue, 0, "", ir.TInt)
	return b.Finish()
}

func TestEmitLoopCmpAndBCond(t *testing.T) {
	fn := buildLoopWithCmpAndBr()
	alloc := regalloc.Allocate(fn)
	out := Emit(fn, alloc, 64, ATT)

	require.Contains(t, out, "cmp")
	require.Contains(t, out, "setl")
	require.Contains(t, out, "test")
	require.Contains(t, out, "jne")
	require.Contains(t, out, ".F0_L0:")
}
