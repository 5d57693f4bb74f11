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
	"fmt"
	"strings"

	"vc/compile/ir"
	"vc/compile/regalloc"
	"vc/utils"
)

// Assembler accumulates assembly text for one function at a time, in the
// style of falcon's compile/codegen/asm_x86.go Assembler: a growable text
// buffer plus a handful of per-function counters, reset between functions
// by the driver (Emit).
type Assembler struct {
	buf strings.Builder

	bits   int    // 32 or 64
	syntax Syntax
	alloc  *regalloc.Allocation

	funcIndex       int
	labelCounter    int
	currentFuncName string
}

// NewAssembler creates an assembler targeting the given bitness and syntax.
func NewAssembler(bits int, syntax Syntax) *Assembler {
	utils.Assert(bits == 32 || bits == 64, "bits must be 32 or 64, got %d", bits)
	return &Assembler{bits: bits, syntax: syntax}
}

func (asm *Assembler) String() string { return asm.buf.String() }

func (asm *Assembler) comment(format string, args ...interface{}) {
	fmt.Fprintf(&asm.buf, "  # %s\n", fmt.Sprintf(format, args...))
}

func (asm *Assembler) raw(format string, args ...interface{}) {
	fmt.Fprintf(&asm.buf, format, args...)
}

// suffix returns the AT&T operand-size suffix for a byte size; Intel syntax
// carries no suffix (the operand itself, or a size directive on memory
// operands, disambiguates width instead).
func (asm *Assembler) suffix(bytes int) string {
	if asm.syntax == Intel {
		return ""
	}
	switch bytes {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	case 8:
		return "q"
	default:
		return ""
	}
}

// emit0 emits a bare mnemonic, no operands.
func (asm *Assembler) emit0(mnemonic string) {
	asm.raw("  %s\n", mnemonic)
}

// emit1 emits a one-operand instruction.
func (asm *Assembler) emit1(mnemonic string, bytes int, operand string) {
	asm.raw("  %s%s %s\n", mnemonic, asm.suffix(bytes), operand)
}

// emit2 emits a two-operand instruction. src/dst are passed in AT&T order
// (source first); Intel output reverses them and drops the suffix, mirroring
// falcon's emit2 (compile/codegen/asm_x86.go) generalized to both syntaxes.
func (asm *Assembler) emit2(mnemonic string, bytes int, src, dst string) {
	if asm.syntax == ATT {
		asm.raw("  %s%s %s, %s\n", mnemonic, asm.suffix(bytes), src, dst)
		return
	}
	asm.raw("  %s %s, %s\n", mnemonic, dst, src)
}

// labelName formats the assembler name of a LABEL/BR/BCOND target as
// ".F<funcIndex>_<name>" (as in falcon's asm.label). Emit builds a fresh
// Assembler for every function and nothing increments funcIndex, so the
// prefix is ".F0_" for every function and does not tell functions apart.
func (asm *Assembler) labelName(name string) string {
	return fmt.Sprintf(".F%d_%s", asm.funcIndex, name)
}

func (asm *Assembler) emitLabel(name string) {
	asm.raw("%s:\n", asm.labelName(name))
}

func (asm *Assembler) mov(bytes int, src, dst string)  { asm.emit2("mov", bytes, src, dst) }
func (asm *Assembler) lea(bytes int, src, dst string)  { asm.emit2("lea", bytes, src, dst) }
func (asm *Assembler) and(bytes int, src, dst string)  { asm.emit2("and", bytes, src, dst) }
func (asm *Assembler) or(bytes int, src, dst string)   { asm.emit2("or", bytes, src, dst) }
func (asm *Assembler) xor(bytes int, src, dst string)  { asm.emit2("xor", bytes, src, dst) }
func (asm *Assembler) add(bytes int, src, dst string)  { asm.emit2("add", bytes, src, dst) }
func (asm *Assembler) sub(bytes int, src, dst string)  { asm.emit2("sub", bytes, src, dst) }
func (asm *Assembler) imul(bytes int, src, dst string) { asm.emit2("imul", bytes, src, dst) }
func (asm *Assembler) sal(bytes int, src, dst string)  { asm.emit2("sal", bytes, src, dst) }
func (asm *Assembler) sar(bytes int, src, dst string)  { asm.emit2("sar", bytes, src, dst) }
func (asm *Assembler) shr(bytes int, src, dst string)  { asm.emit2("shr", bytes, src, dst) }

func (asm *Assembler) push(bytes int, operand string) { asm.emit1("push", bytes, operand) }
func (asm *Assembler) pop(bytes int, operand string)  { asm.emit1("pop", bytes, operand) }
func (asm *Assembler) notOp(bytes int, operand string) { asm.emit1("not", bytes, operand) }

func (asm *Assembler) ret() { asm.emit0("ret") }

// ext emits a sign/zero-extension move (movsbl, movzwq, ...); the mnemonic
// already encodes both operand sizes, so no suffix is appended.
func (asm *Assembler) ext(mnemonic string, src, dst string) {
	asm.emit2(mnemonic, 0, src, dst)
}

// setcc emits setCC into a byte-sized destination, per spec.md's STORE of
// a comparison result.
func (asm *Assembler) setcc(cond ir.Op, dst string) {
	mnemonic := "set" + condSuffix(cond)
	asm.raw("  %s %s\n", mnemonic, dst)
}

// jcc emits the conditional jump matching cond to target label.
func (asm *Assembler) jcc(cond ir.Op, target string) {
	asm.raw("  j%s %s\n", condSuffix(cond), target)
}

// jmp emits an unconditional jump to target label.
func (asm *Assembler) jmp(target string) {
	asm.raw("  jmp %s\n", target)
}

func condSuffix(cond ir.Op) string {
	switch cond {
	case ir.OpCmpEQ:
		return "e"
	case ir.OpCmpNE:
		return "ne"
	case ir.OpCmpLT:
		return "l"
	case ir.OpCmpLE:
		return "le"
	case ir.OpCmpGT:
		return "g"
	case ir.OpCmpGE:
		return "ge"
	default:
		utils.Unimplement()
		return ""
	}
}

// emitPrologue writes the standard push-rbp/mov-rsp,rbp/sub-frame sequence.
// The frame size is a placeholder symbol patched once the whole function
// has been emitted and the allocator's spill-slot count is known (mirrors
// falcon's FrameSize patch in compile/codegen/asm_x86.go).
const frameSizePlaceholder = "VC_FRAME_SIZE"

func (asm *Assembler) emitPrologue(name string) {
	bp := framePointerName(asm.bits)
	sp := stackPointerName(asm.bits)
	asm.raw("  .text\n")
	asm.raw("  .globl %s\n", name)
	asm.raw("%s:\n", name)
	asm.comment("prologue")
	asm.push(pointerSize(asm.bits), asm.reg(bp))
	asm.mov(pointerSize(asm.bits), asm.reg(sp), asm.reg(bp))
	asm.sub(pointerSize(asm.bits), asm.immText(frameSizePlaceholder), asm.reg(sp))
}

func (asm *Assembler) emitEpilogue() {
	bp := framePointerName(asm.bits)
	sp := stackPointerName(asm.bits)
	asm.comment("epilogue")
	asm.add(pointerSize(asm.bits), asm.immText(frameSizePlaceholder), asm.reg(sp))
	asm.pop(pointerSize(asm.bits), asm.reg(bp))
	asm.ret()
}

// immText formats a not-yet-numeric immediate placeholder, decorated like a
// real immediate for the active syntax.
func (asm *Assembler) immText(text string) string {
	if asm.syntax == ATT {
		return "$" + text
	}
	return text
}

// patchFrameSize replaces the frame-size placeholder with the real,
// 16-byte-aligned frame size once every spill slot has been assigned.
func (asm *Assembler) patchFrameSize(frameBytes int) {
	text := asm.buf.String()
	text = strings.ReplaceAll(text, frameSizePlaceholder, fmt.Sprintf("%d", frameBytes))
	asm.buf.Reset()
	asm.buf.WriteString(text)
}
