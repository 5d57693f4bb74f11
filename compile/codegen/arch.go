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

// Package codegen lowers the back end's closed IR (package ir) plus a
// register allocation (package regalloc) into x86 assembly text, in either
// 32- or 64-bit mode and either AT&T or Intel syntax. It is adapted from
// falcon's compile/codegen/asm_x86.go and arch_x86.go: same buf-accumulator
// Assembler, same emitN helper shape, same per-mnemonic method set, but
// retargeted from falcon's stack-slot-only "register allocation" to a real
// regalloc.Allocation, and generalized to cover two syntaxes and two
// bitnesses instead of one hardcoded AT&T/x86-64 combination.
//
// Reference:
// https://web.stanford.edu/class/cs107/resources/x86-64-reference.pdf
package codegen

import (
	"vc/compile/regalloc"
	"vc/utils"
)

// Syntax selects the assembly dialect the driver renders.
type Syntax int

const (
	ATT Syntax = iota
	Intel
)

func (s Syntax) String() string {
	if s == Intel {
		return "intel"
	}
	return "att"
}

// gpNames holds the register name for each of the six allocatable GPR
// positions (spec.md section 3: A, B, C, D, SI, DI) at each operand size.
// sizeIndex: 0=byte, 1=word, 2=dword, 3=qword.
var gpNames = [regalloc.NumGPRegs][4]string{
	{"al", "ax", "eax", "rax"},
	{"bl", "bx", "ebx", "rbx"},
	{"cl", "cx", "ecx", "rcx"},
	{"dl", "dx", "edx", "rdx"},
	{"sil", "si", "esi", "rsi"},
	{"dil", "di", "edi", "rdi"},
}

func sizeIndex(bytes int) int {
	switch bytes {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		utils.ShouldNotReachHere()
		return 0
	}
}

// regName returns the assembler name (without syntax-specific decoration)
// of GPR position pos at the given byte size. Callers are responsible for
// never asking for an 8-byte name when targeting 32-bit mode.
func regName(pos int, bytes int) string {
	utils.Assert(pos >= 0 && pos < regalloc.NumGPRegs, "register position %d out of range", pos)
	return gpNames[pos][sizeIndex(bytes)]
}

// stackPointerName and framePointerName vary with target bitness: rsp/rbp
// in 64-bit mode, esp/ebp in 32-bit mode.
func stackPointerName(bits int) string {
	if bits == 64 {
		return "rsp"
	}
	return "esp"
}

func framePointerName(bits int) string {
	if bits == 64 {
		return "rbp"
	}
	return "ebp"
}

// pointerSize is the size in bytes of a machine pointer/word for the target.
func pointerSize(bits int) int {
	if bits == 64 {
		return 8
	}
	return 4
}

// sysVIntArgRegs lists the System-V AMD64 integer/pointer argument register
// names, in order, at each operand size (spec.md section 4.8: rdi, rsi,
// rdx, rcx, r8, r9). These are physical ABI registers, disjoint from the
// six value-location positions in gpNames, so they never collide with a
// register the allocator handed to a live value.
var sysVIntArgRegs = [6][4]string{
	{"dil", "di", "edi", "rdi"},
	{"sil", "si", "esi", "rsi"},
	{"dl", "dx", "edx", "rdx"},
	{"cl", "cx", "ecx", "rcx"},
	{"r8b", "r8w", "r8d", "r8"},
	{"r9b", "r9w", "r9d", "r9"},
}

// xmmArgCount is the number of XMM argument registers available under the
// System-V ABI before falling back to the stack (spec.md section 4.8).
const xmmArgCount = 8
