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

package ir

import "fmt"

// Value names an IR temporary. 0 means "no operand" (spec.md section 3).
type Value int

// NoValue is the sentinel for an absent source/destination operand.
const NoValue Value = 0

// StackNamePrefix marks a name as a frame-pointer-relative operand rather
// than a symbol, e.g. "stack:16" denotes -16(%rbp)/[rbp-16] (spec.md
// section 6, "Named special operand").
const StackNamePrefix = "stack:"

// Instr is one IR instruction. It is a three-address-ish record: Dest is
// the result (if any), Src1/Src2 are operands, Imm/Name carry opcode-
// specific payload, and Next threads the singly-linked per-function list
// (spec.md section 3).
type Instr struct {
	Op   Op
	Dest Value
	Src1 Value
	Src2 Value
	Imm  int64
	Name string
	Type Type
	Next *Instr
}

func (in *Instr) String() string {
	return fmt.Sprintf("%s dest=%d src1=%d src2=%d imm=%d name=%q type=%s",
		in.Op, in.Dest, in.Src1, in.Src2, in.Imm, in.Name, in.Type)
}

// BitField packs/unpacks the BFLOAD/BFSTORE Imm encoding: imm = (shift<<32)
// | width (spec.md section 4.6).
type BitField struct {
	Shift uint
	Width uint
}

// EncodeBitField packs (shift, width) into the Imm representation.
func EncodeBitField(shift, width uint) int64 {
	return int64(shift)<<32 | int64(width)
}

// DecodeBitField unpacks an Imm value produced by EncodeBitField.
func DecodeBitField(imm int64) BitField {
	return BitField{
		Shift: uint(uint64(imm) >> 32),
		Width: uint(uint64(imm) & 0xFFFFFFFF),
	}
}

// Mask returns the bit-field mask for a width, per spec.md section 4.6:
// all-ones for width==64, else (1<<width)-1.
func (bf BitField) Mask() uint64 {
	if bf.Width == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bf.Width) - 1
}

// Func is a single compiled function: its name and the head of its
// singly-linked IR instruction list. FrameSize is patched in once the
// register allocator (or, in our simplified allocator, compile/regalloc)
// has assigned every spill slot.
type Func struct {
	Name      string
	Head      *Instr
	FrameSize int
	NumValues int // 1 + highest value ID used, for sizing allocator tables
}

// Each calls f for every instruction in program order.
func (fn *Func) Each(f func(*Instr)) {
	for in := fn.Head; in != nil; in = in.Next {
		f(in)
	}
}

// Slice materializes the linked list into a slice, useful for passes (like
// LICM) that need random access or to re-walk from a saved position.
func (fn *Func) Slice() []*Instr {
	var out []*Instr
	fn.Each(func(in *Instr) { out = append(out, in) })
	return out
}
