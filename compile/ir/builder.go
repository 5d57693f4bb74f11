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

// Builder constructs a Func's instruction list in program order. The real
// front end (parser, semantic analysis, the IR-emitting pass) is out of
// scope for this repo (spec.md section 1); Builder is the minimal stand-in
// used by tests and by the demo program in cmd/vc, in the same spirit as
// falcon's NewInstr/NewVReg constructors (compile/codegen/lir.go).
type Builder struct {
	fn   *Func
	tail *Instr
	next Value
}

// NewBuilder starts building a function named name.
func NewBuilder(name string) *Builder {
	return &Builder{
		fn:   &Func{Name: name},
		next: 1,
	}
}

// NewValue allocates a fresh value ID.
func (b *Builder) NewValue() Value {
	v := b.next
	b.next++
	return v
}

// Emit appends in to the function's instruction list and returns it, so
// callers can chain further configuration (mirroring falcon's
// lir.NewInstr(...).comment(...) chaining style).
func (b *Builder) Emit(in *Instr) *Instr {
	if b.fn.Head == nil {
		b.fn.Head = in
	} else {
		b.tail.Next = in
	}
	b.tail = in
	return in
}

// Instr is a convenience constructor for the common case of a single
// opcode with dest/src1/src2/imm/name/type all supplied positionally.
func (b *Builder) Instr(op Op, dest, src1, src2 Value, imm int64, name string, typ Type) *Instr {
	return b.Emit(&Instr{Op: op, Dest: dest, Src1: src1, Src2: src2, Imm: imm, Name: name, Type: typ})
}

// Label emits a LABEL instruction carrying its name in Name.
func (b *Builder) Label(name string) *Instr {
	return b.Instr(OpLabel, NoValue, NoValue, NoValue, 0, name, TInt)
}

// Br emits an unconditional branch to the named label.
func (b *Builder) Br(label string) *Instr {
	return b.Instr(OpBr, NoValue, NoValue, NoValue, 0, label, TInt)
}

// BCond emits a conditional branch guarded by cond, with the destination
// label in Name and Imm left at 0. The branch is taken when cond is
// non-zero, independent of how cond was computed.
func (b *Builder) BCond(cond Value, label string) *Instr {
	return b.Instr(OpBCond, NoValue, cond, NoValue, 0, label, TInt)
}

// Finish returns the built function. StackName formats the reserved
// "stack:<N>" operand name (spec.md section 6).
func (b *Builder) Finish() *Func {
	b.fn.NumValues = int(b.next)
	return b.fn
}

// StackName formats the reserved stack-relative operand name.
func StackName(offset int) string {
	return fmt.Sprintf("%s%d", StackNamePrefix, offset)
}
