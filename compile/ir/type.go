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

// Type tags every value-producing instruction, driving operand size,
// suffix, sign/zero-extension and index-scale selection (spec.md sections
// 4.2 and 4.3).
type Type int

const (
	TChar Type = iota
	TUChar
	TBool
	TShort
	TUShort
	TInt
	TUInt
	TLLong
	TULLong
	TFloat
	TDouble
	TLDouble
	TFloatComplex
	TDoubleComplex
	TLDoubleComplex
	TPtr
	TArray
	TStruct
	TUnion
)

func (t Type) String() string {
	names := [...]string{
		"CHAR", "UCHAR", "BOOL", "SHORT", "USHORT", "INT", "UINT",
		"LLONG", "ULLONG", "FLOAT", "DOUBLE", "LDOUBLE",
		"FLOAT_COMPLEX", "DOUBLE_COMPLEX", "LDOUBLE_COMPLEX",
		"PTR", "ARRAY", "STRUCT", "UNION",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return "<bad type>"
	}
	return names[t]
}

// Signed reports whether t sign-extends on a sub-word load. CHAR and SHORT
// are signed (plain char is treated as signed, per spec.md section 4.2);
// UCHAR/USHORT/BOOL zero-extend.
func (t Type) Signed() bool {
	switch t {
	case TChar, TShort:
		return true
	default:
		return false
	}
}

// SubWord reports whether t is narrower than a machine word and therefore
// needs a sign/zero-extension mnemonic rather than a plain mov on load.
func (t Type) SubWord() bool {
	switch t {
	case TChar, TUChar, TBool, TShort, TUShort:
		return true
	default:
		return false
	}
}

// Size returns the byte size used to pick the suffix table in Suffix, per
// spec.md section 4.2. x64 selects the 8-byte row for LLONG/ULLONG/DOUBLE/
// PTR/FLOAT_COMPLEX; the 32-bit target keeps those at 4 bytes.
func (t Type) Size(x64 bool) int {
	switch t {
	case TChar, TUChar, TBool:
		return 1
	case TShort, TUShort:
		return 2
	case TInt, TUInt, TFloat:
		return 4
	case TLLong, TULLong, TDouble, TFloatComplex:
		if x64 {
			return 8
		}
		return 4
	case TPtr:
		if x64 {
			return 8
		}
		return 4
	case TLDouble:
		return 10
	case TDoubleComplex:
		return 16
	case TLDoubleComplex:
		return 20
	default:
		return 0
	}
}

// Suffix returns the AT&T operand-size letter for t (spec.md section 4.2).
func (t Type) Suffix(x64 bool) string {
	switch t.Size(x64) {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	case 8:
		return "q"
	default:
		// 10/16/20-byte operands (long double, complex) are never moved
		// with a plain mov<suffix>; callers special-case them.
		return ""
	}
}

// IsFloatFamily reports whether t is a scalar floating-point type routed
// through XMM/x87 rather than a GPR.
func (t Type) IsFloatFamily() bool {
	switch t {
	case TFloat, TDouble, TLDouble:
		return true
	default:
		return false
	}
}
