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

package scenarios

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vc/compile/codegen"
)

func TestAllScenariosPass(t *testing.T) {
	for _, r := range Run() {
		require.Empty(t, r.Errs, "scenario %q failed: %v", r.Name, r.Errs)
	}
}

func TestDemoBuildsAndEmits(t *testing.T) {
	fn := Demo()
	require.Equal(t, "demo", fn.Name)

	alloc := DemoAllocation(fn)
	out := codegen.Emit(fn, alloc, 64, codegen.ATT)
	require.Contains(t, out, "demo:")
	require.Contains(t, out, "ret")
}

func TestDemoEmitsUnderBothSyntaxesAndBitnesses(t *testing.T) {
	for _, bits := range []int{32, 64} {
		for _, syntax := range []codegen.Syntax{codegen.ATT, codegen.Intel} {
			fn := Demo()
			alloc := DemoAllocation(fn)
			out := codegen.Emit(fn, alloc, bits, syntax)
			require.NotEmpty(t, out)
		}
	}
}
