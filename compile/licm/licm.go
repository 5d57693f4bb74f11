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

// Package licm implements the restricted loop-invariant-code-motion pass
// of spec.md section 4.10: it recognizes the single flat-loop shape
// `LABEL L; BCOND ...; ...; BR L` (no nested labels) and hoists pure
// instructions whose operands are not defined earlier in the body up above
// the loop header. There is no dominator analysis here and none is
// attempted - that is an explicit, named limitation in the source material,
// not an oversight.
package licm

import (
	"log"
	"os"

	"vc/compile/ir"
)

// Logger receives progress messages ("LICM hoisted N instructions"). Tests
// may redirect it to capture or silence output.
var Logger = log.New(os.Stderr, "licm: ", log.LstdFlags)

// Run mutates fn's instruction list in place, hoisting loop-invariant
// instructions out of every recognized loop body.
func Run(fn *ir.Func) {
	var prevOfLabel *ir.Instr // node preceding the current candidate LABEL, nil if it's fn.Head
	label := fn.Head
	total := 0

	for label != nil {
		if label.Op != ir.OpLabel {
			prevOfLabel = label
			label = label.Next
			continue
		}

		terminator := findTerminator(label)
		if terminator == nil {
			// Not a recognized flat-loop header; move past it.
			prevOfLabel = label
			label = label.Next
			continue
		}

		total += hoistLoop(fn, prevOfLabel, label, terminator)

		prevOfLabel = terminator
		label = terminator.Next
	}

	if total > 0 {
		Logger.Printf("LICM hoisted %d instructions: func=%s", total, fn.Name)
	}
}

// findTerminator scans forward from a LABEL node for the BR that closes a
// flat loop body: the next instruction with op BR whose target equals the
// label's own name, provided no other LABEL appears first. Returns nil if
// the shape doesn't match.
func findTerminator(label *ir.Instr) *ir.Instr {
	for n := label.Next; n != nil; n = n.Next {
		switch n.Op {
		case ir.OpLabel:
			return nil
		case ir.OpBr:
			if n.Name == label.Name {
				return n
			}
		}
	}
	return nil
}

// hoistLoop repeatedly finds and hoists the first loop-invariant instruction
// in the body strictly between label and terminator, restarting the scan
// after each hoist, until a full pass finds nothing left to hoist. Returns
// the number of instructions hoisted.
func hoistLoop(fn *ir.Func, prevOfLabel, label, terminator *ir.Instr) int {
	count := 0
	for {
		defined := map[ir.Value]bool{}
		hoisted := false

		var prev *ir.Instr = label
		for n := label.Next; n != terminator; {
			next := n.Next
			if isInvariant(n, defined) {
				// Splice n out of the body.
				prev.Next = next

				// Insert n immediately before label (after prevOfLabel, or
				// as the new head if label was fn.Head).
				n.Next = label
				if prevOfLabel == nil {
					fn.Head = n
				} else {
					prevOfLabel.Next = n
				}
				prevOfLabel = n

				hoisted = true
				count++
				break
			}

			if n.Dest != ir.NoValue {
				defined[n.Dest] = true
			}
			prev = n
			n = next
		}

		if !hoisted {
			return count
		}
	}
}

// isInvariant reports whether n may be hoisted: its opcode has no
// observable side effect and neither of its source operands was defined
// earlier in the body scanned so far (spec.md section 4.10).
func isInvariant(n *ir.Instr, definedInBody map[ir.Value]bool) bool {
	if !n.Op.Pure() {
		return false
	}
	if n.Src1 != ir.NoValue && definedInBody[n.Src1] {
		return false
	}
	if n.Src2 != ir.NoValue && definedInBody[n.Src2] {
		return false
	}
	return true
}
