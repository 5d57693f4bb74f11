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

package regalloc

import (
	"sort"

	"vc/compile/ir"
	"vc/utils"
)

// allocatable lists the register positions the allocator itself is willing
// to hand out. Positions Scratch0/Scratch1 are left permanently free so the
// emitter can always use them transiently without consulting this pass -
// a conservative simplification of the general contract (which only
// requires the allocator not hold a live value there across a clobbering
// emit), made so this allocator's correctness doesn't depend on knowing
// which emits clobber scratch.
var allocatable = []int{2, 3, 4, 5}

// defUse returns the value in defined (0 if none) and the values it reads.
// Every opcode follows the same Dest/Src1/Src2 convention (spec.md section
// 3), so this is deliberately opcode-agnostic.
func defUse(in *ir.Instr) (def ir.Value, uses []ir.Value) {
	var u []ir.Value
	if in.Src1 != ir.NoValue {
		u = append(u, in.Src1)
	}
	if in.Src2 != ir.NoValue {
		u = append(u, in.Src2)
	}
	return in.Dest, u
}

// successors returns the indices control may flow to after instruction i,
// given the closed instruction-list cfg of LABEL/BR/BCOND/RET (spec.md
// section 3). labelPos maps a label name to its instruction index.
func successors(instrs []*ir.Instr, i int, labelPos map[string]int) []int {
	in := instrs[i]
	switch in.Op {
	case ir.OpBr:
		if target, ok := labelPos[in.Name]; ok {
			return []int{target}
		}
		return nil
	case ir.OpBCond:
		var out []int
		if target, ok := labelPos[in.Name]; ok {
			out = append(out, target)
		}
		if i+1 < len(instrs) {
			out = append(out, i+1)
		}
		return out
	case ir.OpRet:
		return nil
	default:
		if i+1 < len(instrs) {
			return []int{i + 1}
		}
		return nil
	}
}

// liveness runs the classic backward gen/kill fixpoint over the
// instruction-level cfg, returning per-instruction live-out sets. Adapted
// from falcon's computeGenKillMap/computeLiveInOutMap (compile/codegen/
// lsra.go), generalized from falcon's basic-block granularity to
// instruction granularity since this IR has no separate block structure.
func liveness(instrs []*ir.Instr, numValues int) (liveIn, liveOut []*utils.BitMap) {
	n := len(instrs)
	liveIn = make([]*utils.BitMap, n)
	liveOut = make([]*utils.BitMap, n)
	gen := make([]*utils.BitMap, n)
	kill := make([]*utils.BitMap, n)
	labelPos := map[string]int{}
	for i, in := range instrs {
		if in.Op == ir.OpLabel {
			labelPos[in.Name] = i
		}
	}
	for i, in := range instrs {
		liveIn[i] = utils.NewBitMap(numValues)
		liveOut[i] = utils.NewBitMap(numValues)
		gen[i] = utils.NewBitMap(numValues)
		kill[i] = utils.NewBitMap(numValues)
		def, uses := defUse(in)
		for _, u := range uses {
			gen[i].Set(int(u))
		}
		if def != ir.NoValue {
			kill[i].Set(int(def))
		}
	}

	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			out := utils.NewBitMap(numValues)
			for _, s := range successors(instrs, i, labelPos) {
				out.Unite(liveIn[s])
			}
			if liveOut[i].SetFrom(out) {
				changed = true
			}
			in := out.Copy()
			in.Remove(kill[i])
			in.Unite(gen[i])
			if liveIn[i].SetFrom(in) {
				changed = true
			}
		}
	}
	return liveIn, liveOut
}

// interval is a value's live range, expressed as the closed instruction
// index range [start, end] (both inclusive) over which it must hold a
// location. Adapted from falcon's Interval type (compile/codegen/lsra.go),
// simplified to a single contiguous range per value - adequate here since
// liveness already propagates a loop-carried value's range across the
// whole loop body via the cfg fixpoint above.
type interval struct {
	value ir.Value
	start int
	end   int
}

func buildIntervals(instrs []*ir.Instr, liveOut []*utils.BitMap, numValues int) []*interval {
	iv := make(map[ir.Value]*interval)
	touch := func(v ir.Value, pos int) {
		if cur, ok := iv[v]; ok {
			if pos < cur.start {
				cur.start = pos
			}
			if pos > cur.end {
				cur.end = pos
			}
			return
		}
		iv[v] = &interval{value: v, start: pos, end: pos}
	}
	for i, in := range instrs {
		def, uses := defUse(in)
		if def != ir.NoValue {
			touch(def, i)
		}
		for _, u := range uses {
			touch(u, i)
		}
		for v := 1; v < numValues; v++ {
			if liveOut[i].IsSet(v) {
				touch(ir.Value(v), i)
			}
		}
	}
	out := make([]*interval, 0, len(iv))
	for _, v := range iv {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// Allocate runs the simplified linear-scan allocator over fn and returns
// the resulting Allocation (spec.md section 3). Values that outlive the
// four allocatable positions spill to a stack slot; spill-slot numbering
// starts at 1 so slot*pointer_size never collides with offset 0.
func Allocate(fn *ir.Func) *Allocation {
	instrs := fn.Slice()
	_, liveOut := liveness(instrs, fn.NumValues)
	intervals := buildIntervals(instrs, liveOut, fn.NumValues)

	alloc := NewAllocation(fn.NumValues)
	type active struct {
		iv  *interval
		pos int
	}
	var activeList []active
	free := map[int]bool{}
	for _, p := range allocatable {
		free[p] = true
	}
	nextSlot := 1

	expire := func(start int) {
		kept := activeList[:0]
		for _, a := range activeList {
			if a.iv.end < start {
				free[a.pos] = true
			} else {
				kept = append(kept, a)
			}
		}
		activeList = kept
	}

	for _, cur := range intervals {
		expire(cur.start)

		assigned := -1
		for _, p := range allocatable {
			if free[p] {
				assigned = p
				break
			}
		}
		if assigned >= 0 {
			free[assigned] = false
			activeList = append(activeList, active{iv: cur, pos: assigned})
			alloc.Set(int(cur.value), Location(assigned))
			continue
		}

		// No free register: spill whichever of the active intervals (or
		// cur itself) ends furthest in the future, per classic linear scan.
		furthest := -1
		furthestEnd := cur.end
		spillSelf := true
		for i, a := range activeList {
			if a.iv.end > furthestEnd {
				furthest = i
				furthestEnd = a.iv.end
				spillSelf = false
			}
		}
		if spillSelf {
			alloc.Set(int(cur.value), Location(-nextSlot))
			nextSlot++
			continue
		}
		evicted := activeList[furthest]
		alloc.Set(int(cur.value), Location(evicted.pos))
		alloc.Set(int(evicted.iv.value), Location(-nextSlot))
		nextSlot++
		activeList[furthest] = active{iv: cur, pos: evicted.pos}
	}

	return alloc
}
