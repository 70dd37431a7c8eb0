// Package live implements live-variable analysis and the dead-code
// elimination it drives (spec.md §4.6), grounded on
// original_source/src/IR_optimize/live_variable_analysis.c's backward
// may-analysis over a Set_IR_var fact. Live sets are represented with
// github.com/bits-and-blooms/bitset, indexed by variable id.
package live

import (
	"github.com/bits-and-blooms/bitset"

	"tacopt/internal/dataflow"
	"tacopt/internal/ir"
)

// Fact is the set of variables live at a program point (spec.md §4.6).
type Fact struct {
	Set *bitset.BitSet
}

func emptyFact() Fact { return Fact{Set: bitset.New(0)} }

func (f Fact) clone() Fact { return Fact{Set: f.Set.Clone()} }

func (f Fact) has(v ir.Var) bool { return f.Set.Test(uint(v)) }

func (f *Fact) add(v ir.Var) { f.Set.Set(uint(v)) }

func (f *Fact) remove(v ir.Var) { f.Set.Clear(uint(v)) }

func meet(src, dst Fact) (Fact, bool) {
	merged := dst.Set.Clone().InPlaceUnion(src.Set)
	if merged.Equal(dst.Set) {
		return dst, false
	}
	return Fact{Set: merged}, true
}

// transferStmt computes, in place, the live set immediately before stmt
// from the live set immediately after it: kill the defined variable, then
// gen every non-constant used variable (spec.md §4.6's back-to-front
// per-statement rule).
func transferStmt(fact *Fact, stmt ir.Stmt) {
	if def, ok := stmt.DefinedVar(); ok {
		fact.remove(def)
	}
	for _, u := range stmt.UsedValues() {
		if !u.IsConst {
			fact.add(u.Var)
		}
	}
}

// Result is the solved in/out fact per block.
type Result = dataflow.Result[Fact]

// Solve runs the backward live-variable dataflow analysis over fn.
func Solve(fn *ir.Function) Result {
	a := dataflow.Analysis[Fact]{
		Direction: dataflow.Backward,
		Initial:   emptyFact,
		Boundary:  func(*ir.Function) Fact { return emptyFact() },
		Meet:      meet,
		Transfer: func(b *ir.BasicBlock, near, prevFar Fact) (Fact, bool) {
			cur := near.clone()
			for i := len(b.Stmts) - 1; i >= 0; i-- {
				transferStmt(&cur, b.Stmts[i])
			}
			newFar, _ := meet(cur, prevFar.clone())
			return newFar, !newFar.Set.Equal(prevFar.Set)
		},
	}
	return dataflow.Solve(a, fn)
}

// isDCECandidate reports whether s may be removed when its defined
// variable is dead: only OP and ASSIGN, since every other statement either
// has a side effect or is control flow (spec.md §4.6).
func isDCECandidate(s ir.Stmt) bool {
	switch s.(type) {
	case *ir.OpStmt, *ir.AssignStmt:
		return true
	default:
		return false
	}
}

// removeDeadDefs walks blk back-to-front once, marking OP/ASSIGN
// statements dead when their defined variable is not live immediately
// after them, and reports whether anything was newly marked.
func removeDeadDefs(blk *ir.BasicBlock, out Fact) bool {
	changed := false
	cur := out.clone()
	for i := len(blk.Stmts) - 1; i >= 0; i-- {
		s := blk.Stmts[i]
		if isDCECandidate(s) {
			if def, ok := s.DefinedVar(); ok && !cur.has(def) {
				s.SetDead(true)
				changed = true
			}
		}
		transferStmt(&cur, s)
	}
	return changed
}

// EliminateDeadCode runs spec.md §4.6's full DCE rewrite to a fixed point:
// each round, recompute live variables (since removing a dead def can make
// its own operands dead), mark dead OP/ASSIGN statements and compact. It
// returns whether any statement was ever removed.
func EliminateDeadCode(fn *ir.Function) bool {
	anyChanged := false
	for {
		res := Solve(fn)
		roundChanged := false
		for _, b := range fn.Blocks {
			if removeDeadDefs(b, res.Out[b]) {
				roundChanged = true
			}
		}
		for _, b := range fn.Blocks {
			if b.RemoveDead() {
				roundChanged = true
			}
		}
		if !roundChanged {
			return anyChanged
		}
		anyChanged = true
	}
}
