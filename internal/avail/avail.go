// Package avail implements available-expressions analysis and the CSE
// rewrite it drives (spec.md §4.4), grounded on
// original_source/src/IR_optimize/include/available_expressions_analysis.h
// (a must-analysis over a Set_IR_var/is_top Fact, intersected at merges) and
// on the teacher's *ir.Function/Stmt shape in internal/ir. Availability sets
// are represented with github.com/bits-and-blooms/bitset, indexed by the
// representative variable's dense id, since the header's Set_IR_var is
// exactly this: a dense set of ir_var ids.
package avail

import (
	"github.com/bits-and-blooms/bitset"

	"tacopt/internal/dataflow"
	"tacopt/internal/ir"
)

// Expr is the interned key for a non-trivial binary expression, ported from
// the header's Expr{op, rs1, rs2} struct.
type Expr struct {
	Op ir.OpKind
	X  ir.Value
	Y  ir.Value
}

// Tables is the result of Preprocess: the expr->representative map and the
// kill index, both needed by the dataflow transfer function and by the
// post-solve CSE rewrite.
type Tables struct {
	// Expr maps an interned (op,x,y) triple to its representative variable.
	Expr map[Expr]ir.Var
	// killIndex maps a variable v to every representative variable whose
	// expression reads v as an operand.
	killIndex map[ir.Var][]ir.Var
	// siteOf maps a representative variable to the one static OpStmt in the
	// function that computes it (the "first occurrence" site).
	siteOf map[ir.Var]*ir.OpStmt
}

func newTables() *Tables {
	return &Tables{
		Expr:      make(map[Expr]ir.Var),
		killIndex: make(map[ir.Var][]ir.Var),
		siteOf:    make(map[ir.Var]*ir.OpStmt),
	}
}

func (t *Tables) addKillEntry(operand ir.Value, rep ir.Var) {
	if operand.IsConst {
		return
	}
	t.killIndex[operand.Var] = append(t.killIndex[operand.Var], rep)
}

// canonicalIdentity folds the trivial algebraic identities spec.md §4.4
// names into a single replacement value, or reports ok=false when the
// expression is non-trivial and must be interned instead.
func canonicalIdentity(op ir.OpKind, x, y ir.Value) (ir.Value, bool) {
	isZero := func(v ir.Value) bool { return v.IsConst && v.Const == 0 }
	isOne := func(v ir.Value) bool { return v.IsConst && v.Const == 1 }

	switch op {
	case ir.OpAdd:
		if isZero(y) {
			return x, true
		}
		if isZero(x) {
			return y, true
		}
	case ir.OpSub:
		if isZero(y) {
			return x, true
		}
	case ir.OpMul:
		if isZero(x) || isZero(y) {
			return ir.ConstValue(0), true
		}
		if isOne(y) {
			return x, true
		}
		if isOne(x) {
			return y, true
		}
	case ir.OpDiv:
		if isOne(y) {
			return x, true
		}
	}
	return ir.Value{}, false
}

// Preprocess scans every OP statement in fn, folding trivial identities into
// ASSIGNs and interning the rest, replacing the original statement with the
// `e := x op y; rd := e` pair (only the first occurrence of an expr emits
// the OP). It must run once, before Solve, and mutates fn in place (spec.md
// §4.4's mandatory preprocessing step).
func Preprocess(fn *ir.Function) *Tables {
	t := newTables()
	for _, b := range fn.Blocks {
		rewritten := make([]ir.Stmt, 0, len(b.Stmts))
		for _, s := range b.Stmts {
			op, ok := s.(*ir.OpStmt)
			if !ok {
				rewritten = append(rewritten, s)
				continue
			}
			if repl, trivial := canonicalIdentity(op.Op, op.Rs1, op.Rs2); trivial {
				rewritten = append(rewritten, &ir.AssignStmt{Rd: op.Rd, Rs: repl})
				continue
			}

			key := Expr{Op: op.Op, X: op.Rs1, Y: op.Rs2}
			rep, seen := t.Expr[key]
			if !seen {
				rep = fn.IDs().NewVar()
				t.Expr[key] = rep
				t.addKillEntry(op.Rs1, rep)
				t.addKillEntry(op.Rs2, rep)
				opStmt := &ir.OpStmt{Rd: rep, Op: op.Op, Rs1: op.Rs1, Rs2: op.Rs2}
				t.siteOf[rep] = opStmt
				rewritten = append(rewritten, opStmt)
			}
			rewritten = append(rewritten, &ir.AssignStmt{Rd: op.Rd, Rs: ir.VarValue(rep)})
		}
		b.Stmts = rewritten
	}
	return t
}

// Fact is a must-analysis set of available representative variables, or the
// TOP sentinel meaning "every expression is available" (spec.md §4.4).
type Fact struct {
	Top bool
	Set *bitset.BitSet
}

func topFact() Fact        { return Fact{Top: true} }
func emptyFact() Fact      { return Fact{Set: bitset.New(0)} }
func (f Fact) clone() Fact {
	if f.Top {
		return f
	}
	return Fact{Set: f.Set.Clone()}
}

func (f Fact) has(v ir.Var) bool {
	if f.Top {
		return true
	}
	return f.Set.Test(uint(v))
}

func (f *Fact) add(v ir.Var) {
	if f.Top {
		return
	}
	f.Set.Set(uint(v))
}

func (f *Fact) remove(v ir.Var) {
	if f.Top {
		return
	}
	f.Set.Clear(uint(v))
}

func meet(src, dst Fact) (Fact, bool) {
	if src.Top {
		return dst, false
	}
	if dst.Top {
		return Fact{Set: src.Set.Clone()}, true
	}
	merged := dst.Set.Clone().InPlaceIntersection(src.Set)
	if merged.Equal(dst.Set) {
		return dst, false
	}
	return Fact{Set: merged}, true
}

// transferStmt applies s's gen/kill effect to fact in place, per the
// header's "OUT[B] = gen[B] ∪ (IN[B] - kill[B])" per-statement decomposition.
func transferStmt(t *Tables, fact *Fact, s ir.Stmt) {
	if def, ok := s.DefinedVar(); ok {
		for _, rep := range t.killIndex[def] {
			fact.remove(rep)
		}
	}
	if op, ok := s.(*ir.OpStmt); ok {
		if _, isRep := t.siteOf[op.Rd]; isRep {
			fact.add(op.Rd)
		}
	}
}

// Result is the solved in/out fact per block.
type Result = dataflow.Result[Fact]

// Solve runs the forward available-expressions dataflow analysis over fn,
// which must already have been preprocessed with t := Preprocess(fn).
func Solve(fn *ir.Function, t *Tables) Result {
	a := dataflow.Analysis[Fact]{
		Direction: dataflow.Forward,
		Initial:   topFact,
		Boundary:  func(*ir.Function) Fact { return emptyFact() },
		Meet:      meet,
		Transfer: func(b *ir.BasicBlock, near, prevFar Fact) (Fact, bool) {
			cur := near.clone()
			for _, s := range b.Stmts {
				transferStmt(t, &cur, s)
			}
			newFar, _ := meet(cur, prevFar.clone())
			changed := newFar.Top != prevFar.Top || (!newFar.Top && !newFar.Set.Equal(prevFar.Set))
			return newFar, changed
		},
	}
	return dataflow.Solve(a, fn)
}

// CSERewrite removes every `e := x op y` statement whose representative is
// already available at its definition point, walking in[B] forward through
// each block exactly as the folding pass does (spec.md §4.4's post-solve
// rewrite). The later `rd := e` ASSIGNs are left untouched for copy
// propagation. Returns whether any statement was newly marked dead.
func CSERewrite(fn *ir.Function, t *Tables, res Result) bool {
	changed := false
	for _, b := range fn.Blocks {
		cur := res.In[b].clone()
		for _, s := range b.Stmts {
			if op, ok := s.(*ir.OpStmt); ok {
				if _, isRep := t.siteOf[op.Rd]; isRep && cur.has(op.Rd) {
					op.SetDead(true)
					changed = true
				}
			}
			transferStmt(t, &cur, s)
		}
	}
	return changed
}
