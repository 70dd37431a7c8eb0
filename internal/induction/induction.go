// Package induction classifies basic and derived induction variables and
// performs strength reduction (spec.md §4.9), ported from
// original_source/src/IR_optimize/induction_variable_analysis.c
// (is_basic_induction_increment, has_single_definition_in_loop,
// is_derived_induction_definition) and strength_reduction.c
// (create_strength_reduction_variable, create_initialization_in_preheader,
// create_increment_in_loop, replace_derived_variable_uses,
// remove_useless_derived_iv_definitions).
package induction

import (
	"tacopt/internal/dominance"
	"tacopt/internal/ir"
	"tacopt/internal/loopopt"
)

// BasicIV is a loop variable whose only definition inside the loop is
// i := i ± c, dominated by the loop header.
type BasicIV struct {
	Var            ir.Var
	IncrementBlock *ir.BasicBlock
	IncrementStmt  *ir.OpStmt
	Step           int64
}

// DerivedIV is a loop variable defined once, in canonical form
// j = a*i + b, in terms of a BasicIV i.
type DerivedIV struct {
	Var         ir.Var
	Basic       *BasicIV
	Coefficient int64
	Constant    int64
	DefStmt     ir.Stmt
	DefBlock    *ir.BasicBlock
}

// defCounts tallies how many statements in the loop define each variable,
// generalizing has_single_definition_in_loop's per-kind switch into one
// pass over the Stmt interface's DefinedVar.
func defCounts(l *loopopt.Loop) map[ir.Var]int {
	counts := make(map[ir.Var]int)
	for b := range l.Blocks {
		for _, s := range b.Stmts {
			if v, ok := s.DefinedVar(); ok {
				counts[v]++
			}
		}
	}
	return counts
}

// basicIncrement reports whether s is a candidate i := i + c / i := i - c,
// ported from is_basic_induction_increment.
func basicIncrement(s ir.Stmt) (v ir.Var, step int64, ok bool) {
	op, isOp := s.(*ir.OpStmt)
	if !isOp {
		return 0, 0, false
	}
	if op.Op != ir.OpAdd && op.Op != ir.OpSub {
		return 0, 0, false
	}
	if op.Rs1.IsConst || op.Rs1.Var != op.Rd {
		return 0, 0, false
	}
	if !op.Rs2.IsConst {
		return 0, 0, false
	}
	step = op.Rs2.Const
	if op.Op == ir.OpSub {
		step = -step
	}
	return op.Rd, step, true
}

// ClassifyBasicIVs finds every basic induction variable of loop l, ported
// from InductionVariableAnalyzer_analyze_basic_ivs.
func ClassifyBasicIVs(l *loopopt.Loop, dom dominance.Result) map[ir.Var]*BasicIV {
	counts := defCounts(l)
	result := make(map[ir.Var]*BasicIV)

	for b := range l.Blocks {
		for _, s := range b.Stmts {
			v, step, ok := basicIncrement(s)
			if !ok {
				continue
			}
			if counts[v] != 1 {
				continue
			}
			if !dom.Dominates(l.Header, b) {
				continue
			}
			if _, exists := result[v]; exists {
				continue
			}
			result[v] = &BasicIV{
				Var:            v,
				IncrementBlock: b,
				IncrementStmt:  s.(*ir.OpStmt),
				Step:           step,
			}
		}
	}
	return result
}

// derivedDefinition reports whether s defines a derived induction variable
// in terms of a variable already classified as basic, ported from
// is_derived_induction_definition. The canonical form is j = a*i + b.
func derivedDefinition(s ir.Stmt, basics map[ir.Var]*BasicIV) (dv ir.Var, basic *BasicIV, a, b int64, ok bool) {
	switch st := s.(type) {
	case *ir.OpStmt:
		switch st.Op {
		case ir.OpMul:
			if st.Rs1.IsConst && !st.Rs2.IsConst {
				if bv, found := basics[st.Rs2.Var]; found {
					return st.Rd, bv, st.Rs1.Const, 0, true
				}
			} else if !st.Rs1.IsConst && st.Rs2.IsConst {
				if bv, found := basics[st.Rs1.Var]; found {
					return st.Rd, bv, st.Rs2.Const, 0, true
				}
			}
		case ir.OpAdd:
			if !st.Rs1.IsConst && st.Rs2.IsConst {
				if bv, found := basics[st.Rs1.Var]; found {
					return st.Rd, bv, 1, st.Rs2.Const, true
				}
			} else if st.Rs1.IsConst && !st.Rs2.IsConst {
				if bv, found := basics[st.Rs2.Var]; found {
					return st.Rd, bv, 1, st.Rs1.Const, true
				}
			}
		case ir.OpSub:
			if !st.Rs1.IsConst && st.Rs2.IsConst {
				if bv, found := basics[st.Rs1.Var]; found {
					return st.Rd, bv, 1, -st.Rs2.Const, true
				}
			}
		}
	case *ir.AssignStmt:
		if !st.Rs.IsConst {
			if bv, found := basics[st.Rs.Var]; found {
				return st.Rd, bv, 1, 0, true
			}
		}
	}
	return 0, nil, 0, 0, false
}

// ClassifyDerivedIVs finds every derived induction variable of loop l,
// ported from InductionVariableAnalyzer_analyze_derived_ivs. A variable
// already classified as a BasicIV can never be reclassified as derived
// (spec.md §4.9), and a variable defined more than once in the loop is
// never a derived induction variable.
func ClassifyDerivedIVs(l *loopopt.Loop, basics map[ir.Var]*BasicIV) map[ir.Var]*DerivedIV {
	if len(basics) == 0 {
		return nil
	}
	counts := defCounts(l)
	result := make(map[ir.Var]*DerivedIV)

	for b := range l.Blocks {
		for _, s := range b.Stmts {
			dv, basic, a, c, ok := derivedDefinition(s, basics)
			if !ok {
				continue
			}
			if _, isBasic := basics[dv]; isBasic {
				continue
			}
			if _, already := result[dv]; already {
				continue
			}
			if counts[dv] != 1 {
				continue
			}
			result[dv] = &DerivedIV{
				Var: dv, Basic: basic, Coefficient: a, Constant: c,
				DefStmt: s, DefBlock: b,
			}
		}
	}
	return result
}

// StrengthReduced records the fresh variable minted for one derived
// induction variable's strength reduction.
type StrengthReduced struct {
	NewVar    ir.Var
	Derived   *DerivedIV
	Increment int64
}

// StrengthReduce applies spec.md §4.9's four-step strength reduction to
// every derived induction variable of loop l with a coefficient other than
// 1, requiring l.Preheader to already be materialized (internal/loopopt).
// Ported from perform_strength_reduction.
func StrengthReduce(fn *ir.Function, l *loopopt.Loop, derived map[ir.Var]*DerivedIV) []StrengthReduced {
	if l.Preheader == nil || len(derived) == 0 {
		return nil
	}

	var reduced []StrengthReduced
	for _, div := range derived {
		if div.Coefficient == 1 {
			continue
		}
		t := fn.IDs().NewVar()

		materializeInit(fn, l.Preheader, t, div)
		insertIncrement(div.Basic, t, div.Coefficient*div.Basic.Step)
		replaceUses(l, div, t)

		reduced = append(reduced, StrengthReduced{
			NewVar: t, Derived: div, Increment: div.Coefficient * div.Basic.Step,
		})
	}

	for _, r := range reduced {
		r.Derived.DefStmt.SetDead(true)
	}
	for b := range l.Blocks {
		b.RemoveDead()
	}
	return reduced
}

// materializeInit appends the preheader statement(s) computing
// t = coefficient*basic_iv + constant, ahead of the preheader's terminator
// when it has one, ported from create_initialization_in_preheader.
func materializeInit(fn *ir.Function, preheader *ir.BasicBlock, t ir.Var, div *DerivedIV) {
	if term := preheader.Terminator(); term != nil {
		preheader.Stmts = preheader.Stmts[:len(preheader.Stmts)-1]
		defer preheader.Append(term)
	}
	basicVal := ir.VarValue(div.Basic.Var)
	if div.Constant == 0 {
		preheader.Append(&ir.OpStmt{Rd: t, Op: ir.OpMul, Rs1: ir.ConstValue(div.Coefficient), Rs2: basicVal})
		return
	}
	tmp := fn.IDs().NewVar()
	preheader.Append(&ir.OpStmt{Rd: tmp, Op: ir.OpMul, Rs1: ir.ConstValue(div.Coefficient), Rs2: basicVal})
	preheader.Append(&ir.OpStmt{Rd: t, Op: ir.OpAdd, Rs1: ir.VarValue(tmp), Rs2: ir.ConstValue(div.Constant)})
}

// insertIncrement inserts "t := t + increment" immediately after the
// BasicIV's own increment statement, ported from create_increment_in_loop.
func insertIncrement(basic *BasicIV, t ir.Var, increment int64) {
	blk := basic.IncrementBlock
	incStmt := &ir.OpStmt{Rd: t, Op: ir.OpAdd, Rs1: ir.VarValue(t), Rs2: ir.ConstValue(increment)}
	for i, s := range blk.Stmts {
		if s == ir.Stmt(basic.IncrementStmt) {
			blk.Stmts = append(blk.Stmts, nil)
			copy(blk.Stmts[i+2:], blk.Stmts[i+1:])
			blk.Stmts[i+1] = incStmt
			return
		}
	}
}

// replaceUses substitutes every use of div.Var inside the loop, except its
// own defining statement, with t, ported from replace_derived_variable_uses
// and replace_variable_in_stmt (which the original extends to LoadStmt's
// address operand and ReturnStmt's result, both included here).
func replaceUses(l *loopopt.Loop, div *DerivedIV, t ir.Var) {
	for b := range l.Blocks {
		for _, s := range b.Stmts {
			if s == div.DefStmt {
				continue
			}
			substitute(s, div.Var, t)
		}
	}
}

func substitute(s ir.Stmt, oldVar, newVar ir.Var) {
	sub := func(v *ir.Value) {
		if !v.IsConst && v.Var == oldVar {
			v.Var = newVar
		}
	}
	switch st := s.(type) {
	case *ir.OpStmt:
		sub(&st.Rs1)
		sub(&st.Rs2)
	case *ir.AssignStmt:
		sub(&st.Rs)
	case *ir.LoadStmt:
		sub(&st.Addr)
	case *ir.StoreStmt:
		sub(&st.Addr)
		sub(&st.Rs)
	case *ir.IfStmt:
		sub(&st.Rs1)
		sub(&st.Rs2)
	case *ir.CallStmt:
		for i := range st.Args {
			sub(&st.Args[i])
		}
	case *ir.WriteStmt:
		sub(&st.Rs)
	case *ir.ReturnStmt:
		if st.HasRs {
			sub(&st.Rs)
		}
	}
}
