// Package constprop implements the constant-propagation dataflow analysis
// and its post-solve folding rewrite (spec.md §4.3), built on the generic
// engine in internal/dataflow. Lattice, meet and transfer rules are ported
// from original_source/src/IR_optimize/constant_propagation.c (a TODO stub
// in the source; the rules below follow the Chinese doc comments left in
// that stub, which spell out the intended semantics completely).
package constprop

import (
	"tacopt/internal/dataflow"
	"tacopt/internal/ir"
)

// Kind is a per-variable lattice element: UNDEF (top) ⊐ CONST(c) ⊐ NAC
// (bottom).
type Kind int

const (
	Undef Kind = iota
	Const
	NAC
)

// Value is one lattice element, valid only when Kind == Const carries a
// meaningful Val.
type Value struct {
	Kind Kind
	Val  int64
}

func UndefValue() Value        { return Value{Kind: Undef} }
func ConstValue(c int64) Value { return Value{Kind: Const, Val: c} }
func NACValue() Value          { return Value{Kind: NAC} }

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	return v.Kind != Const || v.Val == o.Val
}

// meet implements spec.md §4.3's meet table.
func meet(a, b Value) Value {
	if a.Kind == Undef {
		return b
	}
	if b.Kind == Undef {
		return a
	}
	if a.Kind == NAC || b.Kind == NAC {
		return NACValue()
	}
	// both Const
	if a.Val == b.Val {
		return a
	}
	return NACValue()
}

// Fact is a partial map from variable to lattice element; an absent
// variable is UNDEF (spec.md §4.3).
type Fact map[ir.Var]Value

// get returns the Value recorded for v, or UNDEF if absent.
func (f Fact) get(v ir.Var) Value {
	if val, ok := f[v]; ok {
		return val
	}
	return UndefValue()
}

// set records val for v, deleting the entry when val is UNDEF so absence
// keeps meaning UNDEF.
func (f Fact) set(v ir.Var, val Value) {
	if val.Kind == Undef {
		delete(f, v)
		return
	}
	f[v] = val
}

func (f Fact) clone() Fact {
	out := make(Fact, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func equalFacts(a, b Fact) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// valueOf resolves an ir.Value (constant literal or variable) against fact.
func valueOf(fact Fact, v ir.Value) Value {
	if v.IsConst {
		return ConstValue(v.Const)
	}
	return fact.get(v.Var)
}

// evalOp implements spec.md §4.3's operator-evaluation rule: UNDEF
// dominates NAC (either operand UNDEF => UNDEF), otherwise either NAC =>
// NAC, otherwise fold; division by a constant zero yields UNDEF so no
// trap-generating fold is ever produced.
func evalOp(op ir.OpKind, v1, v2 Value) Value {
	if v1.Kind == Undef || v2.Kind == Undef {
		return UndefValue()
	}
	if v1.Kind == NAC || v2.Kind == NAC {
		return NACValue()
	}
	switch op {
	case ir.OpAdd:
		return ConstValue(v1.Val + v2.Val)
	case ir.OpSub:
		return ConstValue(v1.Val - v2.Val)
	case ir.OpMul:
		return ConstValue(v1.Val * v2.Val)
	case ir.OpDiv:
		if v2.Val == 0 {
			return UndefValue()
		}
		return ConstValue(v1.Val / v2.Val)
	default:
		return NACValue()
	}
}

// transferStmt mutates fact in place to reflect stmt's effect, following
// constant_propagation.c's ConstantPropagation_transferStmt.
func transferStmt(fact Fact, stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.AssignStmt:
		fact.set(s.Rd, valueOf(fact, s.Rs))
	case *ir.OpStmt:
		fact.set(s.Rd, evalOp(s.Op, valueOf(fact, s.Rs1), valueOf(fact, s.Rs2)))
	default:
		if def, ok := stmt.DefinedVar(); ok {
			fact.set(def, NACValue())
		}
	}
}

// Result is the solved in/out fact per block plus a convenience accessor.
type Result = dataflow.Result[Fact]

func inFact(r Result, b *ir.BasicBlock) Fact { return r.In[b] }

// boundaryFact seeds every function parameter as NAC — spec.md §4.3's
// boundary rule — since their values are caller-supplied and unknown
// intraprocedurally.
func boundaryFact(fn *ir.Function) Fact {
	f := make(Fact, len(fn.Params))
	for _, p := range fn.Params {
		f.set(p.V, NACValue())
	}
	return f
}

func meetInto(src, dst Fact) (Fact, bool) {
	changed := false
	out := dst
	for v, val := range src {
		old := out.get(v)
		merged := meet(old, val)
		if !merged.Equal(old) {
			if out == dst {
				out = dst.clone()
			}
			out.set(v, merged)
			changed = true
		}
	}
	return out, changed
}

// transferBlock ports ConstantPropagation_transferBlock: simulate every
// statement of b starting from near (the block's in fact), then meet the
// simulated result into prevFar (the block's previous out fact) exactly as
// the solver's generic meet does for any other predecessor contribution.
func transferBlock(b *ir.BasicBlock, near, prevFar Fact) (Fact, bool) {
	cur := near.clone()
	for _, s := range b.Stmts {
		transferStmt(cur, s)
	}
	newOut, _ := meetInto(cur, prevFar.clone())
	return newOut, !equalFacts(newOut, prevFar)
}

// Solve runs the forward constant-propagation dataflow analysis over fn
// using the generic engine in internal/dataflow.
func Solve(fn *ir.Function) Result {
	a := dataflow.Analysis[Fact]{
		Direction: dataflow.Forward,
		Initial:   func() Fact { return make(Fact) },
		Boundary:  boundaryFact,
		Meet:      meetInto,
		Transfer:  transferBlock,
	}
	return dataflow.Solve(a, fn)
}

// Fold rewrites every statement's used ir.Values whose current variable
// value is a known constant into literal constants, walking in[B] forward
// through each block's own statements (spec.md §4.3's post-solve folding
// pass). It never removes the defining statement; that remains live
// variable DCE's job. Fold returns true if any value was rewritten.
func Fold(fn *ir.Function, res Result) bool {
	changed := false
	for _, b := range fn.Blocks {
		cur := inFact(res, b).clone()
		for _, s := range b.Stmts {
			if foldStmt(cur, s) {
				changed = true
			}
			transferStmt(cur, s)
		}
	}
	return changed
}

// foldStmt rewrites the used operands of s in place from cur, returning
// whether anything changed.
func foldStmt(cur Fact, s ir.Stmt) bool {
	changed := false
	switch st := s.(type) {
	case *ir.OpStmt:
		if rewriteValue(cur, &st.Rs1) {
			changed = true
		}
		if rewriteValue(cur, &st.Rs2) {
			changed = true
		}
	case *ir.AssignStmt:
		if rewriteValue(cur, &st.Rs) {
			changed = true
		}
	case *ir.StoreStmt:
		if rewriteValue(cur, &st.Addr) {
			changed = true
		}
		if rewriteValue(cur, &st.Rs) {
			changed = true
		}
	case *ir.LoadStmt:
		if rewriteValue(cur, &st.Addr) {
			changed = true
		}
	case *ir.ReturnStmt:
		if st.HasRs && rewriteValue(cur, &st.Rs) {
			changed = true
		}
	case *ir.IfStmt:
		if rewriteValue(cur, &st.Rs1) {
			changed = true
		}
		if rewriteValue(cur, &st.Rs2) {
			changed = true
		}
	case *ir.CallStmt:
		for i := range st.Args {
			if rewriteValue(cur, &st.Args[i]) {
				changed = true
			}
		}
	case *ir.WriteStmt:
		if rewriteValue(cur, &st.Rs) {
			changed = true
		}
	}
	return changed
}

func rewriteValue(cur Fact, v *ir.Value) bool {
	if v.IsConst {
		return false
	}
	val := cur.get(v.Var)
	if val.Kind != Const {
		return false
	}
	*v = ir.ConstValue(val.Val)
	return true
}
