// Package copyprop implements copy propagation (spec.md §4.5), grounded on
// original_source/src/IR_optimize/include/copy_propagation.h's
// Fact_def_use{is_top, def_to_use, use_to_def} must-analysis.
package copyprop

import (
	"tacopt/internal/dataflow"
	"tacopt/internal/ir"
)

// Fact records the bijection between copy destination and source variables
// currently in force, or the TOP sentinel meaning "every pairing holds"
// (spec.md §4.5). DefToUse and UseToDef are always kept mutually
// consistent: DefToUse[d] == u iff UseToDef[u] == d.
type Fact struct {
	Top      bool
	DefToUse map[ir.Var]ir.Var
	UseToDef map[ir.Var]ir.Var
}

func topFact() Fact {
	return Fact{Top: true}
}

func emptyFact() Fact {
	return Fact{DefToUse: map[ir.Var]ir.Var{}, UseToDef: map[ir.Var]ir.Var{}}
}

func (f Fact) clone() Fact {
	if f.Top {
		return f
	}
	d := make(map[ir.Var]ir.Var, len(f.DefToUse))
	for k, v := range f.DefToUse {
		d[k] = v
	}
	u := make(map[ir.Var]ir.Var, len(f.UseToDef))
	for k, v := range f.UseToDef {
		u[k] = v
	}
	return Fact{DefToUse: d, UseToDef: u}
}

// sourceOf returns the variable that v's value currently comes from, via an
// in-force copy pairing, or v itself (and false) when no pairing holds or
// the fact is TOP.
func (f Fact) sourceOf(v ir.Var) (ir.Var, bool) {
	if f.Top {
		return v, false
	}
	u, ok := f.DefToUse[v]
	return u, ok
}

// killVar removes every pairing touching v, from either side of the
// bijection (spec.md §4.5: "any other definition of v kills all pairings
// touching v").
func (f *Fact) killVar(v ir.Var) {
	if f.Top {
		return
	}
	if u, ok := f.DefToUse[v]; ok {
		delete(f.DefToUse, v)
		delete(f.UseToDef, u)
	}
	if d, ok := f.UseToDef[v]; ok {
		delete(f.UseToDef, v)
		delete(f.DefToUse, d)
	}
}

// addPairing installs rd <-> rs after killing anything touching either
// side, per spec.md §4.5's transfer rule for `rd := rs`.
func (f *Fact) addPairing(rd, rs ir.Var) {
	if f.Top {
		return
	}
	f.killVar(rd)
	f.killVar(rs)
	f.DefToUse[rd] = rs
	f.UseToDef[rs] = rd
}

// meet intersects pairings: one survives only when both sides still agree
// (spec.md §4.5), with TOP acting as the meet identity.
func meet(src, dst Fact) (Fact, bool) {
	if src.Top {
		return dst, false
	}
	if dst.Top {
		return src.clone(), true
	}
	changed := false
	out := emptyFact()
	for d, u := range dst.DefToUse {
		if su, ok := src.DefToUse[d]; ok && su == u {
			out.DefToUse[d] = u
			out.UseToDef[u] = d
		} else {
			changed = true
		}
	}
	if len(out.DefToUse) != len(dst.DefToUse) {
		changed = true
	}
	if !changed {
		return dst, false
	}
	return out, true
}

func equalFacts(a, b Fact) bool {
	if a.Top != b.Top {
		return false
	}
	if a.Top {
		return true
	}
	if len(a.DefToUse) != len(b.DefToUse) {
		return false
	}
	for d, u := range a.DefToUse {
		if bu, ok := b.DefToUse[d]; !ok || bu != u {
			return false
		}
	}
	return true
}

// transferStmt applies s's gen/kill effect to fact in place, per
// CopyPropagation_transferStmt: `rd := rs` with rs a non-constant variable
// generates the {rd<->rs} pairing; any other definition of a variable v
// kills every pairing touching v.
func transferStmt(fact *Fact, s ir.Stmt) {
	if assign, ok := s.(*ir.AssignStmt); ok && !assign.Rs.IsConst {
		fact.addPairing(assign.Rd, assign.Rs.Var)
		return
	}
	if def, ok := s.DefinedVar(); ok {
		fact.killVar(def)
	}
}

// Result is the solved in/out fact per block.
type Result = dataflow.Result[Fact]

// Solve runs the forward copy-propagation dataflow analysis over fn.
func Solve(fn *ir.Function) Result {
	a := dataflow.Analysis[Fact]{
		Direction: dataflow.Forward,
		Initial:   topFact,
		Boundary:  func(*ir.Function) Fact { return emptyFact() },
		Meet:      meet,
		Transfer: func(b *ir.BasicBlock, near, prevFar Fact) (Fact, bool) {
			cur := near.clone()
			for _, s := range b.Stmts {
				transferStmt(&cur, s)
			}
			newFar, _ := meet(cur, prevFar.clone())
			return newFar, !equalFacts(newFar, prevFar)
		},
	}
	return dataflow.Solve(a, fn)
}

// Rewrite substitutes every use of a copy-destination variable with its
// source wherever the pairing holds at that program point, walking in[B]
// forward through each block's own statements (spec.md §4.5's rewrite
// pass). Returns whether any use was rewritten.
func Rewrite(fn *ir.Function, res Result) bool {
	changed := false
	for _, b := range fn.Blocks {
		cur := res.In[b].clone()
		for _, s := range b.Stmts {
			if rewriteStmt(cur, s) {
				changed = true
			}
			transferStmt(&cur, s)
		}
	}
	return changed
}

func rewriteStmt(cur Fact, s ir.Stmt) bool {
	changed := false
	rewrite := func(v *ir.Value) {
		if v.IsConst {
			return
		}
		if src, ok := cur.sourceOf(v.Var); ok {
			*v = ir.VarValue(src)
			changed = true
		}
	}
	switch st := s.(type) {
	case *ir.OpStmt:
		rewrite(&st.Rs1)
		rewrite(&st.Rs2)
	case *ir.AssignStmt:
		rewrite(&st.Rs)
	case *ir.StoreStmt:
		rewrite(&st.Addr)
		rewrite(&st.Rs)
	case *ir.LoadStmt:
		rewrite(&st.Addr)
	case *ir.ReturnStmt:
		if st.HasRs {
			rewrite(&st.Rs)
		}
	case *ir.IfStmt:
		rewrite(&st.Rs1)
		rewrite(&st.Rs2)
	case *ir.CallStmt:
		for i := range st.Args {
			rewrite(&st.Args[i])
		}
	case *ir.WriteStmt:
		rewrite(&st.Rs)
	}
	return changed
}
