// Package peephole implements the optional final single-use temp fusion
// pass (spec.md §4.10): no original_source equivalent survives in the
// retained C files, so this is built from the spec's textual description
// in the style of the teacher's DeadCodeElimination.markUsedValues — one
// linear scan over every statement in the function collecting use counts,
// rather than a per-block dataflow fact.
package peephole

import "tacopt/internal/ir"

// FuseSingleUseTemps retargets every OP whose result is consumed by
// exactly one ASSIGN in the whole function, and nowhere else, directly to
// that ASSIGN's destination, deleting the ASSIGN. Reports whether anything
// changed.
func FuseSingleUseTemps(fn *ir.Function) bool {
	useCount := make(map[ir.Var]int)
	soleUse := make(map[ir.Var]*ir.AssignStmt)

	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			for _, v := range s.UsedValues() {
				if v.IsConst {
					continue
				}
				useCount[v.Var]++
				if assign, ok := s.(*ir.AssignStmt); ok && assign.Rs.Var == v.Var && !assign.Rs.IsConst {
					soleUse[v.Var] = assign
				}
			}
		}
	}

	changed := false
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			op, ok := s.(*ir.OpStmt)
			if !ok {
				continue
			}
			if useCount[op.Rd] != 1 {
				continue
			}
			assign, ok := soleUse[op.Rd]
			if !ok || assign.Rd == op.Rd {
				continue
			}
			op.Rd = assign.Rd
			assign.SetDead(true)
			changed = true
		}
	}

	if changed {
		for _, b := range fn.Blocks {
			b.RemoveDead()
		}
	}
	return changed
}
