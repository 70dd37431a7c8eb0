// Package dominance computes dominator sets, immediate dominators and the
// dominator tree for a function (spec.md §4.7), ported from
// original_source/src/IR_optimize/dominance_analysis_fixed.c's iterative
// intersection algorithm (the "_fixed" suffix there names a prior revision
// that computed dominators incorrectly; this is the corrected one).
package dominance

import (
	"tacopt/internal/diag"
	"tacopt/internal/ir"
)

// MaxIterations bounds the fixed-point loop, matching the original's
// MAX_ITERATIONS guard against malformed (non-reducible or huge) inputs.
const MaxIterations = 100

// Info is the per-block result of dominance analysis.
type Info struct {
	// Dominators is the full dominator set dom(b), including b itself.
	Dominators map[*ir.BasicBlock]bool
	// Idom is b's immediate dominator, or nil for the entry block.
	Idom *ir.BasicBlock
	// Children lists the blocks whose immediate dominator is this block.
	Children []*ir.BasicBlock
}

// Result maps every block of a function to its Info, plus the entry block
// the tree is rooted at.
type Result struct {
	Entry *ir.BasicBlock
	Info  map[*ir.BasicBlock]*Info
}

// Dominates reports whether a dominates b (including a == b).
func (r Result) Dominates(a, b *ir.BasicBlock) bool {
	info, ok := r.Info[b]
	if !ok {
		return false
	}
	return info.Dominators[a]
}

// Compute runs the iterative-intersection dominance algorithm over fn
// (spec.md §4.7), iterating at most maxIterations times (a non-positive
// value falls back to MaxIterations). It panics via a
// *diag.InvariantError-wrapped value if the fixed point is not reached
// within the cap, which happens when the cap is too small for the CFG's
// shape or the CFG was built incorrectly.
func Compute(fn *ir.Function, maxIterations int) Result {
	if maxIterations <= 0 {
		maxIterations = MaxIterations
	}
	blocks := fn.Blocks
	dom := make(map[*ir.BasicBlock]map[*ir.BasicBlock]bool, len(blocks))

	for _, b := range blocks {
		set := make(map[*ir.BasicBlock]bool, len(blocks))
		if b == fn.Entry {
			set[b] = true
		} else {
			for _, other := range blocks {
				set[other] = true
			}
		}
		dom[b] = set
	}

	changed := true
	iteration := 0
	for changed && iteration < maxIterations {
		changed = false
		iteration++
		for _, b := range blocks {
			if b == fn.Entry {
				continue
			}
			newSet := intersectPreds(dom, b)
			newSet[b] = true
			if !setsEqual(newSet, dom[b]) {
				dom[b] = newSet
				changed = true
			}
		}
	}
	if changed {
		panic(diag.NewInvariantError("dominance", "dominator sets did not converge within the iteration cap"))
	}

	res := Result{Entry: fn.Entry, Info: make(map[*ir.BasicBlock]*Info, len(blocks))}
	for _, b := range blocks {
		res.Info[b] = &Info{Dominators: dom[b]}
	}
	computeIdoms(fn, res)
	return res
}

func intersectPreds(dom map[*ir.BasicBlock]map[*ir.BasicBlock]bool, b *ir.BasicBlock) map[*ir.BasicBlock]bool {
	if len(b.Preds) == 0 {
		return map[*ir.BasicBlock]bool{}
	}
	out := make(map[*ir.BasicBlock]bool, len(dom[b.Preds[0]]))
	for k := range dom[b.Preds[0]] {
		out[k] = true
	}
	for _, p := range b.Preds[1:] {
		predSet := dom[p]
		for k := range out {
			if !predSet[k] {
				delete(out, k)
			}
		}
	}
	return out
}

func setsEqual(a, b map[*ir.BasicBlock]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// computeIdoms finds, for each non-entry block b, the unique element of
// dom(b)\{b} dominated by every other element of dom(b)\{b} (spec.md
// §4.7's idom definition), and links it into the dominator tree.
func computeIdoms(fn *ir.Function, res Result) {
	for _, b := range fn.Blocks {
		if b == fn.Entry {
			continue
		}
		info := res.Info[b]
		var candidates []*ir.BasicBlock
		for d := range info.Dominators {
			if d != b {
				candidates = append(candidates, d)
			}
		}
		for _, c := range candidates {
			dominatedByAllOthers := true
			for _, other := range candidates {
				if other == c {
					continue
				}
				if !res.Info[other].Dominators[c] {
					dominatedByAllOthers = false
					break
				}
			}
			if dominatedByAllOthers {
				info.Idom = c
				res.Info[c].Children = append(res.Info[c].Children, b)
				break
			}
		}
	}
}
