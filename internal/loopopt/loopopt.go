// Package loopopt detects natural loops and materializes preheaders
// (spec.md §4.8), ported from original_source/src/IR_optimize/
// loop_analysis_clean.c's back-edge detection plus reverse-BFS natural-loop
// construction, and its LoopAnalyzer_create_preheaders preheader step.
package loopopt

import (
	"tacopt/internal/cfg"
	"tacopt/internal/diag"
	"tacopt/internal/dominance"
	"tacopt/internal/ir"
)

// BackEdge is an edge source -> target where target dominates source,
// ported from the original's BackEdge{source,target}.
type BackEdge struct {
	Source, Target *ir.BasicBlock
}

// Loop is a natural loop: a header and the set of blocks that reach a
// back-edge source without passing through the header again, plus the
// back edges that share this header (ported from loop.h's Loop struct,
// generalized from a single back edge to the merged-on-shared-header set
// spec.md §4.8 requires).
type Loop struct {
	Header         *ir.BasicBlock
	Blocks         map[*ir.BasicBlock]bool
	BackEdgeSrcs   []*ir.BasicBlock
	Parent         *Loop
	Children       []*Loop
	Depth          int
	Preheader      *ir.BasicBlock
}

// Contains reports whether b is part of the loop's body.
func (l *Loop) Contains(b *ir.BasicBlock) bool { return l.Blocks[b] }

// DetectBackEdges finds every edge source->target in fn where target
// dominates source, ported from detect_back_edges.
func DetectBackEdges(fn *ir.Function, dom dominance.Result) []BackEdge {
	var edges []BackEdge
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			if dom.Dominates(succ, b) {
				edges = append(edges, BackEdge{Source: b, Target: succ})
			}
		}
	}
	return edges
}

// naturalLoop computes the natural loop of back edge e via reverse BFS
// from e.Source over predecessor edges, stopping at e.Target (spec.md
// §4.8; ported from construct_natural_loop).
func naturalLoop(e BackEdge) *Loop {
	l := &Loop{Header: e.Target, Blocks: map[*ir.BasicBlock]bool{e.Target: true}, Depth: 1}

	var worklist []*ir.BasicBlock
	if e.Source != e.Target {
		l.Blocks[e.Source] = true
		worklist = append(worklist, e.Source)
	}

	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, pred := range cur.Preds {
			if !l.Blocks[pred] {
				l.Blocks[pred] = true
				worklist = append(worklist, pred)
			}
		}
	}
	return l
}

// DetectLoops finds every natural loop in fn, merging back edges that
// share a header into a single Loop (spec.md §4.8's "loops sharing a
// header merge"; ported from LoopAnalyzer_detect_loops).
func DetectLoops(fn *ir.Function, dom dominance.Result) []*Loop {
	edges := DetectBackEdges(fn, dom)

	byHeader := make(map[*ir.BasicBlock]*Loop)
	var order []*ir.BasicBlock
	for _, e := range edges {
		existing, ok := byHeader[e.Target]
		if ok {
			existing.BackEdgeSrcs = append(existing.BackEdgeSrcs, e.Source)
			for b := range naturalLoop(e).Blocks {
				existing.Blocks[b] = true
			}
			continue
		}
		l := naturalLoop(e)
		l.BackEdgeSrcs = []*ir.BasicBlock{e.Source}
		byHeader[e.Target] = l
		order = append(order, e.Target)
	}

	loops := make([]*Loop, 0, len(order))
	for _, h := range order {
		loops = append(loops, byHeader[h])
	}
	return loops
}

// BuildHierarchy links each loop to its innermost enclosing loop and
// computes nesting depth (spec.md §4.8's Nesting rule: A nests in B iff
// A.header is a block of B and A != B; ported from
// LoopAnalyzer_build_loop_hierarchy, generalized from "any enclosing loop"
// to "innermost enclosing loop" so Depth reflects true nesting).
func BuildHierarchy(loops []*Loop) []*Loop {
	var topLevel []*Loop
	for _, inner := range loops {
		var parent *Loop
		for _, outer := range loops {
			if outer == inner {
				continue
			}
			if !outer.Contains(inner.Header) {
				continue
			}
			if parent == nil || parent.Contains(outer.Header) {
				parent = outer
			}
		}
		inner.Parent = parent
		if parent == nil {
			topLevel = append(topLevel, inner)
		} else {
			parent.Children = append(parent.Children, inner)
		}
	}

	var setDepth func(l *Loop, depth int)
	setDepth = func(l *Loop, depth int) {
		l.Depth = depth
		for _, c := range l.Children {
			setDepth(c, depth+1)
		}
	}
	for _, l := range topLevel {
		setDepth(l, 1)
	}
	return topLevel
}

// MaterializePreheader ensures loop l has a preheader, creating a fresh
// block when needed and retargeting every outside predecessor of the
// header through it (spec.md §4.8's Preheader materialization algorithm;
// ported from LoopAnalyzer_create_preheaders). It asserts the three
// post-conditions spec.md §4.8 names before returning, panicking with an
// *diag.InvariantError if any is violated.
func MaterializePreheader(fn *ir.Function, l *Loop) *ir.BasicBlock {
	var outside []*ir.BasicBlock
	for _, p := range l.Header.Preds {
		if !l.Contains(p) {
			outside = append(outside, p)
		}
	}

	if len(outside) == 0 {
		l.Preheader = nil
		return nil
	}

	if len(outside) == 1 && len(outside[0].Succs) == 1 && outside[0].Succs[0] == l.Header {
		l.Preheader = outside[0]
		return l.Preheader
	}

	preheader := &ir.BasicBlock{Label: fn.IDs().NewLabel()}
	preheader.Append(&ir.GotoStmt{Target: l.Header.Label})
	fn.AppendBlock(preheader)
	preheader.Succs = append(preheader.Succs, l.Header)
	l.Header.Preds = append(l.Header.Preds, preheader)

	for _, pred := range outside {
		cfg.ReplaceSuccessor(fn, pred, l.Header, preheader)
	}

	l.Preheader = preheader
	assertPreheaderInvariants(l)
	return preheader
}

func assertPreheaderInvariants(l *Loop) {
	p := l.Preheader
	if l.Contains(p) {
		panic(diag.NewInvariantError("loopopt", "preheader is a member of its own loop"))
	}
	outsidePreds := 0
	sawPreheader := false
	for _, pred := range l.Header.Preds {
		if pred == p {
			sawPreheader = true
			continue
		}
		if !l.Contains(pred) {
			outsidePreds++
		}
	}
	if !sawPreheader || outsidePreds != 0 {
		panic(diag.NewInvariantError("loopopt", "preheader is not the sole outside predecessor of the header"))
	}
	if len(p.Succs) != 1 || p.Succs[0] != l.Header {
		panic(diag.NewInvariantError("loopopt", "preheader does not branch solely to the loop header"))
	}
}

// MaterializeAllPreheaders materializes a preheader for every loop,
// innermost-independent of iteration order since each loop's own header
// predecessors are unaffected by another loop's preheader insertion.
func MaterializeAllPreheaders(fn *ir.Function, loops []*Loop) {
	for _, l := range loops {
		MaterializePreheader(fn, l)
	}
}
