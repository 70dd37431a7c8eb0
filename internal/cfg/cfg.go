// Package cfg builds the control-flow graph for a function and provides
// the single rewriting contract every later pass must use to retarget a
// branch (spec.md §4.1).
package cfg

import (
	"tacopt/internal/ir"
)

// Build materializes the entry/exit synthesis, implicit fall-through
// gotos, the label→block index and the predecessor/successor adjacency
// lists for fn, in the five steps of spec.md §4.1. It must be called
// exactly once per function, after the function's blocks have been fully
// populated by whatever produced the IR.
func Build(fn *ir.Function) {
	if len(fn.Blocks) == 0 {
		entry := &ir.BasicBlock{}
		exit := &ir.BasicBlock{}
		fn.AppendBlock(entry)
		fn.AppendBlock(exit)
		fn.Entry, fn.Exit = entry, exit
		link(entry, exit)
		return
	}

	materializeFallThrough(fn)

	entry := &ir.BasicBlock{}
	exit := &ir.BasicBlock{}

	first := fn.Blocks[0]
	fn.Blocks = append([]*ir.BasicBlock{entry}, fn.Blocks...)
	fn.Blocks = append(fn.Blocks, exit)
	fn.Entry, fn.Exit = entry, exit
	link(entry, first)

	fn.Labels = make(map[ir.Label]*ir.BasicBlock)
	for _, b := range fn.Blocks {
		if b.Label != ir.LabelNone {
			fn.Labels[b.Label] = b
		}
	}

	for _, b := range fn.Blocks {
		if b == entry || b == exit {
			continue
		}
		term := b.Terminator()
		if term == nil {
			// only the last block can still lack a terminator here
			link(b, exit)
			continue
		}
		switch t := term.(type) {
		case *ir.GotoStmt:
			target := fn.BlockByLabel(t.Target)
			if target != nil {
				link(b, target)
			}
		case *ir.IfStmt:
			trueBlk := fn.BlockByLabel(t.TrueLabel)
			falseBlk := fn.BlockByLabel(t.FalseLabel)
			if trueBlk != nil {
				link(b, trueBlk)
			}
			if falseBlk != nil {
				link(b, falseBlk)
			}
		case *ir.ReturnStmt:
			link(b, exit)
		}
	}
}

// materializeFallThrough ensures every non-terminal-ending block that is
// not the last block in source order gets an explicit GOTO to the block
// that textually follows it, so that "no block ends without a terminator"
// (spec.md §3 block invariant).
func materializeFallThrough(fn *ir.Function) {
	for i, b := range fn.Blocks {
		if b.Terminator() != nil {
			continue
		}
		if i+1 >= len(fn.Blocks) {
			continue // last block with no terminator falls to synthetic exit
		}
		next := fn.Blocks[i+1]
		if next.Label == ir.LabelNone {
			next.Label = fn.IDs().NewLabel()
		}
		b.Append(&ir.GotoStmt{Target: next.Label})
	}
}

func link(pred, succ *ir.BasicBlock) {
	pred.Succs = append(pred.Succs, succ)
	succ.Preds = append(succ.Preds, pred)
}

// unlink removes the single pred->succ edge, used by ReplaceSuccessor.
func unlink(pred, succ *ir.BasicBlock) {
	pred.Succs = removeBlock(pred.Succs, succ)
	succ.Preds = removeBlock(succ.Preds, pred)
}

func removeBlock(list []*ir.BasicBlock, b *ir.BasicBlock) []*ir.BasicBlock {
	out := list[:0]
	removedOne := false
	for _, e := range list {
		if e == b && !removedOne {
			removedOne = true
			continue
		}
		out = append(out, e)
	}
	return out
}

// ReplaceSuccessor retargets the branch in pred that currently points at
// oldTarget's label so that it points at newTarget instead, updating both
// the terminator's embedded label and the adjacency lists atomically. Every
// optimization that retargets a branch must go through this helper
// (spec.md §4.1's rewriting contract).
func ReplaceSuccessor(fn *ir.Function, pred *ir.BasicBlock, oldTarget, newTarget *ir.BasicBlock) {
	term := pred.Terminator()
	if term == nil {
		return
	}
	switch t := term.(type) {
	case *ir.GotoStmt:
		if t.Target == oldTarget.Label {
			t.Target = newTarget.Label
		}
	case *ir.IfStmt:
		if t.TrueLabel == oldTarget.Label {
			t.TrueLabel = newTarget.Label
		}
		if t.FalseLabel == oldTarget.Label {
			t.FalseLabel = newTarget.Label
		}
	}
	unlink(pred, oldTarget)
	link(pred, newTarget)
}
