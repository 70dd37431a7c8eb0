// Package dataflow implements the generic monotone forward/backward
// worklist solver that drives every concrete analysis in this optimizer
// (constant propagation, available expressions, copy propagation, live
// variables). The algorithm shape follows spec.md §4.2, grounded on
// original_source/src/IR_optimize/solver.c's forward worklist (the
// backward half is a TODO stub there; spec.md §4.6/§5 specify it fully and
// this implementation follows that, not the stub).
package dataflow

import "tacopt/internal/ir"

// Direction selects whether an analysis flows with or against control flow.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Analysis bundles the capabilities spec.md §4.2 requires of a concrete
// dataflow analysis: a lattice element type F, its initial/boundary facts,
// a meet and a per-block transfer function. F is typically a small
// immutable value (a map or a *bitset.BitSet wrapper) — Meet and Transfer
// must not mutate their inputs in place when F is a pointer type, since the
// solver keeps the previous fact around to test for change.
type Analysis[F any] struct {
	Direction Direction

	// Initial returns the fact assigned to every non-boundary block before
	// solving begins (UNDEF/TOP/∅ depending on the concrete analysis).
	Initial func() F

	// Boundary returns the fact assigned to the boundary block (entry for
	// forward analyses, exit for backward ones). The solver seeds both the
	// boundary block's in and out facts with it, so the block's own
	// transfer starts from the boundary rather than from Initial.
	Boundary func(fn *ir.Function) F

	// Meet combines src into dst, returning the combined fact and whether
	// it differs from dst.
	Meet func(src, dst F) (F, bool)

	// Transfer computes a block's far fact (out for forward, in for
	// backward) from its near fact (in for forward, out for backward) and
	// the far fact previously recorded for b (prevFar), mirroring
	// transferBlock(block, in_fact, out_fact) in solver.c where out_fact is
	// both the previous value and the one mutated in place. Transfer
	// reports whether the new far fact differs from prevFar.
	Transfer func(b *ir.BasicBlock, near, prevFar F) (far F, changed bool)
}

// Result holds the solved In/Out fact for every block of one function.
type Result[F any] struct {
	In  map[*ir.BasicBlock]F
	Out map[*ir.BasicBlock]F
}

// Solve runs the worklist algorithm of spec.md §4.2 over fn and returns the
// fixed-point In/Out facts. Block enumeration for the initial worklist
// population is fn.Blocks source order; re-enqueues are not deduplicated
// (the spec explicitly permits but does not require dedup) — callers doing
// large functions may want to dedupe for performance, which is safe since
// it does not change the fixed point.
func Solve[F any](a Analysis[F], fn *ir.Function) Result[F] {
	if a.Direction == Forward {
		return solveForward(a, fn)
	}
	return solveBackward(a, fn)
}

func solveForward[F any](a Analysis[F], fn *ir.Function) Result[F] {
	in := make(map[*ir.BasicBlock]F, len(fn.Blocks))
	out := make(map[*ir.BasicBlock]F, len(fn.Blocks))

	for _, b := range fn.Blocks {
		if b == fn.Entry {
			in[b] = a.Boundary(fn)
			out[b] = a.Boundary(fn)
		} else {
			in[b] = a.Initial()
			out[b] = a.Initial()
		}
	}

	worklist := append([]*ir.BasicBlock(nil), fn.Blocks...)
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]

		merged := in[b]
		for _, p := range b.Preds {
			var ch bool
			merged, ch = a.Meet(out[p], merged)
			_ = ch
		}
		in[b] = merged

		newOut, changed := a.Transfer(b, in[b], out[b])
		out[b] = newOut
		if changed {
			worklist = append(worklist, b.Succs...)
		}
	}

	return Result[F]{In: in, Out: out}
}

// solveBackward mirrors solveForward: the boundary seeds exit's in and out, facts
// combine over successors into out[B], and transfer runs from out to in
// (spec.md §4.2 "Backward worklist algorithm").
func solveBackward[F any](a Analysis[F], fn *ir.Function) Result[F] {
	in := make(map[*ir.BasicBlock]F, len(fn.Blocks))
	out := make(map[*ir.BasicBlock]F, len(fn.Blocks))

	for _, b := range fn.Blocks {
		if b == fn.Exit {
			in[b] = a.Boundary(fn)
			out[b] = a.Boundary(fn)
		} else {
			in[b] = a.Initial()
			out[b] = a.Initial()
		}
	}

	worklist := append([]*ir.BasicBlock(nil), fn.Blocks...)
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]

		merged := out[b]
		for _, s := range b.Succs {
			var ch bool
			merged, ch = a.Meet(in[s], merged)
			_ = ch
		}
		out[b] = merged

		newIn, changed := a.Transfer(b, out[b], in[b])
		in[b] = newIn
		if changed {
			worklist = append(worklist, b.Preds...)
		}
	}

	return Result[F]{In: in, Out: out}
}
