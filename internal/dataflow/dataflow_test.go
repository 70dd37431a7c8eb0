package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tacopt/internal/ir"
)

// buildDiamond builds entry->A->{B,C}, B->D, C->D, D->exit (spec.md §8's
// S4 dominance fixture, reused here since it also exercises a forward
// join and a backward join over the same shape).
func buildDiamond() (fn *ir.Function, a, b, c, d *ir.BasicBlock) {
	ids := ir.NewIDContext()
	fn = ir.NewFunction("diamond", ids)
	entry, exit := &ir.BasicBlock{}, &ir.BasicBlock{}
	a = &ir.BasicBlock{}
	b = &ir.BasicBlock{}
	c = &ir.BasicBlock{}
	d = &ir.BasicBlock{}

	link := func(p, s *ir.BasicBlock) {
		p.Succs = append(p.Succs, s)
		s.Preds = append(s.Preds, p)
	}
	link(entry, a)
	link(a, b)
	link(a, c)
	link(b, d)
	link(c, d)
	link(d, exit)

	fn.Blocks = []*ir.BasicBlock{entry, a, b, c, d, exit}
	fn.Entry, fn.Exit = entry, exit
	return fn, a, b, c, d
}

// reachability is a trivial forward must-false/may-true boolean lattice:
// Initial is false, the boundary (entry) is true, Meet is logical OR, and
// Transfer just passes the near fact through unchanged (every block that
// receives control is "reached").
func reachabilityAnalysis() Analysis[bool] {
	return Analysis[bool]{
		Direction: Forward,
		Initial:   func() bool { return false },
		Boundary:  func(*ir.Function) bool { return true },
		Meet: func(src, dst bool) (bool, bool) {
			merged := src || dst
			return merged, merged != dst
		},
		Transfer: func(_ *ir.BasicBlock, near, prevFar bool) (bool, bool) {
			return near, near != prevFar
		},
	}
}

func TestSolveForwardPropagatesReachabilityThroughDiamond(t *testing.T) {
	fn, a, b, c, d := buildDiamond()
	res := Solve(reachabilityAnalysis(), fn)

	assert.True(t, res.In[a])
	assert.True(t, res.In[b])
	assert.True(t, res.In[c])
	assert.True(t, res.In[d], "D is reached via both B and C, so its in-fact must be true")
	assert.True(t, res.Out[fn.Exit])
}

// liveBackward is a trivial backward may-analysis: a block's out-fact is
// true if any successor's in-fact is true, and the boundary (exit) seeds
// true so exit itself and everything that reaches it reports true.
func liveBackwardAnalysis() Analysis[bool] {
	return Analysis[bool]{
		Direction: Backward,
		Initial:   func() bool { return false },
		Boundary:  func(*ir.Function) bool { return true },
		Meet: func(src, dst bool) (bool, bool) {
			merged := src || dst
			return merged, merged != dst
		},
		Transfer: func(_ *ir.BasicBlock, near, prevFar bool) (bool, bool) {
			return near, near != prevFar
		},
	}
}

func TestSolveBackwardPropagatesThroughDiamond(t *testing.T) {
	fn, a, b, c, d := buildDiamond()
	res := Solve(liveBackwardAnalysis(), fn)

	require.True(t, res.In[fn.Exit])
	assert.True(t, res.Out[d])
	assert.True(t, res.Out[b])
	assert.True(t, res.Out[c])
	assert.True(t, res.Out[a])
}
