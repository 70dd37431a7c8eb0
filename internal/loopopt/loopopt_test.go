package loopopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tacopt/internal/cfg"
	"tacopt/internal/dominance"
	"tacopt/internal/ir"
)

// buildSimpleLoop builds entry(synthetic) -> header -> {body, exitBlk};
// body -> header (back edge). The loop is {header, body}.
func buildSimpleLoop(ids *ir.IDContext) (*ir.Function, map[string]*ir.BasicBlock) {
	fn := ir.NewFunction("simple", ids)
	cond := ids.NewVar()

	headerLbl, bodyLbl, exitLbl := ids.NewLabel(), ids.NewLabel(), ids.NewLabel()

	header := &ir.BasicBlock{Label: headerLbl}
	header.Append(&ir.IfStmt{Relop: ir.RelLT, Rs1: ir.VarValue(cond), Rs2: ir.ConstValue(10), TrueLabel: bodyLbl, FalseLabel: exitLbl})

	body := &ir.BasicBlock{Label: bodyLbl}
	body.Append(&ir.GotoStmt{Target: headerLbl})

	exitBlk := &ir.BasicBlock{Label: exitLbl}
	exitBlk.Append(&ir.ReturnStmt{HasRs: false})

	fn.AppendBlock(header)
	fn.AppendBlock(body)
	fn.AppendBlock(exitBlk)
	cfg.Build(fn)

	return fn, map[string]*ir.BasicBlock{"header": header, "body": body, "exit": exitBlk}
}

func TestDetectLoopsFindsSingleLoop(t *testing.T) {
	ids := ir.NewIDContext()
	fn, blocks := buildSimpleLoop(ids)
	dom := dominance.Compute(fn, 0)

	loops := DetectLoops(fn, dom)
	require.Len(t, loops, 1)

	l := loops[0]
	assert.Equal(t, blocks["header"], l.Header)
	assert.True(t, l.Contains(blocks["header"]))
	assert.True(t, l.Contains(blocks["body"]))
	assert.False(t, l.Contains(blocks["exit"]))
	assert.Equal(t, []*ir.BasicBlock{blocks["body"]}, l.BackEdgeSrcs)
}

func TestMaterializePreheaderReusesSoleOutsidePredecessor(t *testing.T) {
	ids := ir.NewIDContext()
	fn, _ := buildSimpleLoop(ids)
	dom := dominance.Compute(fn, 0)
	loops := DetectLoops(fn, dom)
	l := loops[0]

	preheader := MaterializePreheader(fn, l)
	require.NotNil(t, preheader)
	assert.Equal(t, fn.Entry, preheader, "the synthetic entry is header's sole outside predecessor and points only at header")
	assert.Len(t, preheader.Succs, 1)
	assert.Equal(t, l.Header, preheader.Succs[0])
}

// buildTwoEntryLoop builds a loop whose header has two distinct outside
// predecessors, forcing preheader materialization to mint a fresh block.
func buildTwoEntryLoop(ids *ir.IDContext) (*ir.Function, map[string]*ir.BasicBlock) {
	fn := ir.NewFunction("two_entry", ids)
	cond := ids.NewVar()

	preALbl, preBLbl, headerLbl, bodyLbl, exitLbl := ids.NewLabel(), ids.NewLabel(), ids.NewLabel(), ids.NewLabel(), ids.NewLabel()

	preA := &ir.BasicBlock{Label: preALbl}
	preA.Append(&ir.IfStmt{Relop: ir.RelLT, Rs1: ir.VarValue(cond), Rs2: ir.ConstValue(0), TrueLabel: preBLbl, FalseLabel: headerLbl})

	preB := &ir.BasicBlock{Label: preBLbl}
	preB.Append(&ir.GotoStmt{Target: headerLbl})

	header := &ir.BasicBlock{Label: headerLbl}
	header.Append(&ir.IfStmt{Relop: ir.RelLT, Rs1: ir.VarValue(cond), Rs2: ir.ConstValue(10), TrueLabel: bodyLbl, FalseLabel: exitLbl})

	body := &ir.BasicBlock{Label: bodyLbl}
	body.Append(&ir.GotoStmt{Target: headerLbl})

	exitBlk := &ir.BasicBlock{Label: exitLbl}
	exitBlk.Append(&ir.ReturnStmt{HasRs: false})

	fn.AppendBlock(preA)
	fn.AppendBlock(preB)
	fn.AppendBlock(header)
	fn.AppendBlock(body)
	fn.AppendBlock(exitBlk)
	cfg.Build(fn)

	return fn, map[string]*ir.BasicBlock{
		"preA": preA, "preB": preB, "header": header, "body": body, "exit": exitBlk,
	}
}

func TestMaterializePreheaderCreatesFreshBlockForMultipleOutsidePreds(t *testing.T) {
	ids := ir.NewIDContext()
	fn, blocks := buildTwoEntryLoop(ids)
	dom := dominance.Compute(fn, 0)
	loops := DetectLoops(fn, dom)
	require.Len(t, loops, 1)
	l := loops[0]

	before := len(fn.Blocks)
	preheader := MaterializePreheader(fn, l)
	require.NotNil(t, preheader)
	assert.Len(t, fn.Blocks, before+1, "a fresh preheader block is appended")

	assert.False(t, l.Contains(preheader))
	require.Len(t, preheader.Succs, 1)
	assert.Equal(t, l.Header, preheader.Succs[0])

	for _, outside := range []*ir.BasicBlock{blocks["preA"], blocks["preB"]} {
		found := false
		for _, s := range outside.Succs {
			if s == l.Header {
				found = true
			}
		}
		assert.False(t, found, "outside predecessor must no longer target the header directly")
	}

	headerOutsidePreds := 0
	for _, p := range l.Header.Preds {
		if p != preheader && !l.Contains(p) {
			headerOutsidePreds++
		}
	}
	assert.Equal(t, 0, headerOutsidePreds, "preheader must be the sole outside predecessor of header")
}

// buildNestedLoops builds H1 -> H2 -> Body -> H2 (inner back edge) ->
// H1tail -> H1 (outer back edge), so the outer loop {H1,H2,Body,H1tail}
// contains the inner loop {H2,Body}.
func buildNestedLoops(ids *ir.IDContext) (*ir.Function, map[string]*ir.BasicBlock) {
	fn := ir.NewFunction("nested", ids)
	c1, c2 := ids.NewVar(), ids.NewVar()

	h1Lbl, h2Lbl, bodyLbl, tailLbl, exitLbl := ids.NewLabel(), ids.NewLabel(), ids.NewLabel(), ids.NewLabel(), ids.NewLabel()

	h1 := &ir.BasicBlock{Label: h1Lbl}
	h1.Append(&ir.IfStmt{Relop: ir.RelLT, Rs1: ir.VarValue(c1), Rs2: ir.ConstValue(10), TrueLabel: h2Lbl, FalseLabel: exitLbl})

	h2 := &ir.BasicBlock{Label: h2Lbl}
	h2.Append(&ir.IfStmt{Relop: ir.RelLT, Rs1: ir.VarValue(c2), Rs2: ir.ConstValue(10), TrueLabel: bodyLbl, FalseLabel: tailLbl})

	body := &ir.BasicBlock{Label: bodyLbl}
	body.Append(&ir.GotoStmt{Target: h2Lbl})

	tail := &ir.BasicBlock{Label: tailLbl}
	tail.Append(&ir.GotoStmt{Target: h1Lbl})

	exitBlk := &ir.BasicBlock{Label: exitLbl}
	exitBlk.Append(&ir.ReturnStmt{HasRs: false})

	fn.AppendBlock(h1)
	fn.AppendBlock(h2)
	fn.AppendBlock(body)
	fn.AppendBlock(tail)
	fn.AppendBlock(exitBlk)
	cfg.Build(fn)

	return fn, map[string]*ir.BasicBlock{
		"h1": h1, "h2": h2, "body": body, "tail": tail, "exit": exitBlk,
	}
}

func TestBuildHierarchyNestsInnerLoopUnderOuter(t *testing.T) {
	ids := ir.NewIDContext()
	fn, blocks := buildNestedLoops(ids)
	dom := dominance.Compute(fn, 0)
	loops := DetectLoops(fn, dom)
	require.Len(t, loops, 2)

	var outer, inner *Loop
	for _, l := range loops {
		if l.Header == blocks["h1"] {
			outer = l
		}
		if l.Header == blocks["h2"] {
			inner = l
		}
	}
	require.NotNil(t, outer)
	require.NotNil(t, inner)

	assert.True(t, outer.Contains(blocks["h1"]))
	assert.True(t, outer.Contains(blocks["h2"]))
	assert.True(t, outer.Contains(blocks["body"]))
	assert.True(t, outer.Contains(blocks["tail"]))
	assert.True(t, inner.Contains(blocks["h2"]))
	assert.True(t, inner.Contains(blocks["body"]))
	assert.False(t, inner.Contains(blocks["h1"]))

	topLevel := BuildHierarchy(loops)
	require.Len(t, topLevel, 1)
	assert.Equal(t, outer, topLevel[0])
	assert.Equal(t, outer, inner.Parent)
	assert.Equal(t, 1, outer.Depth)
	assert.Equal(t, 2, inner.Depth)
	require.Len(t, outer.Children, 1)
	assert.Equal(t, inner, outer.Children[0])
}
