package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tacopt/internal/ir"
)

func TestBuildSynthesizesEntryAndExitForEmptyFunction(t *testing.T) {
	ids := ir.NewIDContext()
	fn := ir.NewFunction("empty", ids)

	Build(fn)

	require.NotNil(t, fn.Entry)
	require.NotNil(t, fn.Exit)
	require.Len(t, fn.Blocks, 2)
	assert.Contains(t, fn.Entry.Succs, fn.Exit)
}

func TestBuildMaterializesFallThroughGoto(t *testing.T) {
	ids := ir.NewIDContext()
	fn := ir.NewFunction("f", ids)
	v := ids.NewVar()

	first := &ir.BasicBlock{}
	first.Append(&ir.AssignStmt{Rd: v, Rs: ir.ConstValue(1)})
	second := &ir.BasicBlock{}
	second.Append(&ir.ReturnStmt{Rs: ir.VarValue(v), HasRs: true})
	fn.AppendBlock(first)
	fn.AppendBlock(second)

	Build(fn)

	term := first.Terminator()
	require.NotNil(t, term, "materializeFallThrough must give the first block an explicit terminator")
	goTo, ok := term.(*ir.GotoStmt)
	require.True(t, ok)
	assert.Equal(t, second.Label, goTo.Target)
	assert.Contains(t, first.Succs, second)
	assert.Contains(t, second.Preds, first)
}

func TestBuildLinksIfAndReturnSuccessors(t *testing.T) {
	ids := ir.NewIDContext()
	fn := ir.NewFunction("f", ids)
	v := ids.NewVar()
	tLbl, fLbl := ids.NewLabel(), ids.NewLabel()

	head := &ir.BasicBlock{}
	head.Append(&ir.IfStmt{Relop: ir.RelEQ, Rs1: ir.VarValue(v), Rs2: ir.ConstValue(0), TrueLabel: tLbl, FalseLabel: fLbl})
	tBlk := &ir.BasicBlock{Label: tLbl}
	tBlk.Append(&ir.ReturnStmt{HasRs: false})
	fBlk := &ir.BasicBlock{Label: fLbl}
	fBlk.Append(&ir.ReturnStmt{HasRs: false})
	fn.AppendBlock(head)
	fn.AppendBlock(tBlk)
	fn.AppendBlock(fBlk)

	Build(fn)

	assert.ElementsMatch(t, []*ir.BasicBlock{tBlk, fBlk}, head.Succs)
	assert.Contains(t, tBlk.Succs, fn.Exit)
	assert.Contains(t, fBlk.Succs, fn.Exit)
}

func TestReplaceSuccessorRetargetsTerminatorAndAdjacency(t *testing.T) {
	ids := ir.NewIDContext()
	fn := ir.NewFunction("f", ids)
	lbl := ids.NewLabel()

	pred := &ir.BasicBlock{}
	pred.Append(&ir.GotoStmt{Target: lbl})
	oldTarget := &ir.BasicBlock{Label: lbl}
	oldTarget.Append(&ir.ReturnStmt{HasRs: false})
	fn.AppendBlock(pred)
	fn.AppendBlock(oldTarget)
	Build(fn)

	newTarget := &ir.BasicBlock{Label: ids.NewLabel()}
	newTarget.Append(&ir.GotoStmt{Target: lbl})
	fn.AppendBlock(newTarget)
	newTarget.Succs = append(newTarget.Succs, oldTarget)
	oldTarget.Preds = append(oldTarget.Preds, newTarget)

	ReplaceSuccessor(fn, pred, oldTarget, newTarget)

	got, ok := pred.Terminator().(*ir.GotoStmt)
	require.True(t, ok)
	assert.Equal(t, newTarget.Label, got.Target)
	assert.NotContains(t, pred.Succs, oldTarget)
	assert.Contains(t, pred.Succs, newTarget)
	assert.NotContains(t, oldTarget.Preds, pred)
}
