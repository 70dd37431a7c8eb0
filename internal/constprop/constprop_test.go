package constprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tacopt/internal/cfg"
	"tacopt/internal/ir"
)

// buildStraightLine builds: x := 2; y := 3; z := x + y; return z
func buildStraightLine(ids *ir.IDContext) *ir.Function {
	fn := ir.NewFunction("straight", ids)
	x, y, z := ids.NewVar(), ids.NewVar(), ids.NewVar()
	b := &ir.BasicBlock{}
	b.Append(&ir.AssignStmt{Rd: x, Rs: ir.ConstValue(2)})
	b.Append(&ir.AssignStmt{Rd: y, Rs: ir.ConstValue(3)})
	b.Append(&ir.OpStmt{Rd: z, Op: ir.OpAdd, Rs1: ir.VarValue(x), Rs2: ir.VarValue(y)})
	b.Append(&ir.ReturnStmt{Rs: ir.VarValue(z), HasRs: true})
	fn.AppendBlock(b)
	cfg.Build(fn)
	return fn
}

func TestSolveFoldsStraightLineConstants(t *testing.T) {
	ids := ir.NewIDContext()
	fn := buildStraightLine(ids)

	res := Solve(fn)
	changed := Fold(fn, res)
	require.True(t, changed)

	op := fn.Blocks[1].Stmts[2].(*ir.OpStmt)
	assert.True(t, op.Rs1.IsConst)
	assert.Equal(t, int64(2), op.Rs1.Const)
	assert.True(t, op.Rs2.IsConst)
	assert.Equal(t, int64(3), op.Rs2.Const)

	ret := fn.Blocks[1].Stmts[3].(*ir.ReturnStmt)
	assert.True(t, ret.Rs.IsConst, "z := 2 + 3 evaluates to CONST 5, so its use in return is folded; only DCE removes the dead OP later")
	assert.Equal(t, int64(5), ret.Rs.Const)
}

func TestParamsAreBoundaryNAC(t *testing.T) {
	ids := ir.NewIDContext()
	fn := ir.NewFunction("f", ids)
	p := ids.NewVar()
	fn.Params = []ir.Parameter{{V: p}}
	r := ids.NewVar()
	b := &ir.BasicBlock{}
	b.Append(&ir.AssignStmt{Rd: r, Rs: ir.VarValue(p)})
	b.Append(&ir.ReturnStmt{Rs: ir.VarValue(r), HasRs: true})
	fn.AppendBlock(b)
	cfg.Build(fn)

	res := Solve(fn)
	Fold(fn, res)

	assign := fn.Blocks[1].Stmts[0].(*ir.AssignStmt)
	assert.False(t, assign.Rs.IsConst, "parameter seeded NAC must never fold to a constant")
}

func TestMeetRules(t *testing.T) {
	assert.Equal(t, ConstValue(5), meet(UndefValue(), ConstValue(5)))
	assert.Equal(t, ConstValue(5), meet(ConstValue(5), ConstValue(5)))
	assert.Equal(t, NACValue(), meet(ConstValue(5), ConstValue(6)))
	assert.Equal(t, NACValue(), meet(NACValue(), ConstValue(5)))
}

func TestDivisionByConstantZeroYieldsUndef(t *testing.T) {
	assert.Equal(t, UndefValue(), evalOp(ir.OpDiv, ConstValue(10), ConstValue(0)))
}

func TestDivisionByRuntimeZeroSkipsFold(t *testing.T) {
	ids := ir.NewIDContext()
	fn := ir.NewFunction("divz", ids)
	x, z := ids.NewVar(), ids.NewVar()
	b := &ir.BasicBlock{}
	b.Append(&ir.OpStmt{Rd: z, Op: ir.OpDiv, Rs1: ir.ConstValue(10), Rs2: ir.VarValue(x)})
	b.Append(&ir.ReturnStmt{Rs: ir.VarValue(z), HasRs: true})
	fn.AppendBlock(b)
	cfg.Build(fn)

	res := Solve(fn)
	Fold(fn, res)
	op := fn.Blocks[1].Stmts[0].(*ir.OpStmt)
	assert.False(t, op.Rs2.IsConst)
}
