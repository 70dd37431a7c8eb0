package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpStmt(t *testing.T) {
	s := &OpStmt{Rd: 3, Op: OpAdd, Rs1: VarValue(1), Rs2: ConstValue(2)}
	rd, ok := s.DefinedVar()
	assert.True(t, ok)
	assert.Equal(t, Var(3), rd)
	assert.Equal(t, []Value{VarValue(1), ConstValue(2)}, s.UsedValues())
	assert.False(t, s.IsTerminator())
	assert.Nil(t, s.Successors())
	assert.Equal(t, "v3 := v1 + #2", s.String())
}

func TestAssignStmt(t *testing.T) {
	s := &AssignStmt{Rd: 2, Rs: VarValue(1)}
	rd, ok := s.DefinedVar()
	assert.True(t, ok)
	assert.Equal(t, Var(2), rd)
	assert.Equal(t, "v2 := v1", s.String())
}

func TestLoadAndStoreStmt(t *testing.T) {
	load := &LoadStmt{Rd: 2, Addr: VarValue(1)}
	rd, ok := load.DefinedVar()
	assert.True(t, ok)
	assert.Equal(t, Var(2), rd)
	assert.Equal(t, "v2 := *v1", load.String())

	store := &StoreStmt{Addr: VarValue(1), Rs: ConstValue(9)}
	_, ok = store.DefinedVar()
	assert.False(t, ok)
	assert.Equal(t, []Value{VarValue(1), ConstValue(9)}, store.UsedValues())
	assert.Equal(t, "*v1 := #9", store.String())
}

func TestIfStmtSuccessorsAndFlip(t *testing.T) {
	s := &IfStmt{Relop: RelLT, Rs1: VarValue(1), Rs2: ConstValue(0), TrueLabel: 2, FalseLabel: 3}
	assert.True(t, s.IsTerminator())
	assert.Equal(t, []Label{2, 3}, s.Successors())
	assert.Equal(t, "if v1 < #0 goto L2 else goto L3", s.String())

	s.Flip()
	assert.Equal(t, RelGE, s.Relop)
	assert.Equal(t, Label(3), s.TrueLabel)
	assert.Equal(t, Label(2), s.FalseLabel)
}

func TestGotoStmt(t *testing.T) {
	s := &GotoStmt{Target: 4}
	assert.True(t, s.IsTerminator())
	assert.Equal(t, []Label{4}, s.Successors())
	assert.Nil(t, s.UsedValues())
	assert.Equal(t, "goto L4", s.String())
}

func TestCallStmtWithAndWithoutResult(t *testing.T) {
	withResult := &CallStmt{Rd: 1, Func: "foo", Args: []Value{ConstValue(1), VarValue(2)}}
	rd, ok := withResult.DefinedVar()
	assert.True(t, ok)
	assert.Equal(t, Var(1), rd)
	assert.Equal(t, "v1 := CALL foo(#1, v2)", withResult.String())

	noResult := &CallStmt{Func: "bar"}
	_, ok = noResult.DefinedVar()
	assert.False(t, ok)
	assert.Equal(t, "CALL bar()", noResult.String())
}

func TestReturnStmtWithAndWithoutValue(t *testing.T) {
	withVal := &ReturnStmt{Rs: VarValue(1), HasRs: true}
	assert.True(t, withVal.IsTerminator())
	assert.Equal(t, []Value{VarValue(1)}, withVal.UsedValues())
	assert.Equal(t, "return v1", withVal.String())

	bare := &ReturnStmt{}
	assert.Nil(t, bare.UsedValues())
	assert.Equal(t, "return", bare.String())
}

func TestReadAndWriteStmt(t *testing.T) {
	read := &ReadStmt{Rd: 5}
	rd, ok := read.DefinedVar()
	assert.True(t, ok)
	assert.Equal(t, Var(5), rd)
	assert.Nil(t, read.UsedValues())
	assert.Equal(t, "read v5", read.String())

	write := &WriteStmt{Rs: ConstValue(7)}
	_, ok = write.DefinedVar()
	assert.False(t, ok)
	assert.Equal(t, "write #7", write.String())
}

func TestSideEffectingClassifiesEveryStmtKind(t *testing.T) {
	assert.False(t, SideEffecting(&OpStmt{}))
	assert.False(t, SideEffecting(&AssignStmt{}))
	assert.True(t, SideEffecting(&LoadStmt{}))
	assert.True(t, SideEffecting(&StoreStmt{}))
	assert.True(t, SideEffecting(&CallStmt{}))
	assert.True(t, SideEffecting(&ReadStmt{}))
	assert.True(t, SideEffecting(&WriteStmt{}))
	assert.True(t, SideEffecting(&IfStmt{}))
	assert.True(t, SideEffecting(&GotoStmt{}))
	assert.True(t, SideEffecting(&ReturnStmt{}))
}

func TestDeadFlagDefaultsToLiveAndTogglesIndependently(t *testing.T) {
	s := &AssignStmt{Rd: 1, Rs: ConstValue(1)}
	assert.False(t, s.Dead())
	s.SetDead(true)
	assert.True(t, s.Dead())
	s.SetDead(false)
	assert.False(t, s.Dead())
}
