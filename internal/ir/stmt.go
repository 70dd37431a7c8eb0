package ir

import "fmt"

// OpKind is the arithmetic operator of an OP statement.
type OpKind int

const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpDiv
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// RelOp is the relational operator of an IF statement.
type RelOp int

const (
	RelEQ RelOp = iota
	RelNE
	RelGT
	RelGE
	RelLT
	RelLE
)

func (r RelOp) String() string {
	switch r {
	case RelEQ:
		return "="
	case RelNE:
		return "!="
	case RelGT:
		return ">"
	case RelGE:
		return ">="
	case RelLT:
		return "<"
	case RelLE:
		return "<="
	default:
		return "?"
	}
}

// Flip returns the logical negation of r (used by IfStmt.Flip).
func (r RelOp) Flip() RelOp {
	switch r {
	case RelEQ:
		return RelNE
	case RelNE:
		return RelEQ
	case RelGT:
		return RelLE
	case RelGE:
		return RelLT
	case RelLT:
		return RelGE
	case RelLE:
		return RelGT
	default:
		return r
	}
}

// Stmt is the closed set of three-address statement kinds (spec.md §3).
// Every statement exposes its defined variable (if any) and the ordered
// multiset of values it reads; DCE passes toggle Dead/SetDead.
type Stmt interface {
	DefinedVar() (Var, bool)
	UsedValues() []Value
	Dead() bool
	SetDead(bool)
	IsTerminator() bool
	// Successors returns the labels a terminator branches to, in the
	// order a CFG builder should discover edges. Non-terminators return nil.
	Successors() []Label
	String() string
}

type deadFlag struct{ dead bool }

func (d *deadFlag) Dead() bool      { return d.dead }
func (d *deadFlag) SetDead(b bool)  { d.dead = b }
func (d *deadFlag) IsTerminator() bool { return false }
func (d *deadFlag) Successors() []Label { return nil }

// OpStmt: rd := rs1 op rs2
type OpStmt struct {
	deadFlag
	Rd       Var
	Op       OpKind
	Rs1, Rs2 Value
}

func (s *OpStmt) DefinedVar() (Var, bool)  { return s.Rd, true }
func (s *OpStmt) UsedValues() []Value      { return []Value{s.Rs1, s.Rs2} }
func (s *OpStmt) String() string {
	return fmt.Sprintf("%s := %s %s %s", s.Rd, s.Rs1, s.Op, s.Rs2)
}

// AssignStmt: rd := rs
type AssignStmt struct {
	deadFlag
	Rd Var
	Rs Value
}

func (s *AssignStmt) DefinedVar() (Var, bool) { return s.Rd, true }
func (s *AssignStmt) UsedValues() []Value     { return []Value{s.Rs} }
func (s *AssignStmt) String() string          { return fmt.Sprintf("%s := %s", s.Rd, s.Rs) }

// LoadStmt: rd := *addr
type LoadStmt struct {
	deadFlag
	Rd   Var
	Addr Value
}

func (s *LoadStmt) DefinedVar() (Var, bool) { return s.Rd, true }
func (s *LoadStmt) UsedValues() []Value     { return []Value{s.Addr} }
func (s *LoadStmt) String() string          { return fmt.Sprintf("%s := *%s", s.Rd, s.Addr) }

// StoreStmt: *addr := rs
type StoreStmt struct {
	deadFlag
	Addr Value
	Rs   Value
}

func (s *StoreStmt) DefinedVar() (Var, bool) { return VarNone, false }
func (s *StoreStmt) UsedValues() []Value     { return []Value{s.Addr, s.Rs} }
func (s *StoreStmt) String() string          { return fmt.Sprintf("*%s := %s", s.Addr, s.Rs) }

// IfStmt: if rs1 relop rs2 goto TrueLabel else goto FalseLabel
type IfStmt struct {
	deadFlag
	Relop                RelOp
	Rs1, Rs2             Value
	TrueLabel, FalseLabel Label
}

func (s *IfStmt) DefinedVar() (Var, bool)  { return VarNone, false }
func (s *IfStmt) UsedValues() []Value      { return []Value{s.Rs1, s.Rs2} }
func (s *IfStmt) IsTerminator() bool       { return true }
func (s *IfStmt) Successors() []Label      { return []Label{s.TrueLabel, s.FalseLabel} }
func (s *IfStmt) String() string {
	return fmt.Sprintf("if %s %s %s goto %s else goto %s", s.Rs1, s.Relop, s.Rs2, s.TrueLabel, s.FalseLabel)
}

// Flip negates the condition and swaps the true/false targets, preserving
// semantics (ported from the original IR_if_stmt_flip).
func (s *IfStmt) Flip() {
	s.Relop = s.Relop.Flip()
	s.TrueLabel, s.FalseLabel = s.FalseLabel, s.TrueLabel
}

// GotoStmt: goto L
type GotoStmt struct {
	deadFlag
	Target Label
}

func (s *GotoStmt) DefinedVar() (Var, bool) { return VarNone, false }
func (s *GotoStmt) UsedValues() []Value     { return nil }
func (s *GotoStmt) IsTerminator() bool      { return true }
func (s *GotoStmt) Successors() []Label     { return []Label{s.Target} }
func (s *GotoStmt) String() string          { return fmt.Sprintf("goto %s", s.Target) }

// CallStmt: rd := f(args...); Rd == VarNone when the call has no result.
type CallStmt struct {
	deadFlag
	Rd   Var
	Func string
	Args []Value
}

func (s *CallStmt) DefinedVar() (Var, bool) {
	if s.Rd == VarNone {
		return VarNone, false
	}
	return s.Rd, true
}
func (s *CallStmt) UsedValues() []Value { return s.Args }
func (s *CallStmt) String() string {
	if s.Rd != VarNone {
		return fmt.Sprintf("%s := CALL %s%s", s.Rd, s.Func, argsString(s.Args))
	}
	return fmt.Sprintf("CALL %s%s", s.Func, argsString(s.Args))
}

func argsString(args []Value) string {
	out := "("
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a.String()
	}
	return out + ")"
}

// ReturnStmt: return rs
type ReturnStmt struct {
	deadFlag
	Rs    Value
	HasRs bool
}

func (s *ReturnStmt) DefinedVar() (Var, bool) { return VarNone, false }
func (s *ReturnStmt) UsedValues() []Value {
	if s.HasRs {
		return []Value{s.Rs}
	}
	return nil
}
func (s *ReturnStmt) IsTerminator() bool  { return true }
func (s *ReturnStmt) Successors() []Label { return nil }
func (s *ReturnStmt) String() string {
	if s.HasRs {
		return fmt.Sprintf("return %s", s.Rs)
	}
	return "return"
}

// ReadStmt: read rd
type ReadStmt struct {
	deadFlag
	Rd Var
}

func (s *ReadStmt) DefinedVar() (Var, bool) { return s.Rd, true }
func (s *ReadStmt) UsedValues() []Value     { return nil }
func (s *ReadStmt) String() string          { return fmt.Sprintf("read %s", s.Rd) }

// WriteStmt: write rs
type WriteStmt struct {
	deadFlag
	Rs Value
}

func (s *WriteStmt) DefinedVar() (Var, bool) { return VarNone, false }
func (s *WriteStmt) UsedValues() []Value     { return []Value{s.Rs} }
func (s *WriteStmt) String() string          { return fmt.Sprintf("write %s", s.Rs) }

// SideEffecting reports whether a statement kind may have an observable
// effect beyond defining a variable, and is therefore never a DCE
// candidate by itself (spec.md §4.6).
func SideEffecting(s Stmt) bool {
	switch s.(type) {
	case *LoadStmt, *StoreStmt, *CallStmt, *ReadStmt, *WriteStmt,
		*IfStmt, *GotoStmt, *ReturnStmt:
		return true
	default:
		return false
	}
}
