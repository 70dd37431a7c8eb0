package irtext

import (
	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"

	"tacopt/internal/ir"
)

// Parse builds a *ir.Function from spec.md §6's textual grammar, minting
// fresh ids from ids for every variable/label name the first time it is
// seen (names are opaque labels here, not guaranteed to match the
// resulting Var/Label's numeric value). Parse does not call
// internal/cfg.Build; callers construct CFG adjacency themselves, the
// same as any other hand-built fixture.
func Parse(src string, ids *ir.IDContext) (*ir.Function, error) {
	parser, err := participle.Build[file](
		participle.Lexer(textLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(4),
	)
	if err != nil {
		return nil, errors.Wrap(err, "irtext: build grammar")
	}

	f, err := parser.ParseString("", src)
	if err != nil {
		return nil, errors.Wrap(err, "irtext: parse")
	}

	return convert(f, ids)
}

type symbols struct {
	ids    *ir.IDContext
	vars   map[string]ir.Var
	labels map[string]ir.Label
}

func (s *symbols) varFor(name string) ir.Var {
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := s.ids.NewVar()
	s.vars[name] = v
	return v
}

func (s *symbols) labelFor(name string) ir.Label {
	if l, ok := s.labels[name]; ok {
		return l
	}
	l := s.ids.NewLabel()
	s.labels[name] = l
	return l
}

func (s *symbols) value(o operand) ir.Value {
	if o.Const != nil {
		return ir.ConstValue(*o.Const)
	}
	return ir.VarValue(s.varFor(o.Var))
}

func convert(f *file, ids *ir.IDContext) (*ir.Function, error) {
	sym := &symbols{ids: ids, vars: make(map[string]ir.Var), labels: make(map[string]ir.Label)}

	name := "f"
	var decSizes map[string]int64
	if f.Header != nil {
		name = f.Header.Name
		decSizes = make(map[string]int64, len(f.Header.Decs))
		for _, d := range f.Header.Decs {
			decSizes[d.Var] = d.Size
		}
	}

	fn := ir.NewFunction(name, ids)
	if f.Header != nil {
		for _, p := range f.Header.Params {
			fn.Params = append(fn.Params, ir.Parameter{V: sym.varFor(p)})
		}
	}

	if len(f.Entry) > 0 || len(f.Blocks) == 0 {
		blk := &ir.BasicBlock{}
		if err := convertStmts(f.Entry, blk, sym, decSizes, fn); err != nil {
			return nil, err
		}
		fn.AppendBlock(blk)
	}
	for _, b := range f.Blocks {
		blk := &ir.BasicBlock{Label: sym.labelFor(b.Label)}
		if err := convertStmts(b.Stmts, blk, sym, decSizes, fn); err != nil {
			return nil, err
		}
		fn.AppendBlock(blk)
	}

	return fn, nil
}

func convertStmts(stmts []*stmt, blk *ir.BasicBlock, sym *symbols, decSizes map[string]int64, fn *ir.Function) error {
	var pendingArgs []ir.Value
	for _, s := range stmts {
		switch {
		case s.AddrOf != nil:
			base := sym.varFor(s.AddrOf.Rs)
			addr := sym.varFor(s.AddrOf.Rd)
			fn.Decls[base] = ir.Declaration{AddrVar: addr, Size: uint32(decSizes[s.AddrOf.Rs])}

		case s.Load != nil:
			blk.Append(&ir.LoadStmt{Rd: sym.varFor(s.Load.Rd), Addr: sym.value(s.Load.Addr)})

		case s.Arg != nil:
			pendingArgs = append(pendingArgs, sym.value(s.Arg.Val))

		case s.Call != nil:
			rd := ir.VarNone
			if s.Call.Rd != "" {
				rd = sym.varFor(s.Call.Rd)
			}
			blk.Append(&ir.CallStmt{Rd: rd, Func: s.Call.Func, Args: pendingArgs})
			pendingArgs = nil

		case s.Op != nil:
			op, err := opKind(s.Op.Op)
			if err != nil {
				return err
			}
			blk.Append(&ir.OpStmt{Rd: sym.varFor(s.Op.Rd), Op: op, Rs1: sym.value(s.Op.Rs1), Rs2: sym.value(s.Op.Rs2)})

		case s.Assign != nil:
			blk.Append(&ir.AssignStmt{Rd: sym.varFor(s.Assign.Rd), Rs: sym.value(s.Assign.Rs)})

		case s.Store != nil:
			blk.Append(&ir.StoreStmt{Addr: sym.value(s.Store.Addr), Rs: sym.value(s.Store.Rs)})

		case s.If != nil:
			rel, err := relOp(s.If.Relop)
			if err != nil {
				return err
			}
			blk.Append(&ir.IfStmt{
				Relop: rel, Rs1: sym.value(s.If.Rs1), Rs2: sym.value(s.If.Rs2),
				TrueLabel: sym.labelFor(s.If.TrueLabel), FalseLabel: sym.labelFor(s.If.FalseLbl),
			})

		case s.Goto != nil:
			blk.Append(&ir.GotoStmt{Target: sym.labelFor(s.Goto.Target)})

		case s.Return != nil:
			if s.Return.Rs != nil {
				blk.Append(&ir.ReturnStmt{Rs: sym.value(*s.Return.Rs), HasRs: true})
			} else {
				blk.Append(&ir.ReturnStmt{HasRs: false})
			}

		case s.Read != nil:
			blk.Append(&ir.ReadStmt{Rd: sym.varFor(s.Read.Rd)})

		case s.Write != nil:
			blk.Append(&ir.WriteStmt{Rs: sym.value(s.Write.Rs)})
		}
	}
	return nil
}

func opKind(sym string) (ir.OpKind, error) {
	switch sym {
	case "+":
		return ir.OpAdd, nil
	case "-":
		return ir.OpSub, nil
	case "*":
		return ir.OpMul, nil
	case "/":
		return ir.OpDiv, nil
	default:
		return 0, errors.Errorf("irtext: unknown operator %q", sym)
	}
}

func relOp(sym string) (ir.RelOp, error) {
	switch sym {
	case "=":
		return ir.RelEQ, nil
	case "!=":
		return ir.RelNE, nil
	case ">":
		return ir.RelGT, nil
	case ">=":
		return ir.RelGE, nil
	case "<":
		return ir.RelLT, nil
	case "<=":
		return ir.RelLE, nil
	default:
		return 0, errors.Errorf("irtext: unknown relop %q", sym)
	}
}
