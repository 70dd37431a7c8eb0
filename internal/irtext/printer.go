package irtext

import (
	"fmt"
	"strings"

	"tacopt/internal/ir"
)

// Print renders fn back into spec.md §6's textual grammar ("Output IR —
// same grammar; labels never referenced are suppressed by the printer;
// declarations of retained variables are emitted at the top of each
// function"). Dead statements are omitted. Each statement line reuses
// ir.Stmt.String(), so the printer and every pass's debug output agree.
func Print(fn *ir.Function) string {
	referenced := make(map[ir.Label]bool)
	for _, b := range fn.Blocks {
		for _, l := range successorsOf(b) {
			referenced[l] = true
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "FUNCTION %s :\n", fn.Name)
	for _, p := range fn.Params {
		fmt.Fprintf(&sb, "PARAM %s\n", p.V)
	}
	for v, d := range fn.Decls {
		fmt.Fprintf(&sb, "DEC %s %d\n", v, d.Size)
	}

	for _, b := range fn.Blocks {
		if b.Dead {
			continue
		}
		if b.Label != ir.LabelNone && referenced[b.Label] {
			fmt.Fprintf(&sb, "LABEL %s :\n", b.Label)
		}
		for _, s := range b.Stmts {
			if s.Dead() {
				continue
			}
			if call, ok := s.(*ir.CallStmt); ok {
				printCall(&sb, call)
				continue
			}
			fmt.Fprintf(&sb, "%s\n", s.String())
		}
	}
	return sb.String()
}

// printCall renders a CallStmt as spec.md §6's ARG-prefixed sequence
// rather than ir.CallStmt.String()'s parenthesized debug form, so
// Print's output stays parseable by this package's own Parse.
func printCall(sb *strings.Builder, call *ir.CallStmt) {
	for _, a := range call.Args {
		fmt.Fprintf(sb, "ARG %s\n", a)
	}
	if call.Rd != ir.VarNone {
		fmt.Fprintf(sb, "%s := CALL %s\n", call.Rd, call.Func)
	} else {
		fmt.Fprintf(sb, "CALL %s\n", call.Func)
	}
}

func successorsOf(b *ir.BasicBlock) []ir.Label {
	if len(b.Stmts) == 0 {
		return nil
	}
	return b.Stmts[len(b.Stmts)-1].Successors()
}
