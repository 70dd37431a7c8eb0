package ir

import "strings"

// Dump returns a compact, human-readable rendering of a block, used only
// for test failure messages — not the production pretty-printer spec.md §1
// excludes from this core's scope.
func (b *BasicBlock) Dump() string {
	var sb strings.Builder
	if b.Label != LabelNone {
		sb.WriteString(b.Label.String())
		sb.WriteString(":\n")
	}
	for _, s := range b.Stmts {
		sb.WriteString("  ")
		sb.WriteString(s.String())
		if s.Dead() {
			sb.WriteString("  ; dead")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Dump renders every block of the function in order.
func (f *Function) Dump() string {
	var sb strings.Builder
	sb.WriteString("FUNCTION ")
	sb.WriteString(f.Name)
	sb.WriteString(":\n")
	for _, b := range f.Blocks {
		sb.WriteString(b.Dump())
	}
	return sb.String()
}
