package ir

// BasicBlock is an ordered, non-empty sequence of statements plus an
// optional label. Invariant: at most one branch/terminator statement, and
// it is always last; every other statement falls through.
type BasicBlock struct {
	Label Label
	Stmts []Stmt
	Dead  bool

	Preds []*BasicBlock
	Succs []*BasicBlock
}

// Terminator returns the block's last statement if it is a terminator, or
// nil if the block has not yet been closed with one (only valid before CFG
// construction materializes implicit fall-through gotos).
func (b *BasicBlock) Terminator() Stmt {
	if len(b.Stmts) == 0 {
		return nil
	}
	last := b.Stmts[len(b.Stmts)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// Append adds a statement to the end of the block.
func (b *BasicBlock) Append(s Stmt) {
	b.Stmts = append(b.Stmts, s)
}

// RemoveDead compacts Stmts in place, dropping every statement marked dead.
// Reports whether anything was removed.
func (b *BasicBlock) RemoveDead() bool {
	changed := false
	kept := b.Stmts[:0]
	for _, s := range b.Stmts {
		if s.Dead() {
			changed = true
			continue
		}
		kept = append(kept, s)
	}
	b.Stmts = kept
	return changed
}
