package ir

import "github.com/sasha-s/go-deadlock"

// IDContext owns the two monotonic counters that mint fresh variable and
// label identifiers (spec.md §5). It is passed explicitly through
// construction rather than kept as a process-wide singleton so that
// independent compilations — and, for the optional concurrent pipeline
// extension, independent goroutines within one compilation — never share
// counter state accidentally.
//
// The counters only ever increase, except on an explicit Reset. Recycled
// ids (RecycleVar/RecycleLabel) are accepted by the API for symmetry with
// the original implementation's recycle hooks, but this implementation
// never reuses a retired id automatically — callers that want reuse must
// track freed ids themselves and mint lower numbers is not supported,
// since monotonicity is what the dataflow framework's dense-id bitsets
// rely on.
type IDContext struct {
	mu        deadlock.Mutex
	nextVar   uint32
	nextLabel uint32
}

// NewIDContext returns a fresh context with both counters past VarNone and
// LabelNone (both reserved to mean "none").
func NewIDContext() *IDContext {
	return &IDContext{nextVar: 1, nextLabel: 1}
}

// Reset rewinds both counters to 1, their starting value. Must only be called between independent
// compilations — never while any Function built from the prior counter
// epoch is still in use, since ids would collide.
func (c *IDContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextVar = 1
	c.nextLabel = 1
}

// NewVar mints a fresh variable identifier.
func (c *IDContext) NewVar() Var {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := Var(c.nextVar)
	c.nextVar++
	return v
}

// NewLabel mints a fresh label identifier.
func (c *IDContext) NewLabel() Label {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := Label(c.nextLabel)
	c.nextLabel++
	return l
}

// RecycleVar marks a variable id as available for conceptual reuse once its
// owning statement/block has been destroyed. No-op placeholder kept for
// parity with the original recycle contract; see the IDContext doc comment.
func (c *IDContext) RecycleVar(Var) {}

// RecycleLabel marks a label id as available for conceptual reuse.
func (c *IDContext) RecycleLabel(Label) {}
