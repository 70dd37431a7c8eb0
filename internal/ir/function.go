package ir

// Declaration records, for a user-declared array/struct variable, the
// address-holding variable that names its base address and its size in
// bytes (spec.md §3; ported from the original IR_Dec/IR_function_insert_dec).
type Declaration struct {
	AddrVar Var
	Size    uint32
}

// Parameter is a function formal parameter.
type Parameter struct {
	V Var
}

// Function is a name, an ordered parameter list, a declaration table, an
// ordered list of blocks, designated entry/exit blocks, a label index and
// CFG adjacency (the adjacency itself lives on the blocks; Entry/Exit and
// the label index are the function-level anchors, spec.md §3).
type Function struct {
	Name    string
	Params  []Parameter
	Decls   map[Var]Declaration
	Blocks  []*BasicBlock
	Entry   *BasicBlock
	Exit    *BasicBlock
	Labels  map[Label]*BasicBlock

	ids *IDContext
}

// NewFunction creates an empty function bound to the given id context.
func NewFunction(name string, ids *IDContext) *Function {
	return &Function{
		Name:   name,
		Decls:  make(map[Var]Declaration),
		Labels: make(map[Label]*BasicBlock),
		ids:    ids,
	}
}

// IDs returns the shared id-minting context this function was built with.
func (f *Function) IDs() *IDContext { return f.ids }

// Declare registers a size-byte array/struct declaration for var v and
// returns the fresh address-holding variable naming v's base address
// (ports IR_function_insert_dec).
func (f *Function) Declare(v Var, size uint32) Var {
	addr := f.ids.NewVar()
	f.Decls[v] = Declaration{AddrVar: addr, Size: size}
	return addr
}

// AppendBlock appends a fresh block to the function and indexes it by
// label if it has one.
func (f *Function) AppendBlock(b *BasicBlock) {
	f.Blocks = append(f.Blocks, b)
	if b.Label != LabelNone {
		f.Labels[b.Label] = b
	}
}

// BlockByLabel resolves a label to its block, or nil if unresolved
// (spec.md §4.1 permits unreachable labels; callers needing a hard
// guarantee should check the invariant explicitly).
func (f *Function) BlockByLabel(l Label) *BasicBlock {
	return f.Labels[l]
}

// DetachDead removes every block marked Dead from Blocks (and the label
// index), batched after a pass per spec.md §4.1.
func (f *Function) DetachDead() bool {
	changed := false
	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if b.Dead {
			changed = true
			if b.Label != LabelNone {
				delete(f.Labels, b.Label)
			}
			continue
		}
		kept = append(kept, b)
	}
	f.Blocks = kept
	return changed
}
