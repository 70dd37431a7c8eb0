// Package irtext is test-only tooling: a textual grammar (spec.md §6) for
// the three-address IR, parsed and printed with
// github.com/alecthomas/participle/v2 in the manner of the teacher's
// grammar package (grammar/lexer.go, grammar/parser.go), simplified to a
// single-state stateful lexer (lexer.go) since §6's token set (idents,
// integers, a handful of punctuation) needs none of the teacher's nested
// lexer states. It is never imported by internal/pipeline or any production
// package (spec.md §1's front-end non-goal) — it exists purely so
// _test.go files can build fixtures from the compact notation spec.md §8
// uses (S1-S6) instead of nested struct literals.
package irtext

// file is the grammar root: an optional function header followed by an
// implicit entry block of statements and zero or more LABEL-delimited
// blocks, matching §6's "FUNCTION f : / PARAM.. / DEC.. / LABEL L1 : ..."
// shape while also accepting the bare statement lists of §8's S1-S3
// scenarios (no header, no labels at all).
type file struct {
	Header *header  `parser:"@@?"`
	Entry  []*stmt  `parser:"@@*"`
	Blocks []*block `parser:"@@*"`
}

type header struct {
	Name   string     `parser:"\"FUNCTION\" @Ident \":\""`
	Params []string   `parser:"(\"PARAM\" @Ident)*"`
	Decs   []*decItem `parser:"(\"DEC\" @@)*"`
}

type decItem struct {
	Var  string `parser:"@Ident"`
	Size int64  `parser:"@Int"`
}

type block struct {
	Label string  `parser:"\"LABEL\" @Ident \":\""`
	Stmts []*stmt `parser:"@@*"`
}

// stmt is the closed alternation over every statement shape in §3's
// table, tried in an order chosen to resolve `:=`-prefix ambiguity: the
// address-of declaration form must be tried before the generic ASSIGN
// form, and OP (two operands) before ASSIGN (one).
// Call is tried before Op/Assign because both start with an optional
// "Ident :=" prefix; Call's mandatory "CALL" keyword right after that
// prefix fails cleanly (and backtracks) on any non-call statement, so
// trying it first never misclassifies a real OP/ASSIGN as a call, while
// trying it after Assign would let Assign's bare-Ident operand swallow
// the literal "CALL" as if it were a variable name.
type stmt struct {
	AddrOf *addrOfStmt `parser:"( @@"`
	Load   *loadStmt   `parser:"| @@"`
	Arg    *argStmt    `parser:"| @@"`
	Call   *callStmt   `parser:"| @@"`
	Op     *opStmt     `parser:"| @@"`
	Assign *assignStmt `parser:"| @@"`
	Store  *storeStmt  `parser:"| @@"`
	If     *ifStmt     `parser:"| @@"`
	Goto   *gotoStmt   `parser:"| @@"`
	Return *returnStmt `parser:"| @@"`
	Read   *readStmt   `parser:"| @@"`
	Write  *writeStmt  `parser:"| @@ ) \";\"?"`
}

// operand is §6's value grammar: "#k" for an integer literal, "v<n>" for
// a variable.
type operand struct {
	Const *int64 `parser:"(  \"#\" @Int"`
	Var   string `parser:" | @Ident )"`
}

// addrOfStmt: v8 := &v7, binding the address-holding variable of a
// declared array/struct (spec.md §5 supplement, original_source's
// IR_function_insert_dec).
type addrOfStmt struct {
	Rd string `parser:"@Ident \":=\" \"&\""`
	Rs string `parser:"@Ident"`
}

type opStmt struct {
	Rd  string  `parser:"@Ident \":=\""`
	Rs1 operand `parser:"@@"`
	Op  string  `parser:"@(\"+\" | \"-\" | \"*\" | \"/\")"`
	Rs2 operand `parser:"@@"`
}

type assignStmt struct {
	Rd string  `parser:"@Ident \":=\""`
	Rs operand `parser:"@@"`
}

type loadStmt struct {
	Rd   string  `parser:"@Ident \":=\" \"*\""`
	Addr operand `parser:"@@"`
}

type storeStmt struct {
	Addr operand `parser:"\"*\" @@ \":=\""`
	Rs   operand `parser:"@@"`
}

type ifStmt struct {
	Rs1       operand `parser:"\"if\" @@"`
	Relop     string  `parser:"@(\"=\" | \"!=\" | \">=\" | \">\" | \"<=\" | \"<\")"`
	Rs2       operand `parser:"@@"`
	TrueLabel string  `parser:"\"goto\" @Ident"`
	FalseLbl  string  `parser:"\"else\" \"goto\" @Ident"`
}

type gotoStmt struct {
	Target string `parser:"\"goto\" @Ident"`
}

// argStmt: ARG rs, one statement per argument, in call order, consumed by
// the CALL statement that follows (spec.md §6 lists ARG as a distinct
// keyword from CALL, so arguments are a run of preceding ARG statements
// rather than a parenthesized list — matching classic three-address-code
// call sequences).
type argStmt struct {
	Val operand `parser:"\"ARG\" @@"`
}

type callStmt struct {
	Rd   string `parser:"(@Ident \":=\")?"`
	Func string `parser:"\"CALL\" @Ident"`
}

type returnStmt struct {
	Rs *operand `parser:"\"return\" @@?"`
}

type readStmt struct {
	Rd string `parser:"\"read\" @Ident"`
}

type writeStmt struct {
	Rs operand `parser:"\"write\" @@"`
}
