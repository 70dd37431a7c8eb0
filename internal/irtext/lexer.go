package irtext

import "github.com/alecthomas/participle/v2/lexer"

// textLexer tokenizes spec.md §6's grammar, ported from the shape of the
// teacher's grammar/lexer.go stateful lexer (github.com/alecthomas/
// participle/v2/lexer.MustStateful) but collapsed to a single "Root"
// state: the IR text format has no nested lexical modes (no string
// interpolation, no doc comments) the way Kanso source does.
var textLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Int", `[0-9]+`, nil},
		{"Op2", `:=|!=|>=|<=`, nil},
		{"Punct", `[#&*+\-/=<>(),;:]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
