package compiler

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota

	// Literals
	NUMBER
	STRING
	SYMBOL // :name or a bare identifier that is not a keyword

	// Operators (stack, temporal, math, comparison, logical, control flow)
	OPERATION

	// Structure
	LBRACKET  // [
	RBRACKET  // ]
	SEMICOLON // ;
)

// String names a token type for diagnostics.
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case SYMBOL:
		return "SYMBOL"
	case OPERATION:
		return "OPERATION"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	case SEMICOLON:
		return "SEMICOLON"
	default:
		return "UNKNOWN"
	}
}

// Token is a lexed token with its source position (1-based line and column).
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// keywords maps every built-in operator name to the OPERATION token type.
// Identifiers outside this set lex as SYMBOL.
var keywords = map[string]bool{
	// Stack operations
	"push": true, "pop": true, "dup": true, "swap": true, "rot": true,

	// Temporal operations
	"tick": true, "rewind": true, "peek-future": true, "branch": true,
	"merge": true, "paradox!": true, "echo": true, "send": true,
	"temporal-fold": true, "ripple": true,

	// Math
	"+": true, "-": true, "*": true, "/": true, "%": true,

	// Comparison
	"<": true, ">": true, "=": true,

	// Logic
	"and": true, "or": true, "not": true,

	// Control flow
	"if": true, "loop": true, "when-stable": true,
}
