package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function name
	NUMBER     // 12, 3.5, 0x1F, 0o17
	STRING     // "..."

	// Keywords
	VAR    // "var"
	IF     // "if"
	ELSE   // "else"
	WHILE  // "while"
	DEF    // "def"
	RETURN // "return"
	EXTERN // "extern"

	// Paired delimiters
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }

	// Punctuation
	COMMA     // ,
	SEMICOLON // ;

	// Arithmetic operators
	PLUS      // +
	MINUS     // - (binary subtraction or unary negation)
	STAR      // *
	SLASH     // /
	STAR_STAR // **
	NOT       // !

	AND_LOGICAL // &&
	OR_LOGICAL  // ||

	// Assignment / comparison
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	NUMBER:      "NUMBER",
	STRING:      "STRING",
	VAR:         "VAR",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	DEF:         "DEF",
	RETURN:      "RETURN",
	EXTERN:      "EXTERN",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	COMMA:       "COMMA",
	SEMICOLON:   "SEMICOLON",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	STAR_STAR:   "STAR_STAR",
	NOT:         "NOT",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
}

// operatorText is the source spelling of operator and punctuation tokens,
// used when rendering AST nodes back to text.
var operatorText = map[TokenType]string{
	LPAREN:      "(",
	RPAREN:      ")",
	LBRACE:      "{",
	RBRACE:      "}",
	COMMA:       ",",
	SEMICOLON:   ";",
	PLUS:        "+",
	MINUS:       "-",
	STAR:        "*",
	SLASH:       "/",
	STAR_STAR:   "**",
	NOT:         "!",
	AND_LOGICAL: "&&",
	OR_LOGICAL:  "||",
	ASSIGN:      "=",
	EQUALS:      "==",
	NOT_EQ:      "!=",
	LESS:        "<",
	GREATER:     ">",
	LESS_EQ:     "<=",
	GREATER_EQ:  ">=",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Symbol returns the source spelling of an operator token, or its name
// for every other token type.
func (tt TokenType) Symbol() string {
	if s, ok := operatorText[tt]; ok {
		return s
	}
	return tt.String()
}

// Position is a 1-based line/column location in the source text.
// Columns count runes, not bytes.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, col %d", p.Line, p.Col)
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Pos    Position
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  %s", t.Type, t.Lexeme, t.Pos)
}
