package compiler

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"var":    VAR,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"def":    DEF,
	"return": RETURN,
	"extern": EXTERN,
}

// Lexer holds all mutable state for a single scanning pass over src.
// Tokens are produced on demand by Next.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // current 1-based column

	err error // sticky: the first error encountered
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// Reset rewinds the lexer to the beginning of its source.
func (l *Lexer) Reset() {
	l.pos = 0
	l.line = 1
	l.col = 1
	l.err = nil
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) here() Position {
	return Position{Line: l.line, Col: l.col}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

func isOctalDigit(r rune) bool {
	return r >= '0' && r <= '7'
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && isSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to end-of-line.
// The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards everything up to and including the closing "*/".
// The opening "/*" must already have been consumed; start is where it began.
func (l *Lexer) skipBlockComment(start Position) error {
	for !l.atEnd() {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance() // *
			l.advance() // /
			return nil
		}
		l.advance()
	}
	return &LexError{Kind: UnterminatedComment, Pos: start}
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	pos := l.here()
	start := l.pos
	for !l.atEnd() && (isLetter(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Pos: pos}
}

// scanNumber collects a decimal, hexadecimal (0x1F) or octal (0o17) literal.
// A fractional part is only taken when a digit follows the dot.
// The first digit must still be at l.peek().
func (l *Lexer) scanNumber() Token {
	pos := l.here()
	start := l.pos

	switch {
	case l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') && l.pos+2 < len(l.src) && isHexDigit(l.src[l.pos+2]):
		l.advance() // 0
		l.advance() // x
		for !l.atEnd() && isHexDigit(l.peek()) {
			l.advance()
		}
	case l.peek() == '0' && (l.peek2() == 'o' || l.peek2() == 'O') && l.pos+2 < len(l.src) && isOctalDigit(l.src[l.pos+2]):
		l.advance() // 0
		l.advance() // o
		for !l.atEnd() && isOctalDigit(l.peek()) {
			l.advance()
		}
	default:
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
		if l.peek() == '.' && isDigit(l.peek2()) {
			l.advance() // .
			for !l.atEnd() && isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	return Token{Type: NUMBER, Lexeme: string(l.src[start:l.pos]), Pos: pos}
}

// scanString collects a string literal "...". There are no escape
// sequences: the literal ends at the next double quote.
func (l *Lexer) scanString() (Token, error) {
	pos := l.here()
	start := l.pos
	l.advance() // opening "

	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			return Token{}, &LexError{Kind: UnterminatedString, Pos: pos}
		}
		l.advance()
	}
	if l.atEnd() {
		return Token{}, &LexError{Kind: UnterminatedString, Pos: pos}
	}
	l.advance() // closing "

	return Token{Type: STRING, Lexeme: string(l.src[start:l.pos]), Pos: pos}, nil
}

// Next skips whitespace/comments and returns the next Token. Once EOF has
// been produced it keeps returning EOF; once an error has been produced it
// keeps returning that error.
func (l *Lexer) Next() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	tok, err := l.nextToken()
	if err != nil {
		l.err = err
		return Token{}, err
	}
	return tok, nil
}

func (l *Lexer) nextToken() (Token, error) {
	// Skip whitespace and both comment styles in a loop so that
	// a comment followed immediately by more whitespace is handled.
	for {
		l.skipWhitespace()
		if l.atEnd() {
			return Token{Type: EOF, Lexeme: "", Pos: l.here()}, nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			start := l.here()
			l.advance()
			l.advance()
			if err := l.skipBlockComment(start); err != nil {
				return Token{}, err
			}
			continue
		}
		break
	}

	ch := l.peek()
	pos := l.here()

	if isLetter(ch) {
		return l.scanIdent(), nil
	}
	if isDigit(ch) {
		return l.scanNumber(), nil
	}
	if ch == '"' {
		return l.scanString()
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '(':
		return Token{LPAREN, "(", pos}, nil
	case ')':
		return Token{RPAREN, ")", pos}, nil
	case '{':
		return Token{LBRACE, "{", pos}, nil
	case '}':
		return Token{RBRACE, "}", pos}, nil
	case ',':
		return Token{COMMA, ",", pos}, nil
	case ';':
		return Token{SEMICOLON, ";", pos}, nil
	case '+':
		return Token{PLUS, "+", pos}, nil
	case '-':
		return Token{MINUS, "-", pos}, nil
	case '/':
		return Token{SLASH, "/", pos}, nil
	case '*':
		if l.peek() == '*' {
			l.advance()
			return Token{STAR_STAR, "**", pos}, nil
		}
		return Token{STAR, "*", pos}, nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return Token{AND_LOGICAL, "&&", pos}, nil
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{OR_LOGICAL, "||", pos}, nil
		}
	case '!':
		if l.peek() == '=' {
			l.advance()
			return Token{NOT_EQ, "!=", pos}, nil
		}
		return Token{NOT, "!", pos}, nil
	case '<':
		if l.peek() == '=' {
			l.advance()
			return Token{LESS_EQ, "<=", pos}, nil
		}
		return Token{LESS, "<", pos}, nil
	case '>':
		if l.peek() == '=' {
			l.advance()
			return Token{GREATER_EQ, ">=", pos}, nil
		}
		return Token{GREATER, ">", pos}, nil
	case '=':
		if l.peek() == '=' { // lookahead: distinguish = vs ==
			l.advance()
			return Token{EQUALS, "==", pos}, nil
		}
		return Token{ASSIGN, "=", pos}, nil
	}
	return Token{}, &LexError{Kind: UnexpectedCharacter, Pos: pos, Char: ch}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a non-nil error on the first illegal character, unterminated
// string or unterminated comment.
func Lex(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
