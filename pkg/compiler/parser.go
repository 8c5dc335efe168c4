package compiler

import (
	"math"
	"strconv"
	"strings"
)

// TokenSource yields tokens one at a time. *Lexer and *TokenStream both
// implement it.
type TokenSource interface {
	Next() (Token, error)
}

// TokenStream replays an already lexed token slice. Past the end it keeps
// returning EOF.
type TokenStream struct {
	tokens []Token
	pos    int
}

func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{tokens: tokens}
}

func (s *TokenStream) Next() (Token, error) {
	if s.pos >= len(s.tokens) {
		var pos Position
		if n := len(s.tokens); n > 0 {
			pos = s.tokens[n-1].Pos
		}
		return Token{Type: EOF, Pos: pos}, nil
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

// Parser pulls tokens from a TokenSource and builds an AST.
//
// Grammar:
//
//	program    = statement* EOF
//	statement  = varDecl | funcDecl | externDecl | if | while | return | block | simple
//	varDecl    = "var" IDENTIFIER ("=" expression)? ";"
//	funcDecl   = "def" IDENTIFIER "(" params? ")" block
//	externDecl = "extern" "def" IDENTIFIER "(" params? ")" ";"
//	params     = IDENTIFIER ("," IDENTIFIER)*
//	if         = "if" "(" expression ")" statement ("else" statement)?
//	while      = "while" "(" expression ")" statement
//	return     = "return" expression? ";"
//	block      = "{" statement* "}"
//	simple     = expression ("=" expression)? ";"
//	expression = logical_or
//	logical_or = logical_and ("||" logical_and)*
//	logical_and = equality ("&&" equality)*
//	equality   = relational (("==" | "!=") relational)*
//	relational = additive (("<" | "<=" | ">" | ">=") additive)*
//	additive   = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/") unary)*
//	unary      = ("!" | "-") unary | power
//	power      = postfix ("**" unary)?
//	postfix    = primary ("(" args? ")")?
//	primary    = NUMBER | STRING | IDENTIFIER | "(" expression ")"
type Parser struct {
	src TokenSource
	tok Token // current lookahead
	err error // first error reported by src
}

func NewParser(src TokenSource) *Parser {
	p := &Parser{src: src}
	p.fill()
	return p
}

// fill loads the next lookahead token. A token source error is remembered
// and the lookahead becomes EOF, so parsing winds down; every error path
// then reports the source error instead of its own.
func (p *Parser) fill() {
	if p.err != nil {
		return
	}
	tok, err := p.src.Next()
	if err != nil {
		p.err = err
		pos, _ := ErrorPos(err)
		p.tok = Token{Type: EOF, Pos: pos}
		return
	}
	p.tok = tok
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.tok
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.tok
	if tok.Type != EOF {
		p.fill()
	}
	return tok
}

// fail returns the token source's error if there was one, otherwise err.
func (p *Parser) fail(err *ParseError) error {
	if p.err != nil {
		return p.err
	}
	return err
}

// expected builds the error for a missing construct described by what.
func (p *Parser) expected(what string) error {
	tok := p.peek()
	if tok.Type == EOF {
		return p.fail(&ParseError{Kind: UnexpectedEndOfInput, Expected: what, Actual: tok, Pos: tok.Pos})
	}
	return p.fail(&ParseError{Kind: ExpectedToken, Expected: what, Actual: tok, Pos: tok.Pos})
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.peek().Type != tt {
		return p.peek(), p.expected(tt.String())
	}
	return p.advance(), nil
}

// ParseProgram parses statements up to EOF and returns them as the
// program's top-level Block.
func (p *Parser) ParseProgram() (*Block, error) {
	prog := &Block{Pos: Position{Line: 1, Col: 1}}
	for p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

// Parse lexes and parses src in one pass.
func Parse(src string) (*Block, error) {
	return NewParser(NewLexer(src)).ParseProgram()
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.peek().Type {
	case VAR:
		return p.parseVarDecl()
	case DEF:
		return p.parseFunctionDecl()
	case EXTERN:
		return p.parseExternDecl()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case RETURN:
		return p.parseReturn()
	case LBRACE:
		return p.parseBlock()
	}
	return p.parseSimpleStatement()
}

// parseVarDecl parses var name [= expr];
func (p *Parser) parseVarDecl() (Stmt, error) {
	kw := p.advance() // var
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	decl := &VarDecl{Name: name.Lexeme, Pos: kw.Pos}
	if p.peek().Type == ASSIGN {
		p.advance()
		decl.Init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseParams parses ( [IDENT {, IDENT}] ) including both parentheses.
func (p *Parser) parseParams() ([]string, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var params []string
	if p.peek().Type != RPAREN {
		seen := make(map[string]bool)
		for {
			tok, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			if seen[tok.Lexeme] {
				return nil, p.fail(&ParseError{Kind: ExpectedToken, Expected: "distinct parameter name", Actual: tok, Pos: tok.Pos})
			}
			seen[tok.Lexeme] = true
			params = append(params, tok.Lexeme)

			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

// parseFunctionDecl parses def name(params) { body }
func (p *Parser) parseFunctionDecl() (Stmt, error) {
	kw := p.advance() // def
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != LBRACE {
		return nil, p.expected(LBRACE.String())
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FunctionDecl{Name: name.Lexeme, Params: params, Body: body, Pos: kw.Pos}, nil
}

// parseExternDecl parses extern def name(params);
func (p *Parser) parseExternDecl() (Stmt, error) {
	kw := p.advance() // extern
	if _, err := p.expect(DEF); err != nil {
		return nil, err
	}
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ExternDecl{Name: name.Lexeme, Params: params, Pos: kw.Pos}, nil
}

// parseCondition parses ( expr ) after if / while.
func (p *Parser) parseCondition() (Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseIf parses if ( cond ) then [ else otherwise ].
// The else is consumed by the innermost if still waiting for one.
func (p *Parser) parseIf() (Stmt, error) {
	kw := p.advance() // if
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	stmt := &If{Cond: cond, Then: then, Pos: kw.Pos}
	if p.peek().Type == ELSE {
		p.advance()
		stmt.Else, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseWhile parses while ( cond ) body
func (p *Parser) parseWhile() (Stmt, error) {
	kw := p.advance() // while
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body, Pos: kw.Pos}, nil
}

// parseReturn parses return [expr];
func (p *Parser) parseReturn() (Stmt, error) {
	kw := p.advance() // return
	stmt := &Return{Pos: kw.Pos}
	if p.peek().Type != SEMICOLON {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseBlock parses { statement* }
func (p *Parser) parseBlock() (*Block, error) {
	open := p.advance() // {
	block := &Block{Pos: open.Pos}
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, p.expected(RBRACE.String())
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	p.advance() // }
	return block, nil
}

// parseSimpleStatement parses an assignment or an expression statement.
func (p *Parser) parseSimpleStatement() (Stmt, error) {
	start := p.peek().Pos
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.peek().Type == ASSIGN {
		eq := p.advance()
		if _, ok := expr.(*Identifier); !ok {
			return nil, p.fail(&ParseError{Kind: InvalidAssignmentTarget, Expected: IDENTIFIER.String(), Actual: eq, Pos: start})
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &Assign{Target: expr, Value: value, Pos: start}, nil
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr, Pos: start}, nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseLogicalOr()
}

// parseBinary parses a left-associative chain of operand (op operand)*
// where op is any of ops.
func (p *Parser) parseBinary(operand func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		matched := false
		for _, op := range ops {
			if tok.Type == op {
				matched = true
				break
			}
		}
		if !matched {
			return expr, nil
		}
		p.advance()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: tok.Type, Left: expr, Right: right, Pos: tok.Pos}
	}
}

// parseLogicalOr handles ||
func (p *Parser) parseLogicalOr() (Expr, error) {
	return p.parseBinary(p.parseLogicalAnd, OR_LOGICAL)
}

// parseLogicalAnd handles &&
func (p *Parser) parseLogicalAnd() (Expr, error) {
	return p.parseBinary(p.parseEquality, AND_LOGICAL)
}

// parseEquality handles == and !=
func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinary(p.parseRelational, EQUALS, NOT_EQ)
}

// parseRelational handles <, <=, > and >=
func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinary(p.parseAdditive, LESS, LESS_EQ, GREATER, GREATER_EQ)
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinary(p.parseMultiplicative, PLUS, MINUS)
}

// parseMultiplicative handles * and /
func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(p.parseUnary, STAR, SLASH)
}

// parseUnary handles prefix ! and - (unary minus)
func (p *Parser) parseUnary() (Expr, error) {
	if tok := p.peek(); tok.Type == NOT || tok.Type == MINUS {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Type, Operand: operand, Pos: tok.Pos}, nil
	}
	return p.parsePower()
}

// parsePower handles the right-associative **. The exponent may carry its
// own sign: 2 ** -1.
func (p *Parser) parsePower() (Expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type == STAR_STAR {
		p.advance()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: STAR_STAR, Left: base, Right: exp, Pos: tok.Pos}, nil
	}
	return base, nil
}

// parsePostfix handles function calls name(args)
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	ident, ok := expr.(*Identifier)
	if !ok || p.peek().Type != LPAREN {
		return expr, nil
	}

	p.advance() // (
	args, err := p.parseCallArgs()
	if err != nil {
		return nil, err
	}
	return &Call{Callee: ident, Args: args, Pos: ident.Pos}, nil
}

// parseCallArgs parses [expr {, expr}] ) ; the "(" is already consumed.
func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		v, ok := parseNumber(tok.Lexeme)
		if !ok {
			return nil, p.fail(&ParseError{Kind: InvalidNumber, Expected: NUMBER.String(), Actual: tok, Pos: tok.Pos})
		}
		return &NumberLiteral{Value: v, Lexeme: tok.Lexeme, Pos: tok.Pos}, nil

	case STRING:
		p.advance()
		return &StringLiteral{Value: tok.Lexeme[1 : len(tok.Lexeme)-1], Pos: tok.Pos}, nil

	case IDENTIFIER:
		p.advance()
		return &Identifier{Name: tok.Lexeme, Pos: tok.Pos}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.expected("expression")
}

// parseNumber converts a NUMBER lexeme. It fails on values that do not fit
// a finite float64.
func parseNumber(lexeme string) (float64, bool) {
	lower := strings.ToLower(lexeme)
	var v float64
	switch {
	case strings.HasPrefix(lower, "0x"):
		n, err := strconv.ParseUint(lower[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		v = float64(n)
	case strings.HasPrefix(lower, "0o"):
		n, err := strconv.ParseUint(lower[2:], 8, 64)
		if err != nil {
			return 0, false
		}
		v = float64(n)
	default:
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return 0, false
		}
		v = f
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
