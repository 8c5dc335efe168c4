package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{
			name:  "var declaration",
			input: "var x = 1;",
			want:  []TokenType{VAR, IDENTIFIER, ASSIGN, NUMBER, SEMICOLON, EOF},
		},
		{
			name:  "function",
			input: "def add(a, b) { return a + b; }",
			want: []TokenType{
				DEF, IDENTIFIER, LPAREN, IDENTIFIER, COMMA, IDENTIFIER, RPAREN,
				LBRACE, RETURN, IDENTIFIER, PLUS, IDENTIFIER, SEMICOLON, RBRACE, EOF,
			},
		},
		{
			name:  "keywords",
			input: "var if else while def return extern",
			want:  []TokenType{VAR, IF, ELSE, WHILE, DEF, RETURN, EXTERN, EOF},
		},
		{
			name:  "keyword prefixes are identifiers",
			input: "variable iffy elsewhere _while def2 returned",
			want:  []TokenType{IDENTIFIER, IDENTIFIER, IDENTIFIER, IDENTIFIER, IDENTIFIER, IDENTIFIER, EOF},
		},
		{
			name:  "two char operators win",
			input: "== != <= >= && || **",
			want:  []TokenType{EQUALS, NOT_EQ, LESS_EQ, GREATER_EQ, AND_LOGICAL, OR_LOGICAL, STAR_STAR, EOF},
		},
		{
			name:  "single char operators",
			input: "= < > ! + - * / ( ) { } , ;",
			want: []TokenType{
				ASSIGN, LESS, GREATER, NOT, PLUS, MINUS, STAR, SLASH,
				LPAREN, RPAREN, LBRACE, RBRACE, COMMA, SEMICOLON, EOF,
			},
		},
		{
			name:  "no whitespace",
			input: "x<=-1",
			want:  []TokenType{IDENTIFIER, LESS_EQ, MINUS, NUMBER, EOF},
		},
		{
			name:  "triple star",
			input: "a***b",
			want:  []TokenType{IDENTIFIER, STAR_STAR, STAR, IDENTIFIER, EOF},
		},
		{
			name:  "comments",
			input: "x // line comment\n/* block\ncomment */ y /**/ z",
			want:  []TokenType{IDENTIFIER, IDENTIFIER, IDENTIFIER, EOF},
		},
		{
			name:  "string",
			input: `print("hello // not a comment");`,
			want:  []TokenType{IDENTIFIER, LPAREN, STRING, RPAREN, SEMICOLON, EOF},
		},
		{
			name:  "empty",
			input: "  \n\t ",
			want:  []TokenType{EOF},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Lex(tc.input)
			if err != nil {
				t.Fatalf("Lex failed: %v", err)
			}
			if got := tokenTypes(tokens); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input  string
		lexeme []string
	}{
		{"42", []string{"42"}},
		{"3.25", []string{"3.25"}},
		{"0x1F", []string{"0x1F"}},
		{"0o17", []string{"0o17"}},
		{"0x", []string{"0", "x"}},
		{"0o9", []string{"0", "o9"}},
		{"7.x", []string{"7"}}, // the dot is not part of the number
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			l := NewLexer(tc.input)
			for _, want := range tc.lexeme {
				tok, err := l.Next()
				if err != nil {
					t.Fatalf("Next failed: %v", err)
				}
				if tok.Lexeme != want {
					t.Errorf("lexeme = %q, want %q", tok.Lexeme, want)
				}
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	tokens, err := Lex("var x = 1;\n  y")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	want := []Position{
		{1, 1}, {1, 5}, {1, 7}, {1, 9}, {1, 10}, {2, 3}, {2, 4},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, pos := range want {
		if tokens[i].Pos != pos {
			t.Errorf("token %d (%q) at %s, want %s", i, tokens[i].Lexeme, tokens[i].Pos, pos)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  LexErrorKind
		pos   Position
	}{
		{"unterminated string", `var s = "abc`, UnterminatedString, Position{1, 9}},
		{"newline in string", "\"ab\ncd\"", UnterminatedString, Position{1, 1}},
		{"unexpected character", "x @", UnexpectedCharacter, Position{1, 3}},
		{"single ampersand", "a & b", UnexpectedCharacter, Position{1, 3}},
		{"single pipe", "a | b", UnexpectedCharacter, Position{1, 3}},
		{"unterminated comment", "x\n  /* abc", UnterminatedComment, Position{2, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Lex(tc.input)
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected *LexError, got %v", err)
			}
			if lexErr.Kind != tc.kind {
				t.Errorf("kind = %s, want %s", lexErr.Kind, tc.kind)
			}
			if lexErr.Pos != tc.pos {
				t.Errorf("pos = %s, want %s", lexErr.Pos, tc.pos)
			}
		})
	}
}

func TestLexerStopsAtFirstError(t *testing.T) {
	l := NewLexer("a @ b")
	if tok, err := l.Next(); err != nil || tok.Lexeme != "a" {
		t.Fatalf("first token = %v, %v", tok, err)
	}
	_, err1 := l.Next()
	_, err2 := l.Next()
	if err1 == nil || err1 != err2 {
		t.Errorf("expected the same error twice, got %v and %v", err1, err2)
	}
}

func TestLexerReset(t *testing.T) {
	l := NewLexer("x = 1;")
	var first []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatal(err)
		}
		first = append(first, tok)
		if tok.Type == EOF {
			break
		}
	}

	// EOF repeats
	if tok, _ := l.Next(); tok.Type != EOF {
		t.Errorf("after EOF got %s", tok.Type)
	}

	l.Reset()
	for i := range first {
		tok, err := l.Next()
		if err != nil {
			t.Fatal(err)
		}
		if tok != first[i] {
			t.Errorf("token %d after Reset = %v, want %v", i, tok, first[i])
		}
	}
}

// Re-lexing the lexeme of any token on its own yields the same token type.
func TestLexemeRoundTrip(t *testing.T) {
	src := `
extern def print(s);
def fib(n) {
	if (n <= 1) { return n; }
	return fib(n - 1) + fib(n - 2);
}
var x = 0x10 + 0o7 * 2.5 ** -1;
while (x >= 0 && !(x == 3) || x != 4) { x = x - 1; }
print("done < > ! ;");
`
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	for _, tok := range tokens {
		if tok.Type == EOF {
			continue
		}
		again, err := Lex(tok.Lexeme)
		if err != nil {
			t.Errorf("re-lexing %q: %v", tok.Lexeme, err)
			continue
		}
		if len(again) != 2 || again[0].Type != tok.Type || again[0].Lexeme != tok.Lexeme {
			t.Errorf("re-lexing %q gave %v, want one %s", tok.Lexeme, again, tok.Type)
		}
	}
}
