package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, src string) *Block {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return prog
}

// exprOf parses "src;" and returns the expression of the statement.
func exprOf(t *testing.T, src string) Expr {
	t.Helper()
	prog := mustParse(t, src+";")
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Stmts))
	}
	stmt, ok := prog.Stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected *ExprStmt, got %T", prog.Stmts[0])
	}
	return stmt.Expr
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"8 / 4 / 2", "((8 / 4) / 2)"},
		{"a || b && c", "(a || (b && c))"},
		{"a && b == c", "(a && (b == c))"},
		{"a == b < c", "(a == (b < c))"},
		{"a < b + c", "(a < (b + c))"},
		{"-a * b", "((-a) * b)"},
		{"!a == b", "((!a) == b)"},
		{"--a", "(-(-a))"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"-2 ** 2", "(-(2 ** 2))"},
		{"2 ** -1", "(2 ** (-1))"},
		{"2 * 3 ** 2", "(2 * (3 ** 2))"},
		{"f(1, 2) + 3", "(f(1, 2) + 3)"},
		{"-f(x)", "(-f(x))"},
		{"f(g(1), a + b)", "f(g(1), (a + b))"},
		{"0x10 + 0o10", "(16 + 8)"},
		{`"hi"`, `"hi"`},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := exprOf(t, tc.input).String(); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseStatements(t *testing.T) {
	prog := mustParse(t, `
var a;
var b = 2;
a = b;
f(a);
{ var c = 1; }
if (a) b = 1; else b = 2;
while (a < 3) a = a + 1;
def f(x, y) { return x; }
extern def print(s);
return;
`)

	want := []string{
		"VarDecl(a)",
		"VarDecl(b = 2)",
		"Assign(a = b)",
		"ExprStmt(f(a))",
		"Block(len=1)",
		"If(if a then Assign(b = 1) else Assign(b = 2))",
		"While(while (a < 3) do Assign(a = (a + 1)))",
		"FunctionDecl(f, params=[x y], body=Block(len=1))",
		"ExternDecl(print, params=[s])",
		"Return",
	}
	if len(prog.Stmts) != len(want) {
		t.Fatalf("got %d statements, want %d", len(prog.Stmts), len(want))
	}
	for i, w := range want {
		if got := prog.Stmts[i].String(); got != w {
			t.Errorf("stmt %d = %s, want %s", i, got, w)
		}
	}
}

func TestParseDanglingElse(t *testing.T) {
	prog := mustParse(t, "if (a) if (b) x = 1; else x = 2;")

	outer, ok := prog.Stmts[0].(*If)
	if !ok {
		t.Fatalf("expected *If, got %T", prog.Stmts[0])
	}
	if outer.Else != nil {
		t.Errorf("outer if should have no else, got %s", outer.Else)
	}
	inner, ok := outer.Then.(*If)
	if !ok {
		t.Fatalf("expected inner *If, got %T", outer.Then)
	}
	if inner.Else == nil {
		t.Fatal("inner if should own the else")
	}
	if got := inner.Else.String(); got != "Assign(x = 2)" {
		t.Errorf("inner else = %s", got)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	src := `
def f(n) { if (n < 2) { return n; } return f(n - 1) + f(n - 2); }
var i = 0;
while (i < 10) { i = i + 1; print(f(i)); }
`
	tokens, err := Lex(src)
	if err != nil {
		t.Fatal(err)
	}
	first, err := NewParser(NewTokenStream(tokens)).ParseProgram()
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewParser(NewTokenStream(tokens)).ParseProgram()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two parses of the same tokens differ:\n%s\n%s", Dump(first), Dump(second))
	}

	// the lazy lexer and a pre-lexed stream agree
	lazy := mustParse(t, src)
	if !reflect.DeepEqual(first, lazy) {
		t.Errorf("lazy parse differs:\n%s\n%s", Dump(first), Dump(lazy))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     ParseErrorKind
		expected string
		pos      Position
	}{
		{"missing rparen", "if (a { }", ExpectedToken, "RPAREN", Position{1, 7}},
		{"missing semicolon", "var x = 1\nvar y;", ExpectedToken, "SEMICOLON", Position{2, 1}},
		{"missing expression", "var x = ;", ExpectedToken, "expression", Position{1, 9}},
		{"if without parens", "if a { }", ExpectedToken, "LPAREN", Position{1, 4}},
		{"def without braces", "def f() return 1;", ExpectedToken, "LBRACE", Position{1, 9}},
		{"duplicate parameter", "def f(a, a) { }", ExpectedToken, "distinct parameter name", Position{1, 10}},
		{"extern without def", "extern f();", ExpectedToken, "DEF", Position{1, 8}},
		{"call target", "f() = 1;", InvalidAssignmentTarget, "IDENTIFIER", Position{1, 1}},
		{"binary target", "a + b = 1;", InvalidAssignmentTarget, "IDENTIFIER", Position{1, 1}},
		{"literal target", "x; 1 = 2;", InvalidAssignmentTarget, "IDENTIFIER", Position{1, 4}},
		{"eof in block", "while (x) { x = 1;", UnexpectedEndOfInput, "RBRACE", Position{1, 19}},
		{"eof in expression", "var x = 1 +", UnexpectedEndOfInput, "expression", Position{1, 12}},
		{"number too large", "var x = 0x1FFFFFFFFFFFFFFFF;", InvalidNumber, "NUMBER", Position{1, 9}},
		{"stray rbrace", "}", ExpectedToken, "expression", Position{1, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if parseErr.Kind != tc.kind {
				t.Errorf("kind = %s, want %s (%v)", parseErr.Kind, tc.kind, err)
			}
			if parseErr.Expected != tc.expected {
				t.Errorf("expected = %q, want %q", parseErr.Expected, tc.expected)
			}
			if parseErr.Pos != tc.pos {
				t.Errorf("pos = %s, want %s", parseErr.Pos, tc.pos)
			}
		})
	}
}

func TestParseReportsLexErrors(t *testing.T) {
	_, err := Parse("var x = 1;\nvar y = \"oops;\n")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexError, got %T: %v", err, err)
	}
	if lexErr.Kind != UnterminatedString || lexErr.Pos != (Position{2, 9}) {
		t.Errorf("got %s at %s", lexErr.Kind, lexErr.Pos)
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		t.Errorf("a lex error must not be reported as a parse error")
	}
}

func TestDump(t *testing.T) {
	prog := mustParse(t, "def f(a) { return a * 2; } var x = f(1);")
	want := `block
  def f(a)
    block
      return
        *
          a
          2
  var x
    call f
      1
`
	if got := Dump(prog); got != want {
		t.Errorf("Dump mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
