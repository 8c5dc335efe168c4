package compiler

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"evac/pkg/asm"
	"evac/pkg/vm"
)

var samplePrograms = map[string]string{
	"arithmetic": `var x = 1 + 2 * 3; return x;`,
	"loop":       `var x = 0; while (x < 10) { x = x + 1; }`,
	"fib": `
def fib(n) {
	if (n < 2) { return n; }
	return fib(n - 1) + fib(n - 2);
}
var r = fib(10);
`,
	"nested control": `
var i = 0;
var evens = 0;
while (i < 20) {
	if (i / 2 == 0) {
		if (i > 10) evens = evens + 2; else evens = evens + 1;
	}
	i = i + 1;
}
return evens;
`,
	"extern and strings": `
extern def print(s);
extern def concat(a, b);
print(concat("a; b", "c // d"));
`,
	"shadowing": `
var x = 1;
def f(x) {
	var y = x;
	{ var x = y * 2; y = x; }
	return y;
}
{ var x = f(x); }
`,
	"nested functions": `
var g = 1;
def outer(a) {
	var t = a + g;
	def inner(b) { return b ** 2; }
	while (t > 0) { t = t - inner(1); }
	return t;
}
outer(3);
`,
	"returns everywhere": `
def sign(n) {
	if (n < 0) return -1;
	else if (n > 0) return 1;
	return;
}
var k = sign(-3) + sign(0);
if (k) return k;
`,
	"empty": ``,
	"empty bodies": `
def noop() { }
while (0) { }
if (1) { } else { }
noop();
`,
	"logic": `var a = !(1 && 0) || -2 >= 3 != 1 <= 2;`,
}

func TestCompileVerifies(t *testing.T) {
	for name, src := range samplePrograms {
		t.Run(name, func(t *testing.T) {
			code, err := Compile(src, Options{Verify: true})
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if err := asm.Verify(code.String()); err != nil {
				t.Errorf("Verify failed: %v\n%s", err, code)
			}

			commented, err := Compile(src, Options{Verify: true, Comments: true})
			if err != nil {
				t.Fatalf("Compile with comments failed: %v", err)
			}
			if len(commented) < len(code) {
				t.Errorf("comments removed lines")
			}
		})
	}
}

// netEffect adds up the declared stack effect of every instruction in lines.
func netEffect(t *testing.T, lines []string) int {
	t.Helper()
	total := 0
	for _, line := range lines {
		if i := strings.Index(line, ";"); i >= 0 && !strings.Contains(line, `"`) {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasSuffix(fields[0], ":") {
			continue
		}
		op, ok := vm.Lookup(fields[0])
		if !ok {
			t.Fatalf("unknown mnemonic in %q", line)
		}
		argc := 0
		if op.IsCall() {
			n, err := strconv.Atoi(fields[len(fields)-1])
			if err != nil {
				t.Fatalf("bad argc in %q", line)
			}
			argc = n
		}
		pops, pushes := op.StackEffect(argc)
		total += pushes - pops
	}
	return total
}

// Every statement other than return leaves the operand stack as it found it.
func TestStatementsAreStackNeutral(t *testing.T) {
	for name, src := range samplePrograms {
		t.Run(name, func(t *testing.T) {
			prog := mustParse(t, src)
			cg := newCodeGen(Options{})
			if err := cg.registerFunctions(prog); err != nil {
				t.Fatal(err)
			}
			for _, s := range prog.Stmts {
				before := len(cg.out)
				if err := cg.genStmt(s); err != nil {
					t.Fatal(err)
				}
				// a return's value is consumed by its RET
				if got := netEffect(t, cg.out[before:]); got != 0 {
					t.Errorf("%s: net stack effect %d, want 0\n%s", s, got, strings.Join(cg.out[before:], "\n"))
				}
			}
		})
	}
}

// Every expression leaves exactly one value behind.
func TestExpressionsPushOne(t *testing.T) {
	exprs := []string{
		"1", `"s"`, "g", "-g", "!g", "1 + 2 * 3", "f(1, g)", "f(f(1, 2), 3) ** 2",
		"(g < 1) && (g > 2) || g == 3", "ext()",
	}
	for _, src := range exprs {
		t.Run(src, func(t *testing.T) {
			prog := mustParse(t, "var g; def f(a, b) { return a; } extern def ext(); var _probe = "+src+";")
			cg := newCodeGen(Options{})
			if err := cg.registerFunctions(prog); err != nil {
				t.Fatal(err)
			}
			for _, s := range prog.Stmts[:len(prog.Stmts)-1] {
				if err := cg.genStmt(s); err != nil {
					t.Fatal(err)
				}
			}
			probe := prog.Stmts[len(prog.Stmts)-1].(*VarDecl)
			before := len(cg.out)
			if err := cg.genExpr(probe.Init); err != nil {
				t.Fatal(err)
			}
			if got := netEffect(t, cg.out[before:]); got != 1 {
				t.Errorf("net stack effect %d, want 1", got)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target any
	}{
		{"lex", "var x = $;", new(*LexError)},
		{"parse", "var = 1;", new(*ParseError)},
		{"codegen", "var x = y;", new(*CodegenError)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, err := Compile(tc.input, Options{Verify: true})
			if err == nil {
				t.Fatalf("expected error, got:\n%s", code)
			}
			if code != nil {
				t.Errorf("output returned with error")
			}
			if !errors.As(err, tc.target) {
				t.Errorf("error %T (%v) is not %T", err, err, tc.target)
			}
			if _, ok := ErrorPos(err); !ok {
				t.Errorf("no position in %v", err)
			}
		})
	}
}

// Independent compilations share no state.
func TestCompileConcurrently(t *testing.T) {
	src := samplePrograms["fib"]
	want, err := Compile(src, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := Compile(src, Options{})
			if err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = code.String()
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != want.String() {
			t.Errorf("compilation %d differs:\n%s", i, got)
		}
	}
}
