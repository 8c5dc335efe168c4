package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is implemented by every AST node. The set of node types is closed:
// only this package can add to it.
type Node interface {
	node()
	Position() Position
	String() string
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
// genExpr always leaves exactly one more value on the operand stack.
type Expr interface {
	Node
	exprNode()
}

// NumberLiteral is a numeric constant. Hex and octal spellings are
// converted at parse time; Lexeme keeps the original text.
//
//	var x = 0x10;
//	        ^^^^  NumberLiteral{Value: 16, Lexeme: "0x10"}
type NumberLiteral struct {
	Value  float64
	Lexeme string
	Pos    Position
}

func (*NumberLiteral) node()                {}
func (*NumberLiteral) exprNode()            {}
func (n *NumberLiteral) Position() Position { return n.Pos }
func (n *NumberLiteral) String() string     { return formatNumber(n.Value) }

// StringLiteral is a string constant "..." without its quotes.
type StringLiteral struct {
	Value string
	Pos   Position
}

func (*StringLiteral) node()                {}
func (*StringLiteral) exprNode()            {}
func (s *StringLiteral) Position() Position { return s.Pos }
func (s *StringLiteral) String() string     { return `"` + s.Value + `"` }

// Identifier is a read of a named variable, or the callee of a Call.
//
//	return x;
//	       ^  Identifier{Name: "x"}
type Identifier struct {
	Name string
	Pos  Position
}

func (*Identifier) node()                {}
func (*Identifier) exprNode()            {}
func (i *Identifier) Position() Position { return i.Pos }
func (i *Identifier) String() string     { return i.Name }

// BinaryExpr represents a binary operation: Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
	Pos   Position // position of the operator
}

func (*BinaryExpr) node()                {}
func (*BinaryExpr) exprNode()            {}
func (b *BinaryExpr) Position() Position { return b.Pos }
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op.Symbol(), b.Right)
}

// UnaryExpr represents Op Operand (e.g., -x, !done).
type UnaryExpr struct {
	Op      TokenType
	Operand Expr
	Pos     Position
}

func (*UnaryExpr) node()                {}
func (*UnaryExpr) exprNode()            {}
func (u *UnaryExpr) Position() Position { return u.Pos }
func (u *UnaryExpr) String() string     { return fmt.Sprintf("(%s%s)", u.Op.Symbol(), u.Operand) }

// Call represents name(args)
type Call struct {
	Callee *Identifier
	Args   []Expr
	Pos    Position
}

func (*Call) node()                {}
func (*Call) exprNode()            {}
func (c *Call) Position() Position { return c.Pos }
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(args, ", "))
}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	Node
	stmtNode()
}

// VarDecl represents  var name [= expr];
type VarDecl struct {
	Name string
	Init Expr // may be nil
	Pos  Position
}

func (*VarDecl) node()                {}
func (*VarDecl) stmtNode()            {}
func (d *VarDecl) Position() Position { return d.Pos }
func (d *VarDecl) String() string {
	if d.Init == nil {
		return fmt.Sprintf("VarDecl(%s)", d.Name)
	}
	return fmt.Sprintf("VarDecl(%s = %s)", d.Name, d.Init)
}

// Assign represents  Target = Value;
// The parser only builds it with an *Identifier target.
type Assign struct {
	Target Expr
	Value  Expr
	Pos    Position
}

func (*Assign) node()                {}
func (*Assign) stmtNode()            {}
func (a *Assign) Position() Position { return a.Pos }
func (a *Assign) String() string {
	return fmt.Sprintf("Assign(%s = %s)", a.Target, a.Value)
}

// ExprStmt represents an expression evaluated for its side effects (e.g. a function call).
type ExprStmt struct {
	Expr Expr
	Pos  Position
}

func (*ExprStmt) node()                {}
func (*ExprStmt) stmtNode()            {}
func (e *ExprStmt) Position() Position { return e.Pos }
func (e *ExprStmt) String() string     { return fmt.Sprintf("ExprStmt(%s)", e.Expr) }

// Block represents { statement; ... }. The whole program is a Block too.
type Block struct {
	Stmts []Stmt
	Pos   Position
}

func (*Block) node()                {}
func (*Block) stmtNode()            {}
func (b *Block) Position() Position { return b.Pos }
func (b *Block) String() string     { return fmt.Sprintf("Block(len=%d)", len(b.Stmts)) }

// If represents if (cond) then [else otherwise]
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt // may be nil
	Pos  Position
}

func (*If) node()                {}
func (*If) stmtNode()            {}
func (i *If) Position() Position { return i.Pos }
func (i *If) String() string {
	if i.Else != nil {
		return fmt.Sprintf("If(if %s then %s else %s)", i.Cond, i.Then, i.Else)
	}
	return fmt.Sprintf("If(if %s then %s)", i.Cond, i.Then)
}

// While represents while (cond) body
type While struct {
	Cond Expr
	Body Stmt
	Pos  Position
}

func (*While) node()                {}
func (*While) stmtNode()            {}
func (w *While) Position() Position { return w.Pos }
func (w *While) String() string {
	return fmt.Sprintf("While(while %s do %s)", w.Cond, w.Body)
}

// FunctionDecl represents def name(params) { body }
type FunctionDecl struct {
	Name   string
	Params []string
	Body   *Block
	Pos    Position
}

func (*FunctionDecl) node()                {}
func (*FunctionDecl) stmtNode()            {}
func (f *FunctionDecl) Position() Position { return f.Pos }
func (f *FunctionDecl) String() string {
	return fmt.Sprintf("FunctionDecl(%s, params=%v, body=%s)", f.Name, f.Params, f.Body)
}

// ExternDecl represents extern def name(params);
// The function is provided by the VM host and has no body here.
type ExternDecl struct {
	Name   string
	Params []string
	Pos    Position
}

func (*ExternDecl) node()                {}
func (*ExternDecl) stmtNode()            {}
func (e *ExternDecl) Position() Position { return e.Pos }
func (e *ExternDecl) String() string {
	return fmt.Sprintf("ExternDecl(%s, params=%v)", e.Name, e.Params)
}

// Return represents  return [expr];
type Return struct {
	Value Expr // may be nil
	Pos   Position
}

func (*Return) node()                {}
func (*Return) stmtNode()            {}
func (r *Return) Position() Position { return r.Pos }
func (r *Return) String() string {
	if r.Value == nil {
		return "Return"
	}
	return fmt.Sprintf("Return(%s)", r.Value)
}

// formatNumber renders a numeric constant the way the target VM reads it.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Dump renders n and all of its children as an indented tree, one node per
// line.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	line := func(format string, args ...any) {
		sb.WriteString(indent)
		fmt.Fprintf(sb, format, args...)
		sb.WriteByte('\n')
	}

	switch n := n.(type) {
	case *NumberLiteral, *StringLiteral, *Identifier:
		line("%s", n)
	case *BinaryExpr:
		line("%s", n.Op.Symbol())
		dump(sb, n.Left, depth+1)
		dump(sb, n.Right, depth+1)
	case *UnaryExpr:
		line("%s", n.Op.Symbol())
		dump(sb, n.Operand, depth+1)
	case *Call:
		line("call %s", n.Callee.Name)
		for _, a := range n.Args {
			dump(sb, a, depth+1)
		}
	case *VarDecl:
		line("var %s", n.Name)
		if n.Init != nil {
			dump(sb, n.Init, depth+1)
		}
	case *Assign:
		line("%s =", n.Target)
		dump(sb, n.Value, depth+1)
	case *ExprStmt:
		dump(sb, n.Expr, depth)
	case *Block:
		line("block")
		for _, s := range n.Stmts {
			dump(sb, s, depth+1)
		}
	case *If:
		line("if")
		dump(sb, n.Cond, depth+1)
		dump(sb, n.Then, depth+1)
		if n.Else != nil {
			line("else")
			dump(sb, n.Else, depth+1)
		}
	case *While:
		line("while")
		dump(sb, n.Cond, depth+1)
		dump(sb, n.Body, depth+1)
	case *FunctionDecl:
		line("def %s(%s)", n.Name, strings.Join(n.Params, ", "))
		dump(sb, n.Body, depth+1)
	case *ExternDecl:
		line("extern def %s(%s)", n.Name, strings.Join(n.Params, ", "))
	case *Return:
		line("return")
		if n.Value != nil {
			dump(sb, n.Value, depth+1)
		}
	default:
		line("%T", n)
	}
}
