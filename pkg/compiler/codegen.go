package compiler

import (
	"fmt"
	"strings"

	"evac/pkg/vm"
)

// EntryLabel marks the first instruction of the top-level code.
const EntryLabel = "__main"

// Assembly is the generated program, one assembly-text line per element.
type Assembly []string

func (a Assembly) String() string {
	if len(a) == 0 {
		return ""
	}
	return strings.Join(a, "\n") + "\n"
}

// funcInfo is what a call site needs to know about its callee.
type funcInfo struct {
	Name   string
	Arity  int
	Extern bool
	Pos    Position
}

// CodeGen walks an AST and emits target VM assembly text.
type CodeGen struct {
	syms      *SymbolTable
	opts      Options
	out       []string // buffer of the code currently being generated
	funcs     []string // finished function bodies, in completion order
	nextLabel int
	functions map[string]funcInfo
}

func newCodeGen(opts Options) *CodeGen {
	return &CodeGen{
		syms:      NewSymbolTable(),
		opts:      opts,
		functions: make(map[string]funcInfo),
	}
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf("L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

func (cg *CodeGen) line(format string, args ...any) {
	cg.out = append(cg.out, fmt.Sprintf(format, args...))
}

func (cg *CodeGen) label(name string) {
	cg.line("%s:", name)
}

func (cg *CodeGen) comment(format string, args ...any) {
	if !cg.opts.Comments {
		return
	}
	cg.line("; "+format, args...)
}

// emit writes one instruction.
func (cg *CodeGen) emit(op vm.Opcode, operands ...any) {
	var sb strings.Builder
	sb.WriteString("    ")
	sb.WriteString(op.String())
	for _, o := range operands {
		sb.WriteByte(' ')
		fmt.Fprint(&sb, o)
	}
	cg.out = append(cg.out, sb.String())
}

// annotate appends a trailing comment to the last emitted line.
func (cg *CodeGen) annotate(format string, args ...any) {
	if !cg.opts.Comments || len(cg.out) == 0 {
		return
	}
	cg.out[len(cg.out)-1] += " ; " + fmt.Sprintf(format, args...)
}

func funcLabel(name string) string {
	return "fn_" + name
}

// registerFunctions records every function and extern declaration in the
// tree, at any depth, so calls may precede declarations.
func (cg *CodeGen) registerFunctions(s Stmt) error {
	declare := func(name string, params []string, extern bool, pos Position) error {
		if prev, ok := cg.functions[name]; ok {
			return &CodegenError{
				Kind: DuplicateFunction,
				Name: name,
				Pos:  pos,
				Msg:  fmt.Sprintf("previous declaration at %s", prev.Pos),
			}
		}
		cg.functions[name] = funcInfo{Name: name, Arity: len(params), Extern: extern, Pos: pos}
		return nil
	}

	switch n := s.(type) {
	case *FunctionDecl:
		if err := declare(n.Name, n.Params, false, n.Pos); err != nil {
			return err
		}
		return cg.registerFunctions(n.Body)
	case *ExternDecl:
		return declare(n.Name, n.Params, true, n.Pos)
	case *Block:
		for _, st := range n.Stmts {
			if err := cg.registerFunctions(st); err != nil {
				return err
			}
		}
	case *If:
		if err := cg.registerFunctions(n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			return cg.registerFunctions(n.Else)
		}
	case *While:
		return cg.registerFunctions(n.Body)
	}
	return nil
}

var binaryOps = map[TokenType]vm.Opcode{
	PLUS:        vm.OpADD,
	MINUS:       vm.OpSUB,
	STAR:        vm.OpMUL,
	SLASH:       vm.OpDIV,
	STAR_STAR:   vm.OpPOW,
	EQUALS:      vm.OpEQ,
	NOT_EQ:      vm.OpNE,
	LESS:        vm.OpLT,
	LESS_EQ:     vm.OpLE,
	GREATER:     vm.OpGT,
	GREATER_EQ:  vm.OpGE,
	AND_LOGICAL: vm.OpAND,
	OR_LOGICAL:  vm.OpOR,
}

var unaryOps = map[TokenType]vm.Opcode{
	MINUS: vm.OpNEG,
	NOT:   vm.OpNOT,
}

func (cg *CodeGen) load(sym Symbol) {
	if sym.Scope == ScopeLocal {
		cg.emit(vm.OpLOADL, sym.Slot)
	} else {
		cg.emit(vm.OpLOADG, sym.Slot)
	}
	cg.annotate("%s", sym.Name)
}

func (cg *CodeGen) store(sym Symbol) {
	if sym.Scope == ScopeLocal {
		cg.emit(vm.OpSTOREL, sym.Slot)
	} else {
		cg.emit(vm.OpSTOREG, sym.Slot)
	}
	cg.annotate("%s", sym.Name)
}

// genExpr emits code that leaves exactly one value on the operand stack.
func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *NumberLiteral:
		cg.emit(vm.OpPUSH, formatNumber(n.Value))

	case *StringLiteral:
		cg.emit(vm.OpPUSHS, `"`+n.Value+`"`)

	case *Identifier:
		sym, ok := cg.syms.Lookup(n.Name)
		if !ok {
			return &CodegenError{Kind: UndefinedVariable, Name: n.Name, Pos: n.Pos}
		}
		cg.load(sym)

	case *BinaryExpr:
		op, ok := binaryOps[n.Op]
		if !ok {
			return fmt.Errorf("%s: unknown binary operator %s", n.Pos, n.Op)
		}
		if err := cg.genExpr(n.Left); err != nil {
			return err
		}
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}
		cg.emit(op)

	case *UnaryExpr:
		op, ok := unaryOps[n.Op]
		if !ok {
			return fmt.Errorf("%s: unknown unary operator %s", n.Pos, n.Op)
		}
		if err := cg.genExpr(n.Operand); err != nil {
			return err
		}
		cg.emit(op)

	case *Call:
		fn, ok := cg.functions[n.Callee.Name]
		if !ok {
			return &CodegenError{Kind: UndefinedFunction, Name: n.Callee.Name, Pos: n.Callee.Pos}
		}
		if len(n.Args) != fn.Arity {
			return &CodegenError{
				Kind: ArityMismatch,
				Name: fn.Name,
				Pos:  n.Pos,
				Msg:  fmt.Sprintf("expected %d, got %d", fn.Arity, len(n.Args)),
			}
		}
		for _, arg := range n.Args {
			if err := cg.genExpr(arg); err != nil {
				return err
			}
		}
		if fn.Extern {
			cg.emit(vm.OpCALLX, fn.Name, len(n.Args))
		} else {
			cg.emit(vm.OpCALL, funcLabel(fn.Name), len(n.Args))
		}

	case nil:
		return fmt.Errorf("nil expression")

	default:
		return fmt.Errorf("%s: unsupported expression %T", e.Position(), e)
	}
	return nil
}

// genBranch emits the body of an if or while. A branch that is not a block
// still gets a scope of its own.
func (cg *CodeGen) genBranch(s Stmt) error {
	if _, ok := s.(*Block); ok {
		return cg.genStmt(s)
	}
	cg.syms.EnterScope()
	defer cg.syms.ExitScope()
	return cg.genStmt(s)
}

// genStmt emits code that leaves the operand stack as it found it. Return
// is the exception: it hands its value to RET.
func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *VarDecl:
		// the initializer cannot see the name it initializes
		if n.Init != nil {
			if err := cg.genExpr(n.Init); err != nil {
				return err
			}
		} else {
			cg.emit(vm.OpPUSH, 0)
		}
		sym := cg.syms.Declare(n.Name)
		cg.store(sym)

	case *Assign:
		target, ok := n.Target.(*Identifier)
		if !ok {
			return &CodegenError{Kind: InvalidTarget, Pos: n.Target.Position()}
		}
		sym, ok := cg.syms.Lookup(target.Name)
		if !ok {
			return &CodegenError{Kind: UndefinedVariable, Name: target.Name, Pos: target.Pos}
		}
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		cg.store(sym)

	case *ExprStmt:
		if err := cg.genExpr(n.Expr); err != nil {
			return err
		}
		cg.emit(vm.OpPOP)

	case *Block:
		cg.syms.EnterScope()
		defer cg.syms.ExitScope()
		for _, st := range n.Stmts {
			if err := cg.genStmt(st); err != nil {
				return err
			}
		}

	case *If:
		elseLabel := cg.newLabel()
		endLabel := cg.newLabel()
		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		cg.emit(vm.OpJZ, elseLabel)
		if err := cg.genBranch(n.Then); err != nil {
			return err
		}
		cg.emit(vm.OpJMP, endLabel)
		cg.label(elseLabel)
		if n.Else != nil {
			if err := cg.genBranch(n.Else); err != nil {
				return err
			}
		}
		cg.label(endLabel)

	case *While:
		startLabel := cg.newLabel()
		endLabel := cg.newLabel()
		cg.label(startLabel)
		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		cg.emit(vm.OpJZ, endLabel)
		if err := cg.genBranch(n.Body); err != nil {
			return err
		}
		cg.emit(vm.OpJMP, startLabel)
		cg.label(endLabel)

	case *FunctionDecl:
		return cg.genFunction(n)

	case *ExternDecl:
		cg.comment("extern %s/%d", n.Name, len(n.Params))

	case *Return:
		if n.Value != nil {
			if err := cg.genExpr(n.Value); err != nil {
				return err
			}
		} else {
			cg.emit(vm.OpPUSH, 0)
		}
		cg.emit(vm.OpRET)

	case nil:
		return fmt.Errorf("nil statement")

	default:
		return fmt.Errorf("%s: unsupported statement %T", s.Position(), s)
	}
	return nil
}

// genFunction emits fn into a buffer of its own and appends the finished
// body to cg.funcs. The frame size is only known once the body is done, so
// ENTER is written last.
func (cg *CodeGen) genFunction(fn *FunctionDecl) error {
	saved := cg.out
	cg.out = nil
	defer func() { cg.out = saved }()

	cg.syms.EnterFunction(fn.Params)
	for _, st := range fn.Body.Stmts {
		if err := cg.genStmt(st); err != nil {
			cg.syms.ExitFunction()
			return err
		}
	}
	if !endsWithReturn(fn.Body) {
		cg.emit(vm.OpPUSH, 0)
		cg.emit(vm.OpRET)
	}
	frameSize := cg.syms.ExitFunction()

	body := cg.out
	cg.out = nil
	if cg.opts.Comments {
		cg.line("; def %s(%s)", fn.Name, strings.Join(fn.Params, ", "))
	}
	cg.label(funcLabel(fn.Name))
	cg.emit(vm.OpENTER, frameSize)
	cg.out = append(cg.out, body...)
	cg.funcs = append(cg.funcs, cg.out...)
	return nil
}

func endsWithReturn(b *Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*Return)
	return ok
}

// Generate translates a parsed program into assembly.
//
// Layout:
//
//	.GLOBALS n
//	__main:
//	    <top-level statements>
//	    PUSH 0
//	    RET
//	fn_<name>:
//	    ENTER <frame size>
//	    <body>
//
// Nothing is returned on error.
func Generate(prog *Block, opts Options) (Assembly, error) {
	if prog == nil {
		return nil, fmt.Errorf("nil program")
	}
	cg := newCodeGen(opts)

	// PRE-PASS: function labels, so forward calls resolve
	if err := cg.registerFunctions(prog); err != nil {
		return nil, err
	}

	cg.label(EntryLabel)
	for _, s := range prog.Stmts {
		if err := cg.genStmt(s); err != nil {
			return nil, err
		}
	}
	if !endsWithReturn(prog) {
		cg.emit(vm.OpPUSH, 0)
		cg.emit(vm.OpRET)
	}

	asm := make(Assembly, 0, len(cg.out)+len(cg.funcs)+1)
	asm = append(asm, fmt.Sprintf("%s %d", vm.DirectiveGlobals, cg.syms.Globals()))
	asm = append(asm, cg.out...)
	asm = append(asm, cg.funcs...)
	return asm, nil
}
