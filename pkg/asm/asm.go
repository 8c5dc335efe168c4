// Package asm reads VM assembly text back in and checks it: every mnemonic
// and operand against the vm instruction table, every label reference
// against the label definitions, and the operand stack depth along every
// control-flow path.
package asm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"evac/pkg/vm"
)

// Instruction is one decoded assembly instruction.
type Instruction struct {
	Op       vm.Opcode
	Operands []string // operand text as written; PUSHS keeps its quotes
	Line     int      // 1-based source line

	Value  float64 // PUSH constant
	Arg    int     // slot of LOAD*/STORE*, frame size of ENTER
	Argc   int     // argument count of CALL/CALLX
	Target int     // instruction index a label operand resolves to, or -1
}

// Program is an assembled unit.
type Program struct {
	Globals      int // value of the .GLOBALS directive
	Instructions []Instruction
	Labels       map[string]int // label -> index of the instruction it marks
}

type Assembler struct {
	labels  map[string]int
	globals int
	seenGlb bool
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Assemble decodes code. The returned map takes an instruction index to the
// source line it came from.
func Assemble(code string) (*Program, map[int]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, map[int]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

// pass1 assigns every label the index of the instruction that follows it.
func (a *Assembler) pass1(lines []string) error {
	var index int

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = index
		}

		if p.mnemonic == "" {
			continue
		}

		if p.mnemonic == vm.DirectiveGlobals {
			if a.seenGlb {
				return fmt.Errorf("duplicate %s directive on line %d", vm.DirectiveGlobals, lineNo)
			}
			if len(p.operands) != 1 {
				return fmt.Errorf("%s expects exactly one operand on line %d", vm.DirectiveGlobals, lineNo)
			}
			n, err := parseCount(p.operands[0], lineNo)
			if err != nil {
				return err
			}
			a.globals = n
			a.seenGlb = true
			continue
		}

		index++
	}

	return nil
}

func (a *Assembler) pass2(lines []string) (*Program, map[int]int, error) {
	prog := &Program{
		Globals: a.globals,
		Labels:  a.labels,
	}
	sourceMap := make(map[int]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" || p.mnemonic == vm.DirectiveGlobals {
			continue
		}

		op, ok := vm.Lookup(p.mnemonic)
		if !ok {
			return nil, nil, fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}

		info := op.Info()
		if len(p.operands) != len(info.Operands) {
			return nil, nil, fmt.Errorf("%s expects %d operand(s) on line %d", info.Mnemonic, len(info.Operands), lineNo)
		}

		ins := Instruction{Op: op, Operands: p.operands, Line: lineNo, Target: -1}
		for k, kind := range info.Operands {
			if err := a.decodeOperand(&ins, kind, p.operands[k], lineNo); err != nil {
				return nil, nil, err
			}
		}

		sourceMap[len(prog.Instructions)] = lineNo
		prog.Instructions = append(prog.Instructions, ins)
	}

	return prog, sourceMap, nil
}

func (a *Assembler) decodeOperand(ins *Instruction, kind vm.OperandKind, token string, lineNo int) error {
	switch kind {
	case vm.OperandNumber:
		v, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("invalid number '%s' on line %d", token, lineNo)
		}
		ins.Value = v

	case vm.OperandString:
		if len(token) < 2 || token[0] != '"' || token[len(token)-1] != '"' {
			return fmt.Errorf("invalid string literal on line %d", lineNo)
		}

	case vm.OperandSlot:
		n, err := parseCount(token, lineNo)
		if err != nil {
			return err
		}
		ins.Arg = n

	case vm.OperandCount:
		n, err := parseCount(token, lineNo)
		if err != nil {
			return err
		}
		if ins.Op == vm.OpENTER {
			ins.Arg = n
		} else {
			ins.Argc = n
		}

	case vm.OperandLabel:
		target, err := a.resolveLabel(token, lineNo)
		if err != nil {
			return err
		}
		ins.Target = target

	case vm.OperandName:
		if !isIdentifier(token) {
			return fmt.Errorf("invalid name '%s' on line %d", token, lineNo)
		}
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(raw)
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t;\"") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	// A quoted operand may contain anything but a double quote, comment
	// markers included, so it is cut out before comments are stripped.
	var quoted string
	if open := strings.IndexByte(line, '"'); open != -1 && stripComments(line[:open]) == line[:open] {
		closing := strings.IndexByte(line[open+1:], '"')
		if closing == -1 {
			return p, fmt.Errorf("invalid string literal on line %d", lineNo)
		}
		closing += open + 1
		quoted = line[open : closing+1]
		if rest := strings.TrimSpace(stripComments(line[closing+1:])); rest != "" {
			return p, fmt.Errorf("unexpected text after string literal on line %d: %s", lineNo, rest)
		}
		line = line[:open]
	}

	line = stripComments(line)
	line = strings.TrimSpace(line)
	if line == "" {
		if quoted != "" {
			return p, fmt.Errorf("string literal without instruction on line %d", lineNo)
		}
		return p, nil
	}

	fields := strings.Fields(line)
	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}
	if quoted != "" {
		p.operands = append(p.operands, quoted)
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func parseCount(token string, lineNo int) (int, error) {
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count '%s' on line %d", token, lineNo)
	}
	return n, nil
}

func (a *Assembler) resolveLabel(token string, lineNo int) (int, error) {
	if target, ok := a.labels[token]; ok {
		return target, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid label '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
