// Package vm describes the instruction set of the stack-based target VM.
//
// Only the contract lives here: opcodes, their assembly mnemonics, the
// operands each one takes and the number of values it pops from and pushes
// onto the operand stack. Executing the instructions is the VM's business.
package vm

import (
	"fmt"
	"strings"
)

type Opcode uint8

const (
	OpPUSH   Opcode = 0x00
	OpPUSHS  Opcode = 0x01
	OpLOADG  Opcode = 0x02
	OpLOADL  Opcode = 0x03
	OpSTOREG Opcode = 0x04
	OpSTOREL Opcode = 0x05
	OpADD    Opcode = 0x06
	OpSUB    Opcode = 0x07
	OpMUL    Opcode = 0x08
	OpDIV    Opcode = 0x09
	OpPOW    Opcode = 0x0A
	OpEQ     Opcode = 0x0B
	OpNE     Opcode = 0x0C
	OpLT     Opcode = 0x0D
	OpLE     Opcode = 0x0E
	OpGT     Opcode = 0x0F
	OpGE     Opcode = 0x10
	OpAND    Opcode = 0x11
	OpOR     Opcode = 0x12
	OpNEG    Opcode = 0x13
	OpNOT    Opcode = 0x14
	OpPOP    Opcode = 0x15
	OpJMP    Opcode = 0x16
	OpJZ     Opcode = 0x17
	OpCALL   Opcode = 0x18
	OpCALLX  Opcode = 0x19
	OpENTER  Opcode = 0x1A
	OpRET    Opcode = 0x1B
)

// DirectiveGlobals declares how many global slots a program uses.
const DirectiveGlobals = ".GLOBALS"

// OperandKind classifies a single instruction operand.
type OperandKind int

const (
	OperandNumber OperandKind = iota // numeric constant, e.g. 3.5
	OperandString                    // double-quoted text
	OperandSlot                      // non-negative slot index
	OperandLabel                     // label defined in the same unit
	OperandName                      // symbol resolved by the VM host
	OperandCount                     // non-negative count
)

func (k OperandKind) String() string {
	switch k {
	case OperandNumber:
		return "number"
	case OperandString:
		return "string"
	case OperandSlot:
		return "slot"
	case OperandLabel:
		return "label"
	case OperandName:
		return "name"
	case OperandCount:
		return "count"
	}
	return fmt.Sprintf("OperandKind(%d)", int(k))
}

// Info is the static description of an opcode.
//
// Pops is the fixed number of values consumed. For CALL and CALLX the real
// number is the argument count operand; see StackEffect.
type Info struct {
	Mnemonic string
	Operands []OperandKind
	Pops     int
	Pushes   int
}

var infos = [...]Info{
	OpPUSH:   {"PUSH", []OperandKind{OperandNumber}, 0, 1},
	OpPUSHS:  {"PUSHS", []OperandKind{OperandString}, 0, 1},
	OpLOADG:  {"LOADG", []OperandKind{OperandSlot}, 0, 1},
	OpLOADL:  {"LOADL", []OperandKind{OperandSlot}, 0, 1},
	OpSTOREG: {"STOREG", []OperandKind{OperandSlot}, 1, 0},
	OpSTOREL: {"STOREL", []OperandKind{OperandSlot}, 1, 0},
	OpADD:    {"ADD", nil, 2, 1},
	OpSUB:    {"SUB", nil, 2, 1},
	OpMUL:    {"MUL", nil, 2, 1},
	OpDIV:    {"DIV", nil, 2, 1},
	OpPOW:    {"POW", nil, 2, 1},
	OpEQ:     {"EQ", nil, 2, 1},
	OpNE:     {"NE", nil, 2, 1},
	OpLT:     {"LT", nil, 2, 1},
	OpLE:     {"LE", nil, 2, 1},
	OpGT:     {"GT", nil, 2, 1},
	OpGE:     {"GE", nil, 2, 1},
	OpAND:    {"AND", nil, 2, 1},
	OpOR:     {"OR", nil, 2, 1},
	OpNEG:    {"NEG", nil, 1, 1},
	OpNOT:    {"NOT", nil, 1, 1},
	OpPOP:    {"POP", nil, 1, 0},
	OpJMP:    {"JMP", []OperandKind{OperandLabel}, 0, 0},
	OpJZ:     {"JZ", []OperandKind{OperandLabel}, 1, 0},
	OpCALL:   {"CALL", []OperandKind{OperandLabel, OperandCount}, 0, 1},
	OpCALLX:  {"CALLX", []OperandKind{OperandName, OperandCount}, 0, 1},
	OpENTER:  {"ENTER", []OperandKind{OperandCount}, 0, 0},
	OpRET:    {"RET", nil, 1, 0},
}

var byMnemonic = func() map[string]Opcode {
	m := make(map[string]Opcode, len(infos))
	for op, info := range infos {
		m[info.Mnemonic] = Opcode(op)
	}
	return m
}()

// Lookup finds the opcode for a mnemonic. Matching is case-insensitive.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := byMnemonic[strings.ToUpper(mnemonic)]
	return op, ok
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	return int(op) < len(infos)
}

func (op Opcode) Info() Info {
	if !op.Valid() {
		return Info{Mnemonic: op.String()}
	}
	return infos[op]
}

func (op Opcode) String() string {
	if op.Valid() {
		return infos[op].Mnemonic
	}
	return fmt.Sprintf("Opcode(0x%02X)", uint8(op))
}

// IsCall reports whether op transfers control to a callee that consumes
// the arguments named by its count operand.
func (op Opcode) IsCall() bool {
	return op == OpCALL || op == OpCALLX
}

// StackEffect returns how many values op pops and pushes when executed with
// the given argument count. argc is ignored for non-call opcodes.
func (op Opcode) StackEffect(argc int) (pops, pushes int) {
	info := op.Info()
	if op.IsCall() {
		return argc, info.Pushes
	}
	return info.Pops, info.Pushes
}
