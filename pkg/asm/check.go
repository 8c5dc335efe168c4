package asm

import (
	"fmt"

	"evac/pkg/vm"
)

// CheckStack follows every control-flow path of prog and tracks the operand
// stack depth. Paths start at instruction 0 (the entry point) and at every
// ENTER (a function entry), each with an empty stack.
//
// It reports an error when a path pops from an empty stack, when two paths
// reach one instruction with different depths, when RET is reached with
// anything other than exactly one value, when control runs off the end of
// the program or falls into a function entry, when a local slot lies outside
// the frame declared by the enclosing ENTER, when a global slot is not
// below .GLOBALS, and when CALL targets anything but an ENTER.
func CheckStack(prog *Program) error {
	code := prog.Instructions
	if len(code) == 0 {
		return nil
	}

	if err := checkSlots(prog); err != nil {
		return err
	}

	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}

	var work []int
	reach := func(from, to, d int) error {
		if to >= len(code) {
			return fmt.Errorf("control runs off the end of the program after line %d", code[from].Line)
		}
		if code[to].Op == vm.OpENTER {
			return fmt.Errorf("control reaches function entry on line %d from line %d", code[to].Line, code[from].Line)
		}
		switch {
		case depth[to] == -1:
			depth[to] = d
			work = append(work, to)
		case depth[to] != d:
			return fmt.Errorf("inconsistent stack depth at line %d: %d vs %d", code[to].Line, depth[to], d)
		}
		return nil
	}

	depth[0] = 0
	work = append(work, 0)
	for i, ins := range code {
		if ins.Op == vm.OpENTER && depth[i] == -1 {
			depth[i] = 0
			work = append(work, i)
		}
	}

	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		ins := code[i]
		d := depth[i]

		pops, pushes := ins.Op.StackEffect(ins.Argc)
		if d < pops {
			return fmt.Errorf("stack underflow at line %d: %s needs %d value(s), have %d", ins.Line, ins.Op, pops, d)
		}
		next := d - pops + pushes

		switch ins.Op {
		case vm.OpRET:
			if d != 1 {
				return fmt.Errorf("RET on line %d with stack depth %d, want 1", ins.Line, d)
			}
		case vm.OpJMP:
			if err := reach(i, ins.Target, next); err != nil {
				return err
			}
		case vm.OpJZ:
			if err := reach(i, ins.Target, next); err != nil {
				return err
			}
			if err := reach(i, i+1, next); err != nil {
				return err
			}
		case vm.OpCALL:
			if code[ins.Target].Op != vm.OpENTER {
				return fmt.Errorf("CALL on line %d targets %s, not ENTER", ins.Line, code[ins.Target].Op)
			}
			if err := reach(i, i+1, next); err != nil {
				return err
			}
		default:
			if err := reach(i, i+1, next); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkSlots validates slot operands. Locals belong to the frame of the
// closest ENTER above them; code before the first ENTER has no frame.
func checkSlots(prog *Program) error {
	frame := -1
	for _, ins := range prog.Instructions {
		switch ins.Op {
		case vm.OpENTER:
			frame = ins.Arg
		case vm.OpLOADL, vm.OpSTOREL:
			if frame < 0 {
				return fmt.Errorf("%s on line %d outside any function", ins.Op, ins.Line)
			}
			if ins.Arg >= frame {
				return fmt.Errorf("%s on line %d: local slot %d outside frame of %d", ins.Op, ins.Line, ins.Arg, frame)
			}
		case vm.OpLOADG, vm.OpSTOREG:
			if ins.Arg >= prog.Globals {
				return fmt.Errorf("%s on line %d: global slot %d not below %s %d", ins.Op, ins.Line, ins.Arg, vm.DirectiveGlobals, prog.Globals)
			}
		case vm.OpCALL:
			if ins.Target < 0 || ins.Target >= len(prog.Instructions) {
				return fmt.Errorf("CALL on line %d targets the end of the program", ins.Line)
			}
		}
	}
	return nil
}

// Verify assembles code and checks its stack discipline.
func Verify(code string) error {
	prog, _, err := Assemble(code)
	if err != nil {
		return err
	}
	return CheckStack(prog)
}
