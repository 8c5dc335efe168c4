package compiler

import (
	"fmt"

	"evac/pkg/asm"
)

// Options controls code generation.
type Options struct {
	// Comments annotates declarations and slot accesses with ; comments.
	Comments bool
	// Verify runs the generated assembly through asm.Verify before
	// returning it.
	Verify bool
}

// Compile runs the whole pipeline on src. Errors from the lexer, parser and
// code generator are returned as-is so callers can inspect them with
// errors.As. Nothing is returned alongside an error.
func Compile(src string, opts Options) (Assembly, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}

	assembly, err := Generate(prog, opts)
	if err != nil {
		return nil, err
	}

	if opts.Verify {
		if err := asm.Verify(assembly.String()); err != nil {
			return nil, fmt.Errorf("internal error: generated assembly does not verify: %w", err)
		}
	}

	return assembly, nil
}
