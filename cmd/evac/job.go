package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"evac/pkg/compiler"
	"evac/pkg/logs"
)

// job compiles one input file.
type job struct {
	input  string
	output string // "" derives the path from input, "-" is stdout
	dump   string
	opts   compiler.Options
	logger logs.Logger
	stdout io.Writer
	stderr io.Writer
}

// diagnostic is a compile error rendered for the user.
type diagnostic struct {
	input string
	src   string
	err   error
}

func (d *diagnostic) Error() string {
	msg := fmt.Sprintf("%s: %v", d.input, d.err)
	if pos, ok := compiler.ErrorPos(d.err); ok {
		if excerpt := compiler.Excerpt(d.src, pos); excerpt != "" {
			msg += "\n" + excerpt
		}
	}
	return msg
}

func (d *diagnostic) Unwrap() error {
	return d.err
}

func (j job) outputPath() string {
	if j.output != "" {
		return j.output
	}
	return strings.TrimSuffix(j.input, filepath.Ext(j.input)) + ".s"
}

func (j job) run(ctx context.Context) error {
	content, err := os.ReadFile(j.input)
	if err != nil {
		return wrap(err)
	}
	src := string(content)
	j.logger.DebugContext(ctx, "read", "bytes", len(content))

	switch j.dump {
	case "tokens":
		tokens, err := compiler.Lex(src)
		if err != nil {
			return &diagnostic{input: j.input, src: src, err: err}
		}
		for _, tok := range tokens {
			fmt.Fprintln(j.stdout, tok)
		}
		return nil
	case "ast":
		prog, err := compiler.Parse(src)
		if err != nil {
			return &diagnostic{input: j.input, src: src, err: err}
		}
		fmt.Fprint(j.stdout, compiler.Dump(prog))
		return nil
	}

	start := time.Now()
	code, err := compiler.Compile(src, j.opts)
	if err != nil {
		j.logger.DebugContext(ctx, "compile failed", "duration", time.Since(start))
		return &diagnostic{input: j.input, src: src, err: err}
	}
	j.logger.InfoContext(ctx, "compiled",
		"input", j.input,
		"lines", len(code),
		"verified", j.opts.Verify,
		"duration", time.Since(start),
	)

	out := j.outputPath()
	if out == "-" {
		if _, err := io.WriteString(j.stdout, code.String()); err != nil {
			return wrap(err)
		}
		return nil
	}
	if err := os.WriteFile(out, []byte(code.String()), 0o644); err != nil {
		return wrap(err)
	}
	j.logger.DebugContext(ctx, "wrote", "output", out)
	return nil
}
