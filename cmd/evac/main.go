// Command evac compiles one source file to VM assembly.
//
//	evac [flags] input.eva
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/reusee/dscope"
	"github.com/reusee/e5"

	"evac/pkg/compiler"
	"evac/pkg/configs"
	"evac/pkg/logs"
)

var wrap = e5.Wrap.With(e5.WrapStacktrace)

// configPaths collects repeated -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return strings.Join(*c, ",")
}

func (c *configPaths) Set(s string) error {
	*c = append(*c, s)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evac", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "", "output path (default: input with .s extension, - for stdout)")
	var configFiles configPaths
	fs.Var(&configFiles, "config", "CUE configuration file; repeatable, earlier files win")
	comments := fs.Bool("comments", false, "annotate the assembly with ; comments")
	verify := fs.Bool("verify", false, "check the stack discipline of the generated assembly")
	verbose := fs.Bool("v", false, "debug logging")
	dump := fs.String("dump", "", "print `tokens` or `ast` to stdout instead of compiling")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: evac [flags] input.eva")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	input := fs.Arg(0)

	switch *dump {
	case "", "tokens", "ast":
	default:
		fmt.Fprintf(stderr, "unknown -dump %q\n", *dump)
		return 2
	}

	loader := configs.NewLoader(configFiles, configs.Schema)
	if err := loader.Validate(); err != nil {
		fmt.Fprintln(stderr, "config error:", err)
		return 1
	}

	scope := dscope.New(new(Module)).Fork(
		dscope.Provide(loader),
		func() logs.Writer {
			return stderr
		},
		func(level configs.LogLevel) logs.Level {
			if *verbose {
				return logs.Level(slog.LevelDebug)
			}
			l, err := logs.ParseLevel(string(level))
			if err != nil {
				// the schema only admits known levels
				panic(err)
			}
			return l
		},
		func(journal configs.Journal) logs.UseJournal {
			return logs.UseJournal(journal)
		},
	)

	var logFile configs.LogFile
	scope.Call(func(file configs.LogFile) {
		logFile = file
	})
	if logFile != "" {
		f, err := os.OpenFile(string(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(stderr, "log file:", err)
			return 1
		}
		defer f.Close()
		scope = scope.Fork(func() logs.FileWriter {
			return f
		})
	}

	exitCode := 0
	scope.Call(func(
		logger logs.Logger,
		newSpan logs.NewSpan,
		configComments configs.Comments,
		configVerify configs.Verify,
	) {
		opts := compiler.Options{
			Comments: bool(configComments),
			Verify:   bool(configVerify),
		}
		// flags given on the command line override configuration
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "comments":
				opts.Comments = *comments
			case "verify":
				opts.Verify = *verify
			}
		})

		for _, key := range []string{"output.comments", "output.verify"} {
			for path, err := range loader.Sources(key) {
				if err != nil {
					break
				}
				logger.Debug("config", "key", key, "file", path)
			}
		}

		ctx, _ := newSpan(context.Background(), input)
		job := job{
			input:  input,
			output: *output,
			dump:   *dump,
			opts:   opts,
			logger: logger,
			stdout: stdout,
			stderr: stderr,
		}
		if err := job.run(ctx); err != nil {
			exitCode = 1
			var diag *diagnostic
			if errors.As(err, &diag) {
				fmt.Fprintln(stderr, diag.Error())
				return
			}
			logger.ErrorContext(ctx, "compile", "error", logs.WrapSpan(ctx, err))
		}
	})

	return exitCode
}
