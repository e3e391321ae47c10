// Command bfjit compiles and runs a Brainfuck source file: lex, lower to
// IR, JIT-compile to x86-64, and execute against a 30,000-byte tape.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ethereal-O/BFJIT/internal/bferror"
	"github.com/Ethereal-O/BFJIT/internal/compiler"
	"github.com/Ethereal-O/BFJIT/internal/engine"
	"github.com/Ethereal-O/BFJIT/internal/ir"
	"github.com/Ethereal-O/BFJIT/internal/logging"
	"github.com/Ethereal-O/BFJIT/internal/token"
)

const (
	stdinName  = "STDIN"
	stdoutName = "STDOUT"
)

const (
	exitSuccess = 0
	exitCompile = 1
	exitLower   = 2
	exitRuntime = 3
	exitUsage   = 4
	exitTimeout = 5
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(doMain(ctx, os.Stdout, os.Stderr, os.Args[1:]))
}

// doMain is separated from main for the purpose of unit testing.
func doMain(ctx context.Context, stdOut, stdErr io.Writer, args []string) int {
	flags := flag.NewFlagSet("bfjit", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	inputPath := flags.String("i", stdinName, "input stream source; STDIN selects standard input")
	flags.StringVar(inputPath, "input", stdinName, "input stream source; STDIN selects standard input")
	outputPath := flags.String("o", stdoutName, "output stream sink; STDOUT selects standard output")
	flags.StringVar(outputPath, "output", stdoutName, "output stream sink; STDOUT selects standard output")
	asciiOffset := flags.Bool("ascii-offset", false, "enable the symmetric ASCII-digit I/O transform")
	logLevel := flags.String("log-level", envOr("BFJIT_LOG_LEVEL", "info"), "diagnostic verbosity: error, warn, info, debug")
	timeout := flags.Duration("timeout", 0, "abort the run and exit if it has not finished within this duration; 0 disables the bound")

	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to Brainfuck source file")
		printUsage(stdErr, flags)
		return exitUsage
	}

	logger := logging.New(stdErr, logging.ParseLevel(*logLevel))

	src, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		logger.Errorf("reading source file: %v", err)
		return exitRuntime
	}

	input, closeInput := openInput(*inputPath, os.Stdin, logger)
	defer closeInput()
	output, closeOutput := openOutput(*outputPath, stdOut, logger)
	defer closeOutput()

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	return run(ctx, string(src), input, output, *asciiOffset, logger)
}

// run executes the pipeline against ctx: lex, lower, compile all run to
// completion on the calling goroutine (none of them can block), but the
// compiled program is invoked via engine.RunContext, which hands the actual
// execution to a dedicated goroutine and races it against ctx.
// A guest program that never terminates, or outlives a configured -timeout,
// makes run return early without waiting for that goroutine: the native
// code cannot be preempted, so the goroutine (and the tape and streams it
// owns) leaks for the remainder of the process, which here simply exits.
func run(ctx context.Context, src string, input io.Reader, output io.Writer, asciiOffset bool, logger *logging.Logger) int {
	tokens, err := token.Lex(src)
	if err != nil {
		var ce *bferror.CompileError
		if errors.As(err, &ce) {
			logger.Errorf("%s", ce)
		} else {
			logger.Errorf("%v", err)
		}
		return exitCompile
	}
	logger.Debugf("lexed %d tokens", len(tokens))

	nodes, err := ir.Lower(tokens)
	if err != nil {
		logger.Errorf("lowering: %v", err)
		return exitLower
	}

	program, err := compiler.Compile(nodes, compiler.X64, engine.HostCallbacks())
	if err != nil {
		logger.Errorf("compiling: %v", err)
		return exitLower
	}

	eng := engine.New(program, input, output, asciiOffset)
	if err := eng.RunContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// The dedicated goroutine RunContext started is still executing
			// native code against program's mapped memory and the tape; the
			// native code cannot be preempted, so program is deliberately
			// never closed here. Unmapping it out from under that goroutine
			// would fault the process instead of exiting it cleanly, so the
			// goroutine is abandoned and the mapping leaks until the process
			// exits just below.
			logger.Errorf("run aborted: %v", err)
			return exitTimeout
		}
		if cerr := program.Close(); cerr != nil {
			logger.Warnf("releasing compiled code: %v", cerr)
		}
		logger.Errorf("%v", err)
		return exitRuntime
	}
	if cerr := program.Close(); cerr != nil {
		logger.Warnf("releasing compiled code: %v", cerr)
	}
	return exitSuccess
}

// openInput opens path as the guest program's input stream. A failure to
// open a non-default path is a warning, not a fatal error, and falls back to
// def (standard input).
func openInput(path string, def io.Reader, logger *logging.Logger) (io.Reader, func() error) {
	if path == stdinName {
		return def, func() error { return nil }
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warnf("%s", bferror.RuntimeWarn{Kind: bferror.ParseInputWarn})
		return def, func() error { return nil }
	}
	return f, f.Close
}

// openOutput is the symmetric counterpart of openInput for the output sink.
func openOutput(path string, def io.Writer, logger *logging.Logger) (io.Writer, func() error) {
	if path == stdoutName {
		return def, func() error { return nil }
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Warnf("%s", bferror.RuntimeWarn{Kind: bferror.ParseOutputWarn})
		return def, func() error { return nil }
	}
	return f, f.Close
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func printUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "bfjit: a just-in-time Brainfuck compiler and execution engine")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  bfjit [options] FILE")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
