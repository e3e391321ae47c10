// Package engine implements the execution engine: it finalizes a compiled
// Program into a live run against a fixed-size tape, enters it through the
// Go-to-native trampoline, and translates the pointer-sentinel return
// convention back into a structured error.
package engine

import (
	"context"
	"fmt"
	"io"
	"unsafe"

	"github.com/Ethereal-O/BFJIT/internal/bferror"
	"github.com/Ethereal-O/BFJIT/internal/compiler"
)

// tapeSize is the fixed linear memory size every Engine allocates.
const tapeSize = 30000

// State is the per-run state machine: Ready -> Running -> (Done | Errored).
// Terminal states are absorbing; an Engine is single-shot.
type State byte

const (
	Ready State = iota
	Running
	Done
	Errored
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Done:
		return "done"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Engine owns the tape and the input/output streams for exactly one program
// run. Construction never executes; call Run to invoke the compiled Program.
type Engine struct {
	program     *compiler.Program
	input       io.Reader
	output      io.Writer
	asciiOffset bool

	state State
	tape  [tapeSize]byte
}

// New constructs an Engine ready to run program against input/output.
// asciiOffset enables the symmetric ASCII-digit transform on both I/O paths:
// input subtracts 48, output adds 48.
func New(program *compiler.Program, input io.Reader, output io.Writer, asciiOffset bool) *Engine {
	return &Engine{program: program, input: input, output: output, asciiOffset: asciiOffset}
}

// Run invokes the compiled program exactly once. A second call returns an
// error without touching the tape or streams again; this implementation does
// not support re-initializing a used Engine.
func (e *Engine) Run() error {
	if e.state != Ready {
		return fmt.Errorf("engine: Run called on a %s engine; an Engine is single-shot", e.state)
	}
	e.state = Running

	if e.program.Arch != compiler.X64 {
		e.state = Errored
		return &bferror.RuntimeError{Kind: bferror.Unknown}
	}

	memStart := uintptr(unsafe.Pointer(&e.tape[0]))
	memEnd := memStart + tapeSize

	// e is kept alive by this stack frame for the duration of the call, so
	// converting it to a bare uintptr to cross the asm boundary is safe here
	// even though it hides the pointer from the garbage collector; the JITed
	// code only ever hands it back to our own trampolines, never stores it.
	errAddr := nativecall(e.program.EntryAddr(), uintptr(unsafe.Pointer(e)), memStart, memEnd)
	if errAddr == 0 {
		e.state = Done
		return nil
	}
	e.state = Errored
	return (*bferror.RuntimeError)(unsafe.Pointer(errAddr))
}

// RunContext runs the program on a dedicated goroutine and returns as soon
// as either the run completes or ctx is done, whichever happens first. It
// does not and cannot preempt the native code itself: the emitted code is
// straight-line with no polling, so a guest program that loops or stalls on
// input keeps the goroutine (and the tape and I/O streams it owns) alive
// until it completes or the process exits. Callers wanting bounded execution
// must be prepared to abandon that goroutine, not wait for it, exactly as
// the caller in cmd/bfjit does.
func (e *Engine) RunContext(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
