// Package compiler implements the x86-64 code generator: it walks an IR
// tree and emits a finalized, executable Program obeying the calling
// convention the execution engine invokes it through.
package compiler

import (
	"github.com/Ethereal-O/BFJIT/internal/asm"
	"github.com/Ethereal-O/BFJIT/internal/bferror"
)

// ArchType is the closed set of target architectures the code generator and
// execution engine dispatch on. Only X64 is implemented; the type stays a
// typed extension point for a future ARM64 or RISC-V backend.
type ArchType byte

const (
	X64 ArchType = iota + 1
)

// Callbacks carries the entry addresses of the host I/O trampolines the
// generated code calls into for Input/Output nodes. The code generator has
// no other way to reach engine-specific logic: it lives in a lower layer
// that does not import the execution engine, so the engine resolves its own
// trampolines' addresses and hands them in at compile time.
type Callbacks struct {
	ReadByte  uintptr
	WriteByte uintptr
}

// Program is a finalized compilation result: executable machine code, the
// offset of its entry point within that code, and the two RuntimeError
// values its global error-handler labels can hand back. These are allocated
// once per compiled Program and kept alive by it, not re-allocated per
// fault, since the JITed code itself must never allocate.
type Program struct {
	segment     *asm.CodeSegment
	EntryOffset int
	Arch        ArchType

	overflowErr *bferror.RuntimeError
	ioErr       *bferror.RuntimeError
}

// EntryAddr returns the address of the compiled function's first
// instruction, suitable for the execution engine's trampoline to branch to.
func (p *Program) EntryAddr() uintptr {
	return p.segment.Addr() + uintptr(p.EntryOffset)
}

// Close releases the underlying executable memory mapping. The Program, and
// any execution using it, must not be used after Close returns.
func (p *Program) Close() error {
	return p.segment.Unmap()
}
