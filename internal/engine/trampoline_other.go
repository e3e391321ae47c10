//go:build !amd64

package engine

import (
	"unsafe"

	"github.com/Ethereal-O/BFJIT/internal/bferror"
)

// unsupportedArchErr is returned by every call on a non-amd64 build. Only
// x86-64 is implemented; Engine.Run already rejects a non-X64
// compiler.ArchType before reaching nativecall, so this path is only
// reachable if a caller forces arch=X64 on a host this module was never
// built to JIT against.
var unsupportedArchErr = &bferror.RuntimeError{Kind: bferror.Unknown}

func nativecall(codeAddr, thisPtr, tapeStart, tapeEnd uintptr) (errAddr uintptr) {
	return uintptr(unsafe.Pointer(unsupportedArchErr))
}

func readByteTrampoline()  {}
func writeByteTrampoline() {}
