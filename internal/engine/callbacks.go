package engine

import (
	"reflect"

	"github.com/Ethereal-O/BFJIT/internal/compiler"
)

// HostCallbacks resolves this package's I/O trampoline entry addresses for
// wiring into compiler.Callbacks. Call it once before compiler.Compile so
// the generated Input/Output nodes have somewhere to call.
func HostCallbacks() compiler.Callbacks {
	return compiler.Callbacks{
		ReadByte:  reflect.ValueOf(readByteTrampoline).Pointer(),
		WriteByte: reflect.ValueOf(writeByteTrampoline).Pointer(),
	}
}

// readByteGo is called from readByteTrampoline with e and p recovered from
// the registers the JITed code set up. It returns 0 on success, non-zero on
// any failure; the generated io_error handler substitutes its own
// preallocated RuntimeError on a non-zero return; no particular failure
// value is ever inspected on the machine-code side, so readByteGo need not
// box anything itself and the fault path stays allocation-free.
func readByteGo(e *Engine, p *byte) uintptr {
	var b [1]byte
	n, err := e.input.Read(b[:])
	if n != 1 || err != nil {
		return 1
	}
	v := b[0]
	if e.asciiOffset {
		v -= '0'
	}
	*p = v
	return 0
}

// writeByteGo is the symmetric counterpart of readByteGo for Output nodes.
func writeByteGo(e *Engine, p *byte) uintptr {
	v := *p
	if e.asciiOffset {
		v += '0'
	}
	n, err := e.output.Write([]byte{v})
	if n != 1 || err != nil {
		return 1
	}
	return 0
}
