package engine

// nativecall enters the JITed function at codeAddr with the calling
// convention the code generator assumes: (this, tapeStart, tapeEnd) in, a
// *bferror.RuntimeError address (or 0 on success) out. Implemented in
// trampoline_amd64.s.
func nativecall(codeAddr, thisPtr, tapeStart, tapeEnd uintptr) (errAddr uintptr)

// readByteTrampoline and writeByteTrampoline are implemented in
// trampoline_amd64.s. They are entered directly by JITed code via a raw
// `call`, not through a normal Go call site, so they take no Go-visible
// parameters here; their addresses are all the code generator needs, and
// HostCallbacks resolves those via reflect.
func readByteTrampoline()
func writeByteTrampoline()
