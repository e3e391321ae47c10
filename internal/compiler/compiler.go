package compiler

import (
	"fmt"
	"unsafe"

	"github.com/Ethereal-O/BFJIT/internal/asm"
	"github.com/Ethereal-O/BFJIT/internal/asm/amd64"
	"github.com/Ethereal-O/BFJIT/internal/bferror"
	"github.com/Ethereal-O/BFJIT/internal/ir"
)

// Compile walks nodes and emits a finalized Program for arch. Unsupported
// architecture tags fail immediately with Unknown.
func Compile(nodes []ir.Node, arch ArchType, cb Callbacks) (*Program, error) {
	if arch != X64 {
		return nil, &bferror.RuntimeError{Kind: bferror.Unknown}
	}

	p := &Program{
		Arch:        arch,
		overflowErr: &bferror.RuntimeError{Kind: bferror.OutOfRange},
		ioErr:       &bferror.RuntimeError{Kind: bferror.IO},
	}

	a := amd64.NewAssembler()
	g := &generator{
		a:        a,
		cb:       cb,
		overflow: a.NewLabel(),
		ioError:  a.NewLabel(),
	}

	g.emitPrologue()
	if err := g.emitNodes(nodes); err != nil {
		return nil, err
	}
	g.emitReturn(0)
	g.emitErrorHandler(g.overflow, p.overflowErr)
	g.emitErrorHandler(g.ioError, p.ioErr)

	code := a.Finish()

	// The whole function is assembled before any executable memory exists, so
	// the segment is sized to the finished code and filled with one copy.
	seg := asm.NewCodeSegment()
	if err := seg.Map(len(code)); err != nil {
		return nil, &bferror.RuntimeError{Kind: bferror.Memory}
	}
	copy(seg.Bytes(), code)
	if err := seg.Finalize(); err != nil {
		return nil, &bferror.RuntimeError{Kind: bferror.Memory}
	}
	p.segment = seg
	p.EntryOffset = 0

	return p, nil
}

// generator walks an IR tree and emits the corresponding instruction
// sequence via the amd64 assembler. It holds the two global error-handler
// labels shared by every Input, Output, MoveLeft and MoveRight node in the
// program.
type generator struct {
	a        *amd64.Assembler
	cb       Callbacks
	overflow *amd64.Label
	ioError  *amd64.Label
}

// emitPrologue saves the three callee-preserved registers the calling
// convention reserves for this, tape start and tape end, plus the current
// tape pointer register, then loads the incoming arguments into them. R14 is
// deliberately skipped in favor of BX (see internal/asm/amd64's register
// doc comment): Go's runtime reserves R14 as the current goroutine pointer
// across any call this function makes into host Go code, including through
// the I/O trampolines.
func (g *generator) emitPrologue() {
	g.a.EmitPush(amd64.RegBX)
	g.a.EmitPush(amd64.RegR12)
	g.a.EmitPush(amd64.RegR13)
	g.a.EmitPush(amd64.RegR15)

	g.a.EmitMovRegReg(amd64.RegR12, amd64.RegDI) // this
	g.a.EmitMovRegReg(amd64.RegR13, amd64.RegSI) // tape start
	g.a.EmitMovRegReg(amd64.RegBX, amd64.RegDX)  // tape end
	g.a.EmitMovRegReg(amd64.RegR15, amd64.RegR13) // ptr = tape start
}

// emitEpilogue restores the four saved registers and returns. It is shared
// by the success path and both global error-handler labels; only the value
// left in AX before it runs differs.
func (g *generator) emitEpilogue() {
	g.a.EmitPop(amd64.RegR15)
	g.a.EmitPop(amd64.RegR13)
	g.a.EmitPop(amd64.RegR12)
	g.a.EmitPop(amd64.RegBX)
	g.a.EmitRet()
}

// emitReturn loads imm into the return register and runs the shared
// epilogue; used for the null-return success path.
func (g *generator) emitReturn(imm uint64) {
	g.a.EmitMovAbs(amd64.RegAX, imm)
	g.emitEpilogue()
}

// emitErrorHandler binds label at the current position and emits the boxed
// RuntimeError's address into the return register before running the shared
// epilogue. The generated handler always substitutes its own preallocated
// error, regardless of which call site jumped to it or what a host callback's
// own return value carried.
func (g *generator) emitErrorHandler(label *amd64.Label, errVal *bferror.RuntimeError) {
	g.a.Bind(label)
	g.emitReturn(uint64(uintptr(unsafe.Pointer(errVal))))
}

func (g *generator) emitNodes(nodes []ir.Node) error {
	for _, n := range nodes {
		if err := g.emitNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitNode(n ir.Node) error {
	switch n.Kind {
	case ir.Add:
		g.a.EmitAddByteImm(byte(n.N))
	case ir.Sub:
		g.a.EmitSubByteImm(byte(n.N))
	case ir.MoveRight:
		g.emitMove(amd64.RegBX, int32(n.N), amd64.JCC)
	case ir.MoveLeft:
		g.emitMove(amd64.RegR13, -int32(n.N), amd64.JCS)
	case ir.Input:
		g.emitIO(g.cb.ReadByte)
	case ir.Output:
		g.emitIO(g.cb.WriteByte)
	case ir.Loop:
		return g.emitLoop(n.Body)
	default:
		return fmt.Errorf("compiler: unrecognized IR node kind %v", n.Kind)
	}
	return nil
}

// emitMove advances or retreats the tape pointer by delta, then bounds-checks
// it against bound (mem_end for a MoveRight, mem_start for a MoveLeft). An
// unsigned-arithmetic carry out of the add/sub, or the pointer landing on the
// wrong side of bound, both jump to the shared overflow handler.
func (g *generator) emitMove(bound asm.Register, delta int32, boundCond asm.Instruction) {
	if delta >= 0 {
		g.a.EmitAddRegImm(amd64.RegR15, delta)
	} else {
		g.a.EmitSubRegImm(amd64.RegR15, -delta)
	}
	g.a.EmitJump(amd64.JCS, g.overflow)
	g.a.EmitCmpRegReg(amd64.RegR15, bound)
	g.a.EmitJump(boundCond, g.overflow)
}

// emitIO emits the save-args/call/check sequence shared by Input and Output:
// load (this, ptr) into the SysV argument registers, call the trampoline at
// addr, and jump to the shared IO error handler if it returned non-null.
func (g *generator) emitIO(addr uintptr) {
	g.a.EmitMovRegReg(amd64.RegDI, amd64.RegR12)
	g.a.EmitMovRegReg(amd64.RegSI, amd64.RegR15)
	g.a.EmitMovAbs(amd64.RegAX, uint64(addr))
	g.a.EmitCallReg(amd64.RegAX)
	g.a.EmitCmpRegImm(amd64.RegAX, 0)
	g.a.EmitJump(amd64.JNE, g.ioError)
}

// emitLoop emits the entry guard, recursively emits body, then the back-edge
// test: "cmp byte[ptr],0; jz after; top: <body>; cmp byte[ptr],0; jnz top;
// after:". The entry guard always runs; no dead-code elision is attempted
// even when the preceding IR provably cannot leave the cell at zero.
func (g *generator) emitLoop(body []ir.Node) error {
	after := g.a.NewLabel()
	g.a.EmitCmpByteImm(0)
	g.a.EmitJump(amd64.JEQ, after)

	top := g.a.Label()
	if err := g.emitNodes(body); err != nil {
		return err
	}
	g.a.EmitCmpByteImm(0)
	g.a.EmitJump(amd64.JNE, top)

	g.a.Bind(after)
	return nil
}
