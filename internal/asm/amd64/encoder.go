package amd64

import (
	"encoding/binary"
	"fmt"

	"github.com/Ethereal-O/BFJIT/internal/asm"
)

// Label marks a position in the instruction stream, either already known
// (a backward jump target) or pending (a forward jump target, bound later;
// jumps to it are patched by Finish).
type Label struct {
	offset int
}

type pendingJump struct {
	patchOffset int // offset of the rel32 field to patch
	label       *Label
}

// Assembler encodes x86-64 instructions into an in-memory buffer. Jumps are
// always emitted in their rel32 long form; forward jumps are patched once
// their target is bound. No short-form jump promotion is attempted.
type Assembler struct {
	code    []byte
	pending []pendingJump
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Len returns the current instruction pointer offset, usable as a jump
// target for backward jumps.
func (a *Assembler) Len() int {
	return len(a.code)
}

// Label returns a Label bound to the current offset.
func (a *Assembler) Label() *Label {
	return &Label{offset: len(a.code)}
}

// Bind sets l to the current offset. Forward jumps already recorded against
// it stay pending until Finish patches them.
func (a *Assembler) Bind(l *Label) {
	l.offset = len(a.code)
}

func (a *Assembler) emit(b ...byte) {
	a.code = append(a.code, b...)
}

func (a *Assembler) emitUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.emit(b[:]...)
}

func (a *Assembler) emitUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	a.emit(b[:]...)
}

// EmitAddByteImm emits `add byte [R15], imm8`.
func (a *Assembler) EmitAddByteImm(imm byte) { a.emitGroup1Byte(0b000, imm) }

// EmitSubByteImm emits `sub byte [R15], imm8`.
func (a *Assembler) EmitSubByteImm(imm byte) { a.emitGroup1Byte(0b101, imm) }

// EmitCmpByteImm emits `cmp byte [R15], imm8`.
func (a *Assembler) EmitCmpByteImm(imm byte) { a.emitGroup1Byte(0b111, imm) }

// emitGroup1Byte emits the 8-bit group-1 ALU immediate form `op byte [R15],
// imm8`, selecting the operation via the ModRM reg-field extension.
func (a *Assembler) emitGroup1Byte(ext byte, imm byte) {
	_, rexB := register3bits(RegR15, modrmFieldRM)
	a.emit(rexPrefixDefault|rexB, 0x80, modRM(0b00, ext, 0b111), imm)
}

// EmitAddRegImm emits `add reg, imm32` (sign-extended to 64 bits).
func (a *Assembler) EmitAddRegImm(reg asm.Register, imm int32) { a.emitGroup1Reg(0b000, reg, imm) }

// EmitSubRegImm emits `sub reg, imm32` (sign-extended to 64 bits).
func (a *Assembler) EmitSubRegImm(reg asm.Register, imm int32) { a.emitGroup1Reg(0b101, reg, imm) }

// EmitCmpRegImm emits `cmp reg, imm32` (sign-extended to 64 bits).
func (a *Assembler) EmitCmpRegImm(reg asm.Register, imm int32) { a.emitGroup1Reg(0b111, reg, imm) }

func (a *Assembler) emitGroup1Reg(ext byte, reg asm.Register, imm int32) {
	bits, rexB := register3bits(reg, modrmFieldRM)
	a.emit(rexPrefixW|rexB, 0x81, modRM(0b11, ext, bits))
	a.emitUint32(uint32(imm))
}

// EmitCmpRegReg emits `cmp left, right`, setting flags as left-right.
func (a *Assembler) EmitCmpRegReg(left, right asm.Register) {
	leftBits, rexB := register3bits(left, modrmFieldRM)
	rightBits, rexR := register3bits(right, modrmFieldReg)
	a.emit(rexPrefixW|rexB|rexR, 0x39, modRM(0b11, rightBits, leftBits))
}

// EmitMovRegReg emits `mov dst, src`.
func (a *Assembler) EmitMovRegReg(dst, src asm.Register) {
	dstBits, rexB := register3bits(dst, modrmFieldRM)
	srcBits, rexR := register3bits(src, modrmFieldReg)
	a.emit(rexPrefixW|rexB|rexR, 0x89, modRM(0b11, srcBits, dstBits))
}

// EmitMovAbs emits `movabs reg, imm64`.
func (a *Assembler) EmitMovAbs(reg asm.Register, imm uint64) {
	bits, rexB := register3bits(reg, modrmFieldRM)
	a.emit(rexPrefixW|rexB, 0xb8+bits)
	a.emitUint64(imm)
}

// EmitCallReg emits `call reg`.
func (a *Assembler) EmitCallReg(reg asm.Register) {
	bits, rexB := register3bits(reg, modrmFieldRM)
	if rexB != 0 {
		a.emit(rexPrefixDefault | rexB)
	}
	a.emit(0xff, modRM(0b11, 0b010, bits))
}

// EmitRet emits `ret`.
func (a *Assembler) EmitRet() { a.emit(0xc3) }

// EmitPush emits `push reg`.
func (a *Assembler) EmitPush(reg asm.Register) {
	bits, rexB := register3bits(reg, modrmFieldRM)
	if rexB != 0 {
		a.emit(rexPrefixDefault | rexB)
	}
	a.emit(0x50 + bits)
}

// EmitPop emits `pop reg`.
func (a *Assembler) EmitPop(reg asm.Register) {
	bits, rexB := register3bits(reg, modrmFieldRM)
	if rexB != 0 {
		a.emit(rexPrefixDefault | rexB)
	}
	a.emit(0x58 + bits)
}

// jump opcodes: short form unused by this encoder (see the Assembler
// doc comment); only the rel32 long forms are emitted.
var jumpOpcodes = map[asm.Instruction][]byte{
	JMP: {0xe9},
	JCS: {0x0f, 0x82},
	JCC: {0x0f, 0x83},
	JEQ: {0x0f, 0x84},
	JNE: {0x0f, 0x85},
}

// NewLabel returns an unbound Label: one with no position yet, usable as the
// target of EmitJump from one or more call sites before it is later Bind-ed.
// This is the loop-exit / global-error-handler case, where several jumps
// converge on one position that is not known until after they are emitted.
func (a *Assembler) NewLabel() *Label {
	return &Label{offset: -1}
}

// EmitJump emits a relative jump of the given kind to l. If l is already
// bound (typically a backward jump, e.g. a loop's top), the displacement is
// computed immediately. If l is not yet bound (a forward jump), the
// displacement is recorded as pending and patched once l is bound, by
// Finish. Any number of EmitJump calls may target the same unbound Label.
func (a *Assembler) EmitJump(kind asm.Instruction, l *Label) {
	opcode, ok := jumpOpcodes[kind]
	if !ok {
		panic(fmt.Sprintf("amd64: not a jump instruction: %d", kind))
	}
	a.emit(opcode...)
	if l.offset >= 0 {
		rel := int32(l.offset - (len(a.code) + 4))
		a.emitUint32(uint32(rel))
		return
	}
	a.pending = append(a.pending, pendingJump{patchOffset: len(a.code), label: l})
	a.emitUint32(0) // placeholder, patched by Finish
}

// Finish patches every pending forward jump recorded by EmitJump against its
// now-bound Label and returns the finalized code. It panics if any forward
// jump's Label was never bound, which indicates a code generator bug.
func (a *Assembler) Finish() []byte {
	for _, p := range a.pending {
		if p.label.offset < 0 {
			panic("amd64: forward jump target never bound")
		}
		rel := int32(p.label.offset - (p.patchOffset + 4))
		binary.LittleEndian.PutUint32(a.code[p.patchOffset:p.patchOffset+4], uint32(rel))
	}
	return a.code
}
