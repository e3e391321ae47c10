// Package amd64 implements the x86-64 machine code encoder the code
// generator emits instructions through. It is a hand-rolled REX/ModRM
// encoder covering exactly the instruction subset a Brainfuck program
// compiles to: byte-sized ALU ops against the tape, 64-bit ALU ops against
// the tape pointer, register-indirect calls into host I/O callbacks, and
// relative jumps for loop backedges and error exits.
package amd64

import "github.com/Ethereal-O/BFJIT/internal/asm"

// Registers. Only the general-purpose registers the code generator uses are
// named. R14 is deliberately never used: Go's runtime reserves it as the
// current goroutine pointer across the call into host callbacks, and this
// encoder never touches it so that invariant survives the boundary.
const (
	RegAX asm.Register = iota + 1
	RegBX
	RegDX
	RegDI
	RegSI
	RegR12
	RegR13
	RegR15
)

// Jump kinds, passed to Assembler.EmitJump. Every non-jump instruction the
// code generator needs has its own Emit method; only jumps are parameterized
// by condition, so only they carry an asm.Instruction tag.
const (
	_ asm.Instruction = iota
	JMP
	JCS // jump if carry set   (unsigned <,  CF=1)
	JCC // jump if carry clear (unsigned >=, CF=0)
	JEQ // jump if equal (ZF=1)
	JNE // jump if not equal (ZF=0)
)

const (
	rexPrefixDefault byte = 0b0100_0000
	rexPrefixW       byte = 0b0000_1000 | rexPrefixDefault
	rexPrefixR       byte = 0b0000_0100 | rexPrefixDefault
	rexPrefixB       byte = 0b0000_0001 | rexPrefixDefault
)

type modrmField byte

const (
	modrmFieldReg modrmField = iota
	modrmFieldRM
)

// register3bits returns the 3-bit encoding of reg and the REX bit it
// requires when placed in the given ModRM field.
func register3bits(reg asm.Register, field modrmField) (bits byte, rexBit byte) {
	extended := reg == RegR12 || reg == RegR13 || reg == RegR15
	if extended {
		switch field {
		case modrmFieldReg:
			rexBit = rexPrefixR
		case modrmFieldRM:
			rexBit = rexPrefixB
		}
	}
	switch reg {
	case RegAX:
		bits = 0b000
	case RegDX:
		bits = 0b010
	case RegBX:
		bits = 0b011
	case RegSI:
		bits = 0b110
	case RegDI:
		bits = 0b111
	case RegR12:
		bits = 0b100
	case RegR13:
		bits = 0b101
	case RegR15:
		bits = 0b111
	}
	return
}

func modRM(mod, reg, rm byte) byte {
	return mod<<6 | (reg&0b111)<<3 | (rm & 0b111)
}
