// Package asm defines types shared by the architecture-specific encoder (see
// internal/asm/amd64) and the executable-memory segment the finished code is
// installed into (buffer.go). Only x86-64 is implemented; Register and
// Instruction stay architecture-independent so a future architecture tag
// (compiler.ArchType) has a typed extension point without disturbing this
// package.
package asm

// Register represents an architecture-specific register.
type Register byte

// Instruction represents an architecture-specific instruction.
type Instruction byte
