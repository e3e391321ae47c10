package asm

import (
	"fmt"
	"unsafe"

	"github.com/Ethereal-O/BFJIT/internal/platform"
)

// CodeSegment represents a memory mapped segment into which native CPU
// instructions are written.
//
// The segment starts out writable and non-executable; once the finished code
// has been copied in, Finalize transitions it to read-only and executable.
//
// CodeSegment holds memory that is NOT managed by the garbage collector and
// must be released by calling Unmap to avoid leaking it.
type CodeSegment struct {
	code []byte
}

// NewCodeSegment constructs an empty CodeSegment.
func NewCodeSegment() *CodeSegment {
	return &CodeSegment{}
}

// Map allocates a memory mapping of the given size to the code segment.
func (seg *CodeSegment) Map(size int) error {
	if seg.code != nil {
		return fmt.Errorf("code segment already initialized to memory mapping of size %d", len(seg.code))
	}
	b, err := platform.MmapCodeSegment(size)
	if err != nil {
		return err
	}
	seg.code = b
	return nil
}

// Finalize transitions the segment from writable to executable, per the W^X
// discipline required of platforms that enforce it.
func (seg *CodeSegment) Finalize() error {
	return platform.MprotectCodeSegment(seg.code)
}

// Unmap releases the underlying memory mapping and resets the segment to
// empty. The segment remains usable: a later call to Map reallocates it.
func (seg *CodeSegment) Unmap() error {
	if seg.code != nil {
		if err := platform.MunmapCodeSegment(seg.code[:cap(seg.code)]); err != nil {
			return err
		}
		seg.code = nil
	}
	return nil
}

// Addr returns the address of the beginning of the code segment.
func (seg *CodeSegment) Addr() uintptr {
	if len(seg.code) > 0 {
		return uintptr(unsafe.Pointer(&seg.code[0]))
	}
	return 0
}

// Len returns the length of the byte slice backing the code segment's memory
// mapping.
func (seg *CodeSegment) Len() int {
	return len(seg.code)
}

// Bytes returns the byte slice backing the code segment's memory mapping.
// The returned slice is valid until Unmap is called.
func (seg *CodeSegment) Bytes() []byte {
	return seg.code
}
