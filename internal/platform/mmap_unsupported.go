//go:build !linux

package platform

import "fmt"

// This module's JIT targets x86-64 Linux; executable memory mapping on other
// platforms is not implemented.

func MmapCodeSegment(size int) ([]byte, error) {
	return nil, fmt.Errorf("platform: executable memory mapping is not supported on this platform")
}

func MprotectCodeSegment(code []byte) error {
	return fmt.Errorf("platform: executable memory mapping is not supported on this platform")
}

func MunmapCodeSegment(code []byte) error {
	return fmt.Errorf("platform: executable memory mapping is not supported on this platform")
}
