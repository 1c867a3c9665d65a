//go:build linux

package mmap

import (
	"golang.org/x/sys/unix"
)

// osRemap grows or shrinks the mapping with mremap(2), letting the kernel move
// it when it cannot be resized in place.
func osRemap(data []byte, _ func([]byte) error, newSize int) ([]byte, func([]byte) error, error) {
	moved, err := unix.Mremap(data, newSize, unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, nil, err
	}
	return moved, unix.Munmap, nil
}
