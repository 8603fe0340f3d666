//go:build unix

package allocator

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// unixArena is the default arena on every unix target: anonymous
// mapping goes through golang.org/x/sys/unix everywhere, while the
// program-break primitive (see arena_brk_linux.go / arena_brk_bsd.go)
// is only meaningfully implemented on Linux, matching the original
// source's unistd.h/sys/mman.h target.
type unixArena struct{}

func newDefaultArena() arena {
	return unixArena{}
}

func (unixArena) mmapAnon(size uintptr) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return 0, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	return uintptr(unsafe.Pointer(&b[0])), nil
}

func (unixArena) munmap(addr, size uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))

	return unix.Munmap(b)
}

func (unixArena) pageSize() uintptr {
	return uintptr(unix.Getpagesize())
}
