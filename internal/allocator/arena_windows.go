//go:build windows

package allocator

import "errors"

// errUnsupportedPlatform is returned by every windowsArena method. The
// spec's two syscall primitives (brk-style program break, anonymous
// mmap) are POSIX concepts with no Windows equivalent wired up here;
// VirtualAlloc/VirtualFree would be the natural port but are out of
// scope for this exercise.
var errUnsupportedPlatform = errors.New("osalloc: no program-break/mmap primitives wired up for this platform")

type windowsArena struct{}

func newDefaultArena() arena {
	return windowsArena{}
}

func (windowsArena) sbrk(uintptr) (uintptr, error) { return 0, errUnsupportedPlatform }

func (windowsArena) mmapAnon(uintptr) (uintptr, error) { return 0, errUnsupportedPlatform }

func (windowsArena) munmap(uintptr, uintptr) error { return errUnsupportedPlatform }

func (windowsArena) pageSize() uintptr { return 4096 }
