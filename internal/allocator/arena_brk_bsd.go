//go:build unix && !linux

package allocator

import "golang.org/x/sys/unix"

// sbrk is unsupported outside Linux: modern BSD-derived kernels (and
// Darwin in particular) have dropped brk/sbrk from their stable ABI.
// The allocator still functions on these platforms for any request at
// or above the mapping threshold - only the bootstrap heap path and
// the two expansion paths that grow the program break are unavailable.
func (unixArena) sbrk(uintptr) (uintptr, error) {
	return 0, unix.ENOSYS
}
