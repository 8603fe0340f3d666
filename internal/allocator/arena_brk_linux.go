//go:build linux

package allocator

import "golang.org/x/sys/unix"

// sbrk adjusts the program break through the raw brk(2) syscall - the
// Go runtime manages its own heap entirely through mmap and never calls
// brk itself, so there is no standard library wrapper to reuse here.
// brk(2) is queried with a zero target to read the current break, then
// invoked again with the new target; the kernel reports the resulting
// break, which is compared against the request to detect exhaustion.
func (unixArena) sbrk(delta uintptr) (uintptr, error) {
	prev, _, errno := unix.Syscall(unix.SYS_BRK, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}

	target := prev + delta

	newBrk, _, errno := unix.Syscall(unix.SYS_BRK, target, 0, 0)
	if errno != 0 {
		return 0, errno
	}

	if newBrk < target {
		return 0, unix.ENOMEM
	}

	return prev, nil
}
