package allocator

import (
	"fmt"

	errs "github.com/orizon-lang/osalloc/internal/errors"
)

// errOutOfMemory wraps a failed sbrk/mmap syscall into the teacher's
// StandardError shape, preserving the OS error code (an errno, wrapped
// by the arena's concrete implementation) under Context["cause"] - the "standard
// errno-style channel" spec.md requires for exhaustion failures.
func errOutOfMemory(op string, cause error) *errs.StandardError {
	return errs.NewStandardError(errs.CategoryMemory, "ENOMEM",
		fmt.Sprintf("%s: out of memory", op),
		map[string]interface{}{"cause": cause})
}

// errSystem reports a syscall failure that is not itself an
// out-of-memory condition, e.g. a failed munmap during Free.
func errSystem(op string, cause error) *errs.StandardError {
	return errs.SyscallFailed(op, cause)
}
