package allocator

// arena is the leaf dependency of the allocator: the two raw OS
// primitives spec.md calls "linear heap extension" and "anonymous
// virtual-memory mapping", plus the page size used as
// Allocator.Calloc's mapping threshold. The allocation engine and block
// registry never talk to the operating system directly; they only ever
// go through this interface, which keeps the policy logic (split,
// coalesce, best-fit, top-of-heap expansion) testable without a real
// kernel underneath it - the same separation the teacher project draws
// between its Allocator interface and the concrete SystemAllocatorImpl/
// ArenaAllocatorImpl/OptimizedAllocator backends.
type arena interface {
	// sbrk adjusts the program break by delta bytes (delta is never
	// negative; this allocator never shrinks the break) and returns the
	// break's value *before* the adjustment, mirroring the classical
	// sbrk(2) contract. A failed adjustment returns an error with the
	// OS error code preserved.
	sbrk(delta uintptr) (uintptr, error)

	// mmapAnon requests a fresh, private, anonymous mapping of exactly
	// size bytes and returns its base address.
	mmapAnon(size uintptr) (uintptr, error)

	// munmap releases a mapping previously returned by mmapAnon. addr
	// and size must match the original mmapAnon call exactly.
	munmap(addr, size uintptr) error

	// pageSize returns the platform's page size, used as
	// Allocator.Calloc's mapping threshold in place of mmapThreshold.
	pageSize() uintptr
}
