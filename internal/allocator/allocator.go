package allocator

import "unsafe"

// global is the process-wide allocator instance backing the package
// level convenience functions below. Constructing it does not touch the
// operating system - newDefaultArena returns a plain value, and no
// sbrk/mmap call happens until the first Alloc/Calloc - so it is safe
// to initialize eagerly at package load, the same "one-time initializer"
// shape spec.md section 9 asks for in place of file-scope C globals.
var global = New(DefaultConfig())

// Alloc allocates size bytes using the process-wide allocator. See
// Allocator.Alloc.
func Alloc(size uintptr) unsafe.Pointer {
	return global.Alloc(size)
}

// Free releases a region previously returned by Alloc, Calloc, or
// Realloc. See Allocator.Free.
func Free(ptr unsafe.Pointer) {
	global.Free(ptr)
}

// Calloc allocates and zeroes nmemb*size bytes. See Allocator.Calloc.
func Calloc(nmemb, size uintptr) unsafe.Pointer {
	return global.Calloc(nmemb, size)
}

// Realloc resizes the region at ptr to size bytes. See
// Allocator.Realloc.
func Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	return global.Realloc(ptr, size)
}

// GetStats returns the process-wide allocator's running counters.
func GetStats() Stats {
	return global.Stats()
}

// LastError returns the error recorded by the most recent call through
// the process-wide allocator.
func LastError() error {
	return global.LastError()
}
