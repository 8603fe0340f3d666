// Package allocator implements a single-threaded, user-space general
// purpose allocator on top of two raw OS primitives: program-break heap
// extension and anonymous memory mapping. It is the engineering core of
// osalloc; there is no surrounding CLI, configuration file, or
// persisted state.
package allocator

import "unsafe"

// status classifies a block's ownership.
type status uint8

const (
	statusFree status = iota
	statusAlloc
	statusMapped
)

func (s status) String() string {
	switch s {
	case statusFree:
		return "FREE"
	case statusAlloc:
		return "ALLOC"
	case statusMapped:
		return "MAPPED"
	default:
		return "UNKNOWN"
	}
}

// block is the in-band metadata record placed at the start of every live
// region, heap-resident or mapped. The caller never sees this struct;
// it only ever sees the payload address, headerSize bytes past block's
// own address.
type block struct {
	size   uintptr // total region size, header included
	status status
	prev   *block
	next   *block
}

const (
	// minPayload is the smallest payload a split-off residual may carry;
	// a split that would leave less than this many usable bytes behind
	// is not performed.
	minPayload = 8

	// alignment is the byte alignment guaranteed for every payload
	// pointer handed to a caller.
	alignment = 8
)

// metaSize is the raw, unaligned size of the block header. On every
// 64-bit target block already comes out a multiple of 8 because its
// widest field is a pointer, so metaSize and headerSize coincide in
// practice - but the two are kept distinct because one resize split
// test (see engine.go, resizeAbsorbSuccessor) is written against
// metaSize rather than headerSize, mirroring an asymmetry present in
// the original source. See DESIGN.md for the decision to preserve it.
var metaSize = unsafe.Sizeof(block{})

// headerSize is metaSize rounded up to the 8-byte alignment boundary;
// it is the fixed offset between a block's own address and its
// payload's address.
var headerSize = alignUp(metaSize, alignment)

// pad8 returns the number of padding bytes needed to round n up to the
// next multiple of 8.
func pad8(n uintptr) uintptr {
	return (alignment - n%alignment) % alignment
}

// alignUp rounds n up to the nearest multiple of align, align must be a
// power of two.
func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// totalSize computes header + payload + payload padding for a request
// of the given size, the quantity spec.md calls total_size.
func totalSize(size uintptr) uintptr {
	return headerSize + size + pad8(size)
}

// payload returns the address handed to the caller for a block b.
func (b *block) payload() unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(b)) + headerSize)
}

// blockFromPayload recovers the block header for a payload address
// previously returned by payload. It performs no validation that ptr
// actually originated from this allocator; callers must confirm via the
// registry before trusting the result.
func blockFromPayload(ptr unsafe.Pointer) *block {
	return (*block)(unsafe.Pointer(uintptr(ptr) - headerSize))
}

// payloadCapacity is the usable byte count of a block once its header
// is accounted for - what a caller may read or write without touching
// the next block's header.
func (b *block) payloadCapacity() uintptr {
	return b.size - headerSize
}

// blockAt reinterprets the memory at addr as a block header. Used when
// carving a fresh region (heap extension or mapping) into its first
// block, and when locating a split residual at a computed offset.
func blockAt(addr uintptr) *block {
	return (*block)(unsafe.Pointer(addr))
}

func (b *block) addr() uintptr {
	return uintptr(unsafe.Pointer(b))
}
