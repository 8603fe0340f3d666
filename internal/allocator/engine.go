package allocator

import "unsafe"

// Stats reports allocator-wide counters. Tracking can be disabled via
// Config.TrackStats to remove the bookkeeping from the hot path; spec.md
// explicitly excludes fragmentation statistics, so Stats stops at simple
// totals and never walks the block list.
type Stats struct {
	TotalAllocated    uintptr
	TotalFreed        uintptr
	AllocationCount   uint64
	FreeCount         uint64
	ActiveAllocations int
}

// Allocator is a single-threaded, user-space general-purpose allocator.
// It is explicitly NOT safe for concurrent use: there is no lock around
// its block registry, its heap-preallocated flag, or the program break
// it manages through arena. A host exposing it to more than one
// goroutine must serialize externally - this is a deliberate design
// choice (spec.md's Non-goals exclude multi-threading safety), not an
// oversight to be patched with a sync.Mutex later.
type Allocator struct {
	cfg              Config
	ar               arena
	reg              registry
	heapPreallocated bool
	stats            Stats
	lastErr          error
}

// New creates an Allocator backed by the platform's default arena
// (brk + anonymous mmap on unix, an unsupported stub elsewhere - see
// arena_unix.go / arena_windows.go).
func New(cfg Config) *Allocator {
	return newWithArena(cfg, newDefaultArena())
}

func newWithArena(cfg Config, ar arena) *Allocator {
	return &Allocator{
		cfg: cfg.withDefaults(ar),
		ar:  ar,
	}
}

// Alloc services a request for size bytes, choosing between the heap
// and a fresh mapping per spec.md section 4.2. It returns nil for a
// zero-sized request or a failed syscall; LastError distinguishes the
// two after the fact.
func (a *Allocator) Alloc(size uintptr) unsafe.Pointer {
	a.reg.coalesce()
	a.clearErr()

	if size == 0 {
		return nil
	}

	total := totalSize(size)

	switch {
	case !a.heapPreallocated && total < a.cfg.MmapThreshold:
		return a.bootstrapHeap(total)
	case total >= a.cfg.MmapThreshold:
		return a.allocMapped(total)
	default:
		return a.allocFromHeap(total)
	}
}

// Free releases a region previously returned by Alloc, Calloc, or
// Realloc. A nil or unrecognized pointer, or a pointer to an
// already-FREE block, is a no-op - Free is double-free safe. Unlike
// Alloc and Realloc, Free does not coalesce on entry; coalescing is
// deferred to the next allocating operation (spec.md section 4.2).
func (a *Allocator) Free(ptr unsafe.Pointer) {
	a.clearErr()

	b := a.reg.findByPayload(ptr)
	if b == nil {
		return
	}

	switch b.status {
	case statusAlloc:
		b.status = statusFree
		a.trackFree(b.size)
	case statusMapped:
		size := b.size
		base := b.addr()
		a.reg.unlink(b)

		if err := a.ar.munmap(base, size); err != nil {
			a.setErr(errSystem("Free", err))
			return
		}

		a.trackFree(size)
	case statusFree:
		// double free: no-op
	}
}

// Calloc is spec.md's zeroed_allocate: nmemb*size bytes, guaranteed
// zero. Unlike Alloc it compares the request against the platform page
// size rather than MmapThreshold, since a fresh mapping is already
// kernel-zeroed and therefore strictly cheaper than an explicit zeroing
// pass for large requests.
func (a *Allocator) Calloc(nmemb, size uintptr) unsafe.Pointer {
	a.reg.coalesce()
	a.clearErr()

	if nmemb == 0 || size == 0 {
		return nil
	}

	n := nmemb * size
	total := totalSize(n)
	threshold := a.cfg.PageSize

	var (
		ptr    unsafe.Pointer
		mapped bool
	)

	switch {
	case !a.heapPreallocated && total < threshold:
		ptr = a.bootstrapHeap(total)
	case total >= threshold:
		ptr = a.allocMapped(total)
		mapped = true
	default:
		ptr = a.allocFromHeap(total)
	}

	if ptr == nil {
		return nil
	}

	if !mapped {
		zero(ptr, n)
	}

	return ptr
}

// Realloc is spec.md's resize: grow or shrink the region at ptr to hold
// size bytes, splitting, absorbing a free successor, expanding the top
// of the heap, or relocating as needed. See spec.md section 4.2 and
// SPEC_FULL.md section 9 for the two resolved open questions this
// implementation encodes.
func (a *Allocator) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	a.reg.coalesce()
	a.clearErr()

	b := a.reg.findByPayload(ptr)

	switch {
	case b != nil && b.status == statusFree:
		return nil
	case ptr == nil:
		return a.Alloc(size)
	case size == 0:
		a.Free(ptr)
		return nil
	case b == nil:
		// ptr does not identify any live block. spec.md documents this
		// as undefined in the original source (which would dereference
		// a NULL block here); this implementation chooses to return
		// nil instead of following that into undefined behavior.
		return nil
	}

	total := totalSize(size)

	if b.status == statusMapped {
		return a.resizeRelocate(b, size, total)
	}

	if total <= b.size {
		a.maybeSplit(b, total)

		return b.payload()
	}

	if b.next == nil && total < a.cfg.MmapThreshold {
		needed := total - b.size

		if _, err := a.ar.sbrk(needed); err != nil {
			a.setErr(errOutOfMemory("Realloc", err))

			return nil
		}

		b.size = total

		return b.payload()
	}

	if b.next != nil && b.next.status == statusFree && b.size+b.next.size >= total {
		a.resizeAbsorbSuccessor(b, total)

		return b.payload()
	}

	return a.resizeRelocate(b, size, total)
}

// Stats returns a snapshot of the allocator's running counters.
func (a *Allocator) Stats() Stats {
	s := a.stats
	s.ActiveAllocations = int(s.AllocationCount - s.FreeCount)

	return s
}

// LastError returns the error recorded by the most recent Alloc, Free,
// Calloc, or Realloc call, or nil if that call did not fail. It is
// cleared at the entry of every call, including successful ones.
func (a *Allocator) LastError() error {
	return a.lastErr
}

// --- policy paths ---

// bootstrapHeap services the first heap-bound allocation by extending
// the program break by exactly MmapThreshold bytes, then carving total
// bytes of it off as an ALLOC block, leaving the remainder as a single
// FREE residual (or absorbing it if too small to be useful).
func (a *Allocator) bootstrapHeap(total uintptr) unsafe.Pointer {
	base, err := a.ar.sbrk(a.cfg.MmapThreshold)
	if err != nil {
		a.setErr(errOutOfMemory("bootstrapHeap", err))

		return nil
	}

	a.heapPreallocated = true

	// The heap is still empty, so findLastHeap returns nil and b becomes
	// the list head, ahead of any MAPPED blocks already in the list.
	b := blockAt(base)
	b.status = statusAlloc
	b.size = total
	a.reg.linkAfter(a.reg.findLastHeap(), b)

	if a.cfg.MmapThreshold-total >= headerSize+minPayload {
		rem := blockAt(base + total)
		rem.status = statusFree
		rem.size = a.cfg.MmapThreshold - total
		a.reg.linkAfter(b, rem)
	} else {
		b.size = a.cfg.MmapThreshold
	}

	a.trackAlloc(b.size)

	return b.payload()
}

// allocMapped services a request at or above the mapping threshold with
// a fresh anonymous mapping of exactly total bytes.
func (a *Allocator) allocMapped(total uintptr) unsafe.Pointer {
	base, err := a.ar.mmapAnon(total)
	if err != nil {
		a.setErr(errOutOfMemory("allocMapped", err))

		return nil
	}

	b := blockAt(base)
	b.status = statusMapped
	b.size = total
	a.reg.appendTail(b)

	a.trackAlloc(total)

	return b.payload()
}

// allocFromHeap services a small request once the heap is bootstrapped:
// best-fit reuse first, then top-of-heap expansion, then a fresh break
// extension linked as the heap's new tail.
func (a *Allocator) allocFromHeap(total uintptr) unsafe.Pointer {
	if fit := a.reg.findBestFit(total); fit != nil {
		a.maybeSplit(fit, total)
		fit.status = statusAlloc
		a.trackAlloc(fit.size)

		return fit.payload()
	}

	last := a.reg.findLastHeap()

	if last.status == statusFree {
		needed := total - last.size

		if _, err := a.ar.sbrk(needed); err != nil {
			a.setErr(errOutOfMemory("allocFromHeap", err))

			return nil
		}

		last.size = total
		last.status = statusAlloc
		a.trackAlloc(total)

		return last.payload()
	}

	base, err := a.ar.sbrk(total)
	if err != nil {
		a.setErr(errOutOfMemory("allocFromHeap", err))

		return nil
	}

	if last.next != nil && last.next.status != statusMapped {
		// last is, by definition of findLastHeap, the final heap block;
		// after the coalesce-at-entry sort only MAPPED blocks may follow
		// it. linkAfter inserts the new block between last and those
		// MAPPED blocks, keeping them segregated at the tail.
		panic("allocator: top-of-heap block is followed by a heap block")
	}

	b := blockAt(base)
	b.status = statusAlloc
	b.size = total
	a.reg.linkAfter(last, b)

	a.trackAlloc(total)

	return b.payload()
}

// maybeSplit carves a trailing FREE residual off b if, after reserving
// total bytes, at least a header plus minPayload bytes remain. Used by
// the heap reuse path and by Realloc's shrink path.
func (a *Allocator) maybeSplit(b *block, total uintptr) {
	residual := b.size - total
	if residual < headerSize+minPayload {
		return
	}

	rem := blockAt(b.addr() + total)
	rem.status = statusFree
	rem.size = residual
	a.reg.linkAfter(b, rem)
	b.size = total
}

// resizeAbsorbSuccessor grows b by merging its immediate FREE successor
// into it, splitting a trailing residual back out if there is enough
// room. The split test here intentionally compares against
// metaSize+minPayload rather than headerSize+minPayload - an asymmetry present in the
// original source and preserved rather than "fixed"; see
// SPEC_FULL.md section 9.
func (a *Allocator) resizeAbsorbSuccessor(b *block, total uintptr) {
	successor := b.next
	combined := b.size + successor.size

	a.reg.unlink(successor)

	if combined-total >= metaSize+minPayload {
		rem := blockAt(b.addr() + total)
		rem.status = statusFree
		rem.size = combined - total
		b.size = total
		a.reg.linkAfter(b, rem)
	} else {
		b.size = combined
	}
}

// resizeRelocate allocates a fresh region, copies the lesser of the old
// and new sizes into it, and frees the original - used for MAPPED
// blocks (which are never resized in place) and as the heap's fallback
// when neither shrink, top-of-heap expansion, nor successor absorption
// apply.
func (a *Allocator) resizeRelocate(b *block, size, _ uintptr) unsafe.Pointer {
	old := b.payload()
	oldCap := b.payloadCapacity()

	newPtr := a.Alloc(size)
	if newPtr == nil {
		return nil
	}

	n := oldCap
	if size < n {
		n = size
	}

	copyBytes(newPtr, old, n)
	a.Free(old)

	return newPtr
}

// --- bookkeeping ---

func (a *Allocator) trackAlloc(size uintptr) {
	if !a.cfg.TrackStats {
		return
	}

	a.stats.TotalAllocated += size
	a.stats.AllocationCount++
}

func (a *Allocator) trackFree(size uintptr) {
	if !a.cfg.TrackStats {
		return
	}

	a.stats.TotalFreed += size
	a.stats.FreeCount++
}

func (a *Allocator) setErr(err error) {
	a.lastErr = err
}

func (a *Allocator) clearErr() {
	a.lastErr = nil
}

// zero clears the first n bytes at ptr.
func zero(ptr unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	clear(unsafe.Slice((*byte)(ptr), int(n)))
}

// copyBytes copies n bytes from src to dst. Go's slice copy is
// memmove-equivalent, so this is safe even for overlapping regions,
// matching the overlap-safety spec.md requires of Realloc's relocate
// path.
func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	d := unsafe.Slice((*byte)(dst), int(n))
	s := unsafe.Slice((*byte)(src), int(n))
	copy(d, s)
}
