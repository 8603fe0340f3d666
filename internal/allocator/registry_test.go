package allocator

import (
	"testing"
	"unsafe"
)

// chain links bs[i] -> bs[i+1] and returns a registry rooted at bs[0].
// Intended for tests that only exercise list-shape operations; the
// blocks themselves are ordinary Go heap values, never backed by real
// memory regions, since none of these tests dereference a computed
// payload pointer.
func chain(bs ...*block) *registry {
	r := &registry{}
	for _, b := range bs {
		r.appendTail(b)
	}

	return r
}

func TestRegistryFindLast(t *testing.T) {
	t.Run("EmptyList", func(t *testing.T) {
		r := &registry{}
		if got := r.findLast(); got != nil {
			t.Fatalf("findLast on empty list = %v, want nil", got)
		}
	})

	t.Run("SingleNode", func(t *testing.T) {
		b := &block{size: 64}
		r := chain(b)

		if got := r.findLast(); got != b {
			t.Fatalf("findLast = %p, want %p", got, b)
		}
	})

	t.Run("MultipleNodes", func(t *testing.T) {
		a, b, c := &block{}, &block{}, &block{}
		r := chain(a, b, c)

		if got := r.findLast(); got != c {
			t.Fatalf("findLast = %p, want %p", got, c)
		}
	})
}

func TestRegistryFindBestFit(t *testing.T) {
	a := &block{status: statusFree, size: 100}
	b := &block{status: statusAlloc, size: 90}
	c := &block{status: statusFree, size: 200}
	d := &block{status: statusFree, size: 50}
	r := chain(a, b, c, d)

	t.Run("PicksSmallestSufficientFree", func(t *testing.T) {
		// a(100, FREE) has diff 40, c(200, FREE) has diff 140;
		// b is ALLOC so ineligible regardless of size.
		got := r.findBestFit(60)
		if got != a {
			t.Fatalf("findBestFit(60) = %p (size %d), want a (size %d)", got, got.size, a.size)
		}
	})

	t.Run("NoSufficientBlock", func(t *testing.T) {
		if got := r.findBestFit(1000); got != nil {
			t.Fatalf("findBestFit(1000) = %v, want nil", got)
		}
	})

	t.Run("ExactMatchWins", func(t *testing.T) {
		if got := r.findBestFit(50); got != d {
			t.Fatalf("findBestFit(50) = %p, want d (exact fit)", got)
		}
	})
}

func TestRegistryFindByPayload(t *testing.T) {
	a := &block{size: 64}
	b := &block{size: 64}
	r := chain(a, b)

	t.Run("NilPointer", func(t *testing.T) {
		if got := r.findByPayload(nil); got != nil {
			t.Fatalf("findByPayload(nil) = %v, want nil", got)
		}
	})

	t.Run("KnownPayload", func(t *testing.T) {
		if got := r.findByPayload(b.payload()); got != b {
			t.Fatalf("findByPayload(b.payload()) = %p, want %p", got, b)
		}
	})

	t.Run("UnknownPayload", func(t *testing.T) {
		var stray int

		if got := r.findByPayload(unsafe.Pointer(&stray)); got != nil {
			t.Fatalf("findByPayload(unrelated) = %v, want nil", got)
		}
	})
}

func TestRegistryFindLastHeap(t *testing.T) {
	t.Run("NoHeapBlocks", func(t *testing.T) {
		r := chain(&block{status: statusMapped})
		if got := r.findLastHeap(); got != nil {
			t.Fatalf("findLastHeap = %v, want nil", got)
		}
	})

	t.Run("HeapBeforeMapped", func(t *testing.T) {
		heapA := &block{status: statusAlloc}
		heapB := &block{status: statusFree}
		mapped := &block{status: statusMapped}
		r := chain(heapA, heapB, mapped)

		if got := r.findLastHeap(); got != heapB {
			t.Fatalf("findLastHeap = %p, want %p", got, heapB)
		}
	})
}

// walkList returns the nodes of r in forward-link order, cross-checking
// that every node's prev/next pair agrees with its neighbors.
func walkList(t *testing.T, r *registry) []*block {
	t.Helper()

	var order []*block

	var prev *block

	for b := r.head; b != nil; b = b.next {
		if b.prev != prev {
			t.Fatalf("node %p: prev = %p, want %p", b, b.prev, prev)
		}

		order = append(order, b)
		prev = b
	}

	return order
}

func assertOrder(t *testing.T, got, want []*block) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted[%d] = %p, want %p", i, got[i], want[i])
		}
	}
}

func TestRegistrySort(t *testing.T) {
	t.Run("OneMappedBlock", func(t *testing.T) {
		heapA := &block{status: statusAlloc}
		mapped1 := &block{status: statusMapped}
		heapB := &block{status: statusFree}
		r := chain(heapA, mapped1, heapB)

		r.sort()

		assertOrder(t, walkList(t, r), []*block{heapA, heapB, mapped1})
	})

	// Regression: sort used to relocate MAPPED blocks one at a time by
	// repeatedly moving whichever one wasn't currently last, which
	// oscillates forever once two or more MAPPED blocks are present
	// (reachable from ordinary input - see TestRegistryCoalesce's
	// TwoMappedBlocksDoNotHang and engine_test.go's
	// TestTwoMappedAllocationsThenAnyOp).
	t.Run("TwoMappedBlocks", func(t *testing.T) {
		heapA := &block{status: statusAlloc}
		mapped1 := &block{status: statusMapped}
		heapB := &block{status: statusFree}
		mapped2 := &block{status: statusMapped}
		r := chain(heapA, mapped1, heapB, mapped2)

		r.sort()

		assertOrder(t, walkList(t, r), []*block{heapA, heapB, mapped1, mapped2})
	})

	t.Run("AllMapped", func(t *testing.T) {
		mapped1 := &block{status: statusMapped}
		mapped2 := &block{status: statusMapped}
		r := chain(mapped1, mapped2)

		r.sort()

		assertOrder(t, walkList(t, r), []*block{mapped1, mapped2})
	})

	t.Run("AllHeap", func(t *testing.T) {
		heapA := &block{status: statusAlloc}
		heapB := &block{status: statusFree}
		r := chain(heapA, heapB)

		r.sort()

		assertOrder(t, walkList(t, r), []*block{heapA, heapB})
	})
}

func TestRegistryCoalesce(t *testing.T) {
	t.Run("MergesRunOfFreeBlocks", func(t *testing.T) {
		a := &block{status: statusFree, size: 32}
		b := &block{status: statusFree, size: 16}
		c := &block{status: statusFree, size: 8}
		d := &block{status: statusAlloc, size: 64}
		r := chain(a, b, c, d)

		r.coalesce()

		if a.size != 56 {
			t.Fatalf("merged size = %d, want 56", a.size)
		}

		if a.next != d {
			t.Fatalf("a.next = %p, want d (%p)", a.next, d)
		}

		if d.prev != a {
			t.Fatalf("d.prev = %p, want a (%p)", d.prev, a)
		}
	})

	t.Run("StopsAtAllocBoundary", func(t *testing.T) {
		a := &block{status: statusFree, size: 16}
		b := &block{status: statusAlloc, size: 16}
		c := &block{status: statusFree, size: 16}
		r := chain(a, b, c)

		r.coalesce()

		if a.size != 16 || c.size != 16 {
			t.Fatalf("non-adjacent free blocks must not merge, got a=%d c=%d", a.size, c.size)
		}
	})

	t.Run("SegregatesMappedBeforeCoalescing", func(t *testing.T) {
		mapped := &block{status: statusMapped, size: 1 << 20}
		a := &block{status: statusFree, size: 16}
		b := &block{status: statusFree, size: 16}
		r := chain(mapped, a, b)

		r.coalesce()

		if r.head != a {
			t.Fatalf("head = %p, want a (%p); mapped block should have been sorted to the tail", r.head, a)
		}

		if a.size != 32 {
			t.Fatalf("a.size = %d, want 32", a.size)
		}

		if a.next != mapped {
			t.Fatalf("a.next = %p, want mapped block %p", a.next, mapped)
		}
	})

	t.Run("TwoMappedBlocksDoNotHang", func(t *testing.T) {
		heapA := &block{status: statusFree, size: 16}
		mapped1 := &block{status: statusMapped, size: 1 << 20}
		heapB := &block{status: statusFree, size: 16}
		mapped2 := &block{status: statusMapped, size: 1 << 20}
		r := chain(heapA, mapped1, heapB, mapped2)

		r.coalesce()

		assertOrder(t, walkList(t, r), []*block{heapA, mapped1, mapped2})

		if heapA.size != 32 {
			t.Fatalf("heapA.size = %d, want 32 (heapA and heapB should have merged)", heapA.size)
		}
	})
}
