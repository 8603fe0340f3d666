package allocator

import (
	"errors"
	"unsafe"
)

// fakeArena is a pure-Go stand-in for the real brk/mmap primitives,
// used so the block registry and allocation engine can be exercised
// deterministically without a real kernel underneath - the same
// separation of policy from backend the teacher project draws between
// its Allocator interface and concrete SystemAllocatorImpl/
// ArenaAllocatorImpl implementations.
//
// The simulated heap is a single fixed-capacity buffer allocated once;
// Go's non-compacting GC never moves a live slice's backing array, so
// addresses handed out of it stay valid for the fake's lifetime as long
// as the buffer itself is kept alive (heapBuf below).
type fakeArena struct {
	heapBuf  []byte
	heapUsed uintptr

	mappings map[uintptr][]byte

	page uintptr

	failNextSbrk bool
	failNextMmap bool
}

var errFakeExhausted = errors.New("fakeArena: simulated exhaustion")

func newFakeArena(heapCapacity uintptr) *fakeArena {
	return &fakeArena{
		heapBuf:  make([]byte, heapCapacity),
		mappings: make(map[uintptr][]byte),
		page:     4096,
	}
}

func (f *fakeArena) heapBase() uintptr {
	return uintptr(unsafe.Pointer(&f.heapBuf[0]))
}

func (f *fakeArena) sbrk(delta uintptr) (uintptr, error) {
	if f.failNextSbrk {
		f.failNextSbrk = false

		return 0, errFakeExhausted
	}

	if f.heapUsed+delta > uintptr(len(f.heapBuf)) {
		return 0, errFakeExhausted
	}

	prev := f.heapBase() + f.heapUsed
	f.heapUsed += delta

	return prev, nil
}

func (f *fakeArena) mmapAnon(size uintptr) (uintptr, error) {
	if f.failNextMmap {
		f.failNextMmap = false

		return 0, errFakeExhausted
	}

	b := make([]byte, size)
	addr := uintptr(unsafe.Pointer(&b[0]))
	f.mappings[addr] = b

	return addr, nil
}

func (f *fakeArena) munmap(addr, size uintptr) error {
	b, ok := f.mappings[addr]
	if !ok {
		return errors.New("fakeArena: munmap of unknown address")
	}

	if uintptr(len(b)) != size {
		return errors.New("fakeArena: munmap size mismatch")
	}

	delete(f.mappings, addr)

	return nil
}

func (f *fakeArena) pageSize() uintptr {
	return f.page
}
