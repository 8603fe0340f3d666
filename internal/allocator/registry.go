package allocator

import "unsafe"

// registry is the doubly linked list of block headers threaded through
// externally owned memory - the very heap and mapped regions being
// managed. There is a single head pointer; the list is empty before the
// first allocation. This type has no lock of its own: the allocator is
// single-threaded by contract (see Allocator doc comment), and adding
// synchronization here would silently misrepresent that contract.
type registry struct {
	head *block
}

// findLast returns the final node of the list, or nil if empty.
func (r *registry) findLast() *block {
	b := r.head
	if b == nil {
		return nil
	}

	for b.next != nil {
		b = b.next
	}

	return b
}

// findBestFit walks the list and returns the FREE block with the
// smallest nonnegative size-requested difference, ties broken by first
// encountered. Returns nil if no FREE block is large enough.
func (r *registry) findBestFit(size uintptr) *block {
	var best *block

	var bestDiff uintptr

	for b := r.head; b != nil; b = b.next {
		if b.status != statusFree || b.size < size {
			continue
		}

		diff := b.size - size
		if best == nil || diff < bestDiff {
			best = b
			bestDiff = diff
		}
	}

	return best
}

// findByPayload returns the block whose payload address equals ptr, or
// nil. A nil ptr always returns nil.
func (r *registry) findByPayload(ptr unsafe.Pointer) *block {
	if ptr == nil {
		return nil
	}

	for b := r.head; b != nil; b = b.next {
		if b.payload() == ptr {
			return b
		}
	}

	return nil
}

// findLastHeap returns the last non-MAPPED block in the list, the
// candidate for top-of-heap expansion. Returns nil if the list holds no
// heap blocks.
func (r *registry) findLastHeap() *block {
	var found *block

	for b := r.head; b != nil; b = b.next {
		if b.status == statusMapped {
			return found
		}

		found = b
	}

	return found
}

// linkAfter inserts b immediately after prev, or at the head if prev is
// nil. b's existing prev/next are overwritten.
func (r *registry) linkAfter(prev, b *block) {
	b.prev = prev
	b.next = nil

	if prev == nil {
		if r.head != nil {
			b.next = r.head
			r.head.prev = b
		}

		r.head = b

		return
	}

	b.next = prev.next
	prev.next = b

	if b.next != nil {
		b.next.prev = b
	}
}

// appendTail links b as the new last node of the list.
func (r *registry) appendTail(b *block) {
	last := r.findLast()
	r.linkAfter(last, b)
}

// unlink removes b from the list without touching its memory.
func (r *registry) unlink(b *block) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		r.head = b.next
	}

	if b.next != nil {
		b.next.prev = b.prev
	}

	b.prev = nil
	b.next = nil
}

// sort reorders the list so every MAPPED block follows every heap
// block. It partitions the existing nodes into two sublists in a
// single pass and relinks them once, rather than relocating MAPPED
// nodes one at a time - with two or more MAPPED blocks, repeatedly
// moving whichever one isn't currently last just shuffles them among
// themselves forever and never terminates. Relative order within each
// sublist is preserved.
func (r *registry) sort() {
	var heapHead, heapTail, mappedHead, mappedTail *block

	for b := r.head; b != nil; {
		next := b.next
		b.prev = nil
		b.next = nil

		if b.status == statusMapped {
			if mappedHead == nil {
				mappedHead = b
			} else {
				mappedTail.next = b
				b.prev = mappedTail
			}

			mappedTail = b
		} else {
			if heapHead == nil {
				heapHead = b
			} else {
				heapTail.next = b
				b.prev = heapTail
			}

			heapTail = b
		}

		b = next
	}

	switch {
	case heapHead == nil:
		r.head = mappedHead
	case mappedHead == nil:
		r.head = heapHead
	default:
		heapTail.next = mappedHead
		mappedHead.prev = heapTail
		r.head = heapHead
	}
}

// coalesce first sorts the list, then walks heap blocks in order,
// absorbing a FREE block's immediate FREE successor into it and
// unlinking the successor, repeating greedily at the current position.
// Idempotent; invoked at the entry of every public allocator operation
// to restore the invariant that no two adjacent heap blocks are both
// FREE.
func (r *registry) coalesce() {
	r.sort()

	b := r.head
	for b != nil {
		if b.status != statusFree {
			b = b.next

			continue
		}

		for b.next != nil && b.next.status == statusFree {
			absorbed := b.next
			b.size += absorbed.size
			b.next = absorbed.next

			if b.next != nil {
				b.next.prev = b
			}
		}

		b = b.next
	}
}
