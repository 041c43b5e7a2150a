package memory

// Heap tracks, on top of the RW region it lives in, which byte ranges are
// currently "allocated". It's a bump allocator with a bitmap so that the
// allocated-check flag in Flags can be enforced: writing to a never-returned
// heap address is a fault, matching spec.md §3's "simple heap allocator
// tracking which heap addresses are allocated".
type Heap struct {
	region    *Region
	allocated []bool // one entry per byte offset from region.Start; coarse but simple
	bump      uint64 // next free offset from region.Start
}

// NewHeap creates a heap region of the given size and marks [0, preAllocated)
// as already allocated (used to reserve the fixed-offset singleton area).
func NewHeap(start, size uint64, preAllocated uint64) *Heap {
	r := NewZeroedRegion(RegionHeap, "heap", start, size, PermRead|PermWrite)
	h := &Heap{
		region:    r,
		allocated: make([]bool, r.Size()),
		bump:      preAllocated,
	}
	for i := uint64(0); i < preAllocated && i < uint64(len(h.allocated)); i++ {
		h.allocated[i] = true
	}
	return h
}

func (h *Heap) Region() *Region { return h.region }

// Alloc bump-allocates n bytes (16-byte aligned) and marks them allocated.
// Returns the absolute address, or 0 if the heap is exhausted.
func (h *Heap) Alloc(n uint64) uint64 {
	n = (n + 15) &^ 15
	if h.bump+n > h.region.Size() {
		return 0
	}
	addr := h.region.Start + h.bump
	for i := h.bump; i < h.bump+n; i++ {
		h.allocated[i] = true
	}
	h.bump += n
	return addr
}

// MarkAllocated reserves [off, off+size) without moving the bump pointer,
// used when a singleton's address is pre-determined by the program image
// rather than bump-allocated (see spec.md §4.5, AllocateSingleton).
func (h *Heap) MarkAllocated(off, size uint64) {
	for i := off; i < off+size && i < uint64(len(h.allocated)); i++ {
		h.allocated[i] = true
	}
}

func (h *Heap) isAllocated(off uint64) bool {
	if off >= uint64(len(h.allocated)) {
		return false
	}
	return h.allocated[off]
}

// Clone duplicates the heap's page table and allocation bitmap (cheap; page
// bodies stay copy-on-write via Region.Clone).
func (h *Heap) Clone() *Heap {
	allocated := make([]bool, len(h.allocated))
	copy(allocated, h.allocated)
	return &Heap{region: h.region.Clone(), allocated: allocated, bump: h.bump}
}
