package memory

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	heap := NewHeap(0x90000000, 0x1000, 0)
	heap.Alloc(0x100)
	m := NewMemory(DefaultFlags(), heap)

	w, err := m.NewWriter(0x90000000, 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteU32(0xdeadbeef); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}

	r, err := m.NewReader(0x90000000, PermRead)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.ReadU32()
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("got 0x%x, want 0xdeadbeef", got)
	}
}

func TestWriteUnallocatedHeapFails(t *testing.T) {
	heap := NewHeap(0x90000000, 0x1000, 0)
	m := NewMemory(DefaultFlags(), heap)

	if _, err := m.NewWriter(0x90000000, 0); err == nil {
		t.Fatal("expected ErrUnallocated, got nil")
	}
}

func TestPageBoundaryFails(t *testing.T) {
	heap := NewHeap(0x90000000, 0x2000, 0x2000)
	m := NewMemory(DefaultFlags(), heap)

	w, err := m.NewWriter(0x90000000+PageSize-2, 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteU32(1); err == nil {
		t.Fatal("expected ErrPageBoundary writing across a page, got nil")
	}
}

func TestCloneIsCopyOnWrite(t *testing.T) {
	heap := NewHeap(0x90000000, 0x1000, 0x1000)
	m := NewMemory(DefaultFlags(), heap)
	w, _ := m.NewWriter(0x90000000, 0)
	_ = w.WriteU32(1)

	clone := m.Clone()
	cw, _ := clone.NewWriter(0x90000000, 0)
	_ = cw.WriteU32(2)

	r, _ := m.NewReader(0x90000000, PermRead)
	v, _ := r.ReadU32()
	if v != 1 {
		t.Fatalf("original mutated by clone write: got %d", v)
	}

	cr, _ := clone.NewReader(0x90000000, PermRead)
	cv, _ := cr.ReadU32()
	if cv != 2 {
		t.Fatalf("clone did not observe its own write: got %d", cv)
	}
}

func TestRegionOverlapRejected(t *testing.T) {
	segs := []ProgramSegment{
		{RelStart: 0, Data: make([]byte, PageSize)},
		{RelStart: PageSize / 2, Data: make([]byte, PageSize)},
	}
	if _, err := NewProgramRegion("main", 0x10000, PageSize*2, PermRead|PermExecute, segs); err == nil {
		t.Fatal("expected overlap error, got nil")
	}
}
