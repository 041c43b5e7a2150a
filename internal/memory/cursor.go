package memory

import (
	"fmt"
	"math"
	"sort"
)

// Memory is the union of all regions plus the heap allocator and the flags
// governing how strictly accesses are checked.
type Memory struct {
	Flags   Flags
	regions []*Region // sorted by Start, for binary search
	heap    *Heap
}

// NewMemory assembles Memory from its regions. regions must not overlap;
// heap may be nil only for tests that don't exercise heap allocation.
func NewMemory(flags Flags, heap *Heap, regions ...*Region) *Memory {
	all := append([]*Region{}, regions...)
	if heap != nil {
		all = append(all, heap.Region())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return &Memory{Flags: flags, regions: all, heap: heap}
}

func (m *Memory) Heap() *Heap { return m.heap }

// Clone duplicates every region's page table (COW) and the heap's
// allocation bitmap. Page bodies are shared until the first write.
func (m *Memory) Clone() *Memory {
	regions := make([]*Region, len(m.regions))
	var heap *Heap
	for i, r := range m.regions {
		if m.heap != nil && r == m.heap.Region() {
			heap = m.heap.Clone()
			regions[i] = heap.Region()
			continue
		}
		regions[i] = r.Clone()
	}
	return &Memory{Flags: m.Flags, regions: regions, heap: heap}
}

// findRegion binary searches the sorted region table for the region
// containing addr.
func (m *Memory) findRegion(addr uint64) (*Region, error) {
	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].End() > addr })
	if i >= len(m.regions) || addr < m.regions[i].Start {
		return nil, fault(ErrInvalidRegion, addr)
	}
	return m.regions[i], nil
}

func (m *Memory) pageFor(addr uint64, want Permission) (*Region, uint64, uint64, error) {
	r, err := m.findRegion(addr)
	if err != nil {
		return nil, 0, 0, err
	}
	idx, off, ok := r.pageAt(addr)
	if !ok {
		return nil, 0, 0, fault(ErrInvalidRegion, addr)
	}
	page := r.pages[idx]
	if m.Flags.PermissionCheck && want != 0 && !page.perm.Has(want) {
		return nil, 0, 0, fault(ErrPermissionDenied, addr)
	}
	if m.Flags.AllocatedCheck && r.Kind == RegionHeap && want.Has(PermWrite) {
		if m.heap != nil && !m.heap.isAllocated(addr-r.Start) {
			return nil, 0, 0, fault(ErrUnallocated, addr)
		}
	}
	return r, idx, off, nil
}

// mutablePage returns the page at addr, cloning it first if it is currently
// shared with another Memory clone (copy-on-write).
func (m *Memory) mutablePage(r *Region, idx uint64) *Page {
	p := r.pages[idx]
	if p.shared() {
		np := p.clone()
		p.release()
		r.pages[idx] = np
		return np
	}
	return p
}

// Reader walks memory page-by-page starting at an address, never crossing a
// region boundary silently.
type Reader struct {
	mem  *Memory
	addr uint64
	want Permission
}

// Writer is the mutable counterpart of Reader.
type Writer struct {
	mem  *Memory
	addr uint64
	want Permission
}

// NewReader returns a Reader positioned at addr requiring the given
// permissions on every access (typically PermRead, or PermRead|PermExecute
// for instruction fetch).
func (m *Memory) NewReader(addr uint64, want Permission) (*Reader, error) {
	if _, _, _, err := m.pageFor(addr, want); err != nil {
		return nil, err
	}
	return &Reader{mem: m, addr: addr, want: want}, nil
}

// NewWriter returns a Writer positioned at addr; want is merged with
// PermWrite.
func (m *Memory) NewWriter(addr uint64, want Permission) (*Writer, error) {
	want |= PermWrite
	if _, _, _, err := m.pageFor(addr, want); err != nil {
		return nil, err
	}
	return &Writer{mem: m, addr: addr, want: want}, nil
}

func (r *Reader) Addr() uint64 { return r.addr }
func (w *Writer) Addr() uint64 { return w.addr }

// readBytes reads n bytes starting at r.addr, failing with ErrPageBoundary
// if the run would cross into a different page than the one backing the
// first byte requested.
func (r *Reader) readBytes(n uint64) ([]byte, error) {
	reg, idx, off, err := r.mem.pageFor(r.addr, r.want)
	if err != nil {
		return nil, err
	}
	if off+n > PageSize {
		return nil, fault(ErrPageBoundary, r.addr)
	}
	page := reg.pages[idx]
	out := make([]byte, n)
	copy(out, page.data[off:off+n])
	r.addr += n
	return out, nil
}

func (w *Writer) writeBytes(b []byte) error {
	reg, idx, off, err := w.mem.pageFor(w.addr, w.want)
	if err != nil {
		return err
	}
	n := uint64(len(b))
	if off+n > PageSize {
		return fault(ErrPageBoundary, w.addr)
	}
	page := w.mem.mutablePage(reg, idx)
	copy(page.data[off:off+n], b)
	w.addr += n
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (r *Reader) ReadI8() (int8, error)   { v, err := r.ReadU8(); return int8(v), err }
func (r *Reader) ReadI16() (int16, error) { v, err := r.ReadU16(); return int16(v), err }
func (r *Reader) ReadI32() (int32, error) { v, err := r.ReadU32(); return int32(v), err }
func (r *Reader) ReadI64() (int64, error) { v, err := r.ReadU64(); return int64(v), err }

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

// ReadString reads a fixed-capacity, NUL-terminated string field of cap
// bytes (PouchItem's name/ingredient fields are fixed-capacity).
func (r *Reader) ReadString(cap int) (string, error) {
	b, err := r.readBytes(uint64(cap))
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

func (w *Writer) WriteU8(v uint8) error  { return w.writeBytes([]byte{v}) }
func (w *Writer) WriteU16(v uint16) error {
	return w.writeBytes([]byte{byte(v), byte(v >> 8)})
}
func (w *Writer) WriteU32(v uint32) error {
	return w.writeBytes([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}
func (w *Writer) WriteU64(v uint64) error {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return w.writeBytes(b)
}
func (w *Writer) WriteI8(v int8) error   { return w.WriteU8(uint8(v)) }
func (w *Writer) WriteI16(v int16) error { return w.WriteU16(uint16(v)) }
func (w *Writer) WriteI32(v int32) error { return w.WriteU32(uint32(v)) }
func (w *Writer) WriteI64(v int64) error { return w.WriteU64(uint64(v)) }
func (w *Writer) WriteF32(v float32) error {
	return w.WriteU32(math.Float32bits(v))
}
func (w *Writer) WriteF64(v float64) error {
	return w.WriteU64(math.Float64bits(v))
}
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

// WriteBytes writes b starting at the writer's current address, advancing
// past page boundaries one byte at a time so a multi-page blob (e.g. a
// bootstrap-allocated static-data blob) doesn't need its own chunking.
func (w *Writer) WriteBytes(b []byte) error {
	for _, by := range b {
		if err := w.WriteU8(by); err != nil {
			return err
		}
	}
	return nil
}

// WriteString writes s into a fixed-capacity field, zero-padding (and
// truncating, leaving room for the NUL) to fit.
func (w *Writer) WriteString(s string, cap int) error {
	b := make([]byte, cap)
	n := len(s)
	if n > cap-1 {
		n = cap - 1
	}
	copy(b, s[:n])
	return w.writeBytes(b)
}

// MemObject is implemented by hand-written codecs for fixed-size structs
// living in emulated memory (PouchItem, list nodes, ...). This is the "small
// reflection surface" spec.md §4.4 allows in place of full reflection.
type MemObject interface {
	// ByteSize returns the struct's compile-time constant size.
	ByteSize() int
}

// ReadSized validates that n matches a MemObject's declared size before
// handing back a Reader for field-by-field decoding, per spec.md §4.1's
// SizeAssert contract.
func ReadSized(r *Reader, want int, n int) error {
	if want != n {
		return fmt.Errorf("memory: %w: want %d got %d at 0x%x", ErrSizeAssert, want, n, r.addr)
	}
	return nil
}
