// Package memory implements the emulated ARM64 virtual address space: a
// page-based, copy-on-write set of regions backing the loaded program image,
// the stack, and the heap.
package memory

import (
	"fmt"
	"sync/atomic"
)

// PageSize is the granularity of copy-on-write sharing.
const PageSize = 0x1000

// RegionAlign is the alignment required of every region's start address.
const RegionAlign = 0x10000

// Permission is a bitmask of the access types a page or a memory operation
// may require.
type Permission uint8

const (
	PermRead Permission = 1 << iota
	PermWrite
	PermExecute
)

func (p Permission) Has(want Permission) bool { return p&want == want }

func (p Permission) String() string {
	s := ""
	if p.Has(PermRead) {
		s += "r"
	} else {
		s += "-"
	}
	if p.Has(PermWrite) {
		s += "w"
	} else {
		s += "-"
	}
	if p.Has(PermExecute) {
		s += "x"
	} else {
		s += "-"
	}
	return s
}

// RegionKind distinguishes the three kinds of region spec.md §3 names.
type RegionKind int

const (
	RegionProgram RegionKind = iota
	RegionStack
	RegionHeap
)

// Flags configures how strictly Memory enforces its invariants. Threaded
// through at construction time, not per call.
type Flags struct {
	StrictRegion    bool // reads/writes must stay within one region
	PermissionCheck bool // honor page permission bits
	AllocatedCheck  bool // heap addresses must be marked allocated before write
}

// DefaultFlags matches how a booted process is configured: every check on.
func DefaultFlags() Flags {
	return Flags{StrictRegion: true, PermissionCheck: true, AllocatedCheck: true}
}

// Page is 4 KiB of storage plus a permission set. Pages are shared across
// Region clones via refc and cloned on first write.
type Page struct {
	data [PageSize]byte
	perm Permission
	refc int32
}

func newZeroedPage(perm Permission) *Page {
	return &Page{perm: perm, refc: 1}
}

func newPageFromSlice(data []byte, perm Permission) *Page {
	p := &Page{perm: perm, refc: 1}
	copy(p.data[:], data)
	return p
}

func (p *Page) clone() *Page {
	np := &Page{perm: p.perm, refc: 1}
	np.data = p.data
	return np
}

func (p *Page) retain() { atomic.AddInt32(&p.refc, 1) }
func (p *Page) release() int32 {
	return atomic.AddInt32(&p.refc, -1)
}
func (p *Page) shared() bool { return atomic.LoadInt32(&p.refc) > 1 }

// Region is a contiguous span of virtual address space, aligned to
// RegionAlign, made of PageSize pages. Bounds are immutable once
// constructed; page contents are mutable.
type Region struct {
	Kind  RegionKind
	Name  string // module name for program regions, else "stack"/"heap"
	Start uint64
	pages []*Page
}

func (r *Region) Size() uint64 { return uint64(len(r.pages)) * PageSize }
func (r *Region) End() uint64  { return r.Start + r.Size() }

// Clone duplicates the page table (cheap: pointer copy + refcount bump) but
// not page bodies, per spec.md §3 Invariants.
func (r *Region) Clone() *Region {
	pages := make([]*Page, len(r.pages))
	for i, p := range r.pages {
		p.retain()
		pages[i] = p
	}
	return &Region{Kind: r.Kind, Name: r.Name, Start: r.Start, pages: pages}
}

func alignDown(v, align uint64) uint64 { return v &^ (align - 1) }
func alignUp(v, align uint64) uint64   { return alignDown(v+align-1, align) }

// NewZeroedRegion builds an RW region (stack or heap) of the given size,
// rounded up to a whole number of pages.
func NewZeroedRegion(kind RegionKind, name string, start uint64, size uint64, perm Permission) *Region {
	start = alignDown(start, RegionAlign)
	numPages := alignUp(size, PageSize) / PageSize
	pages := make([]*Page, numPages)
	for i := range pages {
		pages[i] = newZeroedPage(perm)
	}
	return &Region{Kind: kind, Name: name, Start: start, pages: pages}
}

// ProgramSegment is one contiguous chunk of initialized bytes within a
// program region, as unpacked from a .blfm image (see internal/program).
type ProgramSegment struct {
	RelStart uint64
	Data     []byte
}

// NewProgramRegion builds a program region (one module's text/rodata/data
// section) from a sorted, non-overlapping list of segments.
func NewProgramRegion(name string, start uint64, byteSize uint64, perm Permission, segments []ProgramSegment) (*Region, error) {
	numPages := alignUp(byteSize, PageSize) / PageSize
	pages := make([]*Page, 0, numPages)

	var cur uint64
	for _, seg := range segments {
		segStart := alignDown(seg.RelStart, PageSize)
		if cur > segStart {
			return nil, fmt.Errorf("memory: %w: module %q segment at 0x%x overlaps previous end 0x%x",
				ErrSectionConstruction, name, segStart, cur)
		}
		for cur < segStart {
			pages = append(pages, newZeroedPage(perm))
			cur += PageSize
		}
		segSize := uint64(len(seg.Data))
		numSegPages := alignUp(segSize, PageSize) / PageSize
		for i := uint64(0); i < numSegPages; i++ {
			lo := i * PageSize
			hi := lo + PageSize
			if hi > segSize {
				hi = segSize
			}
			pages = append(pages, newPageFromSlice(seg.Data[lo:hi], perm))
			cur += PageSize
		}
	}
	for uint64(len(pages)) < numPages {
		pages = append(pages, newZeroedPage(perm))
	}
	return &Region{Kind: RegionProgram, Name: name, Start: alignDown(start, RegionAlign), pages: pages}, nil
}

// pageAt returns the page index and in-page offset of addr, and false if
// addr lies outside the region.
func (r *Region) pageAt(addr uint64) (idx uint64, off uint64, ok bool) {
	if addr < r.Start || addr >= r.End() {
		return 0, 0, false
	}
	rel := addr - r.Start
	return rel / PageSize, rel % PageSize, true
}
