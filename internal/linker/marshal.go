package linker

import (
	"math"

	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/process"
)

// writeGuestString heap-allocates a NUL-terminated copy of s and returns its
// address — the `char*` pointer entry points like get_item take for an item
// name (spec §4.6's reg! contract passes pointers through x[n]).
func writeGuestString(proc *process.Process, s string) (uint64, error) {
	addr := proc.Mem.Heap().Alloc(uint64(len(s) + 1))
	if addr == 0 {
		return 0, ErrScratchExhausted
	}
	w, err := proc.Mem.NewWriter(addr, memory.PermWrite)
	if err != nil {
		return 0, err
	}
	if err := w.WriteString(s, len(s)+1); err != nil {
		return 0, err
	}
	return addr, nil
}

// optS32 returns (1, value) when present and (0, 0) otherwise — the
// presence/value pair convention the typed entry points use for Rust's
// Option<i32> arguments, passed as two integer registers (spec §4.6's
// reg! contract has no native Option, so presence is its own register).
func optS32(v *int32) (hasVal uint64, value uint64) {
	if v == nil {
		return 0, 0
	}
	return 1, uint64(uint32(*v))
}

func optF32Bits(v *float32) (hasVal uint64, bits uint64) {
	if v == nil {
		return 0, 0
	}
	return 1, uint64(math.Float32bits(*v))
}
