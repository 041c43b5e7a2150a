package linker

import (
	"fmt"

	"github.com/hyrule-sim/pouchsim/internal/program"
)

// Offsets resolves an entry point or event hook's main-offset by name and
// game version (spec §4.6: "Invokes native_jump(main_start + resolved_offset)
// with version-dependent resolution"). The retrieved reference material
// only pins down two real addresses (the CreateWeapon/CreateHoldingItem
// event hooks); every other entry point's offset is supplied by whoever
// boots the process, through Set, rather than being hardcoded here
// (internal/config's Offsets adds none beyond the seeded event hooks).
type Offsets struct {
	table map[string]map[program.GameVer]uint64
}

// NewOffsets seeds the table with the event-hook offsets grounded in the
// reference linker's event subscriptions; everything else starts empty.
func NewOffsets() *Offsets {
	o := &Offsets{table: make(map[string]map[program.GameVer]uint64)}
	o.Set(EntryCreateEquip, program.Ver150, 0x006669f8)
	o.Set(EntryCreateHoldingItem, program.Ver150, 0x0073c5b4)
	o.Set(EntryCreateHoldingItem, program.Ver160, 0x00d23b20)
	return o
}

// Set registers addr as name's resolved main-offset on ver.
func (o *Offsets) Set(name string, ver program.GameVer, addr uint64) {
	if o.table[name] == nil {
		o.table[name] = make(map[program.GameVer]uint64)
	}
	o.table[name][ver] = addr
}

// Resolve looks up name's main-offset for ver.
func (o *Offsets) Resolve(name string, ver program.GameVer) (uint64, error) {
	byVer, ok := o.table[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrOffsetNotConfigured, name)
	}
	addr, ok := byVer[ver]
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", ErrOffsetNotConfigured, name, ver)
	}
	return addr, nil
}
