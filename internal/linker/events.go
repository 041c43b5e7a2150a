package linker

import (
	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/program"
)

// maxGuestCString bounds how many bytes a C-string read from emulated
// memory will scan for a NUL before giving up — event argument extraction
// reads item names this way since, unlike a PouchItem field, they have no
// declared fixed capacity on the guest side.
const maxGuestCString = 256

func readGuestCString(proc *process.Process, addr uint64) (string, error) {
	r, err := proc.NewReader(addr, memory.PermRead)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, 32)
	for len(buf) < maxGuestCString {
		b, err := r.ReadU8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

// EquipArgs is CreateEquip's event payload: a slot index, the item name,
// its value, and the address of an optional weapon modifier — extracted
// from registers the same way events.rs's CreateWeapon::extract_args reads
// w[1], x[2], w[3], x[4]. ModifierPtr is left as a raw address (0 = none)
// rather than decoded in place: reading its fields needs the descriptor-
// based typed-pointer layer spec §4.4 describes, which nothing in this
// package depends on yet.
type EquipArgs struct {
	SlotIdx     int32
	Name        string
	Value       int32
	ModifierPtr uint64
}

func extractEquipArgs(c2 *cpu.Cpu2, proc *process.Process) (EquipArgs, error) {
	name, err := readGuestCString(proc, c2.Regs.ReadX(2))
	if err != nil {
		return EquipArgs{}, err
	}
	return EquipArgs{
		SlotIdx:     int32(c2.Regs.ReadW(1)),
		Name:        name,
		Value:       int32(c2.Regs.ReadW(3)),
		ModifierPtr: c2.Regs.ReadX(4),
	}, nil
}

// HoldingItemArgs is CreateHoldingItem's event payload: just the item name
// the game is about to spawn a held-material actor for.
type HoldingItemArgs struct {
	Name string
}

func extractHoldingItemArgs(c2 *cpu.Cpu2, proc *process.Process) (HoldingItemArgs, error) {
	name, err := readGuestCString(proc, c2.Regs.ReadX(0))
	if err != nil {
		return HoldingItemArgs{}, err
	}
	return HoldingItemArgs{Name: name}, nil
}

// SubscribeCreateEquip registers an observe hook at CreateEquip's resolved
// offset for the duration of run, passing each captured EquipArgs to
// listener, then unregisters — the Go counterpart of events.rs's
// execute_subscribed: a subscription is only live for one call, not for
// the Process's whole lifetime, so overlapping runs on different Processes
// never see each other's hooks.
func SubscribeCreateEquip(reg *Registry, offsets *Offsets, ver program.GameVer, proc *process.Process, listener func(EquipArgs), run func() error) error {
	off, err := offsets.Resolve(EntryCreateEquip, ver)
	if err != nil {
		return err
	}
	reg.RegisterObserve(EntryCreateEquip, AtOffset(off), func(c2 *cpu.Cpu2) {
		args, err := extractEquipArgs(c2, proc)
		if err == nil {
			listener(args)
		}
	})
	defer reg.Unregister(EntryCreateEquip)
	return run()
}

// SubscribeCreateHoldingItem is SubscribeCreateEquip's counterpart for the
// CreateHoldingItem hook.
func SubscribeCreateHoldingItem(reg *Registry, offsets *Offsets, ver program.GameVer, proc *process.Process, listener func(HoldingItemArgs), run func() error) error {
	off, err := offsets.Resolve(EntryCreateHoldingItem, ver)
	if err != nil {
		return err
	}
	reg.RegisterObserve(EntryCreateHoldingItem, AtOffset(off), func(c2 *cpu.Cpu2) {
		args, err := extractHoldingItemArgs(c2, proc)
		if err == nil {
			listener(args)
		}
	})
	defer reg.Unregister(EntryCreateHoldingItem)
	return run()
}
