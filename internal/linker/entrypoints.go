package linker

import (
	"math"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/process"
)

// Entry point names, used both as Offsets table keys and as hook-registry
// names for the two event subscriptions.
const (
	EntryGetItem               = "get_item"
	EntryGetItemWithValue      = "get_item_with_value"
	EntryGetCookItem           = "get_cook_item"
	EntryCannotGetItem         = "cannot_get_item"
	EntryUseItem               = "use_item"
	EntryRemoveItemByName      = "remove_item_by_name"
	EntryRemoveArrow           = "remove_arrow"
	EntrySellItem              = "sell_item"
	EntryUnholdItems           = "unhold_items"
	EntryCanHoldAnotherItem    = "can_hold_another_item"
	EntryCreatePlayerEquipment = "create_player_equipment"
	EntryDeleteRemovedItems    = "delete_removed_items"
	EntryGetEquippedItem       = "get_equipped_item"
	EntryLoadFromGameData      = "load_from_game_data"
	EntrySaveToGameData        = "save_to_game_data"
	EntryCreateEquip           = "CreateEquip"
	EntryCreateHoldingItem     = "CreateHoldingItem"
)

// NumIngredients is the fixed ingredient-slot count a cooking pot's
// PouchItem record carries (spec §3: "ingredients (five fixed-capacity
// strings)").
const NumIngredients = 5

// Modifier stands in for the game's WeaponModifierInfo (a flag bitmask plus
// a float value, e.g. an attack-up or durability modifier rolled onto a
// weapon); its exact in-memory field layout is not part of the retrieved
// reference material, so it is marshaled here as the two registers the
// reg! contract would assign it rather than a typed emulated-memory
// struct.
type Modifier struct {
	Flag  uint32
	Value float32
}

// EntryPoints marshals and invokes the typed, synchronous calls spec §4.6
// names: get_item, get_item_with_value, get_cook_item, cannot_get_item,
// use_item, remove_item_by_name, remove_arrow, sell_item, unhold_items,
// can_hold_another_item, create_player_equipment, delete_removed_items,
// get_equipped_item, load_from_game_data, save_to_game_data.
type EntryPoints struct {
	Offsets *Offsets
}

func NewEntryPoints(offsets *Offsets) *EntryPoints {
	return &EntryPoints{Offsets: offsets}
}

// call resolves name's offset for proc's game version and runs native_jump
// through it, after setup has written the argument registers.
func (ep *EntryPoints) call(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string, setup func(*cpu.Cpu2)) (*cpu.Cpu2, error) {
	off, err := ep.Offsets.Resolve(name, proc.Ver)
	if err != nil {
		return nil, err
	}
	return proc.CallBound(cpu1, limits, proc.Main+off, setup)
}

// GetItem adds name (amount defaulting to 1 when unset through its
// native_jump) to the pouch, with an optional value override and weapon
// modifier.
func (ep *EntryPoints) GetItem(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string, value *int32, modifier *Modifier) error {
	namePtr, err := writeGuestString(proc, name)
	if err != nil {
		return err
	}
	_, err = ep.call(proc, cpu1, limits, EntryGetItem, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = namePtr
		hasVal, val := optS32(value)
		c2.Regs.X[1] = hasVal
		c2.Regs.X[2] = val
		setModifierRegs(c2, 3, modifier)
	})
	return err
}

// GetItemWithValue is GetItem with a required value, matching the reference
// linker's separate entry point for the common "always specify a value"
// call shape.
func (ep *EntryPoints) GetItemWithValue(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string, value int32, modifier *Modifier) error {
	return ep.GetItem(proc, cpu1, limits, name, &value, modifier)
}

// GetCookItem adds a cooked item built from up to NumIngredients
// ingredients and the pot's computed stats.
func (ep *EntryPoints) GetCookItem(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string, ingredients []string, lifeRecover *float32, effectDuration *int32, sellPrice *int32, effectID *int32, effectLevel *float32) error {
	namePtr, err := writeGuestString(proc, name)
	if err != nil {
		return err
	}
	var ingredientPtrs [NumIngredients]uint64
	for i := 0; i < NumIngredients && i < len(ingredients); i++ {
		p, err := writeGuestString(proc, ingredients[i])
		if err != nil {
			return err
		}
		ingredientPtrs[i] = p
	}
	_, err = ep.call(proc, cpu1, limits, EntryGetCookItem, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = namePtr
		for i, p := range ingredientPtrs {
			c2.Regs.X[1+i] = p
		}
		hasLife, lifeBits := optF32Bits(lifeRecover)
		c2.Regs.X[6] = hasLife
		c2.Regs.F[0] = lifeBits
		hasDur, dur := optS32(effectDuration)
		c2.Regs.X[7] = hasDur
		c2.Regs.X[8] = dur
		hasSell, sell := optS32(sellPrice)
		c2.Regs.X[9] = hasSell
		c2.Regs.X[10] = sell
		hasEffID, effID := optS32(effectID)
		c2.Regs.X[11] = hasEffID
		c2.Regs.X[12] = effID
		hasEffLvl, effLvlBits := optF32Bits(effectLevel)
		c2.Regs.X[13] = hasEffLvl
		c2.Regs.F[1] = effLvlBits
	})
	return err
}

// CannotGetItem reports whether the pouch cannot accept amount more of
// name (e.g. the stack/slot limit for that item has been reached).
func (ep *EntryPoints) CannotGetItem(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string, amount int32) (bool, error) {
	namePtr, err := writeGuestString(proc, name)
	if err != nil {
		return false, err
	}
	c2, err := ep.call(proc, cpu1, limits, EntryCannotGetItem, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = namePtr
		c2.Regs.X[1] = uint64(uint32(amount))
	})
	if err != nil {
		return false, err
	}
	return c2.Regs.ReadX(0) != 0, nil
}

// UseItem consumes one of name (eating food, drinking an elixir).
func (ep *EntryPoints) UseItem(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string) error {
	namePtr, err := writeGuestString(proc, name)
	if err != nil {
		return err
	}
	_, err = ep.call(proc, cpu1, limits, EntryUseItem, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = namePtr
	})
	return err
}

// RemoveItemByName removes amount of name from the pouch (drop, sell-all,
// force-remove).
func (ep *EntryPoints) RemoveItemByName(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string, amount int32) error {
	namePtr, err := writeGuestString(proc, name)
	if err != nil {
		return err
	}
	_, err = ep.call(proc, cpu1, limits, EntryRemoveItemByName, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = namePtr
		c2.Regs.X[1] = uint64(uint32(amount))
	})
	return err
}

// RemoveArrow removes amount of the currently equipped arrow type.
func (ep *EntryPoints) RemoveArrow(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, amount int32) error {
	_, err := ep.call(proc, cpu1, limits, EntryRemoveArrow, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = uint64(uint32(amount))
	})
	return err
}

// SellItem removes amount of name and credits its sell price (the runtime
// doesn't track rupees itself; it only needs the pouch mutation).
func (ep *EntryPoints) SellItem(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, name string, amount int32) error {
	namePtr, err := writeGuestString(proc, name)
	if err != nil {
		return err
	}
	_, err = ep.call(proc, cpu1, limits, EntrySellItem, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = namePtr
		c2.Regs.X[1] = uint64(uint32(amount))
	})
	return err
}

// UnholdItems returns any materials currently held in the pouch screen
// back to the pouch.
func (ep *EntryPoints) UnholdItems(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits) error {
	_, err := ep.call(proc, cpu1, limits, EntryUnholdItems, nil)
	return err
}

// CanHoldAnotherItem reports whether the pouch screen's hold buffer has
// room for one more material.
func (ep *EntryPoints) CanHoldAnotherItem(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits) (bool, error) {
	c2, err := ep.call(proc, cpu1, limits, EntryCanHoldAnotherItem, nil)
	if err != nil {
		return false, err
	}
	return c2.Regs.ReadX(0) != 0, nil
}

// CreatePlayerEquipment reconciles PMDM's equipped-item state into real
// overworld equipment actors — the call the screen state machine makes
// when closing the inventory after an equipment change (spec §4.8).
func (ep *EntryPoints) CreatePlayerEquipment(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits) error {
	_, err := ep.call(proc, cpu1, limits, EntryCreatePlayerEquipment, nil)
	return err
}

// DeleteRemovedItems purges pouch slots PMDM has marked for removal this
// frame (the normal end-of-step list compaction).
func (ep *EntryPoints) DeleteRemovedItems(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits) error {
	_, err := ep.call(proc, cpu1, limits, EntryDeleteRemovedItems, nil)
	return err
}

// GetEquippedItem returns the emulated-memory address of the equipped
// PouchItem of itemType, or 0 if none is equipped.
func (ep *EntryPoints) GetEquippedItem(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, itemType int32) (uint64, error) {
	c2, err := ep.call(proc, cpu1, limits, EntryGetEquippedItem, func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = uint64(uint32(itemType))
	})
	if err != nil {
		return 0, err
	}
	return c2.Regs.ReadX(0), nil
}

// LoadFromGameData replays PMDM's item list from the GDT-backed save data
// (the `reload`/`new-game` scripting commands and the initial boot state).
func (ep *EntryPoints) LoadFromGameData(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits) error {
	_, err := ep.call(proc, cpu1, limits, EntryLoadFromGameData, nil)
	return err
}

// SaveToGameData writes PMDM's current item list back into GDT-backed save
// data (the `save`/`save-as` scripting commands).
func (ep *EntryPoints) SaveToGameData(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits) error {
	_, err := ep.call(proc, cpu1, limits, EntrySaveToGameData, nil)
	return err
}

func setModifierRegs(c2 *cpu.Cpu2, startReg int, m *Modifier) {
	if m == nil {
		c2.Regs.X[startReg] = 0
		return
	}
	c2.Regs.X[startReg] = 1
	c2.Regs.X[startReg+1] = uint64(m.Flag)
	c2.Regs.F[0] = uint64(math.Float32bits(m.Value))
}
