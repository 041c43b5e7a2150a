package sim

import (
	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/linker"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/ptr"
)

// ScreenKind names the current screen (spec §4.8: "Overworld |
// Inventory(PouchScreen) | Dialog(ShopBuying|ShopSelling|...)").
type ScreenKind int

const (
	ScreenOverworld ScreenKind = iota
	ScreenInventory
	ScreenShopBuying
	ScreenShopSelling
)

func (k ScreenKind) String() string {
	switch k {
	case ScreenOverworld:
		return "Overworld"
	case ScreenInventory:
		return "Inventory"
	case ScreenShopBuying:
		return "ShopBuying"
	case ScreenShopSelling:
		return "ShopSelling"
	default:
		return "Unknown"
	}
}

// PouchScreenActor is one of the three "to spawn on inventory close" slots
// (spec §4.8: "Transitions that require PMDM reconciliation ... call
// create_player_equipment and then update overworld actor slots").
type PouchScreenActor struct {
	Actor   *Actor
	Changed bool
}

// PouchScreen is the inventory screen's host-side state (spec §4.8):
// the tab/slot matrix projected from PMDM at the moment the inventory was
// opened, the active Prompt-Entanglement slot, and the three
// on-close-spawn slots.
type PouchScreen struct {
	Tabs []ptr.Tab

	ActiveEntangleTab  int
	ActiveEntangleSlot int
	HasEntangleSlot    bool

	WeaponToSpawn PouchScreenActor
	BowToSpawn    PouchScreenActor
	ShieldToSpawn PouchScreenActor
}

// OpenPouchScreen reads PMDM's tab/item structure and builds a new
// PouchScreen (spec §4.8/§4.6's PouchScreen.open): if mCount is 0 the
// inventory is empty unless forceAccessible asks to read it anyway.
func OpenPouchScreen(proc *process.Process, layout ptr.Layout, pmdmAddr uint64, forceAccessible bool) (*PouchScreen, error) {
	pmdm, err := ptr.ReadPMDM(proc.Mem, layout, pmdmAddr)
	if err != nil {
		return nil, err
	}
	tabs := pmdm.Tabs
	if pmdm.List1Count == 0 && !forceAccessible {
		tabs = nil
	}
	return &PouchScreen{Tabs: tabs}, nil
}

// Screen is the current screen's state, plus flags that persist across
// screen transitions within one run (holding state, deferred removal).
type Screen struct {
	Kind  ScreenKind
	Pouch *PouchScreen

	HoldingInInventory    bool
	RemoveHeldAfterDialog bool
}

func NewScreen() *Screen { return &Screen{Kind: ScreenOverworld} }

func (s *Screen) IsInventory() bool    { return s.Kind == ScreenInventory }
func (s *Screen) IsOverworld() bool    { return s.Kind == ScreenOverworld }
func (s *Screen) IsShopBuying() bool   { return s.Kind == ScreenShopBuying }
func (s *Screen) IsShopSelling() bool  { return s.Kind == ScreenShopSelling }
func (s *Screen) IsShop() bool         { return s.IsShopBuying() || s.IsShopSelling() }
func (s *Screen) IsInventoryOrOverworld() bool {
	return s.IsInventory() || s.IsOverworld()
}

// TransitionToOverworld closes the inventory or shop screen, reconciling
// equipment changes through create_player_equipment when leaving the
// inventory (spec §4.8: "Transitions that require PMDM reconciliation
// (closing inventory after equipment change) call create_player_equipment
// and then update overworld actor slots").
func (s *Screen) TransitionToOverworld(proc *process.Process, cpu1 *cpu.Cpu1, ep *linker.EntryPoints, limits cpu.Limits, overworld *Overworld) error {
	if s.Kind == ScreenInventory {
		if err := ep.CreatePlayerEquipment(proc, cpu1, limits); err != nil {
			return err
		}
		applySpawnSlot(overworld, s.Pouch.WeaponToSpawn)
		applySpawnSlot(overworld, s.Pouch.BowToSpawn)
		applySpawnSlot(overworld, s.Pouch.ShieldToSpawn)
		s.Pouch = nil
	}
	s.Kind = ScreenOverworld
	if !s.HoldingInInventory {
		return nil
	}
	// Leaving inventory without an explicit hold-attach implicitly unholds
	// (spec §4.8's "Holding" paragraph).
	if err := ep.UnholdItems(proc, cpu1, limits); err != nil {
		return err
	}
	overworld.DeleteHeldItems()
	s.HoldingInInventory = false
	return nil
}

// TransitionToInventory opens the inventory screen, reading PMDM's current
// item layout.
func (s *Screen) TransitionToInventory(proc *process.Process, layout ptr.Layout, pmdmAddr uint64, forceAccessible bool) error {
	pouch, err := OpenPouchScreen(proc, layout, pmdmAddr, forceAccessible)
	if err != nil {
		return err
	}
	s.Kind = ScreenInventory
	s.Pouch = pouch
	return nil
}

func applySpawnSlot(o *Overworld, slot PouchScreenActor) {
	if !slot.Changed {
		return
	}
	if slot.Actor == nil {
		return
	}
	spawned, ok := o.Creator.TrySpawn(*slot.Actor)
	if ok {
		o.DropEquipment(spawned)
	}
}
