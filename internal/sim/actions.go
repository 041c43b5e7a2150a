package sim

import "fmt"

// ensureOverworld auto-switches to the overworld screen if the step's verb
// requires it (spec §4.8: "the runtime may open inventory/close inventory
// ... to satisfy the command's preconditions").
func (gs *GameState) ensureOverworld() error {
	if gs.Screen.IsOverworld() {
		return nil
	}
	return gs.Screen.TransitionToOverworld(gs.Process, gs.Cpu1, gs.EntryPoints, gs.Limits, gs.Overworld)
}

// ensureInventory auto-switches to the inventory screen, opening it fresh
// if the screen was something else.
func (gs *GameState) ensureInventory(forceAccessible bool) error {
	if gs.Screen.IsInventory() {
		return nil
	}
	return gs.Screen.TransitionToInventory(gs.Process, gs.Layout, gs.PmdmAddr, forceAccessible)
}

// GetItems adds each item to the pouch (spec §4.6's get_item/get_cook_item,
// driven the way get_items.rs's get_item_internal does: check
// cannot_get_item first, then call the matching typed entry point).
func (gs *GameState) GetItems(items []ItemSpec) []error {
	if err := gs.ensureOverworld(); err != nil {
		return []error{err}
	}
	var errs []error
	for _, item := range items {
		if item.CookMeta != nil {
			errs = append(errs, gs.getCookItem(item)...)
			continue
		}
		cannot, err := gs.EntryPoints.CannotGetItem(gs.Process, gs.Cpu1, gs.Limits, item.Name, item.Amount)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if cannot {
			errs = append(errs, fmt.Errorf("sim: cannot get more of %q", item.Name))
			continue
		}
		amount := item.Amount
		if err := gs.EntryPoints.GetItem(gs.Process, gs.Cpu1, gs.Limits, item.Name, &amount, item.Modifier); err != nil {
			errs = append(errs, err)
		}
	}
	gs.Overworld.DespawnItems()
	return errs
}

func (gs *GameState) getCookItem(item ItemSpec) []error {
	var errs []error
	for i := int32(0); i < item.Amount; i++ {
		cannot, err := gs.EntryPoints.CannotGetItem(gs.Process, gs.Cpu1, gs.Limits, item.Name, 1)
		if err != nil {
			errs = append(errs, err)
			return errs
		}
		if cannot {
			errs = append(errs, fmt.Errorf("sim: cannot get more of %q", item.Name))
			return errs
		}
		meta := item.CookMeta
		err = gs.EntryPoints.GetCookItem(gs.Process, gs.Cpu1, gs.Limits, item.Name, meta.Ingredients,
			meta.LifeRecover, meta.EffectDuration, meta.SellPrice, meta.EffectID, meta.EffectLevel)
		if err != nil {
			errs = append(errs, err)
			return errs
		}
	}
	return errs
}

// EatItems consumes each item (spec's `eat` command, via use_item).
// ExecuteStep does not route `eat-all` here; it reports that verb as
// unrecognized.
func (gs *GameState) EatItems(items []ItemSpec) []error {
	if err := gs.ensureOverworld(); err != nil {
		return []error{err}
	}
	var errs []error
	for _, item := range items {
		for i := int32(0); i < item.Amount; i++ {
			if err := gs.EntryPoints.UseItem(gs.Process, gs.Cpu1, gs.Limits, item.Name); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errs
}

// SellItems sells each item to a shop (spec's `sell` command; ExecuteStep
// reports `sell-all` as unrecognized).
// Unlike the reference, which requires an active shop-selling screen, this
// does the pouch mutation directly; the caller is responsible for having
// arranged the shop dialog via the script's own screen-scoping commands.
func (gs *GameState) SellItems(items []ItemSpec) []error {
	var errs []error
	for _, item := range items {
		if err := gs.EntryPoints.SellItem(gs.Process, gs.Cpu1, gs.Limits, item.Name, item.Amount); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// DropItems removes each item from the pouch without returning value
// (spec's `drop`/`drop-all` commands).
func (gs *GameState) DropItems(items []ItemSpec) []error {
	if err := gs.ensureOverworld(); err != nil {
		return []error{err}
	}
	var errs []error
	for _, item := range items {
		if err := gs.EntryPoints.RemoveItemByName(gs.Process, gs.Cpu1, gs.Limits, item.Name, item.Amount); err != nil {
			errs = append(errs, err)
			continue
		}
		spawned, ok := gs.Overworld.Creator.TrySpawnValue1(item.Name)
		if ok {
			gs.Overworld.DropMaterial(spawned)
		}
	}
	return errs
}

// HoldItems picks up materials from the pouch screen into the overworld
// hold queue (spec's `hold` command). Must be in the inventory.
func (gs *GameState) HoldItems(items []ItemSpec) []error {
	if err := gs.ensureInventory(false); err != nil {
		return []error{err}
	}
	gs.Screen.HoldingInInventory = true
	var errs []error
	for _, item := range items {
		for i := int32(0); i < item.Amount; i++ {
			can, err := gs.EntryPoints.CanHoldAnotherItem(gs.Process, gs.Cpu1, gs.Limits)
			if err != nil {
				errs = append(errs, err)
				break
			}
			if !can {
				errs = append(errs, fmt.Errorf("sim: cannot hold more items"))
				break
			}
			if err := gs.EntryPoints.RemoveItemByName(gs.Process, gs.Cpu1, gs.Limits, item.Name, 1); err != nil {
				errs = append(errs, err)
				break
			}
			spawned, ok := gs.Overworld.Creator.TrySpawnValue1(item.Name)
			if ok {
				gs.Overworld.HoldMaterial(spawned)
			}
		}
	}
	return errs
}

// Unhold returns held materials to the pouch (spec's `unhold` command).
func (gs *GameState) Unhold() []error {
	if !gs.Screen.IsInventoryOrOverworld() {
		if err := gs.ensureOverworld(); err != nil {
			return []error{err}
		}
	}
	if err := gs.EntryPoints.UnholdItems(gs.Process, gs.Cpu1, gs.Limits); err != nil {
		return []error{err}
	}
	gs.Overworld.DeleteHeldItems()
	gs.Screen.HoldingInInventory = false
	return nil
}

// Save writes PMDM's current item list into GDT-backed save data (spec's
// `save`/`save-as` commands).
func (gs *GameState) Save() []error {
	if err := gs.EntryPoints.SaveToGameData(gs.Process, gs.Cpu1, gs.Limits); err != nil {
		return []error{err}
	}
	return nil
}

// Reload replays PMDM's item list from GDT-backed save data (spec's
// `reload` command).
func (gs *GameState) Reload() []error {
	if err := gs.EntryPoints.LoadFromGameData(gs.Process, gs.Cpu1, gs.Limits); err != nil {
		return []error{err}
	}
	return nil
}
