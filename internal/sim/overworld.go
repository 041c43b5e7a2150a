package sim

// Overworld is host-side overworld state (spec §4.8): equipped
// weapon/bow/shield/armor actors, FIFO queues of dropped materials,
// dropped equipment, and held materials, a holding-attached flag, and the
// actor-spawning gate.
type Overworld struct {
	EquippedWeapon *SpawnedActor
	EquippedBow    *SpawnedActor
	EquippedShield *SpawnedActor
	EquippedArmor  []SpawnedActor

	DroppedMaterials  []SpawnedActor
	DroppedEquipments []SpawnedActor
	HeldMaterials     []SpawnedActor

	HeldAttached bool

	Creator *ActorCreator
}

func NewOverworld() *Overworld {
	return &Overworld{Creator: NewActorCreator()}
}

// SetHeldAttached marks whether held materials are attached to the player
// (spec §4.8's hold-attach transition).
func (o *Overworld) SetHeldAttached(v bool) { o.HeldAttached = v }

// DespawnItems clears dropped-material/equipment queues once they've been
// consumed by the step that produced them (get_items.rs calls
// `sys.overworld.despawn_items()` after every GET/BUY).
func (o *Overworld) DespawnItems() {
	o.DroppedMaterials = nil
	o.DroppedEquipments = nil
}

// DeleteHeldItems clears the held-material queue and its attached flag —
// what UNHOLD does on the overworld side, alongside linker.UnholdItems
// reconciling the pouch.
func (o *Overworld) DeleteHeldItems() {
	o.HeldMaterials = nil
	o.HeldAttached = false
}

// DropMaterial appends a spawned material actor to the dropped-materials
// queue (a GET/BUY that couldn't be auto-equipped, or a DROP command).
func (o *Overworld) DropMaterial(a SpawnedActor) {
	o.DroppedMaterials = append(o.DroppedMaterials, a)
}

// DropEquipment appends a spawned equipment actor to the ground-weapon
// queue (a weapon/bow/shield that couldn't be auto-equipped).
func (o *Overworld) DropEquipment(a SpawnedActor) {
	o.DroppedEquipments = append(o.DroppedEquipments, a)
}

// HoldMaterial appends a material actor to the held queue (a HOLD command
// picking a material up from the pouch screen).
func (o *Overworld) HoldMaterial(a SpawnedActor) {
	o.HeldMaterials = append(o.HeldMaterials, a)
}
