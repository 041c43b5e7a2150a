package ptr

import "github.com/hyrule-sim/pouchsim/internal/memory"

// MemoryView is the subset of a bound process's memory this package reads
// through — defined locally (rather than importing internal/process) for
// the same reason internal/cpu.MemoryView is: internal/process is the one
// that will eventually own a Layout-driven view, so the dependency has to
// point the other way.
type MemoryView interface {
	NewReader(addr uint64, want memory.Permission) (*memory.Reader, error)
}

// ItemType mirrors spec §3's PouchItem type enum.
type ItemType int32

const (
	ItemTypeSword ItemType = iota
	ItemTypeBow
	ItemTypeArrow
	ItemTypeShield
	ItemTypeArmorHead
	ItemTypeArmorUpper
	ItemTypeArmorLower
	ItemTypeMaterial
	ItemTypeFood
	ItemTypeKeyItem
)

// Item is a read-only snapshot of one PouchItem record, taken by reading
// emulated memory at the moment of the call — never a live object another
// Item points into.
type Item struct {
	Addr           uint64
	Name           string
	Type           ItemType
	Use            int32
	Value          int32
	Equipped       bool
	InInventory    bool
	HealthRecover  float32
	EffectDuration int32
	SellPrice      int32
	EffectID       int32
	EffectLevel    float32
	Ingredients    [5]string

	next uint64 // emulated address of the next list node (not its owning item), or the sentinel
}

// ReadItem reads one PouchItem at addr.
func ReadItem(m MemoryView, layout Layout, addr uint64) (Item, error) {
	if err := layout.checkConfigured(); err != nil {
		return Item{}, err
	}
	l := layout.Item

	name, err := readString(m, addr+l.NameOff, l.NameCap)
	if err != nil {
		return Item{}, err
	}
	typ, err := readI32(m, addr+l.TypeOff)
	if err != nil {
		return Item{}, err
	}
	use, err := readI32(m, addr+l.UseOff)
	if err != nil {
		return Item{}, err
	}
	value, err := readI32(m, addr+l.ValueOff)
	if err != nil {
		return Item{}, err
	}
	equipped, err := readBool(m, addr+l.EquippedOff)
	if err != nil {
		return Item{}, err
	}
	inInv, err := readBool(m, addr+l.InInvOff)
	if err != nil {
		return Item{}, err
	}
	healthRecover, err := readF32(m, addr+l.HealthRecoverOff)
	if err != nil {
		return Item{}, err
	}
	effectDuration, err := readI32(m, addr+l.EffectDurationOff)
	if err != nil {
		return Item{}, err
	}
	sellPrice, err := readI32(m, addr+l.SellPriceOff)
	if err != nil {
		return Item{}, err
	}
	effectID, err := readI32(m, addr+l.EffectIDOff)
	if err != nil {
		return Item{}, err
	}
	effectLevel, err := readF32(m, addr+l.EffectLevelOff)
	if err != nil {
		return Item{}, err
	}
	var ingredients [5]string
	for i, off := range l.IngredientOff {
		s, err := readString(m, addr+off, l.IngredientCap)
		if err != nil {
			return Item{}, err
		}
		ingredients[i] = s
	}
	next, err := readU64(m, addr+l.ListNodeOff+l.NextOff)
	if err != nil {
		return Item{}, err
	}

	return Item{
		Addr:           addr,
		Name:           name,
		Type:           ItemType(typ),
		Use:            use,
		Value:          value,
		Equipped:       equipped,
		InInventory:    inInv,
		HealthRecover:  healthRecover,
		EffectDuration: effectDuration,
		SellPrice:      sellPrice,
		EffectID:       effectID,
		EffectLevel:    effectLevel,
		Ingredients:    ingredients,
		next:           next,
	}, nil
}

func readString(m MemoryView, addr uint64, cap int) (string, error) {
	r, err := m.NewReader(addr, memory.PermRead)
	if err != nil {
		return "", err
	}
	return r.ReadString(cap)
}

func readI32(m MemoryView, addr uint64) (int32, error) {
	r, err := m.NewReader(addr, memory.PermRead)
	if err != nil {
		return 0, err
	}
	return r.ReadI32()
}

func readF32(m MemoryView, addr uint64) (float32, error) {
	r, err := m.NewReader(addr, memory.PermRead)
	if err != nil {
		return 0, err
	}
	return r.ReadF32()
}

func readBool(m MemoryView, addr uint64) (bool, error) {
	r, err := m.NewReader(addr, memory.PermRead)
	if err != nil {
		return false, err
	}
	return r.ReadBool()
}

func readU64(m MemoryView, addr uint64) (uint64, error) {
	r, err := m.NewReader(addr, memory.PermRead)
	if err != nil {
		return 0, err
	}
	return r.ReadU64()
}
