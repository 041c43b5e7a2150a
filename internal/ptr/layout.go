package ptr

// MaxListItems bounds a pouch list traversal: spec describes PMDM's item
// pool as a fixed 420-element array, so no well-formed list can have more
// live nodes than that.
const MaxListItems = 420

// PouchItemLayout is PouchItem's field-offset table (spec §3: "name
// (fixed-capacity string), type enum, use enum, value, equipped flag,
// in-inventory flag, health recover, effect duration, sell price, effect
// id, effect level, ingredients (five fixed-capacity strings), and two
// intrusive list-node pointers"). All offsets are relative to a PouchItem's
// own address; Size is the stride between consecutive pool slots.
type PouchItemLayout struct {
	Size int

	NameOff     uint64
	NameCap     int
	TypeOff     uint64
	UseOff      uint64
	ValueOff    uint64
	EquippedOff uint64
	InInvOff    uint64

	HealthRecoverOff   uint64
	EffectDurationOff  uint64
	SellPriceOff       uint64
	EffectIDOff        uint64
	EffectLevelOff     uint64

	IngredientOff [5]uint64
	IngredientCap int

	// ListNode: a doubly-linked node embedded in the item; NextOff/PrevOff
	// are relative to the node's own address, which is ListNodeOff away
	// from the item's address (spec: "two intrusive list-node pointers").
	ListNodeOff uint64
	NextOff     uint64
	PrevOff     uint64
}

// PMDMLayout is PauseMenuDataMgr's field-offset table: its two item lists'
// head/sentinel nodes, the tab array, and the tab-type array.
type PMDMLayout struct {
	List1HeadOff  uint64 // &pmdm->mList1.mStartEnd
	List1CountOff uint64 // &pmdm->mList1.mCount
	List2HeadOff  uint64
	NumTabsOff    uint64
	TabsOff       uint64 // start of a NumTabs-long array of item-list head pointers
	TabsTypeOff   uint64 // start of a NumTabs-long array of tab-type ints
	MaxTabs       int
}

// Layout bundles both tables. A zero-value Layout is never valid: every
// accessor in this package checks Configured before using an offset, and
// returns ErrLayoutNotConfigured otherwise, mirroring
// internal/linker.Offsets' and internal/bootstrap.Lookup's "don't fabricate
// ungrounded addresses" precedent.
type Layout struct {
	Item PouchItemLayout
	PMDM PMDMLayout

	configured bool
}

// NewLayout marks l as ready for use once its caller (internal/config,
// reading a packaged per-version offset table) has filled in every field.
func NewLayout(item PouchItemLayout, pmdm PMDMLayout) Layout {
	return Layout{Item: item, PMDM: pmdm, configured: true}
}

func (l Layout) checkConfigured() error {
	if !l.configured {
		return ErrLayoutNotConfigured
	}
	return nil
}
