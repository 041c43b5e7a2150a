package sim

import "github.com/hyrule-sim/pouchsim/internal/linker"

// ItemSpec names one item and how many of it to act on — the simulator's
// counterpart of the script front end's parsed item clause (`get 5 apple`,
// `sell all <Weapon_Sword_070>`). internal/script builds these from parsed
// command text; this package only consumes them.
type ItemSpec struct {
	Name     string
	Amount   int32
	Value    *int32
	Modifier *linker.Modifier

	// CookMeta carries the ingredient/effect fields a `cook`/`get
	// Item_Cook_*` command supplies; nil for a non-cook item.
	CookMeta *CookMeta
}

// CookMeta mirrors get_cook_item's optional arguments (spec §4.6).
type CookMeta struct {
	Ingredients    []string
	LifeRecover    *float32
	EffectDuration *int32
	SellPrice      *int32
	EffectID       *int32
	EffectLevel    *float32
}

// Command is one parsed script step (spec §6's command list — `get`,
// `buy`, `eat`, `sell`, `hold`, `unhold`, `drop`, `save`, `reload`, ...).
type Command struct {
	Verb  string
	Items []ItemSpec
}
