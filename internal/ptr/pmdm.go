package ptr

// Tab is one tab's item list, read in slot order.
type Tab struct {
	Type  int32
	Items []Item
}

// PMDM is a read-only snapshot of PauseMenuDataMgr's tab structure: the
// number of tabs, each tab's type, and each tab's item list walked from its
// head. List1Count is mList1.mCount — spec: "if mCount is 0, the inventory
// shows up as empty" unless the caller forces visibility.
type PMDM struct {
	NumTabs    int32
	List1Count int32
	Tabs       []Tab
}

// ReadPMDM reads pmdmAddr's tab count, tab head pointers and types, then
// walks each tab's item list. MaxListItems bounds any single tab's walk
// (spec.md's pool is 420 items total across all tabs); a list that doesn't
// terminate within that bound returns ErrListTooLong rather than looping
// forever on corrupt or adversarial memory.
func ReadPMDM(m MemoryView, layout Layout, pmdmAddr uint64) (PMDM, error) {
	if err := layout.checkConfigured(); err != nil {
		return PMDM{}, err
	}
	l := layout.PMDM

	numTabs, err := readI32(m, pmdmAddr+l.NumTabsOff)
	if err != nil {
		return PMDM{}, err
	}
	if numTabs < 0 {
		numTabs = 0
	}
	if int(numTabs) > l.MaxTabs {
		numTabs = int32(l.MaxTabs)
	}
	count, err := readI32(m, pmdmAddr+l.List1CountOff)
	if err != nil {
		return PMDM{}, err
	}
	headNode, err := readU64(m, pmdmAddr+l.List1HeadOff)
	if err != nil {
		return PMDM{}, err
	}

	tabs := make([]Tab, 0, numTabs)
	for i := int32(0); i < numTabs; i++ {
		tabType, err := readI32(m, pmdmAddr+l.TabsTypeOff+uint64(i)*4)
		if err != nil {
			return PMDM{}, err
		}
		tabHead, err := readU64(m, pmdmAddr+l.TabsOff+uint64(i)*8)
		if err != nil {
			return PMDM{}, err
		}
		items, err := walkItemList(m, layout, headNode, tabHead)
		if err != nil {
			return PMDM{}, err
		}
		tabs = append(tabs, Tab{Type: tabType, Items: items})
	}

	return PMDM{NumTabs: numTabs, List1Count: count, Tabs: tabs}, nil
}

// walkItemList reads items starting at itemAddr, following each item's
// embedded list node's mNext pointer, until it reaches headNode (the
// sentinel) or a null pointer. The owning item's address is recovered from
// a node pointer by subtracting the node's fixed offset within its item —
// the same "-8"-style correction the reference traversal applies, generalized
// to whatever ListNodeOff the configured Layout carries.
func walkItemList(m MemoryView, layout Layout, headNode, itemAddr uint64) ([]Item, error) {
	var items []Item
	for itemAddr != 0 {
		if len(items) >= MaxListItems {
			return nil, ErrListTooLong
		}
		item, err := ReadItem(m, layout, itemAddr)
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		nextNode := item.next
		if nextNode == 0 || nextNode == headNode {
			break
		}
		itemAddr = nextNode - layout.Item.ListNodeOff
	}
	return items, nil
}
