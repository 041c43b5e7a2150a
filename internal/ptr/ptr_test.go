package ptr

import (
	"testing"

	"github.com/hyrule-sim/pouchsim/internal/memory"
)

// testLayout is a small, self-consistent PouchItem/PMDM layout used only to
// exercise this package's field-offset arithmetic and list-termination
// logic — it has no relationship to the real game binary's actual offsets
// (those are ErrLayoutNotConfigured until internal/config supplies them).
func testLayout() Layout {
	item := PouchItemLayout{
		Size:              0xF0,
		NameOff:           0x00,
		NameCap:           0x20,
		TypeOff:           0x20,
		UseOff:            0x24,
		ValueOff:          0x28,
		EquippedOff:       0x2c,
		InInvOff:          0x2d,
		HealthRecoverOff:  0x30,
		EffectDurationOff: 0x34,
		SellPriceOff:      0x38,
		EffectIDOff:       0x3c,
		EffectLevelOff:    0x40,
		IngredientOff:     [5]uint64{0x44, 0x64, 0x84, 0xa4, 0xc4},
		IngredientCap:     0x20,
		ListNodeOff:       0xe4,
		NextOff:           0x00,
		PrevOff:           0x08,
	}
	pmdm := PMDMLayout{
		List1HeadOff:  0x00,
		List1CountOff: 0x10,
		List2HeadOff:  0x20,
		NumTabsOff:    0x30,
		TabsOff:       0x40,
		TabsTypeOff:   0x140,
		MaxTabs:       50,
	}
	return NewLayout(item, pmdm)
}

func newTestMem(t *testing.T) *memory.Memory {
	t.Helper()
	heap := memory.NewHeap(0x1000000, 0x100000, 0)
	return memory.NewMemory(memory.DefaultFlags(), heap)
}

func writeItem(t *testing.T, m *memory.Memory, layout Layout, addr uint64, name string, typ ItemType, value int32, equipped, inInv bool, nextNode uint64) {
	t.Helper()
	l := layout.Item
	w, err := m.NewWriter(addr+l.NameOff, memory.PermWrite)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteString(name, l.NameCap); err != nil {
		t.Fatal(err)
	}
	write32 := func(off uint64, v int32) {
		w, err := m.NewWriter(addr+off, memory.PermWrite)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteI32(v); err != nil {
			t.Fatal(err)
		}
	}
	write32(l.TypeOff, int32(typ))
	write32(l.ValueOff, value)
	wb, err := m.NewWriter(addr+l.EquippedOff, memory.PermWrite)
	if err != nil {
		t.Fatal(err)
	}
	if err := wb.WriteBool(equipped); err != nil {
		t.Fatal(err)
	}
	wb2, err := m.NewWriter(addr+l.InInvOff, memory.PermWrite)
	if err != nil {
		t.Fatal(err)
	}
	if err := wb2.WriteBool(inInv); err != nil {
		t.Fatal(err)
	}
	wn, err := m.NewWriter(addr+l.ListNodeOff+l.NextOff, memory.PermWrite)
	if err != nil {
		t.Fatal(err)
	}
	if err := wn.WriteU64(nextNode); err != nil {
		t.Fatal(err)
	}
}

func TestReadItemRoundTrip(t *testing.T) {
	layout := testLayout()
	m := newTestMem(t)
	addr := m.Heap().Alloc(uint64(layout.Item.Size))
	writeItem(t, m, layout, addr, "Item_Fruit_A", ItemTypeMaterial, 5, false, true, 0)

	item, err := ReadItem(m, layout, addr)
	if err != nil {
		t.Fatal(err)
	}
	if item.Name != "Item_Fruit_A" || item.Type != ItemTypeMaterial || item.Value != 5 || item.Equipped || !item.InInventory {
		t.Fatalf("got %+v", item)
	}
}

func TestReadItemWithoutLayoutFails(t *testing.T) {
	m := newTestMem(t)
	addr := m.Heap().Alloc(0x80)
	if _, err := ReadItem(m, Layout{}, addr); err != ErrLayoutNotConfigured {
		t.Fatalf("got %v, want ErrLayoutNotConfigured", err)
	}
}

func TestWalkItemListTerminatesAtSentinel(t *testing.T) {
	layout := testLayout()
	m := newTestMem(t)

	pmdmAddr := m.Heap().Alloc(0x200)
	headNode := pmdmAddr + layout.PMDM.List1HeadOff

	item1 := m.Heap().Alloc(uint64(layout.Item.Size))
	item2 := m.Heap().Alloc(uint64(layout.Item.Size))
	item2Node := item2 + layout.Item.ListNodeOff
	item1Node := item1 + layout.Item.ListNodeOff

	writeItem(t, m, layout, item1, "Item_Fruit_A", ItemTypeMaterial, 5, false, true, item2Node)
	writeItem(t, m, layout, item2, "Item_Fruit_B", ItemTypeMaterial, 2, false, true, headNode)
	_ = item1Node

	items, err := walkItemList(m, layout, headNode, item1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != "Item_Fruit_A" || items[1].Name != "Item_Fruit_B" {
		t.Fatalf("got %+v", items)
	}
}

func TestWalkItemListEmptyHeadReturnsNoItems(t *testing.T) {
	layout := testLayout()
	m := newTestMem(t)
	pmdmAddr := m.Heap().Alloc(0x200)
	headNode := pmdmAddr + layout.PMDM.List1HeadOff

	items, err := walkItemList(m, layout, headNode, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("got %d items, want 0", len(items))
	}
}
