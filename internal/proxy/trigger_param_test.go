package proxy

import "testing"

func TestDefineGetSet(t *testing.T) {
	tp := NewTriggerParam()
	tp.Define("IsGet_Item_Fruit_A", KindBool, Bool(false))

	v, ok := tp.Get("IsGet_Item_Fruit_A")
	if !ok || v != Bool(false) {
		t.Fatalf("got %v, %v", v, ok)
	}

	if err := tp.Set("IsGet_Item_Fruit_A", Bool(true)); err != nil {
		t.Fatal(err)
	}
	v, _ = tp.Get("IsGet_Item_Fruit_A")
	if v != Bool(true) {
		t.Fatalf("got %v, want true", v)
	}
}

func TestSetUnknownFlagFails(t *testing.T) {
	tp := NewTriggerParam()
	if err := tp.Set("NoSuchFlag", Bool(true)); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestSetKindMismatchFails(t *testing.T) {
	tp := NewTriggerParam()
	tp.Define("StaminaRecover", KindF32, F32(0))
	if err := tp.Set("StaminaRecover", S32(1)); err == nil {
		t.Fatal("expected kind mismatch error")
	}
}

func TestStringCapacityEnforced(t *testing.T) {
	tp := NewTriggerParam()
	tp.Define("PorchItem", KindString32, Str(""))
	over := make([]byte, 33)
	for i := range over {
		over[i] = 'a'
	}
	if err := tp.Set("PorchItem", Str(over)); err == nil {
		t.Fatal("expected string-too-long error")
	}
	if err := tp.Set("PorchItem", Str("Weapon_Sword_070")); err != nil {
		t.Fatal(err)
	}
}

func TestArrayFixedLengthEnforced(t *testing.T) {
	tp := NewTriggerParam()
	tp.Define("PorchSword_FlagSp", KindBoolArray, BoolArray{false, false, false})
	if err := tp.Set("PorchSword_FlagSp", BoolArray{true, true}); err == nil {
		t.Fatal("expected fixed-length error for shorter array")
	}
	if err := tp.Set("PorchSword_FlagSp", BoolArray{true, false, true}); err != nil {
		t.Fatal(err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tp := NewTriggerParam()
	tp.Define("IsOpenItemCategory", KindBoolArray, BoolArray{false, false})

	clone := tp.Clone()
	if err := clone.Set("IsOpenItemCategory", BoolArray{true, true}); err != nil {
		t.Fatal(err)
	}

	orig, _ := tp.Get("IsOpenItemCategory")
	if orig.(BoolArray)[0] {
		t.Fatal("mutating clone's array entry affected original")
	}
}

func TestHashNameStable(t *testing.T) {
	if HashName("PorchItem") != HashName("PorchItem") {
		t.Fatal("HashName should be deterministic")
	}
	if HashName("PorchItem") == HashName("PorchItem_Value1") {
		t.Fatal("distinct names should not collide in this test")
	}
}
