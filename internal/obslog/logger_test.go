package obslog

import "testing"

func TestNewNopDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Step(0, "get", 0)
	l.Hook("observe", "CreateEquip", 0x1234)
	l.Crash(0x1234, errTest{})
	l.WorkerSpawned(1, false)
	l.WorkerPanic(1, "boom")
}

type errTest struct{}

func (errTest) Error() string { return "test error" }

func TestHexFormatsAddresses(t *testing.T) {
	cases := map[uint64]string{
		0:      "0x0",
		0x20:   "0x20",
		0xdead: "0xdead",
	}
	for in, want := range cases {
		if got := Hex(in); got != want {
			t.Errorf("Hex(0x%x) = %s, want %s", in, got, want)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init(false)
	first := L
	Init(true)
	if L != first {
		t.Fatal("Init should only take effect on its first call")
	}
}
