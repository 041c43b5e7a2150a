package bootstrap

import (
	"errors"
	"testing"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/proxy"
)

type noHooks struct{}

func (noHooks) Replace(uint64) (*cpu.Block, string, bool)    { return nil, "", false }
func (noHooks) Observe(uint64) (func(*cpu.Cpu2), string, bool) { return nil, "", false }

func u32le(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

func newTestProc(t *testing.T, base uint64, code []byte) *process.Process {
	t.Helper()
	region, err := memory.NewProgramRegion("main", base, uint64(len(code)),
		memory.PermRead|memory.PermExecute, []memory.ProgramSegment{{RelStart: 0, Data: code}})
	if err != nil {
		t.Fatal(err)
	}
	heap := memory.NewHeap(0x1000000, 0x10000, 0)
	mem := memory.NewMemory(memory.DefaultFlags(), heap, region)
	return process.New(mem, proxy.New(), noHooks{}, program.Ver150, base)
}

func TestInstEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Inst{
		Enter(0x00dce964),
		SetRegHi(3, 0xdeadbeef),
		CopyReg(0, 21),
		ExecuteUntilThenAllocSingletonSkipOne(0x1234),
		GetSingleton(19),
		ExecuteToComplete(),
	}
	for _, want := range cases {
		got := Decode(want.Encode())
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestVMEnterAndExecuteToComplete(t *testing.T) {
	const base = 0x10000
	var code []byte
	code = append(code, u32le(0xd2800020)...) // movz x0, #1
	code = append(code, u32le(0xd65f03c0)...) // ret

	proc := newTestProc(t, base, code)
	vm := NewVM(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, nil)

	s := Singleton{Name: "Test", RelStart: 0x100, Size: 0x10, Program: []Inst{
		Enter(0),
		ExecuteToComplete(),
	}}

	addr, err := vm.Run(s)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if addr != proc.Mem.Heap().Region().Start+0x100 {
		t.Fatalf("singleton addr = 0x%x, want heap start + 0x100", addr)
	}
	if got := vm.C2.Regs.ReadX(0); got != 1 {
		t.Fatalf("x0 = %d, want 1", got)
	}
}

func TestVMAllocateSingletonAndGetSingletonAgree(t *testing.T) {
	proc := newTestProc(t, 0x10000, u32le(0xd65f03c0))
	vm := NewVM(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, nil)
	s := Singleton{Name: "Test", RelStart: 0x200, Size: 0x40}

	if err := vm.step(AllocateSingleton(), s); err != nil {
		t.Fatal(err)
	}
	want := proc.Mem.Heap().Region().Start + 0x200
	if vm.C2.Regs.ReadX(0) != want {
		t.Fatalf("x0 = 0x%x, want 0x%x", vm.C2.Regs.ReadX(0), want)
	}
	if err := vm.step(GetSingleton(5), s); err != nil {
		t.Fatal(err)
	}
	if vm.C2.Regs.ReadX(5) != want {
		t.Fatalf("x5 = 0x%x, want 0x%x", vm.C2.Regs.ReadX(5), want)
	}
}

func TestVMAllocateProxyRegistersTriggerParam(t *testing.T) {
	proc := newTestProc(t, 0x10000, u32le(0xd65f03c0))
	vm := NewVM(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, nil)

	if err := vm.step(AllocateProxy(ProxyTriggerParam), Singleton{}); err != nil {
		t.Fatal(err)
	}
	if vm.C2.Regs.ReadX(0) == 0 {
		t.Fatal("x0 should hold a nonzero placeholder address")
	}
	if proc.Proxy.TriggerParamAddr != vm.C2.Regs.ReadX(0) {
		t.Fatal("Proxy.TriggerParamAddr should match the address placed in x0")
	}
}

func TestVMAllocateDataCopiesBlobIntoHeap(t *testing.T) {
	proc := newTestProc(t, 0x10000, u32le(0xd65f03c0))
	vm := NewVM(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, map[uint8][]byte{
		uint8(program.DataActorInfo): []byte("actor-info-blob"),
	})

	if err := vm.step(AllocateData(uint8(program.DataActorInfo)), Singleton{}); err != nil {
		t.Fatal(err)
	}
	addr := vm.C2.Regs.ReadX(0)
	r, err := proc.Mem.NewReader(addr, memory.PermRead)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []byte("actor-info-blob") {
		got, err := r.ReadU8()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestVMSetRegHiLoAndCopyReg(t *testing.T) {
	proc := newTestProc(t, 0x10000, u32le(0xd65f03c0))
	vm := NewVM(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, nil)

	if err := vm.step(RegLoNextHi(0x89abcdef), Singleton{}); err != nil {
		t.Fatal(err)
	}
	if err := vm.step(SetRegHi(3, 0x01234567), Singleton{}); err != nil {
		t.Fatal(err)
	}
	if want, got := uint64(0x0123456789abcdef), vm.C2.Regs.ReadX(3); got != want {
		t.Fatalf("x3 = 0x%x, want 0x%x", got, want)
	}

	if err := vm.step(CopyReg(3, 32), Singleton{}); err != nil { // X3 -> S0/D0
		t.Fatal(err)
	}
	if vm.C2.Regs.F[0] != 0x0123456789abcdef {
		t.Fatalf("f0 = 0x%x, want exact bit copy of x3", vm.C2.Regs.F[0])
	}
}

func TestLookupGdtManager150ReturnsSequence(t *testing.T) {
	s, err := Lookup("GdtManager", program.Ver150)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Program) == 0 {
		t.Fatal("expected a non-empty bootstrap program")
	}
	if s.Program[0].Op != OpEnter {
		t.Fatalf("first instruction should be Enter, got op 0x%02x", s.Program[0].Op)
	}
}

func TestLookupUnknownSequenceFails(t *testing.T) {
	_, err := Lookup("GdtManager", program.Ver160)
	if !errors.Is(err, ErrSequenceNotReady) {
		t.Fatalf("got %v, want ErrSequenceNotReady", err)
	}
	_, err = Lookup("AocManager", program.Ver150)
	if !errors.Is(err, ErrSequenceNotReady) {
		t.Fatalf("got %v, want ErrSequenceNotReady", err)
	}
}
