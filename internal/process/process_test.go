package process

import (
	"errors"
	"testing"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/proxy"
)

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// noHooks is a HookProvider that never replaces or observes anything,
// for tests exercising plain native_jump through a Process.
type noHooks struct{}

func (noHooks) Replace(uint64) (*cpu.Block, string, bool)    { return nil, "", false }
func (noHooks) Observe(uint64) (func(*cpu.Cpu2), string, bool) { return nil, "", false }

func newTestProcess(t *testing.T, base uint64, code []byte) *Process {
	t.Helper()
	region, err := memory.NewProgramRegion("main", base, uint64(len(code)),
		memory.PermRead|memory.PermExecute, []memory.ProgramSegment{{RelStart: 0, Data: code}})
	if err != nil {
		t.Fatal(err)
	}
	mem := memory.NewMemory(memory.DefaultFlags(), nil, region)
	return New(mem, proxy.New(), noHooks{}, program.Ver150, base)
}

func TestCallRunsNativeJumpAndReturnsResult(t *testing.T) {
	const base = 0x10000
	var code []byte
	code = append(code, u32le(0xd2800540)...) // movz x0, #0x2a
	code = append(code, u32le(0xd65f03c0)...) // ret

	p := newTestProcess(t, base, code)
	cpu1 := cpu.NewCpu1()
	if err := p.Call(cpu1, cpu.Limits{MaxBlocksPerCall: 8}, base); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if got := cpu1.Regs.ReadX(0); got != 0x2a {
		t.Fatalf("x0 = 0x%x, want 0x2a", got)
	}
	if _, crashed := p.Crashed(); crashed {
		t.Fatal("process should not be crashed after a clean call")
	}
}

func TestCallCrashesProcessOnBlockLimit(t *testing.T) {
	const base = 0x20000
	code := u32le(0x14000000) // b . (infinite loop)

	p := newTestProcess(t, base, code)
	cpu1 := cpu.NewCpu1()
	err := p.Call(cpu1, cpu.Limits{MaxBlocksPerCall: 4}, base)
	if err == nil {
		t.Fatal("expected block-count limit error")
	}
	report, crashed := p.Crashed()
	if !crashed {
		t.Fatal("process should be crashed after a failing call")
	}
	if !errors.Is(report.Err, cpu.ErrBlockCountLimitReached) {
		t.Fatalf("report.Err = %v, want ErrBlockCountLimitReached", report.Err)
	}
}

func TestCrashedProcessShortCircuitsFurtherCalls(t *testing.T) {
	const base = 0x30000
	code := u32le(0x14000000)

	p := newTestProcess(t, base, code)
	cpu1 := cpu.NewCpu1()
	_ = p.Call(cpu1, cpu.Limits{MaxBlocksPerCall: 2}, base)

	callCountBefore := len(cpu1.Trace.Snapshot())
	if err := p.Call(cpu1, cpu.Limits{MaxBlocksPerCall: 100}, base); err == nil {
		t.Fatal("expected crashed process to short-circuit with an error")
	}
	if len(cpu1.Trace.Snapshot()) != callCountBefore {
		t.Fatal("short-circuited call should not touch the CPU")
	}
}

func TestCloneHasIndependentProxies(t *testing.T) {
	const base = 0x40000
	code := append(u32le(0xd2800540), u32le(0xd65f03c0)...)
	p := newTestProcess(t, base, code)
	p.Proxy.TriggerParam.Define("IsGet_Item_Fruit_A", proxy.KindBool, proxy.Bool(false))

	clone := p.Clone()
	if err := clone.Proxy.TriggerParam.Set("IsGet_Item_Fruit_A", proxy.Bool(true)); err != nil {
		t.Fatal(err)
	}

	v, _ := p.Proxy.TriggerParam.Get("IsGet_Item_Fruit_A")
	if v != proxy.Bool(false) {
		t.Fatal("mutating clone's proxy affected original process")
	}
}

func TestClonePreservesCrashState(t *testing.T) {
	const base = 0x50000
	code := u32le(0x14000000)
	p := newTestProcess(t, base, code)
	cpu1 := cpu.NewCpu1()
	_ = p.Call(cpu1, cpu.Limits{MaxBlocksPerCall: 2}, base)

	clone := p.Clone()
	if _, crashed := clone.Crashed(); !crashed {
		t.Fatal("clone of a crashed process should also report crashed")
	}
}
