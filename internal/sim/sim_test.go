package sim

import (
	"testing"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/linker"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/proxy"
	"github.com/hyrule-sim/pouchsim/internal/ptr"
)

const retInsn = 0xd65f03c0 // ret

func u32le(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

// newTestProc builds a process with n independent single-`ret` functions
// laid out one instruction apart, so distinct entry points can be given
// distinct offsets (0, 4, 8, ...) and observed independently — unlike a
// single shared `ret`, this lets a test tell "cannot_get_item fired" apart
// from "get_item fired" by offset alone.
func newTestProc(t *testing.T, hooks cpu.HookProvider, n int) *process.Process {
	t.Helper()
	const base = 0x20000
	var code []byte
	for i := 0; i < n; i++ {
		code = append(code, u32le(retInsn)...)
	}
	region, err := memory.NewProgramRegion("main", base, uint64(len(code)),
		memory.PermRead|memory.PermExecute, []memory.ProgramSegment{{RelStart: 0, Data: code}})
	if err != nil {
		t.Fatal(err)
	}
	heap := memory.NewHeap(0x1000000, 0x10000, 0)
	mem := memory.NewMemory(memory.DefaultFlags(), heap, region)
	return process.New(mem, proxy.New(), hooks, program.Ver150, base)
}

func readGuestString(t *testing.T, proc *process.Process, addr uint64) string {
	t.Helper()
	if addr == 0 {
		return ""
	}
	r, err := proc.Mem.NewReader(addr, memory.PermRead)
	if err != nil {
		t.Fatal(err)
	}
	s, err := r.ReadString(32)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestActorCreatorGateBlocksSpawns(t *testing.T) {
	c := NewActorCreator()
	if _, ok := c.TrySpawnValue1("Apple"); !ok {
		t.Fatal("expected spawn to succeed while gate is open")
	}
	c.Allowed = false
	if _, ok := c.TrySpawnValue1("Apple"); ok {
		t.Fatal("expected spawn to fail while gate is closed")
	}
	spawned := c.ForceSpawn(Actor{Name: "Apple", Value: 1})
	if spawned.Name != "Apple" {
		t.Fatalf("ForceSpawn should bypass the gate, got %+v", spawned)
	}
}

func TestOverworldQueues(t *testing.T) {
	o := NewOverworld()
	o.DropMaterial(SpawnedActor{Actor{Name: "Apple", Value: 1}})
	o.DropEquipment(SpawnedActor{Actor{Name: "Master Sword", Value: 1}})
	if len(o.DroppedMaterials) != 1 || len(o.DroppedEquipments) != 1 {
		t.Fatalf("expected one dropped material and one dropped equipment, got %+v", o)
	}
	o.DespawnItems()
	if len(o.DroppedMaterials) != 0 || len(o.DroppedEquipments) != 0 {
		t.Fatal("DespawnItems should clear both dropped queues")
	}

	o.HoldMaterial(SpawnedActor{Actor{Name: "Apple", Value: 1}})
	o.SetHeldAttached(true)
	if len(o.HeldMaterials) != 1 || !o.HeldAttached {
		t.Fatal("expected one held material and attached=true")
	}
	o.DeleteHeldItems()
	if len(o.HeldMaterials) != 0 || o.HeldAttached {
		t.Fatal("DeleteHeldItems should clear the held queue and the attached flag")
	}
}

func TestScreenTransitionToOverworldIsNoopWhenAlreadyThere(t *testing.T) {
	s := NewScreen()
	if !s.IsOverworld() {
		t.Fatal("a fresh Screen should start in the overworld")
	}
	// Nothing in this path touches proc/cpu1/ep/limits since Kind is
	// already ScreenOverworld and HoldingInInventory is false.
	if err := s.TransitionToOverworld(nil, nil, nil, cpu.Limits{}, nil); err != nil {
		t.Fatalf("no-op transition should not error, got %v", err)
	}
	if !s.IsOverworld() {
		t.Fatal("screen should remain in the overworld")
	}
}

func TestStateExecuteStepBeforeInitReturnsError(t *testing.T) {
	var s State
	_, errs := s.ExecuteStep(Command{Verb: "get"})
	if len(errs) == 0 {
		t.Fatal("expected an error executing a step before the game is initialized")
	}
}

func TestStateExecuteStepAfterCrashReturnsError(t *testing.T) {
	s := State{Game: Game{
		State:   &GameState{Screen: NewScreen(), Overworld: NewOverworld()},
		Crashed: &cpu.CrashReport{},
	}}
	_, errs := s.ExecuteStep(Command{Verb: "get"})
	if len(errs) == 0 {
		t.Fatal("expected an error executing a step on an already-crashed game")
	}
}

func TestStateExecuteStepUnrecognizedVerb(t *testing.T) {
	reg := linker.NewRegistry()
	proc := newTestProc(t, reg, 1)
	gs := NewGameState(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16},
		linker.NewEntryPoints(linker.NewOffsets()), ptr.Layout{}, 0)
	s := State{Game: Game{State: gs}}
	_, errs := s.ExecuteStep(Command{Verb: "moonwalk"})
	if len(errs) == 0 {
		t.Fatal("expected an error for an unrecognized verb")
	}
}

// TestExecuteStepGetItemsHappyPath drives a full GET step through
// NativeJump: cannot_get_item and get_item are bound to distinct stub
// functions, and an Observe hook on each records the marshaled item name
// and amount the way the real entry points would be exercised by guest
// code, then reports "not blocked" for cannot_get_item.
func TestExecuteStepGetItemsHappyPath(t *testing.T) {
	reg := linker.NewRegistry()
	proc := newTestProc(t, reg, 2)

	offsets := linker.NewOffsets()
	offsets.Set(linker.EntryCannotGetItem, program.Ver150, 0)
	offsets.Set(linker.EntryGetItem, program.Ver150, 4)
	ep := linker.NewEntryPoints(offsets)

	var cannotCalls []string
	var cannotAmounts []int32
	var getCalls []string
	reg.RegisterObserve("cannot", linker.AtOffset(0), func(c2 *cpu.Cpu2) {
		cannotCalls = append(cannotCalls, readGuestString(t, proc, c2.Regs.ReadX(0)))
		cannotAmounts = append(cannotAmounts, int32(c2.Regs.ReadX(1)))
		c2.Regs.X[0] = 0 // not blocked
	})
	reg.RegisterObserve("get", linker.AtOffset(4), func(c2 *cpu.Cpu2) {
		getCalls = append(getCalls, readGuestString(t, proc, c2.Regs.ReadX(0)))
	})

	gs := NewGameState(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, ep, ptr.Layout{}, 0)
	s := State{Game: Game{State: gs}}

	next, errs := s.ExecuteStep(Command{Verb: "get", Items: []ItemSpec{{Name: "Apple", Amount: 3}}})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(cannotCalls) != 1 || cannotCalls[0] != "Apple" || cannotAmounts[0] != 3 {
		t.Fatalf("expected one cannot_get_item(Apple, 3) call, got names=%v amounts=%v", cannotCalls, cannotAmounts)
	}
	if len(getCalls) != 1 || getCalls[0] != "Apple" {
		t.Fatalf("expected one get_item(Apple) call, got %v", getCalls)
	}
	if next.Game.Crashed != nil {
		t.Fatalf("did not expect a crash, got %v", next.Game.Crashed)
	}
}

// TestExecuteStepGetItemsBlockedByCannotGetItem checks that a
// cannot_get_item=true result short-circuits the GetItem call for that
// item rather than calling get_item anyway.
func TestExecuteStepGetItemsBlockedByCannotGetItem(t *testing.T) {
	reg := linker.NewRegistry()
	proc := newTestProc(t, reg, 2)

	offsets := linker.NewOffsets()
	offsets.Set(linker.EntryCannotGetItem, program.Ver150, 0)
	offsets.Set(linker.EntryGetItem, program.Ver150, 4)
	ep := linker.NewEntryPoints(offsets)

	var getCalls int
	reg.RegisterObserve("cannot", linker.AtOffset(0), func(c2 *cpu.Cpu2) {
		c2.Regs.X[0] = 1 // blocked
	})
	reg.RegisterObserve("get", linker.AtOffset(4), func(c2 *cpu.Cpu2) {
		getCalls++
	})

	gs := NewGameState(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, ep, ptr.Layout{}, 0)
	s := State{Game: Game{State: gs}}

	_, errs := s.ExecuteStep(Command{Verb: "get", Items: []ItemSpec{{Name: "Silver Sword", Amount: 1}}})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error when blocked, got %v", errs)
	}
	if getCalls != 0 {
		t.Fatal("get_item should not be called when cannot_get_item reports blocked")
	}
}

// TestExecuteStepProcessCrashStopsTheRun verifies a crash during a step is
// surfaced on State rather than left for the next step to discover.
func TestExecuteStepProcessCrashStopsTheRun(t *testing.T) {
	reg := linker.NewRegistry()
	proc := newTestProc(t, reg, 1)

	offsets := linker.NewOffsets()
	// EntryCannotGetItem resolves to an offset with no registered code and
	// no hook, so fetching it reads past the single-instruction region and
	// native_jump fails, crashing the process.
	offsets.Set(linker.EntryCannotGetItem, program.Ver150, 0x1000)
	ep := linker.NewEntryPoints(offsets)

	gs := NewGameState(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, ep, ptr.Layout{}, 0)
	s := State{Game: Game{State: gs}}

	next, errs := s.ExecuteStep(Command{Verb: "get", Items: []ItemSpec{{Name: "Apple", Amount: 1}}})
	if len(errs) == 0 {
		t.Fatal("expected an error from the failed native_jump")
	}
	if next.Game.Crashed == nil {
		t.Fatal("expected the crash to be recorded on the returned State")
	}

	// A further step against the same (crashed) GameState must
	// short-circuit rather than attempt another native_jump.
	next2, errs2 := next.ExecuteStep(Command{Verb: "get"})
	if len(errs2) == 0 {
		t.Fatal("expected the crashed-state short-circuit to report an error")
	}
	if next2.Game.Crashed == nil {
		t.Fatal("crash state should persist across steps")
	}
}

func TestToSnapshotUninitAndCrashed(t *testing.T) {
	var uninit State
	snap := uninit.ToSnapshot()
	if !snap.Game.Uninit {
		t.Fatal("expected an uninitialized snapshot")
	}

	crashed := State{Game: Game{Crashed: &cpu.CrashReport{}}}
	snap = crashed.ToSnapshot()
	if snap.Game.Crashed == nil {
		t.Fatal("expected a crashed snapshot")
	}
}

func TestRunHandleAbortStopsRunEarly(t *testing.T) {
	reg := linker.NewRegistry()
	proc := newTestProc(t, reg, 2)

	offsets := linker.NewOffsets()
	offsets.Set(linker.EntryCannotGetItem, program.Ver150, 0)
	offsets.Set(linker.EntryGetItem, program.Ver150, 4)
	ep := linker.NewEntryPoints(offsets)

	handle := NewRunHandle()
	var ranSteps int
	reg.RegisterObserve("cannot", linker.AtOffset(0), func(c2 *cpu.Cpu2) {
		ranSteps++
		c2.Regs.X[0] = 0
		handle.Abort() // abort mid-first-step; the second command must not run
	})

	gs := NewGameState(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, ep, ptr.Layout{}, 0)
	initial := State{Game: Game{State: gs}}

	out := RunParsed(handle, initial, []Command{
		{Verb: "get", Items: []ItemSpec{{Name: "Apple", Amount: 1}}},
		{Verb: "get", Items: []ItemSpec{{Name: "Banana", Amount: 1}}},
	})
	if len(out.States) != 1 {
		t.Fatalf("expected the run to stop after the aborted step, got %d snapshots", len(out.States))
	}
	if ranSteps != 1 {
		t.Fatalf("expected exactly one cannot_get_item call before abort, got %d", ranSteps)
	}
}

func TestRunParsedStreamingCallsOnStepPerStep(t *testing.T) {
	reg := linker.NewRegistry()
	proc := newTestProc(t, reg, 2)

	offsets := linker.NewOffsets()
	offsets.Set(linker.EntryCannotGetItem, program.Ver150, 0)
	offsets.Set(linker.EntryGetItem, program.Ver150, 4)
	ep := linker.NewEntryPoints(offsets)

	gs := NewGameState(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, ep, ptr.Layout{}, 0)
	initial := State{Game: Game{State: gs}}

	var seen []int
	out := RunParsedStreaming(NewRunHandle(), initial, []Command{
		{Verb: "get", Items: []ItemSpec{{Name: "Apple", Amount: 1}}},
		{Verb: "get", Items: []ItemSpec{{Name: "Banana", Amount: 1}}},
	}, func(i int, _ StateSnapshot) {
		seen = append(seen, i)
	})

	if len(out.States) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(out.States))
	}
	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Fatalf("expected onStep called with indices [0 1], got %v", seen)
	}
}
