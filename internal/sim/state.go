package sim

import (
	"fmt"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/linker"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/ptr"
)

// GameState is the running-game half of State: a bound process, its
// screen/overworld state, and everything needed to invoke linker entry
// points against it.
type GameState struct {
	Process     *process.Process
	Cpu1        *cpu.Cpu1
	Limits      cpu.Limits
	EntryPoints *linker.EntryPoints
	Layout      ptr.Layout
	PmdmAddr    uint64

	Screen    *Screen
	Overworld *Overworld
}

// NewGameState wires up a fresh GameState around an already-booted
// process (spec §4.8's GameSystems: screen + overworld + actor creator,
// bound to one emulated process).
func NewGameState(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, ep *linker.EntryPoints, layout ptr.Layout, pmdmAddr uint64) *GameState {
	return &GameState{
		Process:     proc,
		Cpu1:        cpu1,
		Limits:      limits,
		EntryPoints: ep,
		Layout:      layout,
		PmdmAddr:    pmdmAddr,
		Screen:      NewScreen(),
		Overworld:   NewOverworld(),
	}
}

// Game is the run-level wrapper spec's Display impl switches on: a crashed
// process reports itself rather than panicking the step loop, and the
// uninitialized state exists only before the first step ever runs.
type Game struct {
	Uninit  bool
	State   *GameState
	Crashed *cpu.CrashReport
}

// State is one step's complete simulation state (spec §4.8's `State` —
// the value threaded step to step by Run).
type State struct {
	Game Game
}

// ExecuteStep runs one parsed Command against the current state, switching
// screens as each verb's auto-switch policy requires (spec §4.8's Step
// executor), and returns the resulting State plus any script/runtime
// errors the step produced. State is threaded by value step to step, as in
// the reference runtime, but the receiver shares its *GameState with the
// returned State, so earlier States in a run see the game as it is now.
func (s State) ExecuteStep(cmd Command) (State, []error) {
	if s.Game.Uninit || s.Game.State == nil {
		return s, []error{fmt.Errorf("sim: cannot execute a step before the game is initialized")}
	}
	if s.Game.Crashed != nil {
		return s, []error{fmt.Errorf("sim: process already crashed: %v", s.Game.Crashed)}
	}

	gs := s.Game.State
	var errs []error

	switch cmd.Verb {
	case "get", "buy":
		errs = gs.GetItems(cmd.Items)
	case "eat":
		errs = gs.EatItems(cmd.Items)
	case "sell":
		errs = gs.SellItems(cmd.Items)
	case "drop":
		errs = gs.DropItems(cmd.Items)
	case "hold":
		errs = gs.HoldItems(cmd.Items)
	case "unhold":
		errs = gs.Unhold()
	case "save":
		errs = gs.Save()
	case "reload":
		errs = gs.Reload()
	default:
		errs = []error{fmt.Errorf("sim: unrecognized command %q", cmd.Verb)}
	}

	if report, crashed := gs.Process.Crashed(); crashed {
		s.Game.Crashed = report
		return s, append(errs, fmt.Errorf("sim: process crashed while executing %q: %v", cmd.Verb, report))
	}
	return s, errs
}
