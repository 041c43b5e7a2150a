package sim

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hyrule-sim/pouchsim/internal/obslog"
)

// RunHandle lets a caller abort an in-flight run from another goroutine
// (spec §4.8's Run: "a cancellation handle an outer layer can abort between
// steps"). The abort flag is checked between steps, never mid-step — a step
// that has already started a native call always finishes it.
type RunHandle struct {
	ID      uuid.UUID
	aborted atomic.Bool
}

// NewRunHandle creates a fresh, not-yet-aborted handle.
func NewRunHandle() *RunHandle {
	return &RunHandle{ID: uuid.New()}
}

func (h *RunHandle) IsAborted() bool { return h.aborted.Load() }
func (h *RunHandle) Abort()          { h.aborted.Store(true) }

// RunOutput accumulates what a run produced: one snapshot per completed
// step and any errors steps raised along the way.
type RunOutput struct {
	States []StateSnapshot
	Errors []error
}

// RunParsed executes commands in order against initial, taking a snapshot
// after each step and stopping early (without error) if the handle is
// aborted between steps (spec §4.8's Run.run_parsed). A step's errors are
// recorded in the output and the run goes on, unless the process crashed
// during that step: then the run stops, since later steps would only
// short-circuit against the crashed game.
func RunParsed(handle *RunHandle, initial State, commands []Command) RunOutput {
	return RunParsedStreaming(handle, initial, commands, nil)
}

// RunParsedStreaming is RunParsed plus an optional onStep callback invoked
// with each step's index and snapshot as soon as it's produced, so a caller
// can forward snapshots before the whole run finishes. internal/hostapi does
// not use it: POST /runs calls RunParsed, and the websocket stream replays
// the stored snapshots of a finished run.
// onStep may be nil, in which case this behaves exactly like RunParsed.
func RunParsedStreaming(handle *RunHandle, initial State, commands []Command, onStep func(int, StateSnapshot)) RunOutput {
	var out RunOutput
	out.States = make([]StateSnapshot, 0, len(commands))

	state := initial
	for i, cmd := range commands {
		next, errs := state.ExecuteStep(cmd)
		state = next
		snap := state.ToSnapshot()
		out.States = append(out.States, snap)
		out.Errors = append(out.Errors, errs...)
		if obslog.L != nil {
			obslog.L.Step(i, cmd.Verb, len(errs))
		}
		if onStep != nil {
			onStep(i, snap)
		}

		if handle.IsAborted() {
			return out
		}
		if len(errs) > 0 && state.Game.Crashed != nil {
			out.Errors = append(out.Errors, fmt.Errorf("sim: run stopped after step %d due to a process crash", i))
			return out
		}
	}
	return out
}
