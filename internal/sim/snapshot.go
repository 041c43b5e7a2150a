package sim

import (
	"fmt"
	"strings"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/ptr"
)

// StateSnapshot is a point-in-time, display-only rendering of a State
// (spec §4.8's snapshot assembly step: "after each step, the runtime reads
// PMDM fresh through the typed-pointer layer and renders it").
type StateSnapshot struct {
	Game GameSnapshot
}

// GameSnapshot mirrors the three states a step can leave the game in:
// never started, crashed mid-call, or running with a readable pouch.
type GameSnapshot struct {
	Uninit  bool
	Crashed *cpu.CrashReport
	Running *GameSnapshotRunning
}

// GameSnapshotRunning is the pouch view taken while the process is alive.
type GameSnapshotRunning struct {
	Screen ScreenKind
	Pouch  ptr.PMDM
}

// ToSnapshot reads PMDM fresh (never from cached Screen.Pouch state) and
// renders it, following the no-host-object-graph rule: a snapshot is a
// disposable read, not a retained view.
func (s State) ToSnapshot() StateSnapshot {
	if s.Game.Uninit || s.Game.State == nil {
		return StateSnapshot{Game: GameSnapshot{Uninit: true}}
	}
	if s.Game.Crashed != nil {
		return StateSnapshot{Game: GameSnapshot{Crashed: s.Game.Crashed}}
	}
	gs := s.Game.State
	pmdm, err := ptr.ReadPMDM(gs.Process.Mem, gs.Layout, gs.PmdmAddr)
	running := &GameSnapshotRunning{Screen: gs.Screen.Kind}
	if err == nil {
		running.Pouch = pmdm
	}
	return StateSnapshot{Game: GameSnapshot{Running: running}}
}

func (s StateSnapshot) String() string {
	return s.Game.String()
}

func (g GameSnapshot) String() string {
	var b strings.Builder
	switch {
	case g.Uninit:
		b.WriteString("game: (Uninit)\n")
	case g.Crashed != nil:
		fmt.Fprintf(&b, "game: (Crashed)\n%+v\n", g.Crashed)
	case g.Running != nil:
		b.WriteString("game: (Running)\n")
		g.Running.writeTo(&b)
	}
	return b.String()
}

func (r *GameSnapshotRunning) writeTo(b *strings.Builder) {
	fmt.Fprintf(b, "  screen: (%s)\n", r.Screen)
	fmt.Fprintf(b, "  pouch: (count=%d, num_tabs=%d)\n", r.Pouch.List1Count, r.Pouch.NumTabs)
	for i, tab := range r.Pouch.Tabs {
		fmt.Fprintf(b, "    tab[%02d]: (type=%d, items=%d)\n", i, tab.Type, len(tab.Items))
		for j, item := range tab.Items {
			fmt.Fprintf(b, "      [%03d] name=%s value=%d equipped=%v type=%d\n",
				j, item.Name, item.Value, item.Equipped, item.Type)
		}
	}
}
