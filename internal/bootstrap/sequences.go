package bootstrap

import (
	"fmt"

	"github.com/hyrule-sim/pouchsim/internal/program"
)

// gdtManager150 replays GdtManager's real constructor+init for game
// version 1.5.0: enter the constructor, skip the sub-object constructors
// this simulator doesn't model (disposers, data ctors, a mutex), enter
// init, skip DualHeap/SaveMgr/save-loading/shop-data/game-data-arc/tree-node
// setup, allocate the increase logger, then create the TriggerParam proxy
// and hand it to init's param/param1 locals before finishing normally.
var gdtManager150 = Singleton{
	Name:     "GdtManager",
	RelStart: 0x50000,
	Size:     0xdc8,
	Program: []Inst{
		Enter(0x00dce964),
		ExecuteUntilThenAllocSingletonSkipOne(0x00dce9a0),
		// skip the Disposer ctor
		ExecuteUntilThenSkipOne(0x00dce9ac),
		// --- enter ctor; skip a run of data ctors
		ExecuteUntilThenSkipOne(0x00dcea24),
		ExecuteUntilThenSkipOne(0x00dcea2c),
		ExecuteUntilThenSkipOne(0x00dcea38),
		ExecuteUntilThenSkipOne(0x00dcea40),
		ExecuteUntilThenSkipOne(0x00dcea48),
		ExecuteUntilThenSkipOne(0x00dcea54),
		// method tree node disposer ctor
		ExecuteUntil(0x00b04390),
		Jump(0x00b043b4),
		// skip mutex ctor
		ExecuteUntilThenSkipOne(0x00dcec0c),
		// finish the function; replace return with a branch to init
		ExecuteUntil(0x00dcec24),
		Jump(0x00dcf1c4),
		GetSingleton(0),
		SetRegLo(1, 0),
		SetRegLo(2, 0),
		// --- init; skip 2 GetSystemTick calls
		ExecuteUntil(0x00dcf1f8),
		Jump(0x00dcf200),
		// skip DualHeap creation, set result to null
		ExecuteUntilThenSkipOne(0x00dcf23c),
		SetRegLo(0, 0),
		// allocate the increase logger
		ExecuteUntil(0x00dcf254),
		Allocate(0x3098),
		// skip SaveMgr creation
		ExecuteUntilThenSkipOne(0x00dcf268),
		// skip debug and SaveMgr init
		ExecuteUntil(0x00dcf3ec),
		Jump(0x00dcf3fc),
		ExecuteUntilThenSkipOne(0x00dcf40c),
		// skip entry factory bgdata
		ExecuteUntil(0x00dcf428),
		Jump(0x00dcf4e0),
		ExecuteUntilThenSkipOne(0x00dcf4fc),
		// skip save-area DualHeap creation, set result to null
		ExecuteUntilThenSkipOne(0x00dcf530),
		SetRegLo(0, 0),
		// skip loading the save and related setup
		ExecuteUntilThenSkipOne(0x00dcf53c),
		ExecuteUntilThenSkipOne(0x00dcf550),
		// skip loading the game data arc
		ExecuteUntilThenSkipOne(0x00dcf5cc),
		// skip loading shop data
		ExecuteUntilThenSkipOne(0x00dcf618),
		// skip tree node setup
		ExecuteUntilThenSkipOne(0x00dcf634),
		Jump(0x00dcf670),
		// skip unloading resources
		ExecuteUntilThenSkipOne(0x00dcf680),
		// create TriggerParam and hand it to init's param/param1 locals
		AllocateProxy(ProxyTriggerParam),
		CopyReg(0, 21),
		GetSingleton(19),
		JumpExecute(0x00dcfe88),
		JumpExecute(0x00dd2ed4),
		// finish init normally
		Jump(0x00dcf684),
		ExecuteToComplete(),
	},
}

// Lookup returns the bootstrap program for a singleton by name and
// game version. Sequences are hand-authored per spec §4.5; a missing entry
// means the sequence hasn't been authored for that version yet, matching
// the Open Question that 1.6.0 bootstrap should fail-fast rather than
// silently skip (the real constructor logs an error and no-ops instead —
// this simulator treats that as a hard error so callers don't proceed
// against an uninitialized singleton).
func Lookup(name string, ver program.GameVer) (Singleton, error) {
	if ver == program.Ver150 && name == "GdtManager" {
		return gdtManager150, nil
	}
	return Singleton{}, fmt.Errorf("%w: %s on %s", ErrSequenceNotReady, name, ver)
}
