// Package sim implements the simulation runtime (spec §4.8): the
// step-level state machine that maps script actions onto linker calls,
// maintains host-side screen/overworld state, and assembles snapshots.
package sim

import "github.com/hyrule-sim/pouchsim/internal/linker"

// Actor simulates an actor the game would spawn in the overworld — an
// equipped weapon, a dropped material, a held item.
type Actor struct {
	Name     string
	Value    int32
	Modifier *linker.Modifier
}

// SpawnedActor carries the invariant that Actor was successfully spawned,
// the way the reference ActorCreator separates "requested" from
// "actually placed in the overworld" (spec §4.8's "Actor creator").
type SpawnedActor struct{ Actor }

// ActorCreator is a host-side gate reflecting whether new actors can
// currently be spawned — spec §4.8: "a boolean gate rather than a counted
// pool" standing in for the base game's ProcHandle-pool exhaustion
// ("menu overload").
type ActorCreator struct {
	Allowed bool
}

func NewActorCreator() *ActorCreator { return &ActorCreator{Allowed: true} }

// TrySpawn returns the actor wrapped as spawned, or a zero SpawnedActor and
// false if the gate is closed.
func (c *ActorCreator) TrySpawn(a Actor) (SpawnedActor, bool) {
	if !c.Allowed {
		return SpawnedActor{}, false
	}
	return SpawnedActor{a}, true
}

// TrySpawnValue1 is the common case of spawning a material actor (value
// always 1, no modifier).
func (c *ActorCreator) TrySpawnValue1(name string) (SpawnedActor, bool) {
	return c.TrySpawn(Actor{Name: name, Value: 1})
}

// ForceSpawn bypasses the gate — used when the actor is already known to
// exist (e.g. re-equipping on load) or for actions like shooting an arrow
// that must always succeed.
func (c *ActorCreator) ForceSpawn(a Actor) SpawnedActor { return SpawnedActor{a} }
