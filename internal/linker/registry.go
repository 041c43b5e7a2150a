package linker

import "github.com/hyrule-sim/pouchsim/internal/cpu"

// replaceHook and observeHook are registry entries. A replace hook produces
// a block that runs in lieu of the original code at its offset; an observe
// hook (spec §4.6's "start hook") fires before the original code at its
// offset continues, without suppressing it.
type replaceHook struct {
	name      string
	predicate func(mainOffset uint64) bool
	build     func() *cpu.Block
}

type observeHook struct {
	name      string
	predicate func(mainOffset uint64) bool
	fn        func(*cpu.Cpu2)
}

// Registry is the process-scoped, ordered hook list spec §4.6 describes:
// "On execute-cache miss, the list is queried top to bottom; the first
// predicate that matches wins." It implements cpu.HookProvider so a booted
// Process can use it directly as its Hooks field.
type Registry struct {
	replace []replaceHook
	observe []observeHook
}

func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterReplace appends a replace hook. Order matters: earlier
// registrations shadow later ones for the same offset.
func (r *Registry) RegisterReplace(name string, predicate func(mainOffset uint64) bool, build func() *cpu.Block) {
	r.replace = append(r.replace, replaceHook{name: name, predicate: predicate, build: build})
}

// RegisterObserve appends a start hook that fires on every dispatch to a
// matching offset, cache hit or miss (spec §4.6: "Observe hooks fire on
// every call even once the surrounding code is cached").
func (r *Registry) RegisterObserve(name string, predicate func(mainOffset uint64) bool, fn func(*cpu.Cpu2)) {
	r.observe = append(r.observe, observeHook{name: name, predicate: predicate, fn: fn})
}

// AtOffset is a convenience predicate builder for the common case of a hook
// that fires at exactly one main-offset.
func AtOffset(offset uint64) func(uint64) bool {
	return func(mainOffset uint64) bool { return mainOffset == offset }
}

// Replace implements cpu.HookProvider.
func (r *Registry) Replace(mainOffset uint64) (*cpu.Block, string, bool) {
	for _, h := range r.replace {
		if h.predicate(mainOffset) {
			return h.build(), h.name, true
		}
	}
	return nil, "", false
}

// Observe implements cpu.HookProvider.
func (r *Registry) Observe(mainOffset uint64) (func(*cpu.Cpu2), string, bool) {
	for _, h := range r.observe {
		if h.predicate(mainOffset) {
			return h.fn, h.name, true
		}
	}
	return nil, "", false
}

// Unregister removes every observe hook previously registered under name,
// the Go counterpart of events.rs's GameEventHook.unregister — a
// subscription is active only for the duration of one execute_subscribed
// call.
func (r *Registry) Unregister(name string) {
	kept := r.observe[:0]
	for _, h := range r.observe {
		if h.name != name {
			kept = append(kept, h)
		}
	}
	r.observe = kept
}
