// Package process implements the emulated process (spec.md §3/§4.6): the
// memory, proxy lists, and hook registry a run's CPU workers borrow for the
// duration of a call, and the unit of cloning and crash tracking between
// steps.
package process

import (
	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/obsmetrics"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/proxy"
)

// Process owns the Memory, the Proxies (host-side shadows, currently only
// TriggerParam), and a HookProvider, per spec.md §3. It is cheaply
// clonable (the memory and proxies clone COW-cheap; the hook registry is
// shared by reference, never copied) and is the unit of
// snapshotting and crash state.
//
// Process deliberately does not own a CPU or an execute cache: spec.md §5
// places the execute cache per-worker (internal/executor), not per-Process,
// so that a Process can move between workers across runs without carrying
// stale cached code for a CPU it's no longer paired with.
type Process struct {
	Mem    *memory.Memory
	Proxy  *proxy.Proxies
	Hooks  cpu.HookProvider
	Ver    program.GameVer
	Main   uint64 // main module's base virtual address (main_start)
	crash  *cpu.CrashReport
}

// New constructs a booted Process. Singleton bootstrap (internal/bootstrap)
// runs against a Process built this way before the first script step.
func New(mem *memory.Memory, proxies *proxy.Proxies, hooks cpu.HookProvider, ver program.GameVer, mainStart uint64) *Process {
	return &Process{Mem: mem, Proxy: proxies, Hooks: hooks, Ver: ver, Main: mainStart}
}

// NewReader and NewWriter satisfy cpu.MemoryView by delegating straight to
// the embedded Memory; Cpu2 never sees Process directly; it only ever
// borrows this interface for the lifetime of one native_jump.
func (p *Process) NewReader(addr uint64, want memory.Permission) (*memory.Reader, error) {
	return p.Mem.NewReader(addr, want)
}

func (p *Process) NewWriter(addr uint64, want memory.Permission) (*memory.Writer, error) {
	return p.Mem.NewWriter(addr, want)
}

// Clone duplicates a Process for a new worker/run: Memory and Proxy clone
// copy-on-write-cheap (region/page-table and flag-table duplication, no
// page-body or value copies until a write happens); Hooks is shared by
// reference, so hooks that internal/linker's Subscribe functions add during
// a call are visible to every clone until they are removed. A crashed Process clones as crashed too — a
// clone of a dead end is still a dead end, per spec §4.6's "subsequent
// steps short-circuit".
func (p *Process) Clone() *Process {
	return &Process{
		Mem:   p.Mem.Clone(),
		Proxy: p.Proxy.Clone(),
		Hooks: p.Hooks,
		Ver:   p.Ver,
		Main:  p.Main,
		crash: p.crash,
	}
}

// Crash flips the Process into its Crashed variant. Per spec §4.6/§7, a
// crash is sticky: once set, IsCrashed reports true until a fresh Process
// (e.g. from a prior snapshot) replaces this one.
func (p *Process) Crash(report *cpu.CrashReport) { p.crash = report }

// Crashed reports the Process's crash state, if any.
func (p *Process) Crashed() (*cpu.CrashReport, bool) { return p.crash, p.crash != nil }

// Bind attaches cpu1 (a worker-owned, warm-cached Level 1 CPU) to this
// Process for the duration of one native_jump, returning the Level 2 CPU
// the linker drives the call through. cpu1 is never retained by Process;
// the caller (internal/executor's worker loop) owns it before and after
// the call.
func (p *Process) Bind(cpu1 *cpu.Cpu1, limits cpu.Limits) *cpu.Cpu2 {
	return &cpu.Cpu2{
		Cpu1:      cpu1,
		Mem:       p,
		Hooks:     p.Hooks,
		MainStart: p.Main,
		Limits:    limits,
	}
}

// Call runs fn's native_jump to completion, aggregating any CPU error into
// a CrashReport (capturing the stack trace recorded on cpu1) and crashing
// the Process on failure, per spec §4.6's "Linker calls propagate CPU
// errors ... to the runtime. A crash turns the Process into the
// Crashed(report) variant." Already-crashed Processes short-circuit
// without touching the CPU.
func (p *Process) Call(cpu1 *cpu.Cpu1, limits cpu.Limits, target uint64) error {
	_, err := p.CallBound(cpu1, limits, target, nil)
	return err
}

// CallBound is Call's more general form: setup, if non-nil, runs against
// the bound Cpu2 (to marshal argument registers) before native_jump, and
// the bound Cpu2 is returned on success so the caller can read back result
// registers — this is what internal/linker's typed entry points are built
// from, since they need to both write x0.. before the call and read x0
// (or s0/d0) after it.
func (p *Process) CallBound(cpu1 *cpu.Cpu1, limits cpu.Limits, target uint64, setup func(*cpu.Cpu2)) (*cpu.Cpu2, error) {
	if report, crashed := p.Crashed(); crashed {
		return nil, report
	}
	c2 := p.Bind(cpu1, limits)
	if setup != nil {
		setup(c2)
	}
	if err := c2.NativeJump(target); err != nil {
		report := &cpu.CrashReport{Err: err, PC: c2.Regs.PC, Trace: c2.Trace.Snapshot()}
		p.Crash(report)
		obsmetrics.RecordProcessCrash()
		return nil, report
	}
	return c2, nil
}
