package executor

import (
	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/process"
)

// RunProcess submits fn to the pool, moving proc into the job closure the
// way spec §4.9 describes ("The Process is moved into the job closure; on
// completion it is either discarded or returned to the runtime"). Go has
// no move semantics, so ownership transfer is by convention: the caller
// must not touch proc again until RunProcess returns it.
func RunProcess(p *Pool, proc *process.Process, fn func(proc *process.Process, cpu1 *cpu.Cpu1)) (*process.Process, error) {
	return Execute(p, func(cpu1 *cpu.Cpu1) *process.Process {
		fn(proc, cpu1)
		return proc
	})
}
