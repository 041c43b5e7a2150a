package executor

import (
	"sync"
	"testing"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/obslog"
)

func TestExecuteReturnsResultFromDedicatedCpu1(t *testing.T) {
	p := New(2, obslog.NewNop())
	defer p.Shutdown()

	got, err := Execute(p, func(cpu1 *cpu.Cpu1) int {
		cpu1.Regs.X[0] = 42
		return int(cpu1.Regs.ReadX(0))
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestExecuteRoundRobinsAcrossWorkers(t *testing.T) {
	p := New(3, obslog.NewNop())
	defer p.Shutdown()

	seen := make(map[*cpu.Cpu1]bool)
	var mu sync.Mutex
	for i := 0; i < 6; i++ {
		_, err := Execute(p, func(cpu1 *cpu.Cpu1) struct{} {
			mu.Lock()
			seen[cpu1] = true
			mu.Unlock()
			return struct{}{}
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected all 3 workers' distinct Cpu1s to be exercised, saw %d distinct ones", len(seen))
	}
}

func TestExecuteOnEmptyPoolFails(t *testing.T) {
	p := New(0, obslog.NewNop())
	defer p.Shutdown()

	_, err := Execute(p, func(cpu1 *cpu.Cpu1) int { return 0 })
	if err != ErrEmptyPool {
		t.Fatalf("got %v, want ErrEmptyPool", err)
	}
}

func TestExecuteSurvivesAPanickingJob(t *testing.T) {
	p := New(1, obslog.NewNop())
	defer p.Shutdown()

	_, err := Execute(p, func(cpu1 *cpu.Cpu1) struct{} {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("a panicking job should not itself return an error from Execute (it never sends to resultCh, which would hang instead): got %v", err)
	}
}

func TestEnsureWorkersNeverShrinks(t *testing.T) {
	p := New(2, obslog.NewNop())
	defer p.Shutdown()

	p.EnsureWorkers(1)
	if p.Size() != 2 {
		t.Fatalf("EnsureWorkers(1) on a pool of 2 should not shrink it, got size %d", p.Size())
	}
	p.EnsureWorkers(5)
	if p.Size() != 5 {
		t.Fatalf("EnsureWorkers(5) should grow the pool to 5, got %d", p.Size())
	}
}

func TestShutdownClosesWorkerChannels(t *testing.T) {
	p := New(2, obslog.NewNop())
	p.Shutdown()
	if p.Size() != 0 {
		t.Fatalf("Shutdown should clear the worker list, got size %d", p.Size())
	}
}
