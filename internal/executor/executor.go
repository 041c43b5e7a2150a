// Package executor implements the off-thread CPU job pool (spec.md §4.9):
// a non-work-stealing, fixed-size pool of CPU-owning worker goroutines,
// each bound at spawn to a dedicated cpu.Cpu1 so its per-version execute
// cache stays warm across jobs. Submission is round-robin by an atomic
// counter; a worker found dead (its job channel closed) is replaced and
// the job is retried once on the replacement, mirroring the teacher's own
// pthread-stub bookkeeping idiom applied to goroutines instead of threads.
package executor

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/obslog"
	"github.com/hyrule-sim/pouchsim/internal/obsmetrics"
)

// ErrEmptyPool is returned when Execute is called on a pool with no
// workers (spec §4.9's "the executor" assumes ensure_threads ran first).
var ErrEmptyPool = errors.New("executor: pool has no workers")

// ErrWorkerUnavailable is returned when a job could not be delivered even
// after replacing the worker it was routed to.
var ErrWorkerUnavailable = errors.New("executor: worker unavailable after replacement")

type job func(cpu1 *cpu.Cpu1)

// worker owns one dedicated Cpu1 and a small job queue; it runs until its
// job channel is closed.
type worker struct {
	id   int
	jobs chan job
}

func spawnWorker(id int, log *obslog.Logger, replaced bool) *worker {
	w := &worker{id: id, jobs: make(chan job, 1)}
	if log != nil {
		log.WorkerSpawned(id, replaced)
	}
	go w.run(log)
	return w
}

func (w *worker) run(log *obslog.Logger) {
	cpu1 := cpu.NewCpu1()
	for j := range w.jobs {
		runJobSafely(w.id, cpu1, j, log)
	}
}

func runJobSafely(id int, cpu1 *cpu.Cpu1, j job, log *obslog.Logger) {
	defer func() {
		if r := recover(); r != nil && log != nil {
			log.WorkerPanic(id, r)
		}
	}()
	j(cpu1)
}

// trySend delivers j to w, reporting false instead of panicking if w's
// job channel has already been closed (the Go equivalent of the reference
// executor's "send failed, the thread must be dead" signal).
func (w *worker) trySend(j job) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	w.jobs <- j
	return true
}

// Pool is a fixed-size, round-robin pool of workers (spec §4.9).
type Pool struct {
	mu      sync.Mutex
	workers []*worker
	serial  atomic.Uint64
	log     *obslog.Logger
}

// New creates a pool and immediately spawns size workers.
func New(size int, log *obslog.Logger) *Pool {
	p := &Pool{log: log}
	p.EnsureWorkers(size)
	return p
}

// EnsureWorkers spawns workers until the pool has at least size of them;
// it never shrinks an existing pool (spec §4.9's ensure_threads).
func (p *Pool) EnsureWorkers(size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.workers) < size {
		p.workers = append(p.workers, spawnWorker(len(p.workers), p.log, false))
	}
}

// Size reports the current worker count.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Shutdown closes every worker's job channel, ending its goroutine once
// its queue drains. The pool must not be used after Shutdown returns.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		close(w.jobs)
	}
	p.workers = nil
}

func (p *Pool) pick() (*worker, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.workers)
	if n == 0 {
		return nil, 0, false
	}
	i := int(p.serial.Add(1)-1) % n
	return p.workers[i], i, true
}

func (p *Pool) replace(i int) (*worker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.workers) {
		return nil, false
	}
	w := spawnWorker(i, p.log, true)
	p.workers[i] = w
	obsmetrics.RecordWorkerReplaced()
	return w, true
}

// Execute runs f against the next worker's dedicated Cpu1 in round-robin
// order and returns its result. If the chosen worker's job channel turns
// out to be closed (dead), the worker is replaced and the job retried once
// on the replacement before giving up (spec §4.9: "the pool replaces the
// worker and returns the error to the caller" on a second failure).
func Execute[T any](p *Pool, f func(cpu1 *cpu.Cpu1) T) (T, error) {
	var zero T
	w, i, ok := p.pick()
	if !ok {
		return zero, ErrEmptyPool
	}
	for attempt := 0; attempt < 2; attempt++ {
		resultCh := make(chan T, 1)
		// The recover lives here, not just in the worker loop: a job that
		// panics must still send something to resultCh, or Execute's
		// caller blocks on <-resultCh forever.
		wrapped := func(cpu1 *cpu.Cpu1) {
			start := time.Now()
			defer func() {
				obsmetrics.RecordExecutorJob(time.Since(start))
				if r := recover(); r != nil {
					if p.log != nil {
						p.log.WorkerPanic(i, r)
					}
					resultCh <- zero
				}
			}()
			resultCh <- f(cpu1)
		}
		if w.trySend(wrapped) {
			return <-resultCh, nil
		}
		if w, ok = p.replace(i); !ok {
			break
		}
	}
	return zero, ErrWorkerUnavailable
}
