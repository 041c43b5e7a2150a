// Package hostapi is the ambient REST/websocket front end spec.md §6 calls
// "a host presents the runtime via an API" (SPEC_FULL.md §5.2). It is
// infrastructure around the core: internal/sim never imports this package.
package hostapi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hyrule-sim/pouchsim/internal/executor"
	"github.com/hyrule-sim/pouchsim/internal/obslog"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/script"
	"github.com/hyrule-sim/pouchsim/internal/sim"
)

// Bootstrapper produces a fresh, ready-to-run game for a run request. A
// real implementation replays internal/bootstrap's singleton sequences
// against a freshly loaded internal/program image; no program image ships
// in this retrieval pack, so this stays a named, swappable collaborator —
// the same seam internal/script.ItemResolver is for fuzzy name search.
type Bootstrapper interface {
	NewGame(ver program.GameVer) (*sim.GameState, error)
}

// runRecord is one completed run's stored result, kept in memory so a
// later GET /runs/{id}/ws can stream it back step by step.
type runRecord struct {
	output sim.RunOutput
}

// Server holds everything the HTTP handlers need: the executor pool a run
// is dispatched through, the Bootstrapper that builds a fresh game, the
// script item resolver, and the in-memory run store.
type Server struct {
	Pool     *executor.Pool
	Boot     Bootstrapper
	Resolver script.ItemResolver
	Ver      program.GameVer
	Log      *obslog.Logger

	mu      sync.Mutex
	runs    map[uuid.UUID]*runRecord
	limiter *connLimiter
}

// NewServer wires a Server around an already-running executor pool.
func NewServer(pool *executor.Pool, boot Bootstrapper, ver program.GameVer, log *obslog.Logger) *Server {
	if log == nil {
		log = obslog.NewNop()
	}
	return &Server{
		Pool:     pool,
		Boot:     boot,
		Resolver: script.LiteralResolver{},
		Ver:      ver,
		Log:      log,
		runs:     make(map[uuid.UUID]*runRecord),
	}
}

func (s *Server) store(id uuid.UUID, out sim.RunOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = &runRecord{output: out}
}

func (s *Server) lookup(id uuid.UUID) (*runRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	return rec, ok
}
