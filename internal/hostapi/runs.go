package hostapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/executor"
	"github.com/hyrule-sim/pouchsim/internal/obsmetrics"
	"github.com/hyrule-sim/pouchsim/internal/script"
	"github.com/hyrule-sim/pouchsim/internal/sim"
)

// runResponse is the JSON envelope SPEC_FULL.md §6 specifies for
// POST /runs: `{run_id, states[], errors[], aborted}`. "warnings" from the
// same section has no producer anywhere in this pack (neither internal/sim
// nor internal/script ever distinguishes a warning from an error), so it's
// left out rather than always reporting an empty array that nothing fills.
type runResponse struct {
	RunID  uuid.UUID           `json:"run_id"`
	States []sim.StateSnapshot `json:"states"`
	Errors []string            `json:"errors"`
	Aborted bool               `json:"aborted"`
}

// handlePostRuns parses the request body as script text, boots a fresh
// game, and runs every parsed command against it on the executor pool,
// returning the full result once the run completes (SPEC_FULL.md §5.2:
// "synchronous for CLI/batch use").
func (s *Server) handlePostRuns(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cmds, err := script.Parse(string(body), s.Resolver)
	if err != nil {
		http.Error(w, "parsing script: "+err.Error(), http.StatusBadRequest)
		return
	}

	gs, err := s.Boot.NewGame(s.Ver)
	if err != nil {
		http.Error(w, "booting game: "+err.Error(), http.StatusInternalServerError)
		return
	}

	handle := sim.NewRunHandle()
	initial := sim.State{Game: sim.Game{State: gs}}

	start := time.Now()
	out, err := executor.Execute(s.Pool, func(_ *cpu.Cpu1) sim.RunOutput {
		return sim.RunParsed(handle, initial, cmds)
	})
	if err != nil {
		http.Error(w, "dispatching run: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	obsmetrics.RecordHTTPRequest(r.Method, "/runs", time.Since(start))

	aborted := handle.IsAborted()
	outcome := "ok"
	if aborted {
		outcome = "aborted"
	} else if len(out.Errors) > 0 {
		outcome = "error"
	}
	obsmetrics.RecordRunCompleted(outcome)

	s.store(handle.ID, out)

	resp := runResponse{
		RunID:   handle.ID,
		States:  out.States,
		Errors:  errStrings(out.Errors),
		Aborted: aborted,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleGetRun returns a previously completed run's stored result.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}
	rec, ok := s.lookup(id)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runResponse{
		RunID:  id,
		States: rec.output.States,
		Errors: errStrings(rec.output.Errors),
	})
}

func errStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
