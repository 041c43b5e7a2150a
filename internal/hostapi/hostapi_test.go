package hostapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/executor"
	"github.com/hyrule-sim/pouchsim/internal/linker"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/obslog"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/program"
	"github.com/hyrule-sim/pouchsim/internal/proxy"
	"github.com/hyrule-sim/pouchsim/internal/ptr"
	"github.com/hyrule-sim/pouchsim/internal/sim"
)

const retInsn = 0xd65f03c0

func u32le(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

// fakeBootstrapper builds a minimal, self-contained process with two
// independent `ret` entry points (cannot_get_item, get_item), the same
// shape internal/sim's own tests use — a stand-in for a real program-image
// boot, which this retrieval pack has no grounding material for.
type fakeBootstrapper struct {
	reg *linker.Registry
}

func newFakeBootstrapper() *fakeBootstrapper {
	return &fakeBootstrapper{reg: linker.NewRegistry()}
}

func (b *fakeBootstrapper) NewGame(ver program.GameVer) (*sim.GameState, error) {
	const base = 0x20000
	code := append(u32le(retInsn), u32le(retInsn)...)
	region, err := memory.NewProgramRegion("main", base, uint64(len(code)),
		memory.PermRead|memory.PermExecute, []memory.ProgramSegment{{RelStart: 0, Data: code}})
	if err != nil {
		return nil, err
	}
	heap := memory.NewHeap(0x1000000, 0x10000, 0)
	mem := memory.NewMemory(memory.DefaultFlags(), heap, region)
	proc := process.New(mem, proxy.New(), b.reg, ver, base)

	offsets := linker.NewOffsets()
	offsets.Set(linker.EntryCannotGetItem, ver, 0)
	offsets.Set(linker.EntryGetItem, ver, 4)
	ep := linker.NewEntryPoints(offsets)

	return sim.NewGameState(proc, cpu.NewCpu1(), cpu.Limits{MaxBlocksPerCall: 16}, ep, ptr.Layout{}, 0), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	pool := executor.New(2, obslog.NewNop())
	t.Cleanup(pool.Shutdown)
	return NewServer(pool, newFakeBootstrapper(), program.Ver150, obslog.NewNop())
}

func TestPostRunsReturnsEnvelope(t *testing.T) {
	s := newTestServer(t)
	router := NewRouter(s)

	req := httptest.NewRequest("POST", "/runs", strings.NewReader("get 1 apple"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp runResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RunID == uuid.Nil {
		t.Fatal("expected a non-empty run id")
	}
	if len(resp.States) != 1 {
		t.Fatalf("got %d states, want 1", len(resp.States))
	}
}

func TestPostRunsRejectsBadScript(t *testing.T) {
	s := newTestServer(t)
	router := NewRouter(s)

	// A bare amount with no item name after it is a parse error, not a
	// valid zero-command script.
	req := httptest.NewRequest("POST", "/runs", strings.NewReader("get 5"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("got status %d for a malformed script, want 400", rec.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t)
	router := NewRouter(s)

	req := httptest.NewRequest("GET", "/runs/00000000-0000-0000-0000-000000000000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != 404 {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestGetRunReturnsStoredResult(t *testing.T) {
	s := newTestServer(t)
	router := NewRouter(s)

	postReq := httptest.NewRequest("POST", "/runs", strings.NewReader("get 1 apple"))
	postRec := httptest.NewRecorder()
	router.ServeHTTP(postRec, postReq)
	var posted runResponse
	if err := json.Unmarshal(postRec.Body.Bytes(), &posted); err != nil {
		t.Fatal(err)
	}

	getReq := httptest.NewRequest("GET", "/runs/"+posted.RunID.String(), nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != 200 {
		t.Fatalf("got status %d", getRec.Code)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	s := newTestServer(t)
	router := NewRouter(s)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("got status %d", rec.Code)
	}
}
