package hostapi

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hyrule-sim/pouchsim/internal/obsmetrics"
)

// MaxWSConnectionsTotal and MaxWSConnectionsPerIP bound the run-stream
// websocket the same way the retrieval pack's websocket hub bounds its own
// connections — a fixed total cap plus a per-IP cap, checked before the
// upgrade.
const (
	MaxWSConnectionsTotal = 500
	MaxWSConnectionsPerIP = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// connLimiter tracks total and per-IP open connection counts. The
// reference hub keys its limiter off live broadcast subscribers; this one
// guards the same resource (one goroutine + one websocket per connection)
// even though each connection here replays its own stored run rather than
// sharing a single broadcast channel.
type connLimiter struct {
	mu    sync.Mutex
	total int
	byIP  map[string]int
}

func newConnLimiter() *connLimiter {
	return &connLimiter{byIP: make(map[string]int)}
}

func (l *connLimiter) tryAcquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total >= MaxWSConnectionsTotal {
		return false
	}
	if l.byIP[ip] >= MaxWSConnectionsPerIP {
		return false
	}
	l.total++
	l.byIP[ip]++
	return true
}

func (l *connLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total--
	l.byIP[ip]--
	if l.byIP[ip] <= 0 {
		delete(l.byIP, ip)
	}
	obsmetrics.SetWSConnectionsActive(l.total)
}

// handleRunWebSocket upgrades to a websocket and streams one JSON
// StateSnapshot message per step of an already-completed run
// (SPEC_FULL.md §5.2), letting a connected front end render the run
// incrementally instead of consuming the whole POST /runs response at
// once. The run must already have finished — POST /runs is synchronous
// (SPEC_FULL.md §5.2), so there is never a genuinely in-flight run to
// subscribe to; this endpoint is a paced replay of a stored result, not a
// live feed.
func (s *Server) handleRunWebSocket(w http.ResponseWriter, r *http.Request) {
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

	ip := clientIP(r)
	if !s.wsLimiter().tryAcquire(ip) {
		http.Error(w, "too many websocket connections", http.StatusTooManyRequests)
		return
	}
	defer s.wsLimiter().release(ip)
	obsmetrics.SetWSConnectionsActive(s.wsLimiter().total)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Sugar().Warnf("hostapi: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for _, snap := range rec.output.States {
		msg, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// wsLimiter lazily creates the server's connection limiter on first use.
func (s *Server) wsLimiter() *connLimiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limiter == nil {
		s.limiter = newConnLimiter()
	}
	return s.limiter
}
