package obsmetrics

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRecordersDoNotPanic(t *testing.T) {
	RecordExecutorJob(time.Millisecond)
	RecordWorkerReplaced()
	RecordBlockCacheLookup(true)
	RecordBlockCacheLookup(false)
	RecordProcessCrash()
	RecordRunCompleted("ok")
	RecordHTTPRequest("POST", "/runs", time.Millisecond)
	SetWSConnectionsActive(3)
}

func TestHandlerServesExposition(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("got status %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a non-empty exposition body")
	}
}
