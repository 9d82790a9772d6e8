package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	cfgpkg "github.com/cocuh/toyosatomimi/internal/config"
	"github.com/cocuh/toyosatomimi/internal/runtime"
	"github.com/cocuh/toyosatomimi/internal/server/http/controllers"
	"github.com/cocuh/toyosatomimi/internal/services/broker"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
)

func newTestServer(t *testing.T) (*Server, *broker.Service, context.CancelFunc) {
	t.Helper()
	dir := t.TempDir()
	rt, err := runtime.Open(runtime.Options{
		QueuePath: filepath.Join(dir, "queue.json"),
		DonePath:  filepath.Join(dir, "done.json"),
		Config:    cfgpkg.Default(),
	})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text", Output: "null"})
	svc := broker.NewWithLogger(rt, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-svc.Done()
		_ = rt.Close()
	})
	return New(svc, logger), svc, cancel
}

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, w.Body.String())
		}
	}
	return w.Code
}

func put(t *testing.T, svc *broker.Service, cmd string, job toyov1.Job) {
	t.Helper()
	r, err := svc.Exchange(context.Background(), &toyov1.Request{Command: cmd, Data: job})
	if err != nil || !r.OK() {
		t.Fatalf("%s: %+v %v", cmd, r, err)
	}
}

func TestHealthHandler(t *testing.T) {
	s, svc, stop := newTestServer(t)
	var h controllers.HealthResponse
	if code := get(t, s, "/v1/healthz", &h); code != http.StatusOK || h.Status != "ok" {
		t.Fatalf("status %d %+v", code, h)
	}
	stop()
	<-svc.Done()
	if code := get(t, s, "/v1/healthz", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("stopped broker status %d", code)
	}
}

func TestStatsHandler(t *testing.T) {
	s, svc, _ := newTestServer(t)
	put(t, svc, toyov1.CommandPut, toyov1.Job{"name": "a"})
	put(t, svc, toyov1.CommandDone, toyov1.Job{"name": "z"})
	var st broker.Stats
	if code := get(t, s, "/v1/stats", &st); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if st.QueueDepth != 1 || st.Completed != 1 || st.Puts != 1 || st.Dones != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestQueueAndCompletedViews(t *testing.T) {
	s, svc, _ := newTestServer(t)
	for _, w := range []int64{32, 64, 128} {
		put(t, svc, toyov1.CommandPut, toyov1.Job{"width": w})
	}
	put(t, svc, toyov1.CommandDone, toyov1.Job{"width": int64(1)})

	var all controllers.JobList
	if code := get(t, s, "/v1/queue", &all); code != http.StatusOK || all.Count != 3 {
		t.Fatalf("queue: %d %+v", code, all)
	}
	var wide controllers.JobList
	path := "/v1/queue?limit=1&filter=" + url.QueryEscape("job.width >= 64")
	if code := get(t, s, path, &wide); code != http.StatusOK {
		t.Fatalf("filtered status %d", code)
	}
	if wide.Count != 1 || !wide.Jobs[0].Equal(toyov1.Job{"width": int64(64)}) {
		t.Fatalf("filtered = %+v", wide)
	}
	var done controllers.JobList
	if code := get(t, s, "/v1/completed", &done); code != http.StatusOK || done.Count != 1 {
		t.Fatalf("completed: %d %+v", code, done)
	}
}

func TestInFlightView(t *testing.T) {
	s, svc, _ := newTestServer(t)
	put(t, svc, toyov1.CommandPut, toyov1.Job{"name": "a"})
	r, err := svc.Exchange(context.Background(), &toyov1.Request{Command: toyov1.CommandGet})
	if err != nil || !r.OK() {
		t.Fatalf("get: %+v %v", r, err)
	}
	var list controllers.DeliveryList
	if code := get(t, s, "/v1/inflight", &list); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if list.Count != 1 || list.Deliveries[0].ID != r.Delivery || list.Deliveries[0].DeliveredAtMs == 0 {
		t.Fatalf("inflight = %+v", list)
	}
}

func TestBadQueryIsRejected(t *testing.T) {
	s, _, _ := newTestServer(t)
	for _, path := range []string{
		"/v1/queue?filter=" + url.QueryEscape("job.width >"),
		"/v1/completed?limit=abc",
		"/v1/inflight?limit=-1",
	} {
		if code := get(t, s, path, nil); code != http.StatusBadRequest {
			t.Errorf("%s: status %d", path, code)
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	s, _, _ := newTestServer(t)
	if code := get(t, s, "/v1/nope", nil); code != http.StatusNotFound {
		t.Fatalf("unknown route status %d", code)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/queue", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status %d", w.Code)
	}
}
