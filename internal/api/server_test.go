package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/magma/internal/api"
	"github.com/seantiz/magma/internal/metrics"
	"github.com/seantiz/magma/internal/model"
	"github.com/seantiz/magma/internal/store"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	runs []*model.Run
	err  error
}

func (f *fakeStore) InsertRun(_ context.Context, r *model.Run) error {
	f.runs = append(f.runs, r)
	return nil
}

func (f *fakeStore) GetRun(_ context.Context, _ string) (*model.Run, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListRuns(_ context.Context, limit, _ int) ([]*model.Run, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	if len(f.runs) > limit {
		return f.runs[:limit], len(f.runs), nil
	}
	return f.runs, len(f.runs), nil
}

func (f *fakeStore) Close() error { return nil }

func newTestServer(st store.Store) *api.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewServer(":0", st, logger, nil)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := api.NewServer(":0", &fakeStore{}, logger, metrics.NewHTTP(reg))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var requests float64
	for _, mf := range families {
		if mf.GetName() == "magma_http_requests_total" {
			for _, m := range mf.GetMetric() {
				requests += m.GetCounter().GetValue()
			}
		}
	}
	if requests != 1 {
		t.Errorf("magma_http_requests_total = %v, want 1", requests)
	}
}

func TestListRuns(t *testing.T) {
	now := time.Now().UTC()
	st := &fakeStore{runs: []*model.Run{
		{ID: model.NewID(), Stressor: "pthread", Status: model.StatusCompleted, Ops: 42, StartedAt: now},
		{ID: model.NewID(), Stressor: "devshm", Status: model.StatusCompleted, Ops: 7, StartedAt: now},
	}}
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Runs  []*model.Run `json:"runs"`
		Total int          `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 2 {
		t.Errorf("total = %d, want 2", body.Total)
	}
	if len(body.Runs) != 2 {
		t.Errorf("len(runs) = %d, want 2", len(body.Runs))
	}
}

func TestListRunsEmpty(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Runs []*model.Run `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Runs == nil {
		t.Error("runs = null, want empty array")
	}
}

func TestServerShutsDownOnContextCancel(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}
