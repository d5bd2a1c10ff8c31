package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"upmon/internal/checks"
	"upmon/internal/config"
	"upmon/internal/core"
	"upmon/internal/history"
	"upmon/internal/metrics"
	"upmon/internal/storage"
)

type testEnv struct {
	server *Server
	store  *storage.Store
	engine *core.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "api.db")
	cfg.Probes.Website.Timeout = 5 * time.Second

	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	engine := core.NewEngine(cfg.Scheduler, store, checks.NewManager(cfg.Probes), core.WithMetrics(m))

	server := NewServer(cfg.Server, Dependencies{
		Store:    store,
		Engine:   engine,
		History:  history.NewAggregator(store, cfg.History),
		Gatherer: registry,
		Version:  "test",
	})
	return &testEnv{server: server, store: store, engine: engine}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
	Pagination *struct {
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"pagination"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("Failed to decode data %s: %v", raw, err)
	}
	return v
}

func (e *testEnv) createProject(t *testing.T) int64 {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"label": "web", "tags": []string{"prod"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating project, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data).ID
}

func (e *testEnv) createWebsiteMonitor(t *testing.T, projectID int64, url string) int64 {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/monitors", projectID), map[string]any{
		"label":        "homepage",
		"periodicity":  60,
		"type":         "website",
		"url":          url,
		"check_status": true,
		"keywords":     []string{"welcome"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating monitor, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data).ID
}

func TestPingAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/api/ping", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from ping, got %d", rec.Code)
	}
	if id := rec.Header().Get(RequestIDHeader); id == "" {
		t.Error("Expected request ID header to be set")
	}

	rec, resp := env.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while engine is stopped, got %d", rec.Code)
	}
	health := decode[struct {
		Status string `json:"status"`
	}](t, resp.Data)
	if health.Status != "degraded" {
		t.Errorf("Expected degraded, got %s", health.Status)
	}

	if err := env.engine.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start engine: %v", err)
	}
	defer env.engine.Stop()

	rec, _ = env.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with engine running, got %d", rec.Code)
	}
}

func TestRequestIDIsReused(t *testing.T) {
	env := newTestEnv(t)
	const id = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != id {
		t.Errorf("Expected request ID %s, got %s", id, got)
	}
}

func TestPanicRecovery(t *testing.T) {
	env := newTestEnv(t)
	env.server.router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec, resp := env.do(t, http.MethodGet, "/boom", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("Expected internal error envelope, got %+v", resp)
	}
}

func TestProjectsCRUD(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t)

	t.Run("get", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", id), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		project := decode[struct {
			Label string   `json:"label"`
			Tags  []string `json:"tags"`
		}](t, resp.Data)
		if project.Label != "web" || len(project.Tags) != 1 {
			t.Errorf("Unexpected project %+v", project)
		}
	})

	t.Run("update", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/projects/%d", id), map[string]any{"description": "public site"})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		project := decode[struct {
			Label       string `json:"label"`
			Description string `json:"description"`
		}](t, resp.Data)
		if project.Label != "web" || project.Description != "public site" {
			t.Errorf("Unexpected project %+v", project)
		}
	})

	t.Run("empty patch", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/projects/%d", id), map[string]any{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, "/api/v1/projects", nil)
		projects := decode[[]json.RawMessage](t, resp.Data)
		if len(projects) != 1 {
			t.Errorf("Expected 1 project, got %d", len(projects))
		}
	})

	t.Run("missing label", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"description": "x"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("Expected validation error, got %+v", resp.Error)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodGet, "/api/v1/projects/abc", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d", id), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		rec, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", id), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404 after delete, got %d", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
			t.Errorf("Expected not found error, got %+v", resp.Error)
		}
	})
}

func TestMonitorValidation(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.createProject(t)
	path := fmt.Sprintf("/api/v1/projects/%d/monitors", projectID)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing type", map[string]any{"label": "a", "periodicity": 60}},
		{"unknown type", map[string]any{"label": "a", "periodicity": 60, "type": "dns"}},
		{"periodicity too small", map[string]any{"label": "a", "periodicity": 4, "type": "ping", "host": "example.com", "port": 80}},
		{"periodicity too large", map[string]any{"label": "a", "periodicity": 301, "type": "ping", "host": "example.com", "port": 80}},
		{"bad port", map[string]any{"label": "a", "periodicity": 60, "type": "ping", "host": "example.com", "port": 70000}},
		{"bad url", map[string]any{"label": "a", "periodicity": 60, "type": "website", "url": "ftp://example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.do(t, http.MethodPost, path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("unknown project", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodPost, "/api/v1/projects/999/monitors", map[string]any{
			"label": "a", "periodicity": 60, "type": "ping", "host": "example.com", "port": 80,
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

func TestMonitorLifecycle(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "welcome home")
	}))
	defer target.Close()

	env := newTestEnv(t)
	projectID := env.createProject(t)
	monitorID := env.createWebsiteMonitor(t, projectID, target.URL)
	monitorPath := fmt.Sprintf("/api/v1/monitors/%d", monitorID)

	t.Run("type cannot change", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodPatch, monitorPath, map[string]any{"type": "ping"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("patch periodicity", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodPatch, monitorPath, map[string]any{"periodicity": 120})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		m := decode[struct {
			Periodicity int    `json:"periodicity"`
			URL         string `json:"url"`
		}](t, resp.Data)
		if m.Periodicity != 120 || m.URL != target.URL {
			t.Errorf("Unexpected monitor %+v", m)
		}
	})

	t.Run("check", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodPost, monitorPath+"/check", nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		status := decode[storage.MonitorStatus](t, resp.Data)
		if !status.Up || status.ID == 0 || status.MonitorID != monitorID {
			t.Errorf("Unexpected status %+v", status)
		}
	})

	t.Run("get includes latest status", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, monitorPath, nil)
		m := decode[struct {
			LastStatus *storage.MonitorStatus `json:"last_status"`
		}](t, resp.Data)
		if m.LastStatus == nil || !m.LastStatus.Up {
			t.Errorf("Expected latest up status, got %+v", m.LastStatus)
		}
	})

	t.Run("statuses", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodGet, monitorPath+"/statuses?limit=10", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		items := decode[[]storage.MonitorStatus](t, resp.Data)
		if len(items) != 1 {
			t.Errorf("Expected 1 status, got %d", len(items))
		}
		if resp.Pagination == nil || resp.Pagination.Total != 1 || resp.Pagination.PageSize != 10 {
			t.Errorf("Unexpected pagination %+v", resp.Pagination)
		}
	})

	t.Run("statuses down only", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, monitorPath+"/statuses?status=down", nil)
		if items := decode[[]storage.MonitorStatus](t, resp.Data); len(items) != 0 {
			t.Errorf("Expected no down statuses, got %d", len(items))
		}
	})

	t.Run("statuses bad filter", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodGet, monitorPath+"/statuses?status=sideways", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("calendar", func(t *testing.T) {
		today := time.Now().UTC().Format(time.DateOnly)
		rec, resp := env.do(t, http.MethodGet, monitorPath+"/calendar?start="+today+"&end="+today, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		days := decode[[]history.DaySummary](t, resp.Data)
		if len(days) != 1 || days[0].Total != 1 || days[0].Status != history.DaySuccess {
			t.Errorf("Unexpected calendar %+v", days)
		}
	})

	t.Run("calendar default range", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, monitorPath+"/calendar", nil)
		if days := decode[[]history.DaySummary](t, resp.Data); len(days) != 30 {
			t.Errorf("Expected 30 days, got %d", len(days))
		}
	})

	t.Run("calendar bad date", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodGet, monitorPath+"/calendar?start=yesterday", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("graph", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, monitorPath+"/graph?limit=5", nil)
		if points := decode[[]history.GraphPoint](t, resp.Data); len(points) != 1 {
			t.Errorf("Expected 1 point, got %d", len(points))
		}
	})

	t.Run("list by project", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/monitors?type=website", projectID), nil)
		if monitors := decode[[]json.RawMessage](t, resp.Data); len(monitors) != 1 {
			t.Errorf("Expected 1 monitor, got %d", len(monitors))
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodDelete, monitorPath, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		for _, path := range []string{monitorPath, monitorPath + "/statuses", monitorPath + "/calendar"} {
			if rec, _ := env.do(t, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
				t.Errorf("Expected 404 for %s, got %d", path, rec.Code)
			}
		}
		if rec, _ := env.do(t, http.MethodPost, monitorPath+"/check", nil); rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404 checking a deleted monitor, got %d", rec.Code)
		}
	})
}

func TestDateOnlyRangeCoversWholeDay(t *testing.T) {
	env := newTestEnv(t)
	monitorID := env.createWebsiteMonitor(t, env.createProject(t), "https://example.com")
	monitorPath := fmt.Sprintf("/api/v1/monitors/%d", monitorID)

	for _, at := range []time.Time{
		time.Date(2024, 3, 9, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 23, 59, 59, 999e6, time.UTC),
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	} {
		status := &storage.MonitorStatus{MonitorID: monitorID, StartTime: at, Up: true, ResponseTime: 20}
		if _, err := env.store.InsertStatus(context.Background(), status); err != nil {
			t.Fatalf("Failed to seed status: %v", err)
		}
	}

	t.Run("statuses", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodGet, monitorPath+"/statuses?from=2024-03-10&to=2024-03-10", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if items := decode[[]storage.MonitorStatus](t, resp.Data); len(items) != 3 {
			t.Errorf("Expected 3 statuses on 2024-03-10, got %d", len(items))
		}
		if resp.Pagination == nil || resp.Pagination.Total != 3 {
			t.Errorf("Expected total 3, got %+v", resp.Pagination)
		}
	})

	t.Run("graph", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, monitorPath+"/graph?from=2024-03-10&to=2024-03-10", nil)
		points := decode[[]history.GraphPoint](t, resp.Data)
		if len(points) != 3 {
			t.Fatalf("Expected 3 points on 2024-03-10, got %d", len(points))
		}
		if !points[1].Time.Equal(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("Expected noon point in the middle, got %v", points[1].Time)
		}
	})

	t.Run("timestamp bound stays exact", func(t *testing.T) {
		_, resp := env.do(t, http.MethodGet, monitorPath+"/statuses?from=2024-03-10&to=2024-03-10T12:00:00Z", nil)
		if items := decode[[]storage.MonitorStatus](t, resp.Data); len(items) != 2 {
			t.Errorf("Expected 2 statuses up to noon, got %d", len(items))
		}
	})
}

func TestCheckInFlight(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		fmt.Fprint(w, "welcome")
	}))
	defer target.Close()
	defer close(release)

	env := newTestEnv(t)
	monitorID := env.createWebsiteMonitor(t, env.createProject(t), target.URL)
	path := fmt.Sprintf("/api/v1/monitors/%d/check", monitorID)

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		done <- rec.Code
	}()

	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	rec, resp := env.do(t, http.MethodPost, path, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "CONFLICT" {
		t.Errorf("Expected conflict error, got %+v", resp.Error)
	}

	release <- struct{}{}
	if code := <-done; code != http.StatusCreated {
		t.Errorf("Expected first check to finish with 201, got %d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upmon_pass_due_monitors") {
		t.Error("Expected upmon metrics in output")
	}
}
