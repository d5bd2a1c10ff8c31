package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"upmon/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(context.Background(), config.StorageConfig{
		Path:            filepath.Join(t.TempDir(), "upmon.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedMonitor(t *testing.T, store *Store, in MonitorInput) *Monitor {
	t.Helper()
	ctx := context.Background()

	if in.ProjectID == 0 {
		p, err := NewProject(ProjectInput{Label: "default"})
		if err != nil {
			t.Fatalf("NewProject: %v", err)
		}
		if err := store.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
		in.ProjectID = p.ID
	}

	m, err := NewMonitor(in)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	if err := store.CreateMonitor(ctx, m); err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}
	return m
}

func insertStatuses(t *testing.T, store *Store, monitorID int64, base time.Time, ups ...bool) {
	t.Helper()
	for i, up := range ups {
		_, err := store.InsertStatus(context.Background(), &MonitorStatus{
			MonitorID:    monitorID,
			StartTime:    base.Add(time.Duration(i) * time.Minute),
			Up:           up,
			ResponseTime: int64(10 * (i + 1)),
		})
		if err != nil {
			t.Fatalf("InsertStatus: %v", err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	applied, err := store.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if applied != 0 {
		t.Errorf("Expected no pending migrations on second run, applied %d", applied)
	}

	records, pending, err := store.MigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("MigrationStatus: %v", err)
	}
	if len(records) != 3 || len(pending) != 0 {
		t.Errorf("Expected 3 applied and 0 pending migrations, got %d and %d", len(records), len(pending))
	}
	for i, record := range records {
		if record.Version != i+1 {
			t.Errorf("Expected version %d at position %d, got %d", i+1, i, record.Version)
		}
	}
}

func TestMonitorRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		in := pingInput()
		in.ProjectID = 0
		created := seedMonitor(t, store, in)

		got, err := store.FindMonitor(ctx, created.ID)
		if err != nil {
			t.Fatalf("FindMonitor: %v", err)
		}
		target, ok := got.Target.(PingTarget)
		if !ok {
			t.Fatalf("Expected PingTarget, got %T", got.Target)
		}
		if target.Host != "db.internal" || target.Port != 5432 {
			t.Errorf("unexpected target: %+v", target)
		}
		if got.Periodicity != 30 || got.Label != "db" {
			t.Errorf("unexpected monitor: %+v", got)
		}
	})

	t.Run("website", func(t *testing.T) {
		in := websiteInput()
		in.ProjectID = 0
		created := seedMonitor(t, store, in)

		got, err := store.FindMonitor(ctx, created.ID)
		if err != nil {
			t.Fatalf("FindMonitor: %v", err)
		}
		target, ok := got.Target.(WebsiteTarget)
		if !ok {
			t.Fatalf("Expected WebsiteTarget, got %T", got.Target)
		}
		if target.URL != "https://example.com" || !target.CheckStatus {
			t.Errorf("unexpected target: %+v", target)
		}
		if len(target.Keywords) != 2 || target.Keywords[0] != "Welcome" {
			t.Errorf("unexpected keywords: %v", target.Keywords)
		}
	})

	t.Run("missing monitor", func(t *testing.T) {
		if _, err := store.FindMonitor(ctx, 9999); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		in := pingInput()
		in.ProjectID = 9999
		m, err := NewMonitor(in)
		if err != nil {
			t.Fatalf("NewMonitor: %v", err)
		}
		if err := store.CreateMonitor(ctx, m); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown project, got %v", err)
		}
	})
}

func TestFindAllMonitorsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := pingInput()
	in.ProjectID = 0
	ping := seedMonitor(t, store, in)

	web := websiteInput()
	web.ProjectID = ping.ProjectID
	seedMonitor(t, store, web)

	all, err := store.FindAllMonitors(ctx, MonitorFilter{})
	if err != nil {
		t.Fatalf("FindAllMonitors: %v", err)
	}
	if len(all) != 2 || all[0].ID >= all[1].ID {
		t.Fatalf("Expected 2 monitors in id order, got %+v", all)
	}

	typ := MonitorTypeWebsite
	websites, err := store.FindAllMonitors(ctx, MonitorFilter{Type: &typ})
	if err != nil {
		t.Fatalf("FindAllMonitors: %v", err)
	}
	if len(websites) != 1 || websites[0].Type() != MonitorTypeWebsite {
		t.Errorf("Expected one website monitor, got %+v", websites)
	}

	other := int64(9999)
	none, err := store.FindAllMonitors(ctx, MonitorFilter{ProjectID: &other})
	if err != nil {
		t.Fatalf("FindAllMonitors: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no monitors for unknown project, got %d", len(none))
	}
}

func TestUpdateMonitor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := pingInput()
	in.ProjectID = 0
	m := seedMonitor(t, store, in)

	host := "db2.internal"
	periodicity := 120
	updated, err := m.Apply(MonitorPatch{Host: &host, Periodicity: &periodicity})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := store.UpdateMonitor(ctx, updated); err != nil {
		t.Fatalf("UpdateMonitor: %v", err)
	}

	got, err := store.FindMonitor(ctx, m.ID)
	if err != nil {
		t.Fatalf("FindMonitor: %v", err)
	}
	if got.Periodicity != 120 || got.Target.(PingTarget).Host != "db2.internal" {
		t.Errorf("Update not persisted: %+v", got)
	}

	updated.ID = 9999
	if err := store.UpdateMonitor(ctx, updated); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLatestStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := pingInput()
	in.ProjectID = 0
	m := seedMonitor(t, store, in)

	latest, err := store.LatestStatus(ctx, m.ID)
	if err != nil {
		t.Fatalf("LatestStatus: %v", err)
	}
	if latest != nil {
		t.Fatalf("Expected nil status for unchecked monitor, got %+v", latest)
	}

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	insertStatuses(t, store, m.ID, base, true, false, true)

	latest, err = store.LatestStatus(ctx, m.ID)
	if err != nil {
		t.Fatalf("LatestStatus: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected a status")
	}
	want := base.Add(2 * time.Minute)
	if !latest.StartTime.Equal(want) {
		t.Errorf("Expected start time %v, got %v", want, latest.StartTime)
	}
	if latest.StartTime.Location() != time.UTC {
		t.Errorf("Expected UTC start time, got %v", latest.StartTime.Location())
	}
	if !latest.Up || latest.ResponseTime != 30 {
		t.Errorf("unexpected latest status: %+v", latest)
	}
}

func TestStatusHistoryQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := pingInput()
	in.ProjectID = 0
	m := seedMonitor(t, store, in)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// minutes 0..5: up, down, up, up, down, up
	insertStatuses(t, store, m.ID, base, true, false, true, true, false, true)

	t.Run("newest first with paging", func(t *testing.T) {
		q := StatusQuery{MonitorID: m.ID, Page: 2, Limit: 4}
		rows, err := store.QueryStatusHistory(ctx, q)
		if err != nil {
			t.Fatalf("QueryStatusHistory: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("Expected 2 rows on page 2, got %d", len(rows))
		}
		if !rows[0].StartTime.Equal(base.Add(time.Minute)) || !rows[1].StartTime.Equal(base) {
			t.Errorf("unexpected order: %v, %v", rows[0].StartTime, rows[1].StartTime)
		}

		total, err := store.CountStatusHistory(ctx, q)
		if err != nil {
			t.Fatalf("CountStatusHistory: %v", err)
		}
		if total != 6 {
			t.Errorf("Expected total 6, got %d", total)
		}
	})

	t.Run("inclusive range and status filter", func(t *testing.T) {
		from := base.Add(time.Minute)
		to := base.Add(4 * time.Minute)
		q := StatusQuery{MonitorID: m.ID, Page: 1, Limit: 10, From: &from, To: &to, Status: StatusDownOnly}

		rows, err := store.QueryStatusHistory(ctx, q)
		if err != nil {
			t.Fatalf("QueryStatusHistory: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("Expected 2 down rows in range, got %d", len(rows))
		}
		for _, r := range rows {
			if r.Up {
				t.Errorf("Expected only down rows, got %+v", r)
			}
		}

		q.Status = StatusUpOnly
		total, err := store.CountStatusHistory(ctx, q)
		if err != nil {
			t.Fatalf("CountStatusHistory: %v", err)
		}
		if total != 2 {
			t.Errorf("Expected 2 up rows in range, got %d", total)
		}
	})

	t.Run("response time series", func(t *testing.T) {
		rows, err := store.QueryResponseTimeSeries(ctx, SeriesQuery{MonitorID: m.ID, Limit: 3})
		if err != nil {
			t.Fatalf("QueryResponseTimeSeries: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("Expected 3 rows, got %d", len(rows))
		}
		if rows[0].ResponseTime != 60 || rows[2].ResponseTime != 40 {
			t.Errorf("Expected newest three points, got %+v", rows)
		}
	})
}

func TestQueryDailyAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := pingInput()
	in.ProjectID = 0
	m := seedMonitor(t, store, in)

	day1 := time.Date(2024, 3, 1, 23, 58, 0, 0, time.UTC)
	// 23:58 up, 23:59 down, 00:00 next day down
	insertStatuses(t, store, m.ID, day1, true, false, false)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	aggs, err := store.QueryDailyAggregates(ctx, m.ID, from, to)
	if err != nil {
		t.Fatalf("QueryDailyAggregates: %v", err)
	}
	if len(aggs) != 2 {
		t.Fatalf("Expected 2 days, got %+v", aggs)
	}
	if !aggs[0].Day.Equal(from) || aggs[0].Total != 2 || aggs[0].Failed != 1 {
		t.Errorf("unexpected first day: %+v", aggs[0])
	}
	if !aggs[1].Day.Equal(from.AddDate(0, 0, 1)) || aggs[1].Total != 1 || aggs[1].Failed != 1 {
		t.Errorf("unexpected second day: %+v", aggs[1])
	}
}

func TestDeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := pingInput()
	in.ProjectID = 0
	m := seedMonitor(t, store, in)
	insertStatuses(t, store, m.ID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true, true)

	if err := store.DeleteProject(ctx, m.ProjectID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if _, err := store.FindMonitor(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected monitor to be deleted with project, got %v", err)
	}
	total, err := store.CountStatusHistory(ctx, StatusQuery{MonitorID: m.ID})
	if err != nil {
		t.Fatalf("CountStatusHistory: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected statuses to be deleted with monitor, got %d", total)
	}

	if err := store.DeleteProject(ctx, m.ProjectID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestProjectCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := NewProject(ProjectInput{Label: "Platform", Description: "core", Tags: []string{"prod"}})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	if err := store.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	tags := []string{"prod", "eu"}
	updated, err := p.Apply(ProjectPatch{Tags: &tags})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := store.UpdateProject(ctx, updated); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}

	got, err := store.FindProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindProject: %v", err)
	}
	if got.Label != "Platform" || len(got.Tags) != 2 || got.Tags[1] != "eu" {
		t.Errorf("unexpected project: %+v", got)
	}

	list, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 project, got %d", len(list))
	}

	if _, err := store.FindProject(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
