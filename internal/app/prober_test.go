package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/samvad-envelope/internal/config"
	"github.com/samvad-hq/samvad-envelope/internal/probe"
	"github.com/samvad-hq/samvad-envelope/internal/storage"
	"github.com/samvad-hq/samvad-envelope/pkg/events"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProberPublishesUnauthorizedAndJournals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":{"code":401,"msg":"session expired"}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "events.db")
	cfg := &config.Config{
		ProfilesFile: writeFile(t, dir, "profiles.yaml", `
profiles:
  - name: api
    code_key: status.code
    message_key: status.msg
`),
		TargetsFile: writeFile(t, dir, "targets.yaml", `
targets:
  - id: session
    url: `+srv.URL+`
    profile: api
`),
		SinksFile: writeFile(t, dir, "sinks.yaml", `
sinks:
  - id: journal
    type: journal
`),
		ProbeInterval:          time.Hour,
		HTTPTimeout:            2 * time.Second,
		StorageType:            "bbolt",
		BBoltPath:              dbPath,
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}

	prober, err := NewProber(context.Background(), cfg, nil, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}

	got := make(chan events.Event, 1)
	prober.Bus().SubscribeChan(got)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- prober.Run(ctx) }()

	select {
	case evt := <-got:
		if evt.Name != events.NameUnauthorized || evt.Source != "api" || evt.StatusCode != http.StatusOK {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for unauthorized event")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Run closed the store; reopen it to read the journal.
	store, err := storage.NewStore("bbolt", dbPath, storage.Options{})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	recs, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 || recs[0].Source != "api" {
		t.Fatalf("expected one journaled event, got %+v", recs)
	}
}

func TestNewProberRequiresConfig(t *testing.T) {
	if _, err := NewProber(context.Background(), nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestTickIntervalUsesShortestTarget(t *testing.T) {
	targets := []probe.Target{
		{ID: "a"},
		{ID: "b", IntervalMs: 250},
		{ID: "c", IntervalMs: 5000},
	}
	if got := tickInterval(targets, time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms tick, got %s", got)
	}
	if got := tickInterval(nil, time.Second); got != time.Second {
		t.Fatalf("expected fallback tick, got %s", got)
	}
}

func TestDueTargetsHonoursPerTargetInterval(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	targets := []probe.Target{{ID: "fast", IntervalMs: 1000}, {ID: "slow"}}
	lastRun := map[string]time.Time{}

	if due := dueTargets(targets, lastRun, base, time.Minute); len(due) != 2 {
		t.Fatalf("expected every target on the first pass, got %d", len(due))
	}

	due := dueTargets(targets, lastRun, base.Add(2*time.Second), time.Minute)
	if len(due) != 1 || due[0].ID != "fast" {
		t.Fatalf("expected only fast to be due, got %+v", due)
	}
	if !lastRun["fast"].Equal(base.Add(2*time.Second)) || !lastRun["slow"].Equal(base) {
		t.Fatalf("unexpected last-run stamps %v", lastRun)
	}

	due = dueTargets(targets, lastRun, base.Add(time.Minute), time.Minute)
	if len(due) != 2 {
		t.Fatalf("expected both due after a minute, got %+v", due)
	}
}
