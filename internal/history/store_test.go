package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"ytdlg/internal/dispatch"
	"ytdlg/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func outcomeAt(finished time.Time, url string, err error) dispatch.Outcome {
	id := uuid.New()
	return dispatch.Outcome{
		JobID: id,
		Job: dispatch.Job{
			ID:          id,
			URL:         url,
			FormatID:    "22",
			SubmittedAt: finished.Add(-2 * time.Minute),
		},
		Err:      err,
		Output:   []byte("[download] Destination: clip.mp4\n"),
		Started:  finished.Add(-time.Minute),
		Finished: finished,
	}
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := outcomeAt(base, "https://x/first", nil)
	second := outcomeAt(base.Add(time.Second), "https://x/second", errors.New("exit status 1: ERROR: video unavailable"))
	third := outcomeAt(base.Add(2*time.Second), "https://x/third", context.Canceled)
	for _, o := range []dispatch.Outcome{first, second, third} {
		if err := store.Record(ctx, o); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].URL != "https://x/third" || entries[0].Status != history.StatusCancelled {
		t.Fatalf("unexpected newest entry %#v", entries[0])
	}
	if entries[1].Status != history.StatusFailed || !strings.Contains(entries[1].Error, "video unavailable") {
		t.Fatalf("unexpected failed entry %#v", entries[1])
	}
	if entries[1].Duration() != time.Minute {
		t.Fatalf("unexpected duration %s", entries[1].Duration())
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	got, err := store.Get(ctx, first.JobID.String())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got == nil || got.Status != history.StatusSucceeded || !got.FinishedAt.Equal(base) {
		t.Fatalf("unexpected entry %#v", got)
	}
	if !strings.Contains(got.OutputTail, "clip.mp4") {
		t.Fatalf("expected output tail, got %q", got.OutputTail)
	}
}

func TestGetMissingEntry(t *testing.T) {
	store := openStore(t)
	got, err := store.Get(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil entry, got %#v", got)
	}
}

func TestStatsAndClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()
	_ = store.Record(ctx, outcomeAt(now, "https://x/a", nil))
	_ = store.Record(ctx, outcomeAt(now, "https://x/b", nil))
	_ = store.Record(ctx, outcomeAt(now, "https://x/c", errors.New("boom")))

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats[history.StatusSucceeded] != 2 || stats[history.StatusFailed] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	entries, _ := store.List(ctx, 0)
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(entries))
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Record(context.Background(), outcomeAt(time.Now(), "https://x/y", nil)); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d", len(entries))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := history.Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
