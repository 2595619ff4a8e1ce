package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ytdlg/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ytdlg.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\nd\n")

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Limit: 3})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	want := []string{"b", "c", "d"}
	if len(result.Lines) != len(want) {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	for i := range want {
		if result.Lines[i] != want[i] {
			t.Fatalf("unexpected lines: %#v", result.Lines)
		}
	}
	if result.Offset != 8 {
		t.Fatalf("expected offset at end of file, got %d", result.Offset)
	}
}

func TestTailFewerLinesThanLimit(t *testing.T) {
	path := writeLog(t, "only\n")
	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "only" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.Options{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %#v", result)
	}
}

func TestJobFilterMatchesBothFormats(t *testing.T) {
	path := writeLog(t, ""+
		"2026-01-01T00:00:00Z INFO dispatch: job started job_id=aaa url=https://x/y\n"+
		"2026-01-01T00:00:01Z INFO dispatch: job started job_id=bbb url=https://x/z\n"+
		`{"ts":"2026-01-01T00:00:02Z","level":"warn","msg":"job failed","job_id":"aaa"}`+"\n")

	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Limit: 10, Match: logs.JobFilter("aaa")})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected two lines for job aaa, got %#v", result.Lines)
	}
}

func TestTailFollowWaitsForNewLines(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	first, err := logs.Tail(ctx, path, logs.Options{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial Tail: %v", err)
	}

	type tailResult struct {
		res logs.Result
		err error
	}
	done := make(chan tailResult, 1)
	go func() {
		res, err := logs.Tail(ctx, path, logs.Options{Offset: first.Offset, Follow: true, Wait: 5 * time.Second})
		done <- tailResult{res, err}
	}()

	time.Sleep(50 * time.Millisecond)
	appendLine(t, path, "later")

	select {
	case got := <-done:
		if got.err != nil {
			t.Fatalf("follow Tail: %v", got.err)
		}
		if len(got.res.Lines) != 1 || got.res.Lines[0] != "later" {
			t.Fatalf("unexpected follow lines: %#v", got.res.Lines)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not return")
	}
}

func TestTailFollowGivesUpAfterWait(t *testing.T) {
	path := writeLog(t, "start\n")
	result, err := logs.Tail(context.Background(), path, logs.Options{Offset: 6, Follow: true, Wait: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 6 {
		t.Fatalf("expected no new lines at offset 6, got %#v", result)
	}
}
