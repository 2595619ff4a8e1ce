package toolcache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"ytdlg/internal/logging"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// chunkBody yields one scripted chunk per Read and runs onRead first, which
// lets a test observe the tracker between chunks.
type chunkBody struct {
	chunks [][]byte
	onRead func()
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if b.onRead != nil {
		b.onRead()
	}
	if len(b.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error { return nil }

func scriptedClient(contentLength int64, body io.ReadCloser, requests *int32) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if requests != nil {
			atomic.AddInt32(requests, 1)
		}
		return &http.Response{
			StatusCode:    http.StatusOK,
			Header:        http.Header{},
			ContentLength: contentLength,
			Body:          body,
			Request:       r,
		}, nil
	})}
}

func plentyOfSpace(string) (uint64, error) { return 1 << 40, nil }

func testDescriptor(t *testing.T, url string) Descriptor {
	t.Helper()
	return Descriptor{
		Name: "youtube-dl",
		URL:  url,
		Path: filepath.Join(t.TempDir(), "cache", "youtube-dl"),
	}
}

func TestFetchReportsProgressPerChunk(t *testing.T) {
	tracker := NewTracker()
	var observed [][2]uint64
	body := &chunkBody{
		chunks: [][]byte{
			make([]byte, 300000),
			make([]byte, 300000),
			make([]byte, 300000),
			make([]byte, 100000),
		},
		onRead: func() {
			if d, total := tracker.Snapshot(); d > 0 {
				observed = append(observed, [2]uint64{d, total})
			}
		},
	}
	fetcher := NewFetcher(tracker, logging.NewNop(),
		WithHTTPClient(scriptedClient(1000000, body, nil)),
		WithChunkSize(1<<20),
		WithFreeSpaceFunc(plentyOfSpace),
	)
	desc := testDescriptor(t, "https://example.invalid/youtube-dl")

	if err := fetcher.Fetch(context.Background(), desc); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	want := [][2]uint64{{300000, 1000000}, {600000, 1000000}, {900000, 1000000}, {1000000, 1000000}}
	if len(observed) != len(want) {
		t.Fatalf("expected %d snapshots, got %v", len(want), observed)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("snapshot %d: got %v want %v", i, observed[i], want[i])
		}
	}

	info, err := os.Stat(desc.Path)
	if err != nil {
		t.Fatalf("stat fetched tool: %v", err)
	}
	if info.Size() != 1000000 {
		t.Fatalf("unexpected size %d", info.Size())
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 != 0o111 {
		t.Fatalf("expected execute bits for all users, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(desc.Path + ".part"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial file to be gone, got %v", err)
	}
}

func TestFetchLogsSampledProgress(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "fetch.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatal(err)
	}
	chunks := make([][]byte, 0, 20)
	for range 20 {
		chunks = append(chunks, make([]byte, 50000))
	}
	fetcher := NewFetcher(NewTracker(), logger,
		WithHTTPClient(scriptedClient(1000000, &chunkBody{chunks: chunks}, nil)),
		WithChunkSize(1<<20),
		WithFreeSpaceFunc(plentyOfSpace),
	)
	if err := fetcher.Fetch(context.Background(), testDescriptor(t, "https://example.invalid/youtube-dl")); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Count(string(content), "fetch progress")
	// Twenty 5% chunks: the first chunk, then one line per 10% bucket.
	if lines != 11 {
		t.Fatalf("expected 11 sampled progress lines, got %d:\n%s", lines, content)
	}
	if !strings.Contains(string(content), "percent=100") {
		t.Fatalf("expected final progress line, got:\n%s", content)
	}
}

func TestFetchClampsOverlongBody(t *testing.T) {
	tracker := NewTracker()
	body := &chunkBody{chunks: [][]byte{make([]byte, 20)}}
	fetcher := NewFetcher(tracker, logging.NewNop(),
		WithHTTPClient(scriptedClient(10, body, nil)),
		WithFreeSpaceFunc(plentyOfSpace),
	)
	if err := fetcher.Fetch(context.Background(), testDescriptor(t, "https://example.invalid/tool")); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	downloaded, total := tracker.Snapshot()
	if downloaded != 10 || total != 10 {
		t.Fatalf("expected (10, 10), got (%d, %d)", downloaded, total)
	}
}

func TestFetchSkipsCachedTool(t *testing.T) {
	var requests int32
	tracker := NewTracker()
	fetcher := NewFetcher(tracker, logging.NewNop(),
		WithHTTPClient(scriptedClient(1, &chunkBody{}, &requests)),
	)
	desc := testDescriptor(t, "https://example.invalid/tool")
	if err := os.MkdirAll(desc.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(desc.Path, []byte("cached"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := fetcher.Fetch(context.Background(), desc); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if requests != 0 {
		t.Fatalf("expected no network requests, got %d", requests)
	}
	if _, total := tracker.Snapshot(); total != 0 {
		t.Fatalf("expected total 0 for cached tool, got %d", total)
	}
}

func TestFetchRequiresContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("abc"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("def"))
	}))
	defer server.Close()

	fetcher := NewFetcher(nil, logging.NewNop(), WithFreeSpaceFunc(plentyOfSpace))
	desc := testDescriptor(t, server.URL+"/youtube-dl")
	err := fetcher.Fetch(context.Background(), desc)
	if !errors.Is(err, ErrLengthUnknown) {
		t.Fatalf("expected ErrLengthUnknown, got %v", err)
	}
	if _, statErr := os.Stat(desc.Path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no tool at cache path, got %v", statErr)
	}
}

func TestFetchReportsHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	fetcher := NewFetcher(nil, logging.NewNop(), WithFreeSpaceFunc(plentyOfSpace))
	err := fetcher.Fetch(context.Background(), testDescriptor(t, server.URL+"/youtube-dl"))
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestFetchRefusesWhenDiskIsFull(t *testing.T) {
	fetcher := NewFetcher(nil, logging.NewNop(),
		WithHTTPClient(scriptedClient(1000, &chunkBody{chunks: [][]byte{make([]byte, 1000)}}, nil)),
		WithFreeSpaceFloor(64<<20),
		WithFreeSpaceFunc(func(string) (uint64, error) { return 1 << 20, nil }),
	)
	desc := testDescriptor(t, "https://example.invalid/tool")
	if err := fetcher.Fetch(context.Background(), desc); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO for insufficient space, got %v", err)
	}
	if _, err := os.Stat(desc.Path + ".part"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no partial file, got %v", err)
	}
}

func TestFetchRemovesPartialFileOnReadError(t *testing.T) {
	body := &failingBody{data: make([]byte, 50)}
	fetcher := NewFetcher(nil, logging.NewNop(),
		WithHTTPClient(scriptedClient(100, body, nil)),
		WithFreeSpaceFunc(plentyOfSpace),
	)
	desc := testDescriptor(t, "https://example.invalid/tool")
	if err := fetcher.Fetch(context.Background(), desc); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	for _, path := range []string{desc.Path, desc.Path + ".part"} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s to be absent, got %v", path, err)
		}
	}
}

type failingBody struct {
	data []byte
	sent bool
}

func (b *failingBody) Read(p []byte) (int, error) {
	if b.sent {
		return 0, errors.New("connection reset by peer")
	}
	b.sent = true
	return copy(p, b.data), nil
}

func (b *failingBody) Close() error { return nil }
