package toolcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"

	"ytdlg/internal/logging"
	"ytdlg/internal/preflight"
)

const (
	defaultChunkSize = 32 * 1024
	defaultUserAgent = "ytdlg/1.0"
	maxRedirects     = 10

	progressLogBucket = 10
)

// Fetcher streams the tool executable into the cache, publishing progress on
// its Tracker after every chunk.
type Fetcher struct {
	client    *http.Client
	tracker   *Tracker
	logger    *slog.Logger
	userAgent string
	chunkSize int
	minFree   uint64
	freeSpace func(path string) (uint64, error)
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithChunkSize sets the read buffer size used while streaming.
func WithChunkSize(size int) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.chunkSize = size
		}
	}
}

// WithFreeSpaceFloor requires this many bytes to remain free on the cache
// filesystem after the tool is written.
func WithFreeSpaceFloor(bytes uint64) FetcherOption {
	return func(f *Fetcher) {
		f.minFree = bytes
	}
}

// WithFreeSpaceFunc replaces the disk usage lookup.
func WithFreeSpaceFunc(fn func(path string) (uint64, error)) FetcherOption {
	return func(f *Fetcher) {
		if fn != nil {
			f.freeSpace = fn
		}
	}
}

// NewFetcher constructs a fetcher reporting into tracker.
func NewFetcher(tracker *Tracker, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if tracker == nil {
		tracker = NewTracker()
	}
	f := &Fetcher{
		client: &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		tracker:   tracker,
		logger:    logging.NewComponentLogger(logger, "fetcher"),
		userAgent: defaultUserAgent,
		chunkSize: defaultChunkSize,
		freeSpace: preflight.FreeBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Tracker exposes the progress tracker the fetcher reports into.
func (f *Fetcher) Tracker() *Tracker {
	return f.tracker
}

// Fetch downloads desc.URL to desc.Path. When the destination already exists
// no request is made and the tracker total is set to zero. The body is written
// to a sibling ".part" file and renamed into place only after the final chunk,
// so an interrupted fetch never leaves a partial executable at desc.Path.
func (f *Fetcher) Fetch(ctx context.Context, desc Descriptor) error {
	if _, err := os.Stat(desc.Path); err == nil {
		f.tracker.SetTotal(0)
		f.logger.Debug("tool already cached", logging.String(logging.FieldPath, desc.Path))
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return wrap(ErrIO, "stat "+desc.Path, err)
	}

	if err := os.MkdirAll(desc.Dir(), 0o755); err != nil {
		return wrap(ErrIO, "create cache directory", err)
	}

	resp, err := f.get(ctx, desc.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.ContentLength < 0 {
		return fmt.Errorf("%w: %s", ErrLengthUnknown, desc.URL)
	}
	total := uint64(resp.ContentLength)
	if err := f.ensureFreeSpace(desc.Dir(), total); err != nil {
		return err
	}
	f.tracker.SetTotal(total)

	f.logger.Info("fetching tool",
		logging.String(logging.FieldURL, desc.URL),
		logging.String(logging.FieldPath, desc.Path),
		logging.String("size", humanize.IBytes(total)),
	)

	partPath := desc.Path + ".part"
	out, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return wrap(ErrIO, "create "+partPath, err)
	}
	written, streamErr := f.stream(resp.Body, out, total, logging.NewProgressSampler(progressLogBucket))
	if streamErr == nil {
		streamErr = syncClose(out)
	} else {
		_ = out.Close()
	}
	if streamErr != nil {
		_ = os.Remove(partPath)
		return streamErr
	}

	if err := os.Rename(partPath, desc.Path); err != nil {
		_ = os.Remove(partPath)
		return wrap(ErrIO, "move tool into cache", err)
	}
	if err := markExecutable(desc.Path); err != nil {
		return err
	}

	f.logger.Info("tool fetched",
		logging.String(logging.FieldPath, desc.Path),
		logging.Uint64("bytes", written),
	)
	return nil
}

// FetchFile downloads a small auxiliary file (a detached signature) without
// progress reporting. An existing destination is reused.
func (f *Fetcher) FetchFile(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tempPath := dest + ".part"
	out, err := os.Create(tempPath)
	if err != nil {
		return wrap(ErrIO, "create "+tempPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tempPath)
		return wrap(ErrNetwork, "read "+url, err)
	}
	if err := syncClose(out); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, dest); err != nil {
		_ = os.Remove(tempPath)
		return wrap(ErrIO, "move "+filepath.Base(dest)+" into cache", err)
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrap(ErrNetwork, "build request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, wrap(ErrNetwork, "GET "+url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: unexpected status %d", ErrNetwork, url, resp.StatusCode)
	}
	return resp, nil
}

func (f *Fetcher) stream(body io.Reader, out io.Writer, total uint64, sampler *logging.ProgressSampler) (uint64, error) {
	buf := make([]byte, f.chunkSize)
	var written uint64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, wrap(ErrIO, "write chunk", err)
			}
			written += uint64(n)
			done := min(written, total)
			f.tracker.SetProgress(done)
			if percent, ok := sampler.Sample(done, total); ok {
				f.logger.Info("fetch progress",
					logging.String(logging.FieldEventType, "fetch_progress"),
					logging.Int("percent", int(percent)),
					logging.Uint64("bytes", done),
					logging.Uint64("total", total),
				)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, wrap(ErrNetwork, "read body", readErr)
		}
	}
}

func (f *Fetcher) ensureFreeSpace(dir string, size uint64) error {
	if f.freeSpace == nil {
		return nil
	}
	free, err := f.freeSpace(dir)
	if err != nil {
		logging.WarnWithContext(f.logger, "free space check failed", "free_space_unknown",
			logging.Error(err),
			logging.String(logging.FieldPath, dir),
			logging.String(logging.FieldImpact, "fetch proceeds without a free space check"),
		)
		return nil
	}
	if need := size + f.minFree; free < need {
		return fmt.Errorf("%w: %s free in %s, need %s", ErrIO, humanize.IBytes(free), dir, humanize.IBytes(need))
	}
	return nil
}

func syncClose(file *os.File) error {
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return wrap(ErrIO, "flush "+file.Name(), err)
	}
	if err := file.Close(); err != nil {
		return wrap(ErrIO, "close "+file.Name(), err)
	}
	return nil
}

// markExecutable adds execute permission for every user class. Windows has no
// mode bits for this.
func markExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return wrap(ErrIO, "stat "+path, err)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o111); err != nil {
		return wrap(ErrIO, "chmod "+path, err)
	}
	return nil
}
