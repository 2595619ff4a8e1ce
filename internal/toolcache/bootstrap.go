package toolcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ytdlg/internal/logging"
)

// State is a bootstrap lifecycle stage.
type State int

const (
	StateNotStarted State = iota
	StateFetching
	StateVerifying
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateFetching:
		return "fetching"
	case StateVerifying:
		return "verifying"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	lockFileName   = ".lock"
	lockRetryDelay = 200 * time.Millisecond
)

// Sequencer drives the fetch and verify steps once and gates consumers on the
// outcome. The cache lock is held for the whole run so two processes never
// write or verify the same path concurrently.
type Sequencer struct {
	desc         Descriptor
	fetcher      *Fetcher
	logger       *slog.Logger
	fetchTimeout time.Duration

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state State
	err   error
}

// SequencerOption customizes a Sequencer.
type SequencerOption func(*Sequencer)

// WithFetchTimeout bounds the fetch step. Zero leaves it unbounded.
func WithFetchTimeout(timeout time.Duration) SequencerOption {
	return func(s *Sequencer) {
		s.fetchTimeout = timeout
	}
}

// NewSequencer constructs a sequencer for desc.
func NewSequencer(desc Descriptor, fetcher *Fetcher, logger *slog.Logger, opts ...SequencerOption) *Sequencer {
	if fetcher == nil {
		fetcher = NewFetcher(nil, logger)
	}
	s := &Sequencer{
		desc:    desc,
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "bootstrap"),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Descriptor returns the descriptor the sequencer bootstraps.
func (s *Sequencer) Descriptor() Descriptor {
	return s.desc
}

// Tracker returns the progress tracker fed by the fetch step.
func (s *Sequencer) Tracker() *Tracker {
	return s.fetcher.Tracker()
}

// Run executes the state machine. Only the first call does any work; later
// calls return the recorded outcome once it is available.
func (s *Sequencer) Run(ctx context.Context) error {
	s.once.Do(func() {
		err := s.run(ctx)
		s.mu.Lock()
		if err != nil {
			s.state = StateFailed
			s.err = err
		} else {
			s.state = StateReady
		}
		s.mu.Unlock()
		s.logTransition(s.State(), err)
		close(s.done)
	})
	<-s.done
	return s.Err()
}

func (s *Sequencer) run(ctx context.Context) error {
	if err := os.MkdirAll(s.desc.Dir(), 0o755); err != nil {
		return wrap(ErrIO, "create cache directory", err)
	}
	lock := flock.New(filepath.Join(s.desc.Dir(), lockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return wrap(ErrIO, "acquire cache lock", err)
	}
	if !locked {
		return wrap(ErrIO, "acquire cache lock", nil)
	}
	defer func() { _ = lock.Unlock() }()

	present, err := fileExists(s.desc.Path)
	if err != nil {
		return err
	}
	if !present {
		s.setState(StateFetching)
		if err := s.fetch(ctx); err != nil {
			return err
		}
	} else {
		s.fetcher.Tracker().SetTotal(0)
		s.logger.Info("using cached tool", logging.String(logging.FieldPath, s.desc.Path))
	}

	s.setState(StateVerifying)
	if err := VerifyFile(s.desc.Path, s.desc.SHA256); err != nil {
		s.discard(err)
		return err
	}
	if s.desc.SignatureURL != "" {
		if err := s.fetcher.FetchFile(ctx, s.desc.SignatureURL, s.desc.SignaturePath()); err != nil {
			return err
		}
		if err := VerifySignature(s.desc.Path, s.desc.SignaturePath(), s.desc.KeyringPath); err != nil {
			s.discard(err)
			return err
		}
	}
	return nil
}

func (s *Sequencer) fetch(ctx context.Context) error {
	fetchCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	err := s.fetcher.Fetch(fetchCtx, s.desc)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return wrap(ErrNetwork, fmt.Sprintf("fetch exceeded %s", s.fetchTimeout), err)
	}
	return err
}

// discard removes an untrusted executable so the next run fetches a fresh copy.
func (s *Sequencer) discard(err error) {
	if !errors.Is(err, ErrIntegrityMismatch) {
		return
	}
	for _, path := range []string{s.desc.Path, s.desc.SignaturePath()} {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "could not remove untrusted file", "cache_cleanup_failed",
				logging.String(logging.FieldPath, path),
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "next bootstrap reuses the rejected file and fails again"),
			)
		}
	}
}

// State returns the current lifecycle stage.
func (s *Sequencer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the failure recorded when the state is StateFailed.
func (s *Sequencer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Done is closed once the sequencer reaches Ready or Failed.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until bootstrap finishes and returns the trusted executable
// path, or the bootstrap failure.
func (s *Sequencer) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return s.desc.Path, nil
}

func (s *Sequencer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logTransition(state, nil)
}

func (s *Sequencer) logTransition(state State, err error) {
	if err != nil {
		logging.ErrorWithContext(s.logger, "bootstrap failed", "bootstrap_failed",
			logging.String(logging.FieldState, state.String()),
			logging.String(logging.FieldPath, s.desc.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return
	}
	s.logger.Info("bootstrap state changed",
		logging.String(logging.FieldEventType, "bootstrap_state"),
		logging.String(logging.FieldState, state.String()),
	)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, ErrIntegrityMismatch):
		return "the rejected file was removed; run ytdlg bootstrap again or check tool.expected_sha256"
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrLengthUnknown):
		return "check connectivity to tool.download_url"
	case errors.Is(err, ErrNoReferenceDigest):
		return "set tool.expected_sha256 in the config file"
	case errors.Is(err, ErrIO):
		return "check permissions and free space in tool.cache_dir"
	default:
		return "check logs for details"
	}
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, wrap(ErrIO, "stat "+path, err)
}
