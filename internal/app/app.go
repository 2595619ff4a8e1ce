// Package app owns the runtime objects shared by the CLI and the TUI.
//
// An App is built once per process. It holds the bootstrap sequencer and its
// progress tracker, the tool client, the completion notifier and the
// dispatcher with its single worker. Nothing here lives in package-level
// state; tests build as many Apps as they like.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ytdlg/internal/config"
	"ytdlg/internal/dispatch"
	"ytdlg/internal/history"
	"ytdlg/internal/logging"
	"ytdlg/internal/notifications"
	"ytdlg/internal/toolcache"
	"ytdlg/internal/ytdl"
)

// App is the explicitly owned runtime context.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Descriptor toolcache.Descriptor
	Tracker    *toolcache.Tracker
	Bootstrap  *toolcache.Sequencer
	Client     *ytdl.Client
	Notifier   *dispatch.Notifier
	Dispatcher *dispatch.Dispatcher
	History    *history.Store
	Alerts     notifications.Service

	mu        sync.Mutex
	started   bool
	alertOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type options struct {
	runner        ytdl.Runner
	fetcherOpts   []toolcache.FetcherOption
	skipHistory   bool
	dispatcherOps []dispatch.Option
}

// Option customizes construction.
type Option func(*options)

// WithRunner replaces the process runner used by the tool client.
func WithRunner(runner ytdl.Runner) Option {
	return func(o *options) { o.runner = runner }
}

// WithFetcherOptions passes extra options to the tool fetcher.
func WithFetcherOptions(opts ...toolcache.FetcherOption) Option {
	return func(o *options) { o.fetcherOpts = append(o.fetcherOpts, opts...) }
}

// WithoutHistory disables the job ledger regardless of configuration.
func WithoutHistory() Option {
	return func(o *options) { o.skipHistory = true }
}

// WithDispatcherOptions passes extra options to the dispatcher.
func WithDispatcherOptions(opts ...dispatch.Option) Option {
	return func(o *options) { o.dispatcherOps = append(o.dispatcherOps, opts...) }
}

// New wires the runtime context from configuration. It does not touch the
// network; call Start or RunBootstrap for that.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	desc, err := toolcache.NewDescriptor(cfg)
	if err != nil {
		return nil, err
	}

	tracker := toolcache.NewTracker()
	fetcherOpts := append([]toolcache.FetcherOption{
		toolcache.WithFreeSpaceFloor(cfg.MinFreeBytes()),
	}, o.fetcherOpts...)
	fetcher := toolcache.NewFetcher(tracker, logger, fetcherOpts...)
	sequencer := toolcache.NewSequencer(desc, fetcher, logger,
		toolcache.WithFetchTimeout(cfg.FetchTimeout()),
	)

	clientOpts := []ytdl.Option{ytdl.WithLogger(logger)}
	if o.runner != nil {
		clientOpts = append(clientOpts, ytdl.WithRunner(o.runner))
	}
	client, err := ytdl.New(desc.Path, clientOpts...)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Descriptor: desc,
		Tracker:    tracker,
		Bootstrap:  sequencer,
		Client:     client,
		Notifier:   dispatch.NewNotifier(),
		Alerts:     notifications.NewService(cfg),
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithCapacity(cfg.Download.QueueCapacity),
		dispatch.WithJobTimeout(cfg.JobTimeout()),
	}
	var recorders dispatch.Recorders
	if cfg.History.Enabled && !o.skipHistory {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logging.WarnWithContext(logger, "job history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldPath, cfg.History.Path),
				logging.String(logging.FieldImpact, "finished jobs will not be recorded"),
			)
		} else {
			a.History = store
			recorders = append(recorders, store)
		}
	}
	if a.Alerts.Enabled() {
		recorders = append(recorders, a.Alerts)
	}
	if len(recorders) > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithRecorder(recorders))
	}
	dispatchOpts = append(dispatchOpts, o.dispatcherOps...)
	a.Dispatcher = dispatch.New(client, sequencer, a.Notifier, logger, dispatchOpts...)
	return a, nil
}

// Start runs bootstrap in the background and starts the dispatcher worker,
// which waits for bootstrap before taking its first job.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("app already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	if err := a.Dispatcher.Start(runCtx); err != nil {
		cancel()
		return err
	}
	a.cancel = cancel
	a.started = true

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Bootstrap.Run(runCtx); toolcache.Fatal(err) {
			a.alertBootstrapFailure(err)
		}
	}()
	return nil
}

// RunBootstrap runs bootstrap in the foreground and returns the trusted
// executable path.
func (a *App) RunBootstrap(ctx context.Context) (string, error) {
	if err := a.Bootstrap.Run(ctx); err != nil {
		if toolcache.Fatal(err) {
			a.alertBootstrapFailure(err)
		}
		return "", err
	}
	return a.Descriptor.Path, nil
}

func (a *App) alertBootstrapFailure(err error) {
	if !a.Alerts.Enabled() {
		return
	}
	a.alertOnce.Do(func() {
		if sendErr := a.Alerts.NotifyBootstrapFailed(context.Background(), err); sendErr != nil {
			logging.WarnWithContext(a.Logger, "bootstrap alert not delivered", "notification_failed",
				logging.Error(sendErr),
				logging.String(logging.FieldImpact, "no push for the bootstrap failure"),
			)
		}
	})
}

// Close stops the dispatcher, cancels bootstrap and releases the ledger.
func (a *App) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	a.Dispatcher.Close()
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()

	if a.History != nil {
		if err := a.History.Close(); err != nil {
			return fmt.Errorf("close history: %w", err)
		}
	}
	return nil
}
