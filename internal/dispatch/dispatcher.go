package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ytdlg/internal/logging"
)

const defaultCapacity = 10

var (
	// ErrClosed reports a submit after Close or after the worker stopped.
	ErrClosed = errors.New("dispatcher closed")
	// ErrQueueFull reports a non-blocking submit against a full queue.
	ErrQueueFull = errors.New("job queue full")
)

// Executor runs one download to completion.
type Executor interface {
	Download(ctx context.Context, formatID, url, dest string) ([]byte, error)
}

// Gate blocks until the tool is usable. A gate error stops the dispatcher.
type Gate interface {
	Wait(ctx context.Context) (string, error)
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// Recorders fans an outcome out to every recorder in order. All recorders
// run even when one fails; the errors are joined.
type Recorders []Recorder

// Record implements Recorder.
func (rs Recorders) Record(ctx context.Context, outcome Outcome) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithCapacity sets the queue capacity.
func WithCapacity(capacity int) Option {
	return func(d *Dispatcher) {
		if capacity > 0 {
			d.capacity = capacity
		}
	}
}

// WithJobTimeout bounds each job. Zero leaves jobs unbounded.
func WithJobTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.jobTimeout = timeout
	}
}

// WithRecorder persists every outcome.
func WithRecorder(recorder Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// Dispatcher owns the job queue and its single worker.
type Dispatcher struct {
	exec       Executor
	gate       Gate
	notifier   *Notifier
	recorder   Recorder
	logger     *slog.Logger
	capacity   int
	jobTimeout time.Duration

	queue chan Job

	mu      sync.Mutex
	closed  bool
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	stopOnce sync.Once
	stopped  chan struct{}
	stopErr  error

	pauseMu  sync.Mutex
	paused   bool
	pauseCh  chan struct{}
	resumeCh chan struct{}
	held     bool
}

// New constructs a dispatcher. A nil gate means the executor is usable
// immediately; a nil notifier gets a private one.
func New(exec Executor, gate Gate, notifier *Notifier, logger *slog.Logger, opts ...Option) *Dispatcher {
	if notifier == nil {
		notifier = NewNotifier()
	}
	d := &Dispatcher{
		exec:     exec,
		gate:     gate,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "dispatcher"),
		capacity: defaultCapacity,
		stopped:  make(chan struct{}),
		pauseCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Job, d.capacity)
	return d
}

// Notifier returns the completion notifier outcomes are published on.
func (d *Dispatcher) Notifier() *Notifier {
	return d.notifier
}

// Capacity returns the queue capacity.
func (d *Dispatcher) Capacity() int {
	return d.capacity
}

// Start launches the worker goroutine.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.running {
		return errors.New("dispatcher already running")
	}
	if d.exec == nil {
		return errors.New("dispatcher executor required")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(1)
	go d.run(runCtx)
	return nil
}

// Submit enqueues job, suspending while the queue is full. It assigns an ID
// and submission time when the job has none.
func (d *Dispatcher) Submit(ctx context.Context, job Job) (uuid.UUID, error) {
	job, err := d.prepare(job)
	if err != nil {
		return uuid.Nil, err
	}

	if d.isStopped() {
		return uuid.Nil, ErrClosed
	}
	// No lock is held while suspended; stopped releases the send on Close.
	select {
	case d.queue <- job:
		d.logSubmitted(job)
		return job.ID, nil
	case <-d.stopped:
		return uuid.Nil, ErrClosed
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// TrySubmit enqueues job without blocking.
func (d *Dispatcher) TrySubmit(job Job) (uuid.UUID, error) {
	job, err := d.prepare(job)
	if err != nil {
		return uuid.Nil, err
	}

	if d.isStopped() {
		return uuid.Nil, ErrClosed
	}
	select {
	case d.queue <- job:
		d.logSubmitted(job)
		return job.ID, nil
	default:
		return uuid.Nil, ErrQueueFull
	}
}

func (d *Dispatcher) isStopped() bool {
	select {
	case <-d.stopped:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) prepare(job Job) (Job, error) {
	if err := job.Validate(); err != nil {
		return job, err
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	return job, nil
}

func (d *Dispatcher) logSubmitted(job Job) {
	d.logger.Debug("job queued",
		logging.String(logging.FieldJobID, job.ID.String()),
		logging.String(logging.FieldURL, job.URL),
		logging.String(logging.FieldFormatID, job.FormatID),
		logging.Int("pending", len(d.queue)),
	)
}

// Pending returns the number of queued jobs not yet started, including one
// the worker dequeued just as the queue was paused.
func (d *Dispatcher) Pending() int {
	d.pauseMu.Lock()
	held := d.held
	d.pauseMu.Unlock()
	if held {
		return len(d.queue) + 1
	}
	return len(d.queue)
}

// Pause stops the worker from dequeuing further jobs. A running job is not
// affected.
func (d *Dispatcher) Pause() {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()
	if d.paused {
		return
	}
	d.paused = true
	d.resumeCh = make(chan struct{})
	close(d.pauseCh)
}

// Resume lets the worker dequeue again.
func (d *Dispatcher) Resume() {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()
	if !d.paused {
		return
	}
	d.paused = false
	d.pauseCh = make(chan struct{})
	close(d.resumeCh)
}

// Paused reports whether dequeuing is suspended.
func (d *Dispatcher) Paused() bool {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()
	return d.paused
}

// Done is closed when the dispatcher stops accepting jobs.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.stopped
}

// Err returns the reason the worker stopped on its own, if it did.
func (d *Dispatcher) Err() error {
	select {
	case <-d.stopped:
		return d.stopErr
	default:
		return nil
	}
}

// Close stops intake, cancels the running job and waits for the worker.
// Jobs still queued are dropped.
func (d *Dispatcher) Close() {
	d.stop(nil)

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.running = false
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()

	if dropped := len(d.queue); dropped > 0 {
		logging.WarnWithContext(d.logger, "dropping queued jobs on shutdown", "jobs_dropped",
			logging.Int("count", dropped),
			logging.String(logging.FieldImpact, "queued downloads were not started"),
			logging.String(logging.FieldErrorHint, "resubmit the downloads after restarting"),
		)
	}
}

// stop closes intake and wakes submitters suspended on a full queue.
func (d *Dispatcher) stop(err error) {
	d.stopOnce.Do(func() {
		d.stopErr = err
		close(d.stopped)
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
	})
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	if d.gate != nil {
		if _, err := d.gate.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				logging.ErrorWithContext(d.logger, "tool never became ready; dispatcher stopped", "dispatcher_gate_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "run ytdlg bootstrap to see the failure"),
				)
			}
			d.stop(fmt.Errorf("readiness gate: %w", err))
			return
		}
	}
	d.logger.Info("dispatcher ready", logging.Int("capacity", d.capacity))

	for {
		if !d.waitWhilePaused(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-d.pauseSignal():
			continue
		case job := <-d.queue:
			if !d.holdWhilePaused(ctx) {
				return
			}
			d.execute(ctx, job)
		}
	}
}

func (d *Dispatcher) pauseSignal() <-chan struct{} {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()
	return d.pauseCh
}

// holdWhilePaused covers a Pause that raced the dequeue: the job is kept
// back, still counted as pending, until Resume.
func (d *Dispatcher) holdWhilePaused(ctx context.Context) bool {
	d.pauseMu.Lock()
	if !d.paused {
		d.pauseMu.Unlock()
		return true
	}
	d.held = true
	d.pauseMu.Unlock()

	ok := d.waitWhilePaused(ctx)
	d.pauseMu.Lock()
	d.held = false
	d.pauseMu.Unlock()
	return ok
}

func (d *Dispatcher) waitWhilePaused(ctx context.Context) bool {
	for {
		d.pauseMu.Lock()
		if !d.paused {
			d.pauseMu.Unlock()
			return true
		}
		ch := d.resumeCh
		d.pauseMu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, job Job) {
	jobCtx := logging.WithJobID(ctx, job.ID.String())
	logger := logging.WithContext(jobCtx, d.logger)
	if d.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, d.jobTimeout)
		defer cancel()
	}

	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String(logging.FieldURL, job.URL),
		logging.String(logging.FieldFormatID, job.FormatID),
	)
	started := time.Now()
	output, err := d.exec.Download(jobCtx, job.FormatID, job.URL, job.Destination)
	outcome := d.notifier.Publish(Outcome{
		JobID:    job.ID,
		Job:      job,
		Err:      err,
		Output:   output,
		Started:  started,
		Finished: time.Now(),
	})

	if err != nil {
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.Error(err),
			logging.String(logging.FieldURL, job.URL),
			logging.String(logging.FieldFormatID, job.FormatID),
			logging.String(logging.FieldErrorHint, "check the URL and format id, or the tool output in history"),
		)
	} else {
		logger.Info("job finished",
			logging.String(logging.FieldEventType, "job_finished"),
			logging.Duration("duration", outcome.Duration()),
		)
	}

	if d.recorder != nil {
		// The run context may already be cancelled during shutdown; the
		// ledger write should still land.
		if recErr := d.recorder.Record(context.WithoutCancel(ctx), outcome); recErr != nil {
			logging.WarnWithContext(logger, "failed to record job outcome", "history_write_failed",
				logging.Error(recErr),
				logging.String(logging.FieldImpact, "job missing from history"),
			)
		}
	}
}
