package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const defaultRecentOutcomes = 256

// Notifier broadcasts job completions. Each Publish advances a generation
// counter and wakes every suspended waiter.
type Notifier struct {
	mu      sync.Mutex
	gen     uint64
	latest  Outcome
	changed chan struct{}

	recent      map[uuid.UUID]Outcome
	recentOrder []uuid.UUID
	recentLimit int
}

// NewNotifier constructs a notifier with no completions.
func NewNotifier() *Notifier {
	return &Notifier{
		changed:     make(chan struct{}),
		recent:      make(map[uuid.UUID]Outcome),
		recentLimit: defaultRecentOutcomes,
	}
}

// Publish records outcome as the latest completion, assigns its sequence
// number and wakes all waiters.
func (n *Notifier) Publish(outcome Outcome) Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.gen++
	outcome.Seq = n.gen
	n.latest = outcome
	n.remember(outcome)

	close(n.changed)
	n.changed = make(chan struct{})
	return outcome
}

func (n *Notifier) remember(outcome Outcome) {
	if outcome.JobID == uuid.Nil {
		return
	}
	if _, ok := n.recent[outcome.JobID]; !ok {
		n.recentOrder = append(n.recentOrder, outcome.JobID)
	}
	n.recent[outcome.JobID] = outcome
	for len(n.recentOrder) > n.recentLimit {
		delete(n.recent, n.recentOrder[0])
		n.recentOrder = n.recentOrder[1:]
	}
}

// Generation returns the number of completions published so far.
func (n *Notifier) Generation() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gen
}

// Flag returns the completion flag as a toggle: it flips on every publish.
func (n *Notifier) Flag() bool {
	return n.Generation()%2 == 1
}

// Latest returns the most recent outcome, if any.
func (n *Notifier) Latest() (Outcome, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latest, n.gen > 0
}

// Subscribe returns a waiter that has observed every completion published so
// far.
func (n *Notifier) Subscribe() *Waiter {
	return &Waiter{n: n, seen: n.Generation()}
}

// AwaitJob blocks until the job with id has finished and returns its outcome.
// Outcomes are kept for the most recent completions only.
func (n *Notifier) AwaitJob(ctx context.Context, id uuid.UUID) (Outcome, error) {
	for {
		n.mu.Lock()
		if outcome, ok := n.recent[id]; ok {
			n.mu.Unlock()
			return outcome, nil
		}
		ch := n.changed
		n.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
}

// Waiter observes completions from one consumer's point of view. A Waiter is
// not safe for concurrent use.
type Waiter struct {
	n    *Notifier
	seen uint64
}

// Next returns as soon as a completion newer than the last one observed
// exists, otherwise it suspends until the next publish. Completions that
// happened while nobody was waiting are coalesced: Next returns the latest
// outcome and marks every generation up to it as seen.
func (w *Waiter) Next(ctx context.Context) (Outcome, error) {
	for {
		w.n.mu.Lock()
		if w.n.gen > w.seen {
			w.seen = w.n.gen
			outcome := w.n.latest
			w.n.mu.Unlock()
			return outcome, nil
		}
		ch := w.n.changed
		w.n.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
}

// Seen returns the last generation this waiter observed.
func (w *Waiter) Seen() uint64 {
	return w.seen
}
