package toolcache

import "sync"

// Tracker publishes fetch progress to concurrent readers. A fresh tracker
// reports (0, 1) so a fraction computed before the first response is zero
// rather than a division by zero. Total is zero once the tool is known to be
// cached and no fetch is needed.
type Tracker struct {
	mu         sync.Mutex
	downloaded uint64
	total      uint64
	sized      bool
}

// NewTracker returns a tracker in its initial (0, 1) state.
func NewTracker() *Tracker {
	return &Tracker{total: 1}
}

// SetTotal records the expected byte count and resets the downloaded count.
func (t *Tracker) SetTotal(total uint64) {
	t.mu.Lock()
	t.total = total
	t.downloaded = 0
	t.sized = true
	t.mu.Unlock()
}

// SetProgress records the bytes written so far, clamped to the total.
func (t *Tracker) SetProgress(downloaded uint64) {
	t.mu.Lock()
	t.downloaded = min(downloaded, t.total)
	t.mu.Unlock()
}

// Snapshot returns a consistent (downloaded, total) pair.
func (t *Tracker) Snapshot() (downloaded, total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.downloaded, t.total
}

// Fraction returns the completed share in [0, 1]. A zero total means no
// fetch is running and reports 0.
func (t *Tracker) Fraction() float64 {
	downloaded, total := t.Snapshot()
	if total == 0 {
		return 0
	}
	return float64(downloaded) / float64(total)
}

// Active reports whether a sized fetch has bytes outstanding.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sized && t.total > 0 && t.downloaded < t.total
}
