package toolcache

import "testing"

func TestTrackerInitialState(t *testing.T) {
	tr := NewTracker()
	downloaded, total := tr.Snapshot()
	if downloaded != 0 || total != 1 {
		t.Fatalf("expected (0, 1), got (%d, %d)", downloaded, total)
	}
	if tr.Fraction() != 0 {
		t.Fatalf("expected zero fraction, got %v", tr.Fraction())
	}
	if tr.Active() {
		t.Fatal("unsized tracker should not be active")
	}
}

func TestTrackerClampsProgress(t *testing.T) {
	tr := NewTracker()
	tr.SetTotal(10)
	tr.SetProgress(20)
	downloaded, total := tr.Snapshot()
	if downloaded != 10 || total != 10 {
		t.Fatalf("expected (10, 10), got (%d, %d)", downloaded, total)
	}
	if tr.Active() {
		t.Fatal("complete tracker should not be active")
	}
}

func TestTrackerFraction(t *testing.T) {
	tr := NewTracker()
	tr.SetTotal(400)
	tr.SetProgress(100)
	if got := tr.Fraction(); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if !tr.Active() {
		t.Fatal("expected partial fetch to be active")
	}

	tr.SetTotal(0)
	if got := tr.Fraction(); got != 0 {
		t.Fatalf("expected idle tracker to report 0, got %v", got)
	}
	if tr.Active() {
		t.Fatal("idle tracker should not be active")
	}
}
