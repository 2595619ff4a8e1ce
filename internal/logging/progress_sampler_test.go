package logging

import "testing"

func TestProgressSamplerLogsOncePerBucket(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		done uint64
		want bool
	}{
		{0, true},
		{100, false},
		{249, false},
		{250, true},
		{600, true},
		{700, false},
		{1000, true},
		{1200, false},
	}
	for _, step := range steps {
		if _, got := s.Sample(step.done, 1000); got != step.want {
			t.Fatalf("Sample(%d) = %v, want %v", step.done, got, step.want)
		}
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(0)
	if s.bucketSize != 10 {
		t.Fatalf("expected default bucket of 10, got %v", s.bucketSize)
	}
	if _, ok := s.Sample(5, 0); ok {
		t.Fatal("zero total must not log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.Sample(500, 1000)
	if _, ok := s.Sample(500, 1000); ok {
		t.Fatal("same bucket logged twice")
	}
	s.Reset()
	if pct, ok := s.Sample(500, 1000); !ok || pct != 50 {
		t.Fatalf("expected 50%% after reset, got %v %v", pct, ok)
	}
	var nilSampler *ProgressSampler
	if _, ok := nilSampler.Sample(1, 2); !ok {
		t.Fatal("nil sampler logs every sample")
	}
	nilSampler.Reset()
}
