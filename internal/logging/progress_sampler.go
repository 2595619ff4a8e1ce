package logging

// ProgressSampler thins out byte-progress logging to one line per percentage
// bucket crossed.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler with buckets of bucketSize percent
// (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// Sample returns the completion percentage and whether it entered a new
// bucket. An unknown total (zero) never logs.
func (s *ProgressSampler) Sample(done, total uint64) (float64, bool) {
	if total == 0 {
		return 0, false
	}
	percent := float64(min(done, total)) / float64(total) * 100
	if s == nil {
		return percent, true
	}
	bucket := int(percent / s.bucketSize)
	if bucket <= s.lastBucket {
		return percent, false
	}
	s.lastBucket = bucket
	return percent, true
}

// Reset forgets the last bucket so the next sample logs.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.lastBucket = -1
	}
}
