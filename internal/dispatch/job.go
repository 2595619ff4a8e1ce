package dispatch

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job is one download request.
type Job struct {
	ID          uuid.UUID
	URL         string
	Destination string
	FormatID    string
	SubmittedAt time.Time
}

// Validate reports whether the job carries enough to build an invocation.
func (j Job) Validate() error {
	if strings.TrimSpace(j.URL) == "" {
		return errors.New("job url required")
	}
	if strings.TrimSpace(j.FormatID) == "" {
		return errors.New("job format id required")
	}
	return nil
}

// Outcome records how a job finished.
type Outcome struct {
	JobID    uuid.UUID
	Job      Job
	Seq      uint64
	Err      error
	Output   []byte
	Started  time.Time
	Finished time.Time
}

// Succeeded reports whether the job exited cleanly.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Duration is the wall time the tool ran for.
func (o Outcome) Duration() time.Duration {
	if o.Started.IsZero() || o.Finished.IsZero() {
		return 0
	}
	return o.Finished.Sub(o.Started)
}
