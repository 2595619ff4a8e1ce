package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytdlg/internal/dispatch"
)

// Status is the terminal state of a recorded job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

const (
	maxOutputTail = 4096
	// timeLayout is fixed width so stored timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Entry is one ledger row.
type Entry struct {
	ID          string
	Seq         uint64
	URL         string
	FormatID    string
	Destination string
	Status      Status
	Error       string
	OutputTail  string
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration is the time the tool ran for.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// EntryFromOutcome converts a dispatcher outcome into a ledger row.
func EntryFromOutcome(outcome dispatch.Outcome) Entry {
	entry := Entry{
		ID:          outcome.JobID.String(),
		Seq:         outcome.Seq,
		URL:         outcome.Job.URL,
		FormatID:    outcome.Job.FormatID,
		Destination: outcome.Job.Destination,
		Status:      StatusSucceeded,
		OutputTail:  tail(string(outcome.Output), maxOutputTail),
		SubmittedAt: outcome.Job.SubmittedAt,
		StartedAt:   outcome.Started,
		FinishedAt:  outcome.Finished,
	}
	switch {
	case outcome.Err == nil:
	case errors.Is(outcome.Err, context.Canceled):
		entry.Status = StatusCancelled
		entry.Error = outcome.Err.Error()
	default:
		entry.Status = StatusFailed
		entry.Error = outcome.Err.Error()
	}
	return entry
}

// Record stores a dispatcher outcome. It satisfies dispatch.Recorder.
func (s *Store) Record(ctx context.Context, outcome dispatch.Outcome) error {
	return s.Insert(ctx, EntryFromOutcome(outcome))
}

// Insert stores entry, replacing any row with the same id.
func (s *Store) Insert(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("history entry id required")
	}
	_, err := s.exec(ctx, `INSERT OR REPLACE INTO jobs
        (id, seq, url, format_id, destination, status, error, output_tail, submitted_at, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		int64(entry.Seq),
		entry.URL,
		entry.FormatID,
		entry.Destination,
		string(entry.Status),
		entry.Error,
		entry.OutputTail,
		formatTime(entry.SubmittedAt),
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

const selectColumns = `id, seq, url, format_id, destination, status, error, output_tail, submitted_at, started_at, finished_at`

// List returns the most recent entries first. A non-positive limit returns
// every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM jobs ORDER BY finished_at DESC, seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Get returns the entry with id, or nil when there is none.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM jobs WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Stats returns the number of entries per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan history stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(scanner rowScanner) (Entry, error) {
	var (
		entry                          Entry
		seq                            int64
		status                         string
		submitted, started, finished string
	)
	err := scanner.Scan(
		&entry.ID,
		&seq,
		&entry.URL,
		&entry.FormatID,
		&entry.Destination,
		&status,
		&entry.Error,
		&entry.OutputTail,
		&submitted,
		&started,
		&finished,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	entry.Seq = uint64(seq)
	entry.Status = Status(status)
	entry.SubmittedAt = parseTime(submitted)
	entry.StartedAt = parseTime(started)
	entry.FinishedAt = parseTime(finished)
	return entry, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func tail(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[len(value)-limit:]
}
