package toolcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork reports a transport failure or an unexpected HTTP status.
	ErrNetwork = errors.New("network error")
	// ErrLengthUnknown reports a response without a Content-Length header.
	ErrLengthUnknown = errors.New("content length unknown")
	// ErrIO reports a filesystem create, write, rename or permission failure.
	ErrIO = errors.New("i/o error")
	// ErrIntegrityMismatch reports a digest or signature that does not match the trusted reference.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	// ErrNoReferenceDigest reports that no trusted digest was embedded or configured.
	ErrNoReferenceDigest = errors.New("no reference digest")
)

// Fatal reports whether err must abort startup. Every bootstrap failure is
// fatal except context cancellation, which is a shutdown rather than a fault.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrLengthUnknown) ||
		errors.Is(err, ErrIO) ||
		errors.Is(err, ErrIntegrityMismatch) ||
		errors.Is(err, ErrNoReferenceDigest)
}

func wrap(marker error, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", marker, operation)
	}
	return fmt.Errorf("%w: %s: %w", marker, operation, err)
}

// IntegrityError describes a failed integrity check.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
	Reason   string
}

func (e *IntegrityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("integrity check failed for %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("integrity check failed for %s:\nactual:   %s\nexpected: %s", e.Path, e.Actual, e.Expected)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityMismatch }
