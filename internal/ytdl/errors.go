package ytdl

import "errors"

var (
	// ErrSpawn reports that the tool process could not be started.
	ErrSpawn = errors.New("spawn failed")
	// ErrJobFailure reports a non-zero exit or unusable output.
	ErrJobFailure = errors.New("job failed")
)
