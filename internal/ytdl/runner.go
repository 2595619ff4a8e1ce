package ytdl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const maxOutputTail = 2048

// Runner executes the tool and returns its captured output streams.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands as child processes. The child is killed when ctx
// is cancelled.
type ExecRunner struct{}

// Run starts binary with args and waits for it to exit.
func (ExecRunner) Run(ctx context.Context, binary string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrSpawn, binary, err)
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%w: %w", ErrJobFailure, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%w: exit status %d: %s",
				ErrJobFailure, exitErr.ExitCode(), outputTail(stderr.Bytes()))
		}
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%w: wait: %w", ErrJobFailure, err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// outputTail returns the last line-aligned portion of output, trimmed.
func outputTail(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) <= maxOutputTail {
		return text
	}
	text = text[len(text)-maxOutputTail:]
	if idx := strings.IndexByte(text, '\n'); idx >= 0 && idx < len(text)-1 {
		text = text[idx+1:]
	}
	return "..." + text
}
