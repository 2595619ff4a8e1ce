package ytdl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ytdlg/internal/logging"
)

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(runner Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "ytdl")
	}
}

// Client invokes the tool for manifest queries and downloads.
type Client struct {
	binary string
	runner Runner
	logger *slog.Logger
}

// New constructs a client for the executable at binary.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("tool binary required")
	}
	c := &Client{
		binary: binary,
		runner: ExecRunner{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Binary returns the executable path the client runs.
func (c *Client) Binary() string {
	return c.binary
}

// QueryArgs returns the arguments of a manifest query.
func QueryArgs(url string) []string {
	return []string{url, "--dump-json"}
}

// DownloadArgs returns the arguments that download formatID of url. The
// output template is only passed when dest is set, leaving the tool's own
// naming in place otherwise.
func DownloadArgs(formatID, url, dest string) []string {
	args := []string{"-f", formatID, url}
	if dest != "" {
		args = append(args, "-o", dest)
	}
	return args
}

// QueryManifest asks the tool to describe url without downloading it.
func (c *Client) QueryManifest(ctx context.Context, url string) (*Manifest, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("url required")
	}
	c.logger.Debug("querying manifest", logging.String(logging.FieldURL, url))

	stdout, _, err := c.runner.Run(ctx, c.binary, QueryArgs(url))
	if err != nil {
		return nil, fmt.Errorf("query manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(stdout, &manifest); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %w", ErrJobFailure, err)
	}
	return &manifest, nil
}

// Download fetches formatID of url, optionally into dest, and returns the
// tool's stdout followed by its stderr. The output is kept for logs only.
func (c *Client) Download(ctx context.Context, formatID, url, dest string) ([]byte, error) {
	if strings.TrimSpace(formatID) == "" {
		return nil, errors.New("format id required")
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("url required")
	}
	c.logger.Debug("starting download",
		logging.String(logging.FieldURL, url),
		logging.String(logging.FieldFormatID, formatID),
		logging.String(logging.FieldPath, dest),
	)

	stdout, stderr, err := c.runner.Run(ctx, c.binary, DownloadArgs(formatID, url, dest))
	output := make([]byte, 0, len(stdout)+len(stderr))
	output = append(output, stdout...)
	output = append(output, stderr...)
	if err != nil {
		return output, fmt.Errorf("download %s: %w", formatID, err)
	}
	return output, nil
}
