package preflight

import (
	"context"

	"ytdlg/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Tool.CacheDir))
	results = append(results, CheckFreeSpace("Cache free space", cfg.Tool.CacheDir, cfg.MinFreeBytes()))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Download.OutputDir))
	results = append(results, CheckToolSource(ctx, cfg.Tool.DownloadURL))

	if cfg.Tool.SigningKeyPath != "" {
		results = append(results, CheckReadableFile("Signing key", cfg.Tool.SigningKeyPath))
	}

	return results
}
