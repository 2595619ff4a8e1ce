package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const archiveTimeLayout = "20060102-150405"

// ArchivePattern matches the archives ArchiveIfLarger creates for path.
func ArchivePattern(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-*" + ext
}

// ArchiveIfLarger renames path to "<name>-<timestamp><ext>" when it is at
// least maxBytes long, so the next writer starts a fresh file. It returns the
// archive path, or "" when nothing was moved. maxBytes <= 0 disables it.
func ArchiveIfLarger(path string, maxBytes int64, now time.Time) (string, error) {
	if maxBytes <= 0 || strings.TrimSpace(path) == "" {
		return "", nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < maxBytes {
		return "", nil
	}
	ext := filepath.Ext(path)
	archive := strings.TrimSuffix(path, ext) + "-" + now.UTC().Format(archiveTimeLayout) + ext
	if err := os.Rename(path, archive); err != nil {
		return "", fmt.Errorf("archive log file: %w", err)
	}
	return archive, nil
}

// RetentionTarget selects files in Dir matching Pattern. Paths in Exclude are
// never removed.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes target files last modified more than retentionDays
// ago and returns how many were removed. retentionDays <= 0 keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, target := range targets {
		removed += pruneTarget(logger, cutoff, target)
	}
	return removed
}

func pruneTarget(logger *slog.Logger, cutoff time.Time, target RetentionTarget) int {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return 0
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	skip := make(map[string]struct{}, len(target.Exclude))
	for _, p := range target.Exclude {
		skip[filepath.Clean(p)] = struct{}{}
	}

	removed := 0
	for _, path := range matches {
		if _, ok := skip[filepath.Clean(path)]; ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "could not prune old log", "log_retention_failed",
				String(FieldPath, path),
				Error(err),
				String(FieldErrorHint, "check permissions on logging.dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Info("log pruned",
				String(FieldPath, path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}
