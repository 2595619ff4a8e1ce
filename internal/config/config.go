package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tool describes the external executable ytdlg bootstraps into its cache.
type Tool struct {
	Name                string `toml:"name"`
	DownloadURL         string `toml:"download_url"`
	CacheDir            string `toml:"cache_dir"`
	ExpectedSHA256      string `toml:"expected_sha256"`
	SignatureURL        string `toml:"signature_url"`
	SigningKeyPath      string `toml:"signing_key_path"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"`
	MinFreeMiB          int    `toml:"min_free_mib"`
}

// Download contains settings for the job dispatcher.
type Download struct {
	OutputDir         string `toml:"output_dir"`
	QueueCapacity     int    `toml:"queue_capacity"`
	JobTimeoutSeconds int    `toml:"job_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`

	// MaxSizeMiB archives ytdlg.log at startup once it grows past this size.
	MaxSizeMiB    int `toml:"max_size_mib"`
	// RetentionDays prunes archived logs older than this. Zero keeps them.
	RetentionDays int `toml:"retention_days"`
}

// History controls the on-disk job ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications configures ntfy pushes for finished jobs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	FailuresOnly          bool   `toml:"failures_only"`
}

// Config encapsulates all configuration values for ytdlg.
//
// Configuration sections by subsystem:
//   - Tool: cached executable location, source URL and integrity settings
//   - Download: output directory and job queue sizing
//   - Logging: log format, level and directory
//   - History: SQLite job ledger
//   - Notifications: optional ntfy topic
type Config struct {
	Tool          Tool          `toml:"tool"`
	Download      Download      `toml:"download"`
	Logging       Logging       `toml:"logging"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DefaultConfigPath returns the expanded user configuration path.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativePath)
}

// EnsureDirectories creates the directories ytdlg writes to. The output
// directory is created on a best-effort basis so removable storage being
// offline does not prevent startup.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Tool.CacheDir, c.Logging.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Download.OutputDir) != "" {
		_ = os.MkdirAll(c.Download.OutputDir, 0o755)
	}
	return nil
}

// ToolFileName returns the platform-specific executable name of the tool.
func (c *Config) ToolFileName() string {
	return executableName(c.Tool.Name, runtime.GOOS)
}

// ToolPath returns the cache path of the tool executable.
func (c *Config) ToolPath() string {
	return filepath.Join(c.Tool.CacheDir, c.ToolFileName())
}

// FetchTimeout returns the fetch deadline, or zero when fetches are unbounded.
func (c *Config) FetchTimeout() time.Duration {
	if c.Tool.FetchTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Tool.FetchTimeoutSeconds) * time.Second
}

// JobTimeout returns the per-job deadline, or zero when jobs are unbounded.
func (c *Config) JobTimeout() time.Duration {
	if c.Download.JobTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Download.JobTimeoutSeconds) * time.Second
}

// MinFreeBytes returns the free-space floor required before fetching the tool.
func (c *Config) MinFreeBytes() uint64 {
	if c.Tool.MinFreeMiB <= 0 {
		return 0
	}
	return uint64(c.Tool.MinFreeMiB) << 20
}

// NotificationTimeout returns the per-request ntfy timeout.
func (c *Config) NotificationTimeout() time.Duration {
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// LogFilePath returns the path of the persistent log file.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Logging.Dir) == "" {
		return ""
	}
	return filepath.Join(c.Logging.Dir, "ytdlg.log")
}

// MaxLogBytes returns the size at which the log file is archived, or zero
// when archiving is disabled.
func (c *Config) MaxLogBytes() int64 {
	if c.Logging.MaxSizeMiB <= 0 {
		return 0
	}
	return int64(c.Logging.MaxSizeMiB) << 20
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}

func executableName(name, goos string) string {
	name = strings.TrimSpace(name)
	if goos == "windows" && !strings.HasSuffix(strings.ToLower(name), windowsExecutableExtension) {
		return name + windowsExecutableExtension
	}
	return name
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil && strings.TrimSpace(base) != "" {
		return filepath.Join(base, defaultCacheSubdir)
	}
	return defaultFallbackCacheDir
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
