package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ytdlg/internal/config"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	t.Setenv("YTDLG_TOOL_URL", "")
	t.Setenv("YTDLG_CACHE_DIR", "")
	return home
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home directory layout differs on windows")
	}
	home := isolateHome(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(home, ".cache", "ytdlg")
	if cfg.Tool.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Tool.CacheDir, wantCache)
	}
	if cfg.ToolPath() != filepath.Join(wantCache, "youtube-dl") {
		t.Fatalf("unexpected tool path: %q", cfg.ToolPath())
	}
	if cfg.Tool.DownloadURL != "https://youtube-dl.org/downloads/2021.12.17/youtube-dl" {
		t.Fatalf("unexpected download url: %q", cfg.Tool.DownloadURL)
	}
	if cfg.Download.QueueCapacity != 10 {
		t.Fatalf("expected queue capacity 10, got %d", cfg.Download.QueueCapacity)
	}
	if cfg.Download.OutputDir != filepath.Join(home, "Downloads") {
		t.Fatalf("unexpected output dir: %q", cfg.Download.OutputDir)
	}
	if cfg.History.Path != filepath.Join(home, ".local", "share", "ytdlg", "logs", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.FetchTimeout() != 0 || cfg.JobTimeout() != 0 {
		t.Fatal("expected unbounded fetch and job timeouts by default")
	}
	if cfg.NotificationTimeout().Seconds() != 10 || cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("unexpected notification defaults: %+v", cfg.Notifications)
	}
	if cfg.MaxLogBytes() != 10<<20 || cfg.Logging.RetentionDays != 14 {
		t.Fatalf("unexpected log retention defaults: %+v", cfg.Logging)
	}
	if cfg.MinFreeBytes() != 64<<20 {
		t.Fatalf("unexpected free-space floor: %d", cfg.MinFreeBytes())
	}
}

func TestLoadCustomFile(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ytdlg.toml")

	payload := map[string]any{
		"tool": map[string]any{
			"name":                  "yt-dlp",
			"download_url":          "https://example.com/yt-dlp",
			"cache_dir":             filepath.Join(dir, "cache"),
			"expected_sha256":       strings.Repeat("AB", 32),
			"fetch_timeout_seconds": 30,
		},
		"download": map[string]any{
			"queue_capacity": 3,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to be resolved, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Tool.Name != "yt-dlp" {
		t.Fatalf("unexpected tool name %q", cfg.Tool.Name)
	}
	if cfg.Tool.ExpectedSHA256 != strings.Repeat("ab", 32) {
		t.Fatalf("expected digest to be lower-cased, got %q", cfg.Tool.ExpectedSHA256)
	}
	if cfg.Download.QueueCapacity != 3 {
		t.Fatalf("unexpected queue capacity %d", cfg.Download.QueueCapacity)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging settings, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if cfg.FetchTimeout().Seconds() != 30 {
		t.Fatalf("unexpected fetch timeout %s", cfg.FetchTimeout())
	}
}

func TestEnvOverridesToolLocation(t *testing.T) {
	isolateHome(t)
	cacheDir := t.TempDir()
	t.Setenv("YTDLG_TOOL_URL", "https://mirror.example.org/youtube-dl")
	t.Setenv("YTDLG_CACHE_DIR", cacheDir)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tool.DownloadURL != "https://mirror.example.org/youtube-dl" {
		t.Fatalf("expected env download url, got %q", cfg.Tool.DownloadURL)
	}
	if cfg.Tool.CacheDir != cacheDir {
		t.Fatalf("expected env cache dir, got %q", cfg.Tool.CacheDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "queue capacity",
			mutate: func(c *config.Config) { c.Download.QueueCapacity = 0 },
			want:   "queue_capacity",
		},
		{
			name:   "digest length",
			mutate: func(c *config.Config) { c.Tool.ExpectedSHA256 = "abc" },
			want:   "expected_sha256",
		},
		{
			name:   "url scheme",
			mutate: func(c *config.Config) { c.Tool.DownloadURL = "ftp://example.com/tool" },
			want:   "http or https",
		},
		{
			name:   "signature without key",
			mutate: func(c *config.Config) { c.Tool.SignatureURL = "https://example.com/tool.sig" },
			want:   "signing_key_path",
		},
		{
			name:   "log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "log retention",
			mutate: func(c *config.Config) { c.Logging.RetentionDays = -1 },
			want:   "logging.retention_days",
		},
		{
			name:   "ntfy topic",
			mutate: func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/topic" },
			want:   "notifications.ntfy_topic",
		},
		{
			name:   "tool name",
			mutate: func(c *config.Config) { c.Tool.Name = "../evil" },
			want:   "bare file name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Tool.DownloadURL = "https://example.com/youtube-dl"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Download.QueueCapacity != 10 {
		t.Fatalf("unexpected sample queue capacity %d", cfg.Download.QueueCapacity)
	}

	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(encoded, "queue_capacity = 10") {
		t.Fatalf("expected encoded config to contain queue capacity, got:\n%s", encoded)
	}
}
