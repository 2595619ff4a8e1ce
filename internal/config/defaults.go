package config

const (
	defaultToolName            = "youtube-dl"
	defaultToolDownloadBase    = "https://youtube-dl.org/downloads/2021.12.17/"
	defaultCacheSubdir         = "ytdlg"
	defaultFallbackCacheDir    = "~/.cache/ytdlg"
	defaultMinFreeMiB          = 64
	defaultOutputDir           = "~/Downloads"
	defaultQueueCapacity       = 10
	maxQueueCapacity           = 1000
	defaultLogDir              = "~/.local/share/ytdlg/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogMaxSizeMiB       = 10
	defaultLogRetentionDays    = 14
	defaultHistoryEnabled      = true
	defaultHistoryFileName     = "history.db"
	defaultNtfyTimeoutSeconds  = 10
	defaultConfigRelativePath  = "~/.config/ytdlg/config.toml"
	defaultProjectConfigName   = "ytdlg.toml"
	envToolURL                 = "YTDLG_TOOL_URL"
	envCacheDir                = "YTDLG_CACHE_DIR"
	windowsExecutableExtension = ".exe"
)

// Default returns a Config populated with repository defaults.
//
// Fields that depend on the host (cache directory, download URL) are left
// empty and resolved during normalization.
func Default() Config {
	return Config{
		Tool: Tool{
			Name:       defaultToolName,
			MinFreeMiB: defaultMinFreeMiB,
		},
		Download: Download{
			OutputDir:     defaultOutputDir,
			QueueCapacity: defaultQueueCapacity,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			Dir:    defaultLogDir,

			MaxSizeMiB:    defaultLogMaxSizeMiB,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
