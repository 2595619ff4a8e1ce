package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeTool(); err != nil {
		return err
	}
	if err := c.normalizeDownload(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeTool() error {
	c.Tool.Name = strings.TrimSpace(c.Tool.Name)
	if c.Tool.Name == "" {
		c.Tool.Name = defaultToolName
	}

	if value, ok := os.LookupEnv(envCacheDir); ok && strings.TrimSpace(value) != "" {
		c.Tool.CacheDir = value
	}
	if strings.TrimSpace(c.Tool.CacheDir) == "" {
		c.Tool.CacheDir = defaultCacheDir()
	}
	var err error
	if c.Tool.CacheDir, err = expandPath(c.Tool.CacheDir); err != nil {
		return fmt.Errorf("tool.cache_dir: %w", err)
	}

	if value, ok := os.LookupEnv(envToolURL); ok && strings.TrimSpace(value) != "" {
		c.Tool.DownloadURL = value
	}
	c.Tool.DownloadURL = strings.TrimSpace(c.Tool.DownloadURL)
	if c.Tool.DownloadURL == "" {
		c.Tool.DownloadURL = defaultToolDownloadBase + c.ToolFileName()
	}

	c.Tool.ExpectedSHA256 = strings.ToLower(strings.TrimSpace(c.Tool.ExpectedSHA256))
	c.Tool.SignatureURL = strings.TrimSpace(c.Tool.SignatureURL)
	if strings.TrimSpace(c.Tool.SigningKeyPath) != "" {
		if c.Tool.SigningKeyPath, err = expandPath(strings.TrimSpace(c.Tool.SigningKeyPath)); err != nil {
			return fmt.Errorf("tool.signing_key_path: %w", err)
		}
	}
	if c.Tool.FetchTimeoutSeconds < 0 {
		c.Tool.FetchTimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeDownload() error {
	if strings.TrimSpace(c.Download.OutputDir) == "" {
		c.Download.OutputDir = defaultOutputDir
	}
	var err error
	if c.Download.OutputDir, err = expandPath(c.Download.OutputDir); err != nil {
		return fmt.Errorf("download.output_dir: %w", err)
	}
	if c.Download.QueueCapacity == 0 {
		c.Download.QueueCapacity = defaultQueueCapacity
	}
	if c.Download.JobTimeoutSeconds < 0 {
		c.Download.JobTimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Logging.Dir, defaultHistoryFileName)
		return nil
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}
