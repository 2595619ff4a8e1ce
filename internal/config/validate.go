package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTool(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		return validateHTTPURL("notifications.ntfy_topic", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateTool() error {
	if strings.ContainsAny(c.Tool.Name, `/\`) {
		return fmt.Errorf("tool.name must be a bare file name, got %q", c.Tool.Name)
	}
	if err := validateHTTPURL("tool.download_url", c.Tool.DownloadURL); err != nil {
		return err
	}
	if c.Tool.ExpectedSHA256 != "" {
		decoded, err := hex.DecodeString(c.Tool.ExpectedSHA256)
		if err != nil || len(decoded) != 32 {
			return errors.New("tool.expected_sha256 must be 64 hex characters")
		}
	}
	if c.Tool.SignatureURL != "" {
		if err := validateHTTPURL("tool.signature_url", c.Tool.SignatureURL); err != nil {
			return err
		}
		if c.Tool.SigningKeyPath == "" {
			return errors.New("tool.signing_key_path is required when tool.signature_url is set")
		}
	}
	if c.Tool.MinFreeMiB < 0 {
		return errors.New("tool.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.QueueCapacity < 1 || c.Download.QueueCapacity > maxQueueCapacity {
		return fmt.Errorf("download.queue_capacity must be between 1 and %d", maxQueueCapacity)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected console or json)", c.Logging.Format)
	}
	if c.Logging.MaxSizeMiB < 0 || c.Logging.RetentionDays < 0 {
		return errors.New("logging.max_size_mib and logging.retention_days must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}
