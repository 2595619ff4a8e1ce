// Package config loads, normalizes, and validates ytdlg configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// YTDLG_TOOL_URL and YTDLG_CACHE_DIR. The Config type centralizes every knob
// the bootstrap sequence, the job dispatcher, and the terminal front end need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
