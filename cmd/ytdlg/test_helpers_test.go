package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
)

// stubTool answers manifest queries with a fixed two-format manifest and
// fails downloads of format 99.
const stubTool = `#!/bin/sh
if [ "$2" = "--dump-json" ]; then
  printf '%s\n' '{"id":"abc","title":"Clip","ext":"mp4","formats":[{"format_id":"18","ext":"mp4","vcodec":"avc1","acodec":"mp4a","filesize":1048576},{"format_id":"22","ext":"mp4","width":1280,"height":720,"vcodec":"avc1","acodec":"mp4a"}]}'
  exit 0
fi
if [ "$1" = "-f" ]; then
  if [ "$2" = "99" ]; then
    echo "ERROR: requested format not available" >&2
    exit 1
  fi
  echo "[download] Destination: $5"
  exit 0
fi
exit 2
`

type cliTestEnv struct {
	baseDir    string
	configPath string
	toolPath   string
	historyDB  string
	hits       *int32
}

func setupCLITestEnv(t *testing.T, digest string) *cliTestEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tool is a shell script")
	}

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("YTDLG_TOOL_URL", "")
	t.Setenv("YTDLG_CACHE_DIR", "")

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(stubTool))
	}))
	t.Cleanup(server.Close)

	if digest == "" {
		sum := sha256.Sum256([]byte(stubTool))
		digest = hex.EncodeToString(sum[:])
	}

	cacheDir := filepath.Join(base, "cache")
	logDir := filepath.Join(base, "logs")
	historyDB := filepath.Join(logDir, "history.db")
	content := fmt.Sprintf(`[tool]
download_url = %q
cache_dir = %q
expected_sha256 = %q
min_free_mib = 0

[download]
output_dir = %q

[logging]
dir = %q

[history]
path = %q
`, server.URL+"/youtube-dl", cacheDir, digest, filepath.Join(base, "out"), logDir, historyDB)

	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		toolPath:   filepath.Join(cacheDir, "youtube-dl"),
		historyDB:  historyDB,
		hits:       &hits,
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
