package toolcache

import (
	"errors"
	"strings"
	"testing"

	"ytdlg/internal/config"
)

func TestParseSumFile(t *testing.T) {
	tests := map[string]string{
		"":                             "",
		"# comment\n\n":                "",
		strings.Repeat("AB", 32):       strings.Repeat("ab", 32),
		"deadbeef  youtube-dl\n":       "deadbeef",
		"# header\ncafe *youtube-dl\n": "cafe",
	}
	for input, want := range tests {
		if got := parseSumFile(input); got != want {
			t.Errorf("parseSumFile(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewDescriptorPrefersConfiguredDigest(t *testing.T) {
	cfg := config.Default()
	cfg.Tool.CacheDir = t.TempDir()
	cfg.Tool.DownloadURL = "https://example.com/youtube-dl"
	cfg.Tool.ExpectedSHA256 = strings.Repeat("0f", 32)

	desc, err := NewDescriptor(&cfg)
	if err != nil {
		t.Fatalf("NewDescriptor returned error: %v", err)
	}
	if desc.SHA256 != strings.Repeat("0f", 32) {
		t.Fatalf("unexpected digest %q", desc.SHA256)
	}
	if desc.Path != cfg.ToolPath() || desc.URL != cfg.Tool.DownloadURL {
		t.Fatalf("unexpected descriptor %#v", desc)
	}
	if desc.SignaturePath() != desc.Path+".sig" {
		t.Fatalf("unexpected signature path %q", desc.SignaturePath())
	}
}

func TestNewDescriptorUsesBuildDigest(t *testing.T) {
	saved := BuildDigest
	t.Cleanup(func() { BuildDigest = saved })
	BuildDigest = strings.Repeat("1a", 32)

	cfg := config.Default()
	cfg.Tool.CacheDir = t.TempDir()
	desc, err := NewDescriptor(&cfg)
	if err != nil {
		t.Fatalf("NewDescriptor returned error: %v", err)
	}
	if desc.SHA256 != BuildDigest {
		t.Fatalf("expected build digest, got %q", desc.SHA256)
	}
}

func TestNewDescriptorWithoutReference(t *testing.T) {
	if parseSumFile(embeddedSum) != "" {
		t.Skip("a reference digest is embedded in this build")
	}
	saved := BuildDigest
	t.Cleanup(func() { BuildDigest = saved })
	BuildDigest = ""

	cfg := config.Default()
	if _, err := NewDescriptor(&cfg); !errors.Is(err, ErrNoReferenceDigest) {
		t.Fatalf("expected ErrNoReferenceDigest, got %v", err)
	}
}
