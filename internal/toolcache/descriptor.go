package toolcache

import (
	"fmt"
	"path/filepath"
	"strings"

	"ytdlg/internal/config"
)

// BuildDigest overrides the embedded reference digest. Release builds set it
// with -ldflags "-X ytdlg/internal/toolcache.BuildDigest=<hex>".
var BuildDigest string

// Descriptor identifies the remote tool and its trusted local destination.
type Descriptor struct {
	Name         string
	URL          string
	Path         string
	SHA256       string
	SignatureURL string
	KeyringPath  string
}

// Dir returns the cache directory holding the tool.
func (d Descriptor) Dir() string {
	return filepath.Dir(d.Path)
}

// SignaturePath returns where the detached signature is cached.
func (d Descriptor) SignaturePath() string {
	return d.Path + ".sig"
}

// NewDescriptor resolves the descriptor for the running platform. The
// reference digest comes from configuration when set, then from BuildDigest,
// then from the checksum file embedded for this platform. embeddedSum is only
// defined for amd64 targets, so other architectures fail to build.
func NewDescriptor(cfg *config.Config) (Descriptor, error) {
	if cfg == nil {
		return Descriptor{}, fmt.Errorf("descriptor: config is nil")
	}
	digest := firstNonEmpty(cfg.Tool.ExpectedSHA256, BuildDigest, parseSumFile(embeddedSum))
	if digest == "" {
		return Descriptor{}, fmt.Errorf("%w for %s: set tool.expected_sha256", ErrNoReferenceDigest, cfg.ToolFileName())
	}
	return Descriptor{
		Name:         cfg.ToolFileName(),
		URL:          cfg.Tool.DownloadURL,
		Path:         cfg.ToolPath(),
		SHA256:       strings.ToLower(digest),
		SignatureURL: cfg.Tool.SignatureURL,
		KeyringPath:  cfg.Tool.SigningKeyPath,
	}, nil
}

// parseSumFile extracts the digest from a sha256sum style line
// ("<hex>  <name>") or a bare hex string.
func parseSumFile(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		return strings.ToLower(fields[0])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
