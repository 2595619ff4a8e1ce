package toolcache

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Digest returns the lower-case hex SHA-256 of everything read from r.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyDigest compares the SHA-256 of data against expectedHex.
func VerifyDigest(data []byte, expectedHex string) error {
	sum := sha256.Sum256(data)
	return compareDigest("<memory>", sum[:], expectedHex)
}

// VerifyFile hashes the file at path and compares it against expectedHex.
// The file is streamed, never loaded whole.
func VerifyFile(path, expectedHex string) error {
	file, err := os.Open(path)
	if err != nil {
		return wrap(ErrIO, "open "+path, err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return wrap(ErrIO, "read "+path, err)
	}
	return compareDigest(path, h.Sum(nil), expectedHex)
}

func compareDigest(path string, actual []byte, expectedHex string) error {
	expectedHex = strings.ToLower(strings.TrimSpace(expectedHex))
	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) != sha256.Size {
		return &IntegrityError{Path: path, Reason: fmt.Sprintf("reference digest %q is not a SHA-256 hex string", expectedHex)}
	}
	if subtle.ConstantTimeCompare(actual, expected) != 1 {
		return &IntegrityError{
			Path:     path,
			Expected: expectedHex,
			Actual:   hex.EncodeToString(actual),
		}
	}
	return nil
}
