package toolcache

import (
	"testing"

	"github.com/gofrs/flock"
)

func holdLock(t *testing.T, path string) func() {
	t.Helper()
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire lock %s: locked=%v err=%v", path, locked, err)
	}
	return func() { _ = lock.Unlock() }
}
