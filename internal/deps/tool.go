package deps

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
)

// CheckCachedTool reports whether the bootstrapped executable exists and is
// runnable. The digest is not checked here.
func CheckCachedTool(name, path string) Status {
	status := Status{Requirement: Requirement{
		Name:        name,
		Command:     path,
		Description: "Runs manifest queries and downloads",
	}}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		status.Detail = "not fetched yet (run ytdlg bootstrap)"
	case err != nil:
		status.Detail = err.Error()
	case info.IsDir():
		status.Detail = "path is a directory"
	case runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0:
		status.Detail = "present but not executable"
	default:
		status.Available = true
	}
	return status
}
