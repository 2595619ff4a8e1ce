//go:build windows

package preflight

import "os"

func accessReadWrite(path string) error {
	tmp, err := os.CreateTemp(path, ".ytdlg-access-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	_ = tmp.Close()
	return os.Remove(name)
}
