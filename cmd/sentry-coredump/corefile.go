package main

import (
	"io"
	"os"

	"golang.org/x/xerrors"
)

// spoolCore copies a core image to a new temporary file in dir and closes
// it, so that the debugger sees the complete image. The caller removes the
// returned path.
func spoolCore(r io.Reader, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "core-*")
	if err != nil {
		return "", xerrors.Errorf("creating core file: %w", err)
	}
	path := f.Name()

	_, err = io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", xerrors.Errorf("writing core file: %w", err)
	}
	return path, nil
}
