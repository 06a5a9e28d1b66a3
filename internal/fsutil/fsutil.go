package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file next to destPath and renames it
// over destPath. Parent directories are created as needed. On failure the
// destination is left untouched.
func WriteFileAtomic(destPath string, data []byte, perm os.FileMode) error {
	return writeAtomic(destPath, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyToFileAtomic streams r into destPath with the same guarantees as
// WriteFileAtomic. It returns the number of bytes written.
func CopyToFileAtomic(destPath string, r io.Reader, perm os.FileMode) (int64, error) {
	var n int64
	err := writeAtomic(destPath, perm, func(w io.Writer) error {
		var err error
		n, err = io.Copy(w, r)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func writeAtomic(destPath string, perm os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	_ = tmp.Sync() // best-effort
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	_ = os.Chmod(tmpName, perm)

	if err := os.Rename(tmpName, destPath); err != nil {
		return fmt.Errorf("rename tmp -> dest: %w", err)
	}
	return nil
}

// IsRegularFile reports whether path exists and is a regular file.
func IsRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
