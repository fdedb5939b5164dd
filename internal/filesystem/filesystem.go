package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"media-toolkit/internal/logging"
)

// Exists reports whether path exists. Stat errors other than not-exist count as existing
// so callers never overwrite something they could not inspect.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// EnsureDir creates path (and parents) if missing.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// Move renames src to dst, copying across filesystems when rename is not possible.
// An existing dst is replaced, which lets callers reserve a name first.
func Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return fmt.Errorf("rename %s -> %s: %w", src, dst, err)
	}

	logging.Debug("Cross-device move, copying %s -> %s", src, dst)
	if err := copyFile(src, dst); err != nil {
		return err
	}

	if err := os.Remove(src); err != nil {
		logging.Warn("failed to remove source after copy %s: %v", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			logging.Warn("failed to close %s: %v", src, err)
		}
	}()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		discardPartial(out, dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		discardPartial(out, dst)
		return fmt.Errorf("sync destination: %w", err)
	}
	return out.Close()
}

func discardPartial(f *os.File, path string) {
	_ = f.Close()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove partial copy %s: %v", path, err)
	}
}

// ClearDir removes every entry inside dir and returns the number of entries that
// could not be removed. A missing directory counts as already clear.
func ClearDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("failed to read directory %s: %v", dir, err)
			return 1
		}
		return 0
	}

	failed := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logging.Debug("failed to remove %s: %v", path, err)
			failed++
		}
	}
	return failed
}

// DirStats returns the number of regular files directly inside dir and their total size.
func DirStats(dir string) (files int, size int64, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files++
		size += info.Size()
	}
	return files, size, nil
}

// Reserve atomically creates an empty file at path and reports whether this
// call created it. A false result with a nil error means the name is taken.
func Reserve(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	return true, f.Close()
}

// IsSafeName reports whether name can be joined to a directory without escaping it.
func IsSafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return !strings.Contains(name, "..")
}
