// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile replaces the file at path with data in one step:
// the content is staged in a temp file next to the target, synced, and
// renamed over it. A crash leaves either the old file or the complete
// new one, never a torn write.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// The staging file must share the target's directory, or the
	// rename could cross filesystems and stop being atomic.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".malichat-*")
	if err != nil {
		return fmt.Errorf("failed to stage write: %w", err)
	}

	if err := fillAndClose(tmp, data, perm); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}

// fillAndClose writes the staged content, applies the target mode,
// syncs to disk, and closes the handle. The file is closed on every
// path so the caller can always remove it.
func fillAndClose(f *os.File, data []byte, perm os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write staged content: %w", err)
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync staged content: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close staged file: %w", err)
	}
	return nil
}
