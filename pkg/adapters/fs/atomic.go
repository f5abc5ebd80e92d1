package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix marks in-flight version files. The watcher ignores them and
// they never match the version pattern.
const TempFilePrefix = "timeline-tmp-"

// writeFileAtomic stages data next to filename and renames it into place.
// The aspect directory is created on first write.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create aspect directory: %w", err)
	}

	staged, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to stage version file: %w", err)
	}
	name := staged.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(name)
		}
	}()

	if err := stage(staged, data, perm); err != nil {
		return fmt.Errorf("failed to stage version file: %w", err)
	}
	if err := os.Rename(name, filename); err != nil {
		return fmt.Errorf("failed to publish %s: %w", filepath.Base(filename), err)
	}
	return nil
}

// stage writes, flushes and closes f.
func stage(f *os.File, data []byte, perm os.FileMode) error {
	_, err := f.Write(data)
	if err == nil {
		err = f.Chmod(perm)
	}
	if err == nil {
		err = f.Sync()
	}
	return errors.Join(err, f.Close())
}
