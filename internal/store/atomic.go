package store

import (
	"os"
	"path/filepath"
)

// writeFileExclusive creates path and writes data to it, failing (with an
// os.IsExist error) if the file already exists. O_EXCL makes the
// existence-check-and-create a single atomic kernel operation rather than a
// separate Stat followed by a create; the data is written afterwards, so a
// concurrent reader can see the file before it is fully written.
func writeFileExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// writeFileAtomic overwrites path with data via write-to-temp-then-rename,
// so a reader never observes a partially written file. Adapted from the
// teacher's storage/binary atomic file operations.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
