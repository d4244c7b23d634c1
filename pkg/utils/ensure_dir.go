package utils

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// EnsureDirForFile creates the parent directories of file if needed.
func EnsureDirForFile(file string) error {
	dir := filepath.Dir(file)
	_, err := os.Stat(dir)
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		err = os.MkdirAll(dir, 0755)
		return errors.Wrapf(err, "mkdir %s", dir)
	default:
		return errors.Wrapf(err, "stat %s", dir)
	}
}
