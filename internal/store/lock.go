package store

import (
	"fmt"
	"os"
	"path/filepath"

	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
)

const lockFileName = "write.lock"

// Lock is the store's single-writer lock, per §4.3: only one indexing run
// may commit against a store directory at a time. Readers never take it.
type Lock struct {
	path string
}

// AcquireLock takes the store's write lock, failing with ErrLockContention
// if another writer already holds it.
func AcquireLock(dir string) (*Lock, error) {
	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, bdxerrors.Newf(bdxerrors.ErrLockContention, "store %s is already locked by another writer", dir)
		}
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &Lock{path: path}, nil
}

// Release drops the write lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
