package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// acquireLockFile creates path exclusively so that a second process sharing
// the state directory cannot start a run. The returned func removes it.
func acquireLockFile(path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, newError(ErrIO, SelectingTarget, "failed to create state directory", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, newError(ErrRunInProgress, Idle,
			fmt.Sprintf("another reconciliation run is in progress (remove %s if none is)", path), nil)
	}
	if err != nil {
		return nil, newError(ErrIO, Idle, "failed to create lock file", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	f.Close()
	return func() error { return os.Remove(path) }, nil
}
