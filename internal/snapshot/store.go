package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by LoadBaseline when no baseline has been promoted yet.
var ErrNotFound = errors.New("baseline snapshot not found")

// Store owns the baseline snapshot file and its backup.
type Store struct {
	baseline string
	backup   string
	log      zerolog.Logger
}

// BackupHandle identifies a backup taken by Store.Backup.
type BackupHandle struct {
	path string
}

// Path returns the location of the backup copy.
func (h *BackupHandle) Path() string { return h.path }

// NewStore creates a store for the baseline at baselinePath, backing it up to backupPath.
func NewStore(baselinePath, backupPath string, log zerolog.Logger) *Store {
	return &Store{baseline: baselinePath, backup: backupPath, log: log}
}

// BaselinePath returns the baseline file location.
func (s *Store) BaselinePath() string { return s.baseline }

// HasBaseline reports whether a baseline file exists.
func (s *Store) HasBaseline() bool {
	info, err := os.Stat(s.baseline)
	return err == nil && info.Mode().IsRegular()
}

// LoadBaseline parses the current baseline.
func (s *Store) LoadBaseline() (*Node, error) {
	n, err := ReadFile(s.baseline)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return n, err
}

// Backup copies the baseline aside. It returns a nil handle and no error when
// there is no baseline to protect.
func (s *Store) Backup() (*BackupHandle, error) {
	if !s.HasBaseline() {
		return nil, nil
	}
	if err := copyFile(s.baseline, s.backup); err != nil {
		return nil, fmt.Errorf("failed to back up baseline %s: %w", s.baseline, err)
	}
	return &BackupHandle{path: s.backup}, nil
}

// Restore overwrites the baseline with the backed-up content.
func (s *Store) Restore(h *BackupHandle) error {
	if h == nil {
		return nil
	}
	if err := copyFile(h.path, s.baseline); err != nil {
		return fmt.Errorf("failed to restore baseline from %s: %w", h.path, err)
	}
	return nil
}

// Discard deletes the backup. Failures are logged only.
func (s *Store) Discard(h *BackupHandle) {
	if h == nil {
		return
	}
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", h.path).Msg("failed to remove baseline backup")
	}
}

// Promote copies the candidate snapshot over the baseline.
func (s *Store) Promote(candidatePath string) error {
	if err := copyFile(candidatePath, s.baseline); err != nil {
		return fmt.Errorf("failed to promote %s to baseline: %w", candidatePath, err)
	}
	return nil
}

// copyFile replaces dst with the content of src. The data is written to a
// temporary file in dst's directory and renamed into place, so dst is either
// the old or the new content, never a partial write.
func copyFile(src, dst string) error {
	if sameFile(src, dst) {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if info, err := in.Stat(); err == nil {
		mode = info.Mode().Perm()
	}
	applyMode(tmpName, dst, mode)
	return os.Rename(tmpName, dst)
}

// applyMode gives tmp the permissions of the file it replaces, or fallback
// when there is none yet.
func applyMode(tmp, dst string, fallback os.FileMode) {
	if info, err := os.Stat(dst); err == nil {
		fallback = info.Mode().Perm()
	}
	_ = os.Chmod(tmp, fallback)
}

// CopyFile is the atomic copy used for snapshot files, exported for callers
// that stage parser output next to the baseline.
func CopyFile(src, dst string) error {
	return copyFile(src, dst)
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	applyMode(tmpName, path, 0644)
	return os.Rename(tmpName, path)
}
