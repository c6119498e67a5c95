package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrUnavailable marks the live store as unreadable right now: not
// installed, no disk-access permission, or mid-copy failure. It is an
// expected condition; callers skip the cycle and retry later.
var ErrUnavailable = errors.New("live store unavailable")

// Snapshot is an ephemeral copy of the live store, safe to open with
// SQLite because nothing else writes to it. Close removes the copy.
type Snapshot struct {
	dir string

	// DBPath is the copied database file inside the snapshot directory.
	DBPath string
}

// TakeSnapshot copies the live store at srcPath, plus its -wal segment
// when one exists, into a fresh directory under tmpRoot (os.TempDir
// when empty). The live files are only ever read with plain file I/O;
// no SQLite connection touches them, so the external writer is never
// blocked.
func TakeSnapshot(srcPath, tmpRoot string) (*Snapshot, error) {
	if _, err := os.Stat(srcPath); err != nil {
		return nil, fmt.Errorf("source: %s: %w: %w", srcPath, ErrUnavailable, err)
	}

	dir, err := os.MkdirTemp(tmpRoot, "noted-snapshot-")
	if err != nil {
		return nil, fmt.Errorf("source: snapshot dir: %w", err)
	}

	dbCopy := filepath.Join(dir, "db")
	if err := copyFile(srcPath, dbCopy); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("source: copy %s: %w: %w", srcPath, ErrUnavailable, err)
	}

	// The WAL segment holds committed rows not yet checkpointed into the
	// main file; without it the copy can be missing the newest records.
	walPath := srcPath + "-wal"
	if _, err := os.Stat(walPath); err == nil {
		if err := copyFile(walPath, dbCopy+"-wal"); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("source: copy %s: %w: %w", walPath, ErrUnavailable, err)
		}
	}

	return &Snapshot{dir: dir, DBPath: dbCopy}, nil
}

// Close deletes the snapshot directory.
func (s *Snapshot) Close() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
