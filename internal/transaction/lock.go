package transaction

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// StaleLockThreshold is the age after which a lock left behind by a
	// crashed process is taken over.
	StaleLockThreshold = 10 * time.Minute

	// LockFileName is the advisory lock guarding the state directory.
	LockFileName = "pharm.lock"
)

// ErrLockExists is matched by every LockHeldError.
var ErrLockExists = errors.New("state lock exists: another pharm process may be running")

// LockHeldError names the process holding the state lock, as far as the
// lock file tells.
type LockHeldError struct {
	Path  string
	PID   int       // 0 when the lock file is unreadable
	Since time.Time // zero when the lock file is unreadable
}

func (e *LockHeldError) Error() string {
	if e.PID == 0 {
		return fmt.Sprintf("%s: %v", e.Path, ErrLockExists)
	}
	return fmt.Sprintf("%s: held by pid %d since %s", e.Path, e.PID, e.Since.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrLockExists) match.
func (e *LockHeldError) Is(target error) bool {
	return target == ErrLockExists
}

// Lock is an advisory lock on the state directory.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the state lock in dir, creating dir when needed. A lock
// whose file is older than StaleLockThreshold is replaced once; any other
// existing lock yields a *LockHeldError.
func AcquireLock(ctx context.Context, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := filepath.Join(dir, LockFileName)
	file, err := createExclusive(path)
	if errors.Is(err, os.ErrExist) {
		if !isLockStale(path) {
			return nil, readHolder(path)
		}
		os.Remove(path)
		file, err = createExclusive(path)
		if errors.Is(err, os.ErrExist) {
			return nil, readHolder(path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	if err := writeHolder(file, os.Getpid(), time.Now()); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}

	return &Lock{path: path, file: file}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release removes the lock. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path == "" {
		return nil
	}

	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
}

func writeHolder(file *os.File, pid int, now time.Time) error {
	data := fmt.Sprintf("pid=%d\ntimestamp=%s\n", pid, now.UTC().Format(time.RFC3339))
	if _, err := file.WriteString(data); err != nil {
		return fmt.Errorf("write lock data: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// readHolder parses the pid=/timestamp= lines written by writeHolder.
func readHolder(path string) *LockHeldError {
	held := &LockHeldError{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return held
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			held.PID, _ = strconv.Atoi(value)
		case "timestamp":
			held.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return held
}

func isLockStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > StaleLockThreshold
}
