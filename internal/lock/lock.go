package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/pathutil"
)

const (
	// LockFilePrefix starts the name of every lock file
	LockFilePrefix = ".sympack-"
	// DefaultStaleTimeout is the default duration after which a foreign-host lock is considered stale
	DefaultStaleTimeout = 30 * time.Minute
)

// LockInfo contains metadata about the lock holder
type LockInfo struct {
	PID       int                  `json:"pid"`
	Hostname  string               `json:"hostname"`
	StartTime time.Time            `json:"start_time"`
	Operation domain.OperationKind `json:"operation,omitempty"`
	Target    string               `json:"target"`
}

// FileLock guards one archive or executable against concurrent writers.
// Every process locking the same target path uses the same lock file.
type FileLock struct {
	lockPath     string
	target       string
	staleTimeout time.Duration
	info         *LockInfo
}

// DefaultDir returns the directory used when no lock directory is configured
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(configDir, "sympack", "locks"), nil
}

// NameFor returns the lock file name for target
func NameFor(target string) string {
	sum := sha256.Sum256([]byte(pathutil.Complete(target)))
	return LockFilePrefix + hex.EncodeToString(sum[:8]) + ".lock"
}

// NewFileLock creates a lock for target inside lockDir
func NewFileLock(lockDir, target string) (*FileLock, error) {
	if lockDir == "" {
		var err error
		if lockDir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}

	if err := fsys.MakeDir(lockDir, true); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &FileLock{
		lockPath:     pathutil.Join(lockDir, NameFor(target)),
		target:       pathutil.Complete(target),
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// Path returns the lock file path
func (l *FileLock) Path() string {
	return l.lockPath
}

// SetStaleTimeout sets the duration after which a foreign-host lock is considered stale
func (l *FileLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire takes the lock for op. Re-acquiring a lock this instance
// already holds only updates the recorded operation.
func (l *FileLock) Acquire(op domain.OperationKind) error {
	if l.info != nil {
		existing, err := l.readLockInfo()
		if err == nil && l.isHeldByThisInstance(existing) {
			existing.Operation = op
			if err := l.writeLockInfo(existing); err != nil {
				return err
			}
			// keep l.info in step with the file, Release compares them
			l.info.Operation = op
			return nil
		}
	}

	existing, err := l.readLockInfo()
	if err == nil {
		if !l.isStale(existing) {
			return &LockError{Holder: existing, Reason: "lock is held by another process"}
		}
		if err := fsys.RemoveFile(l.lockPath); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Operation: op,
		Target:    l.target,
	}

	// "wx" creates exclusively, so only one process wins a race
	file, err := fsys.Open(l.lockPath, "wx")
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// the winner may not have written its info yet
			holder, _ := l.readLockInfo()
			return &LockError{Holder: holder, Reason: "lock acquired by another process during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		file.Close()
		fsys.RemoveFile(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release releases the lock. Releasing a lock that is not held is a no-op.
func (l *FileLock) Release() error {
	if l.info == nil {
		return nil
	}

	existing, err := l.readLockInfo()
	if err != nil {
		l.info = nil
		return nil
	}

	if !l.isHeldByThisInstance(existing) {
		l.info = nil
		return fmt.Errorf("lock was stolen by another process")
	}

	if err := fsys.RemoveFile(l.lockPath); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.info = nil
	return nil
}

// IsLocked checks if a live lock exists for the target
func (l *FileLock) IsLocked() bool {
	info, err := l.readLockInfo()
	if err != nil {
		return false
	}
	return !l.isStale(info)
}

// GetHolder returns information about the current lock holder
func (l *FileLock) GetHolder() (*LockInfo, error) {
	info, err := l.readLockInfo()
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, fmt.Errorf("lock is stale")
	}
	return info, nil
}

// ForceRelease removes the lock file whoever holds it
func (l *FileLock) ForceRelease() error {
	if err := fsys.RemoveFile(l.lockPath); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.info = nil
	return nil
}

func (l *FileLock) readLockInfo() (*LockInfo, error) {
	data, err := fsys.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &info, nil
}

func (l *FileLock) writeLockInfo(info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return fsys.WriteFile(l.lockPath, data)
}

// isStale reports whether the holder is gone. On this host that means
// the process is dead, however old the lock; a lock from another host
// only goes stale after staleTimeout.
func (l *FileLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()

	if info.Hostname == hostname {
		return !processExists(info.PID)
	}
	return time.Since(info.StartTime) > l.staleTimeout
}

func (l *FileLock) isHeldByCurrentProcess(info *LockInfo) bool {
	hostname, _ := os.Hostname()
	return info.PID == os.Getpid() && info.Hostname == hostname
}

// isHeldByThisInstance checks if the lock is held by this specific FileLock instance
func (l *FileLock) isHeldByThisInstance(info *LockInfo) bool {
	if l.info == nil {
		return false
	}
	return l.isHeldByCurrentProcess(info) &&
		l.info.StartTime.Equal(info.StartTime) &&
		l.info.Operation == info.Operation
}

// LockError represents an error when lock cannot be acquired. It matches
// domain.ErrOperationInProgress.
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (held by PID %d on %s since %s, %s %s)",
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
			e.Holder.Operation,
			e.Holder.Target,
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

func (e *LockError) Is(target error) bool {
	return target == domain.ErrOperationInProgress
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var le *LockError
	return errors.As(err, &le)
}
