package lock

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/testutil"
)

func newLock(t *testing.T, dir, target string) *FileLock {
	t.Helper()
	l, err := NewFileLock(dir, target)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}
	return l
}

func TestNewFileLock(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	lockDir := filepath.Join(dir, "nested", "locks")
	l := newLock(t, lockDir, "out.zip")

	if st, err := os.Stat(lockDir); err != nil || !st.IsDir() {
		t.Fatalf("lock directory not created: %v", err)
	}
	if filepath.Dir(l.Path()) != lockDir {
		t.Errorf("lock path %s not in %s", l.Path(), lockDir)
	}
}

func TestNameFor(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.zip")

	if NameFor(a) != NameFor(filepath.Join(dir, ".", "a.zip")) {
		t.Error("equivalent paths should share a lock file")
	}
	if NameFor(a) == NameFor(filepath.Join(dir, "b.zip")) {
		t.Error("different targets should not share a lock file")
	}
}

func TestAcquireRelease(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	l := newLock(t, dir, "out.zip")

	if err := l.Acquire(domain.OpCompress); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Fatalf("lock file not created: %v", err)
	}

	holder, err := l.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder failed: %v", err)
	}
	if holder.PID != os.Getpid() || holder.Operation != domain.OpCompress {
		t.Errorf("unexpected holder %+v", holder)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("lock file still exists after release")
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release failed: %v", err)
	}
}

// TestAcquireTwice_ThenRelease guards against re-acquiring with another
// operation leaving l.info out of step with the file, which made Release
// report the lock as stolen
func TestAcquireTwice_ThenRelease(t *testing.T) {
	dir := t.TempDir()
	l := newLock(t, dir, "app.exe")

	if err := l.Acquire(domain.OpStrip); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := l.Acquire(domain.OpEmbed); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	info, err := l.readLockInfo()
	if err != nil {
		t.Fatalf("readLockInfo failed: %v", err)
	}
	if info.Operation != domain.OpEmbed || l.info.Operation != domain.OpEmbed {
		t.Errorf("operation not updated: file=%s mem=%s", info.Operation, l.info.Operation)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release after re-acquire failed: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("lock file still exists after release")
	}
}

func TestIndependentTargets(t *testing.T) {
	dir := t.TempDir()
	a := newLock(t, dir, "a.zip")
	b := newLock(t, dir, "b.zip")

	if err := a.Acquire(domain.OpCompress); err != nil {
		t.Fatal(err)
	}
	defer a.Release()
	if err := b.Acquire(domain.OpCompress); err != nil {
		t.Errorf("lock on another target should not block: %v", err)
	}
	b.Release()
}

func TestConcurrentAcquire(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	const goroutines = 10
	var wg sync.WaitGroup
	var start sync.WaitGroup
	start.Add(1)

	acquired := make([]bool, goroutines)
	errs := make([]error, goroutines)
	locks := make([]*FileLock, goroutines)
	for i := range locks {
		locks[i] = newLock(t, dir, "shared.zip")
	}

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			start.Wait()
			if err := locks[idx].Acquire(domain.OpCompress); err != nil {
				errs[idx] = err
				return
			}
			acquired[idx] = true
		}(i)
	}
	start.Done()
	wg.Wait()

	acquireCount, lockErrors := 0, 0
	for i := 0; i < goroutines; i++ {
		if acquired[i] {
			acquireCount++
			locks[i].Release()
		}
		if errs[i] != nil && IsLockError(errs[i]) {
			lockErrors++
		}
	}

	if acquireCount != 1 {
		t.Errorf("expected exactly 1 acquire, got %d", acquireCount)
	}
	if lockErrors != goroutines-1 {
		t.Errorf("expected %d lock errors, got %d (%v)", goroutines-1, lockErrors, errs)
	}
}

func TestIsLocked(t *testing.T) {
	l := newLock(t, t.TempDir(), "x.zip")

	if l.IsLocked() {
		t.Error("lock should not be held initially")
	}
	l.Acquire(domain.OpExtract)
	if !l.IsLocked() {
		t.Error("lock should be held after acquire")
	}
	l.Release()
	if l.IsLocked() {
		t.Error("lock should not be held after release")
	}
}

func TestForceRelease(t *testing.T) {
	dir := t.TempDir()
	l := newLock(t, dir, "x.zip")
	other := newLock(t, dir, "x.zip")

	if err := l.Acquire(domain.OpCompress); err != nil {
		t.Fatal(err)
	}
	if err := other.ForceRelease(); err != nil {
		t.Fatalf("ForceRelease failed: %v", err)
	}
	if other.IsLocked() {
		t.Error("lock should not be held after force release")
	}
	if err := other.ForceRelease(); err != nil {
		t.Errorf("ForceRelease without a lock file: %v", err)
	}
}

func TestStaleDetection_ProcessDead(t *testing.T) {
	l := newLock(t, t.TempDir(), "x.zip")

	hostname, _ := os.Hostname()
	stale := &LockInfo{
		PID:       999999,
		Hostname:  hostname,
		StartTime: time.Now().Add(-time.Hour),
		Operation: domain.OpCompress,
	}
	if err := l.writeLockInfo(stale); err != nil {
		t.Fatalf("failed to write stale lock info: %v", err)
	}
	if !l.isStale(stale) {
		t.Fatal("lock of a dead process should be stale")
	}

	if err := l.Acquire(domain.OpExtract); err != nil {
		t.Fatalf("should take over a stale lock: %v", err)
	}
	defer l.Release()

	holder, err := l.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder failed: %v", err)
	}
	if holder.PID != os.Getpid() {
		t.Error("expected current process to be holder")
	}
}

func TestStaleDetection_LongRunning(t *testing.T) {
	dir := t.TempDir()
	l := newLock(t, dir, "x.zip")
	l.SetStaleTimeout(50 * time.Millisecond)

	if err := l.Acquire(domain.OpCompress); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	time.Sleep(100 * time.Millisecond)

	if !l.IsLocked() {
		t.Error("a live process keeps its lock past the timeout")
	}

	err := newLock(t, dir, "x.zip").Acquire(domain.OpExtract)
	if !IsLockError(err) {
		t.Errorf("expected LockError, got: %v", err)
	}
}

func TestStaleDetection_DifferentHost(t *testing.T) {
	l := newLock(t, t.TempDir(), "x.zip")
	l.SetStaleTimeout(100 * time.Millisecond)

	foreign := &LockInfo{
		PID:       12345,
		Hostname:  "foreign-host-" + testutil.RandomString(8),
		StartTime: time.Now().Add(-time.Hour),
		Operation: domain.OpEmbed,
	}
	if err := l.writeLockInfo(foreign); err != nil {
		t.Fatalf("failed to write foreign lock info: %v", err)
	}

	if err := l.Acquire(domain.OpStrip); err != nil {
		t.Fatalf("should acquire stale foreign lock: %v", err)
	}
	l.Release()

	foreign.StartTime = time.Now()
	l.writeLockInfo(foreign)
	if err := l.Acquire(domain.OpStrip); !IsLockError(err) {
		t.Errorf("fresh foreign lock should block, got %v", err)
	}
}

func TestLockError(t *testing.T) {
	dir := t.TempDir()
	l1 := newLock(t, dir, "x.zip")
	l2 := newLock(t, dir, "x.zip")

	if err := l1.Acquire(domain.OpCompress); err != nil {
		t.Fatal(err)
	}
	defer l1.Release()

	err := l2.Acquire(domain.OpExtract)
	if err == nil {
		t.Fatal("expected error when lock is held")
	}
	if !IsLockError(err) {
		t.Errorf("expected LockError, got: %T", err)
	}
	if !errors.Is(err, domain.ErrOperationInProgress) {
		t.Error("LockError should match ErrOperationInProgress")
	}
	if !IsLockError(errors.Join(errors.New("context"), err)) {
		t.Error("IsLockError should see through wrapping")
	}
}

func TestInvalidLockFile(t *testing.T) {
	l := newLock(t, t.TempDir(), "x.zip")
	if err := os.WriteFile(l.Path(), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if l.IsLocked() {
		t.Error("unreadable lock file should not count as locked")
	}
	if _, err := l.GetHolder(); err == nil {
		t.Error("GetHolder should fail on an unreadable lock file")
	}
}

func TestSetStaleTimeout(t *testing.T) {
	l := newLock(t, t.TempDir(), "x.zip")
	l.SetStaleTimeout(5 * time.Minute)
	if l.staleTimeout != 5*time.Minute {
		t.Errorf("expected timeout %v, got %v", 5*time.Minute, l.staleTimeout)
	}
}
