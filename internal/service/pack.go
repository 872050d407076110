package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Ning0612/sympack/internal/archive"
	"github.com/Ning0612/sympack/internal/checksum"
	"github.com/Ning0612/sympack/internal/config"
	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/lock"
	"github.com/Ning0612/sympack/internal/logger"
	"github.com/Ning0612/sympack/internal/pathutil"
	"github.com/Ning0612/sympack/internal/progress"
	"github.com/Ning0612/sympack/internal/resource"
	"github.com/Ning0612/sympack/internal/state"
)

// PackService orchestrates archive and embedding operations. Every
// mutating operation holds the lock of its target and is recorded in
// history.
type PackService struct {
	config   *config.Config
	lockDir  string
	stateMgr *state.Manager
	checksum *checksum.DefaultCalculator
	reporter progress.Reporter
	log      logger.Logger
}

// CompressRequest describes a directory to archive
type CompressRequest struct {
	Dir      string
	Output   string
	Level    int
	Password string
	Root     string
	Mode     archive.WriteMode
	Comment  string
}

// EmbedRequest describes a script to embed into an executable. When
// Output is set, Exe is copied there first and left untouched.
type EmbedRequest struct {
	Exe    string
	Script string
	Output string
	Level  int
}

// TargetStatus reports the lock and last success of a target
type TargetStatus struct {
	Target      string
	Locked      bool
	Holder      *lock.LockInfo
	LastSuccess *state.OperationRecord
}

// NewPackService creates a service from cfg. History is kept in the
// configured state directory.
func NewPackService(cfg *config.Config) (*PackService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	lockDir, err := cfg.LockDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lock directory: %w", err)
	}
	stateDir, err := cfg.StateDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state directory: %w", err)
	}

	stateMgr, err := state.NewManager(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create state manager: %w", err)
	}

	return &PackService{
		config:   cfg,
		lockDir:  lockDir,
		stateMgr: stateMgr,
		checksum: checksum.NewDefaultCalculator(),
	}, nil
}

// CompressDefaults returns a request for dir and output filled from config
func (s *PackService) CompressDefaults(dir, output string) CompressRequest {
	return CompressRequest{
		Dir:      dir,
		Output:   output,
		Level:    s.config.Archive.Level,
		Password: s.config.Archive.Password,
		Root:     s.config.Archive.Root,
		Mode:     s.config.WriteMode(),
		Comment:  s.config.Archive.Comment,
	}
}

// SetProgressReporter sets the progress reporter for archive operations
func (s *PackService) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
}

// SetLogger overrides the global logger
func (s *PackService) SetLogger(l logger.Logger) {
	s.log = l
}

func (s *PackService) getReporter() progress.Reporter {
	if s.reporter != nil {
		return s.reporter
	}
	return progress.NullReporter{}
}

func (s *PackService) getLogger() logger.Logger {
	if s.log != nil {
		return s.log
	}
	return logger.Get()
}

// run executes fn holding the lock of target and records the result
func (s *PackService) run(ctx context.Context, kind domain.OperationKind, source, target string, fn func(log logger.Logger, res *domain.OperationResult) error) (domain.OperationResult, error) {
	res := domain.OperationResult{
		Kind:      kind,
		Source:    source,
		Target:    target,
		StartTime: time.Now(),
	}
	log := logger.ForOperation(s.getLogger(), kind, target)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	fileLock, err := lock.NewFileLock(s.lockDir, target)
	if err != nil {
		return res, fmt.Errorf("failed to create file lock: %w", err)
	}
	if s.config.Lock.StaleTimeout > 0 {
		fileLock.SetStaleTimeout(s.config.Lock.StaleTimeout)
	}

	log.Debug("acquiring lock", "lock", fileLock.Path())
	if err := fileLock.Acquire(kind); err != nil {
		log.Error("failed to acquire lock", "error", err)
		return res, fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if err := fileLock.Release(); err != nil {
			log.Error("failed to release lock", "error", err)
		}
	}()

	err = fn(log, &res)
	res.EndTime = time.Now()
	// the target may exist only now, resolve it the way History does
	res.Target = pathutil.Complete(res.Target)
	if err != nil {
		res.Errors = append(res.Errors, err)
		log.Error("operation failed", "error", err, "duration", res.Duration())
	} else {
		log.Info("operation completed",
			"entries", res.Entries,
			"bytes", res.Bytes,
			"duration", res.Duration(),
		)
	}

	if _, recErr := s.stateMgr.RecordOperation(state.RecordFromResult(res)); recErr != nil {
		log.Warn("failed to record history", "error", recErr)
	}
	return res, err
}

// digest returns the sha256 of path, logging instead of failing
func (s *PackService) digest(ctx context.Context, log logger.Logger, path string) string {
	sum, err := s.checksum.CalculateFile(ctx, path, checksum.SHA256, nil)
	if err != nil {
		log.Warn("failed to digest output", "error", err)
		return ""
	}
	return sum
}

// Compress archives req.Dir into req.Output
func (s *PackService) Compress(ctx context.Context, req CompressRequest) (domain.OperationResult, error) {
	output := pathutil.Complete(req.Output)
	return s.run(ctx, domain.OpCompress, pathutil.Complete(req.Dir), output, func(log logger.Logger, res *domain.OperationResult) error {
		stats, err := archive.CompressDir(req.Dir, req.Output, req.Level, req.Password, req.Mode, req.Root,
			archive.WithReporter(s.getReporter()),
			archive.WithLogger(log),
			archive.WithComment(req.Comment),
		)
		res.Entries, res.Bytes = stats.Entries, stats.Bytes
		if err != nil {
			return err
		}
		res.Digest = s.digest(ctx, log, req.Output)
		return nil
	})
}

// Extract unpacks the archive at zipPath into dir
func (s *PackService) Extract(ctx context.Context, zipPath, dir, password string) (domain.OperationResult, error) {
	target := pathutil.Complete(dir)
	return s.run(ctx, domain.OpExtract, pathutil.Complete(zipPath), target, func(log logger.Logger, res *domain.OperationResult) error {
		stats, err := archive.Uncompress(zipPath, dir, password,
			archive.WithReporter(s.getReporter()),
			archive.WithLogger(log),
		)
		res.Entries, res.Bytes = stats.Entries, stats.Bytes
		return err
	})
}

// Embed appends req.Script to an executable as its main script
func (s *PackService) Embed(ctx context.Context, req EmbedRequest) (domain.OperationResult, error) {
	exe := req.Exe
	if req.Output != "" {
		exe = req.Output
	}
	target := pathutil.Complete(exe)

	return s.run(ctx, domain.OpEmbed, pathutil.Complete(req.Script), target, func(log logger.Logger, res *domain.OperationResult) error {
		if req.Output != "" && target != pathutil.Complete(req.Exe) {
			log.Debug("copying executable", "from", req.Exe)
			if err := fsys.CopyFile(req.Exe, req.Output, true); err != nil {
				return err
			}
		}

		if err := resource.Embed(exe, req.Script, req.Level); err != nil {
			return err
		}
		res.Entries = 1
		if size, err := archive.PayloadOf(exe); err == nil {
			res.Bytes = size
		}
		res.Digest = s.digest(ctx, log, exe)
		return nil
	})
}

// Strip removes the embedded archive from exe
func (s *PackService) Strip(ctx context.Context, exe string) (domain.OperationResult, error) {
	target := pathutil.Complete(exe)
	return s.run(ctx, domain.OpStrip, "", target, func(log logger.Logger, res *domain.OperationResult) error {
		size, err := archive.PayloadOf(exe)
		if err != nil && !errors.Is(err, archive.ErrNoArchive) {
			return err
		}
		if err := resource.Strip(exe); err != nil {
			return err
		}
		res.Bytes = size
		res.Digest = s.digest(ctx, log, exe)
		return nil
	})
}

// Payload returns the main script embedded in exe
func (s *PackService) Payload(exe string) ([]byte, error) {
	return resource.Load(exe)
}

// List returns the entries of the archive at zipPath in directory order
func (s *PackService) List(zipPath string) ([]domain.EntryInfo, error) {
	r, err := archive.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	entries := make([]domain.EntryInfo, 0, r.Entries())
	for err = r.LocateFirst(); err == nil; err = r.LocateNext() {
		info, err := r.Current()
		if err != nil {
			return nil, err
		}
		entries = append(entries, info)
	}
	if !errors.Is(err, io.EOF) {
		return nil, err
	}
	return entries, nil
}

// History returns recent operations on target, or on every target when
// target is empty
func (s *PackService) History(target string, limit int) ([]state.OperationRecord, error) {
	if target == "" {
		return s.stateMgr.GetAllHistory(limit)
	}
	return s.stateMgr.GetHistory(pathutil.Complete(target), limit)
}

// Status reports whether target is locked and when it last succeeded
func (s *PackService) Status(target string) (*TargetStatus, error) {
	target = pathutil.Complete(target)
	fileLock, err := lock.NewFileLock(s.lockDir, target)
	if err != nil {
		return nil, err
	}
	if s.config.Lock.StaleTimeout > 0 {
		fileLock.SetStaleTimeout(s.config.Lock.StaleTimeout)
	}

	status := &TargetStatus{Target: target, Locked: fileLock.IsLocked()}
	if status.Locked {
		if holder, err := fileLock.GetHolder(); err == nil {
			status.Holder = holder
		}
	}
	if status.LastSuccess, err = s.stateMgr.GetLastSuccess(target); err != nil {
		return nil, err
	}
	return status, nil
}

// ForceUnlock removes the lock of target whoever holds it
func (s *PackService) ForceUnlock(target string) error {
	fileLock, err := lock.NewFileLock(s.lockDir, pathutil.Complete(target))
	if err != nil {
		return err
	}
	s.getLogger().Warn("forcing unlock", "target", target, "lock", fileLock.Path())
	return fileLock.ForceRelease()
}

// Close releases the history database
func (s *PackService) Close() error {
	if s.stateMgr != nil {
		return s.stateMgr.Close()
	}
	return nil
}

var _ io.Closer = (*PackService)(nil)
