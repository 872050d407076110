package archive

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/logger"
	"github.com/Ning0612/sympack/internal/pathutil"
	"github.com/Ning0612/sympack/internal/progress"
)

// Option configures CompressDir and Uncompress
type Option func(*options)

type options struct {
	reporter progress.Reporter
	log      logger.Logger
	comment  string
}

// WithReporter sends per-entry progress to r
func WithReporter(r progress.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithLogger logs each entry at debug level
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithComment sets the archive comment written by CompressDir
func WithComment(comment string) Option {
	return func(o *options) {
		o.comment = comment
	}
}

func newOptions(opts []Option) *options {
	o := &options{reporter: &progress.NullReporter{}, log: &logger.NullLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stats summarizes one CompressDir or Uncompress run
type Stats struct {
	Entries int
	Bytes   int64
}

// CompressDir writes every regular file under dir into output. Entry
// names are root followed by the file's path relative to dir. The first
// failure aborts; entries written before it stay in the archive, which
// is still closed with a valid central directory.
func CompressDir(dir, output string, level int, password string, mode WriteMode, root string, opts ...Option) (Stats, error) {
	o := newOptions(opts)
	var stats Stats

	if !pathutil.IsDir(dir) {
		return stats, fmt.Errorf("%w: %s", domain.ErrNotDirectory, dir)
	}

	w, err := OpenWriter(output, mode, level)
	if err != nil {
		return stats, err
	}

	o.log.Info("compressing directory", "dir", dir, "output", output, "level", level, "mode", mode.String(), "encrypted", password != "")

	// output may live inside dir
	self := pathutil.Complete(output)
	skip := func(path string, isDir bool) bool {
		return isDir || !pathutil.IsFile(path) || pathutil.Complete(path) == self
	}

	var files []string
	var total int64
	werr := fsys.Walk(dir, func(path, rel string, isDir bool) error {
		if !skip(path, isDir) {
			files = append(files, path)
			if st, err := pathutil.Stat(path); err == nil {
				total += st.Size
			}
		}
		return nil
	})
	o.reporter.SetTotal(len(files), total)

	if werr == nil {
		werr = fsys.Walk(dir, func(path, rel string, isDir bool) error {
			if skip(path, isDir) {
				return nil
			}
			data, err := fsys.ReadFile(path)
			if err != nil {
				return err
			}
			name := root + rel
			o.reporter.Start(name, int64(len(data)))
			if err := w.Append(data, name, password, ""); err != nil {
				o.reporter.Error(err)
				return err
			}
			o.reporter.Update(int64(len(data)))
			o.reporter.Complete()

			stats.Entries++
			stats.Bytes += int64(len(data))
			o.reporter.OverallProgress(stats.Entries, stats.Bytes)
			o.log.Debug("added entry", logger.KeyEntry, name, logger.KeySize, len(data))
			return nil
		})
	}

	cerr := w.Close(o.comment)
	if werr != nil {
		return stats, &domain.PartialError{Op: "compress", Path: output, Completed: stats.Entries, Err: werr}
	}
	return stats, cerr
}

// Uncompress extracts every entry of zip below dir, creating parent
// directories as needed. Names that would escape dir are rejected with
// domain.ErrInsecurePath. The first failure aborts; files extracted
// before it remain.
func Uncompress(zip, dir, password string, opts ...Option) (Stats, error) {
	o := newOptions(opts)
	var stats Stats

	r, err := OpenReader(zip)
	if err != nil {
		return stats, err
	}
	defer r.Close()

	o.log.Info("extracting archive", "zip", zip, "dir", dir, "entries", r.Entries(), "encrypted", password != "")

	var total int64
	for _, h := range r.entries {
		total += int64(h.size)
	}
	o.reporter.SetTotal(r.Entries(), total)

	var content []byte
	for err = r.LocateFirst(); err == nil; err = r.LocateNext() {
		if xerr := extractCurrent(r, dir, password, &content, o); xerr != nil {
			o.reporter.Error(xerr)
			return stats, &domain.PartialError{Op: "extract", Path: zip, Completed: stats.Entries, Err: xerr}
		}
		stats.Entries++
		stats.Bytes += int64(len(content))
		o.reporter.OverallProgress(stats.Entries, stats.Bytes)
	}
	if !errors.Is(err, io.EOF) {
		return stats, err
	}
	return stats, nil
}

// extractCurrent writes the reader's current entry below dir, reusing
// content as the decompression buffer
func extractCurrent(r *Reader, dir, password string, content *[]byte, o *options) error {
	// two calls: the first sizes the name buffer
	info, err := r.Info(nil, nil)
	if err != nil {
		return err
	}
	nameBuf := make([]byte, info.NameSize)
	if info, err = r.Info(nameBuf, nil); err != nil {
		return err
	}

	target, err := securePath(dir, info.Name)
	if err != nil {
		return err
	}

	if info.IsDir() {
		*content = (*content)[:0]
		return fsys.MakeDir(target, true)
	}

	if uint64(cap(*content)) < info.Size {
		*content = make([]byte, info.Size)
	}
	*content = (*content)[:info.Size]

	o.reporter.Start(info.Name, int64(info.Size))
	if err := r.Content(*content, password); err != nil {
		return err
	}
	if err := fsys.WriteFile(target, *content); err != nil {
		return err
	}
	o.reporter.Update(int64(info.Size))
	o.reporter.Complete()
	o.log.Debug("extracted entry", logger.KeyEntry, info.Name, logger.KeySize, info.Size)
	return nil
}

// securePath joins name onto dir, refusing absolute names and names
// that climb out of dir
func securePath(dir, name string) (string, error) {
	clean := pathutil.ToSlash(name)
	if clean == "" || strings.HasPrefix(clean, "/") || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %q", domain.ErrInsecurePath, name)
	}
	for _, part := range strings.Split(clean, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", domain.ErrInsecurePath, name)
		}
	}
	return pathutil.Join(dir, filepath.FromSlash(clean)), nil
}
