package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/pathutil"
)

// SlogLogger slog 實作，擁有檔案 writers
type SlogLogger struct {
	entry
	writers []io.WriteCloser // Shutdown 時關閉
}

// entry 共用的記錄邏輯；子 logger 只持有 entry，不擁有 writers
type entry struct {
	logger    *slog.Logger
	sanitizer *Sanitizer
}

// NewSlogLogger 建立新的 slog logger
func NewSlogLogger(config Config) (*SlogLogger, error) {
	var writers []io.Writer
	var owned []io.WriteCloser

	for _, output := range config.Outputs {
		switch output.Type {
		case OutputStdout, OutputStderr:
			w := output.Writer
			if w == nil {
				w = os.Stdout
				if output.Type == OutputStderr {
					w = os.Stderr
				}
			} else if wc, ok := w.(io.WriteCloser); ok && !isStdStream(wc) {
				owned = append(owned, wc)
			}
			writers = append(writers, w)
		case OutputFile:
			if !config.File.Enabled {
				continue
			}
			fw, err := createFileWriter(config.File)
			if err != nil {
				return nil, fmt.Errorf("failed to create file writer: %w", err)
			}
			writers = append(writers, fw)
			owned = append(owned, fw)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	out := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: convertLevel(config.Level)}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &SlogLogger{
		entry:   entry{logger: slog.New(handler), sanitizer: NewSanitizer()},
		writers: owned,
	}, nil
}

func isStdStream(w io.WriteCloser) bool {
	return w == os.Stdout || w == os.Stderr || w == os.Stdin
}

// createFileWriter 建立 lumberjack rotation writer，並建立上層目錄
func createFileWriter(config FileConfig) (io.WriteCloser, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	if dir := pathutil.ParentDir(config.Path, false); dir != "" {
		if err := fsys.MakeDir(dir, true); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

// convertLevel 轉換內部 Level 到 slog.Level
func convertLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (e entry) log(level slog.Level, msg string, args []any) {
	if !e.logger.Enabled(context.Background(), level) {
		return
	}
	e.logger.Log(context.Background(), level, e.sanitizer.Sanitize(msg), e.sanitizer.SanitizeArgs(args)...)
}

func (e entry) Debug(msg string, args ...any) { e.log(slog.LevelDebug, msg, args) }
func (e entry) Info(msg string, args ...any)  { e.log(slog.LevelInfo, msg, args) }
func (e entry) Warn(msg string, args ...any)  { e.log(slog.LevelWarn, msg, args) }
func (e entry) Error(msg string, args ...any) { e.log(slog.LevelError, msg, args) }

// With 建立子 logger，context 參數同樣經過 sanitizer
func (e entry) With(args ...any) Logger {
	return childLogger{entry{
		logger:    e.logger.With(e.sanitizer.SanitizeArgs(args)...),
		sanitizer: e.sanitizer,
	}}
}

// Sync lumberjack 每次寫入即落地，無需額外 flush
func (e entry) Sync() error {
	return nil
}

// Shutdown 關閉所有 writers，回傳最後一個錯誤
func (l *SlogLogger) Shutdown() error {
	var lastErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	l.writers = nil
	return lastErr
}

// childLogger 不擁有 writers，Shutdown 不做事
type childLogger struct {
	entry
}

func (c childLogger) Shutdown() error {
	return nil
}
