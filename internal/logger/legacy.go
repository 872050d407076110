package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LegacyLogger 舊版 logger（fmt 輸出，用於回退）
// Debug/Info 寫到 stdout，Warn/Error 寫到 stderr。
type LegacyLogger struct {
	level     Level
	mu        sync.RWMutex
	sanitizer *Sanitizer
	stdout    io.Writer
	stderr    io.Writer
}

// NewLegacyLogger 建立 legacy logger
func NewLegacyLogger() *LegacyLogger {
	return &LegacyLogger{
		level:     LevelInfo,
		sanitizer: NewSanitizer(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

// SetLevel 設定日誌級別
func (l *LegacyLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *LegacyLogger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// print 輸出 "[LEVEL] msg k=v ..."
func (l *LegacyLogger) print(level Level, msg string, args []any) {
	if !l.shouldLog(level) {
		return
	}
	w := l.stdout
	if level >= LevelWarn {
		w = l.stderr
	}

	var b strings.Builder
	b.WriteString("[" + strings.ToUpper(level.String()) + "] ")
	b.WriteString(l.sanitizer.Sanitize(msg))
	args = l.sanitizer.SanitizeArgs(args)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	b.WriteByte('\n')
	io.WriteString(w, b.String())
}

func (l *LegacyLogger) Debug(msg string, args ...any) { l.print(LevelDebug, msg, args) }
func (l *LegacyLogger) Info(msg string, args ...any)  { l.print(LevelInfo, msg, args) }
func (l *LegacyLogger) Warn(msg string, args ...any)  { l.print(LevelWarn, msg, args) }
func (l *LegacyLogger) Error(msg string, args ...any) { l.print(LevelError, msg, args) }

// With legacy 不支援 context，回傳自己
func (l *LegacyLogger) With(args ...any) Logger {
	return l
}

func (l *LegacyLogger) Sync() error {
	return nil
}

func (l *LegacyLogger) Shutdown() error {
	return nil
}
