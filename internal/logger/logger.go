package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/Ning0612/sympack/internal/domain"
)

// LegacyEnv selects the plain fmt logger when set to "true"
const LegacyEnv = "SYMPACK_USE_LEGACY_LOGGER"

var (
	defaultLogger Logger
	mu            sync.RWMutex
	initialized   bool
)

// Init 初始化全域 logger
func Init(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return fmt.Errorf("logger already initialized; call Shutdown() before re-initializing")
	}

	// 回退機制
	if os.Getenv(LegacyEnv) == "true" {
		legacy := NewLegacyLogger()
		legacy.SetLevel(config.Level)
		defaultLogger = legacy
		initialized = true
		return nil
	}

	l, err := NewSlogLogger(config)
	if err != nil {
		return fmt.Errorf("failed to create slog logger: %w", err)
	}

	defaultLogger = l
	initialized = true
	return nil
}

// Get 取得全域 logger，未初始化時回傳 NullLogger
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()

	if !initialized {
		return &NullLogger{}
	}
	return defaultLogger
}

// With 建立帶 context 的子 logger
func With(args ...any) Logger {
	return Get().With(args...)
}

// ForOperation returns a child logger tagged with an archive operation
// and the path it writes
func ForOperation(l Logger, kind domain.OperationKind, target string) Logger {
	if l == nil {
		l = Get()
	}
	return l.With(KeyOp, string(kind), KeyTarget, target)
}

// Sync 強制 flush
func Sync() error {
	return Get().Sync()
}

// Shutdown 關閉全域 logger，重複呼叫無副作用
func Shutdown() error {
	mu.Lock()
	if !initialized {
		mu.Unlock()
		return nil
	}

	l := defaultLogger
	initialized = false
	mu.Unlock() // logger.Shutdown() 可能阻塞，先釋放鎖

	return l.Shutdown()
}

// SetLevel 動態調整日誌級別（僅支援 legacy logger）
func SetLevel(level Level) {
	mu.RLock()
	defer mu.RUnlock()

	if legacy, ok := defaultLogger.(*LegacyLogger); ok {
		legacy.SetLevel(level)
	}
}

// NullLogger 空 logger（不做任何事）
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, args ...any) {}
func (n *NullLogger) Info(msg string, args ...any)  {}
func (n *NullLogger) Warn(msg string, args ...any)  {}
func (n *NullLogger) Error(msg string, args ...any) {}
func (n *NullLogger) With(args ...any) Logger       { return n }
func (n *NullLogger) Sync() error                   { return nil }
func (n *NullLogger) Shutdown() error               { return nil }
