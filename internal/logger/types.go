package logger

import (
	"io"
	"strings"
)

// Logger is the logging interface every package writes through. Archive
// operations log one Info line per operation and one Debug line per
// entry, tagged with the keys below.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Sync() error     // 強制 flush
	Shutdown() error // 優雅關閉
}

// Attribute keys shared by archive log lines
const (
	KeyOp     = "op"
	KeyTarget = "target"
	KeyEntry  = "entry"
	KeySize   = "size"
)

// Level 日誌級別
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// levelAliases maps config spellings to levels
var levelAliases = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "unknown"
	}
	return levelNames[l]
}

// LookupLevel resolves a level name case-insensitively
func LookupLevel(s string) (Level, bool) {
	l, ok := levelAliases[strings.ToLower(s)]
	return l, ok
}

// ParseLevel resolves s, falling back to LevelInfo
func ParseLevel(s string) Level {
	if l, ok := LookupLevel(s); ok {
		return l
	}
	return LevelInfo
}

// Format is the encoding of each log line
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// LookupFormat resolves "text" or "json" case-insensitively
func LookupFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "text":
		return FormatText, true
	case "json":
		return FormatJSON, true
	}
	return FormatText, false
}

// ParseFormat resolves s, falling back to FormatText
func ParseFormat(s string) Format {
	f, _ := LookupFormat(s)
	return f
}

// Output 日誌輸出目標
type Output int

const (
	OutputStdout Output = iota
	OutputStderr
	OutputFile
)

// Config selects level, format and destinations. File is used only when
// an OutputFile output is listed.
type Config struct {
	Level   Level
	Format  Format
	Outputs []OutputConfig
	File    FileConfig
}

// OutputConfig is one destination. Writer overrides stdout or stderr.
type OutputConfig struct {
	Type   Output
	Writer io.Writer
}

// FileConfig controls the rotated log file
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// DefaultConfig logs info and above as text to stderr, matching the
// log section defaults of the config file
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Format:  FormatText,
		Outputs: []OutputConfig{{Type: OutputStderr}},
		File: FileConfig{
			MaxSizeMB:  10,
			MaxAgeDays: 30,
			MaxBackups: 3,
		},
	}
}
