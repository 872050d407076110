package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/sympack/internal/archive"
	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/logger"
)

// Config represents the complete configuration for sympack
type Config struct {
	// Archive holds defaults for compress and embed
	Archive ArchiveConfig `mapstructure:"archive"`

	// Log configures the structured logger
	Log LogConfig `mapstructure:"log"`

	// State locates the operation history database
	State StateConfig `mapstructure:"state"`

	// Lock locates per-target lock files
	Lock LockConfig `mapstructure:"lock"`
}

// ArchiveConfig 壓縮預設值
type ArchiveConfig struct {
	Level    int    `mapstructure:"level"`
	Password string `mapstructure:"password"`
	Root     string `mapstructure:"root"`
	Mode     string `mapstructure:"mode"`
	Comment  string `mapstructure:"comment"`
}

// LogConfig 日誌配置
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 檔案日誌配置
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// StateConfig 歷史記錄
type StateConfig struct {
	// Dir holds history.db; empty means the user config directory
	Dir string `mapstructure:"dir"`
}

// LockConfig 鎖定檔案
type LockConfig struct {
	Dir          string        `mapstructure:"dir"`
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Archive.Level < 0 || c.Archive.Level > 9 {
		return fmt.Errorf("%w: archive.level must be 0-9, got %d", domain.ErrConfigInvalid, c.Archive.Level)
	}
	if _, err := archive.ParseWriteMode(c.Archive.Mode); err != nil {
		return fmt.Errorf("%w: archive.mode: %v", domain.ErrConfigInvalid, err)
	}

	if _, ok := logger.LookupLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: unknown log level: %s", domain.ErrConfigInvalid, c.Log.Level)
	}
	if _, ok := logger.LookupFormat(c.Log.Format); !ok {
		return fmt.Errorf("%w: unknown log format: %s", domain.ErrConfigInvalid, c.Log.Format)
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when file logging is enabled", domain.ErrConfigInvalid)
	}

	if c.Lock.StaleTimeout < 0 {
		return fmt.Errorf("%w: lock.stale_timeout cannot be negative", domain.ErrConfigInvalid)
	}
	return nil
}

// WriteMode returns the parsed archive.mode
func (c *Config) WriteMode() archive.WriteMode {
	mode, _ := archive.ParseWriteMode(c.Archive.Mode)
	return mode
}

// LoggerConfig converts the log section into a logger.Config
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(c.Log.Level)
	cfg.Format = logger.ParseFormat(c.Log.Format)

	if c.Log.File.Enabled {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       ExpandPath(c.Log.File.Path),
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
	}
	return cfg
}

// StateDir returns the history database directory, expanded
func (c *Config) StateDir() (string, error) {
	if c.State.Dir != "" {
		return ExpandPath(c.State.Dir), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sympack"), nil
}

// LockDir returns the lock directory, expanded
func (c *Config) LockDir() (string, error) {
	if c.Lock.Dir != "" {
		return ExpandPath(c.Lock.Dir), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sympack", "locks"), nil
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand ~ to home directory
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
