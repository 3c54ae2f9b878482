// Package logging sets up the process-wide zerolog logger for xmsync: JSON or
// console lines on stderr, optionally mirrored into a size-rotated file.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel is a level name as written in the config file.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

const megabyte = 1 << 20

// FileConfig describes the rotating log file. An empty Name means no file.
type FileConfig struct {
	Name     string
	MaxBytes int64 // rounded up to whole megabytes
	Backups  int
}

// Config is the logger setup for one process.
type Config struct {
	Level  LogLevel
	Pretty bool      // console output instead of JSON
	Output io.Writer // defaults to os.Stderr
	File   FileConfig
}

// DefaultConfig logs JSON at info level to stderr, with 10 MB files and five
// backups once a file name is set.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		File:   FileConfig{MaxBytes: 10 * megabyte, Backups: 5},
	}
}

// rotating is the open log file, replaced on every Setup.
var rotating struct {
	sync.Mutex
	w *lumberjack.Logger
}

// Setup builds the logger, installs it as zerolog's global logger and returns it.
// With a file configured the console only gets a copy in pretty mode; JSON
// lines go to the file alone.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	if f := reopen(cfg.File); f != nil {
		if cfg.Pretty {
			out = zerolog.MultiLevelWriter(f, out)
		} else {
			out = f
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

func reopen(cfg FileConfig) io.Writer {
	rotating.Lock()
	defer rotating.Unlock()

	if rotating.w != nil {
		rotating.w.Close()
		rotating.w = nil
	}
	if cfg.Name == "" {
		return nil
	}

	rotating.w = &lumberjack.Logger{
		Filename:   cfg.Name,
		MaxSize:    max(1, int((cfg.MaxBytes+megabyte-1)/megabyte)),
		MaxBackups: cfg.Backups,
	}
	return rotating.w
}

// Close flushes and closes the log file, if one is open.
func Close() error {
	rotating.Lock()
	defer rotating.Unlock()

	if rotating.w == nil {
		return nil
	}
	err := rotating.w.Close()
	rotating.w = nil
	return err
}

// parseLevel accepts zerolog level names plus "warning"; anything else is info.
func parseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = "warn"
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return l
}

// NewLogger derives a logger for one component from the global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForRun derives a logger for one job run. Every line carries the job name
// and a fresh run_id, which is also returned for the run summary.
func ForRun(job string) (zerolog.Logger, string) {
	runID := uuid.NewString()
	return log.With().Str("job", job).Str("run_id", runID).Logger(), runID
}

// Levels as used across xmsync:
//
//   debug: cache hits and stores, page windows, per-item skips
//   info:  job start and finish, page summaries, writes
//   warn:  429 blocks, retries, cache errors, failed pages and items
//   error: requests that failed after retries, first-page failures, bad config
//
// Common fields: job, run_id, component, endpoint, offset, limit, error_class,
// target_name.
