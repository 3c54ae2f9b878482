package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, LevelInfo, cfg.Level)
	assert.False(t, cfg.Pretty)
	assert.Empty(t, cfg.File.Name, "file logging is opt-in")
	assert.Equal(t, int64(10*megabyte), cfg.File.MaxBytes)
}

func TestParseLevel(t *testing.T) {
	tests := map[LogLevel]zerolog.Level{
		LevelDebug: zerolog.DebugLevel,
		LevelInfo:  zerolog.InfoLevel,
		LevelWarn:  zerolog.WarnLevel,
		LevelError: zerolog.ErrorLevel,
		"WARNING":  zerolog.WarnLevel,
		" Debug ":  zerolog.DebugLevel,
		"":         zerolog.InfoLevel,
		"verbose":  zerolog.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "parseLevel(%q)", in)
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level LogLevel
		shown []string
		drop  []string
	}{
		{level: LevelDebug, shown: []string{"dbg", "inf", "wrn", "err"}},
		{level: LevelInfo, shown: []string{"inf", "wrn", "err"}, drop: []string{"dbg"}},
		{level: LevelWarn, shown: []string{"wrn", "err"}, drop: []string{"dbg", "inf"}},
		{level: LevelError, shown: []string{"err"}, drop: []string{"dbg", "inf", "wrn"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			logger.Debug().Msg("dbg")
			logger.Info().Msg("inf")
			logger.Warn().Msg("wrn")
			logger.Error().Msg("err")

			for _, m := range tt.shown {
				assert.Contains(t, buf.String(), `"message":"`+m+`"`)
			}
			for _, m := range tt.drop {
				assert.NotContains(t, buf.String(), `"message":"`+m+`"`)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	l := NewLogger("xmatters-client")
	l.Info().Msg("ready")

	assert.Contains(t, buf.String(), `"component":"xmatters-client"`)
	assert.Contains(t, buf.String(), `"message":"ready"`)
}

func TestForRun(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger, runID := ForRun("team-regions")
	_, err := uuid.Parse(runID)
	require.NoError(t, err, "run id %q", runID)

	logger.Info().Msg("run started")
	assert.Contains(t, buf.String(), `"job":"team-regions"`)
	assert.Contains(t, buf.String(), `"run_id":"`+runID+`"`)

	_, other := ForRun("team-regions")
	assert.NotEqual(t, runID, other)
}

func TestSetup_FileOnlyWithoutPretty(t *testing.T) {
	name := filepath.Join(t.TempDir(), "xmsync.log")
	console := &bytes.Buffer{}

	logger := Setup(Config{
		Level:  LevelInfo,
		Output: console,
		File:   FileConfig{Name: name, MaxBytes: 1024, Backups: 2},
	})
	t.Cleanup(func() { Close() })

	logger.Info().Msg("to file")
	require.NoError(t, Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Zero(t, console.Len(), "JSON lines should not be echoed to the console")
}

func TestSetup_FileAndPrettyConsole(t *testing.T) {
	name := filepath.Join(t.TempDir(), "xmsync.log")
	console := &bytes.Buffer{}

	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: console, File: FileConfig{Name: name}})
	t.Cleanup(func() { Close() })

	logger.Info().Msg("both sinks")
	require.NoError(t, Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"both sinks"`)
	assert.Contains(t, console.String(), "both sinks")
}

func TestClose_NoFile(t *testing.T) {
	Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}})
	assert.NoError(t, Close())
}
