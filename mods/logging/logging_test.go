package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"} {
		lvl, ok := ParseLogLevelP(strings.ToLower(name))
		require.True(t, ok)
		require.Equal(t, name, lvl.String())
	}
	_, ok := ParseLogLevelP("verbose")
	require.False(t, ok)
	require.Equal(t, LevelAll, ParseLogLevel("verbose"))
	require.Equal(t, "NONE", ParseLogLevel("none").String())

	var cfg struct {
		Level Level `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"warn"}`), &cfg))
	require.Equal(t, LevelWarn, cfg.Level)
}

func TestLevelPatterns(t *testing.T) {
	SetLevel("fusion-*", LevelDebug)
	SetLevel("fusion-engine", LevelError)
	defer func() {
		levelLock.Lock()
		delete(levelConfig, "fusion-*")
		delete(levelConfig, "fusion-engine")
		levelLock.Unlock()
	}()

	require.Equal(t, LevelDebug, GetLevel("fusion-config"))
	require.Equal(t, LevelError, GetLevel("fusion-engine"))
	require.Equal(t, DefaultLevel(), GetLevel("other"))
}

func TestLogOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLog("test-log", buf)
	log.SetLevel(LevelInfo)

	total, warns, errs := Counts()
	log.Debug("hidden")
	log.Infof("layout %d/%d", 22, 24)
	log.Warn("drift", 0.5)
	log.Error("failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "INFO  test-log")
	require.True(t, strings.HasSuffix(lines[0], "layout 22/24"))
	require.True(t, strings.HasSuffix(lines[1], "drift 0.5"))
	require.Contains(t, lines[2], "ERROR")
	require.NotContains(t, buf.String(), "\033[")

	t2, w2, e2 := Counts()
	require.Equal(t, total+3, t2)
	require.Equal(t, warns+1, w2)
	require.Equal(t, errs+1, e2)

	require.False(t, log.DebugEnabled())
	require.True(t, log.LogEnabled(LevelWarn))
}

func TestSlog(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLog("slog", buf)
	l.SetLevel(LevelDebug)

	logger := Wrap(l, func(name string, r slog.Record) bool {
		return r.Message != "skip"
	})
	logger.Info("reset", "vars", 8)
	logger.Info("skip")
	logger.With("state", "q_wi").Warn("renormalized")

	out := buf.String()
	require.Contains(t, out, "reset vars=8")
	require.NotContains(t, out, "skip")
	require.Contains(t, out, "renormalized state=q_wi")
}

func TestConfigureFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "fusion.log")
	require.NoError(t, Configure(&Config{
		Filename:     filename,
		Append:       true,
		MaxSize:      1,
		DefaultLevel: "INFO",
	}))
	defer Configure(&PresetConfigStdout)

	GetLog("file-log").Info("written to file")

	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Contains(t, string(b), "written to file")

	require.Error(t, Configure(&Config{Filename: filename, Append: true, RotateSchedule: "not a schedule"}))
}

func TestConfigureReplacesFile(t *testing.T) {
	dir := t.TempDir()
	conf := func(name string) *Config {
		return &Config{
			Filename:       filepath.Join(dir, name),
			Append:         true,
			RotateSchedule: "@daily",
			DefaultLevel:   "INFO",
		}
	}
	defer Configure(&PresetConfigStdout)

	require.NoError(t, Configure(conf("first.log")))
	first := fileWriter
	require.NotNil(t, first)
	require.Len(t, rotateCron.Entries(), 1)

	require.NoError(t, Configure(conf("second.log")))
	require.NotSame(t, first, fileWriter)
	require.Len(t, rotateCron.Entries(), 1)

	// a bad schedule keeps the current file
	second := fileWriter
	require.Error(t, Configure(&Config{Filename: filepath.Join(dir, "third.log"), Append: true, RotateSchedule: "never"}))
	require.Same(t, second, fileWriter)
	require.Len(t, rotateCron.Entries(), 1)

	require.NoError(t, Configure(&PresetConfigStdout))
	require.Nil(t, fileWriter)
	require.Empty(t, rotateCron.Entries())
}
