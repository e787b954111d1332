// Package logging provides named, leveled loggers writing to the console
// and to a rotated log file.
//
//	logging.Configure(&logging.Config{Filename: "./fusion.log", DefaultLevel: "INFO"})
//	log := logging.GetLog("fusion-engine")
//	log.Infof("layout %s", layout)
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

/*
	Log rotation schedule, cron spec with seconds

	"0 30 * * * *"             Every hour on the half hour
	"@every 1h30m"             Every hour thirty
	@daily @hourly @midnight
*/

type Config struct {
	Console            bool          `json:"console" yaml:"console"`
	Filename           string        `json:"filename" yaml:"filename"`
	Append             bool          `json:"append" yaml:"append"`
	RotateSchedule     string        `json:"rotateSchedule" yaml:"rotateSchedule"`
	MaxSize            int           `json:"maxSize" yaml:"maxSize"`
	MaxBackups         int           `json:"maxBackups" yaml:"maxBackups"`
	MaxAge             int           `json:"maxAge" yaml:"maxAge"`
	Compress           bool          `json:"compress" yaml:"compress"`
	UTC                bool          `json:"utc" yaml:"utc"`
	Levels             []LevelConfig `json:"levels" yaml:"levels"`
	DefaultPrefixWidth int           `json:"defaultPrefixWidth" yaml:"defaultPrefixWidth"`
	DefaultLevel       string        `json:"defaultLevel" yaml:"defaultLevel"`
}

type LevelConfig struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Level   string `json:"level" yaml:"level"`
}

// PresetConfigStdout writes everything to stdout, for tools and tests.
var PresetConfigStdout = Config{
	Filename:           "-",
	Append:             true,
	DefaultPrefixWidth: 20,
	DefaultLevel:       "TRACE",
}

// PresetConfigDiscard drops every message.
var PresetConfigDiscard = Config{
	Filename:     ".",
	DefaultLevel: "ERROR",
}

var (
	rotateCron    *cron.Cron
	rotateEntry   cron.EntryID
	fileWriter    *lumberjack.Logger
	defaultWriter = []*logWriter{{Writer: os.Stdout, isTerm: true}}
	configLock    sync.Mutex
)

type logWriter struct {
	io.Writer
	isTerm bool
}

// Configure sets the writers and levels of loggers created afterwards.
// Filename "-" is stdout, "." discards, anything else is a file rotated
// by size (MaxSize in MB) and, if RotateSchedule is set, by time.
func Configure(cfg *Config) error {
	configLock.Lock()
	defer configLock.Unlock()

	for _, c := range cfg.Levels {
		SetLevel(c.Pattern, ParseLogLevel(c.Level))
	}
	SetDefaultPrefixWidth(cfg.DefaultPrefixWidth)
	if cfg.DefaultLevel != "" {
		SetDefaultLevel(ParseLogLevel(cfg.DefaultLevel))
	}

	switch cfg.Filename {
	case ".":
		releaseFile()
		defaultWriter = []*logWriter{}
		return nil
	case "", "-":
		releaseFile()
		defaultWriter = []*logWriter{{Writer: os.Stdout, isTerm: true}}
		return nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  !cfg.UTC,
	}
	if !cfg.Append {
		if err := lj.Rotate(); err != nil {
			return fmt.Errorf("logging rotate %s: %w", cfg.Filename, err)
		}
	}
	var entry cron.EntryID
	if cfg.RotateSchedule != "" {
		if rotateCron == nil {
			rotateCron = cron.New(cron.WithSeconds())
			rotateCron.Start()
		}
		id, err := rotateCron.AddFunc(cfg.RotateSchedule, func() { lj.Rotate() })
		if err != nil {
			lj.Close()
			return fmt.Errorf("logging rotate schedule %q: %w", cfg.RotateSchedule, err)
		}
		entry = id
	}
	releaseFile()
	fileWriter, rotateEntry = lj, entry
	defaultWriter = []*logWriter{{Writer: lj}}
	if cfg.Console {
		defaultWriter = append(defaultWriter, &logWriter{Writer: os.Stdout, isTerm: true})
	}
	return nil
}

// releaseFile closes the current log file and drops its rotation job.
// configLock must be held.
func releaseFile() {
	if rotateCron != nil && rotateEntry != 0 {
		rotateCron.Remove(rotateEntry)
		rotateEntry = 0
	}
	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
}

// GetLog returns a logger writing to the configured writers.
func GetLog(name string) Log {
	configLock.Lock()
	defer configLock.Unlock()
	return &levelLogger{
		name:        name,
		level:       GetLevel(name),
		underlying:  defaultWriter,
		prefixWidth: prefixWidthDefault,
	}
}

// NewLog returns a logger writing to w only.
func NewLog(name string, w io.Writer) Log {
	return &levelLogger{
		name:        name,
		level:       GetLevel(name),
		underlying:  []*logWriter{{Writer: w}},
		prefixWidth: prefixWidthDefault,
	}
}
