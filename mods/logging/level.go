package logging

import (
	"path"
	"strings"
	"sync"

	gometrics "github.com/rcrowley/go-metrics"
)

type Level int

const (
	LevelAll Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var logLevelNames = []string{"ALL", "TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

func (lvl *Level) UnmarshalJSON(b []byte) error {
	*lvl = ParseLogLevel(strings.Trim(string(b), `"`))
	return nil
}

func (lvl Level) String() string {
	return LogLevelName(lvl)
}

// ParseLogLevel returns LevelAll for unknown names.
// "NONE" is above every level, nothing is logged.
func ParseLogLevel(name string) Level {
	lvl, _ := ParseLogLevelP(name)
	return lvl
}

func ParseLogLevelP(name string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, true
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "NONE":
		return LevelError + 1, true
	default:
		return LevelAll, false
	}
}

func LogLevelName(level Level) string {
	if level >= 0 && int(level) < len(logLevelNames) {
		return logLevelNames[level]
	}
	if level == LevelError+1 {
		return "NONE"
	}
	return "UNKNOWN"
}

var (
	totalCounter = gometrics.NewRegisteredCounter("log.total", gometrics.DefaultRegistry)
	warnCounter  = gometrics.NewRegisteredCounter("log.warns", gometrics.DefaultRegistry)
	errorCounter = gometrics.NewRegisteredCounter("log.errors", gometrics.DefaultRegistry)
)

// Counts returns the number of messages written so far: total, warnings, errors.
func Counts() (total, warns, errs int64) {
	return totalCounter.Count(), warnCounter.Count(), errorCounter.Count()
}

var (
	levelConfig        = map[string]Level{}
	levelLock          sync.RWMutex
	levelDefault       = LevelInfo
	prefixWidthDefault = 18
)

func SetDefaultLevel(lvl Level) {
	levelLock.Lock()
	levelDefault = lvl
	levelLock.Unlock()
}

func DefaultLevel() Level {
	levelLock.RLock()
	defer levelLock.RUnlock()
	return levelDefault
}

func SetDefaultPrefixWidth(width int) {
	if width > 0 {
		prefixWidthDefault = width
	} else {
		prefixWidthDefault = 18
	}
}

// SetLevel sets the level of loggers whose name matches pattern.
// Patterns use path.Match syntax: "fusion-*" matches "fusion-engine".
func SetLevel(pattern string, lvl Level) {
	levelLock.Lock()
	levelConfig[pattern] = lvl
	levelLock.Unlock()
}

// GetLevel returns the level of the longest pattern matching name,
// or the default level.
func GetLevel(name string) Level {
	levelLock.RLock()
	defer levelLock.RUnlock()

	var matchedPattern string
	matchedLevel := levelDefault
	for pattern, level := range levelConfig {
		if ok, err := path.Match(pattern, name); ok && err == nil && len(pattern) > len(matchedPattern) {
			matchedPattern, matchedLevel = pattern, level
		}
	}
	return matchedLevel
}
