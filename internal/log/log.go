// Package log initializes the process-wide zerolog logger: stderr always,
// plus an optional log file, both filtered to the configured level.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// string representation that directly corresponds to zerolog.Level
type LogLevel string

const (
	DEBUG    LogLevel = "debug"
	INFO     LogLevel = "info"
	WARN     LogLevel = "warn"
	ERROR    LogLevel = "error"
	DISABLED LogLevel = "disabled"
	TRACE    LogLevel = "trace"
)

var levels = map[LogLevel]zerolog.Level{
	DEBUG:    zerolog.DebugLevel,
	INFO:     zerolog.InfoLevel,
	WARN:     zerolog.WarnLevel,
	ERROR:    zerolog.ErrorLevel,
	DISABLED: zerolog.Disabled,
	TRACE:    zerolog.TraceLevel,
}

var LogFile *os.File

func (ll LogLevel) String() string {
	return string(ll)
}

func (ll *LogLevel) Set(v string) error {
	if _, ok := levels[LogLevel(v)]; !ok {
		return fmt.Errorf("must be one of %s", strings.Join(levelNames(), ", "))
	}
	*ll = LogLevel(v)
	return nil
}

func (ll LogLevel) Type() string {
	return "LogLevel"
}

func levelNames() []string {
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, string(name))
	}
	return names
}

// InitWithLogLevel sets up the global logger at the given level, writing to
// stderr and, when logPath is non-empty, to the file at logPath as well.
func InitWithLogLevel(logLevel LogLevel, logPath string) error {
	level, ok := levels[logLevel]
	if !ok {
		return fmt.Errorf("invalid log level (options: %s)", strings.Join(levelNames(), ", "))
	}

	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{
			Writer: &zerolog.LevelWriterAdapter{Writer: os.Stderr},
			Level:  level,
		},
	}

	if logPath != "" {
		var err error
		LogFile, err = os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
		if err != nil {
			return fmt.Errorf("failed to open log file: %v", err)
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: LogFile},
			Level:  level,
		})
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Caller().Logger()
	zerolog.SetGlobalLevel(level)
	log.Logger = logger
	return nil
}
