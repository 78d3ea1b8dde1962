package core

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LogLevel is the minimum severity written by the engine logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(func() {
		singleton = &logger{newLogger(os.Stderr)}
	})
	return singleton
}

func newLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "Voxel 🧊 ",
	})
	l.SetLevel(log.DebugLevel)
	// Callers go through the Log* helpers, report the frame above them.
	l.SetCallerOffset(1)
	return l
}

// SetLogLevel changes the level of the process-wide logger. Unknown levels
// fall back to debug.
func SetLogLevel(level LogLevel) {
	getLogger().SetLevel(parseLevel(level))
}

// SetLogOutput redirects the process-wide logger.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

func parseLevel(level LogLevel) log.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LogLevelInfo:
		return log.InfoLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.DebugLevel
	}
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

// LogFatal logs and terminates the process.
func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
