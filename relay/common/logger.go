package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Relay Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

/*
	Note: Lines look like

	   2026-01-02T15:04:05.000Z INFO  relay     | Relay listening on 0.0.0.0:8080
	   2026-01-02T15:04:05.120Z WARN  transport | remote=10.0.0.7:51234 Dropping message: ...

	The level may change while other goroutines log. Every line is a single Write
	under the writer lock, lines of concurrent connections never interleave.
*/

// logOutput is the writer of every relay logger (stdout unless replaced in tests)
var logOutput = &syncWriter{w: os.Stdout}

// syncWriter serializes writes to the underlying writer
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(line)
}

func (s *syncWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

// relayLogger is the ILogger installed for every named logger of the relay
type relayLogger struct {
	name  string
	level atomic.Int32
}

func (l *relayLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *relayLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *relayLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *relayLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *relayLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

func (l *relayLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logf(logger.CRITICAL, "%s", msg)
	panic(msg)
}

func (l *relayLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if logger.LogLevel(l.level.Load()) < level {
		return
	}
	line := fmt.Sprintf("%s %-5s %-9s | %s\n",
		time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		levelName(level), l.name, fmt.Sprintf(format, args...))
	logOutput.write([]byte(line))
}

// levelName returns the short name printed for level
func levelName(level logger.LogLevel) string {
	switch level {
	case logger.DEBUG:
		return "DEBUG"
	case logger.INFO:
		return "INFO"
	case logger.WARNING:
		return "WARN"
	case logger.ERROR:
		return "ERROR"
	case logger.CRITICAL:
		return "CRIT"
	default:
		return "NOTE"
	}
}

// --------------------------------------------------------------------------
// Field Logger
// --------------------------------------------------------------------------

// fieldLogger prefixes every message with fixed key=value pairs
type fieldLogger struct {
	logger.ILogger
	prefix string
}

// WithFields returns a logger that prefixes every message of l with the given
// key value pairs, e.g. WithFields(Logger, "remote", addr) logs "remote=addr msg".
// A trailing key without value is ignored. SetLevel changes the level of l.
func WithFields(l logger.ILogger, kv ...string) logger.ILogger {
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		sb.WriteString(kv[i])
		sb.WriteByte('=')
		sb.WriteString(kv[i+1])
		sb.WriteByte(' ')
	}
	if f, ok := l.(*fieldLogger); ok {
		return &fieldLogger{ILogger: f.ILogger, prefix: f.prefix + sb.String()}
	}
	return &fieldLogger{ILogger: l, prefix: sb.String()}
}

func (f *fieldLogger) Debugf(format string, args ...interface{}) {
	f.ILogger.Debugf("%s%s", f.prefix, fmt.Sprintf(format, args...))
}

func (f *fieldLogger) Infof(format string, args ...interface{}) {
	f.ILogger.Infof("%s%s", f.prefix, fmt.Sprintf(format, args...))
}

func (f *fieldLogger) Warningf(format string, args ...interface{}) {
	f.ILogger.Warningf("%s%s", f.prefix, fmt.Sprintf(format, args...))
}

func (f *fieldLogger) Errorf(format string, args ...interface{}) {
	f.ILogger.Errorf("%s%s", f.prefix, fmt.Sprintf(format, args...))
}

func (f *fieldLogger) Panicf(format string, args ...interface{}) {
	f.ILogger.Panicf("%s%s", f.prefix, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	l := &relayLogger{name: pkgName}
	l.level.Store(int32(logger.INFO))
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerNames are the named loggers used throughout the relay
var loggerNames = []string{"relay", "store", "transport", "client"}

var factoryOnce sync.Once

// InitLoggers installs the custom logger factory (once) and sets the level of all relay loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	// Set as the global logger factory
	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
