package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/sirupsen/logrus"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// Output is the logrus logger all package loggers write to
var Output = newOutput()

func newOutput() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	// filtering happens per package
	l.SetLevel(logrus.DebugLevel)
	return l
}

// pkgLogger adapts a logrus entry to the ILogger interface. Each package
// gets its own level.
type pkgLogger struct {
	level logger.LogLevel
	entry *logrus.Entry
}

func (l *pkgLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *pkgLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.entry.Debugf(format, args...)
	}
}

func (l *pkgLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.entry.Infof(format, args...)
	}
}

func (l *pkgLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.entry.Warnf(format, args...)
	}
}

func (l *pkgLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.entry.Errorf(format, args...)
	}
}

func (l *pkgLogger) Panicf(format string, args ...interface{}) {
	l.entry.Panicf(format, args...)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger is a logger.Factory writing through Output
func CreateLogger(pkgName string) logger.ILogger {
	return &pkgLogger{
		level: logger.INFO,
		entry: Output.WithField("pkg", pkgName),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
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

// loggedPackages are the names passed to logger.GetLogger across the module
var loggedPackages = []string{"kvvfs", "vfs", "lockmgr", "store", "transport/rpc", "rpc", "cli"}

// InitLoggers installs the logrus backed factory and sets level on every
// package logger.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	logger.SetLoggerFactory(CreateLogger)
	for _, pkg := range loggedPackages {
		logger.GetLogger(pkg).SetLevel(lvl)
	}
	return nil
}
