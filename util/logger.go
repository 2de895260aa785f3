package util

import (
	"fmt"
	"log/slog"
	"os"
)

const (
	DebugLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	LogLevel int         = InfoLevel // control defaultLogger log level
	Logger   FacetLogger = NewDefaultLogger(nil)
)

type (
	// FacetLogger is the logging sink used by every facetnav package,
	// replace util.Logger to route logs into the host application
	FacetLogger interface {
		Debugf(format string, v ...interface{})
		Infof(format string, v ...interface{})
		Warnf(format string, v ...interface{})
		Errorf(format string, v ...interface{})
	}

	// DefaultLogger a slog backed logger, honors LogLevel
	DefaultLogger struct {
		sl *slog.Logger
	}
)

// NewDefaultLogger wrap a slog handler; nil means text output to stderr
func NewDefaultLogger(handler slog.Handler) *DefaultLogger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return &DefaultLogger{sl: slog.New(handler)}
}

func LogDebugIf(condition bool, format string, v ...interface{}) {
	if condition {
		Logger.Debugf(format, v...)
	}
}

func LogInfoIf(condition bool, format string, v ...interface{}) {
	if condition {
		Logger.Infof(format, v...)
	}
}

func LogErrIf(condition bool, format string, v ...interface{}) {
	if condition {
		Logger.Errorf(format, v...)
	}
}

func LogIfErr(err error, format string, v ...interface{}) {
	if err == nil {
		return
	}
	Logger.Errorf(format+" error:%s", append(v, err.Error())...)
}

func LogErr(format string, v ...interface{}) {
	Logger.Errorf(format, v...)
}

func LogWarn(format string, v ...interface{}) {
	Logger.Warnf(format, v...)
}

func LogInfo(format string, v ...interface{}) {
	Logger.Infof(format, v...)
}

func LogDebug(format string, v ...interface{}) {
	Logger.Debugf(format, v...)
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if LogLevel > DebugLevel {
		return
	}
	l.sl.Debug(fmt.Sprintf(format, v...))
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	if LogLevel > InfoLevel {
		return
	}
	l.sl.Info(fmt.Sprintf(format, v...))
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	if LogLevel > WarnLevel {
		return
	}
	l.sl.Warn(fmt.Sprintf(format, v...))
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	if LogLevel > ErrorLevel {
		return
	}
	l.sl.Error(fmt.Sprintf(format, v...))
}

// ParseLogLevel map a config level name into LogLevel value
func ParseLogLevel(name string) (int, error) {
	switch name {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level:%s", name)
}
