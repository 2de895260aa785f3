package facetnav

import (
	"github.com/echoface/facetnav/util"
)

const (
	DebugLevel = util.DebugLevel
	InfoLevel  = util.InfoLevel
	WarnLevel  = util.WarnLevel
	ErrorLevel = util.ErrorLevel
)

// Logger pluggable logging used by the engine and its packages
type Logger = util.FacetLogger

// SetLogger replace the package wide logger, nil restores the default
func SetLogger(l Logger) {
	if l == nil {
		l = util.NewDefaultLogger(nil)
	}
	util.Logger = l
}

// SetLogLevel level of the default logger
func SetLogLevel(level int) {
	util.LogLevel = level
}

// engineLogger per engine logger falling back to the package wide one
type engineLogger struct {
	l Logger
}

func (el engineLogger) get() Logger {
	if el.l != nil {
		return el.l
	}
	return util.Logger
}

func (el engineLogger) Debugf(format string, v ...interface{}) {
	el.get().Debugf(format, v...)
}

func (el engineLogger) Infof(format string, v ...interface{}) {
	el.get().Infof(format, v...)
}

func (el engineLogger) Warnf(format string, v ...interface{}) {
	el.get().Warnf(format, v...)
}

func (el engineLogger) Errorf(format string, v ...interface{}) {
	el.get().Errorf(format, v...)
}

// LogIfErr log with error detail appended when err is not nil
func (el engineLogger) LogIfErr(err error, format string, v ...interface{}) {
	if err == nil {
		return
	}
	el.get().Errorf(format+" error:%s", append(v, err.Error())...)
}
