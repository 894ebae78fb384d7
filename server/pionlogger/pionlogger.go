// Package pionlogger routes pion's leveled logging into the namespaced
// logger. Every pion subsystem gets its own namespace under "pion", so
// PEERCALLS_LOG=pion:ice:debug enables a single subsystem.
package pionlogger

import (
	"fmt"

	"github.com/peer-calls/relay/server/logger"
	"github.com/pion/logging"
)

type Factory struct {
	log logger.Logger
}

var _ logging.LoggerFactory = Factory{}

func NewFactory(log logger.Logger) Factory {
	return Factory{
		log: log.WithNamespaceAppended("pion"),
	}
}

func (f Factory) NewLogger(subsystem string) logging.LeveledLogger {
	return &leveled{
		log: f.log.WithNamespaceAppended(subsystem),
	}
}

type leveled struct {
	log logger.Logger
}

func (l *leveled) logf(level logger.Level, format string, args []interface{}) {
	if !l.log.IsLevelEnabled(level) {
		return
	}

	l.write(level, fmt.Sprintf(format, args...))
}

func (l *leveled) write(level logger.Level, msg string) {
	switch level {
	case logger.LevelTrace:
		l.log.Trace(msg, nil)
	case logger.LevelDebug:
		l.log.Debug(msg, nil)
	case logger.LevelInfo:
		l.log.Info(msg, nil)
	case logger.LevelWarn:
		l.log.Warn(msg, nil)
	case logger.LevelError:
		l.log.Error(msg, nil, nil)
	}
}

func (l *leveled) Trace(msg string) { l.write(logger.LevelTrace, msg) }
func (l *leveled) Debug(msg string) { l.write(logger.LevelDebug, msg) }
func (l *leveled) Info(msg string)  { l.write(logger.LevelInfo, msg) }
func (l *leveled) Warn(msg string)  { l.write(logger.LevelWarn, msg) }
func (l *leveled) Error(msg string) { l.write(logger.LevelError, msg) }

func (l *leveled) Tracef(format string, args ...interface{}) {
	l.logf(logger.LevelTrace, format, args)
}

func (l *leveled) Debugf(format string, args ...interface{}) {
	l.logf(logger.LevelDebug, format, args)
}

func (l *leveled) Infof(format string, args ...interface{}) {
	l.logf(logger.LevelInfo, format, args)
}

func (l *leveled) Warnf(format string, args ...interface{}) {
	l.logf(logger.LevelWarn, format, args)
}

func (l *leveled) Errorf(format string, args ...interface{}) {
	l.logf(logger.LevelError, format, args)
}
