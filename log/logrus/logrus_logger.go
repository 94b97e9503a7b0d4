// Package logrus sends the SDK's logs to a Logrus logger. A level set with
// github.com/go-kit/log/level picks the Logrus level of the entry, and a
// "msg" key becomes its message.
package logrus

import (
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sirupsen/logrus"
)

var errMissingValue = errors.New("(MISSING)")

type logrusLogger struct {
	logger   logrus.FieldLogger
	fallback logrus.Level
}

// NewLogger returns a log.Logger writing to logger. Entries without a level
// are written at InfoLevel.
func NewLogger(logger logrus.FieldLogger) log.Logger {
	return NewLoggerWithLevel(logger, logrus.InfoLevel)
}

// NewLoggerWithLevel is NewLogger with another level for entries that carry
// none.
func NewLoggerWithLevel(logger logrus.FieldLogger, fallback logrus.Level) log.Logger {
	return &logrusLogger{logger: logger, fallback: fallback}
}

func (l *logrusLogger) Log(keyvals ...interface{}) error {
	var (
		fields = logrus.Fields{}
		lvl    = l.fallback
		msg    string
	)
	for i := 0; i < len(keyvals); i += 2 {
		var v interface{} = errMissingValue
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		if keyvals[i] == level.Key() {
			if lv, ok := v.(level.Value); ok {
				lvl = toLogrus(lv, l.fallback)
				continue
			}
		}
		k := fmt.Sprint(keyvals[i])
		if k == "msg" {
			msg = fmt.Sprint(v)
			continue
		}
		fields[k] = v
	}
	l.logger.WithFields(fields).Log(lvl, msg)
	return nil
}

func toLogrus(v level.Value, fallback logrus.Level) logrus.Level {
	switch v.String() {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	}
	return fallback
}
