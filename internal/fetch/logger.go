package fetch

import (
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// leveledLogger adapts a zap logger to retryablehttp.LeveledLogger.
// Retry chatter stays at debug; failed attempts surface as warnings.
type leveledLogger struct {
	log *zap.SugaredLogger
}

func newLeveledLogger(l *zap.SugaredLogger) retryablehttp.LeveledLogger {
	return &leveledLogger{log: l.Named("http")}
}

func (l *leveledLogger) Error(msg string, keysAndValues ...any) {
	l.log.Warnw(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warnw(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}
