package logger

import "go.uber.org/zap"

// EventLogger emits structured lifecycle events (download started, attempt
// finished, strategy advanced) on a dedicated named logger so they can be
// filtered out of regular application logs.
type EventLogger struct {
	log *zap.Logger
}

// NewEventLogger wraps a base logger for event emission
func NewEventLogger(base *zap.Logger) *EventLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &EventLogger{log: base.Named("events")}
}

// LogDownloadEvent records a download lifecycle event
func (e *EventLogger) LogDownloadEvent(event string, fields ...zap.Field) {
	e.log.Info(event, fields...)
}

// LogAppError records an application-level error event
func (e *EventLogger) LogAppError(message string, fields ...zap.Field) {
	e.log.Error(message, fields...)
}
