// Package zap implements telemetry.Logger over go.uber.org/zap's sugared
// logger, giving the runtime's structured keyvals pairs a real
// level-filtered, field-encoded sink instead of the core's no-op default.
package zap

import (
	"context"

	"go.uber.org/zap"

	"github.com/relayforge/agentrt/runtime/telemetry"
)

// Logger adapts a *zap.SugaredLogger to telemetry.Logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps an existing zap logger.
func New(l *zap.Logger) *Logger {
	return &Logger{sugar: l.Sugar()}
}

// NewProduction builds a Logger using zap's production defaults (JSON
// encoding, info level and above).
func NewProduction() (*Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

// NewDevelopment builds a Logger using zap's development defaults (console
// encoding, debug level and above, stack traces on warn).
func NewDevelopment() (*Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

var _ telemetry.Logger = (*Logger)(nil)

func (l *Logger) Debug(_ context.Context, msg string, keyvals ...any) { l.sugar.Debugw(msg, keyvals...) }
func (l *Logger) Info(_ context.Context, msg string, keyvals ...any)  { l.sugar.Infow(msg, keyvals...) }
func (l *Logger) Warn(_ context.Context, msg string, keyvals ...any)  { l.sugar.Warnw(msg, keyvals...) }
func (l *Logger) Error(_ context.Context, msg string, keyvals ...any) { l.sugar.Errorw(msg, keyvals...) }

// Sync flushes any buffered log entries. Callers should defer Sync in
// main; the error it returns on stderr/stdout sync is routinely ignorable.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
