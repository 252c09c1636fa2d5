package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements ports.Logger on top of rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a JSON logger writing to w (os.Stderr when nil).
// With console set, output is human readable instead of JSON.
func NewZerologLogger(w io.Writer, level LogLevel, console bool) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{log: zl}
}

// With returns a child logger that always carries component=name.
func (l *ZerologLogger) With(component string) *ZerologLogger {
	return &ZerologLogger{log: l.log.With().Str("component", component).Logger()}
}

func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.event(ctx, l.log.Debug(), fields).Msg(msg)
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.event(ctx, l.log.Info(), fields).Msg(msg)
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.event(ctx, l.log.Warn(), fields).Msg(msg)
}

func (l *ZerologLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.event(ctx, l.log.Error().Err(err), fields).Msg(msg)
}

func (l *ZerologLogger) event(ctx context.Context, e *zerolog.Event, fields []map[string]interface{}) *zerolog.Event {
	if e == nil { // Level disabled
		return nil
	}
	if reqID := requestID(ctx); reqID != "" {
		e = e.Str("requestID", reqID)
	}
	for _, f := range fields {
		e = e.Fields(f)
	}
	return e
}

func toZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
