package logging

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
)

const redactedPlaceholder = "[redacted]"

// Logger defines the subset of structured logging used by fhevm-go.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New returns a Logger backed by the provided slog.Logger. Passing nil binds to
// slog.Default().
func New(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

// NewZap returns a Logger writing through a zap logger. Passing nil yields a
// no-op logger.
func NewZap(logger *zap.Logger) Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapLogger{sugar: logger.Sugar()}
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debug(_ context.Context, msg string, args ...any) {
	l.sugar.Debugw(msg, normalize(args)...)
}

func (l *zapLogger) Info(_ context.Context, msg string, args ...any) {
	l.sugar.Infow(msg, normalize(args)...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, args ...any) {
	l.sugar.Warnw(msg, normalize(args)...)
}

func (l *zapLogger) Error(_ context.Context, msg string, args ...any) {
	l.sugar.Errorw(msg, normalize(args)...)
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(normalize(args)...)}
}

// normalize flattens slog.Attr values into key/value pairs, which is the
// only form the sugared zap API understands.
func normalize(args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if attr, ok := a.(slog.Attr); ok {
			out = append(out, attr.Key, attr.Value.Any())
			continue
		}
		out = append(out, a)
	}
	return out
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewZap(nil)
}

// Redacted marks attributes that contain sensitive information. Callers must
// avoid logging raw secrets; instead, include this attribute as a reminder that
// the value was intentionally removed.
func Redacted(key string) slog.Attr {
	return slog.String(key, redactedPlaceholder)
}

// Placeholder returns the canonical string that represents a redacted value.
func Placeholder() string {
	return redactedPlaceholder
}
