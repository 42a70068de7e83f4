// Package logging provides the engine's structured logger: a thin
// adapter over charmbracelet/log with field merging and
// correlation-id propagation via context.Context, used by the runtime
// to report failed checkpoint saves; the CLI builds one and hands it
// to the runtime.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"
)

type correlationIDKey struct{}

// WithCorrelationID stores id in ctx for later retrieval by a Logger.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID retrieves the correlation id stored in ctx, if any.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// Logger is the interface the runtime and CLI depend on; the logger
// New returns and NoOp both satisfy it.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	With(fields ...any) Logger
}

// Options configures a new Logger.
type Options struct {
	Writer       io.Writer
	Level        string
	ReportCaller bool
	Component    string
}

// charmLogger implements Logger using charmbracelet/log.
type charmLogger struct {
	logger *cblog.Logger
	fields []any
}

// New constructs a Logger from Options.
func New(opts Options) (Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    opts.ReportCaller,
	})

	var fields []any
	if opts.Component != "" {
		fields = append(fields, "component", opts.Component)
	}

	return &charmLogger{logger: base, fields: fields}, nil
}

func (l *charmLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, cblog.DebugLevel, msg, fields...)
}

func (l *charmLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, cblog.InfoLevel, msg, fields...)
}

func (l *charmLogger) Warn(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, cblog.WarnLevel, msg, fields...)
}

func (l *charmLogger) Error(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, cblog.ErrorLevel, msg, fields...)
}

func (l *charmLogger) With(fields ...any) Logger {
	next := make([]any, len(l.fields))
	copy(next, l.fields)
	next = append(next, fields...)
	return &charmLogger{logger: l.logger, fields: next}
}

func (l *charmLogger) log(ctx context.Context, level cblog.Level, msg string, fields ...any) {
	extras := map[string]any{}
	if id := GetCorrelationID(ctx); id != "" {
		extras["correlation_id"] = id
	}
	payload := mergeFields(l.fields, fields, extras)

	switch level {
	case cblog.DebugLevel:
		l.logger.Debug(msg, payload...)
	case cblog.WarnLevel:
		l.logger.Warn(msg, payload...)
	case cblog.ErrorLevel:
		l.logger.Error(msg, payload...)
	default:
		l.logger.Info(msg, payload...)
	}
}

func mergeFields(base, additions []any, extras map[string]any) []any {
	store := map[string]any{}
	order := make([]string, 0, len(base)/2+len(additions)/2+len(extras))

	add := func(key string, value any) {
		if key == "" {
			return
		}
		if _, exists := store[key]; !exists {
			order = append(order, key)
		}
		store[key] = value
	}

	process := func(values []any) {
		for i := 0; i+1 < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			add(key, values[i+1])
		}
	}

	process(base)
	process(additions)

	extraKeys := make([]string, 0, len(extras))
	for k := range extras {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		add(k, extras[k])
	}

	out := make([]any, 0, len(order)*2)
	for _, k := range order {
		out = append(out, k, store[k])
	}
	return out
}

// NoOp is a Logger that discards everything, used as the runtime's
// default when the caller supplies no logger.
type NoOp struct{}

func (NoOp) Debug(context.Context, string, ...any) {}
func (NoOp) Info(context.Context, string, ...any)  {}
func (NoOp) Warn(context.Context, string, ...any)  {}
func (NoOp) Error(context.Context, string, ...any) {}
func (n NoOp) With(...any) Logger                  { return n }
