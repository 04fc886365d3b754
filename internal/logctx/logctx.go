// Package logctx carries the process logger on a context.Context.
package logctx

import (
	"context"
	"log/slog"

	"github.com/jlrickert/cli-toolkit/mylog"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying lg.
func WithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, lg)
}

// FromContext returns the logger stored with WithLogger. Without one it
// returns mylog.Default, which discards everything.
func FromContext(ctx context.Context) *slog.Logger {
	lg, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return mylog.OrDefault(lg)
}
