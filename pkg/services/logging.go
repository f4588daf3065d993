package services

import (
	"context"
	"io"
	"log/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cancelWith propagates cancellation of ctx to cancel until the returned
// stop function is called.
func cancelWith(ctx context.Context, cancel context.CancelFunc) (stop func() bool) {
	if cancel == nil {
		return func() bool { return false }
	}
	return context.AfterFunc(ctx, cancel)
}
