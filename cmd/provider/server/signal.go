package server

import (
	"context"
	"os/signal"
	"syscall"
)

// WithSignal returns a context cancelled on SIGINT or SIGTERM, and a function
// that stops listening for them.
func WithSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
