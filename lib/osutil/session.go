package osutil

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled on Ctrl+C or
// SIGTERM, so portal sessions get a chance to log out.
func SignalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}
