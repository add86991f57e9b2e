// Package signal ties a context to process interrupts.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyContext derives a context from parent that is cancelled on SIGINT or
// SIGTERM. Call stop to release the signal handler.
func NotifyContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
