// Package shutdown ties process termination signals to a context.
package shutdown

import (
	"context"
	"os/signal"
)

// Context returns a context cancelled on the first termination signal.
// The returned stop function releases the signal handler.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
