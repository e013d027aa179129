//go:build windows

package cli

import (
	"context"

	"fraccional/internal/session"
)

// forwardWakeups is a no-op: there is no SIGUSR1 on Windows.
func forwardWakeups(ctx context.Context, _ *session.Keeper) {
	<-ctx.Done()
}
