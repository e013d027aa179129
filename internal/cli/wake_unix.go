//go:build !windows

package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fraccional/internal/session"
)

// forwardWakeups turns SIGUSR1 into a visibility wake-up.
func forwardWakeups(ctx context.Context, keeper *session.Keeper) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			slog.Debug("wake-up signal received")
			keeper.SetVisible(true)
		}
	}
}
