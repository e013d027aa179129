package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fraccional/internal/event"
	"fraccional/internal/session"
)

func newSessionCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and keep the stored session fresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newWatchCmd(rt))
	return cmd
}

func newWatchCmd(rt *runtime) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session fresh and print every state change",
		Long: `Checks the session immediately and then every SESSION_REFRESH_INTERVAL
(10m by default) while signed in. Sending SIGUSR1 triggers an immediate
re-check, like a browser tab becoming visible again.

Each state change is printed as one JSON line.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			bus := event.NewBus()
			events, unsubscribe := bus.Subscribe()
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				printEvents(out, events)
			}()
			stop := func() {
				unsubscribe()
				<-printed
			}

			keeper := session.NewKeeper(session.NewResolver(rt.provider), rt.provider, session.KeeperOptions{
				Interval: rt.cfg.RefreshInterval,
				Bus:      bus,
			})

			if once {
				state := keeper.Check(ctx)
				stop()
				if !state.IsAuthenticated {
					return errNotLoggedIn
				}
				return nil
			}

			wakeCtx, cancelWake := context.WithCancel(ctx)
			go forwardWakeups(wakeCtx, keeper)

			err := keeper.Run(ctx)
			cancelWake()
			stop()

			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Check the session once and exit")
	return cmd
}

type eventLine struct {
	Type      event.Type `json:"type"`
	Timestamp string     `json:"timestamp"`
	State     any        `json:"state"`
}

func printEvents(out io.Writer, events <-chan event.Event) {
	enc := json.NewEncoder(out)
	for e := range events {
		if err := enc.Encode(eventLine{Type: e.Type, Timestamp: e.Timestamp, State: e.Payload}); err != nil {
			fmt.Fprintf(out, "%s %s\n", e.Timestamp, e.Type)
		}
	}
}
