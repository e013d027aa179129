// Package cli implements fraccionalctl, a terminal client that keeps a
// provider session in a local file.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"fraccional/internal/auth"
	"fraccional/internal/config"
	"fraccional/internal/logger"
	"fraccional/internal/supabase"
)

// ProviderFactory builds the provider bound to the CLI's session store.
type ProviderFactory func(cfg *config.ClientConfig, store supabase.SessionStore) (auth.Provider, error)

func SupabaseProvider(cfg *config.ClientConfig, store supabase.SessionStore) (auth.Provider, error) {
	client, err := supabase.NewClient(supabase.Config{
		URL:     cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
		Timeout: cfg.SupabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}
	return client.Auth(store), nil
}

type runtime struct {
	cfg      *config.ClientConfig
	store    *FileStore
	provider auth.Provider
}

func NewRootCmd(factory ProviderFactory) *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "fraccionalctl",
		Short: "Terminal client for Fraccional",
		Long: `fraccionalctl signs in to Fraccional and keeps the session fresh.

The provider session is stored in ~/.fraccional/session.yaml (override with
FRACCIONAL_SESSION_FILE).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}

			slog.SetDefault(slog.New(logger.NewPrettyHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel})))

			rt.cfg = cfg
			rt.store = NewFileStore(cfg.SessionFile)
			rt.provider, err = factory(cfg, rt.store)
			return err
		},
	}

	root.AddCommand(newAuthCmd(rt), newSessionCmd(rt))
	return root
}

func ExecuteContext(ctx context.Context) error {
	return NewRootCmd(SupabaseProvider).ExecuteContext(ctx)
}
