package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fraccional/internal/auth"
	"fraccional/internal/service"
	"fraccional/internal/session"
)

var errNotLoggedIn = errors.New("no hay sesión activa; usa 'fraccionalctl auth login'")

func newAuthCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and show the current user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newLoginCmd(rt), newLogoutCmd(rt), newWhoamiCmd(rt))
	return cmd
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password. When --password is omitted the
password is read from the first line of stdin.

Examples:
  fraccionalctl auth login --email admin@example.com --password secret
  echo secret | fraccionalctl auth login --email admin@example.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("--password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			// Sign-in never touches profile rows.
			credentials := service.NewCredentialService(nil, "")
			resp, err := credentials.SignIn(cmd.Context(), rt.provider, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if user, err := credentials.SignedInUser(cmd.Context(), rt.provider, resp); err == nil {
				fmt.Fprintf(out, "Sesión iniciada como %s\n", user.Email)
			} else {
				fmt.Fprintln(out, "Sesión iniciada.")
			}
			if exp := resp.Session.Expiry(); !exp.IsZero() {
				fmt.Fprintf(out, "Expira: %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when empty)")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			keeper := session.NewKeeper(session.NewResolver(rt.provider), rt.provider, session.KeeperOptions{
				Navigate: func(path string) {
					fmt.Fprintf(out, "Sesión cerrada. Vuelve a entrar con 'fraccionalctl auth login' (%s).\n", path)
				},
			})
			if err := keeper.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, refreshing the session when needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := auth.Authenticate(cmd.Context(), rt.provider)
			if err != nil {
				return errNotLoggedIn
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:     %s\n", identity.User.ID)
			fmt.Fprintf(out, "Correo: %s\n", identity.User.Email)
			if name := identity.User.DisplayName(); name != "" {
				fmt.Fprintf(out, "Nombre: %s\n", name)
			}
			fmt.Fprintf(out, "Expira: %s\n", identity.Session.Expiry().Local().Format(time.RFC1123))
			return nil
		},
	}
}
