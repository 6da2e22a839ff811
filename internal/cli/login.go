package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"synthdeck-cli/internal/session"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.setup(ctx); err != nil {
				return err
			}
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			res, err := app.client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if !app.sess.Set(res.Token) {
				return errors.New("backend returned an unusable token")
			}
			username := res.User.Username
			if username == "" {
				username = app.sess.Username()
			}
			if err := app.st.SaveToken(ctx, res.Token, username); err != nil {
				return err
			}
			_ = app.st.SaveBaseURL(ctx, app.BaseURL)

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.setup(ctx); err != nil {
				return err
			}
			app.sess.Clear()
			if err := app.st.ClearToken(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session and its capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.setup(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !app.sess.IsAuthenticated() {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}
			fmt.Fprintf(out, "User:  %s\n", app.sess.Username())
			if role := app.sess.Role(); role != "" {
				fmt.Fprintf(out, "Role:  %s\n", role)
			}
			var caps []string
			for _, c := range allCapabilities {
				if app.sess.Has(c) {
					caps = append(caps, string(c))
				}
			}
			fmt.Fprintf(out, "Can:   %s\n", strings.Join(caps, ", "))
			return nil
		},
	}
}

var allCapabilities = []session.Capability{
	session.CapItemsUpdate,
	session.CapItemsDelete,
	session.CapItemsCreate,
	session.CapPostsCreate,
}
