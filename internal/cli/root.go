package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/format"
	"synthdeck-cli/internal/session"
	"synthdeck-cli/internal/store"
	"synthdeck-cli/internal/tui"
)

const defaultBaseURL = "http://localhost:4000"

// App carries the wiring shared by every subcommand: resolved state dir,
// persisted credential loaded into the process-wide session, and the API
// client reading its bearer token from that session.
type App struct {
	Dir     string
	BaseURL string
	// Format selects machine-readable output ("json", "jsonl") for the
	// scriptable commands; empty means the human rendering.
	Format     string
	PrettyJSON bool

	st     store.Store
	sess   *session.Session
	client *api.Client
}

func (a *App) writeOut(cmd *cobra.Command, v any) error {
	return format.Write(cmd.OutOrStdout(), v, a.Format, a.PrettyJSON)
}

// setup resolves the state dir and base URL, then restores the persisted
// credential. A malformed stored token is dropped on the spot so every command
// starts from a consistent "unauthenticated" state instead of erroring later.
func (a *App) setup(ctx context.Context) error {
	if strings.TrimSpace(a.Dir) == "" {
		dir, err := store.DefaultDir()
		if err != nil {
			return err
		}
		a.Dir = dir
	}
	a.st = store.Store{Dir: a.Dir}
	a.sess = session.New()

	if strings.TrimSpace(a.BaseURL) == "" {
		if env := strings.TrimSpace(os.Getenv("SYNTHDECK_API")); env != "" {
			a.BaseURL = env
		} else if saved, err := a.st.LoadBaseURL(ctx); err == nil && saved != "" {
			a.BaseURL = saved
		} else {
			a.BaseURL = defaultBaseURL
		}
	}
	a.client = api.New(a.BaseURL, a.sess.Token)

	tok, err := a.st.LoadToken(ctx)
	if err != nil {
		return err
	}
	if tok != "" && !a.sess.Set(tok) {
		_ = a.st.ClearToken(ctx)
	}
	return nil
}

// expireSession handles a 401 outside the TUI: clear the credential and point
// the user at the login entry point.
func (a *App) expireSession(ctx context.Context) {
	a.sess.Clear()
	_ = a.st.ClearToken(ctx)
	fmt.Fprintln(os.Stderr, "Session expired. Run `synthdeck login` to sign in again.")
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "synthdeck",
		Short:        "Browse and manage the synth catalog from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive catalog browser
  synthdeck

  # Sign in first (stores the session token locally)
  synthdeck login --email you@example.com

  # Scriptable commands
  synthdeck items list --page 2
  synthdeck posts list --item 5
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			if err := app.setup(cmd.Context()); err != nil {
				return err
			}
			return tui.Run(app.client, app.sess, app.st)
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", "", "state directory (default ~/.synthdeck)")
	cmd.PersistentFlags().StringVar(&app.BaseURL, "api", "", "API base URL (default $SYNTHDECK_API or "+defaultBaseURL+")")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "machine-readable output: json or jsonl")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "indent --format json output")

	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newPostsCmd(app))
	return cmd
}
