package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"synthdeck-cli/internal/docs"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				topics := docs.Topics()
				if app.Format != "" {
					return app.writeOut(cmd, map[string]any{"topics": topics})
				}
				fmt.Fprintln(out, "Topics:")
				for _, topic := range topics {
					fmt.Fprintln(out, "  "+topic)
				}
				fmt.Fprintln(out, "\nRun `synthdeck docs <topic>`.")
				return nil
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return fmt.Errorf("unknown docs topic %q (run `synthdeck docs` to list topics)", topic)
			}
			if app.Format != "" {
				return app.writeOut(cmd, map[string]any{"topic": strings.ToLower(topic), "markdown": body})
			}
			if raw {
				fmt.Fprint(out, body)
				return nil
			}

			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
			if err != nil {
				fmt.Fprint(out, body)
				return nil
			}
			rendered, err := r.Render(body)
			if err != nil {
				fmt.Fprint(out, body)
				return nil
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print raw markdown without terminal styling")
	return cmd
}
