package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/catalog"
	"synthdeck-cli/internal/model"
	"synthdeck-cli/internal/session"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Catalog items",
	}
	cmd.AddCommand(newItemsListCmd(app))
	cmd.AddCommand(newItemsDeleteCmd(app))
	return cmd
}

func newItemsListCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.setup(ctx); err != nil {
				return err
			}
			if page < 1 {
				page = 1
			}
			res, err := app.client.FetchItems(ctx, page, catalog.DefaultPageSize)
			if err != nil {
				if api.IsAuthExpired(err) {
					app.expireSession(ctx)
				}
				return err
			}

			items := make([]model.Item, len(res.Items))
			copy(items, res.Items)
			model.SortItems(items)

			switch app.Format {
			case "jsonl":
				return app.writeOut(cmd, items)
			case "":
			default:
				return app.writeOut(cmd, map[string]any{
					"items":      items,
					"page":       page,
					"totalPages": model.PageCount(res.Total, catalog.DefaultPageSize),
					"total":      res.Total,
				})
			}

			out := cmd.OutOrStdout()
			for _, it := range items {
				line := fmt.Sprintf("%-6s %s", it.ID, it.FullTitle())
				if it.Price != nil {
					line += fmt.Sprintf("  %.0f€", *it.Price)
				}
				if it.Rating != nil {
					line += fmt.Sprintf("  ★%.1f", *it.Rating)
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "page %d/%d (%d items total)\n",
				page, model.PageCount(res.Total, catalog.DefaultPageSize), res.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	return cmd
}

func newItemsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.setup(ctx); err != nil {
				return err
			}
			id := model.ID(strings.TrimSpace(args[0]))
			if id.IsZero() {
				return fmt.Errorf("empty item id")
			}
			if !app.sess.Has(session.CapItemsDelete) {
				return fmt.Errorf("permission denied: deleting items requires %s", session.CapItemsDelete)
			}

			// Destructive-action guard: an explicit confirmation naming the item
			// before any delete request goes out.
			if !yes {
				title := app.lookupItemTitle(ctx, id)
				fmt.Fprintf(cmd.OutOrStdout(), "Really delete %s? [y/N] ", title)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil || !strings.EqualFold(strings.TrimSpace(line), "y") {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if err := app.client.DeleteItem(ctx, id); err != nil {
				if api.IsAuthExpired(err) {
					app.expireSession(ctx)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %s.\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

// lookupItemTitle resolves a display name for the confirmation prompt by
// scanning pages until the id is found. Best effort: a lookup failure falls
// back to naming the raw id.
func (a *App) lookupItemTitle(ctx context.Context, id model.ID) string {
	fallback := "item " + id.String()
	for page := 1; ; page++ {
		res, err := a.client.FetchItems(ctx, page, catalog.DefaultPageSize)
		if err != nil {
			return fallback
		}
		for _, it := range res.Items {
			if it.ID.Equal(id) {
				return fmt.Sprintf("%s (item %s)", it.FullTitle(), id)
			}
		}
		if page >= model.PageCount(res.Total, catalog.DefaultPageSize) {
			return fallback
		}
	}
}
