package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/model"
)

func newPostsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Posts attached to catalog items",
	}
	cmd.AddCommand(newPostsListCmd(app))
	return cmd
}

func newPostsListCmd(app *App) *cobra.Command {
	var itemID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the posts for one item",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.setup(ctx); err != nil {
				return err
			}
			id := model.ID(strings.TrimSpace(itemID))
			if id.IsZero() {
				return fmt.Errorf("--item is required")
			}

			posts, err := app.client.FetchPosts(ctx, id)
			if err != nil {
				if api.IsAuthExpired(err) {
					app.expireSession(ctx)
				}
				return err
			}
			// The backend may return more than asked for; keep only this item's posts.
			posts = model.PostsForItem(posts, id)

			switch app.Format {
			case "jsonl":
				return app.writeOut(cmd, posts)
			case "":
			default:
				return app.writeOut(cmd, map[string]any{"itemId": id, "posts": posts})
			}

			out := cmd.OutOrStdout()
			if len(posts) == 0 {
				fmt.Fprintln(out, "No posts.")
				return nil
			}
			for _, p := range posts {
				author := "unknown"
				if p.Author != nil && p.Author.Username != "" {
					author = p.Author.Username
				}
				header := author
				if p.CreatedAt != nil {
					header += "  " + p.CreatedAt.Format("2006-01-02")
				}
				if p.Status != "" {
					header += "  [" + string(p.Status) + "]"
				}
				fmt.Fprintln(out, header)
				if p.Title != "" {
					fmt.Fprintln(out, "  "+p.Title)
				}
				if p.Comment != "" {
					fmt.Fprintln(out, "  "+p.Comment)
				}
				if p.ContentURL != "" {
					fmt.Fprintln(out, "  "+p.ContentURL)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	return cmd
}
