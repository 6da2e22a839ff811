package tui

import (
	"context"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/model"
)

// Backend is the slice of the API client the TUI drives. Tests substitute a
// fake to exercise flows without a network.
type Backend interface {
	FetchItems(ctx context.Context, page, limit int) (api.ItemsPage, error)
	UpdateItem(ctx context.Context, id model.ID, patch api.ItemPatch) (model.Item, error)
	DeleteItem(ctx context.Context, id model.ID) error
	DuplicateItem(ctx context.Context, src model.Item) (model.Item, error)
	FetchPosts(ctx context.Context, itemID model.ID) ([]model.Post, error)
	AddPost(ctx context.Context, p api.NewPost) (model.Post, error)
	Verify(ctx context.Context) (api.VerifiedUser, error)
}

var _ Backend = (*api.Client)(nil)
