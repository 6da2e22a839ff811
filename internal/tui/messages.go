package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/model"
)

// Messages produced by async backend commands. Every network call resolves to
// exactly one of these; errors are carried in the message and handled at the
// update loop boundary, never left to crash the view.

type itemsFetchedMsg struct {
	seq  uint64
	page int
	res  api.ItemsPage
	err  error
}

type postsFetchedMsg struct {
	itemID model.ID
	posts  []model.Post
	err    error
}

type itemUpdatedMsg struct {
	itemID model.ID
	item   model.Item
	err    error
}

type itemDeletedMsg struct {
	itemID model.ID
	title  string
	err    error
}

type duplicateVerifiedMsg struct {
	item    model.Item
	allowed bool
	err     error
}

type itemDuplicatedMsg struct {
	sourceID model.ID
	item     model.Item
	err      error
}

type postAddedMsg struct {
	itemID model.ID
	err    error
}

type flashClearMsg struct{ seq int }

var flashDuration = 3 * time.Second

func flashClearAfter(seq int) tea.Cmd {
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashClearMsg{seq: seq} })
}

func (m appModel) fetchPageCmd(seq uint64, page int) tea.Cmd {
	return func() tea.Msg {
		res, err := m.backend.FetchItems(context.Background(), page, m.cat.PageSize())
		return itemsFetchedMsg{seq: seq, page: page, res: res, err: err}
	}
}

func (m appModel) fetchPostsCmd(itemID model.ID) tea.Cmd {
	return func() tea.Msg {
		posts, err := m.backend.FetchPosts(context.Background(), itemID)
		return postsFetchedMsg{itemID: itemID, posts: posts, err: err}
	}
}

func (m appModel) updateItemCmd(id model.ID, patch api.ItemPatch) tea.Cmd {
	return func() tea.Msg {
		it, err := m.backend.UpdateItem(context.Background(), id, patch)
		return itemUpdatedMsg{itemID: id, item: it, err: err}
	}
}

func (m appModel) deleteItemCmd(it model.Item) tea.Cmd {
	return func() tea.Msg {
		err := m.backend.DeleteItem(context.Background(), it.ID)
		return itemDeletedMsg{itemID: it.ID, title: it.FullTitle(), err: err}
	}
}

// verifyForDuplicateCmd re-checks elevated privilege with the backend right
// before the duplication dialog opens. The rendered button state can be stale
// relative to the credential, so the visible check alone is not trusted.
func (m appModel) verifyForDuplicateCmd(src model.Item) tea.Cmd {
	return func() tea.Msg {
		v, err := m.backend.Verify(context.Background())
		if err != nil {
			return duplicateVerifiedMsg{item: src, err: err}
		}
		allowed := v.User.RoleID == adminRoleID
		for _, p := range v.User.Permissions {
			if p == string(capForDuplicate) {
				allowed = true
			}
		}
		return duplicateVerifiedMsg{item: src, allowed: allowed}
	}
}

func (m appModel) duplicateItemCmd(src model.Item) tea.Cmd {
	return func() tea.Msg {
		it, err := m.backend.DuplicateItem(context.Background(), src)
		return itemDuplicatedMsg{sourceID: src.ID, item: it, err: err}
	}
}

func (m appModel) addPostCmd(p api.NewPost) tea.Cmd {
	return func() tea.Msg {
		_, err := m.backend.AddPost(context.Background(), p)
		return postAddedMsg{itemID: p.ItemID, err: err}
	}
}
