package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"synthdeck-cli/internal/model"
)

// postPanel holds the post-thread state for one item. Panels are independent:
// a fetch failure or reload in one panel never touches a sibling's state.
type postPanel struct {
	itemID   model.ID
	expanded bool
	fetched  bool
	loading  bool
	posts    []model.Post
	errMsg   string
}

// toggle flips the expanded state. It reports whether a fetch should be issued:
// only on the first transition to expanded (or after Invalidate), so repeated
// toggles reuse the already-fetched list.
func (p *postPanel) toggle() (fetch bool) {
	p.expanded = !p.expanded
	if p.expanded && !p.fetched && !p.loading {
		p.loading = true
		return true
	}
	return false
}

// invalidate forces a re-fetch on the next expand (or immediately when already
// expanded). Used after adding a post.
func (p *postPanel) invalidate() (fetch bool) {
	p.fetched = false
	if p.expanded && !p.loading {
		p.loading = true
		return true
	}
	return false
}

// setPosts installs a fetch result, keeping only posts that belong to this
// panel's item. Posts for other items are dropped silently.
func (p *postPanel) setPosts(posts []model.Post) {
	p.loading = false
	p.fetched = true
	p.errMsg = ""
	p.posts = model.PostsForItem(posts, p.itemID)
}

// setError records a panel-local failure; the rendered list goes empty.
func (p *postPanel) setError(err error) {
	p.loading = false
	p.fetched = true
	p.errMsg = err.Error()
	p.posts = nil
}

func (p *postPanel) render(width int) string {
	var b strings.Builder

	header := fmt.Sprintf("Posts (%d)", len(p.posts))
	if !p.expanded {
		b.WriteString(styleMuted().Render(header + "  p: show posts"))
		return b.String()
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(header))
	b.WriteString("\n")

	switch {
	case p.loading:
		b.WriteString(styleMuted().Render("Loading posts…"))
	case p.errMsg != "":
		b.WriteString(styleError().Render("Could not load posts: " + p.errMsg))
	case len(p.posts) == 0:
		b.WriteString(styleMuted().Render("No posts yet."))
	default:
		for i, post := range p.posts {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(renderPost(post, width))
		}
	}
	return b.String()
}

func renderPost(p model.Post, width int) string {
	var b strings.Builder

	author := "unknown author"
	if p.Author != nil && strings.TrimSpace(p.Author.Username) != "" {
		author = p.Author.Username
	}
	meta := author
	if p.CreatedAt != nil {
		meta += "  " + p.CreatedAt.Format("2006-01-02")
	}
	if p.Status != "" {
		meta += "  [" + string(p.Status) + "]"
	}
	b.WriteString(lipgloss.NewStyle().Foreground(colorCardMetaFg).Render(meta))
	b.WriteString("\n")

	if strings.TrimSpace(p.Title) != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(p.Title))
		b.WriteString("\n")
	}
	if strings.TrimSpace(p.Comment) != "" {
		b.WriteString(renderMarkdown(p.Comment, width))
		b.WriteString("\n")
	}
	if strings.TrimSpace(p.ContentURL) != "" {
		b.WriteString(styleAccent().Render(p.ContentURL))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
