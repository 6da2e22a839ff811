package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"synthdeck-cli/internal/model"
)

// cardItem adapts one catalog item for the bubbles list.
type cardItem struct {
	item model.Item
}

func (c cardItem) Title() string       { return c.item.FullTitle() }
func (c cardItem) Description() string { return c.item.Specifications }
func (c cardItem) FilterValue() string { return c.item.FullTitle() }

// cardDelegate renders one item as a compact three-line card: title, rating
// and pricing, specifications.
type cardDelegate struct{}

func (d cardDelegate) Height() int  { return 4 }
func (d cardDelegate) Spacing() int { return 0 }
func (d cardDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d cardDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(cardItem)
	if !ok {
		return
	}
	contentW := m.Width() - 2
	if contentW < 10 {
		return
	}

	selected := index == m.Index()

	borderColor := colorCardBorder
	titleStyle := lipgloss.NewStyle().Bold(true)
	if selected {
		borderColor = colorSelectedBorder
		titleStyle = titleStyle.Foreground(colorSelectedFg).Background(colorSelectedBg)
	}

	title := truncate(c.item.FullTitle(), contentW)
	meta := truncate(cardMetaLine(c.item), contentW)
	specs := truncate(strings.TrimSpace(c.item.Specifications), contentW)
	if specs == "" {
		specs = "—"
	}

	lines := []string{
		titleStyle.Render(padTo(title, contentW)),
		lipgloss.NewStyle().Foreground(colorCardMetaFg).Render(padTo(meta, contentW)),
		styleMuted().Render(padTo(specs, contentW)),
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(borderColor).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))

	fmt.Fprint(w, card)
}

func cardMetaLine(it model.Item) string {
	var parts []string
	if it.Rating != nil {
		r := fmt.Sprintf("★ %.1f", *it.Rating)
		if it.ReviewCount != nil {
			r += fmt.Sprintf(" (%d)", *it.ReviewCount)
		}
		parts = append(parts, r)
	}
	if it.Price != nil {
		parts = append(parts, formatPrice(*it.Price))
	}
	if auction, ok := it.LatestAuctionPrice(); ok {
		parts = append(parts, "auction "+formatPrice(auction))
	}
	if len(parts) == 0 {
		return "no pricing data"
	}
	return strings.Join(parts, "   ")
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.0f€", p)
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= w {
		return s
	}
	if w <= 1 {
		return "…"
	}
	return xansi.Cut(s, 0, w-1) + "…"
}

func padTo(s string, w int) string {
	if d := w - xansi.StringWidth(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
