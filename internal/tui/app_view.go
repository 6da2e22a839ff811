package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"synthdeck-cli/internal/model"
	"synthdeck-cli/internal/session"
)

func (m appModel) View() string {
	if m.view == viewExpired {
		body := strings.Join([]string{
			styleError().Render("Session expired"),
			"",
			"Your credential was rejected by the backend and has been cleared.",
			"Run `synthdeck login` to sign in again.",
			"",
			styleMuted().Render("press any key to exit"),
		}, "\n")
		return placeCentered(m.width, m.height, renderModalBox(m.width, "Signed out", body))
	}

	header := m.renderHeader()
	body := m.renderCatalog()
	footer := m.renderFooter()
	screen := strings.Join([]string{header, body, footer}, "\n")

	if m.modal != modalNone {
		return placeCentered(m.width, m.height, m.renderModal())
	}
	return screen
}

func (m appModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("Synthdeck")

	who := "not signed in"
	if m.sess.IsAuthenticated() {
		who = m.sess.Username()
		if role := m.sess.Role(); role != "" {
			who += " (" + role + ")"
		}
	}

	pageInfo := "—"
	if m.cat.TotalPages() > 0 {
		pageInfo = fmt.Sprintf("page %d/%d · %d items", m.cat.Page(), m.cat.TotalPages(), m.cat.Total())
	}
	if m.busy() {
		pageInfo += "  " + m.spin.View()
	}

	return strings.Join([]string{
		title + "  " + styleMuted().Render(who),
		styleMuted().Render(pageInfo),
	}, "\n")
}

func (m appModel) renderCatalog() string {
	bodyH := m.height - 6
	if bodyH < 8 {
		bodyH = 8
	}
	leftW := m.width / 2
	if leftW < 40 {
		leftW = 40
	}
	rightW := m.width - leftW - 2
	if rightW < 30 {
		rightW = 30
	}

	left := m.itemsList.View()
	if len(m.cat.Items()) == 0 {
		msg := "No items."
		if m.cat.Loading() {
			msg = "Loading…"
		}
		left = lipgloss.NewStyle().Width(leftW).Height(bodyH).Render(styleMuted().Render(msg))
	}

	var right string
	if it, ok := m.itemsListSelected(); ok {
		right = m.renderDetail(it, rightW, bodyH)
	} else {
		right = lipgloss.NewStyle().Width(rightW).Height(bodyH).Render(styleMuted().Render("No item selected."))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func (m appModel) itemsListSelected() (it itemDetail, ok bool) {
	sel, found := m.selectedItem()
	if !found {
		return itemDetail{}, false
	}
	return itemDetail{item: sel, panel: m.panels[sel.ID.String()]}, true
}

func (m appModel) renderDetail(d itemDetail, width, height int) string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Render(d.item.FullTitle()))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(colorCardMetaFg).Render(cardMetaLine(d.item)))
	b.WriteString("\n")
	if specs := strings.TrimSpace(d.item.Specifications); specs != "" {
		b.WriteString(lipgloss.NewStyle().Width(width).Render(specs))
		b.WriteString("\n")
	}
	if url := strings.TrimSpace(d.item.ImageURL); url != "" {
		b.WriteString(styleMuted().Render(url))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	panel := d.panel
	if panel == nil {
		panel = &postPanel{itemID: d.item.ID}
	}
	b.WriteString(panel.render(width))

	return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
}

func (m appModel) renderFooter() string {
	var parts []string
	parts = append(parts, "←/→: page", "p: posts", "r: reload")
	if m.sess.Has(session.CapPostsCreate) {
		parts = append(parts, "a: add post")
	}
	// Mutating controls render only when the capability is held; the check
	// repeats immediately before each action executes.
	if m.sess.Has(session.CapItemsUpdate) {
		parts = append(parts, "e: edit")
	}
	if m.sess.Has(session.CapItemsDelete) {
		parts = append(parts, "d: delete")
	}
	if m.sess.Has(capForDuplicate) {
		parts = append(parts, "y: duplicate")
	}
	parts = append(parts, "q: quit")
	help := styleMuted().Render(strings.Join(parts, "  "))

	if m.flash != "" {
		st := styleAccent()
		if m.flashIsErr {
			st = styleError()
		}
		return st.Render(m.flash) + "\n" + help
	}
	if err := m.cat.Err(); err != nil {
		return styleError().Render("Load failed: "+err.Error()) + "\n" + help
	}
	return "\n" + help
}

func (m appModel) renderModal() string {
	switch m.modal {
	case modalConfirmDelete:
		body := fmt.Sprintf("Really delete %s?\nThis cannot be undone.", m.modalItem.FullTitle())
		return renderConfirmModal(m.width, "Delete item", body, "Delete", "Cancel", m.confirmFocus)
	case modalDuplicate:
		return renderDuplicateModal(m.width, m.modalItem, m.confirmFocus)
	case modalEdit:
		return m.editForm.view(m.width)
	case modalAddPost:
		return m.addForm.view(m.width)
	}
	return ""
}

type itemDetail struct {
	item  model.Item
	panel *postPanel
}
