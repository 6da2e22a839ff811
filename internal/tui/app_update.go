package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/session"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case flashClearMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case itemsFetchedMsg:
		return m.onItemsFetched(msg)
	case postsFetchedMsg:
		return m.onPostsFetched(msg)
	case itemUpdatedMsg:
		return m.onItemUpdated(msg)
	case itemDeletedMsg:
		return m.onItemDeleted(msg)
	case duplicateVerifiedMsg:
		return m.onDuplicateVerified(msg)
	case itemDuplicatedMsg:
		return m.onItemDuplicated(msg)
	case postAddedMsg:
		return m.onPostAdded(msg)

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m *appModel) busy() bool {
	if m.cat.Loading() || len(m.inflight) > 0 {
		return true
	}
	for _, p := range m.panels {
		if p.loading {
			return true
		}
	}
	return false
}

func (m appModel) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == viewExpired {
		switch msg.String() {
		case "q", "ctrl+c", "enter", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.modal != modalNone {
		return m.onModalKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "left", "h":
		return m.navigate(m.cat.Page() - 1)
	case "right", "l":
		return m.navigate(m.cat.Page() + 1)

	case "r":
		seq, page := m.cat.BeginRefresh()
		return m, tea.Batch(m.fetchPageCmd(seq, page), m.spin.Tick)

	case "p", "enter":
		// Toggle the selected item's post panel; first expand fetches once.
		if it, ok := m.selectedItem(); ok {
			panel := m.panelFor(it.ID)
			if panel.toggle() {
				return m, tea.Batch(m.fetchPostsCmd(it.ID), m.spin.Tick)
			}
		}
		return m, nil

	case "a":
		return m.beginAddPost()
	case "e":
		return m.beginEdit()
	case "d":
		return m.beginDelete()
	case "y":
		return m.beginDuplicate()
	}

	var cmd tea.Cmd
	m.itemsList, cmd = m.itemsList.Update(msg)
	return m, cmd
}

func (m appModel) navigate(page int) (tea.Model, tea.Cmd) {
	seq, ok := m.cat.BeginFetch(page)
	if !ok {
		// Outside the pagination window: no-op.
		return m, nil
	}
	return m, tea.Batch(m.fetchPageCmd(seq, page), m.spin.Tick)
}

// beginEdit opens the editor with the current item snapshot. The capability is
// re-checked here even though the hint only renders when it is held: the
// rendered state can be stale relative to the credential.
func (m appModel) beginEdit() (tea.Model, tea.Cmd) {
	it, ok := m.selectedItem()
	if !ok {
		return m, nil
	}
	if m.inflight[it.ID.String()] {
		return m, nil
	}
	if !m.sess.Has(session.CapItemsUpdate) {
		return m, m.setFlash("You are not allowed to edit items", true)
	}
	m.modal = modalEdit
	m.modalItem = it
	m.editForm = newEditForm(it)
	return m, nil
}

// beginDelete opens the destructive-action guard: an explicit confirmation
// naming the item, before any network call.
func (m appModel) beginDelete() (tea.Model, tea.Cmd) {
	it, ok := m.selectedItem()
	if !ok {
		return m, nil
	}
	if m.inflight[it.ID.String()] {
		return m, nil
	}
	if !m.sess.Has(session.CapItemsDelete) {
		return m, m.setFlash("You are not allowed to delete items", true)
	}
	m.modal = modalConfirmDelete
	m.modalItem = it
	m.confirmFocus = confirmFocusCancel
	return m, nil
}

// beginDuplicate re-verifies elevated privilege with the backend before the
// dialog opens (defense in depth on top of the render-time check).
func (m appModel) beginDuplicate() (tea.Model, tea.Cmd) {
	it, ok := m.selectedItem()
	if !ok {
		return m, nil
	}
	if m.inflight[it.ID.String()] {
		return m, nil
	}
	if !m.sess.Has(capForDuplicate) {
		return m, m.setFlash("You are not allowed to duplicate items", true)
	}
	return m, tea.Batch(m.verifyForDuplicateCmd(it), m.spin.Tick)
}

func (m appModel) beginAddPost() (tea.Model, tea.Cmd) {
	it, ok := m.selectedItem()
	if !ok {
		return m, nil
	}
	if !m.sess.Has(session.CapPostsCreate) {
		return m, m.setFlash("Log in to add a post", true)
	}
	m.modal = modalAddPost
	m.modalItem = it
	m.addForm = newAddPostForm(it)
	return m, nil
}

func (m appModel) onModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalConfirmDelete:
		switch msg.String() {
		case "esc", "ctrl+g", "n":
			m.modal = modalNone
			return m, nil
		case "tab", "shift+tab", "left", "right":
			if m.confirmFocus == confirmFocusConfirm {
				m.confirmFocus = confirmFocusCancel
			} else {
				m.confirmFocus = confirmFocusConfirm
			}
			return m, nil
		case "enter":
			if m.confirmFocus != confirmFocusConfirm {
				m.modal = modalNone
				return m, nil
			}
			return m.submitDelete()
		}
		return m, nil

	case modalDuplicate:
		switch msg.String() {
		case "esc", "ctrl+g", "n":
			m.modal = modalNone
			return m, nil
		case "tab", "shift+tab", "left", "right":
			if m.confirmFocus == confirmFocusConfirm {
				m.confirmFocus = confirmFocusCancel
			} else {
				m.confirmFocus = confirmFocusConfirm
			}
			return m, nil
		case "enter":
			if m.confirmFocus != confirmFocusConfirm {
				m.modal = modalNone
				return m, nil
			}
			return m.submitDuplicate()
		}
		return m, nil

	case modalEdit:
		switch msg.String() {
		case "esc", "ctrl+g":
			m.modal = modalNone
			m.editForm = nil
			return m, nil
		case "tab", "down":
			m.editForm.cycleFocus(false)
			return m, nil
		case "shift+tab", "up":
			m.editForm.cycleFocus(true)
			return m, nil
		case "enter":
			return m.submitEdit()
		}
		return m, m.editForm.update(msg)

	case modalAddPost:
		switch msg.String() {
		case "esc", "ctrl+g":
			m.modal = modalNone
			m.addForm = nil
			return m, nil
		case "tab", "shift+tab", "down", "up":
			m.addForm.cycleFocus()
			return m, nil
		case "enter":
			return m.submitAddPost()
		}
		return m, m.addForm.update(msg)
	}
	return m, nil
}

func (m appModel) submitEdit() (tea.Model, tea.Cmd) {
	// Pre-call capability check: reject stale UI state if the credential
	// changed between opening the editor and submitting.
	if !m.sess.Has(session.CapItemsUpdate) {
		m.modal = modalNone
		m.editForm = nil
		return m, m.setFlash("You are no longer allowed to edit items", true)
	}
	// A second enter while the first update is outstanding must not submit again.
	if m.inflight[m.modalItem.ID.String()] {
		return m, nil
	}
	patch, ok := m.editForm.patch()
	if !ok {
		// Local validation failure: the editor stays open, nothing is sent.
		return m, nil
	}
	m.inflight[m.modalItem.ID.String()] = true
	return m, tea.Batch(m.updateItemCmd(m.modalItem.ID, patch), m.spin.Tick)
}

func (m appModel) submitDelete() (tea.Model, tea.Cmd) {
	if !m.sess.Has(session.CapItemsDelete) {
		m.modal = modalNone
		return m, m.setFlash("You are no longer allowed to delete items", true)
	}
	it := m.modalItem
	m.modal = modalNone
	m.inflight[it.ID.String()] = true
	return m, tea.Batch(m.deleteItemCmd(it), m.spin.Tick)
}

func (m appModel) submitDuplicate() (tea.Model, tea.Cmd) {
	if !m.sess.Has(capForDuplicate) {
		m.modal = modalNone
		return m, m.setFlash("You are no longer allowed to duplicate items", true)
	}
	it := m.modalItem
	m.modal = modalNone
	m.inflight[it.ID.String()] = true
	return m, tea.Batch(m.duplicateItemCmd(it), m.spin.Tick)
}

func (m appModel) submitAddPost() (tea.Model, tea.Cmd) {
	if m.addForm.posting {
		return m, nil
	}
	payload, ok := m.addForm.payload()
	if !ok {
		return m, nil
	}
	m.addForm.posting = true
	return m, tea.Batch(m.addPostCmd(payload), m.spin.Tick)
}

func (m appModel) onItemsFetched(msg itemsFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if api.IsAuthExpired(msg.err) {
			m.cat.ApplyError(msg.seq, msg.err)
			m.expireSession()
			return m, nil
		}
		// Last-known-good fallback: items and page stay; only the error shows.
		if m.cat.ApplyError(msg.seq, msg.err) {
			return m, m.setFlash("Could not load items: "+msg.err.Error(), true)
		}
		return m, nil
	}
	if !m.cat.ApplyResult(msg.seq, msg.page, msg.res) {
		// Superseded by a newer page request.
		return m, nil
	}
	m.syncList()
	_ = m.st.SaveLastPage(context.Background(), msg.page)
	return m, nil
}

func (m appModel) onPostsFetched(msg postsFetchedMsg) (tea.Model, tea.Cmd) {
	panel := m.panelFor(msg.itemID)
	if msg.err != nil {
		if api.IsAuthExpired(msg.err) {
			m.expireSession()
			return m, nil
		}
		// Panel-local failure; sibling panels are untouched.
		panel.setError(msg.err)
		return m, nil
	}
	panel.setPosts(msg.posts)
	return m, nil
}

func (m appModel) onItemUpdated(msg itemUpdatedMsg) (tea.Model, tea.Cmd) {
	// The lock and the modal are resolved against the item this response is
	// for: the user may have moved on to another item's modal meanwhile.
	delete(m.inflight, msg.itemID.String())
	editorForItem := m.modal == modalEdit && m.editForm != nil && m.modalItem.ID.Equal(msg.itemID)
	if msg.err != nil {
		if api.IsAuthExpired(msg.err) {
			m.expireSession()
			return m, nil
		}
		// Failure leaves the editor open with an inline error; if the editor
		// was abandoned, surface a flash instead.
		if editorForItem {
			m.editForm.errMsg = msg.err.Error()
			return m, nil
		}
		return m, m.setFlash("Could not update item "+msg.itemID.String()+": "+msg.err.Error(), true)
	}
	if editorForItem {
		m.modal = modalNone
		m.editForm = nil
	}
	m.cat.ReplaceItem(msg.item)
	m.syncList()
	seq, page := m.cat.BeginRefresh()
	return m, tea.Batch(
		m.fetchPageCmd(seq, page),
		m.setFlash(msg.item.FullTitle()+" updated", false),
	)
}

func (m appModel) onItemDeleted(msg itemDeletedMsg) (tea.Model, tea.Cmd) {
	delete(m.inflight, msg.itemID.String())
	if msg.err != nil {
		if api.IsAuthExpired(msg.err) {
			// The deletion is not assumed to have succeeded.
			m.expireSession()
			return m, nil
		}
		if api.IsForbidden(msg.err) {
			return m, m.setFlash("Permission denied: cannot delete "+msg.title, true)
		}
		return m, m.setFlash("Could not delete "+msg.title+": "+msg.err.Error(), true)
	}
	delete(m.panels, msg.itemID.String())
	// Back to the catalog root and refresh.
	m.itemsList.Select(0)
	seq, page := m.cat.BeginRefresh()
	return m, tea.Batch(
		m.fetchPageCmd(seq, page),
		m.setFlash(msg.title+" deleted", false),
	)
}

func (m appModel) onDuplicateVerified(msg duplicateVerifiedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if api.IsAuthExpired(msg.err) {
			m.expireSession()
			return m, nil
		}
		return m, m.setFlash("Could not verify permissions: "+msg.err.Error(), true)
	}
	if !msg.allowed {
		return m, m.setFlash("Duplication requires elevated privileges", true)
	}
	m.modal = modalDuplicate
	m.modalItem = msg.item
	m.confirmFocus = confirmFocusCancel
	return m, nil
}

func (m appModel) onItemDuplicated(msg itemDuplicatedMsg) (tea.Model, tea.Cmd) {
	delete(m.inflight, msg.sourceID.String())
	if msg.err != nil {
		if api.IsAuthExpired(msg.err) {
			m.expireSession()
			return m, nil
		}
		if api.IsForbidden(msg.err) {
			return m, m.setFlash("Permission denied: cannot duplicate", true)
		}
		return m, m.setFlash("Could not duplicate: "+msg.err.Error(), true)
	}
	seq, page := m.cat.BeginRefresh()
	return m, tea.Batch(
		m.fetchPageCmd(seq, page),
		m.setFlash(msg.item.FullTitle()+" duplicated", false),
	)
}

func (m appModel) onPostAdded(msg postAddedMsg) (tea.Model, tea.Cmd) {
	if m.addForm != nil {
		m.addForm.posting = false
	}
	if msg.err != nil {
		if api.IsAuthExpired(msg.err) {
			m.expireSession()
			return m, nil
		}
		if m.addForm != nil {
			m.addForm.errMsg = msg.err.Error()
		}
		return m, nil
	}
	m.modal = modalNone
	m.addForm = nil
	// A new post triggers a full reload of that panel's list.
	panel := m.panelFor(msg.itemID)
	if panel.invalidate() {
		return m, tea.Batch(m.fetchPostsCmd(msg.itemID), m.setFlash("Post added", false))
	}
	return m, m.setFlash("Post added", false)
}

func (m *appModel) resize() {
	h := m.height - 6
	if h < 8 {
		h = 8
	}
	w := m.width / 2
	if w < 40 {
		w = 40
	}
	m.itemsList.SetSize(w, h)
}
