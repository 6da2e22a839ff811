package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"synthdeck-cli/internal/catalog"
	"synthdeck-cli/internal/model"
	"synthdeck-cli/internal/session"
	"synthdeck-cli/internal/store"
)

type view int

const (
	viewCatalog view = iota
	// viewExpired is shown after a 401: the credential is gone and the user is
	// routed to the login entry point (`synthdeck login`).
	viewExpired
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirmDelete
	modalEdit
	modalDuplicate
	modalAddPost
)

type appModel struct {
	backend Backend
	sess    *session.Session
	st      store.Store
	cat     *catalog.Store

	width  int
	height int

	view view

	itemsList list.Model
	// panels holds per-item post-panel state, keyed by item id. Panels are
	// created lazily and survive page refreshes so an expanded thread stays
	// expanded across a mutation-triggered reload.
	panels map[string]*postPanel
	// inflight marks items with an outstanding mutation. A locked item accepts
	// no second mutation; unrelated items stay mutable.
	inflight map[string]bool

	modal        modalKind
	modalItem    model.Item
	confirmFocus confirmModalFocus
	editForm     *editForm
	addForm      *addPostForm

	spin spinner.Model

	flash      string
	flashIsErr bool
	flashSeq   int
}

func newAppModel(backend Backend, sess *session.Session, st store.Store) appModel {
	m := appModel{
		backend:  backend,
		sess:     sess,
		st:       st,
		cat:      catalog.NewStore(catalog.DefaultPageSize),
		panels:   map[string]*postPanel{},
		inflight: map[string]bool{},
		view:     viewCatalog,
	}

	m.itemsList = newCardsList()
	m.spin = spinner.New(spinner.WithSpinner(spinner.Dot))
	return m
}

func newCardsList() list.Model {
	l := list.New([]list.Item{}, cardDelegate{}, 0, 0)
	// The app renders its own header/footer; keep list chrome minimal.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetKeys("q")
	return l
}

// Init issues the first page fetch, restoring the last-visited page when one
// was persisted.
func (m appModel) Init() tea.Cmd {
	page, _ := m.st.LoadLastPage(context.Background())
	if page < 1 {
		page = 1
	}
	seq, ok := m.cat.BeginFetch(page)
	if !ok {
		seq, page = m.cat.BeginRefresh()
	}
	return tea.Batch(m.fetchPageCmd(seq, page), m.spin.Tick)
}

func (m *appModel) selectedItem() (model.Item, bool) {
	it, ok := m.itemsList.SelectedItem().(cardItem)
	if !ok {
		return model.Item{}, false
	}
	return it.item, true
}

func (m *appModel) panelFor(id model.ID) *postPanel {
	p := m.panels[id.String()]
	if p == nil {
		p = &postPanel{itemID: id}
		m.panels[id.String()] = p
	}
	return p
}

// syncList rebuilds the list items from the catalog store, keeping the current
// selection when the selected item survived the refresh.
func (m *appModel) syncList() {
	curID := model.ID("")
	if it, ok := m.selectedItem(); ok {
		curID = it.ID
	}
	items := make([]list.Item, 0, len(m.cat.Items()))
	for _, it := range m.cat.Items() {
		items = append(items, cardItem{item: it})
	}
	m.itemsList.SetItems(items)
	if !curID.IsZero() {
		for i, li := range m.itemsList.Items() {
			if c, ok := li.(cardItem); ok && c.item.ID.Equal(curID) {
				m.itemsList.Select(i)
				break
			}
		}
	}
}

func (m *appModel) setFlash(msg string, isErr bool) tea.Cmd {
	m.flash = msg
	m.flashIsErr = isErr
	m.flashSeq++
	seq := m.flashSeq
	return flashClearAfter(seq)
}

// expireSession is the single 401 path: the credential is cleared atomically
// (memory then disk) and the UI reverts to the unauthenticated entry screen.
// Mutations already in flight settle on their own responses.
func (m *appModel) expireSession() {
	m.sess.Clear()
	_ = m.st.ClearToken(context.Background())
	m.modal = modalNone
	m.editForm = nil
	m.addForm = nil
	m.view = viewExpired
}
