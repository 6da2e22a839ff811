package tui

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/model"
	"synthdeck-cli/internal/session"
	"synthdeck-cli/internal/store"
)

// fakeBackend counts calls and returns scripted results.
type fakeBackend struct {
	mu sync.Mutex

	itemsPages map[int]api.ItemsPage
	itemsErr   error
	posts      []model.Post
	postsErr   error
	deleteErr  error
	updateErr  error
	verify     api.VerifiedUser
	verifyErr  error

	fetchItemsCalls int
	fetchPostsCalls int
	deleteCalls     int
	updateCalls     int
	duplicateCalls  int
	verifyCalls     int
	addPostCalls    int
}

func (f *fakeBackend) FetchItems(_ context.Context, page, limit int) (api.ItemsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchItemsCalls++
	if f.itemsErr != nil {
		return api.ItemsPage{}, f.itemsErr
	}
	return f.itemsPages[page], nil
}

func (f *fakeBackend) UpdateItem(_ context.Context, id model.ID, _ api.ItemPatch) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return model.Item{}, f.updateErr
	}
	return model.Item{ID: id, Brand: "Korg", Model: "updated"}, nil
}

func (f *fakeBackend) DeleteItem(_ context.Context, _ model.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeBackend) DuplicateItem(_ context.Context, src model.Item) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duplicateCalls++
	return model.Item{ID: "999", Brand: src.Brand, Model: src.Model}, nil
}

func (f *fakeBackend) FetchPosts(_ context.Context, _ model.ID) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchPostsCalls++
	if f.postsErr != nil {
		return nil, f.postsErr
	}
	return f.posts, nil
}

func (f *fakeBackend) AddPost(_ context.Context, p api.NewPost) (model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addPostCalls++
	return model.Post{ID: "50", ItemID: p.ItemID}, nil
}

func (f *fakeBackend) Verify(_ context.Context) (api.VerifiedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verify, f.verifyErr
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := session.Claims{
		Username: "ana",
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func userToken(t *testing.T) string {
	t.Helper()
	claims := session.Claims{
		Username: "bob",
		Role:     "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func testModel(t *testing.T, backend *fakeBackend, token string) appModel {
	t.Helper()
	sess := session.New()
	if token != "" {
		if !sess.Set(token) {
			t.Fatal("token did not decode")
		}
	}
	m := newAppModel(backend, sess, store.Store{Dir: t.TempDir()})
	m.width = 120
	m.height = 40
	m.resize()
	return m
}

// loadPage pushes one page of items into the model the way the update loop
// would: BeginFetch + fetched message.
func loadPage(t *testing.T, m appModel, page int, res api.ItemsPage) appModel {
	t.Helper()
	seq, ok := m.cat.BeginFetch(page)
	if !ok {
		t.Fatalf("BeginFetch(%d) rejected", page)
	}
	next, _ := m.Update(itemsFetchedMsg{seq: seq, page: page, res: res})
	return next.(appModel)
}

func onePage(ids ...model.ID) api.ItemsPage {
	p := api.ItemsPage{Total: len(ids)}
	for _, id := range ids {
		p.Items = append(p.Items, model.Item{ID: id, Brand: "Korg", Model: "M" + string(id)})
	}
	return p
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m appModel, keys ...string) (appModel, tea.Cmd) {
	var cmd tea.Cmd
	var next tea.Model = m
	for _, k := range keys {
		next, cmd = next.Update(key(k))
	}
	return next.(appModel), cmd
}

// drain runs pending commands to completion, feeding backend messages back
// into Update. Timer messages (spinner, flash) are dropped so the loop
// terminates.
func drain(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch v := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, v...)
		case itemsFetchedMsg, postsFetchedMsg, itemUpdatedMsg, itemDeletedMsg,
			duplicateVerifiedMsg, itemDuplicatedMsg, postAddedMsg:
			next, c2 := m.Update(msg)
			m = next.(appModel)
			queue = append(queue, c2)
		}
	}
	return m
}

func init() {
	// Keep flash-expiry timers from stalling drain.
	flashDuration = time.Millisecond
}

func TestMutatingControlsAbsentWhenUnauthenticated(t *testing.T) {
	backend := &fakeBackend{}
	m := testModel(t, backend, "")
	m = loadPage(t, m, 1, onePage("1", "2"))

	footer := m.renderFooter()
	for _, hint := range []string{"e: edit", "d: delete", "y: duplicate"} {
		if strings.Contains(footer, hint) {
			t.Fatalf("unauthenticated footer must not offer %q", hint)
		}
	}

	// Pressing the keys must not open a modal or touch the network.
	m, _ = press(m, "d")
	if m.modal != modalNone {
		t.Fatal("delete must not open a modal without the capability")
	}
	m, _ = press(m, "e")
	if m.modal != modalNone {
		t.Fatal("edit must not open a modal without the capability")
	}
	if backend.deleteCalls != 0 || backend.updateCalls != 0 {
		t.Fatal("no mutation call may be issued when unauthenticated")
	}
}

func TestMutatingControlsPresentForAdmin(t *testing.T) {
	backend := &fakeBackend{}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("1"))

	footer := m.renderFooter()
	for _, hint := range []string{"e: edit", "d: delete", "y: duplicate"} {
		if !strings.Contains(footer, hint) {
			t.Fatalf("admin footer missing %q", hint)
		}
	}
}

func TestDeleteWithoutConfirmationNeverCallsNetwork(t *testing.T) {
	backend := &fakeBackend{}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "d")
	if m.modal != modalConfirmDelete {
		t.Fatal("expected confirmation modal")
	}
	// Cancel (default focus) and escape both abandon the action.
	m, _ = press(m, "enter")
	if m.modal != modalNone {
		t.Fatal("enter on Cancel must close the modal")
	}
	m, _ = press(m, "d")
	m, _ = press(m, "esc")
	if m.modal != modalNone {
		t.Fatal("esc must close the modal")
	}
	if backend.deleteCalls != 0 {
		t.Fatalf("delete must not be issued without confirmation, got %d calls", backend.deleteCalls)
	}
}

func TestConfirmedDeleteCallsBackendAndRefreshes(t *testing.T) {
	backend := &fakeBackend{itemsPages: map[int]api.ItemsPage{1: onePage("6")}}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5", "6"))

	m, _ = press(m, "d", "tab") // focus Delete
	m2, cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("confirmed delete must issue commands")
	}
	if m2.modal != modalNone {
		t.Fatal("confirmation must close the dialog immediately")
	}
	m2 = drain(t, m2, cmd)

	if backend.deleteCalls != 1 {
		t.Fatalf("expected exactly one delete call, got %d", backend.deleteCalls)
	}
	// Refresh happened and the deleted item is gone.
	for _, it := range m2.cat.Items() {
		if it.ID == "5" {
			t.Fatal("deleted item still displayed after refresh")
		}
	}
}

func TestDelete401ClearsSessionAndStopsMutating(t *testing.T) {
	backend := &fakeBackend{deleteErr: api.AuthExpiredError{Op: "DELETE /api/items/5"}}
	st := store.Store{Dir: t.TempDir()}
	ctx := context.Background()
	if err := st.SaveToken(ctx, adminToken(t), "ana"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	sess := session.New()
	sess.Set(adminToken(t))
	m := newAppModel(backend, sess, st)
	m.width, m.height = 120, 40
	m.resize()
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "d", "tab")
	m, cmd := press(m, "enter")
	m = drain(t, m, cmd)

	if m.view != viewExpired {
		t.Fatal("401 must route to the session-expired screen")
	}
	if sess.IsAuthenticated() {
		t.Fatal("401 must clear the in-memory session")
	}
	if tok, _ := st.LoadToken(ctx); tok != "" {
		t.Fatal("401 must clear the persisted token")
	}
	// No further catalog mutation is attempted: the refresh that a successful
	// delete would trigger must not have run.
	if backend.fetchItemsCalls != 0 {
		t.Fatalf("no refresh after 401, got %d fetches", backend.fetchItemsCalls)
	}
}

func TestDelete403KeepsCredential(t *testing.T) {
	backend := &fakeBackend{deleteErr: api.ForbiddenError{Op: "DELETE /api/items/5"}}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "d", "tab")
	m, cmd := press(m, "enter")
	m = drain(t, m, cmd)

	if m.view != viewCatalog {
		t.Fatal("403 must not route away from the catalog")
	}
	if !m.sess.IsAuthenticated() {
		t.Fatal("403 must not clear the credential")
	}
	if m.flash == "" {
		t.Fatal("403 must surface a permission-denied message")
	}
}

func TestTogglePostsFetchesExactlyOnce(t *testing.T) {
	backend := &fakeBackend{posts: []model.Post{
		{ID: "1", ItemID: "5", Comment: "great filter"},
		{ID: "2", ItemID: "7", Comment: "wrong item"},
	}}
	m := testModel(t, backend, "")
	m = loadPage(t, m, 1, onePage("5"))

	// Expand: one fetch.
	m, cmd := press(m, "p")
	m = drain(t, m, cmd)
	// Collapse and expand again: no further fetch.
	m, _ = press(m, "p")
	m, cmd = press(m, "p")
	m = drain(t, m, cmd)

	if backend.fetchPostsCalls != 1 {
		t.Fatalf("expected exactly one posts fetch, got %d", backend.fetchPostsCalls)
	}

	panel := m.panels["5"]
	if panel == nil {
		t.Fatal("panel missing")
	}
	if len(panel.posts) != 1 || panel.posts[0].ID != "1" {
		t.Fatalf("panel must keep only its own item's posts, got %v", panel.posts)
	}
}

func TestPostPanelErrorIsLocal(t *testing.T) {
	backend := &fakeBackend{postsErr: api.StatusError{Op: "GET /api/posts", Status: 500}}
	m := testModel(t, backend, "")
	m = loadPage(t, m, 1, onePage("5", "6"))

	m, cmd := press(m, "p")
	m = drain(t, m, cmd)

	panel := m.panels["5"]
	if panel == nil || panel.errMsg == "" {
		t.Fatal("expected a panel-local error")
	}
	if len(panel.posts) != 0 {
		t.Fatal("failed panel must render an empty list")
	}
	// Sibling panel untouched.
	if p6 := m.panels["6"]; p6 != nil && (p6.errMsg != "" || p6.fetched) {
		t.Fatal("sibling panel must not observe the failure")
	}
	// Catalog still renders.
	if len(m.cat.Items()) != 2 {
		t.Fatal("a panel fault must not affect the listing")
	}
}

func TestDuplicateReverifiesBeforeDialog(t *testing.T) {
	backend := &fakeBackend{}
	backend.verify.User.RoleID = adminRoleID
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, cmd := press(m, "y")
	m = drain(t, m, cmd)

	if backend.verifyCalls != 1 {
		t.Fatalf("duplicate must re-verify privilege first, got %d verify calls", backend.verifyCalls)
	}
	if m.modal != modalDuplicate {
		t.Fatal("verified duplicate must open the dialog")
	}
	if backend.duplicateCalls != 0 {
		t.Fatal("no duplicate call before the dialog is confirmed")
	}
}

func TestDuplicateDeniedWhenVerifyRejects(t *testing.T) {
	backend := &fakeBackend{}
	backend.verify.User.RoleID = 1
	// Local claims say admin, backend says no: the server answer wins.
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, cmd := press(m, "y")
	m = drain(t, m, cmd)

	if m.modal != modalNone {
		t.Fatal("rejected verification must not open the dialog")
	}
	if backend.duplicateCalls != 0 {
		t.Fatal("rejected verification must not duplicate")
	}
	if m.flash == "" {
		t.Fatal("denial must surface a message")
	}
}

func TestUserRoleCannotDuplicate(t *testing.T) {
	backend := &fakeBackend{}
	m := testModel(t, backend, userToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, cmd := press(m, "y")
	if cmd != nil {
		m = drain(t, m, cmd)
	}
	if backend.verifyCalls != 0 {
		t.Fatal("render-time gate must stop a non-privileged duplicate before any network call")
	}
	if m.modal != modalNone {
		t.Fatal("no dialog without the capability")
	}
}

func TestPaginationKeysRespectWindow(t *testing.T) {
	pages := map[int]api.ItemsPage{}
	p1 := api.ItemsPage{Total: 37}
	for i := 0; i < 12; i++ {
		p1.Items = append(p1.Items, model.Item{ID: model.ID(strconv.Itoa(i + 1)), Brand: "Korg", Model: strconv.Itoa(i + 1)})
	}
	pages[1] = p1
	pages[2] = api.ItemsPage{Total: 37, Items: []model.Item{{ID: "13", Brand: "Korg", Model: "13"}}}
	backend := &fakeBackend{itemsPages: pages}

	m := testModel(t, backend, "")
	m = loadPage(t, m, 1, pages[1])
	if m.cat.TotalPages() != 4 {
		t.Fatalf("expected 4 pages for 37 items, got %d", m.cat.TotalPages())
	}

	// Prev from page 1 is a no-op.
	m, cmd := press(m, "left")
	if cmd != nil {
		t.Fatal("prev on the first page must be a no-op")
	}

	// Next fetches page 2.
	m, cmd = press(m, "right")
	if cmd == nil {
		t.Fatal("next must issue a fetch")
	}
	m = drain(t, m, cmd)
	if m.cat.Page() != 2 {
		t.Fatalf("expected page 2, got %d", m.cat.Page())
	}
}

func TestEditFailureKeepsEditorOpenWithError(t *testing.T) {
	backend := &fakeBackend{updateErr: api.StatusError{Op: "PUT /api/items/5", Status: 500, Message: "boom"}}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "e")
	if m.modal != modalEdit {
		t.Fatal("expected edit modal")
	}
	m.editForm.inputs[editFieldModel].SetValue("changed")
	m, cmd := press(m, "enter")
	m = drain(t, m, cmd)

	if m.modal != modalEdit {
		t.Fatal("failed update must leave the editor open")
	}
	if m.editForm.errMsg == "" {
		t.Fatal("failed update must show an inline error")
	}
	if backend.updateCalls != 1 {
		t.Fatalf("expected one update call, got %d", backend.updateCalls)
	}
}

func TestEditLocalValidationBlocksNetwork(t *testing.T) {
	backend := &fakeBackend{}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "e")
	m.editForm.inputs[editFieldPrice].SetValue("not-a-number")
	m, cmd := press(m, "enter")
	if cmd != nil {
		m = drain(t, m, cmd)
	}

	if backend.updateCalls != 0 {
		t.Fatal("local validation failure must block the call before any network I/O")
	}
	if m.modal != modalEdit || m.editForm.errMsg == "" {
		t.Fatal("validation failure must keep the editor open with an error")
	}
}


func TestEditSuccessClosesEditorAndRefreshes(t *testing.T) {
	backend := &fakeBackend{itemsPages: map[int]api.ItemsPage{1: onePage("5")}}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "e")
	m.editForm.inputs[editFieldModel].SetValue("MS-20 mk2")
	m, cmd := press(m, "enter")
	m = drain(t, m, cmd)

	if m.modal != modalNone || m.editForm != nil {
		t.Fatal("successful update must close the editor")
	}
	if backend.updateCalls != 1 {
		t.Fatalf("expected one update call, got %d", backend.updateCalls)
	}
	if backend.fetchItemsCalls == 0 {
		t.Fatal("successful update must refresh the current page")
	}
	if m.flash == "" || m.flashIsErr {
		t.Fatal("successful update must surface a confirmation")
	}
}

func TestAddPostReloadsPanel(t *testing.T) {
	backend := &fakeBackend{posts: []model.Post{{ID: "1", ItemID: "5", Comment: "first"}}}
	m := testModel(t, backend, userToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, cmd := press(m, "p")
	m = drain(t, m, cmd)
	if backend.fetchPostsCalls != 1 {
		t.Fatalf("expected one posts fetch on expand, got %d", backend.fetchPostsCalls)
	}

	m, _ = press(m, "a")
	if m.modal != modalAddPost {
		t.Fatal("expected add-post modal for a signed-in user")
	}
	m.addForm.inputs[postFieldComment].SetValue("love the filter")
	m, cmd = press(m, "enter")
	m = drain(t, m, cmd)

	if backend.addPostCalls != 1 {
		t.Fatalf("expected one add-post call, got %d", backend.addPostCalls)
	}
	if backend.fetchPostsCalls != 2 {
		t.Fatalf("adding a post must reload the panel, got %d fetches", backend.fetchPostsCalls)
	}
	if m.modal != modalNone {
		t.Fatal("successful post must close the form")
	}
}

func TestEditorEnterTwiceSubmitsOnce(t *testing.T) {
	backend := &fakeBackend{itemsPages: map[int]api.ItemsPage{1: onePage("5")}}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "e")
	m.editForm.inputs[editFieldModel].SetValue("changed")
	m, first := press(m, "enter")
	if first == nil {
		t.Fatal("first enter must submit")
	}
	// Second enter while the update is outstanding must be a no-op.
	m, second := press(m, "enter")
	if second != nil {
		t.Fatal("second enter must not submit while the item is locked")
	}
	m = drain(t, m, first)

	if backend.updateCalls != 1 {
		t.Fatalf("expected exactly one update call, got %d", backend.updateCalls)
	}
	if m.modal != modalNone {
		t.Fatal("the resolved update must close the editor")
	}
}

func TestUpdateResolutionClearsItsOwnLock(t *testing.T) {
	backend := &fakeBackend{itemsPages: map[int]api.ItemsPage{1: onePage("5", "6")}}
	m := testModel(t, backend, adminToken(t))
	m = loadPage(t, m, 1, onePage("5", "6"))

	// Submit an edit of item 5, abandon the editor, and open a delete
	// confirmation on item 6 before the update resolves.
	m, _ = press(m, "e")
	m.editForm.inputs[editFieldModel].SetValue("changed")
	m, updCmd := press(m, "enter")
	m, _ = press(m, "esc")
	m, _ = press(m, "j")
	m, _ = press(m, "d")
	if m.modal != modalConfirmDelete || !m.modalItem.ID.Equal("6") {
		t.Fatalf("expected delete confirmation on item 6, modal=%v item=%s", m.modal, m.modalItem.ID)
	}

	m = drain(t, m, updCmd)

	if len(m.inflight) != 0 {
		t.Fatalf("item 5's lock must clear when its update resolves, got %v", m.inflight)
	}
	if m.modal != modalConfirmDelete {
		t.Fatal("resolving item 5's update must not close item 6's dialog")
	}
	// Item 5 is unlocked again: a new mutation on it may begin.
	m, _ = press(m, "esc", "k", "e")
	if m.modal != modalEdit {
		t.Fatal("item 5 must accept a new mutation after its lock clears")
	}
}

func TestAddPostEnterTwicePostsOnce(t *testing.T) {
	backend := &fakeBackend{}
	m := testModel(t, backend, userToken(t))
	m = loadPage(t, m, 1, onePage("5"))

	m, _ = press(m, "a")
	m.addForm.inputs[postFieldComment].SetValue("nice keybed")
	m, first := press(m, "enter")
	if first == nil {
		t.Fatal("first enter must post")
	}
	m, second := press(m, "enter")
	if second != nil {
		t.Fatal("second enter must not post again while the first is outstanding")
	}
	m = drain(t, m, first)

	if backend.addPostCalls != 1 {
		t.Fatalf("expected exactly one add-post call, got %d", backend.addPostCalls)
	}
}
