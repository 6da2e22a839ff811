package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/model"
	"synthdeck-cli/internal/session"
)

// adminRoleID is the backend role id accepted by the server-side privilege
// re-check for duplication.
const adminRoleID = 2

// capForDuplicate is the capability duplication requires: the duplicate is a
// new item, so this is a create, not an update.
const capForDuplicate = session.CapItemsCreate

// editForm is the modal editor for an item: a snapshot of the editable fields
// as text inputs. Submitting produces a patch of only the fields that changed.
type editForm struct {
	item   model.Item
	inputs []textinput.Model
	focus  int
	errMsg string
}

const (
	editFieldBrand = iota
	editFieldModel
	editFieldSpecs
	editFieldPrice
	editFieldCount
)

var editFieldLabels = [editFieldCount]string{"Brand", "Model", "Specifications", "Price"}

func newEditForm(it model.Item) *editForm {
	f := &editForm{item: it, inputs: make([]textinput.Model, editFieldCount)}
	values := [editFieldCount]string{it.Brand, it.Model, it.Specifications, ""}
	if it.Price != nil {
		values[editFieldPrice] = strconv.FormatFloat(*it.Price, 'f', -1, 64)
	}
	for i := range f.inputs {
		in := textinput.New()
		in.SetValue(values[i])
		in.CharLimit = 200
		in.Width = 40
		f.inputs[i] = in
	}
	f.inputs[0].Focus()
	return f
}

func (f *editForm) cycleFocus(back bool) {
	f.inputs[f.focus].Blur()
	if back {
		f.focus = (f.focus + editFieldCount - 1) % editFieldCount
	} else {
		f.focus = (f.focus + 1) % editFieldCount
	}
	f.inputs[f.focus].Focus()
}

func (f *editForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// patch validates the form and returns the fields that differ from the
// snapshot. A malformed price is a local validation error: it blocks the call
// before any network I/O.
func (f *editForm) patch() (api.ItemPatch, bool) {
	var p api.ItemPatch

	brand := strings.TrimSpace(f.inputs[editFieldBrand].Value())
	if brand == "" {
		f.errMsg = "brand is required"
		return p, false
	}
	mod := strings.TrimSpace(f.inputs[editFieldModel].Value())
	if mod == "" {
		f.errMsg = "model is required"
		return p, false
	}

	if brand != f.item.Brand {
		p.Brand = &brand
	}
	if mod != f.item.Model {
		p.Model = &mod
	}
	if specs := strings.TrimSpace(f.inputs[editFieldSpecs].Value()); specs != f.item.Specifications {
		p.Specifications = &specs
	}

	priceStr := strings.TrimSpace(f.inputs[editFieldPrice].Value())
	if priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			f.errMsg = "price must be a non-negative number"
			return api.ItemPatch{}, false
		}
		if f.item.Price == nil || *f.item.Price != price {
			p.Price = &price
		}
	}

	f.errMsg = ""
	return p, true
}

func (f *editForm) view(width int) string {
	var b strings.Builder
	for i, in := range f.inputs {
		b.WriteString(styleMuted().Render(editFieldLabels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(styleError().Render(f.errMsg))
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("tab: next field   enter: save   esc: cancel"))
	return renderModalBox(width, "Edit "+f.item.FullTitle(), b.String())
}

// addPostForm is the modal for attaching a new post to an item.
type addPostForm struct {
	itemID  model.ID
	title   string
	inputs  []textinput.Model
	focus   int
	errMsg  string
	posting bool
}

const (
	postFieldTitle = iota
	postFieldComment
	postFieldCount
)

func newAddPostForm(it model.Item) *addPostForm {
	f := &addPostForm{itemID: it.ID, title: it.FullTitle(), inputs: make([]textinput.Model, postFieldCount)}
	for i := range f.inputs {
		in := textinput.New()
		in.CharLimit = 500
		in.Width = 40
		f.inputs[i] = in
	}
	f.inputs[postFieldTitle].Placeholder = "Title (optional)"
	f.inputs[postFieldComment].Placeholder = "Comment"
	f.inputs[0].Focus()
	return f
}

func (f *addPostForm) cycleFocus() {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + 1) % postFieldCount
	f.inputs[f.focus].Focus()
}

func (f *addPostForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *addPostForm) payload() (api.NewPost, bool) {
	comment := strings.TrimSpace(f.inputs[postFieldComment].Value())
	if comment == "" {
		f.errMsg = "comment is required"
		return api.NewPost{}, false
	}
	f.errMsg = ""
	return api.NewPost{
		ItemID:  f.itemID,
		Title:   strings.TrimSpace(f.inputs[postFieldTitle].Value()),
		Comment: comment,
	}, true
}

func (f *addPostForm) view(width int) string {
	var b strings.Builder
	for _, in := range f.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(styleError().Render(f.errMsg))
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("tab: next field   enter: post   esc: cancel"))
	return renderModalBox(width, "New post on "+f.title, b.String())
}

// renderDuplicateModal shows the duplication dialog pre-filled from the source
// item. The new item gets its own identifier from the backend.
func renderDuplicateModal(width int, src model.Item, focus confirmModalFocus) string {
	lines := []string{
		"Create a copy of this item?",
		"",
		"  " + src.FullTitle(),
	}
	if src.Price != nil {
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(colorPriceFg).Render(formatPrice(*src.Price)))
	}
	if strings.TrimSpace(src.Specifications) != "" {
		lines = append(lines, "  "+styleMuted().Render(truncate(src.Specifications, modalBodyWidth(width)-4)))
	}
	body := strings.Join(lines, "\n")
	return renderConfirmModal(width, "Duplicate item", body, "Duplicate", "Cancel", focus)
}
