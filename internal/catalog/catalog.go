// Package catalog owns the paginated catalog window: which page is displayed,
// which fetch is current, and what the last-known-good item list is.
//
// The store itself does no I/O. Callers (the TUI's command loop, the CLI) issue
// the network fetch and feed the outcome back through ApplyResult/ApplyError
// with the sequence number handed out by BeginFetch. That keeps the ordering
// rules unit-testable without a transport: responses for superseded requests
// are discarded, so the display always reflects the most recently requested
// page, not the most recently resolved one.
//
// The store is written from a single goroutine (the bubbletea update loop);
// it is not internally synchronized.
package catalog

import (
	"synthdeck-cli/internal/api"
	"synthdeck-cli/internal/model"
)

const DefaultPageSize = 12

type Store struct {
	pageSize int

	items      []model.Item
	page       int // 1-based; 0 before the first successful load
	total      int
	totalPages int

	seq     uint64 // most recently issued fetch
	seqPage int    // page requested by seq
	loading bool

	lastErr error
}

func NewStore(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{pageSize: pageSize}
}

func (s *Store) Items() []model.Item { return s.items }
func (s *Store) Page() int           { return s.page }
func (s *Store) Total() int          { return s.total }
func (s *Store) TotalPages() int     { return s.totalPages }
func (s *Store) PageSize() int       { return s.pageSize }
func (s *Store) Loading() bool       { return s.loading }

// Err returns the error from the most recent failed fetch, cleared by the next
// successful one.
func (s *Store) Err() error { return s.lastErr }

func (s *Store) HasPrev() bool { return s.page > 1 }

func (s *Store) HasNext() bool {
	return s.totalPages >= 1 && s.page < s.totalPages
}

// BeginFetch registers a fetch for page and returns its sequence number.
// Requests outside the known pagination window are no-ops and return ok=false:
// page < 1 always, page > totalPages once a total is known. A newer BeginFetch
// supersedes any in-flight one for display purposes.
func (s *Store) BeginFetch(page int) (seq uint64, ok bool) {
	if page < 1 {
		return 0, false
	}
	if s.totalPages >= 1 && page > s.totalPages {
		return 0, false
	}
	s.seq++
	s.seqPage = page
	s.loading = true
	return s.seq, true
}

// BeginRefresh re-requests the currently displayed page (page 1 before any
// successful load).
func (s *Store) BeginRefresh() (seq uint64, page int) {
	page = s.page
	if page < 1 {
		page = 1
	}
	seq, _ = s.BeginFetch(page)
	return seq, page
}

// ApplyResult installs a successful fetch outcome. Stale responses, ones whose
// seq is no longer the latest issued request, are discarded and leave the
// displayed state untouched. Items are sorted by brand then model on the way in.
func (s *Store) ApplyResult(seq uint64, page int, res api.ItemsPage) bool {
	if seq != s.seq {
		return false
	}
	s.loading = false
	s.lastErr = nil

	items := make([]model.Item, len(res.Items))
	copy(items, res.Items)
	model.SortItems(items)

	s.total = res.Total
	s.totalPages = model.PageCount(res.Total, s.pageSize)
	// A fetch begun before any total was known (a restored last page, say) can
	// land beyond the window the total implies. Clamp so page stays within
	// 1..totalPages and navigation back into the window keeps working.
	if s.totalPages >= 1 && page > s.totalPages {
		page = s.totalPages
	}
	s.items = items
	s.page = page
	return true
}

// ApplyError records a failed fetch. The previously displayed items, page and
// totals are retained (last-known-good fallback); only the error surfaces.
// Stale errors are discarded like stale results.
func (s *Store) ApplyError(seq uint64, err error) bool {
	if seq != s.seq {
		return false
	}
	s.loading = false
	s.lastErr = err
	return true
}

// ReplaceItem swaps the stored copy of an updated item in place, so an edit is
// visible immediately while the authoritative refresh is in flight. Unknown ids
// are ignored.
func (s *Store) ReplaceItem(updated model.Item) {
	for i := range s.items {
		if s.items[i].ID.Equal(updated.ID) {
			s.items[i] = updated
			model.SortItems(s.items)
			return
		}
	}
}
