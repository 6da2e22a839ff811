package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ID is an item/post identifier as delivered by the backend.
//
// The API is not consistent about identifier types: depending on the endpoint the
// same id arrives as a JSON number or as a JSON string ("5" vs 5). ID accepts both
// and normalizes for comparison, so association of posts to their parent item never
// depends on the wire representation.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*id = ID(strings.TrimSpace(v))
	case float64:
		*id = ID(strconv.FormatFloat(v, 'f', -1, 64))
	case nil:
		*id = ""
	default:
		// Unexpected shapes (objects, arrays) keep the raw text; Equal will fail it.
		*id = ID(strings.TrimSpace(string(b)))
	}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// Equal reports whether two ids refer to the same record, normalizing numeric
// representations on both sides ("005" == "5", "5" == 5). Non-numeric ids fall
// back to exact string comparison.
func (id ID) Equal(other ID) bool {
	a := strings.TrimSpace(string(id))
	b := strings.TrimSpace(string(other))
	if a == "" || b == "" {
		return false
	}
	an, aerr := strconv.ParseFloat(a, 64)
	bn, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return an == bn
	}
	return a == b
}

// Item is one catalog entry (a synthesizer listing).
type Item struct {
	ID             ID        `json:"id"`
	Brand          string    `json:"marque"`
	Model          string    `json:"modele"`
	Rating         *float64  `json:"note,omitempty"`
	ReviewCount    *int      `json:"nb_avis,omitempty"`
	Specifications string    `json:"specifications,omitempty"`
	Price          *float64  `json:"price,omitempty"`
	AuctionPrices  []float64 `json:"auctionPrices,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`

	// Posts may arrive seeded with the item payload; the post panel refines the
	// list lazily from /api/posts.
	Posts []Post `json:"posts,omitempty"`
}

// FullTitle is the display name used everywhere an item is named (cards,
// delete confirmations, notifications).
func (it Item) FullTitle() string {
	return strings.TrimSpace(it.Brand + " " + it.Model)
}

// LatestAuctionPrice returns the most recent auction price, if any.
func (it Item) LatestAuctionPrice() (float64, bool) {
	if len(it.AuctionPrices) == 0 {
		return 0, false
	}
	return it.AuctionPrices[len(it.AuctionPrices)-1], true
}

// PostStatus enumerates the publication states a post can be in.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Post is a user-authored comment attached to exactly one item.
type Post struct {
	ID         ID         `json:"id"`
	ItemID     ID         `json:"synthetiserId"`
	Title      string     `json:"titre,omitempty"`
	Comment    string     `json:"commentaire,omitempty"`
	ContentURL string     `json:"url_contenu,omitempty"`
	Status     PostStatus `json:"statut,omitempty"`
	Author     *Author    `json:"author,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

type Author struct {
	Username string `json:"username"`
}

// PostsForItem filters posts down to the ones belonging to itemID.
//
// The backend may return a broader result set than requested, so the filter is
// applied client-side on every render path. Posts whose parent id does not
// normalize to itemID are dropped silently.
func PostsForItem(posts []Post, itemID ID) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.ItemID.Equal(itemID) {
			out = append(out, p)
		}
	}
	return out
}

// itemCollator orders brand/model case-insensitively and locale-aware, matching
// how the catalog is presented. French covers the accented brand/model names in
// the data set and degrades to sensible Latin collation otherwise.
var itemCollator = collate.New(language.French, collate.IgnoreCase)

// SortItems orders items by brand then model, ascending. The sort is stable so
// equal keys keep their fetch order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if c := itemCollator.CompareString(items[i].Brand, items[j].Brand); c != 0 {
			return c < 0
		}
		return itemCollator.CompareString(items[i].Model, items[j].Model) < 0
	})
}

// PageCount computes the number of pages for total records at pageSize per page.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
