package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"synthdeck-cli/internal/model"
)

// Client consumes the catalog REST backend. All requests carry the bearer token
// returned by the token source (when non-empty) and share one bounded-timeout
// HTTP client; a timed-out call surfaces as a plain network error.
type Client struct {
	baseURL string
	token   func() string
	http    *http.Client
}

const requestTimeout = 10 * time.Second

// New returns a client for baseURL. token is consulted per request so the client
// always observes the current credential, including a concurrent clear.
func New(baseURL string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// ItemsPage is the payload of GET /api/items.
type ItemsPage struct {
	Items []model.Item `json:"items"`
	Total int          `json:"total"`
}

// FetchItems retrieves one page of catalog items.
func (c *Client) FetchItems(ctx context.Context, page, limit int) (ItemsPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out ItemsPage
	if err := c.do(ctx, http.MethodGet, "/api/items?"+q.Encode(), nil, &out); err != nil {
		return ItemsPage{}, err
	}
	return out, nil
}

// ItemPatch carries the editable fields of an item. Nil fields are omitted from
// the request body, so a patch touches only what the editor changed.
type ItemPatch struct {
	Brand          *string  `json:"marque,omitempty"`
	Model          *string  `json:"modele,omitempty"`
	Specifications *string  `json:"specifications,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
}

// UpdateItem applies a partial update to the item.
func (c *Client) UpdateItem(ctx context.Context, id model.ID, patch ItemPatch) (model.Item, error) {
	var out model.Item
	if err := c.do(ctx, http.MethodPut, "/api/items/"+url.PathEscape(id.String()), patch, &out); err != nil {
		return model.Item{}, err
	}
	return out, nil
}

// DeleteItem removes the item. The backend answers 204 (or a small success body,
// which is discarded).
func (c *Client) DeleteItem(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id.String()), nil, nil)
}

// DuplicateItem creates a new item copied from src. The backend assigns the new
// id; the source id is never sent.
func (c *Client) DuplicateItem(ctx context.Context, src model.Item) (model.Item, error) {
	body := struct {
		Brand          string    `json:"marque"`
		Model          string    `json:"modele"`
		Specifications string    `json:"specifications,omitempty"`
		Price          *float64  `json:"price,omitempty"`
		AuctionPrices  []float64 `json:"auctionPrices,omitempty"`
		ImageURL       string    `json:"image_url,omitempty"`
	}{
		Brand:          src.Brand,
		Model:          src.Model,
		Specifications: src.Specifications,
		Price:          src.Price,
		AuctionPrices:  src.AuctionPrices,
		ImageURL:       src.ImageURL,
	}
	var out model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items", body, &out); err != nil {
		return model.Item{}, err
	}
	return out, nil
}

// FetchPosts retrieves the posts attached to one item. Callers still filter the
// result through model.PostsForItem; the backend has returned unrelated posts
// before.
func (c *Client) FetchPosts(ctx context.Context, itemID model.ID) ([]model.Post, error) {
	q := url.Values{}
	q.Set("itemId", itemID.String())

	var out []model.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewPost is the payload for adding a post to an item.
type NewPost struct {
	ItemID  model.ID `json:"synthetiserId"`
	Title   string   `json:"titre,omitempty"`
	Comment string   `json:"commentaire,omitempty"`
}

// AddPost creates a post under the item named in p.
func (c *Client) AddPost(ctx context.Context, p NewPost) (model.Post, error) {
	var out model.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", p, &out); err != nil {
		return model.Post{}, err
	}
	return out, nil
}

// LoginResult is the payload of POST /auth/login.
type LoginResult struct {
	Token string `json:"token"`
	User  struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
}

// Login exchanges credentials for a bearer token. It does not store the token;
// that is the caller's job.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

// VerifiedUser is the payload of GET /auth/verify.
type VerifiedUser struct {
	User struct {
		RoleID      int      `json:"roleId"`
		Permissions []string `json:"permissions"`
	} `json:"user"`
}

// Verify asks the backend to re-validate the current credential. Privileged
// flows call this immediately before acting, so a revoked credential is caught
// even when the local claim decode still looks valid.
func (c *Client) Verify(ctx context.Context) (VerifiedUser, error) {
	var out VerifiedUser
	if err := c.do(ctx, http.MethodGet, "/auth/verify", nil, &out); err != nil {
		return VerifiedUser{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := strings.TrimSpace(c.token()); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
