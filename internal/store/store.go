// Package store persists the small amount of local client state synthdeck
// keeps between runs: the session credential and the last-visited catalog page.
// Everything lives in a per-user state directory (default ~/.synthdeck) inside
// a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	stateFileName = "state.sqlite"

	keyToken    = "session_token"
	keyUsername = "session_username"
	keyLastPage = "last_page"
	keyBaseURL  = "api_base_url"
)

type Store struct {
	Dir string
}

// DefaultDir resolves the state directory: $SYNTHDECK_DIR, else ~/.synthdeck.
func DefaultDir() (string, error) {
	if d := strings.TrimSpace(os.Getenv("SYNTHDECK_DIR")); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".synthdeck"), nil
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store: empty state dir")
	}
	return os.MkdirAll(s.Dir, 0o700)
}

func (s Store) statePath() string {
	return filepath.Join(s.Dir, stateFileName)
}

func (s Store) open(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.statePath())
	if err != nil {
		return nil, err
	}
	// WAL + busy_timeout so a TUI and a scripted invocation can coexist.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := s.migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s Store) migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);`)
	return err
}

func (s Store) get(ctx context.Context, key string) (string, error) {
	db, err := s.open(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var v string
	err = db.QueryRowContext(ctx, `SELECT v FROM state WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading state %q: %w", key, err)
	}
	return v, nil
}

func (s Store) set(ctx context.Context, key, value string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO state (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		key, value); err != nil {
		return fmt.Errorf("writing state %q: %w", key, err)
	}
	return nil
}

func (s Store) delete(ctx context.Context, keys ...string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, k := range keys {
		if _, err := db.ExecContext(ctx, `DELETE FROM state WHERE k = ?`, k); err != nil {
			return fmt.Errorf("deleting state %q: %w", k, err)
		}
	}
	return nil
}

// LoadToken returns the persisted session token ("" when absent).
func (s Store) LoadToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyToken)
}

// SaveToken persists the session token along with the username it belongs to.
func (s Store) SaveToken(ctx context.Context, token, username string) error {
	if err := s.set(ctx, keyToken, token); err != nil {
		return err
	}
	return s.set(ctx, keyUsername, username)
}

// ClearToken removes the persisted credential. Called on logout and on 401.
func (s Store) ClearToken(ctx context.Context) error {
	return s.delete(ctx, keyToken, keyUsername)
}

func (s Store) LoadUsername(ctx context.Context) (string, error) {
	return s.get(ctx, keyUsername)
}

// LoadLastPage returns the catalog page to restore on launch (0 when unset).
func (s Store) LoadLastPage(ctx context.Context) (int, error) {
	v, err := s.get(ctx, keyLastPage)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Invalid persisted state is best effort; start from page 1.
		return 0, nil
	}
	return n, nil
}

func (s Store) SaveLastPage(ctx context.Context, page int) error {
	return s.set(ctx, keyLastPage, strconv.Itoa(page))
}

// LoadBaseURL returns the configured API base URL ("" when unset).
func (s Store) LoadBaseURL(ctx context.Context) (string, error) {
	return s.get(ctx, keyBaseURL)
}

func (s Store) SaveBaseURL(ctx context.Context, u string) error {
	return s.set(ctx, keyBaseURL, strings.TrimSpace(u))
}
