package store

import (
	"context"
	"testing"
)

func testStore(t *testing.T) Store {
	t.Helper()
	return Store{Dir: t.TempDir()}
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	tok, err := s.LoadToken(ctx)
	if err != nil {
		t.Fatalf("LoadToken on fresh store: %v", err)
	}
	if tok != "" {
		t.Fatalf("fresh store must have no token, got %q", tok)
	}

	if err := s.SaveToken(ctx, "tok-abc", "ana"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	tok, err = s.LoadToken(ctx)
	if err != nil || tok != "tok-abc" {
		t.Fatalf("expected persisted token, got %q (err=%v)", tok, err)
	}
	name, err := s.LoadUsername(ctx)
	if err != nil || name != "ana" {
		t.Fatalf("expected persisted username, got %q (err=%v)", name, err)
	}
}

func TestClearTokenRemovesCredential(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.SaveToken(ctx, "tok-abc", "ana"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if err := s.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	tok, _ := s.LoadToken(ctx)
	name, _ := s.LoadUsername(ctx)
	if tok != "" || name != "" {
		t.Fatalf("expected cleared credential, got token=%q username=%q", tok, name)
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	s.SaveToken(ctx, "old", "ana")
	if err := s.SaveToken(ctx, "new", "ana"); err != nil {
		t.Fatalf("SaveToken overwrite: %v", err)
	}
	tok, _ := s.LoadToken(ctx)
	if tok != "new" {
		t.Fatalf("expected overwritten token, got %q", tok)
	}
}

func TestLastPageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	pg, err := s.LoadLastPage(ctx)
	if err != nil || pg != 0 {
		t.Fatalf("fresh store last page: got %d (err=%v)", pg, err)
	}
	if err := s.SaveLastPage(ctx, 3); err != nil {
		t.Fatalf("SaveLastPage: %v", err)
	}
	pg, err = s.LoadLastPage(ctx)
	if err != nil || pg != 3 {
		t.Fatalf("expected last page 3, got %d (err=%v)", pg, err)
	}
}

func TestBaseURLRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.SaveBaseURL(ctx, " http://localhost:4000 "); err != nil {
		t.Fatalf("SaveBaseURL: %v", err)
	}
	u, err := s.LoadBaseURL(ctx)
	if err != nil || u != "http://localhost:4000" {
		t.Fatalf("expected trimmed base url, got %q (err=%v)", u, err)
	}
}
