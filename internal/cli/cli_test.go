package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"synthdeck-cli/internal/session"
)

func testBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": 2,
			"items": []map[string]any{
				{"id": 2, "marque": "Yamaha", "modele": "DX7"},
				{"id": 1, "marque": "Korg", "modele": "MS-20"},
			},
		})
	})
	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 10, "synthetiserId": 1, "commentaire": "still holds up"},
			{"id": 11, "synthetiserId": 2, "commentaire": "other item"},
		})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		claims := session.Claims{
			Username: "ana",
			Role:     "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": tok,
			"user":  map[string]any{"username": "ana"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCmd(t *testing.T, dir, apiURL string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--dir", dir, "--api", apiURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestItemsListJSONEnvelope(t *testing.T) {
	srv := testBackend(t)
	out, err := runCmd(t, t.TempDir(), srv.URL, "items", "list", "--format", "json")
	if err != nil {
		t.Fatalf("items list: %v", err)
	}

	var env struct {
		Items []struct {
			Brand string `json:"marque"`
		} `json:"items"`
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
		Total      int `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("unmarshal output: %v\n%s", err, out)
	}
	if env.Page != 1 || env.Total != 2 || env.TotalPages != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	// Items are sorted by brand before printing.
	if len(env.Items) != 2 || env.Items[0].Brand != "Korg" {
		t.Fatalf("expected sorted items, got %+v", env.Items)
	}
}

func TestItemsListJSONL(t *testing.T) {
	srv := testBackend(t)
	out, err := runCmd(t, t.TempDir(), srv.URL, "items", "list", "--format", "jsonl")
	if err != nil {
		t.Fatalf("items list: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per item, got %d:\n%s", len(lines), out)
	}
	var first struct {
		Brand string `json:"marque"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal line: %v", err)
	}
	if first.Brand != "Korg" {
		t.Fatalf("expected sorted first line, got %q", lines[0])
	}
}

func TestPostsListFiltersToItem(t *testing.T) {
	srv := testBackend(t)
	out, err := runCmd(t, t.TempDir(), srv.URL, "posts", "list", "--item", "1", "--format", "jsonl")
	if err != nil {
		t.Fatalf("posts list: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only item 1's post, got:\n%s", out)
	}
	if !strings.Contains(lines[0], "still holds up") {
		t.Fatalf("unexpected post: %q", lines[0])
	}
}

func TestLoginPersistsSessionAcrossCommands(t *testing.T) {
	srv := testBackend(t)
	dir := t.TempDir()

	out, err := runCmd(t, dir, srv.URL, "login", "--email", "ana@example.com", "--password", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in as ana") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out, err = runCmd(t, dir, srv.URL, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "ana") || !strings.Contains(out, "items:delete") {
		t.Fatalf("whoami must show the restored session and capabilities, got:\n%s", out)
	}

	if _, err := runCmd(t, dir, srv.URL, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, err = runCmd(t, dir, srv.URL, "whoami")
	if err != nil {
		t.Fatalf("whoami after logout: %v", err)
	}
	if !strings.Contains(out, "Not signed in") {
		t.Fatalf("expected signed-out state, got:\n%s", out)
	}
}

func TestItemsDeleteRequiresCapability(t *testing.T) {
	srv := testBackend(t)
	_, err := runCmd(t, t.TempDir(), srv.URL, "items", "delete", "5", "--yes")
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected a permission error without a session, got %v", err)
	}
}

func TestDocsTopics(t *testing.T) {
	srv := testBackend(t)
	out, err := runCmd(t, t.TempDir(), srv.URL, "docs", "--format", "json")
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	var env struct {
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	found := false
	for _, topic := range env.Topics {
		if topic == "permissions" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected permissions topic, got %v", env.Topics)
	}
}
