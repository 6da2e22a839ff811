package session

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Capability is a named permission tag carried by the session's role claims.
//
// The set is closed: unknown tags in a token are ignored at decode time rather
// than rejected, so a newer backend can hand out tags an older client does not
// know about without breaking login.
type Capability string

const (
	CapItemsUpdate Capability = "items:update"
	CapItemsDelete Capability = "items:delete"
	CapItemsCreate Capability = "items:create"
	CapPostsCreate Capability = "posts:create"
)

var knownCapabilities = map[Capability]bool{
	CapItemsUpdate: true,
	CapItemsDelete: true,
	CapItemsCreate: true,
	CapPostsCreate: true,
}

// adminRoleID is the backend role id with full catalog rights.
const adminRoleID = 2

// roleCapabilities derives capabilities for tokens that carry a role tag but no
// explicit permissions claim.
var roleCapabilities = map[string][]Capability{
	"admin": {CapItemsUpdate, CapItemsDelete, CapItemsCreate, CapPostsCreate},
	"user":  {CapPostsCreate},
}

// Claims is the decoded shape of the backend's bearer token.
type Claims struct {
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	RoleID      int      `json:"roleId"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Session is the process-wide credential state. Every component reads it through
// query methods; it is written only by the login flow and by the 401 path, both
// of which go through Set/Clear so readers always observe a consistent snapshot.
//
// The decode is local and unverified: the client holds no signing secret, and
// authorization is enforced by the backend anyway. The claims only drive which
// controls render.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims *Claims
	caps   map[Capability]bool
}

func New() *Session { return &Session{} }

// Set installs a new bearer token, decoding its claims. A malformed token is
// treated as "no credential": the session is cleared and Set reports false.
func (s *Session) Set(token string) bool {
	token = strings.TrimSpace(token)
	claims, ok := decode(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.token = ""
		s.claims = nil
		s.caps = nil
		return false
	}
	s.token = token
	s.claims = claims
	s.caps = capabilitiesFor(claims)
	return true
}

// Clear drops the credential. Mutations already in flight keep the token they
// captured at request time and settle on their own response.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.claims = nil
	s.caps = nil
}

// Token returns the raw bearer token, or "" when unauthenticated. Suitable as
// the api.Client token source.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a well-formed, non-expired token is present.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticatedLocked()
}

func (s *Session) authenticatedLocked() bool {
	if s.claims == nil || s.token == "" {
		return false
	}
	if s.claims.ExpiresAt != nil && !time.Now().Before(s.claims.ExpiresAt.Time) {
		return false
	}
	return true
}

// Has reports whether the session grants cap. Always false when unauthenticated.
func (s *Session) Has(cap Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticatedLocked() && s.caps[cap]
}

// CanMutateItems reports whether any item-mutating capability is held; the card
// action bar renders only when this is true.
func (s *Session) CanMutateItems() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticatedLocked() {
		return false
	}
	return s.caps[CapItemsUpdate] || s.caps[CapItemsDelete] || s.caps[CapItemsCreate]
}

// Username returns the decoded username, or "" when unauthenticated.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticatedLocked() {
		return ""
	}
	return s.claims.Username
}

// Role returns the decoded role tag, or "" when unauthenticated.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticatedLocked() {
		return ""
	}
	return s.claims.Role
}

func decode(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}
	claims := &Claims{}
	// ParseUnverified: signature verification is the backend's concern.
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

func capabilitiesFor(claims *Claims) map[Capability]bool {
	caps := map[Capability]bool{}

	// Explicit permissions claim wins; unknown tags are dropped.
	if len(claims.Permissions) > 0 {
		for _, p := range claims.Permissions {
			c := Capability(strings.TrimSpace(p))
			if knownCapabilities[c] {
				caps[c] = true
			}
		}
		return caps
	}

	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role == "" && claims.RoleID == adminRoleID {
		role = "admin"
	}
	for _, c := range roleCapabilities[role] {
		caps[c] = true
	}
	return caps
}
