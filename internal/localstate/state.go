// Package localstate persists the small amount of client-side UI state the
// portal keeps between runs: the last active tab and cached auth artifacts.
// Each key is one file under the state directory.
package localstate

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// ActiveTabKey stores the last tab the user had open.
	ActiveTabKey = "portal_active_tab"
	// AuthCacheKey stores the cached session blob.
	AuthCacheKey = "portal-auth"
)

// Store is a file-per-key store rooted at dir.
type Store struct {
	dir string
}

// Open ensures dir exists and returns a store over it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// DefaultDir resolves the per-user state directory.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "candidate-portal")
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}

// Get returns the stored value for key, or "" when absent.
func (s *Store) Get(key string) string {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Set writes value under key, best-effort.
func (s *Store) Set(key, value string) error {
	return os.WriteFile(s.path(key), []byte(value), 0o600)
}

// Remove deletes a key, ignoring absence.
func (s *Store) Remove(key string) {
	_ = os.Remove(s.path(key))
}

// ActiveTab returns the persisted tab key, if any.
func (s *Store) ActiveTab() string { return s.Get(ActiveTabKey) }

// SetActiveTab persists the tab key.
func (s *Store) SetActiveTab(tab string) { _ = s.Set(ActiveTabKey, tab) }

// ClearAuthArtifacts removes the auth cache key, the tab key, and any key
// that looks like a cached token. Sign-out calls this unconditionally, so a
// stale or renamed token file never survives the flow.
func (s *Store) ClearAuthArtifacts() {
	s.Remove(AuthCacheKey)
	s.Remove(ActiveTabKey)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if looksLikeAuthKey(e.Name()) {
			s.Remove(e.Name())
		}
	}
}

func looksLikeAuthKey(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(name, "sb-") ||
		strings.Contains(lower, "auth-token") ||
		strings.Contains(lower, "access_token") ||
		strings.Contains(lower, "refresh_token")
}
