package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CookieName is the name under which the bearer token is persisted.
const CookieName = "token"

// TokenStore persists the session token between runs.
type TokenStore interface {
	// Load returns the stored token, or "" when none is stored or it has expired.
	Load() (string, error)
	// Save stores token until expires.
	Save(token string, expires time.Time) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// cookie is the on-disk form of the token cookie.
type cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

// CookieFile keeps the token cookie in a JSON file.
type CookieFile struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewCookieFile returns a CookieFile stored at path.
func NewCookieFile(path string) *CookieFile {
	return &CookieFile{path: path, now: time.Now}
}

// Load implements TokenStore. An expired cookie is deleted and reported as absent.
func (f *CookieFile) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read cookie file: %w", err)
	}

	var c cookie
	if err := json.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("decode cookie file: %w", err)
	}
	if c.Name != CookieName || c.Value == "" {
		return "", nil
	}
	if !c.Expires.After(f.now()) {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove expired cookie: %w", err)
		}
		return "", nil
	}
	return c.Value, nil
}

// Save implements TokenStore. The file is replaced atomically.
func (f *CookieFile) Save(token string, expires time.Time) error {
	if token == "" {
		return errors.New("empty token")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(cookie{Name: CookieName, Value: token, Expires: expires.UTC()})
	if err != nil {
		return fmt.Errorf("encode cookie: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create cookie file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cookie file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("save cookie file: %w", err)
	}
	return nil
}

// Clear implements TokenStore.
func (f *CookieFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cookie file: %w", err)
	}
	return nil
}
