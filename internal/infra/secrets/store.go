// Package secrets persists credentials as opaque secrets on disk.
// Each key is one file with owner-only permissions under an XDG state
// directory.
package secrets

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("secret not found")

// Fixed store keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyTokenExpiry  = "token_expiry"
	KeyUser         = "user"
)

const filePermission = 0o600

// TokenBundle is the persisted credential set. The store owns the
// durable copy; the API client only holds a transient in-memory one.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token's expiry has passed.
func (b TokenBundle) Expired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// Store is a file-backed secret store.
type Store struct {
	dir string
}

// New creates a store rooted at dir. An empty dir defaults to the XDG
// state directory for the application.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(xdg.StateHome, "trackdeck")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create secrets directory")
	}
	return &Store{dir: dir}, nil
}

// Save writes a value for a key, replacing any previous value.
func (s *Store) Save(key, value string) error {
	if err := os.WriteFile(s.path(key), []byte(value), filePermission); err != nil {
		return errors.Wrapf(err, "save secret %s", key)
	}
	return nil
}

// Load reads the value for a key. Returns ErrNotFound when the key has
// never been saved or has been deleted.
func (s *Store) Load(key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrNotFound, "%s", key)
		}
		return "", errors.Wrapf(err, "load secret %s", key)
	}
	return string(data), nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete secret %s", key)
	}
	return nil
}

// SaveTokens persists a token bundle.
func (s *Store) SaveTokens(b TokenBundle) error {
	if err := s.Save(KeyAccessToken, b.AccessToken); err != nil {
		return err
	}
	if err := s.Save(KeyRefreshToken, b.RefreshToken); err != nil {
		return err
	}
	return s.Save(KeyTokenExpiry, strconv.FormatInt(b.ExpiresAt.Unix(), 10))
}

// LoadTokens reads the persisted token bundle. Returns ErrNotFound when
// no bundle has been saved.
func (s *Store) LoadTokens() (TokenBundle, error) {
	access, err := s.Load(KeyAccessToken)
	if err != nil {
		return TokenBundle{}, err
	}
	refresh, err := s.Load(KeyRefreshToken)
	if err != nil {
		return TokenBundle{}, err
	}
	expiry, err := s.Load(KeyTokenExpiry)
	if err != nil {
		return TokenBundle{}, err
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return TokenBundle{}, errors.Wrap(err, "parse token expiry")
	}
	return TokenBundle{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Unix(unix, 0),
	}, nil
}

// SaveUser persists the cached user blob.
func (s *Store) SaveUser(blob []byte) error {
	return s.Save(KeyUser, string(blob))
}

// LoadUser reads the cached user blob.
func (s *Store) LoadUser() ([]byte, error) {
	v, err := s.Load(KeyUser)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

// Clear removes every stored secret, used on forced logout.
func (s *Store) Clear() error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiry, KeyUser} {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}
