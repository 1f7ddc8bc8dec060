package google

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// TokenFileName is the credential file kept under the auth directory.
const TokenFileName = "google_oauth.json"

// DefaultValidityBuffer is subtracted from the token lifetime when deciding
// whether a stored access token is still usable. A token expiring within the
// buffer counts as expired so requests do not fail mid-flight.
const DefaultValidityBuffer = 5 * time.Minute

// TokenRecord stores OAuth2 token information for Google API authentication.
// The JSON layout matches the credential file on disk; unknown keys in an
// existing file are tolerated and dropped on the next save.
type TokenRecord struct {
	// AccessToken is the bearer token presented to Google APIs.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived token used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the RFC 3339 instant at which AccessToken expires.
	ExpiresAt string `json:"expires_at,omitempty"`

	// TokenType is the token scheme, normally "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// Scope is the space-joined scope list granted by the user.
	Scope string `json:"scope,omitempty"`
}

// expiresAtTime parses the ExpiresAt field. The zero time and false are
// returned when the field is missing or unparseable.
func (r *TokenRecord) expiresAtTime() (time.Time, bool) {
	if r == nil || r.ExpiresAt == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, r.ExpiresAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Valid reports whether the record carries an access token that is still
// usable after subtracting the given buffer from its lifetime. A token
// expiring exactly at now+buffer is treated as expired.
func (r *TokenRecord) Valid(buffer time.Duration) bool {
	if r == nil || r.AccessToken == "" {
		return false
	}
	expiry, ok := r.expiresAtTime()
	if !ok {
		return false
	}
	return time.Now().Add(buffer).Before(expiry)
}

// TokenStore persists a TokenRecord as JSON under the auth directory.
type TokenStore struct {
	path string
}

// NewTokenStore creates a token store rooted at the given auth directory.
func NewTokenStore(authDir string) *TokenStore {
	return &TokenStore{path: filepath.Join(authDir, TokenFileName)}
}

// Path returns the token file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Exists reports whether a credential file is present at all, regardless of
// whether its contents are valid. This drives the distinction between "OAuth
// was never set up" and "OAuth is set up but currently unusable".
func (s *TokenStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular()
}

// Save serializes the record to the token file. The parent directory is
// created with mode 0700 when missing, and the file mode is forced to 0600
// even when the file already existed with broader permissions.
func (s *TokenStore) Save(rec *TokenRecord) error {
	if rec == nil {
		return &PersistenceError{Op: "save", Path: s.path, Cause: fmt.Errorf("nil token record")}
	}
	log.Debugf("saving credentials to %s", s.path)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Cause: err}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Cause: err}
	}
	defer func() {
		if errClose := f.Close(); errClose != nil {
			log.Errorf("failed to close token file: %v", errClose)
		}
	}()

	if err = json.NewEncoder(f).Encode(rec); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Cause: err}
	}
	if err = os.Chmod(s.path, 0o600); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Cause: err}
	}
	return nil
}

// Load reads the stored record. A missing, unreadable, or corrupt file is
// treated as "no stored token" and returns nil; load never fails hard so a
// damaged credential file can only ever force a re-login.
func (s *TokenStore) Load() *TokenRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to read token file %s: %v", s.path, err)
		}
		return nil
	}

	var rec TokenRecord
	if err = json.Unmarshal(data, &rec); err != nil {
		log.Warnf("ignoring corrupt token file %s: %v", s.path, err)
		return nil
	}
	return &rec
}

// Clear removes the token file. A missing file is a successful clear.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Op: "clear", Path: s.path, Cause: err}
	}
	return nil
}

// AccessToken returns the stored access token when it is still valid under
// the default buffer, or the empty string otherwise.
func (s *TokenStore) AccessToken() string {
	rec := s.Load()
	if rec.Valid(DefaultValidityBuffer) {
		return rec.AccessToken
	}
	return ""
}
