package google

import (
	"os"
	"testing"
	"time"
)

func TestTokenStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewTokenStore(t.TempDir())
	rec := &TokenRecord{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Format(time.RFC3339),
		TokenType:    "Bearer",
		Scope:        "https://www.googleapis.com/auth/cloud-platform",
	}

	if err := store.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := store.Load()
	if got == nil {
		t.Fatal("Load() = nil, want stored record")
	}
	if *got != *rec {
		t.Errorf("Load() = %+v, want %+v", *got, *rec)
	}
}

func TestTokenStoreFilePermissions(t *testing.T) {
	t.Parallel()

	store := NewTokenStore(t.TempDir())
	rec := &TokenRecord{AccessToken: "tok"}

	if err := store.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 0600", perm)
	}

	// A re-save over a file with broader permissions tightens them again.
	if err = os.Chmod(store.Path(), 0o644); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	if err = store.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err = os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode after re-save = %o, want 0600", perm)
	}
}

func TestTokenStoreLoadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewTokenStore(t.TempDir())
	if got := store.Load(); got != nil {
		t.Errorf("Load() = %+v, want nil for missing file", got)
	}
}

func TestTokenStoreLoadCorruptFile(t *testing.T) {
	t.Parallel()

	store := NewTokenStore(t.TempDir())
	if err := os.WriteFile(store.Path(), []byte("{not valid json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if got := store.Load(); got != nil {
		t.Errorf("Load() = %+v, want nil for corrupt file", got)
	}

	// A corrupt file must not block the next login from saving over it.
	rec := &TokenRecord{AccessToken: "fresh"}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save() over corrupt file error = %v", err)
	}
	got := store.Load()
	if got == nil || got.AccessToken != "fresh" {
		t.Errorf("Load() after re-save = %+v, want fresh record", got)
	}
}

func TestTokenStoreClear(t *testing.T) {
	t.Parallel()

	store := NewTokenStore(t.TempDir())
	if err := store.Save(&TokenRecord{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !store.Exists() {
		t.Fatal("Exists() = false after save")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if store.Exists() {
		t.Error("Exists() = true after clear")
	}

	// Clearing a second time is a no-op, not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("Clear() on missing file error = %v, want nil", err)
	}
}

func TestTokenStoreCreatesAuthDirectory(t *testing.T) {
	t.Parallel()

	authDir := t.TempDir() + "/nested/auth"
	store := NewTokenStore(authDir)
	if err := store.Save(&TokenRecord{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(authDir)
	if err != nil {
		t.Fatalf("Stat(authDir) error = %v", err)
	}
	if !info.IsDir() {
		t.Fatal("auth directory was not created")
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("auth directory mode = %o, want 0700", perm)
	}
}

func TestTokenRecordValid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name string
		rec  *TokenRecord
		want bool
	}{
		{
			"valid well before expiry",
			&TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(time.Hour).Format(time.RFC3339)},
			true,
		},
		{
			"already expired",
			&TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(-time.Hour).Format(time.RFC3339)},
			false,
		},
		{
			"expires inside the buffer",
			&TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(2 * time.Minute).Format(time.RFC3339)},
			false,
		},
		{
			"expires just outside the buffer",
			&TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(DefaultValidityBuffer + time.Minute).Format(time.RFC3339)},
			true,
		},
		{
			"missing access token",
			&TokenRecord{ExpiresAt: now.Add(time.Hour).Format(time.RFC3339)},
			false,
		},
		{
			"missing expiry",
			&TokenRecord{AccessToken: "tok"},
			false,
		},
		{
			"unparseable expiry",
			&TokenRecord{AccessToken: "tok", ExpiresAt: "soon"},
			false,
		},
		{
			"naive timestamp from older credential files",
			&TokenRecord{AccessToken: "tok", ExpiresAt: now.UTC().Add(time.Hour).Format("2006-01-02T15:04:05.999999")},
			true,
		},
		{
			"nil record",
			nil,
			false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.rec.Valid(DefaultValidityBuffer); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenStoreAccessToken(t *testing.T) {
	t.Parallel()

	store := NewTokenStore(t.TempDir())
	if got := store.AccessToken(); got != "" {
		t.Errorf("AccessToken() = %q, want empty with no stored token", got)
	}

	expired := &TokenRecord{
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(-time.Minute).Format(time.RFC3339),
	}
	if err := store.Save(expired); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.AccessToken(); got != "" {
		t.Errorf("AccessToken() = %q, want empty for expired token", got)
	}

	valid := &TokenRecord{
		AccessToken: "live",
		ExpiresAt:   time.Now().Add(time.Hour).Format(time.RFC3339),
	}
	if err := store.Save(valid); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.AccessToken(); got != "live" {
		t.Errorf("AccessToken() = %q, want %q", got, "live")
	}
}
