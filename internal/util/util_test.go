package util

import (
	"path/filepath"
	"testing"
)

// ResolveAuthDir reads the home directory, so tests pin HOME and stay serial.
func TestResolveAuthDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty stays empty", in: "", want: ""},
		{name: "bare tilde", in: "~", want: filepath.Clean(home)},
		{name: "tilde with path", in: "~/.modalyze", want: filepath.Join(home, ".modalyze")},
		{name: "tilde nested", in: "~/a/b", want: filepath.Join(home, "a", "b")},
		{name: "absolute untouched", in: "/var/lib/modalyze", want: filepath.Clean("/var/lib/modalyze")},
		{name: "relative cleaned", in: "auth//dir/", want: filepath.Clean("auth/dir")},
	}
	for _, tt := range tests {
		got, err := ResolveAuthDir(tt.in)
		if err != nil {
			t.Fatalf("ResolveAuthDir(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ResolveAuthDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
