package logging

import (
	"context"
	"testing"
)

func TestGenerateRunIDIsUnique(t *testing.T) {
	t.Parallel()

	a := GenerateRunID()
	b := GenerateRunID()
	if a == "" || b == "" {
		t.Fatalf("GenerateRunID() returned empty ID")
	}
	if a == b {
		t.Errorf("GenerateRunID() returned the same ID twice: %s", a)
	}
}

func TestShortRunID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "uuid prefix", in: "3f2504e0-4f89-11d3-9a0c-0305e82c3301", want: "3f2504e0"},
		{name: "short input unchanged", in: "abc", want: "abc"},
		{name: "empty", in: "", want: ""},
		{name: "dashes stripped before cut", in: "ab-cd-ef-gh-ij", want: "abcdefgh"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ShortRunID(tt.in); got != tt.want {
				t.Errorf("ShortRunID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunIDContextRoundTrip(t *testing.T) {
	t.Parallel()

	id := GenerateRunID()
	ctx := WithRunID(context.Background(), id)
	if got := GetRunID(ctx); got != id {
		t.Errorf("GetRunID() = %q, want %q", got, id)
	}
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID() on bare context = %q, want empty", got)
	}
	var missing context.Context
	if got := GetRunID(missing); got != "" {
		t.Errorf("GetRunID(nil) = %q, want empty", got)
	}
}
