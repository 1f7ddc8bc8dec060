package tui

import (
	"strings"
	"testing"

	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/auth/google"
	"github.com/modalyze/modalyze/internal/constant"
)

func TestRenderGoogleStatusAuthenticated(t *testing.T) {
	t.Parallel()

	st := &auth.GoogleStatus{
		Authenticated: true,
		Method:        constant.AuthMethodOAuth,
		HasAPIKey:     true,
		OAuth: &google.AuthStatus{
			Configured:      true,
			Authenticated:   true,
			HasRefreshToken: true,
			ExpiresAt:       "2026-08-25T12:00:00Z",
		},
	}

	got := RenderGoogleStatus(st)
	for _, want := range []string{
		"Google authentication",
		"✓ authenticated (OAuth)",
		"valid",
		"2026-08-25T12:00:00Z",
		"present",
		"configured",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderGoogleStatus = %q, want it to contain %q", got, want)
		}
	}
}

func TestRenderGoogleStatusLoggedOut(t *testing.T) {
	t.Parallel()

	st := &auth.GoogleStatus{
		Method: constant.AuthMethodNone,
		OAuth:  &google.AuthStatus{},
	}

	got := RenderGoogleStatus(st)
	for _, want := range []string{"✗ not authenticated", "run -login", "not configured"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderGoogleStatus = %q, want it to contain %q", got, want)
		}
	}
}

func TestRenderGoogleStatusExpiredTokens(t *testing.T) {
	t.Parallel()

	st := &auth.GoogleStatus{
		Authenticated: true,
		Method:        constant.AuthMethodAPIKey,
		HasAPIKey:     true,
		OAuth: &google.AuthStatus{
			Configured:      true,
			Authenticated:   false,
			HasRefreshToken: false,
			ExpiresAt:       "2026-08-20T08:00:00Z",
		},
	}

	got := RenderGoogleStatus(st)
	for _, want := range []string{
		"✓ authenticated (API Key)",
		"expired or invalid",
		"2026-08-20T08:00:00Z",
		"none",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderGoogleStatus = %q, want it to contain %q", got, want)
		}
	}
}

func TestRenderProviderKeys(t *testing.T) {
	t.Parallel()

	got := RenderProviderKeys([]ProviderKey{
		{Name: "OpenAI", Configured: true},
		{Name: "Anthropic"},
	})

	for _, want := range []string{"API keys", "OpenAI", "configured", "Anthropic", "not configured"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderProviderKeys = %q, want it to contain %q", got, want)
		}
	}
}
