package tui

import (
	"fmt"
	"strings"

	"github.com/modalyze/modalyze/internal/auth"
)

// RenderGoogleStatus renders the authentication status report shown by the
// auth-status verb.
func RenderGoogleStatus(st *auth.GoogleStatus) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Google authentication"))
	b.WriteString("\n")

	if st.Authenticated {
		b.WriteString(statusRow("Status", successStyle.Render(fmt.Sprintf("✓ authenticated (%s)", st.Method))))
	} else {
		b.WriteString(statusRow("Status", errorStyle.Render("✗ not authenticated")))
	}

	oauth := st.OAuth
	switch {
	case oauth == nil || !oauth.Configured:
		b.WriteString(statusRow("OAuth tokens", mutedStyle.Render("none (run -login to authenticate)")))
	case oauth.Authenticated:
		b.WriteString(statusRow("OAuth tokens", successStyle.Render("valid")))
	default:
		b.WriteString(statusRow("OAuth tokens", warningStyle.Render("expired or invalid")))
	}
	if oauth != nil && oauth.Configured {
		if oauth.ExpiresAt != "" {
			b.WriteString(statusRow("Expires", oauth.ExpiresAt))
		}
		refresh := mutedStyle.Render("none")
		if oauth.HasRefreshToken {
			refresh = successStyle.Render("present")
		}
		b.WriteString(statusRow("Refresh token", refresh))
	}

	apiKey := mutedStyle.Render("not configured")
	if st.HasAPIKey {
		apiKey = successStyle.Render("configured")
	}
	b.WriteString(statusRow("API key", apiKey))

	return b.String()
}

// ProviderKey is one provider's API-key presence for the status report.
type ProviderKey struct {
	Name       string
	Configured bool
}

// RenderProviderKeys renders the per-provider API key section of the
// auth-status report.
func RenderProviderKeys(keys []ProviderKey) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("API keys"))
	b.WriteString("\n")
	for _, k := range keys {
		v := mutedStyle.Render("not configured")
		if k.Configured {
			v = successStyle.Render("configured")
		}
		b.WriteString(statusRow(k.Name, v))
	}
	return b.String()
}

func statusRow(label, value string) string {
	return fmt.Sprintf("  %s %s\n", labelStyle.Render(label), value)
}
