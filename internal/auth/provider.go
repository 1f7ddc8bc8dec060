// Package auth resolves credentials per model family. Google models cascade
// from OAuth tokens to a static API key; every other family uses its
// configured key directly.
package auth

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/auth/google"
	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/constant"
)

// FamilyForModel maps a model name to its provider family by prefix.
// The empty string means the model belongs to no known family.
func FamilyForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "azure/"):
		return constant.Azure
	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "openai/"),
		strings.HasPrefix(model, "whisper"):
		return constant.OpenAI
	case strings.HasPrefix(model, "claude-"),
		strings.HasPrefix(model, "anthropic/"):
		return constant.Anthropic
	case strings.HasPrefix(model, "gemini"),
		strings.HasPrefix(model, "google/"):
		return constant.Gemini
	default:
		return ""
	}
}

// Credential is a resolved secret together with how it was obtained.
type Credential struct {
	// Token is the API key or OAuth access token. Empty when Method is None.
	Token string
	// Method is one of the constant.AuthMethod values.
	Method string
}

// Provider resolves credentials for model families.
type Provider struct {
	cfg  *config.Config
	flow *google.FlowManager
}

// NewProvider builds a provider, including the Google OAuth flow manager.
func NewProvider(cfg *config.Config) (*Provider, error) {
	flow, err := google.NewFlowManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, flow: flow}, nil
}

// Flow exposes the Google OAuth flow manager for the login and logout verbs.
func (p *Provider) Flow() *google.FlowManager {
	return p.flow
}

// CredentialForModel resolves the credential for the given model. Google
// models try OAuth first and fall back to the API key; the cascade never
// errors, it just reports Method None when nothing is configured.
func (p *Provider) CredentialForModel(ctx context.Context, model string) Credential {
	switch FamilyForModel(model) {
	case constant.Azure:
		if p.cfg.AzureOpenAIKey != "" {
			return Credential{Token: p.cfg.AzureOpenAIKey, Method: constant.AuthMethodAPIKey}
		}
	case constant.OpenAI:
		if p.cfg.OpenAIAPIKey != "" {
			return Credential{Token: p.cfg.OpenAIAPIKey, Method: constant.AuthMethodAPIKey}
		}
	case constant.Anthropic:
		if p.cfg.AnthropicAPIKey != "" {
			return Credential{Token: p.cfg.AnthropicAPIKey, Method: constant.AuthMethodAPIKey}
		}
	case constant.Gemini:
		if token := p.flow.ValidAccessToken(ctx); token != "" {
			log.Debug("using OAuth access token for Google authentication")
			return Credential{Token: token, Method: constant.AuthMethodOAuth}
		}
		if p.cfg.GeminiAPIKey != "" {
			log.Debug("using API key for Google authentication")
			return Credential{Token: p.cfg.GeminiAPIKey, Method: constant.AuthMethodAPIKey}
		}
		log.Debug("no Google authentication available (no OAuth tokens or API key)")
	}
	return Credential{Method: constant.AuthMethodNone}
}

// ValidateForModel checks that a usable credential exists for the model and
// returns a ConfigError naming what is missing when it does not.
func (p *Provider) ValidateForModel(ctx context.Context, model string) error {
	switch FamilyForModel(model) {
	case constant.Azure:
		if strings.TrimSpace(p.cfg.AzureOpenAIKey) == "" {
			return NewConfigError("AZURE_OPENAI_KEY",
				"AZURE_OPENAI_KEY environment variable is required for Azure models")
		}
		if strings.TrimSpace(p.cfg.AzureOpenAIEndpoint) == "" {
			return NewConfigError("AZURE_OPENAI_ENDPOINT",
				"AZURE_OPENAI_ENDPOINT environment variable is required for Azure models")
		}
	case constant.OpenAI:
		if strings.TrimSpace(p.cfg.OpenAIAPIKey) == "" {
			return NewConfigError("OPENAI_API_KEY",
				"OPENAI_API_KEY environment variable is required for OpenAI models")
		}
	case constant.Anthropic:
		if strings.TrimSpace(p.cfg.AnthropicAPIKey) == "" {
			return NewConfigError("ANTHROPIC_API_KEY",
				"ANTHROPIC_API_KEY environment variable is required for Anthropic models")
		}
	case constant.Gemini:
		if cred := p.CredentialForModel(ctx, model); cred.Method == constant.AuthMethodNone {
			return NewConfigError("GEMINI_API_KEY",
				"no Google authentication available: run 'modalyze -login' to authenticate with OAuth, or set the GEMINI_API_KEY environment variable")
		}
	default:
		return NewConfigError("model", "no API key available for model: %s", model)
	}
	return nil
}

// GoogleStatus summarizes Google authentication across both methods.
type GoogleStatus struct {
	// HasAPIKey reports whether a Gemini API key is configured.
	HasAPIKey bool
	// OAuth is the detailed OAuth credential state.
	OAuth *google.AuthStatus
	// Authenticated is true when either method can serve a request now.
	Authenticated bool
	// Method is the method that would be used, or None.
	Method string
}

// Status reports the Google authentication state, preferring OAuth over the
// API key the same way credential resolution does.
func (p *Provider) Status() *GoogleStatus {
	oauth := p.flow.Status()
	st := &GoogleStatus{
		HasAPIKey: p.cfg.GeminiAPIKey != "",
		OAuth:     oauth,
	}
	switch {
	case oauth.Authenticated:
		st.Authenticated = true
		st.Method = constant.AuthMethodOAuth
	case st.HasAPIKey:
		st.Authenticated = true
		st.Method = constant.AuthMethodAPIKey
	default:
		st.Method = constant.AuthMethodNone
	}
	return st
}
