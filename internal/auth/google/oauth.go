package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/modalyze/modalyze/internal/browser"
	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/util"
)

// OAuth configuration constants for Google authentication.
const (
	// ClientID is the OAuth client used by the Gemini CLI family of tools.
	ClientID = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"

	// ClientSecret is the client secret for ClientID. Installed-app OAuth
	// clients treat this as public configuration, not a private credential.
	ClientSecret = "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"

	// AuthEndpoint is Google's authorization endpoint.
	AuthEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"

	// TokenEndpoint is Google's token endpoint for code exchange and refresh.
	TokenEndpoint = "https://oauth2.googleapis.com/token"

	// defaultCallbackPort starts the probe for a free local callback port.
	defaultCallbackPort = 8080

	// callbackWaitTimeout bounds how long an interactive login waits for the redirect.
	callbackWaitTimeout = 5 * time.Minute
)

// Scopes requested during authentication.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// AuthenticateOptions control one interactive authentication attempt.
type AuthenticateOptions struct {
	// NoBrowser prints the authorization URL instead of launching a browser.
	NoBrowser bool

	// Port fixes the callback port instead of probing for a free one.
	Port int

	// Prompt, when set, lets the user paste the callback URL manually after
	// a short grace period. It receives the prompt text and returns the line.
	Prompt func(message string) (string, error)
}

// FlowManager runs the OAuth2 authorization-code flow with PKCE against
// Google and manages the persisted token lifecycle.
type FlowManager struct {
	cfg        *config.Config
	store      *TokenStore
	httpClient *http.Client

	callbackHost string
	callbackPort int

	// tokenEndpoint is swappable so tests can point at a local server.
	tokenEndpoint string
	authEndpoint  string
}

// NewFlowManager builds a flow manager from the application configuration.
func NewFlowManager(cfg *config.Config) (*FlowManager, error) {
	authDir, err := util.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		return nil, err
	}

	host := cfg.Callback.Host
	if host == "" {
		host = "localhost"
	}

	return &FlowManager{
		cfg:           cfg,
		store:         NewTokenStore(authDir),
		httpClient:    util.SetProxy(cfg, &http.Client{Timeout: 30 * time.Second}),
		callbackHost:  host,
		callbackPort:  cfg.Callback.Port,
		tokenEndpoint: TokenEndpoint,
		authEndpoint:  AuthEndpoint,
	}, nil
}

// Store exposes the underlying token store.
func (m *FlowManager) Store() *TokenStore {
	return m.store
}

// authCodeURL builds the authorization URL for this attempt. Offline access
// and forced consent make Google return a refresh token every time.
func (m *FlowManager) authCodeURL(state string, pkce *PKCECodes, redirectURI string) string {
	conf := &oauth2.Config{
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  m.authEndpoint,
			TokenURL: m.tokenEndpoint,
		},
	}
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Authenticate runs the interactive login flow. When the stored token is
// still valid it is returned immediately without any network traffic.
func (m *FlowManager) Authenticate(ctx context.Context, opts *AuthenticateOptions) (*TokenRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &AuthenticateOptions{}
	}

	if rec := m.store.Load(); rec.Valid(DefaultValidityBuffer) {
		log.Info("already authenticated with valid token")
		return rec, nil
	}

	pkce, err := GeneratePKCECodes()
	if err != nil {
		return nil, fmt.Errorf("pkce generation failed: %w", err)
	}

	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("state generation failed: %w", err)
	}

	port := m.callbackPort
	if opts.Port > 0 {
		port = opts.Port
	}
	if port <= 0 {
		port, err = FindAvailablePort(m.callbackHost, defaultCallbackPort)
		if err != nil {
			return nil, NewAuthenticationError(ErrServerStartFailed, err)
		}
	}

	server := NewCallbackServer(m.callbackHost, port)
	if err = server.Start(); err != nil {
		if strings.Contains(err.Error(), "already in use") {
			return nil, NewAuthenticationError(ErrPortInUse, err)
		}
		return nil, NewAuthenticationError(ErrServerStartFailed, err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if stopErr := server.Stop(stopCtx); stopErr != nil {
			log.Warnf("oauth callback server stop error: %v", stopErr)
		}
	}()

	redirectURI := server.RedirectURI()
	authURL := m.authCodeURL(state, pkce, redirectURI)

	suppress := opts.NoBrowser || browser.ShouldSuppress()
	if !suppress {
		fmt.Println("Opening browser for Google authentication")
		if !browser.IsAvailable() {
			suppress = true
			log.Warn("no browser available; please open the URL manually")
		} else if err = browser.OpenURL(authURL); err != nil {
			suppress = true
			log.Warnf("failed to open browser automatically: %v", err)
		}
	}
	if suppress {
		if errClip := clipboard.WriteAll(authURL); errClip == nil {
			fmt.Println("The authentication URL has been copied to your clipboard.")
		}
		if os.Getenv("SSH_CONNECTION") != "" {
			util.PrintSSHTunnelInstructions(port)
		}
		fmt.Printf("Visit the following URL to continue authentication:\n%s\n", authURL)
	}

	fmt.Println("Waiting for Google authentication callback...")

	result, err := m.waitForResult(server, opts)
	if err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, NewOAuthError(result.Error, result.ErrorDescription, http.StatusBadRequest)
	}

	// Reject forged or replayed callbacks before touching the token endpoint.
	if result.State != state {
		return nil, NewAuthenticationError(ErrInvalidState, fmt.Errorf("state mismatch"))
	}

	log.Debug("authorization code received; exchanging for tokens")

	rec, err := m.exchangeCode(ctx, result.Code, pkce.CodeVerifier, redirectURI)
	if err != nil {
		return nil, err
	}

	if err = m.store.Save(rec); err != nil {
		return nil, err
	}

	log.Info("OAuth authentication successful")
	return rec, nil
}

// waitForResult races the callback server against the optional manual-paste
// prompt, which is offered after a short grace period.
func (m *FlowManager) waitForResult(server *CallbackServer, opts *AuthenticateOptions) (*CallbackResult, error) {
	callbackCh := make(chan *CallbackResult, 1)
	callbackErrCh := make(chan error, 1)

	go func() {
		result, errWait := server.WaitForCallback(callbackWaitTimeout)
		if errWait != nil {
			callbackErrCh <- errWait
			return
		}
		callbackCh <- result
	}()

	var manualPromptC <-chan time.Time
	if opts.Prompt != nil {
		manualPromptTimer := time.NewTimer(15 * time.Second)
		manualPromptC = manualPromptTimer.C
		defer manualPromptTimer.Stop()
	}

	for {
		select {
		case result := <-callbackCh:
			return result, nil
		case err := <-callbackErrCh:
			return nil, err
		case <-manualPromptC:
			manualPromptC = nil
			// The callback may have landed while the prompt fired.
			select {
			case result := <-callbackCh:
				return result, nil
			case err := <-callbackErrCh:
				return nil, err
			default:
			}
			input, errPrompt := opts.Prompt("Paste the callback URL (or press Enter to keep waiting): ")
			if errPrompt != nil {
				return nil, errPrompt
			}
			parsed, errParse := ParseCallbackURL(input)
			if errParse != nil {
				return nil, errParse
			}
			if parsed == nil {
				continue
			}
			return parsed, nil
		}
	}
}

// tokenResponse is the JSON body returned by the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

// postTokenForm submits a form-encoded request to the token endpoint and
// decodes the response, converting provider error bodies into OAuthError.
func (m *FlowManager) postTokenForm(ctx context.Context, data url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", m.tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if errJSON := json.Unmarshal(body, &oauthErr); errJSON == nil && oauthErr.Error != "" {
			return nil, NewOAuthError(oauthErr.Error, oauthErr.ErrorDescription, resp.StatusCode)
		}
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err = json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	return &tokenResp, nil
}

// exchangeCode trades the authorization code for tokens and computes the
// absolute expiry instant from the relative expires_in the provider returns.
func (m *FlowManager) exchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenRecord, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {ClientID},
		"client_secret": {ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	}

	tokenResp, err := m.postTokenForm(ctx, data)
	if err != nil {
		if IsOAuthError(err) {
			return nil, err
		}
		return nil, NewAuthenticationError(ErrCodeExchangeFailed, err)
	}

	tokenType := tokenResp.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &TokenRecord{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second).Format(time.RFC3339),
		TokenType:    tokenType,
		Scope:        tokenResp.Scope,
	}, nil
}

// Refresh obtains a new access token using the stored refresh token.
// It returns (nil, nil) when there is nothing to refresh; a warning is only
// logged when a credential file exists, so never-configured setups stay quiet.
// The provider may omit the refresh token in its response, in which case the
// previous one is carried forward.
func (m *FlowManager) Refresh(ctx context.Context) (*TokenRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rec := m.store.Load()
	if rec == nil || rec.RefreshToken == "" {
		if m.store.Exists() {
			log.Warn("no refresh token available; re-authentication required")
		}
		return nil, nil
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ClientID},
		"client_secret": {ClientSecret},
		"refresh_token": {rec.RefreshToken},
	}

	tokenResp, err := m.postTokenForm(ctx, data)
	if err != nil {
		if IsOAuthError(err) {
			return nil, err
		}
		return nil, NewAuthenticationError(ErrRefreshFailed, err)
	}

	refreshToken := tokenResp.RefreshToken
	if refreshToken == "" {
		refreshToken = rec.RefreshToken
	}
	tokenType := tokenResp.TokenType
	if tokenType == "" {
		tokenType = rec.TokenType
	}
	scope := tokenResp.Scope
	if scope == "" {
		scope = rec.Scope
	}

	refreshed := &TokenRecord{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second).Format(time.RFC3339),
		TokenType:    tokenType,
		Scope:        scope,
	}

	if err = m.store.Save(refreshed); err != nil {
		return nil, err
	}

	log.Debug("access token refreshed")
	return refreshed, nil
}

// ValidAccessToken returns a usable access token, silently refreshing when
// the stored one has expired. It returns the empty string when OAuth was
// never set up or no usable token can be produced; callers fall back to an
// API key in that case.
func (m *FlowManager) ValidAccessToken(ctx context.Context) string {
	rec := m.store.Load()
	if rec.Valid(DefaultValidityBuffer) {
		return rec.AccessToken
	}
	if rec != nil && rec.RefreshToken != "" {
		refreshed, err := m.Refresh(ctx)
		if err != nil {
			log.Warnf("token refresh failed: %v", err)
			return ""
		}
		if refreshed != nil {
			return refreshed.AccessToken
		}
	}
	return ""
}

// Logout removes stored credentials. It reports whether anything was removed.
func (m *FlowManager) Logout() (bool, error) {
	existed := m.store.Exists()
	if err := m.store.Clear(); err != nil {
		return false, err
	}
	return existed, nil
}

// AuthStatus summarizes the state of the stored OAuth credential.
type AuthStatus struct {
	// Authenticated is true when a currently valid access token is stored.
	Authenticated bool

	// HasRefreshToken is true when a refresh token is available.
	HasRefreshToken bool

	// ExpiresAt is the stored expiry instant, empty when no token exists.
	ExpiresAt string

	// Configured is true when a credential file exists at all, valid or not.
	Configured bool
}

// Status reports the current OAuth credential state.
func (m *FlowManager) Status() *AuthStatus {
	rec := m.store.Load()
	status := &AuthStatus{
		Configured: m.store.Exists(),
	}
	if rec != nil {
		status.Authenticated = rec.Valid(DefaultValidityBuffer)
		status.HasRefreshToken = rec.RefreshToken != ""
		status.ExpiresAt = rec.ExpiresAt
	}
	return status
}
