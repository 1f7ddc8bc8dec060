package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/auth/google"
	"github.com/modalyze/modalyze/internal/config"
)

// LoginOptions contains options for the login process.
// It provides configuration for the OAuth flow including browser behavior
// and interactive prompting capabilities.
type LoginOptions struct {
	// NoBrowser indicates whether to skip opening the browser automatically.
	NoBrowser bool

	// CallbackPort overrides the local OAuth callback port when set (>0).
	CallbackPort int

	// Prompt allows the caller to provide interactive input when needed.
	Prompt func(prompt string) (string, error)
}

// DoLogin runs the Google OAuth flow and saves the resulting tokens to the
// configured auth directory.
//
// Parameters:
//   - cfg: The application configuration
//   - options: Login options including browser behavior and prompts
func DoLogin(cfg *config.Config, options *LoginOptions) {
	if options == nil {
		options = &LoginOptions{}
	}

	promptFn := options.Prompt
	if promptFn == nil {
		promptFn = defaultLinePrompt()
	}

	provider, err := auth.NewProvider(cfg)
	if err != nil {
		log.Errorf("failed to initialize authentication: %v", err)
		os.Exit(1)
	}

	authOpts := &google.AuthenticateOptions{
		NoBrowser: options.NoBrowser,
		Port:      options.CallbackPort,
		Prompt:    promptFn,
	}

	_, err = provider.Flow().Authenticate(context.Background(), authOpts)
	if err != nil {
		if authErr, ok := errors.AsType[*google.AuthenticationError](err); ok {
			log.Error(google.GetUserFriendlyMessage(authErr))
			if authErr.Type == google.ErrPortInUse.Type {
				os.Exit(google.ErrPortInUse.Code)
			}
			os.Exit(1)
		}
		fmt.Printf("Google authentication failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Authentication saved to %s\n", provider.Flow().Store().Path())
	fmt.Println("Google authentication successful!")
}

// defaultLinePrompt reads one line from stdin. An empty line is returned as
// an empty string rather than an error so callers can treat it as "skip".
func defaultLinePrompt() func(prompt string) (string, error) {
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) (string, error) {
		fmt.Println()
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}
