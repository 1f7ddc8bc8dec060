package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/tui"
)

// DoAuthStatus prints the Google authentication state followed by the
// configured state of every static provider key.
func DoAuthStatus(cfg *config.Config) {
	provider, err := auth.NewProvider(cfg)
	if err != nil {
		log.Errorf("failed to initialize authentication: %v", err)
		os.Exit(1)
	}

	fmt.Print(tui.RenderGoogleStatus(provider.Status()))
	fmt.Println()
	fmt.Print(tui.RenderProviderKeys([]tui.ProviderKey{
		{Name: "OpenAI", Configured: cfg.OpenAIAPIKey != ""},
		{Name: "Anthropic", Configured: cfg.AnthropicAPIKey != ""},
		{Name: "Azure OpenAI", Configured: cfg.AzureOpenAIKey != ""},
	}))
}
