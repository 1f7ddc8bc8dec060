package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/config"
)

// DoLogout removes the stored Google OAuth credentials.
func DoLogout(cfg *config.Config) {
	provider, err := auth.NewProvider(cfg)
	if err != nil {
		log.Errorf("failed to initialize authentication: %v", err)
		os.Exit(1)
	}

	removed, err := provider.Flow().Logout()
	if err != nil {
		log.Errorf("logout failed: %v", err)
		os.Exit(1)
	}

	if removed {
		fmt.Println("Logged out from Google OAuth.")
		return
	}
	fmt.Println("No stored Google credentials found.")
}
