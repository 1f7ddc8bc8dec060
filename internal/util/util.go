// Package util provides utility functions shared across the CLI.
// It includes helpers for logging configuration, proxy setup, path
// resolution, and SSH tunnel instructions for remote authentication.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/config"
)

// SetLogLevel configures the logrus log level based on the configuration.
// Verbose mode forces DebugLevel; otherwise the configured level string is
// parsed, falling back to InfoLevel when it is empty or invalid.
func SetLogLevel(cfg *config.Config) {
	currentLevel := log.GetLevel()
	newLevel := log.InfoLevel
	if cfg.Verbose {
		newLevel = log.DebugLevel
	} else if cfg.LogLevel != "" {
		parsed, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			log.Warnf("unknown log level %q, keeping %s", cfg.LogLevel, currentLevel)
			return
		}
		newLevel = parsed
	}

	if currentLevel != newLevel {
		log.SetLevel(newLevel)
		log.Debugf("log level changed from %s to %s", currentLevel, newLevel)
	}
}

// ResolveAuthDir normalizes the auth directory path for consistent reuse throughout the app.
// It expands a leading tilde (~) to the user's home directory and returns a cleaned path.
func ResolveAuthDir(authDir string) (string, error) {
	if authDir == "" {
		return "", nil
	}
	if strings.HasPrefix(authDir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve auth dir: %w", err)
		}
		remainder := strings.TrimPrefix(authDir, "~")
		remainder = strings.TrimLeft(remainder, "/\\")
		if remainder == "" {
			return filepath.Clean(home), nil
		}
		normalized := strings.ReplaceAll(remainder, "\\", "/")
		return filepath.Clean(filepath.Join(home, filepath.FromSlash(normalized))), nil
	}
	return filepath.Clean(authDir), nil
}
