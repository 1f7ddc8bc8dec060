package logging

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// runIDKey is the context key for storing/retrieving run IDs.
type runIDKey struct{}

// GenerateRunID creates a new run ID for one invocation of the analyzer.
// The full UUID tags sink rows; log lines show the 8-character prefix.
func GenerateRunID() string {
	return uuid.NewString()
}

// ShortRunID returns the 8-character prefix used in log lines.
func ShortRunID(runID string) string {
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// WithRunID returns a new context with the run ID attached.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// GetRunID retrieves the run ID from the context.
// Returns empty string if not found.
func GetRunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}
