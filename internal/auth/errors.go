package auth

import "fmt"

// ConfigError reports a missing or unusable credential setting for a model.
type ConfigError struct {
	// Field names the configuration entry or environment variable involved.
	Field string
	// Message is the user-facing description of what is missing.
	Message string
}

// Error returns the user-facing message.
func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigError creates a configuration error for the given field.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
