package match

import (
	"errors"
	"fmt"
)

// ConfigError reports a pattern or parameter problem that prevents a search
// from starting at all.
type ConfigError struct {
	Field   string
	Pattern string
	Message string
	// Offset is the byte offset into Pattern where the problem was found, or -1.
	Offset     int
	Underlying error
}

func NewConfigError(field, pattern, msg string) *ConfigError {
	return newConfigError(field, pattern, msg)
}

func newConfigError(field, pattern, msg string) *ConfigError {
	return &ConfigError{Field: field, Pattern: pattern, Message: msg, Offset: -1}
}

func (e *ConfigError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid %s %q at offset %d: %s", e.Field, e.Pattern, e.Offset, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Pattern, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
