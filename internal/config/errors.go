package config

import (
	"errors"
	"fmt"

	"github.com/dshills/luadap/internal/config/loader"
)

// Sentinel errors.
var (
	ErrConfigNotFound    = errors.New("config file not found")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// ParseError reports a malformed configuration file.
type ParseError = loader.ParseError

// ValidationError reports a setting with an invalid value.
type ValidationError struct {
	Path    string
	Message string
	Value   any
	Code    string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config: %s", e.Message)
	}
	if e.Value != nil {
		return fmt.Sprintf("invalid config %s = %v: %s", e.Path, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid config %s: %s", e.Path, e.Message)
}
