package config

import (
	"errors"
	"fmt"
)

// ErrInvalidTimezone is returned when a timezone name is not a known IANA zone.
var ErrInvalidTimezone = errors.New("invalid timezone")

// ConfigurationError reports a missing required setting.
type ConfigurationError struct {
	Setting string
	Hint    string
}

func (e *ConfigurationError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s not found", e.Setting)
	}
	return fmt.Sprintf("%s not found. %s", e.Setting, e.Hint)
}
