package config

import (
	"strconv"
	"strings"
)

// source looks up a key in the environment first and the settings file second.
type source struct {
	getenv   func(string) string
	settings map[string]string
}

func (s source) lookup(key string) string {
	if v := strings.TrimSpace(s.getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(s.settings[key])
}

// getOrDefault returns the value of a setting or a default value.
func (s source) getOrDefault(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntOrDefault returns the integer value of a setting or a default value.
func (s source) getIntOrDefault(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getBoolOrDefault returns the boolean value of a setting or a default value.
func (s source) getBoolOrDefault(key string, defaultValue bool) bool {
	if value := s.lookup(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
