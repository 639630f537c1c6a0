package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/claude-meet/internal/calendar"
)

// ParseEmailList accepts a comma-separated string or a JSON array of strings
// and returns the trimmed, non-empty entries.
func ParseEmailList(v any) []string {
	var raw []string
	switch val := v.(type) {
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StringArg returns args[key] when it is a string, else "".
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// IntArg returns args[key] as an int. JSON numbers arrive as float64.
func IntArg(args map[string]any, key string, defaultValue int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return defaultValue
}

// BoolArg returns args[key] when it is a bool, else false.
func BoolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// TimeArg parses args[key] with calendar.ParseTime. Missing optional values
// yield the zero time.
func TimeArg(args map[string]any, key string, required bool, loc *time.Location) (time.Time, error) {
	s := StringArg(args, key)
	if s == "" {
		if required {
			return time.Time{}, fmt.Errorf("%s is required", key)
		}
		return time.Time{}, nil
	}
	t, err := calendar.ParseTime(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}
