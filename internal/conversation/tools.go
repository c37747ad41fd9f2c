package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Argument extraction helpers. Models frequently send numbers for integer
// fields as float64 and omit optional fields entirely, so every accessor
// tolerates the JSON-decoded shapes.

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("field %q must not be empty", key)
	}
	return s, nil
}

func optionalStringArg(args map[string]any, key string) string {
	if raw, ok := args[key]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// optionalIntArg reads a numeric field, tolerating the float64 form JSON
// decoding produces. Absent fields return fallback; non-positive values
// are rejected.
func optionalIntArg(args map[string]any, key string, fallback int) (int, error) {
	raw, ok := args[key]
	if !ok {
		return fallback, nil
	}
	var n int
	switch v := raw.(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	default:
		return 0, fmt.Errorf("field %q must be a number", key)
	}
	if n <= 0 {
		return 0, fmt.Errorf("field %q must be positive", key)
	}
	return n, nil
}

// timeArg parses RFC 3339 first and falls back to date-only input, which
// models produce for fields like date_of_birth.
func timeArg(args map[string]any, key string) (time.Time, error) {
	s, err := stringArg(args, key)
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %q must be an RFC 3339 timestamp or YYYY-MM-DD date", key)
	}
	return t, nil
}
