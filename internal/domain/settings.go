package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Settings holds per-instance configuration edited in the node panel.
// Values come from JSON, YAML or TOML so numbers may arrive in several shapes.
type Settings map[string]any

// Get returns a raw value
func (s Settings) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s[key]
	return v, ok
}

// Set sets a value, returning the (possibly new) map
func (s Settings) Set(key string, value any) Settings {
	if s == nil {
		s = make(Settings)
	}
	s[key] = value
	return s
}

// String returns a string setting, or "" when absent or not a string
func (s Settings) String(key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	return ""
}

// StringOr returns a string setting or the fallback when empty
func (s Settings) StringOr(key, fallback string) string {
	if v := s.String(key); v != "" {
		return v
	}
	return fallback
}

// Float returns a numeric setting
func (s Settings) Float(key string) (float64, bool) {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	}
	return 0, false
}

// FloatOr returns a numeric setting or the fallback
func (s Settings) FloatOr(key string, fallback float64) float64 {
	if f, ok := s.Float(key); ok {
		return f
	}
	return fallback
}

// Bool returns a boolean setting
func (s Settings) Bool(key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Strings returns a list-of-strings setting, skipping non-string entries
func (s Settings) Strings(key string) []string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Clone returns a shallow copy
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	c := make(Settings, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
