package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Setting is one leaf of the config tree, addressed by its dot path.
type Setting struct {
	Path  string
	Value any
}

// String renders the setting as path=value, the format of "nestor config list".
func (s Setting) String() string {
	if s.Value == nil {
		return s.Path + "="
	}
	return fmt.Sprintf("%s=%v", s.Path, s.Value)
}

// tree returns cfg as the generic map its JSON form decodes to. Section
// names and keys are the json tags, so paths match the config file.
func tree(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func splitPath(path string) ([]string, error) {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid config path %q", path)
		}
	}
	return parts, nil
}

// GetByPath returns the value at a dot path such as "robot.teamId". A
// section path returns the whole section.
func GetByPath(cfg *Config, path string) (any, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	m, err := tree(cfg)
	if err != nil {
		return nil, err
	}

	var cur any = m
	for i, key := range parts {
		section, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s is a value, not a section", strings.Join(parts[:i], "."))
		}
		if cur, ok = section[key]; !ok {
			return nil, fmt.Errorf("key not found: %s", path)
		}
	}
	return cur, nil
}

// SetByPath assigns value (usually a CLI string) to a leaf such as
// "relay.port". Only existing sections can be written, and a key the config
// does not know is rejected instead of being dropped silently.
func SetByPath(cfg *Config, path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(parts) < 2 {
		return fmt.Errorf("%s is a section; set one of its keys", path)
	}
	m, err := tree(cfg)
	if err != nil {
		return err
	}

	section := m
	for _, key := range parts[:len(parts)-1] {
		next, ok := section[key].(map[string]any)
		if !ok {
			return fmt.Errorf("unknown config section: %s", key)
		}
		section = next
	}
	leaf := parts[len(parts)-1]
	parsed := parseValue(leaf, value)
	section[leaf] = parsed

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	updated := *cfg
	if err := json.Unmarshal(data, &updated); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	// Keys tagged omitempty vanish when cleared, so only a non-empty value
	// proves the key landed in a struct field.
	if parsed != "" {
		if _, err := GetByPath(&updated, path); err != nil {
			return fmt.Errorf("unknown config key: %s", path)
		}
	}
	*cfg = updated
	return nil
}

// stringKeys are leaves whose values stay strings even when they look like
// numbers or booleans, so ids such as "1234" survive "config set".
var stringKeys = map[string]bool{
	"teamId": true, "botUid": true, "token": true, "tokenEnv": true,
	"secret": true, "baseUrl": true, "userAgent": true, "host": true,
	"path": true, "dbPath": true, "logFile": true, "logLevel": true,
}

func parseValue(key string, v any) any {
	s, ok := v.(string)
	if !ok || stringKeys[key] {
		return v
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Sanitize returns a copy of the config with secrets masked.
func Sanitize(cfg *Config) *Config {
	masked := *cfg
	if masked.API.Token != "" {
		masked.API.Token = maskString(masked.API.Token)
	}
	if masked.Relay.Secret != "" {
		masked.Relay.Secret = "***"
	}
	return &masked
}

// maskString keeps the first and last four characters of long secrets.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns every leaf of cfg sorted by path.
func ListPaths(cfg *Config) ([]Setting, error) {
	m, err := tree(cfg)
	if err != nil {
		return nil, err
	}
	var out []Setting
	collect("", m, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func collect(prefix string, m map[string]any, out *[]Setting) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if section, ok := v.(map[string]any); ok {
			collect(path, section, out)
			continue
		}
		*out = append(*out, Setting{Path: path, Value: v})
	}
}
