package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for nestor.
type Config struct {
	General GeneralConfig `json:"general" yaml:"general"`
	Robot   RobotConfig   `json:"robot" yaml:"robot"`
	API     APIConfig     `json:"api" yaml:"api"`
	Outbox  OutboxConfig  `json:"outbox" yaml:"outbox"`
	Relay   RelayConfig   `json:"relay" yaml:"relay"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	LogFile  string `json:"logFile,omitempty" yaml:"logFile,omitempty"` // optional log file path
}

// RobotConfig identifies the bot responses are sent on behalf of.
type RobotConfig struct {
	TeamID    string `json:"teamId" yaml:"teamId"`
	BotUID    string `json:"botUid,omitempty" yaml:"botUid,omitempty"`
	DebugMode bool   `json:"debugMode" yaml:"debugMode"` // buffer into the outbox instead of posting
}

// APIConfig configures the Nestor messaging API client.
type APIConfig struct {
	BaseURL        string `json:"baseUrl" yaml:"baseUrl"`
	TokenEnv       string `json:"tokenEnv" yaml:"tokenEnv"`               // variable read on every request
	Token          string `json:"token,omitempty" yaml:"token,omitempty"` // static token; overrides tokenEnv
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`   // 0 = no client timeout
	UserAgent      string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
}

type OutboxConfig struct {
	DBPath string `json:"dbPath" yaml:"dbPath"`
}

// RelayConfig configures the local HTTP relay.
type RelayConfig struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	Path   string `json:"path" yaml:"path"` // route pattern; must contain {teamID}
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"` // HMAC secret for request signatures
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// DefaultConfigDir returns the default config directory (~/.nestor).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nestor"
	}
	return filepath.Join(home, ".nestor")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a JSON or YAML (by extension) config file on top of Defaults.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Outbox.DBPath = ExpandPath(cfg.Outbox.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty; an unset
// ${VAR} without default is left as is.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// Save writes cfg as JSON, or YAML when path ends in .yaml/.yml.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	// The file may carry a token.
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.API.BaseURL != "" && !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		errs = append(errs, "api.baseUrl must start with http:// or https://")
	}
	if cfg.API.TimeoutSeconds < 0 {
		errs = append(errs, "api.timeoutSeconds must be >= 0")
	}
	if cfg.API.Token == "" && cfg.API.TokenEnv == "" {
		errs = append(errs, "api: one of token or tokenEnv is required")
	}

	if cfg.Relay.Port < 0 || cfg.Relay.Port > 65535 {
		errs = append(errs, "relay.port must be between 0 and 65535")
	}
	if !strings.HasPrefix(cfg.Relay.Path, "/") || !strings.Contains(cfg.Relay.Path, "{teamID}") {
		errs = append(errs, "relay.path must start with / and contain {teamID}")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
