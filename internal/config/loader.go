package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ErrEmptySecret is returned when no HMAC secret is configured.
var ErrEmptySecret = errors.New("secret must not be empty")

// Load reads a YAML configuration file on top of Defaults and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run without --config", configPath)
		}
		return nil, fmt.Errorf("failed to read config %q: %w", configPath, err)
	}

	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", configPath, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// interpolateEnv replaces ${VAR} with the environment value.
// Unset variables are left in place so validation can name them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// Validate performs basic validation on the configuration.
func Validate(cfg *Config) error {
	if cfg.Secret == "" {
		return ErrEmptySecret
	}
	if matches := envVarPattern.FindStringSubmatch(cfg.Secret); len(matches) > 1 {
		return fmt.Errorf("secret: environment variable ${%s} is not set", matches[1])
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535 (got %d)", cfg.Port)
	}

	if _, err := ParseSize(cfg.MaxBodySize); err != nil {
		return fmt.Errorf("max_body_size %q: %w", cfg.MaxBodySize, err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error (got %q)", cfg.LogLevel)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be one of: text, json (got %q)", cfg.LogFormat)
	}

	switch cfg.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be one of: auto, always, never (got %q)", cfg.Color)
	}

	return nil
}
