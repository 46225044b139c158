package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const envPrefix = "WILLIAM"

// Load builds the configuration: defaults, then the JSON file at path
// (DefaultConfigPath when path is empty; a missing default file is not
// an error), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No file is fine; defaults stand.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvironment(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON, creating the directory
// if needed.
func Save(cfg *Config, path string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvironment overlays WILLIAM_* variables, with the conventional
// provider key names as fallbacks for the API keys.
func applyEnvironment(cfg *Config) {
	if v := os.Getenv(envPrefix + "_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(envPrefix + "_URL"); v != "" {
		cfg.Client.URL = v
	}
	if v := os.Getenv(envPrefix + "_PROVIDER"); v != "" {
		cfg.API.Provider = v
	}
	if v := os.Getenv(envPrefix + "_MODEL"); v != "" {
		cfg.API.Model = v
	}
	if v := os.Getenv(envPrefix + "_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	for _, name := range []struct {
		dst  *string
		vars []string
	}{
		{&cfg.Keys.OpenAI, []string{envPrefix + "_OPENAI_API_KEY", "OPENAI_API_KEY"}},
		{&cfg.Keys.Groq, []string{envPrefix + "_GROQ_API_KEY", "GROQ_API_KEY"}},
		{&cfg.Keys.Anthropic, []string{envPrefix + "_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"}},
	} {
		for _, env := range name.vars {
			if v := os.Getenv(env); v != "" {
				*name.dst = v
				break
			}
		}
	}
}
