package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "william"

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		Client: ClientConfig{
			URL:                 "ws://127.0.0.1:8765",
			MaxRetries:          5,
			RetryIntervalMS:     1000,
			HeartbeatIntervalMS: 5000,
		},
		API: APIConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-latest",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			DataDir:      DefaultDataDir(),
			DatabasePath: filepath.Join(DefaultStateDir(), "william.sqlite"),
		},
	}
}

// DefaultConfigPath is where Load looks when no explicit path is given.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// DefaultDataDir holds user data such as the saved system prompt.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultStateDir holds runtime state such as the conversation database.
func DefaultStateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}
