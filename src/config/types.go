// Package config loads william's configuration: defaults, an optional
// JSON file under the XDG config home, then environment overrides, in
// that order.
package config

import (
	"time"

	"github.com/chamber-ai/william/src/arrakis"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Client  ClientConfig  `json:"client"`
	API     APIConfig     `json:"api"`
	Keys    KeysConfig    `json:"keys"`
	Log     LogConfig     `json:"log"`
	Storage StorageConfig `json:"storage"`
}

// ServerConfig configures the websocket backend.
type ServerConfig struct {
	Addr string `json:"addr" validate:"required"`
}

// ClientConfig configures the websocket client's connection policy.
type ClientConfig struct {
	URL                 string `json:"url" validate:"required,uri"`
	MaxRetries          int    `json:"max_retries" validate:"min=0"`
	RetryIntervalMS     int    `json:"retry_interval_ms" validate:"min=0"`
	HeartbeatIntervalMS int    `json:"heartbeat_interval_ms" validate:"min=0"`
}

// RetryInterval returns the retry interval as a duration.
func (c ClientConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMS) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat interval as a duration.
func (c ClientConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

// APIConfig is the default provider/model pair for new conversations.
type APIConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Selector resolves the pair against the closed provider/model sets.
func (a APIConfig) Selector() (arrakis.API, error) {
	return arrakis.NewAPI(a.Provider, a.Model)
}

// KeysConfig holds the provider API keys. Environment variables override
// values from the file.
type KeysConfig struct {
	OpenAI    string `json:"openai"`
	Groq      string `json:"groq"`
	Anthropic string `json:"anthropic"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" validate:"omitempty,oneof=text json"`
	File   string `json:"file"`
}

// StorageConfig configures where state lives on disk.
type StorageConfig struct {
	DataDir      string `json:"data_dir"`
	DatabasePath string `json:"database_path"`
}
