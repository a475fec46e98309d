package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent tarot configuration stored as config.toml
// in the .tarot/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	LLM         LLMConfig         `toml:"llm"`
	Transport   TransportConfig   `toml:"transport"`
	Storage     StorageConfig     `toml:"storage"`
	Reading     ReadingConfig     `toml:"reading"`
	API         APIConfig         `toml:"api"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// LLMConfig holds the OpenAI-compatible chat completions endpoint settings.
type LLMConfig struct {
	BaseURL   string `toml:"base_url,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`
	Model     string `toml:"model,omitempty"`
	MaxTokens int    `toml:"max_tokens,omitempty"`
}

// TransportConfig selects the HTTP streaming backend.
type TransportConfig struct {
	Backend string `toml:"backend,omitempty"`

	// Timeout is a Go duration string, e.g. "5m".
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value yields zero, leaving the
// backend default in place.
func (t TransportConfig) TimeoutDuration() (time.Duration, error) {
	if t.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid transport.timeout: %w", err)
	}
	return d, nil
}

// StorageConfig holds the key-value storage settings shared by the CLI and API.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ReadingConfig holds reading generation settings.
type ReadingConfig struct {
	ThrottleMs    int `toml:"throttle_ms,omitempty"`
	OfflineStepMs int `toml:"offline_step_ms,omitempty"`
}

// Throttle returns ThrottleMs as a duration.
func (r ReadingConfig) Throttle() time.Duration {
	return time.Duration(r.ThrottleMs) * time.Millisecond
}

// OfflineStep returns OfflineStepMs as a duration.
func (r ReadingConfig) OfflineStep() time.Duration {
	return time.Duration(r.OfflineStepMs) * time.Millisecond
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventStreamConfig holds reading event publisher settings.
type EventStreamConfig struct {
	Backend string   `toml:"backend,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"llm.base_url":   stringKey(func(c *Config) *string { return &c.LLM.BaseURL }),
	"llm.api_key":    stringKey(func(c *Config) *string { return &c.LLM.APIKey }),
	"llm.model":      stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.max_tokens": intKey("llm.max_tokens", func(c *Config) *int { return &c.LLM.MaxTokens }),

	"transport.backend": stringKey(func(c *Config) *string { return &c.Transport.Backend }),
	"transport.timeout": {
		get: func(c *Config) string { return c.Transport.Timeout },
		set: func(c *Config, v string) error {
			if _, err := (TransportConfig{Timeout: v}).TimeoutDuration(); err != nil {
				return err
			}
			c.Transport.Timeout = v
			return nil
		},
	},

	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"reading.throttle_ms":     intKey("reading.throttle_ms", func(c *Config) *int { return &c.Reading.ThrottleMs }),
	"reading.offline_step_ms": intKey("reading.offline_step_ms", func(c *Config) *int { return &c.Reading.OfflineStepMs }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"eventstream.backend": stringKey(func(c *Config) *string { return &c.EventStream.Backend }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = splitList(v)
			return nil
		},
	},
	"eventstream.topic": stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}

// splitList splits a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// secretKeys are masked by MaskedValue.
var secretKeys = map[string]bool{
	"llm.api_key":          true,
	"storage.postgres_dsn": true,
}

// MaskedValue hides all but the last four characters of secret values.
func MaskedValue(key, value string) string {
	if !secretKeys[key] || value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
