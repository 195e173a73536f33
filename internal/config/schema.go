// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for chatmem.
package config

import (
	"time"

	"github.com/flemzord/chatmem/internal/security"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Logging      LoggingConfig      `yaml:"logging"`
	Conversation ConversationConfig `yaml:"conversation"`
	Router       RouterConfig       `yaml:"router"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// ConversationConfig tunes the conversation store and its eviction policies.
//
// For MaxDialogsPerOwner and TTL, zero selects the default and a negative
// value disables the policy.
type ConversationConfig struct {
	MaxHistoryMessages int               `yaml:"max_history_messages"`
	MaxDialogsPerOwner int               `yaml:"max_dialogs_per_owner"`
	TTL                time.Duration     `yaml:"ttl"`
	SweepSchedule      string            `yaml:"sweep_schedule"`
	DefaultStyle       string            `yaml:"default_style"`
	Styles             map[string]string `yaml:"styles"`
}

// RouterConfig tunes the inbound message pipeline.
type RouterConfig struct {
	Workers           int           `yaml:"workers"`
	InboxSize         int           `yaml:"inbox_size"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`

	// Provider is the module ID of the provider to use. It may be omitted
	// when exactly one provider module is configured.
	Provider string `yaml:"provider"`

	RateLimit security.RateLimitConfig `yaml:"rate_limit"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	// OTLPEndpoint is the host:port of an OTLP/HTTP collector.
	// Empty disables tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure sends spans over plain HTTP.
	Insecure bool `yaml:"insecure"`

	ServiceName string `yaml:"service_name"`
}

// Defaults.
const (
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultMaxHistoryMessages = 20
	DefaultMaxDialogsPerOwner = 8
	DefaultTTL                = 24 * time.Hour
	DefaultSweepSchedule      = "*/5 * * * *"
	DefaultStyle              = "default"
	DefaultWorkers            = 10
	DefaultInboxSize          = 256
	DefaultGenerationTimeout  = 60 * time.Second
	DefaultServiceName        = "chatmem"
)

// applyDefaults fills zero-valued fields.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	cv := &c.Conversation
	if cv.MaxHistoryMessages == 0 {
		cv.MaxHistoryMessages = DefaultMaxHistoryMessages
	}
	if cv.MaxDialogsPerOwner == 0 {
		cv.MaxDialogsPerOwner = DefaultMaxDialogsPerOwner
	}
	if cv.TTL == 0 {
		cv.TTL = DefaultTTL
	}
	if cv.SweepSchedule == "" {
		cv.SweepSchedule = DefaultSweepSchedule
	}
	if cv.DefaultStyle == "" {
		cv.DefaultStyle = DefaultStyle
	}

	r := &c.Router
	if r.Workers <= 0 {
		r.Workers = DefaultWorkers
	}
	if r.InboxSize <= 0 {
		r.InboxSize = DefaultInboxSize
	}
	if r.GenerationTimeout <= 0 {
		r.GenerationTimeout = DefaultGenerationTimeout
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}
