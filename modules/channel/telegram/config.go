package telegram

import (
	"fmt"
	"net/url"
	"regexp"
)

const (
	defaultAPIURL         = "https://api.telegram.org"
	defaultPollingTimeout = 30
	defaultDedupeSize     = 1024
	maxTelegramLength     = 4096
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Config holds the Telegram channel configuration.
type Config struct {
	Token          string   `yaml:"token"`
	PollingTimeout int      `yaml:"polling_timeout"`
	AllowedUpdates []string `yaml:"allowed_updates"`

	// AllowUsers and AllowGroups restrict who may talk to the bot. Both
	// empty means everyone.
	AllowUsers  []int64 `yaml:"allow_users"`
	AllowGroups []int64 `yaml:"allow_groups"`

	MaxMessageLength int    `yaml:"max_message_length"`
	APIURL           string `yaml:"api_url"`

	// DedupeSize is the number of recent update ids remembered to drop
	// redelivered updates.
	DedupeSize int `yaml:"dedupe_size"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.PollingTimeout == 0 {
		c.PollingTimeout = defaultPollingTimeout
	}
	if c.AllowedUpdates == nil {
		c.AllowedUpdates = []string{"message"}
	}
	if c.MaxMessageLength == 0 {
		c.MaxMessageLength = maxTelegramLength
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.DedupeSize <= 0 {
		c.DedupeSize = defaultDedupeSize
	}
}

// validate checks configuration field constraints. It runs after defaults.
func (c *Config) validate() error {
	if c.Token == "" {
		return fmt.Errorf("telegram: token is required")
	}
	if !tokenPattern.MatchString(c.Token) {
		return fmt.Errorf("telegram: token format invalid (expected <bot_id>:<hash>)")
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("telegram: api_url must be a valid http/https URL, got %q", c.APIURL)
	}

	if c.PollingTimeout < 0 || c.PollingTimeout > 50 {
		return fmt.Errorf("telegram: polling_timeout must be 0-50, got %d", c.PollingTimeout)
	}

	if c.MaxMessageLength < 1 || c.MaxMessageLength > maxTelegramLength {
		return fmt.Errorf("telegram: max_message_length must be 1-%d, got %d", maxTelegramLength, c.MaxMessageLength)
	}

	return nil
}
