package gateway

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"
)

// Config is the `gateway.http` section of chatmem.yaml.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig protects every endpoint except /health and /metrics. Either a
// bearer token or a basic user/password pair enables the admin API.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`

	// Failed credential checks allowed per second across all clients,
	// and the burst on top of it. Exhaustion answers 429.
	FailuresPerSecond float64 `yaml:"failures_per_second"`
	FailureBurst      int     `yaml:"failure_burst"`
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.Auth.FailuresPerSecond <= 0 {
		c.Auth.FailuresPerSecond = 5
	}
	if c.Auth.FailureBurst <= 0 {
		c.Auth.FailureBurst = 20
	}
}

func (c *Config) validate() error {
	if _, err := net.ResolveTCPAddr("tcp", c.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", c.Bind, err)
	}
	if (c.Auth.BasicUser == "") != (c.Auth.BasicPass == "") {
		return errors.New("gateway: basic_user and basic_pass must be set together")
	}
	return nil
}

// IsConfigured reports whether the admin API can be mounted.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

func (a AuthConfig) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(a.FailuresPerSecond), a.FailureBurst)
}
