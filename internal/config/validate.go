package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/flemzord/chatmem/internal/core"
	ctxengine "github.com/flemzord/chatmem/internal/context"
	"github.com/robfig/cron/v3"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry, and validates the
// conversation, router and logging sections. All problems are reported
// together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateLogging(cfg.Logging)...)
	errs = append(errs, validateConversation(cfg.Conversation)...)
	errs = append(errs, validateRouter(cfg)...)

	return errors.Join(errs...)
}

func validateLogging(l LoggingConfig) []error {
	var errs []error
	if !slices.Contains(validLevels, strings.ToLower(l.Level)) {
		errs = append(errs, fmt.Errorf("config: logging.level %q must be one of %s", l.Level, strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validFormats, strings.ToLower(l.Format)) {
		errs = append(errs, fmt.Errorf("config: logging.format %q must be one of %s", l.Format, strings.Join(validFormats, ", ")))
	}
	return errs
}

func validateConversation(c ConversationConfig) []error {
	var errs []error
	if c.MaxHistoryMessages < 0 {
		errs = append(errs, fmt.Errorf("config: conversation.max_history_messages must be positive, got %d", c.MaxHistoryMessages))
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: conversation.sweep_schedule %q: %w", c.SweepSchedule, err))
	}
	styles := ctxengine.MergeStyles(c.Styles)
	if _, ok := styles[c.DefaultStyle]; !ok {
		errs = append(errs, fmt.Errorf("config: conversation.default_style %q is not a known style", c.DefaultStyle))
	}
	for name, prompt := range c.Styles {
		if strings.TrimSpace(prompt) == "" {
			errs = append(errs, fmt.Errorf("config: conversation.styles.%s: prompt must not be empty", name))
		}
	}
	return errs
}

func validateRouter(cfg *Config) []error {
	var errs []error

	providers := ProviderModules(cfg)
	switch {
	case cfg.Router.Provider != "":
		if !strings.HasPrefix(cfg.Router.Provider, "provider.") {
			errs = append(errs, fmt.Errorf("config: router.provider %q is not a provider module", cfg.Router.Provider))
		} else if _, ok := cfg.Modules[cfg.Router.Provider]; !ok {
			errs = append(errs, fmt.Errorf("config: router.provider %q is not configured under modules", cfg.Router.Provider))
		}
	case len(providers) == 0:
		errs = append(errs, errors.New("config: at least one provider module must be configured"))
	case len(providers) > 1:
		errs = append(errs, fmt.Errorf("config: router.provider is required when several providers are configured (%s)", strings.Join(providers, ", ")))
	}

	if cfg.Router.RateLimit.MessagesPerMinute < 0 {
		errs = append(errs, errors.New("config: router.rate_limit.messages_per_minute must not be negative"))
	}
	return errs
}
