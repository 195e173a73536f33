package config

import (
	"slices"
	"strings"
)

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ProviderModules returns the configured module IDs in the provider namespace.
func ProviderModules(cfg *Config) []string {
	var ids []string
	for _, id := range Resolve(cfg) {
		if strings.HasPrefix(id, "provider.") {
			ids = append(ids, id)
		}
	}
	return ids
}

// SelectedProvider returns the provider module the router should use:
// router.provider when set, otherwise the only configured provider.
// It returns "" when the choice is ambiguous or no provider is configured.
func SelectedProvider(cfg *Config) string {
	if cfg.Router.Provider != "" {
		return cfg.Router.Provider
	}
	if ids := ProviderModules(cfg); len(ids) == 1 {
		return ids[0]
	}
	return ""
}
