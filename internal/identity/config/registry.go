package config

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Registry captures parsed providers and their activation state.
type Registry struct {
	All           map[string]ProviderConfig
	Active        map[string]ProviderConfig
	Misconfigured map[string]string
}

// BuildRegistry sorts parsed providers into active and misconfigured sets.
func BuildRegistry(cfgs map[string]ProviderConfig, log *zap.Logger) Registry {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("identity.config")

	registry := Registry{
		All:           make(map[string]ProviderConfig, len(cfgs)),
		Active:        make(map[string]ProviderConfig),
		Misconfigured: make(map[string]string),
	}

	for key, cfg := range cfgs {
		if cfg.Type == "" {
			cfg.Type = key
		}
		cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
		if cfg.Name == "" {
			cfg.Name = cfg.Type
		}
		registry.All[cfg.Type] = cfg
	}

	keys := make([]string, 0, len(registry.All))
	for key := range registry.All {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cfg := registry.All[key]
		if !cfg.Enabled {
			log.Info("provider disabled", zap.String("provider", cfg.Type))
			continue
		}
		if !cfg.Configured() {
			registry.Misconfigured[cfg.Type] = "enabled without client id or endpoints"
			log.Warn("provider misconfigured", zap.String("provider", cfg.Type))
			continue
		}
		registry.Active[cfg.Type] = cfg
		log.Info("provider active", zap.String("provider", cfg.Type))
	}

	return registry
}

// Lookup resolves a provider. enabled is false for providers that are unknown or switched off.
func (r Registry) Lookup(provider string) (cfg ProviderConfig, enabled bool, configured bool) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if cfg, ok := r.Active[provider]; ok {
		return cfg, true, true
	}
	if _, ok := r.Misconfigured[provider]; ok {
		return r.All[provider], true, false
	}
	return ProviderConfig{}, false, false
}
