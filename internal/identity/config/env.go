package config

import (
	"os"
	"strings"
)

type providerEnvSpec struct {
	providerType string
	prefix       string
}

var providerSpecs = []providerEnvSpec{
	{providerType: "google", prefix: "AUTH_GOOGLE_"},
	{providerType: "facebook", prefix: "AUTH_FACEBOOK_"},
	{providerType: "github", prefix: "AUTH_GITHUB_"},
	{providerType: "microsoft", prefix: "AUTH_MICROSOFT_"},
}

// ParseProvidersFromEnv reads federated provider configuration from environment variables.
// Endpoints fall back to the provider's public defaults when unset.
func ParseProvidersFromEnv() map[string]ProviderConfig {
	env := os.Environ()
	configs := make(map[string]ProviderConfig, len(providerSpecs))
	for _, spec := range providerSpecs {
		if !hasEnvPrefix(env, spec.prefix) {
			continue
		}
		configs[spec.providerType] = parseProviderConfig(spec.providerType, spec.prefix)
	}
	return configs
}

func parseProviderConfig(providerType, prefix string) ProviderConfig {
	def := providerDefaults[providerType]
	cfg := ProviderConfig{
		Name:         firstNonEmpty(getenv(prefix+"NAME"), def.Name, providerType),
		Type:         providerType,
		Enabled:      getenvBool(prefix+"ENABLED", false),
		ClientID:     getenv(prefix + "CLIENT_ID"),
		ClientSecret: getenv(prefix + "CLIENT_SECRET"),
		AuthURL:      firstNonEmpty(getenv(prefix+"AUTH_URL"), def.AuthURL),
		TokenURL:     firstNonEmpty(getenv(prefix+"TOKEN_URL"), def.TokenURL),
		APIURL:       firstNonEmpty(getenv(prefix+"API_URL"), def.APIURL),
		Issuer:       firstNonEmpty(getenv(prefix+"ISSUER"), def.Issuer),
		Scopes:       parseScopes(getenv(prefix + "SCOPES")),
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), def.Scopes...)
	}
	return cfg
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getenvBool(key string, def bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseScopes(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func hasEnvPrefix(env []string, prefix string) bool {
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			return true
		}
	}
	return false
}
