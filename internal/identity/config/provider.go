package config

// ProviderConfig defines the raw configuration for a federated provider.
type ProviderConfig struct {
	Name         string
	Type         string
	Enabled      bool
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	APIURL       string
	Issuer       string
	Scopes       []string
}

// Configured reports whether the provider has everything needed for a code exchange.
func (c ProviderConfig) Configured() bool {
	return c.ClientID != "" && c.AuthURL != "" && c.TokenURL != "" && c.APIURL != ""
}

var providerDefaults = map[string]ProviderConfig{
	"google": {
		Name:     "Google",
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
		APIURL:   "https://openidconnect.googleapis.com/v1/userinfo",
		Issuer:   "https://accounts.google.com",
		Scopes:   []string{"openid", "email", "profile"},
	},
	"facebook": {
		Name:     "Facebook",
		AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
		APIURL:   "https://graph.facebook.com/me?fields=id,name,email,picture",
		Scopes:   []string{"email", "public_profile"},
	},
	"github": {
		Name:     "GitHub",
		AuthURL:  "https://github.com/login/oauth/authorize",
		TokenURL: "https://github.com/login/oauth/access_token",
		APIURL:   "https://api.github.com/user",
		Scopes:   []string{"read:user", "user:email"},
	},
	"microsoft": {
		Name:     "Microsoft",
		AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		APIURL:   "https://graph.microsoft.com/oidc/userinfo",
		Scopes:   []string{"openid", "email", "profile"},
	},
}
