// Package domain contains the identity types shared by the gateway and its callers.
package domain

import "time"

type Provider string

const (
	ProviderPassword  Provider = "password"
	ProviderGoogle    Provider = "google"
	ProviderFacebook  Provider = "facebook"
	ProviderGitHub    Provider = "github"
	ProviderMicrosoft Provider = "microsoft"
)

// FederatedProviders is the fixed set offered for redirect sign-in.
var FederatedProviders = []Provider{
	ProviderGoogle,
	ProviderFacebook,
	ProviderGitHub,
	ProviderMicrosoft,
}

func ParseProvider(raw string) (Provider, bool) {
	switch Provider(raw) {
	case ProviderGoogle, ProviderFacebook, ProviderGitHub, ProviderMicrosoft:
		return Provider(raw), true
	case "microsoft.com":
		return ProviderMicrosoft, true
	default:
		return "", false
	}
}

// Identity is the authenticated principal. Callers treat it as read-only.
type Identity struct {
	UID         string   `json:"uid"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name,omitempty"`
	PhotoURL    string   `json:"photo_url,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Provider    Provider `json:"provider"`
}

// Account is the persisted credential record behind an Identity.
type Account struct {
	UID           string     `gorm:"primaryKey;type:varchar(64)"`
	Provider      string     `gorm:"type:varchar(32);not null;uniqueIndex:ux_accounts_provider_external_id"`
	ExternalID    string     `gorm:"column:external_id;type:varchar(255);not null;uniqueIndex:ux_accounts_provider_external_id"`
	Email         string     `gorm:"type:varchar(320);not null;index"`
	PasswordHash  *string    `gorm:"type:text"`
	DisplayName   string     `gorm:"type:text"`
	PhotoURL      string     `gorm:"column:photo_url;type:text"`
	PhoneNumber   string     `gorm:"type:varchar(32)"`
	LastSignInAt  *time.Time `gorm:"column:last_sign_in_at"`
	LastSignOutAt *time.Time `gorm:"column:last_sign_out_at"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (a Account) Identity() *Identity {
	return &Identity{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
		PhoneNumber: a.PhoneNumber,
		Provider:    Provider(a.Provider),
	}
}

// Redirect describes a pending federated sign-in.
type Redirect struct {
	Provider     Provider
	URL          string
	State        string
	CodeVerifier string
	RedirectURI  string
}

type CallbackRequest struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
}
