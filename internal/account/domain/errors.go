package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated  = errors.New("not_authenticated")
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrInvalidState      = errors.New("invalid_oauth_state")
	ErrOrphanNotFound    = errors.New("orphan_not_found")
	ErrUnsupportedMethod = errors.New("unsupported_provider")
)

// AuthError kinds.
var (
	ErrWrongCredentials    = errors.New("wrong_credentials")
	ErrProviderUnavailable = errors.New("provider_unavailable")
	ErrAuthUnknown         = errors.New("auth_failed")
)

// SyncError kinds.
var (
	ErrInvalidPostalCode         = errors.New("invalid_postal_code")
	ErrGeocodingUnavailable      = errors.New("geocoding_unavailable")
	ErrCompanyProvisioningFailed = errors.New("company_provisioning_failed")
	ErrPersistenceFailed         = errors.New("persistence_failed")
	ErrInvalidForm               = errors.New("invalid_form")
)

// WrongCredentialsMessage is the only auth failure text shown verbatim to users.
const WrongCredentialsMessage = "Wrong password."

// AuthError is returned by the identity steps of the lifecycle.
type AuthError struct {
	Kind error
	Op   string

	// Provider metadata, logged but never shown.
	Code       string
	Message    string
	Email      string
	Credential string

	Err error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *AuthError) Unwrap() []error { return []error{e.Kind, e.Err} }

// UserMessage is safe to render.
func (e *AuthError) UserMessage() string {
	if errors.Is(e.Kind, ErrWrongCredentials) {
		return WrongCredentialsMessage
	}
	return "Sign-in failed. Please try again."
}

// SyncError is returned by the profile sync pipeline.
type SyncError struct {
	Kind  error
	Stage string
	Field string
	Err   error
}

func (e *SyncError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sync %s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("sync %s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() []error { return []error{e.Kind, e.Err} }

// UserCorrectable reports whether the form can be fixed and resubmitted.
func (e *SyncError) UserCorrectable() bool {
	return errors.Is(e.Kind, ErrInvalidPostalCode) || errors.Is(e.Kind, ErrInvalidForm)
}

// Pipeline stages, also used as metric labels.
const (
	StageDraft     = "draft"
	StageGeocode   = "geocode"
	StageProvision = "provision"
	StagePersist   = "persist"
	StageComplete  = "complete"
)

// ErrSyncInProgress is returned when another instance holds the uid's sync lock.
var ErrSyncInProgress = errors.New("sync_in_progress")
