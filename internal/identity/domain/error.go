package domain

import (
	"errors"
	"fmt"
)

const (
	CodeWrongPassword        = "auth/wrong-password"
	CodeUserNotFound         = "auth/user-not-found"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeWeakPassword         = "auth/weak-password"
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeProviderUnavailable  = "auth/provider-unavailable"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeInternalError        = "auth/internal-error"
)

// ProviderError is the failure shape every gateway operation returns.
type ProviderError struct {
	Code       string
	Message    string
	Email      string
	Credential string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

func NewProviderError(code, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

// ProviderErrorCode returns the code of the first ProviderError in err's chain.
func ProviderErrorCode(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
