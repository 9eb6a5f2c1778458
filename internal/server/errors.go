package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/tradesmap/internal/account/domain"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var authErr *accountdomain.AuthError
	if errors.As(err, &authErr) {
		return mapAuthError(authErr)
	}

	var syncErr *accountdomain.SyncError
	if errors.As(err, &syncErr) {
		return mapSyncError(syncErr)
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: "request", Code: "invalid_request", Message: "invalid request"}},
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, accountdomain.ErrNotAuthenticated),
		errors.Is(err, accountdomain.ErrSessionNotFound):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrOrphanNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func mapAuthError(err *accountdomain.AuthError) (int, errorPayload) {
	switch {
	case errors.Is(err.Kind, accountdomain.ErrWrongCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "wrong_credentials",
			Message: err.UserMessage(),
		}
	case errors.Is(err.Kind, accountdomain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "provider_unavailable",
			Message: err.UserMessage(),
		}
	}

	switch err.Code {
	case iddomain.CodeInvalidEmail:
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: "email", Code: "invalid_email", Message: "invalid value"}},
		}
	case iddomain.CodeWeakPassword:
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: "password", Code: "weak_password", Message: "password is too short"}},
		}
	case iddomain.CodeEmailAlreadyInUse:
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.UserMessage(),
		}
	}
	return http.StatusUnauthorized, errorPayload{
		Type:    "auth_failed",
		Message: err.UserMessage(),
	}
}

func mapSyncError(err *accountdomain.SyncError) (int, errorPayload) {
	switch {
	case errors.Is(err.Kind, accountdomain.ErrInvalidPostalCode):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: "postal_code", Code: "invalid_postal_code", Message: "postal code not recognised"}},
		}
	case errors.Is(err.Kind, accountdomain.ErrInvalidForm):
		field := err.Field
		if field == "" {
			field = "form"
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: field, Code: "invalid_" + field, Message: "invalid value"}},
		}
	case errors.Is(err.Kind, accountdomain.ErrSyncInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "profile update already in progress",
		}
	case errors.Is(err.Kind, accountdomain.ErrGeocodingUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "profile could not be saved, please try again",
		}
	case errors.Is(err.Kind, accountdomain.ErrCompanyProvisioningFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "profile could not be saved, please try again",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "profile could not be saved, please try again",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// classifyErrorForLog returns the response type and the most specific code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)

	var authErr *accountdomain.AuthError
	if errors.As(err, &authErr) && authErr.Code != "" {
		return payload.Type, authErr.Code
	}
	var syncErr *accountdomain.SyncError
	if errors.As(err, &syncErr) {
		return payload.Type, syncErr.Kind.Error()
	}
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}
