package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/identity/domain"
	"github.com/smallbiznis/tradesmap/internal/identity/oauth"
	"github.com/smallbiznis/tradesmap/internal/identity/password"
	"github.com/smallbiznis/tradesmap/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  domain.Repository
	OAuth oauth.Service
	Clock clock.Clock
}

type Gateway struct {
	log   *zap.Logger
	repo  domain.Repository
	oauth oauth.Service
	clock clock.Clock
}

func New(p Params) *Gateway {
	return &Gateway{
		log:   p.Log.Named("identity.gateway"),
		repo:  p.Repo,
		oauth: p.OAuth,
		clock: p.Clock,
	}
}

var _ domain.Gateway = (*Gateway)(nil)

func (g *Gateway) SignInWithPassword(ctx context.Context, email, pw string) (*domain.Identity, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, credentialError(domain.CodeInvalidEmail, "The email address is badly formatted.", email)
	}

	account, err := g.repo.FindByProviderExternalID(ctx, domain.ProviderPassword, normalized)
	if err != nil {
		return nil, internalError(err, normalized)
	}
	if account == nil {
		return nil, credentialError(domain.CodeUserNotFound, "There is no user record corresponding to this identifier.", normalized)
	}
	if account.PasswordHash == nil || !password.Verify(pw, *account.PasswordHash) {
		return nil, credentialError(domain.CodeWrongPassword, "The password is invalid or the user does not have a password.", normalized)
	}

	fields := map[string]any{"last_sign_in_at": g.clock.Now()}
	if password.NeedsRehash(*account.PasswordHash) {
		if rehashed, err := password.Hash(pw); err == nil {
			fields["password_hash"] = rehashed
		}
	}
	if err := g.repo.UpdateFields(ctx, account.UID, fields); err != nil {
		g.log.Warn("failed to record sign-in", zap.String("uid", account.UID), zap.Error(err))
	}

	return account.Identity(), nil
}

func (g *Gateway) CreateUserWithPassword(ctx context.Context, email, pw string) (*domain.Identity, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, credentialError(domain.CodeInvalidEmail, "The email address is badly formatted.", email)
	}
	if password.Weak(pw) {
		return nil, credentialError(domain.CodeWeakPassword, "Password should be at least 8 characters.", normalized)
	}

	existing, err := g.repo.FindByProviderExternalID(ctx, domain.ProviderPassword, normalized)
	if err != nil {
		return nil, internalError(err, normalized)
	}
	if existing != nil {
		return nil, credentialError(domain.CodeEmailAlreadyInUse, "The email address is already in use by another account.", normalized)
	}

	hashed, err := password.Hash(pw)
	if err != nil {
		return nil, internalError(err, normalized)
	}

	now := g.clock.Now()
	account := &domain.Account{
		UID:          uuid.NewString(),
		Provider:     string(domain.ProviderPassword),
		ExternalID:   normalized,
		Email:        normalized,
		PasswordHash: &hashed,
		LastSignInAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.repo.Create(ctx, account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, credentialError(domain.CodeEmailAlreadyInUse, "The email address is already in use by another account.", normalized)
		}
		return nil, internalError(err, normalized)
	}

	g.log.Info("account created", zap.String("uid", account.UID), zap.String("provider", account.Provider))
	return account.Identity(), nil
}

func (g *Gateway) SignInWithRedirect(ctx context.Context, provider domain.Provider, redirectURI string) (*domain.Redirect, error) {
	res, err := g.oauth.RedirectURL(ctx, string(provider), oauth.RedirectRequest{RedirectURI: redirectURI})
	if err != nil {
		return nil, federatedError(err, provider)
	}
	return &domain.Redirect{
		Provider:     provider,
		URL:          res.URL,
		State:        res.State,
		CodeVerifier: res.CodeVerifier,
		RedirectURI:  redirectURI,
	}, nil
}

func (g *Gateway) CompleteRedirect(ctx context.Context, provider domain.Provider, req domain.CallbackRequest) (*domain.Identity, error) {
	res, err := g.oauth.Login(ctx, string(provider), oauth.LoginRequest{
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: req.CodeVerifier,
	})
	if err != nil {
		return nil, federatedError(err, provider)
	}

	claims := res.Identity
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	now := g.clock.Now()

	account, err := g.repo.FindByProviderExternalID(ctx, provider, claims.ExternalID)
	if err != nil {
		return nil, internalError(err, email)
	}
	if account != nil {
		fields := map[string]any{
			"email":           email,
			"last_sign_in_at": now,
		}
		if claims.DisplayName != "" {
			fields["display_name"] = claims.DisplayName
			account.DisplayName = claims.DisplayName
		}
		if claims.PhotoURL != "" {
			fields["photo_url"] = claims.PhotoURL
			account.PhotoURL = claims.PhotoURL
		}
		if claims.PhoneNumber != "" {
			fields["phone_number"] = claims.PhoneNumber
			account.PhoneNumber = claims.PhoneNumber
		}
		if err := g.repo.UpdateFields(ctx, account.UID, fields); err != nil {
			return nil, internalError(err, email)
		}
		account.Email = email
		return account.Identity(), nil
	}

	account = &domain.Account{
		UID:          uuid.NewString(),
		Provider:     string(provider),
		ExternalID:   claims.ExternalID,
		Email:        email,
		DisplayName:  claims.DisplayName,
		PhotoURL:     claims.PhotoURL,
		PhoneNumber:  claims.PhoneNumber,
		LastSignInAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.repo.Create(ctx, account); err != nil {
		return nil, internalError(err, email)
	}

	g.log.Info("federated account linked", zap.String("uid", account.UID), zap.String("provider", account.Provider))
	return account.Identity(), nil
}

func (g *Gateway) SignOut(ctx context.Context, uid string) error {
	if strings.TrimSpace(uid) == "" {
		return nil
	}
	if err := g.repo.TouchSignOut(ctx, uid, g.clock.Now()); err != nil {
		return internalError(err, "")
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", err
	}
	if addr.Address != trimmed {
		return "", errors.New("invalid_email")
	}
	return strings.ToLower(addr.Address), nil
}

func credentialError(code, message, email string) *domain.ProviderError {
	return &domain.ProviderError{Code: code, Message: message, Email: email, Credential: string(domain.ProviderPassword)}
}

func internalError(err error, email string) *domain.ProviderError {
	return &domain.ProviderError{Code: domain.CodeInternalError, Message: "internal error", Email: email, Cause: err}
}

func federatedError(err error, provider domain.Provider) *domain.ProviderError {
	perr := &domain.ProviderError{Credential: string(provider), Cause: err}
	switch {
	case errors.Is(err, oauth.ErrProviderNotFound):
		perr.Code = domain.CodeOperationNotAllowed
		perr.Message = "The identity provider is not enabled."
	case errors.Is(err, oauth.ErrInvalidProvider):
		perr.Code = domain.CodeProviderUnavailable
		perr.Message = "The identity provider is not configured."
	case errors.Is(err, oauth.ErrUnreachable):
		perr.Code = domain.CodeNetworkRequestFailed
		perr.Message = "The identity provider could not be reached."
	case errors.Is(err, oauth.ErrUnauthorized), errors.Is(err, oauth.ErrInvalidRequest):
		perr.Code = domain.CodeInvalidCredential
		perr.Message = "The supplied auth credential is malformed or has expired."
	default:
		perr.Code = domain.CodeInternalError
		perr.Message = "internal error"
	}
	return perr
}
