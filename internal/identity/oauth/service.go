package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	identityconfig "github.com/smallbiznis/tradesmap/internal/identity/config"
	"golang.org/x/oauth2"
)

const (
	defaultTokenSize = 32
	maxUserInfoBytes = 1 << 20
)

type Service interface {
	RedirectURL(ctx context.Context, providerName string, req RedirectRequest) (*RedirectResult, error)
	Login(ctx context.Context, providerName string, req LoginRequest) (*LoginResult, error)
}

type RedirectRequest struct {
	RedirectURI string
}

type RedirectResult struct {
	URL          string
	State        string
	CodeVerifier string
}

type LoginRequest struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
}

type LoginResult struct {
	ProviderName string
	Identity     Identity
}

type Identity struct {
	ExternalID  string
	Email       string
	DisplayName string
	PhotoURL    string
	PhoneNumber string
}

type service struct {
	registry   identityconfig.Registry
	httpClient *http.Client

	mu        sync.Mutex
	verifiers map[string]*oidc.IDTokenVerifier
}

func NewService(registry identityconfig.Registry, httpClient *http.Client) Service {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &service{
		registry:   registry,
		httpClient: httpClient,
		verifiers:  make(map[string]*oidc.IDTokenVerifier),
	}
}

func (s *service) RedirectURL(ctx context.Context, providerName string, req RedirectRequest) (*RedirectResult, error) {
	_ = ctx

	cfg, err := s.lookupProvider(providerName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RedirectURI) == "" {
		return nil, ErrInvalidRequest
	}

	state, err := randomToken(defaultTokenSize)
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := oauthConfig(cfg, req.RedirectURI).AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	return &RedirectResult{
		URL:          authURL,
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

func (s *service) Login(ctx context.Context, providerName string, req LoginRequest) (*LoginResult, error) {
	cfg, err := s.lookupProvider(providerName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, ErrInvalidRequest
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	opts := []oauth2.AuthCodeOption{}
	if strings.TrimSpace(req.CodeVerifier) != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}
	token, err := oauthConfig(cfg, req.RedirectURI).Exchange(ctx, req.Code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, retrieveErr.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var idClaims map[string]any
	if cfg.Issuer != "" {
		if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
			idClaims, err = s.verifyIDToken(ctx, cfg, raw)
			if err != nil {
				return nil, err
			}
		}
	}

	identity, err := s.fetchIdentity(ctx, cfg, token)
	if err != nil {
		return nil, err
	}
	if idClaims != nil {
		if sub := firstClaim(idClaims, "sub"); sub != "" && sub != identity.ExternalID {
			return nil, fmt.Errorf("%w: subject mismatch", ErrUnauthorized)
		}
	}

	return &LoginResult{
		ProviderName: cfg.Type,
		Identity:     identity,
	}, nil
}

func (s *service) lookupProvider(rawName string) (identityconfig.ProviderConfig, error) {
	cfg, enabled, configured := s.registry.Lookup(rawName)
	if !enabled {
		return identityconfig.ProviderConfig{}, ErrProviderNotFound
	}
	if !configured {
		return identityconfig.ProviderConfig{}, ErrInvalidProvider
	}
	return cfg, nil
}

func (s *service) verifyIDToken(ctx context.Context, cfg identityconfig.ProviderConfig, raw string) (map[string]any, error) {
	verifier, err := s.verifier(ctx, cfg)
	if err != nil {
		return nil, err
	}
	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

func (s *service) verifier(ctx context.Context, cfg identityconfig.ProviderConfig) (*oidc.IDTokenVerifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.verifiers[cfg.Issuer]; ok {
		return v, nil
	}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, s.httpClient), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	v := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	s.verifiers[cfg.Issuer] = v
	return v, nil
}

func oauthConfig(cfg identityconfig.ProviderConfig, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      cfg.Scopes,
	}
}

func (s *service) fetchIdentity(ctx context.Context, cfg identityconfig.ProviderConfig, token *oauth2.Token) (Identity, error) {
	if token == nil || strings.TrimSpace(token.AccessToken) == "" {
		return Identity{}, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIURL, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return Identity{}, fmt.Errorf("%w: userinfo status %d", ErrUnreachable, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Identity{}, ErrUnauthorized
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Identity{}, ErrUnauthorized
	}

	identity := Identity{
		ExternalID:  firstClaim(payload, "sub", "id", "user_id", "uid"),
		Email:       firstClaim(payload, "email", "mail", "userPrincipalName"),
		DisplayName: firstClaim(payload, "name", "display_name", "login", "username", "preferred_username"),
		PhotoURL:    pictureClaim(payload),
		PhoneNumber: firstClaim(payload, "phone_number", "mobilePhone"),
	}
	if identity.ExternalID == "" || identity.Email == "" {
		return Identity{}, ErrUnauthorized
	}

	return identity, nil
}

// pictureClaim handles both flat URLs and the nested picture.data.url shape.
func pictureClaim(payload map[string]any) string {
	for _, key := range []string{"picture", "avatar_url"} {
		switch v := payload[key].(type) {
		case string:
			if url := strings.TrimSpace(v); url != "" {
				return url
			}
		case map[string]any:
			if data, ok := v["data"].(map[string]any); ok {
				if url := firstClaim(data, "url"); url != "" {
					return url
				}
			}
		}
	}
	return ""
}

func firstClaim(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := payload[key]; ok {
			if str := claimToString(value); str != "" {
				return str
			}
		}
	}
	return ""
}

func claimToString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func randomToken(size int) (string, error) {
	if size <= 0 {
		size = defaultTokenSize
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
