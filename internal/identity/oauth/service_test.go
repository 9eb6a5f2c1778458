package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	identityconfig "github.com/smallbiznis/tradesmap/internal/identity/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	server       *httptest.Server
	lastVerifier string
	userInfo     string
	tokenStatus  int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{
		userInfo:    `{"id": 4242, "email": "dev@example.com", "login": "dev", "avatar_url": "https://img.example.com/dev.png"}`,
		tokenStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fp.lastVerifier = r.PostForm.Get("code_verifier")
		if fp.tokenStatus != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fp.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token-1","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fp.userInfo))
	})
	fp.server = httptest.NewServer(mux)
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProvider) registry() identityconfig.Registry {
	return identityconfig.BuildRegistry(map[string]identityconfig.ProviderConfig{
		"github": {
			Enabled:  true,
			ClientID: "client",
			AuthURL:  fp.server.URL + "/authorize",
			TokenURL: fp.server.URL + "/token",
			APIURL:   fp.server.URL + "/user",
			Scopes:   []string{"read:user"},
		},
		"google": {Enabled: true},
	}, zap.NewNop())
}

func TestRedirectURLUsesPKCE(t *testing.T) {
	fp := newFakeProvider(t)
	svc := NewService(fp.registry(), fp.server.Client())

	res, err := svc.RedirectURL(context.Background(), "github", RedirectRequest{RedirectURI: "http://localhost/auth/callback/github"})
	require.NoError(t, err)
	require.NotEmpty(t, res.State)
	require.NotEmpty(t, res.CodeVerifier)

	parsed, err := url.Parse(res.URL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, res.State, q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, res.CodeVerifier, q.Get("code_challenge"))
}

func TestRedirectURLProviderErrors(t *testing.T) {
	fp := newFakeProvider(t)
	svc := NewService(fp.registry(), fp.server.Client())

	_, err := svc.RedirectURL(context.Background(), "facebook", RedirectRequest{RedirectURI: "http://x"})
	assert.ErrorIs(t, err, ErrProviderNotFound)

	_, err = svc.RedirectURL(context.Background(), "google", RedirectRequest{RedirectURI: "http://x"})
	assert.ErrorIs(t, err, ErrInvalidProvider)

	_, err = svc.RedirectURL(context.Background(), "github", RedirectRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLoginExchangesCodeAndFetchesIdentity(t *testing.T) {
	fp := newFakeProvider(t)
	svc := NewService(fp.registry(), fp.server.Client())

	res, err := svc.Login(context.Background(), "github", LoginRequest{
		Code:         "code-1",
		RedirectURI:  "http://localhost/auth/callback/github",
		CodeVerifier: "verifier-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "verifier-1", fp.lastVerifier)
	assert.Equal(t, "github", res.ProviderName)
	assert.Equal(t, "4242", res.Identity.ExternalID)
	assert.Equal(t, "dev@example.com", res.Identity.Email)
	assert.Equal(t, "dev", res.Identity.DisplayName)
	assert.Equal(t, "https://img.example.com/dev.png", res.Identity.PhotoURL)
}

func TestLoginRejectedGrant(t *testing.T) {
	fp := newFakeProvider(t)
	fp.tokenStatus = http.StatusBadRequest
	svc := NewService(fp.registry(), fp.server.Client())

	_, err := svc.Login(context.Background(), "github", LoginRequest{Code: "bad"})
	assert.True(t, errors.Is(err, ErrUnauthorized), "got %v", err)
}

func TestLoginRequiresEmail(t *testing.T) {
	fp := newFakeProvider(t)
	fp.userInfo = `{"id": 1, "login": "ghost"}`
	svc := NewService(fp.registry(), fp.server.Client())

	_, err := svc.Login(context.Background(), "github", LoginRequest{Code: "code"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPictureClaimNestedShape(t *testing.T) {
	payload := map[string]any{
		"picture": map[string]any{"data": map[string]any{"url": "https://fb.example.com/p.jpg"}},
	}
	assert.Equal(t, "https://fb.example.com/p.jpg", pictureClaim(payload))
	assert.Equal(t, "", pictureClaim(map[string]any{}))
}
