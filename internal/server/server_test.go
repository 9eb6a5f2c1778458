package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	accountdomain "github.com/smallbiznis/tradesmap/internal/account/domain"
	accountmocks "github.com/smallbiznis/tradesmap/internal/account/mocks"
	accountservice "github.com/smallbiznis/tradesmap/internal/account/service"
	"github.com/smallbiznis/tradesmap/internal/account/session"
	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/config"
	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	geomocks "github.com/smallbiznis/tradesmap/internal/geocoding/mocks"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	idmocks "github.com/smallbiznis/tradesmap/internal/identity/mocks"
	"github.com/smallbiznis/tradesmap/internal/navigation"
	"github.com/smallbiznis/tradesmap/internal/observability"
	obsmetrics "github.com/smallbiznis/tradesmap/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
	"github.com/smallbiznis/tradesmap/internal/profile/hub"
	"github.com/smallbiznis/tradesmap/internal/profile/repository"
	"github.com/smallbiznis/tradesmap/internal/profile/store"
	"github.com/smallbiznis/tradesmap/internal/ratelimit"
	"github.com/smallbiznis/tradesmap/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testDeps struct {
	identity    *idmocks.MockGateway
	geocoding   *geomocks.MockGateway
	provisioner *accountmocks.MockCompanyProvisioner
	profiles    *store.Store
}

func newTestServer(t *testing.T, cfg config.Config, limiter *ratelimit.AccountLimiter) (*Server, *testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&profiledomain.Profile{}))

	ctrl := gomock.NewController(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	deps := &testDeps{
		identity:    idmocks.NewMockGateway(ctrl),
		geocoding:   geomocks.NewMockGateway(ctrl),
		provisioner: accountmocks.NewMockCompanyProvisioner(ctrl),
		profiles: store.New(store.Params{
			Log:   zap.NewNop(),
			Repo:  repository.New(conn),
			Hub:   hub.New(),
			Clock: clk,
		}),
	}

	if cfg.AppBaseURL == "" {
		cfg.AppBaseURL = "http://localhost:8080"
	}
	sessions := session.NewManager(session.Params{Config: cfg, Store: deps.profiles, Clock: clk, Log: zap.NewNop()})
	accounts := accountservice.New(accountservice.Params{
		Config:      cfg,
		Log:         zap.NewNop(),
		Identity:    deps.identity,
		Geocoding:   deps.geocoding,
		Profiles:    deps.profiles,
		Provisioner: deps.provisioner,
		Navigator:   navigation.New(),
		Clock:       clk,
	})

	httpMetrics, err := obsmetrics.NewHTTPMetricsWithRegisterer(prometheus.NewRegistry())
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin:      NewEngine(observability.Config{}, httpMetrics),
		Cfg:      cfg,
		Log:      zap.NewNop(),
		Accounts: accounts,
		Sessions: sessions,
		Limiter:  limiter,
	})
	return srv, deps
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	t.Fatalf("no %s cookie in response", sessionCookieName)
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, nil)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSignInWrongPassword(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().SignInWithPassword(gomock.Any(), "a@b.com", "nope").
		Return(nil, iddomain.NewProviderError(iddomain.CodeWrongPassword, "The password is invalid."))

	rec := doJSON(t, srv, http.MethodPost, "/auth/sign-in", signInRequest{Email: "a@b.com", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "wrong_credentials", resp.Error.Type)
	assert.Equal(t, accountdomain.WrongCredentialsMessage, resp.Error.Message)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
}

func TestSignInProviderFailureIsGeneric(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &iddomain.ProviderError{Code: iddomain.CodeInternalError, Message: "pq: relation accounts does not exist"})

	rec := doJSON(t, srv, http.MethodPost, "/auth/sign-in", signInRequest{Email: "a@b.com", Password: "pw123456"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestCreateAccountInvalidPostalCode(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().CreateUserWithPassword(gomock.Any(), "a@b.com", "pw123456").
		Return(&iddomain.Identity{UID: "uid-1", Email: "a@b.com"}, nil)
	deps.geocoding.EXPECT().Resolve(gomock.Any(), "ZZ9 9ZZ").Return(geodomain.Coordinates{}, geodomain.ErrInvalidPostalCode)

	rec := doJSON(t, srv, http.MethodPost, "/accounts", createAccountRequest{
		Email:    "a@b.com",
		Password: "pw123456",
		Form:     accountdomain.Form{AccountType: profiledomain.AccountTypeCustomer, PostalCode: "ZZ9 9ZZ"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errorResponse](t, rec)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "postal_code", resp.Error.Errors[0].Field)
	assert.Equal(t, "invalid_postal_code", resp.Error.Errors[0].Code)
}

func TestCreateAccountThenReadProfileAndSignOut(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().CreateUserWithPassword(gomock.Any(), "a@b.com", "pw123456").
		Return(&iddomain.Identity{UID: "uid-1", Email: "a@b.com"}, nil)
	deps.geocoding.EXPECT().Resolve(gomock.Any(), "AB1 2CD").Return(geodomain.Coordinates{Latitude: 51.5, Longitude: -0.1}, nil)
	deps.provisioner.EXPECT().CreateCompany(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)
	deps.identity.EXPECT().SignOut(gomock.Any(), "uid-1").Return(nil)

	rec := doJSON(t, srv, http.MethodPost, "/accounts", createAccountRequest{
		Email:    "a@b.com",
		Password: "pw123456",
		Form:     accountdomain.Form{AccountType: profiledomain.AccountTypeTrader, PostalCode: "AB1 2CD", FirstName: "Jo"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)

	created := decode[actionResponse](t, rec)
	require.NotNil(t, created.Navigate)
	assert.Equal(t, navigation.RouteHome, created.Navigate.Route)
	assert.Equal(t, session.StateAuthenticatedWithProfile, created.Session.State)

	rec = doJSON(t, srv, http.MethodGet, "/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Profile *profiledomain.Profile `json:"profile"`
	}](t, rec)
	require.NotNil(t, body.Profile)
	require.NotNil(t, body.Profile.Coordinates())
	assert.Equal(t, 51.5, body.Profile.Coordinates().Latitude)

	rec = doJSON(t, srv, http.MethodPost, "/auth/sign-out", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[actionResponse](t, rec)
	assert.Equal(t, session.StateSignedOut, out.Session.State)
	require.NotNil(t, out.Navigate)
	assert.Equal(t, navigation.Signal{Route: navigation.RouteLanding, Reload: true}, *out.Navigate)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}

func TestUpdateProfileRequiresSignIn(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{}, nil)
	rec := doJSON(t, srv, http.MethodPut, "/profile", updateProfileRequest{Form: &accountdomain.Form{PostalCode: "AB1 2CD"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProviderSignInAndCallbackWithForgedState(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().SignInWithRedirect(gomock.Any(), iddomain.ProviderGoogle, "http://localhost:8080/auth/callback/google").
		Return(&iddomain.Redirect{Provider: iddomain.ProviderGoogle, URL: "https://accounts.example.com/o/auth", State: "s1"}, nil)

	rec := doJSON(t, srv, http.MethodPost, "/auth/providers/google", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[actionResponse](t, rec)
	require.NotNil(t, resp.Navigate)
	assert.Equal(t, navigation.Signal{Route: "https://accounts.example.com/o/auth", Reload: true}, *resp.Navigate)
	assert.Equal(t, session.StateAuthenticating, resp.Session.State)

	rec = doJSON(t, srv, http.MethodGet, "/auth/callback/google?code=c&state=forged", nil, sessionCookie(t, rec))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?error=auth_failed", rec.Header().Get("Location"))
}

func TestProviderErrorCallbackOnlyAbandonsMatchingRedirect(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().SignInWithRedirect(gomock.Any(), iddomain.ProviderGoogle, gomock.Any()).
		Return(&iddomain.Redirect{Provider: iddomain.ProviderGoogle, URL: "https://accounts.example.com/o/auth", State: "s1"}, nil)

	rec := doJSON(t, srv, http.MethodPost, "/auth/providers/google", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	readState := func() session.State {
		rec := doJSON(t, srv, http.MethodGet, "/session", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[struct {
			Session sessionView `json:"session"`
		}](t, rec).Session.State
	}

	rec = doJSON(t, srv, http.MethodGet, "/auth/callback/google?error=access_denied&state=forged", nil, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?error=auth_failed", rec.Header().Get("Location"))
	assert.Equal(t, session.StateAuthenticating, readState())

	rec = doJSON(t, srv, http.MethodGet, "/auth/callback/google?error=access_denied&state=s1", nil, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, session.StateSignedOut, readState())
}

func TestUpdateProfileRejectsMalformedDateOfBirth(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().SignInWithPassword(gomock.Any(), "a@b.com", "pw123456").
		Return(&iddomain.Identity{UID: "uid-1", Email: "a@b.com"}, nil)
	deps.geocoding.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

	rec := doJSON(t, srv, http.MethodPost, "/auth/sign-in", signInRequest{Email: "a@b.com", Password: "pw123456"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)

	rec = doJSON(t, srv, http.MethodPut, "/profile", updateProfileRequest{Form: &accountdomain.Form{
		AccountType: profiledomain.AccountTypeCustomer,
		PostalCode:  "AB1 2CD",
		DateOfBirth: "1st Jan 1990",
	}}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Error.Type)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "date_of_birth", resp.Error.Errors[0].Field)
}

func TestSignInRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, SignInRate: 0.01, SignInBurst: 1, SyncLockTTL: time.Second}}
	srv, deps := newTestServer(t, cfg, ratelimit.NewAccountLimiter(cfg, client, zap.NewNop()))
	deps.identity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, iddomain.NewProviderError(iddomain.CodeWrongPassword, "")).
		Times(1)

	first := doJSON(t, srv, http.MethodPost, "/auth/sign-in", signInRequest{Email: "a@b.com", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, first.Code)

	second := doJSON(t, srv, http.MethodPost, "/auth/sign-in", signInRequest{Email: "a@b.com", Password: "x"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestStreamProfileSendsCurrentValue(t *testing.T) {
	srv, deps := newTestServer(t, config.Config{}, nil)
	deps.identity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&iddomain.Identity{UID: "uid-1"}, nil)
	firstName := "Jo"
	require.NoError(t, deps.profiles.UpsertMerge(context.Background(), "uid-1", profiledomain.Fields{FirstName: &firstName}))

	rec := doJSON(t, srv, http.MethodPost, "/auth/sign-in", signInRequest{Email: "a@b.com", Password: "pw123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/profile/stream", nil).WithContext(ctx)
	req.AddCookie(cookie)
	stream := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Engine().ServeHTTP(stream, req)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", stream.Header().Get("Content-Type"))
	body := stream.Body.String()
	assert.True(t, strings.Contains(body, "event: profile\n"), body)
	assert.Contains(t, body, `"first_name":"Jo"`)
}

func TestMapSyncErrors(t *testing.T) {
	cases := []struct {
		kind   error
		status int
	}{
		{kind: accountdomain.ErrGeocodingUnavailable, status: http.StatusServiceUnavailable},
		{kind: accountdomain.ErrCompanyProvisioningFailed, status: http.StatusBadGateway},
		{kind: accountdomain.ErrPersistenceFailed, status: http.StatusInternalServerError},
		{kind: accountdomain.ErrSyncInProgress, status: http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.kind.Error(), func(t *testing.T) {
			status, payload := mapError(&accountdomain.SyncError{Kind: tc.kind, Stage: "x"})
			assert.Equal(t, tc.status, status)
			assert.Empty(t, payload.Errors)
		})
	}
}
