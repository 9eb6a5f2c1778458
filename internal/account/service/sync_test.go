package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/tradesmap/internal/account/domain"
	accountmocks "github.com/smallbiznis/tradesmap/internal/account/mocks"
	"github.com/smallbiznis/tradesmap/internal/account/session"
	"github.com/smallbiznis/tradesmap/internal/config"
	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	geomocks "github.com/smallbiznis/tradesmap/internal/geocoding/mocks"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	idmocks "github.com/smallbiznis/tradesmap/internal/identity/mocks"
	"github.com/smallbiznis/tradesmap/internal/navigation"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSyncRejectsMalformedDetailsBeforeGateways(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Form)
		kind   error
		field  string
		cause  error
	}{
		{
			name:   "date of birth not a date",
			mutate: func(f *domain.Form) { f.DateOfBirth = "01/02/1990" },
			kind:   domain.ErrInvalidForm,
			field:  "date_of_birth",
			cause:  domain.ErrInvalidDateOfBirth,
		},
		{
			name:   "date of birth in the future",
			mutate: func(f *domain.Form) { f.DateOfBirth = "2030-01-01" },
			kind:   domain.ErrInvalidForm,
			field:  "date_of_birth",
			cause:  domain.ErrInvalidDateOfBirth,
		},
		{
			name:   "phone number too long",
			mutate: func(f *domain.Form) { f.PhoneNumber = strings.Repeat("1", 33) },
			kind:   domain.ErrInvalidForm,
			field:  "phone_number",
			cause:  domain.ErrInvalidPhoneNumber,
		},
		{
			name:   "phone number with letters",
			mutate: func(f *domain.Form) { f.PhoneNumber = "call me" },
			kind:   domain.ErrInvalidForm,
			field:  "phone_number",
			cause:  domain.ErrInvalidPhoneNumber,
		},
		{
			name:   "postal code too long",
			mutate: func(f *domain.Form) { f.PostalCode = strings.Repeat("A", 17) },
			kind:   domain.ErrInvalidPostalCode,
			field:  "postal_code",
			cause:  domain.ErrPostalCodeTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctrl := gomock.NewController(t)
			geo := geomocks.NewMockGateway(ctrl)
			provisioner := accountmocks.NewMockCompanyProvisioner(ctrl)
			geo.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)
			provisioner.EXPECT().CreateCompany(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			svc := f.service(idmocks.NewMockGateway(ctrl), geo, provisioner)
			sess := f.sessions.Create()
			ctx := context.Background()
			require.NoError(t, sess.SetIdentity(ctx, iddomain.Identity{UID: "uid-1"}))

			form := traderForm()
			form.CompanyName = "Jo's Plumbing"
			form.TradeType = "plumber"
			tt.mutate(&form)

			err := svc.UploadSignInDetails(ctx, sess, form, "")
			require.ErrorIs(t, err, tt.kind)
			require.ErrorIs(t, err, tt.cause)

			var serr *domain.SyncError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, domain.StageDraft, serr.Stage)
			assert.Equal(t, tt.field, serr.Field)
			assert.True(t, serr.UserCorrectable())

			assert.Equal(t, session.StateAuthenticated, sess.State())
			profile, err := f.profiles.Get(ctx, "uid-1")
			require.NoError(t, err)
			assert.Nil(t, profile)
		})
	}
}

func TestSyncStoresTimestampDateOfBirthAsDate(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	geo := geomocks.NewMockGateway(ctrl)
	geo.EXPECT().Resolve(gomock.Any(), "AB1 2CD").Return(geodomain.Coordinates{Latitude: 51.5, Longitude: -0.1}, nil)

	svc := f.service(idmocks.NewMockGateway(ctrl), geo, accountmocks.NewMockCompanyProvisioner(ctrl))
	sess := f.sessions.Create()
	ctx := context.Background()
	require.NoError(t, sess.SetIdentity(ctx, iddomain.Identity{UID: "uid-1"}))

	form := domain.Form{
		AccountType: profiledomain.AccountTypeCustomer,
		PostalCode:  "AB1 2CD",
		DateOfBirth: "1990-01-01T00:00:00.000Z",
		PhoneNumber: "+44 (0)20 7946-0958",
	}
	require.NoError(t, svc.UploadSignInDetails(ctx, sess, form, ""))

	profile, err := f.profiles.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "1990-01-01", profile.DateOfBirth)
	assert.Equal(t, "+44 (0)20 7946-0958", profile.PhoneNumber)
}

// reloadFailingStore accepts writes and fails every read after the first one.
type reloadFailingStore struct {
	profiledomain.Store

	mu      sync.Mutex
	written bool
}

func (s *reloadFailingStore) UpsertMerge(ctx context.Context, uid string, fields profiledomain.Fields) error {
	if err := s.Store.UpsertMerge(ctx, uid, fields); err != nil {
		return err
	}
	s.mu.Lock()
	s.written = true
	s.mu.Unlock()
	return nil
}

func (s *reloadFailingStore) Get(ctx context.Context, uid string) (*profiledomain.Profile, error) {
	s.mu.Lock()
	written := s.written
	s.mu.Unlock()
	if written {
		return nil, errors.New("connection reset by peer")
	}
	return s.Store.Get(ctx, uid)
}

func TestSyncFallsBackToDraftWhenReloadFails(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	geo := geomocks.NewMockGateway(ctrl)
	geo.EXPECT().Resolve(gomock.Any(), "AB1 2CD").Return(geodomain.Coordinates{Latitude: 51.5, Longitude: -0.1}, nil)

	svc := New(Params{
		Config:      config.Config{AppBaseURL: "http://localhost:8080"},
		Log:         zap.NewNop(),
		Identity:    idmocks.NewMockGateway(ctrl),
		Geocoding:   geo,
		Profiles:    &reloadFailingStore{Store: f.profiles},
		Provisioner: accountmocks.NewMockCompanyProvisioner(ctrl),
		Navigator:   navigation.New(),
		Clock:       f.clock,
	})
	sess := f.sessions.Create()
	require.NoError(t, sess.SetIdentity(context.Background(), iddomain.Identity{UID: "uid-1", Email: "a@b.com"}))

	ctx, rec := navigation.WithRecorder(context.Background())
	form := domain.Form{AccountType: profiledomain.AccountTypeCustomer, PostalCode: "AB1 2CD", FirstName: "Jo"}
	require.NoError(t, svc.UploadSignInDetails(ctx, sess, form, ""))

	assert.Equal(t, session.StateAuthenticatedWithProfile, sess.State())
	profile := sess.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, "uid-1", profile.UID)
	assert.Equal(t, "Jo", profile.FirstName)
	assert.Equal(t, "a@b.com", profile.Email)
	require.NotNil(t, profile.Coordinates())
	assert.Equal(t, geodomain.Coordinates{Latitude: 51.5, Longitude: -0.1}, *profile.Coordinates())
	require.NotNil(t, rec.Signal())
	assert.Equal(t, navigation.Signal{Route: navigation.RouteHome}, *rec.Signal())
}
