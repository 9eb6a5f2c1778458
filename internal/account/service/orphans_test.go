package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/tradesmap/internal/account/domain"
	accountmocks "github.com/smallbiznis/tradesmap/internal/account/mocks"
	accountrepository "github.com/smallbiznis/tradesmap/internal/account/repository"
	"github.com/smallbiznis/tradesmap/internal/config"
	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	geomocks "github.com/smallbiznis/tradesmap/internal/geocoding/mocks"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	idrepository "github.com/smallbiznis/tradesmap/internal/identity/repository"
	idservice "github.com/smallbiznis/tradesmap/internal/identity/service"
	"github.com/smallbiznis/tradesmap/internal/navigation"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOrphansSurviveRestart(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	geo := geomocks.NewMockGateway(ctrl)
	gomock.InOrder(
		geo.EXPECT().Resolve(gomock.Any(), "AB1 2CD").Return(geodomain.Coordinates{}, geodomain.ErrUnavailable),
		geo.EXPECT().Resolve(gomock.Any(), "AB1 2CD").Return(geodomain.Coordinates{Latitude: 1, Longitude: 2}, nil),
	)

	newService := func() *Service {
		return New(Params{
			Config:      config.Config{AppBaseURL: "http://localhost:8080"},
			Log:         zap.NewNop(),
			Identity:    idservice.New(idservice.Params{Log: zap.NewNop(), Repo: idrepository.New(f.db), Clock: f.clock}),
			Geocoding:   geo,
			Profiles:    f.profiles,
			Provisioner: accountmocks.NewMockCompanyProvisioner(ctrl),
			Navigator:   navigation.New(),
			Clock:       f.clock,
			Orphans:     accountrepository.New(f.db),
		})
	}
	ctx := context.Background()
	form := domain.Form{AccountType: profiledomain.AccountTypeCustomer, PostalCode: "AB1 2CD"}

	first := newService()
	require.ErrorIs(t, first.CreateAccount(ctx, f.sessions.Create(), "a@b.com", "pw123456", form, ""), domain.ErrGeocodingUnavailable)

	orphans, err := first.Orphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	uid := orphans[0].Identity.UID
	assert.Equal(t, domain.StageGeocode, orphans[0].Stage)
	assert.Equal(t, iddomain.ProviderPassword, orphans[0].Identity.Provider)

	restarted := newService()
	orphans, err = restarted.Orphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, uid, orphans[0].Identity.UID)
	assert.Equal(t, "a@b.com", orphans[0].Identity.Email)
	assert.Empty(t, orphans[0].Stage)

	require.ErrorIs(t, restarted.Reconcile(ctx, "uid-404", form), domain.ErrOrphanNotFound)
	require.NoError(t, restarted.Reconcile(ctx, uid, form))

	assert.Empty(t, orphanUIDs(t, restarted))
	assert.Empty(t, orphanUIDs(t, first))

	profile, err := f.profiles.Get(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "a@b.com", profile.Email)
}
