package profile

import (
	"github.com/smallbiznis/tradesmap/internal/profile/domain"
	"github.com/smallbiznis/tradesmap/internal/profile/hub"
	"github.com/smallbiznis/tradesmap/internal/profile/repository"
	"github.com/smallbiznis/tradesmap/internal/profile/store"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.New),
	fx.Provide(hub.New),
	fx.Provide(store.New),
	fx.Provide(func(s *store.Store) domain.Store { return s }),
)
