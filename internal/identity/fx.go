package identity

import (
	"net/http"

	"github.com/smallbiznis/tradesmap/internal/identity/config"
	"github.com/smallbiznis/tradesmap/internal/identity/domain"
	"github.com/smallbiznis/tradesmap/internal/identity/oauth"
	"github.com/smallbiznis/tradesmap/internal/identity/repository"
	"github.com/smallbiznis/tradesmap/internal/identity/service"
	"github.com/smallbiznis/tradesmap/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.New),
	fx.Provide(provideRegistry),
	fx.Provide(provideOAuth),
	fx.Provide(service.New),
	fx.Provide(func(g *service.Gateway) domain.Gateway { return g }),
)

func provideRegistry(log *zap.Logger) config.Registry {
	return config.BuildRegistry(config.ParseProvidersFromEnv(), log)
}

func provideOAuth(registry config.Registry) oauth.Service {
	return oauth.NewService(registry, tracing.WrapHTTPClient(http.DefaultClient))
}
