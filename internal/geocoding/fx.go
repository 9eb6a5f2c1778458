package geocoding

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tradesmap/internal/config"
	"github.com/smallbiznis/tradesmap/internal/geocoding/cache"
	"github.com/smallbiznis/tradesmap/internal/geocoding/client"
	"github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	"github.com/smallbiznis/tradesmap/internal/observability/metrics"
	"github.com/smallbiznis/tradesmap/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("geocoding.service",
	fx.Provide(NewGateway),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
	Redis   *redis.Client    `optional:"true"`
}

func NewGateway(p Params) domain.Gateway {
	log := p.Log.Named("geocoding")
	remote := client.New(p.Cfg.Geocoding.BaseURL, tracing.NewHTTPClient(p.Cfg.Geocoding.Timeout), p.Log)

	switch p.Cfg.Geocoding.Cache {
	case config.GeocodingCacheOff:
		return remote
	case config.GeocodingCacheRedis:
		if p.Redis != nil {
			return cache.NewGateway(remote, cache.NewRedisStore(p.Redis, p.Cfg.Geocoding.CacheTTL), p.Metrics, p.Log)
		}
		log.Warn("GEOCODING_CACHE=redis without REDIS_ADDR, using memory cache")
	}
	return cache.NewGateway(remote, cache.NewMemoryStore(0, p.Cfg.Geocoding.CacheTTL), p.Metrics, p.Log)
}
