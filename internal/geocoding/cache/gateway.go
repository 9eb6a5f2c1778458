package cache

import (
	"context"
	"errors"

	"github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	"github.com/smallbiznis/tradesmap/internal/observability/metrics"
	"go.uber.org/zap"
)

// Gateway serves lookups from Store and only caches successful resolutions.
type Gateway struct {
	next    domain.Gateway
	store   Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewGateway(next domain.Gateway, store Store, m *metrics.Metrics, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{next: next, store: store, metrics: m, log: log.Named("geocoding.cache")}
}

var _ domain.Gateway = (*Gateway)(nil)

func (g *Gateway) Resolve(ctx context.Context, postalCode string) (domain.Coordinates, error) {
	key := domain.NormalizePostalCode(postalCode)
	if key == "" {
		g.metrics.RecordGeocodeLookup(ctx, "local", "invalid")
		return domain.Coordinates{}, domain.ErrInvalidPostalCode
	}

	coords, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.log.Warn("geocode cache read failed", zap.Error(err))
	}
	if ok {
		g.metrics.RecordGeocodeLookup(ctx, "cache", "hit")
		return coords, nil
	}

	coords, err = g.next.Resolve(ctx, key)
	if err != nil {
		outcome := "unavailable"
		if errors.Is(err, domain.ErrInvalidPostalCode) {
			outcome = "invalid"
		}
		g.metrics.RecordGeocodeLookup(ctx, "remote", outcome)
		return domain.Coordinates{}, err
	}
	g.metrics.RecordGeocodeLookup(ctx, "remote", "hit")

	if err := g.store.Set(ctx, key, coords); err != nil {
		g.log.Warn("geocode cache write failed", zap.Error(err))
	}
	return coords, nil
}
