package store

import (
	"context"
	"strings"

	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/profile/domain"
	"github.com/smallbiznis/tradesmap/internal/profile/hub"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  domain.Repository
	Hub   *hub.Hub
	Clock clock.Clock
}

type Store struct {
	log   *zap.Logger
	repo  domain.Repository
	hub   *hub.Hub
	clock clock.Clock
}

func New(p Params) *Store {
	return &Store{
		log:   p.Log.Named("profile.store"),
		repo:  p.Repo,
		hub:   p.Hub,
		clock: p.Clock,
	}
}

var _ domain.Store = (*Store)(nil)

// UpsertMerge writes the supplied fields and notifies watchers of the stored result.
func (s *Store) UpsertMerge(ctx context.Context, uid string, fields domain.Fields) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return domain.ErrInvalidUID
	}
	if fields.AccountType != nil && !fields.AccountType.Valid() {
		return domain.ErrInvalidAccountType
	}
	if fields.Empty() {
		return domain.ErrNoFields
	}

	if err := s.repo.UpsertMerge(ctx, uid, fields, s.clock.Now()); err != nil {
		return err
	}

	stored, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		s.log.Warn("profile written but reload failed", zap.String("uid", uid), zap.Error(err))
		return nil
	}
	if stored != nil {
		s.hub.Publish(uid, *stored)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, domain.ErrInvalidUID
	}
	return s.repo.FindByUID(ctx, uid)
}

func (s *Store) Watch(uid string) (domain.Subscription, error) {
	sub, err := s.hub.Subscribe(uid)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
