package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/tradesmap/internal/account/domain"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.OrphanRepository {
	return &repo{db: db}
}

func (r *repo) withoutProfile(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&iddomain.Account{}).
		Select("accounts.*").
		Joins("LEFT JOIN profiles ON profiles.uid = accounts.uid").
		Where("profiles.uid IS NULL")
}

func (r *repo) ListOrphans(ctx context.Context, limit int) ([]domain.Orphan, error) {
	var accounts []iddomain.Account
	q := r.withoutProfile(ctx).Order("accounts.created_at ASC, accounts.uid ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&accounts).Error; err != nil {
		return nil, err
	}

	orphans := make([]domain.Orphan, 0, len(accounts))
	for _, a := range accounts {
		orphans = append(orphans, toOrphan(a))
	}
	return orphans, nil
}

func (r *repo) FindOrphan(ctx context.Context, uid string) (*domain.Orphan, error) {
	var account iddomain.Account
	err := r.withoutProfile(ctx).Where("accounts.uid = ?", uid).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	orphan := toOrphan(account)
	return &orphan, nil
}

func toOrphan(a iddomain.Account) domain.Orphan {
	return domain.Orphan{Identity: *a.Identity(), At: a.CreatedAt}
}
