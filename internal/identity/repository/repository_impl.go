package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/tradesmap/internal/identity/domain"
	"gorm.io/gorm"
)

var ErrAccountNotFound = errors.New("account_not_found")

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, account *domain.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repo) FindByUID(ctx context.Context, uid string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindByProviderExternalID(ctx context.Context, provider domain.Provider, externalID string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", string(provider), externalID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) UpdateFields(ctx context.Context, uid string, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Account{}).Where("uid = ?", uid).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *repo) TouchSignOut(ctx context.Context, uid string, at time.Time) error {
	return r.UpdateFields(ctx, uid, map[string]any{"last_sign_out_at": at})
}
