package domain

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, account *Account) error
	FindByUID(ctx context.Context, uid string) (*Account, error)
	FindByProviderExternalID(ctx context.Context, provider Provider, externalID string) (*Account, error)
	UpdateFields(ctx context.Context, uid string, fields map[string]any) error
	TouchSignOut(ctx context.Context, uid string, at time.Time) error
}
