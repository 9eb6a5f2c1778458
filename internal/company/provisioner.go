package company

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	accountdomain "github.com/smallbiznis/tradesmap/internal/account/domain"
	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/company/domain"
	"github.com/smallbiznis/tradesmap/internal/config"
	"github.com/smallbiznis/tradesmap/internal/observability/metrics"
	"github.com/smallbiznis/tradesmap/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type noopProvisioner struct{}

func NewNoopProvisioner() accountdomain.CompanyProvisioner {
	return &noopProvisioner{}
}

func (p *noopProvisioner) CreateCompany(ctx context.Context, form accountdomain.Form, draft accountdomain.Draft) error {
	_ = ctx
	_ = form
	_ = draft
	return nil
}

// DatabaseProvisioner writes the company and its outbox event in one transaction.
type DatabaseProvisioner struct {
	db      *gorm.DB
	genID   *snowflake.Node
	trades  *config.TradeCatalogHolder
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewDatabaseProvisioner(
	db *gorm.DB,
	genID *snowflake.Node,
	trades *config.TradeCatalogHolder,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) *DatabaseProvisioner {
	if log == nil {
		log = zap.NewNop()
	}
	return &DatabaseProvisioner{
		db:      db,
		genID:   genID,
		trades:  trades,
		clock:   clk,
		metrics: m,
		log:     log.Named("company.provisioner"),
	}
}

// CreateCompany is a no-op when the owner already has a company.
func (p *DatabaseProvisioner) CreateCompany(ctx context.Context, form accountdomain.Form, draft accountdomain.Draft) error {
	ownerUID := strings.TrimSpace(draft.UID)
	if ownerUID == "" {
		p.metrics.RecordCompanyProvisioning(ctx, "rejected")
		return domain.ErrMissingOwner
	}

	tradeType := strings.ToLower(strings.TrimSpace(form.TradeType))
	if tradeType != "" && p.trades != nil && !p.trades.Get().Contains(tradeType) {
		p.metrics.RecordCompanyProvisioning(ctx, "rejected")
		return domain.ErrInvalidTradeType
	}

	created := false
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Company{}).Where("owner_uid = ?", ownerUID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := p.clock.Now()
		name := companyName(form, draft)
		company := &domain.Company{
			ID:          p.genID.Generate(),
			OwnerUID:    ownerUID,
			Name:        name,
			TradeType:   tradeType,
			Email:       draft.Email,
			PhoneNumber: draft.PhoneNumber,
			PostalCode:  draft.PostalCode,
			CreatedAt:   now,
		}
		if draft.Coordinates != nil {
			lat, lng := draft.Coordinates.Latitude, draft.Coordinates.Longitude
			company.Latitude = &lat
			company.Longitude = &lng
		}

		companySlug, err := uniqueSlug(tx, name, company.ID)
		if err != nil {
			return err
		}
		company.Slug = companySlug

		if err := tx.Create(company).Error; err != nil {
			return err
		}

		event := &domain.Event{
			ID:        p.genID.Generate(),
			CompanyID: company.ID,
			EventType: domain.CompanyCreatedTopic,
			Payload: datatypes.JSONMap{
				"company_id": company.ID.String(),
				"owner_uid":  ownerUID,
				"trade_type": tradeType,
			},
			CreatedAt: now,
		}
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		// A concurrent sync for the same owner won the insert.
		if db.IsDuplicateKeyErr(err) && p.ownerHasCompany(ctx, ownerUID) {
			p.metrics.RecordCompanyProvisioning(ctx, "exists")
			return nil
		}
		p.metrics.RecordCompanyProvisioning(ctx, "failed")
		return fmt.Errorf("provision company: %w", err)
	}

	if created {
		p.metrics.RecordCompanyProvisioning(ctx, "created")
		p.log.Info("company provisioned", zap.String("owner_uid", ownerUID), zap.String("trade_type", tradeType))
	} else {
		p.metrics.RecordCompanyProvisioning(ctx, "exists")
	}
	return nil
}

// FindByOwner returns nil, nil when the owner has no company.
func (p *DatabaseProvisioner) FindByOwner(ctx context.Context, ownerUID string) (*domain.Company, error) {
	var company domain.Company
	err := p.db.WithContext(ctx).Where("owner_uid = ?", strings.TrimSpace(ownerUID)).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (p *DatabaseProvisioner) ownerHasCompany(ctx context.Context, ownerUID string) bool {
	company, err := p.FindByOwner(ctx, ownerUID)
	return err == nil && company != nil
}

func companyName(form accountdomain.Form, draft accountdomain.Draft) string {
	if name := strings.TrimSpace(form.CompanyName); name != "" {
		return name
	}
	if name := strings.TrimSpace(draft.DisplayName); name != "" {
		return name
	}
	if name := strings.TrimSpace(draft.FirstName + " " + draft.LastName); name != "" {
		return name
	}
	return draft.UID
}

func uniqueSlug(tx *gorm.DB, name string, id snowflake.ID) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "company"
	}
	var count int64
	if err := tx.Model(&domain.Company{}).Where("slug = ?", base).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return base, nil
	}
	return base + "-" + strings.ToLower(id.Base36()), nil
}
