package company

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tradesmap/internal/account/domain"
	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/company/domain"
	"github.com/smallbiznis/tradesmap/internal/config"
	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
	dbpkg "github.com/smallbiznis/tradesmap/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestProvisioner(t *testing.T) (*DatabaseProvisioner, *gorm.DB) {
	t.Helper()

	db, err := dbpkg.NewTest()
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Company{}, &domain.Event{}); err != nil {
		t.Fatalf("failed to migrate companies: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create id generator: %v", err)
	}

	return NewDatabaseProvisioner(
		db,
		node,
		config.NewStaticTradeCatalogHolder(config.DefaultTradeCatalog()),
		clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		nil,
		zap.NewNop(),
	), db
}

func traderDraft(uid string, form accountdomain.Form) accountdomain.Draft {
	draft := accountdomain.NewDraft(iddomain.Identity{UID: uid, Email: "jo@example.com"}, &form, "")
	draft.Coordinates = &geodomain.Coordinates{Latitude: 51.5, Longitude: -0.1}
	return draft
}

func TestNewProvisionerDisabledUsesNoop(t *testing.T) {
	provisioner := newProvisioner(Params{
		Config: config.Config{CompanyProvisioning: config.ProvisioningDisabled},
		Log:    zap.NewNop(),
	})
	if _, ok := provisioner.(*noopProvisioner); !ok {
		t.Fatalf("expected noop provisioner when disabled, got %T", provisioner)
	}
}

func TestCreateCompanyWritesCompanyAndEvent(t *testing.T) {
	provisioner, db := newTestProvisioner(t)
	form := accountdomain.Form{
		FirstName:   "Jo",
		LastName:    "Bloggs",
		PostalCode:  "AB1 2CD",
		AccountType: profiledomain.AccountTypeTrader,
		CompanyName: "Bloggs Plumbing",
		TradeType:   "Plumber",
	}

	if err := provisioner.CreateCompany(context.Background(), form, traderDraft("uid-1", form)); err != nil {
		t.Fatalf("create company failed: %v", err)
	}

	company, err := provisioner.FindByOwner(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("failed to load company: %v", err)
	}
	if company == nil {
		t.Fatalf("expected company for owner")
	}
	if company.Slug != "bloggs-plumbing" {
		t.Fatalf("expected slug bloggs-plumbing, got %q", company.Slug)
	}
	if company.TradeType != "plumber" {
		t.Fatalf("expected trade type plumber, got %q", company.TradeType)
	}
	if company.Latitude == nil || *company.Latitude != 51.5 {
		t.Fatalf("expected latitude 51.5, got %v", company.Latitude)
	}

	var events []domain.Event
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("failed to load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != domain.CompanyCreatedTopic {
		t.Fatalf("expected event type %q, got %q", domain.CompanyCreatedTopic, events[0].EventType)
	}
	if value, _ := events[0].Payload["company_id"].(string); value != company.ID.String() {
		t.Fatalf("expected company_id %q, got %q", company.ID.String(), value)
	}
}

func TestCreateCompanyIsExactlyOncePerOwner(t *testing.T) {
	provisioner, db := newTestProvisioner(t)
	form := accountdomain.Form{FirstName: "Jo", AccountType: profiledomain.AccountTypeTrader}

	for i := 0; i < 3; i++ {
		if err := provisioner.CreateCompany(context.Background(), form, traderDraft("uid-1", form)); err != nil {
			t.Fatalf("create company attempt %d failed: %v", i, err)
		}
	}

	var companies int64
	if err := db.Model(&domain.Company{}).Count(&companies).Error; err != nil {
		t.Fatalf("failed to count companies: %v", err)
	}
	var events int64
	if err := db.Model(&domain.Event{}).Count(&events).Error; err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	if companies != 1 || events != 1 {
		t.Fatalf("expected 1 company and 1 event, got %d and %d", companies, events)
	}
}

func TestCreateCompanyRejectsUnknownTradeType(t *testing.T) {
	provisioner, db := newTestProvisioner(t)
	form := accountdomain.Form{FirstName: "Jo", AccountType: profiledomain.AccountTypeTrader, TradeType: "astronaut"}

	err := provisioner.CreateCompany(context.Background(), form, traderDraft("uid-1", form))
	if !errors.Is(err, domain.ErrInvalidTradeType) {
		t.Fatalf("expected ErrInvalidTradeType, got %v", err)
	}

	var companies int64
	if err := db.Model(&domain.Company{}).Count(&companies).Error; err != nil {
		t.Fatalf("failed to count companies: %v", err)
	}
	if companies != 0 {
		t.Fatalf("expected no company, got %d", companies)
	}
}

func TestCreateCompanyNameFallbacksAndSlugCollision(t *testing.T) {
	provisioner, _ := newTestProvisioner(t)

	first := accountdomain.Form{FirstName: "Jo", LastName: "Bloggs", AccountType: profiledomain.AccountTypeTrader}
	if err := provisioner.CreateCompany(context.Background(), first, traderDraft("uid-1", first)); err != nil {
		t.Fatalf("create first company failed: %v", err)
	}
	second := accountdomain.Form{FirstName: "Jo", LastName: "Bloggs", AccountType: profiledomain.AccountTypeTrader}
	if err := provisioner.CreateCompany(context.Background(), second, traderDraft("uid-2", second)); err != nil {
		t.Fatalf("create second company failed: %v", err)
	}

	one, err := provisioner.FindByOwner(context.Background(), "uid-1")
	if err != nil || one == nil {
		t.Fatalf("expected first company, got %v, %v", one, err)
	}
	two, err := provisioner.FindByOwner(context.Background(), "uid-2")
	if err != nil || two == nil {
		t.Fatalf("expected second company, got %v, %v", two, err)
	}
	if one.Name != "Jo Bloggs" {
		t.Fatalf("expected name from first and last name, got %q", one.Name)
	}
	if one.Slug == two.Slug {
		t.Fatalf("expected distinct slugs, both %q", one.Slug)
	}
}

func TestCreateCompanyRequiresOwner(t *testing.T) {
	provisioner, _ := newTestProvisioner(t)
	form := accountdomain.Form{AccountType: profiledomain.AccountTypeTrader}

	err := provisioner.CreateCompany(context.Background(), form, traderDraft("", form))
	if !errors.Is(err, domain.ErrMissingOwner) {
		t.Fatalf("expected ErrMissingOwner, got %v", err)
	}
}
