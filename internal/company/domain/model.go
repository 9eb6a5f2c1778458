package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const CompanyCreatedTopic = "company.created"

var (
	ErrInvalidTradeType = errors.New("invalid_trade_type")
	ErrMissingOwner     = errors.New("missing_owner_uid")
)

// Company is the business record linked to a trader profile by owner uid.
type Company struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OwnerUID    string       `gorm:"column:owner_uid;type:varchar(64);not null;uniqueIndex"`
	Name        string       `gorm:"type:text;not null"`
	Slug        string       `gorm:"type:varchar(160);not null;uniqueIndex"`
	TradeType   string       `gorm:"type:varchar(64)"`
	Email       string       `gorm:"type:varchar(320)"`
	PhoneNumber string       `gorm:"type:varchar(32)"`
	PostalCode  string       `gorm:"type:varchar(16)"`
	Latitude    *float64
	Longitude   *float64
	CreatedAt   time.Time `gorm:"not null"`
}

func (Company) TableName() string { return "companies" }

// Event is an outbox row written alongside the company.
type Event struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	CompanyID   snowflake.ID      `gorm:"not null;index"`
	EventType   string            `gorm:"type:varchar(64);not null"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	Published   bool              `gorm:"not null;default:false"`
	PublishedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

func (Event) TableName() string { return "company_events" }
