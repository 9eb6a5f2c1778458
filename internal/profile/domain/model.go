package domain

import (
	"context"
	"errors"
	"time"

	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
)

var (
	ErrInvalidUID         = errors.New("invalid_uid")
	ErrInvalidAccountType = errors.New("invalid_account_type")
	ErrNoFields           = errors.New("no_fields")
)

type AccountType string

const (
	AccountTypeCustomer AccountType = "customer"
	AccountTypeTrader   AccountType = "trader"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeCustomer || t == AccountTypeTrader
}

// Profile is the persisted user record, keyed by the identity uid.
type Profile struct {
	UID         string      `gorm:"primaryKey;type:varchar(64)" json:"uid"`
	Email       string      `gorm:"type:varchar(320)" json:"email"`
	DisplayName string      `gorm:"type:text" json:"display_name"`
	PhotoURL    string      `gorm:"column:photo_url;type:text" json:"photo_url"`
	PhoneNumber string      `gorm:"type:varchar(32)" json:"phone_number"`
	FirstName   string      `gorm:"type:text" json:"first_name"`
	LastName    string      `gorm:"type:text" json:"last_name"`
	DateOfBirth string      `gorm:"type:varchar(10)" json:"date_of_birth"`
	PostalCode  string      `gorm:"type:varchar(16)" json:"postal_code"`
	AccountType AccountType `gorm:"type:varchar(16);index" json:"account_type"`
	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`
	CreatedAt   time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// Coordinates returns nil until the profile has been geocoded.
func (p Profile) Coordinates() *geodomain.Coordinates {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &geodomain.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}
}

// Fields is a partial profile. Nil members are left untouched by a merge.
type Fields struct {
	Email       *string
	DisplayName *string
	PhotoURL    *string
	PhoneNumber *string
	FirstName   *string
	LastName    *string
	DateOfBirth *string
	PostalCode  *string
	AccountType *AccountType
	Coordinates *geodomain.Coordinates
}

func (f Fields) Empty() bool {
	return len(f.Columns()) == 0
}

// Columns lists the database columns the merge will write.
func (f Fields) Columns() []string {
	cols := make([]string, 0, 11)
	add := func(set bool, names ...string) {
		if set {
			cols = append(cols, names...)
		}
	}
	add(f.Email != nil, "email")
	add(f.DisplayName != nil, "display_name")
	add(f.PhotoURL != nil, "photo_url")
	add(f.PhoneNumber != nil, "phone_number")
	add(f.FirstName != nil, "first_name")
	add(f.LastName != nil, "last_name")
	add(f.DateOfBirth != nil, "date_of_birth")
	add(f.PostalCode != nil, "postal_code")
	add(f.AccountType != nil, "account_type")
	add(f.Coordinates != nil, "latitude", "longitude")
	return cols
}

// ApplyTo copies the supplied members onto p.
func (f Fields) ApplyTo(p *Profile) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.Email, f.Email)
	setString(&p.DisplayName, f.DisplayName)
	setString(&p.PhotoURL, f.PhotoURL)
	setString(&p.PhoneNumber, f.PhoneNumber)
	setString(&p.FirstName, f.FirstName)
	setString(&p.LastName, f.LastName)
	setString(&p.DateOfBirth, f.DateOfBirth)
	setString(&p.PostalCode, f.PostalCode)
	if f.AccountType != nil {
		p.AccountType = *f.AccountType
	}
	if f.Coordinates != nil {
		lat, lng := f.Coordinates.Latitude, f.Coordinates.Longitude
		p.Latitude = &lat
		p.Longitude = &lng
	}
}

type Repository interface {
	UpsertMerge(ctx context.Context, uid string, fields Fields, now time.Time) error
	FindByUID(ctx context.Context, uid string) (*Profile, error)
}

// Subscription delivers every persisted version of one profile until closed.
type Subscription interface {
	Updates() <-chan Profile
	Close()
}

type Store interface {
	UpsertMerge(ctx context.Context, uid string, fields Fields) error
	Get(ctx context.Context, uid string) (*Profile, error)
	Watch(uid string) (Subscription, error)
}
