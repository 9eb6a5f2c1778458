package domain

import (
	"errors"
	"strings"
	"time"

	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
)

// Form is the profile edit form submitted on sign-up or from the details page.
type Form struct {
	FirstName   string                    `json:"first_name"`
	LastName    string                    `json:"last_name"`
	PhoneNumber string                    `json:"phone_number"`
	DateOfBirth string                    `json:"date_of_birth"`
	PostalCode  string                    `json:"postal_code"`
	AccountType profiledomain.AccountType `json:"account_type"`
	Nickname    string                    `json:"nickname,omitempty"`

	// Trader only.
	CompanyName string `json:"company_name,omitempty"`
	TradeType   string `json:"trade_type,omitempty"`
}

// Draft is the profile assembled while the sync pipeline runs.
// Coordinates stays nil until the current postal code has been geocoded.
type Draft struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	PhoneNumber string
	FirstName   string
	LastName    string
	DateOfBirth string
	PostalCode  string
	AccountType profiledomain.AccountType
	Nickname    string
	Coordinates *geodomain.Coordinates

	hasForm bool
}

// NewDraft starts from the identity and lays the form and photo over it.
func NewDraft(identity iddomain.Identity, form *Form, photoURL string) Draft {
	d := Draft{
		UID:         identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
		PhoneNumber: identity.PhoneNumber,
	}
	if form != nil {
		d.hasForm = true
		d.FirstName = strings.TrimSpace(form.FirstName)
		d.LastName = strings.TrimSpace(form.LastName)
		d.PhoneNumber = strings.TrimSpace(form.PhoneNumber)
		d.DateOfBirth = normalizeDateOfBirth(form.DateOfBirth)
		d.PostalCode = strings.TrimSpace(form.PostalCode)
		d.AccountType = profiledomain.AccountType(strings.ToLower(strings.TrimSpace(string(form.AccountType))))
		d.Nickname = strings.TrimSpace(form.Nickname)
		if d.Nickname != "" {
			d.DisplayName = d.Nickname
		}
	}
	if photo := strings.TrimSpace(photoURL); photo != "" {
		d.PhotoURL = photo
	}
	return d
}

// DateOfBirthLayout is the stored date of birth format.
const DateOfBirthLayout = "2006-01-02"

const (
	maxPhoneNumberLen = 32
	maxPostalCodeLen  = 16
)

var (
	ErrInvalidDateOfBirth = errors.New("invalid_date_of_birth")
	ErrInvalidPhoneNumber = errors.New("invalid_phone_number")
	ErrPostalCodeTooLong  = errors.New("postal_code_too_long")
)

// normalizeDateOfBirth accepts a calendar date or an RFC 3339 timestamp, which
// some clients send for date pickers, and keeps the date part of the latter.
func normalizeDateOfBirth(raw string) string {
	v := strings.TrimSpace(raw)
	if len(v) > len(DateOfBirthLayout) {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.Format(DateOfBirthLayout)
		}
	}
	return v
}

// Validate checks the fields the store bounds. It returns the offending field
// and the reason, or "" and nil.
func (d Draft) Validate(now time.Time) (string, error) {
	if d.DateOfBirth != "" {
		dob, err := time.Parse(DateOfBirthLayout, d.DateOfBirth)
		if err != nil || dob.After(now) {
			return "date_of_birth", ErrInvalidDateOfBirth
		}
	}
	if !validPhoneNumber(d.PhoneNumber) {
		return "phone_number", ErrInvalidPhoneNumber
	}
	if len(d.PostalCode) > maxPostalCodeLen {
		return "postal_code", ErrPostalCodeTooLong
	}
	return "", nil
}

func validPhoneNumber(v string) bool {
	if len(v) > maxPhoneNumberLen {
		return false
	}
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
		case r == ' ', r == '+', r == '-', r == '(', r == ')', r == '.':
		default:
			return false
		}
	}
	return true
}

func (d Draft) HasForm() bool { return d.hasForm }

// IsTrader reports whether the draft needs a linked company.
func (d Draft) IsTrader() bool {
	return d.hasForm && d.AccountType == profiledomain.AccountTypeTrader
}

// SetPostalCode drops coordinates resolved for a different code.
func (d *Draft) SetPostalCode(code string) {
	if code != d.PostalCode {
		d.Coordinates = nil
	}
	d.PostalCode = code
}

// Fields projects the draft onto a profile merge. Identity fields are always
// written; form fields only when a form was submitted.
func (d Draft) Fields() profiledomain.Fields {
	f := profiledomain.Fields{
		Email:       strPtr(d.Email),
		DisplayName: strPtr(d.DisplayName),
		PhotoURL:    strPtr(d.PhotoURL),
		Coordinates: d.Coordinates,
	}
	if d.PhoneNumber != "" || d.hasForm {
		f.PhoneNumber = strPtr(d.PhoneNumber)
	}
	if d.PostalCode != "" {
		f.PostalCode = strPtr(d.PostalCode)
	}
	if d.hasForm {
		f.FirstName = strPtr(d.FirstName)
		f.LastName = strPtr(d.LastName)
		f.DateOfBirth = strPtr(d.DateOfBirth)
		accountType := d.AccountType
		f.AccountType = &accountType
	}
	return f
}

func strPtr(v string) *string { return &v }
