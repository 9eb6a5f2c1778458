package domain

import (
	"testing"

	geodomain "github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestFieldsColumnsOnlySupplied(t *testing.T) {
	f := Fields{
		Email:       ptr("a@b.com"),
		AccountType: ptr(AccountTypeTrader),
		Coordinates: &geodomain.Coordinates{Latitude: 51.5, Longitude: -0.1},
	}
	assert.Equal(t, []string{"email", "account_type", "latitude", "longitude"}, f.Columns())
	assert.True(t, Fields{}.Empty())
}

func TestFieldsApplyToKeepsUnsupplied(t *testing.T) {
	p := Profile{UID: "u1", DisplayName: "Keep", PhotoURL: "https://img/1"}
	Fields{
		DisplayName: ptr("Nick"),
		Coordinates: &geodomain.Coordinates{Latitude: 1, Longitude: 2},
	}.ApplyTo(&p)

	assert.Equal(t, "Nick", p.DisplayName)
	assert.Equal(t, "https://img/1", p.PhotoURL)
	assert.Equal(t, &geodomain.Coordinates{Latitude: 1, Longitude: 2}, p.Coordinates())
}

func TestAccountTypeValid(t *testing.T) {
	assert.True(t, AccountTypeCustomer.Valid())
	assert.True(t, AccountTypeTrader.Valid())
	assert.False(t, AccountType("").Valid())
	assert.False(t, AccountType("admin").Valid())
}
