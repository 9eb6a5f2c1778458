package domain

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidPostalCode = errors.New("invalid_postal_code")
	ErrUnavailable       = errors.New("geocoding_unavailable")
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

//go:generate mockgen -source=geocoding.go -destination=../mocks/mock_gateway.go -package=mocks

// Gateway resolves a postal code to coordinates. It fails with ErrInvalidPostalCode
// or ErrUnavailable.
type Gateway interface {
	Resolve(ctx context.Context, postalCode string) (Coordinates, error)
}

// NormalizePostalCode trims, upper-cases and collapses inner whitespace.
func NormalizePostalCode(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}
