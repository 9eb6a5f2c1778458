package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("method", "password"),
		attribute.String("email", "a@b.com"),
		attribute.String("outcome", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "email" {
			t.Fatalf("expected email to be dropped")
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordAuthAttempt(context.Background(), "password", "success")
	m.RecordSync(context.Background(), "persist", "success")
	m.RecordCompanyProvisioning(context.Background(), "created")
	m.RecordGeocodeLookup(context.Background(), "remote", "hit")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "tradesmap"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordSync(context.Background(), "geocode", "invalid_postal_code")
}
