package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("table", "stocks"),
		attribute.String("tenant_id", "456"),
		attribute.String("outcome", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "table" && attrs[1].Key != "table" {
		t.Fatalf("expected table to be retained")
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordExport(ctx, "success")
	m.RecordImport(ctx, "skip", false, "success", time.Second)
	m.RecordImportRecords(ctx, "stocks", "imported", 3)
	m.RecordValidation(ctx, true)
	m.RecordArchive(ctx, "create", "success")
	m.RecordRateLimitDenied(ctx, "/api/backup/import", "bucket")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "flyroom-test"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordImport(context.Background(), "fail", true, "success", 10*time.Millisecond)
	m.RecordImportRecords(context.Background(), "users", "imported", 0)
}
