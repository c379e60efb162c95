package ingest

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ingestMetrics struct {
	rows   metric.Int64Counter
	images metric.Int64Counter
}

func newIngestMetrics() ingestMetrics {
	meter := otel.Meter("github.com/fr0stylo/venuecal/internal/ingest")
	rows, _ := meter.Int64Counter("venuecal.ingest.rows")
	images, _ := meter.Int64Counter("venuecal.ingest.images")
	return ingestMetrics{rows: rows, images: images}
}

func (m ingestMetrics) recordRow(ctx context.Context, source, outcome string) {
	if m.rows == nil {
		return
	}
	m.rows.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))
}

func (m ingestMetrics) recordImage(ctx context.Context, outcome string) {
	if m.images == nil {
		return
	}
	m.images.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
