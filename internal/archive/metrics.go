package archive

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics counts archive mutations and blob cleanup failures
type Metrics struct {
	created       metric.Int64Counter
	deleted       metric.Int64Counter
	unlinkFailure metric.Int64Counter
}

// NewMetrics registers the archive instruments on meter. A nil meter yields
// no-op instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("archive")
	}

	created, err := meter.Int64Counter("careportal_archive_nodes_created_total",
		metric.WithDescription("Archive nodes created"))
	if err != nil {
		return nil, err
	}
	deleted, err := meter.Int64Counter("careportal_archive_nodes_deleted_total",
		metric.WithDescription("Archive rows removed, subtree deletes count every row"))
	if err != nil {
		return nil, err
	}
	unlinkFailure, err := meter.Int64Counter("careportal_archive_blob_unlink_failures_total",
		metric.WithDescription("Blobs that could not be removed from disk after their row was deleted"))
	if err != nil {
		return nil, err
	}

	return &Metrics{created: created, deleted: deleted, unlinkFailure: unlinkFailure}, nil
}

func kindAttr(folder bool) metric.MeasurementOption {
	kind := "file"
	if folder {
		kind = "folder"
	}
	return metric.WithAttributes(attribute.String("kind", kind))
}

func (m *Metrics) nodeCreated(ctx context.Context, folder bool) {
	m.created.Add(ctx, 1, kindAttr(folder))
}

func (m *Metrics) nodesDeleted(ctx context.Context, n int64, recursive bool) {
	m.deleted.Add(ctx, n, metric.WithAttributes(attribute.Bool("recursive", recursive)))
}

func (m *Metrics) blobUnlinkFailed(ctx context.Context) {
	m.unlinkFailure.Add(ctx, 1)
}
