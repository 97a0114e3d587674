package vectorstore

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/helixdesk/tenantstore/internal/qdrant"
)

// MigrateTenantData copies every point from the source tenant's collection
// into the target tenant's, rewriting the tenant identifier in each payload.
// The scroll is filtered to the source tenant's payload marker, so a point
// that somehow carries another tenant's marker is never copied.
// Point ids are preserved, so upserts are idempotent and an interrupted
// migration can simply be re-run; a failed run leaves the target partially
// populated until then. With opts.DeleteSource the source collection is
// removed, but only after the copy completed in full.
func (s *TenantVectorStore) MigrateTenantData(ctx context.Context, sourceTenantID, targetTenantID string, opts MigrateOptions) bool {
	if sourceTenantID == "" || targetTenantID == "" || sourceTenantID == targetTenantID {
		s.logger.Warn(ctx, "rejecting migration with invalid tenant pair",
			zap.String("source", sourceTenantID),
			zap.String("target", targetTenantID))
		return false
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.MigrateTenantData")
	defer span.End()

	source := CollectionName(sourceTenantID)
	target := CollectionName(targetTenantID)
	span.SetAttributes(
		attribute.String("source_tenant_id", sourceTenantID),
		attribute.String("target_tenant_id", targetTenantID),
		attribute.Bool("delete_source", opts.DeleteSource),
	)

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = s.opts.MigrationBatchSize
	}

	info, err := s.client.CollectionInfo(ctx, source)
	if err != nil {
		s.fail(ctx, span, "migrate", "source collection lookup failed", err,
			zap.String("source", source))
		return false
	}

	if !s.CreateTenantCollection(ctx, targetTenantID, info.VectorSize, info.Distance) {
		return false
	}

	var migrated uint64
	offset := ""
	for {
		points, nextOffset, err := s.client.Scroll(ctx, source, qdrant.ScrollOptions{
			Limit:       batchSize,
			Offset:      offset,
			WithVectors: true,
			Filter:      tenantFilter(sourceTenantID, nil),
		})
		if err != nil {
			s.fail(ctx, span, "migrate", "source scroll failed", err,
				zap.String("source", source),
				zap.Uint64("migrated", migrated))
			return false
		}
		if len(points) == 0 {
			break
		}

		for _, p := range points {
			if p.Payload == nil {
				p.Payload = make(map[string]interface{})
			}
			p.Payload[payloadTenantID] = targetTenantID
		}

		if err := s.client.Upsert(ctx, target, points); err != nil {
			s.fail(ctx, span, "migrate", "target upsert failed", err,
				zap.String("target", target),
				zap.Uint64("migrated", migrated))
			return false
		}

		migrated += uint64(len(points))
		migratedPointsTotal.Add(float64(len(points)))

		if nextOffset == "" {
			break
		}
		offset = nextOffset
	}

	if opts.DeleteSource {
		if err := s.client.DeleteCollection(ctx, source); err != nil {
			s.fail(ctx, span, "migrate", "source delete after migration failed", err,
				zap.String("source", source))
			return false
		}
	}

	s.logger.Info(ctx, "tenant migration complete",
		zap.String("source_tenant_id", sourceTenantID),
		zap.String("target_tenant_id", targetTenantID),
		zap.Uint64("points_migrated", migrated),
		zap.Bool("source_deleted", opts.DeleteSource),
	)
	recordOperation("migrate", nil)
	span.SetAttributes(attribute.Int64("points_migrated", int64(migrated)))
	span.SetStatus(otelcodes.Ok, "success")
	return true
}
