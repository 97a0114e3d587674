package vectorstore

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/helixdesk/tenantstore/internal/qdrant"
)

// statsScrollPage is the page size used while counting distinct documents.
const statsScrollPage = 1000

// TenantCollectionStats returns the tenant's collection metadata plus a
// distinct-document count. The count scans at most Options.ScrollLimit
// points, so very large tenants report an undercount. Returns nil for an
// absent collection or a backend failure.
func (s *TenantVectorStore) TenantCollectionStats(ctx context.Context, tenantID string) *TenantCollection {
	if tenantID == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.TenantCollectionStats")
	defer span.End()

	collection := CollectionName(tenantID)
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("collection", collection),
	)

	info, err := s.client.CollectionInfo(ctx, collection)
	if err != nil {
		s.fail(ctx, span, "stats", "collection info lookup failed", err,
			zap.String("tenant_id", tenantID))
		return nil
	}

	documents := make(map[string]struct{})
	var scanned uint32
	offset := ""
	for scanned < s.opts.ScrollLimit {
		limit := s.opts.ScrollLimit - scanned
		if limit > statsScrollPage {
			limit = statsScrollPage
		}

		points, nextOffset, err := s.client.Scroll(ctx, collection, qdrant.ScrollOptions{
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			s.fail(ctx, span, "stats", "stats scroll failed", err,
				zap.String("tenant_id", tenantID))
			return nil
		}
		if len(points) == 0 {
			break
		}

		for _, p := range points {
			if docID, ok := p.Payload[payloadDocumentID].(string); ok && docID != "" {
				documents[docID] = struct{}{}
			}
		}
		scanned += uint32(len(points))

		if nextOffset == "" {
			break
		}
		offset = nextOffset
	}

	recordOperation("stats", nil)
	span.SetStatus(otelcodes.Ok, "success")
	return &TenantCollection{
		TenantID:       tenantID,
		CollectionName: collection,
		VectorSize:     info.VectorSize,
		Distance:       string(info.Distance),
		DocumentsCount: uint64(len(documents)),
		ChunksCount:    info.PointsCount,
	}
}

// VectorStats aggregates point counts across every tenant collection.
// Backend failure yields nil; a failing individual collection is skipped.
func (s *TenantVectorStore) VectorStats(ctx context.Context) *Stats {
	ctx, span := tracer.Start(ctx, "TenantVectorStore.VectorStats")
	defer span.End()

	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		s.fail(ctx, span, "stats", "collection list failed", err)
		return nil
	}

	stats := &Stats{}
	for _, name := range collections {
		if !strings.HasPrefix(name, collectionPrefix) {
			continue
		}
		stats.Collections++

		info, err := s.client.CollectionInfo(ctx, name)
		if err != nil {
			s.logger.Warn(ctx, "skipping collection in aggregate stats",
				zap.String("collection", name), zap.Error(err))
			continue
		}
		stats.Points += info.PointsCount
	}

	recordOperation("stats", nil)
	span.SetAttributes(attribute.Int("collections", stats.Collections))
	span.SetStatus(otelcodes.Ok, "success")
	return stats
}
