package vectorstore

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/helixdesk/tenantstore/internal/logging"
	"github.com/helixdesk/tenantstore/internal/qdrant"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("tenantstore.vectorstore")

// Options tunes a TenantVectorStore.
type Options struct {
	// DefaultVectorSize is used when a collection must be created before
	// any vector has been seen. Default: 1536.
	DefaultVectorSize uint64

	// DefaultThreshold is the minimum similarity score for search results
	// when the query does not set one. Default: 0.7.
	DefaultThreshold float32

	// DefaultLimit caps search results when the query does not set one.
	// Default: 10.
	DefaultLimit uint64

	// Distance is the similarity metric for new collections.
	// Default: Cosine.
	Distance qdrant.Distance

	// ScrollLimit bounds how many points stats operations will scan.
	// Default: 10000.
	ScrollLimit uint32

	// MigrationBatchSize is the scroll page size during tenant migration.
	// Default: 256.
	MigrationBatchSize uint32
}

func (o *Options) applyDefaults() {
	if o.DefaultVectorSize == 0 {
		o.DefaultVectorSize = 1536
	}
	if o.DefaultThreshold == 0 {
		o.DefaultThreshold = 0.7
	}
	if o.DefaultLimit == 0 {
		o.DefaultLimit = 10
	}
	if o.Distance == "" {
		o.Distance = qdrant.DistanceCosine
	}
	if o.ScrollLimit == 0 {
		o.ScrollLimit = 10000
	}
	if o.MigrationBatchSize == 0 {
		o.MigrationBatchSize = 256
	}
}

// TenantVectorStore manages per-tenant Qdrant collections. A single instance
// serves all tenants and is safe for concurrent use.
//
// Backend failures are absorbed: operations log the error, bump the error
// counter and return their zero result. The error returns that do exist
// signal caller mistakes only.
type TenantVectorStore struct {
	client qdrant.Client
	logger *logging.Logger
	opts   Options
}

// New creates a TenantVectorStore on top of a Qdrant client.
func New(client qdrant.Client, logger *logging.Logger, opts Options) *TenantVectorStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.applyDefaults()
	return &TenantVectorStore{
		client: client,
		logger: logger.Named("vectorstore"),
		opts:   opts,
	}
}

// CollectionExists reports whether the tenant's collection exists.
// Backend failure reads as absent.
func (s *TenantVectorStore) CollectionExists(ctx context.Context, tenantID string) bool {
	if tenantID == "" {
		return false
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.CollectionExists")
	defer span.End()
	span.SetAttributes(attribute.String("tenant_id", tenantID))

	exists, err := s.client.CollectionExists(ctx, CollectionName(tenantID))
	if err != nil {
		s.fail(ctx, span, "exists", "collection existence check failed", err,
			zap.String("tenant_id", tenantID))
		return false
	}
	return exists
}

// CreateTenantCollection creates the tenant's collection with keyword payload
// indexes on the tenant, document and chunk identifiers. Creating an existing
// collection succeeds, so the operation is idempotent.
func (s *TenantVectorStore) CreateTenantCollection(ctx context.Context, tenantID string, vectorSize uint64, distance qdrant.Distance) bool {
	if tenantID == "" {
		s.logger.Warn(ctx, "rejecting collection create without tenant")
		return false
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.CreateTenantCollection")
	defer span.End()

	if vectorSize == 0 {
		vectorSize = s.opts.DefaultVectorSize
	}
	if distance == "" {
		distance = s.opts.Distance
	}

	collection := CollectionName(tenantID)
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("collection", collection),
		attribute.Int64("vector_size", int64(vectorSize)),
	)

	if err := s.client.CreateCollection(ctx, collection, vectorSize, distance); err != nil {
		s.fail(ctx, span, "create", "collection create failed", err,
			zap.String("tenant_id", tenantID), zap.String("collection", collection))
		return false
	}

	for _, field := range []string{payloadTenantID, payloadDocumentID, payloadChunkID} {
		if err := s.client.CreateFieldIndex(ctx, collection, field); err != nil {
			s.fail(ctx, span, "create", "payload index create failed", err,
				zap.String("tenant_id", tenantID), zap.String("field", field))
			return false
		}
	}

	s.logger.Info(ctx, "tenant collection ready",
		zap.String("tenant_id", tenantID),
		zap.String("collection", collection),
		zap.Uint64("vector_size", vectorSize),
	)
	recordOperation("create", nil)
	span.SetStatus(otelcodes.Ok, "success")
	return true
}

// DeleteTenantCollection removes the tenant's collection and every point in
// it. Deleting an absent collection succeeds.
func (s *TenantVectorStore) DeleteTenantCollection(ctx context.Context, tenantID string) bool {
	if tenantID == "" {
		return false
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.DeleteTenantCollection")
	defer span.End()

	collection := CollectionName(tenantID)
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("collection", collection),
	)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		s.fail(ctx, span, "delete", "collection existence check failed", err,
			zap.String("tenant_id", tenantID))
		return false
	}
	if !exists {
		span.SetStatus(otelcodes.Ok, "already absent")
		return true
	}

	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		s.fail(ctx, span, "delete", "collection delete failed", err,
			zap.String("tenant_id", tenantID), zap.String("collection", collection))
		return false
	}

	s.logger.Info(ctx, "tenant collection deleted",
		zap.String("tenant_id", tenantID),
		zap.String("collection", collection),
	)
	recordOperation("delete", nil)
	span.SetStatus(otelcodes.Ok, "success")
	return true
}

// AddDocumentVectors stores one point per chunk, lazily creating the tenant's
// collection sized to the first vector. Point ids derive deterministically
// from chunk ids, so re-ingesting a document overwrites its chunks instead of
// duplicating them.
func (s *TenantVectorStore) AddDocumentVectors(ctx context.Context, tenantID string, doc Document, chunks []DocumentChunk, vectors [][]float32) (bool, error) {
	if tenantID == "" {
		return false, ErrMissingTenant
	}
	if len(chunks) != len(vectors) {
		return false, ErrChunkVectorMismatch
	}
	if len(chunks) == 0 {
		return true, nil
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.AddDocumentVectors")
	defer span.End()

	collection := CollectionName(tenantID)
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("document_id", doc.ID),
		attribute.Int("chunk_count", len(chunks)),
	)

	if !s.ensureCollection(ctx, span, tenantID, uint64(len(vectors[0]))) {
		return false, nil
	}

	points := make([]*qdrant.Point, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]interface{}{
			payloadTenantID:   tenantID,
			payloadDocumentID: doc.ID,
			payloadChunkID:    chunk.ID,
			payloadContent:    chunk.Content,
		}
		if doc.Title != "" {
			payload["document_title"] = doc.Title
		}
		for k, v := range chunk.Metadata {
			if _, reserved := payload[k]; reserved {
				continue
			}
			payload[k] = v
		}

		points[i] = &qdrant.Point{
			ID:      pointID(chunk.ID),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := s.client.Upsert(ctx, collection, points); err != nil {
		s.fail(ctx, span, "upsert", "point upsert failed", err,
			zap.String("tenant_id", tenantID),
			zap.String("document_id", doc.ID),
			zap.Int("chunk_count", len(chunks)))
		return false, nil
	}

	upsertedPointsTotal.Add(float64(len(points)))
	recordOperation("upsert", nil)
	s.logger.Debug(ctx, "document vectors stored",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.Int("chunk_count", len(chunks)),
	)
	span.SetStatus(otelcodes.Ok, "success")
	return true, nil
}

// RemoveDocumentVectors deletes every chunk of one document. Removing from an
// absent collection succeeds.
func (s *TenantVectorStore) RemoveDocumentVectors(ctx context.Context, tenantID, documentID string) bool {
	if tenantID == "" || documentID == "" {
		return false
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.RemoveDocumentVectors")
	defer span.End()

	collection := CollectionName(tenantID)
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("document_id", documentID),
	)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		s.fail(ctx, span, "remove", "collection existence check failed", err,
			zap.String("tenant_id", tenantID))
		return false
	}
	if !exists {
		span.SetStatus(otelcodes.Ok, "collection absent")
		return true
	}

	if err := s.client.DeleteByFilter(ctx, collection, documentFilter(tenantID, documentID)); err != nil {
		s.fail(ctx, span, "remove", "document vector delete failed", err,
			zap.String("tenant_id", tenantID),
			zap.String("document_id", documentID))
		return false
	}

	recordOperation("remove", nil)
	span.SetStatus(otelcodes.Ok, "success")
	return true
}

// SearchVectors performs a tenant-scoped similarity search. The tenant filter
// is always injected from the query's TenantID; tenant keys in the caller's
// filter are discarded. An absent collection yields empty results.
func (s *TenantVectorStore) SearchVectors(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	if query.TenantID == "" {
		return nil, ErrMissingTenant
	}
	if len(query.Vector) == 0 {
		return nil, ErrMissingVector
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.SearchVectors")
	defer span.End()

	collection := CollectionName(query.TenantID)
	span.SetAttributes(
		attribute.String("tenant_id", query.TenantID),
		attribute.String("collection", collection),
	)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		s.fail(ctx, span, "search", "collection existence check failed", err,
			zap.String("tenant_id", query.TenantID))
		return nil, nil
	}
	if !exists {
		span.SetStatus(otelcodes.Ok, "collection absent")
		return nil, nil
	}

	limit := query.Limit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}

	var threshold *float32
	if !query.Unthresholded {
		t := query.Threshold
		if t == 0 {
			t = s.opts.DefaultThreshold
		}
		threshold = &t
	}

	points, err := s.client.Query(ctx, collection, query.Vector, qdrant.QueryOptions{
		Limit:     limit,
		Offset:    query.Offset,
		Threshold: threshold,
		Filter:    tenantFilter(query.TenantID, query.Filter),
	})
	if err != nil {
		s.fail(ctx, span, "search", "vector search failed", err,
			zap.String("tenant_id", query.TenantID))
		return nil, nil
	}

	results := make([]SearchResult, len(points))
	for i, p := range points {
		results[i] = resultFromPoint(p)
	}

	recordOperation("search", nil)
	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(otelcodes.Ok, "success")
	return results, nil
}

// ClearTenantData removes everything stored for a tenant. Used for
// offboarding.
func (s *TenantVectorStore) ClearTenantData(ctx context.Context, tenantID string) bool {
	if tenantID == "" {
		return false
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.ClearTenantData")
	defer span.End()
	span.SetAttributes(attribute.String("tenant_id", tenantID))

	ok := s.DeleteTenantCollection(ctx, tenantID)
	recordOperation("clear", nil)
	if ok {
		s.logger.Info(ctx, "tenant vector data cleared", zap.String("tenant_id", tenantID))
	}
	return ok
}

// Health reports whether the backend answers a liveness probe.
func (s *TenantVectorStore) Health(ctx context.Context) bool {
	err := s.client.Health(ctx)
	recordOperation("health", err)
	if err != nil {
		healthStatus.Set(0)
		s.logger.Warn(ctx, "vector backend unhealthy", zap.Error(err))
		return false
	}
	healthStatus.Set(1)
	return true
}

// ClusterInfo returns identifying information about the vector backend.
// Returns nil on backend failure.
func (s *TenantVectorStore) ClusterInfo(ctx context.Context) *ClusterInfo {
	ctx, span := tracer.Start(ctx, "TenantVectorStore.ClusterInfo")
	defer span.End()

	info, err := s.client.ClusterInfo(ctx)
	if err != nil {
		s.fail(ctx, span, "cluster_info", "cluster info lookup failed", err)
		return nil
	}

	recordOperation("cluster_info", nil)
	span.SetAttributes(attribute.String("version", info.Version))
	span.SetStatus(otelcodes.Ok, "success")
	return &ClusterInfo{
		Title:   info.Title,
		Version: info.Version,
		Commit:  info.Commit,
	}
}

// Close releases the underlying connection.
func (s *TenantVectorStore) Close() error {
	return s.client.Close()
}

// ensureCollection creates the tenant's collection when missing.
func (s *TenantVectorStore) ensureCollection(ctx context.Context, span trace.Span, tenantID string, vectorSize uint64) bool {
	collection := CollectionName(tenantID)
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		s.fail(ctx, span, "upsert", "collection existence check failed", err,
			zap.String("tenant_id", tenantID))
		return false
	}
	if exists {
		return true
	}
	return s.CreateTenantCollection(ctx, tenantID, vectorSize, s.opts.Distance)
}

// resultFromPoint maps a scored point onto a SearchResult. Reserved payload
// keys populate the dedicated fields; the rest lands in Metadata.
func resultFromPoint(p *qdrant.ScoredPoint) SearchResult {
	result := SearchResult{
		ID:    p.ID,
		Score: p.Score,
	}

	for k, v := range p.Payload {
		switch k {
		case payloadTenantID:
			result.TenantID, _ = v.(string)
		case payloadDocumentID:
			result.DocumentID, _ = v.(string)
		case payloadChunkID:
			result.ChunkID, _ = v.(string)
		case payloadContent:
			result.Content, _ = v.(string)
		default:
			if result.Metadata == nil {
				result.Metadata = make(map[string]interface{})
			}
			result.Metadata[k] = v
		}
	}
	return result
}

// fail records a backend failure without surfacing it.
func (s *TenantVectorStore) fail(ctx context.Context, span trace.Span, op, msg string, err error, fields ...zap.Field) {
	recordOperation(op, err)
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	s.logger.Error(ctx, msg, append(fields, zap.Error(err))...)
}
