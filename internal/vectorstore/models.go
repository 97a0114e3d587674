// Package vectorstore implements tenant-isolated vector storage on Qdrant.
//
// Every tenant owns a dedicated collection and every point carries the
// tenant's identifier in its payload, so queries are double-guarded: the
// collection boundary and an injected payload filter. Backend failures are
// absorbed into zero results; only caller mistakes surface as errors.
package vectorstore

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Validation errors. These indicate caller misuse and are returned loudly;
// backend trouble never is.
var (
	// ErrMissingTenant is returned when an operation lacks a tenant identifier.
	ErrMissingTenant = errors.New("vectorstore: tenant id is required")

	// ErrMissingVector is returned when a search query carries no vector.
	ErrMissingVector = errors.New("vectorstore: query vector is required")

	// ErrChunkVectorMismatch is returned when the chunk and vector slices
	// passed to AddDocumentVectors differ in length.
	ErrChunkVectorMismatch = errors.New("vectorstore: chunk and vector counts differ")
)

// Payload keys shared by every point.
const (
	payloadTenantID   = "tenant_id"
	payloadDocumentID = "document_id"
	payloadChunkID    = "chunk_id"
	payloadContent    = "content"
)

// collectionPrefix namespaces tenant collections within the Qdrant instance.
const collectionPrefix = "tenant_"

// Document identifies a source document whose chunks are being stored.
type Document struct {
	ID       string
	Title    string
	Metadata map[string]interface{}
}

// DocumentChunk is one embeddable fragment of a document.
type DocumentChunk struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
}

// SearchQuery describes a tenant-scoped similarity search.
type SearchQuery struct {
	// TenantID scopes the search. Required.
	TenantID string

	// Vector is the query embedding. Required.
	Vector []float32

	// Limit caps the result count. Default: 10.
	Limit uint64

	// Offset skips the best-scoring results, for pagination.
	Offset uint64

	// Filter adds payload conditions. Tenant keys are ignored; the tenant
	// condition is always injected from TenantID.
	Filter map[string]interface{}

	// Threshold drops results scoring below it. Default: 0.7.
	// Set Unthresholded to disable the cutoff entirely.
	Threshold     float32
	Unthresholded bool
}

// SearchResult is one scored match.
type SearchResult struct {
	ID         string
	Score      float32
	TenantID   string
	DocumentID string
	ChunkID    string
	Content    string
	Metadata   map[string]interface{}
}

// TenantCollection describes one tenant's collection.
type TenantCollection struct {
	TenantID       string
	CollectionName string
	VectorSize     uint64
	Distance       string
	DocumentsCount uint64
	ChunksCount    uint64
}

// Stats aggregates over all tenant collections.
type Stats struct {
	Collections int
	Points      uint64
}

// ClusterInfo identifies the vector backend deployment.
type ClusterInfo struct {
	Title   string
	Version string
	Commit  string
}

// HybridOptions tunes a hybrid (vector + lexical) search.
type HybridOptions struct {
	// Limit caps the final result count. Default: 10.
	Limit uint64

	// VectorWeight and TextWeight blend the two scores.
	// Defaults: 0.7 and 0.3.
	VectorWeight float32
	TextWeight   float32

	// Threshold applies to the vector score during candidate retrieval.
	Threshold     float32
	Unthresholded bool
}

// MigrateOptions tunes a cross-tenant migration.
type MigrateOptions struct {
	// BatchSize is the number of points copied per scroll page.
	// Default: 256.
	BatchSize uint32

	// DeleteSource removes the source collection after a fully
	// successful copy. Default: false (non-destructive).
	DeleteSource bool
}

// CollectionName derives a tenant's collection name. The mapping is
// deterministic, so the name is reconstructible without any lookup table.
func CollectionName(tenantID string) string {
	return collectionPrefix + sanitizeTenantID(tenantID)
}

// sanitizeTenantID lowercases the tenant id and replaces every rune outside
// [a-z0-9_] with an underscore, matching Qdrant's collection-name rules.
func sanitizeTenantID(tenantID string) string {
	var b strings.Builder
	b.Grow(len(tenantID))
	for _, r := range strings.ToLower(tenantID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// pointID maps a chunk id onto a Qdrant point id. Valid UUIDs pass through;
// anything else becomes a name-based UUID so the mapping stays deterministic
// and upserts of the same chunk overwrite instead of duplicating.
func pointID(chunkID string) string {
	if _, err := uuid.Parse(chunkID); err == nil {
		return chunkID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}
