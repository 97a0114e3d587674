// Package qdrant wraps the official Qdrant gRPC client behind a small
// domain-typed interface so consuming packages never touch protobuf types.
package qdrant

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned when an operation targets a collection
// that does not exist on the server.
var ErrCollectionNotFound = errors.New("qdrant: collection not found")

// Distance is the similarity metric used by a collection.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceEuclid Distance = "Euclid"
	DistanceDot    Distance = "Dot"
)

// Client provides access to a Qdrant vector database.
type Client interface {
	// Collection operations
	CreateCollection(ctx context.Context, name string, vectorSize uint64, distance Distance) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// CreateFieldIndex creates a keyword payload index on field.
	CreateFieldIndex(ctx context.Context, collection, field string) error

	// Point operations
	Upsert(ctx context.Context, collection string, points []*Point) error
	Query(ctx context.Context, collection string, vector []float32, opts QueryOptions) ([]*ScoredPoint, error)
	DeleteByFilter(ctx context.Context, collection string, filter *Filter) error
	Scroll(ctx context.Context, collection string, opts ScrollOptions) ([]*Point, string, error)

	// Health
	Health(ctx context.Context) error
	ClusterInfo(ctx context.Context) (*ClusterInfo, error)

	// Close closes the client connection
	Close() error
}

// Point represents a vector point.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// ScoredPoint represents a search result with its similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// CollectionInfo holds collection metadata.
type CollectionInfo struct {
	Name        string
	PointsCount uint64
	VectorSize  uint64
	Distance    Distance
}

// ClusterInfo describes the Qdrant deployment answering the connection.
type ClusterInfo struct {
	Title   string
	Version string
	Commit  string
}

// QueryOptions tunes a similarity query.
type QueryOptions struct {
	// Limit is the maximum number of results. Required.
	Limit uint64

	// Offset skips that many best-scoring results.
	Offset uint64

	// Threshold drops results scoring below it when non-nil.
	Threshold *float32

	// Filter restricts candidates by payload conditions.
	Filter *Filter
}

// ScrollOptions tunes a paginated point listing.
type ScrollOptions struct {
	// Limit is the page size. Required.
	Limit uint32

	// Offset is the pagination token returned by the previous page,
	// empty for the first page. Tokens are point ids and assume UUID
	// point ids; a collection holding numeric ids written by another
	// client cannot be paginated through this interface.
	Offset string

	// WithVectors includes vector data in the returned points.
	WithVectors bool

	// Filter restricts the listing by payload conditions.
	Filter *Filter
}

// Filter represents payload conditions for query, scroll and delete.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// Condition represents a single filter condition.
type Condition struct {
	Field string
	Match interface{}
	Range *RangeCondition
}

// RangeCondition represents a numeric range filter.
type RangeCondition struct {
	Gte *float64
	Lte *float64
	Gt  *float64
	Lt  *float64
}
