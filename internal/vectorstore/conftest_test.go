package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/helixdesk/tenantstore/internal/logging"
	"github.com/helixdesk/tenantstore/internal/qdrant"
)

var errBackendDown = errors.New("connection refused")

// fakeCollection holds points in insertion order so scroll pagination is
// deterministic.
type fakeCollection struct {
	vectorSize uint64
	distance   qdrant.Distance
	indexes    []string
	order      []string
	points     map[string]*qdrant.Point
}

// fakeClient is an in-memory qdrant.Client. Scoring uses the dot product, so
// tests steer scores by choosing vectors. Error fields inject failures per
// operation; lastQuery records the most recent Query call for filter
// assertions.
type fakeClient struct {
	collections map[string]*fakeCollection

	createErr error
	deleteErr error
	existsErr error
	listErr   error
	infoErr   error
	indexErr  error
	upsertErr  error
	queryErr   error
	removeErr  error
	scrollErr  error
	healthErr  error
	clusterErr error

	lastQuery struct {
		collection string
		opts       qdrant.QueryOptions
	}
}

func newFakeClient() *fakeClient {
	return &fakeClient{collections: make(map[string]*fakeCollection)}
}

func (f *fakeClient) CreateCollection(_ context.Context, name string, vectorSize uint64, distance qdrant.Distance) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.collections[name]; ok {
		return nil
	}
	f.collections[name] = &fakeCollection{
		vectorSize: vectorSize,
		distance:   distance,
		points:     make(map[string]*qdrant.Point),
	}
	return nil
}

func (f *fakeClient) DeleteCollection(_ context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.collections, name)
	return nil
}

func (f *fakeClient) CollectionExists(_ context.Context, name string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeClient) ListCollections(_ context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.collections))
	for name := range f.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeClient) CollectionInfo(_ context.Context, name string) (*qdrant.CollectionInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	coll, ok := f.collections[name]
	if !ok {
		return nil, qdrant.ErrCollectionNotFound
	}
	return &qdrant.CollectionInfo{
		Name:        name,
		PointsCount: uint64(len(coll.order)),
		VectorSize:  coll.vectorSize,
		Distance:    coll.distance,
	}, nil
}

func (f *fakeClient) CreateFieldIndex(_ context.Context, collection, field string) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	coll, ok := f.collections[collection]
	if !ok {
		return qdrant.ErrCollectionNotFound
	}
	coll.indexes = append(coll.indexes, field)
	return nil
}

func (f *fakeClient) Upsert(_ context.Context, collection string, points []*qdrant.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	coll, ok := f.collections[collection]
	if !ok {
		return qdrant.ErrCollectionNotFound
	}
	for _, p := range points {
		clone := &qdrant.Point{
			ID:      p.ID,
			Vector:  append([]float32(nil), p.Vector...),
			Payload: make(map[string]interface{}, len(p.Payload)),
		}
		for k, v := range p.Payload {
			clone.Payload[k] = v
		}
		if _, exists := coll.points[p.ID]; !exists {
			coll.order = append(coll.order, p.ID)
		}
		coll.points[p.ID] = clone
	}
	return nil
}

func (f *fakeClient) Query(_ context.Context, collection string, vector []float32, opts qdrant.QueryOptions) ([]*qdrant.ScoredPoint, error) {
	f.lastQuery.collection = collection
	f.lastQuery.opts = opts
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	coll, ok := f.collections[collection]
	if !ok {
		return nil, qdrant.ErrCollectionNotFound
	}

	var scored []*qdrant.ScoredPoint
	for _, id := range coll.order {
		p := coll.points[id]
		if !matchesFilter(p, opts.Filter) {
			continue
		}
		score := dot(vector, p.Vector)
		if opts.Threshold != nil && score < *opts.Threshold {
			continue
		}
		scored = append(scored, &qdrant.ScoredPoint{Point: *p, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if opts.Offset > 0 {
		if opts.Offset >= uint64(len(scored)) {
			return nil, nil
		}
		scored = scored[opts.Offset:]
	}
	if uint64(len(scored)) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored, nil
}

func (f *fakeClient) DeleteByFilter(_ context.Context, collection string, filter *qdrant.Filter) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	coll, ok := f.collections[collection]
	if !ok {
		return qdrant.ErrCollectionNotFound
	}
	var kept []string
	for _, id := range coll.order {
		if matchesFilter(coll.points[id], filter) {
			delete(coll.points, id)
			continue
		}
		kept = append(kept, id)
	}
	coll.order = kept
	return nil
}

func (f *fakeClient) Scroll(_ context.Context, collection string, opts qdrant.ScrollOptions) ([]*qdrant.Point, string, error) {
	if f.scrollErr != nil {
		return nil, "", f.scrollErr
	}
	coll, ok := f.collections[collection]
	if !ok {
		return nil, "", qdrant.ErrCollectionNotFound
	}

	start := 0
	if opts.Offset != "" {
		for i, id := range coll.order {
			if id == opts.Offset {
				start = i
				break
			}
		}
	}

	var page []*qdrant.Point
	next := ""
	for i := start; i < len(coll.order); i++ {
		if uint32(len(page)) == opts.Limit {
			next = coll.order[i]
			break
		}
		p := coll.points[coll.order[i]]
		if !matchesFilter(p, opts.Filter) {
			continue
		}
		clone := &qdrant.Point{ID: p.ID, Payload: make(map[string]interface{}, len(p.Payload))}
		if opts.WithVectors {
			clone.Vector = append([]float32(nil), p.Vector...)
		}
		for k, v := range p.Payload {
			clone.Payload[k] = v
		}
		page = append(page, clone)
	}
	return page, next, nil
}

func (f *fakeClient) Health(_ context.Context) error { return f.healthErr }

func (f *fakeClient) ClusterInfo(_ context.Context) (*qdrant.ClusterInfo, error) {
	if f.clusterErr != nil {
		return nil, f.clusterErr
	}
	return &qdrant.ClusterInfo{Title: "qdrant", Version: "1.16.2", Commit: "abc123"}, nil
}

func (f *fakeClient) Close() error { return nil }

// pointCount returns how many points a collection holds, 0 when absent.
func (f *fakeClient) pointCount(collection string) int {
	coll, ok := f.collections[collection]
	if !ok {
		return 0
	}
	return len(coll.order)
}

func matchesFilter(p *qdrant.Point, filter *qdrant.Filter) bool {
	if filter == nil {
		return true
	}
	for _, cond := range filter.Must {
		if fmt.Sprint(p.Payload[cond.Field]) != fmt.Sprint(cond.Match) {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := 0; i < len(a) && i < len(b); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

var _ qdrant.Client = (*fakeClient)(nil)

func newTestStore(t *testing.T) (*TenantVectorStore, *fakeClient) {
	t.Helper()
	fc := newFakeClient()
	s := New(fc, logging.NewNop(), Options{})
	return s, fc
}
