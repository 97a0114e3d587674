package vectorstore

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

// HybridSearch blends vector similarity with a lexical signal. It fetches
// twice the requested limit as candidates, re-scores each one as
//
//	score = vectorWeight*vectorScore + textWeight*textScore
//
// where textScore is 1 when the candidate's content contains the query text
// (case-insensitive) and 0 otherwise, then returns the top results. The sort
// is stable, so equal scores keep their vector-similarity order.
func (s *TenantVectorStore) HybridSearch(ctx context.Context, tenantID, textQuery string, vector []float32, opts HybridOptions) ([]SearchResult, error) {
	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	if len(vector) == 0 {
		return nil, ErrMissingVector
	}

	ctx, span := tracer.Start(ctx, "TenantVectorStore.HybridSearch")
	defer span.End()
	span.SetAttributes(attribute.String("tenant_id", tenantID))

	limit := opts.Limit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	vectorWeight := opts.VectorWeight
	textWeight := opts.TextWeight
	if vectorWeight == 0 && textWeight == 0 {
		vectorWeight, textWeight = 0.7, 0.3
	}

	candidates, err := s.SearchVectors(ctx, SearchQuery{
		TenantID:      tenantID,
		Vector:        vector,
		Limit:         limit * 2,
		Threshold:     opts.Threshold,
		Unthresholded: opts.Unthresholded,
	})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(textQuery)
	for i := range candidates {
		score := vectorWeight * candidates[i].Score
		if needle != "" && strings.Contains(strings.ToLower(candidates[i].Content), needle) {
			score += textWeight
		}
		candidates[i].Score = score
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if uint64(len(candidates)) > limit {
		candidates = candidates[:limit]
	}

	span.SetAttributes(attribute.Int("results_count", len(candidates)))
	span.SetStatus(otelcodes.Ok, "success")
	return candidates, nil
}
