package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridSearch_TextMatchBoostsRank(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// "billing" content scores lower on the vector but matches the text.
	seedDocument(t, s, "acme", "doc-1",
		[]string{"database connection pooling", "billing invoice export"},
		[][]float32{{0.95, 0}, {0.80, 0}})

	results, err := s.HybridSearch(ctx, "acme", "billing", []float32{1, 0}, HybridOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 0.7*0.80 + 0.3 = 0.86 beats 0.7*0.95 = 0.665.
	assert.Equal(t, "billing invoice export", results[0].Content)
	assert.InDelta(t, 0.86, results[0].Score, 0.001)
	assert.InDelta(t, 0.665, results[1].Score, 0.001)
}

func TestHybridSearch_CaseInsensitiveMatch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, s, "acme", "doc-1",
		[]string{"Billing Invoice Export"},
		[][]float32{{0.9, 0}})

	results, err := s.HybridSearch(ctx, "acme", "BILLING", []float32{1, 0}, HybridOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.7*0.9+0.3, results[0].Score, 0.001)
}

func TestHybridSearch_TruncatesToLimit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, s, "acme", "doc-1",
		[]string{"a", "b", "c", "d"},
		[][]float32{{0.99, 0}, {0.95, 0}, {0.9, 0}, {0.85, 0}})

	results, err := s.HybridSearch(ctx, "acme", "", []float32{1, 0}, HybridOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHybridSearch_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.HybridSearch(ctx, "", "q", []float32{1}, HybridOptions{})
	assert.ErrorIs(t, err, ErrMissingTenant)

	_, err = s.HybridSearch(ctx, "acme", "q", nil, HybridOptions{})
	assert.ErrorIs(t, err, ErrMissingVector)
}

func TestHybridSearch_AbsentCollectionIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	results, err := s.HybridSearch(context.Background(), "ghost", "q", []float32{1, 0}, HybridOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridSearch_CustomWeights(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, s, "acme", "doc-1",
		[]string{"billing"},
		[][]float32{{0.8, 0}})

	results, err := s.HybridSearch(ctx, "acme", "billing", []float32{1, 0}, HybridOptions{
		VectorWeight: 0.5,
		TextWeight:   0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.5*0.8+0.5, results[0].Score, 0.001)
}
