package kmeanstree

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ar90n/kmeanstree/cluster"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	type TestCase struct {
		Name          string
		Query         float64
		N             uint
		MaxCandidates uint
		Expected      []float64
	}

	tree := newLineTree(t, 3)
	for _, tc := range []TestCase{
		{Name: "all candidates", Query: 10.2, N: 2, MaxCandidates: 0, Expected: []float64{10, 11}},
		{Name: "closest leaf only", Query: 10.2, N: 2, MaxCandidates: 1, Expected: []float64{10}},
		{Name: "best-first order", Query: 100.4, N: 3, MaxCandidates: 3, Expected: []float64{100, 101, 110}},
		{Name: "n larger than dataset", Query: -5, N: 100, MaxCandidates: 0, Expected: lineDataset},
		{Name: "zero n", Query: 0, N: 0, MaxCandidates: 0, Expected: []float64{}},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			candidates, err := tree.Search(context.Background(), vector.New(tc.Query), tc.N, tc.MaxCandidates)
			require.NoError(t, err)

			actual := make([]float64, 0, len(candidates))
			for i, c := range candidates {
				actual = append(actual, c.Vector.Values()[0])
				if 0 < i {
					assert.LessOrEqual(t, candidates[i-1].Distance, c.Distance)
				}
			}
			assert.Equal(t, tc.Expected, actual)
		})
	}
}

func TestSearchAgreesWithNearestNeighbor(t *testing.T) {
	tree := newLineTree(t, 2)

	for _, q := range []float64{-3, 0.4, 5, 10.6, 55, 104, 112} {
		query := vector.New(q)
		nn, err := tree.NearestNeighbor(query, nil)
		require.NoError(t, err)

		candidates, err := tree.Search(context.Background(), query, 1, 2)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.True(t, nn.Equal(candidates[0].Vector), "query %v", q)
	}
}

func TestSearchChannelStreamsEveryMember(t *testing.T) {
	tree := newLineTree(t, 2)

	seen := map[uint64]int{}
	for c := range tree.SearchChannel(context.Background(), vector.New(50.0)) {
		seen[c.Vector.Hash()]++
	}
	assert.Len(t, seen, len(lineDataset))
	for _, v := range lineDataset {
		assert.Equal(t, 1, seen[vector.New(v).Hash()])
	}
}

func TestSearchErrors(t *testing.T) {
	tree := newLineTree(t, 1)

	_, err := tree.Search(context.Background(), vector.Vector[float64]{}, 1, 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tree.Search(ctx, vector.New(1.0), 1, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSearchChannelReachesEveryLeaf(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	tree, err := NewTree[float64](2, 3, 3)
	require.NoError(t, err)
	for i := 0; i < 300; i++ {
		require.NoError(t, tree.Add(vector.New(r.Float64(), r.Float64())))
	}
	require.NoError(t, tree.Calculate(context.Background()))

	tree.Walk(func(c *cluster.Cluster[float64]) bool {
		for _, sub := range c.SubClusters() {
			_, err := sub.Centroid()
			assert.NoError(t, err)
		}
		return true
	})

	streamed := 0
	for range tree.SearchChannel(context.Background(), vector.New(0.5, 0.5)) {
		streamed++
	}
	assert.Equal(t, tree.Len(), streamed)
}
