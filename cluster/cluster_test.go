package cluster

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ar90n/kmeanstree/metric"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCluster(t *testing.T, dim, k uint, points [][]float64, opts ...Option[float64]) *Cluster[float64] {
	t.Helper()

	c, err := New[float64](dim, k, opts...)
	require.NoError(t, err)
	for _, p := range points {
		require.NoError(t, c.Add(vector.New(p...)))
	}
	return c
}

func randomPoints(r *rand.Rand, n, dim int) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, dim)
		for j := range points[i] {
			points[i][j] = r.Float64()
		}
	}
	return points
}

func centroidOf(t *testing.T, c *Cluster[float64]) []float64 {
	t.Helper()

	centroid, err := c.Centroid()
	require.NoError(t, err)
	return centroid.Values()
}

type panicMetric struct {
	metric.Euclidean[float64]
	armed *atomic.Bool
}

func (m panicMetric) CalcDistance(lhs, rhs vector.Vector[float64]) float64 {
	if m.armed.Load() {
		panic("distance unavailable")
	}
	return m.Euclidean.CalcDistance(lhs, rhs)
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	_, err := New[float64](0, 2)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = New[float64](2, 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestAddRejectsInvalidVectors(t *testing.T) {
	c := newCluster(t, 2, 2, [][]float64{{0, 0}})

	err := c.Add(vector.New(1.0, 2.0, 3.0))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Equal(t, 1, c.Len())

	err = c.Add(vector.Vector[float64]{})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.True(t, errors.Is(err, ErrInvalidVector))
	assert.Equal(t, 1, c.Len())
}

func TestCentroid(t *testing.T) {
	c := newCluster(t, 3, 1, [][]float64{{1, 2, 3}, {3, 4, 5}, {5, 0, 1}})
	assert.InDeltaSlice(t, []float64{3, 2, 3}, centroidOf(t, c), 1e-12)

	require.NoError(t, c.Add(vector.New(7.0, 2.0, 3.0)))
	assert.InDeltaSlice(t, []float64{4, 2, 3}, centroidOf(t, c), 1e-12)

	empty, err := New[float64](3, 1)
	require.NoError(t, err)
	_, err = empty.Centroid()
	assert.True(t, errors.Is(err, ErrEmptyCluster))
}

func TestCalculateTwoGroups(t *testing.T) {
	c := newCluster(t, 2, 2, [][]float64{{0, 0}, {10, 0}, {0, 1}, {10, 1}})

	subs, err := c.Calculate(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.True(t, c.Calculated())
	assert.Equal(t, uint64(2), c.Iterations())

	assert.InDeltaSlice(t, []float64{0, 0.5}, centroidOf(t, subs[0]), 1e-12)
	assert.InDeltaSlice(t, []float64{10, 0.5}, centroidOf(t, subs[1]), 1e-12)
	for _, sub := range subs {
		assert.Same(t, c, sub.Parent())
		assert.Equal(t, uint(2), sub.Depth())
		assert.Equal(t, 2, sub.Len())
	}
}

func TestCalculateFollowsFirstKSeeding(t *testing.T) {
	// the first two members seed the means, which settles on the
	// horizontal split rather than the vertical one
	c := newCluster(t, 2, 2, [][]float64{{0, 0}, {0, 1}, {10, 0}, {10, 1}})

	subs, err := c.Calculate(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.InDeltaSlice(t, []float64{5, 0}, centroidOf(t, subs[0]), 1e-12)
	assert.InDeltaSlice(t, []float64{5, 1}, centroidOf(t, subs[1]), 1e-12)
}

func TestCalculateWithTooFewMembers(t *testing.T) {
	c := newCluster(t, 2, 5, [][]float64{{0, 0}, {1, 1}, {2, 2}})

	subs, err := c.Calculate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.True(t, c.IsLeaf())
	assert.Equal(t, uint64(0), c.Iterations())
}

func TestCalculateIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	c := newCluster(t, 2, 3, randomPoints(r, 60, 2))

	first, err := c.Calculate(context.Background())
	require.NoError(t, err)
	iterations := c.Iterations()

	second, err := c.Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, iterations, c.Iterations())
	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
}

func TestCalculatePartitionsMembers(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, k := range []uint{1, 2, 3, 5, 8} {
		c := newCluster(t, 3, k, randomPoints(r, 200, 3), WithMaxGoroutines[float64](4))

		subs, err := c.Calculate(context.Background())
		require.NoError(t, err)
		assert.LessOrEqual(t, len(subs), int(k))

		union := []vector.Vector[float64]{}
		for _, sub := range subs {
			assert.NotZero(t, sub.Len())
			union = append(union, sub.Members()...)
		}
		assert.ElementsMatch(t, c.Members(), union, "k=%d", k)
	}
}

func TestCalculateConvergedMeansAreCentroids(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	c := newCluster(t, 2, 4, randomPoints(r, 300, 2))

	subs, err := c.Calculate(context.Background())
	require.NoError(t, err)

	// every member is closest to the centroid of its own sub-cluster
	centroids := make([]vector.Vector[float64], len(subs))
	for i, sub := range subs {
		centroids[i], err = sub.Centroid()
		require.NoError(t, err)
	}
	for i, sub := range subs {
		for m := range sub.All() {
			assert.Equal(t, i, nearest(c.Metric(), m, centroids, nil))
		}
	}
}

func TestCalculateAfterAdd(t *testing.T) {
	c := newCluster(t, 2, 2, [][]float64{{0, 0}, {10, 0}, {0, 1}, {10, 1}})
	_, err := c.Calculate(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Add(vector.New(0.0, 2.0)))
	assert.False(t, c.Calculated())

	subs, err := c.Calculate(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, 3, subs[0].Len())
	assert.Equal(t, 2, subs[1].Len())
	assert.InDeltaSlice(t, []float64{0, 1}, centroidOf(t, subs[0]), 1e-12)
}

func TestCalculateHonorsIterationCap(t *testing.T) {
	c := newCluster(t, 2, 2, [][]float64{{0, 0}, {10, 0}, {0, 1}, {10, 1}}, WithMaxIterations[float64](1))

	subs, err := c.Calculate(context.Background())
	assert.True(t, errors.Is(err, ErrNotConverged))
	assert.Nil(t, subs)
	assert.False(t, c.Calculated())
	assert.Equal(t, uint64(1), c.Iterations())
}

func TestCalculateWorkerFailureKeepsPriorState(t *testing.T) {
	armed := &atomic.Bool{}
	c := newCluster(t, 2, 2, [][]float64{{0, 0}, {10, 0}, {0, 1}, {10, 1}},
		WithMetric[float64](panicMetric{armed: armed}))

	before, err := c.Calculate(context.Background())
	require.NoError(t, err)
	iterations := c.Iterations()

	require.NoError(t, c.Add(vector.New(5.0, 5.0)))
	armed.Store(true)

	_, err = c.Calculate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrComputationFailed))
	assert.False(t, c.Calculated())
	assert.Equal(t, iterations, c.Iterations())

	after := c.SubClusters()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Same(t, before[i], after[i])
	}

	armed.Store(false)
	_, err = c.Calculate(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Calculated())
}

func TestCalculateIntegerElements(t *testing.T) {
	c, err := New[int](2, 2)
	require.NoError(t, err)
	for _, p := range [][]int{{0, 0}, {100, 0}, {0, 2}, {100, 2}} {
		require.NoError(t, c.Add(vector.New(p...)))
	}

	subs, err := c.Calculate(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)

	centroid, err := subs[1].Centroid()
	require.NoError(t, err)
	assert.True(t, centroid.Equal(vector.New(100, 1)))
}

func TestNearestNeighbor(t *testing.T) {
	c := newCluster(t, 2, 2, [][]float64{{0, 0}, {10, 0}, {0, 1}, {10, 1}})

	// unpartitioned clusters are scanned linearly
	comparisons := uint(0)
	got, err := c.NearestNeighbor(vector.New(9.0, 0.2), &comparisons)
	require.NoError(t, err)
	assert.True(t, got.Equal(vector.New(10.0, 0.0)))
	assert.Equal(t, uint(4), comparisons)

	_, err = c.Calculate(context.Background())
	require.NoError(t, err)

	comparisons = 0
	got, err = c.NearestNeighbor(vector.New(0.0, 0.9), &comparisons)
	require.NoError(t, err)
	assert.True(t, got.Equal(vector.New(0.0, 1.0)))
	assert.Equal(t, uint(4), comparisons)

	for m := range c.All() {
		got, err := c.NearestNeighbor(m, nil)
		require.NoError(t, err)
		assert.True(t, got.Equal(m))
	}
}

func TestNearestNeighborErrors(t *testing.T) {
	c := newCluster(t, 2, 2, nil)

	_, err := c.NearestNeighbor(vector.New(0.0, 0.0), nil)
	assert.True(t, errors.Is(err, ErrEmptyCluster))

	_, err = c.NearestNeighbor(vector.Vector[float64]{}, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestAccessors(t *testing.T) {
	c := newCluster(t, 2, 3, [][]float64{{1, 2}, {3, 4}})

	assert.Nil(t, c.Parent())
	assert.Equal(t, uint(1), c.Depth())
	assert.Equal(t, uint(2), c.Dim())
	assert.Equal(t, uint(3), c.K())
	assert.IsType(t, metric.Euclidean[float64]{}, c.Metric())

	v, err := c.At(1)
	require.NoError(t, err)
	assert.True(t, v.Equal(vector.New(3.0, 4.0)))

	_, err = c.At(2)
	assert.True(t, errors.Is(err, vector.ErrIndexOutOfRange))

	n := 0
	for range c.All() {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestConcurrentAddAndRead(t *testing.T) {
	c := newCluster(t, 2, 2, [][]float64{{0, 0}})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, c.Add(vector.New(float64(w), float64(i))))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				n := c.Len()
				assert.LessOrEqual(t, n, len(c.Members()))
				_, err := c.At(0)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 401, c.Len())
}
