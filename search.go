package kmeanstree

import (
	"context"
	"math"
	"sort"

	"github.com/ar90n/kmeanstree/cluster"
	"github.com/ar90n/kmeanstree/collection"
	"github.com/ar90n/kmeanstree/pipeline"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
)

const (
	streamBufferSize = 64
	queueCapacity    = 64
)

// SearchChannel streams leaf members, visiting clusters best-first by the
// distance from query to their centroids. The channel is closed once every
// leaf has been visited or ctx is done.
func (t *Tree[T]) SearchChannel(ctx context.Context, query vector.Vector[T]) <-chan Candidate[T] {
	outputStream := make(chan Candidate[T], streamBufferSize)
	m := t.root.Metric()

	go func() {
		defer close(outputStream)

		queue := collection.NewPriorityQueue[*cluster.Cluster[T]](queueCapacity)
		queue.Push(t.root, -math.MaxFloat64)
		for 0 < queue.Len() {
			node, err := queue.Pop()
			if err != nil {
				return
			}

			subs := node.SubClusters()
			if len(subs) == 0 {
				for member := range node.All() {
					select {
					case <-ctx.Done():
						return
					case outputStream <- Candidate[T]{
						Vector:   member,
						Distance: m.CalcDistance(query, member),
					}:
					}
				}
				continue
			}

			for _, sub := range subs {
				// Published sub-clusters are never empty, so Centroid cannot
				// fail here. A failure would only drop an unreachable branch.
				centroid, err := sub.Centroid()
				if err != nil {
					continue
				}
				queue.Push(sub, m.CalcDistance(query, centroid))
			}
		}
	}()

	return outputStream
}

// Search returns up to n candidates nearest to query among the first
// maxCandidates members reached by SearchChannel. A zero maxCandidates
// examines every member.
func (t *Tree[T]) Search(ctx context.Context, query vector.Vector[T], n uint, maxCandidates uint) ([]Candidate[T], error) {
	if !query.IsValid() {
		return nil, errors.Mark(ErrInvalidVector, ErrInvalidArgument)
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := t.SearchChannel(searchCtx, query)
	ch = pipeline.Take(searchCtx, maxCandidates, ch)
	items := pipeline.ToSlice(searchCtx, ch)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Distance < items[j].Distance
	})

	if uint(len(items)) < n {
		n = uint(len(items))
	}
	return items[:n], nil
}
