// Package flat provides an exact brute-force index. It is the reference
// used to measure the recall of the k-means tree.
package flat

import (
	"context"
	"sort"
	"sync"

	"github.com/ar90n/kmeanstree"
	"github.com/ar90n/kmeanstree/collection"
	"github.com/ar90n/kmeanstree/common"
	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/metric"
	"github.com/ar90n/kmeanstree/pipeline"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

type Index[T linalg.Number] struct {
	metric        metric.Metric[T]
	maxGoroutines uint

	mu       sync.RWMutex
	features []vector.Vector[T]
}

type indexed[T linalg.Number] struct {
	index     int
	candidate kmeanstree.Candidate[T]
}

func NewIndex[T linalg.Number](m metric.Metric[T]) *Index[T] {
	if m == nil {
		m = metric.Default[T]()
	}
	return &Index[T]{
		metric: m,
	}
}

func (fi *Index[T]) SetMaxGoroutines(maxGoroutines uint) {
	fi.maxGoroutines = maxGoroutines
}

func (fi *Index[T]) Add(feature vector.Vector[T]) error {
	if !feature.IsValid() {
		return errors.Mark(kmeanstree.ErrInvalidVector, kmeanstree.ErrInvalidArgument)
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()

	if 0 < len(fi.features) && fi.features[0].Dim() != feature.Dim() {
		err := errors.Wrapf(kmeanstree.ErrDimensionMismatch, "want %d dimensions, got %d", fi.features[0].Dim(), feature.Dim())
		return errors.Mark(err, kmeanstree.ErrInvalidArgument)
	}
	fi.features = append(fi.features, feature)
	return nil
}

func (fi *Index[T]) Len() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	return len(fi.features)
}

func (fi *Index[T]) snapshot() []vector.Vector[T] {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	return fi.features[:len(fi.features):len(fi.features)]
}

// Nearest scans every feature and returns the closest one. Ties go to the
// feature added first.
func (fi *Index[T]) Nearest(ctx context.Context, query vector.Vector[T]) (kmeanstree.Candidate[T], error) {
	if !query.IsValid() {
		return kmeanstree.Candidate[T]{}, errors.Mark(kmeanstree.ErrInvalidVector, kmeanstree.ErrInvalidArgument)
	}

	features := fi.snapshot()
	if len(features) == 0 {
		return kmeanstree.Candidate[T]{}, errors.Wrap(kmeanstree.ErrEmptyCluster, "flat index has no features")
	}

	procs := common.GetProcNum(fi.maxGoroutines)
	p := pool.NewWithResults[indexed[T]]().
		WithContext(ctx).
		WithMaxGoroutines(int(procs)).
		WithCancelOnError()
	for _, c := range common.GetChunks(uint(len(features)), procs) {
		c := c
		p.Go(func(ctx context.Context) (indexed[T], error) {
			best := indexed[T]{index: -1}
			for i := c.Begin; i < c.End; i++ {
				distance := fi.metric.CalcDistance(query, features[i])
				if best.index < 0 || distance < best.candidate.Distance {
					best.index = int(i)
					best.candidate = kmeanstree.Candidate[T]{
						Vector:   features[i],
						Distance: distance,
					}
				}
			}
			return best, ctx.Err()
		})
	}

	results, err := p.Wait()
	if err != nil {
		return kmeanstree.Candidate[T]{}, errors.Wrap(err, "scanning flat index")
	}

	best := indexed[T]{index: -1}
	for _, r := range results {
		if best.index < 0 ||
			r.candidate.Distance < best.candidate.Distance ||
			(r.candidate.Distance == best.candidate.Distance && r.index < best.index) {
			best = r
		}
	}
	return best.candidate, nil
}

// SearchChannel streams every feature in ascending order of distance.
func (fi *Index[T]) SearchChannel(ctx context.Context, query vector.Vector[T]) <-chan kmeanstree.Candidate[T] {
	features := fi.snapshot()

	featStream := make(chan collection.WithPriority[vector.Vector[T]])
	go func() {
		defer close(featStream)

		wg := conc.NewWaitGroup()
		for _, c := range common.GetChunks(uint(len(features)), common.GetProcNum(fi.maxGoroutines)) {
			c := c
			wg.Go(func() {
				for i := c.Begin; i < c.End; i++ {
					distance := fi.metric.CalcDistance(query, features[i])
					select {
					case <-ctx.Done():
						return
					case featStream <- collection.WithPriority[vector.Vector[T]]{
						Item:     features[i],
						Priority: distance,
					}:
					}
				}
			})
		}

		wg.Wait()
	}()

	outputStream := make(chan kmeanstree.Candidate[T])
	go func() {
		defer close(outputStream)

		candidates := collection.NewPriorityQueue[vector.Vector[T]](32)
		for item := range featStream {
			candidates.Push(item.Item, item.Priority)
		}

		for 0 < candidates.Len() {
			item, err := candidates.PopWithPriority()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case outputStream <- kmeanstree.Candidate[T]{
				Vector:   item.Item,
				Distance: item.Priority,
			}:
			}
		}
	}()

	return outputStream
}

func (fi *Index[T]) Search(ctx context.Context, query vector.Vector[T], n uint, maxCandidates uint) ([]kmeanstree.Candidate[T], error) {
	if !query.IsValid() {
		return nil, errors.Mark(kmeanstree.ErrInvalidVector, kmeanstree.ErrInvalidArgument)
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := fi.SearchChannel(searchCtx, query)
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
