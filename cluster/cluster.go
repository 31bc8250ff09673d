// Package cluster implements a node of the k-means tree: a mutable set of
// member vectors that can partition itself into up to k sub-clusters with
// Lloyd's algorithm and answer nearest-neighbor queries by descending
// through those sub-clusters.
package cluster

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/metric"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
)

type Cluster[T linalg.Number] struct {
	// parent is a back-pointer only; ownership flows from parent to
	// subClusters.
	parent *Cluster[T]
	dim    uint
	k      uint
	opts   options[T]

	mu         sync.RWMutex
	members    []vector.Vector[T]
	version    uint64
	centroid   *vector.Vector[T]
	calculated bool

	// calcMu serializes Calculate on this cluster.
	calcMu      sync.Mutex
	subClusters atomic.Pointer[[]*Cluster[T]]
	iterations  atomic.Uint64
}

func New[T linalg.Number](dim, k uint, opts ...Option[T]) (*Cluster[T], error) {
	if dim == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "dimension must be positive")
	}
	if k == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "k must be positive")
	}

	o := defaultOptions[T]()
	for _, opt := range opts {
		opt(&o)
	}

	return &Cluster[T]{
		dim:  dim,
		k:    k,
		opts: o,
	}, nil
}

// newSubCluster takes ownership of members.
func (c *Cluster[T]) newSubCluster(members []vector.Vector[T]) *Cluster[T] {
	return &Cluster[T]{
		parent:  c,
		dim:     c.dim,
		k:       c.k,
		opts:    c.opts,
		members: members,
	}
}

// Add appends v to the membership. Absent vectors and vectors of the wrong
// dimensionality are rejected with an error matching ErrInvalidArgument
// and leave the cluster unchanged.
func (c *Cluster[T]) Add(v vector.Vector[T]) error {
	if !v.IsValid() {
		return errors.Mark(ErrInvalidVector, ErrInvalidArgument)
	}
	if v.Dim() != c.dim {
		err := errors.Wrapf(ErrDimensionMismatch, "want %d dimensions, got %d", c.dim, v.Dim())
		return errors.Mark(err, ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.members = append(c.members, v)
	c.version++
	c.centroid = nil
	c.calculated = false
	return nil
}

func (c *Cluster[T]) Parent() *Cluster[T] {
	return c.parent
}

func (c *Cluster[T]) Dim() uint {
	return c.dim
}

func (c *Cluster[T]) K() uint {
	return c.k
}

func (c *Cluster[T]) Metric() metric.Metric[T] {
	return c.opts.metric
}

// Depth is the number of levels from the root, which has depth 1.
func (c *Cluster[T]) Depth() uint {
	depth := uint(1)
	for p := c.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

func (c *Cluster[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.members)
}

func (c *Cluster[T]) At(i int) (vector.Vector[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i < 0 || len(c.members) <= i {
		return vector.Vector[T]{}, errors.Wrapf(vector.ErrIndexOutOfRange, "member %d of %d", i, len(c.members))
	}
	return c.members[i], nil
}

// Members returns a snapshot of the current membership.
func (c *Cluster[T]) Members() []vector.Vector[T] {
	members, _ := c.snapshot()
	return members
}

// All iterates over a snapshot taken when iteration starts.
func (c *Cluster[T]) All() iter.Seq[vector.Vector[T]] {
	return func(yield func(vector.Vector[T]) bool) {
		members, _ := c.snapshot()
		for _, m := range members {
			if !yield(m) {
				return
			}
		}
	}
}

func (c *Cluster[T]) snapshot() ([]vector.Vector[T], uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	members := make([]vector.Vector[T], len(c.members))
	copy(members, c.members)
	return members, c.version
}

func (c *Cluster[T]) Iterations() uint64 {
	return c.iterations.Load()
}

func (c *Cluster[T]) Calculated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.calculated
}

// SubClusters returns the sub-clusters of the most recent partition pass.
func (c *Cluster[T]) SubClusters() []*Cluster[T] {
	subs := c.subClusters.Load()
	if subs == nil {
		return nil
	}

	ret := make([]*Cluster[T], len(*subs))
	copy(ret, *subs)
	return ret
}

func (c *Cluster[T]) IsLeaf() bool {
	subs := c.subClusters.Load()
	return subs == nil || len(*subs) == 0
}

// Centroid is the component-wise mean of the members, cached until the
// membership changes.
func (c *Cluster[T]) Centroid() (vector.Vector[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.centroid != nil {
		return *c.centroid, nil
	}

	centroid, ok := vector.Mean(c.members, c.dim)
	if !ok {
		return vector.Vector[T]{}, ErrEmptyCluster
	}
	c.centroid = &centroid
	return centroid, nil
}
