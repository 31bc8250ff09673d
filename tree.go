package kmeanstree

import (
	"context"

	"github.com/ar90n/kmeanstree/cluster"
	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
)

const DefaultMaxDepth = 1

type Tree[T linalg.Number] struct {
	root     *cluster.Cluster[T]
	maxDepth uint
}

// New wraps an existing root cluster. Partitioning is applied at depths
// 1 through maxDepth.
func New[T linalg.Number](root *cluster.Cluster[T], maxDepth uint) (*Tree[T], error) {
	if root == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "root cluster is nil")
	}
	if maxDepth == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "max depth must be positive")
	}

	return &Tree[T]{
		root:     root,
		maxDepth: maxDepth,
	}, nil
}

// NewTree creates a tree with an empty root cluster of the given
// dimensionality and branching factor.
func NewTree[T linalg.Number](dim, k, maxDepth uint, opts ...cluster.Option[T]) (*Tree[T], error) {
	root, err := cluster.New(dim, k, opts...)
	if err != nil {
		return nil, err
	}

	return New(root, maxDepth)
}

func (t *Tree[T]) Root() *cluster.Cluster[T] {
	return t.root
}

func (t *Tree[T]) K() uint {
	return t.root.K()
}

func (t *Tree[T]) Dim() uint {
	return t.root.Dim()
}

func (t *Tree[T]) MaxDepth() uint {
	return t.maxDepth
}

func (t *Tree[T]) Len() int {
	return t.root.Len()
}

// Add must be called before Calculate.
func (t *Tree[T]) Add(v vector.Vector[T]) error {
	return t.root.Add(v)
}

func (t *Tree[T]) Calculate(ctx context.Context) error {
	return t.calculate(ctx, t.root, 1)
}

func (t *Tree[T]) calculate(ctx context.Context, c *cluster.Cluster[T], depth uint) error {
	subs, err := c.Calculate(ctx)
	if err != nil {
		return errors.Wrapf(err, "calculating cluster at depth %d", depth)
	}
	if t.maxDepth <= depth {
		return nil
	}

	for _, sub := range subs {
		if err := t.calculate(ctx, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every cluster in pre-order. Returning false from fn skips
// the children of that cluster.
func (t *Tree[T]) Walk(fn func(c *cluster.Cluster[T]) bool) {
	var walk func(c *cluster.Cluster[T])
	walk = func(c *cluster.Cluster[T]) {
		if !fn(c) {
			return
		}
		for _, sub := range c.SubClusters() {
			walk(sub)
		}
	}
	walk(t.root)
}

// Leaves returns the clusters without sub-clusters in pre-order.
func (t *Tree[T]) Leaves() []*cluster.Cluster[T] {
	leaves := []*cluster.Cluster[T]{}
	t.Walk(func(c *cluster.Cluster[T]) bool {
		if c.IsLeaf() {
			leaves = append(leaves, c)
		}
		return true
	})
	return leaves
}

// Levels is the number of partition levels actually built, at most
// MaxDepth. It is zero before Calculate.
func (t *Tree[T]) Levels() uint {
	levels := uint(0)
	for _, leaf := range t.Leaves() {
		levels = linalg.Max(levels, leaf.Depth()-1)
	}
	return levels
}

// Width is the number of leaf clusters.
func (t *Tree[T]) Width() int {
	return len(t.Leaves())
}

func (t *Tree[T]) NearestNeighbor(query vector.Vector[T], comparisons *uint) (vector.Vector[T], error) {
	return t.root.NearestNeighbor(query, comparisons)
}
