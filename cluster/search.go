package cluster

import (
	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/metric"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
)

// nearest returns the index of the candidate closest to v, or -1 when
// there are no candidates. Ties go to the lowest index.
func nearest[T linalg.Number](m metric.Metric[T], v vector.Vector[T], candidates []vector.Vector[T], comparisons *uint) int {
	best := -1
	minDistance := 0.0
	for i, candidate := range candidates {
		distance := m.CalcDistance(v, candidate)
		if comparisons != nil {
			*comparisons++
		}
		if best < 0 || distance < minDistance {
			best = i
			minDistance = distance
		}
	}
	return best
}

// NearestNeighbor descends toward the sub-cluster with the closest
// centroid at each level and scans the members of the leaf it reaches.
// The result is approximate: a closer member may live in a sibling branch.
//
// When comparisons is non-nil it is incremented once per distance
// evaluation.
func (c *Cluster[T]) NearestNeighbor(query vector.Vector[T], comparisons *uint) (vector.Vector[T], error) {
	if !query.IsValid() {
		return vector.Vector[T]{}, errors.Mark(ErrInvalidVector, ErrInvalidArgument)
	}

	node := c
	for {
		subs := node.SubClusters()
		if len(subs) == 0 {
			break
		}

		centroids := make([]vector.Vector[T], len(subs))
		for i, sub := range subs {
			centroid, err := sub.Centroid()
			if err != nil {
				return vector.Vector[T]{}, errors.Wrapf(err, "sub-cluster %d at depth %d", i, sub.Depth())
			}
			centroids[i] = centroid
		}
		node = subs[nearest(c.opts.metric, query, centroids, comparisons)]
	}

	members := node.Members()
	best := nearest(c.opts.metric, query, members, comparisons)
	if best < 0 {
		return vector.Vector[T]{}, ErrEmptyCluster
	}
	return members[best], nil
}
