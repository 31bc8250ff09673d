// Package kmeanstree builds a hierarchical k-means partition over a set of
// fixed-dimension vectors and answers approximate nearest-neighbor queries
// by descending toward the closest centroid at each level.
//
// A tree is populated with Add, partitioned once with Calculate and then
// queried:
//
//	tree, err := kmeanstree.NewTree[float64](2, 4, 3)
//	...
//	tree.Add(vector.New(0.3, 0.7))
//	...
//	if err := tree.Calculate(ctx); err != nil {
//		...
//	}
//	nn, err := tree.NearestNeighbor(vector.New(0.25, 0.5), nil)
package kmeanstree

import (
	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/vector"
)

type Candidate[T linalg.Number] struct {
	Vector   vector.Vector[T]
	Distance float64
}
