package metric

import (
	"math"

	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
)

// Metric computes a non-negative distance between two vectors. Vectors of
// different dimensionality are compared over their shared prefix.
type Metric[T linalg.Number] interface {
	CalcDistance(lhs, rhs vector.Vector[T]) float64
}

var (
	_ Metric[float64] = Euclidean[float64]{}
	_ Metric[float64] = SqL2Dist[float64]{}
	_ Metric[float64] = Manhattan[float64]{}
	_ Metric[float64] = Chebyshev[float64]{}
	_ Metric[float64] = Cosine[float64]{}
)

type Euclidean[T linalg.Number] struct {
}

func (Euclidean[T]) CalcDistance(lhs, rhs vector.Vector[T]) float64 {
	return math.Sqrt(vector.SqL2(lhs, rhs))
}

// SqL2Dist orders points exactly like Euclidean without the square root.
type SqL2Dist[T linalg.Number] struct {
}

func (SqL2Dist[T]) CalcDistance(lhs, rhs vector.Vector[T]) float64 {
	return vector.SqL2(lhs, rhs)
}

type Manhattan[T linalg.Number] struct {
}

func (Manhattan[T]) CalcDistance(lhs, rhs vector.Vector[T]) float64 {
	return vector.L1(lhs, rhs)
}

type Chebyshev[T linalg.Number] struct {
}

func (Chebyshev[T]) CalcDistance(lhs, rhs vector.Vector[T]) float64 {
	return vector.LInf(lhs, rhs)
}

// Cosine is 1 - cosine similarity. A zero vector is at distance 0 from
// everything.
type Cosine[T linalg.Number] struct {
}

func (Cosine[T]) CalcDistance(lhs, rhs vector.Vector[T]) float64 {
	ln := vector.Norm(lhs)
	rn := vector.Norm(rhs)
	if ln == 0 || rn == 0 {
		return 0
	}

	return math.Max(0, 1-vector.Dot(lhs, rhs)/(ln*rn))
}

func Default[T linalg.Number]() Metric[T] {
	return Euclidean[T]{}
}

func Names() []string {
	return []string{"euclidean", "sql2", "manhattan", "chebyshev", "cosine"}
}

func ByName[T linalg.Number](name string) (Metric[T], error) {
	switch name {
	case "", "euclidean":
		return Euclidean[T]{}, nil
	case "sql2":
		return SqL2Dist[T]{}, nil
	case "manhattan":
		return Manhattan[T]{}, nil
	case "chebyshev":
		return Chebyshev[T]{}, nil
	case "cosine":
		return Cosine[T]{}, nil
	default:
		return nil, errors.Newf("unknown metric name: %s", name)
	}
}
