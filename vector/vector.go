// Package vector provides the immutable fixed-dimension value type the
// tree is built over.
package vector

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/ar90n/kmeanstree/linalg"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Vector is an immutable sequence of components. The zero value is an
// absent vector and reports IsValid() == false.
type Vector[T linalg.Number] struct {
	values []T
}

func New[T linalg.Number](values ...T) Vector[T] {
	copied := make([]T, len(values))
	copy(copied, values)
	return Vector[T]{values: copied}
}

func (v Vector[T]) IsValid() bool {
	return v.values != nil
}

func (v Vector[T]) Dim() uint {
	return uint(len(v.values))
}

func (v Vector[T]) At(i int) (ret T, _ error) {
	if i < 0 || len(v.values) <= i {
		return ret, errors.Wrapf(ErrIndexOutOfRange, "index %d, dim %d", i, len(v.values))
	}
	return v.values[i], nil
}

// Values returns a copy of the components.
func (v Vector[T]) Values() []T {
	ret := make([]T, len(v.values))
	copy(ret, v.values)
	return ret
}

func (v Vector[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, x := range v.values {
			if !yield(x) {
				return
			}
		}
	}
}

func (v Vector[T]) Enumerate() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, x := range v.values {
			if !yield(i, x) {
				return
			}
		}
	}
}

func (v Vector[T]) Equal(other Vector[T]) bool {
	if len(v.values) != len(other.values) {
		return false
	}
	for i := range v.values {
		if v.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// Hash is consistent with Equal: equal vectors hash equally.
func (v Vector[T]) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, x := range v.values {
		f := float64(x)
		if f == 0 {
			f = 0 // -0 == +0
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		d.Write(buf[:])
	}
	return d.Sum64()
}

func (v Vector[T]) String() string {
	var sb strings.Builder
	sb.WriteString("Vector{")
	for i, x := range v.values {
		if 0 < i {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, x)
	}
	sb.WriteString("}")
	return sb.String()
}

func SqL2[T linalg.Number](lhs, rhs Vector[T]) float64 {
	return linalg.SqL2(lhs.values, rhs.values)
}

func Dot[T linalg.Number](lhs, rhs Vector[T]) float64 {
	return linalg.Dot(lhs.values, rhs.values)
}

func L1[T linalg.Number](lhs, rhs Vector[T]) float64 {
	return linalg.L1(lhs.values, rhs.values)
}

func LInf[T linalg.Number](lhs, rhs Vector[T]) float64 {
	return linalg.LInf(lhs.values, rhs.values)
}

func Norm[T linalg.Number](v Vector[T]) float64 {
	return math.Sqrt(linalg.Dot(v.values, v.values))
}

// Mean is the component-wise mean of vs over dim components, converted
// back to T. Integer element types truncate toward zero.
func Mean[T linalg.Number](vs []Vector[T], dim uint) (Vector[T], bool) {
	rows := make([][]T, len(vs))
	for i, v := range vs {
		rows[i] = v.values
	}

	acc := linalg.Mean(rows, int(dim))
	if acc == nil {
		return Vector[T]{}, false
	}

	values := make([]T, dim)
	for i, x := range acc {
		values[i] = T(x)
	}
	return Vector[T]{values: values}, true
}
