// Package linalg holds the numeric kernels shared by vectors and metrics.
//
// Every kernel walks the common prefix of its operands, so slices of
// different lengths are tolerated rather than rejected.
package linalg

func prefixLen[T Number, U Number](x []T, y []U) int {
	return Min(len(x), len(y))
}

func SqL2[T Number, U Number](x []T, y []U) float64 {
	n := prefixLen(x, y)
	dist := 0.0

	i := 0
	for ; i < n%4; i++ {
		diff := float64(x[i]) - float64(y[i])
		dist += diff * diff
	}

	for ; i < n; i += 4 {
		diff0 := float64(x[i+0]) - float64(y[i+0])
		diff1 := float64(x[i+1]) - float64(y[i+1])
		diff2 := float64(x[i+2]) - float64(y[i+2])
		diff3 := float64(x[i+3]) - float64(y[i+3])
		dist += diff0*diff0 + diff1*diff1 + diff2*diff2 + diff3*diff3
	}

	return dist
}

func Dot[T Number, U Number](x []T, y []U) float64 {
	n := prefixLen(x, y)
	dot := 0.0

	i := 0
	for ; i < n%4; i++ {
		dot += float64(x[i]) * float64(y[i])
	}

	for ; i < n; i += 4 {
		mul0 := float64(x[i+0]) * float64(y[i+0])
		mul1 := float64(x[i+1]) * float64(y[i+1])
		mul2 := float64(x[i+2]) * float64(y[i+2])
		mul3 := float64(x[i+3]) * float64(y[i+3])
		dot += mul0 + mul1 + mul2 + mul3
	}

	return dot
}

// L1 is the sum of absolute component differences.
func L1[T Number, U Number](x []T, y []U) float64 {
	n := prefixLen(x, y)
	dist := 0.0
	for i := 0; i < n; i++ {
		dist += Abs(float64(x[i]) - float64(y[i]))
	}

	return dist
}

// LInf is the largest absolute component difference.
func LInf[T Number, U Number](x []T, y []U) float64 {
	n := prefixLen(x, y)
	dist := 0.0
	for i := 0; i < n; i++ {
		dist = Max(dist, Abs(float64(x[i])-float64(y[i])))
	}

	return dist
}

// Mean accumulates the component-wise mean of rows over the first dim
// components. It returns nil for an empty input.
func Mean[T Number](rows [][]T, dim int) []float64 {
	if len(rows) == 0 {
		return nil
	}

	acc := make([]float64, dim)
	for _, row := range rows {
		for j := 0; j < dim && j < len(row); j++ {
			acc[j] += float64(row[j])
		}
	}

	n := float64(len(rows))
	for j := range acc {
		acc[j] /= n
	}
	return acc
}
