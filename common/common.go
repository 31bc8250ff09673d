package common

import "runtime"

func GetProcNum(maxGoRoutines uint) uint {
	if maxGoRoutines == 0 {
		return uint(runtime.NumCPU())
	}

	return maxGoRoutines
}

type Chunk struct {
	Begin uint
	End   uint
}

func (c Chunk) Len() uint {
	return c.End - c.Begin
}

// GetChunks splits [0, n) into at most procs contiguous ranges whose sizes
// differ by at most one. Empty ranges are omitted.
func GetChunks(n, procs uint) []Chunk {
	if procs == 0 {
		procs = 1
	}

	bs := n / procs
	rem := n % procs
	chunks := make([]Chunk, 0, procs)
	bi := uint(0)
	for i := uint(0); i < procs; i++ {
		ei := bi + bs
		if i < rem {
			ei += 1
		}
		if bi < ei {
			chunks = append(chunks, Chunk{Begin: bi, End: ei})
		}
		bi = ei
	}

	return chunks
}
