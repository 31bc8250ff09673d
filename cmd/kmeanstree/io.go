package main

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
)

type Query[T linalg.Number] struct {
	Feature       vector.Vector[T]
	Neighbors     uint
	MaxCandidates uint
}

func readFeature[T linalg.Number](r io.Reader, nDim uint) (vector.Vector[T], error) {
	feature := make([]T, nDim)
	if err := binary.Read(r, binary.LittleEndian, feature); err != nil {
		return vector.Vector[T]{}, err
	}

	return vector.New(feature...), nil
}

func readBinaryFeatures[T linalg.Number](r io.Reader, nDim uint) ([]vector.Vector[T], error) {
	features := make([]vector.Vector[T], 0, 1024)
	br := bufio.NewReader(r)
	for {
		feature, err := readFeature[T](br, nDim)
		if err == io.EOF {
			return features, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading feature %d", len(features))
		}
		features = append(features, feature)
	}
}

func readCSVFeatures[T linalg.Number](r io.Reader, nDim uint) ([]vector.Vector[T], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = int(nDim)
	cr.TrimLeadingSpace = true

	features := make([]vector.Vector[T], 0, 1024)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return features, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading row %d", len(features)+1)
		}

		feature := make([]T, nDim)
		for i, text := range record {
			val, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %d", len(features)+1, i+1)
			}
			feature[i] = T(val)
		}
		features = append(features, vector.New(feature...))
	}
}

func readFeatures[T linalg.Number](r io.Reader, nDim uint, format string) ([]vector.Vector[T], error) {
	switch format {
	case "binary":
		return readBinaryFeatures[T](r, nDim)
	case "csv":
		return readCSVFeatures[T](r, nDim)
	default:
		return nil, errors.Newf("unknown input format: %s", format)
	}
}

func readQuery[T linalg.Number](r io.Reader, nDim uint) (Query[T], error) {
	var maxCandidates int32
	if err := binary.Read(r, binary.LittleEndian, &maxCandidates); err != nil {
		return Query[T]{}, err
	}

	var neighbors int32
	if err := binary.Read(r, binary.LittleEndian, &neighbors); err != nil {
		return Query[T]{}, err
	}

	feature, err := readFeature[T](r, nDim)
	if err != nil {
		return Query[T]{}, errors.Wrap(err, "reading query feature")
	}
	if maxCandidates < 0 || neighbors < 0 {
		return Query[T]{}, errors.Newf("negative query header: max candidates %d, neighbors %d", maxCandidates, neighbors)
	}

	query := Query[T]{
		Feature:       feature,
		Neighbors:     uint(neighbors),
		MaxCandidates: uint(maxCandidates),
	}
	return query, nil
}

func writeNeighbors(w io.Writer, items []int) error {
	wtr := bufio.NewWriter(w)
	if err := binary.Write(wtr, binary.LittleEndian, uint32(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := binary.Write(wtr, binary.LittleEndian, uint32(item)); err != nil {
			return err
		}
	}
	return wtr.Flush()
}

// itemIndex maps vectors back to their position in the input.
type itemIndex[T linalg.Number] struct {
	features []vector.Vector[T]
	buckets  map[uint64][]int
}

func newItemIndex[T linalg.Number](features []vector.Vector[T]) *itemIndex[T] {
	buckets := make(map[uint64][]int, len(features))
	for i, f := range features {
		h := f.Hash()
		buckets[h] = append(buckets[h], i)
	}
	return &itemIndex[T]{
		features: features,
		buckets:  buckets,
	}
}

// Lookup returns the first input position holding v, or -1.
func (ii *itemIndex[T]) Lookup(v vector.Vector[T]) int {
	for _, i := range ii.buckets[v.Hash()] {
		if ii.features[i].Equal(v) {
			return i
		}
	}
	return -1
}

// parsePath reads a comma separated list of sub-cluster indices such as
// "0,2". An empty string is the root.
func parsePath(text string) ([]int, error) {
	path := []int{}
	if strings.TrimSpace(text) == "" {
		return path, nil
	}

	for _, field := range strings.Split(text, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, errors.Wrapf(err, "path %q", text)
		}
		if i < 0 {
			return nil, errors.Newf("path %q: negative index %d", text, i)
		}
		path = append(path, i)
	}
	return path, nil
}
