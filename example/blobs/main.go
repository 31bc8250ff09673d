package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/ar90n/kmeanstree"
	"github.com/ar90n/kmeanstree/vector"
)

func main() {
	r := rand.New(rand.NewSource(0))
	centers := [][2]float64{{0.2, 0.2}, {0.8, 0.3}, {0.5, 0.8}}

	tree, err := kmeanstree.NewTree[float64](2, 3, 2)
	if err != nil {
		panic(err)
	}
	for i := 0; i < 3000; i++ {
		c := centers[i%len(centers)]
		v := vector.New(c[0]+0.05*r.NormFloat64(), c[1]+0.05*r.NormFloat64())
		if err := tree.Add(v); err != nil {
			panic(err)
		}
	}

	ctx := context.Background()
	if err := tree.Calculate(ctx); err != nil {
		panic(err)
	}
	fmt.Printf("levels: %d, leaves: %d\n", tree.Levels(), tree.Width())

	query := vector.New(0.75, 0.35)
	comparisons := uint(0)
	nn, err := tree.NearestNeighbor(query, &comparisons)
	if err != nil {
		panic(err)
	}
	fmt.Printf("nearest: %s after %d comparisons\n", nn, comparisons)

	neighbors, err := tree.Search(ctx, query, 5, 64)
	if err != nil {
		panic(err)
	}
	for i, n := range neighbors {
		fmt.Printf("%d: %s, %f\n", i, n.Vector, n.Distance)
	}
}
