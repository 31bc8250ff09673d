// Package render draws the first two components of a clustered dataset as
// a PNG image.
package render

import (
	"io"
	"math"

	"github.com/ar90n/kmeanstree"
	"github.com/ar90n/kmeanstree/cluster"
	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
	"github.com/fogleman/gg"
)

var ErrNotPlanar = errors.New("vectors need at least two dimensions to render")

type Options struct {
	Width     int
	Height    int
	GlyphSize float64
	Margin    float64
}

func DefaultOptions() Options {
	return Options{
		Width:     640,
		Height:    480,
		GlyphSize: 6,
		Margin:    16,
	}
}

// Cluster draws the sub-clusters of c in distinct colors, or c alone when
// it has not been partitioned.
func Cluster[T linalg.Number](w io.Writer, c *cluster.Cluster[T], opts Options) error {
	groups := c.SubClusters()
	if len(groups) == 0 {
		groups = []*cluster.Cluster[T]{c}
	}
	return draw(w, groups, opts)
}

// Descend follows path from c, picking the sub-cluster at each index in
// turn. An empty path returns c.
func Descend[T linalg.Number](c *cluster.Cluster[T], path []int) (*cluster.Cluster[T], error) {
	node := c
	for _, i := range path {
		subs := node.SubClusters()
		if i < 0 || len(subs) <= i {
			return nil, errors.Wrapf(kmeanstree.ErrInvalidArgument, "sub-cluster %d of %d at depth %d", i, len(subs), node.Depth())
		}
		node = subs[i]
	}
	return node, nil
}

// Leaves draws every leaf cluster of tree in distinct colors.
func Leaves[T linalg.Number](w io.Writer, tree *kmeanstree.Tree[T], opts Options) error {
	return draw(w, tree.Leaves(), opts)
}

type bounds struct {
	minX, minY, maxX, maxY float64
}

func boundsOf[T linalg.Number](groups []*cluster.Cluster[T]) bounds {
	b := bounds{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
	for _, g := range groups {
		for member := range g.All() {
			x, y := planar(member)
			b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
			b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
		}
	}
	if math.IsInf(b.minX, 1) {
		return bounds{maxX: 1, maxY: 1}
	}
	return b
}

func planar[T linalg.Number](v vector.Vector[T]) (float64, float64) {
	x, _ := v.At(0)
	y, _ := v.At(1)
	return float64(x), float64(y)
}

func draw[T linalg.Number](w io.Writer, groups []*cluster.Cluster[T], opts Options) error {
	if len(groups) == 0 {
		return errors.Wrap(kmeanstree.ErrEmptyCluster, "nothing to render")
	}
	if groups[0].Dim() < 2 {
		return ErrNotPlanar
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return errors.Wrapf(kmeanstree.ErrInvalidArgument, "image size %dx%d", opts.Width, opts.Height)
	}

	b := boundsOf(groups)
	spanX := math.Max(b.maxX-b.minX, math.SmallestNonzeroFloat64)
	spanY := math.Max(b.maxY-b.minY, math.SmallestNonzeroFloat64)
	innerW := float64(opts.Width) - 2*opts.Margin
	innerH := float64(opts.Height) - 2*opts.Margin
	project := func(x, y float64) (float64, float64) {
		return opts.Margin + (x-b.minX)/spanX*innerW, opts.Margin + (y-b.minY)/spanY*innerH
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetLineWidth(1)

	half := opts.GlyphSize / 2
	for i, g := range groups {
		dc.SetRGB(hue(float64(i) / float64(len(groups))))

		for member := range g.All() {
			x, y := project(planar(member))
			dc.DrawLine(x-half, y, x+half, y)
			dc.DrawLine(x, y-half, x, y+half)
		}
		dc.Stroke()

		centroid, err := g.Centroid()
		if err != nil {
			continue
		}
		x, y := project(planar(centroid))
		dc.DrawRectangle(x-half, y-half, opts.GlyphSize, opts.GlyphSize)
		dc.Stroke()
	}

	if err := dc.EncodePNG(w); err != nil {
		return errors.Wrap(err, "encoding png")
	}
	return nil
}

// hue converts a fully saturated, full brightness HSV hue in [0, 1) to RGB.
func hue(h float64) (float64, float64, float64) {
	h = 6 * (h - math.Floor(h))
	x := 1 - math.Abs(math.Mod(h, 2)-1)
	switch int(h) {
	case 0:
		return 1, x, 0
	case 1:
		return x, 1, 0
	case 2:
		return 0, 1, x
	case 3:
		return 0, x, 1
	case 4:
		return x, 0, 1
	default:
		return 1, 0, x
	}
}
