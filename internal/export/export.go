// Package export writes the cluster hierarchy of a tree as a Graphviz
// graph.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/ar90n/kmeanstree"
	"github.com/ar90n/kmeanstree/cluster"
	"github.com/ar90n/kmeanstree/linalg"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

var ErrUnknownFormat = errors.New("unknown graph format")

var formats = map[string]graphviz.Format{
	"dot": graphviz.XDOT,
	"svg": graphviz.SVG,
	"png": graphviz.PNG,
	"jpg": graphviz.JPG,
}

func ParseFormat(name string) (graphviz.Format, error) {
	format, ok := formats[strings.ToLower(name)]
	if !ok {
		return "", errors.Wrapf(ErrUnknownFormat, "%q", name)
	}
	return format, nil
}

// Graph renders one node per cluster and one edge per parent to
// sub-cluster link.
func Graph[T linalg.Number](w io.Writer, tree *kmeanstree.Tree[T], format graphviz.Format) error {
	g := graphviz.New()
	defer g.Close()

	graph, err := g.Graph()
	if err != nil {
		return errors.Wrap(err, "creating graph")
	}
	defer graph.Close()

	if _, err := addCluster(graph, tree.Root(), "n"); err != nil {
		return err
	}

	if err := g.Render(graph, format, w); err != nil {
		return errors.Wrapf(err, "rendering %s", format)
	}
	return nil
}

func addCluster[T linalg.Number](graph *cgraph.Graph, c *cluster.Cluster[T], name string) (*cgraph.Node, error) {
	node, err := graph.CreateNode(name)
	if err != nil {
		return nil, errors.Wrapf(err, "creating node %s", name)
	}
	node.SetLabel(label(c))

	subs := c.SubClusters()
	if len(subs) == 0 {
		node.SetShape(cgraph.BoxShape)
	}
	for i, sub := range subs {
		child, err := addCluster(graph, sub, fmt.Sprintf("%s_%d", name, i))
		if err != nil {
			return nil, err
		}
		if _, err := graph.CreateEdge(fmt.Sprintf("%s_e%d", name, i), node, child); err != nil {
			return nil, errors.Wrapf(err, "linking %s", name)
		}
	}
	return node, nil
}

func label[T linalg.Number](c *cluster.Cluster[T]) string {
	text := fmt.Sprintf("depth %d\n%d members", c.Depth(), c.Len())
	if centroid, err := c.Centroid(); err == nil {
		text += "\n" + centroid.String()
	}
	return text
}
