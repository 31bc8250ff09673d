package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ar90n/kmeanstree"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-graphviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, graphviz.SVG, format)

	_, err = ParseFormat("gif")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestGraph(t *testing.T) {
	tree, err := kmeanstree.NewTree[float64](1, 2, 2)
	require.NoError(t, err)
	for _, v := range []float64{0, 1, 10, 11, 100, 101, 110, 111} {
		require.NoError(t, tree.Add(vector.New(v)))
	}
	require.NoError(t, tree.Calculate(context.Background()))

	buf := &bytes.Buffer{}
	require.NoError(t, Graph(buf, tree, graphviz.XDOT))

	dot := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(dot), "digraph"))
	for _, name := range []string{"n_0", "n_1", "n_0_0", "n_0_1", "n_1_0", "n_1_1"} {
		assert.Contains(t, dot, name)
	}
	assert.Equal(t, 6, strings.Count(dot, "->"))
}
