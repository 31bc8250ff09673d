package collection

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	pq := NewPriorityQueue[string](4)

	_, err := pq.Pop()
	assert.True(t, errors.Is(err, ErrEmptyPriorityQueue))

	pq.Push("c", 3.0)
	pq.Push("a", 1.0)
	pq.Push("b", 2.0)
	pq.Push("a2", 1.0)
	assert.Equal(t, 4, pq.Len())

	head, err := pq.PeekWithPriority()
	require.NoError(t, err)
	assert.Equal(t, "a", head.Item)
	assert.Equal(t, 4, pq.Len())

	got := []string{}
	for 0 < pq.Len() {
		item, err := pq.Pop()
		require.NoError(t, err)
		got = append(got, item)
	}
	assert.Equal(t, []string{"a", "a2", "b", "c"}, got)

	_, err = pq.PeekWithPriority()
	assert.True(t, errors.Is(err, ErrEmptyPriorityQueue))
}
