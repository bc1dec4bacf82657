package ladder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgeSet builds a LinkFunc from explicit "from->to" pairs.
func edgeSet(pairs ...string) LinkFunc[string] {
	edges := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		edges[p] = struct{}{}
	}
	return func(from, to string) bool {
		_, ok := edges[from+"->"+to]
		return ok
	}
}

func TestNew(t *testing.T) {
	l := New("A", "Z", edgeSet())
	assert.Equal(t, "A", l.Start())
	assert.Equal(t, "Z", l.End())
	assert.Equal(t, "A", l.LowerFrontier())
	assert.Equal(t, "Z", l.UpperFrontier())
	assert.Equal(t, 0, l.Height())
	assert.False(t, l.Complete())
}

func TestComplete(t *testing.T) {
	t.Run("direct edge between frontiers", func(t *testing.T) {
		l := New("A", "Z", edgeSet("A->Z"))
		assert.True(t, l.Complete())
	})

	t.Run("equal start and end", func(t *testing.T) {
		l := New("A", "a", edgeSet(), WithEqual[string](strings.EqualFold))
		assert.True(t, l.Complete())
	})

	t.Run("no edge", func(t *testing.T) {
		l := New("A", "Z", edgeSet("Z->A"))
		assert.False(t, l.Complete())
	})
}

func TestAddLowerRung(t *testing.T) {
	links := edgeSet("A->B", "B->C", "C->Z")

	t.Run("applied", func(t *testing.T) {
		l := New("A", "Z", links)
		grown, res := l.AddLowerRung("B")
		require.Equal(t, Applied, res)
		assert.Equal(t, "B", grown.LowerFrontier())
		assert.Equal(t, 1, grown.Height())

		// The original is untouched.
		assert.Equal(t, "A", l.LowerFrontier())
		assert.Equal(t, 0, l.Height())
	})

	t.Run("noop when rung is current frontier", func(t *testing.T) {
		l := New("A", "Z", links)
		same, res := l.AddLowerRung("A")
		assert.Equal(t, Noop, res)
		assert.Same(t, l, same)
	})

	t.Run("rejected without edge", func(t *testing.T) {
		l := New("A", "Z", links)
		same, res := l.AddLowerRung("C")
		assert.Equal(t, Rejected, res)
		assert.Same(t, l, same)
		assert.Equal(t, "A", same.LowerFrontier())
	})

	t.Run("rejected when already complete", func(t *testing.T) {
		l := New("C", "Z", edgeSet("C->Z", "C->D"))
		require.True(t, l.Complete())
		_, res := l.AddLowerRung("D")
		assert.Equal(t, Rejected, res)
	})
}

func TestAddUpperRung(t *testing.T) {
	// Upper rungs grow backward: the edge must run rung -> frontier.
	links := edgeSet("Y->Z", "X->Y")

	l := New("A", "Z", links)
	grown, res := l.AddUpperRung("Y")
	require.Equal(t, Applied, res)
	assert.Equal(t, "Y", grown.UpperFrontier())

	grown2, res := grown.AddUpperRung("X")
	require.Equal(t, Applied, res)
	assert.Equal(t, "X", grown2.UpperFrontier())
	assert.Equal(t, 2, grown2.Height())

	_, res = grown2.AddUpperRung("Z")
	assert.Equal(t, Rejected, res)
}

func TestAdjacencyInvariant(t *testing.T) {
	links := edgeSet("A->B", "B->C", "X->Y", "Y->Z")

	l := New("A", "Z", links)
	l, res := l.AddLowerRung("B")
	require.Equal(t, Applied, res)
	l, res = l.AddUpperRung("Y")
	require.Equal(t, Applied, res)
	l, res = l.AddLowerRung("C")
	require.Equal(t, Applied, res)
	l, res = l.AddUpperRung("X")
	require.Equal(t, Applied, res)

	lower, upper := l.Rungs()
	for i := 0; i+1 < len(lower); i++ {
		assert.True(t, links(lower[i], lower[i+1]), "lower %v -> %v", lower[i], lower[i+1])
	}
	// Upper rungs run backward, so the edge goes from each later rung to the
	// one added before it.
	for i := 0; i+1 < len(upper); i++ {
		assert.True(t, links(upper[i+1], upper[i]), "upper %v -> %v", upper[i+1], upper[i])
	}
}

func TestSequence(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		links := edgeSet("A->B", "B->Y", "Y->Z")
		l := New("A", "Z", links)
		l, _ = l.AddLowerRung("B")
		l, _ = l.AddUpperRung("Y")
		require.True(t, l.Complete())
		assert.Equal(t, []string{"A", "B", "Y", "Z"}, l.Sequence(""))
	})

	t.Run("incomplete inserts gap marker", func(t *testing.T) {
		l := New("A", "Z", edgeSet())
		assert.Equal(t, []string{"A", "?", "Z"}, l.Sequence("?"))
	})
}

func TestString(t *testing.T) {
	links := edgeSet("A->B", "B->Z")
	l := New("A", "Z", links)

	assert.Equal(t, "[A, ... , Z]", l.String())

	l, _ = l.AddLowerRung("B")
	require.True(t, l.Complete())
	assert.Equal(t, "[A, B, Z]", l.String())
}
