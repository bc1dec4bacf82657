package racer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/wikiladder/pkg/graph"
	"github.com/orneryd/wikiladder/pkg/title"
)

// chainFetcher serves a synthetic wiki defined by adjacency lists and counts
// every remote call so tests can assert when no traffic happened.
type chainFetcher struct {
	mu       sync.Mutex
	outbound map[string][]string
	inbound  map[string][]string
	calls    int
}

func newChainFetcher() *chainFetcher {
	return &chainFetcher{
		outbound: make(map[string][]string),
		inbound:  make(map[string][]string),
	}
}

func (f *chainFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *chainFetcher) RenderedPage(_ context.Context, t string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	links, ok := f.outbound[t]
	if !ok {
		return "", errors.New("page not found")
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="/wiki/%s">%s</a>`, title.Encode(l), l)
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func (f *chainFetcher) InboundPage(_ context.Context, t, _ string, limit int) ([]string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	titles := f.inbound[t]
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, "", nil
}

func (f *chainFetcher) RedirectsTo(_ context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, nil
}

func newTestRacer(t *testing.T, f *chainFetcher, threshold int, opts ...Option) *Racer {
	t.Helper()
	oracle, err := graph.NewOracle(f, graph.Options{})
	require.NoError(t, err)
	r, err := New(oracle, threshold, opts...)
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	f := newChainFetcher()
	oracle, err := graph.NewOracle(f, graph.Options{})
	require.NoError(t, err)

	t.Run("nil oracle", func(t *testing.T) {
		_, err := New(nil, DefaultAnchorThreshold)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("threshold must be positive", func(t *testing.T) {
		_, err := New(oracle, 0)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		_, err = New(oracle, -5)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("threshold must be achievable under the query limit", func(t *testing.T) {
		small, err := graph.NewOracle(f, graph.Options{QueryLimit: 1})
		require.NoError(t, err)

		_, err = New(small, graph.ProviderPageCap+1)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		_, err = New(small, graph.ProviderPageCap)
		assert.NoError(t, err)
	})
}

func TestFindPath(t *testing.T) {
	ctx := context.Background()

	t.Run("same page needs no search", func(t *testing.T) {
		f := newChainFetcher()
		r := newTestRacer(t, f, 3)

		path, err := r.FindPath(ctx, "Emu", "emu")
		require.NoError(t, err)
		assert.Equal(t, []string{"Emu"}, path)
		assert.Equal(t, 0, f.totalCalls())
	})

	t.Run("invalid titles fail before any traffic", func(t *testing.T) {
		f := newChainFetcher()
		r := newTestRacer(t, f, 3)

		_, err := r.FindPath(ctx, "bad|title", "Emu")
		assert.ErrorIs(t, err, title.ErrInvalidTitle)

		_, err = r.FindPath(ctx, "Emu", "bad|title")
		assert.ErrorIs(t, err, title.ErrInvalidTitle)

		assert.Equal(t, 0, f.totalCalls())
	})

	t.Run("direct link", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Emu"] = []string{"Australia"}
		f.inbound["Australia"] = []string{"Emu", "Sydney", "Canberra"}
		r := newTestRacer(t, f, 3)

		path, err := r.FindPath(ctx, "Emu", "Australia")
		require.NoError(t, err)
		assert.Equal(t, []string{"Emu", "Australia"}, path)
	})

	t.Run("multi hop through the catch net", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Milk"] = []string{"Cow"}
		f.outbound["Cow"] = []string{"Farm"}
		f.outbound["Farm"] = []string{"Tractor"}
		f.inbound["Tractor"] = []string{"Farm", "Engine", "Plough"}
		r := newTestRacer(t, f, 3)

		path, err := r.FindPath(ctx, "Milk", "Tractor")
		require.NoError(t, err)
		assert.Equal(t, []string{"Milk", "Cow", "Farm", "Tractor"}, path)
	})

	t.Run("obscure end is anchored through a popular page", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Start"] = []string{"Hub"}
		f.inbound["Rare"] = []string{"Hub"}
		f.inbound["Hub"] = []string{"Page A", "Page B", "Page C"}
		r := newTestRacer(t, f, 3)

		path, err := r.FindPath(ctx, "Start", "Rare")
		require.NoError(t, err)
		assert.Equal(t, []string{"Start", "Hub", "Rare"}, path)
	})

	t.Run("noisy anchor candidates are skipped", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Start"] = []string{"Hub"}
		// The year page sorts first and is wildly popular, but only attracts
		// links from sibling year pages.
		f.inbound["Rare"] = []string{"1906 in France", "Hub"}
		f.inbound["1906 in France"] = []string{"1905 in France", "1907 in France", "France"}
		f.inbound["Hub"] = []string{"Page A", "Page B", "Page C"}
		r := newTestRacer(t, f, 3)

		path, err := r.FindPath(ctx, "Start", "Rare")
		require.NoError(t, err)
		assert.Equal(t, []string{"Start", "Hub", "Rare"}, path)
		assert.NotContains(t, path, "1906 in France")
	})

	t.Run("exhaustion reports no path", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Island"] = []string{"Beach"}
		f.outbound["Beach"] = nil
		r := newTestRacer(t, f, 3)

		_, err := r.FindPath(ctx, "Island", "Mainland")
		assert.ErrorIs(t, err, ErrNoPath)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Emu"] = []string{"Australia"}
		r := newTestRacer(t, f, 3)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := r.FindPath(cancelled, "Emu", "Australia")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFindPathChain(t *testing.T) {
	ctx := context.Background()

	t.Run("splices segments without duplicating joints", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Milk"] = []string{"Cow"}
		f.outbound["Cow"] = []string{"Farm"}
		f.inbound["Cow"] = []string{"Milk", "Farm", "Cattle"}
		f.inbound["Farm"] = []string{"Cow", "Barn", "Field"}
		r := newTestRacer(t, f, 3)

		path, err := r.FindPathChain(ctx, "Milk", "Cow", "Farm")
		require.NoError(t, err)
		assert.Equal(t, []string{"Milk", "Cow", "Farm"}, path)
	})

	t.Run("repeated title adds nothing", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Milk"] = []string{"Cow"}
		f.inbound["Cow"] = []string{"Milk", "Farm", "Cattle"}
		r := newTestRacer(t, f, 3)

		path, err := r.FindPathChain(ctx, "Milk", "Cow", "Cow")
		require.NoError(t, err)
		assert.Equal(t, []string{"Milk", "Cow"}, path)
	})

	t.Run("needs at least two titles", func(t *testing.T) {
		f := newChainFetcher()
		r := newTestRacer(t, f, 3)

		_, err := r.FindPathChain(ctx, "Milk")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("segment failure aborts the chain", func(t *testing.T) {
		f := newChainFetcher()
		f.outbound["Milk"] = []string{"Cow"}
		f.outbound["Cow"] = nil
		f.inbound["Cow"] = []string{"Milk", "Farm", "Cattle"}
		r := newTestRacer(t, f, 3)

		_, err := r.FindPathChain(ctx, "Milk", "Cow", "Mainland")
		assert.ErrorIs(t, err, ErrNoPath)
	})
}

func TestDefaultNoiseFilter(t *testing.T) {
	assert.True(t, DefaultNoiseFilter("1809 in Denmark"))
	assert.True(t, DefaultNoiseFilter("2004 in American television"))
	assert.False(t, DefaultNoiseFilter("Denmark"))
	assert.False(t, DefaultNoiseFilter("In the Year of the Pig"))
	assert.False(t, DefaultNoiseFilter("1809"))
}

func TestWithNoiseFilter(t *testing.T) {
	ctx := context.Background()

	// With filtering disabled the year page is a legitimate anchor.
	f := newChainFetcher()
	f.outbound["Start"] = []string{"1906 in France"}
	f.inbound["Rare"] = []string{"1906 in France"}
	f.inbound["1906 in France"] = []string{"1905 in France", "1907 in France", "France"}
	r := newTestRacer(t, f, 3, WithNoiseFilter(nil))

	path, err := r.FindPath(ctx, "Start", "Rare")
	require.NoError(t, err)
	assert.Equal(t, []string{"Start", "1906 in France", "Rare"}, path)
}
