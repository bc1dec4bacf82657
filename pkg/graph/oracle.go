// Package graph exposes the encyclopedia's link graph as a memoized,
// budget-bounded oracle.
//
// The remote graph is implicit: edges are only discovered by fetching pages,
// so every neighbor query is expensive. The Oracle sits between the searches
// and the transport collaborator and guarantees:
//
//   - Memoization: the outbound and inbound neighbor sets for a title are
//     fetched at most once per key; repeated queries return the same cached
//     TitleSet value.
//   - Budgeting: inbound (backlink) enumeration issues at most FetchLimit
//     page fetches of QueryLimit results each, so Popularity is a lower
//     bound, never an unbounded crawl.
//   - Soft failure: a failed fetch yields an empty set and a log line. A
//     single flaky page must not abort a whole search.
//   - Single flight: concurrent requests for the same key share one fetch.
//
// Entries are immutable once written; callers receive read-only TitleSet
// views.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/orneryd/wikiladder/pkg/logging"
	"github.com/orneryd/wikiladder/pkg/title"
)

const (
	// ProviderPageCap is the hard upper bound on results per backlink page
	// imposed by the MediaWiki API.
	ProviderPageCap = 500

	// DefaultHome is the hub page excluded from every outbound set. Nearly
	// every page links to it, so it carries no path information.
	DefaultHome = "Main Page"

	// DefaultQueryLimit and DefaultFetchLimit are the budgets applied when
	// Options leaves them zero.
	DefaultQueryLimit = ProviderPageCap
	DefaultFetchLimit = 2
)

// ErrInvalidLimit reports an out-of-range query or fetch budget at
// construction time.
var ErrInvalidLimit = errors.New("invalid limit")

// Store kinds used for the persistent link cache.
const (
	storeKindOutbound = "out"
	storeKindInbound  = "in"
	storeKindRedirect = "redir"
)

// Fetcher is the transport collaborator. Implementations fetch remote pages;
// the Oracle owns extraction, normalization, caching, and budgets.
type Fetcher interface {
	// RenderedPage returns the rendered HTML of a page.
	RenderedPage(ctx context.Context, title string) (string, error)

	// InboundPage returns one page of titles linking to the given page,
	// excluding redirects, plus the continuation cursor for the next page.
	// An empty cursor starts from the beginning; an empty next cursor means
	// the listing is exhausted.
	InboundPage(ctx context.Context, title, cursor string, limit int) (titles []string, next string, err error)

	// RedirectsTo returns the titles of pages redirecting to the given page.
	RedirectsTo(ctx context.Context, title string) ([]string, error)
}

// LinkStore is an optional persistent cache consulted before the network.
// pkg/storage provides a BadgerDB implementation.
type LinkStore interface {
	Get(kind, title string) (titles []string, ok bool, err error)
	Put(kind, title string, titles []string) error
}

// Options configures an Oracle.
type Options struct {
	// QueryLimit is the maximum number of results requested per inbound
	// page fetch. Zero means DefaultQueryLimit; must not exceed
	// ProviderPageCap.
	QueryLimit int

	// FetchLimit is the maximum number of paginated fetches per inbound
	// query. Zero means DefaultFetchLimit.
	FetchLimit int

	// Home overrides the excluded hub page. Zero means DefaultHome.
	Home string

	// Store, when non-nil, persists fetched link sets across runs.
	Store LinkStore

	// Logger for fetch failures. Nil discards.
	Logger *slog.Logger
}

// Oracle provides memoized, budget-bounded access to the link graph.
// Safe for concurrent use.
type Oracle struct {
	fetcher    Fetcher
	store      LinkStore
	log        *slog.Logger
	queryLimit int
	fetchLimit int
	home       string

	mu       sync.RWMutex
	outbound map[string]*TitleSet
	inbound  map[string]*TitleSet
	// alias maps a redirect source to its resolved target: a redirect is
	// treated as sharing all outbound edges of its target.
	alias map[string]string

	flight singleflight.Group
}

// NewOracle validates the budgets and constructs an Oracle over fetcher.
func NewOracle(fetcher Fetcher, opts Options) (*Oracle, error) {
	if fetcher == nil {
		return nil, errors.New("graph: fetcher must not be nil")
	}
	if opts.QueryLimit == 0 {
		opts.QueryLimit = DefaultQueryLimit
	}
	if opts.FetchLimit == 0 {
		opts.FetchLimit = DefaultFetchLimit
	}
	if opts.QueryLimit < 1 || opts.QueryLimit > ProviderPageCap {
		return nil, fmt.Errorf("%w: query limit %d outside [1, %d]", ErrInvalidLimit, opts.QueryLimit, ProviderPageCap)
	}
	if opts.FetchLimit < 1 {
		return nil, fmt.Errorf("%w: fetch limit %d must be positive", ErrInvalidLimit, opts.FetchLimit)
	}
	if opts.Home == "" {
		opts.Home = DefaultHome
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Oracle{
		fetcher:    fetcher,
		store:      opts.Store,
		log:        log,
		queryLimit: opts.QueryLimit,
		fetchLimit: opts.FetchLimit,
		home:       opts.Home,
		outbound:   make(map[string]*TitleSet),
		inbound:    make(map[string]*TitleSet),
		alias:      make(map[string]string),
	}, nil
}

// QueryLimit returns the per-page result budget.
func (o *Oracle) QueryLimit() int { return o.queryLimit }

// FetchLimit returns the per-query pagination budget.
func (o *Oracle) FetchLimit() int { return o.fetchLimit }

// Home returns the excluded hub page.
func (o *Oracle) Home() string { return o.home }

// LinksOn returns the set of titles reachable through links on the given
// page. The set always contains the page itself and never the home page.
// Fetched at most once per title.
func (o *Oracle) LinksOn(ctx context.Context, t string) *TitleSet {
	norm, err := title.Normalize(t)
	if err != nil {
		o.log.Warn("skipping outbound query for invalid title", "title", t, "error", err)
		return nil
	}
	return o.outboundSet(ctx, norm)
}

// LinksTo returns the set of titles that link to the given page, including
// redirect sources, capped by the fetch budget. Fetched at most once per
// title; Popularity is therefore a lower bound once the budget truncates
// pagination.
func (o *Oracle) LinksTo(ctx context.Context, t string) *TitleSet {
	norm, err := title.Normalize(t)
	if err != nil {
		o.log.Warn("skipping inbound query for invalid title", "title", t, "error", err)
		return nil
	}
	return o.inboundSet(ctx, norm)
}

// HasLinkTo reports whether page a links directly to page b, preferring
// cached evidence over fresh fetches: a cached inbound set for b, then a
// cached outbound set for a, then one outbound fetch for a.
func (o *Oracle) HasLinkTo(ctx context.Context, a, b string) bool {
	na, err := title.Normalize(a)
	if err != nil {
		return false
	}
	nb, err := title.Normalize(b)
	if err != nil {
		return false
	}

	o.mu.RLock()
	if s, ok := o.inbound[nb]; ok && s.Contains(na) {
		o.mu.RUnlock()
		return true
	}
	if s, ok := o.outbound[na]; ok {
		o.mu.RUnlock()
		return s.Contains(nb)
	}
	o.mu.RUnlock()

	return o.outboundSet(ctx, na).Contains(nb)
}

// Degree returns the number of outbound links on a page, excluding the
// page's self entry.
func (o *Oracle) Degree(ctx context.Context, t string) int {
	n := o.LinksOn(ctx, t).Len()
	if n == 0 {
		return 0
	}
	return n - 1
}

// Popularity returns the number of known pages linking to t. The value is
// exact only while the inbound listing fits within the fetch budget.
func (o *Oracle) Popularity(ctx context.Context, t string) int {
	return o.LinksTo(ctx, t).Len()
}

// LinksInCommon counts the outbound links shared by two pages, iterating the
// smaller set and probing the larger.
func (o *Oracle) LinksInCommon(ctx context.Context, a, b string) int {
	return intersectionSize(o.LinksOn(ctx, a), o.LinksOn(ctx, b))
}

func (o *Oracle) outboundSet(ctx context.Context, norm string) *TitleSet {
	o.mu.RLock()
	if s, ok := o.outbound[norm]; ok {
		o.mu.RUnlock()
		return s
	}
	target := o.resolveAliasLocked(norm)
	o.mu.RUnlock()

	// Redirects share the outbound edges of their resolved target.
	s := o.fetchedOutbound(ctx, target)
	if target != norm {
		o.mu.Lock()
		o.outbound[norm] = s
		o.mu.Unlock()
	}
	return s
}

// resolveAliasLocked follows the redirect alias chain from norm to its final
// target. A chain that revisits a title (mutually-redirecting pages, a real
// if transient wiki state) stops at the last new title instead of looping.
// The caller must hold at least a read lock.
func (o *Oracle) resolveAliasLocked(norm string) string {
	cur := norm
	seen := map[string]struct{}{cur: {}}
	for {
		next, ok := o.alias[cur]
		if !ok {
			return cur
		}
		if _, cycle := seen[next]; cycle {
			return cur
		}
		seen[next] = struct{}{}
		cur = next
	}
}

// fetchedOutbound returns the cached outbound set for norm, fetching it at
// most once. norm must already be alias-resolved.
func (o *Oracle) fetchedOutbound(ctx context.Context, norm string) *TitleSet {
	v, _, _ := o.flight.Do("out:"+norm, func() (any, error) {
		o.mu.RLock()
		s, ok := o.outbound[norm]
		o.mu.RUnlock()
		if ok {
			return s, nil
		}
		s = o.fetchOutbound(ctx, norm)
		o.mu.Lock()
		o.outbound[norm] = s
		o.mu.Unlock()
		return s, nil
	})
	return v.(*TitleSet)
}

func (o *Oracle) fetchOutbound(ctx context.Context, norm string) *TitleSet {
	if titles, ok := o.storeGet(storeKindOutbound, norm); ok {
		return setFromSlice(titles)
	}

	page, err := o.fetcher.RenderedPage(ctx, norm)
	if err != nil {
		o.log.Warn("rendered page fetch failed", "title", norm, "error", err)
		return newTitleSet(0)
	}

	links := extractLinks(page)
	links.add(norm)
	links.remove(o.home)

	o.storePut(storeKindOutbound, norm, links.Titles())
	return links
}

func (o *Oracle) inboundSet(ctx context.Context, norm string) *TitleSet {
	o.mu.RLock()
	if s, ok := o.inbound[norm]; ok {
		o.mu.RUnlock()
		return s
	}
	o.mu.RUnlock()

	v, _, _ := o.flight.Do("in:"+norm, func() (any, error) {
		o.mu.RLock()
		s, ok := o.inbound[norm]
		o.mu.RUnlock()
		if ok {
			return s, nil
		}

		s, redirects := o.fetchInbound(ctx, norm)

		o.mu.Lock()
		o.inbound[norm] = s
		for _, r := range redirects {
			if _, cached := o.outbound[r]; !cached {
				o.alias[r] = norm
			}
		}
		o.mu.Unlock()
		return s, nil
	})
	return v.(*TitleSet)
}

// fetchInbound accumulates backlink pages until the API reports no further
// continuation or the fetch budget runs out, then unions in redirect
// sources. Returns the set plus the redirect sources for alias seeding.
func (o *Oracle) fetchInbound(ctx context.Context, norm string) (*TitleSet, []string) {
	if titles, ok := o.storeGet(storeKindInbound, norm); ok {
		redirects, _ := o.storeGet(storeKindRedirect, norm)
		return setFromSlice(titles), redirects
	}

	acc := newTitleSet(o.queryLimit)
	cursor := ""
	for fetches := 0; fetches < o.fetchLimit; fetches++ {
		titles, next, err := o.fetcher.InboundPage(ctx, norm, cursor, o.queryLimit)
		if err != nil {
			o.log.Warn("backlink page fetch failed", "title", norm, "cursor", cursor, "error", err)
			break
		}
		for _, t := range titles {
			if n, err := title.Normalize(t); err == nil {
				acc.add(n)
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}

	raw, err := o.fetcher.RedirectsTo(ctx, norm)
	if err != nil {
		o.log.Warn("redirect listing fetch failed", "title", norm, "error", err)
	}
	redirects := make([]string, 0, len(raw))
	for _, r := range raw {
		n, err := title.Normalize(r)
		if err != nil {
			continue
		}
		acc.add(n)
		redirects = append(redirects, n)
	}

	o.storePut(storeKindInbound, norm, acc.Titles())
	o.storePut(storeKindRedirect, norm, redirects)
	return acc, redirects
}

func (o *Oracle) storeGet(kind, norm string) ([]string, bool) {
	if o.store == nil {
		return nil, false
	}
	titles, ok, err := o.store.Get(kind, norm)
	if err != nil {
		o.log.Warn("link store read failed", "kind", kind, "title", norm, "error", err)
		return nil, false
	}
	return titles, ok
}

func (o *Oracle) storePut(kind, norm string, titles []string) {
	if o.store == nil {
		return
	}
	if err := o.store.Put(kind, norm, titles); err != nil {
		o.log.Warn("link store write failed", "kind", kind, "title", norm, "error", err)
	}
}

func setFromSlice(titles []string) *TitleSet {
	s := newTitleSet(len(titles))
	for _, t := range titles {
		s.add(t)
	}
	return s
}
