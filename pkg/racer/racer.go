// Package racer finds chains of clickable links connecting two pages of the
// encyclopedia.
//
// The search runs in two phases over a shared graph.Oracle:
//
//  1. Anchoring relocates the destination end of the ladder to a page with
//     enough inbound references that forward search has a realistic chance
//     of stumbling onto it. Chaining directly into an obscure page is
//     intractable: its in-degree is unknown and usually tiny.
//  2. Completion grows the start end of the anchored ladder, best first by
//     link similarity between the two frontiers, until a single edge can
//     close the gap. A precomputed "net" (the inbound neighbors of the
//     anchored destination) lets the search finish one hop early whenever a
//     freshly expanded page links to any net member.
//
// Both phases are heuristic: the result is a valid link chain, not a
// provably shortest one, and an exhausted budget yields ErrNoPath rather
// than a guarantee that no path exists.
package racer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/orneryd/wikiladder/pkg/graph"
	"github.com/orneryd/wikiladder/pkg/ladder"
	"github.com/orneryd/wikiladder/pkg/logging"
	"github.com/orneryd/wikiladder/pkg/title"
)

// DefaultAnchorThreshold is the minimum number of known inbound references
// for a page to count as a sufficient anchor.
const DefaultAnchorThreshold = 1000

// maxProximity marks a complete ladder as better than any converging one.
const maxProximity = math.MaxInt

var (
	// ErrNoPath means the search space was exhausted under the current
	// budget without connecting the two pages. It is a normal outcome, not
	// a malfunction, and is distinct from bad input or a misconfigured
	// racer.
	ErrNoPath = errors.New("no path found within the search budget")

	// ErrInvalidConfig reports an unusable racer configuration at
	// construction time.
	ErrInvalidConfig = errors.New("invalid racer configuration")
)

// NoiseFilter reports whether an inbound candidate should be skipped during
// anchoring because it only attracts links from near-identical pages.
type NoiseFilter func(title string) bool

// yearInPlace matches titles like "1809 in Denmark". Only sibling year
// pages link to these, so they pollute the anchor frontier with no useful
// onward connectivity. The pattern is a heuristic and knowingly incomplete:
// annual-event pages like "1995 World Junior Championships" slip through.
var yearInPlace = regexp.MustCompile(`^[0-9]+ in .`)

// DefaultNoiseFilter skips "<year> in <place>" pages.
func DefaultNoiseFilter(t string) bool {
	return yearInPlace.MatchString(t)
}

// Option configures a Racer.
type Option func(*Racer)

// WithNoiseFilter replaces the anchor-phase noise filter. A nil filter
// disables filtering.
func WithNoiseFilter(f NoiseFilter) Option {
	return func(r *Racer) { r.noisy = f }
}

// WithLogger sets the search progress logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Racer) { r.log = log }
}

// Racer runs bidirectional link-chain searches over one oracle. Safe for
// concurrent use; concurrent searches share the oracle's caches.
type Racer struct {
	oracle          *graph.Oracle
	anchorThreshold int
	noisy           NoiseFilter
	log             *slog.Logger
}

// New constructs a Racer. anchorThreshold must be positive and achievable:
// a full backlink listing under the oracle's query limit must be able to
// reach it, otherwise anchoring could never succeed and the configuration
// is rejected outright.
func New(oracle *graph.Oracle, anchorThreshold int, opts ...Option) (*Racer, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: oracle must not be nil", ErrInvalidConfig)
	}
	if anchorThreshold < 1 {
		return nil, fmt.Errorf("%w: anchor threshold %d must be positive", ErrInvalidConfig, anchorThreshold)
	}
	if oracle.QueryLimit()*graph.ProviderPageCap < anchorThreshold {
		return nil, fmt.Errorf("%w: query limit %d cannot achieve anchor threshold %d",
			ErrInvalidConfig, oracle.QueryLimit(), anchorThreshold)
	}

	r := &Racer{
		oracle:          oracle,
		anchorThreshold: anchorThreshold,
		noisy:           DefaultNoiseFilter,
		log:             logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.noisy == nil {
		r.noisy = func(string) bool { return false }
	}
	return r, nil
}

// FindPath returns an ordered chain of titles where each page links
// directly to the next, starting at start and ending at end. A search for a
// page against itself returns the single-element path immediately, with no
// oracle traffic. Exhaustion returns ErrNoPath; invalid titles fail with
// title.ErrInvalidTitle before any search work.
func (r *Racer) FindPath(ctx context.Context, start, end string) ([]string, error) {
	from, err := title.Normalize(start)
	if err != nil {
		return nil, fmt.Errorf("start title: %w", err)
	}
	to, err := title.Normalize(end)
	if err != nil {
		return nil, fmt.Errorf("end title: %w", err)
	}
	if strings.EqualFold(from, to) {
		return []string{from}, nil
	}

	canLink := func(a, b string) bool { return r.oracle.HasLinkTo(ctx, a, b) }
	rung := ladder.New(from, to, canLink, ladder.WithEqual[string](strings.EqualFold))

	anchored, err := r.anchor(ctx, rung)
	if err != nil {
		return nil, err
	}
	done, err := r.complete(ctx, anchored)
	if err != nil {
		return nil, err
	}
	return done.Sequence(""), nil
}

// FindPathChain connects consecutive title pairs and splices the resulting
// paths, reusing the final page of each segment as the start of the next.
func (r *Racer) FindPathChain(ctx context.Context, titles ...string) ([]string, error) {
	if len(titles) < 2 {
		return nil, fmt.Errorf("%w: need at least two titles, got %d", ErrInvalidConfig, len(titles))
	}

	path, err := r.FindPath(ctx, titles[0], titles[1])
	if err != nil {
		return nil, err
	}
	for _, next := range titles[2:] {
		segment, err := r.FindPath(ctx, path[len(path)-1], next)
		if err != nil {
			return nil, err
		}
		if len(segment) > 1 {
			path = append(path, segment[1:]...)
		}
	}
	return path, nil
}

// isAnchored reports whether the ladder's destination frontier is reachable
// enough for completion: the ladder is already complete, or the upper
// frontier's known popularity meets the threshold.
func (r *Racer) isAnchored(ctx context.Context, l *ladder.Ladder[string]) bool {
	if l.Complete() {
		return true
	}
	return r.oracle.Popularity(ctx, l.UpperFrontier()) >= r.anchorThreshold
}

// anchor relocates the ladder's upper frontier to a page popular enough to
// be found by forward search, building down from the destination best-first
// by popularity. If the queue empties without anchoring, the original
// ladder is returned unchanged and completion runs against the bare
// destination.
func (r *Racer) anchor(ctx context.Context, l *ladder.Ladder[string]) (*ladder.Ladder[string], error) {
	if r.isAnchored(ctx, l) {
		return l, nil
	}

	q := newCandidateQueue(byPopularity)
	q.push(&candidate{lad: l, score: r.oracle.Popularity(ctx, l.UpperFrontier())})

	for q.len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := q.pop()
		r.log.Debug("best anchor candidate", "ladder", best.lad.String(), "popularity", best.score)

		upper := best.lad.UpperFrontier()
		for _, rung := range r.oracle.LinksTo(ctx, upper).Titles() {
			if r.noisy(rung) {
				continue
			}
			derived, res := best.lad.AddUpperRung(rung)
			if res != ladder.Applied {
				continue
			}
			if r.isAnchored(ctx, derived) {
				r.log.Debug("anchored", "ladder", derived.String())
				return derived, nil
			}
			q.push(&candidate{lad: derived, score: r.oracle.Popularity(ctx, derived.UpperFrontier())})
		}
	}

	r.log.Warn("could not anchor destination; completing against the bare end page",
		"end", l.End())
	return l, nil
}

// complete grows the ladder's start side until it meets the (ideally
// anchored) destination frontier. Candidates are expanded best-first by the
// number of links the two frontiers share. On exhaustion the best
// incomplete ladder found is returned along with ErrNoPath.
func (r *Racer) complete(ctx context.Context, l *ladder.Ladder[string]) (*ladder.Ladder[string], error) {
	if l.Complete() {
		return l, nil
	}

	// The catch net: a fixed snapshot of pages known to link to the
	// destination frontier. Any freshly expanded page that links into the
	// net closes the gap in one extra rung.
	net := r.oracle.LinksTo(ctx, l.UpperFrontier())

	q := newCandidateQueue(byProximity)
	visited := map[string]struct{}{l.LowerFrontier(): {}}

	first := r.newCompletionCandidate(ctx, l)
	q.push(first)
	best := first

	for q.len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := q.pop()
		r.log.Debug("best so far", "ladder", cur.lad.String(), "proximity", cur.score)
		if cur.score > best.score {
			best = cur
		}

		for _, neighbor := range r.oracle.LinksOn(ctx, cur.lad.LowerFrontier()).Titles() {
			if _, seen := visited[neighbor]; seen {
				continue
			}
			derived, res := cur.lad.AddLowerRung(neighbor)
			if res != ladder.Applied {
				continue
			}
			if derived.Complete() {
				return derived, nil
			}

			if caught := r.catchInNet(ctx, net, derived, neighbor); caught != nil {
				return caught, nil
			}

			visited[neighbor] = struct{}{}
			q.push(r.newCompletionCandidate(ctx, derived))
		}
	}

	return best.lad, ErrNoPath
}

// catchInNet checks whether the freshly added lower frontier links to any
// member of the net; if so, the finishing rung is appended and the complete
// ladder returned. Returns nil when the net missed.
func (r *Racer) catchInNet(ctx context.Context, net *graph.TitleSet, derived *ladder.Ladder[string], neighbor string) *ladder.Ladder[string] {
	var caught *ladder.Ladder[string]
	net.Each(func(t string) bool {
		if !r.oracle.HasLinkTo(ctx, neighbor, t) {
			return true
		}
		if fin, res := derived.AddLowerRung(t); res == ladder.Applied {
			caught = fin
			return false
		}
		return true
	})
	return caught
}

func (r *Racer) newCompletionCandidate(ctx context.Context, l *ladder.Ladder[string]) *candidate {
	if l.Complete() {
		return &candidate{lad: l, score: maxProximity}
	}
	return &candidate{
		lad:   l,
		score: r.oracle.LinksInCommon(ctx, l.LowerFrontier(), l.UpperFrontier()),
	}
}
