// Package ladder implements the bidirectional path container used by the
// racer searches.
//
// A Ladder is a partial path built from both ends at once: the lower rungs
// grow forward from the start, the upper rungs grow backward from the end.
// It is complete once the two frontiers can be joined by a single edge. Grow
// operations return a derived copy, so candidate ladders in a search queue
// never share mutable state.
package ladder

import (
	"fmt"
	"strings"
)

// LinkFunc reports whether an edge exists from one rung to another, in the
// direction of travel.
type LinkFunc[R comparable] func(from, to R) bool

// EqualFunc reports whether two rungs identify the same node. The default is
// ==; title ladders use a case-insensitive comparison.
type EqualFunc[R comparable] func(a, b R) bool

// AddResult describes the outcome of a grow operation.
type AddResult int

const (
	// Applied means a derived ladder with the new rung was returned.
	Applied AddResult = iota
	// Noop means the rung is already the current frontier; the receiver is
	// returned unchanged.
	Noop
	// Rejected means no edge exists for the rung, or the ladder is already
	// complete. The receiver is returned unchanged.
	Rejected
)

func (r AddResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Noop:
		return "noop"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("AddResult(%d)", int(r))
}

// Ladder is a bidirectional partial path. The zero value is not usable; use
// New.
type Ladder[R comparable] struct {
	start, end R
	lower      []R // lower[0] == start, grows toward the end
	upper      []R // upper[0] == end, grows toward the start
	canLink    LinkFunc[R]
	equal      EqualFunc[R]
}

// Option configures a Ladder at construction.
type Option[R comparable] func(*Ladder[R])

// WithEqual overrides the rung equality predicate.
func WithEqual[R comparable](eq EqualFunc[R]) Option[R] {
	return func(l *Ladder[R]) { l.equal = eq }
}

// New constructs an incomplete Ladder holding only its start and end rungs.
// canLink decides whether a rung may be appended; it is also what makes the
// ladder complete once the two frontiers connect.
func New[R comparable](start, end R, canLink LinkFunc[R], opts ...Option[R]) *Ladder[R] {
	l := &Ladder[R]{
		start:   start,
		end:     end,
		lower:   []R{start},
		upper:   []R{end},
		canLink: canLink,
		equal:   func(a, b R) bool { return a == b },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start returns the original start rung.
func (l *Ladder[R]) Start() R { return l.start }

// End returns the original end rung.
func (l *Ladder[R]) End() R { return l.end }

// LowerFrontier returns the outermost rung grown from the start.
func (l *Ladder[R]) LowerFrontier() R { return l.lower[len(l.lower)-1] }

// UpperFrontier returns the outermost rung grown from the end.
func (l *Ladder[R]) UpperFrontier() R { return l.upper[len(l.upper)-1] }

// Height is the number of rungs excluding the fixed start and end. Shorter
// ladders are preferred when search priorities tie.
func (l *Ladder[R]) Height() int { return len(l.lower) + len(l.upper) - 2 }

// Complete reports whether the ladder forms a full path: either start and end
// are the same rung, or the lower frontier has a direct edge to the upper
// frontier.
func (l *Ladder[R]) Complete() bool {
	if l.equal(l.start, l.end) {
		return true
	}
	return l.canLink(l.LowerFrontier(), l.UpperFrontier())
}

// AddLowerRung derives a ladder with rung appended to the lower section.
// Returns (receiver, Noop) when rung is already the lower frontier, and
// (receiver, Rejected) when no edge exists from the frontier to rung or the
// ladder is already complete.
func (l *Ladder[R]) AddLowerRung(rung R) (*Ladder[R], AddResult) {
	frontier := l.LowerFrontier()
	if l.equal(rung, frontier) {
		return l, Noop
	}
	if !l.canLink(frontier, rung) {
		return l, Rejected
	}
	if l.Complete() {
		return l, Rejected
	}
	derived := l.clone()
	derived.lower = append(derived.lower, rung)
	return derived, Applied
}

// AddUpperRung derives a ladder with rung appended to the upper section. The
// edge must run from rung to the current upper frontier, since upper rungs
// are traversed in reverse.
func (l *Ladder[R]) AddUpperRung(rung R) (*Ladder[R], AddResult) {
	frontier := l.UpperFrontier()
	if l.equal(rung, frontier) {
		return l, Noop
	}
	if !l.canLink(rung, frontier) {
		return l, Rejected
	}
	if l.Complete() {
		return l, Rejected
	}
	derived := l.clone()
	derived.upper = append(derived.upper, rung)
	return derived, Applied
}

// Sequence returns the full ordered path: lower rungs followed by the upper
// rungs in reverse. If the ladder is incomplete, gap is inserted between the
// two halves to mark the missing middle. Callers should only need the gap
// marker defensively; a finished search always yields a complete ladder.
func (l *Ladder[R]) Sequence(gap R) []R {
	out := make([]R, 0, len(l.lower)+len(l.upper)+1)
	out = append(out, l.lower...)
	if !l.Complete() {
		out = append(out, gap)
	}
	for i := len(l.upper) - 1; i >= 0; i-- {
		out = append(out, l.upper[i])
	}
	return out
}

// Rungs returns copies of the lower and upper rung sequences, in growth
// order.
func (l *Ladder[R]) Rungs() (lower, upper []R) {
	lower = make([]R, len(l.lower))
	copy(lower, l.lower)
	upper = make([]R, len(l.upper))
	copy(upper, l.upper)
	return lower, upper
}

// String renders the ladder for logs, with ", ... ," standing in for the
// unclosed gap of an incomplete ladder.
func (l *Ladder[R]) String() string {
	sep := ", ... , "
	if l.Complete() {
		sep = ", "
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, r := range l.lower {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, r)
	}
	b.WriteString(sep)
	for i := len(l.upper) - 1; i >= 0; i-- {
		fmt.Fprint(&b, l.upper[i])
		if i > 0 {
			b.WriteString(", ")
		}
	}
	b.WriteByte(']')
	return b.String()
}

func (l *Ladder[R]) clone() *Ladder[R] {
	c := &Ladder[R]{
		start:   l.start,
		end:     l.end,
		lower:   make([]R, len(l.lower), len(l.lower)+1),
		upper:   make([]R, len(l.upper), len(l.upper)+1),
		canLink: l.canLink,
		equal:   l.equal,
	}
	copy(c.lower, l.lower)
	copy(c.upper, l.upper)
	return c
}
