package racer

import (
	"container/heap"

	"github.com/orneryd/wikiladder/pkg/ladder"
)

// candidate is one frontier item: a ladder annotated with the priority score
// computed when it was derived. Scores are never recomputed after
// construction, which keeps the comparators pure.
type candidate struct {
	lad   *ladder.Ladder[string]
	score int
}

// byPopularity orders anchor candidates by the popularity of their upper
// frontier, best first.
func byPopularity(a, b *candidate) bool {
	return a.score > b.score
}

// byProximity orders completion candidates by proximity descending, with
// ties broken by height ascending (shorter, more converged paths first).
func byProximity(a, b *candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.lad.Height() < b.lad.Height()
}

// candidateQueue is a priority queue of candidates with a pluggable
// comparator.
type candidateQueue struct {
	h candidateHeap
}

func newCandidateQueue(less func(a, b *candidate) bool) *candidateQueue {
	q := &candidateQueue{h: candidateHeap{less: less}}
	heap.Init(&q.h)
	return q
}

func (q *candidateQueue) len() int          { return q.h.Len() }
func (q *candidateQueue) push(c *candidate) { heap.Push(&q.h, c) }
func (q *candidateQueue) pop() *candidate   { return heap.Pop(&q.h).(*candidate) }

// candidateHeap implements heap.Interface.
type candidateHeap struct {
	items []*candidate
	less  func(a, b *candidate) bool
}

func (h *candidateHeap) Len() int           { return len(h.items) }
func (h *candidateHeap) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *candidateHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *candidateHeap) Push(x any) {
	h.items = append(h.items, x.(*candidate))
}

func (h *candidateHeap) Pop() any {
	old := h.items
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return c
}
