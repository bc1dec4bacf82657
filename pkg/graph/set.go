package graph

import "sort"

// TitleSet is an immutable set of normalized page titles. Oracle methods
// return the same TitleSet value on every call for a given key, so callers
// get a read-only view of the cache entry; there are no exported mutators.
//
// A nil *TitleSet behaves as the empty set.
type TitleSet struct {
	m map[string]struct{}
}

func newTitleSet(size int) *TitleSet {
	return &TitleSet{m: make(map[string]struct{}, size)}
}

func (s *TitleSet) add(title string) {
	s.m[title] = struct{}{}
}

func (s *TitleSet) remove(title string) {
	delete(s.m, title)
}

// Contains reports set membership.
func (s *TitleSet) Contains(title string) bool {
	if s == nil {
		return false
	}
	_, ok := s.m[title]
	return ok
}

// Len returns the number of titles in the set.
func (s *TitleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Each calls fn for every title until fn returns false. Iteration order is
// unspecified.
func (s *TitleSet) Each(fn func(title string) bool) {
	if s == nil {
		return
	}
	for t := range s.m {
		if !fn(t) {
			return
		}
	}
}

// Titles returns the members as a sorted slice. The slice is a copy.
func (s *TitleSet) Titles() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.m))
	for t := range s.m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// intersectionSize counts titles present in both sets by iterating the
// smaller set and probing the larger.
func intersectionSize(a, b *TitleSet) int {
	if a.Len() > b.Len() {
		a, b = b, a
	}
	n := 0
	a.Each(func(t string) bool {
		if b.Contains(t) {
			n++
		}
		return true
	})
	return n
}
